package curvefitting

import (
	"math"

	"github.com/emirpasic/gods/stacks/arraystack"
	"github.com/npillmayer/arithm"
	"gonum.org/v1/gonum/mat"

	"github.com/ecolban/CurveFitting/lineq"
)

// Bézier-to-power-basis transforms per degree. Row j holds the
// coefficients of t^(degree-j) … contributed by each control point.
var bezier3Coeff = [4][4]float64{
	{-1, 3, -3, 1},
	{3, -6, 3, 0},
	{-3, 3, 0, 0},
	{1, 0, 0, 0},
}

var bezier2Coeff = [3][3]float64{
	{1, -2, 1},
	{-2, 2, 0},
	{1, 0, 0},
}

var bezier1Coeff = [2][2]float64{
	{-1, 1},
	{1, 0},
}

func powerCoeff(degree, j, k int) float64 {
	switch degree {
	case 1:
		return bezier1Coeff[j][k]
	case 2:
		return bezier2Coeff[j][k]
	default:
		return bezier3Coeff[j][k]
	}
}

// fitter holds the state of one fitting run: the sample sequence, the
// parametrization and fit of the interval currently being worked on, and
// the path assembled so far. The same fitter drives both the plain and the
// pausable engine; the latter sets a pause hook that is invoked at every
// checkpoint and may abort the run by returning an error.
type fitter struct {
	points   []arithm.Pair
	weightf  WeightFunc
	initialT []float64 // chord-length parameters of the full sequence
	start    int       // current interval, absolute indices
	end      int
	t        []float64 // parameters of the current interval, t[0]=0, t[end-start]=1
	degree   int
	controls [4]arithm.Pair
	position [4]arithm.Pair // power-basis rows of the current curve
	velocity [3]arithm.Pair // power-basis rows of its derivative
	farthest int            // absolute index of the farthest sample
	path     *Path
	pause    func(Checkpoint) error // nil for the non-steppable engine
}

func (f *fitter) pauseAt(cp Checkpoint) error {
	if f.pause == nil {
		return nil
	}
	return f.pause(cp)
}

// parametrize assigns a parameter in [0,1] to every sample of [start,end].
// The full sequence gets chord-length parameters, which are kept; any
// sub-interval gets the initial parameters linearly remapped onto [0,1],
// preserving the original relative spacing.
func (f *fitter) parametrize(start, end int) {
	f.start, f.end = start, end
	n := end - start + 1
	f.t = make([]float64, n)
	if n == len(f.points) {
		for i := 0; i < n-1; i++ {
			f.t[i+1] = f.t[i] + dist(f.points[i], f.points[i+1])
		}
		total := f.t[n-1]
		for i := range f.t {
			f.t[i] /= total
		}
		f.t[n-1] = 1.0
		f.initialT = append([]float64(nil), f.t...)
	} else {
		offset := f.initialT[start]
		span := f.initialT[end] - offset
		for i := start; i < end; i++ {
			f.t[i-start] = (f.initialT[i] - offset) / span
		}
		f.t[n-1] = 1.0
	}
}

// refreshCurve recomputes the power-basis coefficient caches from the
// current control points and degree.
func (f *fitter) refreshCurve() {
	d := f.degree
	for j := range f.position {
		f.position[j] = 0
	}
	for j := range f.velocity {
		f.velocity[j] = 0
	}
	for j := 0; j <= d; j++ {
		var row arithm.Pair
		for k := 0; k <= d; k++ {
			row += f.controls[k] * arithm.P(powerCoeff(d, j, k), 0)
		}
		f.position[j] = row
	}
	for j := 0; j < d; j++ {
		var row arithm.Pair
		for k := 0; k <= d; k++ {
			row += f.controls[k] * arithm.P(float64(d-j)*powerCoeff(d, j, k), 0)
		}
		f.velocity[j] = row
	}
}

// curvePoint evaluates the current curve at t by Horner's rule.
func (f *fitter) curvePoint(t float64) arithm.Pair {
	var p arithm.Pair
	for j := 0; j <= f.degree; j++ {
		p = p*arithm.P(t, 0) + f.position[j]
	}
	return p
}

// curveTangent evaluates the current curve's first derivative at t.
func (f *fitter) curveTangent(t float64) arithm.Pair {
	var v arithm.Pair
	for j := 0; j < f.degree; j++ {
		v = v*arithm.P(t, 0) + f.velocity[j]
	}
	return v
}

// lineFit fits the interval's two endpoint samples with a line. Closed
// form, always succeeds.
func (f *fitter) lineFit() {
	f.degree = 1
	f.controls[0] = f.points[f.start]
	f.controls[1] = f.points[f.end]
	f.refreshCurve()
}

// quadFit fits exactly three samples with a quadratic interpolating all of
// them: the interior control point follows in closed form from the middle
// sample's parameter. A degenerate middle parameter (repeated endpoint
// sample) downgrades to the line.
func (f *fitter) quadFit() {
	t1 := f.t[1]
	if arithm.Is0(t1) || arithm.Is1(t1) {
		tracer().Debugf("degenerate interior parameter on [%d,%d], downgrading to line", f.start, f.end)
		f.lineFit()
		return
	}
	p0 := f.points[f.start]
	p2 := f.points[f.end]
	mx, my := f.points[f.start+1].F()
	sx, sy := p0.F()
	ex, ey := p2.F()
	cx := (mx/(1-t1)/t1 - (1-t1)/t1*sx - t1/(1-t1)*ex) / 2
	cy := (my/(1-t1)/t1 - (1-t1)/t1*sy - t1/(1-t1)*ey) / 2
	f.degree = 2
	f.controls[0] = p0
	f.controls[1] = arithm.P(cx, cy)
	f.controls[2] = p2
	f.refreshCurve()
}

// quadFallback replaces a rank-deficient cubic fit: the endpoints stay
// pinned and the single interior control point of a quadratic is the
// weighted least-squares solution, which has a closed form. If that
// system collapses too, the interval degrades to the endpoint line.
func (f *fitter) quadFallback() {
	n := f.end - f.start
	p0 := f.points[f.start]
	p2 := f.points[f.end]
	var num arithm.Pair
	den := 0.0
	for i := 1; i < n; i++ {
		ti := f.t[i]
		wi := f.weightf(n, i)
		c := 2 * ti * (1 - ti)
		r := f.points[f.start+i] - p0*arithm.P((1-ti)*(1-ti), 0) - p2*arithm.P(ti*ti, 0)
		num += r * arithm.P(wi*wi*c, 0)
		den += wi * wi * c * c
	}
	if arithm.Is0(den) {
		f.lineFit()
		return
	}
	f.degree = 2
	f.controls[0] = p0
	f.controls[1] = num * arithm.P(1/den, 0)
	f.controls[2] = p2
	f.refreshCurve()
}

// cubicSystem builds the weighted design matrix and right-hand side for the
// two free interior control points of a cubic, plus the full four-column
// matrix used for the rank test. With P0 and P3 pinned to the endpoint
// samples, row i reads w_i·T_i·B[:,1..2] · (P1 P2)ᵀ = w_i·(d_i − T_i·B[:,{0,3}]·(P0 P3)ᵀ).
func (f *fitter) cubicSystem() (a, b, full *mat.Dense) {
	n := f.end - f.start
	rows := n + 1
	full = mat.NewDense(rows, 4, nil)
	a = mat.NewDense(rows, 2, nil)
	b = mat.NewDense(rows, 2, nil)
	sx, sy := f.points[f.start].F()
	ex, ey := f.points[f.end].F()
	for i := 0; i < rows; i++ {
		ti := f.t[i]
		wi := f.weightf(n, i)
		for j := 0; j < 4; j++ {
			v := 0.0
			for k := 0; k < 4; k++ {
				v = v*ti + bezier3Coeff[k][j]
			}
			full.Set(i, j, wi*v)
		}
		a.Set(i, 0, full.At(i, 1))
		a.Set(i, 1, full.At(i, 2))
		px, py := f.points[f.start+i].F()
		b.Set(i, 0, wi*px-full.At(i, 0)*sx-full.At(i, 3)*ex)
		b.Set(i, 1, wi*py-full.At(i, 0)*sy-full.At(i, 3)*ey)
	}
	return a, b, full
}

// leastSquaresFit solves for the cubic's interior control points under the
// current parametrization. Rank deficiency downgrades the degree instead of
// surfacing an error.
func (f *fitter) leastSquaresFit() {
	a, b, full := f.cubicSystem()
	if r := lineq.Rank(full); r < 4 {
		tracer().Debugf("cubic system on [%d,%d] has rank %d, downgrading", f.start, f.end, r)
		f.quadFallback()
		return
	}
	x, err := lineq.LeastSquares(a, b)
	if err != nil {
		tracer().Debugf("cubic solve on [%d,%d] failed (%v), downgrading", f.start, f.end, err)
		f.quadFallback()
		return
	}
	f.degree = 3
	f.controls[0] = f.points[f.start]
	f.controls[1] = arithm.P(x.At(0, 0), x.At(0, 1))
	f.controls[2] = arithm.P(x.At(1, 0), x.At(1, 1))
	f.controls[3] = f.points[f.end]
	f.refreshCurve()
}

// reparametrize takes one Newton step per interior sample towards the foot
// of the perpendicular on the current curve and keeps the new parameter
// only if it strictly reduces that sample's squared distance. It returns
// the summed (possibly improved) squared distances of the interior samples.
func (f *fitter) reparametrize() float64 {
	residual := 0.0
	for i := 1; i+f.start < f.end; i++ {
		ti := f.t[i]
		p := f.curvePoint(ti)
		v := f.curveTangent(ti)
		d := f.points[f.start+i]
		dx, dy := (d - p).F()
		vx, vy := v.F()
		tHat := ti + (dx*vx+dy*vy)/(vx*vx+vy*vy)
		before := distSq(d, p)
		after := distSq(d, f.curvePoint(tHat))
		if after < before {
			f.t[i] = tHat
			residual += after
		} else {
			residual += before
		}
	}
	return residual
}

// cubicFit runs the solve/reparametrize loop for an interval of four or
// more samples. Iteration continues only while the residual still drops by
// more than 5% and has not reached the noise floor.
func (f *fitter) cubicFit() error {
	residual := math.MaxFloat64
	for {
		f.leastSquaresFit()
		if err := f.pauseAt(AfterLeastSquares); err != nil {
			return err
		}
		if f.degree < 3 {
			return nil // degraded fit, nothing to iterate on
		}
		previous := residual
		residual = f.reparametrize()
		if !(residual < 0.95*previous && residual > fitToleranceSq) {
			return nil
		}
		if err := f.pauseAt(AfterReparametrization); err != nil {
			return err
		}
	}
}

// farthestPoint locates the interior sample with the maximum squared
// distance to the current curve and returns that distance.
func (f *fitter) farthestPoint() float64 {
	f.farthest = f.start
	maxDistSq := 0.0
	for i := f.start + 1; i < f.end; i++ {
		d := distSq(f.points[i], f.curvePoint(f.t[i-f.start]))
		if d > maxDistSq {
			maxDistSq = d
			f.farthest = i
		}
	}
	return maxDistSq
}

// calculateResidual sums the squared distances of all samples of the
// current interval to the current curve. Only meaningful once a fit exists.
func (f *fitter) calculateResidual() float64 {
	residual := 0.0
	for i, ti := range f.t {
		residual += distSq(f.curvePoint(ti), f.points[f.start+i])
	}
	return residual
}

func (f *fitter) appendSegment() {
	seg := Segment{degree: f.degree}
	for k := 0; k <= f.degree; k++ {
		seg.controls[k] = f.controls[k]
	}
	f.path.append(seg)
	tracer().Debugf("committed segment %s", seg)
}

// run fits the whole sample sequence, assembling f.path left to right.
// Intervals whose farthest sample exceeds the tolerance are split there;
// the right half is parked on an explicit stack while the left half is
// refined, so no state is shared between pending sub-fits. A non-nil error
// from the pause hook (cancellation) stops the run; the path then remains
// a valid prefix of the full result.
func (f *fitter) run() error {
	f.path = newPath(f.points[0])
	pending := arraystack.New()
	start, end := 0, len(f.points)-1
	for {
		f.parametrize(start, end)
		if err := f.pauseAt(AfterParametrization); err != nil {
			return err
		}
		switch n := end - start + 1; {
		case n == 2:
			f.lineFit()
		case n == 3:
			f.quadFit()
		default:
			if err := f.cubicFit(); err != nil {
				return err
			}
			maxDistSq := f.farthestPoint()
			if err := f.pauseAt(SplitDetermination); err != nil {
				return err
			}
			if maxDistSq > fitToleranceSq {
				tracer().Debugf("splitting [%d,%d] at %d, max distance² = %.4g",
					start, end, f.farthest, maxDistSq)
				pending.Push(end)
				end = f.farthest
				continue
			}
		}
		f.appendSegment()
		top, ok := pending.Pop()
		if !ok {
			tracer().Infof("fitted path: %s", f.path)
			return nil
		}
		start, end = end, top.(int)
	}
}
