package curvefitting

import (
	"errors"
	"fmt"

	"github.com/npillmayer/arithm"

	"github.com/ecolban/CurveFitting/coro"
)

// errCancelled unwinds the fitting run after the driver has requested
// cancellation. It never escapes to callers.
var errCancelled = errors.New("fit cancelled")

// A PausableFinder runs the same fit as FindPath on a worker goroutine
// that suspends at every checkpoint, so a driver can single-step the
// algorithm and inspect its intermediate state.
//
// The driver calls Launch once, then Resume repeatedly; each call runs the
// fit forward to its next checkpoint and returns true, or returns false
// once the fit has finished. Between calls the worker is suspended and the
// state readers (State, Interval, Parameters, ControlPoints, Residual,
// FarthestPoint, Message, Path) expose a consistent snapshot of the
// checkpoint just reached. No locking is involved: the hand-off guarantees
// that only one of the two goroutines runs at a time, so the readers must
// only be called from the driver while the worker is suspended.
//
// Cancel stops the fit cooperatively; the worker terminates at the next
// checkpoint and the assembled path remains a valid prefix.
type PausableFinder struct {
	co    *coro.Coroutine
	f     *fitter
	state Checkpoint
}

// NewPausableFinder validates the sample points and prepares a steppable
// fit over them. The points are copied. A nil weightf selects
// MidspanWeights. The fit does not start until Launch is called.
func NewPausableFinder(points []arithm.Pair, weightf WeightFunc) (*PausableFinder, error) {
	if err := validateSamples(points); err != nil {
		return nil, err
	}
	if weightf == nil {
		weightf = MidspanWeights
	}
	pf := &PausableFinder{
		f: &fitter{
			points:  append([]arithm.Pair(nil), points...),
			weightf: weightf,
		},
	}
	pf.f.pause = pf.checkpoint
	pf.co = coro.New(func(co *coro.Coroutine) {
		if err := pf.f.run(); err != nil {
			tracer().Infof("pausable fit stopped: %v", err)
			return
		}
		pf.state = End
	})
	return pf, nil
}

// checkpoint runs on the worker: it publishes the checkpoint, hands
// control to the driver, and on resumption checks for cancellation.
func (pf *PausableFinder) checkpoint(cp Checkpoint) error {
	pf.state = cp
	tracer().Debugf("checkpoint %s on [%d,%d]", cp, pf.f.start, pf.f.end)
	pf.co.Yield()
	if pf.co.Cancelled() {
		return errCancelled
	}
	return nil
}

// Launch starts the fit and blocks until the first checkpoint is reached.
// It must be called exactly once.
func (pf *PausableFinder) Launch() {
	pf.co.Launch()
}

// Resume runs the fit forward to its next checkpoint. It returns false
// once the fit has finished (or has been cancelled); calling Resume on a
// finished fit is a safe no-op that keeps returning false.
func (pf *PausableFinder) Resume() bool {
	return pf.co.Resume()
}

// Cancel requests cooperative termination and blocks until the worker has
// terminated. The fit stops at its next checkpoint without corrupting the
// assembled path. Cancelling a finished fit has no effect.
func (pf *PausableFinder) Cancel() {
	pf.co.Cancel()
}

// ensureStarted guards the state readers against use before Launch.
func (pf *PausableFinder) ensureStarted() {
	if pf.state == 0 {
		panic("curvefitting: no checkpoint reached yet, call Launch first")
	}
}

// State is the checkpoint at which the fit is currently suspended, or End
// after it has finished.
func (pf *PausableFinder) State() Checkpoint {
	pf.ensureStarted()
	return pf.state
}

// Interval returns the bounds of the interval currently being fitted, as
// absolute sample indices.
func (pf *PausableFinder) Interval() (start, end int) {
	pf.ensureStarted()
	return pf.f.start, pf.f.end
}

// Parameters returns a copy of the current interval's parametrization;
// entry i is the parameter of sample Interval().start+i.
func (pf *PausableFinder) Parameters() []float64 {
	pf.ensureStarted()
	return append([]float64(nil), pf.f.t...)
}

// Degree of the current fit, 1, 2 or 3. Meaningful from the first
// AfterLeastSquares checkpoint of the interval on.
func (pf *PausableFinder) Degree() int {
	pf.ensureStarted()
	return pf.f.degree
}

// ControlPoints returns a copy of the current fit's Degree()+1 control
// points.
func (pf *PausableFinder) ControlPoints() []arithm.Pair {
	pf.ensureStarted()
	return append([]arithm.Pair(nil), pf.f.controls[:pf.f.degree+1]...)
}

// Residual is the sum of squared distances of the current interval's
// samples to the current fit.
func (pf *PausableFinder) Residual() float64 {
	pf.ensureStarted()
	return pf.f.calculateResidual()
}

// FarthestPoint is the absolute index of the sample farthest from the
// current fit. Meaningful at the SplitDetermination checkpoint.
func (pf *PausableFinder) FarthestPoint() int {
	pf.ensureStarted()
	return pf.f.farthest
}

// Path is the path assembled so far. It grows as segments are committed
// and is only complete once State() == End. Callers must treat it as
// read-only.
func (pf *PausableFinder) Path() *Path {
	pf.ensureStarted()
	return pf.f.path
}

// Message summarizes the current checkpoint for display.
func (pf *PausableFinder) Message() string {
	switch pf.State() {
	case AfterParametrization:
		return "Initial parametrization"
	case SplitDetermination:
		pos := pf.f.curvePoint(pf.f.t[pf.f.farthest-pf.f.start])
		return fmt.Sprintf("Greatest distance = %.2f", dist(pf.f.points[pf.f.farthest], pos))
	case End:
		return "Done"
	default:
		return fmt.Sprintf("Residual = %.2f", pf.f.calculateResidual())
	}
}
