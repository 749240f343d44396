package curvefitting

import (
	"errors"
	"fmt"
	"math"

	"github.com/npillmayer/arithm"
	"github.com/npillmayer/schuko/tracing"
)

// tracer writes to trace with key 'curvefit'
func tracer() tracing.Trace {
	return tracing.Select("curvefit")
}

// FitTolerance is the maximum distance, in curve-space units, that any
// sample point may deviate from its fitted segment. Intervals exceeding it
// are split at the farthest point and refitted.
const FitTolerance = 0.5

const fitToleranceSq = FitTolerance * FitTolerance

var (
	// ErrTooFewPoints indicates fewer than 2 sample points.
	ErrTooFewPoints = errors.New("need at least 2 sample points")
	// ErrInvalidPoint indicates a sample coordinate that is NaN or infinite.
	ErrInvalidPoint = errors.New("sample point has invalid coordinate")
)

func validateSamples(points []arithm.Pair) error {
	if len(points) < 2 {
		return fmt.Errorf("%w: got %d", ErrTooFewPoints, len(points))
	}
	for i, p := range points {
		x, y := p.F()
		if math.IsNaN(x) || math.IsNaN(y) || math.IsInf(x, 0) || math.IsInf(y, 0) {
			return fmt.Errorf("%w at index %d", ErrInvalidPoint, i)
		}
	}
	return nil
}

// A WeightFunc assigns a least-squares weight to the sample at offset i
// within the current interval, where n is the offset of the interval's last
// sample (i.e. i ranges over 0 … n). Weights should grow towards the
// interval ends to keep the fit from rounding off corners there.
type WeightFunc func(n, i int) float64

// MidspanWeights is the default weighting policy: |n - 2i|, i.e. weight
// grows linearly with the distance from the interval's center.
func MidspanWeights(n, i int) float64 {
	return math.Abs(float64(n) - 2*float64(i))
}

// EndpointWeights is an alternative policy giving the two endpoint samples
// effectively infinite weight and normalizing the interior weights by the
// interval length.
func EndpointWeights(n, i int) float64 {
	if i == 0 || i == n {
		return 1e10
	}
	return (math.Abs(float64(n)-2*float64(i)) + 1) / float64(n)
}

// Checkpoint identifies the point in the fitting algorithm at which a
// pausable fit is currently suspended.
type Checkpoint int8

const (
	// AfterParametrization: the current interval has been parametrized,
	// no fit exists yet.
	AfterParametrization Checkpoint = iota + 1
	// AfterLeastSquares: a least-squares solve has just produced control
	// points for the current interval.
	AfterLeastSquares
	// AfterReparametrization: the interval's parameters have been adjusted
	// and the iteration continues.
	AfterReparametrization
	// SplitDetermination: the sample farthest from the fitted curve has
	// been located.
	SplitDetermination
	// End: the whole fit has finished; the assembled path is complete.
	End
)

func (cp Checkpoint) String() string {
	switch cp {
	case AfterParametrization:
		return "after-parametrization"
	case AfterLeastSquares:
		return "after-least-squares"
	case AfterReparametrization:
		return "after-reparametrization"
	case SplitDetermination:
		return "split-determination"
	case End:
		return "end"
	}
	return fmt.Sprintf("checkpoint(%d)", int8(cp))
}

func distSq(p, q arithm.Pair) float64 {
	dx, dy := (p - q).F()
	return dx*dx + dy*dy
}

func dist(p, q arithm.Pair) float64 {
	return math.Sqrt(distSq(p, q))
}
