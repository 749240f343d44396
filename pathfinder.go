package curvefitting

import "github.com/npillmayer/arithm"

// FindPath fits the sample points with a Bézier path in one call, without
// pausing. The points are copied; the input slice stays untouched. A nil
// weightf selects MidspanWeights.
//
// FindPath validates its input and returns an error for fewer than two
// points or non-finite coordinates. Numerical degeneracies during fitting
// are handled internally by degree downgrades and never surface as errors.
func FindPath(points []arithm.Pair, weightf WeightFunc) (*Path, error) {
	if err := validateSamples(points); err != nil {
		return nil, err
	}
	if weightf == nil {
		weightf = MidspanWeights
	}
	f := &fitter{
		points:  append([]arithm.Pair(nil), points...),
		weightf: weightf,
	}
	if err := f.run(); err != nil {
		return nil, err
	}
	return f.path, nil
}
