package curvefitting

import (
	"errors"
	"math"
	"testing"

	"github.com/npillmayer/arithm"
	"github.com/npillmayer/schuko/tracing/gotestingadapter"
	"github.com/stretchr/testify/assert"
)

// --- fixtures, shapes from the original interactive demo -----------------

func circlePoints() []arithm.Pair {
	const num = 97
	pts := make([]arithm.Pair, num)
	for i := 0; i < num; i++ {
		alpha := 2 * math.Pi * float64(i) / float64(num-1)
		pts[i] = arithm.P(300*math.Cos(alpha)+400, 300*math.Sin(alpha)+330)
	}
	return pts
}

func parabolaPoints() []arithm.Pair {
	const num = 81
	pts := make([]arithm.Pair, num)
	for i := 0; i < num; i++ {
		delta := 600.0 / float64(num-1)
		x := float64(i) * delta
		pts[i] = arithm.P(100+x, 200+(x-200)*(x-400)/200)
	}
	return pts
}

func cornerPoints() []arithm.Pair {
	var pts []arithm.Pair
	for i := 0; i <= 20; i++ {
		pts = append(pts, arithm.P(float64(i)*10, 0))
	}
	for i := 1; i <= 20; i++ {
		pts = append(pts, arithm.P(200, float64(i)*10))
	}
	return pts
}

// evalSegment evaluates a segment by de Casteljau, independently of the
// engine's power-basis caches.
func evalSegment(seg Segment, t float64) arithm.Pair {
	var pts []arithm.Pair
	for i := 0; i <= seg.Degree(); i++ {
		pts = append(pts, seg.Control(i))
	}
	for r := len(pts) - 1; r > 0; r-- {
		for i := 0; i < r; i++ {
			pts[i] = pts[i]*arithm.P(1-t, 0) + pts[i+1]*arithm.P(t, 0)
		}
	}
	return pts[0]
}

// maxSampleDeviation densely samples the path and returns the largest
// distance from any sample point to its nearest path point. This
// overestimates the true deviation by at most the sampling step length.
func maxSampleDeviation(path *Path, samples []arithm.Pair) float64 {
	const steps = 512
	maxDev := 0.0
	for _, s := range samples {
		best := math.Inf(1)
		for i := 0; i < path.N(); i++ {
			seg := path.Segment(i)
			for k := 0; k <= steps; k++ {
				if d := dist(s, evalSegment(seg, float64(k)/steps)); d < best {
					best = d
				}
			}
		}
		if best > maxDev {
			maxDev = best
		}
	}
	return maxDev
}

func assertContinuity(t *testing.T, path *Path, samples []arithm.Pair) {
	t.Helper()
	if path.Start() != samples[0] {
		t.Errorf("path starts at %s, expected first sample %s", ptstring(path.Start()), ptstring(samples[0]))
	}
	if path.End() != samples[len(samples)-1] {
		t.Errorf("path ends at %s, expected last sample %s", ptstring(path.End()), ptstring(samples[len(samples)-1]))
	}
	onSample := make(map[arithm.Pair]bool)
	for _, s := range samples {
		onSample[s] = true
	}
	prev := path.Start()
	for i := 0; i < path.N(); i++ {
		seg := path.Segment(i)
		if seg.Degree() < 1 || seg.Degree() > 3 {
			t.Fatalf("segment %d has degree %d", i, seg.Degree())
		}
		if seg.Start() != prev {
			t.Errorf("segment %d starts at %s, previous segment ended at %s", i, ptstring(seg.Start()), ptstring(prev))
		}
		if !onSample[seg.Start()] || !onSample[seg.End()] {
			t.Errorf("segment %d endpoints are not sample points: %s", i, seg)
		}
		prev = seg.End()
	}
}

// --- tests ----------------------------------------------------------------

func TestTwoPointLine(t *testing.T) {
	teardown := gotestingadapter.RedirectTracing(t)
	defer teardown()
	path, err := FindPath([]arithm.Pair{arithm.P(0, 0), arithm.P(10, 0)}, nil)
	assert.NoError(t, err)
	assert.Equal(t, 1, path.N())
	seg := path.Segment(0)
	assert.Equal(t, 1, seg.Degree())
	assert.Equal(t, arithm.P(0, 0), seg.Control(0))
	assert.Equal(t, arithm.P(10, 0), seg.Control(1))
}

func TestThreePointQuad(t *testing.T) {
	teardown := gotestingadapter.RedirectTracing(t)
	defer teardown()
	samples := []arithm.Pair{arithm.P(0, 0), arithm.P(5, 5), arithm.P(10, 0)}
	path, err := FindPath(samples, nil)
	assert.NoError(t, err)
	assert.Equal(t, 1, path.N())
	seg := path.Segment(0)
	assert.Equal(t, 2, seg.Degree())
	assert.Equal(t, arithm.P(0, 0), seg.Control(0))
	assert.Equal(t, arithm.P(10, 0), seg.Control(2))
	// chord-length parametrization puts the middle sample at t=1/2, so the
	// interior control point has a closed form, and the curve interpolates
	// the middle sample.
	assert.InDelta(t, 5.0, seg.Control(1).X(), 1e-9)
	assert.InDelta(t, 10.0, seg.Control(1).Y(), 1e-9)
	mid := evalSegment(seg, 0.5)
	assert.InDelta(t, 5.0, mid.X(), 1e-9)
	assert.InDelta(t, 5.0, mid.Y(), 1e-9)
}

func TestCircleFit(t *testing.T) {
	teardown := gotestingadapter.RedirectTracing(t)
	defer teardown()
	samples := circlePoints()
	path, err := FindPath(samples, nil)
	assert.NoError(t, err)
	assert.Equal(t, arithm.P(700, 330), path.Start())
	assert.Greater(t, path.N(), 1, "a full circle cannot be one segment")
	assertContinuity(t, path, samples)
	cubics := 0
	for i := 0; i < path.N(); i++ {
		if path.Segment(i).Degree() == 3 {
			cubics++
		}
	}
	assert.Greater(t, cubics, 1)
	dev := maxSampleDeviation(path, samples)
	assert.Less(t, dev, 0.75, "sample deviation exceeds fit tolerance")
}

func TestParabolaFit(t *testing.T) {
	teardown := gotestingadapter.RedirectTracing(t)
	defer teardown()
	samples := parabolaPoints()
	path, err := FindPath(samples, nil)
	assert.NoError(t, err)
	assertContinuity(t, path, samples)
	dev := maxSampleDeviation(path, samples)
	assert.Less(t, dev, 0.75)
}

func TestCornerFit(t *testing.T) {
	teardown := gotestingadapter.RedirectTracing(t)
	defer teardown()
	samples := cornerPoints()
	path, err := FindPath(samples, nil)
	assert.NoError(t, err)
	assertContinuity(t, path, samples)
	dev := maxSampleDeviation(path, samples)
	assert.Less(t, dev, 0.75)
}

func TestEndpointWeightsPolicy(t *testing.T) {
	teardown := gotestingadapter.RedirectTracing(t)
	defer teardown()
	samples := parabolaPoints()
	path, err := FindPath(samples, EndpointWeights)
	assert.NoError(t, err)
	assertContinuity(t, path, samples)
	dev := maxSampleDeviation(path, samples)
	assert.Less(t, dev, 0.75)
}

func TestRepeatedStartSampleDowngradesToLine(t *testing.T) {
	teardown := gotestingadapter.RedirectTracing(t)
	defer teardown()
	samples := []arithm.Pair{arithm.P(0, 0), arithm.P(0, 0), arithm.P(10, 0)}
	path, err := FindPath(samples, nil)
	assert.NoError(t, err)
	assert.Equal(t, 1, path.N())
	assert.Equal(t, 1, path.Segment(0).Degree())
	assert.Equal(t, arithm.P(10, 0), path.End())
}

func TestFindPathValidation(t *testing.T) {
	teardown := gotestingadapter.RedirectTracing(t)
	defer teardown()
	_, err := FindPath(nil, nil)
	assert.True(t, errors.Is(err, ErrTooFewPoints))
	_, err = FindPath([]arithm.Pair{arithm.P(1, 1)}, nil)
	assert.True(t, errors.Is(err, ErrTooFewPoints))
	_, err = FindPath([]arithm.Pair{arithm.P(0, 0), arithm.P(math.NaN(), 1)}, nil)
	assert.True(t, errors.Is(err, ErrInvalidPoint))
	_, err = FindPath([]arithm.Pair{arithm.P(0, 0), arithm.P(math.Inf(1), 1)}, nil)
	assert.True(t, errors.Is(err, ErrInvalidPoint))
}

func TestFindPathDoesNotMutateInput(t *testing.T) {
	teardown := gotestingadapter.RedirectTracing(t)
	defer teardown()
	samples := parabolaPoints()
	snapshot := append([]arithm.Pair(nil), samples...)
	_, err := FindPath(samples, nil)
	assert.NoError(t, err)
	assert.Equal(t, snapshot, samples)
}

func TestSegmentStringNotation(t *testing.T) {
	teardown := gotestingadapter.RedirectTracing(t)
	defer teardown()
	path, err := FindPath([]arithm.Pair{arithm.P(0, 0), arithm.P(10, 0)}, nil)
	assert.NoError(t, err)
	assert.Equal(t, "(0,0) -- (10,0)", path.String())
	assert.Equal(t, "(0,0) -- (10,0)", path.Segment(0).String())
}
