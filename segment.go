package curvefitting

import (
	"fmt"
	"strings"

	"github.com/npillmayer/arithm"
)

// A Segment is one Bézier piece of a fitted path: a line (degree 1), a
// quadratic (degree 2) or a cubic (degree 3), defined by degree+1 control
// points. The first and last control points coincide exactly with the
// sample points at the ends of the fitted interval.
type Segment struct {
	degree   int
	controls [4]arithm.Pair
}

// Degree of the segment, 1, 2 or 3.
func (seg Segment) Degree() int {
	return seg.degree
}

// Control returns control point i, 0 ≤ i ≤ Degree().
func (seg Segment) Control(i int) arithm.Pair {
	if i < 0 || i > seg.degree {
		panic(fmt.Sprintf("curvefitting: control point index %d out of range for degree %d", i, seg.degree))
	}
	return seg.controls[i]
}

// Start is the segment's first control point.
func (seg Segment) Start() arithm.Pair {
	return seg.controls[0]
}

// End is the segment's last control point.
func (seg Segment) End() arithm.Pair {
	return seg.controls[seg.degree]
}

func ptstring(p arithm.Pair) string {
	return fmt.Sprintf("(%.4g,%.4g)", p.X(), p.Y())
}

// String in a MetaPost-like notation, e.g.
// "(0,0) .. controls (1,2) and (3,2) .. (4,0)".
func (seg Segment) String() string {
	return ptstring(seg.Start()) + seg.joinString()
}

// joinString is the segment's notation without its start point, used when
// chaining segments in Path.String.
func (seg Segment) joinString() string {
	switch seg.degree {
	case 1:
		return fmt.Sprintf(" -- %s", ptstring(seg.controls[1]))
	case 2:
		return fmt.Sprintf(" .. controls %s .. %s",
			ptstring(seg.controls[1]), ptstring(seg.controls[2]))
	default:
		return fmt.Sprintf(" .. controls %s and %s .. %s",
			ptstring(seg.controls[1]), ptstring(seg.controls[2]), ptstring(seg.controls[3]))
	}
}

// A Path is an ordered sequence of Bézier segments assembled left to right
// as fitting progresses. Each segment starts at the previous segment's end
// point. Paths are append-only; committed segments are never changed.
type Path struct {
	first    arithm.Pair
	segments []Segment
}

func newPath(start arithm.Pair) *Path {
	return &Path{first: start}
}

func (path *Path) append(seg Segment) {
	path.segments = append(path.segments, seg)
}

// N is the number of segments.
func (path *Path) N() int {
	return len(path.segments)
}

// Segment returns segment i, 0 ≤ i < N().
func (path *Path) Segment(i int) Segment {
	return path.segments[i]
}

// Start is the path's first point. It equals the first sample point even
// while the path is still empty.
func (path *Path) Start() arithm.Pair {
	return path.first
}

// End is the end point of the last committed segment, or the start point
// for an empty path.
func (path *Path) End() arithm.Pair {
	if len(path.segments) == 0 {
		return path.first
	}
	return path.segments[len(path.segments)-1].End()
}

func (path *Path) String() string {
	var sb strings.Builder
	sb.WriteString(ptstring(path.first))
	for _, seg := range path.segments {
		sb.WriteString(seg.joinString())
	}
	return sb.String()
}
