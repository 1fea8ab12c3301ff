package geometry

import "math"

// Projection is the point on a polyline nearest to some query point.
type Projection struct {
	Point Point
	// Index is the polyline vertex the projection starts from: the start
	// vertex of the containing segment, or the vertex itself when the
	// projection lands exactly on one.
	Index int
	// Dist is the distance in meters from the query point.
	Dist float64
}

// NearestPointOnLine projects pt onto line. Each segment is projected in a
// local equirectangular frame centred on pt, which is accurate at the scale
// of stop spacing. When several segments are equally close the earliest one
// wins. Returns false for an empty line.
func NearestPointOnLine(line []Point, pt Point) (Projection, bool) {
	if len(line) == 0 {
		return Projection{}, false
	}
	if len(line) == 1 {
		return Projection{Point: line[0], Index: 0, Dist: Distance(pt, line[0])}, true
	}

	kx := math.Cos(pt.Lat * math.Pi / 180)
	best := Projection{Dist: math.Inf(1)}

	for i := 0; i < len(line)-1; i++ {
		a, b := line[i], line[i+1]

		dx := (b.Lon - a.Lon) * kx
		dy := b.Lat - a.Lat
		px := (pt.Lon - a.Lon) * kx
		py := pt.Lat - a.Lat

		t := 0.0
		if lenSq := dx*dx + dy*dy; lenSq > 0 {
			t = Clamp((px*dx+py*dy)/lenSq, 0, 1)
		}

		var candidate Projection
		switch t {
		case 0:
			candidate = Projection{Point: a, Index: i}
		case 1:
			candidate = Projection{Point: b, Index: i + 1}
		default:
			candidate = Projection{Point: Interpolate(a, b, t), Index: i}
		}
		candidate.Dist = Distance(pt, candidate.Point)

		if candidate.Dist < best.Dist {
			best = candidate
		}
	}

	return best, true
}

// LineSlice returns the part of line between the projections of start and
// stop. The projection with the lower vertex index comes first, so the result
// follows the line's own direction; when both fall on the same segment start
// comes first. All vertices strictly between the two projections are kept.
// Consecutive duplicate points are collapsed, and a degenerate slice is
// padded to two points so it remains a valid LineString.
func LineSlice(start, stop Point, line []Point) ([]Point, bool) {
	startProj, ok := NearestPointOnLine(line, start)
	if !ok {
		return nil, false
	}
	stopProj, _ := NearestPointOnLine(line, stop)

	first, last := startProj, stopProj
	if startProj.Index > stopProj.Index {
		first, last = stopProj, startProj
	}

	clipped := make([]Point, 0, last.Index-first.Index+2)
	clipped = append(clipped, first.Point)
	for j := first.Index + 1; j <= last.Index && j < len(line); j++ {
		clipped = appendDistinct(clipped, line[j])
	}
	clipped = appendDistinct(clipped, last.Point)

	if len(clipped) == 1 {
		clipped = append(clipped, clipped[0])
	}
	return clipped, true
}

func appendDistinct(line []Point, p Point) []Point {
	if n := len(line); n > 0 && line[n-1] == p {
		return line
	}
	return append(line, p)
}
