package geometry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// equator is a straight west-to-east line with a vertex every degree.
var equator = []Point{{0, 0}, {1, 0}, {2, 0}, {3, 0}}

func assertLine(t *testing.T, want, got []Point) {
	t.Helper()
	require.Len(t, got, len(want), "got %v", got)
	for i := range want {
		assert.InDelta(t, want[i].Lon, got[i].Lon, 1e-9, "lon at %d", i)
		assert.InDelta(t, want[i].Lat, got[i].Lat, 1e-9, "lat at %d", i)
	}
}

func TestHaversine(t *testing.T) {
	assert.InDelta(t, 0, Haversine(41.38, 2.17, 41.38, 2.17), 1e-9)
	// One degree of latitude on a 6371 km sphere.
	assert.InDelta(t, 111194.93, Haversine(0, 0, 1, 0), 0.01)
	assert.InDelta(t, Haversine(0, 0, 1, 0), Distance(Point{0, 0}, Point{0, 1}), 1e-9)
}

func TestLineLength(t *testing.T) {
	assert.InDelta(t, 3*111194.93, LineLength(equator), 1)
	assert.Zero(t, LineLength(equator[:1]))
	assert.Zero(t, LineLength(nil))
}

func TestBearing(t *testing.T) {
	assert.InDelta(t, 90, Bearing(Point{0, 0}, Point{1, 0}), 1e-9)
	assert.InDelta(t, 0, Bearing(Point{0, 0}, Point{0, 1}), 1e-9)
	assert.InDelta(t, 270, Bearing(Point{1, 0}, Point{0, 0}), 1e-9)
	assert.InDelta(t, 180, Bearing(Point{0, 1}, Point{0, 0}), 1e-9)
}

func TestNearestPointOnLine(t *testing.T) {
	tests := []struct {
		name      string
		pt        Point
		wantPoint Point
		wantIndex int
	}{
		{"mid segment", Point{1.5, 0.1}, Point{1.5, 0}, 1},
		{"on a vertex", Point{2, 0.5}, Point{2, 0}, 2},
		{"before the start", Point{-1, 0.2}, Point{0, 0}, 0},
		{"past the end", Point{4, 0}, Point{3, 0}, 3},
		{"below the line", Point{0.25, -0.3}, Point{0.25, 0}, 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			proj, ok := NearestPointOnLine(equator, tc.pt)
			require.True(t, ok)
			assert.InDelta(t, tc.wantPoint.Lon, proj.Point.Lon, 1e-9)
			assert.InDelta(t, tc.wantPoint.Lat, proj.Point.Lat, 1e-9)
			assert.Equal(t, tc.wantIndex, proj.Index)
			assert.InDelta(t, Distance(tc.pt, proj.Point), proj.Dist, 1e-6)
		})
	}
}

func TestNearestPointOnLine_Degenerate(t *testing.T) {
	_, ok := NearestPointOnLine(nil, Point{0, 0})
	assert.False(t, ok)

	proj, ok := NearestPointOnLine([]Point{{5, 5}}, Point{0, 0})
	require.True(t, ok)
	assert.Equal(t, Point{5, 5}, proj.Point)
	assert.Equal(t, 0, proj.Index)
}

func TestNearestPointOnLine_TiePrefersEarliestSegment(t *testing.T) {
	// An out-and-back line: both legs are equally close to the query point.
	line := []Point{{0, 0}, {2, 0}, {0, 0}}
	proj, ok := NearestPointOnLine(line, Point{1, 0.1})
	require.True(t, ok)
	assert.Equal(t, 0, proj.Index)
}

func TestLineSlice(t *testing.T) {
	tests := []struct {
		name        string
		start, stop Point
		want        []Point
	}{
		{
			name:  "spans intermediate vertices",
			start: Point{0.5, 0.1},
			stop:  Point{2.5, -0.1},
			want:  []Point{{0.5, 0}, {1, 0}, {2, 0}, {2.5, 0}},
		},
		{
			name:  "reversed endpoints follow line order",
			start: Point{2.5, -0.1},
			stop:  Point{0.5, 0.1},
			want:  []Point{{0.5, 0}, {1, 0}, {2, 0}, {2.5, 0}},
		},
		{
			name:  "within one segment",
			start: Point{1.2, 0},
			stop:  Point{1.8, 0},
			want:  []Point{{1.2, 0}, {1.8, 0}},
		},
		{
			name:  "within one segment reversed keeps start first",
			start: Point{1.8, 0},
			stop:  Point{1.2, 0},
			want:  []Point{{1.8, 0}, {1.2, 0}},
		},
		{
			name:  "both endpoints on vertices",
			start: Point{1, 0.2},
			stop:  Point{2, 0.2},
			want:  []Point{{1, 0}, {2, 0}},
		},
		{
			name:  "whole line",
			start: Point{-1, 0},
			stop:  Point{9, 0},
			want:  equator,
		},
		{
			name:  "same projection is padded",
			start: Point{1.5, 1},
			stop:  Point{1.5, -1},
			want:  []Point{{1.5, 0}, {1.5, 0}},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := LineSlice(tc.start, tc.stop, equator)
			require.True(t, ok)
			assertLine(t, tc.want, got)
		})
	}
}

func TestLineSlice_EmptyLine(t *testing.T) {
	_, ok := LineSlice(Point{0, 0}, Point{1, 1}, nil)
	assert.False(t, ok)
}
