package segments

import (
	"context"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/railfreq/extractor/internal/static/geometry"
	"github.com/railfreq/extractor/internal/static/network"
)

// Candidate is the trip data a segment's geometry will be cut from.
type Candidate struct {
	ShapeID     string
	Origin      string
	Destination string
}

// GeometryCache holds at most one geometry per segment. The first candidate
// to claim a key owns it; later claims are ignored.
type GeometryCache struct {
	claims     map[Key]Candidate
	geometries map[Key][]geometry.Point
}

// NewGeometryCache returns an empty cache.
func NewGeometryCache() *GeometryCache {
	return &GeometryCache{
		claims:     make(map[Key]Candidate),
		geometries: make(map[Key][]geometry.Point),
	}
}

// Claim records c for key unless the key is already claimed. It reports
// whether c was recorded.
func (c *GeometryCache) Claim(key Key, cand Candidate) bool {
	if _, ok := c.claims[key]; ok {
		return false
	}
	c.claims[key] = cand
	return true
}

// Claimed returns the candidate that owns key.
func (c *GeometryCache) Claimed(key Key) (Candidate, bool) {
	cand, ok := c.claims[key]
	return cand, ok
}

// Geometry returns the sliced line for key after Slice has run.
func (c *GeometryCache) Geometry(key Key) ([]geometry.Point, bool) {
	line, ok := c.geometries[key]
	return line, ok
}

// Len returns the number of claimed keys.
func (c *GeometryCache) Len() int {
	return len(c.claims)
}

// Sliceable reports whether a candidate can produce a line: the shape needs
// at least two points and both stops need coordinates.
func Sliceable(net *network.Network, cand Candidate) bool {
	if len(net.Shapes[cand.ShapeID]) < 2 {
		return false
	}
	origin, ok := net.Stops[cand.Origin]
	if !ok || !origin.HasCoords {
		return false
	}
	dest, ok := net.Stops[cand.Destination]
	return ok && dest.HasCoords
}

// Slice cuts every claimed geometry out of its shape. Slices are independent
// so they run on up to workers goroutines; workers <= 0 means one per CPU.
// Results land in the cache only after all slices finish.
func (c *GeometryCache) Slice(ctx context.Context, net *network.Network, workers int) error {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	keys := make([]Key, 0, len(c.claims))
	for k := range c.claims {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	results := make([][]geometry.Point, len(keys))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, key := range keys {
		i := i
		cand := c.claims[key]
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			line, ok := geometry.LineSlice(
				net.Stops[cand.Origin].Point(),
				net.Stops[cand.Destination].Point(),
				net.Shapes[cand.ShapeID],
			)
			if ok {
				results[i] = line
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for i, key := range keys {
		if results[i] != nil {
			c.geometries[key] = results[i]
		}
	}
	return nil
}
