package segments

import (
	"context"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/railfreq/extractor/internal/static/geometry"
	"github.com/railfreq/extractor/internal/static/network"
)

// Segment is one directed stop pair with its frequency table and, when it
// could be sliced, its line geometry.
type Segment struct {
	Key         Key
	Origin      string
	Destination string
	// ShapeID is the shape the geometry was cut from. Empty when the
	// segment has no geometry.
	ShapeID  string
	Table    *Table
	Geometry []geometry.Point
}

// HasGeometry reports whether the segment can be drawn.
func (s *Segment) HasGeometry() bool {
	return len(s.Geometry) >= 2
}

// Stats counts what happened during a build.
type Stats struct {
	Events          int
	SkippedEvents   int
	SkippedHours    int
	Segments        int
	WithGeometry    int
	Unsliceable     int
	ExtractDuration time.Duration
	SliceDuration   time.Duration
}

// Result holds every segment found in a network.
type Result struct {
	Segments map[Key]*Segment
	// Keys lists every segment key in ascending order.
	Keys  []Key
	Stats Stats
}

// Ordered returns segments in key order.
func (r *Result) Ordered() []*Segment {
	out := make([]*Segment, 0, len(r.Keys))
	for _, k := range r.Keys {
		out = append(out, r.Segments[k])
	}
	return out
}

// Build extracts events, aggregates them into tables and slices one
// geometry per segment from the first trip that can supply it.
func Build(ctx context.Context, net *network.Network, workers int) (*Result, error) {
	var stats Stats

	start := time.Now()
	events, skipped := Extract(net)
	stats.Events = len(events)
	stats.SkippedEvents = skipped

	agg := NewAggregator()
	cache := NewGeometryCache()
	origins := make(map[Key]Event)
	for _, ev := range events {
		if _, ok := origins[ev.Key]; !ok {
			origins[ev.Key] = ev
		}
		if !agg.Add(ev) {
			stats.SkippedHours++
		}
		cand := Candidate{ShapeID: ev.ShapeID, Origin: ev.Origin, Destination: ev.Destination}
		if _, claimed := cache.Claimed(ev.Key); !claimed && Sliceable(net, cand) {
			cache.Claim(ev.Key, cand)
		}
	}
	stats.ExtractDuration = time.Since(start)
	log.Printf("Extracted %d events into %d segments in %.2fs (%d skipped, %d out-of-range hours)",
		stats.Events, agg.Len(), stats.ExtractDuration.Seconds(), stats.SkippedEvents, stats.SkippedHours)

	start = time.Now()
	if err := cache.Slice(ctx, net, workers); err != nil {
		return nil, fmt.Errorf("slice geometries: %w", err)
	}
	stats.SliceDuration = time.Since(start)

	result := &Result{Segments: make(map[Key]*Segment, agg.Len())}
	for key, table := range agg.Tables() {
		ev := origins[key]
		seg := &Segment{
			Key:         key,
			Origin:      ev.Origin,
			Destination: ev.Destination,
			Table:       table,
		}
		if line, ok := cache.Geometry(key); ok {
			cand, _ := cache.Claimed(key)
			seg.ShapeID = cand.ShapeID
			seg.Geometry = line
			stats.WithGeometry++
		} else {
			stats.Unsliceable++
		}
		result.Segments[key] = seg
		result.Keys = append(result.Keys, key)
	}
	sort.Slice(result.Keys, func(i, j int) bool { return result.Keys[i] < result.Keys[j] })
	stats.Segments = len(result.Segments)
	result.Stats = stats

	log.Printf("Sliced %d segment geometries in %.2fs (%d without geometry)",
		stats.WithGeometry, stats.SliceDuration.Seconds(), stats.Unsliceable)

	return result, nil
}
