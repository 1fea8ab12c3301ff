// Package static runs the extraction pipeline: make sure a feed archive is
// on disk, turn it into segment frequencies and write the artifacts.
package static

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/railfreq/extractor/internal/config"
	"github.com/railfreq/extractor/internal/db"
	"github.com/railfreq/extractor/internal/metrics"
	"github.com/railfreq/extractor/internal/static/geojson"
	"github.com/railfreq/extractor/internal/static/gtfs"
	"github.com/railfreq/extractor/internal/static/network"
	"github.com/railfreq/extractor/internal/static/segments"
)

// ErrNoFeed is returned when the archive is missing and no URL is set.
var ErrNoFeed = errors.New("feed archive missing and no feed URL configured")

// Summary reports what a run produced.
type Summary struct {
	RunID    string
	Today    int
	Network  network.Stats
	Segments segments.Stats
	Manifest *geojson.Manifest
}

// EnsureFeed downloads the feed when the archive is missing, older than the
// configured age or force is set. It reports whether a download happened.
func EnsureFeed(ctx context.Context, cfg *config.Config, force bool) (bool, error) {
	stale := isStaleOrMissing(cfg.FeedPath, cfg.FeedMaxAge(), time.Now())
	if !force && !stale {
		log.Printf("Feed %s is fresh, skipping download", cfg.FeedPath)
		return false, nil
	}
	if cfg.FeedURL == "" {
		if _, err := os.Stat(cfg.FeedPath); err == nil {
			log.Printf("Feed %s is stale but no feed URL is configured, using it as is", cfg.FeedPath)
			return false, nil
		}
		return false, ErrNoFeed
	}

	start := time.Now()
	log.Printf("Downloading feed from %s...", cfg.FeedURL)
	if err := gtfs.Download(ctx, cfg.FeedURL, cfg.FeedPath); err != nil {
		return false, fmt.Errorf("download feed: %w", err)
	}
	log.Printf("Done with download in %.2fs", time.Since(start).Seconds())
	return true, nil
}

// isStaleOrMissing reports whether path needs a download. A maxAge of 0
// means an existing file is never stale.
func isStaleOrMissing(path string, maxAge time.Duration, now time.Time) bool {
	info, err := os.Stat(path)
	if err != nil {
		return true
	}
	if maxAge <= 0 {
		return false
	}
	return now.Sub(info.ModTime()) > maxAge
}

// Run parses the feed and writes every artifact. The side table and the
// metrics textfile are written only when configured.
func Run(ctx context.Context, cfg *config.Config) (*Summary, error) {
	now := time.Now()
	today, err := cfg.Today(now)
	if err != nil {
		return nil, err
	}
	runMetrics := metrics.NewRun()
	summary := &Summary{RunID: uuid.New().String(), Today: today}
	log.Printf("Run %s: reference date %d, route type %d", summary.RunID, today, cfg.RouteType)

	start := time.Now()
	data, err := gtfs.Parse(cfg.FeedPath)
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}
	runMetrics.ObserveStage("parse", start)

	start = time.Now()
	net, netStats := network.Build(data, network.Options{
		RouteType:          cfg.RouteType,
		Today:              today,
		ApplyCalendarDates: cfg.ApplyCalendarDates,
	})
	summary.Network = netStats
	runMetrics.ObserveStage("network", start)

	start = time.Now()
	result, err := segments.Build(ctx, net, cfg.SliceWorkers)
	if err != nil {
		return nil, err
	}
	summary.Segments = result.Stats
	runMetrics.ObserveStage("segments", start)

	start = time.Now()
	manifest, err := geojson.Generate(result, net, cfg.OutputDir, geojson.Meta{
		RunID:         summary.RunID,
		ReferenceDate: today,
		RouteType:     cfg.RouteType,
		GeneratedAt:   now,
	})
	if err != nil {
		return nil, fmt.Errorf("generate output: %w", err)
	}
	summary.Manifest = manifest
	runMetrics.ObserveStage("output", start)

	if cfg.DatabasePath != "" {
		start = time.Now()
		if err := writeSideTable(ctx, cfg, summary, result, net, now); err != nil {
			return nil, fmt.Errorf("write side table: %w", err)
		}
		runMetrics.ObserveStage("database", start)
	}

	if cfg.MetricsTextfile != "" {
		recordRun(runMetrics, summary, net)
		runMetrics.MarkSuccess(time.Now())
		if err := runMetrics.WriteTextfile(cfg.MetricsTextfile); err != nil {
			log.Printf("Warning: failed to write metrics to %s: %v", cfg.MetricsTextfile, err)
		}
	}

	log.Printf("Run %s complete in %.2fs", summary.RunID, time.Since(now).Seconds())
	return summary, nil
}

func recordRun(m *metrics.Run, s *Summary, net *network.Network) {
	m.RoutesRetained.Set(float64(s.Network.Routes))
	m.TripsRetained.Set(float64(s.Network.Trips))
	m.StopTimesRetained.Set(float64(s.Network.StopTimes))
	m.StopTimesSkipped.Set(float64(s.Network.SkippedStopTimes))
	m.Segments.Set(float64(s.Segments.Segments))
	m.SegmentsSliced.Set(float64(s.Segments.WithGeometry))
	m.ActiveStops.Set(float64(net.ActiveStopCount()))
	m.EventsSkipped.Add(float64(s.Segments.SkippedEvents + s.Segments.SkippedHours))
}

func writeSideTable(ctx context.Context, cfg *config.Config, s *Summary, result *segments.Result, net *network.Network, now time.Time) error {
	database, err := db.Connect(cfg.DatabasePath)
	if err != nil {
		return err
	}
	defer database.Close()

	if err := database.EnsureSchema(ctx); err != nil {
		return err
	}
	if err := database.CreateRun(ctx, db.Run{
		ID:            s.RunID,
		ReferenceDate: s.Today,
		RouteType:     cfg.RouteType,
		CreatedAt:     now,
	}); err != nil {
		return err
	}

	rows, cells := segmentRows(result)
	if err := database.WriteSegments(ctx, s.RunID, rows); err != nil {
		return err
	}
	if err := database.WriteFrequencies(ctx, s.RunID, cells); err != nil {
		return err
	}
	if err := database.WriteStops(ctx, s.RunID, stopRows(net)); err != nil {
		return err
	}

	if _, err := database.PruneRuns(ctx, cfg.RetainRuns); err != nil {
		return err
	}
	log.Printf("Stored run %s: %d segments, %d frequency rows", s.RunID, len(rows), len(cells))
	return nil
}

// segmentRows flattens every table into dense weekday/hour rows.
func segmentRows(result *segments.Result) ([]db.Segment, []db.Frequency) {
	rows := make([]db.Segment, 0, len(result.Keys))
	cells := make([]db.Frequency, 0, len(result.Keys)*network.DaysPerWeek*segments.HoursPerDay)

	for _, seg := range result.Ordered() {
		row := db.Segment{
			Key:           string(seg.Key),
			OriginID:      seg.Origin,
			DestinationID: seg.Destination,
			Departures:    seg.Table.Total(),
			HasGeometry:   seg.HasGeometry(),
		}
		if seg.ShapeID != "" {
			shapeID := seg.ShapeID
			row.ShapeID = &shapeID
		}
		rows = append(rows, row)

		for _, day := range network.Weekdays() {
			for h := 0; h < segments.HoursPerDay; h++ {
				cells = append(cells, db.Frequency{
					SegmentKey: string(seg.Key),
					Weekday:    day.String(),
					Hour:       h,
					Departures: seg.Table[day][h],
				})
			}
		}
	}
	return rows, cells
}

func stopRows(net *network.Network) []db.Stop {
	var rows []db.Stop
	for _, s := range net.Stops {
		if !s.Active {
			continue
		}
		row := db.Stop{ID: s.ID, Name: s.Name}
		if s.HasCoords {
			lat, lon := s.Lat, s.Lon
			row.Lat, row.Lon = &lat, &lon
		}
		rows = append(rows, row)
	}
	return rows
}
