package db

import (
	"context"
	"fmt"
	"time"
)

// Segment is a segment row for database insertion
type Segment struct {
	Key           string
	OriginID      string
	DestinationID string
	ShapeID       *string
	Departures    int
	HasGeometry   bool
}

// Frequency is one weekday/hour cell of a segment's table
type Frequency struct {
	SegmentKey string
	Weekday    string
	Hour       int
	Departures int
}

// Stop is an active stop row for database insertion
type Stop struct {
	ID   string
	Name string
	Lat  *float64
	Lon  *float64
}

// timeLayout is fixed width so created_at_utc sorts as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Run is a stored run header
type Run struct {
	ID            string
	ReferenceDate int
	RouteType     int
	CreatedAt     time.Time
}

// CreateRun records a new run
func (db *DB) CreateRun(ctx context.Context, run Run) error {
	db.lockWrite()
	defer db.unlockWrite()

	_, err := db.conn.ExecContext(ctx,
		"INSERT INTO runs (run_id, reference_date, route_type, created_at_utc) VALUES (?, ?, ?, ?)",
		run.ID, run.ReferenceDate, run.RouteType, run.CreatedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("failed to create run: %w", err)
	}
	return nil
}

// WriteSegments inserts the segment rows of a run
func (db *DB) WriteSegments(ctx context.Context, runID string, segments []Segment) error {
	db.lockWrite()
	defer db.unlockWrite()

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO segments (
			run_id, segment_key, origin_stop_id, destination_stop_id,
			shape_id, departures, has_geometry
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare segment statement: %w", err)
	}
	defer stmt.Close()

	for _, s := range segments {
		_, err := stmt.ExecContext(ctx,
			runID, s.Key, s.OriginID, s.DestinationID,
			s.ShapeID, s.Departures, s.HasGeometry,
		)
		if err != nil {
			return fmt.Errorf("failed to insert segment %s: %w", s.Key, err)
		}
	}

	return tx.Commit()
}

// WriteFrequencies inserts table cells. Callers pass every cell, zeros
// included, so each segment has all 168 rows.
func (db *DB) WriteFrequencies(ctx context.Context, runID string, cells []Frequency) error {
	db.lockWrite()
	defer db.unlockWrite()

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO segment_frequencies (run_id, segment_key, weekday, hour, departures)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare frequency statement: %w", err)
	}
	defer stmt.Close()

	for _, c := range cells {
		if _, err := stmt.ExecContext(ctx, runID, c.SegmentKey, c.Weekday, c.Hour, c.Departures); err != nil {
			return fmt.Errorf("failed to insert frequency %s/%s/%d: %w", c.SegmentKey, c.Weekday, c.Hour, err)
		}
	}

	return tx.Commit()
}

// WriteStops inserts the active stops of a run
func (db *DB) WriteStops(ctx context.Context, runID string, stops []Stop) error {
	db.lockWrite()
	defer db.unlockWrite()

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, "INSERT INTO stops (run_id, stop_id, name, lat, lon) VALUES (?, ?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("failed to prepare stop statement: %w", err)
	}
	defer stmt.Close()

	for _, s := range stops {
		if _, err := stmt.ExecContext(ctx, runID, s.ID, s.Name, s.Lat, s.Lon); err != nil {
			return fmt.Errorf("failed to insert stop %s: %w", s.ID, err)
		}
	}

	return tx.Commit()
}
