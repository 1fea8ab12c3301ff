package db

import (
	"context"
	"fmt"
	"time"
)

// ListRuns returns stored runs, newest first
func (db *DB) ListRuns(ctx context.Context) ([]Run, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT run_id, reference_date, route_type, created_at_utc
		FROM runs
		ORDER BY created_at_utc DESC, rowid DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var createdAt string
		if err := rows.Scan(&r.ID, &r.ReferenceDate, &r.RouteType, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		r.CreatedAt, _ = time.Parse(timeLayout, createdAt)
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// SegmentFrequencies returns the departures of one segment keyed by weekday
// and hour
func (db *DB) SegmentFrequencies(ctx context.Context, runID, segmentKey string) (map[string]map[int]int, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT weekday, hour, departures
		FROM segment_frequencies
		WHERE run_id = ? AND segment_key = ?
	`, runID, segmentKey)
	if err != nil {
		return nil, fmt.Errorf("failed to query frequencies: %w", err)
	}
	defer rows.Close()

	out := make(map[string]map[int]int)
	for rows.Next() {
		var weekday string
		var hour, departures int
		if err := rows.Scan(&weekday, &hour, &departures); err != nil {
			return nil, fmt.Errorf("failed to scan frequency: %w", err)
		}
		if out[weekday] == nil {
			out[weekday] = make(map[int]int)
		}
		out[weekday][hour] = departures
	}
	return out, rows.Err()
}

// CountRows returns the number of rows a run owns in table
func (db *DB) CountRows(ctx context.Context, table, runID string) (int, error) {
	switch table {
	case "segments", "segment_frequencies", "stops":
	default:
		return 0, fmt.Errorf("unknown table %q", table)
	}
	var n int
	err := db.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table+" WHERE run_id = ?", runID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", table, err)
	}
	return n, nil
}
