package db

import (
	"context"
	"fmt"
	"log"
)

// PruneRuns deletes every run except the newest keep runs. Child rows go with
// them through ON DELETE CASCADE. keep <= 0 disables pruning.
func (db *DB) PruneRuns(ctx context.Context, keep int) (int, error) {
	if keep <= 0 {
		return 0, nil
	}

	db.lockWrite()
	defer db.unlockWrite()

	result, err := db.conn.ExecContext(ctx, `
		DELETE FROM runs WHERE run_id NOT IN (
			SELECT run_id FROM runs ORDER BY created_at_utc DESC, rowid DESC LIMIT ?
		)`, keep)
	if err != nil {
		return 0, fmt.Errorf("failed to prune runs: %w", err)
	}
	rows, _ := result.RowsAffected()

	if rows > 0 {
		log.Printf("Cleanup: deleted %d runs, kept newest %d", rows, keep)
	}
	return int(rows), nil
}
