package db

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"log"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// tuning is applied after the connection opens. A failure is logged and the
// database is still used.
var tuning = []string{
	"PRAGMA synchronous = NORMAL",
	"PRAGMA temp_store = MEMORY",
}

// DB is the side-table store for extraction runs. One process writes one run
// at a time; writeMu keeps a run's batches from interleaving with pruning.
type DB struct {
	conn    *sql.DB
	writeMu sync.Mutex
}

// Connect opens (or creates) the run database at path.
func Connect(path string) (*DB, error) {
	conn, err := sql.Open("sqlite", dataSource(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)
	conn.SetConnMaxLifetime(time.Hour)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	for _, pragma := range tuning {
		if _, err := conn.Exec(pragma); err != nil {
			log.Printf("Warning: failed to set %s: %v", pragma, err)
		}
	}

	log.Printf("Opened run database %s", path)
	return &DB{conn: conn}, nil
}

// dataSource enables WAL and cascading run deletes for every connection.
func dataSource(path string) string {
	return "file:" + path +
		"?_pragma=journal_mode(WAL)" +
		"&_pragma=foreign_keys(1)" +
		"&_pragma=busy_timeout(5000)"
}

func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) lockWrite()   { db.writeMu.Lock() }
func (db *DB) unlockWrite() { db.writeMu.Unlock() }

// EnsureSchema creates the run tables. It is safe to call on every run.
func (db *DB) EnsureSchema(ctx context.Context) error {
	db.lockWrite()
	defer db.unlockWrite()

	if _, err := db.conn.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}
