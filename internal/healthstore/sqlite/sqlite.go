// Package sqlite implements the healthstore contract on a single-file SQLite
// database, for deployments without a PostgreSQL server.
package sqlite

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// DB is a SQLite-backed health record store. Timestamps are stored as
// millisecond epoch integers so comparisons never depend on string formats.
type DB struct {
	db *sql.DB

	// GrantOnAsk controls whether RequestAuthorization succeeds.
	GrantOnAsk bool
}

// Open opens (or creates) the database at path and ensures the schema.
func Open(path string) (*DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating db dir %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening db: %w", err)
	}
	// Single writer; the driver serializes, but avoid pool-induced lock churn.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return &DB{db: db, GrantOnAsk: true}, nil
}

// Close closes the database.
func (d *DB) Close() error {
	return d.db.Close()
}

const schema = `
CREATE TABLE IF NOT EXISTS samples (
    type_id        TEXT NOT NULL,
    start_ms       INTEGER NOT NULL,
    end_ms         INTEGER NOT NULL,
    value          REAL NOT NULL,
    units          TEXT NOT NULL,
    source         TEXT NOT NULL DEFAULT '',
    metadata       TEXT,
    correlation_id TEXT,
    UNIQUE (type_id, start_ms, end_ms, value, source)
);
CREATE INDEX IF NOT EXISTS idx_samples_type_time ON samples (type_id, start_ms DESC);

CREATE TABLE IF NOT EXISTS correlations (
    id       TEXT PRIMARY KEY,
    type_id  TEXT NOT NULL,
    start_ms INTEGER NOT NULL,
    end_ms   INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS workouts (
    id               TEXT PRIMARY KEY,
    activity_code    INTEGER NOT NULL,
    start_ms         INTEGER NOT NULL,
    end_ms           INTEGER NOT NULL,
    duration_sec     REAL NOT NULL,
    calories         REAL NOT NULL DEFAULT 0,
    distance         REAL NOT NULL DEFAULT 0,
    source_name      TEXT NOT NULL DEFAULT '',
    source_bundle_id TEXT NOT NULL DEFAULT '',
    metadata         TEXT
);
CREATE INDEX IF NOT EXISTS idx_workouts_start ON workouts (start_ms);

CREATE TABLE IF NOT EXISTS route_segments (
    id         TEXT PRIMARY KEY,
    workout_id TEXT NOT NULL,
    start_ms   INTEGER NOT NULL,
    end_ms     INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_route_segments_workout ON route_segments (workout_id);

CREATE TABLE IF NOT EXISTS route_points (
    segment_id TEXT NOT NULL,
    time_ms    INTEGER NOT NULL,
    latitude   REAL NOT NULL,
    longitude  REAL NOT NULL,
    altitude   REAL NOT NULL DEFAULT 0,
    UNIQUE (segment_id, time_ms)
);

CREATE TABLE IF NOT EXISTS authorizations (
    type_id TEXT PRIMARY KEY,
    state   TEXT NOT NULL
);
`
