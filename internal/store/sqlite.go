package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.
)

// RunStore records per-run stage summaries and glitch counts in SQLite so
// runs can be compared after the fact. All pipeline stages work without one;
// a nil *RunStore is a no-op sink.
type RunStore struct {
	db *sql.DB
}

// StageSummary is one completed stage of one run.
type StageSummary struct {
	RunID      string
	Stage      string
	Shards     int
	RowsIn     int64
	RowsOut    int64
	StartedAt  time.Time
	DurationMs int64
}

// NewRunStore opens (or creates) the run database at dbPath and applies the
// schema.
func NewRunStore(dbPath string) (*RunStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}

	const schema = `
CREATE TABLE IF NOT EXISTS stage_runs (
	run_id      TEXT NOT NULL,
	stage       TEXT NOT NULL,
	shards      INTEGER NOT NULL,
	rows_in     INTEGER NOT NULL,
	rows_out    INTEGER NOT NULL,
	started_at  TEXT NOT NULL,
	duration_ms INTEGER NOT NULL,
	PRIMARY KEY (run_id, stage)
);
CREATE TABLE IF NOT EXISTS glitch_counts (
	run_id   TEXT NOT NULL,
	stage    TEXT NOT NULL,
	category TEXT NOT NULL,
	hour     INTEGER NOT NULL,
	count    INTEGER NOT NULL,
	PRIMARY KEY (run_id, stage, category, hour)
);`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("applying run store schema: %w", err)
	}

	return &RunStore{db: db}, nil
}

// RecordStage inserts (or replaces) a stage summary.
func (s *RunStore) RecordStage(ctx context.Context, sum StageSummary) error {
	if s == nil {
		return nil
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO stage_runs
		 (run_id, stage, shards, rows_in, rows_out, started_at, duration_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		sum.RunID, sum.Stage, sum.Shards, sum.RowsIn, sum.RowsOut,
		sum.StartedAt.UTC().Format(time.RFC3339), sum.DurationMs,
	)
	if err != nil {
		return fmt.Errorf("recording stage %s: %w", sum.Stage, err)
	}
	return nil
}

// RecordGlitch inserts (or replaces) one glitch counter bucket.
func (s *RunStore) RecordGlitch(ctx context.Context, runID, stage, category string, hour int, count uint64) error {
	if s == nil {
		return nil
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO glitch_counts (run_id, stage, category, hour, count)
		 VALUES (?, ?, ?, ?, ?)`,
		runID, stage, category, hour, int64(count),
	)
	if err != nil {
		return fmt.Errorf("recording glitch %s/%s: %w", stage, category, err)
	}
	return nil
}

// ListStages returns all stage summaries for a run, ordered by start time.
func (s *RunStore) ListStages(ctx context.Context, runID string) ([]StageSummary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, stage, shards, rows_in, rows_out, started_at, duration_ms
		 FROM stage_runs WHERE run_id = ? ORDER BY started_at`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []StageSummary
	for rows.Next() {
		var sum StageSummary
		var started string
		if err := rows.Scan(&sum.RunID, &sum.Stage, &sum.Shards, &sum.RowsIn,
			&sum.RowsOut, &started, &sum.DurationMs); err != nil {
			return nil, err
		}
		sum.StartedAt, _ = time.Parse(time.RFC3339, started)
		out = append(out, sum)
	}
	return out, rows.Err()
}

// Close closes the underlying database connection.
func (s *RunStore) Close() error {
	if s == nil {
		return nil
	}
	return s.db.Close()
}
