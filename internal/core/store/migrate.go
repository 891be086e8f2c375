package store

import (
	"context"
	"errors"
	"fmt"
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS archived_records (
		key TEXT PRIMARY KEY,
		status TEXT NOT NULL,
		touched_at INTEGER NOT NULL,
		error TEXT,
		meta TEXT,
		archived_at INTEGER NOT NULL
	);`,
	`CREATE INDEX IF NOT EXISTS idx_archived_records_touched ON archived_records(touched_at);`,
	`CREATE TABLE IF NOT EXISTS metrics_snapshots (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		taken_at INTEGER NOT NULL,
		payload TEXT NOT NULL
	);`,
	`CREATE INDEX IF NOT EXISTS idx_metrics_snapshots_taken ON metrics_snapshots(taken_at);`,
}

// Migrate ensures the archive tables exist.
func (s *Store) Migrate(ctx context.Context) error {
	if s == nil || s.DB == nil {
		return errors.New("archive store is not initialized")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	for _, stmt := range schemaStatements {
		if _, err := s.DB.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("archive migration failed: %w", err)
		}
	}

	return nil
}
