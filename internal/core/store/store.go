// Package store provides the libsql-backed archive for pruned idempotency
// records and historical metrics snapshots.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/botguard/botguard/internal/config"
)

const driverLibsql = "libsql"

// Store wraps the archive database connection.
type Store struct {
	DB     *sql.DB
	driver string
}

// Open initializes the archive connection using the provided
// configuration.
func Open(ctx context.Context, cfg config.ArchiveConfig) (*Store, error) {
	driver := strings.TrimSpace(cfg.Driver)
	if driver == "" {
		driver = driverLibsql
	}

	if ctx == nil {
		ctx = context.Background()
	}

	switch driver {
	case driverLibsql:
		path := strings.TrimSpace(cfg.Path)
		if path == "" {
			return nil, errors.New("archive path is required")
		}

		if path != ":memory:" && !strings.HasPrefix(path, "file:") {
			if err := ensureArchiveDir(path); err != nil {
				return nil, err
			}
			path = "file:" + filepath.Clean(path)
		}

		db, err := sql.Open(driverLibsql, path)
		if err != nil {
			return nil, fmt.Errorf("open archive store: %w", err)
		}
		if err := db.PingContext(ctx); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("ping archive store: %w", err)
		}

		return &Store{DB: db, driver: driver}, nil
	default:
		return nil, fmt.Errorf("unsupported archive driver: %s", driver)
	}
}

// Close releases database resources.
func (s *Store) Close() error {
	if s == nil || s.DB == nil {
		return nil
	}
	return s.DB.Close()
}

func ensureArchiveDir(path string) error {
	dir := filepath.Dir(filepath.Clean(path))
	if dir == "." || dir == string(filepath.Separator) {
		return nil
	}

	// #nosec G301 -- data directories use 0755 for multi-user access compatibility
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create archive directory: %w", err)
	}
	return nil
}
