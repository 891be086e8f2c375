package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/botguard/botguard/internal/core/idempotency"
	"github.com/botguard/botguard/internal/core/metrics"
)

// ArchivedRecord is one row of the archived_records table.
type ArchivedRecord struct {
	Key        string         `json:"key"`
	Status     string         `json:"status"`
	TouchedAt  time.Time      `json:"touched_at"`
	Error      string         `json:"error,omitempty"`
	Meta       map[string]any `json:"meta,omitempty"`
	ArchivedAt time.Time      `json:"archived_at"`
}

// ArchiveRecords upserts idempotency records that a retention pass is
// about to drop. Re-archiving the same key overwrites the previous row.
func (s *Store) ArchiveRecords(ctx context.Context, records map[string]idempotency.Record) error {
	if s == nil || s.DB == nil {
		return errors.New("archive store is not initialized")
	}
	if len(records) == 0 {
		return nil
	}

	if ctx == nil {
		ctx = context.Background()
	}

	now := time.Now().UTC().Unix()

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin archive transaction: %w", err)
	}

	for key, record := range records {
		meta, err := json.Marshal(record.Meta)
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("encode archived meta: %w", err)
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO archived_records (key, status, touched_at, error, meta, archived_at)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(key) DO UPDATE SET
				status = excluded.status,
				touched_at = excluded.touched_at,
				error = excluded.error,
				meta = excluded.meta,
				archived_at = excluded.archived_at
		`, key, string(record.Status), record.TouchedAt().UTC().Unix(), record.Error, string(meta), now)
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("archive record: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit archive transaction: %w", err)
	}

	return nil
}

// ArchiveSnapshot stores one metrics snapshot row.
func (s *Store) ArchiveSnapshot(ctx context.Context, snapshot metrics.Snapshot) error {
	if s == nil || s.DB == nil {
		return errors.New("archive store is not initialized")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	payload, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("encode snapshot payload: %w", err)
	}

	_, err = s.DB.ExecContext(ctx, `
		INSERT INTO metrics_snapshots (taken_at, payload)
		VALUES (?, ?)
	`, time.Now().UTC().Unix(), string(payload))
	if err != nil {
		return fmt.Errorf("store metrics snapshot: %w", err)
	}

	return nil
}

// ListArchivedRecords returns archived rows, most recently touched first,
// capped at limit when limit is positive.
func (s *Store) ListArchivedRecords(ctx context.Context, limit int) ([]ArchivedRecord, error) {
	if s == nil || s.DB == nil {
		return nil, errors.New("archive store is not initialized")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	query := `
		SELECT key, status, touched_at, error, meta, archived_at
		FROM archived_records
		ORDER BY touched_at DESC
	`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list archived records: %w", err)
	}
	defer rows.Close() // nolint:errcheck // best-effort cleanup on SQL rows

	var records []ArchivedRecord
	for rows.Next() {
		var (
			record     ArchivedRecord
			touchedAt  int64
			archivedAt int64
			errText    sql.NullString
			meta       sql.NullString
		)
		if err := rows.Scan(&record.Key, &record.Status, &touchedAt, &errText, &meta, &archivedAt); err != nil {
			return nil, fmt.Errorf("scan archived record: %w", err)
		}
		record.TouchedAt = time.Unix(touchedAt, 0).UTC()
		record.ArchivedAt = time.Unix(archivedAt, 0).UTC()
		if errText.Valid {
			record.Error = errText.String
		}
		if meta.Valid && meta.String != "" {
			_ = json.Unmarshal([]byte(meta.String), &record.Meta)
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate archived records: %w", err)
	}

	return records, nil
}
