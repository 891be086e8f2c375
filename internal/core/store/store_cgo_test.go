//go:build cgo

package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/botguard/botguard/internal/config"
	"github.com/botguard/botguard/internal/core"
	"github.com/botguard/botguard/internal/core/idempotency"
	"github.com/botguard/botguard/internal/core/metrics"
)

func openMemoryStore(t *testing.T) *Store {
	t.Helper()
	ctx := context.Background()

	store, err := Open(ctx, config.ArchiveConfig{
		Driver: "libsql",
		Path:   ":memory:",
	})
	require.NoError(t, err)
	require.NoError(t, store.Migrate(ctx))
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestArchiveRecordsRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := openMemoryStore(t)

	records := map[string]idempotency.Record{
		"t1_old": {
			Status:         core.StatusSuccess,
			LastSuccessUTC: "2026-01-01T10:00:00Z",
			Meta:           map[string]any{"account": "alice"},
		},
		"t1_new": {
			Status:         core.StatusFailed,
			LastFailureUTC: "2026-02-01T10:00:00Z",
			Error:          "503 from upstream",
		},
	}

	require.NoError(t, store.ArchiveRecords(ctx, records))

	listed, err := store.ListArchivedRecords(ctx, 0)
	require.NoError(t, err)
	require.Len(t, listed, 2)

	require.Equal(t, "t1_new", listed[0].Key, "most recently touched first")
	require.Equal(t, string(core.StatusFailed), listed[0].Status)
	require.Equal(t, "503 from upstream", listed[0].Error)

	require.Equal(t, "t1_old", listed[1].Key)
	require.Equal(t, "alice", listed[1].Meta["account"])
	require.Equal(t, time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC), listed[1].TouchedAt)
}

func TestArchiveRecordsUpsert(t *testing.T) {
	ctx := context.Background()
	store := openMemoryStore(t)

	require.NoError(t, store.ArchiveRecords(ctx, map[string]idempotency.Record{
		"t1_key": {Status: core.StatusFailed, LastFailureUTC: "2026-01-01T10:00:00Z", Error: "boom"},
	}))
	require.NoError(t, store.ArchiveRecords(ctx, map[string]idempotency.Record{
		"t1_key": {Status: core.StatusSuccess, LastSuccessUTC: "2026-01-02T10:00:00Z"},
	}))

	listed, err := store.ListArchivedRecords(ctx, 0)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	require.Equal(t, string(core.StatusSuccess), listed[0].Status)
	require.Empty(t, listed[0].Error)
}

func TestListArchivedRecordsLimit(t *testing.T) {
	ctx := context.Background()
	store := openMemoryStore(t)

	require.NoError(t, store.ArchiveRecords(ctx, map[string]idempotency.Record{
		"t1_a": {Status: core.StatusSuccess, LastSuccessUTC: "2026-01-01T10:00:00Z"},
		"t1_b": {Status: core.StatusSuccess, LastSuccessUTC: "2026-01-02T10:00:00Z"},
		"t1_c": {Status: core.StatusSuccess, LastSuccessUTC: "2026-01-03T10:00:00Z"},
	}))

	listed, err := store.ListArchivedRecords(ctx, 2)
	require.NoError(t, err)
	require.Len(t, listed, 2)
	require.Equal(t, "t1_c", listed[0].Key)
	require.Equal(t, "t1_b", listed[1].Key)
}

func TestArchiveSnapshot(t *testing.T) {
	ctx := context.Background()
	store := openMemoryStore(t)

	require.NoError(t, store.ArchiveSnapshot(ctx, metrics.Snapshot{
		TimestampUTC:  "2026-01-01T10:00:00Z",
		WindowSeconds: 60,
		Totals:        map[string]int64{"comment": 4},
	}))

	var count int
	require.NoError(t, store.DB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM metrics_snapshots").Scan(&count))
	require.Equal(t, 1, count)
}
