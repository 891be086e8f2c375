package output

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/botguard/botguard/internal/core"
	"github.com/botguard/botguard/internal/core/idempotency"
	"github.com/botguard/botguard/internal/core/metrics"
	"github.com/botguard/botguard/internal/core/ratelimit"
	"github.com/botguard/botguard/internal/core/store"
)

func TestParseFormat(t *testing.T) {
	format, err := ParseFormat("")
	require.NoError(t, err)
	require.Equal(t, FormatTable, format)

	format, err = ParseFormat("JSON")
	require.NoError(t, err)
	require.Equal(t, FormatJSON, format)

	format, err = ParseFormat(" table ")
	require.NoError(t, err)
	require.Equal(t, FormatTable, format)

	_, err = ParseFormat("yaml")
	require.Error(t, err)
	require.Contains(t, err.Error(), "unsupported output format")
}

func TestRenderJSON(t *testing.T) {
	rendered, err := RenderJSON(map[string]int{"comment": 3})
	require.NoError(t, err)
	require.Contains(t, rendered, "\"comment\": 3")
}

func TestFormatLimits(t *testing.T) {
	limits := ratelimit.Limits{
		"comment": {PerHour: 3, PerDay: 10, JitterSeconds: 30},
		"post":    {PerDay: 2},
	}

	rendered := FormatLimits(limits)
	require.Contains(t, rendered, "comment")
	require.Contains(t, rendered, "post")
	require.Contains(t, rendered, "3")
	require.Less(t, strings.Index(rendered, "comment"), strings.Index(rendered, "post"),
		"actions are sorted alphabetically")
}

func TestFormatRecords(t *testing.T) {
	records := map[string]idempotency.Record{
		"t1_abc": {
			Status:         core.StatusSuccess,
			LastSuccessUTC: "2026-03-01T10:00:00Z",
		},
		"t1_def": {
			Status:         core.StatusFailed,
			LastFailureUTC: "2026-03-02T10:00:00Z",
			Error:          "503 from reddit",
		},
	}

	rendered := FormatRecords(records)
	require.Contains(t, rendered, "t1_abc")
	require.Contains(t, rendered, "503 from reddit")
	require.Contains(t, rendered, "2 records")
	require.Less(t, strings.Index(rendered, "t1_def"), strings.Index(rendered, "t1_abc"),
		"most recently touched first")
}

func TestFormatRecordsTruncatesLongKeys(t *testing.T) {
	long := strings.Repeat("a", 64)
	records := map[string]idempotency.Record{
		long: {Status: core.StatusInflight, LastAttemptUTC: "2026-03-01T10:00:00Z"},
	}

	rendered := FormatRecords(records)
	require.NotContains(t, rendered, long)
	require.Contains(t, rendered, strings.Repeat("a", 45)+"...")
}

func TestFormatArchivedRecords(t *testing.T) {
	records := []store.ArchivedRecord{
		{
			Key:        "t1_new",
			Status:     string(core.StatusFailed),
			TouchedAt:  time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC),
			ArchivedAt: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
			Error:      "503 from upstream",
		},
		{
			Key:        "t1_old",
			Status:     string(core.StatusSuccess),
			TouchedAt:  time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC),
			ArchivedAt: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
		},
	}

	rendered := FormatArchivedRecords(records)
	require.Contains(t, rendered, "t1_new")
	require.Contains(t, rendered, "503 from upstream")
	require.Contains(t, rendered, "2026-01-01T10:00:00Z")
	require.Contains(t, rendered, "2 records")
}

func TestFormatSnapshot(t *testing.T) {
	snapshot := metrics.Snapshot{
		TimestampUTC:  time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC).Format("2006-01-02T15:04:05Z"),
		UptimeSeconds: 120,
		WindowSeconds: 60,
		Totals:        map[string]int64{"comment": 5},
		Errors:        map[string]int64{"comment": 1},
		RatesPerMin:   map[string]float64{"comment": 2.5},
	}

	rendered := FormatSnapshot(snapshot)
	require.Contains(t, rendered, "comment")
	require.Contains(t, rendered, "120s")
	require.Contains(t, rendered, "2.5")
}
