package output

import (
	"fmt"
	"sort"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/botguard/botguard/internal/core/idempotency"
	"github.com/botguard/botguard/internal/core/metrics"
	"github.com/botguard/botguard/internal/core/ratelimit"
	"github.com/botguard/botguard/internal/core/store"
)

// FormatLimits renders the effective action limits as a table.
func FormatLimits(limits ratelimit.Limits) string {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Action", "Per Hour", "Per Day", "Per Week", "Jitter (s)"})

	actions := make([]string, 0, len(limits))
	for action := range limits {
		actions = append(actions, action)
	}
	sort.Strings(actions)

	for _, action := range actions {
		limit := limits[action]
		t.AppendRow(table.Row{
			action,
			tierLabel(limit.PerHour),
			tierLabel(limit.PerDay),
			tierLabel(limit.PerWeek),
			limit.JitterSeconds,
		})
	}

	return t.Render()
}

// FormatRecords renders idempotency records as a table, most recently
// touched first.
func FormatRecords(records map[string]idempotency.Record) string {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Key", "Status", "Touched (UTC)", "Error"})

	type entry struct {
		key    string
		record idempotency.Record
	}
	ordered := make([]entry, 0, len(records))
	for key, record := range records {
		ordered = append(ordered, entry{key, record})
	}
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].record.TouchedAt().After(ordered[j].record.TouchedAt())
	})

	for _, e := range ordered {
		touched := "-"
		if ts := e.record.TouchedAt(); !ts.IsZero() {
			touched = ts.Format(idempotency.TimeFormat)
		}
		t.AppendRow(table.Row{truncateKey(e.key), string(e.record.Status), touched, e.record.Error})
	}

	t.AppendFooter(table.Row{fmt.Sprintf("%d records", len(records)), "", "", ""})
	return t.Render()
}

// FormatArchivedRecords renders archived idempotency rows as a table.
// Rows arrive already ordered by the archive query.
func FormatArchivedRecords(records []store.ArchivedRecord) string {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Key", "Status", "Touched (UTC)", "Archived (UTC)", "Error"})

	for _, record := range records {
		t.AppendRow(table.Row{
			truncateKey(record.Key),
			record.Status,
			record.TouchedAt.Format(idempotency.TimeFormat),
			record.ArchivedAt.Format(idempotency.TimeFormat),
			record.Error,
		})
	}

	t.AppendFooter(table.Row{fmt.Sprintf("%d records", len(records)), "", "", "", ""})
	return t.Render()
}

// FormatSnapshot renders one metrics snapshot as a table.
func FormatSnapshot(snapshot metrics.Snapshot) string {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Event", "Total", "Errors", "Rate/min"})

	names := make([]string, 0, len(snapshot.Totals))
	for name := range snapshot.Totals {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		t.AppendRow(table.Row{
			name,
			snapshot.Totals[name],
			snapshot.Errors[name],
			snapshot.RatesPerMin[name],
		})
	}

	t.AppendFooter(table.Row{
		"uptime",
		fmt.Sprintf("%ds", snapshot.UptimeSeconds),
		"window",
		fmt.Sprintf("%ds", snapshot.WindowSeconds),
	})
	return t.Render()
}

func tierLabel(limit int) string {
	if limit <= 0 {
		return "-"
	}
	return fmt.Sprintf("%d", limit)
}

func truncateKey(key string) string {
	if len(key) <= 48 {
		return key
	}
	return key[:45] + "..."
}
