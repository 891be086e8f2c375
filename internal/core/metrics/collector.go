// Package metrics provides in-process counters with rolling per-minute
// rates, snapshotted to an append-only JSON-line log.
package metrics

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// DefaultWindow is the rolling-rate window when none is configured.
const DefaultWindow = 60 * time.Second

// Snapshot is a point-in-time view of the collector.
type Snapshot struct {
	TimestampUTC  string             `json:"timestamp_utc"`
	UptimeSeconds int64              `json:"uptime_seconds"`
	WindowSeconds int64              `json:"window_seconds"`
	Totals        map[string]int64   `json:"totals"`
	Errors        map[string]int64   `json:"errors"`
	RatesPerMin   map[string]float64 `json:"rates_per_min"`
}

// Collector counts named events and derives rolling rates. One coarse
// mutex guards all internal maps; Record and Snapshot are safe from any
// number of goroutines. Construct one per process and inject it; there
// is no package-level singleton.
type Collector struct {
	mu     sync.Mutex
	window time.Duration
	start  time.Time

	totals map[string]int64
	errors map[string]int64
	stamps map[string][]time.Time

	Clock func() time.Time
}

// NewCollector returns a collector with the given rolling window.
// A window of zero or less uses DefaultWindow. Uptime counts from
// construction.
func NewCollector(window time.Duration) *Collector {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Collector{
		window: window,
		start:  time.Now().UTC(),
		totals: make(map[string]int64),
		errors: make(map[string]int64),
		stamps: make(map[string][]time.Time),
	}
}

// Record counts one occurrence of name, flagging it as an error when
// success is false.
func (c *Collector) Record(name string, success bool) {
	if c == nil {
		return
	}

	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	c.totals[name]++
	if !success {
		c.errors[name]++
	}

	stamps := append(c.stamps[name], now)
	c.stamps[name] = pruneBefore(stamps, now.Add(-c.window))
}

// RecordError counts one failed occurrence of name.
func (c *Collector) RecordError(name string) {
	c.Record(name, false)
}

// Snapshot returns a consistent point-in-time view. Rates are events in
// the window scaled to per-minute, rounded to three decimals; an event
// whose last occurrence left the window reports 0.
func (c *Collector) Snapshot() Snapshot {
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	totals := make(map[string]int64, len(c.totals))
	for name, count := range c.totals {
		totals[name] = count
	}
	errors := make(map[string]int64, len(c.errors))
	for name, count := range c.errors {
		errors[name] = count
	}

	rates := make(map[string]float64, len(c.stamps))
	cutoff := now.Add(-c.window)
	for name, stamps := range c.stamps {
		pruned := pruneBefore(stamps, cutoff)
		c.stamps[name] = pruned
		rates[name] = roundRate(float64(len(pruned)) / c.window.Seconds() * 60)
	}

	return Snapshot{
		TimestampUTC:  now.UTC().Format("2006-01-02T15:04:05Z"),
		UptimeSeconds: int64(now.Sub(c.start).Seconds()),
		WindowSeconds: int64(c.window.Seconds()),
		Totals:        totals,
		Errors:        errors,
		RatesPerMin:   rates,
	}
}

// WriteSnapshot appends one snapshot as a JSON line to path, creating
// parent directories as needed.
func (c *Collector) WriteSnapshot(path string) error {
	snapshot := c.Snapshot()

	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("encode metrics snapshot: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create metrics directory: %w", err)
	}

	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("open metrics log: %w", err)
	}
	defer file.Close() // nolint:errcheck // best-effort cleanup

	if _, err := file.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("append metrics snapshot: %w", err)
	}

	return nil
}

func (c *Collector) now() time.Time {
	if c != nil && c.Clock != nil {
		return c.Clock()
	}
	return time.Now().UTC()
}

func roundRate(rate float64) float64 {
	return math.Round(rate*1000) / 1000
}

func pruneBefore(stamps []time.Time, cutoff time.Time) []time.Time {
	idx := 0
	for idx < len(stamps) && stamps[idx].Before(cutoff) {
		idx++
	}
	if idx == 0 {
		return stamps
	}
	kept := make([]time.Time, len(stamps)-idx)
	copy(kept, stamps[idx:])
	return kept
}
