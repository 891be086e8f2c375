// Package idempotency provides the durable at-most-once guard for
// automation actions, keyed by a derived action fingerprint.
package idempotency

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/botguard/botguard/internal/core"
)

// TimeFormat is the wire format for record timestamps.
const TimeFormat = "2006-01-02T15:04:05Z"

// Record reflects the latest attempt at one logical action. Marking a new
// attempt overwrites the whole record, discarding prior failure history
// except the freshly supplied metadata. That loss is deliberate: the
// record describes the most recent attempt, not an audit trail.
type Record struct {
	Status         core.Status    `json:"status"`
	LastAttemptUTC string         `json:"last_attempt_utc,omitempty"`
	LastSuccessUTC string         `json:"last_success_utc,omitempty"`
	LastFailureUTC string         `json:"last_failure_utc,omitempty"`
	Error          string         `json:"error,omitempty"`
	Meta           map[string]any `json:"meta"`
}

// TouchedAt returns the record's most recent timestamp, preferring
// success, then failure, then attempt time. Zero time when none parse.
func (r Record) TouchedAt() time.Time {
	for _, value := range []string{r.LastSuccessUTC, r.LastFailureUTC, r.LastAttemptUTC} {
		if value == "" {
			continue
		}
		if ts, err := time.Parse(TimeFormat, value); err == nil {
			return ts
		}
	}
	return time.Time{}
}

// Store is a JSON-file-backed mapping of idempotency key to record. Every
// mutation serializes under the store mutex and lands via an atomic
// temp-file rename, so concurrent markers inside one process cannot lose
// updates and readers never observe a torn file.
type Store struct {
	mu   sync.Mutex
	path string

	// Clock is injectable for tests.
	Clock func() time.Time

	// OnCorrupt is invoked when the persisted file exists but cannot be
	// parsed; the store then degrades to an empty state. Optional.
	OnCorrupt func(path string, err error)
}

// NewStore returns a store persisting to path. The file is created on
// first mutation.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the backing file path.
func (s *Store) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

// CanAttempt reports whether an attempt at key is permitted: true when no
// record exists or the record is not terminal. An empty key always
// permits; deduplication is disabled for unkeyable actions.
func (s *Store) CanAttempt(key string) bool {
	if s == nil || key == "" {
		return true
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.load()[key]
	if !ok {
		return true
	}
	return !record.Status.Terminal()
}

// MarkAttempt records an in-flight attempt at key, overwriting any prior
// record. No-op on empty key.
func (s *Store) MarkAttempt(key string, meta map[string]any) error {
	return s.mark(key, func(now string) Record {
		return Record{
			Status:         core.StatusInflight,
			LastAttemptUTC: now,
			Meta:           cloneMeta(meta),
		}
	})
}

// MarkSuccess records a terminal success for key. No-op on empty key.
func (s *Store) MarkSuccess(key string, meta map[string]any) error {
	return s.mark(key, func(now string) Record {
		return Record{
			Status:         core.StatusSuccess,
			LastSuccessUTC: now,
			Meta:           cloneMeta(meta),
		}
	})
}

// MarkFailure records a non-terminal failure for key, keeping the error
// string. No-op on empty key.
func (s *Store) MarkFailure(key string, errText string, meta map[string]any) error {
	return s.mark(key, func(now string) Record {
		return Record{
			Status:         core.StatusFailed,
			LastFailureUTC: now,
			Error:          errText,
			Meta:           cloneMeta(meta),
		}
	})
}

// Records returns a copy of all persisted records.
func (s *Store) Records() map[string]Record {
	if s == nil {
		return map[string]Record{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.load()
}

// Replace swaps the entire persisted mapping. Used by the state cleaner's
// retention passes.
func (s *Store) Replace(records map[string]Record) error {
	if s == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.save(records)
}

func (s *Store) mark(key string, build func(now string) Record) error {
	if s == nil || key == "" {
		return nil
	}

	now := s.now().Format(TimeFormat)

	s.mu.Lock()
	defer s.mu.Unlock()

	records := s.load()
	records[key] = build(now)
	return s.save(records)
}

// load reads the persisted mapping. Corrupt or unreadable content
// degrades to an empty map after notifying OnCorrupt.
func (s *Store) load() map[string]Record {
	records := make(map[string]Record)

	data, err := os.ReadFile(s.path)
	if err != nil {
		return records
	}

	if err := json.Unmarshal(data, &records); err != nil {
		if s.OnCorrupt != nil {
			s.OnCorrupt(s.path, err)
		}
		return make(map[string]Record)
	}

	return records
}

func (s *Store) save(records map[string]Record) error {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("encode idempotency state: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create state directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".idempotency-*")
	if err != nil {
		return fmt.Errorf("create temp state file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("write idempotency state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("flush idempotency state: %w", err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("replace idempotency state: %w", err)
	}

	return nil
}

func (s *Store) now() time.Time {
	if s != nil && s.Clock != nil {
		return s.Clock()
	}
	return time.Now().UTC()
}

func cloneMeta(meta map[string]any) map[string]any {
	cloned := make(map[string]any, len(meta))
	for k, v := range meta {
		cloned[k] = v
	}
	return cloned
}
