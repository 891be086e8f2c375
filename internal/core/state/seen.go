// Package state maintains the long-lived bookkeeping files: the seen-items
// list and bounded-retention cleanup over it and the idempotency store.
package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// SeenList is an append-only ordered list of item identifiers persisted as
// a JSON array. Callers append; only the cleaner trims.
type SeenList struct {
	mu   sync.Mutex
	path string

	// OnCorrupt fires when the persisted file cannot be parsed and the
	// list degrades to empty. Optional.
	OnCorrupt func(path string, err error)
}

// NewSeenList returns a list persisting to path.
func NewSeenList(path string) *SeenList {
	return &SeenList{path: path}
}

// Path returns the backing file path.
func (s *SeenList) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

// Contains reports whether id is already present.
func (s *SeenList) Contains(id string) bool {
	if s == nil || id == "" {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.load() {
		if existing == id {
			return true
		}
	}
	return false
}

// Append adds id to the end of the list. Duplicates are kept; the list
// records observation order, not membership.
func (s *SeenList) Append(id string) error {
	if s == nil || id == "" {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.save(append(s.load(), id))
}

// Items returns a copy of the list in order.
func (s *SeenList) Items() []string {
	if s == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	items := s.load()
	copied := make([]string, len(items))
	copy(copied, items)
	return copied
}

// Replace swaps the entire list. Used by the cleaner.
func (s *SeenList) Replace(items []string) error {
	if s == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.save(items)
}

func (s *SeenList) load() []string {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil
	}

	var items []string
	if err := json.Unmarshal(data, &items); err != nil {
		if s.OnCorrupt != nil {
			s.OnCorrupt(s.path, err)
		}
		return nil
	}
	return items
}

func (s *SeenList) save(items []string) error {
	if items == nil {
		items = []string{}
	}

	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return fmt.Errorf("encode seen list: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create state directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".seen-*")
	if err != nil {
		return fmt.Errorf("create temp seen file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("write seen list: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("flush seen list: %w", err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("replace seen list: %w", err)
	}

	return nil
}
