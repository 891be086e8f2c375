package state

import (
	"context"
	"sort"
	"time"

	"github.com/botguard/botguard/internal/core/idempotency"
)

// Archiver receives idempotency records that are about to be dropped by a
// retention pass. Implemented by the libsql archive store.
type Archiver interface {
	ArchiveRecords(ctx context.Context, records map[string]idempotency.Record) error
}

// Cleaner applies bounded-retention passes over the idempotency store and
// the seen-items list. Passes are pure transformations of loaded state
// followed by a full rewrite; run them during idle windows, not alongside
// live mutators of the same files.
type Cleaner struct {
	Idempotency *idempotency.Store
	Seen        *SeenList

	// Archive, when set, receives records dropped by CleanupIdempotency
	// before they are discarded.
	Archive Archiver

	Clock func() time.Time
}

// CleanupIdempotency drops records older than maxAgeDays (by most-recent
// timestamp, success over failure over attempt) and then trims to the
// maxEntries most recently touched. A maxAgeDays of zero or less disables
// the age filter; a maxEntries of zero or less disables the count bound.
// Returns the number of remaining records. Running it twice with the same
// parameters is a no-op the second time.
func (c *Cleaner) CleanupIdempotency(ctx context.Context, maxEntries, maxAgeDays int) (int, error) {
	if c == nil || c.Idempotency == nil {
		return 0, nil
	}

	records := c.Idempotency.Records()
	if len(records) == 0 {
		return 0, nil
	}

	dropped := make(map[string]idempotency.Record)

	if maxAgeDays > 0 {
		cutoff := c.now().AddDate(0, 0, -maxAgeDays)
		for key, record := range records {
			if record.TouchedAt().Before(cutoff) {
				dropped[key] = record
				delete(records, key)
			}
		}
	}

	if maxEntries > 0 && len(records) > maxEntries {
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
		for _, e := range ordered[maxEntries:] {
			dropped[e.key] = e.record
			delete(records, e.key)
		}
	}

	if len(dropped) > 0 && c.Archive != nil {
		if err := c.Archive.ArchiveRecords(ctx, dropped); err != nil {
			return 0, err
		}
	}

	if err := c.Idempotency.Replace(records); err != nil {
		return 0, err
	}

	return len(records), nil
}

// CleanupSeen trims the seen-items list to its last maxEntries elements,
// dropping the oldest first. Returns the remaining length.
func (c *Cleaner) CleanupSeen(maxEntries int) (int, error) {
	if c == nil || c.Seen == nil {
		return 0, nil
	}

	items := c.Seen.Items()
	if len(items) == 0 {
		return 0, nil
	}

	if maxEntries > 0 && len(items) > maxEntries {
		items = items[len(items)-maxEntries:]
		if err := c.Seen.Replace(items); err != nil {
			return 0, err
		}
	}

	return len(items), nil
}

func (c *Cleaner) now() time.Time {
	if c != nil && c.Clock != nil {
		return c.Clock()
	}
	return time.Now().UTC()
}
