// ABOUTME: Local History Store: a per-domain entry list kept sorted newest first.
// ABOUTME: Serialized as a JSON array into the storage history record.
package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/harperreed/healthsync/internal/models"
	"github.com/harperreed/healthsync/internal/storage"
)

// Store holds one domain's entries. It is not safe for concurrent use; the
// sync engine owns it and serializes access.
type Store[T models.Entry] struct {
	domain  models.Domain
	repo    storage.Repository
	entries []T
}

// Load reads the domain's history from repo. A missing record yields an
// empty store.
func Load[T models.Entry](repo storage.Repository, d models.Domain) (*Store[T], error) {
	s := &Store[T]{domain: d, repo: repo}
	data, err := repo.Get(storage.KindHistory, d)
	if errors.Is(err, storage.ErrNotFound) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load %s history: %w", d, err)
	}
	if err := json.Unmarshal(data, &s.entries); err != nil {
		return nil, fmt.Errorf("decode %s history: %w", d, err)
	}
	s.sort()
	return s, nil
}

// Domain returns the store's domain.
func (s *Store[T]) Domain() models.Domain {
	return s.domain
}

// Entries returns a copy of the entry slice, newest first.
func (s *Store[T]) Entries() []T {
	return append([]T(nil), s.entries...)
}

// Len returns the entry count.
func (s *Store[T]) Len() int {
	return len(s.entries)
}

// Append adds entries and restores ordering.
func (s *Store[T]) Append(entries ...T) {
	s.entries = append(s.entries, entries...)
	s.sort()
}

// Find returns the entry with id.
func (s *Store[T]) Find(id uuid.UUID) (T, bool) {
	for _, e := range s.entries {
		if e.Base().ID == id {
			return e, true
		}
	}
	var zero T
	return zero, false
}

// FindPrefix resolves an ID or unique ID prefix.
func (s *Store[T]) FindPrefix(prefix string) (T, error) {
	var zero T
	var match T
	found := 0
	for _, e := range s.entries {
		id := e.Base().ID.String()
		if len(prefix) <= len(id) && id[:len(prefix)] == prefix {
			match = e
			found++
		}
	}
	switch found {
	case 0:
		return zero, fmt.Errorf("not found: %s", prefix)
	case 1:
		return match, nil
	default:
		return zero, fmt.Errorf("ambiguous prefix %s: matches %d entries", prefix, found)
	}
}

// RemoveFunc deletes every entry for which drop returns true and returns them.
func (s *Store[T]) RemoveFunc(drop func(T) bool) []T {
	var removed []T
	kept := s.entries[:0]
	for _, e := range s.entries {
		if drop(e) {
			removed = append(removed, e)
			continue
		}
		kept = append(kept, e)
	}
	// Clear the tail so dropped pointers can be collected.
	for i := len(kept); i < len(s.entries); i++ {
		var zero T
		s.entries[i] = zero
	}
	s.entries = kept
	return removed
}

// InRange returns entries whose timestamp falls in [start, end].
func (s *Store[T]) InRange(start, end time.Time) []T {
	var out []T
	for _, e := range s.entries {
		ts := e.Timestamp()
		if !ts.Before(start) && !ts.After(end) {
			out = append(out, e)
		}
	}
	return out
}

// Resort restores ordering after an entry's timestamp changed in place.
func (s *Store[T]) Resort() {
	s.sort()
}

// Save writes the full history record.
func (s *Store[T]) Save() error {
	entries := s.entries
	if entries == nil {
		entries = []T{}
	}
	data, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("encode %s history: %w", s.domain, err)
	}
	if err := s.repo.Put(storage.KindHistory, s.domain, data); err != nil {
		return fmt.Errorf("save %s history: %w", s.domain, err)
	}
	return nil
}

func (s *Store[T]) sort() {
	sort.SliceStable(s.entries, func(i, j int) bool {
		return s.entries[i].Timestamp().After(s.entries[j].Timestamp())
	})
}
