// ABOUTME: Command-side engine operations: manual add, replace, delete, and preferences.
// ABOUTME: Manual changes write through to the platform under observer suppression.
package sync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/harperreed/healthsync/internal/dedup"
	"github.com/harperreed/healthsync/internal/healthstore"
)

// Add validates a manual entry, rejects it if it collides with history,
// records it, and writes it through when sync is enabled.
func (e *Engine[T]) Add(ctx context.Context, entry T) error {
	if err := entry.Validate(); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.collides(entry, uuid.Nil) {
		return fmt.Errorf("%s: %w", e.domain, ErrDuplicate)
	}
	e.history.Append(entry)
	e.persist("save history", e.history.Save())
	e.recompute()
	return e.writeThrough(ctx, entry)
}

// Find returns the entry with the given ID or unique ID prefix.
func (e *Engine[T]) Find(idOrPrefix string) (T, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	entry, err := e.history.FindPrefix(idOrPrefix)
	if err != nil {
		var zero T
		return zero, fmt.Errorf("%s %s: %w", e.domain, idOrPrefix, ErrEntryNotFound)
	}
	return entry, nil
}

// Replace swaps the entry with id for the one build returns. build receives
// the current entry and must not modify it. When writeThrough is set the
// replacement is written to the platform.
func (e *Engine[T]) Replace(ctx context.Context, id uuid.UUID, build func(current T) (T, error), writeThrough bool) (T, error) {
	var zero T
	e.mu.Lock()
	defer e.mu.Unlock()

	current, ok := e.history.Find(id)
	if !ok {
		return zero, fmt.Errorf("%s %s: %w", e.domain, id, ErrEntryNotFound)
	}
	next, err := build(current)
	if err != nil {
		return zero, err
	}
	if err := next.Validate(); err != nil {
		return zero, err
	}
	if e.collides(next, id) {
		return zero, fmt.Errorf("%s: %w", e.domain, ErrDuplicate)
	}

	e.history.RemoveFunc(func(en T) bool { return en.Base().ID == id })
	e.history.Append(next)
	e.persist("save history", e.history.Save())
	e.recompute()
	if !writeThrough {
		return next, nil
	}
	return next, e.writeThrough(ctx, next)
}

// Delete removes the entry locally and, when sync is enabled, from the
// platform by stored identifier or by matching time and value.
func (e *Engine[T]) Delete(ctx context.Context, id uuid.UUID) (T, error) {
	var zero T
	e.mu.Lock()
	defer e.mu.Unlock()

	entry, ok := e.history.Find(id)
	if !ok {
		return zero, fmt.Errorf("%s %s: %w", e.domain, id, ErrEntryNotFound)
	}
	e.history.RemoveFunc(func(en T) bool { return en.Base().ID == id })
	e.persist("save history", e.history.Save())
	e.recompute()
	return entry, e.deleteExternal(ctx, entry)
}

// Discard removes an entry locally without touching the platform.
func (e *Engine[T]) Discard(id uuid.UUID) (T, error) {
	var zero T
	e.mu.Lock()
	defer e.mu.Unlock()

	entry, ok := e.history.Find(id)
	if !ok {
		return zero, fmt.Errorf("%s %s: %w", e.domain, id, ErrEntryNotFound)
	}
	e.history.RemoveFunc(func(en T) bool { return en.Base().ID == id })
	e.persist("save history", e.history.Save())
	e.recompute()
	return entry, nil
}

// SetSyncPreference persists the preference. Enabling requests platform
// authorization first and registers the observer; disabling unregisters it.
func (e *Engine[T]) SetSyncPreference(ctx context.Context, enabled bool) error {
	e.mu.Lock()
	if enabled {
		if err := e.store.RequestAuthorization(ctx, e.domain); err != nil {
			e.mu.Unlock()
			return fmt.Errorf("enable %s sync: %w", e.domain, err)
		}
	}
	e.pref.Enabled = enabled
	e.persist("save preferences", e.prefs.Save(e.domain, e.pref))
	e.mu.Unlock()

	if enabled {
		return e.observer.Start(ctx)
	}
	return e.observer.Stop()
}

// CompleteInitialImport runs the historical import from start and records
// that the one-time import choice has been made.
func (e *Engine[T]) CompleteInitialImport(ctx context.Context, start time.Time) (Result, error) {
	res, err := e.SyncHistorical(ctx, start)
	if err != nil {
		return res, err
	}
	e.MarkInitialImportComplete()
	return res, nil
}

// MarkInitialImportComplete records that the import prompt was answered.
func (e *Engine[T]) MarkInitialImportComplete() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.pref.InitialImportComplete = true
	e.persist("save preferences", e.prefs.Save(e.domain, e.pref))
}

// Observe registers the observer when sync is enabled and authorized.
func (e *Engine[T]) Observe(ctx context.Context) error {
	e.mu.Lock()
	ready := e.pref.Enabled && e.store.AuthorizationStatus(e.domain) == healthstore.AuthAuthorized
	e.mu.Unlock()
	if !ready {
		return nil
	}
	return e.observer.Start(ctx)
}

// Close unregisters the observer and clears suppression.
func (e *Engine[T]) Close() error {
	e.suppress.Clear()
	return e.observer.Stop()
}

// collides reports whether entry matches history at live tolerance or
// occupies a taken slot. skip excludes one entry from the check. Caller holds mu.
func (e *Engine[T]) collides(entry T, skip uuid.UUID) bool {
	s := e.adapter.Sample(entry)
	key := e.matcher.SlotKey(s)
	var samples []dedup.Sample
	for _, en := range e.history.Entries() {
		if en.Base().ID == skip || en.Base().ID == entry.Base().ID {
			continue
		}
		other := e.adapter.Sample(en)
		if key != "" && e.matcher.SlotKey(other) == key {
			return true
		}
		samples = append(samples, other)
	}
	return e.matcher.IsDuplicate(s, samples, e.matcher.Live)
}

// syncing reports whether write-through and external deletes apply. Caller holds mu.
func (e *Engine[T]) syncing() bool {
	return e.pref.Enabled && e.store.AuthorizationStatus(e.domain) == healthstore.AuthAuthorized
}

// writeThrough pushes a manual entry to the platform with the observer
// suppressed, then records the identifier the platform assigned. Caller holds mu.
func (e *Engine[T]) writeThrough(ctx context.Context, entry T) error {
	if !entry.Base().IsManual() || !e.syncing() {
		return nil
	}
	item, ok := e.adapter.ToItem(entry)
	if !ok {
		return nil
	}
	item.Domain = e.domain
	item.SourceName = e.source

	gen := e.suppress.Begin()
	id, err := e.store.Write(ctx, item)
	e.suppress.Release(gen)
	if err != nil {
		e.logger.Error("write-through failed", "id", entry.Base().ID, "err", err)
		return fmt.Errorf("%w: %w", ErrPlatform, err)
	}

	entry.Base().ExternalID = id
	e.persist("save history", e.history.Save())
	e.logger.Debug("wrote through", "id", entry.Base().ID, "external_id", id)
	return nil
}

// deleteExternal removes a deleted entry's platform copy. Caller holds mu.
func (e *Engine[T]) deleteExternal(ctx context.Context, entry T) error {
	if !e.syncing() {
		return nil
	}
	externalID := entry.Base().ExternalID
	if externalID == "" {
		item, ok := e.adapter.ToItem(entry)
		if !ok {
			return nil
		}
		found, err := e.store.FindMatchingIdentifier(ctx, e.domain, item.Start, item.Value)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrPlatform, err)
		}
		if found == "" {
			return nil
		}
		externalID = found
	}

	gen := e.suppress.Begin()
	err := e.store.DeleteByIdentifier(ctx, e.domain, externalID)
	e.suppress.Release(gen)
	if errors.Is(err, healthstore.ErrNotFound) {
		return nil
	}
	if err != nil {
		e.logger.Error("external delete failed", "external_id", externalID, "err", err)
		return fmt.Errorf("%w: %w", ErrPlatform, err)
	}
	return nil
}
