// ABOUTME: Command Surface: per-domain manager over the sync engine plus the cross-domain set.
// ABOUTME: Resolves short entry IDs and dispatches sync strategies by name.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/harperreed/healthsync/internal/aggregate"
	"github.com/harperreed/healthsync/internal/models"
	"github.com/harperreed/healthsync/internal/sync"
)

// ErrEntryNotFound is returned when an ID or prefix matches no entry.
var ErrEntryNotFound = sync.ErrEntryNotFound

// Domain is the domain-neutral view of a manager used by the CLI, MCP
// server, and cross-domain fan-out.
type Domain interface {
	Domain() models.Domain
	List() []models.Entry
	Remove(ctx context.Context, ref string) (models.Entry, error)
	Run(ctx context.Context, strategy models.SyncStrategy, since time.Time) (sync.Result, error)
	SetSyncPreference(ctx context.Context, enabled bool) error
	CompleteInitialImport(ctx context.Context, start time.Time) (sync.Result, error)
	MarkInitialImportComplete()
	LookbackStart() time.Time
	Preference() models.SyncPreference
	Snapshot() aggregate.Snapshot
	Refresh() aggregate.Snapshot
	Observer() *sync.Observer
	Observe(ctx context.Context) error
	Close() error
}

// Manager is the command surface for one domain.
type Manager[T models.Entry] struct {
	*sync.Engine[T]
}

// NewManager builds the engine for adapter's domain.
func NewManager[T models.Entry](adapter sync.Adapter[T], opts sync.Options) (*Manager[T], error) {
	e, err := sync.NewEngine(adapter, opts)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", adapter.Domain(), err)
	}
	return &Manager[T]{Engine: e}, nil
}

// AddManual records a user-entered entry and writes it through when sync is on.
func (m *Manager[T]) AddManual(ctx context.Context, entry T) error {
	return m.Add(ctx, entry)
}

// List returns the history newest first.
func (m *Manager[T]) List() []models.Entry {
	entries := m.Entries()
	out := make([]models.Entry, len(entries))
	for i, e := range entries {
		out[i] = e
	}
	return out
}

// Remove deletes the entry whose ID starts with ref.
func (m *Manager[T]) Remove(ctx context.Context, ref string) (models.Entry, error) {
	entry, err := m.Find(ref)
	if err != nil {
		return nil, err
	}
	removed, err := m.Delete(ctx, entry.Base().ID)
	if errors.Is(err, ErrEntryNotFound) {
		return nil, err
	}
	return removed, err
}

// Run dispatches one sync strategy. A zero since means the domain's full
// lookback for the historical and reset strategies, and the stored anchor's
// default range for the observer strategy.
func (m *Manager[T]) Run(ctx context.Context, strategy models.SyncStrategy, since time.Time) (sync.Result, error) {
	switch strategy {
	case models.StrategyObserver:
		if since.IsZero() {
			return m.SyncFromExternal(ctx, nil)
		}
		return m.SyncFromExternal(ctx, &since)
	case models.StrategyHistorical:
		return m.SyncHistorical(ctx, m.start(since))
	case models.StrategyReset:
		return m.SyncWithReset(ctx, m.start(since))
	default:
		return sync.Result{}, fmt.Errorf("unknown sync strategy %q", strategy)
	}
}

func (m *Manager[T]) start(since time.Time) time.Time {
	if !since.IsZero() {
		return since
	}
	return m.LookbackStart()
}

// Set holds one manager per domain.
type Set struct {
	Fasting   *FastingTracker
	Weight    *Manager[*models.WeightEntry]
	Hydration *Manager[*models.HydrationEntry]
	Sleep     *Manager[*models.SleepEntry]
	Mood      *Manager[*models.MoodEntry]
}

// Goals carries user-configured targets used by aggregates and defaults.
type Goals struct {
	FastingHours float64
	HydrationML  float64
}

// NewSet opens every domain against the same store and repository.
func NewSet(opts sync.Options, goals Goals) (*Set, error) {
	if goals.FastingHours <= 0 {
		goals.FastingHours = DefaultFastingGoalHours
	}
	if goals.HydrationML <= 0 {
		goals.HydrationML = DefaultHydrationGoalML
	}

	fasting, err := NewManager[*models.FastingSession](FastingAdapter{DefaultGoal: goals.FastingHours}, opts)
	if err != nil {
		return nil, err
	}
	s := &Set{Fasting: NewFastingTracker(fasting, opts.Clock, goals.FastingHours)}
	if s.Weight, err = NewManager[*models.WeightEntry](WeightAdapter{}, opts); err != nil {
		return nil, err
	}
	if s.Hydration, err = NewManager[*models.HydrationEntry](HydrationAdapter{DailyGoal: goals.HydrationML}, opts); err != nil {
		return nil, err
	}
	if s.Sleep, err = NewManager[*models.SleepEntry](SleepAdapter{}, opts); err != nil {
		return nil, err
	}
	if s.Mood, err = NewManager[*models.MoodEntry](MoodAdapter{}, opts); err != nil {
		return nil, err
	}
	return s, nil
}

// All returns the managers in models.AllDomains order.
func (s *Set) All() []Domain {
	return []Domain{s.Fasting, s.Weight, s.Hydration, s.Sleep, s.Mood}
}

// Get returns the manager for d.
func (s *Set) Get(d models.Domain) (Domain, error) {
	for _, m := range s.All() {
		if m.Domain() == d {
			return m, nil
		}
	}
	return nil, fmt.Errorf("unknown domain %q", d)
}

// Observe registers observers for every enabled, authorized domain.
func (s *Set) Observe(ctx context.Context) error {
	for _, m := range s.All() {
		if err := m.Observe(ctx); err != nil {
			return fmt.Errorf("start %s observer: %w", m.Domain(), err)
		}
	}
	return nil
}

// Close unregisters every observer.
func (s *Set) Close() error {
	var first error
	for _, m := range s.All() {
		if err := m.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
