// ABOUTME: Generic per-domain sync engine reconciling local history with the platform store.
// ABOUTME: Implements observer-triggered, historical import, and reset-with-deletion strategies.
package sync

import (
	"context"
	"errors"
	"fmt"
	gosync "sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/oklog/ulid/v2"

	"github.com/harperreed/healthsync/internal/aggregate"
	"github.com/harperreed/healthsync/internal/clock"
	"github.com/harperreed/healthsync/internal/dedup"
	"github.com/harperreed/healthsync/internal/diag"
	"github.com/harperreed/healthsync/internal/healthstore"
	"github.com/harperreed/healthsync/internal/history"
	"github.com/harperreed/healthsync/internal/models"
	"github.com/harperreed/healthsync/internal/storage"
)

// Options configures an Engine. Store and Repo are required.
type Options struct {
	Store            healthstore.Store
	Repo             storage.Repository
	Clock            clock.Clock
	Logger           *log.Logger
	Diag             *diag.Collector
	SuppressionDelay time.Duration
	Notifier         Notifier
	// SourceName tags items this device writes to the platform store.
	SourceName string
}

// Engine owns one domain's history. Every history mutation, its
// persistence, and the aggregate recompute run under one lock.
type Engine[T models.Entry] struct {
	adapter  Adapter[T]
	domain   models.Domain
	matcher  dedup.Matcher
	store    healthstore.Store
	repo     storage.Repository
	history  *history.Store[T]
	anchors  *history.AnchorStore
	prefs    *history.PreferenceStore
	cache    *aggregate.Cache
	suppress *Suppressor
	observer *Observer
	clock    clock.Clock
	logger   *log.Logger
	diag     *diag.Collector
	notifier Notifier
	source   string

	mu       gosync.Mutex
	pref     models.SyncPreference
	snapshot aggregate.Snapshot
}

// NewEngine loads the domain's history and preferences and computes the
// initial aggregate.
func NewEngine[T models.Entry](adapter Adapter[T], opts Options) (*Engine[T], error) {
	if opts.Store == nil || opts.Repo == nil {
		return nil, errors.New("engine requires a health store and a repository")
	}
	d := adapter.Domain()
	if opts.Clock == nil {
		opts.Clock = clock.RealClock{}
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}

	h, err := history.Load[T](opts.Repo, d)
	if err != nil {
		return nil, err
	}
	prefs := history.NewPreferenceStore(opts.Repo)
	pref, err := prefs.Load(d)
	if err != nil {
		return nil, err
	}

	e := &Engine[T]{
		adapter:  adapter,
		domain:   d,
		matcher:  dedup.For(d),
		store:    opts.Store,
		repo:     opts.Repo,
		history:  h,
		anchors:  history.NewAnchorStore(opts.Repo),
		prefs:    prefs,
		cache:    aggregate.NewCache(opts.Repo),
		suppress: NewSuppressor(opts.SuppressionDelay),
		clock:    opts.Clock,
		logger:   opts.Logger.With("domain", d),
		diag:     opts.Diag,
		notifier: opts.Notifier,
		source:   opts.SourceName,
		pref:     pref,
	}
	e.observer = newObserver(opts.Store, d, e.logger, func(ctx context.Context) (Result, error) {
		return e.SyncFromExternal(ctx, nil)
	})
	e.snapshot = e.compute()
	return e, nil
}

// Domain returns the engine's domain.
func (e *Engine[T]) Domain() models.Domain {
	return e.domain
}

// Suppressor exposes the observer suppression flag.
func (e *Engine[T]) Suppressor() *Suppressor {
	return e.suppress
}

// Observer exposes the platform change subscription.
func (e *Engine[T]) Observer() *Observer {
	return e.observer
}

// Entries returns the history, newest first.
func (e *Engine[T]) Entries() []T {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.history.Entries()
}

// Snapshot returns the latest aggregate.
func (e *Engine[T]) Snapshot() aggregate.Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshot
}

// Refresh recomputes the aggregate against the current time.
func (e *Engine[T]) Refresh() aggregate.Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.recompute()
	return e.snapshot
}

// Preference returns the domain's sync preference.
func (e *Engine[T]) Preference() models.SyncPreference {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.pref
}

// LookbackStart returns the earliest time the domain syncs by default.
func (e *Engine[T]) LookbackStart() time.Time {
	return e.clock.Now().Add(-e.matcher.Lookback)
}

// skipReason returns why an observer-triggered sync must not run. Caller holds mu.
func (e *Engine[T]) skipReason() string {
	switch {
	case !e.pref.Enabled:
		return SkipDisabled
	case e.store.AuthorizationStatus(e.domain) != healthstore.AuthAuthorized:
		return SkipUnauthorized
	case e.suppress.Active():
		return SkipSuppressed
	}
	return ""
}

// SyncFromExternal runs the observer-triggered incremental strategy. Unmet
// preconditions return a Result with Skipped set and a nil error. It never
// removes entries.
func (e *Engine[T]) SyncFromExternal(ctx context.Context, since *time.Time) (Result, error) {
	res := Result{Strategy: models.StrategyObserver}
	e.mu.Lock()
	defer e.mu.Unlock()

	if reason := e.skipReason(); reason != "" {
		res.Skipped = reason
		e.logger.Debug("sync skipped", "op", res.Strategy, "reason", reason)
		return res, nil
	}

	started := e.clock.Now()
	r := healthstore.DateRange{Start: started.Add(-e.matcher.Lookback)}
	if since != nil {
		r.Start = *since
	}

	anchor, err := e.anchors.Load(e.domain)
	if err != nil {
		e.diag.Report(e.domain, "load anchor", err)
		anchor = nil
	}
	fetched, err := e.store.FetchIncremental(ctx, e.domain, anchor, r)
	if errors.Is(err, healthstore.ErrInvalidAnchor) {
		e.logger.Warn("discarding unreadable anchor", "op", res.Strategy)
		e.persist("reset anchor", e.anchors.Reset(e.domain))
		fetched, err = e.store.FetchIncremental(ctx, e.domain, nil, r)
	}
	if err != nil {
		return e.fail(res, started, r, err)
	}
	res.Fetched = len(fetched.Added)

	// The anchor advances even when nothing new arrived.
	e.persist("save anchor", e.anchors.Save(e.domain, fetched.Anchor))

	added := e.merge(fetched.Added, e.matcher.Live)
	res.Added = len(added)
	if len(fetched.Deleted) > 0 {
		e.logger.Debug("ignoring platform deletions outside reset sync", "deleted", len(fetched.Deleted))
	}
	if res.Added > 0 {
		e.history.Append(added...)
		e.persist("save history", e.history.Save())
	}
	e.recompute()
	e.finish(res, started, r)
	return res, nil
}

// SyncHistorical backfills from start using the wider historical tolerance.
// It leaves the stored anchor untouched.
func (e *Engine[T]) SyncHistorical(ctx context.Context, start time.Time) (Result, error) {
	res := Result{Strategy: models.StrategyHistorical}
	e.mu.Lock()
	defer e.mu.Unlock()

	started := e.clock.Now()
	r := healthstore.DateRange{Start: start, End: started}
	if err := e.requireAuthorized(); err != nil {
		return e.fail(res, started, r, err)
	}

	fetched, err := e.store.FetchIncremental(ctx, e.domain, nil, r)
	if err != nil {
		return e.fail(res, started, r, err)
	}
	res.Fetched = len(fetched.Added)

	added := e.merge(fetched.Added, e.matcher.Historical)
	res.Added = len(added)
	if res.Added > 0 {
		e.history.Append(added...)
		e.persist("save history", e.history.Save())
	}
	e.recompute()
	e.finish(res, started, r)
	return res, nil
}

// SyncWithReset discards the anchor and treats a full scan of [start, now]
// as authoritative: external entries in range with no match are removed,
// then unmatched platform items are added. Manual entries always survive.
func (e *Engine[T]) SyncWithReset(ctx context.Context, start time.Time) (Result, error) {
	res := Result{Strategy: models.StrategyReset}
	e.mu.Lock()
	defer e.mu.Unlock()

	started := e.clock.Now()
	r := healthstore.DateRange{Start: start, End: started}
	if err := e.requireAuthorized(); err != nil {
		return e.fail(res, started, r, err)
	}

	e.persist("reset anchor", e.anchors.Reset(e.domain))
	fetched, err := e.store.FetchIncremental(ctx, e.domain, nil, r)
	if err != nil {
		return e.fail(res, started, r, err)
	}
	res.Fetched = len(fetched.Added)
	e.persist("save anchor", e.anchors.Save(e.domain, fetched.Anchor))

	tol := e.matcher.Live
	present := make(map[string]bool, len(fetched.Added))
	samples := make([]dedup.Sample, 0, len(fetched.Added))
	for _, item := range fetched.Added {
		present[item.Identifier] = true
		entry, err := e.adapter.ToEntry(item)
		if err != nil {
			continue
		}
		samples = append(samples, e.adapter.Sample(entry))
	}

	removed := e.history.RemoveFunc(func(entry T) bool {
		base := entry.Base()
		if base.IsManual() {
			return false
		}
		ts := entry.Timestamp()
		if ts.Before(r.Start) || ts.After(r.End) {
			return false
		}
		if base.ExternalID != "" && present[base.ExternalID] {
			return false
		}
		return !e.matcher.IsDuplicate(e.adapter.Sample(entry), samples, tol)
	})
	res.Removed = len(removed)

	added := e.merge(fetched.Added, tol)
	res.Added = len(added)
	e.history.Append(added...)

	if res.Changed() {
		e.persist("save history", e.history.Save())
	}
	e.recompute()
	e.finish(res, started, r)
	return res, nil
}

// merge converts items to entries and returns those with no local match.
// Matches are checked by external identifier, fuzzy match, and slot.
// Caller holds mu.
func (e *Engine[T]) merge(items []healthstore.Item, tol dedup.Tolerance) []T {
	current := e.history.Entries()
	samples := make([]dedup.Sample, 0, len(current)+len(items))
	slots := make(map[string]bool)
	known := make(map[string]bool)
	for _, entry := range current {
		s := e.adapter.Sample(entry)
		samples = append(samples, s)
		if key := e.matcher.SlotKey(s); key != "" {
			slots[key] = true
		}
		if id := entry.Base().ExternalID; id != "" {
			known[id] = true
		}
	}

	var added []T
	for _, item := range items {
		if item.Identifier != "" && known[item.Identifier] {
			continue
		}
		entry, err := e.adapter.ToEntry(item)
		if err == nil {
			err = entry.Validate()
		}
		if err != nil {
			e.logger.Warn("skipping unusable platform item", "id", item.Identifier, "err", err)
			continue
		}
		base := entry.Base()
		base.Source = models.SourceExternal
		base.ExternalID = item.Identifier

		s := e.adapter.Sample(entry)
		if e.matcher.IsDuplicate(s, samples, tol) {
			continue
		}
		key := e.matcher.SlotKey(s)
		if key != "" && slots[key] {
			continue
		}
		if key != "" {
			slots[key] = true
		}
		samples = append(samples, s)
		known[item.Identifier] = true
		added = append(added, entry)
	}
	return added
}

func (e *Engine[T]) requireAuthorized() error {
	if e.store.AuthorizationStatus(e.domain) != healthstore.AuthAuthorized {
		return fmt.Errorf("%s: %w", e.domain, healthstore.ErrNotAuthorized)
	}
	return nil
}

func (e *Engine[T]) compute() aggregate.Snapshot {
	now := e.clock.Now()
	entries := e.history.Entries()
	snap := e.adapter.Aggregate(entries, now)
	snap.Domain = e.domain
	snap.ComputedAt = now
	snap.Count = len(entries)
	return snap
}

// recompute rebuilds and caches the aggregate. Caller holds mu.
func (e *Engine[T]) recompute() {
	e.snapshot = e.compute()
	e.persist("save aggregate", e.cache.Save(e.snapshot))
}

// persist reports a failed write without undoing in-memory state.
func (e *Engine[T]) persist(op string, err error) {
	if err != nil {
		e.diag.Report(e.domain, op, err)
	}
}

func (e *Engine[T]) fail(res Result, started time.Time, r healthstore.DateRange, err error) (Result, error) {
	e.logger.Error("sync failed",
		"op", res.Strategy,
		"range_start", r.Start,
		"range_end", r.End,
		"duration", e.clock.Now().Sub(started),
		"err", err,
	)
	e.record(res, started, err)
	return res, fmt.Errorf("%s %s sync: %w", e.domain, res.Strategy, err)
}

func (e *Engine[T]) finish(res Result, started time.Time, r healthstore.DateRange) {
	e.logger.Info("sync complete",
		"op", res.Strategy,
		"range_start", r.Start,
		"range_end", r.End,
		"fetched", res.Fetched,
		"added", res.Added,
		"removed", res.Removed,
		"duration", e.clock.Now().Sub(started),
	)
	e.record(res, started, nil)
	if res.Added > 0 && e.notifier != nil {
		// Off the lock so the notifier may read engine state.
		go e.notifier(e.domain, res)
	}
}

func (e *Engine[T]) record(res Result, started time.Time, err error) {
	run := &models.SyncRun{
		ID:         ulid.Make().String(),
		Domain:     e.domain,
		Strategy:   res.Strategy,
		Added:      res.Added,
		Removed:    res.Removed,
		Fetched:    res.Fetched,
		StartedAt:  started,
		FinishedAt: e.clock.Now(),
	}
	if err != nil {
		run.Error = err.Error()
	}
	e.persist("record sync run", e.repo.RecordSyncRun(run))
}
