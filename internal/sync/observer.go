// ABOUTME: Observer Registration: subscribes to platform change notifications per domain.
// ABOUTME: Firings during an in-flight sync queue one trailing run instead of being lost.
package sync

import (
	"context"
	gosync "sync"
	"sync/atomic"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/singleflight"

	"github.com/harperreed/healthsync/internal/healthstore"
	"github.com/harperreed/healthsync/internal/models"
)

// Observer bridges platform notifications to the engine's incremental sync.
type Observer struct {
	store  healthstore.Store
	domain models.Domain
	logger *log.Logger
	run    func(ctx context.Context) (Result, error)
	group  singleflight.Group

	mu     gosync.Mutex
	active bool
	sub    healthstore.Subscription
	ctx    context.Context
	cancel context.CancelFunc

	pending atomic.Bool
	fired   atomic.Int64
	shared  atomic.Int64
}

func newObserver(store healthstore.Store, d models.Domain, logger *log.Logger, run func(context.Context) (Result, error)) *Observer {
	return &Observer{store: store, domain: d, logger: logger, run: run}
}

// Start registers with the platform store. Calling it while active is a no-op.
func (o *Observer) Start(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.active {
		return nil
	}
	o.ctx, o.cancel = context.WithCancel(ctx)
	sub, err := o.store.RegisterObserver(o.domain, o.onChange)
	if err != nil {
		o.cancel()
		return err
	}
	o.sub = sub
	o.active = true
	o.logger.Debug("observer registered")
	return nil
}

// Stop unregisters and cancels any in-flight observer sync.
func (o *Observer) Stop() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.active {
		return nil
	}
	o.active = false
	o.cancel()
	o.logger.Debug("observer unregistered")
	return o.store.Unregister(o.sub)
}

// Active reports whether the subscription is live.
func (o *Observer) Active() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.active
}

// Fired counts notifications received while active.
func (o *Observer) Fired() int64 {
	return o.fired.Load()
}

// Fire runs the sync as if the platform had notified.
func (o *Observer) Fire() {
	o.onChange()
}

// onChange marks a sync as pending and drains it. A firing that lands while
// another goroutine is draining joins that drain, which re-runs the sync
// before returning, so a change written mid-fetch is always picked up.
func (o *Observer) onChange() {
	o.mu.Lock()
	active, ctx := o.active, o.ctx
	o.mu.Unlock()
	if !active {
		return
	}
	o.fired.Add(1)
	o.pending.Store(true)

	ran := false
	for o.pending.Load() {
		_, _, _ = o.group.Do(string(o.domain), func() (interface{}, error) {
			ran = true
			o.drain(ctx)
			return nil, nil
		})
	}
	if !ran {
		o.shared.Add(1)
	}
}

func (o *Observer) drain(ctx context.Context) {
	for o.pending.Swap(false) {
		res, err := o.run(ctx)
		if err != nil {
			o.logger.Warn("observer sync failed", "err", err)
			continue
		}
		if res.Added > 0 {
			o.logger.Info("observer sync", "added", res.Added)
		}
	}
}

// Coalesced counts notifications served by another goroutine's sync.
func (o *Observer) Coalesced() int64 {
	return o.shared.Load()
}
