// ABOUTME: Wires configuration, storage, the platform store, and the five domain managers.
// ABOUTME: Provides cross-domain sync fan-out and orderly shutdown.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/harperreed/healthsync/internal/clock"
	"github.com/harperreed/healthsync/internal/config"
	"github.com/harperreed/healthsync/internal/diag"
	"github.com/harperreed/healthsync/internal/healthstore"
	"github.com/harperreed/healthsync/internal/logging"
	"github.com/harperreed/healthsync/internal/models"
	"github.com/harperreed/healthsync/internal/storage"
	"github.com/harperreed/healthsync/internal/sync"
	"github.com/harperreed/healthsync/internal/tracker"
)

// Options overrides pieces New would otherwise build from config.
type Options struct {
	Stderr   io.Writer
	Clock    clock.Clock
	Notifier sync.Notifier
	Logger   *log.Logger
	Repo     storage.Repository
	Store    healthstore.Store
}

// App is an opened healthsync instance.
type App struct {
	Config *config.Config
	Logger *log.Logger
	Repo   storage.Repository
	Store  healthstore.Store
	Diag   *diag.Collector
	Clock  clock.Clock
	*tracker.Set

	closers []io.Closer
}

// New opens storage and the platform per cfg and loads every domain.
func New(cfg *config.Config, opts Options) (*App, error) {
	a := &App{Config: cfg, Clock: opts.Clock}
	if a.Clock == nil {
		a.Clock = clock.RealClock{}
	}

	a.Logger = opts.Logger
	if a.Logger == nil {
		stderr := opts.Stderr
		if stderr == nil {
			stderr = os.Stderr
		}
		logger, closer, err := logging.New(cfg.LoggingOptions(), stderr)
		if err != nil {
			return nil, err
		}
		a.Logger = logger
		a.closers = append(a.closers, closer)
	}
	a.Diag = diag.NewCollector(a.Logger, 0)

	a.Repo = opts.Repo
	if a.Repo == nil {
		repo, err := cfg.OpenStorage(a.Logger)
		if err != nil {
			a.closeAll()
			return nil, fmt.Errorf("open %s storage: %w", cfg.GetBackend(), err)
		}
		a.Repo = repo
	}
	// The repository closes after the platform so late observer syncs can still persist.
	a.closers = append(a.closers, a.Repo)

	a.Store = opts.Store
	if a.Store == nil {
		store, err := cfg.OpenPlatform(a.Logger)
		if err != nil {
			a.closeAll()
			return nil, fmt.Errorf("open %s platform: %w", cfg.GetPlatformKind(), err)
		}
		a.Store = store
	}
	if c, ok := a.Store.(io.Closer); ok {
		a.closers = append(a.closers, c)
	}

	delay, err := cfg.GetSuppressionDelay()
	if err != nil {
		a.closeAll()
		return nil, err
	}
	notifier := opts.Notifier
	if notifier == nil {
		notifier = a.logNotification
	}
	set, err := tracker.NewSet(sync.Options{
		Store:            a.Store,
		Repo:             a.Repo,
		Clock:            a.Clock,
		Logger:           a.Logger,
		Diag:             a.Diag,
		SuppressionDelay: delay,
		Notifier:         notifier,
		SourceName:       sourceName(cfg),
	}, tracker.Goals{FastingHours: cfg.FastingGoalHours, HydrationML: cfg.HydrationGoalML})
	if err != nil {
		a.closeAll()
		return nil, err
	}
	a.Set = set
	return a, nil
}

func sourceName(cfg *config.Config) string {
	if cfg.DeviceID == "" {
		return "healthsync"
	}
	return "healthsync/" + cfg.DeviceID
}

func (a *App) logNotification(d models.Domain, r sync.Result) {
	a.Logger.Info(sync.StatusMessage(r, nil), "domain", d, "op", r.Strategy)
}

// DomainResult is one domain's outcome from a fan-out sync.
type DomainResult struct {
	Domain models.Domain
	Result sync.Result
	Err    error
}

// SyncAll runs strategy on every domain concurrently. Each domain's
// outcome is reported; the returned error joins all failures.
func (a *App) SyncAll(ctx context.Context, strategy models.SyncStrategy, since time.Time) ([]DomainResult, error) {
	domains := a.All()
	results := make([]DomainResult, len(domains))

	var g errgroup.Group
	for i, m := range domains {
		g.Go(func() error {
			res, err := m.Run(ctx, strategy, since)
			results[i] = DomainResult{Domain: m.Domain(), Result: res, Err: err}
			// Failures stay in results so every domain reports, not just the first.
			return nil
		})
	}
	_ = g.Wait()

	var errs []error
	for _, r := range results {
		if r.Err != nil {
			errs = append(errs, r.Err)
		}
	}
	return results, errors.Join(errs...)
}

// Close stops observers then closes the platform, storage, and log file.
func (a *App) Close() error {
	var errs []error
	if a.Set != nil {
		errs = append(errs, a.Set.Close())
	}
	errs = append(errs, a.closeAll())
	return errors.Join(errs...)
}

func (a *App) closeAll() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
