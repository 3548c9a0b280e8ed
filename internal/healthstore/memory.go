// ABOUTME: In-memory platform health store with per-domain change logs and async observers.
// ABOUTME: Used by tests and by the CLI when no journal directory is configured.
package healthstore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/harperreed/healthsync/internal/models"
)

// Memory is a process-local Store. Observers fire on their own goroutines
// after every write or delete, like a platform background notification.
type Memory struct {
	mu        sync.Mutex
	logs      map[models.Domain]*changeLog
	auth      map[models.Domain]AuthStatus
	denyAuth  map[models.Domain]bool
	observers map[models.Domain]map[Subscription]func()
	owners    map[Subscription]models.Domain
	nextSub   Subscription
	failNext  error
	writes    int
}

// NewMemory returns an empty store with every domain undetermined.
func NewMemory() *Memory {
	return &Memory{
		logs:      make(map[models.Domain]*changeLog),
		auth:      make(map[models.Domain]AuthStatus),
		denyAuth:  make(map[models.Domain]bool),
		observers: make(map[models.Domain]map[Subscription]func()),
		owners:    make(map[Subscription]models.Domain),
	}
}

// SetAuthorization forces the status for d. Setting AuthDenied also makes
// later RequestAuthorization calls keep it denied.
func (m *Memory) SetAuthorization(d models.Domain, s AuthStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.auth[d] = s
	m.denyAuth[d] = s == AuthDenied
}

// FailNext makes the next store operation return err.
func (m *Memory) FailNext(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failNext = err
}

// Items returns the live items for d in start order.
func (m *Memory) Items(d models.Domain) []Item {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Item
	for _, item := range m.log(d).live() {
		out = append(out, item)
	}
	sortItems(out)
	return out
}

// Writes returns how many Write calls have succeeded.
func (m *Memory) Writes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}

func (m *Memory) log(d models.Domain) *changeLog {
	l, ok := m.logs[d]
	if !ok {
		l = &changeLog{}
		m.logs[d] = l
	}
	return l
}

// takeFailure consumes a pending injected error. Caller holds mu.
func (m *Memory) takeFailure() error {
	err := m.failNext
	m.failNext = nil
	return err
}

func (m *Memory) checkAuth(d models.Domain) error {
	if m.auth[d] != AuthAuthorized {
		return fmt.Errorf("%s: %w", d, ErrNotAuthorized)
	}
	return nil
}

// AuthorizationStatus implements Store.
func (m *Memory) AuthorizationStatus(d models.Domain) AuthStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.auth[d]
}

// RequestAuthorization implements Store. It grants unless the domain was denied.
func (m *Memory) RequestAuthorization(ctx context.Context, d models.Domain) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFailure(); err != nil {
		return err
	}
	if m.denyAuth[d] {
		m.auth[d] = AuthDenied
		return fmt.Errorf("%s: %w", d, ErrNotAuthorized)
	}
	m.auth[d] = AuthAuthorized
	return nil
}

// FetchIncremental implements Store.
func (m *Memory) FetchIncremental(ctx context.Context, d models.Domain, anchor Anchor, r DateRange) (*FetchResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFailure(); err != nil {
		return nil, err
	}
	if err := m.checkAuth(d); err != nil {
		return nil, err
	}
	return m.log(d).fetch(anchor, r)
}

// Write implements Store.
func (m *Memory) Write(ctx context.Context, item Item) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	m.mu.Lock()
	if err := m.takeFailure(); err != nil {
		m.mu.Unlock()
		return "", err
	}
	if err := m.checkAuth(item.Domain); err != nil {
		m.mu.Unlock()
		return "", err
	}
	if item.Identifier == "" {
		item.Identifier = newIdentifier()
	}
	m.log(item.Domain).record(opWrite, item)
	m.writes++
	callbacks := m.callbacks(item.Domain)
	m.mu.Unlock()

	notify(callbacks)
	return item.Identifier, nil
}

// DeleteByIdentifier implements Store.
func (m *Memory) DeleteByIdentifier(ctx context.Context, d models.Domain, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	if err := m.takeFailure(); err != nil {
		m.mu.Unlock()
		return err
	}
	if err := m.checkAuth(d); err != nil {
		m.mu.Unlock()
		return err
	}
	l := m.log(d)
	item, ok := l.lookup(id)
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("%s %s: %w", d, id, ErrNotFound)
	}
	l.record(opDelete, item)
	callbacks := m.callbacks(d)
	m.mu.Unlock()

	notify(callbacks)
	return nil
}

// FindMatchingIdentifier implements Store.
func (m *Memory) FindMatchingIdentifier(ctx context.Context, d models.Domain, at time.Time, value float64) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.checkAuth(d); err != nil {
		return "", err
	}
	return m.log(d).findMatching(at, value), nil
}

// RegisterObserver implements Store.
func (m *Memory) RegisterObserver(d models.Domain, onChange func()) (Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.checkAuth(d); err != nil {
		return 0, err
	}
	m.nextSub++
	sub := m.nextSub
	if m.observers[d] == nil {
		m.observers[d] = make(map[Subscription]func())
	}
	m.observers[d][sub] = onChange
	m.owners[sub] = d
	return sub, nil
}

// Unregister implements Store.
func (m *Memory) Unregister(sub Subscription) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.owners[sub]
	if !ok {
		return fmt.Errorf("subscription %d: %w", sub, ErrNotFound)
	}
	delete(m.owners, sub)
	delete(m.observers[d], sub)
	return nil
}

// Observers returns how many observers are registered for d.
func (m *Memory) Observers(d models.Domain) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.observers[d])
}

// callbacks snapshots the observers for d. Caller holds mu.
func (m *Memory) callbacks(d models.Domain) []func() {
	out := make([]func(), 0, len(m.observers[d]))
	for _, fn := range m.observers[d] {
		out = append(out, fn)
	}
	return out
}

func notify(callbacks []func()) {
	for _, fn := range callbacks {
		go fn()
	}
}
