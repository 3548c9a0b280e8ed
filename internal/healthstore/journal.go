// ABOUTME: File-backed platform health store: one JSON-lines change journal per domain.
// ABOUTME: Watches the directory with fsnotify so writes from other processes fire observers.
package healthstore

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
	"github.com/gofrs/flock"

	"github.com/harperreed/healthsync/internal/models"
)

// DefaultDebounce coalesces bursts of file events into one notification.
const DefaultDebounce = 100 * time.Millisecond

const authFile = "auth.json"

// Journal is a Store persisted under a directory. Every operation re-reads
// the journal so changes appended by other processes are visible. Appends
// hold a file lock across load and write so sequence numbers stay unique
// when several processes share the directory.
type Journal struct {
	dir      string
	debounce time.Duration
	logger   *log.Logger

	mu        sync.Mutex
	observers map[models.Domain]map[Subscription]func()
	owners    map[Subscription]models.Domain
	nextSub   Subscription
	timers    map[models.Domain]*time.Timer

	watcher *fsnotify.Watcher
	done    chan struct{}
	wg      sync.WaitGroup
}

// OpenJournal creates dir if needed and returns a journal store rooted there.
func OpenJournal(dir string, logger *log.Logger) (*Journal, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create journal directory: %w", err)
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Journal{
		dir:       dir,
		debounce:  DefaultDebounce,
		logger:    logger.WithPrefix("journal"),
		observers: make(map[models.Domain]map[Subscription]func()),
		owners:    make(map[Subscription]models.Domain),
		timers:    make(map[models.Domain]*time.Timer),
	}, nil
}

// SetDebounce changes the observer debounce window.
func (j *Journal) SetDebounce(d time.Duration) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.debounce = d
}

// Dir returns the journal directory.
func (j *Journal) Dir() string {
	return j.dir
}

func (j *Journal) path(d models.Domain) string {
	return filepath.Join(j.dir, string(d)+".jsonl")
}

func (j *Journal) load(d models.Domain) (*changeLog, error) {
	l := &changeLog{}
	f, err := os.Open(j.path(d))
	if errors.Is(err, os.ErrNotExist) {
		return l, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	defer func() { _ = f.Close() }()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		var c change
		if err := json.Unmarshal([]byte(text), &c); err != nil {
			return nil, fmt.Errorf("journal %s line %d: %w", d, line, err)
		}
		l.add(c)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read journal: %w", err)
	}
	return l, nil
}

// lockFile takes an exclusive advisory lock on name.lock in the journal
// directory. The returned func releases it.
func (j *Journal) lockFile(name string) (func(), error) {
	lock := flock.New(filepath.Join(j.dir, name+".lock"))
	if err := lock.Lock(); err != nil {
		return nil, fmt.Errorf("failed to lock %s: %w", name, err)
	}
	return func() { _ = lock.Unlock() }, nil
}

func (j *Journal) append(d models.Domain, c change) error {
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to encode change: %w", err)
	}
	f, err := os.OpenFile(j.path(d), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o640)
	if err != nil {
		return fmt.Errorf("failed to open journal: %w", err)
	}
	if _, err := f.Write(append(data, '\n')); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to append journal: %w", err)
	}
	return f.Close()
}

func (j *Journal) loadAuth() (map[models.Domain]AuthStatus, error) {
	auth := make(map[models.Domain]AuthStatus)
	data, err := os.ReadFile(filepath.Join(j.dir, authFile))
	if errors.Is(err, os.ErrNotExist) {
		return auth, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read auth: %w", err)
	}
	if err := json.Unmarshal(data, &auth); err != nil {
		return nil, fmt.Errorf("failed to parse auth: %w", err)
	}
	return auth, nil
}

// SetAuthorization persists the status for d.
func (j *Journal) SetAuthorization(d models.Domain, s AuthStatus) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	unlock, err := j.lockFile(authFile)
	if err != nil {
		return err
	}
	defer unlock()
	auth, err := j.loadAuth()
	if err != nil {
		return err
	}
	auth[d] = s
	data, err := json.MarshalIndent(auth, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode auth: %w", err)
	}
	return os.WriteFile(filepath.Join(j.dir, authFile), data, 0o600)
}

func (j *Journal) requireAuth(d models.Domain) error {
	auth, err := j.loadAuth()
	if err != nil {
		return err
	}
	if auth[d] != AuthAuthorized {
		return fmt.Errorf("%s: %w", d, ErrNotAuthorized)
	}
	return nil
}

// AuthorizationStatus implements Store.
func (j *Journal) AuthorizationStatus(d models.Domain) AuthStatus {
	j.mu.Lock()
	defer j.mu.Unlock()
	auth, err := j.loadAuth()
	if err != nil {
		j.logger.Warn("reading auth", "err", err)
		return AuthNotDetermined
	}
	return auth[d]
}

// RequestAuthorization implements Store. An undetermined domain is granted;
// a denied domain stays denied until SetAuthorization changes it.
func (j *Journal) RequestAuthorization(ctx context.Context, d models.Domain) error {
	status := j.AuthorizationStatus(d)
	switch status {
	case AuthAuthorized:
		return nil
	case AuthDenied:
		return fmt.Errorf("%s: %w", d, ErrNotAuthorized)
	}
	return j.SetAuthorization(d, AuthAuthorized)
}

// FetchIncremental implements Store.
func (j *Journal) FetchIncremental(ctx context.Context, d models.Domain, anchor Anchor, r DateRange) (*FetchResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	if err := j.requireAuth(d); err != nil {
		return nil, err
	}
	l, err := j.load(d)
	if err != nil {
		return nil, err
	}
	return l.fetch(anchor, r)
}

// Write implements Store.
func (j *Journal) Write(ctx context.Context, item Item) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	if err := j.requireAuth(item.Domain); err != nil {
		return "", err
	}
	unlock, err := j.lockFile(filepath.Base(j.path(item.Domain)))
	if err != nil {
		return "", err
	}
	defer unlock()
	l, err := j.load(item.Domain)
	if err != nil {
		return "", err
	}
	if item.Identifier == "" {
		item.Identifier = newIdentifier()
	}
	if err := j.append(item.Domain, l.record(opWrite, item)); err != nil {
		return "", err
	}
	return item.Identifier, nil
}

// DeleteByIdentifier implements Store.
func (j *Journal) DeleteByIdentifier(ctx context.Context, d models.Domain, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	if err := j.requireAuth(d); err != nil {
		return err
	}
	unlock, err := j.lockFile(filepath.Base(j.path(d)))
	if err != nil {
		return err
	}
	defer unlock()
	l, err := j.load(d)
	if err != nil {
		return err
	}
	item, ok := l.lookup(id)
	if !ok {
		return fmt.Errorf("%s %s: %w", d, id, ErrNotFound)
	}
	return j.append(d, l.record(opDelete, item))
}

// FindMatchingIdentifier implements Store.
func (j *Journal) FindMatchingIdentifier(ctx context.Context, d models.Domain, at time.Time, value float64) (string, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if err := j.requireAuth(d); err != nil {
		return "", err
	}
	l, err := j.load(d)
	if err != nil {
		return "", err
	}
	return l.findMatching(at, value), nil
}

// Items returns the live items for d in start order.
func (j *Journal) Items(d models.Domain) ([]Item, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	l, err := j.load(d)
	if err != nil {
		return nil, err
	}
	var out []Item
	for _, item := range l.live() {
		out = append(out, item)
	}
	sortItems(out)
	return out, nil
}

// RegisterObserver implements Store. The directory watcher starts with the
// first registration.
func (j *Journal) RegisterObserver(d models.Domain, onChange func()) (Subscription, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if err := j.requireAuth(d); err != nil {
		return 0, err
	}
	if err := j.startWatcher(); err != nil {
		return 0, err
	}
	j.nextSub++
	sub := j.nextSub
	if j.observers[d] == nil {
		j.observers[d] = make(map[Subscription]func())
	}
	j.observers[d][sub] = onChange
	j.owners[sub] = d
	return sub, nil
}

// Unregister implements Store.
func (j *Journal) Unregister(sub Subscription) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	d, ok := j.owners[sub]
	if !ok {
		return fmt.Errorf("subscription %d: %w", sub, ErrNotFound)
	}
	delete(j.owners, sub)
	delete(j.observers[d], sub)
	return nil
}

// startWatcher is a no-op once running. Caller holds mu.
func (j *Journal) startWatcher() error {
	if j.watcher != nil {
		return nil
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	if err := w.Add(j.dir); err != nil {
		_ = w.Close()
		return fmt.Errorf("failed to watch %s: %w", j.dir, err)
	}
	j.watcher = w
	j.done = make(chan struct{})
	j.wg.Add(1)
	go j.processEvents(w, j.done)
	return nil
}

func (j *Journal) processEvents(w *fsnotify.Watcher, done chan struct{}) {
	defer j.wg.Done()
	for {
		select {
		case <-done:
			return
		case event, ok := <-w.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			name := filepath.Base(event.Name)
			if !strings.HasSuffix(name, ".jsonl") {
				continue
			}
			d := models.Domain(strings.TrimSuffix(name, ".jsonl"))
			if models.IsValidDomain(string(d)) {
				j.schedule(d)
			}
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			j.logger.Warn("watcher error", "err", err)
		}
	}
}

// schedule fires d's observers once the debounce window passes quietly.
func (j *Journal) schedule(d models.Domain) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if t, ok := j.timers[d]; ok {
		t.Stop()
	}
	j.timers[d] = time.AfterFunc(j.debounce, func() {
		j.mu.Lock()
		callbacks := make([]func(), 0, len(j.observers[d]))
		for _, fn := range j.observers[d] {
			callbacks = append(callbacks, fn)
		}
		delete(j.timers, d)
		j.mu.Unlock()
		notify(callbacks)
	})
}

// Close stops the watcher and pending notifications.
func (j *Journal) Close() error {
	j.mu.Lock()
	w, done := j.watcher, j.done
	j.watcher, j.done = nil, nil
	for d, t := range j.timers {
		t.Stop()
		delete(j.timers, d)
	}
	j.mu.Unlock()

	if w == nil {
		return nil
	}
	close(done)
	err := w.Close()
	j.wg.Wait()
	if err != nil {
		return fmt.Errorf("failed to close watcher: %w", err)
	}
	return nil
}
