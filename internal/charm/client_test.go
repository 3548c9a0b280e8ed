// ABOUTME: Unit tests for the Charm-backed repository.
// ABOUTME: Uses an in-memory fake of the KV store to check keys, sync calls, and read-only mode.
package charm

import (
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/harperreed/healthsync/internal/models"
	"github.com/harperreed/healthsync/internal/storage"
)

type fakeKV struct {
	data     map[string][]byte
	readOnly bool
	syncs    int
	resets   int
}

func newFakeKV() *fakeKV {
	return &fakeKV{data: make(map[string][]byte)}
}

func (f *fakeKV) Get(key []byte) ([]byte, error) {
	v, ok := f.data[string(key)]
	if !ok {
		return nil, errors.New("missing")
	}
	return v, nil
}

func (f *fakeKV) Set(key, value []byte) error {
	f.data[string(key)] = value
	return nil
}

func (f *fakeKV) Delete(key []byte) error {
	delete(f.data, string(key))
	return nil
}

func (f *fakeKV) Keys() ([][]byte, error) {
	var keys []string
	for k := range f.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([][]byte, len(keys))
	for i, k := range keys {
		out[i] = []byte(k)
	}
	return out, nil
}

func (f *fakeKV) Sync() error      { f.syncs++; return nil }
func (f *fakeKV) Reset() error     { f.resets++; f.data = make(map[string][]byte); return nil }
func (f *fakeKV) IsReadOnly() bool { return f.readOnly }
func (f *fakeKV) Close() error     { return nil }

func TestRecordKeyFormat(t *testing.T) {
	store := newFakeKV()
	c := NewClient(store, nil)

	if err := c.Put(storage.KindHistory, models.DomainWeight, []byte("[]")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if _, ok := store.data["history:weight"]; !ok {
		t.Errorf("expected key history:weight, have %v", store.data)
	}
	if store.syncs != 1 {
		t.Errorf("expected one sync after write, got %d", store.syncs)
	}
}

func TestGetMissingIsNotFound(t *testing.T) {
	c := NewClient(newFakeKV(), nil)
	if _, err := c.Get(storage.KindAnchor, models.DomainSleep); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Get = %v, want ErrNotFound", err)
	}
}

func TestAutoSyncDisabled(t *testing.T) {
	store := newFakeKV()
	c := NewClient(store, nil)
	c.SetAutoSync(false)
	if err := c.Put(storage.KindAnchor, models.DomainMood, []byte("v1:1")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := c.Delete(storage.KindAnchor, models.DomainMood); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if store.syncs != 0 {
		t.Errorf("expected no syncs, got %d", store.syncs)
	}
	if err := c.Sync(); err != nil || store.syncs != 1 {
		t.Errorf("explicit Sync: err=%v syncs=%d", err, store.syncs)
	}
}

func TestReadOnlyRejectsWrites(t *testing.T) {
	store := newFakeKV()
	store.readOnly = true
	c := NewClient(store, nil)

	if err := c.Put(storage.KindHistory, models.DomainWeight, []byte("[]")); !errors.Is(err, ErrReadOnly) {
		t.Errorf("Put = %v, want ErrReadOnly", err)
	}
	if err := c.Delete(storage.KindHistory, models.DomainWeight); !errors.Is(err, ErrReadOnly) {
		t.Errorf("Delete = %v, want ErrReadOnly", err)
	}
	if err := c.Sync(); err != nil {
		t.Errorf("Sync in read-only mode should be a no-op, got %v", err)
	}
}

func TestSyncRunsByDomain(t *testing.T) {
	c := NewClient(newFakeKV(), nil)
	start := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	for i, d := range []models.Domain{models.DomainWeight, models.DomainMood, models.DomainWeight} {
		run := &models.SyncRun{ID: string(rune('a' + i)), Domain: d, Strategy: models.StrategyObserver,
			StartedAt: start.Add(time.Duration(i) * time.Minute), FinishedAt: start}
		if err := c.RecordSyncRun(run); err != nil {
			t.Fatalf("RecordSyncRun failed: %v", err)
		}
	}

	weight := models.DomainWeight
	runs, err := c.ListSyncRuns(&weight, 0)
	if err != nil {
		t.Fatalf("ListSyncRuns failed: %v", err)
	}
	if len(runs) != 2 || runs[0].ID != "c" {
		t.Errorf("unexpected weight runs: %+v", runs)
	}
}

func TestResetClearsLocal(t *testing.T) {
	store := newFakeKV()
	c := NewClient(store, nil)
	_ = c.Put(storage.KindHistory, models.DomainWeight, []byte("[]"))
	if err := c.Reset(); err != nil {
		t.Fatalf("Reset failed: %v", err)
	}
	if store.resets != 1 || len(store.data) != 0 {
		t.Errorf("reset did not clear store: %+v", store)
	}
}

var _ storage.Repository = (*Client)(nil)
