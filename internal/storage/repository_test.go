// ABOUTME: Tests for Repository interface implementations.
// ABOUTME: Runs the same record and sync run checks against SQLite, Badger, and memory backends.
package storage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/harperreed/healthsync/internal/models"
)

type backendFactory struct {
	name string
	open func(t *testing.T) Repository
}

func backends() []backendFactory {
	return []backendFactory{
		{"sqlite", func(t *testing.T) Repository { return setupTestDB(t) }},
		{"badger", func(t *testing.T) Repository { return setupTestBadger(t) }},
		{"memory", func(t *testing.T) Repository { return NewMemory() }},
	}
}

func TestRecordRoundTrip(t *testing.T) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			repo := b.open(t)

			if _, err := repo.Get(KindHistory, models.DomainWeight); !errors.Is(err, ErrNotFound) {
				t.Fatalf("Get on empty repo: got %v, want ErrNotFound", err)
			}

			if err := repo.Put(KindHistory, models.DomainWeight, []byte(`[1]`)); err != nil {
				t.Fatalf("Put failed: %v", err)
			}
			if err := repo.Put(KindHistory, models.DomainWeight, []byte(`[1,2]`)); err != nil {
				t.Fatalf("Put overwrite failed: %v", err)
			}

			got, err := repo.Get(KindHistory, models.DomainWeight)
			if err != nil {
				t.Fatalf("Get failed: %v", err)
			}
			if string(got) != `[1,2]` {
				t.Errorf("Get = %q, want %q", got, `[1,2]`)
			}

			// Other kinds and domains are independent.
			if _, err := repo.Get(KindAnchor, models.DomainWeight); !errors.Is(err, ErrNotFound) {
				t.Errorf("anchor should be absent, got %v", err)
			}
			if _, err := repo.Get(KindHistory, models.DomainMood); !errors.Is(err, ErrNotFound) {
				t.Errorf("mood history should be absent, got %v", err)
			}
		})
	}
}

func TestRecordDelete(t *testing.T) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			repo := b.open(t)
			if err := repo.Put(KindAnchor, models.DomainSleep, []byte("v1:7")); err != nil {
				t.Fatalf("Put failed: %v", err)
			}
			if err := repo.Delete(KindAnchor, models.DomainSleep); err != nil {
				t.Fatalf("Delete failed: %v", err)
			}
			if _, err := repo.Get(KindAnchor, models.DomainSleep); !errors.Is(err, ErrNotFound) {
				t.Errorf("Get after delete: got %v, want ErrNotFound", err)
			}
			// Deleting a missing record is fine.
			if err := repo.Delete(KindAnchor, models.DomainSleep); err != nil {
				t.Errorf("second Delete failed: %v", err)
			}
		})
	}
}

func TestSyncRunLog(t *testing.T) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			repo := b.open(t)
			start := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)

			runs := []*models.SyncRun{
				{ID: "a", Domain: models.DomainWeight, Strategy: models.StrategyObserver, Added: 1, StartedAt: start, FinishedAt: start.Add(time.Second)},
				{ID: "b", Domain: models.DomainMood, Strategy: models.StrategyHistorical, Fetched: 4, StartedAt: start.Add(time.Minute), FinishedAt: start.Add(time.Minute)},
				{ID: "c", Domain: models.DomainWeight, Strategy: models.StrategyReset, Removed: 2, Error: "boom", StartedAt: start.Add(2 * time.Minute), FinishedAt: start.Add(2 * time.Minute)},
			}
			for _, r := range runs {
				if err := repo.RecordSyncRun(r); err != nil {
					t.Fatalf("RecordSyncRun failed: %v", err)
				}
			}

			all, err := repo.ListSyncRuns(nil, 0)
			if err != nil {
				t.Fatalf("ListSyncRuns failed: %v", err)
			}
			if len(all) != 3 {
				t.Fatalf("Expected 3 runs, got %d", len(all))
			}
			if all[0].ID != "c" || all[2].ID != "a" {
				t.Errorf("Expected most recent first, got %s..%s", all[0].ID, all[2].ID)
			}
			if all[0].Succeeded() || all[0].Error != "boom" {
				t.Errorf("Expected failed run with error, got %+v", all[0])
			}
			if !all[0].StartedAt.Equal(runs[2].StartedAt) {
				t.Errorf("StartedAt mismatch: got %v, want %v", all[0].StartedAt, runs[2].StartedAt)
			}

			weight := models.DomainWeight
			onlyWeight, err := repo.ListSyncRuns(&weight, 1)
			if err != nil {
				t.Fatalf("ListSyncRuns with domain failed: %v", err)
			}
			if len(onlyWeight) != 1 || onlyWeight[0].ID != "c" {
				t.Errorf("Expected latest weight run c, got %+v", onlyWeight)
			}
		})
	}
}

func TestMemoryFailPuts(t *testing.T) {
	repo := NewMemory()
	boom := errors.New("disk full")
	repo.FailPuts = boom
	if err := repo.Put(KindHistory, models.DomainWeight, []byte("x")); !errors.Is(err, boom) {
		t.Errorf("Put = %v, want %v", err, boom)
	}
}

func TestOpenCreatesParentDir(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "nested", "dir", "healthsync.db")
	db, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer db.Close()

	if _, err := os.Stat(filepath.Dir(dbPath)); err != nil {
		t.Errorf("parent dir not created: %v", err)
	}
}

func TestOpenMigratesSchemaOnce(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "healthsync.db")
	for i := 0; i < 2; i++ {
		db, err := Open(dbPath)
		if err != nil {
			t.Fatalf("Open #%d failed: %v", i+1, err)
		}
		v, err := db.schemaVersion()
		if err != nil {
			t.Fatalf("schemaVersion failed: %v", err)
		}
		if v != len(sqliteMigrations) {
			t.Errorf("schema version = %d, want %d", v, len(sqliteMigrations))
		}
		if db.Path() != dbPath {
			t.Errorf("Path() = %q, want %q", db.Path(), dbPath)
		}
		_ = db.Close()
	}

	info, err := os.Stat(dbPath)
	if err != nil {
		t.Fatalf("Stat failed: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("database permissions = %o, want 600", perm)
	}
}

func TestDataDirRespectsXDG(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", "/tmp/xdg-data")
	if got := DataDir(); got != "/tmp/xdg-data/healthsync" {
		t.Errorf("DataDir() = %q", got)
	}
}

// setupTestDB creates a temporary database for testing.
func setupTestDB(t *testing.T) *DB {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "healthsync-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	t.Cleanup(func() { _ = os.RemoveAll(tmpDir) })

	dbPath := filepath.Join(tmpDir, "healthsync.db")
	db, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	return db
}

func setupTestBadger(t *testing.T) *Badger {
	t.Helper()
	b, err := OpenBadger(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("Failed to open badger: %v", err)
	}
	t.Cleanup(func() { b.Close() })
	return b
}
