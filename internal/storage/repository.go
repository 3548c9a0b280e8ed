// ABOUTME: Repository interface for persisted sync state.
// ABOUTME: Stores per-domain history, anchors, preferences, aggregates, and the sync run log.
package storage

import (
	"errors"

	"github.com/harperreed/healthsync/internal/models"
)

// ErrNotFound is returned by Get when no record exists for a kind and domain.
var ErrNotFound = errors.New("record not found")

// Kind names one persisted record per domain.
type Kind string

const (
	KindHistory     Kind = "history"
	KindAnchor      Kind = "anchor"
	KindPreferences Kind = "preferences"
	KindAggregate   Kind = "aggregate"
)

// AllKinds lists every record kind, in migration order.
var AllKinds = []Kind{KindHistory, KindAnchor, KindPreferences, KindAggregate}

// Repository defines the storage interface for sync state.
// This interface allows swapping implementations (e.g., for testing).
type Repository interface {
	// Record operations. Values are opaque encoded blobs.
	Get(kind Kind, d models.Domain) ([]byte, error)
	Put(kind Kind, d models.Domain, data []byte) error
	Delete(kind Kind, d models.Domain) error

	// Sync run log. A nil domain lists every domain; limit <= 0 means all.
	// Results are sorted by StartedAt descending.
	RecordSyncRun(run *models.SyncRun) error
	ListSyncRuns(d *models.Domain, limit int) ([]*models.SyncRun, error)

	// Lifecycle
	Close() error
}

func recordKey(kind Kind, d models.Domain) string {
	return string(kind) + ":" + string(d)
}
