// ABOUTME: Persists aggregate snapshots as a cache record per domain.
// ABOUTME: The cache is never read back as truth; it exists for fast startup display.
package aggregate

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/harperreed/healthsync/internal/models"
	"github.com/harperreed/healthsync/internal/storage"
)

// Cache reads and writes Snapshot records.
type Cache struct {
	repo storage.Repository
}

// NewCache returns a cache over repo.
func NewCache(repo storage.Repository) *Cache {
	return &Cache{repo: repo}
}

// Save writes s as the domain's aggregate record.
func (c *Cache) Save(s Snapshot) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode aggregate: %w", err)
	}
	return c.repo.Put(storage.KindAggregate, s.Domain, data)
}

// Load returns the cached snapshot; ok is false when none is stored.
func (c *Cache) Load(d models.Domain) (Snapshot, bool, error) {
	data, err := c.repo.Get(storage.KindAggregate, d)
	if errors.Is(err, storage.ErrNotFound) {
		return Snapshot{}, false, nil
	}
	if err != nil {
		return Snapshot{}, false, err
	}
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return Snapshot{}, false, fmt.Errorf("decode aggregate: %w", err)
	}
	return s, true, nil
}
