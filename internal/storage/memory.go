// ABOUTME: In-memory Repository used by tests and ephemeral sessions.
// ABOUTME: Mirrors the key-value layout of the Badger and Charm backends.
package storage

import (
	"fmt"
	"strings"
	"sync"

	"github.com/harperreed/healthsync/internal/models"
)

// Memory is a map-backed Repository. The zero value is not usable; call NewMemory.
type Memory struct {
	mu   sync.RWMutex
	data map[string][]byte

	// FailPuts makes every Put return this error when set.
	FailPuts error
}

// NewMemory returns an empty in-memory repository.
func NewMemory() *Memory {
	return &Memory{data: make(map[string][]byte)}
}

// Get implements Repository.
func (m *Memory) Get(kind Kind, d models.Domain) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[recordKey(kind, d)]
	if !ok {
		return nil, fmt.Errorf("%s: %w", recordKey(kind, d), ErrNotFound)
	}
	return append([]byte(nil), v...), nil
}

// Put implements Repository.
func (m *Memory) Put(kind Kind, d models.Domain, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailPuts != nil {
		return m.FailPuts
	}
	m.data[recordKey(kind, d)] = append([]byte(nil), data...)
	return nil
}

// Delete implements Repository.
func (m *Memory) Delete(kind Kind, d models.Domain) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, recordKey(kind, d))
	return nil
}

// RecordSyncRun implements Repository.
func (m *Memory) RecordSyncRun(run *models.SyncRun) error {
	data, err := EncodeSyncRun(run)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[SyncRunKey(run)] = data
	return nil
}

// ListSyncRuns implements Repository.
func (m *Memory) ListSyncRuns(d *models.Domain, limit int) ([]*models.SyncRun, error) {
	m.mu.RLock()
	var values [][]byte
	for k, v := range m.data {
		if strings.HasPrefix(k, SyncRunPrefix) {
			values = append(values, v)
		}
	}
	m.mu.RUnlock()
	return DecodeSyncRuns(values, d, limit)
}

// Close implements Repository.
func (m *Memory) Close() error {
	return nil
}
