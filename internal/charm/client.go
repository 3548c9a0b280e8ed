// ABOUTME: Charm KV client wrapper for sync state storage.
// ABOUTME: Implements storage.Repository with thread-safe initialization and automatic cloud sync.
package charm

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/charmbracelet/charm/client"
	"github.com/charmbracelet/charm/kv"
	"github.com/charmbracelet/log"

	"github.com/harperreed/healthsync/internal/models"
	"github.com/harperreed/healthsync/internal/storage"
)

const (
	dbName           = "healthsync"
	defaultCharmHost = "charm.2389.dev"
)

// ErrReadOnly is returned by writes while another process holds the database lock.
var ErrReadOnly = errors.New("cannot write: database is locked by another process (MCP server?)")

var (
	globalClient *Client
	clientOnce   sync.Once
	clientErr    error
)

// Store is the subset of *kv.KV the client relies on.
type Store interface {
	Get(key []byte) ([]byte, error)
	Set(key, value []byte) error
	Delete(key []byte) error
	Keys() ([][]byte, error)
	Sync() error
	Reset() error
	IsReadOnly() bool
	Close() error
}

// Client stores records as Charm KV values keyed by kind and domain.
type Client struct {
	kv       Store
	autoSync bool
	logger   *log.Logger
	mu       sync.RWMutex
}

// InitClient initializes the global Charm client against host.
// Thread-safe; can be called multiple times. An empty host uses the default.
func InitClient(host string, logger *log.Logger) (*Client, error) {
	clientOnce.Do(func() {
		if host == "" {
			host = defaultCharmHost
		}
		// Set server before opening KV
		if err := os.Setenv("CHARM_HOST", host); err != nil {
			clientErr = err
			return
		}

		db, err := kv.OpenWithDefaultsFallback(dbName)
		if err != nil {
			clientErr = err
			return
		}

		globalClient = NewClient(db, logger)

		// Pull remote data on startup (skip in read-only mode)
		if !db.IsReadOnly() {
			if err := db.Sync(); err != nil {
				globalClient.logger.Warn("initial cloud sync failed", "err", err)
			}
		}
	})

	return globalClient, clientErr
}

// NewClient wraps an opened store. Auto sync starts enabled.
func NewClient(store Store, logger *log.Logger) *Client {
	if logger == nil {
		logger = log.Default()
	}
	return &Client{kv: store, autoSync: true, logger: logger.WithPrefix("charm")}
}

// Close closes the KV database connection.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.kv != nil {
		return c.kv.Close()
	}
	return nil
}

// IsReadOnly returns true if the database is open in read-only mode.
// This happens when another process (like an MCP server) holds the lock.
func (c *Client) IsReadOnly() bool {
	return c.kv.IsReadOnly()
}

// Sync synchronizes local state with Charm Cloud.
func (c *Client) Sync() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.kv.IsReadOnly() {
		return nil
	}
	return c.kv.Sync()
}

// syncIfEnabled calls Sync if autoSync is enabled. Caller holds mu.
func (c *Client) syncIfEnabled() {
	if c.autoSync && !c.kv.IsReadOnly() {
		if err := c.kv.Sync(); err != nil {
			c.logger.Warn("cloud sync after write failed", "err", err)
		}
	}
}

// SetAutoSync enables or disables automatic sync after writes.
func (c *Client) SetAutoSync(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.autoSync = enabled
}

// ID returns the Charm user ID for the current account.
func (c *Client) ID() (string, error) {
	cc, err := client.NewClientWithDefaults()
	if err != nil {
		return "", fmt.Errorf("create charm client: %w", err)
	}
	return cc.ID()
}

// Reset wipes local data and rebuilds from Charm Cloud.
func (c *Client) Reset() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.kv.Reset()
}

// Get implements storage.Repository.
func (c *Client) Get(kind storage.Kind, d models.Domain) ([]byte, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	key := storage.RecordKey(kind, d)
	exists, err := c.hasKey([]byte(key))
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("%s: %w", key, storage.ErrNotFound)
	}
	return c.kv.Get([]byte(key))
}

// Put implements storage.Repository.
func (c *Client) Put(kind storage.Kind, d models.Domain, data []byte) error {
	return c.set(storage.RecordKey(kind, d), data)
}

// Delete implements storage.Repository.
func (c *Client) Delete(kind storage.Kind, d models.Domain) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.kv.IsReadOnly() {
		return ErrReadOnly
	}
	key := []byte(storage.RecordKey(kind, d))
	exists, err := c.hasKey(key)
	if err != nil || !exists {
		return err
	}
	if err := c.kv.Delete(key); err != nil {
		return err
	}
	c.syncIfEnabled()
	return nil
}

// RecordSyncRun implements storage.Repository.
func (c *Client) RecordSyncRun(run *models.SyncRun) error {
	data, err := storage.EncodeSyncRun(run)
	if err != nil {
		return err
	}
	return c.set(storage.SyncRunKey(run), data)
}

// ListSyncRuns implements storage.Repository.
func (c *Client) ListSyncRuns(d *models.Domain, limit int) ([]*models.SyncRun, error) {
	prefix := storage.SyncRunPrefix
	if d != nil {
		prefix += string(*d) + ":"
	}
	values, err := c.listByPrefix(prefix)
	if err != nil {
		return nil, err
	}
	return storage.DecodeSyncRuns(values, d, limit)
}

// set stores a value with the given key.
func (c *Client) set(key string, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.kv.IsReadOnly() {
		return ErrReadOnly
	}

	if err := c.kv.Set([]byte(key), data); err != nil {
		return err
	}
	c.syncIfEnabled()
	return nil
}

// hasKey reports whether key exists. Caller holds mu.
func (c *Client) hasKey(key []byte) (bool, error) {
	keys, err := c.kv.Keys()
	if err != nil {
		return false, err
	}
	for _, k := range keys {
		if bytes.Equal(k, key) {
			return true, nil
		}
	}
	return false, nil
}

// listByPrefix returns all values with keys matching the given prefix.
func (c *Client) listByPrefix(prefix string) ([][]byte, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var results [][]byte
	prefixBytes := []byte(prefix)

	keys, err := c.kv.Keys()
	if err != nil {
		return nil, err
	}

	for _, key := range keys {
		if bytes.HasPrefix(key, prefixBytes) {
			val, err := c.kv.Get(key)
			if err != nil {
				return nil, err
			}
			results = append(results, val)
		}
	}

	return results, nil
}
