// ABOUTME: healthsync configuration management with backend and platform selection.
// ABOUTME: Handles settings, goals, environment overrides, and storage/platform factories.

package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/oklog/ulid/v2"

	"github.com/harperreed/healthsync/internal/charm"
	"github.com/harperreed/healthsync/internal/healthstore"
	"github.com/harperreed/healthsync/internal/logging"
	"github.com/harperreed/healthsync/internal/storage"
)

// Backends accepted by OpenStorage.
const (
	BackendSQLite   = "sqlite"
	BackendBadger   = "badger"
	BackendPostgres = "postgres"
	BackendCharm    = "charm"
)

// Platform kinds accepted by OpenPlatform.
const (
	PlatformJournal = "journal"
	PlatformMemory  = "memory"
)

// Platform selects the external health store implementation.
type Platform struct {
	// Kind is "journal" (default) or "memory".
	Kind string `json:"kind,omitempty"`
	// Dir holds the journal files. Defaults to <data_dir>/platform.
	Dir string `json:"dir,omitempty"`
}

// Config stores healthsync configuration.
type Config struct {
	// Backend selects the storage backend: "sqlite" (default), "badger",
	// "postgres", or "charm".
	Backend string `json:"backend,omitempty"`

	// DataDir is the root directory for data storage.
	// SQLite puts healthsync.db here; Badger uses a badger/ subdirectory.
	// Supports ~ expansion for home directory. Defaults to ~/.local/share/healthsync.
	DataDir string `json:"data_dir,omitempty"`

	// DatabaseURL is the PostgreSQL connection string for the postgres backend.
	DatabaseURL string `json:"database_url,omitempty"`

	// CharmHost overrides the Charm server for the charm backend.
	CharmHost string `json:"charm_host,omitempty"`

	Platform Platform `json:"platform,omitzero"`

	// SuppressionDelay is how long observer syncs stay suppressed after a
	// write-through, as a Go duration string.
	SuppressionDelay string `json:"suppression_delay,omitempty"`

	FastingGoalHours float64 `json:"fasting_goal_hours,omitempty"`
	HydrationGoalML  float64 `json:"hydration_goal_ml,omitempty"`

	LogLevel string `json:"log_level,omitempty"`
	LogFile  string `json:"log_file,omitempty"`

	// DeviceID tags items this install writes to the platform.
	DeviceID string `json:"device_id,omitempty"`
}

// GetBackend returns the configured backend, defaulting to "sqlite".
// HEALTHSYNC_BACKEND overrides the file.
func (c *Config) GetBackend() string {
	if env := os.Getenv("HEALTHSYNC_BACKEND"); env != "" {
		return env
	}
	if c.Backend == "" {
		return BackendSQLite
	}
	return c.Backend
}

// GetDataDir returns the configured data directory with ~ expanded,
// defaulting to the standard XDG data directory. HEALTHSYNC_DATA_DIR
// overrides the file.
func (c *Config) GetDataDir() string {
	if env := os.Getenv("HEALTHSYNC_DATA_DIR"); env != "" {
		return ExpandPath(env)
	}
	if c.DataDir == "" {
		return storage.DataDir()
	}
	return ExpandPath(c.DataDir)
}

// GetDatabaseURL returns the postgres connection string. DATABASE_URL
// overrides the file.
func (c *Config) GetDatabaseURL() string {
	if env := os.Getenv("DATABASE_URL"); env != "" {
		return env
	}
	return c.DatabaseURL
}

// GetPlatformKind returns the platform kind, defaulting to "journal".
func (c *Config) GetPlatformKind() string {
	if c.Platform.Kind == "" {
		return PlatformJournal
	}
	return c.Platform.Kind
}

// GetPlatformDir returns the journal directory.
func (c *Config) GetPlatformDir() string {
	if c.Platform.Dir == "" {
		return filepath.Join(c.GetDataDir(), "platform")
	}
	return ExpandPath(c.Platform.Dir)
}

// GetSuppressionDelay parses the suppression delay. Zero means the engine default.
func (c *Config) GetSuppressionDelay() (time.Duration, error) {
	if c.SuppressionDelay == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.SuppressionDelay)
	if err != nil {
		return 0, fmt.Errorf("parse suppression_delay: %w", err)
	}
	if d < 0 {
		return 0, fmt.Errorf("suppression_delay must not be negative: %s", d)
	}
	return d, nil
}

// LoggingOptions maps the log settings onto logging.Options.
func (c *Config) LoggingOptions() logging.Options {
	return logging.Options{Level: c.LogLevel, File: ExpandPath(c.LogFile)}
}

// EnsureDeviceID assigns a device ID if missing and reports whether it did.
func (c *Config) EnsureDeviceID() bool {
	if c.DeviceID != "" {
		return false
	}
	c.DeviceID = ulid.Make().String()
	return true
}

// ExpandPath expands a leading ~ to the user's home directory.
func ExpandPath(path string) string {
	if path == "" {
		return ""
	}
	if path == "~" {
		home, _ := os.UserHomeDir()
		return home
	}
	if strings.HasPrefix(path, "~/") {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, path[2:])
	}
	return path
}

// OpenStorage creates a Repository implementation based on the configured backend.
func (c *Config) OpenStorage(logger *log.Logger) (storage.Repository, error) {
	return c.OpenBackend(c.GetBackend(), logger)
}

// OpenBackend opens the named backend using this config's locations.
func (c *Config) OpenBackend(backend string, logger *log.Logger) (storage.Repository, error) {
	dataDir := c.GetDataDir()

	switch backend {
	case BackendSQLite:
		return storage.Open(filepath.Join(dataDir, "healthsync.db"))
	case BackendBadger:
		return storage.OpenBadger(filepath.Join(dataDir, "badger"), logger)
	case BackendPostgres:
		url := c.GetDatabaseURL()
		if url == "" {
			return nil, fmt.Errorf("postgres backend requires database_url or DATABASE_URL")
		}
		return storage.OpenPostgres(url)
	case BackendCharm:
		return charm.InitClient(c.CharmHost, logger)
	default:
		return nil, fmt.Errorf("unknown backend: %q", backend)
	}
}

// OpenPlatform creates the external health store for the configured kind.
func (c *Config) OpenPlatform(logger *log.Logger) (healthstore.Store, error) {
	switch kind := c.GetPlatformKind(); kind {
	case PlatformJournal:
		return healthstore.OpenJournal(c.GetPlatformDir(), logger)
	case PlatformMemory:
		return healthstore.NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown platform: %q", kind)
	}
}

// GetConfigPath returns the config file path.
func GetConfigPath() string {
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, _ := os.UserHomeDir()
		configDir = filepath.Join(homeDir, ".config")
	}
	return filepath.Join(configDir, "healthsync", "config.json")
}

// Load reads config from disk.
func Load() (*Config, error) {
	path := GetConfigPath()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Config{}, nil
		}
		return nil, err
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Save writes config to disk.
func (c *Config) Save() error {
	path := GetConfigPath()
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}
