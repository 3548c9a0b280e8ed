// ABOUTME: SQLite schema migrations tracked with PRAGMA user_version.
// ABOUTME: Defines tables for per-domain records and the sync run log.
package storage

import "fmt"

// sqliteMigrations run in order; entry i moves the schema to version i+1.
var sqliteMigrations = []string{
	`CREATE TABLE IF NOT EXISTS records (
		kind TEXT NOT NULL,
		domain TEXT NOT NULL,
		data BLOB NOT NULL,
		updated_at TEXT,
		PRIMARY KEY (kind, domain)
	);
	CREATE TABLE IF NOT EXISTS sync_runs (
		id TEXT PRIMARY KEY,
		domain TEXT NOT NULL,
		strategy TEXT NOT NULL,
		added INTEGER NOT NULL DEFAULT 0,
		removed INTEGER NOT NULL DEFAULT 0,
		error TEXT,
		started_at TEXT NOT NULL,
		finished_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_sync_runs_started ON sync_runs(started_at DESC);`,

	`ALTER TABLE sync_runs ADD COLUMN fetched INTEGER NOT NULL DEFAULT 0;
	CREATE INDEX IF NOT EXISTS idx_sync_runs_domain_started ON sync_runs(domain, started_at DESC);`,
}

func (d *DB) schemaVersion() (int, error) {
	var v int
	err := d.db.QueryRow("PRAGMA user_version").Scan(&v)
	return v, err
}

// migrate applies every migration newer than the stored user_version.
func (d *DB) migrate() error {
	current, err := d.schemaVersion()
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	for i := current; i < len(sqliteMigrations); i++ {
		tx, err := d.db.Begin()
		if err != nil {
			return err
		}
		if _, err := tx.Exec(sqliteMigrations[i]); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d: %w", i+1, err)
		}
		// PRAGMA does not accept bind parameters.
		if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", i+1)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d: %w", i+1, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("migration %d: %w", i+1, err)
		}
	}
	return nil
}
