// ABOUTME: Record and sync run operations for SQLite storage.
// ABOUTME: Implements Repository interface methods on the records and sync_runs tables.
package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/harperreed/healthsync/internal/models"
)

// runTimeLayout is fixed width so text ordering matches time ordering.
const runTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Get returns the stored blob for kind and domain.
func (d *DB) Get(kind Kind, domain models.Domain) ([]byte, error) {
	var data []byte
	err := d.db.QueryRow(
		`SELECT data FROM records WHERE kind = ? AND domain = ?`,
		string(kind), string(domain),
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", recordKey(kind, domain), ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get record: %w", err)
	}
	return data, nil
}

// Put replaces the blob for kind and domain.
func (d *DB) Put(kind Kind, domain models.Domain, data []byte) error {
	query := `
		INSERT INTO records (kind, domain, data, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(kind, domain) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at
	`
	_, err := d.db.Exec(query, string(kind), string(domain), data, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("put record: %w", err)
	}
	return nil
}

// Delete removes the blob for kind and domain. Missing records are not an error.
func (d *DB) Delete(kind Kind, domain models.Domain) error {
	_, err := d.db.Exec(`DELETE FROM records WHERE kind = ? AND domain = ?`, string(kind), string(domain))
	if err != nil {
		return fmt.Errorf("delete record: %w", err)
	}
	return nil
}

// RecordSyncRun appends a run to the log.
func (d *DB) RecordSyncRun(run *models.SyncRun) error {
	query := `
		INSERT INTO sync_runs (id, domain, strategy, added, removed, fetched, error, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	var errText *string
	if run.Error != "" {
		errText = &run.Error
	}
	_, err := d.db.Exec(query,
		run.ID,
		string(run.Domain),
		string(run.Strategy),
		run.Added,
		run.Removed,
		run.Fetched,
		errText,
		run.StartedAt.UTC().Format(runTimeLayout),
		run.FinishedAt.UTC().Format(runTimeLayout),
	)
	if err != nil {
		return fmt.Errorf("record sync run: %w", err)
	}
	return nil
}

// ListSyncRuns returns runs, most recent first.
func (d *DB) ListSyncRuns(domain *models.Domain, limit int) ([]*models.SyncRun, error) {
	query := `
		SELECT id, domain, strategy, added, removed, fetched, error, started_at, finished_at
		FROM sync_runs
	`
	var args []interface{}
	if domain != nil {
		query += ` WHERE domain = ?`
		args = append(args, string(*domain))
	}
	query += ` ORDER BY started_at DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := d.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list sync runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []*models.SyncRun
	for rows.Next() {
		run, err := scanSyncRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func scanSyncRun(rows *sql.Rows) (*models.SyncRun, error) {
	var run models.SyncRun
	var domain, strategy, startedAt, finishedAt string
	var errText sql.NullString
	if err := rows.Scan(&run.ID, &domain, &strategy, &run.Added, &run.Removed, &run.Fetched,
		&errText, &startedAt, &finishedAt); err != nil {
		return nil, fmt.Errorf("scan sync run: %w", err)
	}
	run.Domain = models.Domain(domain)
	run.Strategy = models.SyncStrategy(strategy)
	run.Error = errText.String

	var err error
	if run.StartedAt, err = time.Parse(runTimeLayout, startedAt); err != nil {
		return nil, fmt.Errorf("parse started_at: %w", err)
	}
	if run.FinishedAt, err = time.Parse(runTimeLayout, finishedAt); err != nil {
		return nil, fmt.Errorf("parse finished_at: %w", err)
	}
	return &run, nil
}
