// ABOUTME: PostgreSQL Repository for shared or server-side installs.
// ABOUTME: Uses lib/pq with pooled connections and idempotent migrations at open.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/harperreed/healthsync/internal/models"
)

// Postgres implements Repository on a PostgreSQL database.
type Postgres struct {
	sql *sql.DB
}

// OpenPostgres connects, pings, and runs migrations.
func OpenPostgres(connStr string) (*Postgres, error) {
	s, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}
	s.SetMaxOpenConns(10)
	s.SetMaxIdleConns(5)
	s.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.PingContext(ctx); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	p := &Postgres{sql: s}
	if err := p.migrate(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}
	return p, nil
}

func (p *Postgres) migrate(ctx context.Context) error {
	stmts := []string{
		"CREATE TABLE IF NOT EXISTS records (kind TEXT NOT NULL, domain TEXT NOT NULL, data BYTEA NOT NULL, updated_at TIMESTAMPTZ NOT NULL, PRIMARY KEY (kind, domain));",
		"CREATE TABLE IF NOT EXISTS sync_runs (id TEXT PRIMARY KEY, domain TEXT NOT NULL, strategy TEXT NOT NULL, added INTEGER NOT NULL, removed INTEGER NOT NULL, fetched INTEGER NOT NULL, error TEXT, started_at TIMESTAMPTZ NOT NULL, finished_at TIMESTAMPTZ NOT NULL);",
		"CREATE INDEX IF NOT EXISTS idx_sync_runs_domain_started ON sync_runs(domain, started_at DESC);",
	}
	for _, stmt := range stmts {
		if _, err := p.sql.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// Get implements Repository.
func (p *Postgres) Get(kind Kind, d models.Domain) ([]byte, error) {
	var data []byte
	err := p.sql.QueryRow(`SELECT data FROM records WHERE kind = $1 AND domain = $2`, string(kind), string(d)).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", recordKey(kind, d), ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get record: %w", err)
	}
	return data, nil
}

// Put implements Repository.
func (p *Postgres) Put(kind Kind, d models.Domain, data []byte) error {
	_, err := p.sql.Exec(`
		INSERT INTO records (kind, domain, data, updated_at) VALUES ($1, $2, $3, $4)
		ON CONFLICT (kind, domain) DO UPDATE SET data = EXCLUDED.data, updated_at = EXCLUDED.updated_at`,
		string(kind), string(d), data, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("put record: %w", err)
	}
	return nil
}

// Delete implements Repository.
func (p *Postgres) Delete(kind Kind, d models.Domain) error {
	if _, err := p.sql.Exec(`DELETE FROM records WHERE kind = $1 AND domain = $2`, string(kind), string(d)); err != nil {
		return fmt.Errorf("delete record: %w", err)
	}
	return nil
}

// RecordSyncRun implements Repository.
func (p *Postgres) RecordSyncRun(run *models.SyncRun) error {
	var errText sql.NullString
	if run.Error != "" {
		errText = sql.NullString{String: run.Error, Valid: true}
	}
	_, err := p.sql.Exec(`
		INSERT INTO sync_runs (id, domain, strategy, added, removed, fetched, error, started_at, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		run.ID, string(run.Domain), string(run.Strategy), run.Added, run.Removed, run.Fetched,
		errText, run.StartedAt.UTC(), run.FinishedAt.UTC())
	if err != nil {
		return fmt.Errorf("record sync run: %w", err)
	}
	return nil
}

// ListSyncRuns implements Repository.
func (p *Postgres) ListSyncRuns(d *models.Domain, limit int) ([]*models.SyncRun, error) {
	query := `SELECT id, domain, strategy, added, removed, fetched, error, started_at, finished_at FROM sync_runs`
	var args []interface{}
	if d != nil {
		args = append(args, string(*d))
		query += fmt.Sprintf(" WHERE domain = $%d", len(args))
	}
	query += " ORDER BY started_at DESC"
	if limit > 0 {
		args = append(args, limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := p.sql.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list sync runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []*models.SyncRun
	for rows.Next() {
		var run models.SyncRun
		var domain, strategy string
		var errText sql.NullString
		if err := rows.Scan(&run.ID, &domain, &strategy, &run.Added, &run.Removed, &run.Fetched,
			&errText, &run.StartedAt, &run.FinishedAt); err != nil {
			return nil, fmt.Errorf("scan sync run: %w", err)
		}
		run.Domain = models.Domain(domain)
		run.Strategy = models.SyncStrategy(strategy)
		run.Error = errText.String
		runs = append(runs, &run)
	}
	return runs, rows.Err()
}

// Close implements Repository.
func (p *Postgres) Close() error {
	return p.sql.Close()
}
