// ABOUTME: Sync preference and sync run records persisted per domain.
package models

import "time"

// SyncPreference is the user's per-domain sync choice.
type SyncPreference struct {
	Enabled               bool `json:"sync_enabled"`
	InitialImportComplete bool `json:"initial_import_complete"`
}

// SyncStrategy names which reconciliation path produced a run.
type SyncStrategy string

const (
	StrategyObserver   SyncStrategy = "observer"
	StrategyHistorical SyncStrategy = "historical"
	StrategyReset      SyncStrategy = "reset"
)

// SyncRun is one completed (or failed) sync attempt.
type SyncRun struct {
	ID         string       `json:"id"`
	Domain     Domain       `json:"domain"`
	Strategy   SyncStrategy `json:"strategy"`
	Added      int          `json:"added"`
	Removed    int          `json:"removed"`
	Fetched    int          `json:"fetched"`
	Error      string       `json:"error,omitempty"`
	StartedAt  time.Time    `json:"started_at"`
	FinishedAt time.Time    `json:"finished_at"`
}

// Succeeded reports whether the run completed without error.
func (r *SyncRun) Succeeded() bool {
	return r.Error == ""
}
