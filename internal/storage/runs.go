// ABOUTME: Helpers shared by key-value backends for the sync run log.
// ABOUTME: Builds run keys and filters, sorts, and limits decoded runs.
package storage

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/harperreed/healthsync/internal/models"
)

// SyncRunPrefix prefixes every sync run key in key-value backends.
const SyncRunPrefix = "sync_run:"

// RecordKey returns the key-value key for a record.
func RecordKey(kind Kind, d models.Domain) string {
	return recordKey(kind, d)
}

// SyncRunKey returns the key-value key for a run.
func SyncRunKey(run *models.SyncRun) string {
	return SyncRunPrefix + string(run.Domain) + ":" + run.StartedAt.UTC().Format(runTimeLayout) + ":" + run.ID
}

// EncodeSyncRun marshals a run for key-value storage.
func EncodeSyncRun(run *models.SyncRun) ([]byte, error) {
	data, err := json.Marshal(run)
	if err != nil {
		return nil, fmt.Errorf("encode sync run: %w", err)
	}
	return data, nil
}

// DecodeSyncRuns unmarshals raw values and applies the ListSyncRuns contract.
func DecodeSyncRuns(values [][]byte, d *models.Domain, limit int) ([]*models.SyncRun, error) {
	runs := make([]*models.SyncRun, 0, len(values))
	for _, v := range values {
		var run models.SyncRun
		if err := json.Unmarshal(v, &run); err != nil {
			return nil, fmt.Errorf("decode sync run: %w", err)
		}
		if d != nil && run.Domain != *d {
			continue
		}
		runs = append(runs, &run)
	}
	sort.SliceStable(runs, func(i, j int) bool {
		return runs[i].StartedAt.After(runs[j].StartedAt)
	})
	if limit > 0 && len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}
