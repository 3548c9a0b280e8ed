// ABOUTME: Data migration between sync state storage backends.
// ABOUTME: Copies every per-domain record and the sync run log from source to destination.

package storage

import (
	"errors"
	"fmt"

	"github.com/harperreed/healthsync/internal/models"
)

// MigrateSummary holds counts of migrated entities.
type MigrateSummary struct {
	Records  int
	SyncRuns int
}

// MigrateData copies all data from src to dst storage.
// Records missing in src are skipped. Existing records in dst are
// overwritten, so the destination should be empty before calling this.
func MigrateData(src, dst Repository) (*MigrateSummary, error) {
	summary := &MigrateSummary{}

	for _, d := range models.AllDomains {
		for _, kind := range AllKinds {
			data, err := src.Get(kind, d)
			if errors.Is(err, ErrNotFound) {
				continue
			}
			if err != nil {
				return nil, fmt.Errorf("read %s: %w", recordKey(kind, d), err)
			}
			if err := dst.Put(kind, d, data); err != nil {
				return nil, fmt.Errorf("write %s: %w", recordKey(kind, d), err)
			}
			summary.Records++
		}
	}

	runs, err := src.ListSyncRuns(nil, 0)
	if err != nil {
		return nil, fmt.Errorf("list source sync runs: %w", err)
	}
	// Oldest first so append-only destinations keep chronological order.
	for i := len(runs) - 1; i >= 0; i-- {
		if err := dst.RecordSyncRun(runs[i]); err != nil {
			return nil, fmt.Errorf("record sync run %s: %w", runs[i].ID, err)
		}
		summary.SyncRuns++
	}

	return summary, nil
}

// HasData reports whether repo holds any record or sync run.
func HasData(repo Repository) (bool, error) {
	for _, d := range models.AllDomains {
		for _, kind := range AllKinds {
			_, err := repo.Get(kind, d)
			if err == nil {
				return true, nil
			}
			if !errors.Is(err, ErrNotFound) {
				return false, err
			}
		}
	}
	runs, err := repo.ListSyncRuns(nil, 1)
	if err != nil {
		return false, err
	}
	return len(runs) > 0, nil
}
