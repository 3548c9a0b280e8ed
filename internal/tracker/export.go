// ABOUTME: Builds the portable export from every domain's history and the sync log.
package tracker

import (
	"fmt"
	"time"

	"github.com/harperreed/healthsync/internal/aggregate"
	"github.com/harperreed/healthsync/internal/models"
	"github.com/harperreed/healthsync/internal/storage"
)

// Export snapshots every domain into an ExportData. Sync runs come from repo.
func (s *Set) Export(repo storage.Repository, now time.Time) (*storage.ExportData, error) {
	data := storage.NewExportData(now)
	data.Fasting = s.Fasting.Entries()
	data.Weight = s.Weight.Entries()
	data.Hydration = s.Hydration.Entries()
	data.Sleep = s.Sleep.Entries()
	data.Mood = s.Mood.Entries()

	for _, m := range s.All() {
		data.Preferences[m.Domain()] = m.Preference()
		data.Aggregates[m.Domain()] = m.Snapshot()
	}

	runs, err := repo.ListSyncRuns(nil, 0)
	if err != nil {
		return nil, fmt.Errorf("list sync runs: %w", err)
	}
	data.SyncRuns = runs
	return data, nil
}

// Summary is the cross-domain status shown by stats and the MCP summary resource.
type Summary struct {
	GeneratedAt time.Time                       `json:"generated_at"`
	Fasting     FastingStatus                   `json:"fasting"`
	Domains     map[models.Domain]DomainSummary `json:"domains"`
}

// FastingStatus describes the fasting state machine.
type FastingStatus struct {
	State   string                 `json:"state"`
	Session *models.FastingSession `json:"session,omitempty"`
	Elapsed string                 `json:"elapsed,omitempty"`
}

// DomainSummary is one domain's aggregate plus its sync preference.
type DomainSummary struct {
	Aggregate  aggregate.Snapshot    `json:"aggregate"`
	Preference models.SyncPreference `json:"preference"`
	Entries    int                   `json:"entries"`
	Observing  bool                  `json:"observing"`
}

// Summarize refreshes every aggregate against now.
func (s *Set) Summarize(now time.Time) Summary {
	sum := Summary{GeneratedAt: now, Domains: make(map[models.Domain]DomainSummary)}
	state, session := s.Fasting.State()
	sum.Fasting.State = state.String()
	if session != nil {
		sum.Fasting.Session = session
		sum.Fasting.Elapsed = session.Duration(now).Round(time.Minute).String()
	}
	for _, m := range s.All() {
		snap := m.Refresh()
		sum.Domains[m.Domain()] = DomainSummary{
			Aggregate:  snap,
			Preference: m.Preference(),
			Entries:    snap.Count,
			Observing:  m.Observer().Active(),
		}
	}
	return sum
}
