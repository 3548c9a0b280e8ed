// ABOUTME: Export format for synced health data.
// ABOUTME: Supports JSON and YAML encodings of every domain's history and sync log.
package storage

import (
	"encoding/json"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/harperreed/healthsync/internal/models"
)

// ExportVersion is written into every export.
const ExportVersion = "1.0"

// ExportData represents the full export format for health data.
type ExportData struct {
	Version     string                                  `json:"version" yaml:"version"`
	ExportedAt  time.Time                               `json:"exported_at" yaml:"exported_at"`
	Tool        string                                  `json:"tool" yaml:"tool"`
	Fasting     []*models.FastingSession                `json:"fasting" yaml:"fasting"`
	Weight      []*models.WeightEntry                   `json:"weight" yaml:"weight"`
	Hydration   []*models.HydrationEntry                `json:"hydration" yaml:"hydration"`
	Sleep       []*models.SleepEntry                    `json:"sleep" yaml:"sleep"`
	Mood        []*models.MoodEntry                     `json:"mood" yaml:"mood"`
	Preferences map[models.Domain]models.SyncPreference `json:"preferences" yaml:"preferences"`
	Aggregates  map[models.Domain]any                   `json:"aggregates,omitempty" yaml:"aggregates,omitempty"`
	SyncRuns    []*models.SyncRun                       `json:"sync_runs,omitempty" yaml:"sync_runs,omitempty"`
}

// NewExportData returns an empty export stamped with now.
func NewExportData(now time.Time) *ExportData {
	return &ExportData{
		Version:     ExportVersion,
		ExportedAt:  now,
		Tool:        "healthsync",
		Preferences: make(map[models.Domain]models.SyncPreference),
		Aggregates:  make(map[models.Domain]any),
	}
}

// Encode renders the export in format ("json" or "yaml").
func (e *ExportData) Encode(format string) ([]byte, error) {
	switch format {
	case "json":
		return json.MarshalIndent(e, "", "  ")
	case "yaml", "yml":
		return yaml.Marshal(e)
	default:
		return nil, fmt.Errorf("unknown export format: %q", format)
	}
}

// DecodeExport parses a JSON export.
func DecodeExport(data []byte) (*ExportData, error) {
	var e ExportData
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("unmarshal JSON: %w", err)
	}
	return &e, nil
}
