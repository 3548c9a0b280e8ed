// ABOUTME: Tests for export encoding.
// ABOUTME: Verifies JSON and YAML output and JSON decoding.
package storage

import (
	"strings"
	"testing"
	"time"

	"github.com/harperreed/healthsync/internal/models"
)

func sampleExport() *ExportData {
	now := time.Date(2026, 4, 2, 10, 0, 0, 0, time.UTC)
	e := NewExportData(now)
	e.Weight = append(e.Weight, models.NewWeightEntry(now, 70.5))
	e.Hydration = append(e.Hydration, models.NewHydrationEntry(now, 250))
	e.Preferences[models.DomainWeight] = models.SyncPreference{Enabled: true}
	return e
}

func TestExportJSON(t *testing.T) {
	out, err := sampleExport().Encode("json")
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	s := string(out)
	for _, want := range []string{`"version": "1.0"`, `"tool": "healthsync"`, `"kg": 70.5`, `"ml": 250`} {
		if !strings.Contains(s, want) {
			t.Errorf("JSON export missing %s:\n%s", want, s)
		}
	}

	back, err := DecodeExport(out)
	if err != nil {
		t.Fatalf("DecodeExport failed: %v", err)
	}
	if len(back.Weight) != 1 || back.Weight[0].Kilograms != 70.5 {
		t.Errorf("decoded weight mismatch: %+v", back.Weight)
	}
	if !back.Preferences[models.DomainWeight].Enabled {
		t.Error("decoded preferences lost sync_enabled")
	}
}

func TestExportYAML(t *testing.T) {
	out, err := sampleExport().Encode("yaml")
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	s := string(out)
	for _, want := range []string{"version: \"1.0\"", "tool: healthsync", "weight:", "hydration:"} {
		if !strings.Contains(s, want) {
			t.Errorf("YAML export missing %q:\n%s", want, s)
		}
	}
}

func TestExportUnknownFormat(t *testing.T) {
	if _, err := sampleExport().Encode("csv"); err == nil {
		t.Error("expected error for unknown format")
	}
}
