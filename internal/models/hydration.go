// ABOUTME: HydrationEntry model for a single water intake in milliliters.
package models

import "time"

// HydrationEntry is one drink.
type HydrationEntry struct {
	Record      `yaml:",inline"`
	Date        time.Time `json:"date" yaml:"date"`
	Milliliters float64   `json:"ml" yaml:"ml"`
}

// NewHydrationEntry creates a manual hydration entry.
func NewHydrationEntry(date time.Time, ml float64) *HydrationEntry {
	return &HydrationEntry{
		Record:      NewRecord(SourceManual),
		Date:        date,
		Milliliters: ml,
	}
}

// Timestamp returns the intake time.
func (h *HydrationEntry) Timestamp() time.Time {
	return h.Date
}

// Validate rejects non-positive amounts.
func (h *HydrationEntry) Validate() error {
	if h.Date.IsZero() {
		return invalid("hydration entry has no date")
	}
	if h.Milliliters <= 0 {
		return invalid("amount must be > 0")
	}
	return nil
}
