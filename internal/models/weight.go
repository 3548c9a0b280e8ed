// ABOUTME: WeightEntry model for body weight measurements in kilograms.
package models

import "time"

// WeightEntry is a single weight measurement.
type WeightEntry struct {
	Record    `yaml:",inline"`
	Date      time.Time `json:"date" yaml:"date"`
	Kilograms float64   `json:"kg" yaml:"kg"`
}

// NewWeightEntry creates a manual weight entry.
func NewWeightEntry(date time.Time, kg float64) *WeightEntry {
	return &WeightEntry{
		Record:    NewRecord(SourceManual),
		Date:      date,
		Kilograms: kg,
	}
}

// Timestamp returns the measurement time.
func (w *WeightEntry) Timestamp() time.Time {
	return w.Date
}

// Validate rejects non-positive weights.
func (w *WeightEntry) Validate() error {
	if w.Date.IsZero() {
		return invalid("weight entry has no date")
	}
	if w.Kilograms <= 0 {
		return invalid("weight must be > 0")
	}
	return nil
}
