// ABOUTME: MoodEntry model with 1-10 mood and energy ratings.
package models

import "time"

// MoodEntry is one mood check-in.
type MoodEntry struct {
	Record `yaml:",inline"`
	Date   time.Time `json:"date" yaml:"date"`
	Mood   int       `json:"mood" yaml:"mood"`
	Energy int       `json:"energy" yaml:"energy"`
	Notes  *string   `json:"notes,omitempty" yaml:"notes,omitempty"`
}

// NewMoodEntry creates a manual mood entry.
func NewMoodEntry(date time.Time, mood, energy int) *MoodEntry {
	return &MoodEntry{
		Record: NewRecord(SourceManual),
		Date:   date,
		Mood:   mood,
		Energy: energy,
	}
}

// WithNotes sets notes on the entry.
func (m *MoodEntry) WithNotes(notes string) *MoodEntry {
	m.Notes = &notes
	return m
}

// Timestamp returns the check-in time.
func (m *MoodEntry) Timestamp() time.Time {
	return m.Date
}

// Validate rejects ratings outside 1-10.
func (m *MoodEntry) Validate() error {
	if m.Date.IsZero() {
		return invalid("mood entry has no date")
	}
	if m.Mood < 1 || m.Mood > 10 {
		return invalid("mood must be between 1 and 10")
	}
	if m.Energy < 1 || m.Energy > 10 {
		return invalid("energy must be between 1 and 10")
	}
	return nil
}
