// ABOUTME: SleepEntry model: one night (or nap) with an optional 1-5 quality rating.
package models

import "time"

// SleepEntry is a single sleep period.
type SleepEntry struct {
	Record  `yaml:",inline"`
	Start   time.Time `json:"start" yaml:"start"`
	End     time.Time `json:"end" yaml:"end"`
	Quality int       `json:"quality,omitempty" yaml:"quality,omitempty"`
}

// NewSleepEntry creates a manual sleep entry.
func NewSleepEntry(start, end time.Time) *SleepEntry {
	return &SleepEntry{
		Record: NewRecord(SourceManual),
		Start:  start,
		End:    end,
	}
}

// WithQuality sets the 1-5 quality rating.
func (s *SleepEntry) WithQuality(q int) *SleepEntry {
	s.Quality = q
	return s
}

// Timestamp returns the time sleep started.
func (s *SleepEntry) Timestamp() time.Time {
	return s.Start
}

// Duration returns the time asleep.
func (s *SleepEntry) Duration() time.Duration {
	return s.End.Sub(s.Start)
}

// Validate rejects reversed periods and out-of-range quality.
func (s *SleepEntry) Validate() error {
	if s.Start.IsZero() || s.End.IsZero() {
		return invalid("sleep entry needs start and end")
	}
	if s.End.Before(s.Start) {
		return invalid("sleep ends before it starts")
	}
	if s.Quality < 0 || s.Quality > 5 {
		return invalid("quality must be between 1 and 5")
	}
	return nil
}
