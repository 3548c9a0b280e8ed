// ABOUTME: FastingSession model: a start time, an optional end, and the goal it was started with.
// ABOUTME: A session without an end is the active fast.
package models

import "time"

// FastingSession is one fast, open until End is set.
type FastingSession struct {
	Record    `yaml:",inline"`
	Start     time.Time  `json:"start" yaml:"start"`
	End       *time.Time `json:"end,omitempty" yaml:"end,omitempty"`
	GoalHours float64    `json:"goal_hours" yaml:"goal_hours"`
}

// NewFastingSession creates a manual, still-open session.
func NewFastingSession(start time.Time, goalHours float64) *FastingSession {
	return &FastingSession{
		Record:    NewRecord(SourceManual),
		Start:     start,
		GoalHours: goalHours,
	}
}

// WithEnd closes the session at t.
func (s *FastingSession) WithEnd(t time.Time) *FastingSession {
	s.End = &t
	return s
}

// Timestamp returns the session start.
func (s *FastingSession) Timestamp() time.Time {
	return s.Start
}

// IsComplete reports whether the session has ended.
func (s *FastingSession) IsComplete() bool {
	return s.End != nil
}

// Duration returns the elapsed fasting time, measured to now for open sessions.
func (s *FastingSession) Duration(now time.Time) time.Duration {
	if s.End != nil {
		return s.End.Sub(s.Start)
	}
	return now.Sub(s.Start)
}

// MetGoal reports whether a completed session lasted at least GoalHours.
func (s *FastingSession) MetGoal() bool {
	if s.End == nil {
		return false
	}
	return s.End.Sub(s.Start).Hours() >= s.GoalHours
}

// Validate rejects sessions that end before they start or have no goal.
func (s *FastingSession) Validate() error {
	if s.Start.IsZero() {
		return invalid("fasting session has no start")
	}
	if s.End != nil && s.End.Before(s.Start) {
		return invalid("fasting session ends before it starts")
	}
	if s.GoalHours <= 0 {
		return invalid("goal hours must be > 0")
	}
	return nil
}
