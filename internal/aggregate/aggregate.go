// ABOUTME: Aggregate Recalculator primitives: calendar-day streaks and rolling averages.
// ABOUTME: Every snapshot is a full recomputation over a history snapshot.
package aggregate

import (
	"sort"
	"time"

	"github.com/harperreed/healthsync/internal/models"
)

// DefaultWindow is the rolling average window.
const DefaultWindow = 7 * 24 * time.Hour

// Streak holds the current and longest runs of consecutive goal-met days.
type Streak struct {
	Current int `json:"current"`
	Longest int `json:"longest"`
}

// civil maps t to midnight UTC of its calendar date in loc, so day
// arithmetic is immune to DST shifts.
func civil(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Streaks computes streaks over goal-met days relative to today. Days are
// bucketed into calendar days in today's location. The current streak counts
// back from today, or from yesterday when today is not yet met.
func Streaks(days []time.Time, today time.Time) Streak {
	loc := today.Location()
	set := make(map[time.Time]struct{}, len(days))
	for _, d := range days {
		set[civil(d, loc)] = struct{}{}
	}
	if len(set) == 0 {
		return Streak{}
	}

	var s Streak
	cursor := civil(today, loc)
	if _, ok := set[cursor]; !ok {
		cursor = cursor.AddDate(0, 0, -1)
	}
	for {
		if _, ok := set[cursor]; !ok {
			break
		}
		s.Current++
		cursor = cursor.AddDate(0, 0, -1)
	}

	sorted := make([]time.Time, 0, len(set))
	for d := range set {
		sorted = append(sorted, d)
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Before(sorted[j]) })

	run := 0
	var prev time.Time
	for i, d := range sorted {
		if i > 0 && prev.AddDate(0, 0, 1).Equal(d) {
			run++
		} else {
			run = 1
		}
		if run > s.Longest {
			s.Longest = run
		}
		prev = d
	}
	return s
}

// Point is one timestamped value.
type Point struct {
	At    time.Time
	Value float64
}

// RollingAverage averages points in (now-window, now]. It returns the
// average and how many points contributed.
func RollingAverage(points []Point, now time.Time, window time.Duration) (float64, int) {
	cutoff := now.Add(-window)
	var sum float64
	n := 0
	for _, p := range points {
		if p.At.After(cutoff) && !p.At.After(now) {
			sum += p.Value
			n++
		}
	}
	if n == 0 {
		return 0, 0
	}
	return sum / float64(n), n
}

// DailyTotals sums point values per calendar day in loc, keyed by civil date.
func DailyTotals(points []Point, loc *time.Location) map[time.Time]float64 {
	totals := make(map[time.Time]float64)
	for _, p := range points {
		totals[civil(p.At, loc)] += p.Value
	}
	return totals
}

// SameDay reports whether a and b fall on the same calendar day in loc.
func SameDay(a, b time.Time, loc *time.Location) bool {
	return civil(a, loc).Equal(civil(b, loc))
}

// Snapshot is the cached aggregate for one domain. Fields a domain does not
// use stay zero.
type Snapshot struct {
	Domain     models.Domain `json:"domain"`
	ComputedAt time.Time     `json:"computed_at"`
	Count      int           `json:"count"`

	Streak *Streak `json:"streak,omitempty"`

	// Rolling averages over DefaultWindow.
	Average          float64 `json:"average,omitempty"`
	SecondaryAverage float64 `json:"secondary_average,omitempty"`
	WindowCount      int     `json:"window_count,omitempty"`

	Latest    *float64 `json:"latest,omitempty"`
	Today     float64  `json:"today,omitempty"`
	Completed int      `json:"completed,omitempty"`
}
