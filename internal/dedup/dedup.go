// ABOUTME: Fuzzy duplicate detection between local entries and platform samples.
// ABOUTME: Per-domain time/value tolerances, match rules, and calendar-day slots.
package dedup

import (
	"math"
	"time"

	"github.com/harperreed/healthsync/internal/models"
)

// Sample is the domain-neutral shape compared by match rules. Point samples
// leave End zero. An interval with a zero End is still open.
type Sample struct {
	Start     time.Time
	End       time.Time
	Value     float64
	Secondary float64
}

// Open reports whether the sample is an interval without an end.
func (s Sample) Open() bool {
	return s.End.IsZero()
}

// Tolerance bounds how far apart two samples may be and still match.
type Tolerance struct {
	Time  time.Duration
	Value float64
}

// MatchFunc reports whether a and b describe the same real-world event.
// Implementations must be symmetric.
type MatchFunc func(a, b Sample, tol Tolerance) bool

// SlotFunc returns the slot key a sample occupies; samples sharing a key
// cannot coexist. An empty key means the domain has no slot rule.
type SlotFunc func(s Sample) string

// Matcher bundles a domain's match rule and tolerances.
type Matcher struct {
	Domain     models.Domain
	Live       Tolerance
	Historical Tolerance
	Lookback   time.Duration
	Match      MatchFunc
	Slot       SlotFunc
}

// IsDuplicate reports whether candidate matches any existing sample.
// Any match is enough; ambiguous matches are not disambiguated.
func (m Matcher) IsDuplicate(candidate Sample, existing []Sample, tol Tolerance) bool {
	for _, s := range existing {
		if m.Match(candidate, s, tol) {
			return true
		}
	}
	return false
}

// SlotKey returns the candidate's slot, or "" when the domain has none.
func (m Matcher) SlotKey(s Sample) string {
	if m.Slot == nil {
		return ""
	}
	return m.Slot(s)
}

// Tolerance returns the tolerance used by a sync strategy.
func (m Matcher) Tolerance(strategy models.SyncStrategy) Tolerance {
	if strategy == models.StrategyHistorical {
		return m.Historical
	}
	return m.Live
}

func within(a, b time.Time, d time.Duration) bool {
	delta := a.Sub(b)
	if delta < 0 {
		delta = -delta
	}
	return delta <= d
}

// PointMatch matches point samples within the time window whose values differ
// by strictly less than the value tolerance.
func PointMatch(a, b Sample, tol Tolerance) bool {
	return within(a.Start, b.Start, tol.Time) && math.Abs(a.Value-b.Value) < tol.Value
}

// ExactMatch matches point samples within the time window whose value and
// secondary value are equal.
func ExactMatch(a, b Sample, tol Tolerance) bool {
	return within(a.Start, b.Start, tol.Time) && a.Value == b.Value && a.Secondary == b.Secondary
}

// IntervalMatch matches intervals whose starts and ends are each within the
// time window and which agree on being open or closed.
func IntervalMatch(a, b Sample, tol Tolerance) bool {
	if a.Open() != b.Open() {
		return false
	}
	if !within(a.Start, b.Start, tol.Time) {
		return false
	}
	return a.Open() || within(a.End, b.End, tol.Time)
}

// StartDaySlot keys a sample by the local calendar day it starts on.
func StartDaySlot(s Sample) string {
	return s.Start.In(time.Local).Format("2006-01-02")
}

const (
	day  = 24 * time.Hour
	year = 365 * day
)

var matchers = map[models.Domain]Matcher{
	models.DomainFasting: {
		Domain:     models.DomainFasting,
		Live:       Tolerance{Time: 5 * time.Minute},
		Historical: Tolerance{Time: 30 * time.Minute},
		Lookback:   year,
		Match:      IntervalMatch,
		Slot:       StartDaySlot,
	},
	models.DomainWeight: {
		Domain:     models.DomainWeight,
		Live:       Tolerance{Time: time.Minute, Value: 0.1},
		Historical: Tolerance{Time: 10 * time.Minute, Value: 0.1},
		Lookback:   2 * year,
		Match:      PointMatch,
	},
	models.DomainHydration: {
		Domain:     models.DomainHydration,
		Live:       Tolerance{Time: time.Minute, Value: 1},
		Historical: Tolerance{Time: 10 * time.Minute, Value: 1},
		Lookback:   182 * day,
		Match:      PointMatch,
	},
	models.DomainSleep: {
		Domain:     models.DomainSleep,
		Live:       Tolerance{Time: 5 * time.Minute},
		Historical: Tolerance{Time: 30 * time.Minute},
		Lookback:   year,
		Match:      IntervalMatch,
	},
	models.DomainMood: {
		Domain:     models.DomainMood,
		Live:       Tolerance{Time: time.Minute},
		Historical: Tolerance{Time: 10 * time.Minute},
		Lookback:   10 * year,
		Match:      ExactMatch,
	},
}

// For returns the matcher for d. It panics on an unknown domain.
func For(d models.Domain) Matcher {
	m, ok := matchers[d]
	if !ok {
		panic("dedup: unknown domain " + string(d))
	}
	return m
}
