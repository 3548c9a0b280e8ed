// ABOUTME: Per-domain adapters binding entry types to platform items and aggregates.
// ABOUTME: Each adapter plugs one domain into the generic sync engine.
package tracker

import (
	"time"

	"github.com/harperreed/healthsync/internal/aggregate"
	"github.com/harperreed/healthsync/internal/dedup"
	"github.com/harperreed/healthsync/internal/healthstore"
	"github.com/harperreed/healthsync/internal/models"
	"github.com/harperreed/healthsync/internal/sync"
)

// Defaults used when config leaves goals unset.
const (
	DefaultFastingGoalHours = 16.0
	DefaultHydrationGoalML  = 2000.0
)

var (
	_ sync.Adapter[*models.FastingSession] = FastingAdapter{}
	_ sync.Adapter[*models.WeightEntry]    = WeightAdapter{}
	_ sync.Adapter[*models.HydrationEntry] = HydrationAdapter{}
	_ sync.Adapter[*models.SleepEntry]     = SleepAdapter{}
	_ sync.Adapter[*models.MoodEntry]      = MoodAdapter{}
)

// FastingAdapter maps sessions to interval items whose value is the goal in hours.
type FastingAdapter struct {
	// DefaultGoal applies to platform items that carry no goal.
	DefaultGoal float64
}

func (FastingAdapter) Domain() models.Domain { return models.DomainFasting }

func (a FastingAdapter) ToEntry(item healthstore.Item) (*models.FastingSession, error) {
	goal := item.Value
	if goal <= 0 {
		goal = a.DefaultGoal
	}
	if goal <= 0 {
		goal = DefaultFastingGoalHours
	}
	s := models.NewFastingSession(item.Start, goal)
	if !item.End.IsZero() {
		s.WithEnd(item.End)
	}
	return s, nil
}

// ToItem refuses open sessions; a fast reaches the platform when it ends.
func (FastingAdapter) ToItem(s *models.FastingSession) (healthstore.Item, bool) {
	if !s.IsComplete() {
		return healthstore.Item{}, false
	}
	return healthstore.Item{Start: s.Start, End: *s.End, Value: s.GoalHours}, true
}

func (FastingAdapter) Sample(s *models.FastingSession) dedup.Sample {
	sample := dedup.Sample{Start: s.Start, Value: s.GoalHours}
	if s.End != nil {
		sample.End = *s.End
	}
	return sample
}

// Aggregate streaks over days whose completed session met its goal.
func (FastingAdapter) Aggregate(sessions []*models.FastingSession, now time.Time) aggregate.Snapshot {
	var snap aggregate.Snapshot
	var met []time.Time
	var hours float64
	for _, s := range sessions {
		if !s.IsComplete() {
			continue
		}
		snap.Completed++
		hours += s.Duration(now).Hours()
		if s.MetGoal() {
			met = append(met, s.Start)
		}
	}
	streak := aggregate.Streaks(met, now)
	snap.Streak = &streak
	if snap.Completed > 0 {
		snap.Average = hours / float64(snap.Completed)
	}
	return snap
}

// WeightAdapter maps weights to point items in kilograms.
type WeightAdapter struct{}

func (WeightAdapter) Domain() models.Domain { return models.DomainWeight }

func (WeightAdapter) ToEntry(item healthstore.Item) (*models.WeightEntry, error) {
	return models.NewWeightEntry(item.Start, item.Value), nil
}

func (WeightAdapter) ToItem(w *models.WeightEntry) (healthstore.Item, bool) {
	return healthstore.Item{Start: w.Date, Value: w.Kilograms}, true
}

func (WeightAdapter) Sample(w *models.WeightEntry) dedup.Sample {
	return dedup.Sample{Start: w.Date, Value: w.Kilograms}
}

// Aggregate reports the latest weight and the rolling average.
func (WeightAdapter) Aggregate(entries []*models.WeightEntry, now time.Time) aggregate.Snapshot {
	var snap aggregate.Snapshot
	points := make([]aggregate.Point, 0, len(entries))
	for _, w := range entries {
		points = append(points, aggregate.Point{At: w.Date, Value: w.Kilograms})
	}
	if len(entries) > 0 {
		// History is newest first.
		latest := entries[0].Kilograms
		snap.Latest = &latest
	}
	snap.Average, snap.WindowCount = aggregate.RollingAverage(points, now, aggregate.DefaultWindow)
	return snap
}

// HydrationAdapter maps drinks to point items in milliliters.
type HydrationAdapter struct {
	// DailyGoal is the total that makes a day count toward the streak.
	DailyGoal float64
}

func (HydrationAdapter) Domain() models.Domain { return models.DomainHydration }

func (HydrationAdapter) ToEntry(item healthstore.Item) (*models.HydrationEntry, error) {
	return models.NewHydrationEntry(item.Start, item.Value), nil
}

func (HydrationAdapter) ToItem(h *models.HydrationEntry) (healthstore.Item, bool) {
	return healthstore.Item{Start: h.Date, Value: h.Milliliters}, true
}

func (HydrationAdapter) Sample(h *models.HydrationEntry) dedup.Sample {
	return dedup.Sample{Start: h.Date, Value: h.Milliliters}
}

// Aggregate sums intake per day for today's total and the goal streak.
func (a HydrationAdapter) Aggregate(entries []*models.HydrationEntry, now time.Time) aggregate.Snapshot {
	goal := a.DailyGoal
	if goal <= 0 {
		goal = DefaultHydrationGoalML
	}
	loc := now.Location()
	points := make([]aggregate.Point, 0, len(entries))
	for _, h := range entries {
		points = append(points, aggregate.Point{At: h.Date, Value: h.Milliliters})
	}

	var snap aggregate.Snapshot
	var met []time.Time
	for day, total := range aggregate.DailyTotals(points, loc) {
		// Keys are civil dates; noon in loc keeps them on the same day.
		local := time.Date(day.Year(), day.Month(), day.Day(), 12, 0, 0, 0, loc)
		if aggregate.SameDay(local, now, loc) {
			snap.Today = total
		}
		if total >= goal {
			met = append(met, local)
		}
	}
	streak := aggregate.Streaks(met, now)
	snap.Streak = &streak
	return snap
}

// SleepAdapter maps sleep periods to interval items. Value carries hours
// and Secondary the quality rating.
type SleepAdapter struct{}

func (SleepAdapter) Domain() models.Domain { return models.DomainSleep }

func (SleepAdapter) ToEntry(item healthstore.Item) (*models.SleepEntry, error) {
	return models.NewSleepEntry(item.Start, item.End).WithQuality(int(item.Secondary)), nil
}

func (SleepAdapter) ToItem(s *models.SleepEntry) (healthstore.Item, bool) {
	return healthstore.Item{
		Start:     s.Start,
		End:       s.End,
		Value:     s.Duration().Hours(),
		Secondary: float64(s.Quality),
	}, true
}

func (SleepAdapter) Sample(s *models.SleepEntry) dedup.Sample {
	return dedup.Sample{Start: s.Start, End: s.End, Value: s.Duration().Hours(), Secondary: float64(s.Quality)}
}

// Aggregate averages hours slept and quality over the window. Unrated
// nights do not pull the quality average down.
func (SleepAdapter) Aggregate(entries []*models.SleepEntry, now time.Time) aggregate.Snapshot {
	var snap aggregate.Snapshot
	var hours, quality []aggregate.Point
	for _, s := range entries {
		hours = append(hours, aggregate.Point{At: s.End, Value: s.Duration().Hours()})
		if s.Quality > 0 {
			quality = append(quality, aggregate.Point{At: s.End, Value: float64(s.Quality)})
		}
	}
	snap.Average, snap.WindowCount = aggregate.RollingAverage(hours, now, aggregate.DefaultWindow)
	snap.SecondaryAverage, _ = aggregate.RollingAverage(quality, now, aggregate.DefaultWindow)
	return snap
}

// MoodAdapter maps check-ins to point items. Value carries mood and
// Secondary energy; notes stay local.
type MoodAdapter struct{}

func (MoodAdapter) Domain() models.Domain { return models.DomainMood }

func (MoodAdapter) ToEntry(item healthstore.Item) (*models.MoodEntry, error) {
	return models.NewMoodEntry(item.Start, int(item.Value), int(item.Secondary)), nil
}

func (MoodAdapter) ToItem(m *models.MoodEntry) (healthstore.Item, bool) {
	return healthstore.Item{Start: m.Date, Value: float64(m.Mood), Secondary: float64(m.Energy)}, true
}

func (MoodAdapter) Sample(m *models.MoodEntry) dedup.Sample {
	return dedup.Sample{Start: m.Date, Value: float64(m.Mood), Secondary: float64(m.Energy)}
}

func (MoodAdapter) Aggregate(entries []*models.MoodEntry, now time.Time) aggregate.Snapshot {
	var snap aggregate.Snapshot
	var mood, energy []aggregate.Point
	for _, m := range entries {
		mood = append(mood, aggregate.Point{At: m.Date, Value: float64(m.Mood)})
		energy = append(energy, aggregate.Point{At: m.Date, Value: float64(m.Energy)})
	}
	snap.Average, snap.WindowCount = aggregate.RollingAverage(mood, now, aggregate.DefaultWindow)
	snap.SecondaryAverage, _ = aggregate.RollingAverage(energy, now, aggregate.DefaultWindow)
	return snap
}
