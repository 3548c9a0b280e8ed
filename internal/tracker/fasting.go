// ABOUTME: Fasting state machine layered over the fasting manager.
// ABOUTME: Idle or Active(session); an open session in history is the active fast.
package tracker

import (
	"context"
	"errors"
	gosync "sync"

	"github.com/harperreed/healthsync/internal/clock"
	"github.com/harperreed/healthsync/internal/models"
)

var (
	// ErrSessionActive is returned when starting a fast while one is running.
	ErrSessionActive = errors.New("a fast is already in progress")
	// ErrNoActiveSession is returned when stopping or cancelling with no fast running.
	ErrNoActiveSession = errors.New("no fast in progress")
)

// State is the fasting state.
type State int

const (
	Idle State = iota
	Active
)

func (s State) String() string {
	if s == Active {
		return "active"
	}
	return "idle"
}

// FastingTracker drives start/stop/cancel. The open session lives in
// history, so the state survives restarts.
type FastingTracker struct {
	*Manager[*models.FastingSession]

	clock       clock.Clock
	defaultGoal float64
	mu          gosync.Mutex
}

// NewFastingTracker wraps m. Starts without a goal use defaultGoal.
func NewFastingTracker(m *Manager[*models.FastingSession], c clock.Clock, defaultGoal float64) *FastingTracker {
	if c == nil {
		c = clock.RealClock{}
	}
	if defaultGoal <= 0 {
		defaultGoal = DefaultFastingGoalHours
	}
	return &FastingTracker{Manager: m, clock: c, defaultGoal: defaultGoal}
}

// State returns the current state and, when Active, the open session.
func (f *FastingTracker) State() (State, *models.FastingSession) {
	for _, s := range f.Entries() {
		if !s.IsComplete() {
			return Active, s
		}
	}
	return Idle, nil
}

// Start opens a session now. A non-positive goal uses the default.
func (f *FastingTracker) Start(ctx context.Context, goalHours float64) (*models.FastingSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if state, _ := f.State(); state == Active {
		return nil, ErrSessionActive
	}
	if goalHours <= 0 {
		goalHours = f.defaultGoal
	}
	s := models.NewFastingSession(f.clock.Now(), goalHours)
	if err := f.AddManual(ctx, s); err != nil {
		return nil, err
	}
	return s, nil
}

// Stop closes the active session now and writes it to the platform.
// A platform failure is returned after the session is closed locally.
func (f *FastingTracker) Stop(ctx context.Context) (*models.FastingSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	state, active := f.State()
	if state != Active {
		return nil, ErrNoActiveSession
	}
	end := f.clock.Now()
	return f.Replace(ctx, active.ID, func(cur *models.FastingSession) (*models.FastingSession, error) {
		next := *cur
		return next.WithEnd(end), nil
	}, true)
}

// Cancel discards the active session without recording it anywhere.
func (f *FastingTracker) Cancel() (*models.FastingSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	state, active := f.State()
	if state != Active {
		return nil, ErrNoActiveSession
	}
	return f.Discard(active.ID)
}
