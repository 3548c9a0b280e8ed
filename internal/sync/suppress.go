// ABOUTME: Observer suppression flag set around write-through to the platform store.
// ABOUTME: Clears after a delay so the store's own change notification is ignored.
package sync

import (
	gosync "sync"
	"sync/atomic"
	"time"
)

// DefaultSuppressionDelay outlasts typical platform notification latency.
const DefaultSuppressionDelay = 2 * time.Second

// Suppressor is safe for use from command and observer goroutines.
type Suppressor struct {
	active atomic.Bool
	gen    atomic.Uint64
	delay  time.Duration

	mu    gosync.Mutex
	timer *time.Timer
}

// NewSuppressor returns a cleared flag that resets delay after each Release.
func NewSuppressor(delay time.Duration) *Suppressor {
	if delay <= 0 {
		delay = DefaultSuppressionDelay
	}
	return &Suppressor{delay: delay}
}

// Active reports whether observer-triggered syncs should be skipped.
func (s *Suppressor) Active() bool {
	return s.active.Load()
}

// Begin raises the flag ahead of a write and returns its generation.
func (s *Suppressor) Begin() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.active.Store(true)
	return s.gen.Add(1)
}

// Release schedules the flag to clear after the delay. A later Begin
// supersedes the pending clear.
func (s *Suppressor) Release(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen.Load() != gen {
		return
	}
	s.timer = time.AfterFunc(s.delay, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.gen.Load() == gen {
			s.active.Store(false)
			s.timer = nil
		}
	})
}

// Clear drops the flag immediately.
func (s *Suppressor) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.gen.Add(1)
	s.active.Store(false)
}
