// ABOUTME: Tests for the observer suppression flag and its delayed reset.
package sync

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSuppressorClearsAfterDelay(t *testing.T) {
	s := NewSuppressor(20 * time.Millisecond)
	assert.False(t, s.Active())

	gen := s.Begin()
	assert.True(t, s.Active())
	s.Release(gen)
	assert.True(t, s.Active(), "flag holds until the delay passes")

	assert.Eventually(t, func() bool { return !s.Active() }, time.Second, 5*time.Millisecond)
}

func TestSuppressorLaterBeginSupersedesRelease(t *testing.T) {
	s := NewSuppressor(20 * time.Millisecond)
	first := s.Begin()
	s.Release(first)
	second := s.Begin()

	time.Sleep(60 * time.Millisecond)
	assert.True(t, s.Active(), "a write in progress keeps the flag raised")

	s.Release(second)
	assert.Eventually(t, func() bool { return !s.Active() }, time.Second, 5*time.Millisecond)
}

func TestSuppressorClear(t *testing.T) {
	s := NewSuppressor(time.Hour)
	s.Release(s.Begin())
	s.Clear()
	assert.False(t, s.Active())
}

func TestSuppressorDefaultDelay(t *testing.T) {
	s := NewSuppressor(0)
	assert.Equal(t, DefaultSuppressionDelay, s.delay)
}
