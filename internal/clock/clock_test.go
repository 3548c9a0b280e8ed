// ABOUTME: Tests for the real and fake clocks.
package clock

import (
	"testing"
	"time"
)

func TestRealClockNow(t *testing.T) {
	before := time.Now()
	actual := RealClock{}.Now()
	after := time.Now()

	if actual.Before(before) || actual.After(after) {
		t.Errorf("RealClock.Now() = %v, want between %v and %v", actual, before, after)
	}
}

func TestFakeClock(t *testing.T) {
	fixed := time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)
	c := NewFakeClock(fixed)

	if !c.Now().Equal(fixed) {
		t.Fatalf("Now() = %v, want %v", c.Now(), fixed)
	}

	c.Advance(90 * time.Minute)
	if want := fixed.Add(90 * time.Minute); !c.Now().Equal(want) {
		t.Errorf("after Advance, Now() = %v, want %v", c.Now(), want)
	}

	past := time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC)
	c.Set(past)
	if !c.Now().Equal(past) {
		t.Errorf("after Set, Now() = %v, want %v", c.Now(), past)
	}
}

func TestStartOfDay(t *testing.T) {
	in := time.Date(2024, 3, 9, 23, 59, 59, 999, time.UTC)
	got := StartOfDay(in)
	want := time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("StartOfDay(%v) = %v, want %v", in, got, want)
	}
}
