package testfixtures

import (
	"testing"
	"time"
)

func TestClockDefaultsToReferenceTime(t *testing.T) {
	clock := NewClock(time.Time{})
	if !clock.Now().Equal(ReferenceTime()) {
		t.Fatalf("expected ReferenceTime, got %v", clock.Now())
	}
	if ReferenceTime().Weekday() != time.Monday {
		t.Fatalf("expected reference time on a Monday, got %v", ReferenceTime().Weekday())
	}
}

func TestClockAdvanceAndSet(t *testing.T) {
	start := time.Date(2026, time.March, 11, 9, 0, 0, 0, time.UTC)
	clock := NewClock(start)

	if updated := clock.Advance(90 * time.Minute); !updated.Equal(start.Add(90 * time.Minute)) {
		t.Fatalf("advance returned %v", updated)
	}

	clock.Set(start.Add(2 * time.Hour))
	if got := clock.Now(); !got.Equal(start.Add(2 * time.Hour)) {
		t.Fatalf("expected %v, got %v", start.Add(2*time.Hour), got)
	}
}

func TestClockNowFunc(t *testing.T) {
	clock := NewClock(time.Date(2026, time.January, 5, 0, 0, 0, 0, time.UTC))
	nowFn := clock.NowFunc()

	clock.Advance(time.Minute)
	if got := nowFn(); !got.Equal(clock.Now()) {
		t.Fatalf("expected updated time %v, got %v", clock.Now(), got)
	}

	var nilClock *Clock
	if nilClock.NowFunc()().IsZero() {
		t.Fatal("expected nil clock to fall back to wall time")
	}
}
