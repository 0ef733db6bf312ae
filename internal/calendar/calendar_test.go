package calendar

import (
	"errors"
	"testing"
	"time"

	"github.com/example/cleaning-ops/internal/availability"
)

func mustLoad(t *testing.T, name string) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation(name)
	if err != nil {
		t.Skipf("timezone %s unavailable: %v", name, err)
	}
	return loc
}

func TestDisplayRange(t *testing.T) {
	ref := time.Date(2026, 3, 11, 15, 0, 0, 0, time.UTC) // Wednesday

	t.Run("day", func(t *testing.T) {
		first, last := DisplayRange(ViewDay, ref, time.UTC)
		if !first.Equal(time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC)) || !first.Equal(last) {
			t.Fatalf("unexpected day range %v - %v", first, last)
		}
	})

	t.Run("week starts monday", func(t *testing.T) {
		first, last := DisplayRange(ViewWeek, ref, time.UTC)
		if first.Weekday() != time.Monday || first.Day() != 9 {
			t.Fatalf("expected Monday 9 March, got %v", first)
		}
		if last.Weekday() != time.Sunday || last.Day() != 15 {
			t.Fatalf("expected Sunday 15 March, got %v", last)
		}
	})

	t.Run("sunday belongs to previous week", func(t *testing.T) {
		first, _ := DisplayRange(ViewWeek, time.Date(2026, 3, 15, 9, 0, 0, 0, time.UTC), time.UTC)
		if first.Day() != 9 {
			t.Fatalf("expected week of 9 March, got %v", first)
		}
	})

	t.Run("month", func(t *testing.T) {
		first, last := DisplayRange(ViewMonth, time.Date(2026, 2, 14, 0, 0, 0, 0, time.UTC), time.UTC)
		if first.Day() != 1 || last.Day() != 28 || last.Month() != time.February {
			t.Fatalf("unexpected month range %v - %v", first, last)
		}
	})
}

func TestParseView(t *testing.T) {
	if v, err := ParseView(""); err != nil || v != ViewWeek {
		t.Fatalf("expected default week view, got %v %v", v, err)
	}
	if v, err := ParseView(" Month "); err != nil || v != ViewMonth {
		t.Fatalf("expected month view, got %v %v", v, err)
	}
	if _, err := ParseView("year"); !errors.Is(err, ErrUnknownView) {
		t.Fatalf("expected ErrUnknownView, got %v", err)
	}
}

func TestDaysAcrossDST(t *testing.T) {
	london := mustLoad(t, "Europe/London")
	// Clocks go forward on 29 March 2026.
	first := time.Date(2026, 3, 28, 0, 0, 0, 0, london)
	last := time.Date(2026, 3, 30, 0, 0, 0, 0, london)
	days := Days(first, last)
	if len(days) != 3 {
		t.Fatalf("expected 3 days, got %d", len(days))
	}
	for i, d := range days {
		if d.Hour() != 0 || d.Day() != 28+i {
			t.Fatalf("day %d not at local midnight: %v", i, d)
		}
	}
}

func TestGroupByDay(t *testing.T) {
	london := mustLoad(t, "Europe/London")
	first, last := DisplayRange(ViewWeek, time.Date(2026, 7, 8, 0, 0, 0, 0, london), london)
	jobs := []Job{
		// 23:30 UTC on Tuesday is 00:30 Wednesday in London summer time.
		{ID: "late", Start: time.Date(2026, 7, 7, 23, 30, 0, 0, time.UTC), DurationMinutes: 60},
		{ID: "b", Start: time.Date(2026, 7, 6, 14, 0, 0, 0, london), DurationMinutes: 60},
		{ID: "a", Start: time.Date(2026, 7, 6, 9, 0, 0, 0, london), DurationMinutes: 60},
		{ID: "outside", Start: time.Date(2026, 7, 20, 9, 0, 0, 0, london), DurationMinutes: 60},
		{ID: "unscheduled"},
	}

	days := GroupByDay(jobs, first, last, london)
	if len(days) != 7 {
		t.Fatalf("expected 7 days, got %d", len(days))
	}
	if got := days[0].Jobs; len(got) != 2 || got[0].ID != "a" || got[1].ID != "b" {
		t.Fatalf("expected monday jobs [a b], got %+v", got)
	}
	if got := days[1].Jobs; len(got) != 0 {
		t.Fatalf("expected tuesday empty, got %+v", got)
	}
	if got := days[2].Jobs; len(got) != 1 || got[0].ID != "late" {
		t.Fatalf("expected late job on wednesday, got %+v", got)
	}
}

func TestLayoutBlock(t *testing.T) {
	layout := NewLayout(0)
	day := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

	block := layout.Block(Job{ID: "j", Start: SetTime(day, 9, 30), DurationMinutes: 90}, time.UTC)
	if block.Top != 9.5*72 {
		t.Fatalf("expected top %v, got %v", 9.5*72, block.Top)
	}
	if block.Height != 108 {
		t.Fatalf("expected height 108, got %v", block.Height)
	}

	short := layout.Block(Job{ID: "s", Start: SetTime(day, 8, 0), DurationMinutes: 10}, time.UTC)
	if short.Height != 36 {
		t.Fatalf("expected minimum height of half a slot hour, got %v", short.Height)
	}
}

func TestLayoutTimeline(t *testing.T) {
	layout := NewLayout(72)
	day := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	jobs := []Job{
		{ID: "late", Start: SetTime(day, 16, 0), DurationMinutes: 60},
		{ID: "early", Start: SetTime(day, 8, 0), DurationMinutes: 60},
		{ID: "tomorrow", Start: SetTime(day.AddDate(0, 0, 1), 8, 0), DurationMinutes: 60},
	}
	blocks := layout.Timeline(day, jobs)
	if len(blocks) != 2 || blocks[0].Job.ID != "early" || blocks[1].Job.ID != "late" {
		t.Fatalf("unexpected timeline %+v", blocks)
	}
}

func TestLayoutSlots(t *testing.T) {
	layout := NewLayout(72)
	slots := layout.Slots()
	if len(slots) != SlotsPerDay {
		t.Fatalf("expected %d slots, got %d", SlotsPerDay, len(slots))
	}
	if slots[29].Label() != "14:30" || slots[29].Top != 29*36 {
		t.Fatalf("unexpected slot 29 %+v", slots[29])
	}

	if s := layout.SlotAt(14.5*72 + 10); s.Hour != 14 || s.Minute != 30 {
		t.Fatalf("expected 14:30, got %s", s.Label())
	}
	if s := layout.SlotAt(-5); s.Hour != 0 || s.Minute != 0 {
		t.Fatalf("expected clamp to 00:00, got %s", s.Label())
	}
	if s := layout.SlotAt(99999); s.Label() != "23:30" {
		t.Fatalf("expected clamp to 23:30, got %s", s.Label())
	}
}

func TestPlanDrop(t *testing.T) {
	day := time.Date(2026, 3, 12, 0, 0, 0, 0, time.UTC)
	job := Job{
		ID:              "job-1",
		Start:           time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC),
		DurationMinutes: 120,
		Status:          availability.JobStatusScheduled,
	}

	t.Run("keeps duration", func(t *testing.T) {
		move, err := PlanDrop(job, day, 14, 30)
		if err != nil {
			t.Fatalf("PlanDrop returned error: %v", err)
		}
		if !move.NewStart.Equal(time.Date(2026, 3, 12, 14, 30, 0, 0, time.UTC)) {
			t.Fatalf("unexpected start %v", move.NewStart)
		}
		if !move.NewEnd.Equal(time.Date(2026, 3, 12, 16, 30, 0, 0, time.UTC)) {
			t.Fatalf("unexpected end %v", move.NewEnd)
		}
		if move.JobID != "job-1" || move.Reason == "" {
			t.Fatalf("unexpected move %+v", move)
		}
	})

	t.Run("completed job rejected", func(t *testing.T) {
		done := job
		done.Status = availability.JobStatusCompleted
		if _, err := PlanDrop(done, day, 14, 30); !errors.Is(err, ErrCompletedImmutable) {
			t.Fatalf("expected ErrCompletedImmutable, got %v", err)
		}
	})

	t.Run("off grid minute", func(t *testing.T) {
		if _, err := PlanDrop(job, day, 14, 15); !errors.Is(err, ErrInvalidSlot) {
			t.Fatalf("expected ErrInvalidSlot, got %v", err)
		}
		if _, err := PlanDrop(job, day, 24, 0); !errors.Is(err, ErrInvalidSlot) {
			t.Fatalf("expected ErrInvalidSlot, got %v", err)
		}
	})

	t.Run("missing duration defaults", func(t *testing.T) {
		bare := job
		bare.DurationMinutes = 0
		move, err := PlanDrop(bare, day, 8, 0)
		if err != nil {
			t.Fatalf("PlanDrop returned error: %v", err)
		}
		if move.NewEnd.Sub(move.NewStart) != time.Hour {
			t.Fatalf("expected default hour duration, got %v", move.NewEnd.Sub(move.NewStart))
		}
	})
}
