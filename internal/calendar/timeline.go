package calendar

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/example/cleaning-ops/internal/availability"
)

const (
	// DefaultHourHeight is the pixel height of one timeline hour.
	DefaultHourHeight = 72.0
	// SlotMinutes is the timeline quantum.
	SlotMinutes = 30
	// SlotsPerDay is the number of slots on a 24 hour timeline.
	SlotsPerDay = 24 * 60 / SlotMinutes
)

var (
	// ErrCompletedImmutable is returned when a completed job is dragged.
	ErrCompletedImmutable = errors.New("calendar: completed jobs cannot be rescheduled")
	// ErrInvalidSlot is returned when a drop target is outside the timeline grid.
	ErrInvalidSlot = errors.New("calendar: invalid timeline slot")
)

// Layout converts times to timeline pixel positions.
type Layout struct {
	HourHeight float64
}

// NewLayout returns a layout using hourHeight, or DefaultHourHeight when it is not positive.
func NewLayout(hourHeight float64) Layout {
	if hourHeight <= 0 {
		hourHeight = DefaultHourHeight
	}
	return Layout{HourHeight: hourHeight}
}

// Block is the rendered rectangle of a job on the timeline.
type Block struct {
	Job    Job
	Top    float64
	Height float64
}

// Slot is one 30 minute row of the timeline.
type Slot struct {
	Hour   int
	Minute int
	Top    float64
}

// Label renders the slot as HH:MM.
func (s Slot) Label() string {
	return fmt.Sprintf("%02d:%02d", s.Hour, s.Minute)
}

// Block positions job using its start in loc.
func (l Layout) Block(job Job, loc *time.Location) Block {
	start := job.Start
	if loc != nil {
		start = start.In(loc)
	}
	h := l.hourHeight()
	top := float64(start.Hour())*h + (float64(start.Minute())/60)*h
	height := math.Max((float64(job.DurationMinutes)/60)*h, h/2)
	return Block{Job: job, Top: top, Height: height}
}

// Timeline lays out every job that starts on day.
func (l Layout) Timeline(day time.Time, jobs []Job) []Block {
	loc := day.Location()
	key := dayKey(StartOfDay(day, loc))
	var selected []Job
	for _, job := range jobs {
		if job.Start.IsZero() || dayKey(job.Start.In(loc)) != key {
			continue
		}
		selected = append(selected, job)
	}
	sortJobs(selected)
	blocks := make([]Block, 0, len(selected))
	for _, job := range selected {
		blocks = append(blocks, l.Block(job, loc))
	}
	return blocks
}

// Slots lists the 48 timeline slots with their pixel offsets.
func (l Layout) Slots() []Slot {
	slots := make([]Slot, 0, SlotsPerDay)
	for i := 0; i < SlotsPerDay; i++ {
		slots = append(slots, l.slot(i))
	}
	return slots
}

// SlotAt maps a vertical pixel offset to the slot under it, clamped to the grid.
func (l Layout) SlotAt(offset float64) Slot {
	index := int(math.Floor(offset / (l.hourHeight() / 2)))
	if index < 0 {
		index = 0
	}
	if index >= SlotsPerDay {
		index = SlotsPerDay - 1
	}
	return l.slot(index)
}

func (l Layout) slot(index int) Slot {
	minutes := index * SlotMinutes
	return Slot{Hour: minutes / 60, Minute: minutes % 60, Top: float64(index) * l.hourHeight() / 2}
}

func (l Layout) hourHeight() float64 {
	if l.HourHeight <= 0 {
		return DefaultHourHeight
	}
	return l.HourHeight
}

// Move is a planned reschedule of one job.
type Move struct {
	JobID    string
	NewStart time.Time
	NewEnd   time.Time
	Reason   string
}

// SetTime returns day at hour:minute in day's location.
func SetTime(day time.Time, hour, minute int) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, day.Location())
}

// PlanDrop computes the reschedule for dropping job onto slot hour:minute of
// day. The job keeps its duration. Completed jobs are rejected.
func PlanDrop(job Job, day time.Time, hour, minute int) (Move, error) {
	if job.Status == availability.JobStatusCompleted {
		return Move{}, ErrCompletedImmutable
	}
	if hour < 0 || hour > 23 || minute < 0 || minute >= 60 || minute%SlotMinutes != 0 {
		return Move{}, fmt.Errorf("%w: %02d:%02d", ErrInvalidSlot, hour, minute)
	}
	duration := job.DurationMinutes
	if duration <= 0 {
		duration = availability.DefaultDurationMinutes
	}
	start := SetTime(day, hour, minute)
	return Move{
		JobID:    job.ID,
		NewStart: start,
		NewEnd:   start.Add(time.Duration(duration) * time.Minute),
		Reason:   "calendar drag and drop",
	}, nil
}
