// Package calendar projects scheduled jobs onto day/week/month grids and a
// 24 hour timeline, and plans drag-and-drop reschedules against it.
package calendar

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/example/cleaning-ops/internal/availability"
)

// View selects the grid granularity.
type View string

const (
	ViewDay   View = "day"
	ViewWeek  View = "week"
	ViewMonth View = "month"
)

// ErrUnknownView is returned for unsupported view names.
var ErrUnknownView = errors.New("calendar: unknown view")

// ParseView normalizes a view name, defaulting to week.
func ParseView(value string) (View, error) {
	switch View(strings.ToLower(strings.TrimSpace(value))) {
	case "", ViewWeek:
		return ViewWeek, nil
	case ViewDay:
		return ViewDay, nil
	case ViewMonth:
		return ViewMonth, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownView, value)
}

// Job is a scheduled job as the calendar sees it.
type Job struct {
	ID                  string
	Title               string
	Start               time.Time
	DurationMinutes     int
	Status              availability.JobStatus
	AssignedEmployeeIDs []string
}

// End returns the start plus the job duration.
func (j Job) End() time.Time {
	return j.Start.Add(time.Duration(j.DurationMinutes) * time.Minute)
}

// Day is one calendar day of a grid view.
type Day struct {
	Date time.Time
	Jobs []Job
}

// StartOfDay returns local midnight of t in loc.
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = t.Location()
	}
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
}

// StartOfWeek returns the Monday that begins the week containing t.
func StartOfWeek(t time.Time, loc *time.Location) time.Time {
	start := StartOfDay(t, loc)
	offset := (int(start.Weekday()) + 6) % 7
	return start.AddDate(0, 0, -offset)
}

// StartOfMonth returns the first day of the month containing t.
func StartOfMonth(t time.Time, loc *time.Location) time.Time {
	start := StartOfDay(t, loc)
	return time.Date(start.Year(), start.Month(), 1, 0, 0, 0, 0, start.Location())
}

// DisplayRange returns the first and last calendar day (both inclusive) shown
// by view around ref.
func DisplayRange(view View, ref time.Time, loc *time.Location) (time.Time, time.Time) {
	switch view {
	case ViewDay:
		day := StartOfDay(ref, loc)
		return day, day
	case ViewMonth:
		first := StartOfMonth(ref, loc)
		return first, first.AddDate(0, 1, -1)
	default:
		first := StartOfWeek(ref, loc)
		return first, first.AddDate(0, 0, 6)
	}
}

// Days lists every calendar day from first to last inclusive. Days are
// advanced with calendar arithmetic so DST transition days remain single days.
func Days(first, last time.Time) []time.Time {
	first = StartOfDay(first, first.Location())
	last = StartOfDay(last, first.Location())
	if last.Before(first) {
		return nil
	}
	var days []time.Time
	for d := first; !d.After(last); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}

// GroupByDay buckets jobs by the local calendar day they start on. Every day
// in the range is present even when empty.
func GroupByDay(jobs []Job, first, last time.Time, loc *time.Location) []Day {
	if loc == nil {
		loc = first.Location()
	}
	days := Days(first.In(loc), last.In(loc))
	index := make(map[string]int, len(days))
	out := make([]Day, len(days))
	for i, d := range days {
		out[i] = Day{Date: d}
		index[dayKey(d)] = i
	}
	for _, job := range jobs {
		if job.Start.IsZero() {
			continue
		}
		if i, ok := index[dayKey(job.Start.In(loc))]; ok {
			out[i].Jobs = append(out[i].Jobs, job)
		}
	}
	for i := range out {
		sortJobs(out[i].Jobs)
	}
	return out
}

func dayKey(t time.Time) string {
	return t.Format("2006-01-02")
}

func sortJobs(jobs []Job) {
	sort.SliceStable(jobs, func(i, j int) bool {
		if jobs[i].Start.Equal(jobs[j].Start) {
			return jobs[i].ID < jobs[j].ID
		}
		return jobs[i].Start.Before(jobs[j].Start)
	})
}
