// Package availability classifies staff as busy or available for a candidate
// time window by intersecting it with the effective windows of existing jobs.
package availability

import (
	"sort"
	"time"
)

// DefaultDurationMinutes is the minimum effective duration of a job without an explicit end.
const DefaultDurationMinutes = 60

// JobStatus mirrors the lifecycle states of a cleaning job.
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusScheduled  JobStatus = "scheduled"
	JobStatusInProgress JobStatus = "in-progress"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusCancelled  JobStatus = "cancelled"
	JobStatusRejected   JobStatus = "rejected"
)

// Blocking reports whether a job in this status occupies its assignees.
func (s JobStatus) Blocking() bool {
	return s == JobStatusScheduled || s == JobStatusInProgress
}

// Valid reports whether s is a known status.
func (s JobStatus) Valid() bool {
	switch s {
	case JobStatusPending, JobStatusScheduled, JobStatusInProgress, JobStatusCompleted, JobStatusCancelled, JobStatusRejected:
		return true
	}
	return false
}

// Window is a half-open time range [Start, End).
type Window struct {
	Start time.Time
	End   time.Time
}

// Valid reports whether the window has a positive length.
func (w Window) Valid() bool {
	return !w.Start.IsZero() && !w.End.IsZero() && w.End.After(w.Start)
}

// Duration returns the length of the window.
func (w Window) Duration() time.Duration {
	return w.End.Sub(w.Start)
}

// Overlaps reports whether the two windows intersect. Windows that only share
// a boundary do not overlap.
func (w Window) Overlaps(other Window) bool {
	return w.Start.Before(other.End) && w.End.After(other.Start)
}

// Job is the subset of a job record the classifier needs.
type Job struct {
	ID                  string
	ScheduledFor        *time.Time
	ScheduledEnd        *time.Time
	DurationMinutes     *int
	Status              JobStatus
	AssignedEmployeeIDs []string
	// ScheduleInvalid is set by storage when a stored timestamp could not be parsed.
	ScheduleInvalid bool
}

// Status is the per-employee classification.
type Status string

const (
	StatusAvailable Status = "available"
	StatusBusy      Status = "busy"
)

// SkipReason explains why a job was left out of the comparison set.
type SkipReason string

const (
	SkipUnscheduled   SkipReason = "unscheduled"
	SkipUnparseable   SkipReason = "unparseable"
	SkipInvalidWindow SkipReason = "invalid_window"
)

// Skipped records a job excluded from classification.
type Skipped struct {
	JobID  string
	Reason SkipReason
}

// Result holds the classification for one candidate window. It is only valid
// for that window.
type Result struct {
	Window    Window
	Statuses  map[string]Status
	Conflicts map[string][]string
	Skipped   []Skipped
}

// Busy returns the sorted IDs of busy employees.
func (r Result) Busy() []string {
	busy := make([]string, 0, len(r.Conflicts))
	for id, status := range r.Statuses {
		if status == StatusBusy {
			busy = append(busy, id)
		}
	}
	sort.Strings(busy)
	return busy
}

// EffectiveWindow derives the time range a job occupies. The end is the
// explicit scheduled end when present, otherwise the start plus the larger of
// the job's duration and DefaultDurationMinutes.
func EffectiveWindow(job Job) (Window, bool) {
	if job.ScheduleInvalid || job.ScheduledFor == nil || job.ScheduledFor.IsZero() {
		return Window{}, false
	}
	start := *job.ScheduledFor
	var end time.Time
	if job.ScheduledEnd != nil && !job.ScheduledEnd.IsZero() {
		end = *job.ScheduledEnd
	} else {
		end = start.Add(time.Duration(effectiveMinutes(job.DurationMinutes)) * time.Minute)
	}
	w := Window{Start: start, End: end}
	if !w.Valid() {
		return Window{}, false
	}
	return w, true
}

func effectiveMinutes(duration *int) int {
	if duration == nil || *duration < DefaultDurationMinutes {
		return DefaultDurationMinutes
	}
	return *duration
}

// CandidateWindow builds the window being checked. An explicit end wins;
// otherwise durationMinutes is used, defaulting to DefaultDurationMinutes.
func CandidateWindow(start time.Time, durationMinutes int, end *time.Time) Window {
	if end != nil && !end.IsZero() {
		return Window{Start: start, End: *end}
	}
	if durationMinutes <= 0 {
		durationMinutes = DefaultDurationMinutes
	}
	return Window{Start: start, End: start.Add(time.Duration(durationMinutes) * time.Minute)}
}

// PaddedWindow widens the candidate by its own duration on each side. It is
// the range used to fetch existing jobs so adjacent work is visible.
func PaddedWindow(candidate Window) Window {
	d := candidate.Duration()
	return Window{Start: candidate.Start.Add(-d), End: candidate.End.Add(d)}
}

// Classify marks every roster employee busy or available for the candidate
// window. excludeJobID names the job being edited so it never conflicts with
// itself.
func Classify(candidate Window, roster []string, existing []Job, excludeJobID string) Result {
	result := Result{
		Window:    candidate,
		Statuses:  make(map[string]Status, len(roster)),
		Conflicts: make(map[string][]string),
	}
	for _, id := range roster {
		if id == "" {
			continue
		}
		result.Statuses[id] = StatusAvailable
	}

	for _, job := range existing {
		if excludeJobID != "" && job.ID == excludeJobID {
			continue
		}
		if !job.Status.Blocking() {
			continue
		}
		window, ok := EffectiveWindow(job)
		if !ok {
			result.Skipped = append(result.Skipped, Skipped{JobID: job.ID, Reason: skipReason(job)})
			continue
		}
		if !candidate.Overlaps(window) {
			continue
		}
		for _, employeeID := range job.AssignedEmployeeIDs {
			if _, onRoster := result.Statuses[employeeID]; !onRoster {
				continue
			}
			result.Statuses[employeeID] = StatusBusy
			result.Conflicts[employeeID] = append(result.Conflicts[employeeID], job.ID)
		}
	}

	for id := range result.Conflicts {
		sort.Strings(result.Conflicts[id])
	}
	return result
}

func skipReason(job Job) SkipReason {
	switch {
	case job.ScheduleInvalid:
		return SkipUnparseable
	case job.ScheduledFor == nil || job.ScheduledFor.IsZero():
		return SkipUnscheduled
	default:
		return SkipInvalidWindow
	}
}
