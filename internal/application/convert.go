package application

import (
	"time"

	"github.com/example/cleaning-ops/internal/availability"
	"github.com/example/cleaning-ops/internal/calendar"
	"github.com/example/cleaning-ops/internal/persistence"
	"github.com/example/cleaning-ops/internal/verification"
)

func toAvailabilityJob(job persistence.Job) availability.Job {
	return availability.Job{
		ID:                  job.ID,
		ScheduledFor:        job.ScheduledFor,
		ScheduledEnd:        job.ScheduledEnd,
		DurationMinutes:     job.DurationMinutes,
		Status:              availability.JobStatus(job.Status),
		AssignedEmployeeIDs: job.EmployeeIDs(),
		ScheduleInvalid:     job.ScheduleInvalid,
	}
}

func toAvailabilityJobs(jobs []persistence.Job) []availability.Job {
	out := make([]availability.Job, 0, len(jobs))
	for _, job := range jobs {
		out = append(out, toAvailabilityJob(job))
	}
	return out
}

// toCalendarJob projects a stored job onto the calendar. Jobs without a
// usable start are not placeable and report false.
func toCalendarJob(job persistence.Job) (calendar.Job, bool) {
	if job.ScheduleInvalid || job.ScheduledFor == nil {
		return calendar.Job{}, false
	}
	return calendar.Job{
		ID:                  job.ID,
		Title:               job.Title,
		Start:               *job.ScheduledFor,
		DurationMinutes:     jobDurationMinutes(job),
		Status:              availability.JobStatus(job.Status),
		AssignedEmployeeIDs: job.EmployeeIDs(),
	}, true
}

// jobDurationMinutes is the job's own duration: the explicit end when
// present, then the stored duration, then zero.
func jobDurationMinutes(job persistence.Job) int {
	if job.ScheduledFor != nil && job.ScheduledEnd != nil && job.ScheduledEnd.After(*job.ScheduledFor) {
		return int(job.ScheduledEnd.Sub(*job.ScheduledFor) / time.Minute)
	}
	if job.DurationMinutes != nil && *job.DurationMinutes > 0 {
		return *job.DurationMinutes
	}
	return 0
}

func toVerificationPhotos(photos []persistence.Photo) []verification.Photo {
	out := make([]verification.Photo, 0, len(photos))
	for _, p := range photos {
		out = append(out, verification.Photo{
			ID:        p.ID,
			JobID:     p.JobID,
			Status:    verification.Status(p.Status),
			Latitude:  p.Latitude,
			Longitude: p.Longitude,
			AccuracyM: p.AccuracyM,
		})
	}
	return out
}
