package application

import (
	"time"

	"github.com/example/cleaning-ops/internal/availability"
	"github.com/example/cleaning-ops/internal/persistence"
)

// JobInput captures caller provided fields for a new job.
type JobInput struct {
	Title           string
	CustomerID      string
	CustomerName    string
	CustomerEmail   string
	Address         string
	ServiceType     string
	ScheduledFor    *time.Time
	ScheduledEnd    *time.Time
	DurationMinutes *int
	PricePence      int64
	Notes           *string
	EmployeeIDs     []string
	// PayAmounts holds per-job pay keyed by employee id.
	PayAmounts map[string]int64
	Overrides  []string
}

// StaffWarning is an advisory notice that an assigned employee already has
// overlapping work. It never blocks the write.
type StaffWarning struct {
	EmployeeID     string
	ConflictingIDs []string
}

// JobResult is a persisted job together with advisory staff warnings.
type JobResult struct {
	Job      persistence.Job
	Warnings []StaffWarning
}

// ListJobsParams narrows job listings.
type ListJobsParams struct {
	From       *time.Time
	To         *time.Time
	CustomerID string
	EmployeeID string
	Statuses   []string
}

// RescheduleInput moves a job. A nil NewEnd keeps the current duration.
type RescheduleInput struct {
	JobID    string
	NewStart time.Time
	NewEnd   *time.Time
	Reason   string
}

// AssignInput adds an employee to a job.
type AssignInput struct {
	JobID            string
	EmployeeID       string
	SendNotification bool
	PayAmountPence   *int64
	Overrides        []string
}

// StatusAction is a lifecycle command applied to a job.
type StatusAction string

const (
	ActionStart    StatusAction = "start"
	ActionComplete StatusAction = "complete"
	ActionCancel   StatusAction = "cancel"
)

// EmployeeInput captures caller provided employee fields.
type EmployeeInput struct {
	Name            string
	Email           string
	PayType         string
	HourlyRatePence int64
}

// AvailabilityQuery identifies the candidate window to classify. An empty
// EmployeeIDs checks the whole roster.
type AvailabilityQuery struct {
	Start           time.Time
	DurationMinutes int
	End             *time.Time
	ExcludeJobID    string
	EmployeeIDs     []string
}

// AvailabilityReport is the outcome of an availability check. When Known is
// false the job fetch failed and Statuses is empty.
type AvailabilityReport struct {
	Window    availability.Window
	Known     bool
	Statuses  map[string]availability.Status
	Conflicts map[string][]string
	Skipped   []availability.Skipped
	Reason    string
}

// UploadPhotoInput carries a completion photo and its GPS fix.
type UploadPhotoInput struct {
	JobID      string
	Filename   string
	Content    []byte
	Latitude   *float64
	Longitude  *float64
	AccuracyM  *float64
	CapturedAt *time.Time
}
