package client

import (
	"time"

	"github.com/example/cleaning-ops/internal/verification"
)

// AvailabilityQuery selects the candidate window for an availability check.
type AvailabilityQuery struct {
	Start           time.Time
	End             *time.Time
	DurationMinutes int
	ExcludeJobID    string
	EmployeeIDs     []string
}

type AvailabilityReport struct {
	Start     time.Time        `json:"start"`
	End       time.Time        `json:"end"`
	Known     bool             `json:"known"`
	Reason    string           `json:"reason,omitempty"`
	Employees []EmployeeStatus `json:"employees"`
	Skipped   []SkippedJob     `json:"skipped,omitempty"`
}

type EmployeeStatus struct {
	EmployeeID        string   `json:"employeeId"`
	Status            string   `json:"status"`
	ConflictingJobIDs []string `json:"conflictingJobIds,omitempty"`
}

type SkippedJob struct {
	JobID  string `json:"jobId"`
	Reason string `json:"reason"`
}

// CalendarView is one day, week or month grid.
type CalendarView struct {
	View     string        `json:"view"`
	First    string        `json:"first"`
	Last     string        `json:"last"`
	Days     []CalendarDay `json:"days"`
	Unplaced []string      `json:"unplaced,omitempty"`
}

type CalendarDay struct {
	Date string        `json:"date"`
	Jobs []CalendarJob `json:"jobs"`
}

type CalendarJob struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	Start           time.Time `json:"start"`
	End             time.Time `json:"end"`
	DurationMinutes int       `json:"durationMinutes"`
	Status          string    `json:"status"`
	EmployeeIDs     []string  `json:"employeeIds"`
}

type Timeline struct {
	Date   string          `json:"date"`
	Blocks []TimelineBlock `json:"blocks"`
	Slots  []TimelineSlot  `json:"slots"`
}

type TimelineBlock struct {
	Job    CalendarJob `json:"job"`
	Top    float64     `json:"top"`
	Height float64     `json:"height"`
}

type TimelineSlot struct {
	Label string  `json:"label"`
	Top   float64 `json:"top"`
}

// Job mirrors the job resource. Money is in pence.
type Job struct {
	ID              string       `json:"id"`
	Title           string       `json:"title"`
	CustomerID      string       `json:"customerId"`
	CustomerName    string       `json:"customerName"`
	CustomerEmail   string       `json:"customerEmail,omitempty"`
	Address         string       `json:"address"`
	ServiceType     string       `json:"serviceType,omitempty"`
	Status          string       `json:"status"`
	ScheduledFor    *time.Time   `json:"scheduledFor,omitempty"`
	ScheduledEnd    *time.Time   `json:"scheduledEnd,omitempty"`
	ScheduleInvalid bool         `json:"scheduleInvalid,omitempty"`
	DurationMinutes *int         `json:"durationMinutes,omitempty"`
	Price           int64        `json:"price"`
	Notes           *string      `json:"notes,omitempty"`
	Assignments     []Assignment `json:"assignments"`
	CreatedAt       time.Time    `json:"createdAt"`
	UpdatedAt       time.Time    `json:"updatedAt"`
}

type Assignment struct {
	EmployeeID string    `json:"employeeId"`
	PayAmount  *int64    `json:"payAmount,omitempty"`
	AssignedAt time.Time `json:"assignedAt"`
}

type Warning struct {
	EmployeeID        string   `json:"employeeId"`
	ConflictingJobIDs []string `json:"conflictingJobIds"`
}

type JobResult struct {
	Job      Job       `json:"job"`
	Warnings []Warning `json:"warnings,omitempty"`
}

// ListJobsParams filters GET /jobs. Dates are YYYY-MM-DD.
type ListJobsParams struct {
	StartDate  string
	EndDate    string
	CustomerID string
	EmployeeID string
	Statuses   []string
}

type RescheduleRequest struct {
	NewDate    string `json:"newDate"`
	NewEndDate string `json:"newEndDate,omitempty"`
	Reason     string `json:"reason,omitempty"`
}

type dropRequest struct {
	JobID  string `json:"jobId"`
	Date   string `json:"date"`
	Hour   int    `json:"hour"`
	Minute int    `json:"minute"`
}

// Trend is a profitability series. Money is in pence.
type Trend struct {
	Granularity string       `json:"granularity"`
	Points      []TrendPoint `json:"points"`
	Totals      Metrics      `json:"totals"`
}

type TrendPoint struct {
	Label  string `json:"label"`
	Start  string `json:"start"`
	End    string `json:"end"`
	Failed bool   `json:"failed,omitempty"`
	Metrics
}

type Metrics struct {
	Revenue         int64  `json:"revenue"`
	LabourCost      int64  `json:"labourCost"`
	Profit          int64  `json:"profit"`
	Jobs            int    `json:"jobs"`
	ProfitFormatted string `json:"profitFormatted"`
}

// Prices is the booking price list in whole pounds.
type Prices struct {
	Prices            map[string]int64 `json:"prices"`
	BedroomSurcharge  int64            `json:"bedroomSurcharge"`
	BathroomSurcharge int64            `json:"bathroomSurcharge"`
}

type Photo struct {
	ID              int64      `json:"id"`
	JobID           string     `json:"jobId"`
	Filename        string     `json:"filename"`
	Digest          string     `json:"digest"`
	Status          string     `json:"status"`
	RejectionReason *string    `json:"rejectionReason,omitempty"`
	Latitude        *float64   `json:"latitude,omitempty"`
	Longitude       *float64   `json:"longitude,omitempty"`
	Accuracy        *float64   `json:"accuracy,omitempty"`
	AccuracyBand    string     `json:"accuracyBand"`
	CapturedAt      *time.Time `json:"capturedAt,omitempty"`
	ReviewedAt      *time.Time `json:"reviewedAt,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
}

type Verification struct {
	Summary verification.Summary `json:"summary"`
	Photos  []Photo              `json:"photos"`
}

type reviewRequest struct {
	Status string `json:"status"`
	Reason string `json:"reason,omitempty"`
}

type bulkReviewRequest struct {
	PhotoIDs []int64 `json:"photoIds"`
	Status   string  `json:"status"`
	Reason   string  `json:"reason,omitempty"`
}

type BulkReviewResult struct {
	Updated int    `json:"updated"`
	Status  string `json:"status"`
}
