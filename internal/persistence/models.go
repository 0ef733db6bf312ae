package persistence

import "time"

// Pay types of an employee.
const (
	PayTypeHourly   = "hourly"
	PayTypePerJob   = "per_job"
	PayTypeSalaried = "salaried"
)

// Employee is a member of cleaning staff.
type Employee struct {
	ID              string
	Name            string
	Email           string
	PayType         string
	HourlyRatePence int64
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Job is a scheduled or unscheduled cleaning visit. ScheduleInvalid is set on
// read when the stored start cannot be parsed.
type Job struct {
	ID              string
	Title           string
	CustomerID      string
	CustomerName    string
	CustomerEmail   string
	Address         string
	ServiceType     string
	Status          string
	ScheduledFor    *time.Time
	ScheduledEnd    *time.Time
	ScheduleInvalid bool
	DurationMinutes *int
	PricePence      int64
	Notes           *string
	Assignments     []JobAssignment
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// EmployeeIDs lists the assigned employees in assignment order.
func (j Job) EmployeeIDs() []string {
	ids := make([]string, 0, len(j.Assignments))
	for _, a := range j.Assignments {
		ids = append(ids, a.EmployeeID)
	}
	return ids
}

// JobAssignment links an employee to a job.
type JobAssignment struct {
	JobID          string
	EmployeeID     string
	PayAmountPence *int64
	AssignedAt     time.Time
}

// RescheduleRecord is one row of a job's reschedule history.
type RescheduleRecord struct {
	ID        string
	JobID     string
	OldStart  *time.Time
	OldEnd    *time.Time
	NewStart  time.Time
	NewEnd    time.Time
	Reason    string
	CreatedAt time.Time
}

// Photo is a job completion photo.
type Photo struct {
	ID              int64
	JobID           string
	Filename        string
	Digest          string
	Status          string
	RejectionReason *string
	Latitude        *float64
	Longitude       *float64
	AccuracyM       *float64
	CapturedAt      *time.Time
	ReviewedAt      *time.Time
	CreatedAt       time.Time
}

// Booking is a public booking request.
type Booking struct {
	ID                string
	Reference         string
	FirstName         string
	LastName          string
	Email             string
	Phone             string
	Address           string
	City              string
	Postcode          string
	ServiceType       string
	PropertyType      string
	Bedrooms          int
	Bathrooms         int
	PreferredDate     *string
	AlternativeDate   *string
	TimeSlot          string
	ServiceProviderID string
	Notes             *string
	EstimatedPrice    int64
	CreatedAt         time.Time
}

// OutboxMessage is a rendered email waiting for delivery.
type OutboxMessage struct {
	ID        string
	Recipient string
	Subject   string
	HTML      string
	Text      string
	QueuedAt  time.Time
	SentAt    *time.Time
}
