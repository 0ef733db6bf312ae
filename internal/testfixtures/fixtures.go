package testfixtures

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/example/cleaning-ops/internal/application"
	"github.com/example/cleaning-ops/internal/availability"
	"github.com/example/cleaning-ops/internal/booking"
	"github.com/example/cleaning-ops/internal/persistence"
)

var (
	employeeCounter uint64
	jobCounter      uint64
)

// Monday 9 March 2026, 08:00 UTC.
var referenceTime = time.Date(2026, time.March, 9, 8, 0, 0, 0, time.UTC)

// ReferenceTime is the baseline instant fixtures are laid out around.
func ReferenceTime() time.Time {
	return referenceTime
}

// ----------------------------- Employee fixtures -----------------------------

// EmployeeFixture is a deterministic staff record.
type EmployeeFixture struct {
	ID              string
	Name            string
	Email           string
	PayType         string
	HourlyRatePence int64
	CreatedAt       time.Time
}

type EmployeeOption func(*EmployeeFixture)

// NewEmployeeFixture returns an hourly employee on 12.00 an hour.
func NewEmployeeFixture(opts ...EmployeeOption) EmployeeFixture {
	idx := atomic.AddUint64(&employeeCounter, 1)
	id := fmt.Sprintf("emp-%03d", idx)
	fixture := EmployeeFixture{
		ID:              id,
		Name:            fmt.Sprintf("Cleaner %03d", idx),
		Email:           id + "@example.com",
		PayType:         persistence.PayTypeHourly,
		HourlyRatePence: 1200,
		CreatedAt:       referenceTime.Add(-time.Duration(idx) * time.Hour),
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

func WithEmployeeID(id string) EmployeeOption {
	return func(f *EmployeeFixture) {
		f.ID = id
	}
}

func WithEmployeeName(name string) EmployeeOption {
	return func(f *EmployeeFixture) {
		f.Name = name
	}
}

func WithEmployeeEmail(email string) EmployeeOption {
	return func(f *EmployeeFixture) {
		f.Email = email
	}
}

// WithPay sets the pay type and hourly rate. The rate is ignored by
// profitability for per-job and salaried staff.
func WithPay(payType string, hourlyRatePence int64) EmployeeOption {
	return func(f *EmployeeFixture) {
		f.PayType = payType
		f.HourlyRatePence = hourlyRatePence
	}
}

// Persistence returns the fixture as a stored employee.
func (f EmployeeFixture) Persistence() persistence.Employee {
	return persistence.Employee{
		ID:              f.ID,
		Name:            f.Name,
		Email:           f.Email,
		PayType:         f.PayType,
		HourlyRatePence: f.HourlyRatePence,
		CreatedAt:       f.CreatedAt,
		UpdatedAt:       f.CreatedAt,
	}
}

// Input returns the fixture as create-employee input.
func (f EmployeeFixture) Input() application.EmployeeInput {
	return application.EmployeeInput{
		Name:            f.Name,
		Email:           f.Email,
		PayType:         f.PayType,
		HourlyRatePence: f.HourlyRatePence,
	}
}

// ------------------------------- Job fixtures --------------------------------

// JobFixture is a deterministic job. A nil Start leaves the job unscheduled.
type JobFixture struct {
	ID              string
	Title           string
	CustomerID      string
	CustomerName    string
	Address         string
	ServiceType     string
	Status          availability.JobStatus
	Start           *time.Time
	End             *time.Time
	DurationMinutes *int
	PricePence      int64
	EmployeeIDs     []string
	PayAmounts      map[string]int64
	CreatedAt       time.Time
}

type JobOption func(*JobFixture)

// NewJobFixture returns a scheduled two hour regular clean starting at
// ReferenceTime plus one hour per fixture created.
func NewJobFixture(opts ...JobOption) JobFixture {
	idx := atomic.AddUint64(&jobCounter, 1)
	start := referenceTime.Add(time.Duration(idx) * time.Hour)
	duration := 120
	fixture := JobFixture{
		ID:              fmt.Sprintf("job-%03d", idx),
		Title:           fmt.Sprintf("Regular clean %03d", idx),
		CustomerID:      fmt.Sprintf("cust-%03d", idx),
		CustomerName:    fmt.Sprintf("Customer %03d", idx),
		Address:         fmt.Sprintf("%d High Street", idx),
		ServiceType:     "regular",
		Status:          availability.JobStatusScheduled,
		Start:           &start,
		DurationMinutes: &duration,
		PricePence:      8000,
		CreatedAt:       referenceTime.Add(-24 * time.Hour),
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

func WithJobID(id string) JobOption {
	return func(f *JobFixture) {
		f.ID = id
	}
}

func WithCustomer(id, name string) JobOption {
	return func(f *JobFixture) {
		f.CustomerID = id
		f.CustomerName = name
	}
}

func WithStatus(status availability.JobStatus) JobOption {
	return func(f *JobFixture) {
		f.Status = status
	}
}

// WithSchedule sets the start and duration and clears any explicit end.
func WithSchedule(start time.Time, durationMinutes int) JobOption {
	return func(f *JobFixture) {
		f.Start = &start
		f.End = nil
		f.DurationMinutes = &durationMinutes
	}
}

// WithWindow sets an explicit start and end, which take precedence over the
// stored duration.
func WithWindow(start, end time.Time) JobOption {
	return func(f *JobFixture) {
		f.Start = &start
		f.End = &end
	}
}

// Unscheduled clears the schedule and marks the job pending.
func Unscheduled() JobOption {
	return func(f *JobFixture) {
		f.Start = nil
		f.End = nil
		f.DurationMinutes = nil
		f.Status = availability.JobStatusPending
	}
}

func WithPrice(pence int64) JobOption {
	return func(f *JobFixture) {
		f.PricePence = pence
	}
}

// AssignedTo assigns the employees in order.
func AssignedTo(employeeIDs ...string) JobOption {
	return func(f *JobFixture) {
		f.EmployeeIDs = append([]string(nil), employeeIDs...)
	}
}

// WithPayAmount records per-job pay for one assignee.
func WithPayAmount(employeeID string, pence int64) JobOption {
	return func(f *JobFixture) {
		if f.PayAmounts == nil {
			f.PayAmounts = map[string]int64{}
		}
		f.PayAmounts[employeeID] = pence
	}
}

// Persistence returns the fixture as a stored job with its assignments.
func (f JobFixture) Persistence() persistence.Job {
	job := persistence.Job{
		ID:              f.ID,
		Title:           f.Title,
		CustomerID:      f.CustomerID,
		CustomerName:    f.CustomerName,
		Address:         f.Address,
		ServiceType:     f.ServiceType,
		Status:          string(f.Status),
		ScheduledFor:    copyTime(f.Start),
		ScheduledEnd:    copyTime(f.End),
		DurationMinutes: copyInt(f.DurationMinutes),
		PricePence:      f.PricePence,
		CreatedAt:       f.CreatedAt,
		UpdatedAt:       f.CreatedAt,
	}
	for _, id := range f.EmployeeIDs {
		assignment := persistence.JobAssignment{JobID: f.ID, EmployeeID: id, AssignedAt: f.CreatedAt}
		if pay, ok := f.PayAmounts[id]; ok {
			assignment.PayAmountPence = &pay
		}
		job.Assignments = append(job.Assignments, assignment)
	}
	return job
}

// Availability returns the fixture as classifier input.
func (f JobFixture) Availability() availability.Job {
	return availability.Job{
		ID:                  f.ID,
		ScheduledFor:        copyTime(f.Start),
		ScheduledEnd:        copyTime(f.End),
		DurationMinutes:     copyInt(f.DurationMinutes),
		Status:              f.Status,
		AssignedEmployeeIDs: append([]string(nil), f.EmployeeIDs...),
	}
}

// Input returns the fixture as create-job input. Status is decided by the
// service from the schedule.
func (f JobFixture) Input() application.JobInput {
	input := application.JobInput{
		Title:           f.Title,
		CustomerID:      f.CustomerID,
		CustomerName:    f.CustomerName,
		Address:         f.Address,
		ServiceType:     f.ServiceType,
		ScheduledFor:    copyTime(f.Start),
		ScheduledEnd:    copyTime(f.End),
		DurationMinutes: copyInt(f.DurationMinutes),
		PricePence:      f.PricePence,
		EmployeeIDs:     append([]string(nil), f.EmployeeIDs...),
	}
	if len(f.PayAmounts) > 0 {
		input.PayAmounts = make(map[string]int64, len(f.PayAmounts))
		for id, pay := range f.PayAmounts {
			input.PayAmounts[id] = pay
		}
	}
	return input
}

// ----------------------------- Booking fixtures ------------------------------

// CompleteBookingForm returns a form that passes every wizard step.
func CompleteBookingForm() booking.Form {
	return booking.Form{
		FirstName:         "Ada",
		LastName:          "Lovelace",
		Email:             "ada@example.com",
		Phone:             "07700 900000",
		Address:           "1 High Street",
		City:              "London",
		Postcode:          "N1 1AA",
		ServiceType:       "deep",
		PropertyType:      "house",
		Bedrooms:          2,
		Bathrooms:         1,
		PreferredDate:     referenceTime.AddDate(0, 0, 7).Format(booking.DateLayout),
		TimeSlot:          "morning",
		ServiceProviderID: "emp-001",
	}
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func copyInt(n *int) *int {
	if n == nil {
		return nil
	}
	v := *n
	return &v
}
