package http

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/example/cleaning-ops/internal/application"
	"github.com/example/cleaning-ops/internal/booking"
	"github.com/example/cleaning-ops/internal/calendar"
	"github.com/example/cleaning-ops/internal/persistence"
	"github.com/example/cleaning-ops/internal/trends"
	"github.com/example/cleaning-ops/internal/verification"
)

var (
	_ jobService           = (*jobServiceStub)(nil)
	_ availabilityService  = (*availabilityServiceStub)(nil)
	_ calendarService      = (*calendarServiceStub)(nil)
	_ employeeService      = (*employeeServiceStub)(nil)
	_ bookingService       = (*bookingServiceStub)(nil)
	_ verificationService  = (*verificationServiceStub)(nil)
	_ profitabilityService = (*profitabilityServiceStub)(nil)
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func mustLocation(t *testing.T, name string) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation(name)
	if err != nil {
		t.Fatalf("load location %s: %v", name, err)
	}
	return loc
}

func serve(t *testing.T, handler http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}

func decodeBody[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", rr.Body.String(), err)
	}
	return out
}

type jobServiceStub struct {
	createInput  application.JobInput
	createResult application.JobResult
	listParams   application.ListJobsParams
	listed       []persistence.Job
	job          persistence.Job
	history      []persistence.RescheduleRecord
	reschedule   application.RescheduleInput
	assign       application.AssignInput
	action       application.StatusAction
	err          error
}

func (s *jobServiceStub) CreateJob(ctx context.Context, input application.JobInput) (application.JobResult, error) {
	s.createInput = input
	return s.createResult, s.err
}

func (s *jobServiceStub) GetJob(ctx context.Context, id string) (persistence.Job, error) {
	if s.err != nil {
		return persistence.Job{}, s.err
	}
	job := s.job
	job.ID = id
	return job, nil
}

func (s *jobServiceStub) ListJobs(ctx context.Context, params application.ListJobsParams) ([]persistence.Job, error) {
	s.listParams = params
	return s.listed, s.err
}

func (s *jobServiceStub) History(ctx context.Context, jobID string) ([]persistence.RescheduleRecord, error) {
	return s.history, s.err
}

func (s *jobServiceStub) Reschedule(ctx context.Context, input application.RescheduleInput) (persistence.Job, error) {
	s.reschedule = input
	if s.err != nil {
		return persistence.Job{}, s.err
	}
	job := s.job
	job.ID = input.JobID
	job.ScheduledFor = &input.NewStart
	return job, nil
}

func (s *jobServiceStub) Assign(ctx context.Context, input application.AssignInput) (application.JobResult, error) {
	s.assign = input
	if s.err != nil {
		return application.JobResult{}, s.err
	}
	return application.JobResult{Job: persistence.Job{ID: input.JobID}}, nil
}

func (s *jobServiceStub) ChangeStatus(ctx context.Context, jobID string, action application.StatusAction) (persistence.Job, error) {
	s.action = action
	if s.err != nil {
		return persistence.Job{}, s.err
	}
	return persistence.Job{ID: jobID, Status: "in_progress"}, nil
}

type availabilityServiceStub struct {
	query  application.AvailabilityQuery
	report application.AvailabilityReport
	err    error
}

func (s *availabilityServiceStub) Check(ctx context.Context, query application.AvailabilityQuery) (application.AvailabilityReport, error) {
	s.query = query
	return s.report, s.err
}

type calendarServiceStub struct {
	loc      *time.Location
	view     calendar.View
	ref      time.Time
	result   application.CalendarView
	timeline application.DayTimeline
	dropID   string
	dropDate time.Time
	dropHour int
	dropMin  int
	err      error
}

func (s *calendarServiceStub) Location() *time.Location { return s.loc }

func (s *calendarServiceStub) View(ctx context.Context, view calendar.View, ref time.Time) (application.CalendarView, error) {
	s.view, s.ref = view, ref
	return s.result, s.err
}

func (s *calendarServiceStub) Timeline(ctx context.Context, date time.Time) (application.DayTimeline, error) {
	s.ref = date
	return s.timeline, s.err
}

func (s *calendarServiceStub) Drop(ctx context.Context, jobID string, date time.Time, hour, minute int) (persistence.Job, error) {
	s.dropID, s.dropDate, s.dropHour, s.dropMin = jobID, date, hour, minute
	if s.err != nil {
		return persistence.Job{}, s.err
	}
	start := calendar.SetTime(date, hour, minute)
	return persistence.Job{ID: jobID, Status: "scheduled", ScheduledFor: &start}, nil
}

type employeeServiceStub struct {
	input     application.EmployeeInput
	employees []persistence.Employee
	err       error
}

func (s *employeeServiceStub) CreateEmployee(ctx context.Context, input application.EmployeeInput) (persistence.Employee, error) {
	s.input = input
	if s.err != nil {
		return persistence.Employee{}, s.err
	}
	return persistence.Employee{ID: "emp-1", Name: input.Name, Email: input.Email, PayType: input.PayType, HourlyRatePence: input.HourlyRatePence}, nil
}

func (s *employeeServiceStub) GetEmployee(ctx context.Context, id string) (persistence.Employee, error) {
	for _, e := range s.employees {
		if e.ID == id {
			return e, nil
		}
	}
	return persistence.Employee{}, application.ErrNotFound
}

func (s *employeeServiceStub) ListEmployees(ctx context.Context) ([]persistence.Employee, error) {
	return s.employees, s.err
}

type bookingServiceStub struct {
	form   booking.Form
	record booking.Record
	stored persistence.Booking
	err    error
	calls  int
}

func (s *bookingServiceStub) SubmitBooking(ctx context.Context, form booking.Form) (booking.Record, error) {
	s.calls++
	s.form = form
	return s.record, s.err
}

func (s *bookingServiceStub) GetBooking(ctx context.Context, id string) (persistence.Booking, error) {
	if s.stored.ID != id {
		return persistence.Booking{}, application.ErrNotFound
	}
	return s.stored, nil
}

func (s *bookingServiceStub) Prices() booking.PriceList { return booking.DefaultPrices() }

type verificationServiceStub struct {
	upload   application.UploadPhotoInput
	reviewID int64
	status   verification.Status
	reason   string
	bulkIDs  []int64
	photos   []persistence.Photo
	summary  verification.Summary
	err      error
}

func (s *verificationServiceStub) Upload(ctx context.Context, input application.UploadPhotoInput) (persistence.Photo, error) {
	s.upload = input
	if s.err != nil {
		return persistence.Photo{}, s.err
	}
	return persistence.Photo{ID: 7, JobID: input.JobID, Filename: input.Filename, Status: "pending", Latitude: input.Latitude, Longitude: input.Longitude, AccuracyM: input.AccuracyM}, nil
}

func (s *verificationServiceStub) Review(ctx context.Context, photoID int64, status verification.Status, reason string) (persistence.Photo, error) {
	s.reviewID, s.status, s.reason = photoID, status, reason
	if s.err != nil {
		return persistence.Photo{}, s.err
	}
	return persistence.Photo{ID: photoID, Status: string(status)}, nil
}

func (s *verificationServiceStub) BulkReview(ctx context.Context, ids []int64, status verification.Status, reason string) error {
	s.bulkIDs, s.status, s.reason = ids, status, reason
	return s.err
}

func (s *verificationServiceStub) Summary(ctx context.Context, jobID string) (verification.Summary, error) {
	return s.summary, s.err
}

func (s *verificationServiceStub) Photos(ctx context.Context, jobID string) ([]persistence.Photo, error) {
	return s.photos, s.err
}

type profitabilityServiceStub struct {
	start, end time.Time
	hint       trends.Granularity
	report     application.ProfitabilityReport
	err        error
}

func (s *profitabilityServiceStub) Trend(ctx context.Context, startDate, endDate time.Time, hint trends.Granularity) (application.ProfitabilityReport, error) {
	s.start, s.end, s.hint = startDate, endDate, hint
	return s.report, s.err
}

type pingerStub struct{ err error }

func (p pingerStub) Ping(ctx context.Context) error { return p.err }
