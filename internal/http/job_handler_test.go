package http

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/example/cleaning-ops/internal/application"
	"github.com/example/cleaning-ops/internal/persistence"
)

func newJobRouter(t *testing.T, stub *jobServiceStub) http.Handler {
	t.Helper()
	return NewRouter(RouterConfig{Jobs: NewJobHandler(stub, mustLocation(t, "Europe/London"), discardLogger())})
}

func TestJobHandlerCreate(t *testing.T) {
	t.Parallel()

	t.Run("returns created job with warnings", func(t *testing.T) {
		t.Parallel()
		start := time.Date(2026, 3, 12, 10, 0, 0, 0, time.UTC)
		stub := &jobServiceStub{createResult: application.JobResult{
			Job: persistence.Job{ID: "job-1", CustomerID: "cust-1", Status: "scheduled", ScheduledFor: &start, PricePence: 9500},
			Warnings: []application.StaffWarning{
				{EmployeeID: "emp-a", ConflictingIDs: []string{"job-0"}},
			},
		}}

		rr := serve(t, newJobRouter(t, stub), http.MethodPost, "/jobs", `{
			"customerId": " cust-1 ",
			"customerName": "Ada",
			"address": "1 High Street",
			"scheduledFor": "2026-03-12T10:00:00Z",
			"durationMinutes": 90,
			"price": 9500,
			"employeeIds": ["emp-a"],
			"payAmounts": {"emp-a": 2500},
			"overrides": ["create_duplicate"]
		}`)

		if rr.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
		}
		if stub.createInput.CustomerID != "cust-1" {
			t.Fatalf("expected trimmed customer id, got %q", stub.createInput.CustomerID)
		}
		if stub.createInput.ScheduledFor == nil || !stub.createInput.ScheduledFor.Equal(start) {
			t.Fatalf("expected scheduledFor %v, got %v", start, stub.createInput.ScheduledFor)
		}
		if stub.createInput.DurationMinutes == nil || *stub.createInput.DurationMinutes != 90 {
			t.Fatalf("expected duration 90, got %v", stub.createInput.DurationMinutes)
		}
		if stub.createInput.PayAmounts["emp-a"] != 2500 {
			t.Fatalf("expected pay amount to pass through, got %v", stub.createInput.PayAmounts)
		}
		if len(stub.createInput.Overrides) != 1 || stub.createInput.Overrides[0] != application.OverrideCreateDuplicate {
			t.Fatalf("expected override to pass through, got %v", stub.createInput.Overrides)
		}

		body := decodeBody[jobResponse](t, rr)
		if body.Job.ID != "job-1" || body.Job.Price != 9500 {
			t.Fatalf("unexpected job payload: %+v", body.Job)
		}
		if body.Job.ScheduledFor == nil || *body.Job.ScheduledFor != "2026-03-12T10:00:00Z" {
			t.Fatalf("unexpected scheduledFor: %v", body.Job.ScheduledFor)
		}
		if len(body.Warnings) != 1 || body.Warnings[0].EmployeeID != "emp-a" || body.Warnings[0].ConflictingJobIDs[0] != "job-0" {
			t.Fatalf("unexpected warnings: %+v", body.Warnings)
		}
	})

	t.Run("reads offsetless times in the business timezone", func(t *testing.T) {
		t.Parallel()
		stub := &jobServiceStub{}
		rr := serve(t, newJobRouter(t, stub), http.MethodPost, "/jobs", `{"customerId":"c","address":"a","employeeIds":["e"],"scheduledFor":"2026-07-01T09:30"}`)
		if rr.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
		}
		want := time.Date(2026, 7, 1, 8, 30, 0, 0, time.UTC)
		if stub.createInput.ScheduledFor == nil || !stub.createInput.ScheduledFor.Equal(want) {
			t.Fatalf("expected %v (BST), got %v", want, stub.createInput.ScheduledFor)
		}
	})

	t.Run("conflict carries code and override", func(t *testing.T) {
		t.Parallel()
		stub := &jobServiceStub{err: &application.ConflictError{
			Code:     application.ConflictDuplicateBooking,
			Message:  "customer already has a job within two hours",
			Override: application.OverrideCreateDuplicate,
		}}

		rr := serve(t, newJobRouter(t, stub), http.MethodPost, "/jobs", `{"customerId":"c","address":"a","employeeIds":["e"]}`)
		if rr.Code != http.StatusConflict {
			t.Fatalf("expected 409, got %d", rr.Code)
		}
		body := decodeBody[errorResponse](t, rr)
		if body.Code != application.ConflictDuplicateBooking || body.Override != application.OverrideCreateDuplicate {
			t.Fatalf("unexpected conflict body: %+v", body)
		}
		if body.Error == "" {
			t.Fatalf("expected error message")
		}
	})

	t.Run("validation errors map to 422 with fields", func(t *testing.T) {
		t.Parallel()
		stub := &jobServiceStub{err: &application.ValidationError{FieldErrors: map[string]string{
			"customerId":  "customer is required",
			"employeeIds": "at least one employee is required",
		}}}

		rr := serve(t, newJobRouter(t, stub), http.MethodPost, "/jobs", `{}`)
		if rr.Code != http.StatusUnprocessableEntity {
			t.Fatalf("expected 422, got %d", rr.Code)
		}
		body := decodeBody[errorResponse](t, rr)
		if body.Fields["customerId"] == "" || body.Fields["employeeIds"] == "" {
			t.Fatalf("expected field errors, got %+v", body.Fields)
		}
	})

	t.Run("malformed input is rejected before the service", func(t *testing.T) {
		t.Parallel()
		tests := []struct {
			name  string
			body  string
			field string
		}{
			{name: "not json", body: `{`},
			{name: "bad start", body: `{"scheduledFor":"tomorrow"}`, field: "scheduledFor"},
			{name: "bad end", body: `{"scheduledEnd":"12/03/2026"}`, field: "scheduledEnd"},
		}
		for _, tc := range tests {
			tc := tc
			t.Run(tc.name, func(t *testing.T) {
				t.Parallel()
				stub := &jobServiceStub{}
				rr := serve(t, newJobRouter(t, stub), http.MethodPost, "/jobs", tc.body)
				if rr.Code != http.StatusBadRequest {
					t.Fatalf("expected 400, got %d", rr.Code)
				}
				if tc.field != "" {
					body := decodeBody[errorResponse](t, rr)
					if body.Fields[tc.field] == "" {
						t.Fatalf("expected field %s, got %+v", tc.field, body)
					}
				}
				if stub.createInput.CustomerID != "" || stub.createInput.ScheduledFor != nil {
					t.Fatalf("service should not have been called")
				}
			})
		}
	})
}

func TestJobHandlerList(t *testing.T) {
	t.Parallel()

	stub := &jobServiceStub{listed: []persistence.Job{{ID: "job-1"}, {ID: "job-2"}}}
	rr := serve(t, newJobRouter(t, stub), http.MethodGet, "/jobs?startDate=2026-03-09&endDate=2026-03-15&status=scheduled,%20completed&customerId=cust-9", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	london := mustLocation(t, "Europe/London")
	wantFrom := time.Date(2026, 3, 9, 0, 0, 0, 0, london)
	wantTo := time.Date(2026, 3, 16, 0, 0, 0, 0, london)
	p := stub.listParams
	if p.From == nil || !p.From.Equal(wantFrom) {
		t.Fatalf("expected from %v, got %v", wantFrom, p.From)
	}
	if p.To == nil || !p.To.Equal(wantTo) {
		t.Fatalf("expected inclusive end date to extend to %v, got %v", wantTo, p.To)
	}
	if len(p.Statuses) != 2 || p.Statuses[0] != "scheduled" || p.Statuses[1] != "completed" {
		t.Fatalf("unexpected statuses: %v", p.Statuses)
	}
	if p.CustomerID != "cust-9" {
		t.Fatalf("unexpected customer: %q", p.CustomerID)
	}

	body := decodeBody[listJobsResponse](t, rr)
	if len(body.Jobs) != 2 {
		t.Fatalf("expected 2 jobs, got %d", len(body.Jobs))
	}
}

func TestJobHandlerErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		err    error
		method string
		target string
		body   string
		status int
		code   string
	}{
		{name: "get not found", err: fmt.Errorf("wrap: %w", application.ErrNotFound), method: http.MethodGet, target: "/jobs/missing", status: http.StatusNotFound, code: "not_found"},
		{name: "reschedule completed", err: application.ErrImmutableJob, method: http.MethodPost, target: "/jobs/job-1/reschedule", body: `{"newDate":"2026-03-12T09:00:00Z"}`, status: http.StatusConflict, code: "immutable_job"},
		{name: "reschedule into past", err: &application.ConflictError{Code: application.ConflictRescheduleInPast, Message: "new start is in the past"}, method: http.MethodPost, target: "/jobs/job-1/reschedule", body: `{"newDate":"2020-01-01T09:00:00Z"}`, status: http.StatusConflict, code: application.ConflictRescheduleInPast},
		{name: "bad transition", err: fmt.Errorf("%w: cannot start a completed job", application.ErrInvalidTransition), method: http.MethodPost, target: "/jobs/job-1/status", body: `{"action":"start"}`, status: http.StatusConflict, code: "invalid_transition"},
		{name: "unexpected", err: errors.New("disk on fire"), method: http.MethodGet, target: "/jobs/job-1", status: http.StatusInternalServerError, code: "internal"},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			rr := serve(t, newJobRouter(t, &jobServiceStub{err: tc.err}), tc.method, tc.target, tc.body)
			if rr.Code != tc.status {
				t.Fatalf("expected %d, got %d: %s", tc.status, rr.Code, rr.Body.String())
			}
			body := decodeBody[errorResponse](t, rr)
			if body.Code != tc.code {
				t.Fatalf("expected code %q, got %+v", tc.code, body)
			}
			if body.Override != "" {
				t.Fatalf("expected no override, got %q", body.Override)
			}
		})
	}
}

func TestJobHandlerReschedule(t *testing.T) {
	t.Parallel()

	stub := &jobServiceStub{}
	rr := serve(t, newJobRouter(t, stub), http.MethodPost, "/jobs/job-1/reschedule", `{"newDate":"2026-03-12T09:00:00Z","reason":" customer asked "}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if stub.reschedule.JobID != "job-1" {
		t.Fatalf("expected path id, got %q", stub.reschedule.JobID)
	}
	if !stub.reschedule.NewStart.Equal(time.Date(2026, 3, 12, 9, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected start %v", stub.reschedule.NewStart)
	}
	if stub.reschedule.NewEnd != nil {
		t.Fatalf("expected nil end to keep the duration, got %v", stub.reschedule.NewEnd)
	}
	if stub.reschedule.Reason != "customer asked" {
		t.Fatalf("unexpected reason %q", stub.reschedule.Reason)
	}

	rr = serve(t, newJobRouter(t, &jobServiceStub{}), http.MethodPost, "/jobs/job-1/reschedule", `{"newDate":"2026-03-12T09:00:00Z","newEndDate":"soon"}`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad end, got %d", rr.Code)
	}
}

func TestJobHandlerAssignAndStatus(t *testing.T) {
	t.Parallel()

	stub := &jobServiceStub{}
	router := newJobRouter(t, stub)

	rr := serve(t, router, http.MethodPost, "/jobs/job-1/assign", `{"employeeId":"emp-b","sendNotification":true,"payAmount":3000}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if stub.assign.JobID != "job-1" || stub.assign.EmployeeID != "emp-b" || !stub.assign.SendNotification {
		t.Fatalf("unexpected assign input: %+v", stub.assign)
	}
	if stub.assign.PayAmountPence == nil || *stub.assign.PayAmountPence != 3000 {
		t.Fatalf("expected pay amount 3000, got %v", stub.assign.PayAmountPence)
	}

	rr = serve(t, router, http.MethodPost, "/jobs/job-1/status", `{"action":"Start"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if stub.action != application.ActionStart {
		t.Fatalf("expected start action, got %q", stub.action)
	}

	rr = serve(t, router, http.MethodPost, "/jobs/job-1/status", `{"action":"pause"}`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown action, got %d", rr.Code)
	}
}

func TestJobHandlerHistory(t *testing.T) {
	t.Parallel()

	old := time.Date(2026, 3, 11, 9, 0, 0, 0, time.UTC)
	stub := &jobServiceStub{history: []persistence.RescheduleRecord{{
		ID:        "r-1",
		JobID:     "job-1",
		OldStart:  &old,
		NewStart:  old.Add(24 * time.Hour),
		NewEnd:    old.Add(25 * time.Hour),
		Reason:    "rescheduled",
		CreatedAt: old,
	}}}

	rr := serve(t, newJobRouter(t, stub), http.MethodGet, "/jobs/job-1/history", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	body := decodeBody[historyResponse](t, rr)
	if len(body.History) != 1 || body.History[0].NewStart != "2026-03-12T09:00:00Z" || body.History[0].OldEnd != nil {
		t.Fatalf("unexpected history: %+v", body.History)
	}
}

func TestRouterRejectsWrongMethod(t *testing.T) {
	t.Parallel()

	rr := serve(t, newJobRouter(t, &jobServiceStub{}), http.MethodDelete, "/jobs/job-1", "")
	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rr.Code)
	}
}
