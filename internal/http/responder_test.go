package http

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/example/cleaning-ops/internal/application"
	"github.com/example/cleaning-ops/internal/booking"
	"github.com/example/cleaning-ops/internal/verification"
)

func TestClassifyError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		err    error
		status int
		code   string
		field  string
	}{
		{name: "not found", err: application.ErrNotFound, status: http.StatusNotFound, code: "not_found"},
		{name: "already exists", err: application.ErrAlreadyExists, status: http.StatusConflict, code: "already_exists"},
		{name: "immutable", err: fmt.Errorf("drop: %w", application.ErrImmutableJob), status: http.StatusConflict, code: "immutable_job"},
		{name: "conflict", err: &application.ConflictError{Code: application.ConflictMissingPayAmount, Message: "pay required", Override: application.OverrideAllowMissingPay}, status: http.StatusConflict, code: application.ConflictMissingPayAmount},
		{name: "validation", err: &application.ValidationError{FieldErrors: map[string]string{"slot": "invalid slot"}}, status: http.StatusUnprocessableEntity, code: "validation_failed", field: "slot"},
		{name: "unknown service", err: fmt.Errorf("%w: %q", booking.ErrUnknownService, "laundry"), status: http.StatusUnprocessableEntity, code: "validation_failed", field: "serviceType"},
		{name: "submitted", err: booking.ErrSubmitted, status: http.StatusConflict, code: "already_submitted"},
		{name: "invalid review target", err: verification.ErrInvalidTarget, status: http.StatusUnprocessableEntity, code: "validation_failed", field: "status"},
		{name: "unexpected", err: errors.New("boom"), status: http.StatusInternalServerError, code: "internal"},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			status, body := classifyError(tc.err)
			if status != tc.status {
				t.Fatalf("expected status %d, got %d", tc.status, status)
			}
			if body.Code != tc.code {
				t.Fatalf("expected code %q, got %q", tc.code, body.Code)
			}
			if tc.field != "" && body.Fields[tc.field] == "" {
				t.Fatalf("expected field %q, got %v", tc.field, body.Fields)
			}
			if body.Error == "" {
				t.Fatalf("expected an error message")
			}
		})
	}
}

func TestInvalidTransitionMessageDropsSentinelPrefix(t *testing.T) {
	t.Parallel()

	_, body := classifyError(fmt.Errorf("%w: cannot start a completed job", application.ErrInvalidTransition))
	if body.Error != "cannot start a completed job" {
		t.Fatalf("unexpected message %q", body.Error)
	}
}
