package observability

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestInitMetrics_CountersAppearInOutput(t *testing.T) {
	ctx := context.Background()

	handler, shutdown, err := InitMetrics()
	if err != nil {
		t.Fatalf("InitMetrics failed: %v", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = shutdown(shutdownCtx)
	}()

	counters, err := NewCounters()
	if err != nil {
		t.Fatalf("NewCounters failed: %v", err)
	}
	counters.AvailabilityChecked(ctx, true)
	counters.AvailabilityChecked(ctx, false)
	counters.Rescheduled(ctx, errors.New("boom"))
	counters.Booked(ctx, nil)
	counters.PhotosReviewed(ctx, "verified", 3)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("handler returned wrong status code: got %v want %v", rr.Code, http.StatusOK)
	}
	body := rr.Body.String()
	for _, name := range []string{"ops_availability_checks_total", "ops_job_reschedules_total", "ops_bookings_total", "ops_photo_reviews_total"} {
		if !strings.Contains(body, name) {
			t.Errorf("expected metric %q in output", name)
		}
	}
}

func TestNilCountersAreSafe(t *testing.T) {
	var counters *Counters
	ctx := context.Background()
	counters.AvailabilityChecked(ctx, true)
	counters.Rescheduled(ctx, nil)
	counters.Booked(ctx, nil)
	counters.PhotosReviewed(ctx, "verified", 1)
}

func TestInitTracer_LazyConnection(t *testing.T) {
	shutdown, err := InitTracer(context.Background(), "cleaning-ops-test", "localhost:4317")
	if err != nil {
		t.Logf("InitTracer returned error (may be expected in test environment): %v", err)
		return
	}
	if shutdown == nil {
		t.Fatal("expected shutdown function to be non-nil")
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_ = shutdown(shutdownCtx)
}

func TestTraceMiddlewarePassesThrough(t *testing.T) {
	handler := TraceMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/jobs", nil))
	if rr.Code != http.StatusTeapot {
		t.Fatalf("expected 418, got %d", rr.Code)
	}
}
