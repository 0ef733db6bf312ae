// Package observability wires OpenTelemetry metrics and tracing.
package observability

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"
)

// MeterName is the instrumentation scope of the service counters.
const MeterName = "github.com/example/cleaning-ops"

// InitMetrics installs a meter provider backed by a Prometheus exporter and
// returns the /metrics handler with the provider shutdown func.
func InitMetrics() (http.Handler, func(context.Context) error, error) {
	exporter, err := prometheus.New()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	provider := metric.NewMeterProvider(
		metric.WithReader(exporter),
	)

	otel.SetMeterProvider(provider)

	return promhttp.Handler(), provider.Shutdown, nil
}

// Counters are the domain counters recorded by the application services.
// The zero value records nothing.
type Counters struct {
	availabilityChecks otelmetric.Int64Counter
	reschedules        otelmetric.Int64Counter
	bookings           otelmetric.Int64Counter
	photoReviews       otelmetric.Int64Counter
}

// NewCounters creates the counters on the global meter provider.
func NewCounters() (*Counters, error) {
	meter := otel.Meter(MeterName)
	var (
		c   Counters
		err error
	)
	if c.availabilityChecks, err = meter.Int64Counter("ops_availability_checks_total",
		otelmetric.WithDescription("Availability classifications by outcome")); err != nil {
		return nil, err
	}
	if c.reschedules, err = meter.Int64Counter("ops_job_reschedules_total",
		otelmetric.WithDescription("Job reschedules by outcome")); err != nil {
		return nil, err
	}
	if c.bookings, err = meter.Int64Counter("ops_bookings_total",
		otelmetric.WithDescription("Public bookings by outcome")); err != nil {
		return nil, err
	}
	if c.photoReviews, err = meter.Int64Counter("ops_photo_reviews_total",
		otelmetric.WithDescription("Photo reviews by target status")); err != nil {
		return nil, err
	}
	return &c, nil
}

// AvailabilityChecked records one classification. known is false when the
// job fetch failed and the result was unknown.
func (c *Counters) AvailabilityChecked(ctx context.Context, known bool) {
	if c == nil {
		return
	}
	outcome := "known"
	if !known {
		outcome = "unknown"
	}
	c.add(ctx, c.availabilityChecks, 1, outcome)
}

// Rescheduled records a reschedule attempt.
func (c *Counters) Rescheduled(ctx context.Context, err error) {
	if c == nil {
		return
	}
	c.add(ctx, c.reschedules, 1, outcomeOf(err))
}

// Booked records a booking submission.
func (c *Counters) Booked(ctx context.Context, err error) {
	if c == nil {
		return
	}
	c.add(ctx, c.bookings, 1, outcomeOf(err))
}

// PhotosReviewed records n photos moved to status.
func (c *Counters) PhotosReviewed(ctx context.Context, status string, n int) {
	if c == nil || c.photoReviews == nil || n <= 0 {
		return
	}
	c.photoReviews.Add(ctx, int64(n), otelmetric.WithAttributes(attribute.String("status", status)))
}

func (c *Counters) add(ctx context.Context, counter otelmetric.Int64Counter, n int64, outcome string) {
	if counter == nil {
		return
	}
	counter.Add(ctx, n, otelmetric.WithAttributes(attribute.String("outcome", outcome)))
}

func outcomeOf(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
