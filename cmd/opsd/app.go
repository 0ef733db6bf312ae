package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/example/cleaning-ops/internal/application"
	"github.com/example/cleaning-ops/internal/booking"
	"github.com/example/cleaning-ops/internal/calendar"
	"github.com/example/cleaning-ops/internal/config"
	"github.com/example/cleaning-ops/internal/email"
	"github.com/example/cleaning-ops/internal/events"
	httptransport "github.com/example/cleaning-ops/internal/http"
	"github.com/example/cleaning-ops/internal/observability"
	"github.com/example/cleaning-ops/internal/persistence/sqlite"
)

// app owns the wired services and the HTTP handler over one storage.
type app struct {
	handler http.Handler
	bus     *events.Bus

	availability *application.AvailabilityService
	stopWatch    func()
}

// buildApp wires services and handlers. metricsHandler may be nil, in which
// case /metrics is not served.
func buildApp(cfg config.Config, storage *sqlite.Storage, metricsHandler http.Handler, logger *slog.Logger) (*app, error) {
	now := time.Now
	idGenerator := uuid.NewString

	renderer, err := email.NewRenderer(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("init email renderer: %w", err)
	}
	mailer := application.NewOutboxMailer(storage.OutboxRepository, idGenerator, now)

	counters, err := observability.NewCounters()
	if err != nil {
		return nil, fmt.Errorf("init counters: %w", err)
	}

	bus := events.NewBus()
	registerBusGauge(bus, logger)

	availabilityService := application.NewAvailabilityServiceWithLogger(storage.JobRepository, storage.EmployeeRepository, cfg.AvailabilityCacheTTL, now, counters, logger)
	jobService := application.NewJobService(application.JobServiceDeps{
		Jobs:         storage.JobRepository,
		Employees:    storage.EmployeeRepository,
		Availability: availabilityService,
		Events:       bus,
		Renderer:     renderer,
		Mailer:       mailer,
		Counters:     counters,
		IDGenerator:  idGenerator,
		Now:          now,
		Logger:       logger,
	})
	employeeService := application.NewEmployeeServiceWithLogger(storage.EmployeeRepository, idGenerator, now, logger)
	calendarService := application.NewCalendarServiceWithLogger(storage.JobRepository, jobService, calendar.NewLayout(cfg.HourHeight), cfg.Timezone, logger)
	bookingService := application.NewBookingServiceWithLogger(storage.BookingRepository, booking.PriceList(cfg.BasePrices), renderer, mailer, counters, idGenerator, now, logger)
	verificationService := application.NewVerificationServiceWithLogger(storage.PhotoRepository, storage.JobRepository, bus, counters, now, logger)
	profitabilityService := application.NewProfitabilityServiceWithLogger(storage.JobRepository, storage.EmployeeRepository, cfg.Timezone, logger)

	router := httptransport.NewRouter(httptransport.RouterConfig{
		Jobs:          httptransport.NewJobHandler(jobService, cfg.Timezone, logger),
		Availability:  httptransport.NewAvailabilityHandler(availabilityService, cfg.Timezone, logger),
		Calendar:      httptransport.NewCalendarHandler(calendarService, logger),
		Employees:     httptransport.NewEmployeeHandler(employeeService, logger),
		Bookings:      httptransport.NewBookingHandler(bookingService, logger),
		Photos:        httptransport.NewPhotoHandler(verificationService, logger),
		Profitability: httptransport.NewProfitabilityHandler(profitabilityService, cfg.Timezone, logger),
		Events:        httptransport.NewEventsHandler(bus, 0, logger),
		Health:        httptransport.NewHealthHandler(storage, logger),
		Metrics:       metricsHandler,
		BookingMiddleware: []httptransport.Middleware{
			httptransport.RateLimit(httptransport.RateLimitConfig{
				RequestsPerSecond: cfg.BookingRateLimit,
				Burst:             cfg.BookingRateBurst,
				TrustedProxies:    cfg.TrustedProxies,
			}, logger),
		},
		Middleware: []httptransport.Middleware{
			httptransport.RequestLogger(logger),
			observability.TraceMiddleware,
		},
	})

	return &app{handler: router, bus: bus, availability: availabilityService}, nil
}

// startWatch keeps the availability cache in step with job writes.
func (a *app) startWatch(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	changes, unsubscribe := a.bus.Subscribe(events.DefaultBuffer)
	done := make(chan struct{})
	go func() {
		defer close(done)
		a.availability.Watch(ctx, changes)
	}()
	a.stopWatch = func() {
		cancel()
		unsubscribe()
		<-done
	}
}

func (a *app) close() {
	if a.stopWatch != nil {
		a.stopWatch()
	}
}

func registerBusGauge(bus *events.Bus, logger *slog.Logger) {
	meter := otel.Meter(observability.MeterName)
	_, err := meter.Int64ObservableGauge("ops_event_subscribers",
		metric.WithDescription("Open job change subscriptions"),
		metric.WithInt64Callback(func(ctx context.Context, obs metric.Int64Observer) error {
			obs.Observe(int64(bus.Subscribers()))
			return nil
		}),
	)
	if err != nil {
		logger.Warn("failed to register subscriber gauge", "error", err)
	}
}
