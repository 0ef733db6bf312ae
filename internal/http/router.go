package http

import (
	"net/http"
)

// Middleware wraps a handler.
type Middleware func(http.Handler) http.Handler

type RouterConfig struct {
	Jobs          *JobHandler
	Availability  *AvailabilityHandler
	Calendar      *CalendarHandler
	Employees     *EmployeeHandler
	Bookings      *BookingHandler
	Photos        *PhotoHandler
	Profitability *ProfitabilityHandler
	Events        *EventsHandler
	Health        *HealthHandler
	Metrics       http.Handler
	// BookingMiddleware wraps only POST /bookings, typically RateLimit.
	BookingMiddleware []Middleware
	Middleware        []Middleware
}

func NewRouter(cfg RouterConfig) http.Handler {
	mux := http.NewServeMux()

	if cfg.Jobs != nil {
		mux.HandleFunc("GET /jobs", cfg.Jobs.List)
		mux.HandleFunc("POST /jobs", cfg.Jobs.Create)
		mux.HandleFunc("GET /jobs/{id}", cfg.Jobs.Get)
		mux.HandleFunc("GET /jobs/{id}/history", cfg.Jobs.History)
		mux.HandleFunc("POST /jobs/{id}/reschedule", cfg.Jobs.Reschedule)
		mux.HandleFunc("POST /jobs/{id}/assign", cfg.Jobs.Assign)
		mux.HandleFunc("POST /jobs/{id}/status", cfg.Jobs.ChangeStatus)
	}

	if cfg.Photos != nil {
		mux.HandleFunc("POST /jobs/{id}/photos", cfg.Photos.Upload)
		mux.HandleFunc("GET /jobs/{id}/verification", cfg.Photos.Verification)
		mux.HandleFunc("PATCH /photos/{id}", cfg.Photos.Review)
		mux.HandleFunc("POST /photos/bulk-verify", cfg.Photos.BulkReview)
	}

	if cfg.Availability != nil {
		mux.HandleFunc("GET /availability", cfg.Availability.Check)
	}

	if cfg.Calendar != nil {
		mux.HandleFunc("GET /calendar", cfg.Calendar.View)
		mux.HandleFunc("GET /calendar/timeline", cfg.Calendar.Timeline)
		mux.HandleFunc("POST /calendar/drop", cfg.Calendar.Drop)
	}

	if cfg.Employees != nil {
		mux.HandleFunc("GET /employees", cfg.Employees.List)
		mux.HandleFunc("POST /employees", cfg.Employees.Create)
		mux.HandleFunc("GET /employees/{id}", cfg.Employees.Get)
	}

	if cfg.Bookings != nil {
		mux.Handle("POST /bookings", chain(http.HandlerFunc(cfg.Bookings.Create), cfg.BookingMiddleware))
		mux.HandleFunc("GET /bookings/prices", cfg.Bookings.Prices)
		mux.HandleFunc("GET /bookings/{id}", cfg.Bookings.Get)
	}

	if cfg.Profitability != nil {
		mux.HandleFunc("GET /profitability", cfg.Profitability.Trend)
	}

	if cfg.Events != nil {
		mux.HandleFunc("GET /events", cfg.Events.Stream)
	}

	if cfg.Health != nil {
		mux.HandleFunc("GET /health", cfg.Health.Check)
	}

	if cfg.Metrics != nil {
		mux.Handle("GET /metrics", cfg.Metrics)
	}

	return chain(mux, cfg.Middleware)
}

// chain applies middleware so that the first entry is the outermost.
func chain(handler http.Handler, middleware []Middleware) http.Handler {
	for i := len(middleware) - 1; i >= 0; i-- {
		if middleware[i] != nil {
			handler = middleware[i](handler)
		}
	}
	return handler
}
