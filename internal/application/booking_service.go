package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/cleaning-ops/internal/booking"
	"github.com/example/cleaning-ops/internal/email"
	"github.com/example/cleaning-ops/internal/observability"
	"github.com/example/cleaning-ops/internal/persistence"
)

// BookingService re-validates and stores public bookings. It satisfies
// booking.Submitter so the wizard can submit to it directly.
type BookingService struct {
	bookings    persistence.BookingRepository
	prices      booking.PriceList
	notify      notifier
	counters    *observability.Counters
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewBookingService constructs a booking service. A nil price list uses the defaults.
func NewBookingService(bookings persistence.BookingRepository, prices booking.PriceList, idGenerator func() string, now func() time.Time) *BookingService {
	return NewBookingServiceWithLogger(bookings, prices, nil, nil, nil, idGenerator, now, nil)
}

// NewBookingServiceWithLogger constructs a booking service with mail delivery, counters and a specified logger.
func NewBookingServiceWithLogger(bookings persistence.BookingRepository, prices booking.PriceList, renderer *email.Renderer, mailer email.Mailer, counters *observability.Counters, idGenerator func() string, now func() time.Time, logger *slog.Logger) *BookingService {
	if len(prices) == 0 {
		prices = booking.DefaultPrices()
	}
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &BookingService{
		bookings:    bookings,
		prices:      prices,
		notify:      notifier{renderer: renderer, mailer: mailer},
		counters:    counters,
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

func (s *BookingService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "BookingService", operation, attrs...)
}

// Prices returns the price list used for estimates.
func (s *BookingService) Prices() booking.PriceList {
	return s.prices
}

// SubmitBooking validates every wizard step, computes the estimate and
// stores the booking. The client supplied estimate is ignored.
func (s *BookingService) SubmitBooking(ctx context.Context, form booking.Form) (record booking.Record, err error) {
	if s == nil {
		err = fmt.Errorf("BookingService is nil")
		return
	}

	logger := s.loggerWith(ctx, "SubmitBooking", "service_type", form.ServiceType)
	defer func() {
		s.counters.Booked(ctx, err)
		if err != nil {
			logger.ErrorContext(ctx, "failed to submit booking", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("booking_id", record.ID, "reference", record.Reference).InfoContext(ctx, "booking submitted")
	}()

	if err = booking.ValidateAll(form, s.prices); err != nil {
		return
	}
	estimate, err := booking.Estimate(s.prices, form.ServiceType, form.Bedrooms, form.Bathrooms)
	if err != nil {
		return
	}
	form.EstimatedPrice = estimate

	id := s.idGenerator()
	stored := persistence.Booking{
		ID:                id,
		Reference:         bookingReference(id),
		FirstName:         strings.TrimSpace(form.FirstName),
		LastName:          strings.TrimSpace(form.LastName),
		Email:             strings.TrimSpace(form.Email),
		Phone:             strings.TrimSpace(form.Phone),
		Address:           strings.TrimSpace(form.Address),
		City:              strings.TrimSpace(form.City),
		Postcode:          strings.ToUpper(strings.TrimSpace(form.Postcode)),
		ServiceType:       form.ServiceType,
		PropertyType:      form.PropertyType,
		Bedrooms:          form.Bedrooms,
		Bathrooms:         form.Bathrooms,
		PreferredDate:     optionalString(form.PreferredDate),
		AlternativeDate:   optionalString(form.AlternativeDate),
		TimeSlot:          form.TimeSlot,
		ServiceProviderID: form.ServiceProviderID,
		Notes:             optionalString(form.Notes),
		EstimatedPrice:    estimate,
		CreatedAt:         s.now(),
	}

	if s.bookings != nil {
		if err = s.bookings.CreateBooking(ctx, stored); err != nil {
			err = mapRepoError(err, "serviceProviderId", "unknown service provider")
			return
		}
	}

	record = booking.Record{ID: stored.ID, Reference: stored.Reference, Form: form}

	sendErr := s.notify.send(ctx, func(r *email.Renderer) (email.Message, error) {
		return r.BookingReceived(email.BookingReceived{
			To:            stored.Email,
			CustomerName:  strings.TrimSpace(stored.FirstName + " " + stored.LastName),
			Reference:     stored.Reference,
			ServiceType:   stored.ServiceType,
			PreferredDate: form.PreferredDate,
			TimeSlot:      stored.TimeSlot,
			EstimatePence: estimate * 100,
		})
	})
	if sendErr != nil {
		logger.WarnContext(ctx, "failed to send booking acknowledgement", "error", sendErr)
	}
	return
}

// GetBooking returns a stored booking.
func (s *BookingService) GetBooking(ctx context.Context, id string) (persistence.Booking, error) {
	if s == nil || s.bookings == nil {
		return persistence.Booking{}, fmt.Errorf("booking repository not configured")
	}
	stored, err := s.bookings.GetBooking(ctx, id)
	if err != nil {
		return persistence.Booking{}, mapRepoError(err, "id", "invalid booking id")
	}
	return stored, nil
}

// bookingReference derives the customer facing reference from the id.
func bookingReference(id string) string {
	compact := strings.ToUpper(strings.ReplaceAll(id, "-", ""))
	if len(compact) > 8 {
		compact = compact[:8]
	}
	return "BK-" + compact
}

func optionalString(value string) *string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
