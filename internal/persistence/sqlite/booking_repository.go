package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/example/cleaning-ops/internal/persistence"
)

// BookingRepository implements persistence.BookingRepository using SQLite
type BookingRepository struct {
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewBookingRepository creates a new SQLite booking repository
func NewBookingRepository(pool *ConnectionPool) *BookingRepository {
	return &BookingRepository{helper: NewQueryHelper(pool), mapper: NewErrorMapper()}
}

// CreateBooking inserts a booking.
func (r *BookingRepository) CreateBooking(ctx context.Context, b persistence.Booking) error {
	_, err := r.helper.Exec(ctx, `
		INSERT INTO bookings (id, reference, first_name, last_name, email, phone, address, city, postcode,
			service_type, property_type, bedrooms, bathrooms, preferred_date, alternative_date, time_slot,
			service_provider_id, notes, estimated_price, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.ID, b.Reference, b.FirstName, b.LastName, b.Email, b.Phone, b.Address, b.City, b.Postcode,
		b.ServiceType, b.PropertyType, b.Bedrooms, b.Bathrooms, nullString(b.PreferredDate),
		nullString(b.AlternativeDate), b.TimeSlot, b.ServiceProviderID, nullString(b.Notes),
		b.EstimatedPrice, formatTime(b.CreatedAt),
	)
	return r.mapper.MapError(err)
}

// GetBooking retrieves a booking by ID.
func (r *BookingRepository) GetBooking(ctx context.Context, id string) (persistence.Booking, error) {
	var b persistence.Booking
	var preferred, alternative, notes sql.NullString
	var createdAt string
	err := r.helper.QueryRow(ctx, `
		SELECT id, reference, first_name, last_name, email, phone, address, city, postcode,
			service_type, property_type, bedrooms, bathrooms, preferred_date, alternative_date, time_slot,
			service_provider_id, notes, estimated_price, created_at
		FROM bookings WHERE id = ?`, id,
	).Scan(
		&b.ID, &b.Reference, &b.FirstName, &b.LastName, &b.Email, &b.Phone, &b.Address, &b.City, &b.Postcode,
		&b.ServiceType, &b.PropertyType, &b.Bedrooms, &b.Bathrooms, &preferred, &alternative, &b.TimeSlot,
		&b.ServiceProviderID, &notes, &b.EstimatedPrice, &createdAt,
	)
	if err != nil {
		return persistence.Booking{}, r.mapper.MapError(err)
	}
	b.PreferredDate = stringPtr(preferred)
	b.AlternativeDate = stringPtr(alternative)
	b.Notes = stringPtr(notes)
	if b.CreatedAt, err = parseTime(createdAt); err != nil {
		return persistence.Booking{}, fmt.Errorf("failed to parse created_at: %w", err)
	}
	return b, nil
}

var _ persistence.BookingRepository = (*BookingRepository)(nil)
