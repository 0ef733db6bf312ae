package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/example/cleaning-ops/internal/booking"
	"github.com/example/cleaning-ops/internal/persistence"
)

type bookingService interface {
	SubmitBooking(ctx context.Context, form booking.Form) (booking.Record, error)
	GetBooking(ctx context.Context, id string) (persistence.Booking, error)
	Prices() booking.PriceList
}

// BookingHandler serves the public booking endpoint. Request and response
// bodies are the flat wizard form.
type BookingHandler struct {
	service   bookingService
	responder responder
}

func NewBookingHandler(service bookingService, logger *slog.Logger) *BookingHandler {
	return &BookingHandler{service: service, responder: newResponder(logger)}
}

// Create handles POST /bookings and echoes the stored record with 201.
func (h *BookingHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var form booking.Form
	if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	record, err := h.service.SubmitBooking(r.Context(), form)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger := handlerLogger(r.Context(), h.responder.logger, "BookingHandler", "Create", "booking_id", record.ID)
	logger.InfoContext(r.Context(), "booking accepted", "reference", record.Reference)
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, record)
}

// Get handles GET /bookings/{id}.
func (h *BookingHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	id, ok := pathID(r)
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errMissingID)
		return
	}

	stored, err := h.service.GetBooking(r.Context(), id)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, booking.Record{
		ID:        stored.ID,
		Reference: stored.Reference,
		Form: booking.Form{
			FirstName:         stored.FirstName,
			LastName:          stored.LastName,
			Email:             stored.Email,
			Phone:             stored.Phone,
			Address:           stored.Address,
			City:              stored.City,
			Postcode:          stored.Postcode,
			ServiceType:       stored.ServiceType,
			PropertyType:      stored.PropertyType,
			Bedrooms:          stored.Bedrooms,
			Bathrooms:         stored.Bathrooms,
			PreferredDate:     derefString(stored.PreferredDate),
			AlternativeDate:   derefString(stored.AlternativeDate),
			TimeSlot:          stored.TimeSlot,
			ServiceProviderID: stored.ServiceProviderID,
			Notes:             derefString(stored.Notes),
			EstimatedPrice:    stored.EstimatedPrice,
		},
	})
}

// Prices handles GET /bookings/prices.
func (h *BookingHandler) Prices(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, pricesResponse{
		Prices:            h.service.Prices(),
		BedroomSurcharge:  booking.BedroomSurcharge,
		BathroomSurcharge: booking.BathroomSurcharge,
	})
}

type pricesResponse struct {
	Prices            booking.PriceList `json:"prices"`
	BedroomSurcharge  int64             `json:"bedroomSurcharge"`
	BathroomSurcharge int64             `json:"bathroomSurcharge"`
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
