package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/example/cleaning-ops/internal/application"
	"github.com/example/cleaning-ops/internal/booking"
	"github.com/example/cleaning-ops/internal/verification"
)

var (
	errBadRequestBody = errors.New("request body is not valid JSON")
	errMissingID      = errors.New("resource id is required")
	errInvalidPhotoID = errors.New("photo id must be a positive integer")
)

type responder struct {
	logger *slog.Logger
}

func newResponder(logger *slog.Logger) responder {
	return responder{logger: defaultLogger(logger)}
}

func (r responder) writeJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	if w == nil {
		return
	}

	if status == http.StatusNoContent || payload == nil {
		w.WriteHeader(status)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		r.loggerFor(ctx).ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

func (r responder) writeError(ctx context.Context, w http.ResponseWriter, status int, err error) {
	message := statusMessage(status)
	if err != nil {
		if msg := strings.TrimSpace(err.Error()); msg != "" {
			message = msg
		}
		r.loggerFor(ctx).WarnContext(ctx, "request rejected", "status", status, "error", err)
	}

	r.writeJSON(ctx, w, status, errorResponse{Error: message})
}

func (r responder) writeFieldError(ctx context.Context, w http.ResponseWriter, field, message string) {
	r.writeJSON(ctx, w, http.StatusBadRequest, errorResponse{
		Error:  statusMessage(http.StatusBadRequest),
		Code:   "bad_request",
		Fields: map[string]string{field: message},
	})
}

func (r responder) handleServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		r.writeError(ctx, w, http.StatusInternalServerError, errors.New("unknown error"))
		return
	}

	status, body := classifyError(err)
	if status >= http.StatusInternalServerError {
		r.loggerFor(ctx).ErrorContext(ctx, "request failed", "status", status, "error", err)
	}
	r.writeJSON(ctx, w, status, body)
}

func classifyError(err error) (int, errorResponse) {
	var conflict *application.ConflictError
	if errors.As(err, &conflict) {
		return http.StatusConflict, errorResponse{Error: conflict.Message, Code: conflict.Code, Override: conflict.Override}
	}

	var vErr *application.ValidationError
	if errors.As(err, &vErr) {
		return http.StatusUnprocessableEntity, errorResponse{
			Error:  statusMessage(http.StatusUnprocessableEntity),
			Code:   "validation_failed",
			Fields: copyFields(vErr.FieldErrors),
		}
	}

	if incomplete, ok := booking.AsIncomplete(err); ok {
		return http.StatusUnprocessableEntity, errorResponse{
			Error:  "booking is incomplete",
			Code:   "validation_failed",
			Fields: copyFields(incomplete.Fields),
		}
	}

	switch {
	case errors.Is(err, application.ErrNotFound):
		return http.StatusNotFound, errorResponse{Error: statusMessage(http.StatusNotFound), Code: "not_found"}
	case errors.Is(err, application.ErrImmutableJob):
		return http.StatusConflict, errorResponse{Error: "completed jobs cannot be changed", Code: "immutable_job"}
	case errors.Is(err, application.ErrInvalidTransition):
		return http.StatusConflict, errorResponse{Error: trimPrefix(err), Code: "invalid_transition"}
	case errors.Is(err, application.ErrAlreadyExists):
		return http.StatusConflict, errorResponse{Error: "a record with the same unique value already exists", Code: "already_exists"}
	case errors.Is(err, booking.ErrUnknownService):
		return http.StatusUnprocessableEntity, errorResponse{
			Error:  statusMessage(http.StatusUnprocessableEntity),
			Code:   "validation_failed",
			Fields: map[string]string{"serviceType": "unknown service type"},
		}
	case errors.Is(err, booking.ErrSubmitted):
		return http.StatusConflict, errorResponse{Error: "booking was already submitted", Code: "already_submitted"}
	case errors.Is(err, verification.ErrInvalidTarget):
		return http.StatusUnprocessableEntity, errorResponse{
			Error:  statusMessage(http.StatusUnprocessableEntity),
			Code:   "validation_failed",
			Fields: map[string]string{"status": "must be verified or rejected"},
		}
	case errors.Is(err, verification.ErrReasonRequired):
		return http.StatusUnprocessableEntity, errorResponse{
			Error:  statusMessage(http.StatusUnprocessableEntity),
			Code:   "validation_failed",
			Fields: map[string]string{"reason": "a reason is required when rejecting"},
		}
	}

	return http.StatusInternalServerError, errorResponse{Error: statusMessage(http.StatusInternalServerError), Code: "internal"}
}

func (r responder) loggerFor(ctx context.Context) *slog.Logger {
	if logger := LoggerFromContext(ctx); logger != nil {
		return logger
	}
	return r.logger
}

func statusMessage(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "the request is malformed"
	case http.StatusNotFound:
		return "the requested resource was not found"
	case http.StatusConflict:
		return "the request conflicts with the current state of the resource"
	case http.StatusUnprocessableEntity:
		return "the submitted values are invalid"
	case http.StatusTooManyRequests:
		return "too many requests, try again shortly"
	default:
		return "an internal error occurred"
	}
}

// trimPrefix drops the "application: ..." sentinel text and keeps the detail.
func trimPrefix(err error) string {
	msg := err.Error()
	if i := strings.LastIndex(msg, ": "); i >= 0 && i+2 < len(msg) {
		return msg[i+2:]
	}
	return msg
}

func copyFields(fields map[string]string) map[string]string {
	if len(fields) == 0 {
		return nil
	}
	out := make(map[string]string, len(fields))
	for k, v := range fields {
		out[k] = v
	}
	return out
}

type errorResponse struct {
	Error    string            `json:"error"`
	Code     string            `json:"code,omitempty"`
	Override string            `json:"override,omitempty"`
	Fields   map[string]string `json:"fields,omitempty"`
}
