package application

import (
	"context"
	"errors"
	"log/slog"

	"github.com/example/cleaning-ops/internal/booking"
	"github.com/example/cleaning-ops/internal/logging"
	"github.com/example/cleaning-ops/internal/verification"
)

func defaultLogger(logger *slog.Logger) *slog.Logger {
	if logger != nil {
		return logger
	}
	return slog.Default()
}

func serviceLogger(ctx context.Context, base *slog.Logger, serviceName, operation string, attrs ...any) *slog.Logger {
	logger := logging.FromContext(ctx)
	if logger == nil {
		logger = base
	}
	if logger == nil {
		logger = slog.Default()
	}

	pairs := []any{"service", serviceName}
	if operation != "" {
		pairs = append(pairs, "operation", operation)
	}
	if len(attrs) > 0 {
		pairs = append(pairs, attrs...)
	}
	return logger.With(pairs...)
}

// ErrorKind maps sentinel and validation errors to a stable logging label.
func ErrorKind(err error) string {
	if err == nil {
		return ""
	}
	switch {
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrAlreadyExists):
		return "already_exists"
	case errors.Is(err, ErrImmutableJob):
		return "immutable_job"
	case errors.Is(err, ErrInvalidTransition):
		return "invalid_transition"
	case errors.Is(err, booking.ErrSubmitted), errors.Is(err, booking.ErrUnknownService):
		return "validation"
	case errors.Is(err, verification.ErrInvalidTarget), errors.Is(err, verification.ErrReasonRequired):
		return "validation"
	}

	var conflict *ConflictError
	if errors.As(err, &conflict) {
		return "conflict"
	}
	var vErr *ValidationError
	if errors.As(err, &vErr) {
		return "validation"
	}
	if _, ok := booking.AsIncomplete(err); ok {
		return "validation"
	}

	return "unexpected"
}
