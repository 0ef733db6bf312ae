package application

import (
	"errors"
	"fmt"

	"github.com/example/cleaning-ops/internal/persistence"
)

var (
	// ErrNotFound is returned when the requested resource does not exist.
	ErrNotFound = errors.New("application: not found")
	// ErrAlreadyExists is returned when a unique field is already taken.
	ErrAlreadyExists = errors.New("application: already exists")
	// ErrImmutableJob is returned when a completed job would be changed.
	ErrImmutableJob = errors.New("application: completed jobs cannot be changed")
	// ErrInvalidTransition is returned for a status change the job lifecycle does not allow.
	ErrInvalidTransition = errors.New("application: invalid status transition")
)

// Conflict codes reported by ConflictError.
const (
	ConflictDuplicateBooking  = "duplicate_booking"
	ConflictScheduledInPast   = "scheduled_in_past"
	ConflictMissingPayAmount  = "missing_pay_amount"
	ConflictRescheduleInPast  = "reschedule_in_past"
	ConflictDuplicatePhoto    = "duplicate_photo"
	ConflictEmployeeDuplicate = "duplicate_employee"
)

// Override names accepted by job operations to proceed past a conflict.
const (
	OverrideCreateDuplicate    = "create_duplicate"
	OverrideBackCreateComplete = "back_create_complete"
	OverrideAllowMissingPay    = "allow_missing_pay"
)

// ConflictError reports a business conflict. Override names the flag a caller
// can resend to proceed anyway; it is empty when no override exists.
type ConflictError struct {
	Code     string
	Message  string
	Override string
}

// Error implements the error interface.
func (c *ConflictError) Error() string {
	if c == nil {
		return ""
	}
	return fmt.Sprintf("conflict %s: %s", c.Code, c.Message)
}

// ValidationError captures field level validation issues that callers can surface to users.
type ValidationError struct {
	FieldErrors map[string]string
}

// Error implements the error interface.
func (v *ValidationError) Error() string {
	if v == nil {
		return ""
	}
	return "validation failed"
}

// HasErrors reports whether any field level issues were recorded.
func (v *ValidationError) HasErrors() bool {
	return v != nil && len(v.FieldErrors) > 0
}

// add records a field level validation error.
func (v *ValidationError) add(field, message string) {
	if v.FieldErrors == nil {
		v.FieldErrors = make(map[string]string)
	}
	v.FieldErrors[field] = message
}

// merge copies entries from another validation error into the receiver.
func (v *ValidationError) merge(other *ValidationError) {
	if other == nil || len(other.FieldErrors) == 0 {
		return
	}
	for field, msg := range other.FieldErrors {
		v.add(field, msg)
	}
}

// mapRepoError translates storage sentinels into service errors. field names
// the input a constraint violation is reported against.
func mapRepoError(err error, field, message string) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, persistence.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, persistence.ErrDuplicate):
		return ErrAlreadyExists
	case errors.Is(err, persistence.ErrConstraintViolation), errors.Is(err, persistence.ErrForeignKeyViolation):
		vErr := &ValidationError{}
		vErr.add(field, message)
		return vErr
	}
	return err
}

func isNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, persistence.ErrNotFound)
}
