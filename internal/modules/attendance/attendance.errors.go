package attendance

import "github.com/hrcore/attendance-engine/internal/shared/errors"

// Domain-specific attendance errors
var (
	// Holiday errors
	ErrHolidayNotFound  = errors.New(errors.ErrCodeNotFound, "Holiday not found")
	ErrHolidayExists    = errors.New(errors.ErrCodeConflict, "A holiday already exists for this date")
	ErrHolidayInPast    = errors.New(errors.ErrCodeBadRequest, "Cannot delete a past holiday: attendance has already been reconciled")
	ErrHolidayToday     = errors.New(errors.ErrCodeBadRequest, "Cannot delete today's holiday: attendance adjustment may already have run")
	ErrHolidayTooSoon   = errors.New(errors.ErrCodeBadRequest, "Cannot delete a holiday scheduled for tomorrow")
	ErrEmergencyHoliday = errors.New(errors.ErrCodeBadRequest, "Emergency holidays cannot be deleted")

	// Trigger errors
	ErrUnknownJob = errors.New(errors.ErrCodeNotFound, "Unknown scheduled job")
)

// WrapAttendanceError wraps a generic error with context
func WrapAttendanceError(err error, message string) *errors.AppError {
	return errors.Wrap(err, errors.ErrCodeInternal, message)
}

// ValidationError creates a validation error with details
func ValidationError(field, message string) *errors.AppError {
	return errors.WithDetails(
		errors.ErrCodeValidation,
		"Validation failed",
		map[string]string{field: message},
	)
}
