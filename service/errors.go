package service

import (
	"errors"

	"finengine/models"
)

// ErrorKind names the error class of err for logs and metrics. nil is
// "success".
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, models.ErrValidation):
		return "validation"
	case errors.Is(err, models.ErrInvalidTransition):
		return "invalid_transition"
	case errors.Is(err, models.ErrInsufficientBalance):
		return "insufficient_balance"
	case errors.Is(err, models.ErrNotFound):
		return "not_found"
	case errors.Is(err, models.ErrConcurrentModification):
		return "concurrent_modification"
	case errors.Is(err, models.ErrAlreadyProcessed):
		return "already_processed"
	case errors.Is(err, models.ErrConflictingWeightConfiguration):
		return "conflicting_weight_configuration"
	default:
		return "internal"
	}
}
