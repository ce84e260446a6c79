package models

import "errors"

// Error kinds returned by the engine. Callers match them with errors.Is;
// every returned error wraps exactly one of these with added context.
var (
	// ErrValidation is returned for malformed or missing input, such as an
	// absent rejection reason or a prize set with no active weight.
	ErrValidation = errors.New("validation error")

	// ErrInvalidTransition is returned when an action is not allowed from
	// the entity's current status.
	ErrInvalidTransition = errors.New("invalid transition")

	// ErrInsufficientBalance is returned when a mutation would drive a
	// balance below zero.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrNotFound is returned for unknown entity ids.
	ErrNotFound = errors.New("not found")

	// ErrConcurrentModification is returned when the caller's version does
	// not match the stored version.
	ErrConcurrentModification = errors.New("concurrent modification")

	// ErrAlreadyProcessed signals a retry of an action whose effect is
	// already committed. Nothing was mutated.
	ErrAlreadyProcessed = errors.New("already processed")

	// ErrConflictingWeightConfiguration is returned by a draw when the
	// active prize set is empty or carries no weight.
	ErrConflictingWeightConfiguration = errors.New("conflicting weight configuration")
)
