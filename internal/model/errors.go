package model

import "errors"

// Error kinds raised by the event and participation engine. Callers wrap
// them with context and classify with errors.Is.
var (
	// ErrNotFound is returned when a referenced entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAccessDenied is returned when the actor may not perform the mutation.
	ErrAccessDenied = errors.New("access denied")

	// ErrInvalidState is returned for operations illegal in the current lifecycle state.
	ErrInvalidState = errors.New("invalid state")

	// ErrInvalidSchedule is returned when an event date constraint is violated.
	ErrInvalidSchedule = errors.New("invalid schedule")

	// ErrDuplicateRequest is returned when a user already requested to join an event.
	ErrDuplicateRequest = errors.New("duplicate participation request")

	// ErrCapacityExceeded is returned when the participant limit is or would be exceeded.
	ErrCapacityExceeded = errors.New("participant limit reached")

	// ErrUnsupportedAction is returned for a state action the actor may not use.
	ErrUnsupportedAction = errors.New("unsupported state action")

	// ErrValidation is returned for malformed input.
	ErrValidation = errors.New("validation failed")

	// ErrConflict is returned by a store when a concurrent transaction
	// conflicted with the current one. The unit of work may be retried.
	ErrConflict = errors.New("concurrent update conflict")
)
