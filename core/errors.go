package core

import (
	"errors"
)

// ErrNotFound is a sentinel error for "not found" cases
var ErrNotFound = errors.New("not found")

// ErrConflict is a sentinel error for operations rejected because the target
// is in a state that does not permit them (e.g. retrying a job that is
// already moving through the pipeline)
var ErrConflict = errors.New("conflict")

// ErrInvalid is a sentinel error for requests rejected by validation, as
// opposed to infrastructure failures
var ErrInvalid = errors.New("invalid input")

// IsNotFoundError checks if an error is a "not found" error
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsConflictError checks if an error is a state-conflict error
func IsConflictError(err error) bool {
	return errors.Is(err, ErrConflict)
}

// IsInvalidError checks if an error is a validation error
func IsInvalidError(err error) bool {
	return errors.Is(err, ErrInvalid)
}
