package domain

import "errors"

// Error kinds. Concrete errors wrap one of these so callers can classify them
// with errors.Is.
var (
	// ErrValidation marks malformed input.
	ErrValidation = errors.New("validation failed")

	// ErrUnauthorized marks a missing or invalid credential.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden marks a caller without rights on the target resource.
	ErrForbidden = errors.New("forbidden")

	// ErrState marks an operation invalid for the current lifecycle state.
	ErrState = errors.New("invalid state")

	// ErrProvider marks a failure of an external collaborator.
	ErrProvider = errors.New("provider failure")
)
