package store

import "errors"

var (
	// ErrNotFound is returned when a post or user id does not resolve.
	ErrNotFound = errors.New("not found")

	// ErrValidation is returned when a record is missing required fields.
	ErrValidation = errors.New("validation failed")

	// ErrConcurrentModification is returned when an optimistic update keeps losing races.
	ErrConcurrentModification = errors.New("concurrent modification")

	// ErrDuplicateEmail is returned when registering an email that is already taken.
	ErrDuplicateEmail = errors.New("email already registered")
)
