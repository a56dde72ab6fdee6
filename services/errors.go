package services

import "errors"

var (
	// ErrAuthorNotFound is returned when a post's author does not exist.
	ErrAuthorNotFound = errors.New("author not found")

	// ErrPreviewResolutionFailed wraps any resolver failure during post creation.
	ErrPreviewResolutionFailed = errors.New("preview resolution failed")

	// ErrInvalidCredentials is returned by Login for an unknown email or wrong password.
	ErrInvalidCredentials = errors.New("invalid credentials")
)
