package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested detection does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	// Out-of-range coordinates and malformed filters are rejected with
	// this error before any network call is made.
	ErrInvalidInput = errors.New("invalid input")

	// ErrStatusImmutable indicates an attempt to change the
	// classification status of a detection. Status is set once by the
	// ingesting source and never changes afterwards.
	ErrStatusImmutable = errors.New("detection status is immutable")

	// ErrStoreClosed indicates the detection service has been closed.
	ErrStoreClosed = errors.New("detection store closed")

	// Authentication errors.

	// ErrAuthRequired indicates the catalog requires credentials but
	// none are configured.
	ErrAuthRequired = errors.New("authentication required")

	// ErrAuthInvalid indicates the configured credentials were
	// rejected by the identity provider.
	ErrAuthInvalid = errors.New("authentication invalid")

	// ErrTokenRefreshFailed indicates a token refresh operation failed.
	ErrTokenRefreshFailed = errors.New("token refresh failed")

	// ErrRateLimited indicates the catalog API rate limit was exceeded.
	ErrRateLimited = errors.New("rate limited")
)

// ValidationError describes a field-level validation failure. It wraps
// ErrInvalidInput so callers can test with errors.Is.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return "validation: " + e.Field + ": " + e.Message
}

// Unwrap makes ValidationError match ErrInvalidInput.
func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}
