package catalog

import (
	"errors"
	"fmt"
	"time"

	"github.com/tidemark-labs/spillview/internal/core/domain"
)

// AuthError is a terminal authentication failure: missing credentials
// or a rejection from the identity provider that survived the single
// built-in 401 retry. It is surfaced to the user; there is no further
// retry.
type AuthError struct {
	Message string
	Err     error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("catalog auth: %s: %v", e.Message, e.Err)
	}
	return "catalog auth: " + e.Message
}

// Unwrap makes AuthError match domain.ErrAuthInvalid.
func (e *AuthError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return domain.ErrAuthInvalid
}

// APIError is a non-2xx response from the catalog. Callers treat it as
// "zero results, report partial" rather than aborting the lookup.
type APIError struct {
	StatusCode int
	Message    string
	URL        string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("catalog: API error %d: %s (URL: %s)", e.StatusCode, e.Message, e.URL)
}

// RateLimitError indicates the catalog rate limit was exceeded.
type RateLimitError struct {
	ResetAt   time.Time
	Remaining int
	Limit     int
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("catalog: rate limit exceeded, resets at %s", e.ResetAt.Format(time.RFC3339))
}

// Unwrap makes RateLimitError match domain.ErrRateLimited.
func (e *RateLimitError) Unwrap() error {
	return domain.ErrRateLimited
}

// IsAuth checks if the error is a terminal authentication failure.
func IsAuth(err error) bool {
	var authErr *AuthError
	return errors.As(err, &authErr)
}

// IsRateLimited checks if the error indicates rate limiting.
func IsRateLimited(err error) bool {
	var rlErr *RateLimitError
	return errors.As(err, &rlErr)
}

// IsUnauthorized checks if the error is a 401 API response.
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 401
	}
	return false
}
