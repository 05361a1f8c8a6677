package provider

import (
	"errors"
	"fmt"
)

// ErrorCategory normalizes provider failures.
type ErrorCategory string

const (
	ErrorTimeout        ErrorCategory = "timeout"
	ErrorBadData        ErrorCategory = "bad_data"
	ErrorAuthentication ErrorCategory = "authentication"
	ErrorProviderOutage ErrorCategory = "provider_outage"
	ErrorNotEligible    ErrorCategory = "not_eligible"
	ErrorRateLimited    ErrorCategory = "rate_limited"
	ErrorInternal       ErrorCategory = "internal"
)

// Error wraps a failed instant verification call.
type Error struct {
	Category   ErrorCategory
	StatusCode int
	Message    string
	Underlying error
}

func (e *Error) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("sheerid [%s]: %s: %v", e.Category, e.Message, e.Underlying)
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("sheerid [%s]: %s (status %d)", e.Category, e.Message, e.StatusCode)
	}
	return fmt.Sprintf("sheerid [%s]: %s", e.Category, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Underlying
}

func newError(category ErrorCategory, status int, message string, underlying error) *Error {
	return &Error{
		Category:   category,
		StatusCode: status,
		Message:    message,
		Underlying: underlying,
	}
}

// Category extracts the error category, defaulting to ErrorInternal.
func Category(err error) ErrorCategory {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Category
	}
	return ErrorInternal
}

func categoryForStatus(status int) ErrorCategory {
	switch {
	case status == 401 || status == 403:
		return ErrorAuthentication
	case status == 404 || status == 422:
		return ErrorNotEligible
	case status == 429:
		return ErrorRateLimited
	case status >= 500:
		return ErrorProviderOutage
	default:
		return ErrorBadData
	}
}
