package types

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrUserNotFound         = errors.New("user not found")
	ErrVerificationNotFound = errors.New("verification not found")
	ErrVersionConflict      = errors.New("verification was modified concurrently")
	ErrCorruptVerification  = errors.New("verification record is in an invalid state")
	ErrDocumentNotFound     = errors.New("document not found")

	ErrMissingFields           = errors.New("missing required fields")
	ErrMissingDocuments        = errors.New("missing required documents")
	ErrInvalidDocument         = errors.New("invalid document")
	ErrInvalidFilter           = errors.New("invalid verification filter")
	ErrRejectionReasonRequired = errors.New("rejection reason required")
	ErrUniversityRequired      = errors.New("university name required")

	ErrNotPending      = errors.New("verification is not pending review")
	ErrAlreadyReviewed = errors.New("verification has already been reviewed")
	ErrNotAuthorized   = errors.New("not authorized")

	ErrInstantVerificationFailed = errors.New("instant verification failed")
	ErrProviderUnavailable       = errors.New("verification provider unavailable")
)

// ValidationError reports input problems per field. It unwraps to one of the
// ErrMissingFields, ErrMissingDocuments or ErrInvalidDocument sentinels.
type ValidationError struct {
	Err    error
	Fields map[string]string
}

func NewValidationError(err error, fields map[string]string) *ValidationError {
	return &ValidationError{Err: err, Fields: fields}
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return e.Err.Error()
	}

	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	return fmt.Sprintf("%s: %s", e.Err.Error(), strings.Join(names, ", "))
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// FieldErrors extracts per-field messages from err, or nil.
func FieldErrors(err error) map[string]string {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return verr.Fields
	}
	return nil
}
