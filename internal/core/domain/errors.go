package domain

import (
	"errors"
	"fmt"
)

// ErrorKind tags a job failure so the caller can pick a user-facing message
// without parsing error strings.
type ErrorKind string

const (
	// ErrNetwork: the request never produced a response.
	ErrNetwork ErrorKind = "network-unreachable"
	// ErrServer: the backend answered with a non-2xx status.
	ErrServer ErrorKind = "server-error"
	// ErrMalformed: 2xx response with an unexpected shape.
	ErrMalformed ErrorKind = "malformed-response"
	// ErrEmptyMedia: zero-byte body or no validated media URLs.
	ErrEmptyMedia ErrorKind = "empty-media"
	// ErrCancelled: the batch cancellation signal was observed.
	ErrCancelled ErrorKind = "cancelled"
	// ErrPlatformBlocked: a recognized third-party blocking signature.
	ErrPlatformBlocked ErrorKind = "platform-blocked"
)

// AcquisitionError attaches an ErrorKind and a human message to a job
// failure. Cause may be nil when the backend message is all we have.
type AcquisitionError struct {
	Kind    ErrorKind
	Message string
	Cause   error
}

func (e *AcquisitionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *AcquisitionError) Unwrap() error { return e.Cause }

// NewError builds a tagged acquisition error.
func NewError(kind ErrorKind, message string, cause error) *AcquisitionError {
	return &AcquisitionError{Kind: kind, Message: message, Cause: cause}
}

// AsAcquisitionError converts any error into an *AcquisitionError,
// defaulting untagged errors to ErrNetwork since those come from the
// transport layer.
func AsAcquisitionError(err error) *AcquisitionError {
	if err == nil {
		return nil
	}
	var ae *AcquisitionError
	if errors.As(err, &ae) {
		return ae
	}
	return &AcquisitionError{Kind: ErrNetwork, Message: err.Error(), Cause: err}
}
