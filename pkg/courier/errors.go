package courier

import (
	"errors"
	"fmt"
)

// Error codes classifying carrier failures. Configuration errors are the
// caller's (tenant's) to fix and are never retried within a run.
const (
	CodeConfiguration = "CONFIGURATION"
	CodeNetwork       = "NETWORK"
	CodeAuth          = "AUTH"
	CodeMalformed     = "MALFORMED_RESPONSE"
	CodeNotFound      = "NOT_FOUND"
	CodeTimeout       = "TIMEOUT"
)

// Error represents an error from a courier integration.
type Error struct {
	Carrier    string
	Code       string
	Message    string
	StatusCode int
	Retryable  bool
	Cause      error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s error (%s): %s: %v", e.Carrier, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s error (%s): %s", e.Carrier, e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is for Error.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewError creates a new Error.
func NewError(carrier, code, message string) *Error {
	return &Error{
		Carrier: carrier,
		Code:    code,
		Message: message,
	}
}

// WithCause adds a cause to the error.
func (e *Error) WithCause(err error) *Error {
	e.Cause = err
	return e
}

// WithStatusCode adds an HTTP status code to the error.
func (e *Error) WithStatusCode(code int) *Error {
	e.StatusCode = code
	return e
}

// WithRetryable marks the error as retryable.
func (e *Error) WithRetryable(retryable bool) *Error {
	e.Retryable = retryable
	return e
}

// Sentinel errors for common tracking scenarios.
var (
	// ErrCarrierNotFound indicates the requested carrier has no registered factory.
	ErrCarrierNotFound = errors.New("carrier not found")

	// ErrCredentialsMissing indicates the tenant has no credentials stored for the carrier.
	ErrCredentialsMissing = errors.New("credentials not configured")

	// ErrCredentialsMalformed indicates stored credentials do not match the carrier's expected format.
	ErrCredentialsMalformed = errors.New("credentials malformed")

	// ErrAuthenticationFailed indicates the carrier rejected the credentials.
	ErrAuthenticationFailed = errors.New("authentication failed")

	// ErrShipmentNotFound indicates the carrier has no record of the tracking number.
	ErrShipmentNotFound = errors.New("shipment not found")

	// ErrMalformedResponse indicates the carrier returned an unparseable payload.
	ErrMalformedResponse = errors.New("malformed carrier response")

	// ErrServiceUnavailable indicates the carrier service is temporarily unavailable.
	ErrServiceUnavailable = errors.New("service unavailable")
)

// IsConfiguration returns true if the error stems from missing or malformed
// tenant credentials rather than a carrier-side failure.
func IsConfiguration(err error) bool {
	var cErr *Error
	if errors.As(err, &cErr) && cErr.Code == CodeConfiguration {
		return true
	}
	return errors.Is(err, ErrCredentialsMissing) ||
		errors.Is(err, ErrCredentialsMalformed) ||
		errors.Is(err, ErrCarrierNotFound)
}

// IsRetryable returns true if the error is retryable.
func IsRetryable(err error) bool {
	var cErr *Error
	if errors.As(err, &cErr) {
		return cErr.Retryable
	}
	return errors.Is(err, ErrServiceUnavailable)
}
