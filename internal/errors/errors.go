// Package errors provides typed errors for kitefolio.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for the failure kinds the tool distinguishes.
var (
	// ErrConfiguration indicates a missing or invalid secret or environment variable.
	ErrConfiguration = errors.New("configuration error")

	// ErrAutomation indicates the browser-driven login did not complete.
	ErrAutomation = errors.New("automation error")

	// ErrUpstream indicates the brokerage API failed or rejected a request.
	ErrUpstream = errors.New("upstream error")

	// ErrDelivery indicates a notification could not be delivered.
	ErrDelivery = errors.New("delivery error")

	// ErrUnauthorized indicates the dashboard gate was not passed.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrRateLimit indicates too many requests.
	ErrRateLimit = errors.New("rate limit exceeded")
)

// AppError is a structured application error.
type AppError struct {
	// Type is the error kind (sentinel error).
	Type error
	// Message is the human-readable message.
	Message string
	// Cause is the underlying error.
	Cause error
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the error kind and the cause so both match errors.Is.
func (e *AppError) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Type}
	}
	return []error{e.Type, e.Cause}
}

// New creates a new AppError.
func New(errType error, message string) *AppError {
	return &AppError{
		Type:    errType,
		Message: message,
	}
}

// Wrap wraps an error with a kind and a message.
func Wrap(errType error, message string, cause error) *AppError {
	return &AppError{
		Type:    errType,
		Message: message,
		Cause:   cause,
	}
}

// Configuration creates a configuration error.
func Configuration(message string) *AppError {
	return &AppError{
		Type:    ErrConfiguration,
		Message: message,
	}
}

// Configurationf creates a configuration error with formatting.
func Configurationf(format string, args ...any) *AppError {
	return Configuration(fmt.Sprintf(format, args...))
}

// Automation wraps a login automation failure.
func Automation(message string, cause error) *AppError {
	return Wrap(ErrAutomation, message, cause)
}

// Upstream wraps a brokerage API failure.
func Upstream(message string, cause error) *AppError {
	return Wrap(ErrUpstream, message, cause)
}

// Delivery wraps a notification delivery failure.
func Delivery(message string, cause error) *AppError {
	return Wrap(ErrDelivery, message, cause)
}

// RateLimited creates a rate limit error.
func RateLimited(message string) *AppError {
	return New(ErrRateLimit, message)
}

// Unauthorized creates an unauthorized error.
func Unauthorized(message string) *AppError {
	if message == "" {
		message = "authentication required"
	}
	return &AppError{
		Type:    ErrUnauthorized,
		Message: message,
	}
}

// IsConfiguration checks if an error is a configuration error.
func IsConfiguration(err error) bool {
	return errors.Is(err, ErrConfiguration)
}

// IsAutomation checks if an error is an automation error.
func IsAutomation(err error) bool {
	return errors.Is(err, ErrAutomation)
}

// IsUpstream checks if an error is an upstream error.
func IsUpstream(err error) bool {
	return errors.Is(err, ErrUpstream)
}

// IsDelivery checks if an error is a delivery error.
func IsDelivery(err error) bool {
	return errors.Is(err, ErrDelivery)
}

// HTTPStatus returns the appropriate HTTP status code for an error.
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrRateLimit):
		return http.StatusTooManyRequests
	case errors.Is(err, ErrUpstream), errors.Is(err, ErrAutomation):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// ExitCode returns the process exit status for an error.
// Configuration errors exit with 2, every other failure with 1.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, ErrConfiguration):
		return 2
	default:
		return 1
	}
}
