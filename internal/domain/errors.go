package domain

import (
	"errors"
	"fmt"
)

// Domain-specific errors for better error handling and user feedback
var (
	// ErrLinkNotFound is returned when a short code doesn't exist
	ErrLinkNotFound = errors.New("link not found")

	// ErrLinkExpired is returned when resolving a link past its expiry
	ErrLinkExpired = errors.New("link has expired")

	// ErrLinkInactive is returned when resolving a deactivated link
	ErrLinkInactive = errors.New("link is inactive")

	// ErrLinkUnavailable is returned when a session cannot open or credit
	// because the link is no longer eligible
	ErrLinkUnavailable = errors.New("link unavailable")

	// ErrInvalidURL is returned when the provided target URL is invalid
	ErrInvalidURL = errors.New("invalid URL format")

	// ErrShortCodeTaken is returned when a custom alias is already in use
	ErrShortCodeTaken = errors.New("short code already exists")

	// ErrSessionNotFound is returned for an unknown or malformed session token
	ErrSessionNotFound = errors.New("session not found")

	// ErrSessionExpired is returned when a session mutation arrives after expiry
	ErrSessionExpired = errors.New("session has expired")

	// ErrSessionTerminal is returned when mutating an expired/abandoned session
	ErrSessionTerminal = errors.New("session is in a terminal state")

	// ErrStepOutOfOrder is returned when a step advance skips or repeats an index
	ErrStepOutOfOrder = errors.New("step out of order")

	// ErrDwellNotSatisfied is returned when a step advance arrives before the
	// configured preview duration has elapsed
	ErrDwellNotSatisfied = errors.New("minimum dwell time not satisfied")

	// ErrSessionNotComplete is returned when completing a session that has
	// remaining steps
	ErrSessionNotComplete = errors.New("session requirements not met")

	// ErrAlreadyCredited is returned when a device/link pair was already paid
	ErrAlreadyCredited = errors.New("earnings already credited for this device")

	// ErrInvalidSnapshot is returned when the device payload fails validation
	ErrInvalidSnapshot = errors.New("invalid device snapshot")

	// ErrRateLimitExceeded is returned when rate limit is hit
	ErrRateLimitExceeded = errors.New("rate limit exceeded")
)

// AppError wraps errors with additional context for better debugging
type AppError struct {
	Err        error  // Original error
	Message    string // User-friendly message
	StatusCode int    // HTTP status code
	Internal   bool   // Whether to log as internal error
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Err.Error()
}

// Unwrap returns the wrapped error for errors.Is and errors.As
func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError creates a new application error with context
func NewAppError(err error, message string, statusCode int, internal bool) *AppError {
	return &AppError{
		Err:        err,
		Message:    message,
		StatusCode: statusCode,
		Internal:   internal,
	}
}

// NewNotFoundError creates a 404 error
func NewNotFoundError(resource string) *AppError {
	return &AppError{
		Err:        ErrLinkNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		StatusCode: 404,
		Internal:   false,
	}
}

// NewValidationError creates a 400 validation error
func NewValidationError(message string) *AppError {
	return &AppError{
		Err:        ErrInvalidURL,
		Message:    message,
		StatusCode: 400,
		Internal:   false,
	}
}

// NewInternalError creates a 500 internal server error
func NewInternalError(err error) *AppError {
	return &AppError{
		Err:        err,
		Message:    "Internal server error occurred",
		StatusCode: 500,
		Internal:   true, // Log this error
	}
}
