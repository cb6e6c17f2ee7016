package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for the failure classes the agent distinguishes.
//
// ErrNetworkUnreachable is transient: a pending order stays pending and is
// retried on the next sweep. ErrAuthorization covers every 401-equivalent
// outcome; ErrSessionExpired is the terminal form raised after a failed or
// impossible credential refresh. ErrValidation marks a draft that must never
// reach the store. ErrStorage is fatal to the current operation only.
var (
	ErrNetworkUnreachable = errors.New("network unreachable")
	ErrAuthorization      = errors.New("authorization failure")
	ErrSessionExpired     = fmt.Errorf("session expired: %w", ErrAuthorization)
	ErrValidation         = errors.New("validation failure")
	ErrStorage            = errors.New("storage failure")
	ErrNotFound           = errors.New("resource not found")
	ErrInternal           = errors.New("internal error")
)

// AppError represents a structured application error with HTTP status mapping.
type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"-"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NetworkUnreachable creates an error for a transport-level failure. It wraps
// the underlying cause but is never treated as an authorization failure.
func NetworkUnreachable(err error) *AppError {
	return &AppError{
		Code:    "NETWORK_UNREACHABLE",
		Message: "unable to connect to server",
		Status:  http.StatusServiceUnavailable,
		Err:     fmt.Errorf("%w: %w", ErrNetworkUnreachable, err),
	}
}

// Unauthorized creates a 401 error for a rejected credential.
func Unauthorized(message string) *AppError {
	return &AppError{
		Code:    "UNAUTHORIZED",
		Message: message,
		Status:  http.StatusUnauthorized,
		Err:     ErrAuthorization,
	}
}

// SessionExpired creates the terminal authorization error surfaced after a
// refresh attempt failed or was impossible. It is the caller's signal to
// force re-authentication.
func SessionExpired(cause error) *AppError {
	e := &AppError{
		Code:    "SESSION_EXPIRED",
		Message: "session expired, please sign in again",
		Status:  http.StatusUnauthorized,
		Err:     ErrSessionExpired,
	}
	if cause != nil {
		e.Err = fmt.Errorf("%w: %w", ErrSessionExpired, cause)
	}
	return e
}

// InvalidInput creates a 400 error for a malformed draft or request.
func InvalidInput(message string) *AppError {
	return &AppError{
		Code:    "INVALID_INPUT",
		Message: message,
		Status:  http.StatusBadRequest,
		Err:     ErrValidation,
	}
}

// NotFound creates a 404 error.
func NotFound(resource, id string) *AppError {
	return &AppError{
		Code:    "NOT_FOUND",
		Message: fmt.Sprintf("%s with id %s not found", resource, id),
		Status:  http.StatusNotFound,
		Err:     ErrNotFound,
	}
}

// Storage creates an error for a failed persistence operation.
func Storage(err error) *AppError {
	return &AppError{
		Code:    "STORAGE_FAILURE",
		Message: "persistent storage operation failed",
		Status:  http.StatusInternalServerError,
		Err:     fmt.Errorf("%w: %w", ErrStorage, err),
	}
}

// Internal creates a 500 error.
func Internal(err error) *AppError {
	return &AppError{
		Code:    "INTERNAL_ERROR",
		Message: "an internal error occurred",
		Status:  http.StatusInternalServerError,
		Err:     err,
	}
}

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	return fmt.Errorf("%s: %w", message, err)
}

// HTTPStatus returns the HTTP status code for the given error.
func HTTPStatus(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Status
	}

	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrAuthorization):
		return http.StatusUnauthorized
	case errors.Is(err, ErrNetworkUnreachable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
