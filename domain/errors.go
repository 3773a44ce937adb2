package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// ValidationError reports caller-supplied input rejected before any network
// call is made.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

// NewValidationError creates a validation error with the given reason.
func NewValidationError(reason string) *ValidationError {
	return &ValidationError{Reason: reason}
}

// NetworkError indicates that no response reached the client at all.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network failure: %v", e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// HTTPError indicates the server responded with a non-success status.
type HTTPError struct {
	Status  int
	Message string
}

func (e *HTTPError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("http %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("http %d: %s", e.Status, http.StatusText(e.Status))
}

// DecodeError indicates a response body that could not be parsed into the
// expected shape.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode failure: %v", e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// ConversionConflictError indicates a guest-to-registered conversion whose
// target account already exists.
type ConversionConflictError struct {
	Reason string
}

func (e *ConversionConflictError) Error() string {
	return fmt.Sprintf("conversion conflict: %s", e.Reason)
}

// StaleSessionError indicates the backend reported a session as completed or
// missing while the client believed otherwise.
type StaleSessionError struct {
	SessionID string
	Reason    string
}

func (e *StaleSessionError) Error() string {
	return fmt.Sprintf("session %s is stale: %s", e.SessionID, e.Reason)
}

// UserMessage maps an error to a message suitable for direct display.
func UserMessage(err error) string {
	var validation *ValidationError
	if errors.As(err, &validation) {
		return validation.Reason
	}

	var conflict *ConversionConflictError
	if errors.As(err, &conflict) {
		return "An account with that email already exists."
	}

	var stale *StaleSessionError
	if errors.As(err, &stale) {
		return "This session has already ended. Pull to refresh."
	}

	var network *NetworkError
	if errors.As(err, &network) {
		return "Could not reach the server. Check your connection and try again."
	}

	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		switch httpErr.Status {
		case http.StatusBadRequest:
			return "The request could not be processed. Please try again."
		case http.StatusUnauthorized:
			return "Your session expired. Please sign in again."
		case http.StatusForbidden:
			return "You don't have access to this resource."
		case http.StatusNotFound:
			return "We couldn't find what you were looking for."
		case http.StatusTooManyRequests:
			return "You're going a little fast. Wait a moment and try again."
		case http.StatusInternalServerError:
			return "Something went wrong on our side. Please try again shortly."
		default:
			return "The server rejected the request. Please try again."
		}
	}

	var decode *DecodeError
	if errors.As(err, &decode) {
		return "The server sent an unexpected response. Please try again."
	}

	return "Something went wrong. Please try again."
}
