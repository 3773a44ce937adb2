package domain

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestNetworkErrorUnwraps(t *testing.T) {
	cause := errors.New("connection refused")
	err := fmt.Errorf("submit turn: %w", &NetworkError{Err: cause})

	var netErr *NetworkError
	if !errors.As(err, &netErr) {
		t.Fatal("errors.As failed to find NetworkError through wrapping")
	}
	if !errors.Is(err, cause) {
		t.Error("errors.Is failed to reach the transport cause")
	}
}

func TestUserMessageDistinguishesStatuses(t *testing.T) {
	statuses := []int{
		http.StatusBadRequest,
		http.StatusUnauthorized,
		http.StatusForbidden,
		http.StatusNotFound,
		http.StatusTooManyRequests,
		http.StatusInternalServerError,
	}

	seen := map[string]int{}
	for _, status := range statuses {
		message := UserMessage(&HTTPError{Status: status})
		if message == "" {
			t.Errorf("UserMessage for status %d is empty", status)
		}
		if prev, dup := seen[message]; dup {
			t.Errorf("statuses %d and %d share the message %q", prev, status, message)
		}
		seen[message] = status
	}
}

func TestUserMessagePassesValidationReason(t *testing.T) {
	err := NewValidationError("message cannot be empty")
	if got := UserMessage(err); got != "message cannot be empty" {
		t.Errorf("UserMessage() = %q, want the validation reason", got)
	}
}

func TestUserMessageFallback(t *testing.T) {
	if got := UserMessage(errors.New("mystery")); got == "" {
		t.Error("UserMessage() for an unknown error is empty")
	}
}

func TestUserMessageTypedErrors(t *testing.T) {
	cases := []error{
		&ConversionConflictError{Reason: "EMAIL_EXISTS"},
		&StaleSessionError{SessionID: "sess-1", Reason: "completed"},
		&NetworkError{Err: errors.New("timeout")},
		&DecodeError{Err: errors.New("bad json")},
	}
	seen := map[string]bool{}
	for _, err := range cases {
		message := UserMessage(err)
		if message == "" {
			t.Errorf("UserMessage(%T) is empty", err)
		}
		if seen[message] {
			t.Errorf("UserMessage(%T) collides with another error type: %q", err, message)
		}
		seen[message] = true
	}
}
