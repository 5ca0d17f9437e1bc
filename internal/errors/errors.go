// Package errors provides structured error types for contextd.
package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for common failure modes.
var (
	ErrTimeout      = errors.New("operation timed out")
	ErrNotFound     = errors.New("resource not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrQueueFull    = errors.New("trigger queue is full")
	ErrQueueClosed  = errors.New("trigger queue is closed")
	ErrUnavailable  = errors.New("service unavailable")
)

// DispatchError represents a failed delivery to the downstream consumer.
type DispatchError struct {
	Target     string
	StatusCode int
	Message    string
	Err        error
}

func (e *DispatchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("dispatch to %s failed (status %d): %s: %v", e.Target, e.StatusCode, e.Message, e.Err)
	}
	return fmt.Sprintf("dispatch to %s failed (status %d): %s", e.Target, e.StatusCode, e.Message)
}

func (e *DispatchError) Unwrap() error { return e.Err }

// NewDispatchError creates a new dispatch error.
func NewDispatchError(target string, statusCode int, message string) *DispatchError {
	return &DispatchError{Target: target, StatusCode: statusCode, Message: message}
}

// IsRetryable returns true if the error is likely transient and worth retrying.
func IsRetryable(err error) bool {
	var de *DispatchError
	if errors.As(err, &de) {
		switch de.StatusCode {
		case 0, 429, 500, 502, 503, 504:
			return true
		}
		return false
	}
	return errors.Is(err, ErrTimeout) || errors.Is(err, ErrUnavailable)
}
