package poller

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrRetriesExhausted matches any [*RetriesExhaustedError] via errors.Is.
	ErrRetriesExhausted = errors.New("retries exhausted")

	// ErrPollingTimeout matches any [*TimeoutError] via errors.Is.
	ErrPollingTimeout = errors.New("polling timeout")
)

// TransportError describes a status read that failed before a status could
// be extracted: the request errored or the server answered non-2xx.
type TransportError struct {
	// StatusCode is the HTTP status, or zero if no response arrived.
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("status read failed: %v", e.Err)
	}
	return fmt.Sprintf("status read failed: HTTP %d", e.StatusCode)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// RetriesExhaustedError is returned when a transport failure brings the
// shared retry counter to the configured maximum.
type RetriesExhaustedError struct {
	// Attempts is the retry count at the point of failure.
	Attempts int

	// LastStatus is the last successfully extracted status, if any.
	LastStatus string

	// Err is the transport failure that exhausted the counter.
	Err error
}

func (e *RetriesExhaustedError) Error() string {
	msg := fmt.Sprintf("max retries reached after %d attempts", e.Attempts)
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	if e.LastStatus != "" {
		return msg + " (last status " + e.LastStatus + ")"
	}
	return msg
}

func (e *RetriesExhaustedError) Unwrap() error {
	return e.Err
}

// Is reports whether target is [ErrRetriesExhausted].
func (e *RetriesExhaustedError) Is(target error) bool {
	return target == ErrRetriesExhausted
}

// TimeoutError is returned when the session's accumulated sleep time
// consumed the whole budget without a terminal status.
type TimeoutError struct {
	Elapsed    time.Duration
	Budget     time.Duration
	LastStatus string
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("timeout reached after %s while polling for status", e.Elapsed)
}

// Is reports whether target is [ErrPollingTimeout].
func (e *TimeoutError) Is(target error) bool {
	return target == ErrPollingTimeout
}
