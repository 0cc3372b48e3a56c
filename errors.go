package jobwait

import (
	"errors"

	"github.com/jpalmerr/jobwait/internal/poller"
)

// The two fatal outcomes of [Client.AwaitTerminalStatus]. Match them with
// errors.Is; use errors.As with the typed errors below for details.
var (
	ErrRetriesExhausted = poller.ErrRetriesExhausted
	ErrPollingTimeout   = poller.ErrPollingTimeout
)

type (
	// RetriesExhaustedError is returned when the shared retry counter
	// reaches the limit set by [WithMaxRetries] on a failed read. Unwrap
	// yields that read's [*TransportError].
	RetriesExhaustedError = poller.RetriesExhaustedError

	// TimeoutError is returned when backoff sleeps consumed the budget set
	// by [WithTimeout] without a terminal status.
	TimeoutError = poller.TimeoutError

	// TransportError describes a failed status read: connection failure,
	// per-request timeout, or a non-2xx response. It is retried
	// internally and only surfaces as the cause of a RetriesExhaustedError.
	TransportError = poller.TransportError
)

var errRegexNoGroup = errors.New("pattern must contain a capture group")
