package jobwait

import (
	"time"

	"github.com/jpalmerr/jobwait/internal/poller"
)

// Status is the state of a remote job as reported by its status endpoint.
//
// Only [StatusCompleted] and [StatusError] are terminal. [StatusUnknown]
// covers a missing, null or unparseable result and is handled exactly like
// [StatusPending].
type Status string

const (
	// StatusPending indicates the job is still running.
	StatusPending Status = poller.StatusPending

	// StatusCompleted indicates the job finished successfully.
	StatusCompleted Status = poller.StatusCompleted

	// StatusError indicates the job finished with a failure.
	StatusError Status = poller.StatusError

	// StatusUnknown indicates the status could not be determined from the
	// response.
	StatusUnknown Status = poller.StatusUnknown
)

// String returns the string representation of the status.
func (s Status) String() string {
	return string(s)
}

// IsTerminal reports whether the status is a final job outcome.
func (s Status) IsTerminal() bool {
	return poller.IsTerminal(string(s))
}

// StatusExtractor determines a job [Status] from a successful (2xx) status
// response.
//
// Extractors run inside a panic recovery boundary. A panicking extractor
// yields [StatusUnknown] for that read and the stack is logged with a
// correlation ID.
type StatusExtractor func(body []byte, statusCode int) Status

// Attempt describes one status read. It is passed to callbacks registered
// with [WithAttemptCallback].
type Attempt struct {
	// Number is the 1-based count of reads in this session.
	Number int

	// Status is the extracted status. Empty when the read failed.
	Status Status

	// StatusCode is the HTTP status code, zero if no response arrived.
	StatusCode int

	Latency time.Duration

	// RetryCount is the shared retry counter after this read.
	RetryCount int

	// Elapsed is the part of the timeout budget consumed before this read.
	Elapsed time.Duration

	// Sleep is the backoff scheduled after this read, zero if none.
	Sleep time.Duration

	// Err is the transport failure for this read, if any.
	Err error
}

// SessionState is a snapshot of a [Client]'s polling session.
type SessionState struct {
	// ID identifies the session in logs and traces.
	ID string

	RetryCount int
	Reads      int
	Elapsed    time.Duration
	LastStatus Status
	Terminal   bool

	// Err is the fatal outcome if the session failed.
	Err error
}
