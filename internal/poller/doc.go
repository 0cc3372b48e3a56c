// Package poller implements the job status polling loop for jobwait.
//
// The main components are:
//
//   - [Session]: the retry/backoff state machine for one job
//   - [Client]: HTTP [Fetcher] with per-request timeouts and size limits
//   - [Backoff]: capped exponential delay schedule
//
// Users of the jobwait library should not need to interact with this
// package directly. Configuration is done through the main jobwait package.
package poller
