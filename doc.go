// Package jobwait waits for an asynchronous server-side job to finish by
// polling its status endpoint.
//
// A [Client] reads the job status, and while the job is still pending it
// sleeps with exponential backoff and reads again. It stops when the job
// reports a terminal status, when the status endpoint keeps failing past
// the retry budget, or when the time budget is spent.
//
// # Quick Start
//
//	client, err := jobwait.New("http://127.0.0.1:5000")
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	status, err := client.AwaitTerminalStatus(ctx)
//	if err != nil {
//	    return err
//	}
//	fmt.Println("job finished:", status) // "completed" or "error"
//
// # Configuration
//
// jobwait uses the functional options pattern for configuration:
//
//	client, err := jobwait.New(baseURL,
//	    jobwait.WithStatusPath("/jobs/42/status"),
//	    jobwait.WithMaxRetries(10),
//	    jobwait.WithBackoffFactor(2),
//	    jobwait.WithTimeout(30*time.Second),
//	    jobwait.WithHeaders("X-Job-Token", token),
//	    jobwait.WithLogger(logger),
//	)
//
// # Retry Semantics
//
// A single retry counter is shared by two kinds of events:
//
//   - a failed read (connection error, request timeout, non-2xx response)
//     increments the counter and retries immediately without sleeping
//   - a non-terminal status increments the counter and sleeps
//     min(factor^retries seconds, max backoff, remaining budget)
//
// The session fails with [ErrRetriesExhausted] when a failed read brings
// the counter to the limit, and with [ErrPollingTimeout] once the sleeps have
// consumed the time budget. Non-terminal reads never exhaust the counter on
// their own, so a job that stays pending ends in the timeout. Only sleeps consume the budget, so real wall-clock time can exceed
// it by the duration of in-flight requests.
//
// # Status Extractors
//
// Extractors decide how a response body maps to a [Status]:
//
//   - [JSONFieldExtractor]: reads a string field using dot notation
//   - [LenientJSONFieldExtractor]: like JSONFieldExtractor, but accepts
//     aliases such as "succeeded" or "failed"
//   - [RegexExtractor]: reads the first capture group of a pattern
//   - [FirstMatch]: tries extractors in order, returning the first known result
//   - [DefaultExtractor]: reads the JSON "result" field
//
// Apart from the lenient extractor, only the exact values "pending",
// "completed" and "error" are recognized. Any payload that does not carry a
// recognized status is [StatusUnknown],
// which is handled like [StatusPending].
//
// # Architecture
//
// jobwait consists of several internal packages (under internal/):
//
//   - internal/poller: the polling session, HTTP fetcher and backoff schedule
//   - internal/store: in-memory job store for the reference job server
//   - internal/server: HTTP job server used by the serve and demo commands
//
// The internal packages are not part of the public API and may change
// without notice.
package jobwait
