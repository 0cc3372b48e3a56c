// Package server provides the simulated job-status server.
//
// The server stands in for a backend that runs jobs asynchronously:
//
//   - Default job: "/status" reports the job started with the server
//   - Job submission: "POST /jobs" creates a job with its own warm-up delay
//   - Job status: "/jobs/:id/status" reports a submitted job
//   - Health: "/healthz"
//
// Each job reports {"result": "pending"} until its delay has passed, then a
// terminal result chosen once at random and returned on every later read.
//
// The server supports graceful shutdown via context cancellation, with a
// 5-second timeout for in-flight requests.
//
// Users of the jobwait library should not need to interact with this
// package directly. It backs the serve and demo commands.
package server
