package store

import (
	"errors"
	"time"
)

// Job results reported by the store.
const (
	ResultPending   = "pending"
	ResultCompleted = "completed"
	ResultError     = "error"
)

// ErrJobExists is returned by [Store.Add] when the ID is already taken.
var ErrJobExists = errors.New("job already exists")

// Job represents one asynchronous job in storage.
//
// Job is the storage representation, optimized for JSON serialization by
// the job server. It is decoupled from the client's types.
type Job struct {
	// ID identifies the job. Generated jobs use a UUID.
	ID string `json:"job_id"`

	// CreatedAt is when the job was submitted.
	CreatedAt time.Time `json:"created_at"`

	// Delay is how long the job stays pending after CreatedAt.
	Delay time.Duration `json:"-"`

	// Result is the terminal outcome once chosen, empty before that.
	Result string `json:"result,omitempty"`

	// ResolvedAt is when the terminal outcome was chosen.
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
}

// Terminal reports whether the job's outcome has been chosen.
func (j Job) Terminal() bool {
	return j.Result == ResultCompleted || j.Result == ResultError
}

// Due reports whether the job's delay has strictly passed at now.
func (j Job) Due(now time.Time) bool {
	return now.Sub(j.CreatedAt) > j.Delay
}

// Chooser picks the terminal outcome of a job: [ResultCompleted] or
// [ResultError].
type Chooser func() string

// Store defines the interface for job storage.
//
// Store implementations must be safe for concurrent access.
type Store interface {
	// Create adds a new job with a generated ID.
	Create(delay time.Duration, createdAt time.Time) Job

	// Add stores a job under its own ID. Returns ErrJobExists if the ID
	// is taken.
	Add(job Job) error

	// Get returns the stored job without resolving it.
	Get(id string) (Job, bool)

	// Resolve returns the job's result as of now. Until the job is
	// due the result is ResultPending and nothing is stored. The first
	// call after that chooses and stores the terminal outcome.
	Resolve(id string, now time.Time) (Job, bool)

	// List returns a snapshot of all jobs. Order is not guaranteed.
	List() []Job
}
