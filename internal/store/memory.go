package store

import (
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-memory implementation of [Store].
//
// Jobs are keyed by ID. Reads take the read lock; resolution takes the
// write lock and re-checks the job, so an outcome is chosen exactly once.
type MemoryStore struct {
	mu     sync.RWMutex
	jobs   map[string]Job
	choose Chooser
}

// NewMemoryStore creates a new in-memory [Store] implementation.
//
// If choose is nil, [RandomOutcome] is used.
func NewMemoryStore(choose Chooser) *MemoryStore {
	if choose == nil {
		choose = RandomOutcome
	}
	return &MemoryStore{
		jobs:   make(map[string]Job),
		choose: choose,
	}
}

// RandomOutcome picks completed or error with equal probability.
func RandomOutcome() string {
	if rand.IntN(2) == 0 {
		return ResultCompleted
	}
	return ResultError
}

// Create stores a new pending job with a random UUID.
func (m *MemoryStore) Create(delay time.Duration, createdAt time.Time) Job {
	job := Job{
		ID:        uuid.NewString(),
		CreatedAt: createdAt,
		Delay:     delay,
	}

	m.mu.Lock()
	m.jobs[job.ID] = job
	m.mu.Unlock()

	return job
}

// Add stores job under job.ID.
func (m *MemoryStore) Add(job Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.jobs[job.ID]; ok {
		return ErrJobExists
	}
	m.jobs[job.ID] = job
	return nil
}

// Get returns the stored job.
func (m *MemoryStore) Get(id string) (Job, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	job, ok := m.jobs[id]
	return job, ok
}

// Resolve returns the job with its result as of now.
//
// A job that is not yet due is returned with [ResultPending]. Once it is
// due, the first caller chooses the outcome and stores it;
// every later caller gets the stored outcome.
func (m *MemoryStore) Resolve(id string, now time.Time) (Job, bool) {
	// fast path: already resolved or still pending
	m.mu.RLock()
	job, ok := m.jobs[id]
	m.mu.RUnlock()
	if !ok {
		return Job{}, false
	}
	if job.Terminal() {
		return job, true
	}
	if !job.Due(now) {
		job.Result = ResultPending
		return job, true
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// another caller may have resolved it between the locks
	job = m.jobs[id]
	if job.Terminal() {
		return job, true
	}

	job.Result = m.choose()
	resolvedAt := now
	job.ResolvedAt = &resolvedAt
	m.jobs[id] = job
	return job, true
}

// List returns a snapshot of all jobs.
//
// The returned slice is a copy; modifications do not affect the store.
func (m *MemoryStore) List() []Job {
	m.mu.RLock()
	defer m.mu.RUnlock()

	jobs := make([]Job, 0, len(m.jobs))
	for _, job := range m.jobs {
		jobs = append(jobs, job)
	}
	return jobs
}
