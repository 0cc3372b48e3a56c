package poller

import (
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Backoff yields the delay schedule for a polling session.
//
// The n-th call to [Backoff.Next] returns min(factor^n * unit, max). One
// draw is made per retry increment, including increments that do not sleep,
// so the schedule always tracks the shared retry counter.
type Backoff struct {
	exp *backoff.ExponentialBackOff
	max time.Duration
}

// NewBackoff creates a deterministic exponential schedule.
func NewBackoff(factor float64, unit, max time.Duration) *Backoff {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = time.Duration(factor * float64(unit))
	exp.Multiplier = factor
	exp.RandomizationFactor = 0
	exp.MaxInterval = max
	exp.MaxElapsedTime = 0 // never report backoff.Stop; the session owns the budget
	exp.Reset()

	return &Backoff{exp: exp, max: max}
}

// Next advances the schedule by one step and returns the capped delay.
func (b *Backoff) Next() time.Duration {
	d := b.exp.NextBackOff()
	// InitialInterval is returned unclamped by the library
	if d > b.max || d < 0 {
		d = b.max
	}
	return d
}

// Clamp limits d to what is left of the time budget. Never negative.
func Clamp(d, remaining time.Duration) time.Duration {
	if remaining < d {
		d = remaining
	}
	if d < 0 {
		return 0
	}
	return d
}
