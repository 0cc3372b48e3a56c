package poller

import (
	"context"
	"fmt"
	"time"
)

// Sleeper blocks for d or until ctx is done.
//
// Sessions never call time.Sleep directly; tests swap in a recording
// Sleeper so backoff schedules can be checked without waiting.
type Sleeper func(ctx context.Context, d time.Duration) error

// SleepContext is the default [Sleeper]. Zero and negative durations return
// immediately.
func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("sleep interrupted: %w", ctx.Err())
	}
}
