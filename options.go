package jobwait

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/trace"
)

// clientConfig holds mutable state during Client construction.
type clientConfig struct {
	statusPath       string
	headers          map[string]string
	maxRetries       int
	backoffFactor    float64
	timeout          time.Duration
	requestTimeout   time.Duration
	maxBackoff       time.Duration
	backoffUnit      time.Duration
	extractor        StatusExtractor
	logger           *slog.Logger
	tracer           trace.Tracer
	sleeper          Sleeper
	attemptCallbacks []func(Attempt)
}

// Sleeper blocks for d or until ctx is done, returning ctx's error in the
// latter case. See [WithSleeper].
type Sleeper func(ctx context.Context, d time.Duration) error

// Option is a function that configures a [Client] during construction.
//
// Option implements the functional options pattern. Options return an
// error if validation fails, which [New] passes through.
type Option func(*clientConfig) error

// WithStatusPath sets the path of the status endpoint relative to the base
// URL. Defaults to "/status".
//
// Example:
//
//	client, err := jobwait.New("https://api.example.com",
//	    jobwait.WithStatusPath("/jobs/42/status"),
//	)
//
// Returns an error if the path does not start with "/".
func WithStatusPath(path string) Option {
	return func(cfg *clientConfig) error {
		if !strings.HasPrefix(path, "/") {
			return errors.New("status path must start with /")
		}
		cfg.statusPath = path
		return nil
	}
}

// WithHeaders adds custom HTTP headers to every status read.
//
// Accepts variadic key-value pairs. The number of arguments must be even.
//
// Example:
//
//	client, err := jobwait.New(baseURL,
//	    jobwait.WithHeaders("X-Job-Token", token),
//	)
func WithHeaders(keyValues ...string) Option {
	return func(cfg *clientConfig) error {
		if len(keyValues)%2 != 0 {
			return errors.New("WithHeaders requires an even number of arguments (key-value pairs)")
		}
		for i := 0; i < len(keyValues); i += 2 {
			cfg.headers[keyValues[i]] = keyValues[i+1]
		}
		return nil
	}
}

// WithMaxRetries sets the shared retry budget. Both transport failures and
// non-terminal reads advance the counter, but only a transport failure
// fails the session once it reaches n. Defaults to 10.
//
// Returns an error if n is not positive.
func WithMaxRetries(n int) Option {
	return func(cfg *clientConfig) error {
		if n <= 0 {
			return errors.New("max retries must be positive")
		}
		cfg.maxRetries = n
		return nil
	}
}

// WithBackoffFactor sets the exponential base: the sleep after the n-th
// retry is factor^n backoff units, capped by [WithMaxBackoff] and by the
// remaining timeout budget. Defaults to 2.
//
// Returns an error if factor is not greater than 1.
func WithBackoffFactor(factor float64) Option {
	return func(cfg *clientConfig) error {
		if factor <= 1 {
			return errors.New("backoff factor must be greater than 1")
		}
		cfg.backoffFactor = factor
		return nil
	}
}

// WithTimeout sets the total time budget for the polling session.
// Defaults to 30 seconds.
//
// The budget is consumed only by backoff sleeps and is checked between
// reads, so real wall-clock time may exceed it by up to one request
// timeout. Transport failures retry immediately and do not consume it.
//
// Returns an error if the duration is zero or negative.
func WithTimeout(d time.Duration) Option {
	return func(cfg *clientConfig) error {
		if d <= 0 {
			return errors.New("timeout must be positive")
		}
		cfg.timeout = d
		return nil
	}
}

// WithRequestTimeout sets the timeout of each individual status read.
// Defaults to 5 seconds.
//
// Returns an error if the duration is zero or negative.
func WithRequestTimeout(d time.Duration) Option {
	return func(cfg *clientConfig) error {
		if d <= 0 {
			return errors.New("request timeout must be positive")
		}
		cfg.requestTimeout = d
		return nil
	}
}

// WithMaxBackoff caps any single backoff sleep. Defaults to 20 seconds.
//
// Returns an error if the duration is zero or negative.
func WithMaxBackoff(d time.Duration) Option {
	return func(cfg *clientConfig) error {
		if d <= 0 {
			return errors.New("max backoff must be positive")
		}
		cfg.maxBackoff = d
		return nil
	}
}

// WithBackoffUnit sets the duration of one backoff unit. Defaults to one
// second, so a factor of 2 sleeps 2s, 4s, 8s, ...
//
// Returns an error if the duration is zero or negative.
func WithBackoffUnit(d time.Duration) Option {
	return func(cfg *clientConfig) error {
		if d <= 0 {
			return errors.New("backoff unit must be positive")
		}
		cfg.backoffUnit = d
		return nil
	}
}

// WithExtractor sets a custom [StatusExtractor]. Defaults to
// [DefaultExtractor].
//
// Returns an error if the extractor is nil.
func WithExtractor(e StatusExtractor) Option {
	return func(cfg *clientConfig) error {
		if e == nil {
			return errors.New("extractor cannot be nil")
		}
		cfg.extractor = e
		return nil
	}
}

// WithLogger sets the [slog.Logger] for session diagnostics. If not
// specified, [slog.Default] is used.
//
// Example:
//
//	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))
//	client, err := jobwait.New(baseURL, jobwait.WithLogger(logger))
//
// Returns an error if the logger is nil.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *clientConfig) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		cfg.logger = logger
		return nil
	}
}

// WithTracer sets the OpenTelemetry tracer used for the "jobwait.await"
// span. If not specified, the tracer from the global provider is used.
//
// Returns an error if the tracer is nil.
func WithTracer(tracer trace.Tracer) Option {
	return func(cfg *clientConfig) error {
		if tracer == nil {
			return errors.New("tracer cannot be nil")
		}
		cfg.tracer = tracer
		return nil
	}
}

// WithSleeper replaces the function used to wait between reads. The
// default waits on a timer and returns early if the context is done.
//
// Returns an error if the sleeper is nil.
func WithSleeper(s Sleeper) Option {
	return func(cfg *clientConfig) error {
		if s == nil {
			return errors.New("sleeper cannot be nil")
		}
		cfg.sleeper = s
		return nil
	}
}

// WithAttemptCallback registers a function called after every status read.
//
// Multiple callbacks may be registered; they execute in registration order
// on the polling goroutine, so they must not block. Panics are recovered
// and logged.
//
// Example:
//
//	client, err := jobwait.New(baseURL,
//	    jobwait.WithAttemptCallback(func(a jobwait.Attempt) {
//	        progress.Set(a.Number)
//	    }),
//	)
//
// Nil callbacks are silently ignored.
func WithAttemptCallback(cb func(Attempt)) Option {
	return func(cfg *clientConfig) error {
		if cb == nil {
			return nil
		}
		cfg.attemptCallbacks = append(cfg.attemptCallbacks, cb)
		return nil
	}
}
