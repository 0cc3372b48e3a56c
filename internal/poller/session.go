package poller

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Status strings understood by the session. The public package defines
// its own typed constants with the same values.
const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
	StatusError     = "error"
	StatusUnknown   = "unknown"
)

// IsTerminal reports whether status is a final job outcome.
func IsTerminal(status string) bool {
	return status == StatusCompleted || status == StatusError
}

// StatusExtractor determines a job status from a successful response.
//
// This is the poller-internal version that returns a string rather than
// the jobwait.Status type, avoiding circular dependencies.
type StatusExtractor func(body []byte, statusCode int) string

// Attempt describes one status read and the decision taken after it.
type Attempt struct {
	// Number is the 1-based count of reads in this session.
	Number int

	// Status is the extracted status. Empty when the read failed.
	Status string

	StatusCode int
	Latency    time.Duration

	// RetryCount is the shared retry counter after this read.
	RetryCount int

	// Elapsed is the budget consumed before this read.
	Elapsed time.Duration

	// Sleep is the delay scheduled after this read, zero if none.
	Sleep time.Duration

	// Err is the transport failure for this read, if any.
	Err error
}

// SessionConfig is the fixed configuration of a [Session].
type SessionConfig struct {
	URL            string
	Headers        map[string]string
	RequestTimeout time.Duration

	// MaxRetries bounds transport failures. Non-terminal reads share the
	// counter but are bounded by Budget instead.
	MaxRetries int

	// Budget is the total sleep time the session may spend.
	Budget time.Duration

	BackoffFactor float64
	BackoffUnit   time.Duration
	MaxBackoff    time.Duration

	// Extractor must be non-nil.
	Extractor StatusExtractor

	// Optional. Defaults: SleepContext, a discarding logger, a no-op tracer.
	Sleep     Sleeper
	Logger    *slog.Logger
	Tracer    trace.Tracer
	OnAttempt func(Attempt)
}

// State is a snapshot of a session's mutable state.
type State struct {
	ID         string
	RetryCount int
	Reads      int
	Elapsed    time.Duration
	LastStatus string
	Terminal   bool

	// Err is the sticky fatal outcome, if the session failed.
	Err error
}

// Session drives one job's polling loop to a terminal status, retry
// exhaustion, or timeout.
//
// A Session is single-use: terminal statuses and fatal errors are both
// cached, and later calls to [Session.Run] return them without I/O.
// Run calls are serialized by an internal mutex.
type Session struct {
	cfg     SessionConfig
	fetcher Fetcher
	backoff *Backoff

	mu    sync.Mutex
	state State
}

// NewSession creates a session in its initial state.
func NewSession(cfg SessionConfig, fetcher Fetcher) *Session {
	if cfg.Sleep == nil {
		cfg.Sleep = SleepContext
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	if cfg.Tracer == nil {
		cfg.Tracer = noop.NewTracerProvider().Tracer("")
	}

	return &Session{
		cfg:     cfg,
		fetcher: fetcher,
		backoff: NewBackoff(cfg.BackoffFactor, cfg.BackoffUnit, cfg.MaxBackoff),
		state:   State{ID: uuid.NewString()},
	}
}

// State returns a snapshot of the session state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Run polls until the job reaches a terminal status.
//
// It returns the terminal status, a [*RetriesExhaustedError], a
// [*TimeoutError], or a wrapped ctx error if ctx ends first. Only the ctx
// error is not sticky: a later Run continues with the counters where they
// were left.
func (s *Session) Run(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	logger := s.cfg.Logger.With("session_id", s.state.ID)

	if s.state.Terminal {
		logger.Info("job already finished", "status", s.state.LastStatus)
		return s.state.LastStatus, nil
	}
	if s.state.Err != nil {
		return "", s.state.Err
	}

	ctx, span := s.cfg.Tracer.Start(ctx, "jobwait.await", trace.WithAttributes(
		attribute.String("jobwait.session_id", s.state.ID),
		attribute.String("url.full", s.cfg.URL),
		attribute.Int("jobwait.max_retries", s.cfg.MaxRetries),
		attribute.String("jobwait.budget", s.cfg.Budget.String()),
	))
	defer span.End()

	logger.Info("polling session started",
		"url", s.cfg.URL,
		"max_retries", s.cfg.MaxRetries,
		"timeout", s.cfg.Budget.String(),
	)

	for s.state.Elapsed <= s.cfg.Budget {
		if err := ctx.Err(); err != nil {
			return "", s.interrupted(span, logger, err)
		}

		resp := s.fetcher.Fetch(ctx, s.cfg.URL, s.cfg.Headers, s.cfg.RequestTimeout)
		s.state.Reads++

		if terr := transportError(resp); terr != nil {
			if err := ctx.Err(); err != nil {
				return "", s.interrupted(span, logger, err)
			}

			s.state.RetryCount++
			s.backoff.Next()

			logger.Error("error during status read",
				"retry", s.state.RetryCount,
				"status_code", resp.StatusCode,
				"error", terr.Error(),
			)
			s.record(span, resp, "", 0, terr)

			if s.state.RetryCount >= s.cfg.MaxRetries {
				return "", s.fail(span, logger, &RetriesExhaustedError{
					Attempts:   s.state.RetryCount,
					LastStatus: s.state.LastStatus,
					Err:        terr,
				})
			}
			// transport failures retry immediately and do not consume budget
			continue
		}

		status := s.safeExtract(logger, resp.Body, resp.StatusCode)
		s.state.LastStatus = status

		if IsTerminal(status) {
			s.state.Terminal = true
			s.record(span, resp, status, 0, nil)
			span.SetAttributes(attribute.String("jobwait.status", status))
			logger.Info("job completed", "status", status, "reads", s.state.Reads)
			return status, nil
		}

		if s.state.RetryCount == 0 {
			logger.Info("initial status", "status", status)
		} else {
			logger.Info("retry attempt",
				"retry", s.state.RetryCount,
				"status", status,
				"elapsed", s.state.Elapsed.String(),
			)
		}

		// non-terminal reads advance the schedule but only the time budget
		// bounds them
		s.state.RetryCount++
		delay := s.backoff.Next()

		remaining := s.cfg.Budget - s.state.Elapsed
		if remaining <= 0 {
			s.record(span, resp, status, 0, nil)
			break
		}

		sleep := Clamp(delay, remaining)
		s.record(span, resp, status, sleep, nil)
		logger.Info("sleeping before retry",
			"sleep", sleep.String(),
			"retry", s.state.RetryCount,
			"elapsed", s.state.Elapsed.String(),
		)

		if err := s.cfg.Sleep(ctx, sleep); err != nil {
			return "", s.interrupted(span, logger, err)
		}
		s.state.Elapsed += sleep
	}

	return "", s.fail(span, logger, &TimeoutError{
		Elapsed:    s.state.Elapsed,
		Budget:     s.cfg.Budget,
		LastStatus: s.state.LastStatus,
	})
}

// transportError classifies a response as a failed read, or returns nil.
func transportError(resp Response) *TransportError {
	if resp.Error != nil {
		return &TransportError{StatusCode: resp.StatusCode, Err: resp.Error}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &TransportError{StatusCode: resp.StatusCode}
	}
	return nil
}

// fail records a fatal outcome. Fatal outcomes are sticky.
func (s *Session) fail(span trace.Span, logger *slog.Logger, err error) error {
	s.state.Err = err
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	logger.Error("polling session failed",
		"error", err.Error(),
		"retries", s.state.RetryCount,
		"elapsed", s.state.Elapsed.String(),
	)
	return err
}

func (s *Session) interrupted(span trace.Span, logger *slog.Logger, err error) error {
	span.SetStatus(codes.Error, "interrupted")
	logger.Warn("polling session interrupted", "error", err.Error())
	return fmt.Errorf("polling interrupted: %w", err)
}

// record emits the per-read span event and invokes the attempt callback.
func (s *Session) record(span trace.Span, resp Response, status string, sleep time.Duration, err error) {
	attempt := Attempt{
		Number:     s.state.Reads,
		Status:     status,
		StatusCode: resp.StatusCode,
		Latency:    resp.Latency,
		RetryCount: s.state.RetryCount,
		Elapsed:    s.state.Elapsed,
		Sleep:      sleep,
		Err:        err,
	}

	attrs := []attribute.KeyValue{
		attribute.Int("jobwait.read", attempt.Number),
		attribute.Int("jobwait.retry_count", attempt.RetryCount),
		attribute.Int("http.response.status_code", attempt.StatusCode),
		attribute.String("jobwait.sleep", sleep.String()),
	}
	if status != "" {
		attrs = append(attrs, attribute.String("jobwait.status", status))
	}
	if err != nil {
		attrs = append(attrs, attribute.String("error.message", err.Error()))
	}
	span.AddEvent("status.read", trace.WithAttributes(attrs...))

	if s.cfg.OnAttempt != nil {
		s.invokeCallbackSafe(attempt)
	}
}

// safeExtract calls the extractor with panic recovery.
// A panicking extractor yields StatusUnknown, which the loop treats like
// pending. The stack is logged with a correlation ID.
func (s *Session) safeExtract(logger *slog.Logger, body []byte, statusCode int) (status string) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("extractor panic",
				"correlation_id", uuid.NewString(),
				"panic", fmt.Sprintf("%v", r),
				"stack", string(debug.Stack()),
			)
			status = StatusUnknown
		}
	}()
	return s.cfg.Extractor(body, statusCode)
}

// invokeCallbackSafe calls the attempt callback with panic recovery.
func (s *Session) invokeCallbackSafe(attempt Attempt) {
	defer func() {
		if r := recover(); r != nil {
			s.cfg.Logger.Error("attempt callback panicked",
				"panic", r,
				"read", attempt.Number,
			)
		}
	}()
	s.cfg.OnAttempt(attempt)
}
