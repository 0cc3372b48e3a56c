package jobwait

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"

	"github.com/jpalmerr/jobwait/internal/poller"
)

const (
	defaultStatusPath     = "/status"
	defaultMaxRetries     = 10
	defaultBackoffFactor  = 2
	defaultTimeout        = 30 * time.Second
	defaultRequestTimeout = 5 * time.Second
	defaultMaxBackoff     = 20 * time.Second
	defaultBackoffUnit    = time.Second

	tracerName = "github.com/jpalmerr/jobwait"
)

// Client waits for one asynchronous job to reach a terminal status.
//
// A Client owns a single polling session. Its configuration is immutable
// after [New]; the session state (retry counter, consumed budget, cached
// status) lives inside the client and is exposed read-only via
// [Client.State].
//
// The typical lifecycle is:
//
//	client, err := jobwait.New("http://127.0.0.1:5000",
//	    jobwait.WithTimeout(30*time.Second),
//	    jobwait.WithLogger(logger),
//	)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	status, err := client.AwaitTerminalStatus(ctx)
//	switch {
//	case errors.Is(err, jobwait.ErrRetriesExhausted):
//	    // the status endpoint kept failing
//	case errors.Is(err, jobwait.ErrPollingTimeout):
//	    // the time budget ran out
//	case err != nil:
//	    // ctx ended
//	}
//
// To poll a different job, or to retry after a fatal outcome, create a
// new Client.
type Client struct {
	statusURL      string
	maxRetries     int
	backoffFactor  float64
	timeout        time.Duration
	requestTimeout time.Duration
	maxBackoff     time.Duration

	fetcher *poller.Client
	session *poller.Session
}

// New creates a [Client] for the status endpoint under baseURL.
//
// The rawURL must be an absolute http or https URL. Defaults:
//   - status path: /status
//   - max retries: 10
//   - backoff factor: 2 (sleeps of 2s, 4s, 8s, ... capped at 20s)
//   - timeout budget: 30 seconds
//   - request timeout: 5 seconds
//
// Returns an error if the URL is invalid or if any option is invalid.
func New(baseURL string, opts ...Option) (*Client, error) {
	parsedURL, err := url.Parse(baseURL)
	if err != nil {
		return nil, errors.New("invalid URL: " + err.Error())
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return nil, errors.New("URL must have an http:// or https:// scheme")
	}
	if parsedURL.Host == "" {
		return nil, errors.New("URL must have a host")
	}

	cfg := &clientConfig{
		statusPath:     defaultStatusPath,
		headers:        make(map[string]string),
		maxRetries:     defaultMaxRetries,
		backoffFactor:  defaultBackoffFactor,
		timeout:        defaultTimeout,
		requestTimeout: defaultRequestTimeout,
		maxBackoff:     defaultMaxBackoff,
		backoffUnit:    defaultBackoffUnit,
		extractor:      DefaultExtractor,
	}

	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	// default to slog.Default() if no logger provided
	logger := cfg.logger
	if logger == nil {
		logger = slog.Default()
	}
	tracer := cfg.tracer
	if tracer == nil {
		tracer = otel.Tracer(tracerName)
	}

	statusURL := strings.TrimRight(baseURL, "/") + cfg.statusPath
	fetcher := poller.NewClient()

	sessionCfg := poller.SessionConfig{
		URL:            statusURL,
		Headers:        cfg.headers,
		RequestTimeout: cfg.requestTimeout,
		MaxRetries:     cfg.maxRetries,
		Budget:         cfg.timeout,
		BackoffFactor:  cfg.backoffFactor,
		BackoffUnit:    cfg.backoffUnit,
		MaxBackoff:     cfg.maxBackoff,
		Extractor:      toPollerExtractor(cfg.extractor),
		Logger:         logger,
		Tracer:         tracer,
	}
	if cfg.sleeper != nil {
		sessionCfg.Sleep = poller.Sleeper(cfg.sleeper)
	}
	if len(cfg.attemptCallbacks) > 0 {
		callbacks := cfg.attemptCallbacks
		sessionCfg.OnAttempt = func(a poller.Attempt) {
			public := pollerAttemptToPublic(a)
			for _, cb := range callbacks {
				cb(public)
			}
		}
	}

	return &Client{
		statusURL:      statusURL,
		maxRetries:     cfg.maxRetries,
		backoffFactor:  cfg.backoffFactor,
		timeout:        cfg.timeout,
		requestTimeout: cfg.requestTimeout,
		maxBackoff:     cfg.maxBackoff,
		fetcher:        fetcher,
		session:        poller.NewSession(sessionCfg, fetcher),
	}, nil
}

// AwaitTerminalStatus blocks until the job reports [StatusCompleted] or
// [StatusError], or the session fails.
//
// Each iteration reads the status once. A transport failure increments
// the retry counter and retries immediately. A non-terminal status
// increments the counter and sleeps min(factor^retries units, max backoff,
// remaining budget). The session fails with a [*RetriesExhaustedError]
// when a transport failure brings the counter to the limit, or a
// [*TimeoutError] once sleeps have consumed the budget. A job that stays
// pending always ends in the timeout.
//
// After a terminal status, later calls return it without any I/O. After
// a fatal error, later calls return the same error. If ctx ends first,
// the ctx error is returned wrapped and a later call resumes the session.
// Concurrent calls are serialized.
func (c *Client) AwaitTerminalStatus(ctx context.Context) (Status, error) {
	status, err := c.session.Run(ctx)
	if err != nil {
		return "", err
	}
	return Status(status), nil
}

// State returns a snapshot of the polling session.
func (c *Client) State() SessionState {
	st := c.session.State()
	return SessionState{
		ID:         st.ID,
		RetryCount: st.RetryCount,
		Reads:      st.Reads,
		Elapsed:    st.Elapsed,
		LastStatus: Status(st.LastStatus),
		Terminal:   st.Terminal,
		Err:        st.Err,
	}
}

// URL returns the full status endpoint URL.
func (c *Client) URL() string {
	return c.statusURL
}

// MaxRetries returns the shared retry budget.
func (c *Client) MaxRetries() int {
	return c.maxRetries
}

// BackoffFactor returns the exponential backoff base.
func (c *Client) BackoffFactor() float64 {
	return c.backoffFactor
}

// Timeout returns the session time budget.
func (c *Client) Timeout() time.Duration {
	return c.timeout
}

// RequestTimeout returns the timeout applied to each status read.
func (c *Client) RequestTimeout() time.Duration {
	return c.requestTimeout
}

// MaxBackoff returns the cap on a single backoff sleep.
func (c *Client) MaxBackoff() time.Duration {
	return c.maxBackoff
}

// Close releases idle pooled connections. The session state is kept, so
// a terminal status can still be read back afterwards.
func (c *Client) Close() {
	c.fetcher.Close()
}

// toPollerExtractor wraps a public extractor to return a string.
func toPollerExtractor(e StatusExtractor) poller.StatusExtractor {
	return func(body []byte, statusCode int) string {
		return e(body, statusCode).String()
	}
}

// pollerAttemptToPublic converts an internal attempt to the public type.
func pollerAttemptToPublic(a poller.Attempt) Attempt {
	return Attempt{
		Number:     a.Number,
		Status:     Status(a.Status),
		StatusCode: a.StatusCode,
		Latency:    a.Latency,
		RetryCount: a.RetryCount,
		Elapsed:    a.Elapsed,
		Sleep:      a.Sleep,
		Err:        a.Err,
	}
}
