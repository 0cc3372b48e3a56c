package jobwait

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// testLogger returns a logger that discards all output for clean test output.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// noSleep records sleeps without waiting.
type noSleep struct {
	mu     sync.Mutex
	sleeps []time.Duration
}

func (n *noSleep) Sleep(_ context.Context, d time.Duration) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sleeps = append(n.sleeps, d)
	return nil
}

func (n *noSleep) Count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.sleeps)
}

// pendingThen serves {"result":"pending"} for the first k reads, then final.
func pendingThen(k int32, final string, hits *atomic.Int32) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		n := hits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		if n <= k {
			_, _ = w.Write([]byte(`{"result":"pending"}`))
			return
		}
		_, _ = w.Write([]byte(`{"result":"` + final + `"}`))
	}
}

func TestClient_AwaitTerminalStatus(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(pendingThen(3, "completed", &hits))
	defer server.Close()

	sleeper := &noSleep{}
	client, err := New(server.URL,
		WithLogger(testLogger()),
		WithSleeper(sleeper.Sleep),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer client.Close()

	status, err := client.AwaitTerminalStatus(context.Background())
	if err != nil {
		t.Fatalf("AwaitTerminalStatus() error = %v", err)
	}
	if status != StatusCompleted {
		t.Errorf("status = %q, want %q", status, StatusCompleted)
	}
	if hits.Load() != 4 {
		t.Errorf("server reads = %d, want 4", hits.Load())
	}
	if sleeper.Count() != 3 {
		t.Errorf("sleeps = %d, want 3", sleeper.Count())
	}

	st := client.State()
	if !st.Terminal || st.LastStatus != StatusCompleted {
		t.Errorf("State() = %+v, want terminal completed", st)
	}
	if st.Elapsed != 14*time.Second {
		t.Errorf("State().Elapsed = %v, want 14s", st.Elapsed)
	}
}

func TestClient_IdempotentAfterTerminal(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(pendingThen(1, "error", &hits))
	defer server.Close()

	client, err := New(server.URL, WithLogger(testLogger()), WithSleeper((&noSleep{}).Sleep))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	first, err := client.AwaitTerminalStatus(context.Background())
	if err != nil {
		t.Fatalf("AwaitTerminalStatus() error = %v", err)
	}
	if first != StatusError {
		t.Fatalf("status = %q, want %q", first, StatusError)
	}

	reads := hits.Load()
	client.Close()

	for i := 0; i < 5; i++ {
		got, err := client.AwaitTerminalStatus(context.Background())
		if err != nil || got != first {
			t.Errorf("call %d = (%q, %v), want (%q, nil)", i+2, got, err, first)
		}
	}
	if hits.Load() != reads {
		t.Errorf("server reads after terminal = %d, want %d", hits.Load(), reads)
	}
}

func TestClient_RetriesExhausted(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	sleeper := &noSleep{}
	client, err := New(server.URL,
		WithMaxRetries(5),
		WithLogger(testLogger()),
		WithSleeper(sleeper.Sleep),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	_, err = client.AwaitTerminalStatus(context.Background())
	if !errors.Is(err, ErrRetriesExhausted) {
		t.Fatalf("AwaitTerminalStatus() error = %v, want ErrRetriesExhausted", err)
	}

	var transport *TransportError
	if !errors.As(err, &transport) {
		t.Fatalf("error does not wrap *TransportError: %v", err)
	}
	if transport.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("StatusCode = %d, want %d", transport.StatusCode, http.StatusServiceUnavailable)
	}
	if hits.Load() != 5 {
		t.Errorf("server reads = %d, want 5", hits.Load())
	}
	if sleeper.Count() != 0 {
		t.Errorf("sleeps = %d, want 0", sleeper.Count())
	}
	if !errors.Is(client.State().Err, ErrRetriesExhausted) {
		t.Errorf("State().Err = %v, want ErrRetriesExhausted", client.State().Err)
	}
}

func TestClient_ConnectionRefused(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	client, err := New(url, WithMaxRetries(3), WithLogger(testLogger()))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	_, err = client.AwaitTerminalStatus(context.Background())
	if !errors.Is(err, ErrRetriesExhausted) {
		t.Fatalf("AwaitTerminalStatus() error = %v, want ErrRetriesExhausted", err)
	}
	if client.State().Reads != 3 {
		t.Errorf("Reads = %d, want 3", client.State().Reads)
	}
}

func TestClient_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"result":"pending"}`))
	}))
	defer server.Close()

	client, err := New(server.URL,
		WithTimeout(10*time.Second),
		WithMaxRetries(50),
		WithLogger(testLogger()),
		WithSleeper((&noSleep{}).Sleep),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	_, err = client.AwaitTerminalStatus(context.Background())
	if !errors.Is(err, ErrPollingTimeout) {
		t.Fatalf("AwaitTerminalStatus() error = %v, want ErrPollingTimeout", err)
	}

	var timeout *TimeoutError
	if !errors.As(err, &timeout) {
		t.Fatalf("error %T is not *TimeoutError", err)
	}
	if timeout.Elapsed != 10*time.Second {
		t.Errorf("Elapsed = %v, want 10s", timeout.Elapsed)
	}
}

// TestClient_AlwaysPendingTimesOutWithSmallRetryLimit checks that a job
// stuck in pending ends in a timeout, not retry exhaustion, even when the
// retry limit is lower than the number of reads.
func TestClient_AlwaysPendingTimesOutWithSmallRetryLimit(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte(`{"result":"pending"}`))
	}))
	defer server.Close()

	sleeper := &noSleep{}
	client, err := New(server.URL,
		WithMaxRetries(3),
		WithTimeout(30*time.Second),
		WithLogger(testLogger()),
		WithSleeper(sleeper.Sleep),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer client.Close()

	_, err = client.AwaitTerminalStatus(context.Background())
	if !errors.Is(err, ErrPollingTimeout) {
		t.Fatalf("AwaitTerminalStatus() error = %v, want ErrPollingTimeout", err)
	}
	if errors.Is(err, ErrRetriesExhausted) {
		t.Errorf("error %v must not match ErrRetriesExhausted", err)
	}

	want := []time.Duration{2 * time.Second, 4 * time.Second, 8 * time.Second, 16 * time.Second}
	sleeper.mu.Lock()
	got := append([]time.Duration(nil), sleeper.sleeps...)
	sleeper.mu.Unlock()
	if len(got) != len(want) {
		t.Fatalf("sleeps = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sleep %d = %v, want %v", i, got[i], want[i])
		}
	}
	if hits.Load() != 5 {
		t.Errorf("server reads = %d, want 5", hits.Load())
	}
}

// TestClient_RealSleeps runs the default sleeper with millisecond units to
// check the wall-clock bound: budget plus at most one request.
func TestClient_RealSleeps(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"result":"pending"}`))
	}))
	defer server.Close()

	client, err := New(server.URL,
		WithBackoffUnit(time.Millisecond),
		WithMaxBackoff(20*time.Millisecond),
		WithTimeout(100*time.Millisecond),
		WithMaxRetries(100),
		WithLogger(testLogger()),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	start := time.Now()
	_, err = client.AwaitTerminalStatus(context.Background())
	took := time.Since(start)

	if !errors.Is(err, ErrPollingTimeout) {
		t.Fatalf("AwaitTerminalStatus() error = %v, want ErrPollingTimeout", err)
	}
	if took < 100*time.Millisecond {
		t.Errorf("returned after %v, before the budget was slept", took)
	}
	if took > 5*time.Second {
		t.Errorf("took %v, far beyond the budget", took)
	}
}

func TestClient_SendsHeaders(t *testing.T) {
	var gotToken atomic.Value
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotToken.Store(r.Header.Get("X-Job-Token"))
		_, _ = w.Write([]byte(`{"result":"completed"}`))
	}))
	defer server.Close()

	client, err := New(server.URL, WithHeaders("X-Job-Token", "secret"), WithLogger(testLogger()))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if _, err := client.AwaitTerminalStatus(context.Background()); err != nil {
		t.Fatalf("AwaitTerminalStatus() error = %v", err)
	}
	if gotToken.Load() != "secret" {
		t.Errorf("X-Job-Token = %v, want secret", gotToken.Load())
	}
}

func TestClient_CustomExtractorAndPath(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/jobs/7", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"job": {"state": "succeeded"}}`))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client, err := New(server.URL,
		WithStatusPath("/v1/jobs/7"),
		WithExtractor(LenientJSONFieldExtractor("job.state")),
		WithLogger(testLogger()),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	status, err := client.AwaitTerminalStatus(context.Background())
	if err != nil {
		t.Fatalf("AwaitTerminalStatus() error = %v", err)
	}
	if status != StatusCompleted {
		t.Errorf("status = %q, want %q", status, StatusCompleted)
	}
}

func TestClient_AttemptCallback(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(pendingThen(2, "completed", &hits))
	defer server.Close()

	var attempts []Attempt
	client, err := New(server.URL,
		WithLogger(testLogger()),
		WithSleeper((&noSleep{}).Sleep),
		WithAttemptCallback(func(a Attempt) { attempts = append(attempts, a) }),
		WithAttemptCallback(func(Attempt) { panic("misbehaving callback") }),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if _, err := client.AwaitTerminalStatus(context.Background()); err != nil {
		t.Fatalf("AwaitTerminalStatus() error = %v", err)
	}

	if len(attempts) != 3 {
		t.Fatalf("attempts = %d, want 3", len(attempts))
	}

	first := attempts[0]
	if first.Number != 1 || first.Status != StatusPending || first.StatusCode != http.StatusOK {
		t.Errorf("first attempt = %+v", first)
	}
	if first.Sleep != 2*time.Second || first.RetryCount != 1 {
		t.Errorf("first attempt sleep/retry = %v/%d, want 2s/1", first.Sleep, first.RetryCount)
	}

	last := attempts[2]
	if last.Status != StatusCompleted || last.Sleep != 0 {
		t.Errorf("last attempt = %+v, want completed with no sleep", last)
	}
	if last.Elapsed != 6*time.Second {
		t.Errorf("last attempt Elapsed = %v, want 6s", last.Elapsed)
	}
}

func TestClient_LogsSession(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(pendingThen(1, "completed", &hits))
	defer server.Close()

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	client, err := New(server.URL, WithLogger(logger), WithSleeper((&noSleep{}).Sleep))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if _, err := client.AwaitTerminalStatus(context.Background()); err != nil {
		t.Fatalf("AwaitTerminalStatus() error = %v", err)
	}
	if _, err := client.AwaitTerminalStatus(context.Background()); err != nil {
		t.Fatalf("second AwaitTerminalStatus() error = %v", err)
	}

	output := buf.String()
	for _, msg := range []string{
		"polling session started",
		"initial status",
		"sleeping before retry",
		"job completed",
		"job already finished",
		client.State().ID,
	} {
		if !strings.Contains(output, msg) {
			t.Errorf("log output missing %q\nGot: %s", msg, output)
		}
	}
}

func TestClient_ConcurrentCallsShareOneSession(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(pendingThen(2, "completed", &hits))
	defer server.Close()

	client, err := New(server.URL, WithLogger(testLogger()), WithSleeper((&noSleep{}).Sleep))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	var wg sync.WaitGroup
	results := make([]Status, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = client.AwaitTerminalStatus(context.Background())
		}(i)
	}
	wg.Wait()

	for i, got := range results {
		if got != StatusCompleted {
			t.Errorf("caller %d got %q, want %q", i, got, StatusCompleted)
		}
	}
	if hits.Load() != 3 {
		t.Errorf("server reads = %d, want 3", hits.Load())
	}
}

func TestClient_ContextCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"result":"pending"}`))
	}))
	defer server.Close()

	client, err := New(server.URL, WithLogger(testLogger()))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err = client.AwaitTerminalStatus(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("AwaitTerminalStatus() error = %v, want context.DeadlineExceeded", err)
	}
	if time.Since(start) > time.Second {
		t.Error("cancellation did not interrupt the 2s backoff sleep")
	}
}
