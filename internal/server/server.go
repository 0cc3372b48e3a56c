package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jpalmerr/jobwait/internal/store"
)

const (
	// DefaultJobID is the ID of the job served at /status.
	DefaultJobID = "default"

	// shutdownTimeout bounds graceful shutdown of in-flight requests.
	shutdownTimeout = 5 * time.Second
)

// Server handles HTTP requests for the simulated job backend.
//
// Server provides these endpoints:
//   - GET /status: Result of the default job
//   - POST /jobs: Submits a job, optionally with {"delay": "5s"}
//   - GET /jobs: Lists all jobs, oldest first
//   - GET /jobs/:id: Inspects one job
//   - GET /jobs/:id/status: Result of a submitted job
//   - GET /healthz: Liveness check
//
// Only the status endpoints resolve a due job. Listing and inspecting
// report what is stored, so an unread due job still shows as pending.
//
// The server is designed for graceful shutdown via context cancellation.
type Server struct {
	store  store.Store
	port   int
	delay  time.Duration
	logger *slog.Logger
	now    func() time.Time

	engine     *gin.Engine
	httpServer *http.Server

	mu   sync.Mutex
	addr net.Addr
	done chan struct{}
}

// NewServer creates a new HTTP [Server] and registers its default job.
//
// Parameters:
//   - st: Store implementation for job data
//   - port: TCP port to listen on (0 picks a free port)
//   - delay: How long jobs stay pending unless a submission says otherwise
//   - logger: Logger for server events
//
// The default job's delay starts now. The server is not started until
// [Server.Start] is called.
func NewServer(st store.Store, port int, delay time.Duration, logger *slog.Logger) (*Server, error) {
	s := &Server{
		store:  st,
		port:   port,
		delay:  delay,
		logger: logger,
		now:    time.Now,
		done:   make(chan struct{}),
	}

	if err := st.Add(store.Job{ID: DefaultJobID, CreatedAt: s.now(), Delay: delay}); err != nil {
		return nil, fmt.Errorf("register default job: %w", err)
	}

	s.engine = s.routes()
	return s, nil
}

// routes builds the gin engine with slog request logging.
func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())

	r.GET("/status", s.handleDefaultStatus)
	r.GET("/healthz", s.handleHealth)
	r.POST("/jobs", s.handleCreateJob)
	r.GET("/jobs", s.handleListJobs)
	r.GET("/jobs/:id", s.handleGetJob)
	r.GET("/jobs/:id/status", s.handleJobStatus)

	return r
}

// Handler returns the HTTP handler, for use with httptest.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Addr returns the address the server is listening on, or nil before
// [Server.Start] succeeds.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// Done is closed once the server has shut down after its context ended.
func (s *Server) Done() <-chan struct{} {
	return s.done
}

// Start begins serving HTTP requests in a background goroutine.
//
// Start is non-blocking and returns immediately after confirming the server
// is listening. The server will continue running until the context is
// cancelled, at which point it initiates a graceful shutdown with a 5-second
// timeout.
//
// Returns an error if the server fails to bind to the configured port.
func (s *Server) Start(ctx context.Context) error {
	// create listener first to verify port availability synchronously
	addr := fmt.Sprintf(":%d", s.port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to bind to port %d: %w", s.port, err)
	}

	s.mu.Lock()
	s.addr = ln.Addr()
	s.mu.Unlock()

	s.httpServer = &http.Server{
		Handler:           s.engine,
		ReadHeaderTimeout: 5 * time.Second,
		// BaseContext derives all request contexts from the server context.
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	s.logger.Info("job server listening", "addr", ln.Addr().String(), "delay", s.delay.String())

	go func() {
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("http server error", "error", err)
		}
	}()

	// shutdown on context cancellation
	go func() {
		defer close(s.done)
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("http server shutdown error", "error", err)
		}
	}()

	return nil
}

// handleDefaultStatus reports the default job.
func (s *Server) handleDefaultStatus(c *gin.Context) {
	job, ok := s.resolve(DefaultJobID)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
		return
	}

	c.Header("Cache-Control", "no-cache")
	c.JSON(http.StatusOK, gin.H{"result": job.Result})
}

// handleJobStatus reports a submitted job.
func (s *Server) handleJobStatus(c *gin.Context) {
	job, ok := s.resolve(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
		return
	}

	c.Header("Cache-Control", "no-cache")
	c.JSON(http.StatusOK, gin.H{
		"job_id": job.ID,
		"result": job.Result,
	})
}

type createJobRequest struct {
	Delay string `json:"delay"`
}

// handleCreateJob submits a new job. An empty body uses the server delay.
func (s *Server) handleCreateJob(c *gin.Context) {
	var body createJobRequest
	if err := c.ShouldBindJSON(&body); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	delay := s.delay
	if body.Delay != "" {
		d, err := time.ParseDuration(body.Delay)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid delay: " + err.Error()})
			return
		}
		if d < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "delay must not be negative"})
			return
		}
		delay = d
	}

	job := s.store.Create(delay, s.now())
	s.logger.Info("job submitted", "job_id", job.ID, "delay", delay.String())

	c.JSON(http.StatusCreated, gin.H{
		"job_id":     job.ID,
		"status_url": "/jobs/" + job.ID + "/status",
	})
}

// jobView is the inspection representation of a stored job.
type jobView struct {
	ID         string     `json:"job_id"`
	CreatedAt  time.Time  `json:"created_at"`
	Delay      string     `json:"delay"`
	Result     string     `json:"result"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
}

func newJobView(job store.Job) jobView {
	result := job.Result
	if !job.Terminal() {
		result = store.ResultPending
	}
	return jobView{
		ID:         job.ID,
		CreatedAt:  job.CreatedAt,
		Delay:      job.Delay.String(),
		Result:     result,
		ResolvedAt: job.ResolvedAt,
	}
}

// handleListJobs lists every stored job, oldest first.
func (s *Server) handleListJobs(c *gin.Context) {
	jobs := s.store.List()
	sort.Slice(jobs, func(i, j int) bool {
		if jobs[i].CreatedAt.Equal(jobs[j].CreatedAt) {
			return jobs[i].ID < jobs[j].ID
		}
		return jobs[i].CreatedAt.Before(jobs[j].CreatedAt)
	})

	views := make([]jobView, 0, len(jobs))
	for _, job := range jobs {
		views = append(views, newJobView(job))
	}

	c.JSON(http.StatusOK, gin.H{"jobs": views, "count": len(views)})
}

// handleGetJob inspects a job without resolving it.
func (s *Server) handleGetJob(c *gin.Context) {
	job, ok := s.store.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
		return
	}

	c.JSON(http.StatusOK, newJobView(job))
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// resolve reads a job through the store and logs the moment it resolves.
func (s *Server) resolve(id string) (store.Job, bool) {
	now := s.now()
	job, ok := s.store.Resolve(id, now)
	if ok && job.ResolvedAt != nil && job.ResolvedAt.Equal(now) {
		s.logger.Info("job resolved", "job_id", job.ID, "result", job.Result)
	}
	return job, ok
}

// requestLogger logs each request at debug level.
func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency", time.Since(start).String(),
		)
	}
}
