package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jpalmerr/jobwait"
	"github.com/jpalmerr/jobwait/internal/server"
	"github.com/jpalmerr/jobwait/internal/store"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// job server: pending for 20s, then completed or error
	srv, err := server.NewServer(store.NewMemoryStore(nil), 5000, 20*time.Second, logger)
	if err != nil {
		logger.Error("failed to create job server", "error", err)
		os.Exit(1)
	}
	if err := srv.Start(ctx); err != nil {
		logger.Error("failed to start job server", "error", err)
		os.Exit(1)
	}

	client, err := jobwait.New("http://127.0.0.1:5000",
		jobwait.WithTimeout(30*time.Second),
		jobwait.WithLogger(logger),
		jobwait.WithAttemptCallback(func(a jobwait.Attempt) {
			fmt.Printf("  read %d: %-9s retry=%d elapsed=%s\n", a.Number, a.Status, a.RetryCount, a.Elapsed)
		}),
	)
	if err != nil {
		logger.Error("failed to create client", "error", err)
		os.Exit(1)
	}
	defer client.Close()

	fmt.Println()
	fmt.Println("  jobwait demo: waiting for the job at", client.URL())
	fmt.Println()

	status, err := client.AwaitTerminalStatus(ctx)
	switch {
	case errors.Is(err, jobwait.ErrRetriesExhausted):
		fmt.Println("  gave up: too many retries:", err)
	case errors.Is(err, jobwait.ErrPollingTimeout):
		fmt.Println("  gave up: time budget spent:", err)
	case err != nil:
		fmt.Println("  interrupted:", err)
	default:
		fmt.Println("  final status from server:", status)
	}

	// a second call returns the cached result without touching the server
	if again, err := client.AwaitTerminalStatus(ctx); err == nil {
		fmt.Println("  cached status:", again)
	}
	fmt.Println()
}
