package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jpalmerr/jobwait/config"
)

const (
	shutdownTimeout = 10 * time.Second
)

// serveCmd starts the simulated job server.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the simulated job server",
	Long: `Start a job server that behaves like an asynchronous backend.

The server will:
  - Report {"result": "pending"} at /status until the delay has passed
  - Then report "completed" or "error", chosen once at random
  - Accept new jobs at POST /jobs, each readable at /jobs/<id>/status

The server runs until interrupted (Ctrl+C) or receives SIGTERM.

Example:
  jobwait serve
  jobwait serve --port 5000 --delay 20s
  jobwait serve -c config.yaml`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringP("config", "c", "", "path to config file")
	serveCmd.Flags().Int("port", 0, "port to listen on (overrides config)")
	serveCmd.Flags().Duration("delay", 0, "how long jobs stay pending (overrides config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	verbose, _ := cmd.Flags().GetBool("verbose")
	logger := newLogger(verbose)

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("port") {
		cfg.Server.Port, _ = flags.GetInt("port")
	}
	if flags.Changed("delay") {
		d, _ := flags.GetDuration("delay")
		cfg.Server.Delay = config.Duration(d)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	srv, err := config.BuildServer(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	// set up context with signal handling - cancel on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := srv.Start(ctx); err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	<-ctx.Done()

	// signal received, wait for graceful shutdown with timeout
	select {
	case <-srv.Done():
		logger.Info("shutdown complete")
	case <-time.After(shutdownTimeout):
		logger.Warn("shutdown timed out",
			"timeout", shutdownTimeout.String(),
			"action", "forcing exit",
		)
	}
	return nil
}
