package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jpalmerr/jobwait"
	"github.com/jpalmerr/jobwait/config"
)

// demoCmd runs the job server and the client in one process.
var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Run the job server and wait for its job in one process",
	Long: `Start the simulated job server on a free port, then wait for its job.

Each status read is printed as it happens, followed by the outcome.

Example:
  jobwait demo
  jobwait demo --delay 5s --timeout 30s`,
	RunE: runDemo,
}

func init() {
	rootCmd.AddCommand(demoCmd)

	demoCmd.Flags().Duration("delay", 5*time.Second, "how long the job stays pending")
	demoCmd.Flags().Duration("timeout", config.DefaultTimeout, "client time budget")
}

func runDemo(cmd *cobra.Command, args []string) error {
	verbose, _ := cmd.Flags().GetBool("verbose")
	logger := newLogger(verbose)

	delay, _ := cmd.Flags().GetDuration("delay")
	timeout, _ := cmd.Flags().GetDuration("timeout")

	cfg := config.Default()
	cfg.Server.Port = 0
	cfg.Server.Delay = config.Duration(delay)
	cfg.Timeout = config.Duration(timeout)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv, err := config.BuildServer(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}
	if err := srv.Start(ctx); err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	cfg.Endpoint = fmt.Sprintf("http://127.0.0.1:%d", srv.Addr().(*net.TCPAddr).Port)

	client, err := config.BuildClient(cfg, logger, jobwait.WithAttemptCallback(func(a jobwait.Attempt) {
		if a.Err != nil {
			fmt.Fprintf(os.Stdout, "read %d: failed (%v)\n", a.Number, a.Err)
			return
		}
		if a.Sleep > 0 {
			fmt.Fprintf(os.Stdout, "read %d: %s, next read in %s\n", a.Number, a.Status, a.Sleep)
			return
		}
		fmt.Fprintf(os.Stdout, "read %d: %s\n", a.Number, a.Status)
	}))
	if err != nil {
		return fmt.Errorf("failed to create client: %w", err)
	}
	defer client.Close()

	fmt.Fprintf(os.Stdout, "waiting for job at %s (delay %s, budget %s)\n", client.URL(), delay, timeout)

	status, err := client.AwaitTerminalStatus(ctx)
	if err != nil {
		return fmt.Errorf("job did not finish: %w", err)
	}

	st := client.State()
	fmt.Fprintf(os.Stdout, "job finished: %s after %d reads, %s of backoff\n", status, st.Reads, st.Elapsed)
	return nil
}
