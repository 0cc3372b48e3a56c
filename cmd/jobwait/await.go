package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jpalmerr/jobwait"
	"github.com/jpalmerr/jobwait/config"
)

// awaitCmd polls the configured job until it finishes.
var awaitCmd = &cobra.Command{
	Use:   "await",
	Short: "Wait for a job to reach a terminal status",
	Long: `Poll the job status endpoint until the job reports completed or error.

The terminal status is printed to stdout. The command fails when the retry
budget or the time budget runs out.

Exit codes:
  0 - Job finished (completed or error)
  1 - Retries exhausted, timeout reached, or invalid configuration

Example:
  jobwait await
  jobwait await -c config.yaml
  jobwait await --endpoint http://127.0.0.1:5000 --timeout 1m`,
	RunE: runAwait,
}

func init() {
	rootCmd.AddCommand(awaitCmd)

	awaitCmd.Flags().StringP("config", "c", "", "path to config file")
	awaitCmd.Flags().String("endpoint", "", "job server base URL (overrides config)")
	awaitCmd.Flags().Duration("timeout", 0, "total time budget (overrides config)")
	awaitCmd.Flags().Int("max-retries", 0, "retry budget (overrides config)")
}

// loadConfig reads the config file if one was given, or returns defaults.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	configFile, _ := cmd.Flags().GetString("config")
	if configFile == "" {
		return config.Default(), nil
	}
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

func runAwait(cmd *cobra.Command, args []string) error {
	verbose, _ := cmd.Flags().GetBool("verbose")
	logger := newLogger(verbose)

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("endpoint") {
		cfg.Endpoint, _ = flags.GetString("endpoint")
	}
	if flags.Changed("timeout") {
		d, _ := flags.GetDuration("timeout")
		cfg.Timeout = config.Duration(d)
	}
	if flags.Changed("max-retries") {
		cfg.MaxRetries, _ = flags.GetInt("max-retries")
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	client, err := config.BuildClient(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to create client: %w", err)
	}
	defer client.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	status, err := client.AwaitTerminalStatus(ctx)
	switch {
	case errors.Is(err, jobwait.ErrRetriesExhausted):
		return fmt.Errorf("job did not finish: %w", err)
	case errors.Is(err, jobwait.ErrPollingTimeout):
		return fmt.Errorf("job did not finish within %s: %w", cfg.Timeout.Duration(), err)
	case err != nil:
		return err
	}

	fmt.Fprintln(os.Stdout, status)
	return nil
}
