// Package main is the entry point for the jobwait CLI.
//
// jobwait can be used either as a library (SDK) or as a standalone binary
// with YAML configuration. This CLI provides the standalone binary approach.
//
// Usage:
//
//	jobwait await -c config.yaml    # Wait for the job to finish
//	jobwait serve -c config.yaml    # Run the simulated job server
//	jobwait demo                    # Run server and client in one process
//	jobwait validate -c config.yaml # Validate configuration
//	jobwait version                 # Show version info
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

// Version information - set by GoReleaser at build time via ldflags.
// Example: go build -ldflags "-X main.version=1.0.0"
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// rootCmd is the base command when called without subcommands.
// It just displays help - actual functionality is in subcommands.
var rootCmd = &cobra.Command{
	Use:   "jobwait",
	Short: "Wait for an asynchronous job to finish",
	Long: `jobwait polls a job status endpoint until the job completes or fails.

Between reads it backs off exponentially (2s, 4s, 8s, ... capped at 20s),
within a bounded number of retries and a bounded time budget.

Quick start:
  1. Run the simulated job server: jobwait serve
  2. In another terminal:          jobwait await
  3. Or both in one process:       jobwait demo

Example config:
  endpoint: http://127.0.0.1:5000
  max_retries: 10
  timeout: 30s
  extractor: json:result`,
	SilenceUsage: true,
	// No Run/RunE means this just shows help when called without subcommands
}

// Execute runs the root command.
// This is the main entry point called from main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		// Cobra already prints the error, just exit with code 1
		os.Exit(1)
	}
}

func main() {
	Execute()
}

// newLogger creates a JSON logger for CLI use.
func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}

// versionCmd prints version information.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Print the version, commit hash, and build date of this jobwait binary.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("jobwait %s\n", version)
		fmt.Printf("  commit: %s\n", commit)
		fmt.Printf("  built:  %s\n", date)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "enable debug logging")
	rootCmd.AddCommand(versionCmd)
}
