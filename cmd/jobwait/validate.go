package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jpalmerr/jobwait/config"
)

// validateCmd validates a config file without polling or serving.
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a config file",
	Long: `Validate a jobwait configuration file without polling or serving.

This command parses the YAML, expands environment variables, and validates
all fields. It's useful for CI/CD pipelines or pre-deployment checks.

Exit codes:
  0 - Config is valid
  1 - Config is invalid (error details printed to stderr)

Example:
  jobwait validate -c config.yaml
  jobwait validate --config /etc/jobwait/config.yaml`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringP("config", "c", "", "path to config file (required)")
	_ = validateCmd.MarkFlagRequired("config")
}

func runValidate(cmd *cobra.Command, args []string) error {
	configFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	extractor := cfg.Extractor.Type
	switch extractor {
	case "", "default":
		extractor = "default (json:result)"
	case "json":
		extractor = "json:" + cfg.Extractor.Path
	case "lenient":
		extractor = "lenient:" + cfg.Extractor.Path
	case "regex":
		extractor = "regex:" + cfg.Extractor.Pattern
	}

	fmt.Printf("Config is valid!\n")
	fmt.Printf("  Status URL:   %s%s\n", cfg.Endpoint, cfg.StatusPath)
	fmt.Printf("  Max retries:  %d\n", cfg.MaxRetries)
	fmt.Printf("  Backoff:      factor %g, capped at %s\n", cfg.BackoffFactor, cfg.MaxBackoff.Duration())
	fmt.Printf("  Timeout:      %s\n", cfg.Timeout.Duration())
	fmt.Printf("  Extractor:    %s\n", extractor)
	fmt.Printf("  Server:       port %d, delay %s\n", cfg.Server.Port, cfg.Server.Delay.Duration())

	return nil
}
