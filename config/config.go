// Package config provides YAML configuration parsing for jobwait.
//
// This package enables running the jobwait binary with a configuration
// file, as an alternative to the programmatic SDK approach. One file
// configures both the polling client and the simulated job server.
//
// Example configuration:
//
//	endpoint: http://127.0.0.1:5000
//	status_path: /status
//	max_retries: 10
//	backoff_factor: 2
//	timeout: 30s
//	headers:
//	  X-Job-Token: ${JOB_TOKEN}
//	extractor: json:result
//
//	server:
//	  port: 5000
//	  delay: 20s
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults applied by [Parse] and [Default] to unset fields.
const (
	DefaultEndpoint       = "http://127.0.0.1:5000"
	DefaultStatusPath     = "/status"
	DefaultMaxRetries     = 10
	DefaultBackoffFactor  = 2.0
	DefaultTimeout        = 30 * time.Second
	DefaultRequestTimeout = 5 * time.Second
	DefaultMaxBackoff     = 20 * time.Second
	DefaultBackoffUnit    = time.Second
	DefaultServerPort     = 5000
	DefaultServerDelay    = 20 * time.Second
)

// Config is the root configuration structure for jobwait.
//
// It maps directly to the YAML configuration file structure.
// Use [Load] or [Parse] to create a Config from YAML.
type Config struct {
	// Endpoint is the base URL of the job server.
	// Supports environment variable substitution: ${VAR} or ${VAR:-default}
	Endpoint string `yaml:"endpoint"`

	// StatusPath is appended to Endpoint. Defaults to /status.
	StatusPath string `yaml:"status_path"`

	// MaxRetries is the shared retry budget. Defaults to 10.
	MaxRetries int `yaml:"max_retries"`

	// BackoffFactor is the exponential base. Defaults to 2.
	BackoffFactor float64 `yaml:"backoff_factor"`

	// Timeout is the total time budget of a polling session.
	// Accepts duration strings like "30s", "1m", "500ms".
	// Defaults to 30s.
	Timeout Duration `yaml:"timeout"`

	// RequestTimeout bounds each status read. Defaults to 5s.
	RequestTimeout Duration `yaml:"request_timeout"`

	// MaxBackoff caps a single sleep. Defaults to 20s.
	MaxBackoff Duration `yaml:"max_backoff"`

	// BackoffUnit is the duration of one backoff unit. Defaults to 1s.
	BackoffUnit Duration `yaml:"backoff_unit"`

	// Headers are custom HTTP headers sent with each read.
	// Values support environment variable substitution.
	Headers map[string]string `yaml:"headers"`

	// Extractor determines how to read the status from a response.
	// Can be shorthand ("json:result", "regex:state=(\w+)") or structured.
	Extractor ExtractorConfig `yaml:"extractor"`

	// Server configures the simulated job server.
	Server ServerConfig `yaml:"server"`
}

// ServerConfig configures the simulated job server.
type ServerConfig struct {
	// Port is the HTTP server port. Defaults to 5000.
	Port int `yaml:"port"`

	// Delay is how long jobs stay pending. Defaults to 20s.
	Delay Duration `yaml:"delay"`
}

// ExtractorConfig specifies how to determine job status from a response.
//
// It supports two formats in YAML:
//
// Shorthand string:
//
//	extractor: json:result
//	extractor: json:data.job.state
//	extractor: lenient:job.state
//	extractor: regex:state=(\w+)
//	extractor: default
//
// Structured object:
//
//	extractor:
//	  type: json
//	  path: data.job.state
type ExtractorConfig struct {
	// Type is the extractor type: "default", "json", "lenient", "regex".
	// "lenient" reads a JSON field and accepts state aliases such as
	// "succeeded" or "failed".
	Type string

	// Path is the JSON field path (for type: json and lenient).
	Path string

	// Pattern is the regular expression with one capture group
	// (for type: regex).
	Pattern string
}

// Duration wraps time.Duration for YAML unmarshalling.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}

	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}

	*d = Duration(parsed)
	return nil
}

// Duration returns the underlying time.Duration value.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// UnmarshalYAML implements yaml.Unmarshaler for ExtractorConfig.
func (e *ExtractorConfig) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		var s string
		if err := node.Decode(&s); err != nil {
			return err
		}
		return e.parseShorthand(s)
	}

	if node.Kind == yaml.MappingNode {
		// temporary struct to avoid infinite recursion
		var raw struct {
			Type    string `yaml:"type"`
			Path    string `yaml:"path"`
			Pattern string `yaml:"pattern"`
		}
		if err := node.Decode(&raw); err != nil {
			return err
		}
		e.Type = raw.Type
		e.Path = raw.Path
		e.Pattern = raw.Pattern
		return nil
	}

	return fmt.Errorf("extractor must be a string or object, got %v", node.Kind)
}

// parseShorthand parses extractor shorthand syntax.
//
// Supported formats:
//   - "default" → use default extractor
//   - "json:path" → extract from JSON field
//   - "lenient:path" → extract from JSON field, accepting state aliases
//   - "regex:pattern" → first capture group of pattern
func (e *ExtractorConfig) parseShorthand(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}

	if idx := strings.Index(s, ":"); idx != -1 {
		e.Type = s[:idx]
		value := s[idx+1:]

		switch e.Type {
		case "json", "lenient":
			e.Path = value
		case "regex":
			e.Pattern = value
		default:
			return fmt.Errorf("unknown extractor type %q", e.Type)
		}
		return nil
	}

	if s != "default" {
		return fmt.Errorf("unknown extractor %q (expected 'default', 'json:path', 'lenient:path', or 'regex:pattern')", s)
	}
	e.Type = s
	return nil
}

// envVarPattern matches ${VAR} and ${VAR:-default} patterns.
// Group 1: variable name
// Group 2: the ":-default" part (if present, indicates a default was specified)
// Group 3: the default value (may be empty for ${VAR:-})
var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(:-([^}]*))?\}`)

// expandEnvVars replaces ${VAR} and ${VAR:-default} patterns with environment values.
func expandEnvVars(s string) (string, error) {
	var firstErr error

	result := envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		if firstErr != nil {
			return match
		}

		submatches := envVarPattern.FindStringSubmatch(match)
		if len(submatches) < 2 {
			return match
		}

		varName := submatches[1]
		hasDefault := len(submatches) > 2 && submatches[2] != ""
		defaultVal := ""
		if hasDefault && len(submatches) > 3 {
			defaultVal = submatches[3]
		}

		value, exists := os.LookupEnv(varName)
		if !exists {
			if hasDefault {
				return defaultVal
			}
			firstErr = fmt.Errorf("environment variable %q is not set", varName)
			return match
		}
		return value
	})

	if firstErr != nil {
		return "", firstErr
	}
	return result, nil
}

// Default returns a Config with every field set to its default.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads and parses a YAML configuration file.
//
// Environment variables in the file are expanded before parsing.
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse parses YAML configuration data.
//
// Defaults are applied to unset fields, environment variables are expanded
// in Endpoint and Header values, and the result is validated.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.expandEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// applyDefaults fills zero-valued fields.
func (c *Config) applyDefaults() {
	if c.Endpoint == "" {
		c.Endpoint = DefaultEndpoint
	}
	if c.StatusPath == "" {
		c.StatusPath = DefaultStatusPath
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = DefaultMaxRetries
	}
	if c.BackoffFactor == 0 {
		c.BackoffFactor = DefaultBackoffFactor
	}
	if c.Timeout == 0 {
		c.Timeout = Duration(DefaultTimeout)
	}
	if c.RequestTimeout == 0 {
		c.RequestTimeout = Duration(DefaultRequestTimeout)
	}
	if c.MaxBackoff == 0 {
		c.MaxBackoff = Duration(DefaultMaxBackoff)
	}
	if c.BackoffUnit == 0 {
		c.BackoffUnit = Duration(DefaultBackoffUnit)
	}
	if c.Server.Port == 0 {
		c.Server.Port = DefaultServerPort
	}
	if c.Server.Delay == 0 {
		c.Server.Delay = Duration(DefaultServerDelay)
	}
}

// expandEnv expands environment variables in the endpoint and headers.
func (c *Config) expandEnv() error {
	expanded, err := expandEnvVars(c.Endpoint)
	if err != nil {
		return fmt.Errorf("endpoint: %w", err)
	}
	c.Endpoint = expanded

	for k, v := range c.Headers {
		expanded, err := expandEnvVars(v)
		if err != nil {
			return fmt.Errorf("headers[%s]: %w", k, err)
		}
		c.Headers[k] = expanded
	}
	return nil
}

// Validate checks the configuration. It is called by [Parse] and should be
// called again after fields are overridden, for example from CLI flags.
func (c *Config) Validate() error {
	parsedURL, err := url.Parse(c.Endpoint)
	if err != nil {
		return fmt.Errorf("invalid endpoint: %w", err)
	}
	if parsedURL.Scheme == "" {
		return errors.New("endpoint must have a scheme (http:// or https://)")
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return fmt.Errorf("endpoint scheme must be http or https, got %q", parsedURL.Scheme)
	}
	if parsedURL.Host == "" {
		return errors.New("endpoint must have a host")
	}

	if !strings.HasPrefix(c.StatusPath, "/") {
		return fmt.Errorf("status_path must start with /, got %q", c.StatusPath)
	}

	if c.MaxRetries <= 0 {
		return fmt.Errorf("max_retries must be positive, got %d", c.MaxRetries)
	}
	if c.BackoffFactor <= 1 {
		return fmt.Errorf("backoff_factor must be greater than 1, got %v", c.BackoffFactor)
	}

	durations := []struct {
		name string
		d    Duration
	}{
		{"timeout", c.Timeout},
		{"request_timeout", c.RequestTimeout},
		{"max_backoff", c.MaxBackoff},
		{"backoff_unit", c.BackoffUnit},
	}
	for _, f := range durations {
		if f.d.Duration() <= 0 {
			return fmt.Errorf("%s must be positive, got %s", f.name, f.d.Duration())
		}
	}
	if c.BackoffUnit.Duration() > c.MaxBackoff.Duration() {
		return fmt.Errorf("backoff_unit (%s) must not exceed max_backoff (%s)",
			c.BackoffUnit.Duration(), c.MaxBackoff.Duration())
	}

	if c.Server.Delay.Duration() < 0 {
		return fmt.Errorf("server.delay cannot be negative, got %s", c.Server.Delay.Duration())
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 0 and 65535, got %d", c.Server.Port)
	}

	return validateExtractor(&c.Extractor)
}

// validateExtractor validates an extractor configuration.
func validateExtractor(e *ExtractorConfig) error {
	switch e.Type {
	case "", "default":
		// empty means default, which is valid
	case "json", "lenient":
		if e.Path == "" {
			return fmt.Errorf("extractor type '%s' requires a path", e.Type)
		}
	case "regex":
		if e.Pattern == "" {
			return errors.New("extractor type 'regex' requires a pattern")
		}
		re, err := regexp.Compile(e.Pattern)
		if err != nil {
			return fmt.Errorf("extractor: invalid regex: %w", err)
		}
		if re.NumSubexp() < 1 {
			return errors.New("extractor: regex must have a capture group")
		}
	default:
		return fmt.Errorf("unknown extractor type %q", e.Type)
	}

	return nil
}
