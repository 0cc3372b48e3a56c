package config

import (
	"log/slog"
	"sort"

	"github.com/jpalmerr/jobwait"
	"github.com/jpalmerr/jobwait/internal/server"
	"github.com/jpalmerr/jobwait/internal/store"
)

// BuildClient converts parsed configuration into an SDK Client.
//
// Extra options are applied after the ones derived from cfg, so callers
// can override them or add hooks such as [jobwait.WithAttemptCallback].
func BuildClient(cfg *Config, logger *slog.Logger, extra ...jobwait.Option) (*jobwait.Client, error) {
	opts := []jobwait.Option{
		jobwait.WithStatusPath(cfg.StatusPath),
		jobwait.WithMaxRetries(cfg.MaxRetries),
		jobwait.WithBackoffFactor(cfg.BackoffFactor),
		jobwait.WithTimeout(cfg.Timeout.Duration()),
		jobwait.WithRequestTimeout(cfg.RequestTimeout.Duration()),
		jobwait.WithMaxBackoff(cfg.MaxBackoff.Duration()),
		jobwait.WithBackoffUnit(cfg.BackoffUnit.Duration()),
	}

	if logger != nil {
		opts = append(opts, jobwait.WithLogger(logger))
	}

	if len(cfg.Headers) > 0 {
		opts = append(opts, jobwait.WithHeaders(mapToKeyValuePairs(cfg.Headers)...))
	}

	extractor, err := buildExtractor(cfg.Extractor)
	if err != nil {
		return nil, err
	}
	if extractor != nil {
		opts = append(opts, jobwait.WithExtractor(extractor))
	}

	return jobwait.New(cfg.Endpoint, append(opts, extra...)...)
}

// BuildServer converts the server section into a simulated job server
// backed by a fresh in-memory store.
func BuildServer(cfg *Config, logger *slog.Logger) (*server.Server, error) {
	if logger == nil {
		logger = slog.Default()
	}
	return server.NewServer(store.NewMemoryStore(nil), cfg.Server.Port, cfg.Server.Delay.Duration(), logger)
}

// mapToKeyValuePairs converts a map to a sorted slice of key-value pairs.
func mapToKeyValuePairs(m map[string]string) []string {
	// sort keys for deterministic ordering
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(m)*2)
	for _, k := range keys {
		pairs = append(pairs, k, m[k])
	}
	return pairs
}

// buildExtractor converts ExtractorConfig to a StatusExtractor function.
// Returns nil for default/empty extractors (SDK uses DefaultExtractor).
func buildExtractor(ec ExtractorConfig) (jobwait.StatusExtractor, error) {
	switch ec.Type {
	case "json":
		return jobwait.JSONFieldExtractor(ec.Path), nil
	case "lenient":
		return jobwait.LenientJSONFieldExtractor(ec.Path), nil
	case "regex":
		return jobwait.RegexExtractor(ec.Pattern)
	default:
		// nil signals SDK to use DefaultExtractor
		return nil, nil
	}
}
