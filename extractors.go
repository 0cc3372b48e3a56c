package jobwait

import (
	"encoding/json"
	"regexp"
	"strings"
)

// JSONFieldExtractor returns a [StatusExtractor] that reads the job status
// from a JSON field using dot notation to navigate nested objects.
//
// For example, "data.job.result" navigates to
// {"data": {"job": {"result": "pending"}}}.
//
// The value must be exactly "pending", "completed" or "error". Anything
// else, a missing or null field, or invalid JSON yields [StatusUnknown].
// Use [LenientJSONFieldExtractor] for endpoints with their own vocabulary.
//
// Example:
//
//	// For response: {"job": {"state": "pending"}}
//	extractor := jobwait.JSONFieldExtractor("job.state")
func JSONFieldExtractor(path string) StatusExtractor {
	return jsonFieldExtractor(path, exactStatus)
}

// LenientJSONFieldExtractor is like [JSONFieldExtractor] but accepts common
// job state aliases, ignoring case and surrounding whitespace:
//   - [StatusCompleted]: "completed", "complete", "succeeded", "success", "done"
//   - [StatusError]: "error", "failed", "failure"
//   - [StatusPending]: "pending", "queued", "running", "processing", "in_progress"
//   - [StatusUnknown]: anything else
//
// Example:
//
//	// For response: {"job": {"state": "succeeded"}}
//	extractor := jobwait.LenientJSONFieldExtractor("job.state")
func LenientJSONFieldExtractor(path string) StatusExtractor {
	return jsonFieldExtractor(path, aliasStatus)
}

func jsonFieldExtractor(path string, mapStatus func(string) Status) StatusExtractor {
	parts := strings.Split(path, ".")

	return func(body []byte, statusCode int) Status {
		var data interface{}
		if err := json.Unmarshal(body, &data); err != nil {
			return StatusUnknown
		}

		value, ok := extractJSONPath(data, parts)
		if !ok {
			return StatusUnknown
		}

		return mapStatus(value)
	}
}

// extractJSONPath walks a JSON structure using dot notation parts.
// Only string leaves count; null and other types are reported as absent.
func extractJSONPath(data interface{}, parts []string) (string, bool) {
	current := data

	for _, part := range parts {
		obj, ok := current.(map[string]interface{})
		if !ok {
			return "", false
		}
		current, ok = obj[part]
		if !ok {
			return "", false
		}
	}

	s, ok := current.(string)
	return s, ok
}

// exactStatus accepts only the three status values verbatim.
func exactStatus(s string) Status {
	switch status := Status(s); status {
	case StatusPending, StatusCompleted, StatusError:
		return status
	default:
		return StatusUnknown
	}
}

// aliasStatus maps job state strings to Status values.
func aliasStatus(s string) Status {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "completed", "complete", "succeeded", "success", "done":
		return StatusCompleted
	case "error", "failed", "failure":
		return StatusError
	case "pending", "queued", "running", "processing", "in_progress":
		return StatusPending
	default:
		return StatusUnknown
	}
}

// RegexExtractor returns a [StatusExtractor] that matches the response body
// against a regular expression. The first capture group must be exactly
// "pending", "completed" or "error", as with [JSONFieldExtractor]. No match
// yields [StatusUnknown].
//
// Returns an error if the pattern is invalid or has no capture group.
//
// Example:
//
//	extractor, err := jobwait.RegexExtractor(`state=(\w+)`)
func RegexExtractor(pattern string) (StatusExtractor, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}
	if re.NumSubexp() < 1 {
		return nil, errRegexNoGroup
	}

	return func(body []byte, statusCode int) Status {
		matches := re.FindSubmatch(body)
		if len(matches) < 2 {
			return StatusUnknown
		}
		return exactStatus(string(matches[1]))
	}, nil
}

// FirstMatch returns a [StatusExtractor] that tries extractors in order,
// returning the first result that is not [StatusUnknown].
//
// Example:
//
//	extractor := jobwait.FirstMatch(
//	    jobwait.JSONFieldExtractor("result"),
//	    jobwait.JSONFieldExtractor("data.status"),
//	)
func FirstMatch(extractors ...StatusExtractor) StatusExtractor {
	return func(body []byte, statusCode int) Status {
		for _, extractor := range extractors {
			status := extractor(body, statusCode)
			if status != StatusUnknown {
				return status
			}
		}
		return StatusUnknown
	}
}

// DefaultExtractor reads the top-level "result" field, the payload shape
// of the reference status endpoint: {"result": "pending"}.
var DefaultExtractor = JSONFieldExtractor("result")
