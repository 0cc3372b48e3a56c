package jobwait

import (
	"testing"
)

func TestJSONFieldExtractor(t *testing.T) {
	tests := []struct {
		name string
		path string
		body string
		want Status
	}{
		// reference payloads
		{"pending", "result", `{"result": "pending"}`, StatusPending},
		{"completed", "result", `{"result": "completed"}`, StatusCompleted},
		{"error", "result", `{"result": "error"}`, StatusError},

		// exact values only
		{"done", "result", `{"result": "done"}`, StatusUnknown},
		{"failed", "result", `{"result": "failed"}`, StatusUnknown},
		{"succeeded", "result", `{"result": "succeeded"}`, StatusUnknown},
		{"mixed case", "result", `{"result": "Completed"}`, StatusUnknown},
		{"padded", "result", `{"result": " error "}`, StatusUnknown},
		{"unknown literal", "result", `{"result": "unknown"}`, StatusUnknown},

		// nested paths
		{"nested", "data.job.state", `{"data": {"job": {"state": "completed"}}}`, StatusCompleted},

		// malformed payloads
		{"null result", "result", `{"result": null}`, StatusUnknown},
		{"missing field", "result", `{"status": "completed"}`, StatusUnknown},
		{"empty object", "result", `{}`, StatusUnknown},
		{"invalid json", "result", `not json`, StatusUnknown},
		{"empty body", "result", ``, StatusUnknown},
		{"number", "result", `{"result": 1}`, StatusUnknown},
		{"bool", "result", `{"result": true}`, StatusUnknown},
		{"object", "result", `{"result": {"state": "completed"}}`, StatusUnknown},
		{"unrecognized value", "result", `{"result": "exploded"}`, StatusUnknown},
		{"path through scalar", "data.state", `{"data": "completed"}`, StatusUnknown},
		{"top-level array", "result", `["completed"]`, StatusUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			extractor := JSONFieldExtractor(tt.path)
			got := extractor([]byte(tt.body), 200)
			if got != tt.want {
				t.Errorf("JSONFieldExtractor(%q)(%s) = %v, want %v", tt.path, tt.body, got, tt.want)
			}
		})
	}
}

func TestDefaultExtractor(t *testing.T) {
	tests := []struct {
		body string
		want Status
	}{
		{`{"result":"completed"}`, StatusCompleted},
		{`{"result":"error"}`, StatusError},
		{`{"result":"pending"}`, StatusPending},
		{`{"result":null}`, StatusUnknown},
		{`{"result":"done"}`, StatusUnknown},
		{`{"result":"failed"}`, StatusUnknown},
		{`{"result":"Completed"}`, StatusUnknown},
		{`{"result":"success"}`, StatusUnknown},
	}

	for _, tt := range tests {
		got := DefaultExtractor([]byte(tt.body), 200)
		if got != tt.want {
			t.Errorf("DefaultExtractor(%s) = %v, want %v", tt.body, got, tt.want)
		}
		if got.IsTerminal() != tt.want.IsTerminal() {
			t.Errorf("DefaultExtractor(%s).IsTerminal() = %v", tt.body, got.IsTerminal())
		}
	}
}

func TestLenientJSONFieldExtractor(t *testing.T) {
	tests := []struct {
		name string
		path string
		body string
		want Status
	}{
		{"completed", "result", `{"result": "completed"}`, StatusCompleted},
		{"succeeded", "result", `{"result": "succeeded"}`, StatusCompleted},
		{"success", "result", `{"result": "success"}`, StatusCompleted},
		{"done", "result", `{"result": "done"}`, StatusCompleted},
		{"failed", "result", `{"result": "failed"}`, StatusError},
		{"failure", "result", `{"result": "failure"}`, StatusError},
		{"running", "result", `{"result": "running"}`, StatusPending},
		{"queued", "result", `{"result": "queued"}`, StatusPending},
		{"in progress", "result", `{"result": "in_progress"}`, StatusPending},
		{"mixed case", "result", `{"result": "Completed"}`, StatusCompleted},
		{"padded", "result", `{"result": " error "}`, StatusError},
		{"nested", "data.job.state", `{"data": {"job": {"state": "done"}}}`, StatusCompleted},
		{"unrecognized value", "result", `{"result": "exploded"}`, StatusUnknown},
		{"null result", "result", `{"result": null}`, StatusUnknown},
		{"invalid json", "result", `not json`, StatusUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			extractor := LenientJSONFieldExtractor(tt.path)
			got := extractor([]byte(tt.body), 200)
			if got != tt.want {
				t.Errorf("LenientJSONFieldExtractor(%q)(%s) = %v, want %v", tt.path, tt.body, got, tt.want)
			}
		})
	}
}

func TestRegexExtractor(t *testing.T) {
	extractor, err := RegexExtractor(`state=(\w+)`)
	if err != nil {
		t.Fatalf("RegexExtractor() error = %v", err)
	}

	tests := []struct {
		body string
		want Status
	}{
		{"job 42 state=completed", StatusCompleted},
		{"state=error", StatusError},
		{"state=pending", StatusPending},
		{"state=FAILED", StatusUnknown},
		{"state=running", StatusUnknown},
		{"no state here", StatusUnknown},
	}

	for _, tt := range tests {
		if got := extractor([]byte(tt.body), 200); got != tt.want {
			t.Errorf("RegexExtractor(%q) = %v, want %v", tt.body, got, tt.want)
		}
	}
}

func TestRegexExtractor_InvalidPattern(t *testing.T) {
	if _, err := RegexExtractor(`state=(`); err == nil {
		t.Error("RegexExtractor() expected error for invalid pattern, got nil")
	}
	if _, err := RegexExtractor(`state=\w+`); err == nil {
		t.Error("RegexExtractor() expected error for pattern without capture group, got nil")
	}
}

func TestFirstMatch(t *testing.T) {
	extractor := FirstMatch(
		JSONFieldExtractor("result"),
		JSONFieldExtractor("data.status"),
	)

	tests := []struct {
		name string
		body string
		want Status
	}{
		{"first wins", `{"result": "pending", "data": {"status": "completed"}}`, StatusPending},
		{"falls back", `{"data": {"status": "completed"}}`, StatusCompleted},
		{"none match", `{}`, StatusUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := extractor([]byte(tt.body), 200); got != tt.want {
				t.Errorf("FirstMatch() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFirstMatch_Empty(t *testing.T) {
	if got := FirstMatch()([]byte(`{"result":"completed"}`), 200); got != StatusUnknown {
		t.Errorf("FirstMatch() with no extractors = %v, want %v", got, StatusUnknown)
	}
}

func TestStatus_IsTerminal(t *testing.T) {
	tests := []struct {
		status Status
		want   bool
	}{
		{StatusCompleted, true},
		{StatusError, true},
		{StatusPending, false},
		{StatusUnknown, false},
		{Status(""), false},
	}

	for _, tt := range tests {
		if got := tt.status.IsTerminal(); got != tt.want {
			t.Errorf("%q.IsTerminal() = %v, want %v", tt.status, got, tt.want)
		}
	}
}
