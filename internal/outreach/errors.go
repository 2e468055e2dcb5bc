package outreach

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrCapabilityUnavailable marks a missing or failing text generation or
	// embedding backend. Callers recover from it with a local fallback.
	ErrCapabilityUnavailable = errors.New("capability unavailable")
	// ErrTransport marks a failure to deliver a single message.
	ErrTransport = errors.New("transport error")
	// ErrAuth marks rejected mail transport credentials.
	ErrAuth = errors.New("authentication error")
)

// Issue is a single problem found in an input record.
type Issue struct {
	Record  string `json:"record"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

func (i Issue) String() string {
	if i.Field == "" {
		return fmt.Sprintf("%s: %s", i.Record, i.Message)
	}
	return fmt.Sprintf("%s: %s %s", i.Record, i.Field, i.Message)
}

// ValidationError lists every problem found while loading an input.
type ValidationError struct {
	Source string
	Issues []Issue
}

// Add records another issue.
func (e *ValidationError) Add(record, field, message string) {
	e.Issues = append(e.Issues, Issue{Record: record, Field: field, Message: message})
}

// OrNil returns nil when no issues were recorded.
func (e *ValidationError) OrNil() error {
	if e == nil || len(e.Issues) == 0 {
		return nil
	}
	return e
}

func (e *ValidationError) Error() string {
	var sb strings.Builder
	source := e.Source
	if source == "" {
		source = "input"
	}
	fmt.Fprintf(&sb, "%s validation failed with %d issue(s)", source, len(e.Issues))
	for idx, issue := range e.Issues {
		fmt.Fprintf(&sb, "\n  %d. %s", idx+1, issue)
	}
	return sb.String()
}
