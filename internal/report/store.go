// Package report persists classified command outcomes so they can be
// retrieved later by run ID.
package report

import (
	"time"

	"github.com/githubsands/fluvio-command/internal/classify"
	"github.com/githubsands/fluvio-command/internal/runner"
)

// Store persists and retrieves run records.
type Store interface {
	Save(rec *Record) error
	Load(runID string) (*Record, error)
}

// Record is the stored outcome of one classified invocation.
type Record struct {
	ID      string `json:"id"`
	Command string `json:"command"`
	Success bool   `json:"success"`

	// Failure fields; Kind is empty on success.
	Kind       string `json:"kind,omitempty"`
	Code       int    `json:"code,omitempty"`
	Diagnostic string `json:"diagnostic,omitempty"`
	Detail     string `json:"detail,omitempty"` // full error message

	Stdout    string `json:"stdout,omitempty"`
	Stderr    string `json:"stderr,omitempty"`
	Truncated bool   `json:"truncated,omitempty"`

	DurationMS int64 `json:"duration_ms"`
}

// FromOutcome builds a Record from a classification outcome. Exactly one
// of res and err is meaningful: res on success, err on failure.
func FromOutcome(id, command string, res *runner.Result, err error, elapsed time.Duration) *Record {
	rec := &Record{
		ID:         id,
		Command:    command,
		DurationMS: elapsed.Milliseconds(),
	}

	if err == nil {
		rec.Success = true
		rec.Stdout = string(res.Stdout)
		rec.Stderr = string(res.Stderr)
		rec.Truncated = res.Truncated
		return rec
	}

	rec.Detail = err.Error()
	ce, ok := classify.AsCommandError(err)
	if !ok {
		return rec
	}

	rec.Kind = string(ce.Kind)
	switch ce.Kind {
	case classify.ExitError:
		rec.Code = ce.Code
		rec.Stdout = string(ce.Stdout)
		rec.Stderr = string(ce.Stderr)
	case classify.ConnectivityError:
		rec.Diagnostic = ce.Diagnostic
	}
	return rec
}
