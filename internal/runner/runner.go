// Package runner invokes external programs synchronously and captures
// their raw outcome: exit status or terminating signal plus stdout and
// stderr buffers, with a cap on captured output size.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/google/uuid"
)

// DefaultMaxOutput caps captured output when Runner.MaxOutput is unset.
const DefaultMaxOutput = 1 << 20 // 1 MB

// Runner executes invocations and blocks until the child completes.
// The zero value is usable; each call owns its own state, so a single
// Runner is safe for concurrent use.
type Runner struct {
	MaxOutput int // bytes per captured stream; 0 means DefaultMaxOutput
}

// Run spawns the invocation's program and waits for it to finish.
//
// When the process runs to completion (any exit code, or killed by a
// signal) Run returns a Result describing what happened. An error is
// returned only when the process could not be started or awaited at
// all (executable missing, permission denied, and similar OS-level
// launch failures). There is no retry and no internal timeout; cancel
// ctx to terminate the child early.
func (r *Runner) Run(ctx context.Context, inv *Invocation) (*Result, error) {
	if inv == nil || inv.Program == "" {
		return nil, fmt.Errorf("empty invocation")
	}

	maxOutput := r.MaxOutput
	if maxOutput <= 0 {
		maxOutput = DefaultMaxOutput
	}

	cmd := exec.CommandContext(ctx, inv.Program, inv.Args...)
	cmd.Dir = inv.Dir
	if len(inv.Env) > 0 {
		cmd.Env = append(os.Environ(), inv.Env...)
	}

	var stdout, stderr bytes.Buffer
	if inv.Inherit {
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
	} else {
		cmd.Stdout = &limitWriter{buf: &stdout, limit: maxOutput}
		cmd.Stderr = &limitWriter{buf: &stderr, limit: maxOutput}
	}

	runErr := cmd.Run()

	res := &Result{
		RunID:     uuid.New().String(),
		Stdout:    stdout.Bytes(),
		Stderr:    stderr.Bytes(),
		Truncated: stdout.Len() >= maxOutput || stderr.Len() >= maxOutput,
	}

	if runErr == nil {
		res.Exited = true
		return res, nil
	}

	var exitErr *exec.ExitError
	if !errors.As(runErr, &exitErr) {
		// The process never produced an exit status.
		return nil, fmt.Errorf("invoking %s: %w", inv.Program, runErr)
	}

	if code := exitErr.ExitCode(); code >= 0 {
		res.Exited = true
		res.Code = code
	} else {
		// ProcessState renders signal deaths as "signal: <name>".
		res.Signal = strings.TrimPrefix(exitErr.ProcessState.String(), "signal: ")
	}
	return res, nil
}

// limitWriter writes up to limit bytes to buf, then silently discards the rest.
type limitWriter struct {
	buf   *bytes.Buffer
	limit int
}

func (w *limitWriter) Write(p []byte) (int, error) {
	remaining := w.limit - w.buf.Len()
	if remaining <= 0 {
		return len(p), nil // discard
	}
	if len(p) > remaining {
		// Write only what fits, but report all bytes as consumed
		// to avoid short write errors from io.Copy.
		w.buf.Write(p[:remaining])
		return len(p), nil
	}
	return w.buf.Write(p)
}
