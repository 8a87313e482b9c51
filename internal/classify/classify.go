// Package classify turns the raw outcome of a child-process invocation
// into a typed result. A run either succeeds (exit code 0) or fails with
// exactly one of four kinds: Terminated, ExitError, IoError, or
// ConnectivityError. Callers branch on the kind instead of parsing
// error strings.
package classify

import (
	"context"
	"errors"
	"fmt"

	"github.com/githubsands/fluvio-command/internal/runner"
)

// Kind identifies the failure category of a command.
type Kind string

// The closed set of failure kinds. Adding a kind is a breaking change:
// every caller switching on Kind handles the set exhaustively.
const (
	// Terminated means the process was killed or signaled and has no exit code.
	Terminated Kind = "terminated"
	// ExitError means the process ran and returned a non-zero exit code.
	ExitError Kind = "exit-error"
	// IoError means the process could not be started or awaited at all.
	IoError Kind = "io-error"
	// ConnectivityError refines ExitError: stderr matched a connectivity
	// failure signature (or could not be decoded while checking for one).
	ConnectivityError Kind = "connectivity"
)

// KnownKind reports whether s names one of the four failure kinds.
func KnownKind(s Kind) bool {
	switch s {
	case Terminated, ExitError, IoError, ConnectivityError:
		return true
	}
	return false
}

// CommandError describes how a command failed. Command is always set,
// so the error message is self-describing without back-reference to the
// invocation. The remaining fields are populated per Kind.
type CommandError struct {
	Command    string // rendered command line
	Kind       Kind
	Code       int    // non-zero exit code (ExitError)
	Stdout     []byte // captured stdout (ExitError)
	Stderr     []byte // captured stderr (ExitError)
	Diagnostic string // matched stderr text or decode detail (ConnectivityError)
	Err        error  // underlying error (IoError, stderr decode failures)
}

func (e *CommandError) Error() string {
	switch e.Kind {
	case Terminated:
		return fmt.Sprintf("failed to run %q: child process was terminated and has no exit code", e.Command)
	case ExitError:
		return fmt.Sprintf("failed to run %q: child process completed with non-zero exit code %d\n  stdout: %s\n  stderr: %s",
			e.Command, e.Code, e.Stdout, e.Stderr)
	case IoError:
		return fmt.Sprintf("failed to run %q: an error occurred while invoking child process: %v", e.Command, e.Err)
	case ConnectivityError:
		return fmt.Sprintf("failed to run %q: an error occurred while trying to connect: %s", e.Command, e.Diagnostic)
	}
	return fmt.Sprintf("failed to run %q", e.Command)
}

func (e *CommandError) Unwrap() error { return e.Err }

// AsCommandError unwraps err to a *CommandError if there is one.
func AsCommandError(err error) (*CommandError, bool) {
	var ce *CommandError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}

// Classifier assigns a completed or failed invocation to its outcome.
// The zero value uses the default detector and discards diagnostics.
type Classifier struct {
	Detector *Detector
	Log      Logger
}

// Classify decides the outcome of one invocation. command is the
// rendered command line, res the runner's raw result, and runErr the
// runner's launch error if it produced no result.
//
// The decision procedure, in order:
//  1. runErr != nil            -> IoError (terminal, nothing else checked)
//  2. exit code 0              -> success; stderr content is irrelevant
//  3. no exit code (signaled)  -> Terminated, with no output attached
//  4. non-zero exit            -> ConnectivityError when stderr matches a
//     detector rule (or cannot be decoded while checking), else
//     ExitError carrying the code and both captured streams.
func (c *Classifier) Classify(command string, res *runner.Result, runErr error) (*runner.Result, error) {
	if runErr != nil {
		return nil, &CommandError{Command: command, Kind: IoError, Err: runErr}
	}

	if res.Success() {
		return res, nil
	}

	if !res.Exited {
		c.logger().Errorf("command %s was terminated without an exit code", command)
		return nil, &CommandError{Command: command, Kind: Terminated}
	}

	c.logger().Errorf("command %s failed with code %d, stdout %q, stderr %q",
		command, res.Code, res.Stdout, res.Stderr)

	match, detectErr := c.detector().Detect(res.Stderr)
	if detectErr != nil {
		// The heuristic could not run. Surface that as its own
		// diagnosable condition; the wrapped error keeps it
		// distinguishable from a true signature match.
		return nil, &CommandError{
			Command:    command,
			Kind:       ConnectivityError,
			Diagnostic: detectErr.Error(),
			Err:        detectErr,
		}
	}
	if match != nil {
		return nil, &CommandError{
			Command:    command,
			Kind:       match.Rule.Kind,
			Diagnostic: match.Text,
		}
	}

	return nil, &CommandError{
		Command: command,
		Kind:    ExitError,
		Code:    res.Code,
		Stdout:  res.Stdout,
		Stderr:  res.Stderr,
	}
}

// Run executes the invocation with r and classifies the outcome in one
// call. This is the usual entry point for callers that do not need to
// separate running from classification.
func (c *Classifier) Run(ctx context.Context, r *runner.Runner, inv *runner.Invocation) (*runner.Result, error) {
	command := inv.Display()
	c.logger().Infof("executing command %s", command)
	res, err := r.Run(ctx, inv)
	return c.Classify(command, res, err)
}

func (c *Classifier) logger() Logger {
	if c.Log != nil {
		return c.Log
	}
	return NopLogger()
}

func (c *Classifier) detector() *Detector {
	d := c.Detector
	if d == nil {
		d = DefaultDetector()
	}
	if d.Log == nil && c.Log != nil {
		return &Detector{Rules: d.Rules, Log: c.Log}
	}
	return d
}
