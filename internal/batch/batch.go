// Package batch runs a configured sequence of invocations, classifies
// each outcome, and aggregates the results. It is consumed by both the
// MCP server and the CLI commands.
package batch

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/githubsands/fluvio-command/internal/classify"
	"github.com/githubsands/fluvio-command/internal/config"
	"github.com/githubsands/fluvio-command/internal/report"
	"github.com/githubsands/fluvio-command/internal/runner"
)

// Invoker executes one invocation and returns its classified outcome.
// Implemented by classify.Classifier.
type Invoker interface {
	Run(ctx context.Context, r *runner.Runner, inv *runner.Invocation) (*runner.Result, error)
}

// Engine holds shared dependencies for batch runs.
type Engine struct {
	Config  *config.Config
	Runner  *runner.Runner
	Invoker Invoker
	Store   report.Store // optional; records are stored when set
}

// Result holds the full outcome of a batch run.
type Result struct {
	Steps     []StepResult
	FailedIdx int // index of the first failed step; -1 if all passed
}

// StepResult holds the outcome of a single batch step.
type StepResult struct {
	Name    string
	Command string
	RunID   string
	Status  string // ok, failed, skipped
	Kind    string // failure kind when Status is failed
	Detail  string // error message when Status is failed
}

// Run executes the configured commands in order. By default it stops at
// the first failure and marks the remaining steps skipped; with
// keep_going configured, every command runs regardless.
func (e *Engine) Run(ctx context.Context) *Result {
	out := &Result{FailedIdx: -1}

	for _, cc := range e.Config.Batch.Commands {
		if out.FailedIdx >= 0 && !e.Config.Batch.KeepGoing {
			out.Steps = append(out.Steps, StepResult{
				Name:   cc.Name,
				Status: "skipped",
			})
			continue
		}

		inv := &runner.Invocation{
			Program: cc.Argv[0],
			Args:    cc.Argv[1:],
			Dir:     cc.Dir,
			Inherit: cc.Inherit,
		}

		step := e.runStep(ctx, cc.Name, inv)
		if step.Status == "failed" && out.FailedIdx < 0 {
			out.FailedIdx = len(out.Steps)
		}
		out.Steps = append(out.Steps, step)
	}

	return out
}

// runStep executes one invocation, classifies it, and stores a record.
func (e *Engine) runStep(ctx context.Context, name string, inv *runner.Invocation) StepResult {
	step := StepResult{
		Name:    name,
		Command: inv.Display(),
		RunID:   uuid.New().String(),
	}

	start := time.Now()
	res, err := e.Invoker.Run(ctx, e.Runner, inv)
	elapsed := time.Since(start)

	if e.Store != nil {
		_ = e.Store.Save(report.FromOutcome(step.RunID, step.Command, res, err, elapsed))
	}

	if err == nil {
		step.Status = "ok"
		return step
	}

	step.Status = "failed"
	step.Detail = err.Error()
	if ce, ok := classify.AsCommandError(err); ok {
		step.Kind = string(ce.Kind)
	}
	return step
}
