// Package mcp provides the fluvio-command MCP server, registering all
// tools and publishing model instructions.
package mcp

import (
	"context"
	_ "embed"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	command "github.com/githubsands/fluvio-command"
	"github.com/githubsands/fluvio-command/internal/batch"
	"github.com/githubsands/fluvio-command/internal/classify"
	"github.com/githubsands/fluvio-command/internal/config"
	"github.com/githubsands/fluvio-command/internal/report"
	"github.com/githubsands/fluvio-command/internal/runner"
)

//go:embed instructions.md
var Instructions string

// handler holds shared dependencies for all tool handlers.
type handler struct {
	cfg        *config.Config
	runner     *runner.Runner
	classifier *classify.Classifier
	store      report.Store
}

// NewServer creates an MCP server with all fluvio-command tools registered.
func NewServer(cfg *config.Config, r *runner.Runner, c *classify.Classifier, store report.Store) *mcp.Server {
	h := &handler{
		cfg:        cfg,
		runner:     r,
		classifier: c,
		store:      store,
	}

	mcpOpts := &mcp.ServerOptions{
		Instructions: Instructions,
		Capabilities: &mcp.ServerCapabilities{
			Tools: &mcp.ToolCapabilities{ListChanged: false},
		},
	}
	s := mcp.NewServer(&mcp.Implementation{Name: "fluvio-command", Version: command.Version}, mcpOpts)

	mcp.AddTool(s, &mcp.Tool{
		Name: "cmd_run",
		Description: `Run one external command to completion and classify the outcome.

Success means exit code 0. Failures are one of four kinds: terminated
(killed without an exit code), exit-error (non-zero code, with captured
output), io-error (the command could not be started), or connectivity
(stderr matched a connectivity failure signature). The full outcome is
stored for drill-down via cmd_inspect.`,
	}, h.runHandler)

	mcp.AddTool(s, &mcp.Tool{
		Name: "cmd_batch",
		Description: `Run the command sequence configured in .fluvio-command and stop on first failure.

Each step's outcome is classified and stored for drill-down via cmd_inspect.`,
	}, h.batchHandler)

	mcp.AddTool(s, &mcp.Tool{
		Name:        "cmd_inspect",
		Description: "Retrieve the stored outcome of an earlier cmd_run or cmd_batch step by run ID.",
	}, h.inspectHandler)

	mcp.AddTool(s, &mcp.Tool{
		Name:        "cmd_which",
		Description: "Report whether an executable can be resolved on PATH before trying to run it.",
	}, h.whichHandler)

	return s
}

// --- cmd_run ---

type runParams struct {
	Argv []string `json:"argv" jsonschema:"the command line as a list: program followed by its arguments"`
	Dir  string   `json:"dir,omitempty" jsonschema:"working directory for the command; defaults to the server's"`
}

func (h *handler) runHandler(ctx context.Context, req *mcp.CallToolRequest, params runParams) (*mcp.CallToolResult, any, error) {
	if len(params.Argv) == 0 {
		return errorResult("argv is required")
	}

	ctx, cancel := context.WithTimeout(ctx, h.cfg.Timeout())
	defer cancel()

	inv := &runner.Invocation{
		Program: params.Argv[0],
		Args:    params.Argv[1:],
		Dir:     params.Dir,
	}

	runID := uuid.New().String()
	start := time.Now()
	res, err := h.classifier.Run(ctx, h.runner, inv)
	_ = h.store.Save(report.FromOutcome(runID, inv.Display(), res, err, time.Since(start)))

	if err != nil {
		return errorResult(formatFailure(runID, inv.Display(), err))
	}
	return textResult(formatSuccess(runID, inv.Display(), res))
}

func formatSuccess(runID, command string, res *runner.Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Command: %s\n", command)
	fmt.Fprintf(&b, "Run: %s\n", runID)
	fmt.Fprintf(&b, "Result: success (exit code 0)\n")
	if len(res.Stdout) > 0 {
		fmt.Fprintf(&b, "\nstdout:\n%s", res.Stdout)
	}
	if len(res.Stderr) > 0 {
		fmt.Fprintf(&b, "\nstderr:\n%s", res.Stderr)
	}
	if res.Truncated {
		fmt.Fprintf(&b, "\n(output truncated)\n")
	}
	return b.String()
}

func formatFailure(runID, command string, err error) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Command: %s\n", command)
	fmt.Fprintf(&b, "Run: %s\n", runID)
	if ce, ok := classify.AsCommandError(err); ok {
		fmt.Fprintf(&b, "Result: %s\n", ce.Kind)
	}
	fmt.Fprintf(&b, "\n%v\n", err)
	return b.String()
}

// --- cmd_batch ---

type batchParams struct{}

func (h *handler) batchHandler(ctx context.Context, req *mcp.CallToolRequest, params batchParams) (*mcp.CallToolResult, any, error) {
	if len(h.cfg.Batch.Commands) == 0 {
		return errorResult("no batch commands configured in " + config.FileName)
	}

	ctx, cancel := context.WithTimeout(ctx, h.cfg.Timeout())
	defer cancel()

	eng := &batch.Engine{
		Config:  h.cfg,
		Runner:  h.runner,
		Invoker: h.classifier,
		Store:   h.store,
	}
	result := eng.Run(ctx)

	return textResult(formatBatch(result))
}

func formatBatch(result *batch.Result) string {
	var b strings.Builder

	if result.FailedIdx < 0 {
		fmt.Fprintf(&b, "Batch: all %d commands passed\n\n", len(result.Steps))
	} else {
		fmt.Fprintf(&b, "Batch: FAIL at step %q\n\n", result.Steps[result.FailedIdx].Name)
	}

	for _, s := range result.Steps {
		switch s.Status {
		case "ok":
			fmt.Fprintf(&b, "  %-15s ok        (run %s)\n", s.Name, s.RunID)
		case "failed":
			fmt.Fprintf(&b, "  %-15s %-9s (run %s)\n", s.Name, s.Kind, s.RunID)
		case "skipped":
			fmt.Fprintf(&b, "  %-15s -\n", s.Name)
		}
	}

	if result.FailedIdx >= 0 {
		failed := result.Steps[result.FailedIdx]
		fmt.Fprintf(&b, "\n%s\n", failed.Detail)
	}

	fmt.Fprintf(&b, "\nInspect a step with cmd_inspect(run_id).\n")
	return b.String()
}

// --- cmd_inspect ---

type inspectParams struct {
	RunID string `json:"run_id" jsonschema:"the run ID from a cmd_run or cmd_batch result"`
}

func (h *handler) inspectHandler(ctx context.Context, req *mcp.CallToolRequest, params inspectParams) (*mcp.CallToolResult, any, error) {
	if params.RunID == "" {
		return errorResult("run_id is required")
	}

	rec, err := h.store.Load(params.RunID)
	if err != nil {
		return errorResult(fmt.Sprintf("Failed to load run %s: %v", params.RunID, err))
	}

	return textResult(formatRecord(rec))
}

func formatRecord(rec *report.Record) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Run: %s\n", rec.ID)
	fmt.Fprintf(&b, "Command: %s\n", rec.Command)
	if rec.Success {
		fmt.Fprintf(&b, "Result: success (exit code 0)\n")
	} else {
		fmt.Fprintf(&b, "Result: %s\n", rec.Kind)
	}
	fmt.Fprintf(&b, "Duration: %dms\n", rec.DurationMS)

	if rec.Kind == string(classify.ExitError) {
		fmt.Fprintf(&b, "Exit code: %d\n", rec.Code)
	}
	if rec.Diagnostic != "" {
		fmt.Fprintf(&b, "\nDiagnostic:\n%s\n", rec.Diagnostic)
	}
	if rec.Detail != "" && !rec.Success {
		fmt.Fprintf(&b, "\n%s\n", rec.Detail)
	}
	if rec.Stdout != "" {
		fmt.Fprintf(&b, "\nstdout:\n%s", rec.Stdout)
	}
	if rec.Stderr != "" {
		fmt.Fprintf(&b, "\nstderr:\n%s", rec.Stderr)
	}
	if rec.Truncated {
		fmt.Fprintf(&b, "\n(output truncated)\n")
	}
	return b.String()
}

// --- cmd_which ---

type whichParams struct {
	Name string `json:"name" jsonschema:"executable name to look up on PATH"`
}

func (h *handler) whichHandler(ctx context.Context, req *mcp.CallToolRequest, params whichParams) (*mcp.CallToolResult, any, error) {
	if params.Name == "" {
		return errorResult("name is required")
	}
	if runner.Available(params.Name) {
		return textResult(fmt.Sprintf("%s is available on PATH.", params.Name))
	}
	return textResult(fmt.Sprintf("%s is not available on PATH; running it would fail with io-error.", params.Name))
}

// textResult is a helper to build a text-only tool result.
func textResult(text string) (*mcp.CallToolResult, any, error) {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}, nil, nil
}

// errorResult is a helper to build an error tool result.
func errorResult(text string) (*mcp.CallToolResult, any, error) {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
		IsError: true,
	}, nil, nil
}
