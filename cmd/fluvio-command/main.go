// Command fluvio-command runs external programs and classifies their
// outcomes into a closed set of typed failure kinds.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/google/uuid"
	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	command "github.com/githubsands/fluvio-command"
	"github.com/githubsands/fluvio-command/internal/batch"
	"github.com/githubsands/fluvio-command/internal/classify"
	"github.com/githubsands/fluvio-command/internal/config"
	cmdmcp "github.com/githubsands/fluvio-command/internal/mcp"
	"github.com/githubsands/fluvio-command/internal/report"
	"github.com/githubsands/fluvio-command/internal/runner"
)

func main() {
	log.SetFlags(0)
	log.SetPrefix("fluvio-command: ")

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	var err error
	switch cmd {
	case "run":
		err = runMain(args)
	case "batch":
		err = batchMain(args)
	case "which":
		err = whichMain(args)
	case "mcp":
		err = mcpMain(args)
	case "version":
		fmt.Println(command.Version)
	case "help", "-h", "--help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "fluvio-command: unknown command %q\n", cmd)
		usage()
		os.Exit(2)
	}

	if err != nil {
		var exitErr *exitCodeError
		if errors.As(err, &exitErr) {
			if exitErr.msg != "" {
				log.Print(exitErr.msg)
			}
			os.Exit(exitErr.code)
		}
		log.Fatal(err)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `Usage: fluvio-command <command> [flags] [args]

Commands:
  run         Run a program and classify the outcome
  batch       Run the command sequence configured in .fluvio-command
  which       Check whether an executable is on PATH
  mcp         Start the MCP server
  version     Print the version
  help        Show this help

Use "fluvio-command <command> -h" for command-specific flags.`)
}

// exitCodeError carries a specific process exit code to main.
type exitCodeError struct {
	code int
	msg  string
}

func (e *exitCodeError) Error() string { return e.msg }

// --- run ---

func runMain(args []string) error {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	inheritFlag := fs.Bool("inherit", false, "stream child stdout/stderr instead of capturing")
	jsonFlag := fs.Bool("json", false, "output the outcome as JSON")
	dirFlag := fs.String("C", "", "working directory for the command")
	timeoutFlag := fs.Duration("timeout", 0, "override configured timeout (e.g. 5m)")
	verboseFlag := fs.Bool("v", false, "log diagnostics to stderr")
	_ = fs.Parse(args)

	argv := fs.Args()
	if len(argv) == 0 {
		return fmt.Errorf("run: no command given")
	}

	loaded, err := config.Load(mustGetwd())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	cfg := loaded.Config

	timeout := cfg.Timeout()
	if *timeoutFlag > 0 {
		timeout = *timeoutFlag
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	r := &runner.Runner{MaxOutput: cfg.MaxOutputBytes()}
	c := &classify.Classifier{
		Detector: &classify.Detector{Rules: cfg.DetectorRules()},
	}
	if *verboseFlag {
		c.Log = classify.StdLogger()
	}

	inv := &runner.Invocation{
		Program: argv[0],
		Args:    argv[1:],
		Dir:     *dirFlag,
		Inherit: *inheritFlag,
	}

	start := time.Now()
	res, runErr := c.Run(ctx, r, inv)

	if *jsonFlag {
		rec := report.FromOutcome(uuid.New().String(), inv.Display(), res, runErr, time.Since(start))
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(rec); err != nil {
			return err
		}
		if runErr != nil {
			return &exitCodeError{code: 1}
		}
		return nil
	}

	if runErr != nil {
		code := 1
		if ce, ok := classify.AsCommandError(runErr); ok && ce.Kind == classify.ExitError {
			code = ce.Code
		}
		return &exitCodeError{code: code, msg: runErr.Error()}
	}

	// Replay captured output; with -inherit the child already wrote it.
	os.Stdout.Write(res.Stdout)
	os.Stderr.Write(res.Stderr)
	return nil
}

// --- batch ---

func batchMain(args []string) error {
	fs := flag.NewFlagSet("batch", flag.ExitOnError)
	jsonFlag := fs.Bool("json", false, "output step results as JSON")
	timeoutFlag := fs.Duration("timeout", 0, "override configured timeout (e.g. 5m)")
	verboseFlag := fs.Bool("v", false, "log diagnostics to stderr")
	_ = fs.Parse(args)

	loaded, err := config.Load(mustGetwd())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	cfg := loaded.Config
	if len(cfg.Batch.Commands) == 0 {
		return fmt.Errorf("no batch commands configured in %s", config.FileName)
	}

	timeout := cfg.Timeout()
	if *timeoutFlag > 0 {
		timeout = *timeoutFlag
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	c := &classify.Classifier{
		Detector: &classify.Detector{Rules: cfg.DetectorRules()},
	}
	if *verboseFlag {
		c.Log = classify.StdLogger()
	}

	eng := &batch.Engine{
		Config:  cfg,
		Runner:  &runner.Runner{MaxOutput: cfg.MaxOutputBytes()},
		Invoker: c,
	}
	result := eng.Run(ctx)

	if *jsonFlag {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result.Steps); err != nil {
			return err
		}
	} else {
		fmt.Print(formatBatchCLI(result))
	}

	if result.FailedIdx >= 0 {
		return &exitCodeError{code: 1}
	}
	return nil
}

func formatBatchCLI(result *batch.Result) string {
	var b []byte
	w := func(format string, args ...any) {
		b = fmt.Appendf(b, format, args...)
	}

	if result.FailedIdx < 0 {
		w("ok\n")
	} else {
		w("FAIL\n")
	}
	w("\n")

	for _, s := range result.Steps {
		switch s.Status {
		case "ok":
			w("  %-15s ok\n", s.Name)
		case "failed":
			w("  %-15s %s\n", s.Name, s.Kind)
		case "skipped":
			w("  %-15s -\n", s.Name)
		}
	}
	w("\n")

	if result.FailedIdx >= 0 {
		w("%s\n", result.Steps[result.FailedIdx].Detail)
	}

	return string(b)
}

// --- which ---

func whichMain(args []string) error {
	fs := flag.NewFlagSet("which", flag.ExitOnError)
	_ = fs.Parse(args)

	if fs.NArg() != 1 {
		return fmt.Errorf("which: expected exactly one executable name")
	}
	name := fs.Arg(0)
	if !runner.Available(name) {
		return &exitCodeError{code: 1, msg: fmt.Sprintf("%s: not found on PATH", name)}
	}
	fmt.Println(name)
	return nil
}

// --- mcp ---

func mcpMain(args []string) error {
	fs := flag.NewFlagSet("mcp", flag.ExitOnError)
	instructions := fs.Bool("instructions", false, "print model instructions and exit")
	httpAddr := fs.String("http", "", "start HTTP server on address (e.g. :9090)")
	_ = fs.Parse(args)

	if *instructions {
		fmt.Print(cmdmcp.Instructions)
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	return serve(ctx, *httpAddr)
}

func serve(ctx context.Context, httpAddr string) error {
	loaded, err := config.Load(mustGetwd())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	cfg := loaded.Config

	disk := report.NewDiskStore()
	store := report.NewLRUStore(5, disk)

	r := &runner.Runner{MaxOutput: cfg.MaxOutputBytes()}
	c := &classify.Classifier{
		Detector: &classify.Detector{Rules: cfg.DetectorRules()},
		Log:      classify.StdLogger(),
	}

	server := cmdmcp.NewServer(cfg, r, c, store)

	if httpAddr != "" {
		return serveHTTP(ctx, server, httpAddr)
	}
	return server.Run(ctx, &mcpsdk.StdioTransport{})
}

func serveHTTP(ctx context.Context, server *mcpsdk.Server, addr string) error {
	handler := mcpsdk.NewStreamableHTTPHandler(
		func(_ *http.Request) *mcpsdk.Server { return server },
		nil,
	)

	httpServer := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	go func() {
		<-ctx.Done()
		_ = httpServer.Close()
	}()

	log.Printf("listening on %s", addr)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

func mustGetwd() string {
	wd, err := os.Getwd()
	if err != nil {
		return "."
	}
	return wd
}
