package batch

import (
	"context"
	"testing"

	"github.com/githubsands/fluvio-command/internal/classify"
	"github.com/githubsands/fluvio-command/internal/config"
	"github.com/githubsands/fluvio-command/internal/report"
	"github.com/githubsands/fluvio-command/internal/runner"
)

// fakeInvoker is a test double for Invoker. It fails the programs listed
// in Fail with an exit-error and succeeds everything else.
type fakeInvoker struct {
	Fail map[string]*classify.CommandError
	ran  []string
}

func (f *fakeInvoker) Run(_ context.Context, _ *runner.Runner, inv *runner.Invocation) (*runner.Result, error) {
	f.ran = append(f.ran, inv.Program)
	if ce, ok := f.Fail[inv.Program]; ok {
		return nil, ce
	}
	return &runner.Result{Exited: true}, nil
}

// memStore collects saved records in order.
type memStore struct {
	recs []*report.Record
}

func (s *memStore) Save(rec *report.Record) error { s.recs = append(s.recs, rec); return nil }

func (s *memStore) Load(runID string) (*report.Record, error) {
	for _, r := range s.recs {
		if r.ID == runID {
			return r, nil
		}
	}
	return nil, nil
}

func batchConfig(keepGoing bool, names ...string) *config.Config {
	cfg := &config.Config{}
	cfg.Batch.KeepGoing = keepGoing
	for _, n := range names {
		cfg.Batch.Commands = append(cfg.Batch.Commands, config.CommandConfig{
			Name: n,
			Argv: []string{n},
		})
	}
	return cfg
}

func TestRun_AllPass(t *testing.T) {
	fi := &fakeInvoker{}
	e := &Engine{
		Config:  batchConfig(false, "build", "test"),
		Invoker: fi,
	}

	result := e.Run(context.Background())
	if result.FailedIdx != -1 {
		t.Errorf("FailedIdx = %d, want -1", result.FailedIdx)
	}
	if len(result.Steps) != 2 {
		t.Fatalf("len(Steps) = %d, want 2", len(result.Steps))
	}
	for _, s := range result.Steps {
		if s.Status != "ok" {
			t.Errorf("step %s: Status = %q, want ok", s.Name, s.Status)
		}
		if s.RunID == "" {
			t.Errorf("step %s: RunID is empty", s.Name)
		}
	}
}

func TestRun_StopsOnFirstFailure(t *testing.T) {
	fi := &fakeInvoker{
		Fail: map[string]*classify.CommandError{
			"test": {Command: "test", Kind: classify.ExitError, Code: 1},
		},
	}
	e := &Engine{
		Config:  batchConfig(false, "build", "test", "lint"),
		Invoker: fi,
	}

	result := e.Run(context.Background())
	if result.FailedIdx != 1 {
		t.Errorf("FailedIdx = %d, want 1", result.FailedIdx)
	}
	if got := result.Steps[1].Kind; got != string(classify.ExitError) {
		t.Errorf("Steps[1].Kind = %q, want %q", got, classify.ExitError)
	}
	if got := result.Steps[2].Status; got != "skipped" {
		t.Errorf("Steps[2].Status = %q, want skipped", got)
	}
	if len(fi.ran) != 2 {
		t.Errorf("ran %d commands, want 2 (lint skipped)", len(fi.ran))
	}
}

func TestRun_KeepGoing(t *testing.T) {
	fi := &fakeInvoker{
		Fail: map[string]*classify.CommandError{
			"build": {Command: "build", Kind: classify.ConnectivityError, Diagnostic: "cluster unreachable"},
		},
	}
	e := &Engine{
		Config:  batchConfig(true, "build", "test"),
		Invoker: fi,
	}

	result := e.Run(context.Background())
	if result.FailedIdx != 0 {
		t.Errorf("FailedIdx = %d, want 0", result.FailedIdx)
	}
	if got := result.Steps[1].Status; got != "ok" {
		t.Errorf("Steps[1].Status = %q, want ok (keep_going)", got)
	}
	if len(fi.ran) != 2 {
		t.Errorf("ran %d commands, want 2", len(fi.ran))
	}
}

func TestRun_StoresRecords(t *testing.T) {
	store := &memStore{}
	fi := &fakeInvoker{
		Fail: map[string]*classify.CommandError{
			"test": {Command: "test", Kind: classify.ExitError, Code: 1},
		},
	}
	e := &Engine{
		Config:  batchConfig(false, "build", "test"),
		Invoker: fi,
		Store:   store,
	}

	result := e.Run(context.Background())
	if len(store.recs) != 2 {
		t.Fatalf("stored %d records, want 2", len(store.recs))
	}
	if !store.recs[0].Success {
		t.Error("recs[0].Success = false, want true")
	}
	if store.recs[1].Kind != string(classify.ExitError) {
		t.Errorf("recs[1].Kind = %q, want %q", store.recs[1].Kind, classify.ExitError)
	}
	if store.recs[1].ID != result.Steps[1].RunID {
		t.Error("stored record ID does not match the step's RunID")
	}
}

func TestRun_RealCommands(t *testing.T) {
	cfg := &config.Config{}
	cfg.Batch.Commands = []config.CommandConfig{
		{Name: "hello", Argv: []string{"echo", "hello"}},
		{Name: "fail", Argv: []string{"sh", "-c", "exit 4"}},
	}

	e := &Engine{
		Config:  cfg,
		Runner:  &runner.Runner{},
		Invoker: &classify.Classifier{},
	}

	result := e.Run(context.Background())
	if result.FailedIdx != 1 {
		t.Fatalf("FailedIdx = %d, want 1", result.FailedIdx)
	}
	if got := result.Steps[0].Status; got != "ok" {
		t.Errorf("Steps[0].Status = %q, want ok", got)
	}
	if got := result.Steps[1].Kind; got != string(classify.ExitError) {
		t.Errorf("Steps[1].Kind = %q, want %q", got, classify.ExitError)
	}
	if got := result.Steps[1].Command; got != "sh -c exit 4" {
		t.Errorf("Steps[1].Command = %q, want %q", got, "sh -c exit 4")
	}
}
