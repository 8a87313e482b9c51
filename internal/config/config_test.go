package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/githubsands/fluvio-command/internal/classify"
)

func writeConfig(t *testing.T, dir, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLoad_FromRoot(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "version: 1\ntimeout: 10m\n")

	res, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if res.Root != dir {
		t.Errorf("Root = %q, want %q", res.Root, dir)
	}
	if res.Config.Version != 1 {
		t.Errorf("Config.Version = %d, want 1", res.Config.Version)
	}
	if got := res.Config.Timeout(); got != 10*time.Minute {
		t.Errorf("Timeout() = %v, want 10m", got)
	}
}

func TestLoad_FromSubdirectory(t *testing.T) {
	root := t.TempDir()
	writeConfig(t, root, "version: 2\n")

	sub := filepath.Join(root, "pkg", "foo")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatal(err)
	}

	res, err := Load(sub)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if res.Root != root {
		t.Errorf("Root = %q, want %q", res.Root, root)
	}
	if res.Config.Version != 2 {
		t.Errorf("Config.Version = %d, want 2", res.Config.Version)
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	dir := t.TempDir()

	res, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := res.Config.Timeout(); got != DefaultTimeout {
		t.Errorf("Timeout() = %v, want %v", got, DefaultTimeout)
	}
	if got := res.Config.MaxOutputBytes(); got != DefaultMaxOutput {
		t.Errorf("MaxOutputBytes() = %d, want %d", got, DefaultMaxOutput)
	}
}

func TestLoad_InvalidTimeoutFallsBack(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "timeout: not-a-duration\n")

	res, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := res.Config.Timeout(); got != DefaultTimeout {
		t.Errorf("Timeout() = %v, want default %v", got, DefaultTimeout)
	}
}

func TestDetectorRules_Default(t *testing.T) {
	cfg := &Config{}
	rules := cfg.DetectorRules()
	if len(rules) != 1 {
		t.Fatalf("len(rules) = %d, want 1", len(rules))
	}
	if rules[0].Contains != classify.ConnectivitySignature {
		t.Errorf("rules[0].Contains = %q, want the built-in signature", rules[0].Contains)
	}
}

func TestDetectorRules_Configured(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `
detect:
  - contains: "cluster unreachable"
    kind: connectivity
  - contains: "connection refused"
    kind: connectivity
`)

	res, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	rules := res.Config.DetectorRules()
	if len(rules) != 2 {
		t.Fatalf("len(rules) = %d, want 2", len(rules))
	}
	if rules[0].Contains != "cluster unreachable" {
		t.Errorf("rules[0].Contains = %q, want %q", rules[0].Contains, "cluster unreachable")
	}
	if rules[1].Kind != classify.ConnectivityError {
		t.Errorf("rules[1].Kind = %q, want %q", rules[1].Kind, classify.ConnectivityError)
	}
}

func TestLoad_UnknownKindRejected(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `
detect:
  - contains: "boom"
    kind: explosion
`)

	if _, err := Load(dir); err == nil {
		t.Fatal("expected error for unknown detect kind")
	}
}

func TestLoad_BatchValidated(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `
batch:
  commands:
    - name: build
`)

	if _, err := Load(dir); err == nil {
		t.Fatal("expected error for batch command without argv")
	}
}

func TestLoad_Batch(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `
batch:
  keep_going: true
  commands:
    - name: build
      argv: [go, build, ./...]
    - name: test
      argv: [go, test, ./...]
      dir: sub
`)

	res, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	b := res.Config.Batch
	if !b.KeepGoing {
		t.Error("KeepGoing = false, want true")
	}
	if len(b.Commands) != 2 {
		t.Fatalf("len(Commands) = %d, want 2", len(b.Commands))
	}
	if b.Commands[0].Name != "build" {
		t.Errorf("Commands[0].Name = %q, want %q", b.Commands[0].Name, "build")
	}
	if b.Commands[1].Dir != "sub" {
		t.Errorf("Commands[1].Dir = %q, want %q", b.Commands[1].Dir, "sub")
	}
}
