package classify

import (
	"errors"
	"strings"
	"testing"
)

func TestDetect_EmptyStderrNeverMatches(t *testing.T) {
	d := DefaultDetector()
	m, err := d.Detect(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m != nil {
		t.Errorf("Detect(nil) = %+v, want no match", m)
	}
}

func TestDetect_Match(t *testing.T) {
	d := DefaultDetector()
	stderr := []byte("Error: INSTALLATION FAILED: Kubernetes cluster unreachable: dial tcp 127.0.0.1:6443\n")

	m, err := d.Detect(stderr)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m == nil {
		t.Fatal("Detect = no match, want match")
	}
	if m.Rule.Kind != ConnectivityError {
		t.Errorf("Rule.Kind = %q, want %q", m.Rule.Kind, ConnectivityError)
	}
	if m.Text != string(stderr) {
		t.Errorf("Text = %q, want the full decoded stderr", m.Text)
	}
}

func TestDetect_NoMatch(t *testing.T) {
	d := DefaultDetector()
	m, err := d.Detect([]byte("some other failure\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m != nil {
		t.Errorf("Detect = %+v, want no match", m)
	}
}

func TestDetect_RuleOrderFirstWins(t *testing.T) {
	d := &Detector{Rules: []Rule{
		{Contains: "unreachable", Kind: ConnectivityError},
		{Contains: "cluster unreachable", Kind: ExitError},
	}}

	m, err := d.Detect([]byte("Kubernetes cluster unreachable"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m == nil {
		t.Fatal("Detect = no match, want match")
	}
	if m.Rule.Contains != "unreachable" {
		t.Errorf("matched rule %q, want the first rule %q", m.Rule.Contains, "unreachable")
	}
}

func TestDetect_InvalidUTF8(t *testing.T) {
	d := DefaultDetector()
	_, err := d.Detect([]byte{'o', 'k', 0xff, 0xfe})
	if err == nil {
		t.Fatal("expected decode error for invalid UTF-8")
	}
	var de *DecodeError
	if !errors.As(err, &de) {
		t.Fatalf("error = %T, want *DecodeError", err)
	}
	if de.Offset != 2 {
		t.Errorf("Offset = %d, want 2", de.Offset)
	}
}

func TestDetect_LogsOnMatch(t *testing.T) {
	rec := &recordingLogger{}
	d := &Detector{
		Rules: DefaultDetector().Rules,
		Log:   rec,
	}

	if _, err := d.Detect([]byte(ConnectivitySignature)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rec.errors) != 1 {
		t.Fatalf("logged %d error lines, want 1", len(rec.errors))
	}
	if !strings.Contains(rec.errors[0], ConnectivitySignature) {
		t.Errorf("log line = %q, want to name the matched signature", rec.errors[0])
	}
}
