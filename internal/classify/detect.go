package classify

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// ConnectivitySignature is the stderr substring that marks a failure as
// an unreachable-cluster condition rather than a generic exit error.
const ConnectivitySignature = "Kubernetes cluster unreachable"

// Rule pairs a stderr substring with the failure kind it indicates.
// Rules are checked in order; the first match wins.
type Rule struct {
	Contains string
	Kind     Kind
}

// Match is the positive verdict of a Detector: the rule that fired and
// the full decoded stderr text it fired on.
type Match struct {
	Rule Rule
	Text string
}

// DecodeError reports stderr bytes that could not be decoded as text.
// It is deliberately distinct from a no-match verdict: the heuristic
// could not run, rather than ran and found nothing.
type DecodeError struct {
	Offset int // byte offset of the first invalid sequence
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("invalid UTF-8 in captured stderr at byte %d", e.Offset)
}

// Detector scans captured stderr for known failure signatures.
type Detector struct {
	Rules []Rule
	Log   Logger // optional; diagnostics only, never affects the verdict
}

// DefaultDetector returns a Detector with the single built-in
// connectivity rule.
func DefaultDetector() *Detector {
	return &Detector{
		Rules: []Rule{{Contains: ConnectivitySignature, Kind: ConnectivityError}},
	}
}

// Detect inspects stderr and returns the first matching rule, or nil
// when nothing matched. Empty stderr never matches. Bytes that are not
// valid UTF-8 produce a *DecodeError instead of a verdict.
func (d *Detector) Detect(stderr []byte) (*Match, error) {
	if len(stderr) == 0 {
		return nil, nil
	}
	if off, ok := invalidUTF8(stderr); ok {
		return nil, &DecodeError{Offset: off}
	}

	text := string(stderr)
	for _, rule := range d.Rules {
		if strings.Contains(text, rule.Contains) {
			if d.Log != nil {
				d.Log.Errorf("stderr matched failure signature %q", rule.Contains)
			}
			return &Match{Rule: rule, Text: text}, nil
		}
	}
	return nil, nil
}

// invalidUTF8 returns the offset of the first invalid byte sequence in b.
func invalidUTF8(b []byte) (int, bool) {
	for i := 0; i < len(b); {
		r, size := utf8.DecodeRune(b[i:])
		if r == utf8.RuneError && size == 1 {
			return i, true
		}
		i += size
	}
	return 0, false
}
