package runner

import (
	"os/exec"
	"strings"
)

// Invocation is a fully specified request to run one external program.
// It is not modified by the Runner; build it once and pass it to Run.
type Invocation struct {
	Program string   // program name or path, resolved via PATH if bare
	Args    []string // ordered arguments, passed through verbatim
	Dir     string   // working directory; empty means inherit the parent's
	Env     []string // extra environment entries in KEY=VALUE form
	Inherit bool     // stream child stdout/stderr to the parent instead of capturing
}

// New builds an invocation for program with the given arguments.
func New(program string, args ...string) *Invocation {
	return &Invocation{Program: program, Args: args}
}

// Display renders the command line as a human would type it: program and
// arguments joined with single spaces, no quoting. The rendering is
// deterministic, so the same invocation always produces the same string.
func (inv *Invocation) Display() string {
	if len(inv.Args) == 0 {
		return inv.Program
	}
	return inv.Program + " " + strings.Join(inv.Args, " ")
}

// Available reports whether an executable with the given name can be
// resolved on the current PATH. Use it as a pre-flight check before
// running an invocation that must not fail to launch.
func Available(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}
