package runner

// Result holds the raw operating-system outcome of one invocation.
type Result struct {
	RunID     string // unique identifier for this run
	Exited    bool   // true if the process exited normally with a code
	Code      int    // exit code; meaningful only when Exited
	Signal    string // terminating signal name when !Exited (e.g. "killed")
	Stdout    []byte // captured stdout (empty when stdio is inherited)
	Stderr    []byte // captured stderr (empty when stdio is inherited)
	Truncated bool   // true if output exceeded the size cap
}

// Success reports whether the process exited normally with code 0.
func (r *Result) Success() bool {
	return r.Exited && r.Code == 0
}
