package classify

import "log"

// Logger receives the diagnostic lines emitted while running and
// classifying a command. It is injected rather than called globally so
// the classifier stays testable without log-capture plumbing.
type Logger interface {
	Infof(format string, args ...any)
	Errorf(format string, args ...any)
}

// StdLogger returns a Logger backed by the standard library logger.
func StdLogger() Logger {
	return stdLogger{}
}

type stdLogger struct{}

func (stdLogger) Infof(format string, args ...any)  { log.Printf(format, args...) }
func (stdLogger) Errorf(format string, args ...any) { log.Printf(format, args...) }

// NopLogger returns a Logger that discards everything.
func NopLogger() Logger {
	return nopLogger{}
}

type nopLogger struct{}

func (nopLogger) Infof(string, ...any)  {}
func (nopLogger) Errorf(string, ...any) {}
