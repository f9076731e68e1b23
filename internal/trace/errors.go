package trace

import "fmt"

// IOError reports a failed file operation during an export pass.
type IOError struct {
	Op   string // "create", "write", "close", "mkdir"
	Path string
	Err  error
}

// Error implements the error interface.
func (e *IOError) Error() string {
	return fmt.Sprintf("trace: %s %s: %v", e.Op, e.Path, e.Err)
}

// Unwrap returns the underlying error.
func (e *IOError) Unwrap() error { return e.Err }

// ExternalProcessError reports a simulator that could not be started or
// exited with a non-zero status.
type ExternalProcessError struct {
	Binary   string
	ExitCode int    // -1 when the process never ran to completion
	Stderr   string // Tail of the process's standard error
	Err      error
}

// Error implements the error interface.
func (e *ExternalProcessError) Error() string {
	msg := fmt.Sprintf("trace: simulator %s", e.Binary)
	if e.ExitCode >= 0 {
		msg += fmt.Sprintf(" exited with status %d", e.ExitCode)
	} else {
		msg += " failed to run"
	}
	if e.Err != nil {
		msg += fmt.Sprintf(": %v", e.Err)
	}
	if e.Stderr != "" {
		msg += fmt.Sprintf("\nstderr: %s", e.Stderr)
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *ExternalProcessError) Unwrap() error { return e.Err }
