package trace

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"
)

// ExitStatus is the simulator's process exit code.
type ExitStatus int

// Simulator consumes a manifest. Run blocks until the simulator finishes.
type Simulator interface {
	Run(ctx context.Context, m *Manifest) (ExitStatus, error)
}

// ExecSimulator runs the manifest's command line as a child process.
// Arguments are passed directly, never through a shell.
type ExecSimulator struct {
	Dir    string    // Working directory; empty means the current one
	Env    []string  // Extra environment entries appended to the parent's
	Stdout io.Writer // Optional
	Stderr io.Writer // Optional; a tail is kept for errors regardless
}

const stderrTail = 4096

// Run starts the simulator and waits for it. A missing binary, a start
// failure or a non-zero exit yields *ExternalProcessError.
func (s *ExecSimulator) Run(ctx context.Context, m *Manifest) (ExitStatus, error) {
	args := m.Args()

	//nolint:gosec // G204: the simulator binary is configured by the user
	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	cmd.Dir = s.Dir
	if len(s.Env) > 0 {
		cmd.Env = append(cmd.Environ(), s.Env...)
	}
	cmd.Stdout = s.Stdout

	tail := &tailBuffer{limit: stderrTail}
	if s.Stderr != nil {
		cmd.Stderr = io.MultiWriter(s.Stderr, tail)
	} else {
		cmd.Stderr = tail
	}

	err := cmd.Run()
	if err == nil {
		return 0, nil
	}

	perr := &ExternalProcessError{
		Binary:   args[0],
		ExitCode: -1,
		Stderr:   strings.TrimSpace(tail.String()),
		Err:      err,
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && exitErr.ExitCode() >= 0 {
		perr.ExitCode = exitErr.ExitCode()
		perr.Err = nil
		return ExitStatus(perr.ExitCode), perr
	}
	if ctx.Err() != nil {
		perr.Err = fmt.Errorf("%w (%v)", ctx.Err(), err)
	}
	return -1, perr
}

// tailBuffer keeps the last limit bytes written to it.
type tailBuffer struct {
	mu    sync.Mutex
	limit int
	buf   []byte
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.buf = append(t.buf, p...)
	if over := len(t.buf) - t.limit; over > 0 {
		t.buf = append(t.buf[:0], t.buf[over:]...)
	}
	return len(p), nil
}

func (t *tailBuffer) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return string(t.buf)
}
