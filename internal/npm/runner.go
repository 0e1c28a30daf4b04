package npm

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/blackspinne/lovable-cpannel/internal/logfields"
)

const (
	// DefaultCommand is the package manager binary used when none is configured.
	DefaultCommand = "npm"
	// DefaultTimeout bounds a single package manager invocation.
	DefaultTimeout = 15 * time.Minute

	outputTail = 4 << 10
	// waitDelay bounds how long Run waits for output pipes after the process is killed.
	waitDelay = 5 * time.Second
)

// Runner executes the package manager in dir with args.
type Runner interface {
	Run(ctx context.Context, dir string, args ...string) error
}

// CommandError describes a failed package manager invocation.
type CommandError struct {
	Args     []string
	ExitCode int
	Output   string
	Err      error
}

func (e *CommandError) Error() string {
	msg := fmt.Sprintf("%s failed", strings.Join(e.Args, " "))
	if e.ExitCode >= 0 {
		msg += fmt.Sprintf(" (exit %d)", e.ExitCode)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if out := strings.TrimSpace(e.Output); out != "" {
		msg += "\n" + out
	}
	return msg
}

func (e *CommandError) Unwrap() error { return e.Err }

// Is makes every CommandError match ErrBuildFailed.
func (e *CommandError) Is(target error) bool { return target == ErrBuildFailed }

// ExecRunner runs the package manager as a child process.
type ExecRunner struct {
	// Command is the binary to run; empty means DefaultCommand.
	Command string
	// Timeout bounds each invocation; zero means DefaultTimeout.
	Timeout time.Duration
	// Env entries are appended to the current environment.
	Env []string
}

// Run implements Runner.
func (r ExecRunner) Run(ctx context.Context, dir string, args ...string) error {
	command := r.Command
	if command == "" {
		command = DefaultCommand
	}
	timeout := r.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if _, err := exec.LookPath(command); err != nil {
		return fmt.Errorf("%w: %w", ErrBinaryNotFound, err)
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	full := append([]string{command}, args...)
	cmd := exec.CommandContext(ctx, command, args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), r.Env...)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	killGroupOnCancel(cmd)
	cmd.WaitDelay = waitDelay

	start := time.Now()
	slog.Debug("Running package manager", logfields.Command(strings.Join(full, " ")), logfields.Path(dir))
	err := cmd.Run()
	slog.Debug("Package manager finished",
		logfields.Command(strings.Join(full, " ")),
		logfields.DurationMS(float64(time.Since(start).Milliseconds())))
	if err == nil {
		return nil
	}

	cerr := &CommandError{Args: full, ExitCode: -1, Output: tail(out.String(), outputTail), Err: err}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		cerr.ExitCode = exitErr.ExitCode()
	}
	if ctx.Err() == context.DeadlineExceeded {
		cerr.Err = fmt.Errorf("timed out after %s: %w", timeout, ctx.Err())
	}
	slog.Warn("Package manager failed", logfields.Command(strings.Join(full, " ")), logfields.ExitCode(cerr.ExitCode))
	return cerr
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
