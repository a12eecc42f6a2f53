package util

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"time"

	"github.com/ciguardian/ci-guardian/internal/log"
)

// DefaultTimeout bounds external commands that do not set their own.
const DefaultTimeout = 30 * time.Second

// ErrEmptyArgv is returned when RunExternal is given no program.
var ErrEmptyArgv = errors.New("run external: empty argument list")

// ErrTimeout is returned when a command exceeds its timeout.
var ErrTimeout = errors.New("command timed out")

// PreJoinedError is returned when argv looks like a whole command line
// packed into one string. Commands must be passed as discrete arguments.
type PreJoinedError struct {
	Command string
}

func (e *PreJoinedError) Error() string {
	return fmt.Sprintf("run external: %q looks like a pre-joined command line; pass program and arguments separately", e.Command)
}

// NotFoundError reports that the program is not installed or not on PATH.
type NotFoundError struct {
	Program string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s: command not found", e.Program)
}

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// RunOptions controls a RunExternal invocation.
type RunOptions struct {
	Dir     string        // working directory; empty means current
	Timeout time.Duration // zero means DefaultTimeout
	Env     []string      // extra KEY=VALUE entries appended to the environment
	Stdin   io.Reader
}

// Result is the outcome of a command that started.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
	TimedOut bool
}

// OK reports whether the command exited zero.
func (r *Result) OK() bool {
	return r != nil && !r.TimedOut && r.ExitCode == 0
}

// Output returns stdout and stderr joined, trimmed.
func (r *Result) Output() string {
	return strings.TrimSpace(strings.TrimSpace(r.Stdout) + "\n" + strings.TrimSpace(r.Stderr))
}

// RunExternal runs argv[0] with argv[1:] as arguments. No shell is ever
// involved. A non-zero exit is not an error: inspect Result.ExitCode.
// Errors are returned for an invalid argv, a missing program (NotFoundError)
// and a timeout (ErrTimeout, with Result.TimedOut set).
func RunExternal(ctx context.Context, argv []string, opts RunOptions) (*Result, error) {
	if len(argv) == 0 || argv[0] == "" {
		return nil, ErrEmptyArgv
	}
	if len(argv) == 1 && strings.ContainsAny(argv[0], " \t\n") {
		return nil, &PreJoinedError{Command: argv[0]}
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	c := exec.CommandContext(ctx, argv[0], argv[1:]...) //nolint:gosec // G204: argv is never shell-interpreted
	c.Dir = opts.Dir
	c.Stdin = opts.Stdin
	c.WaitDelay = 2 * time.Second
	if len(opts.Env) > 0 {
		c.Env = append(c.Environ(), opts.Env...)
	}

	var stdout, stderr bytes.Buffer
	c.Stdout = &stdout
	c.Stderr = &stderr

	log.Debug("exec %q (dir=%s timeout=%s)", argv, opts.Dir, timeout)
	err := c.Run()
	res := &Result{Stdout: stdout.String(), Stderr: stderr.String()}

	if ctx.Err() == context.DeadlineExceeded {
		res.TimedOut = true
		res.ExitCode = -1
		return res, fmt.Errorf("%s: %w after %s", argv[0], ErrTimeout, timeout)
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
			return res, nil
		}
		if errors.Is(err, exec.ErrNotFound) {
			return nil, &NotFoundError{Program: argv[0]}
		}
		return nil, fmt.Errorf("running %s: %w", argv[0], err)
	}
	return res, nil
}

// ExecWithOutput runs argv in workDir and returns trimmed stdout.
// A non-zero exit becomes an error carrying stderr.
func ExecWithOutput(ctx context.Context, workDir string, timeout time.Duration, argv ...string) (string, error) {
	res, err := RunExternal(ctx, argv, RunOptions{Dir: workDir, Timeout: timeout})
	if err != nil {
		return "", err
	}
	if res.ExitCode != 0 {
		if msg := strings.TrimSpace(res.Stderr); msg != "" {
			return "", fmt.Errorf("%s", msg)
		}
		return "", fmt.Errorf("%s exited with status %d", argv[0], res.ExitCode)
	}
	return strings.TrimSpace(res.Stdout), nil
}
