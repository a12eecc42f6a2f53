// Package validators runs the external quality and security tools that
// decide whether a commit or push may proceed.
//
// Each tool is wrapped in a Validator. Tools are always executed through a
// Runner with a discrete argument list and a timeout; the default Runner is
// util.RunExternal. Tests substitute a fake Runner.
package validators

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/ciguardian/ci-guardian/internal/constants"
	"github.com/ciguardian/ci-guardian/internal/log"
	"github.com/ciguardian/ci-guardian/internal/util"
)

// Status is the outcome class of a validator run.
type Status int

const (
	// StatusOK means the validator passed.
	StatusOK Status = iota
	// StatusWarning means the validator passed with advisory findings or
	// could not run for a non-blocking reason.
	StatusWarning
	// StatusFail blocks the commit or push.
	StatusFail
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusWarning:
		return "warning"
	case StatusFail:
		return "fail"
	}
	return "unknown"
}

// Result is what a validator reports.
type Result struct {
	Name    string
	Status  Status
	Message string
	Details []string
	FixHint string
}

// Passed reports whether the result lets the operation proceed.
func (r *Result) Passed() bool {
	return r != nil && r.Status != StatusFail
}

// Runner executes an external command. It matches util.RunExternal.
type Runner func(ctx context.Context, argv []string, opts util.RunOptions) (*util.Result, error)

// Context carries everything a validator needs for one run.
type Context struct {
	// RepoPath is the repository root; tools run with it as working directory.
	RepoPath string

	// Files are the absolute paths the validator should check. Validators
	// that are not file scoped ignore them.
	Files []string

	// Timeout bounds each tool invocation.
	Timeout time.Duration

	// Options are the validator's configured options.
	Options map[string]interface{}

	// Run executes tools. Nil means util.RunExternal.
	Run Runner

	// LookPath finds programs on PATH. Nil means exec.LookPath.
	LookPath func(string) (string, error)
}

// Validator is one external check.
type Validator interface {
	Name() string
	Description() string
	// FileScoped validators receive the staged files and are skipped when
	// there are none.
	FileScoped() bool
	Run(ctx context.Context, vc *Context) *Result
}

// BaseValidator provides the descriptive half of Validator.
type BaseValidator struct {
	ValidatorName        string
	ValidatorDescription string
	Scoped               bool
}

func (b *BaseValidator) Name() string        { return b.ValidatorName }
func (b *BaseValidator) Description() string { return b.ValidatorDescription }
func (b *BaseValidator) FileScoped() bool    { return b.Scoped }

var registry = map[string]Validator{}

func register(v Validator) {
	registry[v.Name()] = v
}

func init() {
	register(NewRuff())
	register(NewBlack())
	register(NewBandit())
	register(NewTests())
	register(NewGitHubActions())
}

// Lookup returns the validator registered under name.
func Lookup(name string) (Validator, bool) {
	v, ok := registry[name]
	return v, ok
}

// Names lists the registered validators, sorted.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (vc *Context) runner() Runner {
	if vc.Run != nil {
		return vc.Run
	}
	return util.RunExternal
}

func (vc *Context) lookPath(name string) (string, error) {
	if vc.LookPath != nil {
		return vc.LookPath(name)
	}
	return exec.LookPath(name)
}

func (vc *Context) timeout() time.Duration {
	if vc.Timeout > 0 {
		return vc.Timeout
	}
	return constants.ValidatorTimeout
}

// exec runs tool with args in the repository. The tool is taken from the
// project's virtualenv when one provides it.
func (vc *Context) exec(ctx context.Context, tool string, args ...string) (*util.Result, error) {
	argv := append([]string{ToolPath(vc.RepoPath, tool)}, args...)
	log.Debug("validator: running %s", strings.Join(argv, " "))
	return vc.runner()(ctx, argv, runOptions(vc))
}

func runOptions(vc *Context) util.RunOptions {
	return util.RunOptions{Dir: vc.RepoPath, Timeout: vc.timeout()}
}

// option returns a string option or fallback.
func (vc *Context) option(key, fallback string) string {
	if v, ok := vc.Options[key]; ok && v != nil {
		if s := strings.TrimSpace(fmt.Sprint(v)); s != "" {
			return s
		}
	}
	return fallback
}

// rel renders path relative to the repository for messages.
func (vc *Context) rel(path string) string {
	if r, err := filepath.Rel(vc.RepoPath, path); err == nil && !strings.HasPrefix(r, "..") {
		return r
	}
	return path
}

// execFailure turns a RunExternal error into a result. A missing tool
// fails with an install hint; a timeout fails naming the limit.
func execFailure(name, tool string, timeout time.Duration, err error) *Result {
	switch {
	case util.IsNotFound(err):
		return &Result{
			Name:    name,
			Status:  StatusFail,
			Message: fmt.Sprintf("%s is not installed", tool),
			FixHint: fmt.Sprintf("Install with: pip install %s", tool),
		}
	case errors.Is(err, util.ErrTimeout):
		return &Result{
			Name:    name,
			Status:  StatusFail,
			Message: fmt.Sprintf("%s exceeded its timeout of %s", tool, timeout),
		}
	}
	return &Result{
		Name:    name,
		Status:  StatusFail,
		Message: fmt.Sprintf("running %s: %v", tool, err),
	}
}

// outputLines splits tool output into non-empty trimmed lines, keeping at
// most the last limit lines (limit <= 0 keeps all).
func outputLines(out string, limit int) []string {
	var lines []string
	for _, line := range strings.Split(out, "\n") {
		if line = strings.TrimRight(line, "\r \t"); strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}
	if limit > 0 && len(lines) > limit {
		lines = lines[len(lines)-limit:]
	}
	return lines
}
