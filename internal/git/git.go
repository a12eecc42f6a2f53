// Package git wraps the handful of git plumbing commands ci-guardian needs.
// Every call goes through util.RunExternal with an argument list and a
// timeout, so branch names and paths are never shell-interpreted.
package git

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/ciguardian/ci-guardian/internal/constants"
	"github.com/ciguardian/ci-guardian/internal/util"
)

// ErrDetachedHead is returned by SymbolicRef when HEAD is not a branch.
var ErrDetachedHead = errors.New("HEAD is detached")

// Git runs git commands in a working directory.
type Git struct {
	workDir string
	timeout time.Duration
}

// NewGit returns a Git rooted at workDir using constants.GitTimeout.
func NewGit(workDir string) *Git {
	return &Git{workDir: workDir, timeout: constants.GitTimeout}
}

// WithTimeout returns a copy using a different per-command timeout.
func (g *Git) WithTimeout(d time.Duration) *Git {
	c := *g
	c.timeout = d
	return &c
}

// WorkDir returns the directory commands run in.
func (g *Git) WorkDir() string {
	return g.workDir
}

// Run executes git with args and returns the raw result. A non-zero exit
// is reported through Result.ExitCode, not as an error.
func (g *Git) Run(ctx context.Context, args ...string) (*util.Result, error) {
	argv := append([]string{"git"}, args...)
	return util.RunExternal(ctx, argv, util.RunOptions{Dir: g.workDir, Timeout: g.timeout})
}

// output runs git and returns trimmed stdout, turning a non-zero exit
// into an error that carries stderr.
func (g *Git) output(ctx context.Context, args ...string) (string, error) {
	res, err := g.Run(ctx, args...)
	if err != nil {
		return "", err
	}
	if res.ExitCode != 0 {
		msg := strings.TrimSpace(res.Stderr)
		if msg == "" {
			msg = fmt.Sprintf("exit status %d", res.ExitCode)
		}
		return "", fmt.Errorf("git %s: %s", args[0], msg)
	}
	return strings.TrimSpace(res.Stdout), nil
}

// StagedFiles lists paths staged for the next commit, relative to the
// repository root. Paths are read NUL separated and unquoted, so names with
// non-ASCII characters, tabs or quotes come back verbatim.
func (g *Git) StagedFiles(ctx context.Context) ([]string, error) {
	res, err := g.Run(ctx, "-c", "core.quotePath=false", "diff", "--cached", "--name-only", "-z")
	if err != nil {
		return nil, err
	}
	if res.ExitCode != 0 {
		return nil, fmt.Errorf("git diff: %s", strings.TrimSpace(res.Stderr))
	}
	var files []string
	for _, name := range strings.Split(res.Stdout, "\x00") {
		if name != "" {
			files = append(files, name)
		}
	}
	return files, nil
}

// TopLevel returns the root of the working tree containing WorkDir.
func (g *Git) TopLevel(ctx context.Context) (string, error) {
	return g.output(ctx, "rev-parse", "--show-toplevel")
}

// GitDir returns the absolute git directory of the current working tree.
// For a linked worktree this is .git/worktrees/<name> of the main repository.
func (g *Git) GitDir(ctx context.Context) (string, error) {
	return g.output(ctx, "rev-parse", "--absolute-git-dir")
}

// CommonDir returns the absolute git directory shared by all worktrees.
func (g *Git) CommonDir(ctx context.Context) (string, error) {
	dir, err := g.output(ctx, "rev-parse", "--git-common-dir")
	if err != nil {
		return "", err
	}
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(g.workDir, dir)
	}
	return filepath.Clean(dir), nil
}

// ResetSoft moves the current branch to rev, keeping index and working tree.
func (g *Git) ResetSoft(ctx context.Context, rev string) (*util.Result, error) {
	return g.Run(ctx, "reset", "--soft", rev)
}

// SymbolicRef returns the full ref HEAD points at, e.g. "refs/heads/main".
func (g *Git) SymbolicRef(ctx context.Context) (string, error) {
	res, err := g.Run(ctx, "symbolic-ref", "-q", "HEAD")
	if err != nil {
		return "", err
	}
	if res.ExitCode == 1 {
		return "", ErrDetachedHead
	}
	if res.ExitCode != 0 {
		return "", fmt.Errorf("git symbolic-ref: %s", strings.TrimSpace(res.Stderr))
	}
	return strings.TrimSpace(res.Stdout), nil
}

// DeleteRef removes ref. The name is validated first.
func (g *Git) DeleteRef(ctx context.Context, ref string) error {
	if err := ValidateRefName(ref); err != nil {
		return err
	}
	_, err := g.output(ctx, "update-ref", "-d", ref)
	return err
}

// HeadSubject returns the subject line of the HEAD commit.
func (g *Git) HeadSubject(ctx context.Context) (string, error) {
	return g.output(ctx, "log", "-1", "--format=%s")
}

// HeadCommit returns the HEAD commit id.
func (g *Git) HeadCommit(ctx context.Context) (string, error) {
	return g.output(ctx, "rev-parse", "HEAD")
}

// IsUnknownRevision reports whether git stderr says a revision does not
// exist, which is what "HEAD~1" produces on a root commit.
func IsUnknownRevision(stderr string) bool {
	s := strings.ToLower(stderr)
	return strings.Contains(s, "unknown revision") || strings.Contains(s, "ambiguous argument")
}

// ValidateRefName accepts only fully qualified refs made of safe
// characters. Anything carrying shell metacharacters, whitespace or ".."
// is refused before it reaches git.
func ValidateRefName(ref string) error {
	if !strings.HasPrefix(ref, "refs/") {
		return fmt.Errorf("invalid ref %q: must start with refs/", ref)
	}
	if strings.Contains(ref, "..") || strings.HasSuffix(ref, "/") || strings.HasSuffix(ref, ".lock") {
		return fmt.Errorf("invalid ref %q", ref)
	}
	for _, r := range ref {
		if unicode.IsSpace(r) || unicode.IsControl(r) || strings.ContainsRune(";|&$(){}<>`\\'\"*?[~^:", r) {
			return fmt.Errorf("invalid ref %q: contains disallowed character %q", ref, r)
		}
	}
	return nil
}
