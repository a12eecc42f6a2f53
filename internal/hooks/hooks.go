// Package hooks implements the git hook entry points: pre-commit,
// commit-msg, post-commit and pre-push.
//
// Each driver returns the process exit code git should see. pre-commit
// issues a commit token when every required validator passes; post-commit
// consumes it and reverts commits that arrived without one.
package hooks

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ciguardian/ci-guardian/internal/config"
	"github.com/ciguardian/ci-guardian/internal/constants"
	"github.com/ciguardian/ci-guardian/internal/events"
	"github.com/ciguardian/ci-guardian/internal/git"
	"github.com/ciguardian/ci-guardian/internal/log"
	"github.com/ciguardian/ci-guardian/internal/platform"
	"github.com/ciguardian/ci-guardian/internal/style"
	"github.com/ciguardian/ci-guardian/internal/token"
	"github.com/ciguardian/ci-guardian/internal/ui"
	"github.com/ciguardian/ci-guardian/internal/validators"
)

// Names lists the hooks with a driver, in lifecycle order.
var Names = []string{
	constants.HookPreCommit,
	constants.HookCommitMsg,
	constants.HookPostCommit,
	constants.HookPrePush,
}

// Deps are the collaborators a hook driver uses.
type Deps struct {
	// RepoPath is the root of the working tree being committed to.
	RepoPath string
	// GitDir is the git directory shared by all worktrees; the audit log
	// lives there.
	GitDir   string
	Git      *git.Git
	Protocol *token.Protocol

	// Run executes validator tools. Nil means util.RunExternal.
	Run validators.Runner
	// LookPath finds programs. Nil means exec.LookPath.
	LookPath func(string) (string, error)
	// Getenv reads the environment. Nil means os.Getenv.
	Getenv func(string) string

	Stdout io.Writer
	Stderr io.Writer

	cfg    *config.Config
	cfgErr error
	loaded bool
}

// NewDeps returns the production collaborators for repoPath.
func NewDeps(repoPath string) *Deps {
	return &Deps{
		RepoPath: repoPath,
		GitDir:   filepath.Join(repoPath, constants.GitDir),
		Git:      git.NewGit(repoPath),
		Protocol: token.New(repoPath, platform.Current()),
		Stdout:   os.Stdout,
		Stderr:   os.Stderr,
	}
}

// Discover returns the production collaborators for the working tree
// containing dir. Locations come from git, so hooks also run from linked
// worktrees, whose .git is a file pointing into the main repository.
func Discover(ctx context.Context, dir string) (*Deps, error) {
	g := git.NewGit(dir)
	top, err := g.TopLevel(ctx)
	if err != nil {
		return nil, fmt.Errorf("locating repository: %w", err)
	}
	gitDir, err := g.GitDir(ctx)
	if err != nil {
		return nil, fmt.Errorf("locating git directory: %w", err)
	}
	common, err := g.CommonDir(ctx)
	if err != nil {
		return nil, fmt.Errorf("locating git directory: %w", err)
	}
	top = filepath.FromSlash(top)

	d := NewDeps(top)
	d.GitDir = filepath.FromSlash(common)
	d.Protocol = token.NewInGitDir(top, filepath.FromSlash(gitDir), platform.Current())
	return d, nil
}

// WithConfig fixes the configuration instead of loading it from disk.
func (d *Deps) WithConfig(cfg *config.Config) *Deps {
	d.cfg, d.cfgErr, d.loaded = cfg, nil, true
	return d
}

// Config loads the repository configuration once.
func (d *Deps) Config() (*config.Config, error) {
	if !d.loaded {
		d.cfg, d.cfgErr = config.Load(d.RepoPath)
		d.loaded = true
	}
	return d.cfg, d.cfgErr
}

func (d *Deps) logEvent(eventType, hook string, payload map[string]interface{}) {
	events.LogIn(d.GitDir, eventType, hook, payload)
}

func (d *Deps) getenv(key string) string {
	if d.Getenv != nil {
		return d.Getenv(key)
	}
	return os.Getenv(key)
}

// Run dispatches to the driver for hook. Unknown hooks fail.
func Run(ctx context.Context, d *Deps, hook string, args []string) int {
	log.Debug("hook %s invoked with %q in %s", hook, args, d.RepoPath)
	switch hook {
	case constants.HookPreCommit:
		return PreCommit(ctx, d)
	case constants.HookCommitMsg:
		return CommitMsg(ctx, d, args)
	case constants.HookPostCommit:
		return PostCommit(ctx, d)
	case constants.HookPrePush:
		return PrePush(ctx, d)
	}
	fmt.Fprintf(d.Stderr, "%s unknown hook %q (known: %s)\n", style.ErrorPrefix, hook, strings.Join(Names, ", "))
	return 1
}

// runValidators runs the validators planned for hook and returns the
// names of those that failed. File scoped validators are skipped when
// files is empty. github-actions only runs when nothing failed before it.
func (d *Deps) runValidators(ctx context.Context, cfg *config.Config, hook string, files []string) []string {
	var failed []string
	for _, p := range cfg.Plan(hook) {
		v, ok := validators.Lookup(p.Name)
		if !ok {
			log.Warn("%s: unknown validator %q in configuration, skipped", hook, p.Name)
			continue
		}
		if v.FileScoped() && len(files) == 0 {
			log.Debug("%s: %s skipped, no Python files", hook, p.Name)
			continue
		}
		if p.Name == "github-actions" && len(failed) > 0 {
			fmt.Fprintf(d.Stdout, "  %s %s: skipped, earlier validations failed\n", ui.RenderSkipIcon(), p.Name)
			continue
		}
		if p.Forced {
			style.FprintWarning(d.Stdout, "%s is disabled in configuration but protected; running anyway", p.Name)
		}

		vcfg := cfg.Validator(p.Name)
		res := v.Run(ctx, &validators.Context{
			RepoPath: d.RepoPath,
			Files:    files,
			Timeout:  cfg.TimeoutFor(p.Name),
			Options:  vcfg.Options,
			Run:      d.Run,
			LookPath: d.LookPath,
		})
		PrintResult(d.Stdout, res)
		if !res.Passed() {
			failed = append(failed, p.Name)
		}
	}
	return failed
}

// PrintResult writes one validator outcome with its details.
func PrintResult(w io.Writer, r *validators.Result) {
	var icon string
	switch r.Status {
	case validators.StatusOK:
		icon = ui.RenderPassIcon()
	case validators.StatusWarning:
		icon = ui.RenderWarnIcon()
	default:
		icon = ui.RenderFailIcon()
	}
	fmt.Fprintf(w, "  %s %s: %s\n", icon, r.Name, r.Message)
	for _, line := range r.Details {
		fmt.Fprintf(w, "      %s\n", line)
	}
	if r.FixHint != "" && r.Status != validators.StatusOK {
		fmt.Fprintf(w, "      %s %s\n", style.ArrowPrefix, r.FixHint)
	}
}

// configFailure reports a configuration that could not be loaded. Hooks
// fail closed on it.
func (d *Deps) configFailure(hook string, err error) int {
	fmt.Fprintf(d.Stderr, "%s %s: %v\n", style.ErrorPrefix, hook, err)
	return 1
}
