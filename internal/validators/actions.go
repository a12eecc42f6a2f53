package validators

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ciguardian/ci-guardian/internal/log"
	"github.com/ciguardian/ci-guardian/internal/pathguard"
)

// MaxActionsTimeout caps a local workflow run.
const MaxActionsTimeout = 10 * time.Minute

// AllowedEvents are the GitHub event names accepted for a local run.
var AllowedEvents = []string{"push", "pull_request", "workflow_dispatch"}

// WorkflowCandidates are tried in order when no workflow is configured.
var WorkflowCandidates = []string{
	".github/workflows/ci.yml",
	".github/workflows/ci.yaml",
	".github/workflows/test.yml",
	".github/workflows/test.yaml",
}

// ErrNoWorkflow is returned when a repository has no workflow to run.
var ErrNoWorkflow = errors.New("no GitHub Actions workflow found")

// GitHubActions runs a workflow locally with act, or approximates it with
// pytest, ruff and black when act is not installed.
type GitHubActions struct {
	BaseValidator
}

// NewGitHubActions creates the github-actions validator.
func NewGitHubActions() *GitHubActions {
	return &GitHubActions{BaseValidator{
		ValidatorName:        "github-actions",
		ValidatorDescription: "Run the CI workflow locally (act, or a pytest/ruff/black fallback)",
	}}
}

// Workflow is the part of a workflow file ci-guardian reads.
type Workflow struct {
	Name string                 `yaml:"name"`
	Jobs map[string]WorkflowJob `yaml:"jobs"`
}

// WorkflowJob is one job of a workflow.
type WorkflowJob struct {
	Name string `yaml:"name"`
}

// JobNames returns the workflow's job ids, sorted.
func (w *Workflow) JobNames() []string {
	names := make([]string, 0, len(w.Jobs))
	for id := range w.Jobs {
		names = append(names, id)
	}
	sort.Strings(names)
	return names
}

// LoadWorkflow parses a workflow file.
func LoadWorkflow(path string) (*Workflow, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var w Workflow
	if err := yaml.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("invalid workflow %s: %w", filepath.Base(path), err)
	}
	if len(w.Jobs) == 0 {
		return nil, fmt.Errorf("workflow %s defines no jobs", filepath.Base(path))
	}
	return &w, nil
}

// ResolveWorkflow returns the absolute workflow path to run. A configured
// path must stay inside the repository and exist; otherwise the standard
// candidates are tried, then any workflow file in .github/workflows.
func ResolveWorkflow(repoPath, configured string) (string, error) {
	if configured != "" {
		if _, err := pathguard.RejectIfTraversal(configured, "workflow path"); err != nil {
			return "", fmt.Errorf("invalid workflow path: %w", err)
		}
		candidate := configured
		if !filepath.IsAbs(candidate) {
			candidate = filepath.Join(repoPath, candidate)
		}
		path, err := pathguard.Contain(repoPath, candidate)
		if err != nil {
			return "", fmt.Errorf("invalid workflow path: %w", err)
		}
		if info, err := os.Stat(path); err != nil || !info.Mode().IsRegular() {
			return "", fmt.Errorf("workflow %s does not exist", configured)
		}
		return path, nil
	}

	for _, rel := range WorkflowCandidates {
		path := filepath.Join(repoPath, filepath.FromSlash(rel))
		if info, err := os.Stat(path); err == nil && info.Mode().IsRegular() {
			return path, nil
		}
	}

	dir := filepath.Join(repoPath, ".github", "workflows")
	entries, err := os.ReadDir(dir)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return "", err
	}
	for _, e := range entries {
		ext := filepath.Ext(e.Name())
		if e.Type().IsRegular() && (ext == ".yml" || ext == ".yaml") {
			return filepath.Join(dir, e.Name()), nil
		}
	}
	return "", ErrNoWorkflow
}

// ValidateEvent checks event against AllowedEvents.
func ValidateEvent(event string) error {
	for _, e := range AllowedEvents {
		if e == event {
			return nil
		}
	}
	return fmt.Errorf("invalid event %q: allowed events are %s", event, strings.Join(AllowedEvents, ", "))
}

// Run executes the workflow.
func (v *GitHubActions) Run(ctx context.Context, vc *Context) *Result {
	event := vc.option("event", "push")
	if err := ValidateEvent(event); err != nil {
		return &Result{Name: v.Name(), Status: StatusFail, Message: err.Error()}
	}

	sub := *vc
	if sub.Timeout <= 0 || sub.Timeout > MaxActionsTimeout {
		if sub.Timeout > MaxActionsTimeout {
			log.Warn("github-actions: timeout %s capped at %s", sub.Timeout, MaxActionsTimeout)
		}
		sub.Timeout = MaxActionsTimeout
	}

	if _, err := sub.lookPath("act"); err != nil {
		return v.fallback(ctx, &sub)
	}

	workflow, err := ResolveWorkflow(vc.RepoPath, vc.option("workflow", ""))
	if errors.Is(err, ErrNoWorkflow) {
		return &Result{
			Name:    v.Name(),
			Status:  StatusWarning,
			Message: "no workflow found in .github/workflows, skipped",
		}
	}
	if err != nil {
		return &Result{Name: v.Name(), Status: StatusFail, Message: err.Error()}
	}
	wf, err := LoadWorkflow(workflow)
	if err != nil {
		return &Result{Name: v.Name(), Status: StatusFail, Message: err.Error()}
	}

	res, err := sub.runner()(ctx, []string{"act", event, "-W", workflow}, runOptions(&sub))
	if err != nil {
		return execFailure(v.Name(), "act", sub.Timeout, err)
	}
	label := fmt.Sprintf("act: workflow %s (jobs: %s)", filepath.Base(workflow), strings.Join(wf.JobNames(), ", "))
	if res.ExitCode != 0 {
		return &Result{
			Name:    v.Name(),
			Status:  StatusFail,
			Message: label + " failed",
			Details: outputLines(res.Output(), 30),
		}
	}
	return &Result{Name: v.Name(), Status: StatusOK, Message: label + " passed"}
}

// fallback runs the checks a typical Python workflow would: pytest, ruff
// check and black --check over the whole repository. All three run.
func (v *GitHubActions) fallback(ctx context.Context, vc *Context) *Result {
	type step struct {
		label string
		tool  string
		args  []string
	}
	steps := []step{
		{"pytest", "pytest", []string{"-v"}},
		{"ruff", "ruff", []string{"check", "."}},
		{"black", "black", []string{"--check", "."}},
	}

	var details []string
	passed := 0
	for _, s := range steps {
		res, err := vc.exec(ctx, s.tool, s.args...)
		switch {
		case err != nil:
			details = append(details, fmt.Sprintf("%s: %s", s.label, execFailure(s.label, s.tool, vc.timeout(), err).Message))
		case res.ExitCode != 0:
			details = append(details, fmt.Sprintf("%s: failed (exit code %d)", s.label, res.ExitCode))
		default:
			details = append(details, fmt.Sprintf("%s: passed", s.label))
			passed++
		}
	}

	msg := fmt.Sprintf("fallback (act not installed): %d/%d checks passed", passed, len(steps))
	if passed != len(steps) {
		return &Result{Name: v.Name(), Status: StatusFail, Message: msg, Details: details,
			FixHint: "Install act for a faithful local run: https://github.com/nektos/act"}
	}
	return &Result{Name: v.Name(), Status: StatusOK, Message: msg, Details: details}
}
