package hooks

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/ciguardian/ci-guardian/internal/config"
	"github.com/ciguardian/ci-guardian/internal/constants"
	"github.com/ciguardian/ci-guardian/internal/events"
	"github.com/ciguardian/ci-guardian/internal/util"
)

type fakeRunner struct {
	results map[string]*util.Result
	calls   []string
}

func (f *fakeRunner) run(_ context.Context, argv []string, _ util.RunOptions) (*util.Result, error) {
	prog := filepath.Base(argv[0])
	f.calls = append(f.calls, prog)
	if res, ok := f.results[prog]; ok {
		return res, nil
	}
	return &util.Result{Stdout: `{"results":[]}`}, nil
}

type harness struct {
	repo   string
	deps   *Deps
	runner *fakeRunner
	stdout *bytes.Buffer
	stderr *bytes.Buffer
	env    map[string]string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	repo := initGitRepo(t)
	h := &harness{
		repo:   repo,
		runner: &fakeRunner{results: map[string]*util.Result{}},
		stdout: &bytes.Buffer{},
		stderr: &bytes.Buffer{},
		env:    map[string]string{},
	}
	d := NewDeps(repo)
	d.Run = h.runner.run
	d.LookPath = func(string) (string, error) { return "", errors.New("not found") }
	d.Getenv = func(k string) string { return h.env[k] }
	d.Stdout, d.Stderr = h.stdout, h.stderr
	h.deps = d
	return h
}

func initGitRepo(t *testing.T) string {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
	dir := t.TempDir()
	gitRun(t, dir, "init", "-q", "-b", "main")
	return dir
}

func gitRun(t *testing.T, dir string, args ...string) string {
	t.Helper()
	base := []string{"-c", "user.name=Test", "-c", "user.email=test@example.com", "-c", "commit.gpgsign=false", "-c", "core.hooksPath=/dev/null"}
	cmd := exec.Command("git", append(base, args...)...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("git %v: %v\n%s", args, err, out)
	}
	return string(out)
}

func stage(t *testing.T, repo, name, content string) {
	t.Helper()
	path := filepath.Join(repo, name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	gitRun(t, repo, "add", name)
}

func commit(t *testing.T, repo, name, msg string) {
	t.Helper()
	stage(t, repo, name, msg+"\n")
	gitRun(t, repo, "commit", "-q", "-m", msg)
}

func writeConfig(t *testing.T, repo, content string) {
	t.Helper()
	if err := os.WriteFile(config.Path(repo), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func eventTypes(t *testing.T, repo string) []string {
	t.Helper()
	all, err := events.Read(repo)
	if err != nil {
		t.Fatalf("events.Read: %v", err)
	}
	var types []string
	for _, e := range all {
		types = append(types, e.Type)
	}
	return types
}

func TestPreCommitWithoutPythonFilesIssuesToken(t *testing.T) {
	h := newHarness(t)
	stage(t, h.repo, "README.md", "# readme\n")

	if code := PreCommit(context.Background(), h.deps); code != 0 {
		t.Fatalf("PreCommit = %d, stderr:\n%s", code, h.stderr)
	}
	if len(h.runner.calls) != 0 {
		t.Errorf("validators ran without Python files: %v", h.runner.calls)
	}
	if !h.deps.Protocol.Pending() {
		t.Error("no token stored")
	}
	if !strings.Contains(h.stdout.String(), "no staged Python files") {
		t.Errorf("stdout = %q", h.stdout)
	}
}

func TestPreCommitRunsValidatorsInOrder(t *testing.T) {
	h := newHarness(t)
	stage(t, h.repo, "app.py", "print('hi')\n")
	stage(t, h.repo, "venv/lib/site.py", "x = 1\n")

	if code := PreCommit(context.Background(), h.deps); code != 0 {
		t.Fatalf("PreCommit = %d, stderr:\n%s", code, h.stderr)
	}
	if want := []string{"ruff", "black", "bandit"}; !reflect.DeepEqual(h.runner.calls, want) {
		t.Errorf("ran %v, want %v", h.runner.calls, want)
	}
	if !h.deps.Protocol.Pending() {
		t.Error("no token stored after passing validators")
	}
	if types := eventTypes(t, h.repo); !reflect.DeepEqual(types, []string{events.TypeTokenIssued}) {
		t.Errorf("events = %v", types)
	}
}

func TestPreCommitBlocksOnFailure(t *testing.T) {
	h := newHarness(t)
	stage(t, h.repo, "app.py", "import os\n")
	h.runner.results["ruff"] = &util.Result{ExitCode: 1, Stdout: "[]"}

	if code := PreCommit(context.Background(), h.deps); code != 1 {
		t.Fatalf("PreCommit = %d, want 1", code)
	}
	if h.deps.Protocol.Pending() {
		t.Error("token stored despite failing validator")
	}
	if !strings.Contains(h.stderr.String(), "Commit blocked: ruff failed") {
		t.Errorf("stderr = %q", h.stderr)
	}
	if types := eventTypes(t, h.repo); !reflect.DeepEqual(types, []string{events.TypeValidationFail}) {
		t.Errorf("events = %v", types)
	}
}

func TestPreCommitBanditHighSeverityBlocks(t *testing.T) {
	h := newHarness(t)
	stage(t, h.repo, "app.py", "import subprocess\n")
	h.runner.results["bandit"] = &util.Result{ExitCode: 1, Stdout: `{"results":[{"filename":"app.py","line_number":1,"test_id":"B602","issue_severity":"HIGH","issue_text":"shell=True"}]}`}

	if code := PreCommit(context.Background(), h.deps); code != 1 {
		t.Fatalf("PreCommit = %d, want 1", code)
	}

	h2 := newHarness(t)
	stage(t, h2.repo, "app.py", "import subprocess\n")
	h2.runner.results["bandit"] = &util.Result{ExitCode: 1, Stdout: `{"results":[{"filename":"app.py","line_number":1,"test_id":"B404","issue_severity":"LOW","issue_text":"subprocess import"}]}`}
	if code := PreCommit(context.Background(), h2.deps); code != 0 {
		t.Fatalf("low severity finding blocked the commit: %s", h2.stderr)
	}
}

func TestPreCommitProtectedValidatorRuns(t *testing.T) {
	h := newHarness(t)
	writeConfig(t, h.repo, `
hooks:
  pre-commit:
    enabled: true
    validadores: [ruff, black, bandit]
validadores:
  ruff:
    enabled: false
  bandit:
    enabled: false
`)
	stage(t, h.repo, "app.py", "x = 1\n")

	if code := PreCommit(context.Background(), h.deps); code != 0 {
		t.Fatalf("PreCommit = %d, stderr:\n%s", code, h.stderr)
	}
	if want := []string{"black", "bandit"}; !reflect.DeepEqual(h.runner.calls, want) {
		t.Errorf("ran %v, want %v", h.runner.calls, want)
	}
	if !strings.Contains(h.stdout.String(), "bandit is disabled in configuration but protected") {
		t.Errorf("no protection notice in %q", h.stdout)
	}
}

func TestPreCommitTamperedConfigFailsClosed(t *testing.T) {
	h := newHarness(t)
	writeConfig(t, h.repo, `version: "0.2.0"
_integrity:
  hash: "sha256:0000000000000000000000000000000000000000000000000000000000000000"
  allow_programmatic: false
`)
	stage(t, h.repo, "README.md", "x\n")

	if code := PreCommit(context.Background(), h.deps); code != 1 {
		t.Fatalf("PreCommit = %d, want 1", code)
	}
	if h.deps.Protocol.Pending() {
		t.Error("token issued with a tampered configuration")
	}
	if !strings.Contains(h.stderr.String(), "INTEGRITY COMPROMISED") {
		t.Errorf("stderr = %q", h.stderr)
	}
}

func TestCommitMsg(t *testing.T) {
	tests := []struct {
		name    string
		content *string
		want    int
	}{
		{"clean", strPtr("Add parser\n\nCo-Authored-By: Alice <a@example.com>\n"), 0},
		{"empty", strPtr(""), 0},
		{"claude trailer", strPtr("Add parser\n\nCo-Authored-By: Claude <noreply@anthropic.com>\n"), 1},
		{"claudette", strPtr("Co-Authored-By: Claudette Johnson <claudette@example.com>"), 0},
		{"missing file", nil, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			path := filepath.Join(h.repo, ".git", "COMMIT_EDITMSG")
			if tt.content != nil {
				if err := os.WriteFile(path, []byte(*tt.content), 0644); err != nil {
					t.Fatal(err)
				}
			}
			if got := CommitMsg(context.Background(), h.deps, []string{path}); got != tt.want {
				t.Errorf("CommitMsg = %d, want %d (stderr %q)", got, tt.want, h.stderr)
			}
		})
	}
}

func strPtr(s string) *string { return &s }

func TestCommitMsgWithoutArgumentFails(t *testing.T) {
	h := newHarness(t)
	if got := CommitMsg(context.Background(), h.deps, nil); got != 1 {
		t.Errorf("CommitMsg(nil) = %d, want 1", got)
	}
	if !strings.Contains(h.stderr.String(), "missing commit message file") {
		t.Errorf("stderr = %q", h.stderr)
	}
}

func TestCommitMsgAuthorshipUnprotectedAndDisabled(t *testing.T) {
	h := newHarness(t)
	writeConfig(t, h.repo, `
validadores:
  authorship:
    enabled: false
    protected: false
`)
	path := filepath.Join(h.repo, "msg")
	if err := os.WriteFile(path, []byte("x\n\nCo-Authored-By: Claude <c@example.com>\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if got := CommitMsg(context.Background(), h.deps, []string{path}); got != 0 {
		t.Errorf("CommitMsg = %d, want 0 with the check turned off", got)
	}
}

func TestPostCommitSilentWithToken(t *testing.T) {
	h := newHarness(t)
	commit(t, h.repo, "a.txt", "first")
	if _, err := h.deps.Protocol.GenerateAndStore(); err != nil {
		t.Fatal(err)
	}
	commit(t, h.repo, "b.txt", "second")

	if code := PostCommit(context.Background(), h.deps); code != 0 {
		t.Fatalf("PostCommit = %d, stderr:\n%s", code, h.stderr)
	}
	if h.stdout.Len() != 0 || h.stderr.Len() != 0 {
		t.Errorf("post-commit printed on success: stdout=%q stderr=%q", h.stdout, h.stderr)
	}
	if log := gitRun(t, h.repo, "log", "--format=%s"); !strings.Contains(log, "second") {
		t.Errorf("valid commit removed:\n%s", log)
	}
	if h.deps.Protocol.Pending() {
		t.Error("token not consumed")
	}
}

func TestPostCommitRevertsBypass(t *testing.T) {
	h := newHarness(t)
	commit(t, h.repo, "a.txt", "first")
	commit(t, h.repo, "b.txt", "sneaky change")

	if code := PostCommit(context.Background(), h.deps); code != 1 {
		t.Fatalf("PostCommit = %d, want 1", code)
	}
	out := h.stderr.String()
	for _, want := range []string{"🚨", "BYPASS DETECTED", "--no-verify", "💡", `git commit -m "sneaky change"`} {
		if !strings.Contains(out, want) {
			t.Errorf("stderr missing %q:\n%s", want, out)
		}
	}
	if log := gitRun(t, h.repo, "log", "--format=%s"); strings.Contains(log, "sneaky change") {
		t.Errorf("bypassed commit still in history:\n%s", log)
	}
	want := []string{events.TypeBypassDetected, events.TypeCommitReverted}
	if types := eventTypes(t, h.repo); !reflect.DeepEqual(types, want) {
		t.Errorf("events = %v, want %v", types, want)
	}
	if e := events.Last(h.repo, events.TypeCommitReverted); e == nil || e.Payload["subject"] != "sneaky change" {
		t.Errorf("revert event = %+v", e)
	}
}

func TestPrePushSkipEnv(t *testing.T) {
	h := newHarness(t)
	h.env[constants.EnvSkipTests] = "1"
	if code := PrePush(context.Background(), h.deps); code != 0 {
		t.Fatalf("PrePush = %d", code)
	}
	if len(h.runner.calls) != 0 {
		t.Errorf("validators ran despite skip: %v", h.runner.calls)
	}
}

func TestPrePushDisabled(t *testing.T) {
	h := newHarness(t)
	writeConfig(t, h.repo, "hooks:\n  pre-push:\n    enabled: false\n    validadores: [tests]\n")
	if code := PrePush(context.Background(), h.deps); code != 0 {
		t.Fatalf("PrePush = %d", code)
	}
	if len(h.runner.calls) != 0 {
		t.Errorf("validators ran for a disabled hook: %v", h.runner.calls)
	}
	if !strings.Contains(h.stdout.String(), "disabled") {
		t.Errorf("stdout = %q", h.stdout)
	}
}

func TestPrePushRunsTestsThenActions(t *testing.T) {
	h := newHarness(t)
	writeConfig(t, h.repo, "hooks:\n  pre-push:\n    enabled: true\n    validadores: [tests, github-actions]\n")

	if code := PrePush(context.Background(), h.deps); code != 0 {
		t.Fatalf("PrePush = %d, stderr:\n%s", code, h.stderr)
	}
	// act is not installed: github-actions falls back to pytest, ruff, black
	want := []string{"pytest", "pytest", "ruff", "black"}
	if !reflect.DeepEqual(h.runner.calls, want) {
		t.Errorf("ran %v, want %v", h.runner.calls, want)
	}
	if !strings.Contains(h.stdout.String(), "Push allowed") {
		t.Errorf("stdout = %q", h.stdout)
	}
}

func TestPrePushBlocksOnTestFailure(t *testing.T) {
	h := newHarness(t)
	writeConfig(t, h.repo, "hooks:\n  pre-push:\n    enabled: true\n    validadores: [tests, github-actions]\n")
	h.runner.results["pytest"] = &util.Result{ExitCode: 1, Stdout: "1 failed"}

	if code := PrePush(context.Background(), h.deps); code != 1 {
		t.Fatalf("PrePush = %d, want 1", code)
	}
	if !reflect.DeepEqual(h.runner.calls, []string{"pytest"}) {
		t.Errorf("github-actions ran after a failure: %v", h.runner.calls)
	}
	errOut := h.stderr.String()
	if !strings.Contains(errOut, "Push blocked") || !strings.Contains(errOut, constants.EnvSkipTests) {
		t.Errorf("stderr = %q", errOut)
	}
}

func TestRunDispatch(t *testing.T) {
	h := newHarness(t)
	if got := Run(context.Background(), h.deps, "post-merge", nil); got != 1 {
		t.Errorf("Run(post-merge) = %d, want 1", got)
	}
	if got := Run(context.Background(), h.deps, constants.HookCommitMsg, nil); got != 1 {
		t.Errorf("Run(commit-msg) without a file = %d, want 1", got)
	}
}

func TestHooksInLinkedWorktree(t *testing.T) {
	repo := initGitRepo(t)
	commit(t, repo, "a.txt", "first")
	wt := filepath.Join(t.TempDir(), "wt")
	gitRun(t, repo, "worktree", "add", "-q", wt)

	ctx := context.Background()
	d, err := Discover(ctx, wt)
	if err != nil {
		t.Fatalf("Discover from worktree: %v", err)
	}
	runner := &fakeRunner{results: map[string]*util.Result{}}
	var stdout, stderr bytes.Buffer
	d.Run = runner.run
	d.LookPath = func(string) (string, error) { return "", errors.New("not found") }
	d.Getenv = func(string) string { return "" }
	d.Stdout, d.Stderr = &stdout, &stderr

	stage(t, wt, "app.py", "x = 1\n")
	if code := PreCommit(ctx, d); code != 0 {
		t.Fatalf("PreCommit in worktree = %d, stderr:\n%s", code, stderr.String())
	}
	if want := []string{"ruff", "black", "bandit"}; !reflect.DeepEqual(runner.calls, want) {
		t.Errorf("ran %v, want %v", runner.calls, want)
	}
	if !d.Protocol.Pending() {
		t.Fatal("no token stored for the worktree")
	}
	if !strings.Contains(filepath.ToSlash(d.Protocol.GitDir()), "/worktrees/") {
		t.Errorf("token git dir = %q, want the worktree's own git dir", d.Protocol.GitDir())
	}

	gitRun(t, wt, "commit", "-q", "-m", "worktree change")
	if code := PostCommit(ctx, d); code != 0 {
		t.Fatalf("PostCommit after a validated commit = %d, stderr:\n%s", code, stderr.String())
	}

	commit(t, wt, "b.txt", "skipped hooks")
	if code := PostCommit(ctx, d); code != 1 {
		t.Fatalf("PostCommit after a bypass = %d, want 1", code)
	}
	log := gitRun(t, wt, "log", "--format=%s")
	if !strings.Contains(log, "worktree change") || strings.Contains(log, "skipped hooks") {
		t.Errorf("worktree history:\n%s", log)
	}

	want := []string{events.TypeTokenIssued, events.TypeTokenConsumed, events.TypeBypassDetected, events.TypeCommitReverted}
	if types := eventTypes(t, repo); !reflect.DeepEqual(types, want) {
		t.Errorf("events in main repository = %v, want %v", types, want)
	}
}

func TestDiscoverMainRepository(t *testing.T) {
	repo := initGitRepo(t)
	d, err := Discover(context.Background(), repo)
	if err != nil {
		t.Fatal(err)
	}
	want, _ := filepath.EvalSymlinks(filepath.Join(repo, ".git"))
	got, _ := filepath.EvalSymlinks(d.Protocol.GitDir())
	if got != want {
		t.Errorf("token git dir = %q, want %q", got, want)
	}
	if got, _ := filepath.EvalSymlinks(d.GitDir); got != want {
		t.Errorf("audit git dir = %q, want %q", got, want)
	}

	if _, err := Discover(context.Background(), t.TempDir()); err == nil {
		t.Error("Discover outside a repository succeeded")
	}
}

func TestPreCommitValidatesNonASCIIFileNames(t *testing.T) {
	h := newHarness(t)
	stage(t, h.repo, "café.py", "import subprocess\n")
	h.runner.results["bandit"] = &util.Result{ExitCode: 1, Stdout: `{"results":[{"filename":"café.py","line_number":1,"test_id":"B602","issue_severity":"HIGH","issue_text":"shell=True"}]}`}

	if code := PreCommit(context.Background(), h.deps); code != 1 {
		t.Fatalf("PreCommit = %d, want 1: café.py must be scanned", code)
	}
	if want := []string{"ruff", "black", "bandit"}; !reflect.DeepEqual(h.runner.calls, want) {
		t.Errorf("ran %v, want %v", h.runner.calls, want)
	}
	if h.deps.Protocol.Pending() {
		t.Error("token issued for an unscanned file")
	}
}
