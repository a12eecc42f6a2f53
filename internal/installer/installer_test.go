package installer

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"runtime"
	"strings"
	"testing"

	"github.com/ciguardian/ci-guardian/internal/platform"
)

const validHook = "#!/bin/bash\n# CI-GUARDIAN-HOOK\necho ok\n"

// setupRepo creates a directory shaped like a git repository.
func setupRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, ".git", "hooks"), 0755); err != nil {
		t.Fatal(err)
	}
	return dir
}

func newPosix() *Installer {
	return New(platform.Posix{})
}

func TestIsGitRepository(t *testing.T) {
	repo := setupRepo(t)
	if !IsGitRepository(repo) {
		t.Error("directory with .git/ not detected as repository")
	}

	plain := t.TempDir()
	if IsGitRepository(plain) {
		t.Error("plain directory detected as repository")
	}

	gitlink := t.TempDir()
	if err := os.WriteFile(filepath.Join(gitlink, ".git"), []byte("gitdir: ../.git/modules/sub\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if IsGitRepository(gitlink) {
		t.Error(".git file (submodule gitlink) accepted as repository")
	}

	if IsGitRepository(filepath.Join(plain, "missing")) {
		t.Error("missing path detected as repository")
	}
}

func TestInstall(t *testing.T) {
	repo := setupRepo(t)
	inst := newPosix()

	if err := inst.Install(repo, "pre-commit", validHook); err != nil {
		t.Fatalf("Install: %v", err)
	}

	path := filepath.Join(repo, ".git", "hooks", "pre-commit")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading installed hook: %v", err)
	}
	if string(data) != validHook {
		t.Errorf("content = %q, want %q", data, validHook)
	}

	if runtime.GOOS != "windows" {
		info, _ := os.Stat(path)
		if info.Mode().Perm() != 0755 {
			t.Errorf("mode = %o, want 755", info.Mode().Perm())
		}
	}
}

func TestInstallPreservesContentVerbatim(t *testing.T) {
	repo := setupRepo(t)
	content := "#!/bin/sh\r\n# CI-GUARDIAN-HOOK\r\necho 'ñandú ✓'\r\n"
	if err := newPosix().Install(repo, "pre-push", content); err != nil {
		t.Fatalf("Install: %v", err)
	}
	data, _ := os.ReadFile(filepath.Join(repo, ".git", "hooks", "pre-push"))
	if string(data) != content {
		t.Errorf("content altered: %q", data)
	}
}

func TestInstallRejectsInvalidNames(t *testing.T) {
	repo := setupRepo(t)
	inst := newPosix()

	for _, name := range []string{
		"commit-msg", "post-checkout", "custom", "", "../pre-commit",
		"pre-commit/../../evil", "PRE-COMMIT", "pre-commit ",
	} {
		t.Run(name, func(t *testing.T) {
			err := inst.Install(repo, name, validHook)
			var ih *InvalidHookError
			if !errors.As(err, &ih) {
				t.Fatalf("Install(%q) error = %v, want InvalidHookError", name, err)
			}
			if !errors.Is(err, ErrPolicy) {
				t.Error("InvalidHookError should unwrap to ErrPolicy")
			}
		})
	}

	entries, _ := os.ReadDir(filepath.Join(repo, ".git", "hooks"))
	if len(entries) != 0 {
		t.Errorf("filesystem touched: %d entries in hooks dir", len(entries))
	}
}

func TestInstallCheckOrder(t *testing.T) {
	inst := newPosix()

	tests := []struct {
		name    string
		repo    func(t *testing.T) string
		hook    string
		content string
		check   func(error) bool
	}{
		{
			name:    "not a repository wins over bad name",
			repo:    func(t *testing.T) string { return t.TempDir() },
			hook:    "evil",
			content: "",
			check:   func(err error) bool { var e *NotAGitRepositoryError; return errors.As(err, &e) },
		},
		{
			name:    "bad name wins over empty content",
			repo:    setupRepo,
			hook:    "evil",
			content: "",
			check:   func(err error) bool { var e *InvalidHookError; return errors.As(err, &e) },
		},
		{
			name:    "empty content",
			repo:    setupRepo,
			hook:    "pre-commit",
			content: "  \n\t\n",
			check:   func(err error) bool { var e *EmptyContentError; return errors.As(err, &e) },
		},
		{
			name:    "bad shebang",
			repo:    setupRepo,
			hook:    "pre-commit",
			content: "#!/usr/bin/env ruby\nputs 1\n",
			check:   func(err error) bool { var e *InvalidHookContentError; return errors.As(err, &e) },
		},
		{
			name:    "no shebang",
			repo:    setupRepo,
			hook:    "pre-commit",
			content: "echo hi\n",
			check:   func(err error) bool { var e *InvalidHookContentError; return errors.As(err, &e) },
		},
		{
			name: "missing hooks directory",
			repo: func(t *testing.T) string {
				dir := t.TempDir()
				if err := os.Mkdir(filepath.Join(dir, ".git"), 0755); err != nil {
					t.Fatal(err)
				}
				return dir
			},
			hook:    "pre-commit",
			content: validHook,
			check: func(err error) bool {
				var e *HooksDirectoryNotFoundError
				return errors.As(err, &e) && errors.Is(err, ErrEnvironment)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := inst.Install(tt.repo(t), tt.hook, tt.content)
			if !tt.check(err) {
				t.Errorf("Install error = %v (%T)", err, err)
			}
		})
	}
}

func TestInstallSizeLimit(t *testing.T) {
	inst := newPosix()
	header := "#!/bin/bash\n# CI-GUARDIAN-HOOK\n"

	exact := header + strings.Repeat("#", 102400-len(header))
	if len(exact) != 102400 {
		t.Fatalf("test setup: len = %d", len(exact))
	}
	if err := inst.Install(setupRepo(t), "pre-commit", exact); err != nil {
		t.Errorf("102400-byte hook rejected: %v", err)
	}

	over := exact + "#"
	err := inst.Install(setupRepo(t), "pre-commit", over)
	var tl *HookTooLargeError
	if !errors.As(err, &tl) {
		t.Fatalf("102401-byte hook error = %v, want HookTooLargeError", err)
	}
	if tl.Size != 102401 || tl.Max != 102400 {
		t.Errorf("HookTooLargeError = %+v", tl)
	}
}

func TestInstallSizeCountsUTF8Bytes(t *testing.T) {
	header := "#!/bin/bash\n"
	// 'é' is two bytes: the rune count fits but the byte count does not.
	content := header + strings.Repeat("é", (102400-len(header))/2+1)
	err := newPosix().Install(setupRepo(t), "pre-commit", content)
	var tl *HookTooLargeError
	if !errors.As(err, &tl) {
		t.Errorf("error = %v, want HookTooLargeError", err)
	}
}

func TestInstallRefusesOverwrite(t *testing.T) {
	repo := setupRepo(t)
	inst := newPosix()
	if err := inst.Install(repo, "post-commit", validHook); err != nil {
		t.Fatal(err)
	}

	err := inst.Install(repo, "post-commit", "#!/bin/sh\n# CI-GUARDIAN-HOOK\necho replaced\n")
	var ae *HookAlreadyExistsError
	if !errors.As(err, &ae) {
		t.Fatalf("second Install error = %v, want HookAlreadyExistsError", err)
	}

	data, _ := os.ReadFile(filepath.Join(repo, ".git", "hooks", "post-commit"))
	if string(data) != validHook {
		t.Errorf("original hook modified: %q", data)
	}
}

func TestInstallCustomPolicy(t *testing.T) {
	policy := DefaultPolicy()
	policy.AllowedHooks = append(policy.AllowedHooks, "post-merge")
	policy.MaxSize = 64
	inst := NewWithPolicy(policy, platform.Posix{})

	if err := inst.Install(setupRepo(t), "post-merge", validHook); err != nil {
		t.Errorf("custom whitelist not honored: %v", err)
	}
	big := "#!/bin/sh\n" + strings.Repeat("x", 64)
	var tl *HookTooLargeError
	if err := inst.Install(setupRepo(t), "pre-commit", big); !errors.As(err, &tl) {
		t.Errorf("custom size limit not honored: %v", err)
	}

	// The default installer is unaffected.
	if err := newPosix().ValidateHookName("post-merge"); err == nil {
		t.Error("default policy accepted post-merge")
	}
}

func TestInstallWindowsPlatform(t *testing.T) {
	repo := setupRepo(t)
	inst := New(platform.Windows{})

	if err := inst.Install(repo, "pre-commit", "@echo off\r\nREM CI-GUARDIAN-HOOK\r\n"); err != nil {
		t.Fatalf("Install: %v", err)
	}
	if _, err := os.Stat(filepath.Join(repo, ".git", "hooks", "pre-commit.bat")); err != nil {
		t.Errorf("expected pre-commit.bat: %v", err)
	}
	if err := inst.Install(repo, "pre-push", "#!/bin/zsh\n# CI-GUARDIAN-HOOK\n"); err != nil {
		t.Errorf("windows should accept any #! line: %v", err)
	}
	owned, err := inst.Owns(repo, "pre-commit")
	if err != nil || !owned {
		t.Errorf("Owns(pre-commit) = %v, %v", owned, err)
	}
}

func TestInstallCommitMsg(t *testing.T) {
	repo := setupRepo(t)
	inst := newPosix()

	if err := inst.InstallCommitMsg(repo, validHook); err != nil {
		t.Fatalf("InstallCommitMsg: %v", err)
	}
	var ae *HookAlreadyExistsError
	if err := inst.InstallCommitMsg(repo, validHook); !errors.As(err, &ae) {
		t.Errorf("second InstallCommitMsg error = %v", err)
	}
	var ic *InvalidHookContentError
	if err := inst.InstallCommitMsg(setupRepo(t), "#!/bin/fish\n"); !errors.As(err, &ic) {
		t.Errorf("commit-msg shebang not validated: %v", err)
	}
}

func TestUninstall(t *testing.T) {
	repo := setupRepo(t)
	inst := newPosix()

	removed, err := inst.Uninstall(repo, "pre-commit")
	if err != nil || removed {
		t.Fatalf("Uninstall of absent hook = %v, %v; want false, nil", removed, err)
	}

	if err := inst.Install(repo, "pre-commit", validHook); err != nil {
		t.Fatal(err)
	}
	removed, err = inst.Uninstall(repo, "pre-commit")
	if err != nil || !removed {
		t.Fatalf("Uninstall = %v, %v; want true, nil", removed, err)
	}
	if inst.Exists(repo, "pre-commit") {
		t.Error("hook file still present after uninstall")
	}

	// reinstall works once the file is gone
	if err := inst.Install(repo, "pre-commit", validHook); err != nil {
		t.Errorf("reinstall after uninstall: %v", err)
	}
}

func TestUninstallRefusesForeignHook(t *testing.T) {
	repo := setupRepo(t)
	husky := "#!/bin/sh\n. \"$(dirname \"$0\")/_/husky.sh\"\nnpx lint-staged\n"
	path := filepath.Join(repo, ".git", "hooks", "pre-commit")
	if err := os.WriteFile(path, []byte(husky), 0755); err != nil {
		t.Fatal(err)
	}

	removed, err := newPosix().Uninstall(repo, "pre-commit")
	var no *NotOwnedHookError
	if !errors.As(err, &no) {
		t.Fatalf("Uninstall error = %v, want NotOwnedHookError", err)
	}
	if removed {
		t.Error("removed = true for foreign hook")
	}
	data, _ := os.ReadFile(path)
	if string(data) != husky {
		t.Error("foreign hook modified")
	}
}

func TestUninstallRejectsInvalidName(t *testing.T) {
	var ih *InvalidHookError
	if _, err := newPosix().Uninstall(setupRepo(t), "../../etc/passwd"); !errors.As(err, &ih) {
		t.Errorf("error = %v, want InvalidHookError", err)
	}
}

func TestListInstalledAndOwns(t *testing.T) {
	repo := setupRepo(t)
	inst := newPosix()

	got, err := inst.ListInstalled(repo)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Errorf("ListInstalled on empty repo = %v", got)
	}

	if err := inst.Install(repo, "pre-commit", validHook); err != nil {
		t.Fatal(err)
	}
	if err := inst.InstallCommitMsg(repo, validHook); err != nil {
		t.Fatal(err)
	}
	// foreign hook is not listed
	if err := os.WriteFile(filepath.Join(repo, ".git", "hooks", "pre-push"), []byte("#!/bin/sh\nexit 0\n"), 0755); err != nil {
		t.Fatal(err)
	}

	got, err = inst.ListInstalled(repo)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"commit-msg", "pre-commit"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ListInstalled = %v, want %v", got, want)
	}

	tests := []struct {
		hook string
		want bool
	}{
		{"pre-commit", true},
		{"commit-msg", true},
		{"pre-push", false},
		{"post-commit", false},
	}
	for _, tt := range tests {
		owned, err := inst.Owns(repo, tt.hook)
		if err != nil {
			t.Errorf("Owns(%q) error: %v", tt.hook, err)
		}
		if owned != tt.want {
			t.Errorf("Owns(%q) = %v, want %v", tt.hook, owned, tt.want)
		}
	}
}

func TestInstallDefault(t *testing.T) {
	repo := setupRepo(t)
	inst := newPosix()

	done, err := inst.InstallDefault(repo, "/usr/local/bin/ci-guardian", "test")
	if err != nil {
		t.Fatalf("InstallDefault: %v", err)
	}
	if !reflect.DeepEqual(done, DefaultHooks) {
		t.Errorf("installed = %v, want %v", done, DefaultHooks)
	}
	listed, _ := inst.ListInstalled(repo)
	if len(listed) != 4 {
		t.Errorf("ListInstalled = %v, want 4 hooks", listed)
	}

	// second run stops at the first existing hook
	done, err = inst.InstallDefault(repo, "ci-guardian", "test")
	var ae *HookAlreadyExistsError
	if !errors.As(err, &ae) || len(done) != 0 {
		t.Errorf("second InstallDefault = %v, %v", done, err)
	}
}
