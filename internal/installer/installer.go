// Package installer is the only code that writes into a repository's
// .git directory hooks. It enforces a fixed hook whitelist, an interpreter
// allow-list, a size limit and ownership markers, and never overwrites or
// deletes a hook it did not create.
package installer

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ciguardian/ci-guardian/internal/constants"
	"github.com/ciguardian/ci-guardian/internal/pathguard"
	"github.com/ciguardian/ci-guardian/internal/platform"
)

// Policy holds the installer's immutable limits.
type Policy struct {
	// AllowedHooks is the whitelist accepted by Install.
	AllowedHooks []string
	// SeparateHooks are managed through dedicated entry points
	// (InstallCommitMsg) but obey the same content rules.
	SeparateHooks []string
	// MaxSize is the largest accepted content, in UTF-8 bytes.
	MaxSize int
	// Marker must appear in content for a hook to count as ours.
	Marker string
}

// DefaultPolicy returns the production limits.
func DefaultPolicy() Policy {
	return Policy{
		AllowedHooks: []string{
			constants.HookPreCommit,
			constants.HookPrePush,
			constants.HookPostCommit,
			constants.HookPreRebase,
		},
		SeparateHooks: []string{constants.HookCommitMsg},
		MaxSize:       constants.MaxHookSize,
		Marker:        constants.HookMarker,
	}
}

// Installer installs and removes hook scripts.
type Installer struct {
	policy   Policy
	platform platform.Policy
}

// New returns an Installer with DefaultPolicy for the given platform.
func New(p platform.Policy) *Installer {
	return NewWithPolicy(DefaultPolicy(), p)
}

// NewWithPolicy returns an Installer with custom limits.
func NewWithPolicy(policy Policy, p platform.Policy) *Installer {
	policy.AllowedHooks = append([]string(nil), policy.AllowedHooks...)
	policy.SeparateHooks = append([]string(nil), policy.SeparateHooks...)
	return &Installer{policy: policy, platform: p}
}

// Policy returns a copy of the installer's limits.
func (i *Installer) Policy() Policy {
	p := i.policy
	p.AllowedHooks = append([]string(nil), p.AllowedHooks...)
	p.SeparateHooks = append([]string(nil), p.SeparateHooks...)
	return p
}

// Platform returns the platform policy in use.
func (i *Installer) Platform() platform.Policy {
	return i.platform
}

// IsGitRepository reports whether path contains a .git directory.
// A .git file (submodule or worktree gitlink) does not count.
func IsGitRepository(path string) bool {
	info, err := os.Stat(filepath.Join(path, constants.GitDir))
	return err == nil && info.IsDir()
}

// GitDir returns the control directory of the repository at repoPath.
func GitDir(repoPath string) string {
	return filepath.Join(repoPath, constants.GitDir)
}

// HooksDir returns the hooks directory of the repository at repoPath.
func HooksDir(repoPath string) string {
	return filepath.Join(GitDir(repoPath), constants.HooksDir)
}

// ValidateHookName checks name against the install whitelist.
func (i *Installer) ValidateHookName(name string) error {
	if contains(i.policy.AllowedHooks, name) {
		return nil
	}
	return &InvalidHookError{Name: name, Allowed: i.policy.AllowedHooks}
}

// validateManagedName accepts whitelisted and separately managed hooks.
func (i *Installer) validateManagedName(name string) error {
	if contains(i.policy.AllowedHooks, name) || contains(i.policy.SeparateHooks, name) {
		return nil
	}
	return &InvalidHookError{Name: name, Allowed: i.managedHooks()}
}

func (i *Installer) managedHooks() []string {
	return append(append([]string(nil), i.policy.AllowedHooks...), i.policy.SeparateHooks...)
}

// ValidateShebang checks the first line of content against the platform.
func (i *Installer) ValidateShebang(hook, content string) error {
	first := content
	if idx := strings.IndexByte(content, '\n'); idx >= 0 {
		first = content[:idx]
	}
	first = strings.TrimRight(first, "\r")
	if !i.platform.AcceptsShebang(first) {
		return &InvalidHookContentError{Hook: hook, Line: first}
	}
	return nil
}

// HookPath returns where hook lives on disk, including the platform
// extension. The name must not carry path components.
func (i *Installer) HookPath(repoPath, hook string) (string, error) {
	name, err := pathguard.RejectIfTraversal(hook, "hook name")
	if err != nil {
		return "", err
	}
	if strings.ContainsAny(name, `/\`) {
		return "", &InvalidHookError{Name: hook, Allowed: i.managedHooks()}
	}
	return filepath.Join(HooksDir(repoPath), name+i.platform.HookExtension()), nil
}

// Install writes content as hook in the repository at repoPath.
// Checks run in a fixed order and the first failure is returned before
// anything is written.
func (i *Installer) Install(repoPath, hook, content string) error {
	if !IsGitRepository(repoPath) {
		return &NotAGitRepositoryError{Path: repoPath}
	}
	if err := i.ValidateHookName(hook); err != nil {
		return err
	}
	return i.install(repoPath, hook, content)
}

// InstallCommitMsg installs the commit-msg hook, which sits outside the
// general whitelist but follows the same content rules.
func (i *Installer) InstallCommitMsg(repoPath, content string) error {
	if !IsGitRepository(repoPath) {
		return &NotAGitRepositoryError{Path: repoPath}
	}
	if err := i.validateManagedName(constants.HookCommitMsg); err != nil {
		return err
	}
	return i.install(repoPath, constants.HookCommitMsg, content)
}

func (i *Installer) install(repoPath, hook, content string) error {
	if strings.TrimSpace(content) == "" {
		return &EmptyContentError{Hook: hook}
	}
	if err := i.ValidateShebang(hook, content); err != nil {
		return err
	}
	if size := len(content); size > i.policy.MaxSize {
		return &HookTooLargeError{Hook: hook, Size: size, Max: i.policy.MaxSize}
	}

	hooksDir := HooksDir(repoPath)
	if info, err := os.Stat(hooksDir); err != nil || !info.IsDir() {
		return &HooksDirectoryNotFoundError{Path: hooksDir}
	}

	target, err := i.HookPath(repoPath, hook)
	if err != nil {
		return err
	}
	if _, err := os.Lstat(target); err == nil {
		return &HookAlreadyExistsError{Hook: hook, Path: target}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("checking %s: %w", target, err)
	}

	resolved, err := pathguard.Contain(hooksDir, target)
	if err != nil {
		return err
	}

	f, err := os.OpenFile(resolved, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644) //nolint:gosec // G302: hooks are made executable below
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return &HookAlreadyExistsError{Hook: hook, Path: target}
		}
		return fmt.Errorf("creating hook %s: %w", hook, err)
	}
	if _, err := f.WriteString(content); err != nil {
		f.Close()
		_ = os.Remove(resolved)
		return fmt.Errorf("writing hook %s: %w", hook, err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(resolved)
		return fmt.Errorf("writing hook %s: %w", hook, err)
	}

	if err := i.platform.ApplyExecutablePermissions(resolved); err != nil {
		_ = os.Remove(resolved)
		return fmt.Errorf("making hook %s executable: %w", hook, err)
	}
	return nil
}

// Uninstall removes hook if ci-guardian installed it. It returns false
// when no hook file exists and NotOwnedHookError when the file lacks the
// ownership marker.
func (i *Installer) Uninstall(repoPath, hook string) (bool, error) {
	if err := i.validateManagedName(hook); err != nil {
		return false, err
	}
	if !IsGitRepository(repoPath) {
		return false, &NotAGitRepositoryError{Path: repoPath}
	}
	target, err := i.HookPath(repoPath, hook)
	if err != nil {
		return false, err
	}
	if _, err := pathguard.Contain(HooksDir(repoPath), target); err != nil {
		return false, err
	}

	data, err := os.ReadFile(target)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("reading hook %s: %w", hook, err)
	}
	if !strings.Contains(string(data), i.policy.Marker) {
		return false, &NotOwnedHookError{Hook: hook, Path: target}
	}
	if err := os.Remove(target); err != nil {
		return false, fmt.Errorf("removing hook %s: %w", hook, err)
	}
	return true, nil
}

// Owns reports whether hook exists and carries the ownership marker.
func (i *Installer) Owns(repoPath, hook string) (bool, error) {
	if err := i.validateManagedName(hook); err != nil {
		return false, err
	}
	target, err := i.HookPath(repoPath, hook)
	if err != nil {
		return false, err
	}
	data, err := os.ReadFile(target)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("reading hook %s: %w", hook, err)
	}
	return strings.Contains(string(data), i.policy.Marker), nil
}

// Exists reports whether any file (ours or foreign) is present for hook.
func (i *Installer) Exists(repoPath, hook string) bool {
	target, err := i.HookPath(repoPath, hook)
	if err != nil {
		return false
	}
	_, err = os.Lstat(target)
	return err == nil
}

// ListInstalled returns the sorted names of managed hooks that exist and
// carry the marker.
func (i *Installer) ListInstalled(repoPath string) ([]string, error) {
	if !IsGitRepository(repoPath) {
		return nil, &NotAGitRepositoryError{Path: repoPath}
	}
	var names []string
	for _, hook := range i.managedHooks() {
		owned, err := i.Owns(repoPath, hook)
		if err != nil {
			return nil, err
		}
		if owned {
			names = append(names, hook)
		}
	}
	sort.Strings(names)
	return names, nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
