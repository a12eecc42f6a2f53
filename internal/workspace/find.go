// Package workspace locates the git repository ci-guardian operates on.
package workspace

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ciguardian/ci-guardian/internal/constants"
)

// ErrNotFound indicates no repository was found.
var ErrNotFound = errors.New("not inside a git repository")

// LinkedGitDirError is returned when .git is a file, as in linked
// worktrees and submodules. Hooks are only managed for a repository's own
// .git directory.
type LinkedGitDirError struct {
	Root string
}

func (e *LinkedGitDirError) Error() string {
	return fmt.Sprintf("%s: .git is a file (worktree or submodule); run ci-guardian from the main repository", e.Root)
}

// Find locates the repository root by walking up from startDir to the
// first directory containing a .git directory. It returns "" when there is
// none. Does not resolve symlinks to stay consistent with os.Getwd().
func Find(startDir string) (string, error) {
	absDir, err := filepath.Abs(startDir)
	if err != nil {
		return "", fmt.Errorf("resolving path: %w", err)
	}

	current := absDir
	for {
		info, err := os.Stat(filepath.Join(current, constants.GitDir))
		if err == nil {
			if !info.IsDir() {
				return "", &LinkedGitDirError{Root: current}
			}
			return current, nil
		}

		parent := filepath.Dir(current)
		if parent == current {
			return "", nil
		}
		current = parent
	}
}

// FindOrError is like Find but returns ErrNotFound when there is no
// repository.
func FindOrError(startDir string) (string, error) {
	root, err := Find(startDir)
	if err != nil {
		return "", err
	}
	if root == "" {
		return "", ErrNotFound
	}
	return root, nil
}

// FindFromCwdOrError locates the repository from the working directory.
func FindFromCwdOrError() (string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("getting current directory: %w", err)
	}
	return FindOrError(cwd)
}

// Resolve returns the repository root for an explicit --repo value, or
// discovers it from the working directory when flag is empty. An explicit
// path must itself be the repository root.
func Resolve(flag string) (string, error) {
	if flag == "" {
		return FindFromCwdOrError()
	}
	abs, err := filepath.Abs(flag)
	if err != nil {
		return "", fmt.Errorf("resolving path: %w", err)
	}
	return abs, nil
}
