// Package pathguard keeps filesystem access inside an intended base directory.
//
// Every component that reads or writes under the repository's control
// directory goes through Contain (when the base is known) or
// RejectIfTraversal (for raw names before a base exists). Neither function
// mutates the filesystem.
package pathguard

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ciguardian/ci-guardian/internal/log"
)

// PathTraversalError reports a path that escapes its base directory or
// contains a ".." component.
type PathTraversalError struct {
	Label string // what the path was for, e.g. "hook name"
	Path  string
	Base  string // empty for RejectIfTraversal
}

func (e *PathTraversalError) Error() string {
	if e.Base != "" {
		return fmt.Sprintf("Path traversal detected in %s: %q is outside %q", e.Label, e.Path, e.Base)
	}
	return fmt.Sprintf("Path traversal detected in %s: %q", e.Label, e.Path)
}

// IsTraversal reports whether err is (or wraps) a PathTraversalError.
func IsTraversal(err error) bool {
	var pe *PathTraversalError
	return errors.As(err, &pe)
}

// HasParentComponent reports whether raw contains a literal ".." path
// component. Both separators are checked so Windows-style input is caught
// on POSIX too. Names such as "file..txt" are not components and pass.
func HasParentComponent(raw string) bool {
	parts := strings.FieldsFunc(raw, func(r rune) bool { return r == '/' || r == '\\' })
	for _, p := range parts {
		if p == ".." {
			return true
		}
	}
	return false
}

// RejectIfTraversal fails when raw contains a ".." component and otherwise
// returns its cleaned form. label names the input in the error message.
func RejectIfTraversal(raw, label string) (string, error) {
	if HasParentComponent(raw) {
		return "", &PathTraversalError{Label: label, Path: raw}
	}
	return filepath.Clean(raw), nil
}

// Contain resolves base and candidate to canonical absolute paths
// (following symlinks on the existing part of each) and verifies that
// candidate is base or lies beneath it. The canonical candidate is
// returned. Failures are logged as warnings.
func Contain(base, candidate string) (string, error) {
	if HasParentComponent(candidate) {
		log.Warn("path traversal blocked: base=%q candidate=%q", base, candidate)
		return "", &PathTraversalError{Label: "path", Path: candidate, Base: base}
	}

	canonBase, err := Canonical(base)
	if err != nil {
		return "", fmt.Errorf("resolving base %q: %w", base, err)
	}
	canonCand, err := Canonical(candidate)
	if err != nil {
		return "", fmt.Errorf("resolving path %q: %w", candidate, err)
	}

	if !within(canonBase, canonCand) {
		log.Warn("path traversal blocked: base=%q candidate=%q", canonBase, canonCand)
		return "", &PathTraversalError{Label: "path", Path: candidate, Base: base}
	}
	return canonCand, nil
}

// Canonical returns the absolute form of path with symlinks resolved.
// Trailing components that do not exist yet are appended unresolved, so a
// file about to be created still canonicalizes relative to its real parent.
func Canonical(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}

	existing := abs
	var rest []string
	for {
		if _, err := os.Lstat(existing); err == nil {
			break
		}
		parent := filepath.Dir(existing)
		if parent == existing {
			return abs, nil
		}
		rest = append([]string{filepath.Base(existing)}, rest...)
		existing = parent
	}

	resolved, err := filepath.EvalSymlinks(existing)
	if err != nil {
		return "", err
	}
	return filepath.Join(append([]string{resolved}, rest...)...), nil
}

func within(base, candidate string) bool {
	if base == candidate {
		return true
	}
	rel, err := filepath.Rel(base, candidate)
	if err != nil {
		return false
	}
	if filepath.IsAbs(rel) || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return false
	}
	return true
}
