package validators

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ciguardian/ci-guardian/internal/log"
	"github.com/ciguardian/ci-guardian/internal/pathguard"
)

// ExcludedDirs are never searched for Python files.
var ExcludedDirs = []string{
	"venv", ".venv", "env", ".env", "ENV",
	".git", "__pycache__", "build", "dist", ".tox",
	".mypy_cache", ".pytest_cache", "node_modules", ".eggs",
}

func excludedDir(name string) bool {
	for _, d := range ExcludedDirs {
		if d == name {
			return true
		}
	}
	return false
}

// IsPythonFile reports whether path names a .py file.
func IsPythonFile(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".py")
}

// FilterPythonFiles keeps the paths that are existing regular .py files
// inside repoPath and outside ExcludedDirs. Relative paths are taken
// relative to repoPath. The result holds canonical absolute paths in input
// order without duplicates.
func FilterPythonFiles(repoPath string, paths []string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, p := range paths {
		if !IsPythonFile(p) || pathguard.HasParentComponent(p) {
			continue
		}
		candidate := p
		if !filepath.IsAbs(candidate) {
			candidate = filepath.Join(repoPath, candidate)
		}
		abs, err := pathguard.Contain(repoPath, candidate)
		if err != nil {
			log.Debug("skipping %s: %v", p, err)
			continue
		}
		info, err := os.Lstat(abs)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		if underExcluded(repoPath, abs) || seen[abs] {
			continue
		}
		seen[abs] = true
		out = append(out, abs)
	}
	return out
}

func underExcluded(repoPath, abs string) bool {
	base, err := pathguard.Canonical(repoPath)
	if err != nil {
		base = repoPath
	}
	rel, err := filepath.Rel(base, abs)
	if err != nil {
		return true
	}
	parts := strings.Split(filepath.ToSlash(rel), "/")
	for _, dir := range parts[:len(parts)-1] {
		if excludedDir(dir) {
			return true
		}
	}
	return false
}

// FindPythonFiles walks repoPath and returns every project .py file,
// sorted, skipping ExcludedDirs.
func FindPythonFiles(repoPath string) ([]string, error) {
	var found []string
	err := filepath.WalkDir(repoPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != repoPath && excludedDir(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Type().IsRegular() && IsPythonFile(path) {
			found = append(found, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	out := FilterPythonFiles(repoPath, found)
	sort.Strings(out)
	return out, nil
}
