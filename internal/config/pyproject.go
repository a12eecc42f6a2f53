package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/ciguardian/ci-guardian/internal/constants"
)

// pyproject is the subset of pyproject.toml ci-guardian reads.
type pyproject struct {
	Tool struct {
		CIGuardian *rawConfig `toml:"ci-guardian"`
	} `toml:"tool"`
}

// loadPyproject returns the [tool.ci-guardian] table from pyproject.toml,
// or nil when the file or table is absent. No integrity check applies.
func loadPyproject(repoPath string) (*Config, error) {
	path := filepath.Join(repoPath, constants.PyprojectFile)
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	var doc pyproject
	if err := toml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%s: invalid TOML: %w", path, err)
	}
	if doc.Tool.CIGuardian == nil {
		return nil, nil
	}
	cfg, err := resolve(doc.Tool.CIGuardian, Default())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	cfg.Source = path
	return cfg, nil
}
