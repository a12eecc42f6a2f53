// Package config loads the per-repository ci-guardian configuration.
//
// The primary source is .ci-guardian.yaml at the repository root. When it
// is absent, a [tool.ci-guardian] table in pyproject.toml is used, and
// failing that the embedded defaults. A YAML file may carry an _integrity
// block whose hash must match the rest of the document.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ciguardian/ci-guardian/internal/constants"
	"github.com/ciguardian/ci-guardian/internal/log"
)

//go:embed defaults/ci-guardian.yaml
var defaultYAML []byte

// DefaultYAML returns the annotated default configuration file content.
func DefaultYAML() []byte {
	return append([]byte(nil), defaultYAML...)
}

// KnownHooks are the hook sections the configuration understands.
var KnownHooks = []string{
	constants.HookPreCommit,
	constants.HookCommitMsg,
	constants.HookPostCommit,
	constants.HookPrePush,
}

// DefaultValidatorTimeout applies when a validator sets no timeout.
const DefaultValidatorTimeout = 60

// Config is the resolved configuration.
type Config struct {
	// Version is the configuration schema version.
	Version string `yaml:"version"`

	// Hooks maps a git hook name to its settings.
	Hooks map[string]HookConfig `yaml:"hooks"`

	// Validators maps a validator name to its settings.
	Validators map[string]ValidatorConfig `yaml:"validadores"`

	// Integrity is the tamper-detection block, if present.
	Integrity *Integrity `yaml:"_integrity,omitempty"`

	// Source is the file the configuration came from ("" for defaults).
	Source string `yaml:"-"`
}

// HookConfig controls one git hook.
type HookConfig struct {
	// Enabled turns the hook's non-protected validators on or off.
	Enabled bool `yaml:"enabled"`

	// Validators lists validator names in execution order.
	Validators []string `yaml:"validadores"`
}

// ValidatorConfig controls one validator.
type ValidatorConfig struct {
	Enabled bool `yaml:"enabled"`

	// Timeout is in seconds.
	Timeout int `yaml:"timeout"`

	// Protected validators run even when disabled in this file.
	Protected bool `yaml:"protected"`

	// Options are passed to the validator adapter.
	Options map[string]interface{} `yaml:"options"`
}

// Integrity is the _integrity block.
type Integrity struct {
	// Hash is "sha256:" followed by 64 hex digits.
	Hash string `yaml:"hash"`

	// AllowProgrammatic skips the hash check.
	AllowProgrammatic bool `yaml:"allow_programmatic"`
}

// rawConfig mirrors Config with optional fields so absent keys can take
// their defaults instead of Go zero values.
type rawConfig struct {
	Version    string                  `yaml:"version" toml:"version"`
	Hooks      map[string]rawHook      `yaml:"hooks" toml:"hooks"`
	Validators map[string]rawValidator `yaml:"validadores" toml:"validadores"`
	Integrity  *Integrity              `yaml:"_integrity" toml:"-"`
}

type rawHook struct {
	Enabled    *bool    `yaml:"enabled" toml:"enabled"`
	Validators []string `yaml:"validadores" toml:"validadores"`
}

type rawValidator struct {
	Enabled   *bool                  `yaml:"enabled" toml:"enabled"`
	Timeout   *int                   `yaml:"timeout" toml:"timeout"`
	Protected *bool                  `yaml:"protected" toml:"protected"`
	Options   map[string]interface{} `yaml:"options" toml:"options"`
}

// Default returns the built-in configuration.
func Default() *Config {
	var raw rawConfig
	if err := yaml.Unmarshal(defaultYAML, &raw); err != nil {
		panic(fmt.Sprintf("embedded default config is invalid: %v", err))
	}
	cfg, err := resolve(&raw, nil)
	if err != nil {
		panic(fmt.Sprintf("embedded default config is invalid: %v", err))
	}
	return cfg
}

// Path returns the YAML configuration path for a repository.
func Path(repoPath string) string {
	return filepath.Join(repoPath, constants.ConfigFile)
}

// Load reads the configuration for the repository at repoPath.
func Load(repoPath string) (*Config, error) {
	path := Path(repoPath)
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		cfg, perr := loadPyproject(repoPath)
		if perr != nil {
			return nil, perr
		}
		if cfg != nil {
			return cfg, nil
		}
		return Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	cfg.Source = path
	return cfg, nil
}

// Parse decodes YAML content, verifies its integrity block and fills
// defaults. Empty content yields the defaults.
func Parse(data []byte) (*Config, error) {
	if strings.TrimSpace(string(data)) == "" {
		return Default(), nil
	}

	var raw rawConfig
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("invalid YAML: %w", err)
	}
	if raw.Integrity != nil && !raw.Integrity.AllowProgrammatic {
		if err := VerifyIntegrity(data, raw.Integrity.Hash); err != nil {
			return nil, err
		}
	}
	return resolve(&raw, Default())
}

// resolve turns a raw document into a Config, taking missing hooks and
// validators from base (nil while building the defaults themselves).
func resolve(raw *rawConfig, base *Config) (*Config, error) {
	cfg := &Config{
		Version:    raw.Version,
		Hooks:      make(map[string]HookConfig),
		Validators: make(map[string]ValidatorConfig),
		Integrity:  raw.Integrity,
	}
	if base != nil {
		if cfg.Version == "" {
			cfg.Version = base.Version
		}
		for name, h := range base.Hooks {
			cfg.Hooks[name] = h.clone()
		}
		for name, v := range base.Validators {
			cfg.Validators[name] = v.clone()
		}
	}

	for name, h := range raw.Hooks {
		if !isKnownHook(name) {
			log.Warn("config: unknown hook %q ignored (known: %s)", name, strings.Join(KnownHooks, ", "))
			continue
		}
		hc := HookConfig{Enabled: true, Validators: append([]string{}, h.Validators...)}
		if h.Enabled != nil {
			hc.Enabled = *h.Enabled
		}
		cfg.Hooks[name] = hc
	}

	for name, v := range raw.Validators {
		vc := ValidatorConfig{Enabled: true, Timeout: DefaultValidatorTimeout, Options: map[string]interface{}{}}
		if prev, ok := cfg.Validators[name]; ok {
			vc.Protected = prev.Protected
		}
		if v.Enabled != nil {
			vc.Enabled = *v.Enabled
		}
		if v.Timeout != nil {
			if *v.Timeout <= 0 {
				return nil, fmt.Errorf("validator %s: timeout must be positive, got %d", name, *v.Timeout)
			}
			vc.Timeout = *v.Timeout
		}
		if v.Protected != nil {
			vc.Protected = *v.Protected
		}
		for k, val := range v.Options {
			vc.Options[k] = val
		}
		cfg.Validators[name] = vc
	}
	return cfg, nil
}

func isKnownHook(name string) bool {
	for _, h := range KnownHooks {
		if h == name {
			return true
		}
	}
	return false
}

func (h HookConfig) clone() HookConfig {
	h.Validators = append([]string{}, h.Validators...)
	return h
}

func (v ValidatorConfig) clone() ValidatorConfig {
	opts := make(map[string]interface{}, len(v.Options))
	for k, val := range v.Options {
		opts[k] = val
	}
	v.Options = opts
	return v
}

// Hook returns the settings for a hook. Unconfigured hooks are enabled
// with no validators.
func (c *Config) Hook(name string) HookConfig {
	if h, ok := c.Hooks[name]; ok {
		return h
	}
	return HookConfig{Enabled: true}
}

// Validator returns the settings for a validator, defaulting to enabled,
// unprotected, with the default timeout.
func (c *Config) Validator(name string) ValidatorConfig {
	if v, ok := c.Validators[name]; ok {
		return v
	}
	return ValidatorConfig{Enabled: true, Timeout: DefaultValidatorTimeout, Options: map[string]interface{}{}}
}

// TimeoutFor returns a validator's timeout as a duration.
func (c *Config) TimeoutFor(name string) time.Duration {
	secs := c.Validator(name).Timeout
	if secs <= 0 {
		secs = DefaultValidatorTimeout
	}
	return time.Duration(secs) * time.Second
}

// Planned is a validator scheduled to run for a hook.
type Planned struct {
	Name string
	// Forced means configuration disabled it but it is protected.
	Forced bool
}

// Plan lists the validators to run for a hook, in configured order.
// Disabled validators and validators of a disabled hook are dropped
// unless protected; protected ones always run.
func (c *Config) Plan(hook string) []Planned {
	hc := c.Hook(hook)
	var out []Planned
	for _, name := range hc.Validators {
		vc := c.Validator(name)
		switch {
		case hc.Enabled && vc.Enabled:
			out = append(out, Planned{Name: name})
		case vc.Protected:
			out = append(out, Planned{Name: name, Forced: true})
		}
	}
	return out
}

// StringOption returns a string-valued validator option.
func (c *Config) StringOption(validator, key, fallback string) string {
	if v, ok := c.Validator(validator).Options[key]; ok {
		if s := fmt.Sprint(v); s != "" {
			return s
		}
	}
	return fallback
}

// HookNames returns the configured hook names, sorted.
func (c *Config) HookNames() []string {
	names := make([]string, 0, len(c.Hooks))
	for name := range c.Hooks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Marshal renders the configuration as YAML, version first.
func (c *Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}
