// Package constants defines shared constant values used throughout ci-guardian.
package constants

import "time"

// Files and directories inside a repository.
const (
	// GitDir is the repository control directory.
	GitDir = ".git"

	// HooksDir is the hooks directory inside GitDir.
	HooksDir = "hooks"

	// TokenFile is the commit token's file name inside GitDir.
	TokenFile = "CI_GUARDIAN_TOKEN"

	// StateDir holds ci-guardian's own state (audit log) inside GitDir.
	StateDir = "ci-guardian"

	// ConfigFile is the per-repository configuration file.
	ConfigFile = ".ci-guardian.yaml"

	// PyprojectFile is consulted when ConfigFile is absent.
	PyprojectFile = "pyproject.toml"

	// DefaultWorkflow is the GitHub Actions workflow run by pre-push.
	DefaultWorkflow = ".github/workflows/ci.yml"
)

// Hook names.
const (
	HookPreCommit  = "pre-commit"
	HookPrePush    = "pre-push"
	HookPostCommit = "post-commit"
	HookPreRebase  = "pre-rebase"
	HookCommitMsg  = "commit-msg"
)

// HookMarker identifies hook scripts written by ci-guardian.
const HookMarker = "CI-GUARDIAN-HOOK"

// MaxHookSize is the largest hook script accepted, in bytes (100 KiB).
const MaxHookSize = 100 * 1024

// Token limits.
const (
	// TokenBytes is the number of random bytes in a commit token.
	TokenBytes = 32

	// MaxTokenLength bounds stored token values.
	MaxTokenLength = 1024
)

// Timeouts for external commands.
const (
	// GitTimeout bounds git plumbing calls.
	GitTimeout = 10 * time.Second

	// ValidatorTimeout is the default per-validator timeout.
	ValidatorTimeout = 60 * time.Second

	// TestsTimeout bounds the pre-push test run.
	TestsTimeout = 300 * time.Second
)

// Environment variables.
const (
	// EnvSkipTests skips pre-push validation when set to "1".
	EnvSkipTests = "CI_GUARDIAN_SKIP_TESTS"
)
