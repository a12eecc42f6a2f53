// Package token implements the commit token handshake that makes
// `git commit --no-verify` ineffective.
//
// pre-commit stores a fresh random token after every validator passes.
// post-commit always runs, even with --no-verify, and consumes the token.
// No token means pre-commit was skipped, and the commit is undone.
//
//	NO_TOKEN     --pre-commit passes-->  TOKEN_STORED
//	TOKEN_STORED --post-commit-------->  consumed, commit kept
//	NO_TOKEN     --post-commit-------->  commit reverted
//
// There is one slot. A second pre-commit before the matching post-commit
// overwrites the first token; concurrent commits in one repository are
// not supported.
package token

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ciguardian/ci-guardian/internal/constants"
	"github.com/ciguardian/ci-guardian/internal/git"
	"github.com/ciguardian/ci-guardian/internal/installer"
	"github.com/ciguardian/ci-guardian/internal/platform"
)

// ErrInvalidToken is wrapped by every token value rejection.
var ErrInvalidToken = errors.New("invalid token")

// Generate returns 32 bytes from crypto/rand as 64 lowercase hex characters.
func Generate() (string, error) {
	buf := make([]byte, constants.TokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// Validate checks a token's shape: non-empty, bounded length, hex only.
func Validate(value string) error {
	if value == "" {
		return fmt.Errorf("%w: token is empty", ErrInvalidToken)
	}
	if len(value) > constants.MaxTokenLength {
		return fmt.Errorf("%w: token too long (%d bytes, max %d)", ErrInvalidToken, len(value), constants.MaxTokenLength)
	}
	for i := 0; i < len(value); i++ {
		if !isHex(value[i]) {
			return fmt.Errorf("%w: token contains characters not allowed (only hex digits are accepted)", ErrInvalidToken)
		}
	}
	return nil
}

func isHex(c byte) bool {
	return c >= '0' && c <= '9' || c >= 'a' && c <= 'f' || c >= 'A' && c <= 'F'
}

// Path returns the token file location for a repository.
func Path(repoPath string) string {
	return PathIn(installer.GitDir(repoPath))
}

// PathIn returns the token file location inside a git directory.
func PathIn(gitDir string) string {
	return filepath.Join(gitDir, constants.TokenFile)
}

// Protocol binds the token handshake to one working tree.
type Protocol struct {
	repoPath string
	gitDir   string
	mailbox  Mailbox
	git      *git.Git
}

// New returns a Protocol using the file mailbox at Path(repoPath).
func New(repoPath string, p platform.Policy) *Protocol {
	return NewInGitDir(repoPath, installer.GitDir(repoPath), p)
}

// NewInGitDir returns a Protocol for a working tree whose git directory
// lives at gitDir, as in linked worktrees where .git is a file.
func NewInGitDir(repoPath, gitDir string, p platform.Policy) *Protocol {
	pr := NewWithMailbox(repoPath, NewFileMailbox(PathIn(gitDir), p.EnforcesFileModes()))
	pr.gitDir = gitDir
	return pr
}

// NewWithMailbox returns a Protocol using a custom mailbox.
func NewWithMailbox(repoPath string, mb Mailbox) *Protocol {
	return &Protocol{
		repoPath: repoPath,
		gitDir:   installer.GitDir(repoPath),
		mailbox:  mb,
		git:      git.NewGit(repoPath),
	}
}

// RepoPath returns the working tree the protocol operates on.
func (p *Protocol) RepoPath() string {
	return p.repoPath
}

// GitDir returns the git directory holding the token.
func (p *Protocol) GitDir() string {
	return p.gitDir
}

// checkRepository fails unless the git directory exists as a directory.
func (p *Protocol) checkRepository() error {
	info, err := os.Stat(p.gitDir)
	if err != nil || !info.IsDir() {
		return &installer.NotAGitRepositoryError{Path: p.repoPath}
	}
	return nil
}

// Store validates value and writes it to the mailbox, replacing any
// previous token.
func (p *Protocol) Store(value string) error {
	if err := p.checkRepository(); err != nil {
		return err
	}
	if err := Validate(value); err != nil {
		return err
	}
	return p.mailbox.Put(value)
}

// GenerateAndStore creates a fresh token and stores it.
func (p *Protocol) GenerateAndStore() (string, error) {
	value, err := Generate()
	if err != nil {
		return "", err
	}
	if err := p.Store(value); err != nil {
		return "", err
	}
	return value, nil
}

// ValidateAndConsume reports whether a well-formed token was waiting.
// The token is removed whether or not it was valid. The only check is
// structural; there is no stored secret to compare against.
func (p *Protocol) ValidateAndConsume() (bool, error) {
	if err := p.checkRepository(); err != nil {
		return false, err
	}
	raw, ok, err := p.mailbox.Take()
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}
	return Validate(strings.TrimSpace(raw)) == nil, nil
}

// Pending reports whether a token is waiting, without consuming it.
func (p *Protocol) Pending() bool {
	return p.mailbox.Peek()
}

// RevertOutcome is the result of undoing the last commit.
type RevertOutcome int

const (
	// RevertSucceeded means HEAD moved back one commit.
	RevertSucceeded RevertOutcome = iota
	// RevertFailed means git reported an error.
	RevertFailed
	// RevertNoCommits means HEAD has no parent (root commit).
	RevertNoCommits
)

func (o RevertOutcome) String() string {
	switch o {
	case RevertSucceeded:
		return "succeeded"
	case RevertNoCommits:
		return "no-commits"
	default:
		return "failed"
	}
}

// RevertLastCommit runs `git reset --soft HEAD~1`. Index and working tree
// are untouched, so the commit's changes stay staged.
func (p *Protocol) RevertLastCommit(ctx context.Context) (RevertOutcome, string) {
	res, err := p.git.ResetSoft(ctx, "HEAD~1")
	if err != nil {
		return RevertFailed, fmt.Sprintf("could not run git reset: %v", err)
	}
	if res.ExitCode == 0 {
		return RevertSucceeded, "last commit reverted; changes are still staged"
	}
	stderr := strings.TrimSpace(res.Stderr)
	if git.IsUnknownRevision(stderr) {
		return RevertNoCommits, "no commits to revert (root commit)"
	}
	return RevertFailed, fmt.Sprintf("git reset failed: %s", stderr)
}

// DeleteCurrentBranch removes the ref HEAD points at. This is the only way
// to undo a repository's first commit.
func (p *Protocol) DeleteCurrentBranch(ctx context.Context) (bool, string) {
	ref, err := p.git.SymbolicRef(ctx)
	if err != nil {
		return false, fmt.Sprintf("could not determine current branch: %v", err)
	}
	if err := p.git.DeleteRef(ctx, ref); err != nil {
		return false, fmt.Sprintf("could not delete %s: %v", ref, err)
	}
	return true, fmt.Sprintf("root commit removed by deleting %s; changes are still staged", ref)
}

// Verification describes a post-commit check.
type Verification struct {
	Passed   bool          // a valid token was consumed
	Reverted bool          // the commit was undone
	Outcome  RevertOutcome // meaningful only when Passed is false
	Message  string        // human-readable revert result
	Err      error         // token read failure, e.g. InsecurePermissionsError
}

// Verify consumes the token and, when it is missing or invalid, undoes the
// commit. A root commit falls back to deleting the branch ref. If that
// also fails the failure is reported and nothing further is attempted.
func (p *Protocol) Verify(ctx context.Context) Verification {
	passed, err := p.ValidateAndConsume()
	if err == nil && passed {
		return Verification{Passed: true}
	}

	v := Verification{Err: err}
	v.Outcome, v.Message = p.RevertLastCommit(ctx)
	switch v.Outcome {
	case RevertSucceeded:
		v.Reverted = true
	case RevertNoCommits:
		v.Reverted, v.Message = p.DeleteCurrentBranch(ctx)
	}
	return v
}

// VerifyCommitPassedHooks reports whether the commit went through
// pre-commit, reverting it otherwise.
func (p *Protocol) VerifyCommitPassedHooks(ctx context.Context) bool {
	return p.Verify(ctx).Passed
}
