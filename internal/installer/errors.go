package installer

import (
	"errors"
	"fmt"
	"strings"
)

// Error classes. Every installer error unwraps to exactly one of these.
var (
	// ErrPolicy marks a request the installer refuses on principle:
	// unknown hook name, bad interpreter, oversized or empty content,
	// overwriting or deleting a hook it does not own.
	ErrPolicy = errors.New("hook policy violation")

	// ErrEnvironment marks a repository that cannot host hooks.
	ErrEnvironment = errors.New("repository environment problem")
)

// NotAGitRepositoryError is returned when a path has no .git directory.
type NotAGitRepositoryError struct {
	Path string
}

func (e *NotAGitRepositoryError) Error() string {
	return fmt.Sprintf("%s is not a git repository (no .git directory)", e.Path)
}

func (e *NotAGitRepositoryError) Unwrap() error { return ErrEnvironment }

// HooksDirectoryNotFoundError is returned when .git/hooks is missing.
type HooksDirectoryNotFoundError struct {
	Path string
}

func (e *HooksDirectoryNotFoundError) Error() string {
	return fmt.Sprintf("hooks directory not found: %s", e.Path)
}

func (e *HooksDirectoryNotFoundError) Unwrap() error { return ErrEnvironment }

// InvalidHookError is returned for names outside the whitelist.
type InvalidHookError struct {
	Name    string
	Allowed []string
}

func (e *InvalidHookError) Error() string {
	return fmt.Sprintf("hook %q is not allowed (allowed: %s)", e.Name, strings.Join(e.Allowed, ", "))
}

func (e *InvalidHookError) Unwrap() error { return ErrPolicy }

// EmptyContentError is returned when hook content is blank.
type EmptyContentError struct {
	Hook string
}

func (e *EmptyContentError) Error() string {
	return fmt.Sprintf("hook %s: content is empty", e.Hook)
}

func (e *EmptyContentError) Unwrap() error { return ErrPolicy }

// InvalidHookContentError is returned when the interpreter line is not allowed.
type InvalidHookContentError struct {
	Hook string
	Line string
}

func (e *InvalidHookContentError) Error() string {
	if e.Line == "" {
		return fmt.Sprintf("hook %s: missing shebang", e.Hook)
	}
	return fmt.Sprintf("hook %s: shebang %q is not allowed", e.Hook, e.Line)
}

func (e *InvalidHookContentError) Unwrap() error { return ErrPolicy }

// HookTooLargeError is returned when content exceeds the size limit.
type HookTooLargeError struct {
	Hook string
	Size int
	Max  int
}

func (e *HookTooLargeError) Error() string {
	return fmt.Sprintf("hook %s: content is too large (%d bytes, max %d)", e.Hook, e.Size, e.Max)
}

func (e *HookTooLargeError) Unwrap() error { return ErrPolicy }

// HookAlreadyExistsError is returned instead of overwriting a hook file.
type HookAlreadyExistsError struct {
	Hook string
	Path string
}

func (e *HookAlreadyExistsError) Error() string {
	return fmt.Sprintf("hook %s already exists at %s", e.Hook, e.Path)
}

func (e *HookAlreadyExistsError) Unwrap() error { return ErrPolicy }

// NotOwnedHookError is returned when asked to remove a foreign hook.
type NotOwnedHookError struct {
	Hook string
	Path string
}

func (e *NotOwnedHookError) Error() string {
	return fmt.Sprintf("hook %s at %s was not installed by ci-guardian; refusing to remove it", e.Hook, e.Path)
}

func (e *NotOwnedHookError) Unwrap() error { return ErrPolicy }
