package token

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/ciguardian/ci-guardian/internal/lock"
	"github.com/ciguardian/ci-guardian/internal/util"
)

// TokenMode is the permission set required on the token file.
const TokenMode os.FileMode = 0600

// Mailbox is a single-slot store: Put replaces whatever is there and Take
// empties the slot, returning what it held.
type Mailbox interface {
	Put(value string) error
	// Take removes and returns the slot content. ok is false when the
	// slot was empty. The slot is emptied even when an error is returned.
	Take() (value string, ok bool, err error)
	// Peek reports whether the slot holds something, without consuming it.
	Peek() bool
}

// InsecurePermissionsError is returned when the token file is readable or
// writable by anyone other than its owner.
type InsecurePermissionsError struct {
	Path string
	Mode os.FileMode
}

func (e *InsecurePermissionsError) Error() string {
	return fmt.Sprintf("insecure permissions on %s: %04o (expected %04o)", e.Path, e.Mode.Perm(), TokenMode)
}

// FileMailbox keeps the slot in a single file guarded by an flock, so the
// pre-commit and post-commit processes never see a half-written value.
type FileMailbox struct {
	path       string
	checkModes bool
}

// NewFileMailbox returns a mailbox stored at path. When checkModes is set
// (POSIX), Take refuses files with permissions broader than 0600.
func NewFileMailbox(path string, checkModes bool) *FileMailbox {
	return &FileMailbox{path: path, checkModes: checkModes}
}

// Path returns the backing file.
func (m *FileMailbox) Path() string {
	return m.path
}

// Put writes value with owner-only permissions, replacing any prior value.
func (m *FileMailbox) Put(value string) error {
	return lock.With(m.path, func() error {
		if err := util.AtomicWriteFile(m.path, []byte(value), TokenMode); err != nil {
			return fmt.Errorf("writing token: %w", err)
		}
		return nil
	})
}

// Peek reports whether the token file exists.
func (m *FileMailbox) Peek() bool {
	_, err := os.Lstat(m.path)
	return err == nil
}

// Take reads and deletes the token file. Anything that is not a regular
// file is deleted and reported as present with empty content. A file with
// insecure permissions is deleted unread and reported as an error.
func (m *FileMailbox) Take() (string, bool, error) {
	var (
		value string
		ok    bool
	)
	err := lock.With(m.path, func() error {
		info, err := os.Lstat(m.path)
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("checking token: %w", err)
		}
		ok = true

		if !info.Mode().IsRegular() {
			return m.remove()
		}
		if m.checkModes && info.Mode().Perm()&^TokenMode != 0 {
			if rmErr := m.remove(); rmErr != nil {
				return rmErr
			}
			return &InsecurePermissionsError{Path: m.path, Mode: info.Mode()}
		}

		data, readErr := os.ReadFile(m.path)
		if rmErr := m.remove(); rmErr != nil {
			return rmErr
		}
		if readErr != nil {
			return fmt.Errorf("reading token: %w", readErr)
		}
		value = string(data)
		return nil
	})
	if err != nil {
		return "", ok, err
	}
	return value, ok, nil
}

func (m *FileMailbox) remove() error {
	if err := os.Remove(m.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("removing token: %w", err)
	}
	return nil
}

var _ Mailbox = (*FileMailbox)(nil)
