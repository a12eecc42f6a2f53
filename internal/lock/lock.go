// Package lock serializes access to ci-guardian state files across the
// separate processes git spawns for each hook.
//
// A lock for <path> is an flock on <path>.lock. The lock file itself is
// left in place after release; only the kernel lock matters.
package lock

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
)

// DefaultTimeout is how long Acquire waits for a contended lock.
const DefaultTimeout = 5 * time.Second

// retryDelay is the polling interval while waiting for the lock.
const retryDelay = 100 * time.Millisecond

// ErrLocked is returned when the lock could not be obtained in time.
var ErrLocked = errors.New("state file is locked by another process")

// Lock is a held exclusive lock.
type Lock struct {
	fl *flock.Flock
}

// Path returns the lock file path guarding target.
func Path(target string) string {
	return target + ".lock"
}

// Acquire takes an exclusive lock guarding target, waiting up to timeout
// (DefaultTimeout when zero).
func Acquire(target string, timeout time.Duration) (*Lock, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	lockPath := Path(target)
	if err := os.MkdirAll(filepath.Dir(lockPath), 0755); err != nil {
		return nil, fmt.Errorf("creating lock directory: %w", err)
	}

	fl := flock.New(lockPath)
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	locked, err := fl.TryLockContext(ctx, retryDelay)
	if err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return nil, fmt.Errorf("acquiring lock %s: %w", lockPath, err)
	}
	if !locked {
		return nil, fmt.Errorf("%w: %s", ErrLocked, lockPath)
	}
	return &Lock{fl: fl}, nil
}

// Release drops the lock. Safe to call on a nil Lock.
func (l *Lock) Release() error {
	if l == nil || l.fl == nil {
		return nil
	}
	return l.fl.Unlock()
}

// With runs fn while holding the lock for target.
func With(target string, fn func() error) error {
	l, err := Acquire(target, 0)
	if err != nil {
		return err
	}
	defer l.Release() //nolint:errcheck // unlock failure leaves nothing to recover
	return fn()
}
