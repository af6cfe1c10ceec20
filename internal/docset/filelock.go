package docset

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"syscall"
	"time"
)

var (
	// ErrLockTimeout indicates the lock acquisition timed out
	ErrLockTimeout = errors.New("lock acquisition timed out")
)

const (
	minLockPoll = 10 * time.Millisecond
	maxLockPoll = 500 * time.Millisecond
)

// FileLock serializes corpus builds between processes sharing a base directory
// using flock(2). The kernel drops the lock if the holder dies.
type FileLock struct {
	path string
	file *os.File
}

// NewFileLock creates a lock on the file at path. Nothing is opened until Acquire.
func NewFileLock(path string) *FileLock {
	return &FileLock{path: path}
}

// Acquire takes the exclusive lock. It returns waited=false when the lock was free
// on the first attempt; otherwise it polls with backoff until the lock is taken,
// timeout passes (ErrLockTimeout) or ctx is done.
func (l *FileLock) Acquire(ctx context.Context, timeout time.Duration) (waited bool, err error) {
	if l.file != nil {
		return false, errors.New("lock already held")
	}
	if err := os.MkdirAll(filepath.Dir(l.path), 0755); err != nil {
		return false, fmt.Errorf("failed to create lock directory: %w", err)
	}
	file, err := os.OpenFile(l.path, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return false, fmt.Errorf("failed to open lock file: %w", err)
	}

	deadline := time.Now().Add(timeout)
	poll := minLockPoll
	for {
		err := syscall.Flock(int(file.Fd()), syscall.LOCK_EX|syscall.LOCK_NB)
		if err == nil {
			l.file = file
			return waited, nil
		}
		if !errors.Is(err, syscall.EWOULDBLOCK) {
			_ = file.Close()
			return waited, fmt.Errorf("flock failed: %w", err)
		}
		if !time.Now().Before(deadline) {
			_ = file.Close()
			return true, ErrLockTimeout
		}

		waited = true
		select {
		case <-ctx.Done():
			_ = file.Close()
			return true, ctx.Err()
		case <-time.After(poll):
			poll = min(poll*2, maxLockPoll)
		}
	}
}

// Release drops the lock. Releasing an unheld lock is a no-op.
func (l *FileLock) Release() error {
	if l.file == nil {
		return nil
	}

	err := syscall.Flock(int(l.file.Fd()), syscall.LOCK_UN)
	closeErr := l.file.Close()
	l.file = nil

	if err != nil {
		return fmt.Errorf("flock unlock failed: %w", err)
	}
	if closeErr != nil {
		return fmt.Errorf("close failed: %w", closeErr)
	}
	return nil
}

// IsHeld reports whether this instance holds the lock.
func (l *FileLock) IsHeld() bool {
	return l.file != nil
}

// Path returns the path to the lock file.
func (l *FileLock) Path() string {
	return l.path
}
