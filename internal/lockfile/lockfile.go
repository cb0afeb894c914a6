//go:build !windows

// Package lockfile serializes mutating runs. Two concurrent restores (or a
// restore racing a push) on the same machine would interleave atomic writes
// per item but not per batch, so mutating commands take an advisory flock
// for the whole run.
package lockfile

import (
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"

	dverrors "github.com/systmms/dotvault/internal/errors"
)

// Lock is a held advisory file lock.
type Lock struct {
	file *os.File
	path string
}

// Acquire takes an exclusive non-blocking lock on the named file under dir,
// creating the directory as needed. A second acquisition fails immediately
// with guidance instead of queueing behind the holder.
func Acquire(dir, name string) (*Lock, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create lock dir: %w", err)
	}

	path := filepath.Join(dir, name+".lock")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open lock file: %w", err)
	}

	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		f.Close()
		return nil, dverrors.UserError{
			Message:    "Another dotvault run is already in progress",
			Details:    "lock held on " + path,
			Suggestion: "Wait for the other run to finish, or remove the lock file if it is stale",
		}
	}
	return &Lock{file: f, path: path}, nil
}

// Release drops the lock. Safe to call once; the lock file itself is left in
// place for the next run.
func (l *Lock) Release() error {
	if l == nil || l.file == nil {
		return nil
	}
	err := unix.Flock(int(l.file.Fd()), unix.LOCK_UN)
	closeErr := l.file.Close()
	l.file = nil
	if err != nil {
		return err
	}
	return closeErr
}
