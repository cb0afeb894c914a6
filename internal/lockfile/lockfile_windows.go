//go:build windows

// Package lockfile serializes mutating runs. On Windows exclusive opens
// stand in for flock.
package lockfile

import (
	"fmt"
	"os"
	"path/filepath"

	dverrors "github.com/systmms/dotvault/internal/errors"
)

// Lock is a held run lock.
type Lock struct {
	file *os.File
	path string
}

// Acquire creates the lock file exclusively; an existing file means another
// run holds the lock.
func Acquire(dir, name string) (*Lock, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create lock dir: %w", err)
	}

	path := filepath.Join(dir, name+".lock")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_RDWR, 0o600)
	if err != nil {
		if os.IsExist(err) {
			return nil, dverrors.UserError{
				Message:    "Another dotvault run is already in progress",
				Details:    "lock held on " + path,
				Suggestion: "Wait for the other run to finish, or remove the lock file if it is stale",
			}
		}
		return nil, fmt.Errorf("open lock file: %w", err)
	}
	return &Lock{file: f, path: path}, nil
}

// Release drops the lock and removes the lock file.
func (l *Lock) Release() error {
	if l == nil || l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	os.Remove(l.path)
	return err
}
