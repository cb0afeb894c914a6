// Package engine orchestrates the restore and push flows over a backend.
//
// Both flows are batch operations with accumulate-and-continue error
// handling: per-item failures land in the summary and shape the exit code,
// they never abort the remaining items. The single exception is the drift
// gate in front of restore, which aborts before any file is touched.
package engine

import (
	"os"
	"path/filepath"

	"github.com/systmms/dotvault/internal/config"
	"github.com/systmms/dotvault/internal/logging"
	"github.com/systmms/dotvault/pkg/backend"
)

// Permission classes for restored files. Private key material is owner-only;
// public keys and config files are world-readable like ssh-keygen and git
// themselves create them.
const (
	permPrivate = os.FileMode(0o600)
	permPublic  = os.FileMode(0o644)
)

// Engine runs restore and push against one authenticated backend session.
type Engine struct {
	Backend backend.Backend
	Session backend.Session
	Logger  *logging.Logger
}

// New creates an engine bound to an authenticated session.
func New(b backend.Backend, sess backend.Session, logger *logging.Logger) *Engine {
	return &Engine{Backend: b, Session: sess, Logger: logger}
}

// targets resolves the requested names against the document, defaulting to
// every configured vault item. Unknown names are returned separately so the
// caller can report them without aborting the batch.
func targets(doc *config.Document, names []string) (known, unknown []string) {
	if len(names) == 0 {
		return doc.ItemNames(), nil
	}
	for _, name := range names {
		if _, ok := doc.VaultItems[name]; ok {
			known = append(known, name)
		} else {
			unknown = append(unknown, name)
		}
	}
	return known, unknown
}

// writeAtomic writes content via a temp file in the target directory, sets
// the final permissions before the rename, and renames into place so readers
// never observe a partial file.
func writeAtomic(path, content string, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+"-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(perm); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

func readLocal(path string) (string, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", false, nil
		}
		return "", false, err
	}
	return string(data), true, nil
}
