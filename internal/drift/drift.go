// Package drift compares local files against their vault counterparts.
//
// Drift detection is the safety gate in front of restore: a restore that
// would overwrite uncommitted local edits is refused until the user pushes
// or passes --force. Detection never mutates anything, on either side.
package drift

import (
	"context"
	"errors"
	"os"

	"github.com/systmms/dotvault/internal/config"
	"github.com/systmms/dotvault/pkg/backend"
)

// Status classifies the relationship between a local file and its vault item.
type Status string

const (
	// StatusInSync means both sides exist with identical content.
	StatusInSync Status = "in-sync"
	// StatusDiverged means both sides exist with different content.
	StatusDiverged Status = "diverged"
	// StatusLocalOnly means the file exists but the vault item does not.
	StatusLocalOnly Status = "local-only"
	// StatusVaultOnly means the vault item exists but the file does not.
	StatusVaultOnly Status = "vault-only"
	// StatusUnknown means one side could not be read.
	StatusUnknown Status = "unknown"
)

// Result is the drift verdict for a single item.
type Result struct {
	Name   string
	Path   string
	Status Status
	// Detail carries the read error for StatusUnknown.
	Detail string
}

// Report aggregates per-item results for one detection pass.
type Report struct {
	Results []Result
}

// Diverged returns the names of items whose local content differs from the
// vault. These are the items that block an unforced restore.
func (r Report) Diverged() []string {
	var names []string
	for _, res := range r.Results {
		if res.Status == StatusDiverged {
			names = append(names, res.Name)
		}
	}
	return names
}

// HasDrift reports whether any item diverged.
func (r Report) HasDrift() bool {
	return len(r.Diverged()) > 0
}

// Compare classifies a single local/vault content pair. Pure. Content is
// compared byte for byte; even a trailing-newline difference is drift, since
// restore writes vault content verbatim. A vault item that exists with empty
// content counts as having no counterpart: nothing was ever pushed into it,
// so the local file is the only copy.
func Compare(local, vault string, localExists, vaultExists bool) Status {
	if vault == "" {
		vaultExists = false
	}
	switch {
	case !localExists && !vaultExists:
		return StatusUnknown
	case !vaultExists:
		return StatusLocalOnly
	case !localExists:
		return StatusVaultOnly
	case local == vault:
		return StatusInSync
	default:
		return StatusDiverged
	}
}

// Check runs drift detection for the named items against the backend.
// Items without a local path mapping are skipped. Backend failures other
// than not-found mark the item StatusUnknown instead of aborting the pass,
// so one unreadable item does not hide the verdicts for the rest.
func Check(ctx context.Context, b backend.Backend, sess backend.Session, doc *config.Document, names []string) Report {
	var report Report
	for _, name := range names {
		path, ok := doc.LocalPath(name)
		if !ok {
			continue
		}
		report.Results = append(report.Results, checkOne(ctx, b, sess, name, path))
	}
	return report
}

func checkOne(ctx context.Context, b backend.Backend, sess backend.Session, name, path string) Result {
	result := Result{Name: name, Path: path}

	local, localExists, err := readLocal(path)
	if err != nil {
		result.Status = StatusUnknown
		result.Detail = "read local file: " + err.Error()
		return result
	}

	vault, vaultExists, err := readVault(ctx, b, sess, name)
	if err != nil {
		result.Status = StatusUnknown
		result.Detail = "read vault item: " + err.Error()
		return result
	}

	result.Status = Compare(local, vault, localExists, vaultExists)
	return result
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

func readVault(ctx context.Context, b backend.Backend, sess backend.Session, name string) (string, bool, error) {
	content, err := b.GetContent(ctx, name, sess)
	if err != nil {
		var notFound backend.NotFoundError
		if errors.As(err, &notFound) {
			return "", false, nil
		}
		return "", false, err
	}
	return content, true, nil
}
