package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/systmms/dotvault/internal/config"
	"github.com/systmms/dotvault/internal/drift"
	dverrors "github.com/systmms/dotvault/internal/errors"
	"github.com/systmms/dotvault/internal/sshkey"
	"github.com/systmms/dotvault/pkg/backend"
)

// RestoreOptions controls a restore pass.
type RestoreOptions struct {
	// Names restricts the pass to the given items. Empty means every
	// configured vault item.
	Names []string

	// Force skips the drift gate and overwrites diverged local files.
	Force bool

	// Preview stops after the drift check and reports intended writes.
	Preview bool
}

// RestoreSummary reports the outcome of one restore pass.
type RestoreSummary struct {
	Restored        []string
	Skipped         []string // absent or empty in the vault
	MissingRequired []string // required items with no vault copy
	Flagged         []string // written whole because the key content was unparseable
	Failed          []string
	Planned         []string // preview only
}

// ExitCode is the process exit status for this summary: the count of hard
// failures, so a run full of soft skips still exits zero.
func (s RestoreSummary) ExitCode() int {
	return len(s.Failed)
}

// Restore fetches the configured items from the vault and writes them to
// their local paths.
//
// Before anything is written the syncable items are drift-checked; any
// diverged item aborts the whole pass with a DriftError unless Force is set.
// The gate runs over the full batch up front so a multi-item restore can
// never partially overwrite local edits.
func (e *Engine) Restore(ctx context.Context, doc *config.Document, opts RestoreOptions) (RestoreSummary, error) {
	var summary RestoreSummary

	names, unknown := targets(doc, opts.Names)
	for _, name := range unknown {
		e.Logger.Warn("item %s is not in the config, skipping", name)
		summary.Skipped = append(summary.Skipped, name)
	}

	if !opts.Force {
		report := drift.Check(ctx, e.Backend, e.Session, doc, syncableAmong(doc, names))
		if report.HasDrift() {
			diverged := report.Diverged()
			e.Logger.Error("local changes would be overwritten: %s", strings.Join(diverged, ", "))
			e.Logger.Error("push them first ('dotvault push'), inspect with 'dotvault status', or re-run with --force")
			return summary, dverrors.DriftError{Items: diverged}
		}
	}

	if opts.Preview {
		for _, name := range names {
			if path, ok := doc.LocalPath(name); ok {
				summary.Planned = append(summary.Planned, fmt.Sprintf("%s -> %s", name, path))
			}
		}
		return summary, nil
	}

	for _, name := range names {
		e.restoreOne(ctx, doc, name, &summary)
	}

	e.Logger.Info("restore complete: %d restored, %d skipped, %d failed",
		len(summary.Restored), len(summary.Skipped), len(summary.Failed))
	if len(summary.MissingRequired) > 0 {
		e.Logger.Warn("required items missing from the vault: %s",
			strings.Join(summary.MissingRequired, ", "))
	}
	return summary, nil
}

func (e *Engine) restoreOne(ctx context.Context, doc *config.Document, name string, summary *RestoreSummary) {
	path, ok := doc.LocalPath(name)
	if !ok {
		e.Logger.Warn("item %s has no local path, skipping", name)
		summary.Skipped = append(summary.Skipped, name)
		return
	}

	content, err := e.Backend.GetContent(ctx, name, e.Session)
	if err != nil {
		var notFound backend.NotFoundError
		if errors.As(err, &notFound) {
			if doc.VaultItems[name].Required {
				e.Logger.Warn("required item %s is not in the vault. Use 'dotvault create %s' to add it", name, name)
				summary.MissingRequired = append(summary.MissingRequired, name)
				return
			}
			e.Logger.Warn("item %s is not in the vault, skipping", name)
			summary.Skipped = append(summary.Skipped, name)
			return
		}
		e.Logger.Error("fetch %s: %v", name, err)
		summary.Failed = append(summary.Failed, name)
		return
	}
	if strings.TrimSpace(content) == "" {
		e.Logger.Warn("item %s has empty content, skipping", name)
		summary.Skipped = append(summary.Skipped, name)
		return
	}

	item := doc.VaultItems[name]
	if item.Type == backend.TypeSSHKey || sshkey.HasPrivateKeyDelimiters(content) {
		e.restoreKey(name, path, content, summary)
		return
	}

	if err := writeAtomic(path, content, permPublic); err != nil {
		e.Logger.Error("write %s: %v", path, err)
		summary.Failed = append(summary.Failed, name)
		return
	}
	e.Logger.Info("restored %s -> %s", name, path)
	summary.Restored = append(summary.Restored, name)
}

// restoreKey splits combined key content into the private block and the
// public line. The private key always lands at the configured path with
// owner-only permissions; the public key, when present, lands next to it
// with a .pub suffix. Content without a parseable private block is written
// whole and flagged rather than dropped.
func (e *Engine) restoreKey(name, path, content string, summary *RestoreSummary) {
	pair, err := sshkey.Parse(content)
	if err != nil {
		if writeErr := writeAtomic(path, content, permPrivate); writeErr != nil {
			e.Logger.Error("write %s: %v", path, writeErr)
			summary.Failed = append(summary.Failed, name)
			return
		}
		e.Logger.Warn("%s: content is not a recognizable key pair, written as-is to %s", name, path)
		summary.Flagged = append(summary.Flagged, name)
		return
	}

	if err := writeAtomic(path, pair.PrivateKey, permPrivate); err != nil {
		e.Logger.Error("write %s: %v", path, err)
		summary.Failed = append(summary.Failed, name)
		return
	}
	if pair.HasPublicKey() {
		if err := writeAtomic(path+".pub", pair.PublicKey, permPublic); err != nil {
			e.Logger.Error("write %s.pub: %v", path, err)
			summary.Failed = append(summary.Failed, name)
			return
		}
	}
	e.Logger.Info("restored %s -> %s", name, path)
	summary.Restored = append(summary.Restored, name)
}

// syncableAmong filters names down to those tracked in syncable_items, the
// set the drift gate protects.
func syncableAmong(doc *config.Document, names []string) []string {
	var out []string
	for _, name := range names {
		if _, ok := doc.SyncableItems[name]; ok {
			out = append(out, name)
		}
	}
	return out
}
