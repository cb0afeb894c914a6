package engine

import (
	"context"
	"errors"

	"github.com/systmms/dotvault/internal/config"
	"github.com/systmms/dotvault/pkg/backend"
)

// PushOptions controls a push pass.
type PushOptions struct {
	// Names restricts the pass to the given items. Empty means every
	// syncable item.
	Names []string

	// DryRun reports intended updates without writing to the vault.
	DryRun bool
}

// PushSummary reports the outcome of one push pass.
type PushSummary struct {
	Synced   []string
	UpToDate []string
	Missing  []string // not in the vault; needs an explicit create
	Skipped  []string
	Failed   []string
}

// ExitCode is the count of hard write failures. Skips of any kind never
// make a push run fail.
func (s PushSummary) ExitCode() int {
	return len(s.Failed)
}

// Push uploads local content for the syncable items whose vault copy has
// fallen behind.
//
// Pushing an already-synced set twice is a no-op: the second pass compares
// equal everywhere and performs zero writes. Items absent from the vault are
// never implicitly created; they are counted separately with guidance to run
// an explicit create.
func (e *Engine) Push(ctx context.Context, doc *config.Document, opts PushOptions) (PushSummary, error) {
	var summary PushSummary

	names := opts.Names
	if len(names) == 0 {
		names = doc.SyncableNames()
	}

	for _, name := range names {
		e.pushOne(ctx, doc, name, opts.DryRun, &summary)
	}

	if opts.DryRun {
		e.Logger.Info("dry run: %d item(s) would be updated", len(summary.Synced))
	} else {
		e.Logger.Info("push complete: %d synced, %d up to date, %d failed",
			len(summary.Synced), len(summary.UpToDate), len(summary.Failed))
	}
	return summary, nil
}

func (e *Engine) pushOne(ctx context.Context, doc *config.Document, name string, dryRun bool, summary *PushSummary) {
	path, ok := doc.SyncableItems[name]
	if !ok {
		if path, ok = doc.LocalPath(name); !ok {
			e.Logger.Warn("item %s is not syncable, skipping", name)
			summary.Skipped = append(summary.Skipped, name)
			return
		}
	}

	local, exists, err := readLocal(path)
	if err != nil {
		e.Logger.Error("read %s: %v", path, err)
		summary.Failed = append(summary.Failed, name)
		return
	}
	if !exists {
		e.Logger.Warn("local file %s does not exist, skipping %s", path, name)
		summary.Skipped = append(summary.Skipped, name)
		return
	}

	remote, err := e.Backend.GetContent(ctx, name, e.Session)
	if err != nil {
		var notFound backend.NotFoundError
		if errors.As(err, &notFound) {
			e.Logger.Warn("item %s is not in the vault. Use 'dotvault create %s' first", name, name)
			summary.Missing = append(summary.Missing, name)
			return
		}
		e.Logger.Error("fetch %s: %v", name, err)
		summary.Failed = append(summary.Failed, name)
		return
	}

	if local == remote {
		e.Logger.Debug("item %s is up to date", name)
		summary.UpToDate = append(summary.UpToDate, name)
		return
	}

	if dryRun {
		e.Logger.Info("would update %s from %s", name, path)
		summary.Synced = append(summary.Synced, name)
		return
	}

	if err := e.Backend.UpdateItem(ctx, name, local, e.Session); err != nil {
		e.Logger.Error("update %s: %v", name, err)
		summary.Failed = append(summary.Failed, name)
		return
	}
	e.Logger.Info("pushed %s from %s", name, path)
	summary.Synced = append(summary.Synced, name)
}
