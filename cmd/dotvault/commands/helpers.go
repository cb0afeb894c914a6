package commands

import (
	"context"
	"fmt"

	"github.com/systmms/dotvault/internal/backends"
	"github.com/systmms/dotvault/internal/config"
	dverrors "github.com/systmms/dotvault/internal/errors"
	"github.com/systmms/dotvault/internal/lockfile"
	"github.com/systmms/dotvault/internal/prompt"
	"github.com/systmms/dotvault/internal/session"
	"github.com/systmms/dotvault/pkg/backend"
)

// ExitCodeError carries a specific process exit status out of a command.
// Batch commands use it to exit with their failure count.
type ExitCodeError struct {
	Code int
}

func (e ExitCodeError) Error() string {
	return fmt.Sprintf("exit status %d", e.Code)
}

// exitWith converts a failure count into the command result: zero failures
// is success, anything else becomes the exit status.
func exitWith(failures int) error {
	if failures == 0 {
		return nil
	}
	return ExitCodeError{Code: failures}
}

// interactor picks the prompt implementation for the run.
func interactor(cfg *config.Config) prompt.Interactor {
	if cfg.NonInteractive {
		return prompt.NonInteractive{}
	}
	return prompt.NewTerminal()
}

// openBackend builds the selected backend with the run's collaborators and
// the config's vault location hint.
func openBackend(cfg *config.Config) (backend.Backend, error) {
	opts := backends.Options{
		Logger: cfg.Logger,
		Prompt: interactor(cfg),
	}
	if cfg.Document != nil {
		opts.Location = cfg.Document.VaultLocation
	}
	return backends.NewRegistry().FromEnv(cfg.BackendName, opts)
}

// connect loads the config, opens the backend and acquires a session.
// The usual preamble for every command that talks to the vault.
func connect(ctx context.Context, cfg *config.Config) (backend.Backend, backend.Session, error) {
	if err := cfg.Load(); err != nil {
		return nil, backend.Session{}, err
	}

	b, err := openBackend(cfg)
	if err != nil {
		return nil, backend.Session{}, err
	}

	mgr := session.NewManager(b, config.CacheDir(), cfg.Logger)
	sess, err := mgr.Get(ctx)
	if err != nil {
		return nil, backend.Session{}, dverrors.BackendError(b.Name(), "session acquisition", err)
	}
	return b, sess, nil
}

// acquireRunLock serializes mutating commands. The caller must Release.
func acquireRunLock() (*lockfile.Lock, error) {
	return lockfile.Acquire(config.CacheDir(), "run")
}

// offline reports whether vault operations are disabled for this run. The
// caller exits successfully having done nothing.
func offline(cfg *config.Config) bool {
	if cfg.Offline {
		cfg.Logger.Warn("DOTVAULT_OFFLINE is set, skipping all vault operations")
		return true
	}
	return false
}
