package commands

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/systmms/dotvault/internal/config"
	"github.com/systmms/dotvault/internal/engine"
	dverrors "github.com/systmms/dotvault/internal/errors"
)

// NewRestoreCommand creates the restore command.
func NewRestoreCommand(cfg *config.Config) *cobra.Command {
	var (
		force   bool
		preview bool
	)

	cmd := &cobra.Command{
		Use:   "restore [item...]",
		Short: "Fetch secrets from the vault and write them to their local paths",
		Long: `Restore fetches every configured item (or only the named ones) from the
vault and writes each to its local path: SSH keys are split into the private
key and its .pub counterpart, everything else is written whole.

Before anything is written, tracked syncable files are checked for local
changes. Any diverged file aborts the whole restore so a batch can never
partially overwrite local edits; push the changes first, inspect them with
'dotvault status', or re-run with --force.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if offline(cfg) {
				return nil
			}

			ctx := cmd.Context()
			b, sess, err := connect(ctx, cfg)
			if err != nil {
				return err
			}

			lock, err := acquireRunLock()
			if err != nil {
				return err
			}
			defer lock.Release()

			b.SyncRemote(ctx, sess)

			e := engine.New(b, sess, cfg.Logger)
			summary, err := e.Restore(ctx, cfg.Document, engine.RestoreOptions{
				Names:   args,
				Force:   force,
				Preview: preview,
			})
			if err != nil {
				var driftErr dverrors.DriftError
				if errors.As(err, &driftErr) {
					return ExitCodeError{Code: 1}
				}
				return err
			}

			if preview {
				for _, planned := range summary.Planned {
					cmd.Println(planned)
				}
				return nil
			}
			return exitWith(summary.ExitCode())
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite local files even when they have diverged")
	cmd.Flags().BoolVar(&preview, "preview", false, "Report intended writes without performing them")
	return cmd
}
