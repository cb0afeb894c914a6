package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/systmms/dotvault/internal/config"
	"github.com/systmms/dotvault/internal/prompt"
)

// NewDeleteCommand creates the delete command.
func NewDeleteCommand(cfg *config.Config) *cobra.Command {
	var (
		dryRun bool
		force  bool
	)

	cmd := &cobra.Command{
		Use:   "delete <item>...",
		Short: "Remove items from the vault",
		Long: `Delete removes the named items from the vault. Items tracked in the
config are protected: deleting one requires re-typing its exact name, and
--force does not bypass that. A wrong confirmation skips the item without
failing the run.

The exit status is the number of failed deletions.`,
		Args: cobra.MinimumNArgs(1),
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

			ask := interactor(cfg)
			failures := 0
			for _, name := range args {
				if !confirmDelete(cfg, ask, name, force) {
					cfg.Logger.Warn("skipping %s", name)
					continue
				}
				if dryRun {
					cfg.Logger.Info("would delete %s", name)
					continue
				}
				if err := b.DeleteItem(ctx, name, sess); err != nil {
					cfg.Logger.Error("delete %s: %v", name, err)
					failures++
					continue
				}
				cfg.Logger.Info("deleted %s", name)
			}
			return exitWith(failures)
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Report intended deletions without performing them")
	cmd.Flags().BoolVar(&force, "force", false, "Skip the yes/no confirmation for unprotected items")
	return cmd
}

// confirmDelete gates a deletion. Protected items always demand the exact
// name typed back; unprotected items take a yes/no unless forced.
func confirmDelete(cfg *config.Config, ask prompt.Interactor, name string, force bool) bool {
	if cfg.Document.IsProtected(name) {
		answer, err := ask.ReadLine(fmt.Sprintf(
			"%s is tracked in the config. Type the item name to confirm deletion:", name))
		if err != nil {
			return false
		}
		return answer == name
	}

	if force {
		return true
	}
	ok, err := ask.Confirm(fmt.Sprintf("Delete %s from the vault?", name))
	return err == nil && ok
}
