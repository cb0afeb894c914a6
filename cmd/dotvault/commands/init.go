package commands

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/systmms/dotvault/internal/config"
	dverrors "github.com/systmms/dotvault/internal/errors"
	"github.com/systmms/dotvault/pkg/backend"
)

// NewInitCommand creates the init command.
func NewInitCommand(cfg *config.Config) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a starter config file",
		Long: `Init writes a minimal config with one example entry to edit by hand.
Prefer 'dotvault discover' to build the config from what is actually on the
machine.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat(cfg.Path); err == nil && !force {
				return dverrors.UserError{
					Message:    "Config file already exists: " + cfg.Path,
					Suggestion: "Use --force to replace it, or 'dotvault discover --merge' to extend it",
				}
			}

			doc := &config.Document{
				VaultItems: map[string]config.VaultItem{
					"Git-Config": {Path: "~/.gitconfig", Required: true, Type: backend.TypeFile},
				},
				SyncableItems: map[string]string{
					"Git-Config": "~/.gitconfig",
				},
			}

			if err := doc.Save(cfg.Path); err != nil {
				return err
			}
			cfg.Logger.Info("wrote %s", config.CollapseHome(cfg.Path))
			cfg.Logger.Info("edit it by hand or run 'dotvault discover --merge' to fill it in")
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Replace an existing config")
	return cmd
}
