package commands

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/systmms/dotvault/internal/config"
	dverrors "github.com/systmms/dotvault/internal/errors"
)

// NewCreateCommand creates the create command.
func NewCreateCommand(cfg *config.Config) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "create <item> [path]",
		Short: "Store a local file as a new vault item",
		Long: `Create reads the file at the given path (or the item's configured local
path) and stores it in the vault under the item name. Creating an item that
already exists with identical content is a no-op; differing content is
refused unless --force replaces it.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if offline(cfg) {
				return nil
			}

			name := args[0]
			ctx := cmd.Context()
			b, sess, err := connect(ctx, cfg)
			if err != nil {
				return err
			}

			path := ""
			if len(args) == 2 {
				path = config.ExpandHome(args[1])
			} else if p, ok := cfg.Document.LocalPath(name); ok {
				path = p
			}
			if path == "" {
				return dverrors.UserError{
					Message:    fmt.Sprintf("No local path known for item '%s'", name),
					Suggestion: "Pass the path explicitly: dotvault create " + name + " <path>",
				}
			}

			data, err := os.ReadFile(path)
			if err != nil {
				return dverrors.UserError{
					Message:    fmt.Sprintf("Cannot read %s", path),
					Suggestion: "Check the path exists and is readable",
					Err:        err,
				}
			}

			lock, err := acquireRunLock()
			if err != nil {
				return err
			}
			defer lock.Release()

			err = b.CreateItem(ctx, name, string(data), sess)
			if err != nil && force && strings.Contains(err.Error(), "already exists") {
				err = b.UpdateItem(ctx, name, string(data), sess)
			}
			if err != nil {
				return dverrors.BackendError(b.Name(), "create", err)
			}

			cfg.Logger.Info("stored %s from %s", name, path)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Replace existing vault content that differs")
	return cmd
}
