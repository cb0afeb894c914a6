package commands

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/systmms/dotvault/internal/config"
	"github.com/systmms/dotvault/internal/drift"
)

// NewStatusCommand creates the status command.
func NewStatusCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the drift state of every syncable item",
		Long: `Status compares each syncable item's local file with its vault copy and
prints one line per item: in-sync, diverged, local-only, vault-only or
unknown. Nothing is modified on either side.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if offline(cfg) {
				return nil
			}

			ctx := cmd.Context()
			b, sess, err := connect(ctx, cfg)
			if err != nil {
				return err
			}

			report := drift.Check(ctx, b, sess, cfg.Document, cfg.Document.SyncableNames())

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ITEM\tSTATUS\tPATH")
			for _, result := range report.Results {
				line := fmt.Sprintf("%s\t%s\t%s", result.Name, result.Status, config.CollapseHome(result.Path))
				if result.Detail != "" {
					line += "\t(" + result.Detail + ")"
				}
				fmt.Fprintln(w, line)
			}
			w.Flush()

			if diverged := report.Diverged(); len(diverged) > 0 {
				cfg.Logger.Warn("%d item(s) have local changes; 'dotvault push' uploads them", len(diverged))
			}
			return nil
		},
	}
	return cmd
}
