package commands

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/systmms/dotvault/internal/config"
)

// NewListCommand creates the list command.
func NewListCommand(cfg *config.Config) *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the items in the vault namespace",
		RunE: func(cmd *cobra.Command, args []string) error {
			if offline(cfg) {
				return nil
			}

			ctx := cmd.Context()
			b, sess, err := connect(ctx, cfg)
			if err != nil {
				return err
			}

			items, err := b.ListItems(ctx, sess)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			defer w.Flush()

			if verbose {
				fmt.Fprintln(w, "NAME\tTYPE\tTRACKED\tLOCAL PATH")
				for _, item := range items {
					path, tracked := cfg.Document.LocalPath(item.Name)
					mark := "-"
					if tracked {
						mark = "yes"
					} else {
						path = ""
					}
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", item.Name, item.Type, mark, config.CollapseHome(path))
				}
				return nil
			}

			for _, item := range items {
				fmt.Fprintln(w, item.Name)
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Show type, tracking state and local path")
	return cmd
}
