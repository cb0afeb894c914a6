package commands

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/systmms/dotvault/internal/config"
	dverrors "github.com/systmms/dotvault/internal/errors"
	"github.com/systmms/dotvault/internal/validate"
)

// NewValidateCommand creates the validate command.
func NewValidateCommand(cfg *config.Config) *cobra.Command {
	var remote bool

	cmd := &cobra.Command{
		Use:   "validate [config-path]",
		Short: "Check the config document and, optionally, vault content shapes",
		Long: `Validate checks the configuration document against its schema and the
item naming convention. With --remote it also fetches every configured item
and checks the content shape: key items must contain a parseable key pair,
file items must be non-trivially sized.

All failures are collected and reported in one pass; the exit status is 1
when any check failed.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := cfg.Path
			if len(args) == 1 {
				path = config.ExpandHome(args[0])
			}

			data, err := os.ReadFile(path)
			if err != nil {
				return dverrors.UserError{
					Message:    "Cannot read config file " + path,
					Suggestion: "Run 'dotvault discover' or 'dotvault init' to create one",
					Err:        err,
				}
			}

			report, err := validate.Document(data, path)
			if err != nil {
				return err
			}

			if remote && !cfg.Offline {
				cfg.Path = path
				b, sess, err := connect(cmd.Context(), cfg)
				if err != nil {
					return err
				}
				remoteReport := validate.Remote(cmd.Context(), b, sess, cfg.Document)
				report.Issues = append(report.Issues, remoteReport.Issues...)
			}

			for _, issue := range report.Issues {
				cfg.Logger.Error("%s", issue)
			}
			if report.Count() > 0 {
				cfg.Logger.Error("%d validation failure(s)", report.Count())
				return ExitCodeError{Code: 1}
			}
			cfg.Logger.Info("configuration is valid")
			return nil
		},
	}

	cmd.Flags().BoolVar(&remote, "remote", false, "Also shape-check the vault content of every item")
	return cmd
}
