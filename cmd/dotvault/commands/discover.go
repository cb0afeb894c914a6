package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/systmms/dotvault/internal/config"
	"github.com/systmms/dotvault/internal/discover"
	dverrors "github.com/systmms/dotvault/internal/errors"
	"github.com/systmms/dotvault/pkg/backend"
)

// NewDiscoverCommand creates the discover command.
func NewDiscoverCommand(cfg *config.Config) *cobra.Command {
	var (
		dryRun   bool
		force    bool
		doMerge  bool
		location string
	)

	cmd := &cobra.Command{
		Use:   "discover",
		Short: "Scan the machine for credential files and build the config",
		Long: `Discover scans well-known locations (~/.ssh, ~/.aws, ~/.gitconfig and
friends) and produces a configuration document. With an existing config,
--merge reconciles the scan with it, preserving manual edits such as a
required:false downgrade; --force replaces it outright.

Discovery only reads the filesystem; the vault is never contacted.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			scanner, err := discover.NewScanner(cfg.Logger)
			if err != nil {
				return err
			}
			candidate, err := scanner.Discover(cmd.Context())
			if err != nil {
				return err
			}

			if location != "" {
				loc, err := parseLocation(location)
				if err != nil {
					return err
				}
				candidate.VaultLocation = loc
			}

			doc := candidate
			if existing, err := os.ReadFile(cfg.Path); err == nil {
				switch {
				case doMerge:
					prior, err := config.Parse(existing, cfg.Path)
					if err != nil {
						return err
					}
					var warnings []string
					doc, warnings = discover.Merge(candidate, prior)
					for _, warning := range warnings {
						cfg.Logger.Warn("%s", warning)
					}
				case !force:
					return dverrors.UserError{
						Message:    "Config file already exists: " + cfg.Path,
						Suggestion: "Use --merge to reconcile with it, or --force to replace it",
					}
				}
			}

			if dryRun {
				out, err := json.MarshalIndent(doc, "", "  ")
				if err != nil {
					return err
				}
				cmd.Println(string(out))
				return nil
			}

			if err := doc.Save(cfg.Path); err != nil {
				return err
			}
			cfg.Logger.Info("wrote %s: %d item(s), %d ssh key(s), %d aws profile(s)",
				config.CollapseHome(cfg.Path), len(doc.VaultItems), len(doc.SSHKeys), len(doc.AWSExpectedProfiles))
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print the resulting document without writing it")
	cmd.Flags().BoolVar(&force, "force", false, "Replace an existing config instead of refusing")
	cmd.Flags().BoolVar(&doMerge, "merge", false, "Reconcile the scan with the existing config")
	cmd.Flags().StringVar(&location, "location", "", "Vault namespace hint as type:value (e.g. folder:dotfiles)")
	return cmd
}

func parseLocation(s string) (*backend.Location, error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return nil, fmt.Errorf("invalid --location %q, expected type:value", s)
	}
	return &backend.Location{Type: parts[0], Value: parts[1]}, nil
}
