package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/systmms/dotvault/cmd/dotvault/commands"
	"github.com/systmms/dotvault/internal/config"
	dverrors "github.com/systmms/dotvault/internal/errors"
	"github.com/systmms/dotvault/internal/logging"
	"github.com/systmms/dotvault/internal/secure"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	defer secure.Purge()

	if err := run(); err != nil {
		var exitErr commands.ExitCodeError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", dverrors.Simplify(err))
		os.Exit(1)
	}
}

func run() error {
	// Global flags
	var (
		configFile     string
		backendName    string
		noColor        bool
		debug          bool
		nonInteractive bool
	)

	cfg := &config.Config{}

	rootCmd := &cobra.Command{
		Use:   "dotvault",
		Short: "Sync developer secrets between a vault and the local machine",
		Long: `dotvault restores credential files and SSH keys from your password
vault onto a machine, and pushes local changes back, without ever writing
secret content into the repository holding your dotfiles.`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger := logging.New(debug, noColor)

			cfg.Path = configFile
			if cfg.Path == "" {
				cfg.Path = config.DefaultPath()
			}
			cfg.Logger = logger
			cfg.NonInteractive = nonInteractive
			cfg.BackendName = backendName
			cfg.Offline = os.Getenv("DOTVAULT_OFFLINE") == "1"
		},
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Config file path (default ~/.config/dotvault/config.json)")
	rootCmd.PersistentFlags().StringVar(&backendName, "backend", "", "Vault backend: bitwarden, onepassword, pass (default $DOTVAULT_BACKEND or bitwarden)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&nonInteractive, "non-interactive", false, "Fail instead of prompting for input")

	rootCmd.AddCommand(
		commands.NewRestoreCommand(cfg),
		commands.NewPushCommand(cfg),
		commands.NewCreateCommand(cfg),
		commands.NewDeleteCommand(cfg),
		commands.NewListCommand(cfg),
		commands.NewValidateCommand(cfg),
		commands.NewStatusCommand(cfg),
		commands.NewDiscoverCommand(cfg),
		commands.NewInitCommand(cfg),
		commands.NewDoctorCommand(cfg),
		commands.NewCompletionCommand(cfg),
	)

	return rootCmd.Execute()
}
