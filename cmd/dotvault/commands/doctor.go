package commands

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/systmms/dotvault/internal/backends"
	"github.com/systmms/dotvault/internal/config"
	"github.com/systmms/dotvault/pkg/backend"
)

// NewDoctorCommand creates the doctor command.
func NewDoctorCommand(cfg *config.Config) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check backend tooling, authentication and store reachability",
		Long: `Doctor runs a health check against the selected backend: is the CLI
installed, is the vault unlocked, can items be listed. With --all every
supported backend is probed, which is useful before switching.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Load(); err != nil {
				cfg.Logger.Warn("config not loadable: %v", err)
				cfg.Document = &config.Document{}
			} else {
				cfg.Logger.Info("config loaded from %s", config.CollapseHome(cfg.Path))
			}

			registry := backends.NewRegistry()
			names := []string{}
			if all {
				for _, name := range registry.SupportedNames() {
					if name != "mock" {
						names = append(names, name)
					}
				}
			} else {
				b, err := openBackend(cfg)
				if err != nil {
					return err
				}
				names = append(names, b.Name())
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "BACKEND\tTOOL\tAUTH\tSTORE\tITEMS\tNOTES")

			healthy := true
			for _, name := range names {
				b, err := registry.Create(name, backends.Options{
					Logger: cfg.Logger,
					Prompt: interactor(cfg),
				})
				if err != nil {
					return err
				}

				report, err := b.HealthCheck(cmd.Context(), ambientSession(name))
				if err != nil {
					return err
				}
				if !report.StoreReachable {
					healthy = false
				}

				notes := ""
				if len(report.Notes) > 0 {
					notes = report.Notes[0]
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\n",
					report.Backend, mark(report.ToolInstalled), mark(report.Authenticated),
					mark(report.StoreReachable), report.ItemCount, notes)
			}
			w.Flush()

			if !healthy && !all {
				return ExitCodeError{Code: 1}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "Probe every supported backend")
	return cmd
}

// ambientSession supplies the environment session token where one exists;
// doctor never prompts to unlock.
func ambientSession(backendName string) backend.Session {
	if backendName == "bitwarden" {
		return backend.Session{Token: os.Getenv("BW_SESSION")}
	}
	return backend.Session{}
}

func mark(ok bool) string {
	if ok {
		return "ok"
	}
	return "fail"
}
