package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/systmms/dotvault/internal/config"
	"github.com/systmms/dotvault/internal/engine"
	"github.com/systmms/dotvault/internal/prompt"
)

// NewPushCommand creates the push command.
func NewPushCommand(cfg *config.Config) *cobra.Command {
	var (
		all    bool
		dryRun bool
	)

	cmd := &cobra.Command{
		Use:   "push (--all | item...)",
		Short: "Upload local file changes to the vault",
		Long: `Push compares each syncable item's local file with its vault copy and
updates the vault where the local side has changed. Items missing from the
vault are never created implicitly; run 'dotvault create' for those.

The exit status is the number of failed writes, so a run with only skips
still succeeds.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !all && len(args) == 0 {
				return fmt.Errorf("name the items to push, or pass --all")
			}
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

			names := args
			if all {
				names = nil
			}

			// Key pairs are restore-oriented; pushing one uploads private
			// key content, so an explicitly named key gets a confirmation.
			if !dryRun {
				names = confirmKeyPushes(cfg, interactor(cfg), names)
			}

			e := engine.New(b, sess, cfg.Logger)
			summary, err := e.Push(ctx, cfg.Document, engine.PushOptions{
				Names:  names,
				DryRun: dryRun,
			})
			if err != nil {
				return err
			}
			return exitWith(summary.ExitCode())
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "Push every syncable item")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Report intended updates without writing")
	return cmd
}

// confirmKeyPushes filters key-material items out of names unless the user
// confirms each one. A declined or unanswerable prompt skips the item rather
// than failing the run.
func confirmKeyPushes(cfg *config.Config, ask prompt.Interactor, names []string) []string {
	kept := make([]string, 0, len(names))
	for _, name := range names {
		if cfg.Document.IsKeyMaterial(name) {
			ok, err := ask.Confirm(fmt.Sprintf("Push private key material for %s?", name))
			if err != nil || !ok {
				cfg.Logger.Warn("skipping %s: pushing a private key needs confirmation", name)
				continue
			}
		}
		kept = append(kept, name)
	}
	return kept
}
