package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"taxsync/internal/config"
	"taxsync/internal/models"
	"taxsync/internal/orchestrator"
	"taxsync/internal/payload"
)

type syncFlags struct {
	callback string
	provider string
	dryRun   bool
}

func newSyncCmd(g *globalFlags) *cobra.Command {
	f := &syncFlags{}

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Scrape every roster property and deliver the records",
		Long: "Runs each roster property in its own lookup process, one at a time, " +
			"then posts every record to the callback and prints a summary.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := g.load()
			if err != nil {
				return err
			}

			filter := models.Provider(f.provider)
			if filter != "" && !filter.Valid() {
				return fmt.Errorf("%w: %s", config.ErrUnknownProvider, filter)
			}

			callbackURL := cfg.Callback.URL
			if f.callback != "" {
				if err := config.ValidateCallbackURL(f.callback); err != nil {
					return err
				}

				callbackURL = f.callback
			}

			executable := cfg.Sync.Executable
			if executable == "" {
				if executable, err = os.Executable(); err != nil {
					return fmt.Errorf("failed to locate taxsync binary: %w", err)
				}
			}

			var deliverer orchestrator.Deliverer

			if callbackURL != "" && !f.dryRun {
				d := payload.NewDeliverer(callbackURL, cfg.CallbackTimeout(), log)
				d.SetSigningSecret(cfg.Callback.SigningSecret)
				deliverer = d
			}

			runner := orchestrator.NewExecRunner(executable, g.args(), log)

			o := orchestrator.New(runner, deliverer, log)
			o.SetOutput(cmd.OutOrStdout())

			run := o.Run(cmd.Context(), cfg.Properties(filter), orchestrator.Options{
				Timeout: cfg.PropertyTimeout(),
				DryRun:  f.dryRun,
			})

			if !run.DryRun {
				out := cmd.OutOrStdout()
				orchestrator.WriteSummary(out, run, orchestrator.IsTerminal(out))
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&f.callback, "callback", "", "POST every record to this URL (overrides callback.url)")
	cmd.Flags().BoolVar(&f.dryRun, "dry-run", false, "List planned lookups without running them")
	cmd.Flags().StringVar(&f.provider, "provider", "", "Only run properties of this provider")

	return cmd
}
