package main

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"taxsync/internal/crawler"
	"taxsync/internal/normalizer"
	"taxsync/internal/orchestrator"
)

func newProvidersCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "providers",
		Short: "List the registered providers and their payment cadence",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, err := g.loadOrDefaults()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()

			t := table.NewWriter()
			t.SetOutputMirror(out)

			if orchestrator.IsTerminal(out) {
				t.SetStyle(table.StyleRounded)
			}

			t.AppendHeader(table.Row{"Provider", "Name", "Cadence", "Due", "Portal"})

			for _, p := range crawler.DefaultRegistry(cfg).Providers() {
				cadence, _ := normalizer.CadenceFor(p)

				due := make([]string, 0, cadence.Periods())
				for _, d := range cadence.Due {
					due = append(due, fmt.Sprintf("%02d/%02d", int(d.Month), d.Day))
				}

				t.AppendRow(table.Row{p, p.Label(), cadence.Name, strings.Join(due, " "), cfg.Portal(p).URL})
			}

			t.Render()

			return nil
		},
	}
}
