package cmd

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	pgerrors "github.com/felixgeelhaar/phaseguard/internal/errors"
	"github.com/felixgeelhaar/phaseguard/internal/pipeline"
	"github.com/felixgeelhaar/phaseguard/internal/tui"
	"github.com/felixgeelhaar/phaseguard/internal/ux"
)

func newReviewCommand(g *globalOptions) *cobra.Command {
	var phaseNumber int

	cmd := &cobra.Command{
		Use:   "review",
		Short: "Browse the wave plan and its issues interactively",
		Long: `Open an interactive browser of the wave plan.

Routes are listed wave by wave, autonomous routes before checkpoint routes,
each marked with its errors and warnings. Select a route to see its
dependencies, prerequisites and the suggested fix for each issue.

Keys:
  ↑/↓ or j/k   move
  enter        route details
  esc          back to the list
  f            toggle routes with issues only
  q            quit
`,
		Args: noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := g.setup(cmd)
			if err != nil {
				return err
			}
			defer e.logger.Close()

			if phaseNumber < 0 {
				return pgerrors.NewInvalidFlagError("phase", fmt.Sprintf("%d is not a phase number", phaseNumber))
			}
			tables, err := e.cfg.Tables()
			if err != nil {
				return pgerrors.NewConfigInvalidError(e.cfg.Source, err)
			}

			outcome, err := pipeline.New(pipeline.Options{
				Root:   e.paths.PhasesDir(),
				Phase:  phaseNumber,
				Strict: e.cfg.Strict,
				Format: ux.FormatQuiet,
				Tables: &tables,
				Logger: e.logger,
			}).Run(cmd.Context())
			if err != nil {
				return err
			}

			return tui.RunReview(cmd.Context(), outcome.Phases, outcome.Result,
				tea.WithInput(cmd.InOrStdin()),
				tea.WithOutput(cmd.OutOrStdout()))
		},
	}

	cmd.Flags().IntVar(&phaseNumber, "phase", 0, "review only this phase")
	return cmd
}
