package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	pgerrors "github.com/felixgeelhaar/phaseguard/internal/errors"
	"github.com/felixgeelhaar/phaseguard/internal/exitcode"
	"github.com/felixgeelhaar/phaseguard/internal/phase"
	"github.com/felixgeelhaar/phaseguard/internal/pipeline"
	"github.com/felixgeelhaar/phaseguard/internal/ux"
)

type validateOptions struct {
	fix     bool
	dryRun  bool
	strict  bool
	quiet   bool
	phase   int
	format  string
	out     string
	noColor bool
}

func newValidateCommand(g *globalOptions) *cobra.Command {
	o := &validateOptions{}

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate phase dependencies and wave ordering",
		Long: `Validate the phase plan and print a report.

Checks performed:
  • circular dependencies between routes
  • forward dependencies on later phases
  • waves that do not come after every dependency's wave
  • phase types that run before the types they require
  • phases scheduled well before their usual position (warning)

With --fix, waves are renumbered and missing prerequisites declared in the
route documents. Forward and circular dependencies always need a manual edit.

Examples:
  # Full report
  phaseguard validate

  # CI mode: one line per issue, warnings fail the build
  phaseguard validate --quiet --strict

  # Preview, then apply fixes
  phaseguard validate --fix --dry-run
  phaseguard validate --fix

  # Only phase 3; dependencies on other phases are listed as external
  phaseguard validate --phase 3
`,
		Args: noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd, g, o)
		},
	}

	f := cmd.Flags()
	f.BoolVar(&o.fix, "fix", false, "apply mechanical fixes to route documents")
	f.BoolVar(&o.dryRun, "dry-run", false, "show the fixes --fix would apply without writing (implies --fix)")
	f.BoolVar(&o.strict, "strict", false, "treat warnings as failures")
	f.BoolVarP(&o.quiet, "quiet", "q", false, "one-line summary plus one line per issue (same as --format quiet)")
	f.IntVar(&o.phase, "phase", 0, "validate only this phase")
	f.StringVarP(&o.format, "format", "f", "", "report format: markdown, quiet, json, yaml")
	f.StringVarP(&o.out, "out", "o", "", "also write the report to this file")
	f.BoolVar(&o.noColor, "no-color", false, "disable colored output")

	return cmd
}

func runValidate(cmd *cobra.Command, g *globalOptions, o *validateOptions) error {
	e, err := g.setup(cmd)
	if err != nil {
		return err
	}
	defer e.logger.Close()

	flags := cmd.Flags()
	if flags.Changed("strict") {
		e.cfg.Strict = o.strict
	}
	format, err := resolveFormat(e.cfg.ReportFormat(), o, flags.Changed("format"))
	if err != nil {
		return err
	}
	if o.phase < 0 {
		return pgerrors.NewInvalidFlagError("phase", fmt.Sprintf("%d is not a phase number", o.phase))
	}
	tables, err := e.cfg.Tables()
	if err != nil {
		return pgerrors.NewConfigInvalidError(e.cfg.Source, err)
	}

	outcome, err := pipeline.New(pipeline.Options{
		Root:   e.paths.PhasesDir(),
		Phase:  o.phase,
		Fix:    o.fix || o.dryRun,
		DryRun: o.dryRun,
		Strict: e.cfg.Strict,
		Format: format,
		Color:  e.cfg.Color && !o.noColor && o.out == "",
		Tables: &tables,
		Logger: e.logger,
	}).Run(cmd.Context())
	if err != nil {
		return err
	}

	fmt.Fprint(cmd.OutOrStdout(), outcome.Report)

	if o.out != "" {
		if err := phase.WriteFileAtomic(o.out, []byte(outcome.Report)); err != nil {
			return pgerrors.Wrap(pgerrors.ErrCodeFileWriteFailed,
				fmt.Sprintf("failed to write report to %s", o.out), err)
		}
		e.logger.Info("report written", "path", o.out)
	}

	return exitcode.WithCode(outcome.ExitCode)
}

// resolveFormat combines --quiet, --format and the configured default
func resolveFormat(configured ux.Format, o *validateOptions, formatChanged bool) (ux.Format, error) {
	format := configured
	if formatChanged {
		f, err := ux.ParseFormat(o.format)
		if err != nil {
			return "", pgerrors.NewInvalidFlagError("format", err.Error())
		}
		format = f
	}
	if o.quiet {
		if formatChanged && format != ux.FormatQuiet {
			return "", pgerrors.NewInvalidFlagError("quiet", fmt.Sprintf("conflicts with --format %s", format))
		}
		format = ux.FormatQuiet
	}
	return format, nil
}
