// Package cmd implements the phaseguard command line.
package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/phaseguard/internal/config"
	pgerrors "github.com/felixgeelhaar/phaseguard/internal/errors"
	"github.com/felixgeelhaar/phaseguard/internal/log"
	"github.com/felixgeelhaar/phaseguard/internal/ux"
)

// globalOptions holds the persistent flags shared by every command
type globalOptions struct {
	configFile string
	projectDir string
	stateDir   string
	logLevel   string
	logFormat  string
	logFile    string
}

// env is the resolved configuration of one command invocation
type env struct {
	cfg    *config.Config
	paths  *ux.PathDefaults
	logger *log.Logger
}

// NewRootCommand builds the phaseguard command tree
func NewRootCommand() *cobra.Command {
	g := &globalOptions{}

	root := &cobra.Command{
		Use:   "phaseguard",
		Short: "Phase dependency and wave validator",
		Long: `phaseguard validates the phase plan of a project before any work starts.

It reads the route documents under <project>/.planning/phases, builds the
dependency graph between routes, and checks it for cycles, forward
dependencies, wave ordering and phase ordering rules. Simple problems can be
fixed in place with --fix.

Exit codes:
  0  validation passed
  1  validation failed (or warnings with --strict)
  2  no phases found
  3  parse error in a phase document
  4  usage error
  5  configuration error`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&g.configFile, "config", "", "config file (default <project>/.phaseguard.yaml)")
	pf.StringVar(&g.projectDir, "dir", "", "project directory (default: discovered from the working directory)")
	pf.StringVar(&g.stateDir, "state-dir", ux.DefaultStateDir, "state directory holding phases/, relative to the project")
	pf.StringVar(&g.logLevel, "log-level", "", "log level: debug, info, warn, error")
	pf.StringVar(&g.logFormat, "log-format", "", "log format: text, json")
	pf.StringVar(&g.logFile, "log-file", "", "also write JSON logs to this file")

	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return pgerrors.Wrap(pgerrors.ErrCodeUsageInvalidFlag, err.Error(), err).
			WithSuggestion("Run 'phaseguard --help' for usage")
	})

	root.AddCommand(
		newValidateCommand(g),
		newReviewCommand(g),
		newVersionCommand(),
	)
	return root
}

// ExecuteContext runs the root command with a cancellable context
func ExecuteContext(ctx context.Context) error {
	return NewRootCommand().ExecuteContext(ctx)
}

// noArgs rejects positional arguments with a usage error
func noArgs(cmd *cobra.Command, args []string) error {
	if len(args) > 0 {
		return pgerrors.New(pgerrors.ErrCodeUsageInvalidFlag,
			fmt.Sprintf("%s takes no arguments, got %q", cmd.CommandPath(), args[0])).
			WithSuggestion(fmt.Sprintf("Run '%s --help' for usage", cmd.CommandPath()))
	}
	return nil
}

// setup resolves the project, loads configuration, applies changed flags
// and creates the logger. The caller closes the logger.
func (g *globalOptions) setup(cmd *cobra.Command) (*env, error) {
	projectDir := g.projectDir
	if projectDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("get working directory: %w", err)
		}
		projectDir, _, err = ux.DiscoverProjectDir(wd, g.stateDir)
		if err != nil {
			return nil, fmt.Errorf("discover project: %w", err)
		}
	}

	cfg, err := config.Load(projectDir, g.configFile)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("state-dir") {
		cfg.StateDir = g.stateDir
	}
	if flags.Changed("log-level") {
		cfg.Log.Level = g.logLevel
	}
	if flags.Changed("log-format") {
		cfg.Log.Format = g.logFormat
	}
	if flags.Changed("log-file") {
		cfg.Log.File = g.logFile
	}
	if err := cfg.Validate(); err != nil {
		return nil, pgerrors.NewInvalidFlagError("log-level/log-format/state-dir", err.Error())
	}

	lc := cfg.LoggerConfig()
	lc.Output = cmd.ErrOrStderr()
	logger, err := log.New(lc)
	if err != nil {
		return nil, pgerrors.NewConfigInvalidError("log.file", err)
	}

	paths := ux.NewPathDefaults(projectDir, cfg.StateDir)
	if err := paths.ValidateStateSetup(); err != nil {
		logger.Close()
		return nil, pgerrors.NewNoPhasesFoundError(paths.PhasesDir(), err)
	}
	logger.Debug("configuration loaded",
		"project", paths.ProjectDir, "phases", paths.PhasesDir(), "config", cfg.Source)

	return &env{cfg: cfg, paths: paths, logger: logger}, nil
}
