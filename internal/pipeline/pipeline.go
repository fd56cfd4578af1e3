// Package pipeline runs one validation from the phase documents on disk
// to a rendered report and exit code.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	pgerrors "github.com/felixgeelhaar/phaseguard/internal/errors"
	"github.com/felixgeelhaar/phaseguard/internal/fix"
	"github.com/felixgeelhaar/phaseguard/internal/graph"
	"github.com/felixgeelhaar/phaseguard/internal/log"
	"github.com/felixgeelhaar/phaseguard/internal/phase"
	"github.com/felixgeelhaar/phaseguard/internal/report"
	"github.com/felixgeelhaar/phaseguard/internal/ux"
	"github.com/felixgeelhaar/phaseguard/internal/validate"
)

// State is a stage of a run
type State int

const (
	StateIdle State = iota
	StateParsing
	StateGraphBuilding
	StateValidating
	StateFixing
	StateReporting
	StateDone
	StateAborted
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateParsing:
		return "parsing"
	case StateGraphBuilding:
		return "graph_building"
	case StateValidating:
		return "validating"
	case StateFixing:
		return "fixing"
	case StateReporting:
		return "reporting"
	case StateDone:
		return "done"
	case StateAborted:
		return "aborted"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Options configures a run
type Options struct {
	// Root is the phases directory, e.g. .planning/phases
	Root string

	// Phase scopes the run to one phase; 0 validates every phase
	Phase int

	Fix    bool
	DryRun bool
	Strict bool
	Format ux.Format
	Color  bool

	// Tables defaults to validate.DefaultTables()
	Tables *validate.Tables

	// Logger defaults to a discarding logger
	Logger *log.Logger
}

// Outcome is the result of a completed run
type Outcome struct {
	RunID string
	State State

	// Transitions lists every state the run entered, in order
	Transitions []State

	Phases []phase.Phase
	Graph  *graph.Graph
	Result validate.Result

	// Fixes is nil unless Options.Fix was set
	Fixes *fix.Report

	Report   string
	ExitCode int
	Duration time.Duration
}

// Pipeline orchestrates one validation run:
// 1. Parse the phase documents
// 2. Build the dependency graph
// 3. Validate
// 4. Fix, re-read and re-validate (with --fix)
// 5. Render the report
type Pipeline struct {
	opts   Options
	engine *validate.Engine
	logger *log.Logger
	out    *Outcome
}

// New creates a pipeline for a single run
func New(opts Options) *Pipeline {
	tables := validate.DefaultTables()
	if opts.Tables != nil {
		tables = *opts.Tables
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Discard()
	}

	runID := uuid.NewString()
	return &Pipeline{
		opts:   opts,
		engine: validate.NewEngine(tables),
		logger: logger.With("run_id", runID),
		out: &Outcome{
			RunID:       runID,
			State:       StateIdle,
			Transitions: []State{StateIdle},
		},
	}
}

// Run executes the pipeline. Validation issues are data and never an
// error: they show in the report and the exit code. The error is non-nil
// only for aborted runs (missing phases, parse errors, an unknown --phase,
// cancellation), in which case the outcome is in StateAborted.
func (p *Pipeline) Run(ctx context.Context) (*Outcome, error) {
	start := time.Now()
	out := p.out
	defer func() { out.Duration = time.Since(start) }()

	// Step 1: parse
	if err := p.enter(ctx, StateParsing); err != nil {
		return p.abort(err)
	}
	all, scoped, err := p.load()
	if err != nil {
		return p.abort(err)
	}
	p.logger.Debug("phases loaded", "phases", len(all), "routes", len(phase.Routes(all)))

	// Step 2: graph
	if err := p.enter(ctx, StateGraphBuilding); err != nil {
		return p.abort(err)
	}
	g := graph.BuildScoped(all, p.opts.Phase)
	p.logger.Debug("graph built", "nodes", len(g.Nodes()), "edges", len(g.Edges()), "external", len(g.External()))

	// Step 3: validate
	if err := p.enter(ctx, StateValidating); err != nil {
		return p.abort(err)
	}
	res := p.validate(scoped, all, g)

	// Step 4: fix
	if p.opts.Fix {
		if err := p.enter(ctx, StateFixing); err != nil {
			return p.abort(err)
		}
		rep := fix.New(p.opts.DryRun, p.logger).Apply(g, res.Errors)
		out.Fixes = &rep
		p.logger.Info("fixes processed",
			"applied", len(rep.Applied), "failed", len(rep.Failed),
			"unfixable", len(rep.Unfixable), "dry_run", rep.DryRun)

		if rep.Changed() && !rep.DryRun {
			all, scoped, err = p.load()
			if err != nil {
				return p.abort(fmt.Errorf("re-read after fix: %w", err))
			}
			g = graph.BuildScoped(all, p.opts.Phase)
			res = p.validate(scoped, all, g)
		}
	}
	out.Phases, out.Graph, out.Result = scoped, g, res

	// Step 5: report
	if err := p.enter(ctx, StateReporting); err != nil {
		return p.abort(err)
	}
	text, code, err := report.Render(report.Input{
		RunID:  out.RunID,
		Phases: scoped,
		Scope:  p.opts.Phase,
		Graph:  g,
		Result: res,
		Fixes:  out.Fixes,
	}, report.Options{
		Format: p.opts.Format,
		Strict: p.opts.Strict,
		Color:  p.opts.Color,
	})
	if err != nil {
		return p.abort(err)
	}
	out.Report, out.ExitCode = text, code

	p.transition(StateDone)
	p.logger.Info("validation finished", "exit_code", code,
		"errors", len(res.Errors), "warnings", len(res.Warnings))
	return out, nil
}

func (p *Pipeline) load() (all, scoped []phase.Phase, err error) {
	all, err = phase.Load(p.opts.Root)
	if err != nil {
		var parseErr *phase.ParseError
		switch {
		case errors.Is(err, phase.ErrNoPhasesFound):
			return nil, nil, pgerrors.NewNoPhasesFoundError(p.opts.Root, err)
		case errors.As(err, &parseErr):
			return nil, nil, pgerrors.NewPhaseParseError(err)
		default:
			return nil, nil, pgerrors.Wrap(pgerrors.ErrCodePhaseReadFailed, "failed to read phases", err)
		}
	}

	scoped, ok := phase.Filter(all, p.opts.Phase)
	if !ok {
		return nil, nil, pgerrors.NewPhaseNotFoundError(p.opts.Phase, phase.Numbers(all))
	}
	return all, scoped, nil
}

func (p *Pipeline) validate(scoped, all []phase.Phase, g *graph.Graph) validate.Result {
	res := p.engine.Validate(validate.Input{Phases: scoped, Context: all, Graph: g})
	p.logger.Debug("validation complete",
		"errors", len(res.Errors), "warnings", len(res.Warnings), "cycles", len(res.Cycles))
	return res
}

func (p *Pipeline) enter(ctx context.Context, s State) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.transition(s)
	return nil
}

func (p *Pipeline) transition(s State) {
	p.logger.Debug("state transition", "from", p.out.State.String(), "to", s.String())
	p.out.State = s
	p.out.Transitions = append(p.out.Transitions, s)
}

func (p *Pipeline) abort(err error) (*Outcome, error) {
	p.transition(StateAborted)
	p.logger.LogError("validation aborted", err)
	return p.out, err
}
