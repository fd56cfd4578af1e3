// Package validate applies the ordering rules to a dependency graph.
package validate

import (
	"fmt"
	"sort"

	"github.com/felixgeelhaar/phaseguard/internal/graph"
	"github.com/felixgeelhaar/phaseguard/internal/phase"
)

// Engine evaluates the rule classes against one graph. It has no side
// effects; fixing is a separate stage.
type Engine struct {
	tables Tables
}

// NewEngine creates an engine over the given tables
func NewEngine(tables Tables) *Engine {
	if tables.Keywords == nil {
		tables.Keywords = phase.DefaultKeywordRules()
	}
	return &Engine{tables: tables}
}

// Tables returns the tables the engine was built with
func (e *Engine) Tables() Tables {
	return e.tables
}

// Input is what the engine validates
type Input struct {
	// Phases are the phases in scope
	Phases []phase.Phase

	// Context holds every loaded phase. Hard dependencies are looked up
	// here so a scoped run still sees the rest of the project. Nil means
	// Phases.
	Context []phase.Phase

	Graph *graph.Graph
}

// Validate runs every rule class and collects all issues. Rule classes are
// independent; one route may collect several issues.
func (e *Engine) Validate(in Input) Result {
	ctx := in.Context
	if ctx == nil {
		ctx = in.Phases
	}
	g := in.Graph
	if g == nil {
		g = graph.Build(in.Phases)
	}

	types := e.Classify(ctx)
	res := Result{
		Errors:   []Issue{},
		Warnings: []Issue{},
		External: g.External(),
		Types:    types,
	}

	res.Cycles = graph.DetectCycles(g)
	for _, c := range res.Cycles {
		res.Errors = append(res.Errors, cycleIssue(c, g))
	}
	res.Errors = append(res.Errors, forwardDependencies(g)...)
	res.Errors = append(res.Errors, e.hardDependencies(in.Phases, ctx, types)...)
	res.Errors = append(res.Errors, invalidWaves(g)...)
	res.Warnings = append(res.Warnings, e.earlyPhases(in.Phases, types)...)
	res.Waves = BuildWaves(in.Phases)

	return res
}

// Classify infers the type of every phase from its name
func (e *Engine) Classify(phases []phase.Phase) map[int]phase.Type {
	types := make(map[int]phase.Type, len(phases))
	for _, p := range phases {
		types[p.Number] = phase.InferType(p.Name, e.tables.Keywords)
	}
	return types
}

func cycleIssue(c graph.Cycle, g *graph.Graph) Issue {
	is := newIssue(KindCircularDependency)
	is.Routes = c.Members()
	is.Route = is.Routes[0]
	is.Phase = phase.PhaseOf(is.Route)
	is.Cycle = c
	if r, ok := g.Route(is.Route); ok {
		is.SourceFile = r.SourceFile
	}
	is.Message = fmt.Sprintf("Circular dependency: %s", c)
	is.Suggestion = "Remove one of the dependencies in the loop; pick the one that is not really needed to start work"
	return is
}

// forwardDependencies flags every edge, internal or external, whose
// prerequisite lives in a later phase than its dependent
func forwardDependencies(g *graph.Graph) []Issue {
	var issues []Issue
	check := func(e graph.Edge, external bool) {
		from, to := phase.PhaseOf(e.From), phase.PhaseOf(e.To)
		if from <= to {
			return
		}
		is := newIssue(KindForwardDependency)
		is.Route, is.Routes, is.Phase = e.To, []string{e.To, e.From}, to
		is.Dependency, is.DependencyPhase = e.From, from
		is.Origin, is.External = e.Origin, external
		if r, ok := g.Route(e.To); ok {
			is.SourceFile = r.SourceFile
		}
		if e.Origin == graph.OriginPrerequisite {
			is.Message = fmt.Sprintf("Route %s (phase %d) lists phase %d as a prerequisite, but phase %d runs later", e.To, to, from, from)
		} else {
			is.Message = fmt.Sprintf("Route %s (phase %d) depends on %s from later phase %d", e.To, to, e.From, from)
		}
		is.Suggestion = fmt.Sprintf("Move the work of %s into phase %d or earlier, or move %s after phase %d", e.From, to, e.To, from)
		issues = append(issues, is)
	}

	for _, e := range g.Edges() {
		check(e, false)
	}
	for _, e := range g.External() {
		check(e, true)
	}
	sortIssues(issues)
	return issues
}

// hardDependencies checks every phase in scope against the hard dependency
// table plus the types its routes declare. A required type that no phase of
// the project has is skipped, as is the "all" marker.
func (e *Engine) hardDependencies(scope, ctx []phase.Phase, types map[int]phase.Type) []Issue {
	var issues []Issue
	for _, p := range scope {
		primary, ok := p.Primary()
		if !ok {
			continue
		}
		t := types[p.Number]

		for _, req := range e.requiredTypes(p, t) {
			if req == phase.TypeAll || req == phase.TypeNone {
				continue
			}

			lowest, satisfied := 0, false
			for _, other := range ctx {
				if other.Number == p.Number || types[other.Number] != req {
					continue
				}
				if other.Number < p.Number {
					satisfied = true
					break
				}
				if lowest == 0 || other.Number < lowest {
					lowest = other.Number
				}
			}
			if satisfied || lowest == 0 {
				continue
			}

			is := newIssue(KindMissingHardDependency)
			is.Route, is.Routes, is.Phase = primary.ID, []string{primary.ID}, p.Number
			is.PhaseType, is.RequiredType, is.RequiredPhase = t, req, lowest
			is.SourceFile = primary.SourceFile
			label := string(t)
			if label == "" {
				label = "this phase"
			}
			is.Message = fmt.Sprintf("Phase %d (%s) requires %s to complete first, but %s is phase %d",
				p.Number, label, req, req, lowest)
			is.Suggestion = fmt.Sprintf("Move phase %d (%s) before phase %d; the fixer records %q in prerequisites",
				lowest, req, p.Number, string(req))
			issues = append(issues, is)
		}
	}
	return issues
}

func (e *Engine) requiredTypes(p phase.Phase, t phase.Type) []phase.Type {
	seen := make(map[phase.Type]bool)
	var out []phase.Type
	add := func(req phase.Type) {
		if !seen[req] {
			seen[req] = true
			out = append(out, req)
		}
	}
	if t != phase.TypeNone {
		for _, req := range e.tables.HardDependencies[t] {
			add(req)
		}
	}
	for _, r := range p.Routes {
		for _, req := range r.RequiredTypes {
			add(req)
		}
	}
	return out
}

// invalidWaves requires wave(D) < wave(R) for every internal edge D -> R
func invalidWaves(g *graph.Graph) []Issue {
	var issues []Issue
	for _, e := range g.Edges() {
		dep, okD := g.Route(e.From)
		r, okR := g.Route(e.To)
		if !okD || !okR || dep.Wave < r.Wave {
			continue
		}
		is := newIssue(KindInvalidWave)
		is.Route, is.Routes, is.Phase = r.ID, []string{r.ID, dep.ID}, r.Phase
		is.Dependency, is.DependencyPhase, is.Origin = dep.ID, dep.Phase, e.Origin
		is.RouteWave, is.DependencyWave = r.Wave, dep.Wave
		is.SourceFile = r.SourceFile
		is.Message = fmt.Sprintf("Route %s is in wave %d but depends on %s in wave %d", r.ID, r.Wave, dep.ID, dep.Wave)
		is.Suggestion = fmt.Sprintf("Set wave: %d in %s", dep.Wave+1, r.SourceFile)
		issues = append(issues, is)
	}
	sortIssues(issues)
	return issues
}

// earlyPhases warns when a phase sits well ahead of its canonical position
func (e *Engine) earlyPhases(scope []phase.Phase, types map[int]phase.Type) []Issue {
	var issues []Issue
	for _, p := range scope {
		t := types[p.Number]
		pos, ok := e.tables.Canonical[t]
		if !ok || pos-p.Number < e.tables.EarlyThreshold {
			continue
		}
		primary, ok := p.Primary()
		if !ok {
			continue
		}
		is := newIssue(KindEarlyPhase)
		is.Route, is.Routes, is.Phase = primary.ID, []string{primary.ID}, p.Number
		is.PhaseType, is.CanonicalPosition = t, pos
		is.SourceFile = primary.SourceFile
		is.Message = fmt.Sprintf("Phase %d %q looks like %s work, usually at position %d", p.Number, p.Name, t, pos)
		is.Suggestion = fmt.Sprintf("Check that everything %s work needs is in place before phase %d", t, p.Number)
		issues = append(issues, is)
	}
	return issues
}

func sortIssues(issues []Issue) {
	sort.SliceStable(issues, func(i, j int) bool {
		if c := phase.CompareIDs(issues[i].Route, issues[j].Route); c != 0 {
			return c < 0
		}
		return phase.CompareIDs(issues[i].Dependency, issues[j].Dependency) < 0
	})
}
