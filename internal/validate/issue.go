package validate

import (
	"github.com/felixgeelhaar/phaseguard/internal/graph"
	"github.com/felixgeelhaar/phaseguard/internal/phase"
)

// Kind classifies an issue
type Kind string

const (
	KindForwardDependency     Kind = "FORWARD_DEPENDENCY"
	KindCircularDependency    Kind = "CIRCULAR_DEPENDENCY"
	KindInvalidWave           Kind = "INVALID_WAVE"
	KindMissingHardDependency Kind = "MISSING_HARD_DEPENDENCY"
	KindEarlyPhase            Kind = "EARLY_PHASE"
)

// Severity separates failing issues from advisory ones
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Severity returns the fixed severity of a kind. Only EARLY_PHASE is a
// warning.
func (k Kind) Severity() Severity {
	if k == KindEarlyPhase {
		return SeverityWarning
	}
	return SeverityError
}

// Fixable reports whether the auto-fixer can correct issues of this kind
func (k Kind) Fixable() bool {
	return k == KindInvalidWave || k == KindMissingHardDependency
}

// Issue is a single validation finding. The optional fields carry what the
// fixer and the report need for each kind.
type Issue struct {
	Kind     Kind     `json:"kind" yaml:"kind"`
	Severity Severity `json:"severity" yaml:"severity"`

	// Route is the offending route; Routes lists every route involved
	Route  string   `json:"route,omitempty" yaml:"route,omitempty"`
	Routes []string `json:"routes" yaml:"routes"`
	Phase  int      `json:"phase,omitempty" yaml:"phase,omitempty"`

	Dependency      string       `json:"dependency,omitempty" yaml:"dependency,omitempty"`
	DependencyPhase int          `json:"dependency_phase,omitempty" yaml:"dependency_phase,omitempty"`
	Origin          graph.Origin `json:"origin,omitempty" yaml:"origin,omitempty"`
	External        bool         `json:"external,omitempty" yaml:"external,omitempty"`

	RouteWave      int `json:"route_wave,omitempty" yaml:"route_wave,omitempty"`
	DependencyWave int `json:"dependency_wave,omitempty" yaml:"dependency_wave,omitempty"`

	PhaseType         phase.Type `json:"phase_type,omitempty" yaml:"phase_type,omitempty"`
	CanonicalPosition int        `json:"canonical_position,omitempty" yaml:"canonical_position,omitempty"`
	RequiredType      phase.Type `json:"required_type,omitempty" yaml:"required_type,omitempty"`
	RequiredPhase     int        `json:"required_phase,omitempty" yaml:"required_phase,omitempty"`

	Cycle graph.Cycle `json:"cycle,omitempty" yaml:"cycle,omitempty"`

	SourceFile string `json:"source_file,omitempty" yaml:"source_file,omitempty"`
	Message    string `json:"message" yaml:"message"`
	Suggestion string `json:"suggestion,omitempty" yaml:"suggestion,omitempty"`
}

func newIssue(kind Kind) Issue {
	return Issue{Kind: kind, Severity: kind.Severity()}
}

// Wave is one parallel execution batch of the wave plan
type Wave struct {
	Number     int      `json:"number" yaml:"number"`
	Autonomous []string `json:"autonomous" yaml:"autonomous"`
	Checkpoint []string `json:"checkpoint" yaml:"checkpoint"`
}

// Routes returns every route of the wave, autonomous first
func (w Wave) Routes() []string {
	return append(append([]string(nil), w.Autonomous...), w.Checkpoint...)
}

// Result is the outcome of one validation pass
type Result struct {
	Errors   []Issue            `json:"errors" yaml:"errors"`
	Warnings []Issue            `json:"warnings" yaml:"warnings"`
	Cycles   []graph.Cycle      `json:"cycles,omitempty" yaml:"cycles,omitempty"`
	External []graph.Edge       `json:"external,omitempty" yaml:"external,omitempty"`
	Waves    []Wave             `json:"waves" yaml:"waves"`
	Types    map[int]phase.Type `json:"phase_types,omitempty" yaml:"phase_types,omitempty"`
}

// Failed reports whether the result should fail the run. Strict mode
// promotes warnings to failures.
func (r Result) Failed(strict bool) bool {
	return len(r.Errors) > 0 || (strict && len(r.Warnings) > 0)
}

// Issues returns errors followed by warnings
func (r Result) Issues() []Issue {
	return append(append([]Issue(nil), r.Errors...), r.Warnings...)
}

// Count returns how many issues of a kind the result holds
func (r Result) Count(kind Kind) int {
	n := 0
	for _, is := range r.Issues() {
		if is.Kind == kind {
			n++
		}
	}
	return n
}

// ForRoute returns the issues raised against a route, plus every cycle
// the route is a member of. A route that is only the dependency side of an
// issue does not collect it.
func (r Result) ForRoute(id string) []Issue {
	var out []Issue
	for _, is := range r.Issues() {
		if is.Route == id || (is.Kind == KindCircularDependency && is.Cycle.Contains(id)) {
			out = append(out, is)
		}
	}
	return out
}
