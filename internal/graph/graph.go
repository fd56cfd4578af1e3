// Package graph builds the route dependency graph and finds cycles in it.
package graph

import (
	"sort"

	"github.com/felixgeelhaar/phaseguard/internal/phase"
)

// Origin records which declaration produced an edge
type Origin string

const (
	OriginDependsOn    Origin = "depends_on"
	OriginPrerequisite Origin = "prerequisite"
)

// Edge points from a prerequisite route to the route that depends on it
type Edge struct {
	From   string `json:"from" yaml:"from"`
	To     string `json:"to" yaml:"to"`
	Origin Origin `json:"origin" yaml:"origin"`
}

// Graph is the directed dependency graph over route IDs. It is immutable
// once built.
type Graph struct {
	scope    int
	nodes    []string
	routes   map[string]phase.Route
	edges    []Edge
	external []Edge
	out      map[string][]string
	in       map[string][]string
}

// Build creates the graph over every route of every phase
func Build(phases []phase.Phase) *Graph {
	return BuildScoped(phases, 0)
}

// BuildScoped creates the graph for a single phase. Only that phase's
// routes become nodes; edges arriving from other phases are kept as
// external references and edges leaving the scope are dropped. A zero
// scope includes every phase.
func BuildScoped(phases []phase.Phase, scope int) *Graph {
	g := &Graph{
		scope:  scope,
		routes: phase.Index(phases),
		out:    make(map[string][]string),
		in:     make(map[string][]string),
	}

	inScope := func(id string) bool {
		return scope == 0 || phase.PhaseOf(id) == scope
	}

	for _, p := range phases {
		if scope != 0 && p.Number != scope {
			continue
		}
		for _, r := range p.Routes {
			g.nodes = append(g.nodes, r.ID)
		}
	}

	seen := make(map[[2]string]bool)
	add := func(from, to string, origin Origin) {
		if !inScope(to) || seen[[2]string{from, to}] {
			return
		}
		seen[[2]string{from, to}] = true
		e := Edge{From: from, To: to, Origin: origin}
		if !inScope(from) {
			g.external = append(g.external, e)
			return
		}
		g.edges = append(g.edges, e)
	}

	// declared edges first so they win over the prerequisite expansion
	for _, p := range phases {
		for _, r := range p.Routes {
			for _, dep := range r.DependsOn {
				add(dep, r.ID, OriginDependsOn)
			}
		}
	}

	for _, p := range phases {
		for _, number := range phasePrerequisites(p) {
			target, ok := phase.Find(phases, number)
			if !ok {
				continue
			}
			primary, ok := target.Primary()
			if !ok {
				continue
			}
			for _, r := range p.Routes {
				add(primary.ID, r.ID, OriginPrerequisite)
			}
		}
	}

	sortEdges(g.edges)
	sortEdges(g.external)
	for _, e := range g.edges {
		g.out[e.From] = append(g.out[e.From], e.To)
		g.in[e.To] = append(g.in[e.To], e.From)
	}
	return g
}

// phasePrerequisites is the union of the prerequisites of a phase's routes
func phasePrerequisites(p phase.Phase) []int {
	set := make(map[int]bool)
	for _, r := range p.Routes {
		for _, n := range r.Prerequisites {
			if n != p.Number {
				set[n] = true
			}
		}
	}
	numbers := make([]int, 0, len(set))
	for n := range set {
		numbers = append(numbers, n)
	}
	sort.Ints(numbers)
	return numbers
}

func sortEdges(edges []Edge) {
	sort.SliceStable(edges, func(i, j int) bool {
		if c := phase.CompareIDs(edges[i].From, edges[j].From); c != 0 {
			return c < 0
		}
		return phase.CompareIDs(edges[i].To, edges[j].To) < 0
	})
}

// Scope returns the phase the graph is restricted to, or 0
func (g *Graph) Scope() int { return g.scope }

// Nodes returns route IDs in reader order
func (g *Graph) Nodes() []string { return append([]string(nil), g.nodes...) }

// Edges returns the internal edges sorted by (from, to)
func (g *Graph) Edges() []Edge { return append([]Edge(nil), g.edges...) }

// External returns edges whose source lies outside the scope
func (g *Graph) External() []Edge { return append([]Edge(nil), g.external...) }

// Route looks up any loaded route, including ones outside the scope
func (g *Graph) Route(id string) (phase.Route, bool) {
	r, ok := g.routes[id]
	return r, ok
}

// Dependencies returns the routes id depends on directly
func (g *Graph) Dependencies(id string) []string { return append([]string(nil), g.in[id]...) }

// Dependents returns the routes that depend directly on id
func (g *Graph) Dependents(id string) []string { return append([]string(nil), g.out[id]...) }

// TopologicalOrder sorts nodes so every edge points forward (Kahn's
// algorithm). Nodes that sit on a cycle, or downstream of one, cannot be
// ordered and are returned as blocked.
func (g *Graph) TopologicalOrder() (order []string, blocked []string) {
	indegree := make(map[string]int, len(g.nodes))
	for _, id := range g.nodes {
		indegree[id] = len(g.in[id])
	}

	var queue []string
	for _, id := range g.nodes {
		if indegree[id] == 0 {
			queue = append(queue, id)
		}
	}

	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		order = append(order, id)
		for _, next := range g.out[id] {
			indegree[next]--
			if indegree[next] == 0 {
				queue = append(queue, next)
			}
		}
	}

	if len(order) == len(g.nodes) {
		return order, nil
	}
	placed := make(map[string]bool, len(order))
	for _, id := range order {
		placed[id] = true
	}
	for _, id := range g.nodes {
		if !placed[id] {
			blocked = append(blocked, id)
		}
	}
	return order, blocked
}
