package graph

import (
	"strings"

	"github.com/felixgeelhaar/phaseguard/internal/phase"
)

// Cycle is a closed loop of route IDs; the first ID is repeated at the end
type Cycle []string

func (c Cycle) String() string {
	return strings.Join(c, " → ")
}

// Members returns the distinct routes of the cycle
func (c Cycle) Members() []string {
	if len(c) < 2 {
		return append([]string(nil), c...)
	}
	return append([]string(nil), c[:len(c)-1]...)
}

// Contains reports whether id is part of the cycle
func (c Cycle) Contains(id string) bool {
	for _, m := range c {
		if m == id {
			return true
		}
	}
	return false
}

// DetectCycles runs a depth-first search from every unvisited node and
// reports one cycle per back edge. The same loop reached from different
// start nodes is reported once, rotated to start at its lowest route ID.
func DetectCycles(g *Graph) []Cycle {
	visited := make(map[string]bool)
	onStack := make(map[string]bool)
	reported := make(map[string]bool)

	var (
		path   []string
		cycles []Cycle
		visit  func(id string)
	)

	visit = func(id string) {
		visited[id] = true
		onStack[id] = true
		path = append(path, id)

		for _, next := range g.out[id] {
			if !visited[next] {
				visit(next)
				continue
			}
			if !onStack[next] {
				continue
			}

			start := len(path) - 1
			for path[start] != next {
				start--
			}
			loop := canonical(path[start:])
			key := strings.Join(loop, ",")
			if !reported[key] {
				reported[key] = true
				cycles = append(cycles, append(Cycle(loop), loop[0]))
			}
		}

		onStack[id] = false
		path = path[:len(path)-1]
	}

	for _, id := range g.nodes {
		if !visited[id] {
			visit(id)
		}
	}
	return cycles
}

// canonical rotates members so the lowest route ID comes first
func canonical(members []string) []string {
	low := 0
	for i := range members {
		if phase.CompareIDs(members[i], members[low]) < 0 {
			low = i
		}
	}
	out := make([]string, 0, len(members))
	out = append(out, members[low:]...)
	return append(out, members[:low]...)
}
