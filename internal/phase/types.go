package phase

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Phase is a numbered unit of work containing one or more routes
type Phase struct {
	Number int     `json:"number" yaml:"number"`
	Name   string  `json:"name" yaml:"name"`
	Dir    string  `json:"dir" yaml:"dir"`
	Routes []Route `json:"routes" yaml:"routes"`
}

// Route is a single execution unit (a "plan") inside a phase
type Route struct {
	ID         string `json:"id" yaml:"id"`
	Phase      int    `json:"phase" yaml:"phase"`
	Index      int    `json:"index" yaml:"index"`
	Title      string `json:"title,omitempty" yaml:"title,omitempty"`
	Wave       int    `json:"wave" yaml:"wave"`
	Autonomous bool   `json:"autonomous" yaml:"autonomous"`

	// DependsOn holds resolved route IDs declared in depends_on
	DependsOn []string `json:"depends_on,omitempty" yaml:"depends_on,omitempty"`

	// Prerequisites holds phase numbers from front matter and the
	// Prerequisites section of the body
	Prerequisites []int `json:"prerequisites,omitempty" yaml:"prerequisites,omitempty"`

	// RequiredTypes holds phase types declared explicitly as prerequisites
	RequiredTypes []Type `json:"required_types,omitempty" yaml:"required_types,omitempty"`

	SourceFile string `json:"source_file" yaml:"source_file"`

	// Digest is the blake3 hash of the document at read time
	Digest string `json:"-" yaml:"-"`
}

// RouteID formats the composite route key, e.g. RouteID(3, 1) == "3.01"
func RouteID(phase, index int) string {
	return fmt.Sprintf("%d.%02d", phase, index)
}

// SplitRouteID parses a key produced by RouteID
func SplitRouteID(id string) (phase, index int, err error) {
	left, right, ok := strings.Cut(id, ".")
	if !ok {
		return 0, 0, fmt.Errorf("route id %q is not of the form <phase>.<route>", id)
	}
	if phase, err = strconv.Atoi(left); err != nil {
		return 0, 0, fmt.Errorf("route id %q: invalid phase: %w", id, err)
	}
	if index, err = strconv.Atoi(right); err != nil {
		return 0, 0, fmt.Errorf("route id %q: invalid route index: %w", id, err)
	}
	return phase, index, nil
}

// PhaseOf returns the phase number encoded in a route ID, or 0 if malformed
func PhaseOf(id string) int {
	p, _, err := SplitRouteID(id)
	if err != nil {
		return 0
	}
	return p
}

// CompareIDs orders route IDs numerically by phase then index
func CompareIDs(a, b string) int {
	pa, ia, errA := SplitRouteID(a)
	pb, ib, errB := SplitRouteID(b)
	if errA != nil || errB != nil {
		return strings.Compare(a, b)
	}
	if pa != pb {
		return pa - pb
	}
	return ia - ib
}

// SortIDs sorts route IDs in numeric order
func SortIDs(ids []string) {
	sort.SliceStable(ids, func(i, j int) bool {
		return CompareIDs(ids[i], ids[j]) < 0
	})
}

// Primary returns the route with index 1, or the lowest-indexed route
func (p Phase) Primary() (Route, bool) {
	if len(p.Routes) == 0 {
		return Route{}, false
	}
	for _, r := range p.Routes {
		if r.Index == 1 {
			return r, true
		}
	}
	return p.Routes[0], true
}

// Route returns the route with the given index
func (p Phase) Route(index int) (Route, bool) {
	for _, r := range p.Routes {
		if r.Index == index {
			return r, true
		}
	}
	return Route{}, false
}

// Find returns the phase with the given number
func Find(phases []Phase, number int) (Phase, bool) {
	for _, p := range phases {
		if p.Number == number {
			return p, true
		}
	}
	return Phase{}, false
}

// Filter restricts phases to the given phase number. Zero keeps every phase.
func Filter(phases []Phase, number int) ([]Phase, bool) {
	if number == 0 {
		return phases, true
	}
	p, ok := Find(phases, number)
	if !ok {
		return nil, false
	}
	return []Phase{p}, true
}

// Numbers lists phase numbers in order
func Numbers(phases []Phase) []int {
	nums := make([]int, 0, len(phases))
	for _, p := range phases {
		nums = append(nums, p.Number)
	}
	return nums
}

// Routes flattens phases into a route list in phase then index order
func Routes(phases []Phase) []Route {
	var routes []Route
	for _, p := range phases {
		routes = append(routes, p.Routes...)
	}
	return routes
}

// Index maps route IDs to routes
func Index(phases []Phase) map[string]Route {
	idx := make(map[string]Route)
	for _, p := range phases {
		for _, r := range p.Routes {
			idx[r.ID] = r
		}
	}
	return idx
}
