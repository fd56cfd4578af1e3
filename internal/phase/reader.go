package phase

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	phaseDirPattern  = regexp.MustCompile(`^(\d+)(?:-(.+))?$`)
	routeFilePattern = regexp.MustCompile(`^(\d+)(?:-(\d+))?(?:-([A-Za-z][\w.-]*))?\.md$`)

	bareRefPattern      = regexp.MustCompile(`^\d+$`)
	qualifiedRefPattern = regexp.MustCompile(`^(\d+)[.-](\d+)$`)
	namedRefPattern     = regexp.MustCompile(`(?i)^phase[-_ ]?(\d+)[-_. /]+(?:route|plan)[-_ ]?(\d+)$`)
	phaseRefPattern     = regexp.MustCompile(`(?i)^phase[-_ ]?(\d+)$`)

	prereqHeaderPattern = regexp.MustCompile(`(?i)^(#{1,6}\s+)?[*_]*prerequisites?[*_]*\s*(:)?[*_]*\s*(.*)$`)
	proseListPattern    = regexp.MustCompile(`(?i)\bphases?\s+((?:n\s*-\s*\d+|\d+)(?:\s*(?:,|and|&)\s*(?:n\s*-\s*\d+|\d+))*)`)
	proseItemPattern    = regexp.MustCompile(`(?i)n\s*-\s*(\d+)|(\d+)`)

	titlePrefixPattern = regexp.MustCompile(`(?i)^phase\s+\d+(?:\.\d+)?\s*[:.\-–—]\s*`)
	titleSuffixPattern = regexp.MustCompile(`(?i)\s*[-–—:(]\s*(?:plan|route)\s+\d+\)?\s*$`)
)

// companion documents that live next to route documents but are not routes
var companionSuffixes = map[string]bool{
	"SUMMARY":      true,
	"CONTEXT":      true,
	"RESEARCH":     true,
	"VERIFICATION": true,
	"VALIDATION":   true,
	"UAT":          true,
	"NOTES":        true,
}

type phaseDir struct {
	number int
	slug   string
	path   string
}

type loadedPhase struct {
	dir    phaseDir
	routes []*routeDoc
	byIdx  map[int]*routeDoc
}

type routeDoc struct {
	route     Route
	data      []byte
	phaseName string
	dependsOn []refValue
	prereqs   []refValue
	prose     []proseRef
}

// proseRef is a "Phase N" or "Phase N-k" mention in a Prerequisites section
type proseRef struct {
	phase    int
	relative bool
	line     int
}

// Load reads every phase under root (the "phases" directory of the state
// dir). Phases are returned in numeric order with routes in index order.
// Any malformed document aborts the load with a *ParseError.
func Load(root string) ([]Phase, error) {
	dirs, err := listPhaseDirs(root)
	if err != nil {
		return nil, err
	}

	loaded := make([]*loadedPhase, 0, len(dirs))
	for _, d := range dirs {
		lp, err := loadPhase(d)
		if err != nil {
			return nil, err
		}
		loaded = append(loaded, lp)
	}

	return resolve(loaded)
}

func listPhaseDirs(root string) ([]phaseDir, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s does not exist", ErrNoPhasesFound, root)
		}
		return nil, fmt.Errorf("read phases directory: %w", err)
	}

	var dirs []phaseDir
	seen := make(map[int]string)
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		m := phaseDirPattern.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		path := filepath.Join(root, e.Name())
		n, err := strconv.Atoi(m[1])
		if err != nil || n < 1 {
			return nil, parseErrorf(path, 0, "", "phase directory number must be a positive integer")
		}
		if prev, dup := seen[n]; dup {
			return nil, parseErrorf(path, 0, "", "duplicate phase number %d (also used by %s)", n, prev)
		}
		seen[n] = e.Name()
		dirs = append(dirs, phaseDir{number: n, slug: m[2], path: path})
	}

	if len(dirs) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoPhasesFound, root)
	}
	sort.Slice(dirs, func(i, j int) bool { return dirs[i].number < dirs[j].number })
	return dirs, nil
}

func loadPhase(d phaseDir) (*loadedPhase, error) {
	entries, err := os.ReadDir(d.path)
	if err != nil {
		return nil, fmt.Errorf("read phase directory %s: %w", d.path, err)
	}

	lp := &loadedPhase{dir: d, byIdx: make(map[int]*routeDoc)}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		m := routeFilePattern.FindStringSubmatch(e.Name())
		if m == nil || isCompanion(m[3]) {
			continue
		}
		path := filepath.Join(d.path, e.Name())

		index, _ := strconv.Atoi(m[1])
		if m[2] != "" {
			if index != d.number {
				return nil, parseErrorf(path, 0, "", "file is prefixed with phase %d but lives in phase %d", index, d.number)
			}
			index, _ = strconv.Atoi(m[2])
		}

		rd, err := readRoute(path, d.number, index)
		if err != nil {
			return nil, err
		}
		if prev, dup := lp.byIdx[rd.route.Index]; dup {
			return nil, parseErrorf(path, 1, lineAt(rd.data, 1), "duplicate route id %s (also declared by %s)", rd.route.ID, prev.route.SourceFile)
		}
		lp.byIdx[rd.route.Index] = rd
		lp.routes = append(lp.routes, rd)
	}

	if len(lp.routes) == 0 {
		return nil, parseErrorf(d.path, 0, "", "phase has no route documents")
	}
	sort.Slice(lp.routes, func(i, j int) bool { return lp.routes[i].route.Index < lp.routes[j].route.Index })
	return lp, nil
}

func isCompanion(suffix string) bool {
	if suffix == "" {
		return false
	}
	parts := strings.Split(suffix, "-")
	last := parts[len(parts)-1]
	return companionSuffixes[strings.ToUpper(last)]
}

func readRoute(path string, phaseNumber, index int) (*routeDoc, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read route document %s: %w", path, err)
	}

	doc, err := ParseDocument(path, data)
	if err != nil {
		return nil, err
	}
	fm, err := decodeFrontMatter(path, data, doc.front)
	if err != nil {
		return nil, err
	}

	if fm.route > 0 {
		index = fm.route
	}
	if index < 1 {
		return nil, parseErrorf(path, 1, lineAt(data, 1), "route index must be a positive integer")
	}
	if fm.phase != 0 && fm.phase != phaseNumber {
		return nil, parseErrorf(path, 1, lineAt(data, 1), "front matter declares phase %d but the document lives in phase %d", fm.phase, phaseNumber)
	}

	title, prose := scanBody(doc.Body(), doc.bodyLine)

	return &routeDoc{
		route: Route{
			ID:         RouteID(phaseNumber, index),
			Phase:      phaseNumber,
			Index:      index,
			Title:      title,
			Wave:       fm.wave,
			Autonomous: fm.autonomous,
			SourceFile: path,
			Digest:     doc.Digest(),
		},
		data:      data,
		phaseName: fm.phaseName,
		dependsOn: fm.dependsOn,
		prereqs:   fm.prerequisites,
		prose:     prose,
	}, nil
}

// scanBody extracts the first level-one heading and the phase references
// of the Prerequisites section. firstLine is the file line of the body.
func scanBody(body string, firstLine int) (string, []proseRef) {
	var (
		title     string
		refs      []proseRef
		inFence   bool
		inSection bool
		heading   bool
		seen      bool
	)

	for i, raw := range strings.Split(body, "\n") {
		line := strings.TrimSpace(strings.TrimRight(raw, "\r"))
		lineNo := firstLine + i

		if strings.HasPrefix(line, "```") {
			inFence = !inFence
			continue
		}
		if inFence {
			continue
		}

		if title == "" && strings.HasPrefix(line, "# ") {
			title = strings.TrimSpace(strings.TrimPrefix(line, "# "))
		}

		if m := prereqHeaderPattern.FindStringSubmatch(line); m != nil && (m[1] != "" || m[2] != "") {
			inSection, heading = true, m[1] != ""
			rest := strings.TrimSpace(m[3])
			seen = rest != ""
			refs = append(refs, proseRefs(rest, lineNo)...)
			continue
		}
		if !inSection {
			continue
		}

		switch {
		case strings.HasPrefix(line, "#"):
			inSection = false
		case line == "" && !heading && seen:
			inSection = false
		case line != "":
			seen = true
			refs = append(refs, proseRefs(line, lineNo)...)
		}
	}
	return title, refs
}

func proseRefs(text string, line int) []proseRef {
	var refs []proseRef
	for _, list := range proseListPattern.FindAllStringSubmatch(text, -1) {
		for _, item := range proseItemPattern.FindAllStringSubmatch(list[1], -1) {
			if item[1] != "" {
				k, _ := strconv.Atoi(item[1])
				refs = append(refs, proseRef{phase: k, relative: true, line: line})
				continue
			}
			n, _ := strconv.Atoi(item[2])
			refs = append(refs, proseRef{phase: n, line: line})
		}
	}
	return refs
}

// resolve turns raw references into route IDs and phase numbers. It runs
// after every phase is loaded so cross-phase references can be checked.
func resolve(loaded []*loadedPhase) ([]Phase, error) {
	byNumber := make(map[int]*loadedPhase, len(loaded))
	for _, lp := range loaded {
		byNumber[lp.dir.number] = lp
	}

	phases := make([]Phase, 0, len(loaded))
	for _, lp := range loaded {
		p := Phase{
			Number: lp.dir.number,
			Name:   lp.displayName(),
			Dir:    lp.dir.path,
		}

		for _, rd := range lp.routes {
			r := rd.route

			deps, err := resolveDependsOn(rd, lp, byNumber)
			if err != nil {
				return nil, err
			}
			prereqs, types, err := resolvePrerequisites(rd, lp, byNumber)
			if err != nil {
				return nil, err
			}
			r.DependsOn, r.Prerequisites, r.RequiredTypes = deps, prereqs, types
			p.Routes = append(p.Routes, r)
		}
		phases = append(phases, p)
	}
	return phases, nil
}

func resolveDependsOn(rd *routeDoc, current *loadedPhase, byNumber map[int]*loadedPhase) ([]string, error) {
	seen := make(map[string]bool)
	var ids []string
	for _, ref := range rd.dependsOn {
		id, err := resolveRef(rd, ref, current, byNumber)
		if err != nil {
			return nil, err
		}
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	SortIDs(ids)
	return ids, nil
}

func resolveRef(rd *routeDoc, ref refValue, current *loadedPhase, byNumber map[int]*loadedPhase) (string, error) {
	path := rd.route.SourceFile
	fail := func(format string, args ...any) error {
		return parseErrorf(path, ref.line, lineAt(rd.data, ref.line), format, args...)
	}
	v := strings.TrimSpace(ref.value)

	if bareRefPattern.MatchString(v) {
		idx, _ := strconv.Atoi(v)
		if current.byIdx[idx] == nil {
			return "", fail("depends_on %q: phase %d has no route %02d; bare indexes resolve within the current phase, write <phase>.<route> for other phases", v, current.dir.number, idx)
		}
		return RouteID(current.dir.number, idx), nil
	}

	m := qualifiedRefPattern.FindStringSubmatch(v)
	if m == nil {
		m = namedRefPattern.FindStringSubmatch(v)
	}
	if m == nil {
		return "", fail("depends_on %q: expected a route index (01) or a phase-qualified id (3.01, 03-01, phase3.route1)", v)
	}

	p, _ := strconv.Atoi(m[1])
	idx, _ := strconv.Atoi(m[2])
	target := byNumber[p]
	if target == nil {
		return "", fail("depends_on %q: phase %d does not exist", v, p)
	}
	if target.byIdx[idx] == nil {
		return "", fail("depends_on %q: phase %d has no route %02d", v, p, idx)
	}
	return RouteID(p, idx), nil
}

func resolvePrerequisites(rd *routeDoc, current *loadedPhase, byNumber map[int]*loadedPhase) ([]int, []Type, error) {
	path := rd.route.SourceFile
	numbers := make(map[int]bool)
	types := make(map[Type]bool)

	addPhase := func(n, line int, v string) error {
		switch {
		case n < 1:
			return parseErrorf(path, line, lineAt(rd.data, line), "prerequisite %q: phase numbers start at 1", v)
		case n == current.dir.number:
			return nil
		case byNumber[n] == nil:
			return parseErrorf(path, line, lineAt(rd.data, line), "prerequisite %q: phase %d does not exist", v, n)
		}
		numbers[n] = true
		return nil
	}

	for _, ref := range rd.prereqs {
		v := strings.TrimSpace(ref.value)
		if bareRefPattern.MatchString(v) {
			n, _ := strconv.Atoi(v)
			if err := addPhase(n, ref.line, v); err != nil {
				return nil, nil, err
			}
			continue
		}
		if m := phaseRefPattern.FindStringSubmatch(v); m != nil {
			n, _ := strconv.Atoi(m[1])
			if err := addPhase(n, ref.line, v); err != nil {
				return nil, nil, err
			}
			continue
		}
		t, ok := ParseType(v)
		if !ok {
			return nil, nil, parseErrorf(path, ref.line, lineAt(rd.data, ref.line),
				"prerequisite %q: expected a phase number or a phase type (%s)", v, typeNames())
		}
		types[t] = true
	}

	for _, ref := range rd.prose {
		n := ref.phase
		if ref.relative {
			n = current.dir.number - ref.phase
			if n < 1 {
				continue
			}
		}
		if err := addPhase(n, ref.line, fmt.Sprintf("Phase %d", n)); err != nil {
			return nil, nil, err
		}
	}

	var prereqs []int
	for n := range numbers {
		prereqs = append(prereqs, n)
	}
	sort.Ints(prereqs)

	var required []Type
	for _, t := range Types {
		if types[t] {
			required = append(required, t)
		}
	}
	return prereqs, required, nil
}

func typeNames() string {
	names := make([]string, len(Types))
	for i, t := range Types {
		names[i] = string(t)
	}
	return strings.Join(names, ", ")
}

// displayName picks the phase label: an explicit phase_name, then the
// primary route's heading, then the directory slug.
func (lp *loadedPhase) displayName() string {
	for _, rd := range lp.routes {
		if rd.phaseName != "" {
			return rd.phaseName
		}
	}
	if len(lp.routes) > 0 {
		primary := lp.routes[0]
		if rd, ok := lp.byIdx[1]; ok {
			primary = rd
		}
		if name := NameFromTitle(primary.route.Title); name != "" {
			return name
		}
	}
	if lp.dir.slug != "" {
		return humanize(lp.dir.slug)
	}
	return filepath.Base(lp.dir.path)
}

// NameFromTitle strips "Phase N:" and "Plan NN" decorations from a heading
func NameFromTitle(title string) string {
	name := titlePrefixPattern.ReplaceAllString(strings.TrimSpace(title), "")
	name = titleSuffixPattern.ReplaceAllString(name, "")
	return strings.TrimSpace(name)
}

func humanize(slug string) string {
	words := strings.FieldsFunc(slug, func(r rune) bool { return r == '-' || r == '_' })
	for i, w := range words {
		r, size := utf8.DecodeRuneInString(w)
		words[i] = string(unicode.ToUpper(r)) + w[size:]
	}
	return strings.Join(words, " ")
}
