package report

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/felixgeelhaar/phaseguard/internal/exitcode"
	"github.com/felixgeelhaar/phaseguard/internal/fix"
	"github.com/felixgeelhaar/phaseguard/internal/graph"
	"github.com/felixgeelhaar/phaseguard/internal/phase"
	"github.com/felixgeelhaar/phaseguard/internal/validate"
)

const (
	arrowDeclared     = "──▶"
	arrowPrerequisite = "╌╌▶"
)

func renderMarkdown(in Input, opts Options) string {
	code := ExitCode(in.Result, opts.Strict)
	passed := code == exitcode.Success

	var b strings.Builder
	b.WriteString("# Phase Validation Report\n\n")
	b.WriteString(styleVerdict(verdictLine(in, passed, opts.Strict), passed, opts.Color))
	b.WriteString("\n\n")
	writeRunLine(&b, in, opts.Strict)

	writeOverview(&b, in)
	writeGraph(&b, in)
	writeIssues(&b, "Errors", in.Result.Errors)
	writeIssues(&b, "Warnings", in.Result.Warnings)
	if opts.Strict && len(in.Result.Warnings) > 0 {
		b.WriteString("_Strict mode: warnings fail the run._\n\n")
	}
	writeExternal(&b, in.Result.External)
	if in.Fixes != nil {
		writeFixes(&b, *in.Fixes)
	}
	writeWaves(&b, in.Result.Waves)
	writeNextSteps(&b, in, passed)

	return b.String()
}

func verdictLine(in Input, passed, strict bool) string {
	if passed {
		line := fmt.Sprintf("✅ **PASS**: %s, %s, %s",
			plural(len(in.Phases), "phase"),
			plural(routeCount(in.Phases), "route"),
			plural(len(in.Result.Waves), "wave"))
		if n := len(in.Result.Warnings); n > 0 {
			line += fmt.Sprintf(" (%s)", plural(n, "warning"))
		}
		return line
	}
	line := fmt.Sprintf("❌ **FAIL**: %s, %s",
		plural(len(in.Result.Errors), "error"),
		plural(len(in.Result.Warnings), "warning"))
	if strict && len(in.Result.Errors) == 0 {
		line += " (strict)"
	}
	return line
}

func writeRunLine(b *strings.Builder, in Input, strict bool) {
	var parts []string
	if in.RunID != "" {
		parts = append(parts, "Run `"+in.RunID+"`")
	}
	if in.Scope > 0 {
		parts = append(parts, fmt.Sprintf("scope: phase %d", in.Scope))
	} else {
		parts = append(parts, "scope: all phases")
	}
	if strict {
		parts = append(parts, "strict")
	}
	b.WriteString(strings.Join(parts, " · "))
	b.WriteString("\n\n")
}

func writeOverview(b *strings.Builder, in Input) {
	b.WriteString("## Phases\n\n")
	if len(in.Phases) == 0 {
		b.WriteString("_No phases in scope._\n\n")
		return
	}
	b.WriteString("| Phase | Name | Type | Routes | Waves |\n")
	b.WriteString("|---|---|---|---|---|\n")
	for _, p := range in.Phases {
		t := string(in.Result.Types[p.Number])
		if t == "" {
			t = "-"
		}
		fmt.Fprintf(b, "| %d | %s | %s | %d | %s |\n",
			p.Number, cell(p.Name), t, len(p.Routes), phaseWaves(p))
	}
	b.WriteString("\n")
}

func phaseWaves(p phase.Phase) string {
	seen := make(map[int]bool)
	var waves []int
	for _, r := range p.Routes {
		if !seen[r.Wave] {
			seen[r.Wave] = true
			waves = append(waves, r.Wave)
		}
	}
	sort.Ints(waves)
	out := make([]string, len(waves))
	for i, w := range waves {
		out[i] = strconv.Itoa(w)
	}
	return strings.Join(out, ", ")
}

func writeGraph(b *strings.Builder, in Input) {
	g := in.Graph
	b.WriteString("## Dependency Graph\n\n")
	b.WriteString("```\n")

	connected := make(map[string]bool)
	for _, e := range g.Edges() {
		connected[e.From] = true
		connected[e.To] = true
		fmt.Fprintf(b, "%s %s %s\n", node(g, e.From), arrow(e.Origin), node(g, e.To))
	}
	for _, e := range g.External() {
		connected[e.To] = true
		fmt.Fprintf(b, "%s %s %s  (external)\n", node(g, e.From), arrow(e.Origin), node(g, e.To))
	}
	for _, id := range g.Nodes() {
		if !connected[id] {
			fmt.Fprintf(b, "%s\n", node(g, id))
		}
	}
	if len(g.Nodes()) == 0 {
		b.WriteString("(empty)\n")
	}

	b.WriteString("```\n\n")
	fmt.Fprintf(b, "`%s` depends_on · `%s` phase prerequisite\n\n", arrowDeclared, arrowPrerequisite)
}

func node(g *graph.Graph, id string) string {
	if r, ok := g.Route(id); ok {
		return fmt.Sprintf("%s [w%d]", id, r.Wave)
	}
	return id
}

func arrow(o graph.Origin) string {
	if o == graph.OriginPrerequisite {
		return arrowPrerequisite
	}
	return arrowDeclared
}

func writeIssues(b *strings.Builder, title string, issues []validate.Issue) {
	fmt.Fprintf(b, "## %s (%d)\n\n", title, len(issues))
	if len(issues) == 0 {
		b.WriteString("None.\n\n")
		return
	}
	b.WriteString("| Kind | Routes | Problem | Suggested fix |\n")
	b.WriteString("|---|---|---|---|\n")
	for _, is := range issues {
		suggestion := is.Suggestion
		if suggestion == "" {
			suggestion = "-"
		}
		fmt.Fprintf(b, "| %s | %s | %s | %s |\n",
			is.Kind, strings.Join(is.Routes, ", "), cell(is.Message), cell(suggestion))
	}
	b.WriteString("\n")
}

func writeExternal(b *strings.Builder, external []graph.Edge) {
	if len(external) == 0 {
		return
	}
	b.WriteString("## External Dependencies\n\n")
	b.WriteString("Outside the validated scope; checked for forward references only.\n\n")
	for _, e := range external {
		fmt.Fprintf(b, "- %s depends on %s (%s)\n", e.To, e.From, e.Origin)
	}
	b.WriteString("\n")
}

func writeFixes(b *strings.Builder, rep fix.Report) {
	if rep.DryRun {
		b.WriteString("## Fixes (dry run)\n\n")
	} else {
		b.WriteString("## Fixes\n\n")
	}
	if len(rep.Applied)+len(rep.Failed)+len(rep.Unfixable) == 0 {
		b.WriteString("Nothing to fix.\n\n")
		return
	}

	if len(rep.Applied) > 0 {
		if rep.DryRun {
			b.WriteString("Would apply:\n\n")
		} else {
			b.WriteString("Applied:\n\n")
		}
		for _, r := range rep.Applied {
			fmt.Fprintf(b, "- %s (`%s`)\n", r, r.File)
		}
		b.WriteString("\n")
	}
	if len(rep.Failed) > 0 {
		b.WriteString("Failed:\n\n")
		for _, r := range rep.Failed {
			fmt.Fprintf(b, "- %s (`%s`): %s\n", r, r.File, r.Error)
		}
		b.WriteString("\n")
	}
	if len(rep.Unfixable) > 0 {
		b.WriteString("Needs manual attention:\n\n")
		for _, u := range rep.Unfixable {
			fmt.Fprintf(b, "- %s %s: %s\n", u.Issue.Kind, strings.Join(u.Issue.Routes, ", "), u.Reason)
		}
		b.WriteString("\n")
	}
}

func writeWaves(b *strings.Builder, waves []validate.Wave) {
	b.WriteString("## Wave Plan\n\n")
	if len(waves) == 0 {
		b.WriteString("_No routes._\n\n")
		return
	}
	for _, w := range waves {
		fmt.Fprintf(b, "### Wave %d\n\n", w.Number)
		if len(w.Autonomous) > 0 {
			fmt.Fprintf(b, "- Autonomous: %s\n", strings.Join(w.Autonomous, ", "))
		}
		if len(w.Checkpoint) > 0 {
			fmt.Fprintf(b, "- Checkpoint: %s\n", strings.Join(w.Checkpoint, ", "))
		}
		b.WriteString("\n")
	}
}

func writeNextSteps(b *strings.Builder, in Input, passed bool) {
	b.WriteString("## Next Steps\n\n```bash\n")
	scope := ""
	if in.Scope > 0 {
		scope = fmt.Sprintf(" --phase %d", in.Scope)
	}
	if passed {
		b.WriteString("# phases are ready to execute\n")
		b.WriteString("phaseguard review" + scope + "\n")
	} else {
		if fixable(in.Result) {
			b.WriteString("# preview and apply the mechanical fixes\n")
			b.WriteString("phaseguard validate --fix --dry-run" + scope + "\n")
			b.WriteString("phaseguard validate --fix" + scope + "\n")
		}
		if hasStructural(in.Result) {
			b.WriteString("# edit depends_on / prerequisites to remove forward and circular dependencies\n")
		}
		b.WriteString("phaseguard validate" + scope + "\n")
	}
	b.WriteString("```\n")
}

func fixable(res validate.Result) bool {
	for _, is := range res.Errors {
		if is.Kind.Fixable() {
			return true
		}
	}
	return false
}

func hasStructural(res validate.Result) bool {
	return res.Count(validate.KindForwardDependency)+res.Count(validate.KindCircularDependency) > 0
}

func routeCount(phases []phase.Phase) int {
	n := 0
	for _, p := range phases {
		n += len(p.Routes)
	}
	return n
}

// cell makes text safe for a markdown table cell
func cell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.ReplaceAll(s, "\n", " ")
}
