package report

import (
	"fmt"
	"strings"

	"github.com/felixgeelhaar/phaseguard/internal/exitcode"
	"github.com/felixgeelhaar/phaseguard/internal/validate"
)

// renderQuiet produces the CI summary: one verdict line, then one bullet
// per issue
func renderQuiet(in Input, opts Options) string {
	passed := ExitCode(in.Result, opts.Strict) == exitcode.Success

	var line string
	if passed {
		line = fmt.Sprintf("✅ Validation passed: %s, %s, %s",
			plural(len(in.Phases), "phase"),
			plural(routeCount(in.Phases), "route"),
			plural(len(in.Result.Waves), "wave"))
		if n := len(in.Result.Warnings); n > 0 {
			line += fmt.Sprintf(" (%s)", plural(n, "warning"))
		}
	} else {
		line = fmt.Sprintf("❌ Validation failed: %s, %s",
			plural(len(in.Result.Errors), "error"),
			plural(len(in.Result.Warnings), "warning"))
	}

	var b strings.Builder
	b.WriteString(styleVerdict(line, passed, opts.Color))
	b.WriteString("\n")
	for _, is := range in.Result.Issues() {
		b.WriteString(quietBullet(is))
		b.WriteString("\n")
	}
	if in.Fixes != nil && in.Fixes.Changed() {
		verb := "applied"
		if in.Fixes.DryRun {
			verb = "planned"
		}
		fmt.Fprintf(&b, "🔧 %s %s, %d failed\n", plural(len(in.Fixes.Applied), "fix"), verb, len(in.Fixes.Failed))
	}
	return b.String()
}

func quietBullet(is validate.Issue) string {
	routes := strings.Join(is.Routes, ",")
	if routes == "" {
		routes = is.Route
	}
	return fmt.Sprintf("- %s %s: %s", is.Kind, routes, is.Message)
}
