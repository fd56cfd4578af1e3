// Package report renders validation results for people and for tools.
package report

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/felixgeelhaar/phaseguard/internal/exitcode"
	"github.com/felixgeelhaar/phaseguard/internal/fix"
	"github.com/felixgeelhaar/phaseguard/internal/graph"
	"github.com/felixgeelhaar/phaseguard/internal/phase"
	"github.com/felixgeelhaar/phaseguard/internal/ux"
	"github.com/felixgeelhaar/phaseguard/internal/validate"
)

// Input is everything a report can show
type Input struct {
	RunID string

	// Phases are the phases in scope; Scope is 0 for a full run
	Phases []phase.Phase
	Scope  int

	Graph  *graph.Graph
	Result validate.Result

	// Fixes is nil when --fix was not requested
	Fixes *fix.Report
}

// Options controls rendering
type Options struct {
	Format ux.Format
	Strict bool
	Color  bool
}

// ExitCode is 1 when there are errors, or warnings under strict mode
func ExitCode(res validate.Result, strict bool) int {
	if res.Failed(strict) {
		return exitcode.ValidationFailed
	}
	return exitcode.Success
}

// Render produces the report text and the process exit code
func Render(in Input, opts Options) (string, int, error) {
	code := ExitCode(in.Result, opts.Strict)
	if in.Graph == nil {
		in.Graph = graph.BuildScoped(in.Phases, in.Scope)
	}

	var buf bytes.Buffer
	f, err := ux.NewFormatter(opts.Format, &ux.FormatterOptions{Writer: &buf})
	if err != nil {
		return "", code, err
	}

	var data any
	switch {
	case opts.Format.Structured():
		data = NewDocument(in, opts.Strict, code)
	case opts.Format == ux.FormatQuiet:
		data = renderQuiet(in, opts)
	default:
		data = renderMarkdown(in, opts)
	}

	if err := f.Format(data); err != nil {
		return "", code, fmt.Errorf("render %s report: %w", opts.Format, err)
	}
	return buf.String(), code, nil
}

// Document is the structured form of a report for json and yaml output
type Document struct {
	RunID    string `json:"run_id" yaml:"run_id"`
	Verdict  string `json:"verdict" yaml:"verdict"`
	Strict   bool   `json:"strict" yaml:"strict"`
	Scope    int    `json:"scope,omitempty" yaml:"scope,omitempty"`
	ExitCode int    `json:"exit_code" yaml:"exit_code"`

	Phases   []PhaseSummary   `json:"phases" yaml:"phases"`
	Edges    []graph.Edge     `json:"edges" yaml:"edges"`
	Errors   []validate.Issue `json:"errors" yaml:"errors"`
	Warnings []validate.Issue `json:"warnings" yaml:"warnings"`
	Cycles   []graph.Cycle    `json:"cycles,omitempty" yaml:"cycles,omitempty"`
	External []graph.Edge     `json:"external,omitempty" yaml:"external,omitempty"`
	Waves    []validate.Wave  `json:"waves" yaml:"waves"`
	Fixes    *fix.Report      `json:"fixes,omitempty" yaml:"fixes,omitempty"`
}

// PhaseSummary is one row of the phase overview
type PhaseSummary struct {
	Number int           `json:"number" yaml:"number"`
	Name   string        `json:"name" yaml:"name"`
	Type   phase.Type    `json:"type,omitempty" yaml:"type,omitempty"`
	Routes []phase.Route `json:"routes" yaml:"routes"`
}

// NewDocument builds the structured report
func NewDocument(in Input, strict bool, code int) Document {
	doc := Document{
		RunID:    in.RunID,
		Verdict:  verdict(code),
		Strict:   strict,
		Scope:    in.Scope,
		ExitCode: code,
		Phases:   make([]PhaseSummary, 0, len(in.Phases)),
		Edges:    []graph.Edge{},
		Errors:   in.Result.Errors,
		Warnings: in.Result.Warnings,
		Cycles:   in.Result.Cycles,
		External: in.Result.External,
		Waves:    in.Result.Waves,
		Fixes:    in.Fixes,
	}
	if in.Graph != nil {
		doc.Edges = in.Graph.Edges()
	}
	for _, p := range in.Phases {
		doc.Phases = append(doc.Phases, PhaseSummary{
			Number: p.Number,
			Name:   p.Name,
			Type:   in.Result.Types[p.Number],
			Routes: p.Routes,
		})
	}
	return doc
}

func verdict(code int) string {
	if code == exitcode.Success {
		return "pass"
	}
	return "fail"
}

var (
	passStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("46"))
	failStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
)

func styleVerdict(line string, passed, color bool) string {
	if !color {
		return line
	}
	if passed {
		return passStyle.Render(line)
	}
	return failStyle.Render(line)
}

func plural(n int, word string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, word)
	}
	if strings.HasSuffix(word, "x") {
		return fmt.Sprintf("%d %ses", n, word)
	}
	return fmt.Sprintf("%d %ss", n, word)
}
