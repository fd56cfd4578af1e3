// Package tui provides the interactive wave review.
package tui

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/felixgeelhaar/phaseguard/internal/phase"
	"github.com/felixgeelhaar/phaseguard/internal/validate"
)

// ViewMode is the screen the review is showing
type ViewMode int

const (
	// ViewList lists every route grouped by wave
	ViewList ViewMode = iota
	// ViewDetail shows one route with its issues
	ViewDetail
)

// item is one route row of the list
type item struct {
	wave       int
	route      phase.Route
	checkpoint bool
	issues     []validate.Issue
}

// ReviewModel is the BubbleTea model for browsing a wave plan
type ReviewModel struct {
	result validate.Result
	all    []item

	// items is all, or only routes with issues when issuesOnly is set
	items      []item
	issuesOnly bool

	cursor   int
	viewMode ViewMode
	width    int
	height   int
	quitting bool

	styles Styles
}

// NewReviewModel builds the review over the routes of phases, ordered by
// the wave plan of res
func NewReviewModel(phases []phase.Phase, res validate.Result) ReviewModel {
	index := phase.Index(phases)
	var all []item
	for _, w := range res.Waves {
		for _, id := range w.Autonomous {
			all = append(all, item{wave: w.Number, route: index[id], issues: res.ForRoute(id)})
		}
		for _, id := range w.Checkpoint {
			all = append(all, item{wave: w.Number, route: index[id], checkpoint: true, issues: res.ForRoute(id)})
		}
	}
	return ReviewModel{
		result:   res,
		all:      all,
		items:    all,
		viewMode: ViewList,
		styles:   DefaultStyles(),
	}
}

// Init initializes the model
func (m ReviewModel) Init() tea.Cmd {
	return nil
}

// Update handles messages and updates the model
func (m ReviewModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			m.quitting = true
			return m, tea.Quit

		case "up", "k":
			if m.viewMode == ViewList && m.cursor > 0 {
				m.cursor--
			}

		case "down", "j":
			if m.viewMode == ViewList && m.cursor < len(m.items)-1 {
				m.cursor++
			}

		case "home", "g":
			if m.viewMode == ViewList {
				m.cursor = 0
			}

		case "end", "G":
			if m.viewMode == ViewList && len(m.items) > 0 {
				m.cursor = len(m.items) - 1
			}

		case "enter", "right", "l":
			if m.viewMode == ViewList && len(m.items) > 0 {
				m.viewMode = ViewDetail
			}

		case "left", "h", "esc":
			if m.viewMode == ViewDetail {
				m.viewMode = ViewList
			}

		case "f":
			if m.viewMode == ViewList {
				m.toggleIssuesOnly()
			}
		}
	}

	return m, nil
}

func (m *ReviewModel) toggleIssuesOnly() {
	m.issuesOnly = !m.issuesOnly
	m.cursor = 0
	if !m.issuesOnly {
		m.items = m.all
		return
	}
	m.items = nil
	for _, it := range m.all {
		if len(it.issues) > 0 {
			m.items = append(m.items, it)
		}
	}
}

// Selected returns the route under the cursor
func (m ReviewModel) Selected() (phase.Route, bool) {
	if m.cursor < 0 || m.cursor >= len(m.items) {
		return phase.Route{}, false
	}
	return m.items[m.cursor].route, true
}

// View renders the current state
func (m ReviewModel) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(m.styles.Title.Render("🌊 Wave Review"))
	b.WriteString("\n")
	b.WriteString(m.styles.Subtitle.Render(m.summary()))
	b.WriteString("\n\n")

	if m.viewMode == ViewDetail {
		m.renderDetail(&b, m.items[m.cursor])
		b.WriteString(m.styles.Help.Render("h/esc: back to list | q: quit"))
		return b.String()
	}

	if len(m.items) == 0 {
		b.WriteString(m.styles.Item.Render(m.styles.Success.Render("No routes with issues")))
		b.WriteString("\n")
	}
	lastWave := 0
	for i, it := range m.items {
		if it.wave != lastWave {
			if lastWave != 0 {
				b.WriteString("\n")
			}
			b.WriteString(m.styles.Wave.Render(fmt.Sprintf("Wave %d", it.wave)))
			b.WriteString("\n")
			lastWave = it.wave
		}

		cursor, style := "  ", m.styles.Item
		if i == m.cursor {
			cursor, style = "→ ", m.styles.Selected
		}
		b.WriteString(style.Render(cursor + m.itemLine(it)))
		b.WriteString("\n")
	}

	filter := "f: issues only"
	if m.issuesOnly {
		filter = "f: show all"
	}
	b.WriteString(m.styles.Help.Render("↑/↓: navigate | enter: details | " + filter + " | q: quit"))
	return b.String()
}

func (m ReviewModel) summary() string {
	return strings.Join([]string{
		count(len(m.result.Waves), "wave"),
		count(len(m.all), "route"),
		count(len(m.result.Errors), "error"),
		count(len(m.result.Warnings), "warning"),
	}, " · ")
}

func count(n int, noun string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, noun)
	}
	return fmt.Sprintf("%d %ss", n, noun)
}

func (m ReviewModel) itemLine(it item) string {
	mode := "auto"
	if it.checkpoint {
		mode = "checkpoint"
	}
	line := fmt.Sprintf("%s [%s]", it.route.ID, mode)
	if it.route.Title != "" {
		line += " " + it.route.Title
	}

	errs, warns := countIssues(it.issues)
	if errs > 0 {
		line += " " + m.styles.Error.Render(fmt.Sprintf("✗%d", errs))
	}
	if warns > 0 {
		line += " " + m.styles.Warning.Render(fmt.Sprintf("!%d", warns))
	}
	if errs+warns == 0 {
		line += " " + m.styles.Success.Render("✓")
	}
	return line
}

func (m ReviewModel) renderDetail(b *strings.Builder, it item) {
	r := it.route
	mode := "autonomous"
	if it.checkpoint {
		mode = "checkpoint"
	}
	deps := "none"
	if len(r.DependsOn) > 0 {
		deps = strings.Join(r.DependsOn, ", ")
	}
	prereqs := "none"
	if len(r.Prerequisites) > 0 || len(r.RequiredTypes) > 0 {
		var parts []string
		for _, n := range r.Prerequisites {
			parts = append(parts, fmt.Sprintf("phase %d", n))
		}
		for _, t := range r.RequiredTypes {
			parts = append(parts, string(t))
		}
		prereqs = strings.Join(parts, ", ")
	}

	details := []struct {
		key   string
		value string
	}{
		{"Route", r.ID},
		{"Title", r.Title},
		{"Wave", fmt.Sprintf("%d", r.Wave)},
		{"Mode", mode},
		{"Depends on", deps},
		{"Prerequisites", prereqs},
		{"File", r.SourceFile},
	}
	for _, d := range details {
		b.WriteString("  ")
		b.WriteString(m.styles.Key.Render(fmt.Sprintf("%-14s:", d.key)))
		b.WriteString(" ")
		b.WriteString(m.styles.Value.Render(d.value))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	if len(it.issues) == 0 {
		b.WriteString("  " + m.styles.Success.Render("✓ No issues") + "\n")
		return
	}
	for _, is := range it.issues {
		style := m.styles.Error
		if is.Severity == validate.SeverityWarning {
			style = m.styles.Warning
		}
		b.WriteString("  " + style.Render(string(is.Kind)) + "\n")
		b.WriteString("    " + is.Message + "\n")
		if is.Suggestion != "" {
			b.WriteString("    " + m.styles.Muted.Render("→ "+is.Suggestion) + "\n")
		}
	}
}

func countIssues(issues []validate.Issue) (errs, warns int) {
	for _, is := range issues {
		if is.Severity == validate.SeverityWarning {
			warns++
		} else {
			errs++
		}
	}
	return errs, warns
}

// RunReview launches the interactive wave review
func RunReview(ctx context.Context, phases []phase.Phase, res validate.Result, opts ...tea.ProgramOption) error {
	model := NewReviewModel(phases, res)
	if len(model.all) == 0 {
		return fmt.Errorf("no routes to review")
	}

	opts = append([]tea.ProgramOption{tea.WithContext(ctx), tea.WithAltScreen()}, opts...)
	if _, err := tea.NewProgram(model, opts...).Run(); err != nil {
		return fmt.Errorf("running wave review UI: %w", err)
	}
	return nil
}
