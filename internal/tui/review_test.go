package tui

import (
	"context"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/felixgeelhaar/phaseguard/internal/graph"
	"github.com/felixgeelhaar/phaseguard/internal/phase"
	"github.com/felixgeelhaar/phaseguard/internal/validate"
)

func createTestPlan() ([]phase.Phase, validate.Result) {
	phases := []phase.Phase{
		{Number: 1, Name: "Alpha", Routes: []phase.Route{
			{ID: "1.01", Phase: 1, Index: 1, Wave: 1, Autonomous: true, Title: "Scaffold", SourceFile: "01/01-PLAN.md"},
			{ID: "1.02", Phase: 1, Index: 2, Wave: 1, Autonomous: false, Title: "Review", SourceFile: "01/02-PLAN.md"},
		}},
		{Number: 2, Name: "Beta", Routes: []phase.Route{
			{ID: "2.01", Phase: 2, Index: 1, Wave: 1, Autonomous: true, DependsOn: []string{"1.01"}, SourceFile: "02/01-PLAN.md"},
		}},
	}
	res := validate.NewEngine(validate.DefaultTables()).Validate(validate.Input{
		Phases: phases,
		Graph:  graph.Build(phases),
	})
	return phases, res
}

func press(t *testing.T, m ReviewModel, keys ...string) ReviewModel {
	t.Helper()
	for _, k := range keys {
		var msg tea.KeyMsg
		switch k {
		case "enter":
			msg = tea.KeyMsg{Type: tea.KeyEnter}
		case "esc":
			msg = tea.KeyMsg{Type: tea.KeyEsc}
		default:
			msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
		}
		updated, _ := m.Update(msg)
		next, ok := updated.(ReviewModel)
		if !ok {
			t.Fatalf("unexpected model type: %T", updated)
		}
		m = next
	}
	return m
}

func TestNewReviewModel_OrdersByWave(t *testing.T) {
	m := NewReviewModel(createTestPlan())

	var ids []string
	for _, it := range m.items {
		ids = append(ids, it.route.ID)
	}
	// 2.01 sits in wave 1 with its dependency, so it is flagged
	if got := strings.Join(ids, ","); got != "1.01,2.01,1.02" {
		t.Errorf("items = %s, want autonomous routes before checkpoints", got)
	}
	if !m.items[2].checkpoint {
		t.Error("1.02 should be a checkpoint route")
	}
	if len(m.items[1].issues) != 1 {
		t.Errorf("2.01 issues = %d, want 1", len(m.items[1].issues))
	}
}

func TestReviewModel_Init(t *testing.T) {
	m := NewReviewModel(createTestPlan())
	if cmd := m.Init(); cmd != nil {
		t.Error("Expected Init to return nil cmd")
	}
}

func TestReviewModel_Navigation(t *testing.T) {
	m := NewReviewModel(createTestPlan())

	m = press(t, m, "j")
	if m.cursor != 1 {
		t.Errorf("Expected cursor at 1, got %d", m.cursor)
	}

	m = press(t, m, "k", "k")
	if m.cursor != 0 {
		t.Errorf("Expected cursor to stay at 0, got %d", m.cursor)
	}

	m = press(t, m, "j", "j", "j", "j")
	if m.cursor != 2 {
		t.Errorf("Expected cursor to stay at max, got %d", m.cursor)
	}

	m = press(t, m, "g")
	if m.cursor != 0 {
		t.Errorf("Expected g to jump to the top, got %d", m.cursor)
	}
	m = press(t, m, "G")
	if r, _ := m.Selected(); r.ID != "1.02" {
		t.Errorf("Expected G to select 1.02, got %s", r.ID)
	}
}

func TestReviewModel_DetailView(t *testing.T) {
	m := NewReviewModel(createTestPlan())

	m = press(t, m, "j", "enter")
	if m.viewMode != ViewDetail {
		t.Fatal("Expected detail view after enter")
	}

	view := m.View()
	for _, want := range []string{"2.01", "1.01", "INVALID_WAVE", "Set wave: 2"} {
		if !strings.Contains(view, want) {
			t.Errorf("detail view missing %q:\n%s", want, view)
		}
	}

	// navigation is ignored in the detail view
	m = press(t, m, "j")
	if m.cursor != 1 {
		t.Errorf("Expected cursor to stay at 1, got %d", m.cursor)
	}

	m = press(t, m, "esc")
	if m.viewMode != ViewList {
		t.Error("Expected list view after esc")
	}
}

func TestReviewModel_IssuesOnly(t *testing.T) {
	m := NewReviewModel(createTestPlan())

	m = press(t, m, "f")
	if len(m.items) != 1 {
		t.Fatalf("Expected 1 route with issues, got %d", len(m.items))
	}
	if r, ok := m.Selected(); !ok || r.ID != "2.01" {
		t.Errorf("Expected 2.01 selected, got %s", r.ID)
	}
	if !strings.Contains(m.View(), "f: show all") {
		t.Error("Expected help to offer showing all routes")
	}

	m = press(t, m, "f")
	if len(m.items) != 3 {
		t.Errorf("Expected all 3 routes, got %d", len(m.items))
	}
}

func TestReviewModel_IssuesOnlyEmpty(t *testing.T) {
	phases := []phase.Phase{{Number: 1, Name: "Alpha", Routes: []phase.Route{
		{ID: "1.01", Phase: 1, Index: 1, Wave: 1, Autonomous: true},
	}}}
	res := validate.NewEngine(validate.DefaultTables()).Validate(validate.Input{Phases: phases})

	m := press(t, NewReviewModel(phases, res), "f", "enter")
	if m.viewMode != ViewList {
		t.Error("enter on an empty list should not open the detail view")
	}
	if !strings.Contains(m.View(), "No routes with issues") {
		t.Error("Expected empty-state message")
	}
}

func TestReviewModel_ListView(t *testing.T) {
	m := NewReviewModel(createTestPlan())

	view := m.View()
	for _, want := range []string{
		"Wave Review",
		"1 wave · 3 routes · 1 error · 0 warnings",
		"Wave 1",
		"→ 1.01 [auto] Scaffold ✓",
		"1.02 [checkpoint] Review",
		"2.01 [auto] ✗1",
	} {
		if !strings.Contains(view, want) {
			t.Errorf("list view missing %q:\n%s", want, view)
		}
	}
}

func TestReviewModel_Quit(t *testing.T) {
	m := NewReviewModel(createTestPlan())

	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	if cmd == nil {
		t.Fatal("Expected quit command")
	}
	if view := updated.(ReviewModel).View(); view != "" {
		t.Errorf("Expected empty view after quit, got %q", view)
	}
}

func TestReviewModel_WindowSize(t *testing.T) {
	m := NewReviewModel(createTestPlan())

	updated, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	rm := updated.(ReviewModel)
	if rm.width != 120 || rm.height != 40 {
		t.Errorf("Expected 120x40, got %dx%d", rm.width, rm.height)
	}
}

func TestRunReview_NoRoutes(t *testing.T) {
	if err := RunReview(context.Background(), nil, validate.Result{}); err == nil {
		t.Error("Expected error for an empty plan")
	}
}
