package phase

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeDoc(t *testing.T, root, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(root, dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_OrdersPhasesAndRoutes(t *testing.T) {
	root := t.TempDir()
	writeDoc(t, root, "10-polish", "01-PLAN.md", "---\nwave: 3\n---\n# Phase 10: Polish\n")
	writeDoc(t, root, "02", "02-02-PLAN.md", "---\nwave: 2\ndepends_on: [\"01\"]\n---\n# Second\n")
	writeDoc(t, root, "02", "02-01-PLAN.md", "---\nwave: 1\nautonomous: false\n---\n# Phase 2: Database Schema - Plan 01\n")
	writeDoc(t, root, "01-foundation", "01-PLAN.md", "---\nwave: 1\n---\nno heading\n")
	writeDoc(t, root, "01-foundation", "README.md", "ignored")
	writeDoc(t, root, "notes", "01-PLAN.md", "---\nwave: 1\n---\n")

	phases, err := Load(root)
	require.NoError(t, err)
	require.Len(t, phases, 3)

	assert.Equal(t, []int{1, 2, 10}, Numbers(phases))
	assert.Equal(t, "Foundation", phases[0].Name)
	assert.Equal(t, "Database Schema", phases[1].Name)
	assert.Equal(t, "Polish", phases[2].Name)

	routes := phases[1].Routes
	require.Len(t, routes, 2)
	assert.Equal(t, "2.01", routes[0].ID)
	assert.False(t, routes[0].Autonomous)
	assert.Equal(t, "2.02", routes[1].ID)
	assert.True(t, routes[1].Autonomous)
	assert.Equal(t, []string{"2.01"}, routes[1].DependsOn)
	assert.NotEmpty(t, routes[1].Digest)
	assert.Equal(t, filepath.Join(root, "02", "02-02-PLAN.md"), routes[1].SourceFile)
}

func TestLoad_NoPhasesFound(t *testing.T) {
	t.Run("missing root", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "phases"))
		assert.True(t, errors.Is(err, ErrNoPhasesFound))
	})

	t.Run("no numeric directories", func(t *testing.T) {
		root := t.TempDir()
		require.NoError(t, os.MkdirAll(filepath.Join(root, "drafts"), 0o755))
		_, err := Load(root)
		assert.True(t, errors.Is(err, ErrNoPhasesFound))
	})
}

func TestLoad_ResolvesReferences(t *testing.T) {
	root := t.TempDir()
	writeDoc(t, root, "01", "01-PLAN.md", "---\nwave: 1\n---\n")
	writeDoc(t, root, "01", "10-PLAN.md", "---\nwave: 1\n---\n")
	writeDoc(t, root, "02", "01-PLAN.md", "---\nwave: 1\n---\n")
	writeDoc(t, root, "03", "01-PLAN.md", "---\nwave: 2\ndepends_on:\n  - 1.10\n  - 02-01\n  - phase1.plan1\n  - 1.01\n---\n")
	writeDoc(t, root, "03", "02-PLAN.md", "---\nwave: 3\ndepends_on: 01\n---\n")

	phases, err := Load(root)
	require.NoError(t, err)

	r301, ok := phases[2].Route(1)
	require.True(t, ok)
	assert.Equal(t, []string{"1.01", "1.10", "2.01"}, r301.DependsOn)

	r302, ok := phases[2].Route(2)
	require.True(t, ok)
	assert.Equal(t, []string{"3.01"}, r302.DependsOn)
}

func TestLoad_Prerequisites(t *testing.T) {
	root := t.TempDir()
	writeDoc(t, root, "01", "01-PLAN.md", "---\nwave: 1\n---\n# Setup\n")
	writeDoc(t, root, "02", "01-PLAN.md", "---\nwave: 1\n---\n# Database\n")
	writeDoc(t, root, "03", "01-PLAN.md", `---
wave: 2
prerequisites: [1, Database, business-logic]
---
# Phase 3: API

**Prerequisites:** Phase N-1 complete

Phase 1 is mentioned here but outside the section.
`)
	writeDoc(t, root, "04", "01-PLAN.md", `---
wave: 3
---
# Phase 4: Frontend

## Prerequisites

- Phases 1 and 3
- Phase N-5 (before the project started)

## Tasks

Phase 2 is not a prerequisite.
`)

	phases, err := Load(root)
	require.NoError(t, err)

	api := phases[2].Routes[0]
	assert.Equal(t, []int{1, 2}, api.Prerequisites)
	assert.Equal(t, []Type{TypeDatabase, TypeBusinessLogic}, api.RequiredTypes)

	frontend := phases[3].Routes[0]
	assert.Equal(t, []int{1, 3}, frontend.Prerequisites)
	assert.Empty(t, frontend.RequiredTypes)
}

func TestLoad_PhaseNamePrecedence(t *testing.T) {
	root := t.TempDir()
	writeDoc(t, root, "01-slug-name", "01-PLAN.md", "---\nwave: 1\n---\n# Heading Name\n")
	writeDoc(t, root, "01-slug-name", "02-PLAN.md", "---\nwave: 1\nphase_name: Explicit Name\n---\n# Other\n")
	writeDoc(t, root, "02-user-dashboard", "01-PLAN.md", "---\nwave: 1\n---\nbody only\n")

	phases, err := Load(root)
	require.NoError(t, err)
	assert.Equal(t, "Explicit Name", phases[0].Name)
	assert.Equal(t, "User Dashboard", phases[1].Name)
}

func TestLoad_EmptyPhaseDirectory(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "01-setup"), 0o755))
	writeDoc(t, root, "02-api", "01-PLAN.md", "---\nwave: 1\n---\n")

	_, err := Load(root)
	var perr *ParseError
	require.True(t, errors.As(err, &perr), "expected *ParseError, got %v", err)
	assert.Equal(t, filepath.Join(root, "01-setup"), perr.Path)
}

func TestHumanize(t *testing.T) {
	assert.Equal(t, "User Dashboard", humanize("user-dashboard"))
	assert.Equal(t, "Édition Ünits", humanize("édition_ünits"))
	assert.Equal(t, "Api V2", humanize("api--v2"))
}

func TestLoad_SkipsCompanionFiles(t *testing.T) {
	root := t.TempDir()
	writeDoc(t, root, "03", "03-01-PLAN.md", "---\nwave: 1\n---\n")
	writeDoc(t, root, "03", "03-01-SUMMARY.md", "no front matter")
	writeDoc(t, root, "03", "03-CONTEXT.md", "no front matter")
	writeDoc(t, root, "03", "03-RESEARCH.md", "no front matter")

	phases, err := Load(root)
	require.NoError(t, err)
	require.Len(t, phases[0].Routes, 1)
	assert.Equal(t, "3.01", phases[0].Routes[0].ID)
}

func TestLoad_RouteOverrideFromFrontMatter(t *testing.T) {
	root := t.TempDir()
	writeDoc(t, root, "02", "02-setup-db.md", "---\nwave: 1\nplan: 3\nphase: 02-database\n---\n")

	phases, err := Load(root)
	require.NoError(t, err)
	assert.Equal(t, "2.03", phases[0].Routes[0].ID)
}

func TestLoad_ParseErrors(t *testing.T) {
	tests := []struct {
		name     string
		files    map[string]string
		wantFile string
		wantLine int
		wantMsg  string
	}{
		{
			name:     "non-integer wave",
			files:    map[string]string{"01/01-PLAN.md": "---\nautonomous: true\nwave: two\n---\n"},
			wantFile: "01/01-PLAN.md",
			wantLine: 3,
			wantMsg:  "wave must be an integer >= 1",
		},
		{
			name:     "zero wave",
			files:    map[string]string{"01/01-PLAN.md": "---\nwave: 0\n---\n"},
			wantFile: "01/01-PLAN.md",
			wantLine: 2,
			wantMsg:  "wave must be an integer >= 1",
		},
		{
			name:     "quoted wave",
			files:    map[string]string{"01/01-PLAN.md": "---\nwave: \"1\"\n---\n"},
			wantFile: "01/01-PLAN.md",
			wantLine: 2,
			wantMsg:  "wave must be an integer",
		},
		{
			name:     "missing wave",
			files:    map[string]string{"01/01-PLAN.md": "---\nautonomous: false\n---\n"},
			wantFile: "01/01-PLAN.md",
			wantLine: 1,
			wantMsg:  `missing required front matter key "wave"`,
		},
		{
			name:     "bad autonomous",
			files:    map[string]string{"01/01-PLAN.md": "---\nwave: 1\nautonomous: maybe\n---\n"},
			wantFile: "01/01-PLAN.md",
			wantLine: 3,
			wantMsg:  "autonomous must be true or false",
		},
		{
			name:     "missing front matter",
			files:    map[string]string{"01/01-PLAN.md": "# Just a heading\n"},
			wantFile: "01/01-PLAN.md",
			wantLine: 1,
			wantMsg:  "missing front matter",
		},
		{
			name: "duplicate route",
			files: map[string]string{
				"01/01-PLAN.md":    "---\nwave: 1\n---\n",
				"01/01-01-PLAN.md": "---\nwave: 1\n---\n",
			},
			wantMsg: "duplicate route id 1.01",
		},
		{
			name: "bare index across phases",
			files: map[string]string{
				"01/01-PLAN.md": "---\nwave: 1\n---\n",
				"02/02-PLAN.md": "---\nwave: 2\ndepends_on: [\"01\"]\n---\n",
			},
			wantFile: "02/02-PLAN.md",
			wantLine: 3,
			wantMsg:  "phase 2 has no route 01",
		},
		{
			name: "unknown qualified route",
			files: map[string]string{
				"01/01-PLAN.md": "---\nwave: 1\n---\n",
				"02/01-PLAN.md": "---\nwave: 2\ndepends_on:\n  - 1.02\n---\n",
			},
			wantFile: "02/01-PLAN.md",
			wantLine: 4,
			wantMsg:  "phase 1 has no route 02",
		},
		{
			name:     "unparseable reference",
			files:    map[string]string{"01/01-PLAN.md": "---\nwave: 1\ndepends_on: [the database one]\n---\n"},
			wantFile: "01/01-PLAN.md",
			wantMsg:  "expected a route index",
		},
		{
			name:     "unknown prerequisite type",
			files:    map[string]string{"01/01-PLAN.md": "---\nwave: 1\nprerequisites: [Marketing]\n---\n"},
			wantFile: "01/01-PLAN.md",
			wantLine: 3,
			wantMsg:  `prerequisite "Marketing"`,
		},
		{
			name:     "missing prerequisite phase",
			files:    map[string]string{"01/01-PLAN.md": "---\nwave: 1\nprerequisites: [7]\n---\n"},
			wantFile: "01/01-PLAN.md",
			wantMsg:  "phase 7 does not exist",
		},
		{
			name:     "invalid yaml",
			files:    map[string]string{"01/01-PLAN.md": "---\nwave: 1\ndepends_on: [01\n---\n"},
			wantFile: "01/01-PLAN.md",
			wantMsg:  "invalid front matter",
		},
		{
			name: "phase without routes",
			files: map[string]string{
				"01-setup/NOTES.md": "scratch",
				"02-api/01-PLAN.md": "---\nwave: 1\nprerequisites: [1]\n---\n",
			},
			wantFile: "01-setup",
			wantMsg:  "phase has no route documents",
		},
		{
			name:     "phase prefix mismatch",
			files:    map[string]string{"02/03-01-PLAN.md": "---\nwave: 1\n---\n"},
			wantFile: "02/03-01-PLAN.md",
			wantMsg:  "prefixed with phase 3",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := t.TempDir()
			for rel, content := range tt.files {
				writeDoc(t, root, filepath.Dir(rel), filepath.Base(rel), content)
			}

			_, err := Load(root)
			require.Error(t, err)

			var perr *ParseError
			require.True(t, errors.As(err, &perr), "expected *ParseError, got %T: %v", err, err)
			assert.Contains(t, perr.Msg, tt.wantMsg)
			if tt.wantFile != "" {
				assert.Equal(t, filepath.Join(root, tt.wantFile), perr.Path)
			}
			if tt.wantLine != 0 {
				assert.Equal(t, tt.wantLine, perr.Line)
			}
		})
	}
}

func TestParseError_Error(t *testing.T) {
	err := parseErrorf("phases/01/01-PLAN.md", 3, "  wave: two  ", "wave must be an integer >= 1, got %q", "two")
	assert.Equal(t, "phases/01/01-PLAN.md:3: wave must be an integer >= 1, got \"two\"\n    > wave: two", err.Error())

	noLine := &ParseError{Path: "phases/02", Msg: "duplicate phase number 2"}
	assert.Equal(t, "phases/02: duplicate phase number 2", noLine.Error())
}

func TestNameFromTitle(t *testing.T) {
	tests := map[string]string{
		"Phase 3: Authentication Service - Plan 01": "Authentication Service",
		"Phase 2 - Database":                        "Database",
		"Frontend (Plan 2)":                         "Frontend",
		"API Layer":                                 "API Layer",
		"":                                          "",
	}
	for in, want := range tests {
		assert.Equal(t, want, NameFromTitle(in), in)
	}
}
