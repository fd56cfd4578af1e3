package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pgerrors "github.com/felixgeelhaar/phaseguard/internal/errors"
	"github.com/felixgeelhaar/phaseguard/internal/exitcode"
	"github.com/felixgeelhaar/phaseguard/internal/ux"
	"github.com/felixgeelhaar/phaseguard/internal/validate"
)

func project(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		path := filepath.Join(root, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return root
}

func cleanProject(t *testing.T) string {
	return project(t, map[string]string{
		"01-alpha/01-PLAN.md": "---\nwave: 1\n---\n# Phase 1: Alpha\n",
		"02-beta/01-PLAN.md":  "---\nwave: 1\nautonomous: false\n---\n# Phase 2: Beta\n",
		"03-gamma/01-PLAN.md": "---\nwave: 2\ndepends_on: [\"1.01\", \"2.01\"]\n---\n# Phase 3: Gamma\n",
	})
}

func codeOf(t *testing.T, err error) pgerrors.ErrorCode {
	t.Helper()
	var pgErr *pgerrors.PhaseguardError
	require.True(t, errors.As(err, &pgErr), "expected a coded error, got %v", err)
	return pgErr.Code
}

func TestRun_Pass(t *testing.T) {
	out, err := New(Options{Root: cleanProject(t), Format: ux.FormatQuiet}).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, StateDone, out.State)
	assert.Equal(t, []State{
		StateIdle, StateParsing, StateGraphBuilding, StateValidating, StateReporting, StateDone,
	}, out.Transitions)
	assert.Equal(t, exitcode.Success, out.ExitCode)
	assert.Equal(t, "✅ Validation passed: 3 phases, 3 routes, 2 waves\n", out.Report)
	assert.Nil(t, out.Fixes)

	_, err = uuid.Parse(out.RunID)
	assert.NoError(t, err)
}

func TestRun_ForwardDependencyFails(t *testing.T) {
	root := project(t, map[string]string{
		"01/01-PLAN.md": "---\nwave: 1\n---\n# Alpha\n",
		"02/01-PLAN.md": "---\nwave: 2\ndepends_on: [\"3.01\"]\n---\n# Beta\n",
		"03/01-PLAN.md": "---\nwave: 1\n---\n# Gamma\n",
	})

	out, err := New(Options{Root: root, Format: ux.FormatQuiet}).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, StateDone, out.State)
	assert.Equal(t, exitcode.ValidationFailed, out.ExitCode)
	assert.Equal(t, 1, out.Result.Count(validate.KindForwardDependency))
	assert.Contains(t, out.Report, "- FORWARD_DEPENDENCY 2.01,3.01: ")
}

func TestRun_FixThenRevalidate(t *testing.T) {
	root := project(t, map[string]string{
		"03/01-PLAN.md": "---\nwave: 1\n---\n# Phase 3: Gamma\n",
		"03/02-PLAN.md": "---\nwave: 1\ndepends_on: [\"01\"]\n---\n# Second\n",
	})

	out, err := New(Options{Root: root, Fix: true}).Run(context.Background())
	require.NoError(t, err)

	assert.Contains(t, out.Transitions, StateFixing)
	require.NotNil(t, out.Fixes)
	require.Len(t, out.Fixes.Applied, 1)
	assert.Equal(t, "3.02: wave 1 → 2", out.Fixes.Applied[0].String())

	assert.Empty(t, out.Result.Errors, "report reflects the re-read documents")
	assert.Equal(t, exitcode.Success, out.ExitCode)
	assert.Contains(t, out.Report, "- 3.02: wave 1 → 2")

	doc, err := os.ReadFile(filepath.Join(root, "03", "02-PLAN.md"))
	require.NoError(t, err)
	assert.Contains(t, string(doc), "wave: 2")

	// a second run has nothing left to change
	again, err := New(Options{Root: root, Fix: true}).Run(context.Background())
	require.NoError(t, err)
	assert.False(t, again.Fixes.Changed())
	assert.Equal(t, exitcode.Success, again.ExitCode)
}

func TestRun_DryRunKeepsResult(t *testing.T) {
	root := project(t, map[string]string{
		"03/01-PLAN.md": "---\nwave: 1\n---\n# Phase 3: Gamma\n",
		"03/02-PLAN.md": "---\nwave: 1\ndepends_on: [\"01\"]\n---\n# Second\n",
	})
	before, err := os.ReadFile(filepath.Join(root, "03", "02-PLAN.md"))
	require.NoError(t, err)

	out, err := New(Options{Root: root, Fix: true, DryRun: true}).Run(context.Background())
	require.NoError(t, err)

	require.Len(t, out.Fixes.Applied, 1)
	assert.True(t, out.Fixes.DryRun)
	assert.Equal(t, exitcode.ValidationFailed, out.ExitCode)
	assert.Contains(t, out.Report, "## Fixes (dry run)")

	after, err := os.ReadFile(filepath.Join(root, "03", "02-PLAN.md"))
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestRun_StrictPromotesWarnings(t *testing.T) {
	root := project(t, map[string]string{
		"01/01-PLAN.md": "---\nwave: 1\n---\n# Phase 1: Project Setup\n",
		"02/01-PLAN.md": "---\nwave: 2\n---\n# Phase 2: Authentication Service\n",
	})

	out, err := New(Options{Root: root, Format: ux.FormatQuiet}).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, exitcode.Success, out.ExitCode)

	out, err = New(Options{Root: root, Format: ux.FormatQuiet, Strict: true}).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, exitcode.ValidationFailed, out.ExitCode)
	assert.True(t, strings.HasPrefix(out.Report, "❌"))
}

func TestRun_CustomTables(t *testing.T) {
	root := project(t, map[string]string{
		"01/01-PLAN.md": "---\nwave: 1\n---\n# Phase 1: Project Setup\n",
		"02/01-PLAN.md": "---\nwave: 2\n---\n# Phase 2: Authentication Service\n",
	})
	tables := validate.DefaultTables()
	tables.EarlyThreshold = 3

	out, err := New(Options{Root: root, Tables: &tables, Strict: true}).Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, out.Result.Warnings)
	assert.Equal(t, exitcode.Success, out.ExitCode)
}

func TestRun_ScopedPhase(t *testing.T) {
	out, err := New(Options{Root: cleanProject(t), Phase: 3, Format: ux.FormatJSON}).Run(context.Background())
	require.NoError(t, err)

	require.Len(t, out.Phases, 1)
	assert.Equal(t, 3, out.Phases[0].Number)
	assert.Len(t, out.Result.External, 2)
	assert.Equal(t, exitcode.Success, out.ExitCode)
	assert.Contains(t, out.Report, `"scope": 3`)
}

func TestRun_Aborts(t *testing.T) {
	t.Run("no phases", func(t *testing.T) {
		out, err := New(Options{Root: filepath.Join(t.TempDir(), "phases")}).Run(context.Background())
		require.Error(t, err)
		assert.Equal(t, StateAborted, out.State)
		assert.Equal(t, pgerrors.ErrCodeNoPhasesFound, codeOf(t, err))
		assert.Equal(t, exitcode.NoPhasesFound, exitcode.DetermineExitCode(err))
		assert.Empty(t, out.Report)
	})

	t.Run("parse error", func(t *testing.T) {
		root := project(t, map[string]string{
			"01/01-PLAN.md": "---\nwave: one\n---\n# Alpha\n",
		})
		out, err := New(Options{Root: root}).Run(context.Background())
		require.Error(t, err)
		assert.Equal(t, StateAborted, out.State)
		assert.Equal(t, pgerrors.ErrCodePhaseParse, codeOf(t, err))
		assert.Equal(t, exitcode.ParseError, exitcode.DetermineExitCode(err))
		assert.Contains(t, err.Error(), "01-PLAN.md")
		assert.Equal(t, []State{StateIdle, StateParsing, StateAborted}, out.Transitions)
	})

	t.Run("unknown phase", func(t *testing.T) {
		_, err := New(Options{Root: cleanProject(t), Phase: 9}).Run(context.Background())
		require.Error(t, err)
		assert.Equal(t, pgerrors.ErrCodePhaseNotFound, codeOf(t, err))
		assert.Equal(t, exitcode.UsageError, exitcode.DetermineExitCode(err))
	})

	t.Run("cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		out, err := New(Options{Root: cleanProject(t)}).Run(ctx)
		require.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, StateAborted, out.State)
		assert.Equal(t, exitcode.Interrupted, exitcode.DetermineExitCode(err))
	})
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "graph_building", StateGraphBuilding.String())
	assert.Equal(t, "aborted", StateAborted.String())
	assert.Equal(t, "state(42)", State(42).String())
}
