package ux

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	// DefaultStateDir is where the planning step keeps its state
	DefaultStateDir = ".planning"
	// ConfigFileName is the project configuration file
	ConfigFileName = ".phaseguard.yaml"
)

// PathDefaults resolves the well-known paths of a project
type PathDefaults struct {
	ProjectDir string
	StateDir   string
}

// NewPathDefaults creates PathDefaults; empty arguments take the defaults
func NewPathDefaults(projectDir, stateDir string) *PathDefaults {
	if projectDir == "" {
		projectDir = "."
	}
	if stateDir == "" {
		stateDir = DefaultStateDir
	}
	return &PathDefaults{ProjectDir: projectDir, StateDir: stateDir}
}

// StateRoot returns the state directory. An absolute StateDir is used as is.
func (pd *PathDefaults) StateRoot() string {
	if filepath.IsAbs(pd.StateDir) {
		return pd.StateDir
	}
	return filepath.Join(pd.ProjectDir, pd.StateDir)
}

// PhasesDir returns the directory holding the numbered phase directories
func (pd *PathDefaults) PhasesDir() string {
	return filepath.Join(pd.StateRoot(), "phases")
}

// ConfigFile returns the project configuration file path
func (pd *PathDefaults) ConfigFile() string {
	return filepath.Join(pd.ProjectDir, ConfigFileName)
}

// ValidateStateSetup checks that the planning step has run
func (pd *PathDefaults) ValidateStateSetup() error {
	if _, err := os.Stat(pd.PhasesDir()); os.IsNotExist(err) {
		return fmt.Errorf("%s not found; run the planning step to create phase directories", pd.PhasesDir())
	} else if err != nil {
		return fmt.Errorf("error accessing %s: %w", pd.PhasesDir(), err)
	}
	return nil
}
