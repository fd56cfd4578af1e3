package ux

import (
	"os"
	"path/filepath"
)

// DiscoverProjectDir walks up from start looking for a directory that
// contains stateDir. The search stops at a git root or the filesystem
// root. When nothing is found, start is returned with found == false.
func DiscoverProjectDir(start, stateDir string) (dir string, found bool, err error) {
	if stateDir == "" {
		stateDir = DefaultStateDir
	}
	abs, err := filepath.Abs(start)
	if err != nil {
		return "", false, err
	}

	dir = abs
	for {
		if info, err := os.Stat(filepath.Join(dir, stateDir)); err == nil && info.IsDir() {
			return dir, true, nil
		}

		// the state dir lives inside the repository
		if _, err := os.Stat(filepath.Join(dir, ".git")); err == nil {
			break
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return abs, false, nil
}

// DiscoverConfigFile returns the project config file if it exists in
// projectDir, or "" otherwise
func DiscoverConfigFile(projectDir string) string {
	path := NewPathDefaults(projectDir, "").ConfigFile()
	if _, err := os.Stat(path); err == nil {
		return path
	}
	return ""
}
