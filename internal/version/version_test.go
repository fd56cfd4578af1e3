package version

import (
	"runtime"
	"runtime/debug"
	"strings"
	"testing"
)

func stubBuildInfo(t *testing.T, bi *debug.BuildInfo) {
	t.Helper()
	orig := readBuildInfo
	readBuildInfo = func() (*debug.BuildInfo, bool) { return bi, bi != nil }
	t.Cleanup(func() { readBuildInfo = orig })
}

func setVars(t *testing.T, v, c, d string) {
	t.Helper()
	origVersion, origCommit, origDate := Version, Commit, Date
	Version, Commit, Date = v, c, d
	t.Cleanup(func() {
		Version, Commit, Date = origVersion, origCommit, origDate
	})
}

func TestGetInfo(t *testing.T) {
	setVars(t, "1.0.0", "abc123def456", "2024-01-01T12:00:00Z")
	stubBuildInfo(t, nil)

	info := GetInfo()

	if info.Version != "1.0.0" {
		t.Errorf("GetInfo().Version = %v, want 1.0.0", info.Version)
	}
	if info.Commit != "abc123def456" {
		t.Errorf("GetInfo().Commit = %v, want abc123def456", info.Commit)
	}
	if info.Date != "2024-01-01T12:00:00Z" {
		t.Errorf("GetInfo().Date = %v, want 2024-01-01T12:00:00Z", info.Date)
	}
	if info.GoVersion != runtime.Version() {
		t.Errorf("GetInfo().GoVersion = %v, want %v", info.GoVersion, runtime.Version())
	}
	if want := runtime.GOOS + "/" + runtime.GOARCH; info.Platform != want {
		t.Errorf("GetInfo().Platform = %v, want %v", info.Platform, want)
	}
}

func TestGetInfo_BuildInfoFallback(t *testing.T) {
	bi := &debug.BuildInfo{
		Main: debug.Module{Version: "v0.4.1"},
		Settings: []debug.BuildSetting{
			{Key: "vcs.revision", Value: "0123456789abcdef"},
			{Key: "vcs.time", Value: "2025-06-01T10:00:00Z"},
		},
	}

	t.Run("fills unset values", func(t *testing.T) {
		setVars(t, "dev", "unknown", "unknown")
		stubBuildInfo(t, bi)

		info := GetInfo()
		if info.Version != "v0.4.1" || info.Commit != "0123456789abcdef" || info.Date != "2025-06-01T10:00:00Z" {
			t.Errorf("GetInfo() = %+v, want build info values", info)
		}
	})

	t.Run("ldflags win", func(t *testing.T) {
		setVars(t, "1.2.0", "feedface", "2025-01-01")
		stubBuildInfo(t, bi)

		info := GetInfo()
		if info.Version != "1.2.0" || info.Commit != "feedface" || info.Date != "2025-01-01" {
			t.Errorf("GetInfo() = %+v, want ldflags values", info)
		}
	})

	t.Run("devel module version is ignored", func(t *testing.T) {
		setVars(t, "dev", "unknown", "unknown")
		stubBuildInfo(t, &debug.BuildInfo{Main: debug.Module{Version: "(devel)"}})

		if info := GetInfo(); info.Version != "dev" {
			t.Errorf("GetInfo().Version = %v, want dev", info.Version)
		}
	})
}

func TestInfoString(t *testing.T) {
	tests := []struct {
		name string
		info Info
		want []string // Substrings that should be present
	}{
		{
			name: "full version info",
			info: Info{
				Version:   "1.0.0",
				Commit:    "abc123def456",
				Date:      "2024-01-01T12:00:00Z",
				GoVersion: "go1.22.0",
				Platform:  "linux/amd64",
			},
			want: []string{"phaseguard 1.0.0", "(abc123de)", "built 2024-01-01T12:00:00Z", "with go1.22.0", "for linux/amd64"},
		},
		{
			name: "short commit hash",
			info: Info{
				Version:   "1.0.0",
				Commit:    "abc123", // Less than 8 chars
				Date:      "2024-01-01",
				GoVersion: "go1.22.0",
				Platform:  "darwin/arm64",
			},
			want: []string{"(abc123)", "darwin/arm64"},
		},
		{
			name: "dev version",
			info: Info{Version: "dev", Commit: "unknown", Date: "unknown"},
			want: []string{"phaseguard dev", "(unknown)"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.info.String()
			for _, substr := range tt.want {
				if !strings.Contains(got, substr) {
					t.Errorf("Info.String() = %v, missing substring %v", got, substr)
				}
			}
		})
	}
}

func TestInfoShort(t *testing.T) {
	tests := []struct {
		name string
		info Info
		want string
	}{
		{name: "release version", info: Info{Version: "1.0.0"}, want: "1.0.0"},
		{name: "dev version", info: Info{Version: "dev"}, want: "dev"},
		{name: "pre-release version", info: Info{Version: "1.0.0-rc1"}, want: "1.0.0-rc1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.info.Short(); got != tt.want {
				t.Errorf("Info.Short() = %v, want %v", got, tt.want)
			}
		})
	}
}
