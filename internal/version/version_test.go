package version

import (
	"runtime/debug"
	"strings"
	"testing"
)

func TestFromBuildInfo(t *testing.T) {
	tests := []struct {
		name        string
		info        debug.BuildInfo
		wantVersion string
		wantCommit  string
		wantDate    string
	}{
		{
			name:        "module version",
			info:        debug.BuildInfo{Main: debug.Module{Version: "v1.4.0"}},
			wantVersion: "v1.4.0",
		},
		{
			name: "vcs settings",
			info: debug.BuildInfo{
				Main: debug.Module{Version: "(devel)"},
				Settings: []debug.BuildSetting{
					{Key: "vcs.revision", Value: "0123456789abcdef"},
					{Key: "vcs.modified", Value: "true"},
					{Key: "vcs.time", Value: "2026-03-04T05:06:07Z"},
				},
			},
			wantVersion: "dev-20260304",
			wantCommit:  "0123456-dirty",
			wantDate:    "2026-03-04",
		},
		{
			name: "short revision",
			info: debug.BuildInfo{
				Settings: []debug.BuildSetting{{Key: "vcs.revision", Value: "abc"}},
			},
			wantCommit: "abc",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			saved := [3]string{Version, Commit, Date}
			t.Cleanup(func() { Version, Commit, Date = saved[0], saved[1], saved[2] })
			Version, Commit, Date = "", "", ""

			fromBuildInfo(&tt.info)
			if Version != tt.wantVersion {
				t.Errorf("Expected version %q, got %q", tt.wantVersion, Version)
			}
			if Commit != tt.wantCommit {
				t.Errorf("Expected commit %q, got %q", tt.wantCommit, Commit)
			}
			if Date != tt.wantDate {
				t.Errorf("Expected date %q, got %q", tt.wantDate, Date)
			}
		})
	}
}

func TestFromBuildInfoKeepsLdflags(t *testing.T) {
	saved := [3]string{Version, Commit, Date}
	t.Cleanup(func() { Version, Commit, Date = saved[0], saved[1], saved[2] })
	Version, Commit, Date = "v2.0.0", "feedbee", ""

	fromBuildInfo(&debug.BuildInfo{
		Main: debug.Module{Version: "v1.0.0"},
		Settings: []debug.BuildSetting{
			{Key: "vcs.revision", Value: "0123456789"},
			{Key: "vcs.time", Value: "2026-03-04T05:06:07Z"},
		},
	})
	if Version != "v2.0.0" || Commit != "feedbee" {
		t.Errorf("Expected ldflags values to win, got %s/%s", Version, Commit)
	}
	if Date != "2026-03-04" {
		t.Errorf("Expected date from vcs time, got %s", Date)
	}
}

func TestFull(t *testing.T) {
	full := Full()
	if !strings.Contains(full, Version) || !strings.Contains(full, Commit) {
		t.Errorf("Expected %q to contain version and commit", full)
	}
}
