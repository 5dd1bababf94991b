package version

import (
	"runtime/debug"
	"strings"
	"testing"
)

func TestFromSettings(t *testing.T) {
	tests := []struct {
		name        string
		version     string
		commit      string
		settings    []debug.BuildSetting
		wantVersion string
		wantCommit  string
	}{
		{
			name: "clean checkout",
			settings: []debug.BuildSetting{
				{Key: "vcs.revision", Value: "0123456789abcdef"},
				{Key: "vcs.time", Value: "2026-03-01T10:00:00Z"},
			},
			wantVersion: "dev-20260301",
			wantCommit:  "0123456",
		},
		{
			name: "dirty tree",
			settings: []debug.BuildSetting{
				{Key: "vcs.revision", Value: "abc"},
				{Key: "vcs.modified", Value: "true"},
			},
			wantCommit: "abc-dirty",
		},
		{
			name:        "ldflags win",
			version:     "v1.2.0",
			commit:      "feed123",
			settings:    []debug.BuildSetting{{Key: "vcs.revision", Value: "0123456789"}},
			wantVersion: "v1.2.0",
			wantCommit:  "feed123",
		},
		{
			name: "no vcs",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, c := fromSettings(tt.version, tt.commit, tt.settings)
			if v != tt.wantVersion || c != tt.wantCommit {
				t.Errorf("fromSettings() = (%q, %q), want (%q, %q)", v, c, tt.wantVersion, tt.wantCommit)
			}
		})
	}
}

func TestUserAgentAndFull(t *testing.T) {
	if ua := UserAgent(); !strings.HasPrefix(ua, "vakitd/") || ua == "vakitd/" {
		t.Errorf("UserAgent() = %q", ua)
	}
	if !strings.HasPrefix(Full(), "vakitd "+Version+" (commit: ") {
		t.Errorf("Full() = %q", Full())
	}
}
