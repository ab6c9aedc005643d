package buildinfo

import (
	"runtime"
	"runtime/debug"
	"strings"
	"testing"
)

func TestGet(t *testing.T) {
	info := Get()
	if info.Version == "" {
		t.Error("Version is empty")
	}
	if info.GoVersion != runtime.Version() {
		t.Errorf("GoVersion = %q, want %q", info.GoVersion, runtime.Version())
	}
	if info.Commit == "" || info.BuildTime == "" {
		t.Errorf("Get() = %+v, want placeholders for unknown fields", info)
	}
}

func TestFillFromBuildInfo(t *testing.T) {
	tests := []struct {
		name       string
		info       Info
		bi         debug.BuildInfo
		wantVer    string
		wantCommit string
		wantDirty  bool
	}{
		{
			name: "vcs settings fill blanks",
			info: Info{Version: "dev"},
			bi: debug.BuildInfo{
				Main: debug.Module{Version: "v1.2.3"},
				Settings: []debug.BuildSetting{
					{Key: "vcs.revision", Value: "0123456789abcdef0123"},
					{Key: "vcs.modified", Value: "true"},
				},
			},
			wantVer:    "v1.2.3",
			wantCommit: "0123456789ab",
			wantDirty:  true,
		},
		{
			name: "ldflags win",
			info: Info{Version: "v9.0.0", Commit: "feedface"},
			bi: debug.BuildInfo{
				Main:     debug.Module{Version: "v1.2.3"},
				Settings: []debug.BuildSetting{{Key: "vcs.revision", Value: "abc"}},
			},
			wantVer:    "v9.0.0",
			wantCommit: "feedface",
		},
		{
			name:    "devel main module",
			info:    Info{Version: "dev"},
			bi:      debug.BuildInfo{Main: debug.Module{Version: "(devel)"}},
			wantVer: "dev",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info := tt.info
			fillFromBuildInfo(&info, &tt.bi)
			if info.Version != tt.wantVer || info.Commit != tt.wantCommit || info.Modified != tt.wantDirty {
				t.Errorf("fillFromBuildInfo() = %+v, want version %q commit %q modified %v",
					info, tt.wantVer, tt.wantCommit, tt.wantDirty)
			}
		})
	}
}

func TestInfo_String(t *testing.T) {
	s := Info{Version: "v1", Commit: "abc", Platform: "linux/amd64", GoVersion: "go1.24", Modified: true}.String()
	if s != "v1 (abc-dirty) linux/amd64 go1.24" {
		t.Errorf("String() = %q", s)
	}
	if !strings.Contains(String(), runtime.GOOS) {
		t.Errorf("package String() = %q, want platform", String())
	}
}
