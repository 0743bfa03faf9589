package api

import (
	"net/http"
	"runtime"
	"runtime/debug"
	"sync"
)

// Build metadata, overridden with -ldflags "-X .../internal/api.GitCommit=...".
var (
	EngineVersion = "dev"
	GitCommit     = ""
	BuildTime     = ""
)

var (
	buildOnce sync.Once
	buildInfo VersionInfo
)

// GetVersionInfo reports the build metadata. Values not set through ldflags
// fall back to the VCS stamp the go tool embeds in the binary.
func GetVersionInfo() VersionInfo {
	buildOnce.Do(func() {
		buildInfo = VersionInfo{
			EngineVersion: EngineVersion,
			GitCommit:     GitCommit,
			BuildTime:     BuildTime,
			GoVersion:     runtime.Version(),
		}
		bi, ok := debug.ReadBuildInfo()
		if !ok {
			return
		}
		for _, s := range bi.Settings {
			switch {
			case s.Key == "vcs.revision" && buildInfo.GitCommit == "":
				buildInfo.GitCommit = s.Value
			case s.Key == "vcs.time" && buildInfo.BuildTime == "":
				buildInfo.BuildTime = s.Value
			case s.Key == "vcs.modified" && s.Value == "true":
				buildInfo.Dirty = true
			}
		}
	})
	return buildInfo
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, GetVersionInfo())
}
