// Package version exposes the application version derived from build
// metadata.
//
// Priority: -ldflags override > VCS info from debug.BuildInfo > "dev"
// fallback.
package version

import "runtime/debug"

// AppName is the application name used in version strings and logs.
const AppName = "carebridge"

// gitCommitOverride is set via -ldflags at build time for container builds
// where .git is unavailable. Empty string means no override.
var gitCommitOverride string

// GitCommit is the short git commit hash (8 chars) from build info.
// "dev" when build info is unavailable.
var GitCommit = initGitCommit()

func initGitCommit() string {
	if gitCommitOverride != "" {
		if len(gitCommitOverride) > 8 {
			return gitCommitOverride[:8]
		}
		return gitCommitOverride
	}
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return "dev"
	}
	for _, s := range info.Settings {
		if s.Key == "vcs.revision" && s.Value != "" {
			if len(s.Value) > 8 {
				return s.Value[:8]
			}
			return s.Value
		}
	}
	return "dev"
}

// Full returns "carebridge/<commit>" for user-agent strings and logging.
func Full() string {
	return AppName + "/" + GitCommit
}
