package version

import "runtime/debug"

// Build metadata injected with -ldflags "-X bifrost/internal/version.Version=...".
var (
    Version   = "dev"
    GitCommit = ""
)

// String returns a concise version string for logs and /health. Without
// an injected commit it falls back to the VCS revision recorded by the Go
// toolchain, if any.
func String() string {
    commit := GitCommit
    if commit == "" { commit = vcsRevision() }
    if commit == "" { return Version }
    if len(commit) > 12 { commit = commit[:12] }
    return Version + " (" + commit + ")"
}

func vcsRevision() string {
    info, ok := debug.ReadBuildInfo()
    if !ok { return "" }
    for _, s := range info.Settings {
        if s.Key == "vcs.revision" { return s.Value }
    }
    return ""
}
