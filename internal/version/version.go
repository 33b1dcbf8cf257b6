package version

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"runtime/debug"
)

// Set at build time with -ldflags "-X".
var (
	App       string = "ReturnGuard"
	Version   string
	GitCommit string
	BuildTime string
	GoVersion string
	BuildOS   string
	BuildArch string
)

// PrintVersion prints the version information to stdout
func PrintVersion() {
	Fprint(os.Stdout)
}

// Fprint writes the version information to w
func Fprint(w io.Writer) {
	fmt.Fprintf(w, "%s version %s\n", App, getVersion())
	if commit := getCommit(); commit != "" {
		fmt.Fprintf(w, "Git commit: %s\n", commit)
	}
	if BuildTime != "" {
		fmt.Fprintf(w, "Build time: %s\n", BuildTime)
	}
	fmt.Fprintf(w, "Go version: %s\n", getGoVersion())
	if BuildOS != "" && BuildArch != "" {
		fmt.Fprintf(w, "Built for: %s/%s\n", BuildOS, BuildArch)
	}
}

// Short returns "App version" for User-Agent strings and CLI output.
func Short() string {
	return App + "/" + getVersion()
}

// getCommit prefers the ldflags value, then the VCS stamp from go build.
func getCommit() string {
	commit := GitCommit
	if commit == "" {
		if info, ok := debug.ReadBuildInfo(); ok {
			for _, s := range info.Settings {
				if s.Key == "vcs.revision" {
					commit = s.Value
				}
			}
		}
	}
	if len(commit) > 7 {
		return commit[:7]
	}
	return commit
}

func getGoVersion() string {
	if GoVersion != "" {
		return GoVersion
	}
	return runtime.Version()
}

func getVersion() string {
	if Version != "" {
		return Version
	}
	return "dev"
}
