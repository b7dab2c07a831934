// Package buildinfo carries the version stamped in by the linker:
//
//	go build -ldflags "-X rtk/internal/buildinfo.Version=v0.3.0 -X rtk/internal/buildinfo.Commit=$(git rev-parse --short HEAD)"
package buildinfo

import "fmt"

var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

// Short returns the release version, else the commit, else "dev". The shell
// banner shows it.
func Short() string {
	switch {
	case Version != "" && Version != "dev":
		return Version
	case Commit != "" && Commit != "unknown":
		return Commit
	}
	return "dev"
}

// Full describes the build on one line.
func Full() string {
	return fmt.Sprintf("%s (commit %s, built %s)", Short(), Commit, Date)
}
