// Package vars holds build metadata injected with -ldflags "-X".
package vars

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// License of the project
const License = "AGPL-3.0"

var (
	// Name of the service
	Name = "Bluescore"

	// Version is the release tag, "dev" for local builds
	Version = "dev"

	// Commit is the git SHA the binary was built from
	Commit = "unknown"

	// Revision is the commit count at build time
	Revision = 0

	// BuildTime is when the binary was built, UTC
	BuildTime = time.Unix(0, 0).UTC()

	// URL of the source repository
	URL = "https://github.com/woozymasta/bluescore"

	// set by the linker as strings, parsed in init
	_revision  string
	_buildTime string
)

// Build describes the running scoreboard binary. It is served on GET /api/version
// so operators can confirm every scoring node runs the same release.
type Build struct {
	Name      string    `json:"name"`
	Version   string    `json:"version"`
	Commit    string    `json:"commit"`
	Revision  int       `json:"revision,omitempty"`
	BuildTime time.Time `json:"buildTime"`
	URL       string    `json:"url,omitempty"`
	License   string    `json:"license,omitempty"`
}

func init() {
	if n, err := strconv.Atoi(_revision); err == nil {
		Revision = n
	}

	if _buildTime != "" {
		if t, err := time.Parse(time.RFC3339, _buildTime); err == nil {
			BuildTime = t.UTC()
		}
	}
}

// Info returns the build metadata of this binary.
func Info() Build {
	return Build{
		Name:      Name,
		Version:   Version,
		Commit:    Commit,
		Revision:  Revision,
		BuildTime: BuildTime,
		URL:       URL,
		License:   License,
	}
}

// Short is the version with the abbreviated commit, e.g. "v1.2.0 (da15c17)".
func Short() string {
	commit := Commit
	if len(commit) > 7 {
		commit = commit[:7]
	}

	return fmt.Sprintf("%s (%s)", Version, commit)
}

// Print writes the build metadata for --version.
func Print() {
	b := Info()
	fmt.Printf("%s %s\nbinary:   %s\nrevision: %d\nbuilt:    %s\nsource:   %s\nlicense:  %s\n",
		b.Name, Short(), os.Args[0], b.Revision, b.BuildTime.Format(time.RFC3339), b.URL, b.License)
}
