// Package version reports build information for the dining guide binary.
// Values are injected at build time with
// -ldflags "-X diningguide/internal/version.Version=1.2.3 -X ...GitCommit=... -X ...BuildDate=...".
package version

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/Masterminds/semver/v3"
)

const productName = "Dining Hall Guide"

var (
	// Version is the semantic version of the binary.
	Version = "0.1.0"
	// GitCommit is the commit the binary was built from.
	GitCommit = "unknown"
	// BuildDate is when the binary was built.
	BuildDate = "unknown"
)

// Info is a snapshot of the build information.
type Info struct {
	Version   string `json:"version"`
	GitCommit string `json:"gitCommit"`
	BuildDate string `json:"buildDate"`
	GoVersion string `json:"goVersion"`
	Platform  string `json:"platform"`

	semver *semver.Version
}

// Current returns the build information of the running binary.
func Current() Info {
	info := Info{
		Version:   Version,
		GitCommit: GitCommit,
		BuildDate: BuildDate,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
	if sv, err := semver.NewVersion(Version); err == nil {
		info.semver = sv
	}
	return info
}

// Valid reports whether the version is a semantic version.
func (i Info) Valid() bool {
	return i.semver != nil
}

// Release returns major.minor.patch without prerelease or build metadata.
func (i Info) Release() string {
	if i.semver == nil {
		return i.Version
	}
	return fmt.Sprintf("%d.%d.%d", i.semver.Major(), i.semver.Minor(), i.semver.Patch())
}

// ShortCommit returns the first seven characters of the commit, or "" when unknown.
func (i Info) ShortCommit() string {
	if i.GitCommit == "" || i.GitCommit == "unknown" {
		return ""
	}
	if len(i.GitCommit) > 7 {
		return i.GitCommit[:7]
	}
	return i.GitCommit
}

// String is the one-line banner shown by the shell.
func (i Info) String() string {
	if !i.Valid() {
		return fmt.Sprintf("%s v%s (invalid version)", productName, i.Version)
	}

	parts := []string{fmt.Sprintf("%s v%s", productName, i.Version)}
	if commit := i.ShortCommit(); commit != "" {
		parts = append(parts, "commit "+commit)
	}
	if i.BuildDate != "" && i.BuildDate != "unknown" {
		parts = append(parts, "built "+i.BuildDate)
	}
	return strings.Join(parts, ", ")
}

// Detailed is the multi-line report printed by `dining version`.
func (i Info) Detailed() string {
	lines := []string{
		fmt.Sprintf("%s v%s", productName, i.Version),
		"Git Commit: " + i.GitCommit,
		"Build Date: " + i.BuildDate,
	}
	if i.semver != nil {
		if pre := i.semver.Prerelease(); pre != "" {
			lines = append(lines, "Prerelease: "+pre)
		}
		if meta := i.semver.Metadata(); meta != "" {
			lines = append(lines, "Build Metadata: "+meta)
		}
	}
	lines = append(lines, "Go Version: "+i.GoVersion, "Platform: "+i.Platform)
	return strings.Join(lines, "\n")
}

// UserAgent identifies outbound catalog, chat, and image requests.
func UserAgent() string {
	return "dininghall-guide/" + Current().Release()
}

// SetBuildInfo overrides the build information; tests use it.
func SetBuildInfo(version, gitCommit, buildDate string) {
	Version = version
	GitCommit = gitCommit
	BuildDate = buildDate
}
