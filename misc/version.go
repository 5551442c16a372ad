// Package misc holds build time information about the program.
package misc

// Values below are set with -ldflags "-X ..." during release builds.
var (
	version = "dev"
	githash = "unknown"
)

const appName = "edgepress"

// GetVersion returns program version.
func GetVersion() string {
	return version
}

// GetGitHash returns hash of the commit program was built from.
func GetGitHash() string {
	return githash
}

// GetAppName returns program name used for logs, reports and temporary files.
func GetAppName() string {
	return appName
}
