// Package version carries build metadata stamped in with -ldflags.
package version

var (
	// Version is the current application version
	Version = "dev"
	// GitSHA is the git commit SHA
	GitSHA = "unknown"
	// BuildTime is the build timestamp
	BuildTime = "unknown"
)

// UserAgent identifies outbound HTTP requests.
func UserAgent() string {
	return "elevation.report/" + Version
}

// String summarises the build for log lines.
func String() string {
	return Version + " (" + GitSHA + ", built " + BuildTime + ")"
}
