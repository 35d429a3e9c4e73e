// Package version holds the build version, overridable at link time via
// -ldflags "-X .../internal/version.Version=v1.2.3".
package version

// Version is the application version string.
var Version = "dev"
