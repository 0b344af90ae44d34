// Package version exposes the build version stamped in at link time.
package version

// version is set via -ldflags at build time.
var version = "dev"

// Value returns the build version.
func Value() string {
	return version
}
