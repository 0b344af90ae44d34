//go:build mage

package main

import (
	"fmt"
	"strings"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

// Default target executed when none is specified.
var Default = CI

// CI runs the standard pipeline: format, lint, test, build.
func CI() {
	mg.SerialDeps(Format, Lint, Test, Build)
}

// Format updates Go sources using gofmt.
func Format() error {
	return sh.RunV("go", "fmt", "./...")
}

// Lint executes go vet to perform static analysis.
func Lint() error {
	return sh.RunV("go", "vet", "./...")
}

// Test runs the full Go test suite with race detection.
func Test() error {
	return sh.RunV("go", "test", "-race", "./...")
}

// Tidy synchronizes go.mod and go.sum with the import graph.
func Tidy() error {
	return sh.RunV("go", "mod", "tidy")
}

// Build compiles every package and produces the arv binary with the
// version stamped in.
func Build() error {
	if err := sh.RunV("go", "build", "./..."); err != nil {
		return err
	}
	ldflags := fmt.Sprintf("-X github.com/evanmcb/autoreview/internal/version.version=%s", resolveVersion())
	return sh.RunV("go", "build", "-ldflags", ldflags, "-o", "arv", "./cmd/arv")
}

// resolveVersion derives the build version from git: the nearest tag,
// with a -dirty suffix when the tree has uncommitted changes or HEAD
// has moved past the tag. Falls back to v0.0.0 outside a tagged repo.
func resolveVersion() string {
	const fallback = "v0.0.0"

	described, err := sh.Output("git", "describe", "--tags", "--dirty", "--always")
	if err != nil || described == "" {
		return fallback
	}
	described = strings.TrimSpace(described)
	if !strings.HasPrefix(described, "v") {
		// No tag reachable; describe returned a bare commit hash.
		return fallback
	}

	// Collapse "v1.2.3-4-gabcdef" and "v1.2.3-dirty" forms into a
	// tag-with-dirty-marker version.
	parts := strings.SplitN(described, "-", 2)
	if len(parts) == 2 {
		return parts[0] + "-dirty"
	}
	return described
}
