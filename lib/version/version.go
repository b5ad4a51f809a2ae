// Copyright 2026 The Courier Authors
// SPDX-License-Identifier: Apache-2.0

// Package version carries build metadata for Courier binaries.
//
// The variables are injected at build time via -ldflags:
//
//	go build -ldflags "-X github.com/courier-foundation/courier/lib/version.GitCommit=$(git rev-parse --short HEAD)"
//
// A binary built without ldflags reports the dev defaults.
package version

import "fmt"

// Set via -ldflags at build time.
var (
	// Version is the semantic version, set manually for releases.
	Version = "0.1.0-dev"

	// GitCommit is the short git SHA of the build.
	GitCommit = "unknown"

	// GitDirty is "true" when the build had uncommitted changes.
	GitDirty = "false"

	// BuildTime is the UTC timestamp of the build.
	BuildTime = "unknown"
)

// Info returns the one-line version description used by --version.
func Info() string {
	dirty := ""
	if GitDirty == "true" {
		dirty = "-dirty"
	}
	return fmt.Sprintf("%s (%s%s, %s)", Version, GitCommit, dirty, BuildTime)
}

// Print writes the standard --version line for a binary to stdout.
func Print(binaryName string) {
	fmt.Printf("%s %s\n", binaryName, Info())
}
