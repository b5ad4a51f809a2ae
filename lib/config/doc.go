// Copyright 2026 The Courier Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides YAML configuration loading for Courier
// binaries.
//
// Configuration is loaded from a single file specified by either the
// COURIER_CONFIG environment variable (via [Load]) or a --config flag
// (via [LoadFile]). There are no fallbacks, no ~/.config discovery,
// and no automatic file search.
//
// The bot token never appears in the configuration file. Binaries read
// it from COURIER_BOT_TOKEN, a token file, or stdin, and hold it in a
// locked secret buffer.
//
// Variable expansion is performed on path fields after loading:
// ${HOME} and ${VAR:-default} patterns are expanded. No other
// environment variables override config values.
//
// Key exports:
//
//   - [Config] -- master struct with API, Poll, Rate, Log sections
//   - [Default] -- returns a Config with standalone-bot defaults
//   - [Load] and [LoadFile] -- the two entry points for loading
//
// This package depends on no other Courier packages.
package config
