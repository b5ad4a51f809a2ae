// Copyright 2026 The Courier Authors
// SPDX-License-Identifier: Apache-2.0

// Package netutil provides bounded HTTP response reading for Courier.
//
// ReadResponse bounds response body reads at MaxResponseSize to
// prevent unbounded memory allocation from a misbehaving or malicious
// server. It is for JSON API responses and bounded file downloads (Bot
// API file bodies are capped well below the limit by the platform),
// not for streaming responses, which should be read incrementally with
// io.Copy.
package netutil

import "io"

// MaxResponseSize is the bound on response body reads: 64 MB. The Bot
// API caps downloadable file bodies at 20 MB and JSON responses are
// orders of magnitude smaller, so the limit never interferes with
// normal operation; it exists solely to keep a pathological response
// from exhausting system memory.
const MaxResponseSize int64 = 64 << 20

// ReadResponse reads a response body up to MaxResponseSize bytes.
// Use instead of io.ReadAll when reading HTTP response bodies.
func ReadResponse(body io.Reader) ([]byte, error) {
	return io.ReadAll(io.LimitReader(body, MaxResponseSize))
}
