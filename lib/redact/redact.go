// Copyright 2026 The Courier Authors
// SPDX-License-Identifier: Apache-2.0

// Package redact removes bot tokens from strings and log records.
//
// Bot API tokens take the form "<bot_id>:<secret>" and appear inside
// request URLs as a "bot<token>" path segment. Any error message or
// log line that carries a request URL therefore leaks the credential
// unless it is scrubbed. [Token] scrubs a single string; [NewHandler]
// wraps a slog.Handler so every record passing through a logger is
// scrubbed, including string attributes, error values, and groups.
//
// The botapi client runs its transport error messages through Token;
// binaries install NewHandler at logger construction so ad-hoc logging
// elsewhere cannot leak either.
package redact

import (
	"regexp"
	"strings"
)

// tokenPattern matches a bot token with or without the "bot" URL
// prefix. The secret part of a token is at least 35 characters drawn
// from the base64url alphabet.
var tokenPattern = regexp.MustCompile(`\b(bot)?\d+:[A-Za-z0-9_-]{35,}`)

// Token replaces every bot token in s with a redaction marker. The
// "bot" URL prefix is preserved so redacted request URLs stay
// readable.
func Token(s string) string {
	return tokenPattern.ReplaceAllStringFunc(s, func(match string) string {
		if strings.HasPrefix(match, "bot") {
			return "bot<redacted>"
		}
		return "<redacted>"
	})
}
