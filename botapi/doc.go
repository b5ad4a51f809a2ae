// Copyright 2026 The Courier Authors
// SPDX-License-Identifier: Apache-2.0

// Package botapi wraps the Telegram Bot API for Courier's sending and
// update-acquisition needs.
//
// The package provides three core types. [Client] is the transport
// adapter: it owns the base URL, the bot token (held in mmap-backed
// secret.Buffer memory, locked against swap and excluded from core
// dumps), and the HTTP client. It speaks the wire protocol of form or
// multipart POSTs to /bot<token>/<method> and decodes the uniform
// {ok, result|error} response envelope, nothing more.
//
// [Bot] is the method façade built on a Client: one typed method per
// API call (GetMe, GetUpdates, SendMessage, SendPhoto, ...). Each
// method encodes a typed request, invokes the transport, and decodes
// the result into entity values. Decoded entities own all of their
// fields outright; none holds a view into the response buffer, so
// results remain valid indefinitely. Optional wire fields map to
// pointer fields: a nil pointer means the field was absent, which is
// distinct from present-but-zero. A Bot is safe for concurrent use;
// interleaving sends with an active poll loop requires no external
// locking.
//
// [Poller] turns the stateless getUpdates call into a continuous
// ordered update stream. It long-polls in a loop, advances the offset
// cursor past each fully decoded batch, retries recoverable failures
// with exponential backoff (honoring server-supplied retry_after
// hints), halts on fatal errors such as an invalid token, and delivers
// updates on a channel until the context is cancelled. The offset is
// the only resumption state; persist it (lib/cursor) to continue after
// a restart without re-delivery.
//
// Failures divide into four kinds, all testable with errors.As:
// [*EncodingError] (invalid request, never sent), [*TransportError]
// (network failure, token redacted from the message), [*APIError]
// (server rejection with code, description, and retry hints), and
// [*DecodingError] (response that does not match the envelope or the
// expected result shape). Request URLs are built by string
// concatenation; the method name is the only path segment beyond the
// token and method names never need escaping.
package botapi
