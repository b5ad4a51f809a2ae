// Copyright 2026 The Courier Authors
// SPDX-License-Identifier: Apache-2.0

package botapi

import (
	"errors"
	"fmt"
	"time"

	"github.com/courier-foundation/courier/lib/redact"
)

// EncodingError reports a request that could not be turned into a wire
// payload: a required parameter is missing or a value is invalid. The
// request was never sent, so retrying without fixing the request is
// pointless.
type EncodingError struct {
	// Field is the wire name of the offending parameter.
	Field string
	// Reason describes what is wrong with it.
	Reason string
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("encoding %s: %s", e.Field, e.Reason)
}

// TransportError reports a network-level failure: connection refused,
// DNS failure, timeout, a response body that could not be read. The
// request may or may not have reached the server. The underlying error
// text is scrubbed of the bot token, which net/http embeds in its URL
// errors.
type TransportError struct {
	// Method is the API method being invoked.
	Method string
	// Err is the underlying failure from the HTTP client.
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %s", e.Method, redact.Token(e.Err.Error()))
}

// Unwrap returns the raw cause for errors.Is and errors.As matching.
// Its message is not token-redacted; log the TransportError itself,
// not the unwrapped cause.
func (e *TransportError) Unwrap() error { return e.Err }

// APIError is a structured rejection from the Bot API server. Callers
// can use errors.As to extract it:
//
//	var apiErr *botapi.APIError
//	if errors.As(err, &apiErr) {
//	    if apiErr.Code == botapi.ErrCodeTooManyRequests { ... }
//	}
type APIError struct {
	// Code is the error code from the envelope (e.g. 400, 401, 429).
	// It usually matches the HTTP status but the envelope value is
	// authoritative.
	Code int
	// Description is the human-readable explanation from the server.
	Description string
	// RetryAfter is the server-requested wait in seconds before
	// retrying. Zero when the server supplied no hint. Present on
	// rate-limit (429) rejections.
	RetryAfter int
	// MigrateToChatID is the chat's new ID when the group was upgraded
	// to a supergroup. Zero when not applicable.
	MigrateToChatID int64
	// StatusCode is the HTTP status of the response.
	StatusCode int
}

func (e *APIError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("bot api: %d: %s (retry after %ds)", e.Code, e.Description, e.RetryAfter)
	}
	return fmt.Sprintf("bot api: %d: %s", e.Code, e.Description)
}

// Common Bot API error codes.
const (
	ErrCodeBadRequest      = 400
	ErrCodeUnauthorized    = 401
	ErrCodeForbidden       = 403
	ErrCodeNotFound        = 404
	ErrCodeConflict        = 409
	ErrCodeTooManyRequests = 429
)

// DecodingError reports a response that does not match the wire
// contract: non-JSON bytes, an envelope without an ok field, or a
// result that does not fit the expected entity shape. A bounded
// snippet of the offending body is kept for diagnosis.
type DecodingError struct {
	// StatusCode is the HTTP status of the response. Zero when the
	// payload did not arrive over HTTP (webhook decode).
	StatusCode int
	// Snippet is the beginning of the response body, capped so a huge
	// error page cannot balloon log output.
	Snippet string
	// Err is the underlying parse error.
	Err error
}

func (e *DecodingError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("decoding %d response: %v: %q", e.StatusCode, e.Err, e.Snippet)
	}
	return fmt.Sprintf("decoding payload: %v: %q", e.Err, e.Snippet)
}

func (e *DecodingError) Unwrap() error { return e.Err }

// snippetLimit bounds how much of an undecodable body a DecodingError
// carries.
const snippetLimit = 256

// bodySnippet returns at most snippetLimit bytes of body as a string.
func bodySnippet(body []byte) string {
	if len(body) > snippetLimit {
		return string(body[:snippetLimit])
	}
	return string(body)
}

// IsAPIError checks whether err is a *APIError with the given code.
func IsAPIError(err error, code int) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code == code
	}
	return false
}

// IsUnauthorized checks whether err is the server rejecting the bot
// token. This is fatal for any polling loop.
func IsUnauthorized(err error) bool {
	return IsAPIError(err, ErrCodeUnauthorized)
}

// RetryDelay extracts the server-requested retry wait from a
// rate-limit rejection. Returns false when err carries no hint.
func RetryDelay(err error) (time.Duration, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.RetryAfter > 0 {
		return time.Duration(apiErr.RetryAfter) * time.Second, true
	}
	return 0, false
}
