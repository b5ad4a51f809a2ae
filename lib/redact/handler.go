// Copyright 2026 The Courier Authors
// SPDX-License-Identifier: Apache-2.0

package redact

import (
	"context"
	"log/slog"
)

// Handler wraps another slog.Handler and scrubs bot tokens from every
// record before delegating. The message, string attributes, error
// attributes, and nested groups are all scrubbed.
type Handler struct {
	inner slog.Handler
}

// NewHandler returns a Handler that scrubs records before passing
// them to inner.
func NewHandler(inner slog.Handler) *Handler {
	return &Handler{inner: inner}
}

func (h *Handler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *Handler) Handle(ctx context.Context, record slog.Record) error {
	clean := slog.NewRecord(record.Time, record.Level, Token(record.Message), record.PC)
	record.Attrs(func(attr slog.Attr) bool {
		clean.AddAttrs(scrubAttr(attr))
		return true
	})
	return h.inner.Handle(ctx, clean)
}

func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	scrubbed := make([]slog.Attr, len(attrs))
	for i, attr := range attrs {
		scrubbed[i] = scrubAttr(attr)
	}
	return &Handler{inner: h.inner.WithAttrs(scrubbed)}
}

func (h *Handler) WithGroup(name string) slog.Handler {
	return &Handler{inner: h.inner.WithGroup(name)}
}

// scrubAttr scrubs a single attribute. String values are scrubbed
// directly. Error values are scrubbed via their message and replaced
// with a string attribute so the token cannot resurface through a
// custom LogValuer or Formatter. Groups recurse.
func scrubAttr(attr slog.Attr) slog.Attr {
	value := attr.Value.Resolve()
	switch value.Kind() {
	case slog.KindString:
		return slog.String(attr.Key, Token(value.String()))
	case slog.KindGroup:
		members := value.Group()
		scrubbed := make([]any, 0, len(members))
		for _, member := range members {
			scrubbed = append(scrubbed, scrubAttr(member))
		}
		return slog.Group(attr.Key, scrubbed...)
	case slog.KindAny:
		if err, ok := value.Any().(error); ok {
			return slog.String(attr.Key, Token(err.Error()))
		}
		return attr
	default:
		return attr
	}
}
