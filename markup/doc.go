// Copyright 2026 The Courier Authors
// SPDX-License-Identifier: Apache-2.0

// Package markup renders Markdown into the HTML subset accepted for
// parse_mode=HTML messages.
//
// Bot text is easiest to author as Markdown, but the API accepts only
// a small set of HTML tags: <b>, <i>, <s>, <u>, <code>, <pre>,
// <a href>, and <blockquote>. ToHTML parses CommonMark plus GFM
// extensions and emits exactly that subset. Constructs with no HTML
// counterpart degrade to readable plain text instead of failing:
// headings become bold lines, lists become bullet or numbered lines,
// tables flatten to pipe-separated rows, images become links, and
// embedded HTML is reduced to its text content.
//
// Everything else is escaped, so rendered output is always safe to
// send with parse_mode=HTML. Callers interpolating raw user text into
// an HTML message themselves should pass it through Escape.
package markup
