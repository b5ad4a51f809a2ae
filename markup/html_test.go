// Copyright 2026 The Courier Authors
// SPDX-License-Identifier: Apache-2.0

package markup

import (
	"strings"
	"testing"
)

// render converts markdown, failing the test on error.
func render(t *testing.T, source string) string {
	t.Helper()
	result, err := ToHTML(source)
	if err != nil {
		t.Fatalf("ToHTML(%q): %v", source, err)
	}
	return result
}

func TestToHTMLEmpty(t *testing.T) {
	if got := render(t, ""); got != "" {
		t.Errorf("ToHTML(\"\") = %q", got)
	}
}

func TestToHTMLParagraph(t *testing.T) {
	if got := render(t, "plain text"); got != "plain text" {
		t.Errorf("got %q", got)
	}
}

func TestToHTMLEscapesText(t *testing.T) {
	got := render(t, "a < b & c > d")
	if got != "a &lt; b &amp; c &gt; d" {
		t.Errorf("got %q", got)
	}
}

func TestToHTMLSoftBreakBecomesSpace(t *testing.T) {
	// Hard-wrapped source reflows; chat clients wrap text themselves.
	got := render(t, "written at\na narrow width")
	if got != "written at a narrow width" {
		t.Errorf("got %q", got)
	}
}

func TestToHTMLHardBreakKeepsNewline(t *testing.T) {
	got := render(t, "line one  \nline two")
	if got != "line one\nline two" {
		t.Errorf("got %q", got)
	}
}

func TestToHTMLEmphasis(t *testing.T) {
	tests := []struct {
		source string
		want   string
	}{
		{"*italic*", "<i>italic</i>"},
		{"**bold**", "<b>bold</b>"},
		{"**bold with _both_**", "<b>bold with <i>both</i></b>"},
		{"~~struck~~", "<s>struck</s>"},
	}
	for _, tt := range tests {
		if got := render(t, tt.source); got != tt.want {
			t.Errorf("ToHTML(%q) = %q, want %q", tt.source, got, tt.want)
		}
	}
}

func TestToHTMLCodeSpan(t *testing.T) {
	got := render(t, "run `go build` first")
	if got != "run <code>go build</code> first" {
		t.Errorf("got %q", got)
	}

	got = render(t, "compare `a < b` here")
	if got != "compare <code>a &lt; b</code> here" {
		t.Errorf("escaping inside code span: got %q", got)
	}
}

func TestToHTMLFencedCodeBlock(t *testing.T) {
	t.Run("with language", func(t *testing.T) {
		got := render(t, "```go\nif a < b {\n\treturn\n}\n```")
		want := "<pre><code class=\"language-go\">if a &lt; b {\n\treturn\n}</code></pre>"
		if got != want {
			t.Errorf("got %q, want %q", got, want)
		}
	})

	t.Run("without language", func(t *testing.T) {
		got := render(t, "```\nraw output\n```")
		if got != "<pre>raw output</pre>" {
			t.Errorf("got %q", got)
		}
	})
}

func TestToHTMLHeadingsBecomeBoldLines(t *testing.T) {
	got := render(t, "# Release 1.4\n\nShipped today.")
	want := "<b>Release 1.4</b>\n\nShipped today."
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestToHTMLBlockquote(t *testing.T) {
	t.Run("simple", func(t *testing.T) {
		got := render(t, "> quoted words")
		if got != "<blockquote>quoted words</blockquote>" {
			t.Errorf("got %q", got)
		}
	})

	t.Run("multiple paragraphs", func(t *testing.T) {
		got := render(t, "> first\n>\n> second")
		if got != "<blockquote>first\nsecond</blockquote>" {
			t.Errorf("got %q", got)
		}
	})

	t.Run("nested quote folds in", func(t *testing.T) {
		// The quote tag cannot nest; inner content joins the outer
		// quote.
		got := render(t, "> outer\n> > inner")
		if strings.Count(got, "<blockquote>") != 1 {
			t.Errorf("got %q, want a single blockquote", got)
		}
		if !strings.Contains(got, "outer") || !strings.Contains(got, "inner") {
			t.Errorf("got %q, want both levels' text", got)
		}
	})
}

func TestToHTMLBulletList(t *testing.T) {
	got := render(t, "- first\n- second")
	want := "• first\n• second"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestToHTMLOrderedList(t *testing.T) {
	got := render(t, "1. first\n2. second")
	want := "1. first\n2. second"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}

	got = render(t, "3. third\n4. fourth")
	want = "3. third\n4. fourth"
	if got != want {
		t.Errorf("start offset: got %q, want %q", got, want)
	}
}

func TestToHTMLNestedList(t *testing.T) {
	got := render(t, "- outer\n  - inner")
	want := "• outer\n  • inner"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestToHTMLTaskList(t *testing.T) {
	got := render(t, "- [x] shipped\n- [ ] pending")
	want := "• [x] shipped\n• [ ] pending"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestToHTMLLink(t *testing.T) {
	got := render(t, "[the docs](https://example.com/d?a=1&b=2)")
	want := `<a href="https://example.com/d?a=1&amp;b=2">the docs</a>`
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestToHTMLAutoLink(t *testing.T) {
	got := render(t, "see https://example.com/status for details")
	want := `see <a href="https://example.com/status">https://example.com/status</a> for details`
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestToHTMLImageDegradesToLink(t *testing.T) {
	got := render(t, "![deploy graph](https://cdn.example/graph.png)")
	want := `<a href="https://cdn.example/graph.png">deploy graph</a>`
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestToHTMLTableFlattens(t *testing.T) {
	source := "| service | state |\n| --- | --- |\n| api | up |\n| worker | down |"
	got := render(t, source)
	want := "service | state\napi | up\nworker | down"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestToHTMLInlineHTMLReducedToText(t *testing.T) {
	got := render(t, "before <span>inside</span> after")
	if got != "before inside after" {
		t.Errorf("got %q", got)
	}
}

func TestToHTMLHTMLBlockReducedToText(t *testing.T) {
	got := render(t, "<div>\nblock content\n</div>")
	if !strings.Contains(got, "block content") {
		t.Errorf("got %q, want the text content kept", got)
	}
	if strings.Contains(got, "<div>") || strings.Contains(got, "&lt;div&gt;") {
		t.Errorf("got %q, want tags dropped", got)
	}
}

func TestToHTMLMixedDocument(t *testing.T) {
	source := "# Deploy report\n\n" +
		"Rolled out **v1.4** to *production*.\n\n" +
		"- api: `ok`\n" +
		"- worker: `ok`\n\n" +
		"> rollback window closes at 18:00"
	want := "<b>Deploy report</b>\n\n" +
		"Rolled out <b>v1.4</b> to <i>production</i>.\n\n" +
		"• api: <code>ok</code>\n" +
		"• worker: <code>ok</code>\n\n" +
		"<blockquote>rollback window closes at 18:00</blockquote>"
	if got := render(t, source); got != want {
		t.Errorf("got:\n%s\nwant:\n%s", got, want)
	}
}

func TestEscape(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"a < b", "a &lt; b"},
		{"a > b", "a &gt; b"},
		{"a & b", "a &amp; b"},
		{"<b>already tagged</b>", "&lt;b&gt;already tagged&lt;/b&gt;"},
		{"&amp; stays escaped twice", "&amp;amp; stays escaped twice"},
		{"", ""},
		{"ünïcode is untouched", "ünïcode is untouched"},
	}
	for _, tt := range tests {
		if got := Escape(tt.input); got != tt.want {
			t.Errorf("Escape(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}
