// Copyright 2026 The Courier Authors
// SPDX-License-Identifier: Apache-2.0

package markup

import (
	"fmt"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	extast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
)

// parserInstance is initialized once and reused. The parser
// configuration never changes and the goldmark Parser is safe to
// share; parsing creates per-call state via Parse(reader).
var (
	parserInstance goldmark.Markdown
	parserOnce     sync.Once
)

func getParser() goldmark.Markdown {
	parserOnce.Do(func() {
		parserInstance = goldmark.New(
			goldmark.WithExtensions(extension.GFM),
		)
	})
	return parserInstance
}

// textEscaper covers the characters the Bot API requires escaped in
// HTML message text. Quotes only matter inside attribute values,
// which attrEscaper handles.
var (
	textEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
	attrEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;")
)

// Escape returns s with HTML-significant characters replaced, safe to
// interpolate into parse_mode=HTML message text.
func Escape(s string) string {
	return textEscaper.Replace(s)
}

func escapeAttr(s string) string {
	return attrEscaper.Replace(s)
}

// ToHTML renders Markdown source as Bot API HTML. Block structure
// becomes blank-line-separated text: chat messages have no <p> or
// heading tags, so headings render as bold lines and lists as bullet
// or numbered lines. The output is complete and sendable as-is with
// parse_mode=HTML.
func ToHTML(source string) (string, error) {
	if source == "" {
		return "", nil
	}

	src := []byte(source)
	document := getParser().Parser().Parse(text.NewReader(src))

	renderer := newHTMLRenderer(src)
	if err := ast.Walk(document, renderer.walk); err != nil {
		return "", fmt.Errorf("markup: rendering markdown: %w", err)
	}
	return strings.Join(renderer.blocks, "\n\n"), nil
}

// listState tracks one level of list nesting.
type listState struct {
	ordered bool
	counter int
}

// htmlRenderer walks a goldmark AST and produces Bot API HTML. It
// uses a direct ast.Walk rather than goldmark's renderer interface
// because the output is block-at-a-time: inline content collects in a
// buffer and becomes a finished block when its container closes, and
// containers (blockquotes, list items) capture the blocks produced
// inside them to wrap or prefix as a unit.
type htmlRenderer struct {
	source []byte

	// Finished top-level blocks, joined with blank lines at the end.
	blocks []string

	// Inline accumulator for the block being built.
	inline strings.Builder

	// Block capture stack: finished blocks append to the innermost
	// sink. Blockquotes and list items push a sink on entry and fold
	// the captured blocks into their parent on exit.
	sinks []*[]string

	lists      []listState
	quoteDepth int
}

func newHTMLRenderer(source []byte) *htmlRenderer {
	renderer := &htmlRenderer{source: source}
	renderer.sinks = []*[]string{&renderer.blocks}
	return renderer
}

func (r *htmlRenderer) appendBlock(block string) {
	if block == "" {
		return
	}
	sink := r.sinks[len(r.sinks)-1]
	*sink = append(*sink, block)
}

func (r *htmlRenderer) pushSink() {
	r.sinks = append(r.sinks, &[]string{})
}

func (r *htmlRenderer) popSink() []string {
	captured := *r.sinks[len(r.sinks)-1]
	r.sinks = r.sinks[:len(r.sinks)-1]
	return captured
}

// renderInlineContent walks a node's children to collect their inline
// rendering, saving and restoring the surrounding inline buffer.
func (r *htmlRenderer) renderInlineContent(node ast.Node) string {
	saved := r.inline.String()
	r.inline.Reset()
	for child := node.FirstChild(); child != nil; child = child.NextSibling() {
		ast.Walk(child, r.walk)
	}
	result := r.inline.String()
	r.inline.Reset()
	r.inline.WriteString(saved)
	return result
}

func (r *htmlRenderer) walk(node ast.Node, entering bool) (ast.WalkStatus, error) {
	switch node.Kind() {

	// Block nodes.
	case ast.KindDocument:

	case ast.KindParagraph, ast.KindTextBlock:
		if entering {
			r.inline.Reset()
		} else {
			r.appendBlock(r.inline.String())
			r.inline.Reset()
		}

	case ast.KindHeading:
		if entering {
			r.inline.Reset()
		} else {
			content := r.inline.String()
			r.inline.Reset()
			if content != "" {
				r.appendBlock("<b>" + content + "</b>")
			}
		}

	case ast.KindFencedCodeBlock:
		if entering {
			r.renderFencedCodeBlock(node.(*ast.FencedCodeBlock))
			return ast.WalkSkipChildren, nil
		}

	case ast.KindCodeBlock:
		if entering {
			r.appendBlock("<pre>" + Escape(r.blockLines(node)) + "</pre>")
			return ast.WalkSkipChildren, nil
		}

	case ast.KindBlockquote:
		if entering {
			r.quoteDepth++
			r.pushSink()
		} else {
			content := strings.Join(r.popSink(), "\n")
			r.quoteDepth--
			// The quote tag does not nest; inner quotes fold their
			// content into the outer one.
			if r.quoteDepth == 0 && content != "" {
				content = "<blockquote>" + content + "</blockquote>"
			}
			r.appendBlock(content)
		}

	case ast.KindList:
		if entering {
			r.enterList(node.(*ast.List))
			r.pushSink()
		} else {
			items := r.popSink()
			r.lists = r.lists[:len(r.lists)-1]
			r.appendBlock(strings.Join(items, "\n"))
		}

	case ast.KindListItem:
		if entering {
			r.pushSink()
		} else {
			r.leaveListItem()
		}

	case ast.KindThematicBreak:
		// No chat counterpart; the blank line between blocks is the
		// separation.

	case ast.KindHTMLBlock:
		if entering {
			stripped := strings.TrimSpace(stripHTMLTags(r.blockLines(node)))
			r.appendBlock(Escape(stripped))
			return ast.WalkSkipChildren, nil
		}

	// Inline nodes.
	case ast.KindText:
		if entering {
			r.handleText(node.(*ast.Text))
		}

	case ast.KindString:
		if entering {
			r.inline.WriteString(Escape(string(node.(*ast.String).Value)))
		}

	case ast.KindEmphasis:
		tag := "i"
		if node.(*ast.Emphasis).Level >= 2 {
			tag = "b"
		}
		if entering {
			r.inline.WriteString("<" + tag + ">")
		} else {
			r.inline.WriteString("</" + tag + ">")
		}

	case ast.KindCodeSpan:
		if entering {
			r.renderCodeSpan(node)
			return ast.WalkSkipChildren, nil
		}

	case ast.KindLink:
		if entering {
			r.inline.WriteString(`<a href="` + escapeAttr(string(node.(*ast.Link).Destination)) + `">`)
		} else {
			r.inline.WriteString("</a>")
		}

	case ast.KindAutoLink:
		if entering {
			r.renderAutoLink(node.(*ast.AutoLink))
		}

	case ast.KindImage:
		if entering {
			r.renderImage(node.(*ast.Image))
			return ast.WalkSkipChildren, nil
		}

	case ast.KindRawHTML:
		if entering {
			r.renderRawHTML(node.(*ast.RawHTML))
		}

	// GFM extension nodes.
	case extast.KindStrikethrough:
		if entering {
			r.inline.WriteString("<s>")
		} else {
			r.inline.WriteString("</s>")
		}

	case extast.KindTable:
		if entering {
			r.renderTable(node)
			return ast.WalkSkipChildren, nil
		}

	case extast.KindTaskCheckBox:
		if entering {
			if node.(*extast.TaskCheckBox).IsChecked {
				r.inline.WriteString("[x] ")
			} else {
				r.inline.WriteString("[ ] ")
			}
		}
	}

	return ast.WalkContinue, nil
}

func (r *htmlRenderer) handleText(node *ast.Text) {
	r.inline.WriteString(Escape(string(node.Segment.Value(r.source))))
	// A soft break is a formatting artifact of the source; chat
	// clients wrap text themselves, so it becomes a space. A hard
	// break is authored and stays a newline.
	if node.SoftLineBreak() {
		r.inline.WriteString(" ")
	}
	if node.HardLineBreak() {
		r.inline.WriteString("\n")
	}
}

// blockLines joins the raw source lines of a block node.
func (r *htmlRenderer) blockLines(node ast.Node) string {
	var content strings.Builder
	lines := node.Lines()
	for index := 0; index < lines.Len(); index++ {
		line := lines.At(index)
		content.Write(line.Value(r.source))
	}
	return strings.TrimRight(content.String(), "\n")
}

func (r *htmlRenderer) renderFencedCodeBlock(node *ast.FencedCodeBlock) {
	code := Escape(r.blockLines(node))
	language := string(node.Language(r.source))
	if language != "" {
		r.appendBlock(`<pre><code class="language-` + escapeAttr(language) + `">` + code + "</code></pre>")
		return
	}
	r.appendBlock("<pre>" + code + "</pre>")
}

func (r *htmlRenderer) renderCodeSpan(node ast.Node) {
	var code strings.Builder
	for child := node.FirstChild(); child != nil; child = child.NextSibling() {
		switch typed := child.(type) {
		case *ast.Text:
			code.Write(typed.Segment.Value(r.source))
		case *ast.String:
			code.Write(typed.Value)
		}
	}
	r.inline.WriteString("<code>" + Escape(code.String()) + "</code>")
}

func (r *htmlRenderer) renderAutoLink(node *ast.AutoLink) {
	url := string(node.URL(r.source))
	href := url
	if node.AutoLinkType == ast.AutoLinkEmail && !strings.HasPrefix(href, "mailto:") {
		href = "mailto:" + href
	}
	r.inline.WriteString(`<a href="` + escapeAttr(href) + `">` + Escape(url) + "</a>")
}

// renderImage degrades an image to a link: chat messages cannot embed
// pictures inline, but the reference should survive.
func (r *htmlRenderer) renderImage(node *ast.Image) {
	destination := string(node.Destination)
	alt := r.renderInlineContent(node)
	if alt == "" {
		alt = Escape(destination)
	}
	r.inline.WriteString(`<a href="` + escapeAttr(destination) + `">` + alt + "</a>")
}

func (r *htmlRenderer) renderRawHTML(node *ast.RawHTML) {
	var html strings.Builder
	for index := 0; index < node.Segments.Len(); index++ {
		segment := node.Segments.At(index)
		html.Write(segment.Value(r.source))
	}
	if stripped := stripHTMLTags(html.String()); stripped != "" {
		r.inline.WriteString(Escape(stripped))
	}
}

func (r *htmlRenderer) enterList(list *ast.List) {
	state := listState{ordered: list.IsOrdered()}
	if state.ordered {
		state.counter = list.Start
	}
	r.lists = append(r.lists, state)
}

// leaveListItem folds the item's captured blocks into one bulleted
// entry. Continuation lines, including any nested list the item
// carried, indent under the bullet.
func (r *htmlRenderer) leaveListItem() {
	content := strings.Join(r.popSink(), "\n")

	top := &r.lists[len(r.lists)-1]
	bullet := "• "
	if top.ordered {
		bullet = fmt.Sprintf("%d. ", top.counter)
		top.counter++
	}

	pad := strings.Repeat(" ", utf8.RuneCountInString(bullet))
	lines := strings.Split(content, "\n")
	var item strings.Builder
	for index, line := range lines {
		if index == 0 {
			item.WriteString(bullet)
		} else {
			item.WriteString("\n" + pad)
		}
		item.WriteString(line)
	}
	r.appendBlock(item.String())
}

// renderTable flattens a table to pipe-separated rows.
func (r *htmlRenderer) renderTable(node ast.Node) {
	var rows []string
	for child := node.FirstChild(); child != nil; child = child.NextSibling() {
		switch child.Kind() {
		case extast.KindTableHeader, extast.KindTableRow:
			rows = append(rows, strings.Join(r.collectTableRow(child), " | "))
		}
	}
	r.appendBlock(strings.Join(rows, "\n"))
}

func (r *htmlRenderer) collectTableRow(row ast.Node) []string {
	var cells []string
	for cell := row.FirstChild(); cell != nil; cell = cell.NextSibling() {
		if cell.Kind() == extast.KindTableCell {
			cells = append(cells, r.renderInlineContent(cell))
		}
	}
	return cells
}

// stripHTMLTags removes HTML tags, keeping only text content.
func stripHTMLTags(html string) string {
	var result strings.Builder
	inTag := false
	for _, character := range html {
		if character == '<' {
			inTag = true
			continue
		}
		if character == '>' {
			inTag = false
			continue
		}
		if !inTag {
			result.WriteRune(character)
		}
	}
	return result.String()
}
