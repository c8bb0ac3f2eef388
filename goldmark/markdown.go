// Package goldmark renders finished answers, which models write in
// markdown, as ANSI-styled terminal text. Parsing uses goldmark with the
// table, strikethrough, and linkify extensions; styling uses lipgloss.
package goldmark

import (
	"strings"

	"github.com/fwojciec/docchat"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"
)

const defaultWidth = 80

var md = goldmark.New(
	goldmark.WithExtensions(extension.Table, extension.Strikethrough, extension.Linkify),
)

// Render returns source as styled terminal text. Prose is wrapped to width;
// code and tables keep their layout.
func Render(source string, width int, theme docchat.Theme) string {
	if strings.TrimSpace(source) == "" {
		return ""
	}
	if width <= 0 {
		width = defaultWidth
	}
	src := []byte(source)
	doc := md.Parser().Parse(text.NewReader(src))
	r := newRenderer(src, theme)
	return r.blocks(doc, width)
}
