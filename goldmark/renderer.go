package goldmark

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/fwojciec/docchat"
	"github.com/mattn/go-runewidth"
	"github.com/yuin/goldmark/ast"
	east "github.com/yuin/goldmark/extension/ast"
)

const minWrap = 10

type renderer struct {
	source []byte

	bold      lipgloss.Style
	italic    lipgloss.Style
	strike    lipgloss.Style
	underline lipgloss.Style
	accent    lipgloss.Style
	muted     lipgloss.Style
	code      lipgloss.Style
}

func newRenderer(source []byte, theme docchat.Theme) *renderer {
	return &renderer{
		source:    source,
		bold:      lipgloss.NewStyle().Bold(true),
		italic:    lipgloss.NewStyle().Italic(true),
		strike:    lipgloss.NewStyle().Strikethrough(true),
		underline: lipgloss.NewStyle().Underline(true),
		accent:    lipgloss.NewStyle().Foreground(ansiColor(theme.Accent)).Bold(true),
		muted:     lipgloss.NewStyle().Foreground(ansiColor(theme.Muted)).Faint(true),
		code:      lipgloss.NewStyle().Background(ansiColor(theme.CodeBg)),
	}
}

func ansiColor(index int) lipgloss.TerminalColor {
	if index < 0 {
		return lipgloss.NoColor{}
	}
	return lipgloss.Color(strconv.Itoa(index))
}

// blocks renders the block children of parent separated by blank lines.
func (r *renderer) blocks(parent ast.Node, width int) string {
	var out []string
	for c := parent.FirstChild(); c != nil; c = c.NextSibling() {
		if s := r.block(c, width); s != "" {
			out = append(out, s)
		}
	}
	return strings.Join(out, "\n\n")
}

func (r *renderer) block(node ast.Node, width int) string {
	switch n := node.(type) {
	case *ast.Paragraph, *ast.TextBlock:
		return wrap(r.inline(n), width)
	case *ast.Heading:
		return wrap(r.accent.Render(r.inline(n)), width)
	case *ast.FencedCodeBlock:
		body := r.codeLines(n)
		if lang := string(n.Language(r.source)); lang != "" {
			return r.muted.Render(lang) + "\n" + body
		}
		return body
	case *ast.CodeBlock:
		return r.codeLines(n)
	case *ast.Blockquote:
		return r.quote(n, width)
	case *ast.List:
		return r.list(n, width, 0)
	case *ast.ThematicBreak:
		return r.muted.Render(strings.Repeat("─", min(width, 40)))
	case *ast.HTMLBlock:
		return strings.TrimRight(r.lines(n), "\n")
	case *east.Table:
		return r.table(n)
	default:
		return r.blocks(n, width)
	}
}

func (r *renderer) lines(n ast.Node) string {
	var b strings.Builder
	segs := n.Lines()
	for i := range segs.Len() {
		seg := segs.At(i)
		b.Write(seg.Value(r.source))
	}
	return b.String()
}

// codeLines keeps code verbatim, one styled row per source line.
func (r *renderer) codeLines(n ast.Node) string {
	raw := strings.TrimRight(r.lines(n), "\n")
	rows := strings.Split(raw, "\n")
	for i, row := range rows {
		rows[i] = r.muted.Render("│") + " " + r.code.Render(row)
	}
	return strings.Join(rows, "\n")
}

// quote renders a blockquote, typically a passage cited from the document.
func (r *renderer) quote(n *ast.Blockquote, width int) string {
	inner := r.blocks(n, max(width-2, minWrap))
	bar := r.accent.Render("│") + " "
	rows := strings.Split(inner, "\n")
	for i, row := range rows {
		rows[i] = bar + row
	}
	return strings.Join(rows, "\n")
}

func (r *renderer) list(n *ast.List, width, depth int) string {
	var out []string
	num := n.Start
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		item, ok := c.(*ast.ListItem)
		if !ok {
			continue
		}
		marker := "- "
		if n.IsOrdered() {
			marker = fmt.Sprintf("%d. ", num)
			num++
		}
		indent := strings.Repeat("  ", depth)

		var content []string
		for ic := item.FirstChild(); ic != nil; ic = ic.NextSibling() {
			switch in := ic.(type) {
			case *ast.List:
				if len(content) > 0 {
					out = append(out, hang(indent+marker, strings.Join(content, "\n"), width))
					content = nil
					marker = strings.Repeat(" ", len(marker))
				}
				out = append(out, r.list(in, width, depth+1))
			case *ast.Paragraph, *ast.TextBlock:
				content = append(content, r.inline(in))
			default:
				content = append(content, r.block(in, width))
			}
		}
		if len(content) > 0 {
			out = append(out, hang(indent+marker, strings.Join(content, "\n"), width))
		}
	}
	return strings.Join(out, "\n")
}

// hang wraps content after prefix and indents continuation rows to match.
func hang(prefix, content string, width int) string {
	rows := strings.Split(wrap(content, max(width-len(prefix), minWrap)), "\n")
	pad := strings.Repeat(" ", len(prefix))
	for i, row := range rows {
		if i == 0 {
			rows[i] = prefix + row
		} else {
			rows[i] = pad + row
		}
	}
	return strings.Join(rows, "\n")
}

// table lays out cells in aligned columns. Cell widths are measured on
// plain text, so cells are not styled.
func (r *renderer) table(n *east.Table) string {
	var rows [][]string
	for row := n.FirstChild(); row != nil; row = row.NextSibling() {
		var cells []string
		for cell := row.FirstChild(); cell != nil; cell = cell.NextSibling() {
			cells = append(cells, r.plain(cell))
		}
		rows = append(rows, cells)
	}
	if len(rows) == 0 {
		return ""
	}

	widths := make([]int, len(n.Alignments))
	for _, cells := range rows {
		for i, cell := range cells {
			if i < len(widths) {
				widths[i] = max(widths[i], runewidth.StringWidth(cell))
			}
		}
	}

	sep := r.muted.Render(" │ ")
	out := make([]string, 0, len(rows)+1)
	for ri, cells := range rows {
		padded := make([]string, len(widths))
		for i := range widths {
			var cell string
			if i < len(cells) {
				cell = cells[i]
			}
			padded[i] = align(cell, widths[i], n.Alignments[i])
			if ri == 0 {
				padded[i] = r.bold.Render(padded[i])
			}
		}
		out = append(out, strings.TrimRight(strings.Join(padded, sep), " "))
		if ri == 0 {
			rules := make([]string, len(widths))
			for i, w := range widths {
				rules[i] = strings.Repeat("─", w)
			}
			out = append(out, r.muted.Render(strings.Join(rules, "─┼─")))
		}
	}
	return strings.Join(out, "\n")
}

func align(cell string, width int, a east.Alignment) string {
	switch a {
	case east.AlignRight:
		return runewidth.FillLeft(cell, width)
	case east.AlignCenter:
		left := (width - runewidth.StringWidth(cell)) / 2
		return runewidth.FillRight(strings.Repeat(" ", left)+cell, width)
	default:
		return runewidth.FillRight(cell, width)
	}
}

func wrap(s string, width int) string {
	return lipgloss.NewStyle().Width(width).Render(s)
}

// inline renders the inline children of node with styling.
func (r *renderer) inline(node ast.Node) string {
	var b strings.Builder
	for c := node.FirstChild(); c != nil; c = c.NextSibling() {
		r.writeInline(&b, c)
	}
	return b.String()
}

func (r *renderer) writeInline(b *strings.Builder, node ast.Node) {
	switch n := node.(type) {
	case *ast.Text:
		b.Write(n.Segment.Value(r.source))
		switch {
		case n.HardLineBreak():
			b.WriteByte('\n')
		case n.SoftLineBreak():
			b.WriteByte(' ')
		}
	case *ast.String:
		b.Write(n.Value)
	case *ast.Emphasis:
		if n.Level == 1 {
			b.WriteString(r.italic.Render(r.inline(n)))
		} else {
			b.WriteString(r.bold.Render(r.inline(n)))
		}
	case *east.Strikethrough:
		b.WriteString(r.strike.Render(r.inline(n)))
	case *ast.CodeSpan:
		b.WriteString(r.code.Render(r.inline(n)))
	case *ast.Link:
		b.WriteString(r.underline.Render(r.inline(n)))
		b.WriteString(" " + r.muted.Render("("+string(n.Destination)+")"))
	case *ast.Image:
		b.WriteString(r.underline.Render(r.inline(n)))
		b.WriteString(" " + r.muted.Render("("+string(n.Destination)+")"))
	case *ast.AutoLink:
		b.WriteString(r.underline.Render(string(n.URL(r.source))))
	case *ast.RawHTML:
		for i := range n.Segments.Len() {
			seg := n.Segments.At(i)
			b.Write(seg.Value(r.source))
		}
	default:
		for c := node.FirstChild(); c != nil; c = c.NextSibling() {
			r.writeInline(b, c)
		}
	}
}

// plain collects the text of node without styling.
func (r *renderer) plain(node ast.Node) string {
	var b strings.Builder
	_ = ast.Walk(node, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch n := n.(type) {
		case *ast.Text:
			b.Write(n.Segment.Value(r.source))
		case *ast.String:
			b.Write(n.Value)
		case *ast.AutoLink:
			b.Write(n.URL(r.source))
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	return strings.TrimSpace(b.String())
}
