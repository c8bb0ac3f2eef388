package bubbletea

import (
	"github.com/fwojciec/docchat"
	"github.com/fwojciec/docchat/goldmark"
)

var _ MessageBlock = (*BotMessageBlock)(nil)

type botState int

const (
	botPending botState = iota
	botSealed
	botFailed
)

// BotMessageBlock renders an answer. While the answer streams its text is
// shown as is; once sealed it is rendered as markdown, and a failed answer
// is shown in the error style with its error line.
type BotMessageBlock struct {
	text   string
	state  botState
	theme  docchat.Theme
	styles Styles

	// Sealed text never changes, so its markdown is rendered once per width.
	byWidth map[int]string
}

// NewBotMessageBlock creates an empty pending block.
func NewBotMessageBlock(theme docchat.Theme, styles Styles) *BotMessageBlock {
	return &BotMessageBlock{theme: theme, styles: styles, byWidth: make(map[int]string)}
}

// newBotMessageBlockFrom restores a block for a logged message.
func newBotMessageBlockFrom(m docchat.Message, theme docchat.Theme, styles Styles) *BotMessageBlock {
	b := NewBotMessageBlock(theme, styles)
	switch {
	case m.Failed:
		b.Fail(m.Text)
	case m.Terminal:
		b.Seal(m.Text)
	default:
		b.SetText(m.Text)
	}
	return b
}

// SetText replaces the text of a pending answer. Terminal blocks ignore it.
func (b *BotMessageBlock) SetText(text string) {
	if b.state == botPending {
		b.text = sanitize(text)
	}
}

// Seal marks the answer complete with its final text.
func (b *BotMessageBlock) Seal(text string) {
	b.text = sanitize(text)
	b.state = botSealed
	clear(b.byWidth)
}

// Fail marks the answer failed. text includes the error line.
func (b *BotMessageBlock) Fail(text string) {
	b.text = sanitize(text)
	b.state = botFailed
}

// Pending reports whether the answer has not ended yet.
func (b *BotMessageBlock) Pending() bool { return b.state == botPending }

func (b *BotMessageBlock) View(width int) string {
	switch b.state {
	case botSealed:
		if r, ok := b.byWidth[width]; ok {
			return r
		}
		r := goldmark.Render(b.text, width, b.theme)
		b.byWidth[width] = r
		return r
	case botFailed:
		return b.styles.Error.Width(width).Render(b.text)
	default:
		if b.text == "" {
			return b.styles.Muted.Render("…")
		}
		return b.styles.BotMsg.Width(width).Render(b.text)
	}
}
