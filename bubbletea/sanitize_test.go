package bubbletea_test

import (
	"testing"

	"github.com/fwojciec/docchat"
	bt "github.com/fwojciec/docchat/bubbletea"
	"github.com/stretchr/testify/assert"
)

func TestSanitize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain text", "Result: 42", "Result: 42"},
		{"color codes", "\x1b[31mred\x1b[0m", "red"},
		{"title change", "\x1b]0;pwned\x07text", "text"},
		{"tabs and newlines", "a\tb\nc", "a\tb\nc"},
		{"control characters", "a\x01b\x07c\x7f", "abc"},
		{"crlf", "a\r\nb", "a\nb"},
		{"lone cr", "a\rb", "ab"},
		{"non-ascii", "café 日本 €", "café 日本 €"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, bt.Sanitize(tt.in))
		})
	}
}

func TestBlocksSanitizeText(t *testing.T) {
	t.Parallel()
	theme := docchat.DefaultTheme()
	styles := bt.NewStyles(theme)

	user := bt.NewUserMessageBlock("\x1b[2Jhi", styles)
	assert.NotContains(t, user.View(80), "\x1b[2J")

	bot := bt.NewBotMessageBlock(theme, styles)
	bot.SetText("ok\x1b]0;title\x07")
	assert.NotContains(t, bot.View(80), "\x1b]")
	assert.Contains(t, bot.View(80), "ok")
}
