package bubbletea_test

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/fwojciec/docchat"
	bt "github.com/fwojciec/docchat/bubbletea"
	"github.com/stretchr/testify/assert"
)

func TestUserMessageBlock_View(t *testing.T) {
	t.Parallel()
	styles := bt.NewStyles(docchat.DefaultTheme())

	t.Run("prefixes the query", func(t *testing.T) {
		t.Parallel()
		view := bt.NewUserMessageBlock("what is the total?", styles).View(80)
		assert.True(t, strings.HasPrefix(view, "> what is the total?"), view)
	})

	t.Run("wraps to width", func(t *testing.T) {
		t.Parallel()
		long := "short words that keep going and going beyond the viewport width easily"
		view := bt.NewUserMessageBlock(long, styles).View(30)
		lines := strings.Split(view, "\n")
		assert.Greater(t, len(lines), 1)
		for _, line := range lines {
			assert.LessOrEqual(t, lipgloss.Width(line), 30)
		}
		assert.Contains(t, view, "easily")
	})
}
