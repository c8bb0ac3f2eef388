package bubbletea_test

import (
	"context"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fwojciec/docchat"
	bt "github.com/fwojciec/docchat/bubbletea"
	"github.com/stretchr/testify/require"
)

func newAssembler() *docchat.Assembler {
	return docchat.NewAssembler(docchat.NewConversation("c-1"))
}

// initModel creates a model and sends a WindowSizeMsg to initialize the viewport.
func initModel(t *testing.T, run bt.ChatFunc, asm *docchat.Assembler, opts ...bt.Option) bt.Model {
	t.Helper()
	return initModelWithSize(t, run, asm, 80, 24, opts...)
}

func initModelWithSize(t *testing.T, run bt.ChatFunc, asm *docchat.Assembler, width, height int, opts ...bt.Option) bt.Model {
	t.Helper()
	m := bt.New(run, asm, docchat.DefaultTheme(), opts...)
	return updateModel(t, m, tea.WindowSizeMsg{Width: width, Height: height})
}

// updateModel sends a message and returns the updated Model.
func updateModel(t *testing.T, m bt.Model, msg tea.Msg) bt.Model {
	t.Helper()
	updated, _ := m.Update(msg)
	model, ok := updated.(bt.Model)
	require.True(t, ok)
	return model
}

// nopChat is a session runner that does nothing.
func nopChat(context.Context, *docchat.Assembler, docchat.Request, func(docchat.Event)) error {
	return nil
}
