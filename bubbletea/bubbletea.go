// Package bubbletea provides the Bubble Tea chat client: a scrolling
// conversation view, a one-line query input, and a status line.
package bubbletea

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fwojciec/docchat"
)

// ChatFunc runs one chat session. onEvent receives each session event. It
// blocks until the answer ends or ctx is cancelled.
type ChatFunc func(ctx context.Context, asm *docchat.Assembler, req docchat.Request, onEvent func(docchat.Event)) error

// ChatRunner adapts a [docchat.Chat] to a [ChatFunc].
func ChatRunner(chat *docchat.Chat) ChatFunc {
	return func(ctx context.Context, asm *docchat.Assembler, req docchat.Request, onEvent func(docchat.Event)) error {
		return chat.Run(ctx, asm, req, docchat.WithEventHandler(onEvent))
	}
}

// Run creates and runs the Bubble Tea program. It blocks until the program
// exits and any running session has returned. Cancelling ctx quits the
// program and cancels the session.
func Run(ctx context.Context, m Model) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	m.ctx = ctx

	p := tea.NewProgram(m, tea.WithAltScreen())
	go func() {
		<-ctx.Done()
		p.Quit()
	}()
	final, err := p.Run()
	cancel()
	if fm, ok := final.(Model); ok {
		fm.Stop()
	}
	return err
}

// StreamEventMsg wraps a session event for delivery to the model.
type StreamEventMsg struct {
	Event docchat.Event
}

// ChatDoneMsg signals that a session has ended.
type ChatDoneMsg struct {
	Err error
}
