package bubbletea

import (
	"context"
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/fwojciec/docchat"
	"github.com/mattn/go-runewidth"
)

var _ tea.Model = Model{}

// Model is the Bubble Tea model for the chat client.
type Model struct {
	// Input is the query input. Exported for test access.
	Input textinput.Model
	// Viewport is the scrollable conversation. Exported for test access.
	Viewport viewport.Model
	// Spinner animates the typing indicator.
	Spinner spinner.Model

	ctx      context.Context
	run      ChatFunc
	asm      *docchat.Assembler
	document string
	theme    docchat.Theme
	styles   Styles

	blocks []MessageBlock
	// active is the answer of the running session; its user block precedes
	// it in blocks. logged is the conversation length when it started.
	active *BotMessageBlock
	logged int

	running bool
	cancel  context.CancelFunc
	eventCh chan docchat.Event
	doneCh  chan error
	// finished is closed once the session goroutine has returned.
	finished chan struct{}
	err      error
	ready    bool
}

// Option configures a [Model].
type Option func(*Model)

// WithDocument sets the document every query is asked about.
func WithDocument(id string) Option {
	return func(m *Model) { m.document = id }
}

// WithContext sets the context sessions derive from. Cancelling it cancels
// the running session.
func WithContext(ctx context.Context) Option {
	return func(m *Model) { m.ctx = ctx }
}

// New creates a Model that runs sessions with run and logs them in asm's
// conversation. Messages already in the conversation are shown on start.
func New(run ChatFunc, asm *docchat.Assembler, theme docchat.Theme, opts ...Option) Model {
	ti := textinput.New()
	ti.Placeholder = "Ask about the document..."
	ti.Prompt = ""
	ti.Focus()
	ti.CharLimit = docchat.MaxQueryBytes

	styles := NewStyles(theme)
	sp := spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(styles.Accent))

	m := Model{
		Input:   ti,
		Spinner: sp,
		ctx:     context.Background(),
		run:     run,
		asm:     asm,
		theme:   theme,
		styles:  styles,
	}
	for _, o := range opts {
		o(&m)
	}
	return m
}

// Running returns whether a session is in progress.
func (m Model) Running() bool { return m.running }

// Stop cancels the running session, if any, and waits for it to return.
// After Stop the conversation has no writer and is safe to read.
func (m Model) Stop() {
	if m.cancel != nil {
		m.cancel()
	}
	if m.finished != nil {
		<-m.finished
	}
}

// Err returns the error of the last session, if any. Cancellation is not
// an error.
func (m Model) Err() error { return m.err }

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m = m.handleWindowSize(msg)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case spinner.TickMsg:
		if !m.running {
			return m, nil
		}
		var cmd tea.Cmd
		m.Spinner, cmd = m.Spinner.Update(msg)
		return m, cmd

	case StreamEventMsg:
		m = m.processEvent(msg.Event)
		m.refresh()
		if m.eventCh != nil {
			return m, listenForEvent(m.eventCh, m.doneCh)
		}
		return m, nil

	case ChatDoneMsg:
		if m.cancel != nil {
			m.cancel()
		}
		m.running = false
		m.cancel = nil
		m.eventCh = nil
		m.doneCh = nil
		m = m.settle()
		if msg.Err != nil && !errors.Is(msg.Err, context.Canceled) {
			m.err = msg.Err
		}
		m.refresh()
		cmds = append(cmds, m.Input.Focus())
		return m, tea.Batch(cmds...)
	}

	// Viewport always receives remaining messages for scrolling.
	var cmd tea.Cmd
	m.Viewport, cmd = m.Viewport.Update(msg)
	cmds = append(cmds, cmd)

	if !m.running {
		m.Input, cmd = m.Input.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Initializing..."
	}

	var b strings.Builder
	b.WriteString(m.Viewport.View())
	b.WriteString("\n")
	b.WriteString(m.statusLine())
	b.WriteString("\n")
	b.WriteString(m.Input.View())
	return b.String()
}

func (m Model) handleWindowSize(msg tea.WindowSizeMsg) Model {
	const inputHeight, statusHeight, gaps = 1, 1, 2
	vpHeight := max(msg.Height-inputHeight-statusHeight-gaps, 1)

	if !m.ready {
		m.Viewport = viewport.New(msg.Width, vpHeight)
		m = m.renderConversation()
		m.ready = true
	} else {
		m.Viewport.Width = msg.Width
		m.Viewport.Height = vpHeight
	}
	m.refresh()

	m.Input.Width = msg.Width
	return m
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		if m.running {
			if m.cancel != nil {
				m.cancel()
			}
			return m, nil
		}
		return m, tea.Quit

	case tea.KeyEnter:
		if m.running {
			return m, nil
		}
		query := strings.TrimSpace(m.Input.Value())
		if query == "" {
			return m, nil
		}
		return m.submit(query)
	}

	if m.running {
		return m, nil
	}

	// Character keys go to the input only; 'j' and 'k' would otherwise
	// scroll the viewport while typing.
	var cmd tea.Cmd
	var cmds []tea.Cmd
	if msg.Type != tea.KeyRunes {
		m.Viewport, cmd = m.Viewport.Update(msg)
		cmds = append(cmds, cmd)
	}
	m.Input, cmd = m.Input.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

func (m Model) submit(query string) (tea.Model, tea.Cmd) {
	m.Input.SetValue("")
	m.Input.Blur()
	m.err = nil

	m.logged = m.asm.Conversation().Len()
	m.active = NewBotMessageBlock(m.theme, m.styles)
	m.blocks = append(m.blocks, NewUserMessageBlock(query, m.styles), m.active)
	m.refresh()

	req := docchat.Request{
		Query:          query,
		DocumentID:     m.document,
		ConversationID: m.asm.Conversation().ID,
	}
	ctx, cancel := context.WithCancel(m.ctx)
	m.cancel = cancel
	m.eventCh = make(chan docchat.Event, 256)
	m.doneCh = make(chan error, 1)
	m.finished = make(chan struct{})
	m.running = true

	return m, tea.Batch(
		startChat(ctx, m.run, m.asm, req, m.eventCh, m.doneCh, m.finished),
		listenForEvent(m.eventCh, m.doneCh),
		m.Spinner.Tick,
	)
}

// renderConversation creates blocks for messages logged before start.
func (m Model) renderConversation() Model {
	for _, msg := range m.asm.Conversation().Messages() {
		switch msg.Sender {
		case docchat.SenderUser:
			m.blocks = append(m.blocks, NewUserMessageBlock(msg.Text, m.styles))
		case docchat.SenderBot:
			m.blocks = append(m.blocks, newBotMessageBlockFrom(msg, m.theme, m.styles))
		}
	}
	return m
}

func (m *Model) refresh() {
	m.Viewport.SetContent(m.renderContent())
	m.Viewport.GotoBottom()
}

func (m Model) renderContent() string {
	views := make([]string, len(m.blocks))
	for i, block := range m.blocks {
		views[i] = block.View(m.Viewport.Width)
	}
	return strings.Join(views, "\n\n")
}

// settle reconciles the active answer with the log once its session has
// ended. Events are dropped after cancellation, so the log is the source of
// truth here.
func (m Model) settle() Model {
	if m.active == nil {
		return m
	}
	conv := m.asm.Conversation()
	last, ok := conv.Last()
	switch {
	case conv.Len() == m.logged:
		// Refused before anything was logged.
		m.blocks = m.blocks[:len(m.blocks)-2]
	case ok && last.Failed:
		m.active.Fail(last.Text)
	case ok && last.Terminal:
		m.active.Seal(last.Text)
	}
	m.active = nil
	return m
}

func (m Model) processEvent(evt docchat.Event) Model {
	if m.active == nil {
		return m
	}
	switch e := evt.(type) {
	case docchat.EventFragment:
		m.active.SetText(e.Text)
	case docchat.EventSealed:
		m.active.Seal(e.Message.Text)
	case docchat.EventFailed:
		m.active.Fail(e.Message.Text)
	}
	return m
}

func (m Model) statusLine() string {
	width := m.Viewport.Width
	switch {
	case m.err != nil:
		return m.styles.Error.Render(truncate("Error: "+m.err.Error(), width))
	case m.running:
		return m.Spinner.View() + " " + m.styles.Muted.Render(truncate("Typing…", width-2))
	}
	hint := "Enter to send, Ctrl+C to quit"
	if m.document != "" {
		hint = m.document + " · " + hint
	}
	return m.styles.Muted.Render(truncate(hint, width))
}

// truncate shortens s to width terminal cells.
func truncate(s string, width int) string {
	if width <= 0 {
		return s
	}
	return runewidth.Truncate(s, width, "…")
}

// startChat runs the session in a goroutine and signals completion.
func startChat(ctx context.Context, run ChatFunc, asm *docchat.Assembler, req docchat.Request, eventCh chan<- docchat.Event, doneCh chan<- error, finished chan<- struct{}) tea.Cmd {
	return func() tea.Msg {
		defer close(finished)
		err := run(ctx, asm, req, func(e docchat.Event) {
			select {
			case eventCh <- e:
			case <-ctx.Done():
			}
		})
		close(eventCh)
		doneCh <- err
		return nil
	}
}

// listenForEvent waits for the next event. When the channel closes, it
// reads the session result and returns ChatDoneMsg.
func listenForEvent(ch <-chan docchat.Event, doneCh <-chan error) tea.Cmd {
	return func() tea.Msg {
		evt, ok := <-ch
		if !ok {
			return ChatDoneMsg{Err: <-doneCh}
		}
		return StreamEventMsg{Event: evt}
	}
}
