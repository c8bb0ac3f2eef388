package docchat

import (
	"fmt"
	"unicode"
	"unicode/utf8"
)

// ErrorMarker prefixes the error description appended to a failed message.
const ErrorMarker = "ERROR: "

// AssemblerState is the lifecycle state of an Assembler.
type AssemblerState int

const (
	AssemblerIdle      AssemblerState = iota // No message submitted yet.
	AssemblerStreaming                       // Merging fragments into the trailing message.
	AssemblerSealed                          // Trailing message completed cleanly.
	AssemblerFailed                          // Trailing message terminated by an error.
)

func (s AssemblerState) String() string {
	switch s {
	case AssemblerIdle:
		return "idle"
	case AssemblerStreaming:
		return "streaming"
	case AssemblerSealed:
		return "sealed"
	case AssemblerFailed:
		return "failed"
	default:
		return fmt.Sprintf("AssemblerState(%d)", int(s))
	}
}

// Assembler merges a stream of fragments into the single in-progress bot
// message of a Conversation.
//
// The text being assembled lives on the Assembler, not in shared state; one
// Assembler exists per conversation and it is the conversation's only
// writer. Sealed and Failed are terminal for the current message; the next
// Submit starts a new one.
type Assembler struct {
	conv  *Conversation
	state AssemblerState
	text  string
	count int
}

// NewAssembler creates an Assembler writing to conv.
func NewAssembler(conv *Conversation) *Assembler {
	return &Assembler{conv: conv}
}

// Conversation returns the log this Assembler writes to.
func (a *Assembler) Conversation() *Conversation { return a.conv }

// State returns the current state.
func (a *Assembler) State() AssemblerState { return a.state }

// Text returns the text merged so far into the current message.
func (a *Assembler) Text() string { return a.text }

// Fragments returns how many non-empty fragments were merged into the
// current message.
func (a *Assembler) Fragments() int { return a.count }

// Submit appends a user message with query followed by an empty pending bot
// message. An empty query is rejected with ErrEmptyQuery and leaves the
// conversation untouched; a submit while Streaming is rejected with
// ErrSessionActive.
func (a *Assembler) Submit(query string) error {
	if err := (Request{Query: query}).Validate(); err != nil {
		return err
	}
	if a.state == AssemblerStreaming || a.conv.Pending() {
		return ErrSessionActive
	}
	if err := a.conv.Append(Message{Text: query, Sender: SenderUser, Terminal: true}); err != nil {
		return err
	}
	if err := a.conv.Append(Message{Sender: SenderBot}); err != nil {
		return err
	}
	a.state = AssemblerStreaming
	a.text = ""
	a.count = 0
	return nil
}

// Apply merges one fragment into the trailing message using Join. Empty
// fragments are ignored.
func (a *Assembler) Apply(fragment string) error {
	if a.state != AssemblerStreaming {
		return fmt.Errorf("apply fragment in state %s: %w", a.state, ErrMessageSealed)
	}
	if fragment == "" {
		return nil
	}
	text := Join(a.text, fragment)
	if err := a.conv.updateTrailing(func(m *Message) { m.Text = text }); err != nil {
		return err
	}
	a.text = text
	a.count++
	return nil
}

// Seal marks the trailing message terminal after a clean end of stream.
func (a *Assembler) Seal() error {
	if a.state != AssemblerStreaming {
		return fmt.Errorf("seal in state %s: %w", a.state, ErrMessageSealed)
	}
	if err := a.conv.updateTrailing(func(m *Message) { m.Terminal = true }); err != nil {
		return err
	}
	a.state = AssemblerSealed
	return nil
}

// Fail marks the trailing message terminal and failed. Text merged so far is
// kept and the error description is appended after it.
func (a *Assembler) Fail(cause error) error {
	if a.state != AssemblerStreaming {
		return fmt.Errorf("fail in state %s: %w", a.state, ErrMessageSealed)
	}
	text := FailureText(a.text, cause)
	if err := a.conv.updateTrailing(func(m *Message) {
		m.Text = text
		m.Terminal = true
		m.Failed = true
	}); err != nil {
		return err
	}
	a.text = text
	a.state = AssemblerFailed
	return nil
}

// FailureText renders the text of a failed message: the partial text, if
// any, followed by an ErrorMarker line describing cause.
func FailureText(partial string, cause error) string {
	desc := "unknown error"
	if cause != nil {
		desc = cause.Error()
	}
	if partial == "" {
		return ErrorMarker + desc
	}
	return partial + "\n" + ErrorMarker + desc
}

// Join appends frag to acc, inserting a single space unless acc already ends
// in whitespace or frag begins with whitespace.
//
// The rule reconstructs word boundaries lost to token framing. It cannot
// tell sub-word tokens apart, so "wo" and "rld" join as "wo rld".
func Join(acc, frag string) string {
	if frag == "" {
		return acc
	}
	if acc == "" {
		return frag
	}
	last, _ := utf8.DecodeLastRuneInString(acc)
	first, _ := utf8.DecodeRuneInString(frag)
	if unicode.IsSpace(last) || unicode.IsSpace(first) {
		return acc + frag
	}
	return acc + " " + frag
}
