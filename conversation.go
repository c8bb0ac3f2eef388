package docchat

import (
	"fmt"
	"time"
)

// Conversation is the ordered log of messages exchanged in one chat.
//
// The log is append-only except for the trailing entry, which may be a
// single in-progress bot message. At most one pending message exists and it
// is always last. A Conversation is not safe for concurrent use: the
// Assembler driving the current session is its only writer.
type Conversation struct {
	ID        string
	CreatedAt time.Time
	UpdatedAt time.Time

	messages []Message
}

// NewConversation creates an empty conversation with the given ID.
func NewConversation(id string) *Conversation {
	now := time.Now()
	return &Conversation{ID: id, CreatedAt: now, UpdatedAt: now}
}

// Messages returns a copy of the log.
func (c *Conversation) Messages() []Message {
	out := make([]Message, len(c.messages))
	copy(out, c.messages)
	return out
}

// Len returns the number of messages in the log.
func (c *Conversation) Len() int { return len(c.messages) }

// Last returns the trailing message, if any.
func (c *Conversation) Last() (Message, bool) {
	if len(c.messages) == 0 {
		return Message{}, false
	}
	return c.messages[len(c.messages)-1], true
}

// Pending reports whether the trailing message is still in progress.
func (c *Conversation) Pending() bool {
	last, ok := c.Last()
	return ok && last.Pending()
}

// Append adds a message to the end of the log. It fails with
// ErrSessionActive while the trailing message is still pending.
func (c *Conversation) Append(m Message) error {
	if err := ValidateMessage(m); err != nil {
		return err
	}
	if c.Pending() {
		return ErrSessionActive
	}
	if m.Timestamp.IsZero() {
		m.Timestamp = time.Now()
	}
	c.messages = append(c.messages, m)
	c.UpdatedAt = m.Timestamp
	return nil
}

// updateTrailing applies fn to the pending trailing message. Earlier
// messages are never touched.
func (c *Conversation) updateTrailing(fn func(*Message)) error {
	if len(c.messages) == 0 {
		return fmt.Errorf("update trailing message: empty conversation: %w", ErrValidation)
	}
	last := &c.messages[len(c.messages)-1]
	if !last.Pending() {
		return ErrMessageSealed
	}
	fn(last)
	if err := ValidateMessage(*last); err != nil {
		return err
	}
	c.UpdatedAt = time.Now()
	return nil
}
