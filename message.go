package docchat

import "time"

// Message is one entry of a Conversation.
//
// A bot message with Terminal == false is the single in-progress entry: it
// is the only message that may still change. Once Terminal is set the
// message is immutable. Failed implies Terminal.
type Message struct {
	Text      string
	Sender    Sender
	Terminal  bool
	Failed    bool
	Timestamp time.Time
}

// Pending reports whether the message can still be mutated.
func (m Message) Pending() bool {
	return !m.Terminal
}
