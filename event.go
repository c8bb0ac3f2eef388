package docchat

// Event is a sealed interface for session progress notifications delivered
// to presentation layers. The unexported marker method prevents external
// implementations.
type Event interface {
	event()
}

// EventFragment reports a fragment merged into the trailing message. Text is
// the message text after the merge.
type EventFragment struct {
	Fragment Fragment
	Text     string
}

func (EventFragment) event() {}

// EventSealed reports a clean end of stream with the final message.
type EventSealed struct {
	Message Message
}

func (EventSealed) event() {}

// EventFailed reports a terminated stream. Message carries the partial text
// followed by the error marker.
type EventFailed struct {
	Message Message
	Err     error
}

func (EventFailed) event() {}

// Interface compliance checks.
var (
	_ Event = EventFragment{}
	_ Event = EventSealed{}
	_ Event = EventFailed{}
)
