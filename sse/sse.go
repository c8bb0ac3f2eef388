// Package sse implements the line framing used between the upstream
// text-generation service, the relay, and its clients.
//
// Each logical unit is a line prefixed with "data: ". The Decoder turns raw
// byte chunks into frames regardless of where the transport split them,
// including in the middle of a multi-byte character. The Stream adapts a
// response body into a pull-based [docchat.Stream], and the Writer emits the
// relay's framing: one data unit per fragment, holding the fragment as a JSON
// string.
package sse

// Event names carried by the relay. Upstream services only send unnamed
// data units.
const (
	EventMessage = ""
	EventError   = "error"
	EventDone    = "done"
)

// doneData is the payload of the done event. Data units that are empty after
// stripping are suppressed, so the terminal events always carry text.
const doneData = "done"

// Frame is one decoded unit: its event name and its stripped data.
type Frame struct {
	Event string
	Data  string
}
