package docchat

// StreamState indicates the current state of a Stream.
type StreamState int

const (
	StreamStateNew       StreamState = iota // Before Next() is ever called.
	StreamStateStreaming                    // Mid-stream, receiving fragments.
	StreamStateComplete                     // Next() returned io.EOF.
	StreamStateError                        // Next() returned non-EOF error.
	StreamStateClosed                       // Close() called before terminal state.
)

// Stream is a pull-based, ordered sequence of fragments. Cancellation flows
// through the context passed to Provider.Stream().
//
// Next returns io.EOF after a clean end. Any other error is terminal and is
// returned again by subsequent calls. A Stream can only be restarted from
// the beginning, by asking the Provider for a new one.
type Stream interface {
	Next() (Fragment, error)
	State() StreamState
	Close() error
}
