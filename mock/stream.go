package mock

import (
	"io"

	"github.com/fwojciec/docchat"
)

// Interface compliance check.
var _ docchat.Stream = (*Stream)(nil)

// Stream is a test double for docchat.Stream.
// NextFn panics when nil to catch missing setup. CloseFn and StateFn are
// nil-safe (no-op and zero value) because test code commonly calls
// defer stream.Close() and these methods rarely need custom behavior.
type Stream struct {
	NextFn  func() (docchat.Fragment, error)
	StateFn func() docchat.StreamState
	CloseFn func() error
}

// Next delegates to NextFn.
func (s *Stream) Next() (docchat.Fragment, error) {
	return s.NextFn()
}

// State delegates to StateFn. Returns StreamStateNew when StateFn is nil.
func (s *Stream) State() docchat.StreamState {
	if s.StateFn == nil {
		return docchat.StreamStateNew
	}
	return s.StateFn()
}

// Close delegates to CloseFn. Returns nil when CloseFn is not set.
func (s *Stream) Close() error {
	if s.CloseFn == nil {
		return nil
	}
	return s.CloseFn()
}

// Fragments returns a Stream that yields texts in order and then ends with
// end. A nil end means a clean io.EOF.
func Fragments(end error, texts ...string) *Stream {
	i := 0
	return &Stream{
		NextFn: func() (docchat.Fragment, error) {
			if i < len(texts) {
				f := docchat.Fragment{Index: i, Text: texts[i]}
				i++
				return f, nil
			}
			if end != nil {
				return docchat.Fragment{}, end
			}
			return docchat.Fragment{}, io.EOF
		},
	}
}
