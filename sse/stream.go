package sse

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/fwojciec/docchat"
)

// Interface compliance check.
var _ docchat.Stream = (*Stream)(nil)

// Stream implements [docchat.Stream] by decoding frames from a response body
// as its bytes arrive. A Stream is single-use: to start over, open a new body
// and wrap it in a new Stream.
type Stream struct {
	body        io.ReadCloser
	frames      *Reader
	bufSize     int
	state       docchat.StreamState
	err         error // terminal error, if any
	index       int
	requireDone bool
	jsonData    bool
}

// StreamOption configures a [Stream].
type StreamOption func(*Stream)

// WithDoneEvent makes a body that ends without a done event count as an
// aborted stream rather than a clean end. Use it for bodies written by
// [Writer], which always terminates with a done or error event.
func WithDoneEvent(require bool) StreamOption {
	return func(s *Stream) { s.requireDone = require }
}

// WithJSONData decodes every data unit as a JSON string, the encoding
// [Writer.WriteFragment] uses. A unit that is not a JSON string fails the
// stream.
func WithJSONData(decode bool) StreamOption {
	return func(s *Stream) { s.jsonData = decode }
}

// WithBufferSize sets the size of a single body read.
func WithBufferSize(n int) StreamOption {
	return func(s *Stream) { s.bufSize = n }
}

// NewStream wraps body. ctx must be the context of the request that produced
// body; it is used to tell cancellation apart from upstream failure.
func NewStream(ctx context.Context, body io.ReadCloser, opts ...StreamOption) *Stream {
	s := &Stream{
		body:  body,
		state: docchat.StreamStateNew,
	}
	for _, o := range opts {
		o(s)
	}
	s.frames = NewReader(ctx, body, s.bufSize)
	return s
}

// Next returns the next fragment. It returns io.EOF after a clean end.
func (s *Stream) Next() (docchat.Fragment, error) {
	switch s.state {
	case docchat.StreamStateComplete:
		return docchat.Fragment{}, io.EOF
	case docchat.StreamStateError:
		return docchat.Fragment{}, s.err
	case docchat.StreamStateClosed:
		return docchat.Fragment{}, fmt.Errorf("sse: %w", docchat.ErrStreamClosed)
	}

	for {
		fr, err := s.frames.Next()
		if errors.Is(err, io.EOF) {
			if s.requireDone {
				s.terminate(fmt.Errorf("sse: body ended without a done event: %w", docchat.ErrUpstreamAborted))
				return docchat.Fragment{}, s.err
			}
			s.state = docchat.StreamStateComplete
			return docchat.Fragment{}, io.EOF
		}
		if err != nil {
			s.terminate(err)
			return docchat.Fragment{}, s.err
		}

		switch fr.Event {
		case EventMessage:
		case EventError:
			s.terminate(fmt.Errorf("sse: %s: %w", fr.Data, docchat.ErrUpstreamAborted))
			return docchat.Fragment{}, s.err
		case EventDone:
			s.state = docchat.StreamStateComplete
			return docchat.Fragment{}, io.EOF
		default:
			// Unknown events carry nothing for the transcript.
			continue
		}

		text := fr.Data
		if s.jsonData {
			if err := json.Unmarshal([]byte(fr.Data), &text); err != nil {
				s.terminate(fmt.Errorf("sse: malformed data unit: %w: %w", docchat.ErrValidation, err))
				return docchat.Fragment{}, s.err
			}
		}
		s.state = docchat.StreamStateStreaming
		f := docchat.Fragment{Index: s.index, Text: text}
		s.index++
		return f, nil
	}
}

// State returns the current stream state.
func (s *Stream) State() docchat.StreamState {
	return s.state
}

// Close closes the underlying body.
func (s *Stream) Close() error {
	if s.state != docchat.StreamStateComplete && s.state != docchat.StreamStateError {
		s.state = docchat.StreamStateClosed
	}
	return s.body.Close()
}

func (s *Stream) terminate(err error) {
	s.state = docchat.StreamStateError
	s.err = err
}
