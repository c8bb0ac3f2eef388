package anthropic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/fwojciec/docchat"
	"github.com/fwojciec/docchat/sse"
)

// stream implements [docchat.Stream] by decoding SSE events from an HTTP
// response body.
type stream struct {
	body   io.ReadCloser
	frames *sse.Reader
	state  docchat.StreamState
	index  int
	err    error // terminal error, if any
}

// Interface compliance check.
var _ docchat.Stream = (*stream)(nil)

func newStream(ctx context.Context, body io.ReadCloser) *stream {
	return &stream{
		body:   body,
		frames: sse.NewReader(ctx, body, 0),
		state:  docchat.StreamStateNew,
	}
}

// Next returns the next text delta. Returns io.EOF once message_stop
// arrives.
func (s *stream) Next() (docchat.Fragment, error) {
	switch s.state {
	case docchat.StreamStateComplete:
		return docchat.Fragment{}, io.EOF
	case docchat.StreamStateError:
		return docchat.Fragment{}, s.err
	case docchat.StreamStateClosed:
		return docchat.Fragment{}, fmt.Errorf("anthropic: %w", docchat.ErrStreamClosed)
	}

	for {
		frame, err := s.nextFrame()
		if err != nil {
			s.terminate(err)
			return docchat.Fragment{}, s.err
		}

		text, err := s.processEvent(frame)
		if err != nil {
			s.terminate(err)
			return docchat.Fragment{}, s.err
		}

		// processEvent may set a terminal state (message_stop).
		if s.state == docchat.StreamStateComplete {
			return docchat.Fragment{}, io.EOF
		}

		if text != "" {
			s.state = docchat.StreamStateStreaming
			f := docchat.Fragment{Index: s.index, Text: text}
			s.index++
			return f, nil
		}
		// Non-text event (ping, message_start, etc.) - keep reading.
	}
}

// State returns the current stream state.
func (s *stream) State() docchat.StreamState {
	return s.state
}

// Close closes the underlying HTTP response body.
func (s *stream) Close() error {
	if s.state != docchat.StreamStateComplete && s.state != docchat.StreamStateError {
		s.state = docchat.StreamStateClosed
	}
	return s.body.Close()
}

func (s *stream) terminate(err error) {
	s.state = docchat.StreamStateError
	s.err = err
}

// nextFrame returns the next decoded frame. The body ending before
// message_stop is an abort.
func (s *stream) nextFrame() (sse.Frame, error) {
	f, err := s.frames.Next()
	if errors.Is(err, io.EOF) {
		return sse.Frame{}, fmt.Errorf("anthropic: unexpected end of stream: %w", docchat.ErrUpstreamAborted)
	}
	if err != nil {
		return sse.Frame{}, fmt.Errorf("anthropic: %w", err)
	}
	return f, nil
}

// processEvent returns the text carried by an event, if any.
func (s *stream) processEvent(f sse.Frame) (string, error) {
	switch f.Event {
	case "content_block_delta":
		var evt sseContentBlockDelta
		if err := json.Unmarshal([]byte(f.Data), &evt); err != nil {
			return "", fmt.Errorf("anthropic: failed to parse content_block_delta: %w", err)
		}
		if evt.Delta.Type != "text_delta" {
			// Thinking and tool input deltas are not part of the answer.
			return "", nil
		}
		return evt.Delta.Text, nil
	case "message_delta":
		var evt sseMessageDelta
		if err := json.Unmarshal([]byte(f.Data), &evt); err != nil {
			return "", fmt.Errorf("anthropic: failed to parse message_delta: %w", err)
		}
		if r := evt.Delta.StopReason; r != nil && *r == "refusal" {
			return "", fmt.Errorf("anthropic: stop reason %q: %w", *r, docchat.ErrUpstreamAborted)
		}
		return "", nil
	case "message_stop":
		s.state = docchat.StreamStateComplete
		return "", nil
	case "error":
		var evt apiErrorResponse
		if err := json.Unmarshal([]byte(f.Data), &evt); err != nil {
			return "", fmt.Errorf("anthropic: failed to parse error: %w", err)
		}
		return "", fmt.Errorf("anthropic: %s: %s: %w", evt.Error.Type, evt.Error.Message, docchat.ErrUpstreamAborted)
	default:
		// ping, message_start, content_block_start/stop and unknown events.
		return "", nil
	}
}
