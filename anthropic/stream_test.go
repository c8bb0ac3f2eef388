package anthropic_test

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fwojciec/docchat"
	"github.com/fwojciec/docchat/anthropic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sseResponse is a helper to build SSE responses for tests.
type sseResponse struct {
	events []sseEvent
}

type sseEvent struct {
	event string
	data  string
}

func (s sseResponse) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		flusher, _ := w.(http.Flusher)
		for _, evt := range s.events {
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", evt.event, evt.data)
			if flusher != nil {
				flusher.Flush()
			}
		}
	}
}

const (
	messageStart = `{"type":"message_start","message":{"id":"msg_1","type":"message","role":"assistant","content":[],"model":"claude-sonnet-4-20250514","stop_reason":null,"stop_sequence":null,"usage":{"input_tokens":10,"output_tokens":1}}}`
	blockStart   = `{"type":"content_block_start","index":0,"content_block":{"type":"text","text":""}}`
	blockStop    = `{"type":"content_block_stop","index":0}`
	messageDelta = `{"type":"message_delta","delta":{"stop_reason":"end_turn","stop_sequence":null},"usage":{"output_tokens":5}}`
	messageStop  = `{"type":"message_stop"}`
)

func textDelta(text string) sseEvent {
	return sseEvent{"content_block_delta", fmt.Sprintf(`{"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":%q}}`, text)}
}

// textStreamResponse returns a complete streaming response for texts.
func textStreamResponse(texts ...string) sseResponse {
	events := []sseEvent{
		{"message_start", messageStart},
		{"content_block_start", blockStart},
		{"ping", `{"type":"ping"}`},
	}
	for _, t := range texts {
		events = append(events, textDelta(t))
	}
	events = append(events,
		sseEvent{"content_block_stop", blockStop},
		sseEvent{"message_delta", messageDelta},
		sseEvent{"message_stop", messageStop},
	)
	return sseResponse{events: events}
}

func streamFromSSE(t *testing.T, resp sseResponse) docchat.Stream {
	t.Helper()
	srv := httptest.NewServer(resp.handler())
	t.Cleanup(srv.Close)
	client := anthropic.New("test-key", anthropic.WithBaseURL(srv.URL))
	stream, err := client.Stream(context.Background(), docchat.Request{Query: "Hi"})
	require.NoError(t, err)
	t.Cleanup(func() { stream.Close() })
	return stream
}

func collectTexts(t *testing.T, s docchat.Stream) ([]string, error) {
	t.Helper()
	var texts []string
	for {
		f, err := s.Next()
		if err == io.EOF {
			return texts, nil
		}
		if err != nil {
			return texts, err
		}
		assert.Equal(t, len(texts), f.Index)
		texts = append(texts, f.Text)
	}
}

func TestStream_TextResponse(t *testing.T) {
	t.Parallel()

	s := streamFromSSE(t, textStreamResponse("Hello", " world"))
	texts, err := collectTexts(t, s)
	require.NoError(t, err)
	assert.Equal(t, []string{"Hello", " world"}, texts)
	assert.Equal(t, docchat.StreamStateComplete, s.State())
}

func TestStream_SkipsNonTextDeltas(t *testing.T) {
	t.Parallel()

	resp := textStreamResponse("answer")
	thinking := sseEvent{"content_block_delta", `{"type":"content_block_delta","index":0,"delta":{"type":"thinking_delta","thinking":"hmm"}}`}
	resp.events = append(resp.events[:3], append([]sseEvent{thinking}, resp.events[3:]...)...)

	texts, err := collectTexts(t, streamFromSSE(t, resp))
	require.NoError(t, err)
	assert.Equal(t, []string{"answer"}, texts)
}

func TestStream_State(t *testing.T) {
	t.Parallel()

	s := streamFromSSE(t, textStreamResponse("a"))
	assert.Equal(t, docchat.StreamStateNew, s.State())

	_, err := s.Next()
	require.NoError(t, err)
	assert.Equal(t, docchat.StreamStateStreaming, s.State())

	_, err = s.Next()
	assert.Equal(t, io.EOF, err)
	assert.Equal(t, docchat.StreamStateComplete, s.State())

	require.NoError(t, s.Close())
	assert.Equal(t, docchat.StreamStateComplete, s.State())
}

func TestStream_NextAfterClose(t *testing.T) {
	t.Parallel()

	s := streamFromSSE(t, textStreamResponse("a"))
	require.NoError(t, s.Close())
	assert.Equal(t, docchat.StreamStateClosed, s.State())

	_, err := s.Next()
	require.ErrorIs(t, err, docchat.ErrStreamClosed)
}

func TestStream_SSEError(t *testing.T) {
	t.Parallel()

	resp := sseResponse{events: []sseEvent{
		{"message_start", messageStart},
		textDelta("partial"),
		{"error", `{"type":"error","error":{"type":"overloaded_error","message":"Overloaded"}}`},
	}}

	s := streamFromSSE(t, resp)
	texts, err := collectTexts(t, s)
	require.ErrorIs(t, err, docchat.ErrUpstreamAborted)
	assert.Contains(t, err.Error(), "overloaded_error")
	assert.Equal(t, []string{"partial"}, texts)
	assert.Equal(t, docchat.StreamStateError, s.State())
}

func TestStream_EndWithoutMessageStop(t *testing.T) {
	t.Parallel()

	resp := sseResponse{events: []sseEvent{{"message_start", messageStart}, textDelta("cut")}}
	texts, err := collectTexts(t, streamFromSSE(t, resp))
	require.ErrorIs(t, err, docchat.ErrUpstreamAborted)
	assert.Equal(t, []string{"cut"}, texts)
}

func TestStream_Refusal(t *testing.T) {
	t.Parallel()

	resp := sseResponse{events: []sseEvent{
		{"message_start", messageStart},
		{"message_delta", `{"type":"message_delta","delta":{"stop_reason":"refusal"},"usage":{"output_tokens":0}}`},
		{"message_stop", messageStop},
	}}
	_, err := collectTexts(t, streamFromSSE(t, resp))
	require.ErrorIs(t, err, docchat.ErrUpstreamAborted)
	assert.Contains(t, err.Error(), "refusal")
}

func TestStream_ContextCancellation(t *testing.T) {
	t.Parallel()

	// Server that blocks after first delta.
	started := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		flusher, _ := w.(http.Flusher)
		fmt.Fprintf(w, "event: message_start\ndata: %s\n\n", messageStart)
		d := textDelta("Hi")
		fmt.Fprintf(w, "event: %s\ndata: %s\n\n", d.event, d.data)
		if flusher != nil {
			flusher.Flush()
		}
		close(started)
		<-r.Context().Done()
	}))
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client := anthropic.New("test-key", anthropic.WithBaseURL(srv.URL))
	s, err := client.Stream(ctx, docchat.Request{Query: "Hi"})
	require.NoError(t, err)
	defer s.Close()

	f, err := s.Next()
	require.NoError(t, err)
	assert.Equal(t, docchat.Fragment{Index: 0, Text: "Hi"}, f)

	<-started
	cancel()

	_, err = s.Next()
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, docchat.StreamStateError, s.State())
}

func TestStream_ReadErrorMidStream(t *testing.T) {
	t.Parallel()

	// Server that sends partial SSE then closes the connection abruptly.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		flusher, _ := w.(http.Flusher)
		d := textDelta("partial")
		fmt.Fprintf(w, "event: %s\ndata: %s\n\n", d.event, d.data)
		if flusher != nil {
			flusher.Flush()
		}
		hj, ok := w.(http.Hijacker)
		if ok {
			conn, _, _ := hj.Hijack()
			conn.Close()
		}
	}))
	defer srv.Close()

	client := anthropic.New("test-key", anthropic.WithBaseURL(srv.URL))
	s, err := client.Stream(context.Background(), docchat.Request{Query: "Hi"})
	require.NoError(t, err)
	defer s.Close()

	f, err := s.Next()
	require.NoError(t, err)
	assert.Equal(t, "partial", f.Text)

	_, err = s.Next()
	require.ErrorIs(t, err, docchat.ErrUpstreamAborted)
	assert.Equal(t, docchat.StreamStateError, s.State())
}
