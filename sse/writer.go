package sse

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
)

// ErrNoFlusher is returned by NewWriter when the response cannot be flushed
// incrementally.
var ErrNoFlusher = errors.New("sse: response writer does not support flushing")

// SetHeaders sets the response headers for an event stream. It must be
// called before the first write.
func SetHeaders(h http.Header) {
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
}

// Writer writes frames to an HTTP response and flushes after every frame.
// It is safe for concurrent use.
type Writer struct {
	mu      sync.Mutex
	w       io.Writer
	flusher http.Flusher
}

// NewWriter creates a Writer over w.
func NewWriter(w http.ResponseWriter) (*Writer, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, ErrNoFlusher
	}
	return &Writer{w: w, flusher: flusher}, nil
}

// WriteFragment writes text as exactly one data unit holding a JSON string,
// so line breaks and surrounding whitespace survive the hop. Read it back
// with a [Stream] created with [WithJSONData].
func (w *Writer) WriteFragment(text string) error {
	data, err := json.Marshal(text)
	if err != nil {
		return fmt.Errorf("sse: encode fragment: %w", err)
	}
	return w.write("data: " + string(data) + "\n\n")
}

// WriteError writes a terminal error event. The message is collapsed to a
// single line.
func (w *Writer) WriteError(msg string) error {
	msg = strings.Join(strings.Fields(msg), " ")
	if msg == "" {
		msg = "stream failed"
	}
	return w.write(fmt.Sprintf("event: %s\ndata: %s\n\n", EventError, msg))
}

// WriteDone writes the terminal event of a clean stream.
func (w *Writer) WriteDone() error {
	return w.write(fmt.Sprintf("event: %s\ndata: %s\n\n", EventDone, doneData))
}

// WriteKeepAlive writes a comment line that receivers ignore.
func (w *Writer) WriteKeepAlive() error {
	return w.write(": ping\n\n")
}

func (w *Writer) write(s string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, err := io.WriteString(w.w, s); err != nil {
		return fmt.Errorf("sse: write: %w", err)
	}
	w.flusher.Flush()
	return nil
}
