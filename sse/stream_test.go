package sse_test

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/fwojciec/docchat"
	"github.com/fwojciec/docchat/sse"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type closeRecorder struct {
	io.Reader
	closed bool
}

func (c *closeRecorder) Close() error {
	c.closed = true
	return nil
}

func body(r io.Reader) *closeRecorder {
	return &closeRecorder{Reader: r}
}

func collect(t *testing.T, s docchat.Stream) ([]string, error) {
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

func TestStream_Fragments(t *testing.T) {
	t.Parallel()

	b := body(iotest.OneByteReader(strings.NewReader("data: Result:\n\n: ping\ndata: 42\n\n")))
	s := sse.NewStream(context.Background(), b)
	assert.Equal(t, docchat.StreamStateNew, s.State())

	texts, err := collect(t, s)
	require.NoError(t, err)
	assert.Equal(t, []string{"Result:", "42"}, texts)
	assert.Equal(t, docchat.StreamStateComplete, s.State())

	_, err = s.Next()
	assert.Equal(t, io.EOF, err)

	require.NoError(t, s.Close())
	assert.True(t, b.closed)
	assert.Equal(t, docchat.StreamStateComplete, s.State())
}

func TestStream_ErrorEvent(t *testing.T) {
	t.Parallel()

	s := sse.NewStream(context.Background(), body(strings.NewReader("data: Hello\ndata: world\nevent: error\ndata: upstream went away\n\n")))

	texts, err := collect(t, s)
	require.ErrorIs(t, err, docchat.ErrUpstreamAborted)
	assert.Contains(t, err.Error(), "upstream went away")
	assert.Equal(t, []string{"Hello", "world"}, texts)
	assert.Equal(t, docchat.StreamStateError, s.State())

	_, again := s.Next()
	assert.Equal(t, err, again)
}

func TestStream_DoneEvent(t *testing.T) {
	t.Parallel()

	t.Run("done ends the stream", func(t *testing.T) {
		t.Parallel()
		s := sse.NewStream(context.Background(),
			body(strings.NewReader("data: a\n\nevent: done\ndata: done\n\ndata: ignored\n")),
			sse.WithDoneEvent(true))
		texts, err := collect(t, s)
		require.NoError(t, err)
		assert.Equal(t, []string{"a"}, texts)
	})

	t.Run("missing done is an abort", func(t *testing.T) {
		t.Parallel()
		s := sse.NewStream(context.Background(), body(strings.NewReader("data: a\n\n")), sse.WithDoneEvent(true))
		texts, err := collect(t, s)
		require.ErrorIs(t, err, docchat.ErrUpstreamAborted)
		assert.Equal(t, []string{"a"}, texts)
	})

	t.Run("missing done is fine by default", func(t *testing.T) {
		t.Parallel()
		s := sse.NewStream(context.Background(), body(strings.NewReader("data: a\n\n")))
		texts, err := collect(t, s)
		require.NoError(t, err)
		assert.Equal(t, []string{"a"}, texts)
	})
}

func TestStream_JSONData(t *testing.T) {
	t.Parallel()

	t.Run("decodes each unit as one fragment", func(t *testing.T) {
		t.Parallel()
		raw := "data: \"Totals:\"\n\n" +
			"data: \"\\n\\n\"\n\n" +
			"data: \"| a | b |\\n|---|---|\"\n\n" +
			"event: done\ndata: done\n\n"
		s := sse.NewStream(context.Background(), body(iotest.OneByteReader(strings.NewReader(raw))),
			sse.WithDoneEvent(true), sse.WithJSONData(true))

		texts, err := collect(t, s)
		require.NoError(t, err)
		assert.Equal(t, []string{"Totals:", "\n\n", "| a | b |\n|---|---|"}, texts)
	})

	t.Run("unit that is not a JSON string fails", func(t *testing.T) {
		t.Parallel()
		s := sse.NewStream(context.Background(), body(strings.NewReader("data: \"ok\"\n\ndata: plain\n\n")),
			sse.WithJSONData(true))

		texts, err := collect(t, s)
		require.ErrorIs(t, err, docchat.ErrValidation)
		assert.Equal(t, []string{"ok"}, texts)
		assert.Equal(t, docchat.StreamStateError, s.State())
	})
}

func TestStream_ReadErrorIsAbort(t *testing.T) {
	t.Parallel()

	r := io.MultiReader(strings.NewReader("data: Hello\ndata: world\n"), iotest.ErrReader(errors.New("connection reset")))
	s := sse.NewStream(context.Background(), body(r))

	texts, err := collect(t, s)
	require.ErrorIs(t, err, docchat.ErrUpstreamAborted)
	assert.Contains(t, err.Error(), "connection reset")
	assert.Equal(t, []string{"Hello", "world"}, texts)
}

func TestStream_CanceledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := sse.NewStream(ctx, body(iotest.ErrReader(context.Canceled)))

	_, err := collect(t, s)
	require.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, docchat.ErrUpstreamAborted)
}

func TestStream_Truncated(t *testing.T) {
	t.Parallel()

	s := sse.NewStream(context.Background(), body(strings.NewReader("data: ok\ndata: caf\xc3")))
	texts, err := collect(t, s)
	require.ErrorIs(t, err, docchat.ErrTruncatedStream)
	assert.Equal(t, []string{"ok", "caf"}, texts)
}

func TestStream_CloseBeforeEnd(t *testing.T) {
	t.Parallel()

	b := body(strings.NewReader("data: a\ndata: b\n"))
	s := sse.NewStream(context.Background(), b, sse.WithBufferSize(1))

	f, err := s.Next()
	require.NoError(t, err)
	assert.Equal(t, "a", f.Text)

	require.NoError(t, s.Close())
	assert.True(t, b.closed)
	assert.Equal(t, docchat.StreamStateClosed, s.State())

	_, err = s.Next()
	require.ErrorIs(t, err, docchat.ErrStreamClosed)
}
