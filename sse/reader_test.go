package sse_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/fwojciec/docchat"
	"github.com/fwojciec/docchat/sse"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readAll(r *sse.Reader) ([]sse.Frame, error) {
	var frames []sse.Frame
	for {
		f, err := r.Next()
		if err != nil {
			return frames, err
		}
		frames = append(frames, f)
	}
}

func TestReader(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		ctx     func() context.Context
		body    io.Reader
		want    []sse.Frame
		wantErr error
	}{
		{
			name: "clean end",
			body: iotest.OneByteReader(strings.NewReader("event: ping\ndata: {}\n\ndata: hi\n")),
			want: []sse.Frame{
				{Event: "ping", Data: "{}"},
				{Data: "hi"},
			},
			wantErr: io.EOF,
		},
		{
			name:    "ends inside a character",
			body:    strings.NewReader("data: ok\ndata: caf\xc3"),
			want:    []sse.Frame{{Data: "ok"}, {Data: "caf"}},
			wantErr: docchat.ErrTruncatedStream,
		},
		{
			name:    "read failure",
			body:    io.MultiReader(strings.NewReader("data: a\n"), iotest.ErrReader(errors.New("connection reset"))),
			want:    []sse.Frame{{Data: "a"}},
			wantErr: docchat.ErrUpstreamAborted,
		},
		{
			name:    "abort raised by the body",
			body:    iotest.ErrReader(fmt.Errorf("idle: %w", docchat.ErrUpstreamAborted)),
			wantErr: docchat.ErrUpstreamAborted,
		},
		{
			name: "cancelled context",
			ctx: func() context.Context {
				ctx, cancel := context.WithCancel(context.Background())
				cancel()
				return ctx
			},
			body:    iotest.ErrReader(context.Canceled),
			wantErr: context.Canceled,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ctx := context.Background()
			if tt.ctx != nil {
				ctx = tt.ctx()
			}

			frames, err := readAll(sse.NewReader(ctx, tt.body, 0))

			require.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, tt.want, frames)
		})
	}
}

func TestReader_CancelledContextIsNotAnAbort(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := readAll(sse.NewReader(ctx, iotest.ErrReader(errors.New("use of closed connection")), 0))

	require.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, docchat.ErrUpstreamAborted)
}
