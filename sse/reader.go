package sse

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/fwojciec/docchat"
)

const defaultBufferSize = 4 << 10

// Reader yields the frames of a body as its bytes arrive. Streams built on
// top of it interpret the frames; Reader owns reading and the classification
// of read failures.
type Reader struct {
	ctx     context.Context
	body    io.Reader
	dec     *Decoder
	buf     []byte
	queue   []Frame
	eof     bool
	tailErr error // raised by Finish, reported once the queue drains
}

// NewReader creates a Reader over body that reads up to size bytes at a
// time. ctx must be the context of the request that produced body.
func NewReader(ctx context.Context, body io.Reader, size int) *Reader {
	if size <= 0 {
		size = defaultBufferSize
	}
	return &Reader{
		ctx:  ctx,
		body: body,
		dec:  NewDecoder(),
		buf:  make([]byte, size),
	}
}

// Next returns the next frame. After the last frame it returns io.EOF, or
// ErrTruncatedStream if the body ended inside a character. A failed read
// is ErrUpstreamAborted unless ctx is done, in which case the context error
// is returned.
func (r *Reader) Next() (Frame, error) {
	for len(r.queue) == 0 {
		if r.eof {
			if r.tailErr != nil {
				return Frame{}, r.tailErr
			}
			return Frame{}, io.EOF
		}
		if err := r.fill(); err != nil {
			return Frame{}, err
		}
	}
	f := r.queue[0]
	r.queue = r.queue[1:]
	return f, nil
}

// fill performs one body read and queues whatever frames it completed.
func (r *Reader) fill() error {
	n, err := r.body.Read(r.buf)
	if n > 0 {
		frames, derr := r.dec.Decode(r.buf[:n])
		if derr != nil {
			return derr
		}
		r.queue = append(r.queue, frames...)
	}
	switch {
	case err == nil:
		return nil
	case errors.Is(err, io.EOF):
		frames, ferr := r.dec.Finish()
		r.queue = append(r.queue, frames...)
		r.tailErr = ferr
		r.eof = true
		return nil
	case r.ctx.Err() != nil:
		return fmt.Errorf("sse: %w", r.ctx.Err())
	case errors.Is(err, docchat.ErrUpstreamAborted):
		return fmt.Errorf("sse: %w", err)
	default:
		return fmt.Errorf("sse: read body: %w: %w", docchat.ErrUpstreamAborted, err)
	}
}
