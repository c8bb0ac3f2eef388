package upstream

import (
	"context"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/fwojciec/docchat"
)

// idleReader cancels the request when no bytes arrive for timeout and
// reports the resulting read failure as an abort.
type idleReader struct {
	body    io.ReadCloser
	cancel  context.CancelFunc
	timeout time.Duration
	timer   *time.Timer
	fired   atomic.Bool
}

func newIdleReader(cancel context.CancelFunc, timeout time.Duration) *idleReader {
	r := &idleReader{cancel: cancel, timeout: timeout}
	if timeout > 0 {
		r.timer = time.AfterFunc(timeout, func() {
			r.fired.Store(true)
			cancel()
		})
	}
	return r
}

func (r *idleReader) Read(p []byte) (int, error) {
	n, err := r.body.Read(p)
	if r.fired.Load() {
		return n, fmt.Errorf("upstream: no data for %s: %w", r.timeout, docchat.ErrUpstreamAborted)
	}
	if n > 0 && r.timer != nil {
		r.timer.Reset(r.timeout)
	}
	return n, err
}

func (r *idleReader) Close() error {
	r.stop()
	return r.body.Close()
}

func (r *idleReader) expired() bool {
	return r.fired.Load()
}

func (r *idleReader) stop() {
	if r.timer != nil {
		r.timer.Stop()
	}
	r.cancel()
}
