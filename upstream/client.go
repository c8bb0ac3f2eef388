package upstream

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/fwojciec/docchat"
	"github.com/fwojciec/docchat/sse"
)

// Interface compliance check.
var _ docchat.Provider = (*Client)(nil)

// Client sends queries to the upstream service.
type Client struct {
	baseURL     string
	path        string
	httpClient  *http.Client
	idleTimeout time.Duration
	retries     int
	backoff     time.Duration
}

// Option configures a [Client].
type Option func(*Client)

// WithBaseURL sets the service base URL. Useful for testing with httptest.
func WithBaseURL(url string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(url, "/") }
}

// WithPath sets the request path. Default is /generate.
func WithPath(path string) Option {
	return func(c *Client) { c.path = path }
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithIdleTimeout sets how long the client waits for the next bytes before
// giving up on the request. Zero disables the timeout.
func WithIdleTimeout(d time.Duration) Option {
	return func(c *Client) { c.idleTimeout = d }
}

// WithRetries sets how many extra attempts Send makes when the service is
// unavailable. Requests are never retried once a response body was returned.
func WithRetries(n int) Option {
	return func(c *Client) { c.retries = max(n, 0) }
}

// WithBackoff sets the base delay between attempts; attempt n waits n times
// the base.
func WithBackoff(d time.Duration) Option {
	return func(c *Client) { c.backoff = d }
}

// New creates a [Client] for the service at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		path:        defaultPath,
		httpClient:  http.DefaultClient,
		idleTimeout: defaultIdleTimeout,
		backoff:     defaultBackoff,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Stream sends req and returns a [docchat.Stream] over the response body.
func (c *Client) Stream(ctx context.Context, req docchat.Request) (docchat.Stream, error) {
	body, err := c.Send(ctx, req)
	if err != nil {
		return nil, err
	}
	return sse.NewStream(ctx, body), nil
}

// Send posts req and returns the response body unbuffered. Connection
// failures, server errors and 429 are reported as
// [docchat.ErrUpstreamUnavailable] and retried; other statuses are
// [docchat.ErrUpstreamRejected]. Reads
// from the returned body fail with [docchat.ErrUpstreamAborted] when the
// idle timeout elapses. Closing the body cancels the request.
func (c *Client) Send(ctx context.Context, req docchat.Request) (io.ReadCloser, error) {
	var lastErr error
	for attempt := 0; attempt <= c.retries; attempt++ {
		if attempt > 0 {
			if err := c.wait(ctx, attempt); err != nil {
				return nil, fmt.Errorf("upstream: %w", err)
			}
		}
		body, err := c.send(ctx, req)
		if err == nil {
			return body, nil
		}
		if !docchat.Retryable(err) || ctx.Err() != nil {
			return nil, err
		}
		lastErr = err
	}
	return nil, lastErr
}

func (c *Client) send(ctx context.Context, req docchat.Request) (io.ReadCloser, error) {
	form := url.Values{"query": {req.Query}}
	if req.Context != "" {
		form.Set("context", req.Context)
	}

	reqCtx, cancel := context.WithCancel(ctx)
	idle := newIdleReader(cancel, c.idleTimeout)

	httpReq, err := http.NewRequestWithContext(reqCtx, http.MethodPost, c.baseURL+c.path, strings.NewReader(form.Encode()))
	if err != nil {
		idle.stop()
		return nil, fmt.Errorf("upstream: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	httpReq.Header.Set("Accept", "text/event-stream")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		idle.stop()
		if ctx.Err() != nil {
			return nil, fmt.Errorf("upstream: %w", ctx.Err())
		}
		if idle.expired() {
			return nil, fmt.Errorf("upstream: no response within %s: %w", c.idleTimeout, docchat.ErrUpstreamUnavailable)
		}
		return nil, fmt.Errorf("upstream: %w: %w", docchat.ErrUpstreamUnavailable, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer idle.stop()
		defer resp.Body.Close()
		return nil, parseHTTPError(resp)
	}

	idle.body = resp.Body
	return idle, nil
}

func (c *Client) wait(ctx context.Context, attempt int) error {
	t := time.NewTimer(c.backoff * time.Duration(attempt))
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// parseHTTPError classifies a non-2xx response. Server errors and 429 are
// worth retrying; any other status means the request itself was refused.
func parseHTTPError(resp *http.Response) error {
	sentinel := docchat.ErrUpstreamRejected
	if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
		sentinel = docchat.ErrUpstreamUnavailable
	}
	b, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		return fmt.Errorf("upstream: HTTP %d (failed to read body: %v): %w", resp.StatusCode, err, sentinel)
	}
	msg := strings.Join(strings.Fields(string(b)), " ")
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	return fmt.Errorf("upstream: HTTP %d: %s: %w", resp.StatusCode, msg, sentinel)
}
