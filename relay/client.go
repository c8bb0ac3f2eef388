// Package relay implements a [docchat.Provider] that reads answers from a
// docchat relay server.
package relay

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/fwojciec/docchat"
	dcjson "github.com/fwojciec/docchat/json"
	"github.com/fwojciec/docchat/sse"
)

const maxErrorBody = 4 << 10

// Interface compliance check.
var _ docchat.Provider = (*Client)(nil)

// Client talks to a relay server.
type Client struct {
	baseURL       string
	httpClient    *http.Client
	authorization string
}

// Option configures a [Client].
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithAuthorization sets the Authorization header sent with every request.
func WithAuthorization(value string) Option {
	return func(c *Client) { c.authorization = value }
}

// New creates a [Client] for the relay at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: http.DefaultClient,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Stream asks the relay to answer req. Rejections arrive as errors that
// match the relay's sentinel with errors.Is; failures after the first
// fragment surface from Next.
func (c *Client) Stream(ctx context.Context, req docchat.Request) (docchat.Stream, error) {
	params := url.Values{"query": {req.Query}}
	if req.DocumentID != "" {
		params.Set("document", req.DocumentID)
	}
	if req.ConversationID != "" {
		params.Set("conversation", req.ConversationID)
	}

	resp, err := c.get(ctx, "/api/chat?"+params.Encode())
	if err != nil {
		return nil, err
	}
	return sse.NewStream(ctx, resp.Body, sse.WithDoneEvent(true), sse.WithJSONData(true)), nil
}

// Documents lists the documents the relay can chat about.
func (c *Client) Documents(ctx context.Context) ([]docchat.Document, error) {
	resp, err := c.get(ctx, "/api/documents")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("relay: read documents: %w", err)
	}
	docs, err := dcjson.UnmarshalDocuments(body)
	if err != nil {
		return nil, fmt.Errorf("relay: %w", err)
	}
	return docs, nil
}

// get performs a GET and returns the response only for a 2xx status.
func (c *Client) get(ctx context.Context, path string) (*http.Response, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("relay: create request: %w", err)
	}
	httpReq.Header.Set("Accept", "text/event-stream, application/json")
	if c.authorization != "" {
		httpReq.Header.Set("Authorization", c.authorization)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("relay: %w", ctx.Err())
		}
		return nil, fmt.Errorf("relay: %w: %w", docchat.ErrUpstreamUnavailable, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, fmt.Errorf("relay: HTTP %d: %w", resp.StatusCode, dcjson.UnmarshalError(body).Err())
	}
	return resp, nil
}
