package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/fwojciec/docchat"
)

// Interface compliance check.
var _ docchat.Provider = (*Client)(nil)

// Client implements [docchat.Provider] for the Anthropic Messages API.
type Client struct {
	apiKey       string
	baseURL      string
	model        string
	systemPrompt string
	maxTokens    int
	httpClient   *http.Client
}

// Option configures a [Client].
type Option func(*Client)

// WithBaseURL sets the API base URL. Useful for testing with httptest.
func WithBaseURL(url string) Option {
	return func(c *Client) { c.baseURL = url }
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithModel sets the model ID.
func WithModel(model string) Option {
	return func(c *Client) { c.model = model }
}

// WithSystemPrompt replaces the default instruction sent with every query.
func WithSystemPrompt(prompt string) Option {
	return func(c *Client) { c.systemPrompt = prompt }
}

// WithMaxTokens caps the length of an answer.
func WithMaxTokens(n int) Option {
	return func(c *Client) { c.maxTokens = n }
}

// New creates a new Anthropic [Client] with the given API key and options.
func New(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:       apiKey,
		baseURL:      defaultBaseURL,
		model:        defaultModel,
		systemPrompt: defaultSystemPrompt,
		maxTokens:    defaultMaxTokens,
		httpClient:   http.DefaultClient,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Stream sends a streaming request to the Messages API and returns a
// [docchat.Stream] of the answer's text deltas.
func (c *Client) Stream(ctx context.Context, req docchat.Request) (docchat.Stream, error) {
	body, err := json.Marshal(c.buildRequest(req))
	if err != nil {
		return nil, fmt.Errorf("anthropic: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+messagesPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("anthropic: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Api-Key", c.apiKey)
	httpReq.Header.Set("Anthropic-Version", apiVersion)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("anthropic: %w", ctx.Err())
		}
		return nil, fmt.Errorf("anthropic: %w: %w", docchat.ErrUpstreamUnavailable, err)
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, parseHTTPError(resp)
	}

	return newStream(ctx, resp.Body), nil
}

// buildRequest places the document ahead of the query. The document block
// carries a cache breakpoint since follow-up questions resend it verbatim.
func (c *Client) buildRequest(req docchat.Request) apiRequest {
	var content []apiContentBlock
	if req.Context != "" {
		content = append(content, apiContentBlock{
			Type:         "text",
			Text:         "Document:\n" + req.Context,
			CacheControl: &apiCacheControl{Type: "ephemeral"},
		})
	}
	content = append(content, apiContentBlock{Type: "text", Text: req.Query})

	apiReq := apiRequest{
		Model:     c.model,
		MaxTokens: c.maxTokens,
		Stream:    true,
		Messages:  []apiMessage{{Role: "user", Content: content}},
	}
	if c.systemPrompt != "" {
		apiReq.System = []apiContentBlock{{Type: "text", Text: c.systemPrompt}}
	}
	return apiReq
}

// parseHTTPError maps server errors, 429 and 529 (overloaded) to
// ErrUpstreamUnavailable and every other status to ErrUpstreamRejected.
func parseHTTPError(resp *http.Response) error {
	sentinel := docchat.ErrUpstreamRejected
	if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
		sentinel = docchat.ErrUpstreamUnavailable
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
	if err != nil {
		return fmt.Errorf("anthropic: HTTP %d (failed to read body: %v): %w", resp.StatusCode, err, sentinel)
	}
	var apiErr apiErrorResponse
	if err := json.Unmarshal(body, &apiErr); err != nil || apiErr.Error.Type == "" {
		return fmt.Errorf("anthropic: HTTP %d: %s: %w", resp.StatusCode, string(body), sentinel)
	}
	return fmt.Errorf("anthropic: %s: %s: %w", apiErr.Error.Type, apiErr.Error.Message, sentinel)
}
