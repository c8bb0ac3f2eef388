package gemini

import (
	"context"
	"fmt"
	"iter"

	"github.com/fwojciec/docchat"
	"google.golang.org/genai"
)

// Interface compliance check.
var _ docchat.Provider = (*Client)(nil)

// Client implements [docchat.Provider] for the Google Gemini API.
type Client struct {
	client       *genai.Client
	model        string
	systemPrompt string
	maxTokens    int
}

// Option configures a [Client].
type Option func(*Client)

// WithModel sets the model ID. Default is gemini-2.5-flash.
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

// New creates a new Gemini [Client] with the given API key and options.
func New(ctx context.Context, apiKey string, opts ...Option) (*Client, error) {
	gc, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: %w", err)
	}
	c := &Client{
		client:       gc,
		model:        defaultModel,
		systemPrompt: defaultSystemPrompt,
		maxTokens:    defaultMaxTokens,
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// Stream sends req to the Gemini API. It waits for the first response so
// that a request the API refuses is reported as
// [docchat.ErrUpstreamUnavailable] rather than as a failed stream.
func (c *Client) Stream(ctx context.Context, req docchat.Request) (docchat.Stream, error) {
	seq := c.client.Models.GenerateContentStream(ctx, c.model, buildContents(req), c.buildConfig())
	return openStream(ctx, seq)
}

func openStream(ctx context.Context, seq iter.Seq2[*genai.GenerateContentResponse, error]) (*stream, error) {
	s := newStream(ctx, seq)
	if err := s.prime(); err != nil {
		s.stop()
		return nil, err
	}
	return s, nil
}

func (c *Client) buildConfig() *genai.GenerateContentConfig {
	config := &genai.GenerateContentConfig{
		MaxOutputTokens: int32(c.maxTokens),
	}
	if c.systemPrompt != "" {
		config.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: c.systemPrompt}},
		}
	}
	return config
}

// buildContents places the document text ahead of the query in a single
// user turn.
func buildContents(req docchat.Request) []*genai.Content {
	var parts []*genai.Part
	if req.Context != "" {
		parts = append(parts, &genai.Part{Text: "Document:\n" + req.Context})
	}
	parts = append(parts, &genai.Part{Text: req.Query})
	return []*genai.Content{{Role: genai.RoleUser, Parts: parts}}
}
