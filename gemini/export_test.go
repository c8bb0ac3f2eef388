package gemini

import (
	"context"
	"iter"

	"github.com/fwojciec/docchat"
	"google.golang.org/genai"
)

// OpenStream exposes stream construction over a canned iterator for tests.
func OpenStream(ctx context.Context, seq iter.Seq2[*genai.GenerateContentResponse, error]) (docchat.Stream, error) {
	s, err := openStream(ctx, seq)
	if err != nil {
		return nil, err
	}
	return s, nil
}

var BuildContents = buildContents

func (c *Client) BuildConfig() *genai.GenerateContentConfig {
	return c.buildConfig()
}
