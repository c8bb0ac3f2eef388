package docchat

import (
	"context"
	"errors"
	"io"
)

// Chat drives one streaming session at a time: it submits the query to an
// Assembler, pulls fragments from a Provider, and seals or fails the
// trailing message when the stream ends.
type Chat struct {
	provider Provider
}

// NewChat creates a Chat backed by provider.
func NewChat(provider Provider) *Chat {
	return &Chat{provider: provider}
}

// RunOption configures a single Run invocation.
type RunOption func(*runConfig)

type runConfig struct {
	onEvent func(Event)
}

// WithEventHandler sets a callback that receives each session event. If nil
// or not set, events are silently discarded.
func WithEventHandler(h func(Event)) RunOption {
	return func(c *runConfig) {
		c.onEvent = h
	}
}

// Run executes one session for req. Validation failures (such as an empty
// query) and ErrSessionActive return before any message is appended. Every
// other failure, including one raised before the first fragment, ends with
// the trailing message in the Failed state and is returned.
func (c *Chat) Run(ctx context.Context, asm *Assembler, req Request, opts ...RunOption) error {
	var cfg runConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	if err := req.Validate(); err != nil {
		return err
	}
	if err := asm.Submit(req.Query); err != nil {
		return err
	}

	if streamErr := c.drain(ctx, asm, req, &cfg); streamErr != nil {
		if err := asm.Fail(streamErr); err != nil {
			return errors.Join(streamErr, err)
		}
		last, _ := asm.Conversation().Last()
		cfg.emit(EventFailed{Message: last, Err: streamErr})
		return streamErr
	}

	if err := asm.Seal(); err != nil {
		return err
	}
	last, _ := asm.Conversation().Last()
	cfg.emit(EventSealed{Message: last})
	return nil
}

func (c *Chat) drain(ctx context.Context, asm *Assembler, req Request, cfg *runConfig) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	stream, err := c.provider.Stream(ctx, req)
	if err != nil {
		return err
	}
	defer stream.Close()

	for {
		f, err := stream.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if err := asm.Apply(f.Text); err != nil {
			return err
		}
		cfg.emit(EventFragment{Fragment: f, Text: asm.Text()})
	}
}

func (c *runConfig) emit(e Event) {
	if c.onEvent != nil {
		c.onEvent(e)
	}
}
