package gemini

import (
	"context"
	"fmt"
	"io"
	"iter"

	"github.com/fwojciec/docchat"
	"google.golang.org/genai"
)

// stream implements [docchat.Stream] by wrapping the genai SDK's streaming
// iterator.
type stream struct {
	ctx     context.Context
	pull    func() (*genai.GenerateContentResponse, error, bool)
	stop    func()
	queue   []string
	state   docchat.StreamState
	err     error // terminal error, if any
	stopErr error // reported once the queued text is delivered
	index   int
	done    bool // no more responses will be pulled
}

// Interface compliance check.
var _ docchat.Stream = (*stream)(nil)

func newStream(ctx context.Context, seq iter.Seq2[*genai.GenerateContentResponse, error]) *stream {
	next, stop := iter.Pull2(seq)
	return &stream{
		ctx:   ctx,
		pull:  next,
		stop:  stop,
		state: docchat.StreamStateNew,
	}
}

// prime pulls the first response. An error at this point means nothing was
// generated.
func (s *stream) prime() error {
	resp, err, ok := s.pull()
	if !ok {
		s.done = true
		return nil
	}
	if err != nil {
		if s.ctx.Err() != nil {
			return fmt.Errorf("gemini: %w", s.ctx.Err())
		}
		return fmt.Errorf("gemini: %w: %w", docchat.ErrUpstreamUnavailable, err)
	}
	s.enqueue(resp)
	return nil
}

func (s *stream) Next() (docchat.Fragment, error) {
	switch s.state {
	case docchat.StreamStateComplete:
		return docchat.Fragment{}, io.EOF
	case docchat.StreamStateError:
		return docchat.Fragment{}, s.err
	case docchat.StreamStateClosed:
		return docchat.Fragment{}, fmt.Errorf("gemini: %w", docchat.ErrStreamClosed)
	}

	for len(s.queue) == 0 {
		if s.done {
			if s.stopErr != nil {
				s.terminate(s.stopErr)
				return docchat.Fragment{}, s.err
			}
			s.state = docchat.StreamStateComplete
			return docchat.Fragment{}, io.EOF
		}
		resp, err, ok := s.pull()
		if !ok {
			s.done = true
			continue
		}
		if err != nil {
			s.terminate(s.classify(err))
			return docchat.Fragment{}, s.err
		}
		s.enqueue(resp)
	}

	s.state = docchat.StreamStateStreaming
	f := docchat.Fragment{Index: s.index, Text: s.queue[0]}
	s.queue = s.queue[1:]
	s.index++
	return f, nil
}

func (s *stream) State() docchat.StreamState {
	return s.state
}

func (s *stream) Close() error {
	if s.state != docchat.StreamStateComplete && s.state != docchat.StreamStateError {
		s.state = docchat.StreamStateClosed
	}
	s.stop()
	return nil
}

// enqueue queues the visible text parts of resp; thought parts are skipped.
// A blocked prompt or a candidate stopped for an abnormal reason ends the
// stream with an error once the text already queued has been delivered.
func (s *stream) enqueue(resp *genai.GenerateContentResponse) {
	if resp == nil {
		return
	}
	if fb := resp.PromptFeedback; fb != nil && fb.BlockReason != "" {
		s.halt(fmt.Errorf("gemini: prompt blocked (%s): %w", fb.BlockReason, docchat.ErrUpstreamAborted))
		return
	}
	for _, c := range resp.Candidates {
		if c == nil {
			continue
		}
		if c.Content != nil {
			for _, p := range c.Content.Parts {
				if p == nil || p.Thought || p.Text == "" {
					continue
				}
				s.queue = append(s.queue, p.Text)
			}
		}
		if !normalFinish(c.FinishReason) {
			s.halt(fmt.Errorf("gemini: generation stopped (%s): %w", c.FinishReason, docchat.ErrUpstreamAborted))
		}
	}
}

func (s *stream) halt(err error) {
	s.done = true
	if s.stopErr == nil {
		s.stopErr = err
	}
}

func (s *stream) classify(err error) error {
	if s.ctx.Err() != nil {
		return fmt.Errorf("gemini: %w", s.ctx.Err())
	}
	return fmt.Errorf("gemini: %w: %w", docchat.ErrUpstreamAborted, err)
}

func (s *stream) terminate(err error) {
	s.state = docchat.StreamStateError
	s.err = err
}

func normalFinish(r genai.FinishReason) bool {
	switch r {
	case "", genai.FinishReasonUnspecified, genai.FinishReasonStop, genai.FinishReasonMaxTokens:
		return true
	}
	return false
}
