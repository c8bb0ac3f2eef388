package gin

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/fwojciec/docchat"
	"github.com/fwojciec/docchat/sse"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// result is one Next call handed from the pump goroutine to the handler.
type result struct {
	fragment docchat.Fragment
	err      error
}

// param reads a form field for POST and falls back to the query string.
func param(c *gin.Context, key string) string {
	if v, ok := c.GetPostForm(key); ok {
		return v
	}
	return c.Query(key)
}

func (s *Server) handleChat(c *gin.Context) {
	req := docchat.Request{
		Query:          param(c, "query"),
		DocumentID:     param(c, "document"),
		ConversationID: param(c, "conversation"),
	}
	if err := req.Validate(); err != nil {
		s.reject(c, err)
		return
	}
	if req.DocumentID != "" {
		text, err := s.documentText(c.Request.Context(), req.DocumentID)
		if err != nil {
			s.reject(c, err)
			return
		}
		req.Context = text
	}
	if req.ConversationID == "" {
		req.ConversationID = uuid.NewString()
	}

	release, ok := s.sessions.acquire(req.ConversationID)
	if !ok {
		s.reject(c, fmt.Errorf("conversation %s: %w", req.ConversationID, docchat.ErrSessionActive))
		return
	}
	defer release()

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	start := time.Now()
	s.metrics.SessionStarted()
	logger := s.logger.With("conversation", req.ConversationID)
	logger.Info("chat session started", "document", req.DocumentID)

	stream, err := s.provider.Stream(ctx, req)
	if err != nil {
		if ctx.Err() != nil {
			err = fmt.Errorf("gin: %w", ctx.Err())
		} else {
			s.reject(c, err)
		}
		s.endSession(logger, docchat.Stats{}, err, start)
		return
	}

	stats, err := s.relay(ctx, cancel, c, stream, start)
	s.endSession(logger, stats, err, start)
}

// relay copies stream to the client until it ends, the client goes away, or
// a write fails. It returns what was delivered and the terminal error, nil
// on a clean end.
func (s *Server) relay(ctx context.Context, cancel context.CancelFunc, c *gin.Context, stream docchat.Stream, start time.Time) (docchat.Stats, error) {
	var stats docchat.Stats

	results := make(chan result)
	pumped := make(chan struct{})
	go func() {
		defer close(pumped)
		defer stream.Close()
		for {
			f, err := stream.Next()
			select {
			case results <- result{fragment: f, err: err}:
			case <-ctx.Done():
				return
			}
			if err != nil {
				return
			}
		}
	}()
	defer func() {
		cancel()
		<-pumped
	}()

	sse.SetHeaders(c.Writer.Header())
	c.Status(http.StatusOK)
	w, err := sse.NewWriter(c.Writer)
	if err != nil {
		return stats, fmt.Errorf("gin: %w", err)
	}
	c.Writer.WriteHeaderNow()
	c.Writer.Flush()

	var keepAlive <-chan time.Time
	if s.keepAlive > 0 {
		ticker := time.NewTicker(s.keepAlive)
		defer ticker.Stop()
		keepAlive = ticker.C
	}

	for {
		select {
		case r := <-results:
			if errors.Is(r.err, io.EOF) {
				if err := w.WriteDone(); err != nil {
					return stats, clientGone(err)
				}
				return stats, nil
			}
			if r.err != nil {
				if ctx.Err() != nil {
					return stats, fmt.Errorf("gin: %w", ctx.Err())
				}
				_ = w.WriteError(streamErrorMessage(r.err))
				return stats, r.err
			}
			if err := w.WriteFragment(r.fragment.Text); err != nil {
				return stats, clientGone(err)
			}
			stats.Add(r.fragment)
			s.metrics.Fragment(r.fragment, stats.Fragments == 1, time.Since(start))
		case <-keepAlive:
			if err := w.WriteKeepAlive(); err != nil {
				return stats, clientGone(err)
			}
			s.metrics.KeepAlive()
		case <-ctx.Done():
			return stats, fmt.Errorf("gin: %w", ctx.Err())
		}
	}
}

// clientGone reports a failed write as a client disconnect.
func clientGone(err error) error {
	return fmt.Errorf("gin: client disconnected: %w: %w", context.Canceled, err)
}

func (s *Server) endSession(logger *slog.Logger, stats docchat.Stats, err error, start time.Time) {
	outcome := docchat.OutcomeOf(err)
	d := time.Since(start)
	s.metrics.SessionEnded(outcome, d)
	logger.Info("chat session ended",
		"fragments", stats.Fragments,
		"bytes", stats.Bytes,
		"outcome", string(outcome),
		"duration", d,
	)
}

func (s *Server) documentText(ctx context.Context, id string) (string, error) {
	if s.documents == nil {
		return "", fmt.Errorf("document %q: %w", id, docchat.ErrNoActiveDocument)
	}
	return s.documents.Text(ctx, id)
}
