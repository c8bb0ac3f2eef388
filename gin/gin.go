// Package gin implements the stream relay: an HTTP server built on gin that
// accepts chat queries, forwards them to a [docchat.Provider], and re-frames
// the answer to the client as it arrives.
package gin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/fwojciec/docchat"
	dcjson "github.com/fwojciec/docchat/json"
	"github.com/fwojciec/docchat/prometheus"
	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

const (
	defaultKeepAlive     = 15 * time.Second
	defaultShutdownGrace = 10 * time.Second
)

// Server is the relay HTTP server.
type Server struct {
	provider  docchat.Provider
	documents docchat.DocumentStore
	metrics   *prometheus.Metrics
	logger    *slog.Logger

	keepAlive     time.Duration
	shutdownGrace time.Duration
	requireAuth   bool
	limit         rate.Limit
	burst         int

	sessions *sessionGuard
	engine   *gin.Engine
}

// Option configures a [Server].
type Option func(*Server)

// WithDocuments sets the store that resolves the document parameter.
func WithDocuments(store docchat.DocumentStore) Option {
	return func(s *Server) { s.documents = store }
}

// WithMetrics records relay metrics and serves them on /metrics.
func WithMetrics(m *prometheus.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// WithLogger sets the logger. Default discards.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithKeepAlive sets the interval between keep-alive comments while a
// stream is open. Default is 15s.
func WithKeepAlive(d time.Duration) Option {
	return func(s *Server) { s.keepAlive = d }
}

// WithShutdownGrace sets how long Run waits for open streams on shutdown.
func WithShutdownGrace(d time.Duration) Option {
	return func(s *Server) { s.shutdownGrace = d }
}

// WithRequireAuthorization rejects /api requests without an Authorization
// header.
func WithRequireAuthorization(require bool) Option {
	return func(s *Server) { s.requireAuth = require }
}

// WithRateLimit limits chat requests per client address. A zero limit
// disables limiting.
func WithRateLimit(limit rate.Limit, burst int) Option {
	return func(s *Server) {
		s.limit = limit
		s.burst = burst
	}
}

// NewServer creates a relay for provider.
func NewServer(provider docchat.Provider, opts ...Option) *Server {
	s := &Server{
		provider:      provider,
		logger:        slog.New(slog.DiscardHandler),
		keepAlive:     defaultKeepAlive,
		shutdownGrace: defaultShutdownGrace,
		sessions:      newSessionGuard(),
	}
	for _, o := range opts {
		o(s)
	}
	s.engine = s.routes()
	return s
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(recovery(s.logger), logRequests(s.logger))
	r.NoMethod(func(c *gin.Context) {
		c.AbortWithStatusJSON(http.StatusMethodNotAllowed, dcjson.ErrorBody{
			Error: "method not allowed",
			Code:  dcjson.CodeMethodNotAllowed,
		})
	})

	r.GET("/healthz", s.handleHealth)
	r.GET("/metrics", gin.WrapH(s.metrics.Handler()))

	api := r.Group("/api")
	if s.requireAuth {
		api.Use(RequireAuthorization())
	}
	api.GET("/documents", s.handleDocuments)

	chat := []gin.HandlerFunc{s.handleChat}
	if s.limit > 0 {
		chat = append([]gin.HandlerFunc{rateLimit(s.limit, s.burst, s.metrics)}, chat...)
	}
	api.GET("/chat", chat...)
	api.POST("/chat", chat...)
	return r
}

// ServeHTTP implements [http.Handler].
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.engine.ServeHTTP(w, r)
}

// Run serves on ln until ctx is cancelled, then shuts down, giving open
// streams the shutdown grace period to finish.
func (s *Server) Run(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("relay listening", "addr", ln.Addr().String())
		if err := srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("gin: serve: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownGrace)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn("forcing open streams closed", "error", err)
			return srv.Close()
		}
		return nil
	})
	return g.Wait()
}

// ListenAndRun listens on addr and calls Run.
func (s *Server) ListenAndRun(ctx context.Context, addr string) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("gin: %w", err)
	}
	return s.Run(ctx, ln)
}
