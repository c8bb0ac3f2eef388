// Command docchatd is the docchat relay: it accepts chat queries over HTTP
// and streams the answers of an upstream model service back to clients.
//
// Usage:
//
//	docchatd -upstream http://localhost:5000 [flags]
//	GEMINI_API_KEY=gk-...    docchatd [flags]
//	ANTHROPIC_API_KEY=sk-... docchatd [flags]
//
// Flags:
//
//	-addr string          Listen address (default ":8080")
//	-upstream string      Upstream service URL (env DOCCHAT_UPSTREAM_URL)
//	-provider string      Provider: http, gemini, anthropic (auto-detected if omitted)
//	-api-key string       API key (overrides the provider's env var)
//	-model string         Model ID (provider default if omitted)
//	-docs string          Uploaded documents directory (default "public/uploads")
//	-idle-timeout dur     Upstream idle timeout, 0 disables (default 60s)
//	-keepalive dur        Keep-alive interval (default 15s)
//	-retries int          Extra connection attempts to the upstream
//	-rate float           Chat requests per second per client, 0 disables
//	-burst int            Rate limiter burst (default 5)
//	-require-auth         Reject /api requests without an Authorization header
//	-log-level string     debug, info, warn, error (env DOCCHAT_LOG_LEVEL)
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fwojciec/docchat"
	dcfs "github.com/fwojciec/docchat/fs"
	dcgin "github.com/fwojciec/docchat/gin"
	"github.com/fwojciec/docchat/prometheus"
	"golang.org/x/time/rate"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "docchatd: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		addr         = flag.String("addr", ":8080", "Listen address")
		upstreamURL  = flag.String("upstream", os.Getenv("DOCCHAT_UPSTREAM_URL"), "Upstream service URL")
		providerFlag = flag.String("provider", "", "Provider: http, gemini, anthropic (auto-detected if omitted)")
		apiKey       = flag.String("api-key", "", "API key (overrides provider's env var)")
		model        = flag.String("model", "", "Model ID (provider-specific)")
		docsDir      = flag.String("docs", "public/uploads", "Uploaded documents directory")
		idleTimeout  = flag.Duration("idle-timeout", 60*time.Second, "Upstream idle timeout, 0 disables")
		keepAlive    = flag.Duration("keepalive", 15*time.Second, "Keep-alive interval")
		retries      = flag.Int("retries", 0, "Extra connection attempts to the upstream")
		rps          = flag.Float64("rate", 0, "Chat requests per second per client, 0 disables")
		burst        = flag.Int("burst", 5, "Rate limiter burst")
		requireAuth  = flag.Bool("require-auth", false, "Reject /api requests without an Authorization header")
		logLevel     = flag.String("log-level", envOr("DOCCHAT_LOG_LEVEL", "info"), "Log level: debug, info, warn, error")
	)
	flag.Parse()

	level, err := parseLevel(*logLevel)
	if err != nil {
		return err
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Env vars are read here and passed as values.
	provider, err := resolveProvider(ctx, providerConfig{
		name:            *providerFlag,
		apiKey:          *apiKey,
		model:           *model,
		upstreamURL:     *upstreamURL,
		idleTimeout:     *idleTimeout,
		retries:         *retries,
		anthropicEnvKey: os.Getenv("ANTHROPIC_API_KEY"),
		geminiEnvKey:    os.Getenv("GEMINI_API_KEY"),
	})
	if err != nil {
		return err
	}

	opts := []dcgin.Option{
		dcgin.WithLogger(logger),
		dcgin.WithMetrics(prometheus.New()),
		dcgin.WithKeepAlive(*keepAlive),
		dcgin.WithRequireAuthorization(*requireAuth),
	}
	if *rps > 0 {
		opts = append(opts, dcgin.WithRateLimit(rate.Limit(*rps), max(*burst, 1)))
	}
	store, err := openDocuments(*docsDir)
	switch {
	case err == nil:
		opts = append(opts, dcgin.WithDocuments(store))
	case errors.Is(err, fs.ErrNotExist):
		logger.Warn("documents directory missing, serving without documents", "dir", *docsDir)
	default:
		return err
	}

	srv := dcgin.NewServer(provider, opts...)
	if err := srv.ListenAndRun(ctx, *addr); err != nil {
		return err
	}
	logger.Info("relay stopped")
	return nil
}

func openDocuments(dir string) (docchat.DocumentStore, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("documents: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("documents: %s is not a directory", dir)
	}
	store, err := dcfs.NewDocumentStore(dir)
	if err != nil {
		return nil, fmt.Errorf("documents: %w", err)
	}
	return store, nil
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("invalid log level %q: %w", s, err)
	}
	return level, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
