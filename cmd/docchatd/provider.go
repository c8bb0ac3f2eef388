package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fwojciec/docchat"
	"github.com/fwojciec/docchat/anthropic"
	"github.com/fwojciec/docchat/gemini"
	"github.com/fwojciec/docchat/upstream"
)

type providerConfig struct {
	name        string
	apiKey      string
	model       string
	upstreamURL string
	idleTimeout time.Duration
	retries     int

	anthropicEnvKey string
	geminiEnvKey    string
}

// resolveProvider selects and constructs the provider. All env var values are
// passed in through cfg; env is only read in main().
func resolveProvider(ctx context.Context, cfg providerConfig) (docchat.Provider, error) {
	name := cfg.name

	// Auto-detect: an upstream URL wins, then a single API key.
	if name == "" {
		hasAnthropic := cfg.anthropicEnvKey != ""
		hasGemini := cfg.geminiEnvKey != ""
		switch {
		case cfg.upstreamURL != "":
			name = "http"
		case hasAnthropic && hasGemini:
			return nil, errors.New("multiple API keys found (ANTHROPIC_API_KEY, GEMINI_API_KEY): use -provider flag to select")
		case hasAnthropic:
			name = "anthropic"
		case hasGemini:
			name = "gemini"
		default:
			return nil, errors.New("no upstream configured: set -upstream, ANTHROPIC_API_KEY, or GEMINI_API_KEY")
		}
	}

	key := cfg.apiKey
	switch name {
	case "http":
		if cfg.upstreamURL == "" {
			return nil, errors.New("DOCCHAT_UPSTREAM_URL not set (use -upstream flag or environment variable)")
		}
		return upstream.New(cfg.upstreamURL,
			upstream.WithIdleTimeout(cfg.idleTimeout),
			upstream.WithRetries(cfg.retries),
		), nil
	case "anthropic":
		if key == "" {
			key = cfg.anthropicEnvKey
		}
		if key == "" {
			return nil, errors.New("ANTHROPIC_API_KEY not set (use -api-key flag or environment variable)")
		}
		var opts []anthropic.Option
		if cfg.model != "" {
			opts = append(opts, anthropic.WithModel(cfg.model))
		}
		return anthropic.New(key, opts...), nil
	case "gemini":
		if key == "" {
			key = cfg.geminiEnvKey
		}
		if key == "" {
			return nil, errors.New("GEMINI_API_KEY not set (use -api-key flag or environment variable)")
		}
		var opts []gemini.Option
		if cfg.model != "" {
			opts = append(opts, gemini.WithModel(cfg.model))
		}
		client, err := gemini.New(ctx, key, opts...)
		if err != nil {
			return nil, fmt.Errorf("gemini: %w", err)
		}
		return client, nil
	default:
		return nil, fmt.Errorf("unknown provider %q: must be \"http\", \"gemini\", or \"anthropic\"", name)
	}
}
