// Package mock provides test doubles for docchat interfaces using function fields.
package mock

import (
	"context"

	"github.com/fwojciec/docchat"
)

// Interface compliance checks.
var (
	_ docchat.Provider      = (*Provider)(nil)
	_ docchat.DocumentStore = (*DocumentStore)(nil)
)

// Provider is a test double for docchat.Provider.
// Set StreamFn before calling Stream.
type Provider struct {
	StreamFn func(ctx context.Context, req docchat.Request) (docchat.Stream, error)
}

// Stream delegates to StreamFn.
func (p *Provider) Stream(ctx context.Context, req docchat.Request) (docchat.Stream, error) {
	return p.StreamFn(ctx, req)
}

// DocumentStore is a test double for docchat.DocumentStore.
type DocumentStore struct {
	DocumentsFn func(ctx context.Context) ([]docchat.Document, error)
	TextFn      func(ctx context.Context, id string) (string, error)
}

// Documents delegates to DocumentsFn.
func (s *DocumentStore) Documents(ctx context.Context) ([]docchat.Document, error) {
	return s.DocumentsFn(ctx)
}

// Text delegates to TextFn.
func (s *DocumentStore) Text(ctx context.Context, id string) (string, error) {
	return s.TextFn(ctx, id)
}
