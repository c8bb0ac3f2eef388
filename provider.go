package docchat

import "context"

// Provider opens fragment streams for a query. Implementations include the
// upstream HTTP client, model SDK adapters, and the relay client.
//
// Request is passed by value, but Context may be large; providers must not
// retain it after Stream returns an error.
type Provider interface {
	Stream(ctx context.Context, req Request) (Stream, error)
}
