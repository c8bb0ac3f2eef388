package docchat

import (
	"context"
	"time"
)

// Document describes a stored file the user can chat about.
type Document struct {
	ID      string
	Name    string
	Size    int64
	ModTime time.Time
}

// DocumentStore resolves document identifiers to extracted plain text.
// Text returns ErrNoActiveDocument for unknown identifiers.
type DocumentStore interface {
	Documents(ctx context.Context) ([]Document, error)
	Text(ctx context.Context, id string) (string, error)
}
