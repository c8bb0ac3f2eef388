package fs

import (
	iofs "io/fs"
)

// NewStoreFS builds a DocumentStore over an arbitrary filesystem.
func NewStoreFS(fsys iofs.FS, opts ...Option) (*DocumentStore, error) {
	return newStore(fsys, opts...)
}
