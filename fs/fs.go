// Package fs implements [docchat.DocumentStore] over a directory of uploaded
// files.
package fs

import (
	"context"
	"errors"
	"fmt"
	iofs "io/fs"
	"os"
	"path"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fwojciec/docchat"
)

const (
	// DefaultPattern selects the files offered as documents.
	DefaultPattern = "**/*.{txt,md,markdown,csv,json,log,html,htm,xml,pdf}"

	defaultMaxBytes = 1 << 20
)

// textExtensions lists the formats whose bytes are the document text.
// Anything else matched by the pattern is listed but cannot be read here.
var textExtensions = map[string]bool{
	".txt": true, ".md": true, ".markdown": true, ".csv": true, ".json": true,
	".log": true, ".html": true, ".htm": true, ".xml": true,
}

// Interface compliance check.
var _ docchat.DocumentStore = (*DocumentStore)(nil)

// DocumentStore serves documents from a directory. Document IDs are
// slash-separated paths relative to the directory.
type DocumentStore struct {
	fsys     iofs.FS
	pattern  string
	maxBytes int64
}

// Option configures a [DocumentStore].
type Option func(*DocumentStore)

// WithPattern sets the doublestar pattern that selects documents.
func WithPattern(pattern string) Option {
	return func(s *DocumentStore) { s.pattern = pattern }
}

// WithMaxBytes caps the size of a document that Text will read.
func WithMaxBytes(n int64) Option {
	return func(s *DocumentStore) { s.maxBytes = n }
}

// NewDocumentStore opens the directory at root.
func NewDocumentStore(root string, opts ...Option) (*DocumentStore, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("fs: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("fs: %s is not a directory", root)
	}
	return newStore(os.DirFS(root), opts...)
}

func newStore(fsys iofs.FS, opts ...Option) (*DocumentStore, error) {
	s := &DocumentStore{
		fsys:     fsys,
		pattern:  DefaultPattern,
		maxBytes: defaultMaxBytes,
	}
	for _, o := range opts {
		o(s)
	}
	if !doublestar.ValidatePattern(s.pattern) {
		return nil, fmt.Errorf("fs: invalid pattern %q", s.pattern)
	}
	return s, nil
}

// Documents lists the matching files, ordered by ID. Hidden files and
// directories are skipped.
func (s *DocumentStore) Documents(ctx context.Context) ([]docchat.Document, error) {
	var docs []docchat.Document
	err := doublestar.GlobWalk(s.fsys, s.pattern, func(p string, d iofs.DirEntry) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() || hidden(p) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		docs = append(docs, docchat.Document{
			ID:      p,
			Name:    path.Base(p),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("fs: list documents: %w", err)
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })
	return docs, nil
}

// Text returns the text of the document. IDs outside the directory, hidden
// files and files the pattern does not select are reported as unknown.
func (s *DocumentStore) Text(ctx context.Context, id string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if !iofs.ValidPath(id) || id == "." || hidden(id) {
		return "", fmt.Errorf("fs: %q: %w", id, docchat.ErrNoActiveDocument)
	}
	if ok, _ := doublestar.Match(s.pattern, id); !ok {
		return "", fmt.Errorf("fs: %q: %w", id, docchat.ErrNoActiveDocument)
	}

	info, err := iofs.Stat(s.fsys, id)
	if errors.Is(err, iofs.ErrNotExist) || (err == nil && info.IsDir()) {
		return "", fmt.Errorf("fs: %q: %w", id, docchat.ErrNoActiveDocument)
	}
	if err != nil {
		return "", fmt.Errorf("fs: %w", err)
	}
	if !textExtensions[strings.ToLower(path.Ext(id))] {
		return "", fmt.Errorf("fs: %q: %w", id, docchat.ErrUnsupportedDocument)
	}
	if info.Size() > s.maxBytes {
		return "", fmt.Errorf("fs: %q is %d bytes, limit is %d: %w", id, info.Size(), s.maxBytes, docchat.ErrValidation)
	}

	b, err := iofs.ReadFile(s.fsys, id)
	if err != nil {
		return "", fmt.Errorf("fs: %w", err)
	}
	if !utf8.Valid(b) {
		return "", fmt.Errorf("fs: %q is not UTF-8 text: %w", id, docchat.ErrUnsupportedDocument)
	}
	return string(b), nil
}

func hidden(p string) bool {
	for _, part := range strings.Split(p, "/") {
		if strings.HasPrefix(part, ".") {
			return true
		}
	}
	return false
}
