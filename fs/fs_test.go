package fs_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"
	"time"

	"github.com/fwojciec/docchat"
	"github.com/fwojciec/docchat/fs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFiles(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		p := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
	return dir
}

func TestDocumentStore_Documents(t *testing.T) {
	t.Parallel()

	dir := writeFiles(t, map[string]string{
		"report.txt":         "quarterly numbers",
		"notes/meeting.md":   "# Meeting",
		"scans/contract.pdf": "%PDF-1.4",
		"image.png":          "\x89PNG",
		".hidden/secret.txt": "nope",
		".env.txt":           "nope",
	})

	store, err := fs.NewDocumentStore(dir)
	require.NoError(t, err)

	docs, err := store.Documents(context.Background())
	require.NoError(t, err)

	var ids []string
	for _, d := range docs {
		ids = append(ids, d.ID)
	}
	assert.Equal(t, []string{"notes/meeting.md", "report.txt", "scans/contract.pdf"}, ids)
	assert.Equal(t, "meeting.md", docs[0].Name)
	assert.Equal(t, int64(len("# Meeting")), docs[0].Size)
	assert.False(t, docs[0].ModTime.IsZero())
}

func TestDocumentStore_Text(t *testing.T) {
	t.Parallel()

	dir := writeFiles(t, map[string]string{
		"report.txt":         "quarterly numbers",
		"notes/meeting.md":   "# Meeting",
		"scans/contract.pdf": "%PDF-1.4",
		"image.png":          "\x89PNG",
		"latin1.txt":         "caf\xe9",
		".hidden/secret.txt": "nope",
	})
	require.NoError(t, os.WriteFile(filepath.Join(filepath.Dir(dir), "outside.txt"), []byte("outside"), 0o644))

	store, err := fs.NewDocumentStore(dir)
	require.NoError(t, err)
	ctx := context.Background()

	text, err := store.Text(ctx, "report.txt")
	require.NoError(t, err)
	assert.Equal(t, "quarterly numbers", text)

	text, err = store.Text(ctx, "notes/meeting.md")
	require.NoError(t, err)
	assert.Equal(t, "# Meeting", text)

	tests := []struct {
		name string
		id   string
		want error
	}{
		{"missing", "missing.txt", docchat.ErrNoActiveDocument},
		{"empty id", "", docchat.ErrNoActiveDocument},
		{"parent traversal", "../outside.txt", docchat.ErrNoActiveDocument},
		{"absolute path", "/etc/passwd", docchat.ErrNoActiveDocument},
		{"hidden", ".hidden/secret.txt", docchat.ErrNoActiveDocument},
		{"not selected by pattern", "image.png", docchat.ErrNoActiveDocument},
		{"directory", "notes", docchat.ErrNoActiveDocument},
		{"pdf", "scans/contract.pdf", docchat.ErrUnsupportedDocument},
		{"not utf-8", "latin1.txt", docchat.ErrUnsupportedDocument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := store.Text(ctx, tt.id)
			require.ErrorIs(t, err, tt.want)
		})
	}
}

func TestDocumentStore_MaxBytes(t *testing.T) {
	t.Parallel()

	store, err := fs.NewStoreFS(fstest.MapFS{
		"big.txt": {Data: []byte("0123456789"), ModTime: time.Now()},
	}, fs.WithMaxBytes(5))
	require.NoError(t, err)

	_, err = store.Text(context.Background(), "big.txt")
	require.ErrorIs(t, err, docchat.ErrValidation)
}

func TestDocumentStore_Pattern(t *testing.T) {
	t.Parallel()

	store, err := fs.NewStoreFS(fstest.MapFS{
		"a.txt":     {Data: []byte("a")},
		"b.md":      {Data: []byte("b")},
		"sub/c.txt": {Data: []byte("c")},
	}, fs.WithPattern("*.txt"))
	require.NoError(t, err)

	docs, err := store.Documents(context.Background())
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "a.txt", docs[0].ID)

	_, err = store.Text(context.Background(), "sub/c.txt")
	require.ErrorIs(t, err, docchat.ErrNoActiveDocument)

	_, err = fs.NewStoreFS(fstest.MapFS{}, fs.WithPattern("[unclosed"))
	require.Error(t, err)
}

func TestDocumentStore_CanceledContext(t *testing.T) {
	t.Parallel()

	store, err := fs.NewStoreFS(fstest.MapFS{"a.txt": {Data: []byte("a")}})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = store.Documents(ctx)
	require.ErrorIs(t, err, context.Canceled)
	_, err = store.Text(ctx, "a.txt")
	require.ErrorIs(t, err, context.Canceled)
}

func TestNewDocumentStore_NotADirectory(t *testing.T) {
	t.Parallel()

	dir := writeFiles(t, map[string]string{"file.txt": "x"})
	_, err := fs.NewDocumentStore(filepath.Join(dir, "file.txt"))
	require.Error(t, err)

	_, err = fs.NewDocumentStore(filepath.Join(dir, "missing"))
	require.Error(t, err)
}
