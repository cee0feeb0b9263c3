package cache

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteFileAtomic(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("/cache/bm1", 0o755))

	err := WriteFileAtomic(fs, "/cache/bm1/content.html", []byte("<html></html>"))
	require.NoError(t, err)

	data, err := afero.ReadFile(fs, "/cache/bm1/content.html")
	require.NoError(t, err)
	assert.Equal(t, "<html></html>", string(data))

	// The temp file must be gone after the rename.
	exists, _ := afero.Exists(fs, "/cache/bm1/content.html.tmp")
	assert.False(t, exists)
}

func TestWriteFileAtomicOverwrites(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("/cache/bm1", 0o755))

	require.NoError(t, WriteFileAtomic(fs, "/cache/bm1/content.html", []byte("old")))
	require.NoError(t, WriteFileAtomic(fs, "/cache/bm1/content.html", []byte("new")))

	data, _ := afero.ReadFile(fs, "/cache/bm1/content.html")
	assert.Equal(t, "new", string(data))
}

func TestExtensionFor(t *testing.T) {
	tests := []struct {
		contentType string
		want        string
	}{
		{"image/png", "png"},
		{"image/jpeg", "jpg"},
		{"image/gif", "gif"},
		{"image/webp", "webp"},
		{"image/svg+xml", "svg"},
		{"image/x-icon", "ico"},
		{"image/vnd.microsoft.icon", "ico"},
		{"image/png; charset=binary", "png"},
		{"IMAGE/PNG", "png"},
		{"text/html", "bin"},
		{"", "bin"},
	}

	for _, tt := range tests {
		t.Run(tt.contentType, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtensionFor(tt.contentType))
		})
	}
}
