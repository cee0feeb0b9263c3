package cache

import (
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLayoutPaths(t *testing.T) {
	l := NewLayout(afero.NewMemMapFs(), "/data/cache")

	assert.Equal(t, filepath.Join("/data/cache", "abc"), l.EntryDir("abc"))
	assert.Equal(t, filepath.Join("/data/cache", "abc", "content.html"), l.ContentPath("abc"))
	assert.Equal(t, filepath.Join("/data/cache", "abc", "icon.png"), l.AssetPath("abc", "icon", "png"))
}

func TestEnsureEntryDir(t *testing.T) {
	fs := afero.NewMemMapFs()
	l := NewLayout(fs, "/data/cache")

	dir, err := l.EnsureEntryDir("bm1")
	require.NoError(t, err)

	exists, err := afero.DirExists(fs, dir)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestEnsureEntryDirRejectsTraversal(t *testing.T) {
	l := NewLayout(afero.NewMemMapFs(), "/data/cache")

	for _, id := range []string{"", ".", "..", "a/b", `a\b`} {
		_, err := l.EnsureEntryDir(id)
		assert.Error(t, err, "id %q should be rejected", id)
	}
}

func TestRemoveEntry(t *testing.T) {
	fs := afero.NewMemMapFs()
	l := NewLayout(fs, "/data/cache")

	_, err := l.EnsureEntryDir("bm1")
	require.NoError(t, err)
	require.NoError(t, afero.WriteFile(fs, l.ContentPath("bm1"), []byte("<html>"), 0o644))

	require.NoError(t, l.RemoveEntry("bm1"))

	exists, _ := afero.DirExists(fs, l.EntryDir("bm1"))
	assert.False(t, exists)

	// Removing again is a no-op.
	assert.NoError(t, l.RemoveEntry("bm1"))
}

func TestEntryIDs(t *testing.T) {
	fs := afero.NewMemMapFs()
	l := NewLayout(fs, "/data/cache")

	// No root yet -> no entries, no error.
	ids, err := l.EntryIDs()
	require.NoError(t, err)
	assert.Empty(t, ids)

	_, err = l.EnsureEntryDir("bm1")
	require.NoError(t, err)
	_, err = l.EnsureEntryDir("bm2")
	require.NoError(t, err)

	ids, err = l.EntryIDs()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"bm1", "bm2"}, ids)
}
