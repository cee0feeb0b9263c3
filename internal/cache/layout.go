package cache

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

// ContentFile is the fixed name of the cached page body inside an entry
// directory.
const ContentFile = "content.html"

// Layout maps bookmark identity to on-disk paths under the cache root.
// Paths are always computed, never persisted: the catalog only stores the
// final resolved paths handed back after a successful write, so this
// layout can change without a migration.
type Layout struct {
	fs   afero.Fs
	root string
}

// NewLayout creates a layout rooted at root. The root itself is created
// lazily on first write.
func NewLayout(fs afero.Fs, root string) *Layout {
	return &Layout{fs: fs, root: root}
}

// Fs exposes the backing filesystem for collaborators that write into
// entry directories.
func (l *Layout) Fs() afero.Fs { return l.fs }

// Root returns the cache root directory.
func (l *Layout) Root() string { return l.root }

// EntryDir returns the directory holding all artifacts for one bookmark.
func (l *Layout) EntryDir(id string) string {
	return filepath.Join(l.root, id)
}

// ContentPath returns the path of the cached page body for a bookmark.
func (l *Layout) ContentPath(id string) string {
	return filepath.Join(l.EntryDir(id), ContentFile)
}

// AssetPath returns the path for a named asset (icon, image) with the
// given extension.
func (l *Layout) AssetPath(id, name, ext string) string {
	return filepath.Join(l.EntryDir(id), name+"."+ext)
}

// EnsureEntryDir creates the entry directory (and the root, if missing)
// and returns its path.
func (l *Layout) EnsureEntryDir(id string) (string, error) {
	if err := validateID(id); err != nil {
		return "", err
	}
	dir := l.EntryDir(id)
	if err := l.fs.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create entry dir: %w", err)
	}
	return dir, nil
}

// RemoveEntry deletes the whole entry directory for a bookmark.
// Removing an entry that never existed is not an error.
func (l *Layout) RemoveEntry(id string) error {
	if err := validateID(id); err != nil {
		return err
	}
	if err := l.fs.RemoveAll(l.EntryDir(id)); err != nil {
		return fmt.Errorf("remove entry dir: %w", err)
	}
	return nil
}

// EntryIDs lists the bookmark ids that currently have an entry directory.
// A missing root means no entries yet.
func (l *Layout) EntryIDs() ([]string, error) {
	infos, err := afero.ReadDir(l.fs, l.root)
	if err != nil {
		if exists, _ := afero.DirExists(l.fs, l.root); !exists {
			return nil, nil
		}
		return nil, fmt.Errorf("read cache root: %w", err)
	}

	ids := make([]string, 0, len(infos))
	for _, info := range infos {
		if info.IsDir() {
			ids = append(ids, info.Name())
		}
	}
	return ids, nil
}

// validateID rejects ids that would escape the cache root.
func validateID(id string) error {
	if id == "" || id == "." || id == ".." ||
		strings.ContainsAny(id, `/\`) {
		return fmt.Errorf("invalid cache entry id: %q", id)
	}
	return nil
}
