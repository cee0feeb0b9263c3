package catalog

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tote-app/tote/internal/cache"
	"github.com/tote-app/tote/internal/domain"
	"github.com/tote-app/tote/internal/logger"
)

type stubIngester struct {
	mu    sync.Mutex
	res   domain.IngestResult
	err   error
	calls []string // "id url" per call
}

func (s *stubIngester) Ingest(_ context.Context, id, url string) (domain.IngestResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, id+" "+url)
	return s.res, s.err
}

func (s *stubIngester) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

func openTestStore(t *testing.T, fs afero.Fs, ing Ingester) *Store {
	t.Helper()
	s, err := Open(Options{
		Fs:             fs,
		Path:           "/data/catalog.json",
		SeedCategories: domain.DefaultCategories(),
		Layout:         cache.NewLayout(fs, "/data/cache"),
		Ingester:       ing,
		Logger:         logger.Nop(),
	})
	require.NoError(t, err)
	return s
}

func TestOpenSeedsDefaultCategories(t *testing.T) {
	fs := afero.NewMemMapFs()
	s := openTestStore(t, fs, nil)

	cats := s.Categories()
	require.Len(t, cats, 4)
	assert.Equal(t, "work", cats[0].ID)
	assert.Equal(t, "Work", cats[0].Name)
}

func TestAddBookmarkNormalizesURLAndTags(t *testing.T) {
	fs := afero.NewMemMapFs()
	s := openTestStore(t, fs, nil)

	b, err := s.AddBookmark(AddBookmarkParams{
		URL:        "example.com/page",
		CategoryID: "work",
		Tags:       []string{" Go ", "go", "", "News"},
	})
	require.NoError(t, err)

	assert.Equal(t, "https://example.com/page", b.URL)
	assert.Equal(t, []string{"go", "news"}, b.Tags)
	assert.NotEmpty(t, b.ID)
	assert.NotZero(t, b.CreatedAt)

	got, err := s.GetBookmark(b.ID)
	require.NoError(t, err)
	assert.Equal(t, b, got)
}

func TestAddBookmarkRejectsGarbageURL(t *testing.T) {
	fs := afero.NewMemMapFs()
	s := openTestStore(t, fs, nil)

	_, err := s.AddBookmark(AddBookmarkParams{URL: "ht tp://nope", CategoryID: "work"})
	assert.Error(t, err)
	assert.Empty(t, s.BookmarksByCategory(domain.CategoryAll))
}

func TestCatalogRoundTrip(t *testing.T) {
	fs := afero.NewMemMapFs()
	s := openTestStore(t, fs, nil)

	cat, err := s.AddCategory(AddCategoryParams{Name: "Reading", Icon: "book", Color: "#112233"})
	require.NoError(t, err)
	b, err := s.AddBookmark(AddBookmarkParams{
		URL:        "https://go.dev",
		CategoryID: cat.ID,
		Tags:       []string{"go"},
	})
	require.NoError(t, err)

	reopened := openTestStore(t, fs, nil)
	assert.Equal(t, s.Categories(), reopened.Categories())

	got, err := reopened.GetBookmark(b.ID)
	require.NoError(t, err)
	assert.Equal(t, b, got)
}

func TestUnknownFieldsSurviveRewrite(t *testing.T) {
	fs := afero.NewMemMapFs()
	seed := `{
		"version": 3,
		"categories": [
			{"id": "work", "name": "Work", "icon": "briefcase", "color": "#aaa", "pinned": true}
		],
		"bookmarks": [
			{"id": "bm1", "url": "https://example.com", "categoryId": "work",
			 "tags": [], "createdAt": 1700000000000, "starred": true}
		]
	}`
	require.NoError(t, afero.WriteFile(fs, "/data/catalog.json", []byte(seed), 0o644))

	s := openTestStore(t, fs, nil)

	// Any mutation rewrites the whole document.
	_, err := s.UpdateBookmark("bm1", BookmarkPatch{Tags: []string{"kept"}})
	require.NoError(t, err)

	data, err := afero.ReadFile(fs, "/data/catalog.json")
	require.NoError(t, err)

	var doc map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.JSONEq(t, "3", string(doc["version"]), "document-level unknown field must survive")

	var rows struct {
		Categories []map[string]any `json:"categories"`
		Bookmarks  []map[string]any `json:"bookmarks"`
	}
	require.NoError(t, json.Unmarshal(data, &rows))
	require.Len(t, rows.Categories, 1)
	assert.Equal(t, true, rows.Categories[0]["pinned"])
	require.Len(t, rows.Bookmarks, 1)
	assert.Equal(t, true, rows.Bookmarks[0]["starred"])
	assert.Equal(t, []any{"kept"}, rows.Bookmarks[0]["tags"])
}

func TestTagsMigrateToEmptySlice(t *testing.T) {
	fs := afero.NewMemMapFs()
	seed := `{
		"categories": [],
		"bookmarks": [
			{"id": "old", "url": "https://example.com", "categoryId": "work",
			 "createdAt": 1700000000000}
		]
	}`
	require.NoError(t, afero.WriteFile(fs, "/data/catalog.json", []byte(seed), 0o644))

	s := openTestStore(t, fs, nil)
	b, err := s.GetBookmark("old")
	require.NoError(t, err)
	require.NotNil(t, b.Tags)
	assert.Empty(t, b.Tags)
}

func TestRecentBookmarksOrderAndLimit(t *testing.T) {
	fs := afero.NewMemMapFs()
	clock := int64(0)
	s, err := Open(Options{
		Fs:     fs,
		Path:   "/data/catalog.json",
		Logger: logger.Nop(),
		Now: func() time.Time {
			clock++
			return time.UnixMilli(clock)
		},
	})
	require.NoError(t, err)

	for i := 0; i < RecentLimit+5; i++ {
		_, err := s.AddBookmark(AddBookmarkParams{URL: "https://example.com", CategoryID: "work"})
		require.NoError(t, err)
	}

	recent := s.RecentBookmarks()
	require.Len(t, recent, RecentLimit)
	for i := 1; i < len(recent); i++ {
		assert.GreaterOrEqual(t, recent[i-1].CreatedAt, recent[i].CreatedAt,
			"recent bookmarks must be newest first")
	}
	assert.Equal(t, clock, recent[0].CreatedAt, "newest bookmark leads")
}

func TestBookmarksByCategoryAllReturnsEverything(t *testing.T) {
	fs := afero.NewMemMapFs()
	s := openTestStore(t, fs, nil)

	_, err := s.AddBookmark(AddBookmarkParams{URL: "https://a.test", CategoryID: "work"})
	require.NoError(t, err)
	_, err = s.AddBookmark(AddBookmarkParams{URL: "https://b.test", CategoryID: "personal"})
	require.NoError(t, err)

	assert.Len(t, s.BookmarksByCategory("work"), 1)
	assert.Len(t, s.BookmarksByCategory(domain.CategoryAll), 2)
	assert.Empty(t, s.BookmarksByCategory("learning"))
}

func TestReservedCategoryID(t *testing.T) {
	fs := afero.NewMemMapFs()
	s := openTestStore(t, fs, nil)

	_, err := s.UpdateCategory(domain.CategoryAll, CategoryPatch{})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	assert.NoError(t, s.DeleteCategory(domain.CategoryAll))
	assert.Len(t, s.Categories(), 4, "deleting the virtual view must not touch rows")
}

func TestDeleteCategoryLeavesBookmarks(t *testing.T) {
	fs := afero.NewMemMapFs()
	s := openTestStore(t, fs, nil)

	b, err := s.AddBookmark(AddBookmarkParams{URL: "https://a.test", CategoryID: "work"})
	require.NoError(t, err)

	require.NoError(t, s.DeleteCategory("work"))
	assert.Len(t, s.Categories(), 3)

	got, err := s.GetBookmark(b.ID)
	require.NoError(t, err)
	assert.Equal(t, "work", got.CategoryID, "bookmark keeps its dangling category id")
	assert.Len(t, s.BookmarksByCategory(domain.CategoryAll), 1)
}

func TestChangeEventsArePublished(t *testing.T) {
	fs := afero.NewMemMapFs()
	s := openTestStore(t, fs, nil)

	events, cancel := s.Subscribe()
	defer cancel()

	b, err := s.AddBookmark(AddBookmarkParams{URL: "https://a.test", CategoryID: "work"})
	require.NoError(t, err)
	require.NoError(t, s.DeleteBookmark(b.ID))

	assert.Equal(t, Change{Entity: EntityBookmark, ID: b.ID, Kind: ChangeCreated}, <-events)
	assert.Equal(t, Change{Entity: EntityBookmark, ID: b.ID, Kind: ChangeDeleted}, <-events)
}

func TestIngestResultIsAppliedToBookmark(t *testing.T) {
	fs := afero.NewMemMapFs()
	ing := &stubIngester{
		res: domain.IngestResult{
			Metadata: domain.Metadata{
				Title:       "Go",
				Description: "The Go Programming Language",
				IconURL:     "https://go.dev/favicon.ico",
				ImageURL:    "https://go.dev/og.png",
			},
			ContentPath: "/data/cache/x/content.html",
			IconPath:    "/data/cache/x/icon.ico",
			ImagePath:   "/data/cache/x/image.png",
		},
	}
	s := openTestStore(t, fs, ing)

	b, err := s.AddBookmark(AddBookmarkParams{URL: "https://go.dev", CategoryID: "work"})
	require.NoError(t, err)
	s.Wait()

	got, err := s.GetBookmark(b.ID)
	require.NoError(t, err)
	assert.Equal(t, "Go", got.Title)
	assert.Equal(t, "The Go Programming Language", got.Description)
	assert.Equal(t, "https://go.dev/favicon.ico", got.Icon)
	assert.Equal(t, "https://go.dev/og.png", got.Image)
	assert.Equal(t, "/data/cache/x/content.html", got.CachedContentPath)
	assert.Equal(t, "/data/cache/x/icon.ico", got.LocalIconPath)
	assert.Equal(t, "/data/cache/x/image.png", got.LocalImagePath)

	// The applied result is persisted.
	reopened := openTestStore(t, fs, nil)
	persisted, err := reopened.GetBookmark(b.ID)
	require.NoError(t, err)
	assert.Equal(t, got, persisted)
}

func TestIngestFailureLeavesBookmarkBlank(t *testing.T) {
	fs := afero.NewMemMapFs()
	ing := &stubIngester{err: domain.TimeoutErr(context.DeadlineExceeded)}
	s := openTestStore(t, fs, ing)

	b, err := s.AddBookmark(AddBookmarkParams{URL: "https://slow.test", CategoryID: "work"})
	require.NoError(t, err)
	s.Wait()

	got, err := s.GetBookmark(b.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Title)
	assert.Empty(t, got.CachedContentPath)
}

func TestURLChangeTriggersReingest(t *testing.T) {
	fs := afero.NewMemMapFs()
	ing := &stubIngester{}
	s := openTestStore(t, fs, ing)

	b, err := s.AddBookmark(AddBookmarkParams{URL: "https://old.test", CategoryID: "work"})
	require.NoError(t, err)
	s.Wait()
	require.Equal(t, 1, ing.callCount())

	// Tag-only update must not re-ingest.
	_, err = s.UpdateBookmark(b.ID, BookmarkPatch{Tags: []string{"x"}})
	require.NoError(t, err)
	s.Wait()
	assert.Equal(t, 1, ing.callCount())

	newURL := "https://new.test"
	_, err = s.UpdateBookmark(b.ID, BookmarkPatch{URL: &newURL})
	require.NoError(t, err)
	s.Wait()
	assert.Equal(t, 2, ing.callCount())
}

func TestDeleteBookmarkRemovesCacheEntry(t *testing.T) {
	fs := afero.NewMemMapFs()
	layout := cache.NewLayout(fs, "/data/cache")
	s, err := Open(Options{
		Fs:     fs,
		Path:   "/data/catalog.json",
		Layout: layout,
		Logger: logger.Nop(),
	})
	require.NoError(t, err)

	b, err := s.AddBookmark(AddBookmarkParams{URL: "https://a.test", CategoryID: "work"})
	require.NoError(t, err)

	_, err = layout.EnsureEntryDir(b.ID)
	require.NoError(t, err)
	require.NoError(t, cache.WriteFileAtomic(fs, layout.ContentPath(b.ID), []byte("x")))

	require.NoError(t, s.DeleteBookmark(b.ID))
	s.Wait()

	exists, _ := afero.DirExists(fs, layout.EntryDir(b.ID))
	assert.False(t, exists, "cache entry must be removed after delete")

	_, err = s.GetBookmark(b.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
