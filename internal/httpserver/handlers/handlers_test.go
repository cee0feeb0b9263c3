package handlers_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tote-app/tote/internal/assets"
	"github.com/tote-app/tote/internal/cache"
	"github.com/tote-app/tote/internal/domain"
	"github.com/tote-app/tote/internal/fetcher"
	"github.com/tote-app/tote/internal/httpserver/deps"
	"github.com/tote-app/tote/internal/httpserver/routes"
	"github.com/tote-app/tote/internal/ingest"
	"github.com/tote-app/tote/internal/logger"
	"github.com/tote-app/tote/internal/store/catalog"
)

type env struct {
	api     *httptest.Server
	catalog *catalog.Store
	layout  *cache.Layout
	fs      afero.Fs
}

func newEnv(t *testing.T) *env {
	t.Helper()

	fs := afero.NewMemMapFs()
	layout := cache.NewLayout(fs, "/data/cache")
	f := fetcher.New(fetcher.Options{
		ConnectTimeout: time.Second,
		Timeout:        5 * time.Second,
		Permits:        8,
		MaxHTMLBytes:   1 << 20,
		UserAgent:      "tote-test/1.0",
	}, logger.Nop())
	dl := assets.New(f, layout, 1<<20, logger.Nop())
	coord := ingest.New(f, layout, dl, 10*time.Second, logger.Nop())

	store, err := catalog.Open(catalog.Options{
		Fs:             fs,
		Path:           "/data/catalog.json",
		SeedCategories: domain.DefaultCategories(),
		Layout:         layout,
		Logger:         logger.Nop(),
	})
	require.NoError(t, err)

	rec := catalog.NewRecorder(store, 0)
	t.Cleanup(rec.Close)

	d := deps.Deps{
		Logger:         logger.Nop(),
		StartTime:      time.Now(),
		Version:        "test",
		Catalog:        store,
		Events:         rec,
		Coordinator:    coord,
		Fetcher:        f,
		FaviconService: "https://favicons.invalid/s2/favicons",
	}

	r := chi.NewRouter()
	routes.RegisterAll(r, d)
	api := httptest.NewServer(r)
	t.Cleanup(api.Close)

	return &env{api: api, catalog: store, layout: layout, fs: fs}
}

func (e *env) do(t *testing.T, method, path string, body any) (int, []byte) {
	t.Helper()

	var buf io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		buf = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, e.api.URL+path, buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.api.Client().Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, data
}

func pageServer(t *testing.T, html string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(html))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestHealthz(t *testing.T) {
	e := newEnv(t)

	status, body := e.do(t, http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, status)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(body, &resp))
	assert.Equal(t, "ok", resp["status"])
	assert.Equal(t, "test", resp["version"])
}

func TestFetchLinkMetadata(t *testing.T) {
	e := newEnv(t)
	srv := pageServer(t, `<html><head>
		<title>A Page</title>
		<meta property="og:description" content="About the page">
	</head></html>`)

	status, body := e.do(t, http.MethodPost, "/api/commands/fetch_link_metadata",
		map[string]string{"url": srv.URL + "/"})
	require.Equal(t, http.StatusOK, status)

	var meta domain.Metadata
	require.NoError(t, json.Unmarshal(body, &meta))
	assert.Equal(t, "A Page", meta.Title)
	assert.Equal(t, "About the page", meta.Description)
}

func TestFetchLinkMetadataHostFallback(t *testing.T) {
	e := newEnv(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	status, body := e.do(t, http.MethodPost, "/api/commands/fetch_link_metadata",
		map[string]string{"url": srv.URL})
	require.Equal(t, http.StatusOK, status, "fetch failure must degrade, not error")

	var meta domain.Metadata
	require.NoError(t, json.Unmarshal(body, &meta))
	assert.Equal(t, "127.0.0.1", meta.Title)
	assert.Contains(t, meta.IconURL, "favicons.invalid")
	assert.Contains(t, meta.IconURL, "domain=127.0.0.1")
}

func TestFetchLinkMetadataRejectsBadURL(t *testing.T) {
	e := newEnv(t)
	status, _ := e.do(t, http.MethodPost, "/api/commands/fetch_link_metadata",
		map[string]string{"url": "ht tp://nope"})
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestCacheLinkUsesStoredURL(t *testing.T) {
	e := newEnv(t)
	srv := pageServer(t, `<html><head><title>Stored</title></head></html>`)

	b, err := e.catalog.AddBookmark(catalog.AddBookmarkParams{
		URL:        srv.URL + "/",
		CategoryID: "work",
	})
	require.NoError(t, err)

	status, body := e.do(t, http.MethodPost, "/api/commands/cache_link",
		map[string]string{"id": b.ID})
	require.Equal(t, http.StatusOK, status)

	var res domain.IngestResult
	require.NoError(t, json.Unmarshal(body, &res))
	assert.Equal(t, "Stored", res.Title)
	assert.Equal(t, e.layout.ContentPath(b.ID), res.ContentPath)

	// The result lands on the bookmark row.
	got, err := e.catalog.GetBookmark(b.ID)
	require.NoError(t, err)
	assert.Equal(t, "Stored", got.Title)
	assert.Equal(t, res.ContentPath, got.CachedContentPath)
}

func TestCacheLinkUnknownBookmark(t *testing.T) {
	e := newEnv(t)
	status, _ := e.do(t, http.MethodPost, "/api/commands/cache_link",
		map[string]string{"id": "ghost"})
	assert.Equal(t, http.StatusNotFound, status)
}

func TestRemoveCachedLink(t *testing.T) {
	e := newEnv(t)
	srv := pageServer(t, `<html><head><title>Cached</title></head></html>`)

	b, err := e.catalog.AddBookmark(catalog.AddBookmarkParams{
		URL:        srv.URL + "/",
		CategoryID: "work",
	})
	require.NoError(t, err)

	status, _ := e.do(t, http.MethodPost, "/api/commands/cache_link",
		map[string]string{"id": b.ID})
	require.Equal(t, http.StatusOK, status)

	status, _ = e.do(t, http.MethodPost, "/api/commands/remove_cached_link",
		map[string]string{"id": b.ID})
	require.Equal(t, http.StatusNoContent, status)

	got, err := e.catalog.GetBookmark(b.ID)
	require.NoError(t, err)
	assert.Empty(t, got.CachedContentPath)
	assert.Equal(t, "Cached", got.Title, "remote metadata survives cache removal")

	exists, _ := afero.DirExists(e.fs, e.layout.EntryDir(b.ID))
	assert.False(t, exists)
}

func TestTrayAddLink(t *testing.T) {
	e := newEnv(t)

	status, body := e.do(t, http.MethodPost, "/api/commands/tray_add_link",
		map[string]string{"url": "example.com/article"})
	require.Equal(t, http.StatusCreated, status)

	var b domain.Bookmark
	require.NoError(t, json.Unmarshal(body, &b))
	assert.Equal(t, "https://example.com/article", b.URL)
	assert.Equal(t, "work", b.CategoryID, "tray adds land in the first real category")
}

func TestBookmarkCRUD(t *testing.T) {
	e := newEnv(t)

	status, body := e.do(t, http.MethodPost, "/api/bookmarks", map[string]any{
		"url":        "go.dev",
		"categoryId": "learning",
		"tags":       []string{" Go ", "go"},
	})
	require.Equal(t, http.StatusCreated, status)

	var b domain.Bookmark
	require.NoError(t, json.Unmarshal(body, &b))
	assert.Equal(t, "https://go.dev", b.URL)
	assert.Equal(t, []string{"go"}, b.Tags)

	status, body = e.do(t, http.MethodGet, "/api/bookmarks?category=learning", nil)
	require.Equal(t, http.StatusOK, status)
	var list []domain.Bookmark
	require.NoError(t, json.Unmarshal(body, &list))
	require.Len(t, list, 1)

	status, body = e.do(t, http.MethodGet, "/api/bookmarks/recent", nil)
	require.Equal(t, http.StatusOK, status)
	require.NoError(t, json.Unmarshal(body, &list))
	require.Len(t, list, 1)

	status, body = e.do(t, http.MethodPatch, "/api/bookmarks/"+b.ID, map[string]any{
		"categoryId": "work",
	})
	require.Equal(t, http.StatusOK, status)
	require.NoError(t, json.Unmarshal(body, &b))
	assert.Equal(t, "work", b.CategoryID)

	status, _ = e.do(t, http.MethodDelete, "/api/bookmarks/"+b.ID, nil)
	require.Equal(t, http.StatusNoContent, status)

	status, _ = e.do(t, http.MethodDelete, "/api/bookmarks/"+b.ID, nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestCategoryCRUD(t *testing.T) {
	e := newEnv(t)

	status, body := e.do(t, http.MethodPost, "/api/categories", map[string]string{
		"name":  "Reading",
		"icon":  "Book",
		"color": "#112233",
	})
	require.Equal(t, http.StatusCreated, status)

	var c domain.Category
	require.NoError(t, json.Unmarshal(body, &c))
	assert.Equal(t, "Reading", c.Name)

	status, body = e.do(t, http.MethodPatch, "/api/categories/"+c.ID, map[string]string{
		"color": "#445566",
	})
	require.Equal(t, http.StatusOK, status)
	require.NoError(t, json.Unmarshal(body, &c))
	assert.Equal(t, "#445566", c.Color)

	// The virtual view is not editable but deleting it is a no-op.
	status, _ = e.do(t, http.MethodPatch, "/api/categories/all", map[string]string{"name": "x"})
	assert.Equal(t, http.StatusNotFound, status)
	status, _ = e.do(t, http.MethodDelete, "/api/categories/all", nil)
	assert.Equal(t, http.StatusNoContent, status)

	status, body = e.do(t, http.MethodGet, "/api/categories", nil)
	require.Equal(t, http.StatusOK, status)
	var cats []domain.Category
	require.NoError(t, json.Unmarshal(body, &cats))
	assert.Len(t, cats, 5, "4 defaults plus the created one")

	status, _ = e.do(t, http.MethodDelete, "/api/categories/"+c.ID, nil)
	require.Equal(t, http.StatusNoContent, status)
}

func TestEventsFeed(t *testing.T) {
	e := newEnv(t)

	b, err := e.catalog.AddBookmark(catalog.AddBookmarkParams{
		URL:        "https://a.test",
		CategoryID: "work",
	})
	require.NoError(t, err)

	type feed struct {
		Events []catalog.SeqChange `json:"events"`
		Latest uint64              `json:"latest"`
	}

	// The recorder consumes the bus asynchronously.
	var f feed
	require.Eventually(t, func() bool {
		status, body := e.do(t, http.MethodGet, "/api/events", nil)
		require.Equal(t, http.StatusOK, status)
		require.NoError(t, json.Unmarshal(body, &f))
		return len(f.Events) == 1
	}, 2*time.Second, 10*time.Millisecond)

	assert.Equal(t, b.ID, f.Events[0].ID)
	assert.Equal(t, catalog.ChangeCreated, f.Events[0].Kind)

	status, body := e.do(t, http.MethodGet, "/api/events?since=1", nil)
	require.Equal(t, http.StatusOK, status)
	require.NoError(t, json.Unmarshal(body, &f))
	assert.Empty(t, f.Events)
	assert.Equal(t, uint64(1), f.Latest)
}
