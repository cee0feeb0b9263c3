package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tote-app/tote/internal/domain"
	"github.com/tote-app/tote/internal/httpserver/deps"
	"github.com/tote-app/tote/internal/store/catalog"
)

// ListBookmarks returns bookmarks, optionally filtered by category.
func ListBookmarks(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		category := r.URL.Query().Get("category")
		if category == "" {
			category = domain.CategoryAll
		}
		writeJSON(w, http.StatusOK, d.Catalog.BookmarksByCategory(category))
	}
}

// RecentBookmarks returns the newest bookmarks.
func RecentBookmarks(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, d.Catalog.RecentBookmarks())
	}
}

// CreateBookmark adds a bookmark; ingestion starts in the background.
func CreateBookmark(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			URL        string   `json:"url"`
			CategoryID string   `json:"categoryId"`
			Tags       []string `json:"tags"`
		}
		if !decodeJSON(w, r, &req) {
			return
		}

		b, err := d.Catalog.AddBookmark(catalog.AddBookmarkParams{
			URL:        req.URL,
			CategoryID: req.CategoryID,
			Tags:       req.Tags,
		})
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, b)
	}
}

// PatchBookmark applies a partial update; a URL change re-ingests.
func PatchBookmark(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			URL        *string  `json:"url"`
			CategoryID *string  `json:"categoryId"`
			Tags       []string `json:"tags"`
		}
		if !decodeJSON(w, r, &req) {
			return
		}

		b, err := d.Catalog.UpdateBookmark(chi.URLParam(r, "id"), catalog.BookmarkPatch{
			URL:        req.URL,
			CategoryID: req.CategoryID,
			Tags:       req.Tags,
		})
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, b)
	}
}

// DeleteBookmark removes the row and its cached artifacts.
func DeleteBookmark(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := d.Catalog.DeleteBookmark(chi.URLParam(r, "id")); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
