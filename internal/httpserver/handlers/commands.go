package handlers

import (
	"net/http"
	"net/url"

	"github.com/tote-app/tote/internal/assets"
	"github.com/tote-app/tote/internal/domain"
	"github.com/tote-app/tote/internal/extractor"
	"github.com/tote-app/tote/internal/httpserver/deps"
	"github.com/tote-app/tote/internal/logger"
	"github.com/tote-app/tote/internal/store/catalog"
)

// FetchLinkMetadata extracts page metadata without touching the cache.
// When the page itself cannot be fetched the handler degrades to a
// hostname title and a favicon-service icon, so the UI always has
// something to show for a valid URL.
func FetchLinkMetadata(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			URL string `json:"url"`
		}
		if !decodeJSON(w, r, &req) {
			return
		}

		normalized := domain.NormalizeURL(req.URL)
		if !domain.ValidURL(normalized) {
			badRequest(w, "invalid url")
			return
		}

		page, err := d.Fetcher.Fetch(r.Context(), normalized)
		if err != nil {
			u, perr := url.Parse(normalized)
			if perr == nil && u.Hostname() != "" {
				d.Logger.Debug("metadata fetch failed, using host fallback",
					logger.String("url", normalized),
					logger.Error(err))
				writeJSON(w, http.StatusOK, domain.Metadata{
					Title:   u.Hostname(),
					IconURL: assets.FallbackIconURL(d.FaviconService, u.Hostname()),
				})
				return
			}
			writeError(w, err)
			return
		}

		meta, err := extractor.Extract(page.Body, page.FinalURL)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, meta)
	}
}

// CacheLink runs (or joins) the full ingestion pipeline for a bookmark
// and waits for the result. An omitted url falls back to the stored
// bookmark URL, which is how metadata refresh works.
func CacheLink(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID  string `json:"id"`
			URL string `json:"url"`
		}
		if !decodeJSON(w, r, &req) {
			return
		}
		if req.ID == "" {
			badRequest(w, "id is required")
			return
		}

		target := req.URL
		if target == "" {
			b, err := d.Catalog.GetBookmark(req.ID)
			if err != nil {
				writeError(w, err)
				return
			}
			target = b.URL
		} else {
			target = domain.NormalizeURL(target)
			if !domain.ValidURL(target) {
				badRequest(w, "invalid url")
				return
			}
		}

		res, err := d.Coordinator.Ingest(r.Context(), req.ID, target)
		if err != nil {
			writeError(w, err)
			return
		}

		// Best effort: record the result on the bookmark row if it still
		// points at the ingested URL.
		d.Catalog.ApplyIngest(req.ID, target, res)

		writeJSON(w, http.StatusOK, res)
	}
}

// RemoveCachedLink drops a bookmark's cached artifacts, keeping the row.
func RemoveCachedLink(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID string `json:"id"`
		}
		if !decodeJSON(w, r, &req) {
			return
		}
		if req.ID == "" {
			badRequest(w, "id is required")
			return
		}

		if err := d.Catalog.ClearCache(req.ID); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// TrayAddLink adds a bookmark for a URL dropped on the tray icon. It
// lands in the first real category, creating a personal one when the
// catalog has none.
func TrayAddLink(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			URL string `json:"url"`
		}
		if !decodeJSON(w, r, &req) {
			return
		}

		categoryID := ""
		for _, c := range d.Catalog.Categories() {
			if c.ID != domain.CategoryAll {
				categoryID = c.ID
				break
			}
		}
		if categoryID == "" {
			c, err := d.Catalog.AddCategory(catalog.AddCategoryParams{
				Name:  "Personal",
				Icon:  "User",
				Color: "#3fe47e",
			})
			if err != nil {
				writeError(w, err)
				return
			}
			categoryID = c.ID
		}

		b, err := d.Catalog.AddBookmark(catalog.AddBookmarkParams{
			URL:        req.URL,
			CategoryID: categoryID,
		})
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, b)
	}
}
