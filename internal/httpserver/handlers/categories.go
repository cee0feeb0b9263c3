package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tote-app/tote/internal/httpserver/deps"
	"github.com/tote-app/tote/internal/store/catalog"
)

// ListCategories returns all category rows. The virtual "all" view is
// not a row and never appears here.
func ListCategories(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, d.Catalog.Categories())
	}
}

// CreateCategory adds a category.
func CreateCategory(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Name  string `json:"name"`
			Icon  string `json:"icon"`
			Color string `json:"color"`
		}
		if !decodeJSON(w, r, &req) {
			return
		}
		if req.Name == "" {
			badRequest(w, "name is required")
			return
		}

		c, err := d.Catalog.AddCategory(catalog.AddCategoryParams{
			Name:  req.Name,
			Icon:  req.Icon,
			Color: req.Color,
		})
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, c)
	}
}

// PatchCategory applies a partial update.
func PatchCategory(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Name  *string `json:"name"`
			Icon  *string `json:"icon"`
			Color *string `json:"color"`
		}
		if !decodeJSON(w, r, &req) {
			return
		}

		c, err := d.Catalog.UpdateCategory(chi.URLParam(r, "id"), catalog.CategoryPatch{
			Name:  req.Name,
			Icon:  req.Icon,
			Color: req.Color,
		})
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, c)
	}
}

// DeleteCategory removes a category row; its bookmarks are untouched.
func DeleteCategory(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := d.Catalog.DeleteCategory(chi.URLParam(r, "id")); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
