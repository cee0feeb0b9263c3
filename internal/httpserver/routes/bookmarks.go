package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/tote-app/tote/internal/httpserver/deps"
	"github.com/tote-app/tote/internal/httpserver/handlers"
)

func init() { Register(registerBookmarks) }

func registerBookmarks(r chi.Router, d deps.Deps) {
	r.Route("/api/bookmarks", func(r chi.Router) {
		r.Get("/", handlers.ListBookmarks(d))
		r.Get("/recent", handlers.RecentBookmarks(d))
		r.Post("/", handlers.CreateBookmark(d))
		r.Patch("/{id}", handlers.PatchBookmark(d))
		r.Delete("/{id}", handlers.DeleteBookmark(d))
	})
}
