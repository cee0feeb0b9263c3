package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/tote-app/tote/internal/httpserver/deps"
	"github.com/tote-app/tote/internal/httpserver/handlers"
)

func init() { Register(registerCategories) }

func registerCategories(r chi.Router, d deps.Deps) {
	r.Route("/api/categories", func(r chi.Router) {
		r.Get("/", handlers.ListCategories(d))
		r.Post("/", handlers.CreateCategory(d))
		r.Patch("/{id}", handlers.PatchCategory(d))
		r.Delete("/{id}", handlers.DeleteCategory(d))
	})
}
