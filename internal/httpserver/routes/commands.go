package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/tote-app/tote/internal/httpserver/deps"
	"github.com/tote-app/tote/internal/httpserver/handlers"
)

func init() { Register(registerCommands) }

func registerCommands(r chi.Router, d deps.Deps) {
	r.Route("/api/commands", func(r chi.Router) {
		r.Post("/fetch_link_metadata", handlers.FetchLinkMetadata(d))
		r.Post("/cache_link", handlers.CacheLink(d))
		r.Post("/remove_cached_link", handlers.RemoveCachedLink(d))
		r.Post("/tray_add_link", handlers.TrayAddLink(d))
	})
}
