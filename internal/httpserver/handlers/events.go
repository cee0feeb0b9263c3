package handlers

import (
	"net/http"
	"strconv"

	"github.com/tote-app/tote/internal/httpserver/deps"
	"github.com/tote-app/tote/internal/store/catalog"
)

type eventsResponse struct {
	Events []catalog.SeqChange `json:"events"`
	Latest uint64              `json:"latest"`
}

// Events returns catalog changes after the given sequence number, so the
// UI can poll for what it missed.
func Events(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var since uint64
		if raw := r.URL.Query().Get("since"); raw != "" {
			v, err := strconv.ParseUint(raw, 10, 64)
			if err != nil {
				badRequest(w, "since must be a non-negative integer")
				return
			}
			since = v
		}

		changes, latest := d.Events.Since(since)
		writeJSON(w, http.StatusOK, eventsResponse{Events: changes, Latest: latest})
	}
}
