package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/recentfiles/internal/recentservice"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *recentservice.Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Recent files list.
	r.Get("/recent", h.ListRecent)
	r.Delete("/recent", h.ClearRecent)
	r.Post("/recent/open", h.OpenRecent)
	r.Delete("/recent/*", h.RemoveRecent)

	// Host notifications.
	r.Post("/events/open", h.FileOpened)
	r.Post("/events/rename", h.FileRenamed)
	r.Post("/events/delete", h.FileDeleted)

	// Settings.
	r.Get("/settings", h.GetSettings)
	r.Put("/settings", h.UpdateSettings)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
