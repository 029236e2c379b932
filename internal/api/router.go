package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/ember-ui/internal/assets"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		// Health check (no auth required)
		r.Get("/health", s.handleHealth)

		// Auth endpoints (no auth required)
		r.Post("/auth/login", s.handleLogin)

		// Read-only control listing is open: panels render before login.
		r.Get("/controls", s.handleListControls)
		r.Get("/controls/{id}", s.handleGetControl)

		// WebSocket (auth via single-use ticket, validated in handler)
		r.Get("/ws", s.handleWebSocket)

		// Ticket minting follows the auth setting: with auth on, only
		// logged-in callers get tickets; with auth off it is open so
		// the stock panel script works unchanged.
		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)

			r.Post("/auth/ws-ticket", s.handleWSTicket)

			r.Post("/controls", s.handleCreateControl)
			r.Patch("/controls/{id}", s.handleUpdateControl)
			r.Delete("/controls/{id}", s.handleDeleteControl)
			r.Put("/controls/{id}/value", s.handleSetControlValue)
		})
	})

	// Panel UI (embedded, gzip-negotiating) at the root. Chi's wildcard
	// keeps /api and /ws routing ahead of the catch-all.
	r.Handle("/*", assets.Handler(s.bundle, s.assetsCfg.DevDir, s.assetsCfg.MaxAge))

	return r
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"version":  s.version,
		"controls": s.registry.Count(),
		"clients":  s.hub.ClientCount(),
	})
}
