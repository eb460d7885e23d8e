package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
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
		r.Get("/health", s.handleHealth)
		r.Get("/metrics", s.handleMetrics)

		// Panel state, served from the in-memory snapshot
		r.Get("/snapshot", s.handleSnapshot)
		r.Get("/state/{kind}", s.handleStateKind)
		r.Get("/temperatures", s.handleTemperatures)
		r.Get("/temperatures/{zone}", s.handleTemperatureZone)

		// Event journal
		r.Get("/events", s.handleListEvents)

		// WebSocket for live state and event relay
		r.Get("/ws", s.handleWebSocket)
	})

	return r
}

// handleHealth returns the server health status and the panel link state.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":          "ok",
		"version":         s.version,
		"panel_connected": s.panel.IsConnected(),
	})
}
