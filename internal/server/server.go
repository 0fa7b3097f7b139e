// Package server exposes the bridge operations over HTTP/JSON.
package server

import (
	"log/slog"
	"net/http"

	"github.com/claude/healthbridge/internal/bridge"
	"github.com/claude/healthbridge/internal/ingest"
	"github.com/go-chi/chi/v5"
)

// Server holds dependencies for HTTP handlers.
type Server struct {
	bridge *bridge.Bridge
	ingest *ingest.Provider
	log    *slog.Logger
	apiKey string
	router chi.Router
}

// New creates a new Server with all routes configured.
func New(b *bridge.Bridge, provider *ingest.Provider, apiKey string, log *slog.Logger) *Server {
	s := &Server{
		bridge: b,
		ingest: provider,
		log:    log,
		apiKey: apiKey,
		router: chi.NewRouter(),
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.router.Use(RequestLogging(s.log))
	s.router.Use(CORS)

	// Query endpoints (no auth — tsnet handles access)
	s.router.Get("/api/v1/availability", s.handleAvailability)
	s.router.Post("/api/v1/permissions/check", s.handleCheckPermissions)
	s.router.Post("/api/v1/permissions/request", s.handleRequestPermissions)
	s.router.Post("/api/v1/settings/open", s.handleOpenSettings)
	s.router.Get("/api/v1/samples/latest", s.handleLatestSample)
	s.router.Post("/api/v1/aggregated", s.handleAggregated)
	s.router.Post("/api/v1/workouts/query", s.handleQueryWorkouts)

	// Mutating endpoints (API key required)
	s.router.Group(func(r chi.Router) {
		r.Use(APIKeyAuth(s.apiKey))
		r.Post("/api/v1/workouts", s.handleSaveWorkout)
		r.Post("/api/v1/metrics", s.handleSaveMetrics)
		r.Post("/api/v1/ingest", s.handleIngest)
	})
}
