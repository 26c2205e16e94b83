package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// buildRouter mounts every route under /api/v1. Resources nest the way
// the registry does: homes hold rooms, rooms hold devices.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(s.withRequestID, s.logRequests, s.recoverPanics, s.allowOrigins, s.limitBody)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		fail(w, http.StatusNotFound, ErrCodeNotFound, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		fail(w, http.StatusMethodNotAllowed, ErrCodeBadRequest, "method not allowed")
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/metrics", s.handleMetrics)
		r.Get("/stats", s.handleStats)
		r.Get("/audit", s.handleListAudit)
		r.Get(s.websocketPath(), s.handleWebSocket)

		r.Route("/homes", func(r chi.Router) {
			r.Get("/", s.handleListHomes)

			r.Route("/{home}", func(r chi.Router) {
				r.Get("/", s.handleGetHome)
				r.Put("/", s.handleCreateHome)
				r.Delete("/", s.handleDeleteHome)

				r.Route("/rooms", func(r chi.Router) {
					r.Get("/", s.handleListRooms)

					r.Route("/{room}", func(r chi.Router) {
						r.Get("/", s.handleGetRoom)
						r.Put("/", s.handleCreateRoom)
						r.Delete("/", s.handleDeleteRoom)

						r.Put("/thermometers", s.handleCreateThermometer)
						r.Put("/sockets", s.handleCreateSocket)

						r.Route("/devices", func(r chi.Router) {
							r.Get("/", s.handleListDevices)

							r.Route("/{device}", func(r chi.Router) {
								r.Get("/", s.handleGetDevice)
								r.Delete("/", s.handleDeleteDevice)
								r.Get("/temperature", s.handleGetTemperature)
								r.Get("/power", s.handleGetPower)
								r.Post("/on", s.handleTurnOn)
								r.Post("/off", s.handleTurnOff)
							})
						})
					})
				})
			})
		})
	})

	return r
}

// handleHealth reports liveness. With the audit store enabled it also
// reports the applied schema version, and a store that cannot answer
// turns the status to degraded.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	body := map[string]any{
		"status":  "ok",
		"version": s.version,
	}
	if s.db != nil {
		version, err := s.db.SchemaVersion(r.Context())
		if err == nil {
			err = s.db.HealthCheck(r.Context())
		}
		if err != nil {
			s.logger.Warn("database health check failed", "error", err)
			body["status"] = "degraded"
		}
		body["schema_version"] = version
	}
	respond(w, http.StatusOK, body)
}

// websocketPath returns the configured WebSocket route, "/ws" by default.
func (s *Server) websocketPath() string {
	if s.wsCfg.Path == "" {
		return "/ws"
	}
	return s.wsCfg.Path
}
