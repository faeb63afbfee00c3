package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// buildRouter assembles the chi router: global middleware first, the
// open system endpoints, then the token-guarded API surface.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(s.withRequestID)
	r.Use(s.withRequestLog)
	r.Use(s.withRecovery)
	r.Use(s.withCORS)
	r.Use(s.withBodyLimit)

	r.Route("/api/v1", func(r chi.Router) {
		// System endpoints stay open so monitoring works without credentials.
		r.Route("/system", func(r chi.Router) {
			r.Get("/health", s.handleHealth)
			r.Get("/metrics", s.handleSystemMetrics)
			r.Get("/info", s.handleSystemInfo)
		})

		r.Group(func(r chi.Router) {
			r.Use(s.withAuth)

			r.Route("/fans", func(r chi.Router) {
				r.Get("/", s.handleListFans)

				r.Route("/{fanID}", func(r chi.Router) {
					r.Get("/", s.handleGetFan)
					r.Post("/turn_on", s.handleTurnOn)
					r.Post("/turn_off", s.handleTurnOff)
					r.Post("/percentage", s.handleSetPercentage)
					r.Post("/oscillate", s.handleOscillate)
					r.Post("/direction", s.handleSetDirection)
					r.Get("/history", s.handleGetFanHistory)
				})
			})

			// WebSocket; the token may arrive as a query parameter, see withAuth.
			r.Get("/ws", s.handleWebSocket)
		})
	})

	return r
}

// handleHealth answers liveness probes.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
	})
}
