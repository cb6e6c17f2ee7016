// Package http is the agent's local facade: the HTTP surface the on-device
// UI talks to. It never faces the network; the shipment backend is reached
// through the authenticated pipeline instead.
package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/PrabinKa/ShipMate/pkg/health"
	"github.com/PrabinKa/ShipMate/pkg/middleware"
)

// NewRouter creates a chi router with all agent routes registered.
func NewRouter(
	orders *OrderHandler,
	sessions *SessionHandler,
	connectivity *ConnectivityHandler,
	tracking *TrackingHandler,
	healthHandler *health.Handler,
	logger *slog.Logger,
) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Tracing())
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.PrometheusMetrics())

	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/orders", func(r chi.Router) {
			r.Post("/", orders.Create)
			r.Get("/", orders.List)
			r.Post("/sync", orders.Sync)
		})

		r.Route("/session", func(r chi.Router) {
			r.Post("/login", sessions.Login)
			r.Post("/logout", sessions.Logout)
			r.Get("/", sessions.Status)
		})

		r.Route("/connectivity", func(r chi.Router) {
			r.Get("/", connectivity.Get)
			r.Put("/", connectivity.Put)
		})

		r.Get("/tracking/last", tracking.Last)
	})

	return r
}
