package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter assembles the API routes. Middleware is supplied by the
// caller so the server wiring owns the stack order.
func NewRouter(
	sessions SessionHandler,
	catalog CatalogHandler,
	health HealthHandler,
	middleware ...func(http.Handler) http.Handler,
) chi.Router {
	r := chi.NewRouter()
	for _, mw := range middleware {
		r.Use(mw)
	}

	r.Get("/healthz", health.Check)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/sessions", func(r chi.Router) {
			r.Post("/", sessions.CreateSession)
			r.Get("/{id}", sessions.GetSession)
			r.Get("/{id}/history", sessions.GetHistory)
			r.Post("/{id}/messages", sessions.PostMessage)
		})
		r.Route("/catalog", func(r chi.Router) {
			r.Get("/tables", catalog.ListTables)
			r.Get("/tables/{schema}/{table}/columns", catalog.ListColumns)
		})
	})

	return r
}
