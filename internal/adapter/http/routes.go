package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// MountRoutes registers all API routes on the given chi router.
func MountRoutes(r chi.Router, h *Handlers) {
	r.Get("/health", h.Health)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"version":"0.1.0"}`))
		})

		r.Post("/decisions", h.SubmitDecision)
		r.Post("/decisions/{id}/reevaluate", h.ReevaluateDecision)
		r.Get("/decisions/{id}/latest", h.GetLatestDecision)
		r.Get("/decisions/{id}/versions", h.ListDecisionVersions)
		r.Get("/decisions/{id}/versions/{version}", h.GetDecisionVersion)
		r.Get("/decisions/{id}/compare", h.CompareDecisionVersions)
	})
}
