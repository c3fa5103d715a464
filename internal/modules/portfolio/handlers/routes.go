package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all portfolio routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/portfolio", func(r chi.Router) {
		r.Get("/positions", h.HandleListPositions)
		r.Post("/positions", h.HandleCreatePosition)
		r.Put("/positions/{id}", h.HandleUpdatePosition)
		r.Delete("/positions/{id}", h.HandleDeletePosition)

		r.Get("/valuation", h.HandleValuation)
		r.Get("/analytics", h.HandleAnalytics)
	})
}
