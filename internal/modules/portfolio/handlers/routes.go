package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all portfolio routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/portfolio", func(r chi.Router) {
		r.Post("/backtest", h.HandleBacktest) // Buy-and-hold or strategy backtest
	})
	r.Get("/strategies", h.HandleListStrategies) // Registered strategy names
}
