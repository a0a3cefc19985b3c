package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all price history routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/history", func(r chi.Router) {
		r.Get("/symbols", h.HandleListSymbols)

		r.Route("/prices", func(r chi.Router) {
			r.Get("/{symbol}", func(w http.ResponseWriter, r *http.Request) {
				h.HandleGetDailyPrices(w, r, chi.URLParam(r, "symbol"))
			})
			r.Post("/{symbol}", func(w http.ResponseWriter, r *http.Request) {
				h.HandleImportPrices(w, r, chi.URLParam(r, "symbol"))
			})
		})
	})
}
