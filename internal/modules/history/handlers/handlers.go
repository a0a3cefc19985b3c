// Package handlers provides HTTP handlers for stored price history.
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/aristath/backtest/internal/domain"
	"github.com/aristath/backtest/internal/modules/history"
	"github.com/rs/zerolog"
)

const maxUploadBytes = 32 << 20

// PriceHistory reads and writes daily bars.
type PriceHistory interface {
	GetDailyPrices(ctx context.Context, symbol string, start, end time.Time) ([]domain.DailyPrice, error)
	SaveDailyPrices(ctx context.Context, symbol string, prices []domain.DailyPrice) error
	Symbols(ctx context.Context) ([]string, error)
}

// Handler handles price history HTTP requests
type Handler struct {
	history PriceHistory
	log     zerolog.Logger
}

// NewHandler creates a new price history handler
func NewHandler(history PriceHistory, log zerolog.Logger) *Handler {
	return &Handler{
		history: history,
		log:     log.With().Str("handler", "history").Logger(),
	}
}

// HandleListSymbols handles GET /api/history/symbols
func (h *Handler) HandleListSymbols(w http.ResponseWriter, r *http.Request) {
	symbols, err := h.history.Symbols(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list symbols")
		http.Error(w, "Failed to list symbols", http.StatusInternalServerError)
		return
	}
	if symbols == nil {
		symbols = []string{}
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{
			"symbols": symbols,
			"count":   len(symbols),
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// HandleGetDailyPrices handles GET /api/history/prices/{symbol}?start=YYYY-MM-DD&end=YYYY-MM-DD
// Missing bounds default to the whole stored range.
func (h *Handler) HandleGetDailyPrices(w http.ResponseWriter, r *http.Request, symbol string) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))

	start, end, err := parseRange(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	prices, err := h.history.GetDailyPrices(r.Context(), symbol, start, end)
	if err != nil {
		h.log.Error().Err(err).Str("symbol", symbol).Msg("Failed to get daily prices")
		http.Error(w, "Failed to get daily prices", http.StatusInternalServerError)
		return
	}
	if prices == nil {
		prices = []domain.DailyPrice{}
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{
			"symbol": symbol,
			"prices": prices,
			"count":  len(prices),
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// HandleImportPrices handles POST /api/history/prices/{symbol}
// The body is CSV: date,open,high,low,close[,volume]. Invalid rows are
// reported back and skipped; valid rows are upserted in one transaction.
func (h *Handler) HandleImportPrices(w http.ResponseWriter, r *http.Request, symbol string) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" || domain.IsCash(symbol) {
		http.Error(w, "a non-cash symbol is required", http.StatusBadRequest)
		return
	}

	result, err := history.ImportCSV(http.MaxBytesReader(w, r.Body, maxUploadBytes))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if len(result.Prices) > 0 {
		if err := h.history.SaveDailyPrices(r.Context(), symbol, result.Prices); err != nil {
			h.log.Error().Err(err).Str("symbol", symbol).Msg("Failed to save imported prices")
			http.Error(w, "Failed to save prices", http.StatusInternalServerError)
			return
		}
	}

	rejected := make([]map[string]interface{}, 0, len(result.Rejected))
	for _, rej := range result.Rejected {
		rejected = append(rejected, map[string]interface{}{"line": rej.Line, "reason": rej.Reason})
	}

	h.log.Info().
		Str("symbol", symbol).
		Int("imported", len(result.Prices)).
		Int("rejected", len(result.Rejected)).
		Msg("Imported daily prices")

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{
			"symbol":   symbol,
			"imported": len(result.Prices),
			"rejected": rejected,
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

func parseRange(r *http.Request) (time.Time, time.Time, error) {
	start := time.Unix(0, 0).UTC()
	end := time.Now().UTC()

	if s := r.URL.Query().Get("start"); s != "" {
		d, err := domain.ParseDate(s)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		start = d
	}
	if s := r.URL.Query().Get("end"); s != "" {
		d, err := domain.ParseDate(s)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		end = d
	}
	return start, end, nil
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
