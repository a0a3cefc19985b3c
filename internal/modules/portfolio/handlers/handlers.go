// Package handlers provides HTTP handlers for portfolio backtests.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/aristath/backtest/internal/domain"
	"github.com/aristath/backtest/internal/modules/portfolio"
	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"
)

const (
	contentTypeJSON    = "application/json"
	contentTypeMsgpack = "application/msgpack"

	maxRequestBytes = 1 << 20

	codeInternal portfolio.ErrorCode = "INTERNAL_ERROR"
)

// Backtester runs portfolio backtests.
type Backtester interface {
	Backtest(ctx context.Context, req portfolio.Request) (*portfolio.Result, error)
}

// StrategyLister lists the registered strategy names.
type StrategyLister interface {
	Names() []string
}

// Handler handles portfolio HTTP requests
type Handler struct {
	service    Backtester
	strategies StrategyLister
	commission float64
	log        zerolog.Logger
}

// NewHandler creates a new portfolio handler. defaultCommission applies to
// requests that do not set a commission.
func NewHandler(service Backtester, strategies StrategyLister, defaultCommission float64, log zerolog.Logger) *Handler {
	return &Handler{
		service:    service,
		strategies: strategies,
		commission: defaultCommission,
		log:        log.With().Str("handler", "portfolio").Logger(),
	}
}

// BacktestRequest is the wire shape of a portfolio backtest request.
type BacktestRequest struct {
	Portfolio          []portfolio.LineItem `json:"portfolio"`
	StartDate          string               `json:"start_date"`
	EndDate            string               `json:"end_date"`
	RebalanceFrequency string               `json:"rebalance_frequency,omitempty"`
	InitialCapital     float64              `json:"initial_capital,omitempty"`
	Strategy           string               `json:"strategy,omitempty"`
	StrategyParams     map[string]float64   `json:"strategy_params,omitempty"`
	Commission         *float64             `json:"commission,omitempty"`
}

func (b BacktestRequest) toRequest(defaultCommission float64) (portfolio.Request, error) {
	start, err := domain.ParseDate(b.StartDate)
	if err != nil {
		return portfolio.Request{}, fmt.Errorf("start_date: %w", err)
	}
	end, err := domain.ParseDate(b.EndDate)
	if err != nil {
		return portfolio.Request{}, fmt.Errorf("end_date: %w", err)
	}
	commission := defaultCommission
	if b.Commission != nil {
		commission = *b.Commission
	}
	return portfolio.Request{
		Items:              b.Portfolio,
		StartDate:          start,
		EndDate:            end,
		RebalanceFrequency: b.RebalanceFrequency,
		InitialCapital:     b.InitialCapital,
		Strategy:           b.Strategy,
		StrategyParams:     b.StrategyParams,
		Commission:         commission,
	}, nil
}

// HandleBacktest runs a portfolio backtest.
// Responds with msgpack when the client accepts application/msgpack.
func (h *Handler) HandleBacktest(w http.ResponseWriter, r *http.Request) {
	var body BacktestRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	if err := dec.Decode(&body); err != nil {
		h.writeFailure(w, r, http.StatusBadRequest, portfolio.ErrInvalidRequest, "invalid request body")
		return
	}

	req, err := body.toRequest(h.commission)
	if err != nil {
		h.writeFailure(w, r, http.StatusBadRequest, portfolio.ErrInvalidRequest, err.Error())
		return
	}

	result, err := h.service.Backtest(r.Context(), req)
	if err != nil {
		var pe *portfolio.Error
		if errors.As(err, &pe) && result != nil {
			h.writeResult(w, r, statusFor(pe.Code), result)
			return
		}
		h.log.Error().Err(err).Msg("Portfolio backtest failed")
		h.writeFailure(w, r, http.StatusInternalServerError, codeInternal, "portfolio backtest failed")
		return
	}

	h.writeResult(w, r, http.StatusOK, result)
}

// HandleListStrategies returns the registered strategy names.
func (h *Handler) HandleListStrategies(w http.ResponseWriter, r *http.Request) {
	names := []string{portfolio.BuyAndHold}
	if h.strategies != nil {
		names = append(names, h.strategies.Names()...)
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{
			"strategies": names,
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

func statusFor(code portfolio.ErrorCode) int {
	switch code {
	case portfolio.ErrInvalidRequest:
		return http.StatusBadRequest
	case portfolio.ErrNoValidData, portfolio.ErrAllItemsFailed:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) writeFailure(w http.ResponseWriter, r *http.Request, status int, code portfolio.ErrorCode, message string) {
	h.writeResult(w, r, status, &portfolio.Result{
		Status: portfolio.StatusError,
		Error:  &portfolio.ErrorInfo{Code: code, Message: message},
	})
}

func (h *Handler) writeResult(w http.ResponseWriter, r *http.Request, status int, result *portfolio.Result) {
	if wantsMsgpack(r) {
		h.writeMsgpack(w, status, result)
		return
	}
	h.writeJSON(w, status, result)
}

func wantsMsgpack(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), contentTypeMsgpack)
}

func (h *Handler) writeMsgpack(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", contentTypeMsgpack)
	w.WriteHeader(status)
	enc := msgpack.NewEncoder(w)
	enc.SetCustomStructTag("json")
	if err := enc.Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode msgpack response")
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
