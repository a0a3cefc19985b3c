package portfolio

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aristath/backtest/internal/domain"
	"github.com/aristath/backtest/internal/utils"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// SingleAssetBacktest runs a named trading strategy against one symbol.
type SingleAssetBacktest interface {
	HasStrategy(name string) bool
	Run(ctx context.Context, req BacktestRequest) (BacktestResult, error)
}

// Config tunes the portfolio service.
type Config struct {
	// StrategyConcurrency bounds the number of concurrent per-item strategy backtests.
	StrategyConcurrency int
	// Now is the processing clock; defaults to time.Now.
	Now func() time.Time
}

// PortfolioService runs portfolio backtests.
//
// Responsibilities:
//   - Validate requests and resolve line items into keyed positions
//   - Buy-and-hold: unify date axes, value every position daily, compute statistics
//   - Strategy mode: delegate each position to the single-asset engine and aggregate
//
// Dependencies:
//   - domain.PriceSeriesStore: closing prices per symbol
//   - SingleAssetBacktest: strategy engine (optional; strategy mode is rejected without it)
type PortfolioService struct {
	store       domain.PriceSeriesStore
	backtester  SingleAssetBacktest
	concurrency int
	now         func() time.Time
	log         zerolog.Logger
}

// NewPortfolioService creates a new portfolio service
func NewPortfolioService(store domain.PriceSeriesStore, backtester SingleAssetBacktest, cfg Config, log zerolog.Logger) *PortfolioService {
	concurrency := cfg.StrategyConcurrency
	if concurrency <= 0 {
		concurrency = 4
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &PortfolioService{
		store:       store,
		backtester:  backtester,
		concurrency: concurrency,
		now:         now,
		log:         log.With().Str("service", "portfolio").Logger(),
	}
}

// Backtest runs one portfolio request to completion.
//
// Request-level failures are returned as *Error together with an error
// result carrying the run ID. Any other error (cancellation, store
// failures that abort the run) is returned with a nil result.
func (s *PortfolioService) Backtest(ctx context.Context, req Request) (*Result, error) {
	runID := uuid.New().String()
	strategy := req.StrategyName()
	log := s.log.With().Str("run_id", runID).Str("strategy", strategy).Logger()
	defer utils.OperationTimer("portfolio_backtest", log)()

	result, err := s.backtest(ctx, log, req, strategy)
	if err != nil {
		var pe *Error
		if errors.As(err, &pe) {
			log.Warn().Str("code", string(pe.Code)).Msg(pe.Message)
			return ErrorResult(runID, pe), pe
		}
		return nil, err
	}

	result.RunID = runID
	log.Info().
		Int("items", len(req.Items)).
		Float64("total_return_pct", result.Statistics.TotalReturnPct).
		Str("curve", string(result.EquityCurveSource)).
		Msg("Portfolio backtest completed")
	return result, nil
}

func (s *PortfolioService) backtest(ctx context.Context, log zerolog.Logger, req Request, strategy string) (*Result, error) {
	positions, total, err := req.Positions()
	if err != nil {
		return nil, err
	}

	if strategy != BuyAndHold {
		if s.backtester == nil || !s.backtester.HasStrategy(strategy) {
			return nil, newError(ErrInvalidRequest, "unknown strategy %q", strategy)
		}
		return s.runStrategy(ctx, log, req, strategy, positions, total)
	}
	return s.runBuyAndHold(ctx, log, req, positions, total)
}

func (s *PortfolioService) runBuyAndHold(ctx context.Context, log zerolog.Logger, req Request, positions []Position, total float64) (*Result, error) {
	start, end := domain.Day(req.StartDate), domain.Day(req.EndDate)

	series, warnings, err := s.loadSeries(ctx, log, positions, start, end)
	if err != nil {
		return nil, err
	}
	hasCash := containsCash(positions)

	result := &Result{
		Status:             StatusSuccess,
		Mode:               ModeBuyAndHold,
		Strategy:           BuyAndHold,
		RebalanceFrequency: req.Frequency(),
		Composition:        composition(positions, total),
	}

	var rows []DailyValuationRow
	if len(series) == 0 {
		if !hasCash {
			return nil, newError(ErrNoValidData, "no price data for any portfolio item")
		}
		for _, p := range positions {
			if !p.IsCash() {
				warnings = append(warnings, fmt.Sprintf("no price data for %s (%s); carried at invested amount", p.Symbol, p.Key))
			}
		}
		rows = flatRows(calendarDays(start, end), total)
		result.EquityCurveSource = CurveCashOnly
	} else {
		axis, err := UnifyDates(series, start, end, hasCash, s.now())
		if err != nil {
			return nil, err
		}
		valuation, err := ValuePortfolio(positions, series, axis, start)
		if err != nil {
			return nil, err
		}
		rows = valuation.Rows
		warnings = append(warnings, valuation.Warnings...)
		result.EquityCurveSource = CurveValuation
	}

	stats := CalculateStatistics(rows, total)
	result.Statistics = &stats
	result.PerItemReturns = itemReturns(positions, series, start, end, total)
	result.EquityCurve, result.DailyReturns = curveMaps(rows)
	result.Warnings = warnings
	return result, nil
}

// loadSeries fetches each distinct non-cash symbol once. Symbols without data
// in range are left out of the returned map; store failures are downgraded to
// warnings unless the request itself was cancelled.
func (s *PortfolioService) loadSeries(ctx context.Context, log zerolog.Logger, positions []Position, start, end time.Time) (map[string]domain.PriceSeries, []string, error) {
	series := make(map[string]domain.PriceSeries)
	seen := make(map[string]bool)
	var warnings []string

	for _, p := range positions {
		if p.IsCash() || seen[p.Symbol] {
			continue
		}
		seen[p.Symbol] = true

		loaded, err := s.store.LoadSeries(ctx, p.Symbol, start, end)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, nil, fmt.Errorf("failed to load prices for %s: %w", p.Symbol, ctxErr)
			}
			log.Error().Err(err).Str("symbol", p.Symbol).Msg("Failed to load price series")
			warnings = append(warnings, fmt.Sprintf("price store failed for %s", p.Symbol))
			continue
		}
		loaded = loaded.Between(start, end)
		if loaded.Empty() {
			log.Debug().Str("symbol", p.Symbol).Msg("No price data in range")
			continue
		}
		series[p.Symbol] = loaded
	}
	return series, warnings, nil
}

func containsCash(positions []Position) bool {
	for _, p := range positions {
		if p.IsCash() {
			return true
		}
	}
	return false
}

func composition(positions []Position, total float64) []CompositionEntry {
	entries := make([]CompositionEntry, len(positions))
	for i, p := range positions {
		entries[i] = CompositionEntry{
			Key:            p.Key,
			Symbol:         p.Symbol,
			Weight:         p.Amount / total,
			Amount:         p.Amount,
			InvestmentType: p.InvestmentType,
			DCAPeriods:     p.DCAPeriods,
		}
	}
	return entries
}

func flatRows(days []time.Time, value float64) []DailyValuationRow {
	rows := make([]DailyValuationRow, len(days))
	for i, d := range days {
		rows[i] = DailyValuationRow{Date: d, Value: value}
	}
	return rows
}

// rowsFromValues rebuilds valuation rows, with daily returns, from a value series.
func rowsFromValues(days []time.Time, values []float64) []DailyValuationRow {
	rows := make([]DailyValuationRow, len(days))
	for i, d := range days {
		rows[i] = DailyValuationRow{Date: d, Value: values[i]}
		if i > 0 && values[i-1] != 0 {
			rows[i].DailyReturn = (values[i] - values[i-1]) / values[i-1]
		}
	}
	return rows
}

func curveMaps(rows []DailyValuationRow) (map[string]float64, map[string]float64) {
	curve := make(map[string]float64, len(rows))
	returns := make(map[string]float64, len(rows))
	for _, r := range rows {
		key := r.Date.Format(domain.DateLayout)
		curve[key] = r.Value
		returns[key] = r.DailyReturn * 100
	}
	return curve, returns
}
