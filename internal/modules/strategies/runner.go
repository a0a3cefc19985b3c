package strategies

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/aristath/backtest/internal/domain"
	"github.com/aristath/backtest/internal/modules/portfolio"
	"github.com/aristath/backtest/pkg/formulas"
	"github.com/rs/zerolog"
)

// ErrNoPriceData is returned when a symbol has no closes in the requested range.
var ErrNoPriceData = errors.New("no price data")

// Runner simulates a registered strategy on one symbol: long-only, fully
// invested on Buy, fully in cash on Sell, commission charged on both legs.
// An open position is liquidated at the last close.
type Runner struct {
	store    domain.PriceSeriesStore
	registry *Registry
	log      zerolog.Logger
}

var _ portfolio.SingleAssetBacktest = (*Runner)(nil)

// NewRunner creates a new strategy runner
func NewRunner(store domain.PriceSeriesStore, registry *Registry, log zerolog.Logger) *Runner {
	return &Runner{
		store:    store,
		registry: registry,
		log:      log.With().Str("component", "strategy_runner").Logger(),
	}
}

// HasStrategy reports whether name is registered.
func (r *Runner) HasStrategy(name string) bool {
	return r.registry.Has(name)
}

// Run backtests req.Strategy on req.Symbol with req.Capital.
func (r *Runner) Run(ctx context.Context, req portfolio.BacktestRequest) (portfolio.BacktestResult, error) {
	strategy, err := r.registry.New(req.Strategy, req.Params)
	if err != nil {
		return portfolio.BacktestResult{}, err
	}

	series, err := r.store.LoadSeries(ctx, req.Symbol, req.StartDate, req.EndDate)
	if err != nil {
		return portfolio.BacktestResult{}, fmt.Errorf("failed to load prices for %s: %w", req.Symbol, err)
	}
	if series.Empty() {
		return portfolio.BacktestResult{}, fmt.Errorf("%w for %s", ErrNoPriceData, req.Symbol)
	}
	if err := ctx.Err(); err != nil {
		return portfolio.BacktestResult{}, err
	}

	closes := series.Closes()
	result := Simulate(closes, strategy.Signals(closes), req.Capital, req.Commission)

	r.log.Debug().
		Str("symbol", req.Symbol).
		Str("strategy", strategy.Name()).
		Int("bars", len(closes)).
		Int("trades", result.TotalTrades).
		Float64("final_value", result.FinalValue).
		Msg("Strategy backtest finished")
	return result, nil
}

// Simulate replays signals over closes. Signals beyond len(closes) are ignored.
func Simulate(closes []float64, signals []Signal, capital, commission float64) portfolio.BacktestResult {
	cash := capital
	shares := 0.0
	entryCost := 0.0
	trades, wins := 0, 0
	equity := make([]float64, len(closes))

	exit := func(price float64) {
		proceeds := shares * price * (1 - commission)
		if proceeds > entryCost {
			wins++
		}
		trades++
		cash, shares = proceeds, 0
	}

	for i, price := range closes {
		signal := Hold
		if i < len(signals) {
			signal = signals[i]
		}
		switch {
		case signal == Buy && shares == 0 && cash > 0:
			entryCost = cash
			shares = cash * (1 - commission) / price
			cash = 0
		case signal == Sell && shares > 0:
			exit(price)
		}
		equity[i] = cash + shares*price
	}
	if shares > 0 && len(closes) > 0 {
		exit(closes[len(closes)-1])
		equity[len(equity)-1] = cash
	}

	result := portfolio.BacktestResult{
		FinalValue:     cash,
		TotalTrades:    trades,
		WinRatePct:     formulas.SafeRatio(float64(wins), float64(trades)) * 100,
		MaxDrawdownPct: math.Abs(formulas.MaxDrawdownPct(formulas.DrawdownSeries(equity))),
	}
	if sharpe := formulas.CalculateSharpeRatio(formulas.CalculateReturns(equity), 0, formulas.TradingDaysPerYear); sharpe != nil {
		result.SharpeRatio = *sharpe
	}
	return result
}
