package portfolio

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/aristath/backtest/internal/domain"
	"github.com/aristath/backtest/pkg/formulas"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// itemOutcome is the write-once slot of one position in the strategy fan-out.
type itemOutcome struct {
	result BacktestResult
	ok     bool
}

// runStrategy delegates every non-cash position to the single-asset engine and
// aggregates the survivors by amount. Failed positions are excluded and the
// weights are re-normalized over the surviving amount.
func (s *PortfolioService) runStrategy(ctx context.Context, log zerolog.Logger, req Request, strategy string, positions []Position, total float64) (*Result, error) {
	start, end := domain.Day(req.StartDate), domain.Day(req.EndDate)
	outcomes := make([]itemOutcome, len(positions))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	delegated := 0
	for i, p := range positions {
		if p.IsCash() {
			outcomes[i] = itemOutcome{result: BacktestResult{FinalValue: p.Amount}, ok: true}
			continue
		}
		delegated++
		g.Go(func() error {
			res, err := s.backtester.Run(gctx, BacktestRequest{
				Symbol:     p.Symbol,
				StartDate:  start,
				EndDate:    end,
				Capital:    p.Amount,
				Strategy:   strategy,
				Params:     req.StrategyParams,
				Commission: req.Commission,
			})
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				log.Error().Err(err).Str("key", p.Key).Str("symbol", p.Symbol).Msg("Strategy backtest failed, excluding item")
				return nil
			}
			outcomes[i] = itemOutcome{result: res, ok: true}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("strategy backtest aborted: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("strategy backtest aborted: %w", err)
	}

	var survivors []Position
	var results []BacktestResult
	var warnings []string
	succeeded := 0
	for i, p := range positions {
		if !outcomes[i].ok {
			warnings = append(warnings, fmt.Sprintf("strategy backtest failed for %s (%s); excluded from aggregation", p.Symbol, p.Key))
			continue
		}
		if !p.IsCash() {
			succeeded++
		}
		survivors = append(survivors, p)
		results = append(results, outcomes[i].result)
	}
	if delegated > 0 && succeeded == 0 {
		return nil, newError(ErrAllItemsFailed, "strategy backtest failed for every portfolio item")
	}

	stats, details, returns, trades := aggregateStrategy(survivors, results, start, end, total)

	rows, source, err := s.reconstructEquityCurve(ctx, log, survivors, start, end, stats.InitialValue, stats.FinalValue)
	if err != nil {
		return nil, err
	}
	curve, daily := curveMaps(rows)

	return &Result{
		Status:                 StatusSuccess,
		Mode:                   ModeStrategy,
		Strategy:               strategy,
		RebalanceFrequency:     req.Frequency(),
		Statistics:             &stats,
		Composition:            composition(positions, total),
		PerItemReturns:         returns,
		StrategyDetails:        details,
		TotalTrades:            trades,
		EquityCurve:            curve,
		DailyReturns:           daily,
		EquityCurveSource:      source,
		EquityCurveApproximate: source == CurvePriceReconstruction || source == CurveLinearInterpolation,
		Warnings:               warnings,
	}, nil
}

// aggregateStrategy combines surviving per-item results into one record.
// Returns are measured against total, the amount of every line item, so a
// failed item counts as lost capital. Win rate, drawdown and Sharpe are
// weighted over the surviving amount. Volatility, streaks and day counts are
// not observable from summaries and stay 0; the average drawdown is
// estimated as half the weighted maximum.
func aggregateStrategy(survivors []Position, results []BacktestResult, start, end time.Time, total float64) (StatisticsRecord, map[string]BacktestResult, map[string]ItemReturn, int) {
	var invested, final float64
	for i, p := range survivors {
		invested += p.Amount
		final += results[i].FinalValue
	}

	details := make(map[string]BacktestResult)
	returns := make(map[string]ItemReturn, len(survivors))
	var winRate, drawdown, sharpe float64
	trades := 0
	for i, p := range survivors {
		r := results[i]
		w := formulas.SafeRatio(p.Amount, invested)
		winRate += w * r.WinRatePct
		drawdown -= w * math.Abs(r.MaxDrawdownPct)
		sharpe += w * r.SharpeRatio
		trades += r.TotalTrades

		returns[p.Key] = ItemReturn{
			Symbol:         p.Symbol,
			InvestmentType: p.InvestmentType,
			Weight:         w,
			Amount:         p.Amount,
			ReturnPct:      (formulas.SafeRatio(r.FinalValue, p.Amount) - 1) * 100,
			InitialValue:   p.Amount,
			FinalValue:     r.FinalValue,
			Trades:         r.TotalTrades,
			WinRatePct:     r.WinRatePct,
			HasPriceData:   !p.IsCash(),
		}
		if !p.IsCash() {
			details[p.Key] = r
		}
	}

	duration := int(end.Sub(start).Hours() / 24)
	growth := formulas.SafeRatio(final, total)
	stats := StatisticsRecord{
		Start:          start.Format(domain.DateLayout),
		End:            end.Format(domain.DateLayout),
		DurationDays:   duration,
		InitialValue:   total,
		FinalValue:     final,
		PeakValue:      math.Max(total, final),
		TotalReturnPct: (growth - 1) * 100,
		SharpeRatio:    sharpe,
		MaxDrawdownPct: drawdown,
		AvgDrawdownPct: drawdown / 2,
		TotalDays:      duration,
		WinRatePct:     winRate,
	}
	if duration > 0 {
		stats.AnnualReturnPct = formulas.AnnualizedReturn(growth, duration) * 100
	}
	return stats, details, returns, trades
}

// reconstructEquityCurve approximates the strategy portfolio's daily value by
// scaling each surviving item along its own price path. When any surviving
// item has no prices the curve is a straight line from initial to final.
func (s *PortfolioService) reconstructEquityCurve(ctx context.Context, log zerolog.Logger, survivors []Position, start, end time.Time, initial, final float64) ([]DailyValuationRow, EquityCurveSource, error) {
	series, _, err := s.loadSeries(ctx, log, survivors, start, end)
	if err != nil {
		return nil, "", err
	}

	nonCash := 0
	for _, p := range survivors {
		if p.IsCash() {
			continue
		}
		nonCash++
		if _, ok := series[p.Symbol]; !ok {
			log.Warn().Str("symbol", p.Symbol).Msg("Missing prices for equity curve, using linear interpolation")
			return linearCurve(start, end, initial, final), CurveLinearInterpolation, nil
		}
	}
	if nonCash == 0 {
		return flatRows(calendarDays(start, end), initial), CurveCashOnly, nil
	}

	axis, err := UnifyDates(series, start, end, false, s.now())
	if err != nil {
		return nil, "", err
	}
	values := make([]float64, len(axis))
	for _, p := range survivors {
		if p.IsCash() {
			for i := range values {
				values[i] += p.Amount
			}
			continue
		}
		ps := series[p.Symbol]
		base, _ := ps.First()
		for i, d := range axis {
			latest, ok := ps.LastOnOrBefore(d)
			if !ok {
				values[i] += p.Amount
				continue
			}
			values[i] += p.Amount * latest.Close / base.Close
		}
	}
	return rowsFromValues(axis, values), CurvePriceReconstruction, nil
}

// linearCurve interpolates every calendar day between initial and final.
func linearCurve(start, end time.Time, initial, final float64) []DailyValuationRow {
	days := calendarDays(start, end)
	values := make([]float64, len(days))
	for i := range days {
		if len(days) == 1 {
			values[i] = final
			continue
		}
		values[i] = initial + (final-initial)*float64(i)/float64(len(days)-1)
	}
	return rowsFromValues(days, values)
}
