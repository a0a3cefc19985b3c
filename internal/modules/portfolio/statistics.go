package portfolio

import (
	"github.com/aristath/backtest/internal/domain"
	"github.com/aristath/backtest/pkg/formulas"
)

// CalculateStatistics summarises a daily valuation series. The series is
// normalized by totalAmount internally and monetary fields are reported
// back in the caller's units.
//
// Every ratio with a zero denominator is reported as 0 so degenerate
// windows still produce a complete record.
func CalculateStatistics(rows []DailyValuationRow, totalAmount float64) StatisticsRecord {
	if len(rows) == 0 {
		return StatisticsRecord{}
	}
	if totalAmount <= 0 {
		totalAmount = rows[0].Value
	}

	first, last := rows[0], rows[len(rows)-1]
	duration := int(domain.Day(last.Date).Sub(domain.Day(first.Date)).Hours() / 24)

	normalized := make([]float64, len(rows))
	returns := make([]float64, len(rows))
	peak := 0.0
	for i, r := range rows {
		normalized[i] = formulas.SafeRatio(r.Value, totalAmount)
		returns[i] = r.DailyReturn
		if i == 0 || r.Value > peak {
			peak = r.Value
		}
	}

	growth := formulas.SafeRatio(normalized[len(normalized)-1], normalized[0])
	hasBase := normalized[0] > 0
	annualReturn := 0.0
	if duration > 0 && hasBase {
		annualReturn = formulas.AnnualizedReturn(growth, duration) * 100
	}
	volatility := formulas.AnnualizedVolatility(returns) * 100
	drawdowns := formulas.DrawdownSeries(normalized)

	rec := StatisticsRecord{
		Start:               first.Date.Format(domain.DateLayout),
		End:                 last.Date.Format(domain.DateLayout),
		DurationDays:        duration,
		InitialValue:        first.Value,
		FinalValue:          last.Value,
		PeakValue:           peak,
		AnnualReturnPct:     annualReturn,
		AnnualVolatilityPct: volatility,
		SharpeRatio:         formulas.AnnualSharpe(annualReturn, volatility),
		MaxDrawdownPct:      formulas.MaxDrawdownPct(drawdowns),
		AvgDrawdownPct:      formulas.AvgDrawdownPct(drawdowns),
		TotalDays:           len(rows),
	}
	if hasBase {
		rec.TotalReturnPct = (growth - 1) * 100
	}

	rec.MaxConsecutiveGainDays = formulas.MaxConsecutive(returns, func(r float64) bool { return r > 0 })
	rec.MaxConsecutiveLossDays = formulas.MaxConsecutive(returns, func(r float64) bool { return r <= 0 })
	for _, r := range returns {
		switch {
		case r > 0:
			rec.PositiveDays++
		case r < 0:
			rec.NegativeDays++
		default:
			rec.ZeroDays++
		}
	}
	rec.WinRatePct = formulas.SafeRatio(float64(rec.PositiveDays), float64(rec.TotalDays)) * 100
	return rec
}
