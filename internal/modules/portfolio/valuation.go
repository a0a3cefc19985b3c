package portfolio

import (
	"fmt"
	"time"

	"github.com/aristath/backtest/internal/domain"
	"github.com/aristath/backtest/pkg/formulas"
)

// installmentStep is the fixed spacing between DCA installments. Installments
// drift away from calendar month boundaries over long schedules.
const installmentStep = 30

// Valuation is the output of the valuation engine for one request.
type Valuation struct {
	Rows []DailyValuationRow
	// Missing lists the keys of non-cash positions without any price data.
	Missing  []string
	Warnings []string
}

// ValuePortfolio values every position on every date of the axis and sums
// them into one daily portfolio series.
func ValuePortfolio(positions []Position, series map[string]domain.PriceSeries, axis []time.Time, start time.Time) (*Valuation, error) {
	start = domain.Day(start)
	out := &Valuation{}

	valuers := make([]func(time.Time) float64, 0, len(positions))
	for _, p := range positions {
		if p.IsCash() {
			valuers = append(valuers, cashValuer(p))
			continue
		}
		s := series[p.Symbol]
		if s.Empty() {
			out.Missing = append(out.Missing, p.Key)
			out.Warnings = append(out.Warnings,
				fmt.Sprintf("no price data for %s (%s); carried at invested amount", p.Symbol, p.Key))
			valuers = append(valuers, cashValuer(p))
			continue
		}
		if p.InvestmentType == DCA {
			valuers = append(valuers, dcaValuer(p, s, start))
		} else {
			valuers = append(valuers, lumpSumValuer(p, s, start))
		}
	}

	if len(out.Missing) == len(positions) {
		return nil, newError(ErrNoValidData, "no price data for any portfolio item")
	}

	values := make([]float64, len(axis))
	for i, d := range axis {
		for _, value := range valuers {
			values[i] += value(d)
		}
	}
	out.Rows = rowsFromValues(axis, values)
	return out, nil
}

func cashValuer(p Position) func(time.Time) float64 {
	return func(time.Time) float64 { return p.Amount }
}

func lumpSumValuer(p Position, s domain.PriceSeries, start time.Time) func(time.Time) float64 {
	entry, ok := s.FirstOnOrAfter(start)
	if !ok {
		return cashValuer(p)
	}
	shares := p.Amount / entry.Close
	return func(d time.Time) float64 {
		latest, ok := s.LastOnOrBefore(d)
		if !ok {
			return p.Amount
		}
		return shares * latest.Close
	}
}

// dcaValuer buys one installment at the first close on or after each
// installment date once its calendar month has been reached. Capital that is
// not yet invested is held as cash.
func dcaValuer(p Position, s domain.PriceSeries, start time.Time) func(time.Time) float64 {
	installment := p.InstallmentAmount()
	prices := make([]float64, p.DCAPeriods)
	for k := range prices {
		if pt, ok := s.FirstOnOrAfter(start.AddDate(0, 0, installmentStep*k)); ok {
			prices[k] = pt.Close
		}
	}

	return func(d time.Time) float64 {
		latest, ok := s.LastOnOrBefore(d)
		if !ok {
			return p.Amount
		}
		matured := monthsBetween(start, d) + 1
		if matured > p.DCAPeriods {
			matured = p.DCAPeriods
		}
		var shares, invested float64
		for k := 0; k < matured; k++ {
			if prices[k] <= 0 {
				continue
			}
			shares += installment / prices[k]
			invested += installment
		}
		return shares*latest.Close + (p.Amount - invested)
	}
}

// monthsBetween counts calendar month boundaries from start to d, never negative.
func monthsBetween(start, d time.Time) int {
	months := (d.Year()-start.Year())*12 + int(d.Month()) - int(start.Month())
	if months < 0 {
		return 0
	}
	return months
}

// Values returns the monetary value column of the rows.
func Values(rows []DailyValuationRow) []float64 {
	values := make([]float64, len(rows))
	for i, r := range rows {
		values[i] = r.Value
	}
	return values
}

// averageCost is the mean price paid per share over a DCA schedule, or 0
// when no installment could be priced.
func averageCost(p Position, s domain.PriceSeries, start time.Time) float64 {
	installment := p.InstallmentAmount()
	var shares, invested float64
	for k := 0; k < p.DCAPeriods; k++ {
		pt, ok := s.FirstOnOrAfter(domain.Day(start).AddDate(0, 0, installmentStep*k))
		if !ok {
			continue
		}
		shares += installment / pt.Close
		invested += installment
	}
	return formulas.SafeRatio(invested, shares)
}
