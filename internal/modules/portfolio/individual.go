package portfolio

import (
	"time"

	"github.com/aristath/backtest/internal/domain"
	"github.com/aristath/backtest/pkg/formulas"
)

// itemReturns reports how each buy-and-hold position performed on its own.
// DCA positions are measured against their average cost per share.
func itemReturns(positions []Position, series map[string]domain.PriceSeries, start, end time.Time, total float64) map[string]ItemReturn {
	out := make(map[string]ItemReturn, len(positions))
	for _, p := range positions {
		r := ItemReturn{
			Symbol:         p.Symbol,
			InvestmentType: p.InvestmentType,
			DCAPeriods:     p.DCAPeriods,
			Weight:         formulas.SafeRatio(p.Amount, total),
			Amount:         p.Amount,
			InitialValue:   p.Amount,
			FinalValue:     p.Amount,
		}

		if p.IsCash() {
			r.StartPrice, r.EndPrice = 1, 1
			r.HasPriceData = true
			out[p.Key] = r
			continue
		}

		s, ok := series[p.Symbol]
		first, okFirst := s.FirstOnOrAfter(start)
		last, okLast := s.LastOnOrBefore(end)
		if !ok || !okFirst || !okLast {
			out[p.Key] = r
			continue
		}

		r.HasPriceData = true
		r.EndPrice = last.Close
		if p.InvestmentType == DCA {
			r.StartPrice = averageCost(p, s, start)
			r.FinalValue = dcaValuer(p, s, start)(end)
		} else {
			r.StartPrice = first.Close
			r.FinalValue = lumpSumValuer(p, s, start)(end)
		}
		if r.StartPrice > 0 {
			r.ReturnPct = (r.EndPrice/r.StartPrice - 1) * 100
		}
		out[p.Key] = r
	}
	return out
}
