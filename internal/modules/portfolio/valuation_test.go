package portfolio

import (
	"testing"
	"time"

	"github.com/aristath/backtest/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// steppedSeries closes at 10 through January 2024 and at 20 afterwards.
func steppedSeries(symbol string) domain.PriceSeries {
	var points []domain.PricePoint
	for d := day("2024-01-01"); d.Before(day("2024-04-01")); d = d.AddDate(0, 0, 1) {
		c := 20.0
		if d.Month() == time.January {
			c = 10
		}
		points = append(points, domain.PricePoint{Date: d, Close: c})
	}
	return domain.NewPriceSeries(symbol, points)
}

func TestValuePortfolio_LumpSum(t *testing.T) {
	series := map[string]domain.PriceSeries{
		"AAPL": dailySeries("AAPL", "2024-01-02", 50, 55, 45),
	}
	positions := []Position{{Key: "AAPL_0", Symbol: "AAPL", Amount: 1000, InvestmentType: LumpSum}}
	axis := []time.Time{day("2024-01-01"), day("2024-01-02"), day("2024-01-03"), day("2024-01-04"), day("2024-01-06")}

	valuation, err := ValuePortfolio(positions, series, axis, day("2024-01-01"))
	require.NoError(t, err)

	values := Values(valuation.Rows)
	// Before the first bar the position is carried at its amount.
	assert.InDeltaSlice(t, []float64{1000, 1000, 1100, 900, 900}, values, 1e-9)
	assert.InDelta(t, 0.1, valuation.Rows[2].DailyReturn, 1e-12)
	assert.Equal(t, 0.0, valuation.Rows[0].DailyReturn)
	assert.Empty(t, valuation.Missing)
}

func TestValuePortfolio_DCAInstallments(t *testing.T) {
	series := map[string]domain.PriceSeries{"VTI": steppedSeries("VTI")}
	positions := []Position{{Key: "VTI_0", Symbol: "VTI", Amount: 3000, InvestmentType: DCA, DCAPeriods: 3}}
	axis := []time.Time{day("2024-01-15"), day("2024-02-10"), day("2024-03-05")}

	valuation, err := ValuePortfolio(positions, series, axis, day("2024-01-01"))
	require.NoError(t, err)

	// Installments are dated Jan 1, Jan 31 and Mar 1 and buy 100, 100 and 50 shares.
	assert.InDeltaSlice(t, []float64{
		100*10 + 2000,
		200*20 + 1000,
		250 * 20,
	}, Values(valuation.Rows), 1e-9)
}

func TestValuePortfolio_DCAOnePeriodMatchesLumpSum(t *testing.T) {
	series := map[string]domain.PriceSeries{
		"AAPL": dailySeries("AAPL", "2024-01-03", 101.3, 99.7, 104.1, 97.2, 110.9),
	}
	var axis []time.Time
	for d := day("2024-01-01"); !d.After(day("2024-01-09")); d = d.AddDate(0, 0, 1) {
		axis = append(axis, d)
	}
	start := day("2024-01-01")

	lump, err := ValuePortfolio([]Position{{Key: "AAPL_0", Symbol: "AAPL", Amount: 1234.5, InvestmentType: LumpSum}}, series, axis, start)
	require.NoError(t, err)
	dca, err := ValuePortfolio([]Position{{Key: "AAPL_0", Symbol: "AAPL", Amount: 1234.5, InvestmentType: DCA, DCAPeriods: 1}}, series, axis, start)
	require.NoError(t, err)

	assert.Equal(t, lump.Rows, dca.Rows)
}

func TestValuePortfolio_MissingSeries(t *testing.T) {
	series := map[string]domain.PriceSeries{
		"AAPL": dailySeries("AAPL", "2024-01-01", 100, 120),
	}
	positions := []Position{
		{Key: "AAPL_0", Symbol: "AAPL", Amount: 1000, InvestmentType: LumpSum},
		{Key: "GONE_1", Symbol: "GONE", Amount: 500, InvestmentType: LumpSum},
	}
	axis := []time.Time{day("2024-01-01"), day("2024-01-02")}

	valuation, err := ValuePortfolio(positions, series, axis, day("2024-01-01"))
	require.NoError(t, err)

	assert.Equal(t, []string{"GONE_1"}, valuation.Missing)
	assert.Len(t, valuation.Warnings, 1)
	assert.InDeltaSlice(t, []float64{1500, 1700}, Values(valuation.Rows), 1e-9)

	_, err = ValuePortfolio(positions[1:], series, axis, day("2024-01-01"))
	assert.Equal(t, ErrNoValidData, CodeOf(err))
}

func TestMonthsBetween(t *testing.T) {
	tests := []struct {
		start, end string
		expected   int
	}{
		{"2024-01-15", "2024-01-31", 0},
		{"2024-01-31", "2024-02-01", 1},
		{"2024-01-15", "2025-03-01", 14},
		{"2024-05-01", "2024-03-01", 0},
	}
	for _, tt := range tests {
		t.Run(tt.start+"_"+tt.end, func(t *testing.T) {
			assert.Equal(t, tt.expected, monthsBetween(day(tt.start), day(tt.end)))
		})
	}
}

func TestAverageCost(t *testing.T) {
	p := Position{Symbol: "VTI", Amount: 3000, InvestmentType: DCA, DCAPeriods: 3}
	// 250 shares for 3000.
	assert.InDelta(t, 12.0, averageCost(p, steppedSeries("VTI"), day("2024-01-01")), 1e-9)
}
