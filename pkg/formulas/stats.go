// Package formulas holds the numeric building blocks used by the valuation and
// statistics code: return series, dispersion, annualisation and drawdowns.
package formulas

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// TradingDaysPerYear is the annualisation factor for daily volatility.
const TradingDaysPerYear = 252

// DaysPerYear is the calendar annualisation factor for compounded returns.
const DaysPerYear = 365.25

// Mean calculates the arithmetic mean of a slice of float64 values
func Mean(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	return stat.Mean(data, nil)
}

// StdDev calculates the sample standard deviation of a slice of float64 values.
// Fewer than two observations have no dispersion and yield 0.
func StdDev(data []float64) float64 {
	if len(data) < 2 {
		return 0
	}
	sd := stat.StdDev(data, nil)
	if math.IsNaN(sd) {
		return 0
	}
	return sd
}

// AnnualizedVolatility calculates annualized volatility from daily returns
// Formula: Std Dev of Daily Returns × sqrt(252 trading days)
func AnnualizedVolatility(dailyReturns []float64) float64 {
	return StdDev(dailyReturns) * math.Sqrt(TradingDaysPerYear)
}

// CalculateReturns converts a value series to fractional returns.
// Returns[i] = (Value[i] - Value[i-1]) / Value[i-1]; a zero previous value yields 0.
func CalculateReturns(values []float64) []float64 {
	if len(values) < 2 {
		return []float64{}
	}

	returns := make([]float64, len(values)-1)
	for i := 1; i < len(values); i++ {
		if values[i-1] != 0 {
			returns[i-1] = (values[i] - values[i-1]) / values[i-1]
		}
	}

	return returns
}

// AnnualizedReturn compounds a growth factor (final / initial) over a number of
// calendar days into a yearly rate: growth^(365.25/days) - 1.
// Non-positive durations yield 0 so single-day windows stay well defined.
func AnnualizedReturn(growth float64, days int) float64 {
	if days <= 0 {
		return 0
	}
	if growth <= 0 {
		return -1
	}
	return math.Pow(growth, DaysPerYear/float64(days)) - 1
}

// SafeRatio divides a by b, returning 0 when b is zero or the result is not finite.
func SafeRatio(a, b float64) float64 {
	if b == 0 {
		return 0
	}
	r := a / b
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return 0
	}
	return r
}

// MaxConsecutive returns the longest run of values satisfying match,
// scanning the series once and resetting on every non-matching value.
func MaxConsecutive(values []float64, match func(float64) bool) int {
	longest := 0
	current := 0
	for _, v := range values {
		if match(v) {
			current++
			if current > longest {
				longest = current
			}
		} else {
			current = 0
		}
	}
	return longest
}
