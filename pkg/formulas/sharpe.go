package formulas

import (
	"math"
)

// CalculateSharpeRatio calculates the annualized Sharpe Ratio of periodic returns.
//
//	Sharpe = (mean return - periodic risk-free) / stddev × sqrt(periodsPerYear)
//
// Returns nil if there are fewer than two returns or no dispersion.
func CalculateSharpeRatio(returns []float64, riskFreeRate float64, periodsPerYear int) *float64 {
	if len(returns) < 2 {
		return nil
	}

	stdDev := StdDev(returns)
	if stdDev == 0 {
		return nil
	}

	periodicRiskFree := riskFreeRate / float64(periodsPerYear)
	sharpe := (Mean(returns) - periodicRiskFree) / stdDev * math.Sqrt(float64(periodsPerYear))

	return &sharpe
}

// AnnualSharpe is the portfolio-report variant: annual return over annual
// volatility (both in percent, risk-free rate 0). Zero volatility yields 0.
func AnnualSharpe(annualReturnPct, annualVolatilityPct float64) float64 {
	if annualVolatilityPct <= 0 {
		return 0
	}
	return SafeRatio(annualReturnPct, annualVolatilityPct)
}
