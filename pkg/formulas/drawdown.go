package formulas

// DrawdownSeries returns, for every point, the percentage decline from the
// running maximum: (value - peak) / peak * 100. Values are always <= 0.
func DrawdownSeries(values []float64) []float64 {
	drawdowns := make([]float64, len(values))
	if len(values) == 0 {
		return drawdowns
	}

	peak := values[0]
	for i, v := range values {
		if v > peak {
			peak = v
		}
		if peak > 0 {
			drawdowns[i] = (v - peak) / peak * 100
		}
	}
	return drawdowns
}

// MaxDrawdownPct returns the deepest drawdown of a DrawdownSeries (<= 0).
func MaxDrawdownPct(drawdowns []float64) float64 {
	deepest := 0.0
	for _, dd := range drawdowns {
		if dd < deepest {
			deepest = dd
		}
	}
	return deepest
}

// AvgDrawdownPct averages the strictly negative points of a DrawdownSeries,
// or returns 0 when the series never left its peak.
func AvgDrawdownPct(drawdowns []float64) float64 {
	var sum float64
	count := 0
	for _, dd := range drawdowns {
		if dd < 0 {
			sum += dd
			count++
		}
	}
	if count == 0 {
		return 0
	}
	return sum / float64(count)
}

// CalculateMaxDrawdown calculates the maximum drawdown from a price series
// as a positive fraction (0.25 = 25% loss from peak), or nil for fewer than two prices.
func CalculateMaxDrawdown(prices []float64) *float64 {
	if len(prices) < 2 {
		return nil
	}

	maxDrawdown := -MaxDrawdownPct(DrawdownSeries(prices)) / 100
	return &maxDrawdown
}
