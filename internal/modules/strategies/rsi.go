package strategies

import (
	"fmt"
	"math"

	"github.com/aristath/backtest/pkg/formulas"
)

// RSIName is the registry name of the RSI mean-reversion strategy.
const RSIName = "rsi"

// RSIReversion buys when RSI drops below Oversold and sells when it rises
// above Overbought.
type RSIReversion struct {
	Period     int
	Oversold   float64
	Overbought float64
}

// NewRSIReversion builds an RSIReversion from "period" (default 14),
// "oversold" (default 30) and "overbought" (default 70).
func NewRSIReversion(params map[string]float64) (SingleAssetStrategy, error) {
	period, err := intParam(params, "period", 14)
	if err != nil {
		return nil, err
	}
	if period < 2 {
		return nil, fmt.Errorf("period must be at least 2, got %d", period)
	}
	oversold := floatParam(params, "oversold", 30)
	overbought := floatParam(params, "overbought", 70)
	if oversold <= 0 || overbought >= 100 || oversold >= overbought {
		return nil, fmt.Errorf("invalid RSI bounds: oversold %v, overbought %v", oversold, overbought)
	}
	return &RSIReversion{Period: period, Oversold: oversold, Overbought: overbought}, nil
}

func (s *RSIReversion) Name() string { return RSIName }

func (s *RSIReversion) Signals(closes []float64) []Signal {
	signals := make([]Signal, len(closes))
	for i, v := range formulas.RSISeries(closes, s.Period) {
		switch {
		case math.IsNaN(v):
		case v < s.Oversold:
			signals[i] = Buy
		case v > s.Overbought:
			signals[i] = Sell
		}
	}
	return signals
}
