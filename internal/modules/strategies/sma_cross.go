package strategies

import (
	"fmt"
	"math"

	"github.com/aristath/backtest/pkg/formulas"
)

// SMACrossName is the registry name of the moving average crossover strategy.
const SMACrossName = "sma_cross"

// SMACross buys when the fast SMA crosses above the slow SMA and sells on the
// opposite cross.
type SMACross struct {
	Fast int
	Slow int
}

// NewSMACross builds an SMACross from the "fast" (default 10) and "slow"
// (default 30) parameters.
func NewSMACross(params map[string]float64) (SingleAssetStrategy, error) {
	fast, err := intParam(params, "fast", 10)
	if err != nil {
		return nil, err
	}
	slow, err := intParam(params, "slow", 30)
	if err != nil {
		return nil, err
	}
	if fast >= slow {
		return nil, fmt.Errorf("fast period (%d) must be shorter than slow period (%d)", fast, slow)
	}
	return &SMACross{Fast: fast, Slow: slow}, nil
}

func (s *SMACross) Name() string { return SMACrossName }

func (s *SMACross) Signals(closes []float64) []Signal {
	signals := make([]Signal, len(closes))
	fast := formulas.SMASeries(closes, s.Fast)
	slow := formulas.SMASeries(closes, s.Slow)

	for i := 1; i < len(closes); i++ {
		if math.IsNaN(slow[i-1]) || math.IsNaN(fast[i-1]) {
			continue
		}
		above := fast[i] > slow[i]
		wasAbove := fast[i-1] > slow[i-1]
		switch {
		case above && !wasAbove:
			signals[i] = Buy
		case !above && wasAbove:
			signals[i] = Sell
		}
	}
	return signals
}
