package portfolio

import (
	"math"
	"strings"

	"github.com/aristath/backtest/internal/domain"
)

// Positions validates the request and resolves every line item into a position.
// The returned total is the sum of all resolved amounts.
func (r Request) Positions() ([]Position, float64, error) {
	if len(r.Items) == 0 {
		return nil, 0, newError(ErrInvalidRequest, "portfolio must contain at least one item")
	}
	if r.StartDate.IsZero() || r.EndDate.IsZero() {
		return nil, 0, newError(ErrInvalidRequest, "start_date and end_date are required")
	}
	if !domain.Day(r.StartDate).Before(domain.Day(r.EndDate)) {
		return nil, 0, newError(ErrInvalidRequest, "start_date must be before end_date")
	}
	if freq := r.Frequency(); !rebalanceFrequencies[freq] {
		return nil, 0, newError(ErrInvalidRequest, "unsupported rebalance_frequency %q", freq)
	}
	if r.Commission < 0 || r.Commission >= 1 || math.IsNaN(r.Commission) {
		return nil, 0, newError(ErrInvalidRequest, "commission must be in [0, 1)")
	}
	if r.InitialCapital < 0 || math.IsNaN(r.InitialCapital) {
		return nil, 0, newError(ErrInvalidRequest, "initial_capital must not be negative")
	}

	positions := make([]Position, 0, len(r.Items))
	var total float64
	for i, item := range r.Items {
		symbol := strings.ToUpper(strings.TrimSpace(item.Symbol))
		if symbol == "" {
			return nil, 0, newError(ErrInvalidRequest, "item %d: symbol is required", i)
		}

		amount, err := r.resolveAmount(i, item)
		if err != nil {
			return nil, 0, err
		}

		invType := item.InvestmentType
		if invType == "" {
			invType = LumpSum
		}
		periods := 0
		switch invType {
		case LumpSum:
		case DCA:
			periods = item.DCAPeriods
			if periods == 0 {
				periods = DefaultDCAPeriods
			}
			if periods < 1 {
				return nil, 0, newError(ErrInvalidRequest, "item %d: dca_periods must be at least 1", i)
			}
		default:
			return nil, 0, newError(ErrInvalidRequest, "item %d: unsupported investment_type %q", i, item.InvestmentType)
		}

		positions = append(positions, Position{
			Key:            PositionKey(symbol, i),
			Index:          i,
			Symbol:         symbol,
			Amount:         amount,
			InvestmentType: invType,
			DCAPeriods:     periods,
		})
		total += amount
	}

	if total <= 0 {
		return nil, 0, newError(ErrInvalidRequest, "total amount must be positive")
	}
	return positions, total, nil
}

func (r Request) resolveAmount(i int, item LineItem) (float64, error) {
	if item.Amount < 0 || math.IsNaN(item.Amount) || math.IsInf(item.Amount, 0) {
		return 0, newError(ErrInvalidRequest, "item %d: amount must be positive", i)
	}
	if item.Amount > 0 {
		return item.Amount, nil
	}
	if item.Weight <= 0 || item.Weight > 1 || math.IsNaN(item.Weight) {
		return 0, newError(ErrInvalidRequest, "item %d: amount or a weight in (0, 1] is required", i)
	}
	if r.InitialCapital > 0 {
		return item.Weight * r.InitialCapital, nil
	}
	return item.Weight, nil
}

// Frequency returns the rebalance frequency, defaulting to monthly.
func (r Request) Frequency() string {
	freq := strings.ToLower(strings.TrimSpace(r.RebalanceFrequency))
	if freq == "" {
		return "monthly"
	}
	return freq
}

// StrategyName returns the requested strategy, defaulting to buy-and-hold.
func (r Request) StrategyName() string {
	name := strings.ToLower(strings.TrimSpace(r.Strategy))
	if name == "" {
		return BuyAndHold
	}
	return name
}
