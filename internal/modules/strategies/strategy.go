// Package strategies provides the single-asset trading strategies available
// to portfolio backtests and the engine that simulates them.
package strategies

import (
	"fmt"
	"math"
)

// Signal is a strategy's instruction for one bar.
type Signal int

const (
	Hold Signal = iota
	Buy
	Sell
)

func (s Signal) String() string {
	switch s {
	case Buy:
		return "buy"
	case Sell:
		return "sell"
	default:
		return "hold"
	}
}

// SingleAssetStrategy turns a close-price history into one signal per bar.
type SingleAssetStrategy interface {
	Name() string
	Signals(closes []float64) []Signal
}

// Constructor builds a strategy from user supplied parameters.
type Constructor func(params map[string]float64) (SingleAssetStrategy, error)

// intParam reads a positive whole-number parameter, falling back to def.
func intParam(params map[string]float64, key string, def int) (int, error) {
	v, ok := params[key]
	if !ok {
		return def, nil
	}
	if v < 1 || v != math.Trunc(v) {
		return 0, fmt.Errorf("parameter %s must be a positive integer, got %v", key, v)
	}
	return int(v), nil
}

func floatParam(params map[string]float64, key string, def float64) float64 {
	if v, ok := params[key]; ok {
		return v
	}
	return def
}
