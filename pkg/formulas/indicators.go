package formulas

import (
	"math"

	"github.com/markcheno/go-talib"
)

// SMASeries calculates the simple moving average at every point of closes.
// Points inside the warm-up window are NaN.
func SMASeries(closes []float64, length int) []float64 {
	out := nanSeries(len(closes))
	if length < 1 || len(closes) < length {
		return out
	}

	sma := talib.Sma(closes, length)
	copy(out[length-1:], sma[length-1:])
	return out
}

// RSISeries calculates the Relative Strength Index at every point of closes.
//
//	RSI = 100 - (100 / (1 + RS)), RS = average gain / average loss over length periods
//
// The first length points are NaN.
func RSISeries(closes []float64, length int) []float64 {
	out := nanSeries(len(closes))
	if length < 2 || len(closes) < length+1 {
		return out
	}

	rsi := talib.Rsi(closes, length)
	copy(out[length:], rsi[length:])
	return out
}

func nanSeries(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}
