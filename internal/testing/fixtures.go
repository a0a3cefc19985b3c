package testing

import (
	"time"

	"github.com/aristath/backtest/internal/domain"
)

// Day parses a YYYY-MM-DD date and panics on malformed input.
func Day(s string) time.Time {
	d, err := domain.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

// DailySeries builds a series with one close per consecutive calendar day from start.
func DailySeries(symbol, start string, closes ...float64) domain.PriceSeries {
	first := Day(start)
	points := make([]domain.PricePoint, len(closes))
	for i, c := range closes {
		points[i] = domain.PricePoint{Date: first.AddDate(0, 0, i), Close: c}
	}
	return domain.NewPriceSeries(symbol, points)
}

// FlatBars builds daily bars with open = high = low = close, one per calendar day from start.
func FlatBars(start string, closes ...float64) []domain.DailyPrice {
	first := Day(start)
	bars := make([]domain.DailyPrice, len(closes))
	for i, c := range closes {
		bars[i] = domain.DailyPrice{
			Date:  first.AddDate(0, 0, i).Format(domain.DateLayout),
			Open:  c,
			High:  c,
			Low:   c,
			Close: c,
		}
	}
	return bars
}
