package domain

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"
)

// DateLayout is the calendar-day format used on every external surface.
const DateLayout = "2006-01-02"

// CashSymbol marks a line item that holds uninvested cash.
const CashSymbol = "CASH"

// IsCash reports whether a symbol denotes a cash position.
func IsCash(symbol string) bool {
	return strings.EqualFold(strings.TrimSpace(symbol), CashSymbol)
}

// Day truncates a timestamp to its calendar day at UTC midnight.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD calendar day.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q (expected YYYY-MM-DD): %w", s, err)
	}
	return t, nil
}

// DailyPrice represents a daily OHLCV price bar
type DailyPrice struct {
	Date   string  `json:"date"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume *int64  `json:"volume,omitempty"`
}

// PricePoint is a single closing price on a calendar day.
type PricePoint struct {
	Date  time.Time
	Close float64
}

// PriceSeries is a strictly date-ordered sequence of closing prices for one symbol.
type PriceSeries struct {
	Symbol string
	Points []PricePoint
}

// NewPriceSeries normalises points into a valid series: dates are truncated to
// calendar days, sorted ascending, duplicates keep the last close seen and
// non-positive closes are dropped.
func NewPriceSeries(symbol string, points []PricePoint) PriceSeries {
	byDay := make(map[time.Time]float64, len(points))
	for _, p := range points {
		if p.Close <= 0 {
			continue
		}
		byDay[Day(p.Date)] = p.Close
	}

	normalized := make([]PricePoint, 0, len(byDay))
	for d, c := range byDay {
		normalized = append(normalized, PricePoint{Date: d, Close: c})
	}
	sort.Slice(normalized, func(i, j int) bool {
		return normalized[i].Date.Before(normalized[j].Date)
	})

	return PriceSeries{Symbol: symbol, Points: normalized}
}

// Len returns the number of points.
func (s PriceSeries) Len() int {
	return len(s.Points)
}

// Empty reports whether the series carries no prices.
func (s PriceSeries) Empty() bool {
	return len(s.Points) == 0
}

// First returns the earliest point.
func (s PriceSeries) First() (PricePoint, bool) {
	if s.Empty() {
		return PricePoint{}, false
	}
	return s.Points[0], true
}

// Last returns the latest point.
func (s PriceSeries) Last() (PricePoint, bool) {
	if s.Empty() {
		return PricePoint{}, false
	}
	return s.Points[len(s.Points)-1], true
}

// FirstOnOrAfter returns the earliest point dated on or after d.
func (s PriceSeries) FirstOnOrAfter(d time.Time) (PricePoint, bool) {
	d = Day(d)
	i := sort.Search(len(s.Points), func(i int) bool {
		return !s.Points[i].Date.Before(d)
	})
	if i == len(s.Points) {
		return PricePoint{}, false
	}
	return s.Points[i], true
}

// LastOnOrBefore returns the latest point dated on or before d.
func (s PriceSeries) LastOnOrBefore(d time.Time) (PricePoint, bool) {
	d = Day(d)
	i := sort.Search(len(s.Points), func(i int) bool {
		return s.Points[i].Date.After(d)
	})
	if i == 0 {
		return PricePoint{}, false
	}
	return s.Points[i-1], true
}

// Between returns the points within [start, end], inclusive.
func (s PriceSeries) Between(start, end time.Time) PriceSeries {
	start, end = Day(start), Day(end)
	lo := sort.Search(len(s.Points), func(i int) bool {
		return !s.Points[i].Date.Before(start)
	})
	hi := sort.Search(len(s.Points), func(i int) bool {
		return s.Points[i].Date.After(end)
	})
	if lo >= hi {
		return PriceSeries{Symbol: s.Symbol}
	}
	return PriceSeries{Symbol: s.Symbol, Points: s.Points[lo:hi]}
}

// Closes returns the closing prices in date order.
func (s PriceSeries) Closes() []float64 {
	closes := make([]float64, len(s.Points))
	for i, p := range s.Points {
		closes[i] = p.Close
	}
	return closes
}

// PriceSeriesStore supplies cleaned daily price series per symbol.
// An empty series with a nil error means the store has no data for the range.
type PriceSeriesStore interface {
	LoadSeries(ctx context.Context, symbol string, start, end time.Time) (PriceSeries, error)
}
