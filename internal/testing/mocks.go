package testing

import (
	"context"
	"sync"
	"time"

	"github.com/aristath/backtest/internal/domain"
)

// StubPriceStore is an in-memory PriceSeriesStore that records lookups and
// can be told to fail for specific symbols. Safe for concurrent use.
type StubPriceStore struct {
	mu     sync.Mutex
	series map[string]domain.PriceSeries
	errs   map[string]error
	calls  map[string]int
}

// NewStubPriceStore creates a store serving the given series
func NewStubPriceStore(series ...domain.PriceSeries) *StubPriceStore {
	s := &StubPriceStore{
		series: make(map[string]domain.PriceSeries),
		errs:   make(map[string]error),
		calls:  make(map[string]int),
	}
	for _, ps := range series {
		s.series[ps.Symbol] = ps
	}
	return s
}

// SetError makes every lookup of symbol fail with err
func (s *StubPriceStore) SetError(symbol string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errs[symbol] = err
}

// Calls returns how many times symbol was looked up
func (s *StubPriceStore) Calls(symbol string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[symbol]
}

// LoadSeries implements domain.PriceSeriesStore
func (s *StubPriceStore) LoadSeries(ctx context.Context, symbol string, start, end time.Time) (domain.PriceSeries, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[symbol]++
	if err := s.errs[symbol]; err != nil {
		return domain.PriceSeries{}, err
	}
	return s.series[symbol].Between(start, end), nil
}
