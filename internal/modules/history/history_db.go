// Package history stores daily price bars and serves them as price series.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/aristath/backtest/internal/database"
	"github.com/aristath/backtest/internal/domain"
	"github.com/aristath/backtest/internal/utils"
	"github.com/rs/zerolog"
)

// HistoryDB provides access to historical price data
type HistoryDB struct {
	db  *sql.DB
	log zerolog.Logger
}

var _ domain.PriceSeriesStore = (*HistoryDB)(nil)

// NewHistoryDB creates a new history database accessor
func NewHistoryDB(db *sql.DB, log zerolog.Logger) *HistoryDB {
	return &HistoryDB{
		db:  db,
		log: log.With().Str("component", "history_db").Logger(),
	}
}

// GetDailyPrices fetches daily bars for a symbol between start and end inclusive, oldest first.
func (h *HistoryDB) GetDailyPrices(ctx context.Context, symbol string, start, end time.Time) ([]domain.DailyPrice, error) {
	query := `
		SELECT date, open, high, low, close, volume
		FROM daily_prices
		WHERE symbol = ? AND date >= ? AND date <= ?
		ORDER BY date ASC
	`

	done := utils.MeasureDBQuery("daily_prices", h.log)

	rows, err := h.db.QueryContext(ctx, query, normalizeSymbol(symbol), domain.Day(start).Unix(), domain.Day(end).Unix())
	if err != nil {
		return nil, fmt.Errorf("failed to query daily prices: %w", err)
	}
	defer rows.Close()

	var prices []domain.DailyPrice
	for rows.Next() {
		var p domain.DailyPrice
		var date int64
		var volume sql.NullInt64

		if err := rows.Scan(&date, &p.Open, &p.High, &p.Low, &p.Close, &volume); err != nil {
			return nil, fmt.Errorf("failed to scan daily price: %w", err)
		}

		p.Date = time.Unix(date, 0).UTC().Format(domain.DateLayout)
		if volume.Valid {
			p.Volume = &volume.Int64
		}
		prices = append(prices, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating daily prices: %w", err)
	}
	done(int64(len(prices)))

	return prices, nil
}

// LoadSeries returns the closing prices of symbol between start and end.
// A symbol without bars yields an empty series.
func (h *HistoryDB) LoadSeries(ctx context.Context, symbol string, start, end time.Time) (domain.PriceSeries, error) {
	prices, err := h.GetDailyPrices(ctx, symbol, start, end)
	if err != nil {
		return domain.PriceSeries{}, fmt.Errorf("failed to load series for %s: %w", symbol, err)
	}
	return SeriesFromPrices(symbol, prices)
}

// SaveDailyPrices inserts or replaces daily bars for a symbol in one transaction.
func (h *HistoryDB) SaveDailyPrices(ctx context.Context, symbol string, prices []domain.DailyPrice) error {
	symbol = normalizeSymbol(symbol)
	err := database.WithTransaction(ctx, h.db, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT OR REPLACE INTO daily_prices
			(symbol, date, open, high, low, close, volume)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare statement: %w", err)
		}
		defer stmt.Close()

		for _, price := range prices {
			date, err := domain.ParseDate(price.Date)
			if err != nil {
				return err
			}

			volume := sql.NullInt64{}
			if price.Volume != nil {
				volume.Int64 = *price.Volume
				volume.Valid = true
			}

			if _, err := stmt.ExecContext(ctx, symbol, date.Unix(), price.Open, price.High, price.Low, price.Close, volume); err != nil {
				return fmt.Errorf("failed to insert daily price for %s: %w", price.Date, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	h.log.Info().
		Str("symbol", symbol).
		Int("count", len(prices)).
		Msg("Saved daily prices")
	return nil
}

// Symbols lists every symbol with at least one stored bar.
func (h *HistoryDB) Symbols(ctx context.Context) ([]string, error) {
	rows, err := h.db.QueryContext(ctx, "SELECT DISTINCT symbol FROM daily_prices ORDER BY symbol")
	if err != nil {
		return nil, fmt.Errorf("failed to query symbols: %w", err)
	}
	defer rows.Close()

	var symbols []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("failed to scan symbol: %w", err)
		}
		symbols = append(symbols, s)
	}
	return symbols, rows.Err()
}

// SeriesFromPrices converts daily bars into a close-price series.
func SeriesFromPrices(symbol string, prices []domain.DailyPrice) (domain.PriceSeries, error) {
	points := make([]domain.PricePoint, 0, len(prices))
	for _, p := range prices {
		date, err := domain.ParseDate(p.Date)
		if err != nil {
			return domain.PriceSeries{}, err
		}
		points = append(points, domain.PricePoint{Date: date, Close: p.Close})
	}
	return domain.NewPriceSeries(symbol, points), nil
}

// Symbols are stored upper-case.
func normalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}
