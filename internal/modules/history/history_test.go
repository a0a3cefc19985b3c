package history

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/aristath/backtest/internal/database"
	"github.com/aristath/backtest/internal/domain"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *HistoryDB {
	t.Helper()
	db, err := database.New(database.Config{
		Path: "file:" + strings.ReplaceAll(t.Name(), "/", "_") + "?mode=memory&cache=shared",
		Name: "history",
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.Migrate())

	return NewHistoryDB(db.Conn(), zerolog.Nop())
}

func day(s string) time.Time {
	t, err := domain.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return t
}

func bar(date string, close float64) domain.DailyPrice {
	return domain.DailyPrice{Date: date, Open: close, High: close, Low: close, Close: close}
}

func TestHistoryDB_SaveAndLoad(t *testing.T) {
	h := setupTestDB(t)
	ctx := context.Background()

	volume := int64(1200)
	prices := []domain.DailyPrice{
		bar("2024-01-03", 102),
		bar("2024-01-01", 100),
		{Date: "2024-01-02", Open: 100, High: 103, Low: 99, Close: 101, Volume: &volume},
	}
	require.NoError(t, h.SaveDailyPrices(ctx, "AAPL", prices))
	require.NoError(t, h.SaveDailyPrices(ctx, "MSFT", []domain.DailyPrice{bar("2024-01-01", 50)}))

	loaded, err := h.GetDailyPrices(ctx, "AAPL", day("2024-01-01"), day("2024-01-31"))
	require.NoError(t, err)
	require.Len(t, loaded, 3)
	assert.Equal(t, "2024-01-01", loaded[0].Date)
	assert.Equal(t, "2024-01-02", loaded[1].Date)
	require.NotNil(t, loaded[1].Volume)
	assert.Equal(t, int64(1200), *loaded[1].Volume)
	assert.Nil(t, loaded[0].Volume)

	series, err := h.LoadSeries(ctx, "AAPL", day("2024-01-02"), day("2024-01-03"))
	require.NoError(t, err)
	assert.Equal(t, []float64{101, 102}, series.Closes())

	symbols, err := h.Symbols(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"AAPL", "MSFT"}, symbols)
}

func TestHistoryDB_SaveReplacesExistingBars(t *testing.T) {
	h := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, h.SaveDailyPrices(ctx, "AAPL", []domain.DailyPrice{bar("2024-01-01", 100)}))
	require.NoError(t, h.SaveDailyPrices(ctx, "AAPL", []domain.DailyPrice{bar("2024-01-01", 105)}))

	series, err := h.LoadSeries(ctx, "AAPL", day("2024-01-01"), day("2024-01-01"))
	require.NoError(t, err)
	assert.Equal(t, []float64{105}, series.Closes())
}

func TestHistoryDB_SaveIsAtomic(t *testing.T) {
	h := setupTestDB(t)
	ctx := context.Background()

	err := h.SaveDailyPrices(ctx, "AAPL", []domain.DailyPrice{bar("2024-01-01", 100), bar("not-a-date", 1)})
	require.Error(t, err)

	series, err := h.LoadSeries(ctx, "AAPL", day("2023-01-01"), day("2025-01-01"))
	require.NoError(t, err)
	assert.True(t, series.Empty())
}

func TestHistoryDB_UnknownSymbol(t *testing.T) {
	h := setupTestDB(t)

	series, err := h.LoadSeries(context.Background(), "NOPE", day("2024-01-01"), day("2024-12-31"))
	require.NoError(t, err)
	assert.True(t, series.Empty())
}

func TestImportCSV(t *testing.T) {
	input := `Date,Open,High,Low,Close,Volume
2024-01-02, 100, 105, 99, 104, 1000
2024-01-03,104,106,101,102,
2024-01-04,104,103,101,102,5
2024-01-05,abc,1,1,1,1
2024-01-06,1,1,1
2024-01-07,10,10,10,0,1
`

	result, err := ImportCSV(strings.NewReader(input))
	require.NoError(t, err)

	require.Len(t, result.Prices, 2)
	assert.Equal(t, "2024-01-02", result.Prices[0].Date)
	assert.Equal(t, 104.0, result.Prices[0].Close)
	require.NotNil(t, result.Prices[0].Volume)
	assert.Equal(t, int64(1000), *result.Prices[0].Volume)
	assert.Nil(t, result.Prices[1].Volume)

	require.Len(t, result.Rejected, 4)
	assert.Equal(t, Rejection{Line: 4, Reason: "high_below_open"}, result.Rejected[0])
	assert.Equal(t, 5, result.Rejected[1].Line)
	assert.Equal(t, 6, result.Rejected[2].Line)
	assert.Equal(t, Rejection{Line: 7, Reason: "non_positive_close"}, result.Rejected[3])
}

func TestImportCSV_WithoutHeader(t *testing.T) {
	result, err := ImportCSV(strings.NewReader("2024-01-02,1,2,1,2\n"))
	require.NoError(t, err)
	assert.Len(t, result.Prices, 1)
	assert.Empty(t, result.Rejected)
}

func TestValidateBar(t *testing.T) {
	tests := []struct {
		name   string
		bar    domain.DailyPrice
		reason string
	}{
		{"valid", domain.DailyPrice{Open: 10, High: 12, Low: 9, Close: 11}, ""},
		{"high below low", domain.DailyPrice{Open: 10, High: 8, Low: 9, Close: 8.5}, "high_below_low"},
		{"high below close", domain.DailyPrice{Open: 10, High: 11, Low: 9, Close: 12}, "high_below_close"},
		{"low above open", domain.DailyPrice{Open: 8, High: 12, Low: 9, Close: 11}, "low_above_open"},
		{"low above close", domain.DailyPrice{Open: 10, High: 12, Low: 9, Close: 8}, "low_above_close"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.reason, ValidateBar(tt.bar))
		})
	}
}
