package di

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/backtest/internal/config"
	"github.com/aristath/backtest/internal/modules/portfolio"
	testutil "github.com/aristath/backtest/internal/testing"
)

func testConfig(t *testing.T) *config.Config {
	return &config.Config{
		DataDir:             t.TempDir(),
		Port:                8001,
		StrategyConcurrency: 2,
		DefaultCommission:   0.001,
		MaintenanceSchedule: "0 0 3 * * *",
	}
}

func TestWire(t *testing.T) {
	cfg := testConfig(t)

	container, jobs, err := Wire(cfg, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { container.Close() })

	assert.NotNil(t, container.HistoryDB)
	assert.NotNil(t, container.HistoryRepo)
	assert.NotNil(t, container.PortfolioService)
	assert.NotNil(t, container.PortfolioHandler)
	assert.NotNil(t, container.HistoryHandler)
	assert.Equal(t, cfg.HistoryDBPath(), container.HistoryDB.Path())
	assert.Contains(t, container.StrategyRegistry.Names(), "sma_cross")

	require.NotNil(t, jobs.DatabaseMaintenance)
	assert.Equal(t, 1, container.Scheduler.Entries())
	assert.NoError(t, container.Scheduler.RunNow(jobs.DatabaseMaintenance.Name()))

	statuses := container.Scheduler.Statuses()
	require.Len(t, statuses, 1)
	assert.Equal(t, "database_maintenance", statuses[0].Name)
	assert.Equal(t, cfg.MaintenanceSchedule, statuses[0].Schedule)
	assert.Equal(t, 1, statuses[0].Runs)
	assert.Empty(t, statuses[0].LastError)
}

func TestWire_InvalidSchedule(t *testing.T) {
	cfg := testConfig(t)
	cfg.MaintenanceSchedule = "whenever"

	_, _, err := Wire(cfg, zerolog.Nop())
	assert.ErrorContains(t, err, "failed to register jobs")
}

func TestWire_BacktestAgainstStoredPrices(t *testing.T) {
	cfg := testConfig(t)
	container, _, err := Wire(cfg, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { container.Close() })

	ctx := context.Background()
	require.NoError(t, container.HistoryRepo.SaveDailyPrices(ctx, "AAPL", testutil.FlatBars("2024-01-02", 100, 110)))

	start := testutil.Day("2024-01-01")
	end := testutil.Day("2024-01-31")
	result, err := container.PortfolioService.Backtest(ctx, portfolio.Request{
		Items: []portfolio.LineItem{
			{Symbol: "AAPL", Amount: 1000, InvestmentType: portfolio.LumpSum},
		},
		StartDate: start,
		EndDate:   end,
	})
	require.NoError(t, err)
	require.NotNil(t, result.Statistics)
	assert.Equal(t, portfolio.StatusSuccess, result.Status)
	assert.InDelta(t, 10.0, result.Statistics.TotalReturnPct, 1e-9)
	assert.InDelta(t, 1100.0, result.Statistics.FinalValue, 1e-9)
}
