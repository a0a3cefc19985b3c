// Package di provides dependency injection type definitions and wiring.
package di

import (
	"github.com/aristath/backtest/internal/database"
	"github.com/aristath/backtest/internal/modules/history"
	historyhandlers "github.com/aristath/backtest/internal/modules/history/handlers"
	"github.com/aristath/backtest/internal/modules/portfolio"
	portfoliohandlers "github.com/aristath/backtest/internal/modules/portfolio/handlers"
	"github.com/aristath/backtest/internal/modules/strategies"
	"github.com/aristath/backtest/internal/scheduler"
)

// Container holds all dependencies for the application.
// It is created by Wire() and is the single owner of the database handles.
type Container struct {
	// Databases
	HistoryDB *database.DB

	// Repositories
	HistoryRepo *history.HistoryDB

	// Services
	StrategyRegistry *strategies.Registry
	StrategyRunner   *strategies.Runner
	PortfolioService *portfolio.PortfolioService

	// HTTP handlers
	PortfolioHandler *portfoliohandlers.Handler
	HistoryHandler   *historyhandlers.Handler

	// Background jobs
	Scheduler *scheduler.Scheduler
}

// JobInstances holds references to the registered jobs
type JobInstances struct {
	DatabaseMaintenance scheduler.Job
}

// Databases returns every open database (for health reporting and maintenance).
func (c *Container) Databases() []*database.DB {
	return []*database.DB{c.HistoryDB}
}

// Close releases the databases held by the container
func (c *Container) Close() error {
	if c.HistoryDB == nil {
		return nil
	}
	return c.HistoryDB.Close()
}
