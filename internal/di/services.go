package di

import (
	"github.com/aristath/backtest/internal/config"
	"github.com/aristath/backtest/internal/modules/history"
	historyhandlers "github.com/aristath/backtest/internal/modules/history/handlers"
	"github.com/aristath/backtest/internal/modules/portfolio"
	portfoliohandlers "github.com/aristath/backtest/internal/modules/portfolio/handlers"
	"github.com/aristath/backtest/internal/modules/strategies"
	"github.com/rs/zerolog"
)

// InitializeServices builds repositories, services and handlers on top of the databases
func InitializeServices(container *Container, cfg *config.Config, log zerolog.Logger) error {
	container.HistoryRepo = history.NewHistoryDB(container.HistoryDB.Conn(), log)

	container.StrategyRegistry = strategies.NewDefaultRegistry()
	container.StrategyRunner = strategies.NewRunner(container.HistoryRepo, container.StrategyRegistry, log)

	container.PortfolioService = portfolio.NewPortfolioService(
		container.HistoryRepo,
		container.StrategyRunner,
		portfolio.Config{StrategyConcurrency: cfg.StrategyConcurrency},
		log,
	)

	container.PortfolioHandler = portfoliohandlers.NewHandler(
		container.PortfolioService,
		container.StrategyRegistry,
		cfg.DefaultCommission,
		log,
	)
	container.HistoryHandler = historyhandlers.NewHandler(container.HistoryRepo, log)

	log.Info().
		Strs("strategies", container.StrategyRegistry.Names()).
		Int("strategy_concurrency", cfg.StrategyConcurrency).
		Msg("Services initialized")

	return nil
}
