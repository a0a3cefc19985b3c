package di

import (
	"fmt"

	"github.com/aristath/backtest/internal/config"
	"github.com/aristath/backtest/internal/database"
	"github.com/rs/zerolog"
)

// InitializeDatabases opens the databases and applies their schemas
func InitializeDatabases(cfg *config.Config, log zerolog.Logger) (*Container, error) {
	container := &Container{}

	// history.db - daily price bars, re-importable from CSV
	historyDB, err := database.New(database.Config{
		Path:    cfg.HistoryDBPath(),
		Profile: database.ProfileCache,
		Name:    "history",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize history database: %w", err)
	}
	container.HistoryDB = historyDB

	if err := historyDB.Migrate(); err != nil {
		historyDB.Close()
		return nil, fmt.Errorf("failed to migrate history database: %w", err)
	}

	log.Info().Str("path", historyDB.Path()).Msg("Databases initialized")

	return container, nil
}
