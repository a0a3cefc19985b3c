// Command import loads daily price bars from CSV files into the history database.
//
// Usage:
//
//	import -symbol AAPL -file aapl.csv
//	import -dir ./prices          # every SYMBOL.csv in the directory
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/aristath/backtest/internal/config"
	"github.com/aristath/backtest/internal/database"
	"github.com/aristath/backtest/internal/modules/history"
	"github.com/aristath/backtest/pkg/logger"
	"github.com/rs/zerolog"
)

func main() {
	symbol := flag.String("symbol", "", "Symbol to import (with -file)")
	file := flag.String("file", "", "CSV file with date,open,high,low,close[,volume] rows")
	dir := flag.String("dir", "", "Directory of SYMBOL.csv files")
	flag.Parse()

	log := logger.New(logger.Config{
		Level:  "info",
		Pretty: true,
	})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	jobs, err := collectFiles(*symbol, *file, *dir)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid arguments")
	}

	db, err := database.New(database.Config{
		Path:    cfg.HistoryDBPath(),
		Profile: database.ProfileCache,
		Name:    "history",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open history.db")
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		log.Fatal().Err(err).Msg("Failed to migrate history.db")
	}

	repo := history.NewHistoryDB(db.Conn(), log)
	ctx := context.Background()

	failed := 0
	for sym, path := range jobs {
		if err := importFile(ctx, repo, sym, path, log); err != nil {
			log.Error().Err(err).Str("symbol", sym).Str("file", path).Msg("Import failed")
			failed++
		}
	}

	if failed > 0 {
		log.Error().Int("failed", failed).Int("total", len(jobs)).Msg("Import finished with errors")
		os.Exit(1)
	}
	log.Info().Int("files", len(jobs)).Msg("Import completed")
}

// collectFiles maps symbols to the CSV files holding their bars.
func collectFiles(symbol, file, dir string) (map[string]string, error) {
	switch {
	case dir != "" && file != "":
		return nil, fmt.Errorf("use either -file or -dir, not both")
	case file != "":
		if strings.TrimSpace(symbol) == "" {
			return nil, fmt.Errorf("-symbol is required with -file")
		}
		return map[string]string{strings.ToUpper(strings.TrimSpace(symbol)): file}, nil
	case dir != "":
		matches, err := filepath.Glob(filepath.Join(dir, "*.csv"))
		if err != nil {
			return nil, fmt.Errorf("failed to list %s: %w", dir, err)
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("no CSV files in %s", dir)
		}
		files := make(map[string]string, len(matches))
		for _, m := range matches {
			sym := strings.ToUpper(strings.TrimSuffix(filepath.Base(m), filepath.Ext(m)))
			files[sym] = m
		}
		return files, nil
	default:
		return nil, fmt.Errorf("either -file or -dir is required")
	}
}

func importFile(ctx context.Context, repo *history.HistoryDB, symbol, path string, log zerolog.Logger) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	result, err := history.ImportCSV(f)
	if err != nil {
		return err
	}

	for _, rej := range result.Rejected {
		log.Warn().
			Str("symbol", symbol).
			Int("line", rej.Line).
			Str("reason", rej.Reason).
			Msg("Rejected row")
	}

	if len(result.Prices) == 0 {
		return fmt.Errorf("no valid rows in %s", path)
	}
	return repo.SaveDailyPrices(ctx, symbol, result.Prices)
}
