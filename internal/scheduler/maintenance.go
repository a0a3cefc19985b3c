package scheduler

import (
	"context"
	"fmt"

	"github.com/aristath/backtest/internal/database"
	"github.com/rs/zerolog"
)

// walWarnBytes is the WAL size above which the job logs a warning before checkpointing.
const walWarnBytes = 64 * 1024 * 1024

// DatabaseMaintenanceJob pings each database, logs its size and truncates the WAL.
type DatabaseMaintenanceJob struct {
	log       zerolog.Logger
	databases []*database.DB
}

// NewDatabaseMaintenanceJob creates a maintenance job over the given databases.
// Nil entries are skipped.
func NewDatabaseMaintenanceJob(log zerolog.Logger, databases ...*database.DB) *DatabaseMaintenanceJob {
	return &DatabaseMaintenanceJob{
		log:       log.With().Str("job", "database_maintenance").Logger(),
		databases: databases,
	}
}

// Name returns the job name
func (j *DatabaseMaintenanceJob) Name() string {
	return "database_maintenance"
}

// Run executes the maintenance pass. A failing database does not stop the
// others; the first failure is returned once every database was visited.
// Cancellation stops the pass before the next database.
func (j *DatabaseMaintenanceJob) Run(ctx context.Context) error {
	var firstErr error
	checked := 0
	for _, db := range j.databases {
		if db == nil {
			continue
		}
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("database maintenance interrupted: %w", err)
		}
		if err := j.maintain(ctx, db); err != nil {
			j.log.Warn().Err(err).Str("database", db.Name()).Msg("Database maintenance failed")
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		checked++
	}

	j.log.Info().Int("checked", checked).Msg("Database maintenance completed")
	return firstErr
}

func (j *DatabaseMaintenanceJob) maintain(ctx context.Context, db *database.DB) error {
	if err := db.QuickCheck(ctx); err != nil {
		return fmt.Errorf("health check failed for %s: %w", db.Name(), err)
	}

	stats, err := db.GetStats(ctx)
	if err != nil {
		return err
	}

	event := j.log.Debug()
	if stats.WALSizeBytes > walWarnBytes {
		event = j.log.Warn()
	}
	event.
		Str("database", db.Name()).
		Int64("size_bytes", stats.SizeBytes).
		Int64("wal_bytes", stats.WALSizeBytes).
		Int64("pages", stats.PageCount).
		Msg("Database stats")

	return db.WALCheckpoint(ctx, "TRUNCATE")
}
