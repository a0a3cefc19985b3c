package di

import (
	"fmt"
	"time"

	"github.com/aristath/backtest/internal/config"
	"github.com/aristath/backtest/internal/scheduler"
	"github.com/rs/zerolog"
)

// maintenanceTimeout bounds one pass over every database.
const maintenanceTimeout = 2 * time.Minute

// RegisterJobs creates the scheduler and registers background jobs.
// The scheduler is not started here.
func RegisterJobs(container *Container, cfg *config.Config, log zerolog.Logger) (*JobInstances, error) {
	container.Scheduler = scheduler.New(log)

	maintenance := scheduler.NewDatabaseMaintenanceJob(log, container.Databases()...)
	if err := container.Scheduler.AddJob(cfg.MaintenanceSchedule, maintenance, maintenanceTimeout); err != nil {
		return nil, fmt.Errorf("failed to register %s job: %w", maintenance.Name(), err)
	}

	return &JobInstances{
		DatabaseMaintenance: maintenance,
	}, nil
}
