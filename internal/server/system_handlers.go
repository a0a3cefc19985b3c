package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/aristath/backtest/internal/database"
	"github.com/aristath/backtest/internal/scheduler"
)

// SystemHandlers serves health and status endpoints
type SystemHandlers struct {
	log         zerolog.Logger
	startupTime time.Time
	databases   []*database.DB
	jobs        JobStatusProvider
	hostStats   func() (float64, float64)
}

// NewSystemHandlers creates system handlers over the given databases.
// jobs may be nil when no scheduler runs.
func NewSystemHandlers(log zerolog.Logger, databases []*database.DB, jobs JobStatusProvider) *SystemHandlers {
	h := &SystemHandlers{
		log:         log.With().Str("handler", "system").Logger(),
		startupTime: time.Now(),
		databases:   databases,
		jobs:        jobs,
	}
	h.hostStats = h.getSystemStats
	return h
}

// HealthResponse is returned by GET /health
type HealthResponse struct {
	Status        string  `json:"status"`
	UptimeSeconds int64   `json:"uptime_seconds"`
	CPUPercent    float64 `json:"cpu_percent"`
	MemoryPercent float64 `json:"memory_percent"`
	Timestamp     string  `json:"timestamp"`
}

// DatabaseStatus describes one database in the status response
type DatabaseStatus struct {
	Name         string `json:"name"`
	Healthy      bool   `json:"healthy"`
	SizeBytes    int64  `json:"size_bytes"`
	WALSizeBytes int64  `json:"wal_size_bytes"`
	Error        string `json:"error,omitempty"`
}

// HandleHealth reports liveness plus host CPU and memory usage
// GET /health
func (h *SystemHandlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	cpuPercent, memPercent := h.hostStats()

	h.writeJSON(w, http.StatusOK, HealthResponse{
		Status:        "healthy",
		UptimeSeconds: int64(time.Since(h.startupTime).Seconds()),
		CPUPercent:    cpuPercent,
		MemoryPercent: memPercent,
		Timestamp:     time.Now().Format(time.RFC3339),
	})
}

// HandleSystemStatus reports per-database health and the last run of each
// background job. Any unhealthy database turns the overall status into
// "degraded" with a 503; failed job runs are reported but do not.
// GET /api/system/status
func (h *SystemHandlers) HandleSystemStatus(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "healthy"
	code := http.StatusOK
	statuses := make([]DatabaseStatus, 0, len(h.databases))
	for _, db := range h.databases {
		if db == nil {
			continue
		}
		ds := h.databaseStatus(ctx, db)
		if !ds.Healthy {
			status = "degraded"
			code = http.StatusServiceUnavailable
		}
		statuses = append(statuses, ds)
	}

	jobs := []scheduler.JobStatus{}
	if h.jobs != nil {
		jobs = h.jobs.Statuses()
	}

	h.writeJSON(w, code, map[string]interface{}{
		"status":         status,
		"uptime_seconds": int64(time.Since(h.startupTime).Seconds()),
		"databases":      statuses,
		"jobs":           jobs,
		"timestamp":      time.Now().Format(time.RFC3339),
	})
}

func (h *SystemHandlers) databaseStatus(ctx context.Context, db *database.DB) DatabaseStatus {
	ds := DatabaseStatus{Name: db.Name()}
	if err := db.QuickCheck(ctx); err != nil {
		h.log.Warn().Err(err).Str("database", db.Name()).Msg("Database health check failed")
		ds.Error = "unreachable"
		return ds
	}

	stats, err := db.GetStats(ctx)
	if err != nil {
		h.log.Warn().Err(err).Str("database", db.Name()).Msg("Failed to get database stats")
		ds.Error = "stats unavailable"
		return ds
	}

	ds.Healthy = true
	ds.SizeBytes = stats.SizeBytes
	ds.WALSizeBytes = stats.WALSizeBytes
	return ds
}

// getSystemStats calculates CPU and RAM usage percentages
func (h *SystemHandlers) getSystemStats() (float64, float64) {
	// 100ms sample keeps the health endpoint responsive
	cpuPercent, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get CPU percentage")
		cpuPercent = []float64{0}
	}

	memStat, err := mem.VirtualMemory()
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get memory statistics")
		return 0, 0
	}

	cpuAvg := 0.0
	if len(cpuPercent) > 0 {
		cpuAvg = cpuPercent[0]
	}

	return cpuAvg, memStat.UsedPercent
}

func (h *SystemHandlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
