// Package scheduler runs background maintenance jobs on cron schedules.
package scheduler

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// DefaultJobTimeout bounds a single job run when AddJob is given no timeout.
const DefaultJobTimeout = 5 * time.Minute

// Job is a unit of background work. Run must honour ctx cancellation.
type Job interface {
	Run(ctx context.Context) error
	Name() string
}

// JobStatus is the last observed outcome of a registered job.
type JobStatus struct {
	Name         string    `json:"name"`
	Schedule     string    `json:"schedule"`
	Runs         int       `json:"runs"`
	Failures     int       `json:"failures"`
	LastRun      time.Time `json:"last_run"`
	LastDuration float64   `json:"last_duration_ms"`
	LastError    string    `json:"last_error,omitempty"`
	Running      bool      `json:"running"`
}

type registration struct {
	job     Job
	timeout time.Duration
	status  JobStatus
}

// Scheduler owns the cron loop and the run history of every job added to it.
// Jobs get a context derived from the scheduler's own, cancelled on Stop.
type Scheduler struct {
	cron   *cron.Cron
	log    zerolog.Logger
	ctx    context.Context
	cancel context.CancelFunc

	mu   sync.Mutex
	jobs map[string]*registration
}

// New creates a new scheduler
func New(log zerolog.Logger) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron:   cron.New(cron.WithSeconds()),
		log:    log.With().Str("component", "scheduler").Logger(),
		ctx:    ctx,
		cancel: cancel,
		jobs:   make(map[string]*registration),
	}
}

// Start starts the scheduler
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info().Int("jobs", s.Entries()).Msg("Scheduler started")
}

// Stop cancels running jobs and waits for them to return.
func (s *Scheduler) Stop() {
	s.cancel()
	<-s.cron.Stop().Done()
	s.log.Info().Msg("Scheduler stopped")
}

// AddJob registers job on a six-field cron schedule (seconds first) or a
// descriptor such as "@hourly" or "@every 30s". A timeout <= 0 means
// DefaultJobTimeout. Job names must be unique.
func (s *Scheduler) AddJob(schedule string, job Job, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = DefaultJobTimeout
	}

	s.mu.Lock()
	if _, exists := s.jobs[job.Name()]; exists {
		s.mu.Unlock()
		return fmt.Errorf("job %q already registered", job.Name())
	}
	reg := &registration{
		job:     job,
		timeout: timeout,
		status:  JobStatus{Name: job.Name(), Schedule: schedule},
	}
	s.jobs[job.Name()] = reg
	s.mu.Unlock()

	if _, err := s.cron.AddFunc(schedule, func() {
		_ = s.execute(reg)
	}); err != nil {
		s.mu.Lock()
		delete(s.jobs, job.Name())
		s.mu.Unlock()
		return fmt.Errorf("failed to schedule %s: %w", job.Name(), err)
	}

	s.log.Info().
		Str("schedule", schedule).
		Str("job", job.Name()).
		Dur("timeout", timeout).
		Msg("Job registered")

	return nil
}

// Entries returns the number of registered jobs
func (s *Scheduler) Entries() int {
	return len(s.cron.Entries())
}

// RunNow executes a registered job immediately, outside its schedule, and
// records the run like a scheduled one.
func (s *Scheduler) RunNow(name string) error {
	s.mu.Lock()
	reg, ok := s.jobs[name]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("job %q not registered", name)
	}

	s.log.Info().Str("job", name).Msg("Running job immediately")
	return s.execute(reg)
}

// Statuses returns a snapshot of every registered job, ordered by name.
func (s *Scheduler) Statuses() []JobStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]JobStatus, 0, len(s.jobs))
	for _, reg := range s.jobs {
		out = append(out, reg.status)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (s *Scheduler) execute(reg *registration) error {
	name := reg.job.Name()

	s.mu.Lock()
	if reg.status.Running {
		s.mu.Unlock()
		s.log.Warn().Str("job", name).Msg("Previous run still in progress, skipping")
		return fmt.Errorf("job %q already running", name)
	}
	reg.status.Running = true
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(s.ctx, reg.timeout)
	defer cancel()

	s.log.Debug().Str("job", name).Msg("Running job")
	start := time.Now()
	err := reg.job.Run(ctx)
	elapsed := time.Since(start)

	s.mu.Lock()
	reg.status.Running = false
	reg.status.Runs++
	reg.status.LastRun = start
	reg.status.LastDuration = float64(elapsed.Microseconds()) / 1000
	reg.status.LastError = ""
	if err != nil {
		reg.status.Failures++
		reg.status.LastError = err.Error()
	}
	s.mu.Unlock()

	if err != nil {
		s.log.Error().
			Err(err).
			Str("job", name).
			Dur("duration", elapsed).
			Msg("Job failed")
		return err
	}
	s.log.Debug().Str("job", name).Dur("duration", elapsed).Msg("Job completed")
	return nil
}
