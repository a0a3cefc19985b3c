package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	testutil "github.com/aristath/backtest/internal/testing"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockJob struct {
	mock.Mock
	name string
}

func newMockJob(name string) *MockJob {
	return &MockJob{name: name}
}

func (m *MockJob) Run(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockJob) Name() string {
	return m.name
}

// blockingJob holds its run open until released or its context ends.
type blockingJob struct {
	started chan struct{}
	release chan struct{}
}

func (b *blockingJob) Name() string { return "blocking" }

func (b *blockingJob) Run(ctx context.Context) error {
	close(b.started)
	select {
	case <-b.release:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func TestScheduler_AddJob(t *testing.T) {
	s := New(zerolog.Nop())

	require.NoError(t, s.AddJob("0 */5 * * * *", newMockJob("five_minutes"), 0))
	require.NoError(t, s.AddJob("@hourly", newMockJob("hourly"), time.Second))
	assert.Equal(t, 2, s.Entries())

	// Five-field expressions are rejected: the scheduler expects seconds.
	assert.Error(t, s.AddJob("*/5 * * * *", newMockJob("five_field"), 0))
	assert.Error(t, s.AddJob("not a schedule", newMockJob("garbage"), 0))
	assert.Equal(t, 2, s.Entries())

	// A rejected schedule does not leave a status entry behind.
	statuses := s.Statuses()
	require.Len(t, statuses, 2)
	assert.Equal(t, "five_minutes", statuses[0].Name)
	assert.Equal(t, "hourly", statuses[1].Name)
	assert.Equal(t, "@hourly", statuses[1].Schedule)
}

func TestScheduler_AddJob_DuplicateName(t *testing.T) {
	s := New(zerolog.Nop())

	require.NoError(t, s.AddJob("@hourly", newMockJob("dup"), 0))
	assert.Error(t, s.AddJob("@daily", newMockJob("dup"), 0))
	assert.Equal(t, 1, s.Entries())
}

func TestScheduler_RunNow(t *testing.T) {
	s := New(zerolog.Nop())

	ok := newMockJob("ok")
	ok.On("Run", mock.Anything).Return(nil).Once()
	failing := newMockJob("failing")
	failing.On("Run", mock.Anything).Return(errors.New("boom")).Once()
	require.NoError(t, s.AddJob("@hourly", ok, 0))
	require.NoError(t, s.AddJob("@hourly", failing, 0))

	assert.NoError(t, s.RunNow("ok"))
	assert.EqualError(t, s.RunNow("failing"), "boom")
	assert.Error(t, s.RunNow("unknown"))
	ok.AssertExpectations(t)
	failing.AssertExpectations(t)
}

func TestScheduler_RecordsStatus(t *testing.T) {
	s := New(zerolog.Nop())
	job := newMockJob("maintenance")
	job.On("Run", mock.Anything).Return(errors.New("disk full")).Once()
	job.On("Run", mock.Anything).Return(nil).Once()
	require.NoError(t, s.AddJob("0 0 3 * * *", job, 0))

	before := s.Statuses()
	require.Len(t, before, 1)
	assert.Zero(t, before[0].Runs)
	assert.True(t, before[0].LastRun.IsZero())

	assert.Error(t, s.RunNow("maintenance"))
	status := s.Statuses()[0]
	assert.Equal(t, 1, status.Runs)
	assert.Equal(t, 1, status.Failures)
	assert.Equal(t, "disk full", status.LastError)
	assert.False(t, status.LastRun.IsZero())
	assert.False(t, status.Running)

	// A successful run clears the last error but keeps the failure count.
	assert.NoError(t, s.RunNow("maintenance"))
	status = s.Statuses()[0]
	assert.Equal(t, 2, status.Runs)
	assert.Equal(t, 1, status.Failures)
	assert.Empty(t, status.LastError)
	job.AssertExpectations(t)
}

func TestScheduler_RunReceivesDeadline(t *testing.T) {
	s := New(zerolog.Nop())
	job := newMockJob("bounded")
	job.On("Run", mock.MatchedBy(func(ctx context.Context) bool {
		deadline, ok := ctx.Deadline()
		return ok && time.Until(deadline) <= time.Minute
	})).Return(nil).Once()
	require.NoError(t, s.AddJob("@hourly", job, time.Minute))

	assert.NoError(t, s.RunNow("bounded"))
	job.AssertExpectations(t)
}

func TestScheduler_TimeoutCancelsRun(t *testing.T) {
	s := New(zerolog.Nop())
	job := &blockingJob{started: make(chan struct{}), release: make(chan struct{})}
	require.NoError(t, s.AddJob("@hourly", job, 20*time.Millisecond))

	err := s.RunNow("blocking")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, context.DeadlineExceeded.Error(), s.Statuses()[0].LastError)
}

func TestScheduler_SkipsOverlappingRun(t *testing.T) {
	s := New(zerolog.Nop())
	job := &blockingJob{started: make(chan struct{}), release: make(chan struct{})}
	require.NoError(t, s.AddJob("@hourly", job, time.Minute))

	done := make(chan error, 1)
	go func() { done <- s.RunNow("blocking") }()
	<-job.started

	assert.True(t, s.Statuses()[0].Running)
	assert.Error(t, s.RunNow("blocking"))

	close(job.release)
	require.NoError(t, <-done)
	assert.Equal(t, 1, s.Statuses()[0].Runs)
}

func TestScheduler_StopCancelsRunningJob(t *testing.T) {
	s := New(zerolog.Nop())
	job := &blockingJob{started: make(chan struct{}), release: make(chan struct{})}
	require.NoError(t, s.AddJob("@hourly", job, time.Minute))
	s.Start()

	done := make(chan error, 1)
	go func() { done <- s.RunNow("blocking") }()
	<-job.started

	s.Stop()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("job was not cancelled by Stop")
	}
}

func TestDatabaseMaintenanceJob_Name(t *testing.T) {
	job := NewDatabaseMaintenanceJob(zerolog.Nop())
	assert.Equal(t, "database_maintenance", job.Name())
}

func TestDatabaseMaintenanceJob_Run_NoDatabases(t *testing.T) {
	job := NewDatabaseMaintenanceJob(zerolog.Nop(), nil, nil)
	assert.NoError(t, job.Run(context.Background()))
}

func TestDatabaseMaintenanceJob_Run(t *testing.T) {
	db, cleanup := testutil.NewTestDB(t, "history")
	defer cleanup()

	job := NewDatabaseMaintenanceJob(zerolog.Nop(), db)
	assert.NoError(t, job.Run(context.Background()))
}

func TestDatabaseMaintenanceJob_Run_ClosedDatabase(t *testing.T) {
	db, cleanup := testutil.NewTestDB(t, "history")
	defer cleanup()
	require.NoError(t, db.Close())

	job := NewDatabaseMaintenanceJob(zerolog.Nop(), db)
	assert.Error(t, job.Run(context.Background()))
}

func TestDatabaseMaintenanceJob_Run_Cancelled(t *testing.T) {
	db, cleanup := testutil.NewTestDB(t, "history")
	defer cleanup()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	job := NewDatabaseMaintenanceJob(zerolog.Nop(), db)
	assert.ErrorIs(t, job.Run(ctx), context.Canceled)
}
