package scheduler

import (
	"context"
	"fmt"
	"testing"
	"time"

	"engagement-engine/internal/models"
	"engagement-engine/internal/notify"
	"engagement-engine/internal/storage/memory"
	"engagement-engine/internal/storage/redis"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

var now = time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC)

func ptr[T any](v T) *T { return &v }

// seedEngagement stores a published job with one accepted application.
func seedEngagement(t *testing.T, store *memory.Store, n int, mutate func(*models.Job)) *models.Job {
	t.Helper()
	ctx := context.Background()
	job := &models.Job{
		ID:        fmt.Sprintf("job-%d", n),
		OwnerID:   "client-1",
		Title:     fmt.Sprintf("Mission %d", n),
		Status:    models.JobStatusPublished,
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
	mutate(job)
	require.NoError(t, store.CreateJob(ctx, job))

	app := &models.Application{
		ID:          fmt.Sprintf("app-%d", n),
		JobID:       job.ID,
		CandidateID: "cand-1",
		Status:      models.ApplicationPending,
		Version:     1,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	require.NoError(t, store.CreateApplication(ctx, app, nil))
	app.Status = models.ApplicationAccepted
	require.NoError(t, store.UpdateApplication(ctx, app, nil))
	return job
}

func newScanner(t *testing.T, store *memory.Store, locker Locker) *DeadlineScanner {
	t.Helper()
	logger := zaptest.NewLogger(t)
	s := New(store, notify.NewDispatcher(store, nil, logger), locker, Options{
		Interval:     time.Hour,
		Lookahead:    72 * time.Hour,
		InitialDelay: 0,
		Timeout:      time.Minute,
	}, logger)
	s.now = func() time.Time { return now }
	return s
}

func warnings(t *testing.T, store *memory.Store) []models.Activity {
	t.Helper()
	list, err := store.ListRecentActivities(context.Background(), "cand-1", 100)
	require.NoError(t, err)
	var out []models.Activity
	for _, a := range list {
		if a.Type == models.ActivityDeadlineWarning {
			out = append(out, a)
		}
	}
	return out
}

func TestRunOnce_WarnsOncePerEngagement(t *testing.T) {
	store := memory.New()
	seedEngagement(t, store, 1, func(j *models.Job) { j.Deadline = ptr(now.Add(48*time.Hour + time.Minute)) })
	s := newScanner(t, store, nil)

	first, err := s.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Summary{Scanned: 1, Due: 1, Notified: 1}, first)

	second, err := s.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Summary{Scanned: 1, Due: 1, Skipped: 1}, second)

	list := warnings(t, store)
	require.Len(t, list, 1)
	assert.Equal(t, "job-1", *list[0].ReferenceID)
	assert.Equal(t, "deadline", list[0].Meta["source"])
	assert.Contains(t, list[0].Message, "2 days")
}

func TestRunOnce_Window(t *testing.T) {
	store := memory.New()
	seedEngagement(t, store, 1, func(j *models.Job) { j.Deadline = ptr(now.Add(-time.Hour)) })
	seedEngagement(t, store, 2, func(j *models.Job) { j.Deadline = ptr(now.Add(10 * 24 * time.Hour)) })
	seedEngagement(t, store, 3, func(j *models.Job) {
		j.StartDate = ptr(now.Add(-24 * time.Hour))
		j.DurationValue = ptr(3)
		j.DurationUnit = ptr("project")
	})
	seedEngagement(t, store, 4, func(j *models.Job) {
		j.StartDate = ptr(now.Add(-13 * 24 * time.Hour))
		j.DurationValue = ptr(2)
		j.DurationUnit = ptr("semaines")
	})
	seedEngagement(t, store, 5, func(j *models.Job) { j.Deadline = ptr(now.Add(30 * time.Minute)) })
	s := newScanner(t, store, nil)

	summary, err := s.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Summary{Scanned: 5, Due: 2, Notified: 2}, summary)

	bySource := map[string]models.Activity{}
	for _, a := range warnings(t, store) {
		bySource[*a.ReferenceID] = a
	}
	require.Contains(t, bySource, "job-4")
	assert.Equal(t, "start+duration", bySource["job-4"].Meta["source"])
	require.Contains(t, bySource, "job-5")
	assert.Contains(t, bySource["job-5"].Message, "expiring soon")
}

func TestRunOnce_ReentrancyGuard(t *testing.T) {
	s := newScanner(t, memory.New(), nil)
	s.running.Store(true)

	_, err := s.RunOnce(context.Background())
	assert.ErrorIs(t, err, ErrAlreadyRunning)
}

func TestRunOnce_DistributedLock(t *testing.T) {
	mr := miniredis.RunT(t)
	client, err := redis.New(mr.Addr(), "", 0, zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	store := memory.New()
	seedEngagement(t, store, 1, func(j *models.Job) { j.Deadline = ptr(now.Add(24 * time.Hour)) })

	ok, err := client.AcquireLock(context.Background(), redis.ScanLockKey(), "other-instance", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	s := newScanner(t, store, client)
	_, err = s.RunOnce(context.Background())
	assert.ErrorIs(t, err, ErrLocked)
	assert.Empty(t, warnings(t, store))

	require.NoError(t, client.ReleaseLock(context.Background(), redis.ScanLockKey(), "other-instance"))

	summary, err := s.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Notified)
	assert.False(t, mr.Exists(redis.ScanLockKey()), "lock released after the run")
}

func TestStartAndStop(t *testing.T) {
	store := memory.New()
	seedEngagement(t, store, 1, func(j *models.Job) { j.Deadline = ptr(now.Add(24 * time.Hour)) })
	s := newScanner(t, store, nil)

	done := make(chan struct{})
	go func() {
		s.Start(context.Background())
		close(done)
	}()

	require.Eventually(t, func() bool {
		exists, err := store.ActivityExists(context.Background(), "cand-1", models.ActivityDeadlineWarning, "job-1")
		return err == nil && exists
	}, 2*time.Second, 10*time.Millisecond)

	s.Stop()
	s.Stop()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("scanner did not stop")
	}
}
