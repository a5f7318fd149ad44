// Package scheduler runs the periodic deadline scan that warns candidates
// about engagements ending soon.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"engagement-engine/internal/deadline"
	"engagement-engine/internal/metrics"
	"engagement-engine/internal/models"
	"engagement-engine/internal/notify"
	"engagement-engine/internal/storage"
	"engagement-engine/internal/storage/redis"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	// ErrAlreadyRunning is returned when a run is still in flight in this process.
	ErrAlreadyRunning = errors.New("deadline scan already running")
	// ErrLocked is returned when another instance holds the scan lock.
	ErrLocked = errors.New("deadline scan locked by another instance")
)

// Source is the part of the store a scan reads.
type Source interface {
	ListAcceptedEngagements(ctx context.Context) ([]models.Engagement, error)
	ActivityExists(ctx context.Context, userID, activityType, referenceID string) (bool, error)
}

// Locker serializes scans across instances sharing one database.
type Locker interface {
	AcquireLock(ctx context.Context, key, token string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, key, token string) error
}

type Options struct {
	Interval     time.Duration
	Lookahead    time.Duration
	InitialDelay time.Duration
	Timeout      time.Duration
}

// Summary counts what one run did with the accepted engagements it loaded.
type Summary struct {
	Scanned  int
	Due      int
	Notified int
	Skipped  int
	Failed   int
}

type DeadlineScanner struct {
	source   Source
	notifier *notify.Dispatcher
	locker   Locker
	opts     Options
	logger   *zap.Logger
	now      func() time.Time

	running  atomic.Bool
	stop     chan struct{}
	stopOnce sync.Once
}

// New builds a scanner. locker may be nil when a single instance runs.
func New(source Source, notifier *notify.Dispatcher, locker Locker, opts Options, logger *zap.Logger) *DeadlineScanner {
	return &DeadlineScanner{
		source:   source,
		notifier: notifier,
		locker:   locker,
		opts:     opts,
		logger:   logger,
		now:      time.Now,
		stop:     make(chan struct{}),
	}
}

// Start runs a scan after the initial delay and then on every tick until
// ctx is done or Stop is called.
func (s *DeadlineScanner) Start(ctx context.Context) {
	ticker := time.NewTicker(s.opts.Interval)
	defer ticker.Stop()

	s.logger.Info("deadline scanner started",
		zap.Duration("interval", s.opts.Interval),
		zap.Duration("lookahead", s.opts.Lookahead),
	)

	delay := time.NewTimer(s.opts.InitialDelay)
	defer delay.Stop()

	select {
	case <-ctx.Done():
		s.logger.Info("deadline scanner stopped")
		return
	case <-s.stop:
		s.logger.Info("deadline scanner stopped")
		return
	case <-delay.C:
		s.tick(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("deadline scanner stopped")
			return
		case <-s.stop:
			s.logger.Info("deadline scanner stopped")
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

// Stop prevents further runs. A run already in flight completes.
func (s *DeadlineScanner) Stop() {
	s.stopOnce.Do(func() { close(s.stop) })
}

// tick runs one scan detached from ctx cancellation so shutdown does not cut
// a run short.
func (s *DeadlineScanner) tick(ctx context.Context) {
	runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.opts.Timeout)
	defer cancel()

	if _, err := s.RunOnce(runCtx); err != nil {
		switch {
		case errors.Is(err, ErrAlreadyRunning), errors.Is(err, ErrLocked):
			s.logger.Info("deadline scan skipped", zap.Error(err))
		default:
			s.logger.Error("deadline scan failed", zap.Error(err))
		}
	}
}

// RunOnce performs a single scan.
func (s *DeadlineScanner) RunOnce(ctx context.Context) (Summary, error) {
	if !s.running.CompareAndSwap(false, true) {
		metrics.ScanRuns.WithLabelValues("skipped").Inc()
		return Summary{}, ErrAlreadyRunning
	}
	defer s.running.Store(false)

	if s.locker != nil {
		token := uuid.NewString()
		acquired, err := s.locker.AcquireLock(ctx, redis.ScanLockKey(), token, redis.ScanLockTTL)
		if err != nil {
			metrics.ScanRuns.WithLabelValues("failed").Inc()
			return Summary{}, fmt.Errorf("acquire scan lock: %w", err)
		}
		if !acquired {
			metrics.ScanRuns.WithLabelValues("skipped").Inc()
			return Summary{}, ErrLocked
		}
		defer func() {
			if err := s.locker.ReleaseLock(context.WithoutCancel(ctx), redis.ScanLockKey(), token); err != nil {
				s.logger.Warn("failed to release scan lock", zap.Error(err))
			}
		}()
	}

	started := time.Now()
	summary, err := s.scan(ctx)
	metrics.ScanDuration.Observe(time.Since(started).Seconds())
	metrics.ScanWarnings.Add(float64(summary.Notified))

	if err != nil {
		metrics.ScanRuns.WithLabelValues("failed").Inc()
		return summary, err
	}
	metrics.ScanRuns.WithLabelValues("ok").Inc()

	s.logger.Info("deadline scan finished",
		zap.Int("scanned", summary.Scanned),
		zap.Int("due", summary.Due),
		zap.Int("notified", summary.Notified),
		zap.Int("skipped", summary.Skipped),
		zap.Int("failed", summary.Failed),
	)
	return summary, nil
}

func (s *DeadlineScanner) scan(ctx context.Context) (Summary, error) {
	var summary Summary

	engagements, err := s.source.ListAcceptedEngagements(ctx)
	if err != nil {
		return summary, fmt.Errorf("list accepted engagements: %w", err)
	}
	summary.Scanned = len(engagements)

	now := s.now().UTC()
	horizon := now.Add(s.opts.Lookahead)

	for i := range engagements {
		e := &engagements[i]

		res, ok := deadline.Resolve(e.Schedule())
		if !ok || res.End.Before(now) || res.End.After(horizon) {
			continue
		}
		summary.Due++

		if err := s.warn(ctx, e, res, now); err != nil {
			if errors.Is(err, storage.ErrDuplicate) {
				summary.Skipped++
				continue
			}
			summary.Failed++
			s.logger.Error("failed to send deadline warning",
				zap.String("candidate_id", e.CandidateID),
				zap.String("job_id", e.JobID),
				zap.Error(err),
			)
			continue
		}
		summary.Notified++
	}

	return summary, nil
}

// warn returns storage.ErrDuplicate when the candidate was already warned
// about the job.
func (s *DeadlineScanner) warn(ctx context.Context, e *models.Engagement, res deadline.Resolution, now time.Time) error {
	exists, err := s.source.ActivityExists(ctx, e.CandidateID, models.ActivityDeadlineWarning, e.JobID)
	if err != nil {
		return fmt.Errorf("check existing warning: %w", err)
	}
	if exists {
		return storage.ErrDuplicate
	}

	remaining, ok := deadline.RemainingLabel(e.Schedule(), now)
	if !ok {
		remaining = deadline.ExpiringSoon
	}

	_, err = s.notifier.Notify(ctx, notify.Notification{
		UserID:        e.CandidateID,
		Type:          models.ActivityDeadlineWarning,
		Message:       notify.DeadlineWarning(e.JobTitle, remaining, res.End),
		ReferenceID:   e.JobID,
		ReferenceType: models.ReferenceJob,
		Status:        models.ActivityStatusWarning,
		Meta: models.Meta{
			"source":        string(res.Source),
			"endDate":       res.End.UTC().Format(time.RFC3339),
			"remaining":     remaining,
			"jobId":         e.JobID,
			"applicationId": e.ApplicationID,
		},
	})
	return err
}
