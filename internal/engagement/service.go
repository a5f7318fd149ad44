// Package engagement applies guarded lifecycle transitions to jobs,
// applications and recommendations.
package engagement

import (
	"context"
	"errors"
	"time"

	"engagement-engine/internal/apperrors"
	"engagement-engine/internal/metrics"
	"engagement-engine/internal/models"
	"engagement-engine/internal/notify"
	"engagement-engine/internal/storage"

	"go.uber.org/zap"
)

type Service struct {
	store    storage.Store
	notifier *notify.Dispatcher
	baseURL  string
	logger   *zap.Logger
	now      func() time.Time
}

func NewService(store storage.Store, notifier *notify.Dispatcher, baseURL string, logger *zap.Logger) *Service {
	return &Service{
		store:    store,
		notifier: notifier,
		baseURL:  baseURL,
		logger:   logger,
		now:      time.Now,
	}
}

func canManage(actor models.Actor, job *models.Job) bool {
	return actor.IsAdmin() || job.IsOwnedBy(actor.UserID)
}

func (s *Service) loadJob(ctx context.Context, jobID string) (*models.Job, error) {
	job, err := s.store.GetJob(ctx, jobID)
	if err != nil {
		return nil, apperrors.Internal("load job", err)
	}
	if job == nil {
		return nil, apperrors.NotFound("job")
	}
	return job, nil
}

func (s *Service) loadApplication(ctx context.Context, applicationID string) (*models.Application, error) {
	app, err := s.store.GetApplication(ctx, applicationID)
	if err != nil {
		return nil, apperrors.Internal("load application", err)
	}
	if app == nil {
		return nil, apperrors.NotFound("application")
	}
	return app, nil
}

// managedJob loads a job the actor may change and rejects frozen jobs.
func (s *Service) managedJob(ctx context.Context, actor models.Actor, jobID string) (*models.Job, error) {
	job, err := s.loadJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if !canManage(actor, job) {
		return nil, apperrors.Forbidden("only the job owner or an admin can do this")
	}
	if job.IsFrozen {
		return nil, frozen()
	}
	return job, nil
}

func frozen() error {
	return apperrors.Conflict(apperrors.CodeFrozen, "job is frozen pending moderation review")
}

// storeError maps storage sentinels onto the error taxonomy.
func storeError(op string, err error) error {
	switch {
	case errors.Is(err, storage.ErrStaleVersion):
		return apperrors.Conflict(apperrors.CodeConcurrentUpdate, "%s: record changed concurrently, reload and retry", op)
	case errors.Is(err, storage.ErrPrecondition):
		return apperrors.Conflict(apperrors.CodeInvalidTransition, "%s: target is no longer in a valid state", op)
	default:
		return apperrors.Internal(op, err)
	}
}

// rejected counts a refused transition and passes the error through.
func rejected(entity string, err error) error {
	var appErr *apperrors.Error
	if errors.As(err, &appErr) && appErr.Kind != apperrors.KindInternal {
		metrics.TransitionsRejected.WithLabelValues(entity, string(appErr.Code)).Inc()
	}
	return err
}

// BaseURL is the public origin used for job links.
func (s *Service) BaseURL() string {
	return s.baseURL
}
