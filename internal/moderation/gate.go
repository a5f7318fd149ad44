// Package moderation files content reports and freezes reported jobs until
// an admin clears them.
package moderation

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"engagement-engine/internal/apperrors"
	"engagement-engine/internal/metrics"
	"engagement-engine/internal/models"
	"engagement-engine/internal/notify"
	"engagement-engine/internal/storage"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const maxCommentLength = 1000

type ReportInput struct {
	ContentID   string              `json:"contentId"`
	ContentType models.ContentType  `json:"contentType"`
	Reason      models.ReportReason `json:"reason"`
	Comment     string              `json:"comment"`
}

// target is the reported content as seen by the gate.
type target struct {
	ownerID string
	job     *models.Job
}

type loader func(ctx context.Context, id string) (*target, error)

type Gate struct {
	store    storage.Store
	notifier *notify.Dispatcher
	logger   *zap.Logger
	loaders  map[models.ContentType]loader
	now      func() time.Time
}

func NewGate(store storage.Store, notifier *notify.Dispatcher, logger *zap.Logger) *Gate {
	g := &Gate{
		store:    store,
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
	}
	g.loaders = map[models.ContentType]loader{
		models.ContentJob:  g.loadJob,
		models.ContentUser: g.loadUser,
	}
	return g
}

func (g *Gate) loadJob(ctx context.Context, id string) (*target, error) {
	job, err := g.store.GetJob(ctx, id)
	if err != nil || job == nil {
		return nil, err
	}
	return &target{ownerID: job.OwnerID, job: job}, nil
}

func (g *Gate) loadUser(ctx context.Context, id string) (*target, error) {
	user, err := g.store.GetUser(ctx, id)
	if err != nil || user == nil {
		return nil, err
	}
	return &target{ownerID: user.ID}, nil
}

// FileReport records a report. A reported job is frozen and its owner is
// told in the same transaction.
func (g *Gate) FileReport(ctx context.Context, actor models.Actor, in ReportInput) (*models.Report, error) {
	in.ContentID = strings.TrimSpace(in.ContentID)
	in.Comment = strings.TrimSpace(in.Comment)

	load, ok := g.loaders[in.ContentType]
	if !ok {
		return nil, apperrors.Validation("unknown content type %q", in.ContentType)
	}
	if in.ContentID == "" {
		return nil, apperrors.Validation("contentId is required")
	}
	if !models.ReportReasons[in.Reason] {
		return nil, apperrors.Validation("unknown report reason %q", in.Reason)
	}
	if utf8.RuneCountInString(in.Comment) > maxCommentLength {
		return nil, apperrors.Validation("comment must be at most %d characters", maxCommentLength)
	}

	t, err := load(ctx, in.ContentID)
	if err != nil {
		return nil, apperrors.Internal("load reported content", err)
	}
	if t == nil {
		return nil, apperrors.NotFound(string(in.ContentType))
	}
	if t.ownerID == actor.UserID {
		return nil, apperrors.Validation("you cannot report your own content")
	}

	report := &models.Report{
		ID:          uuid.NewString(),
		ContentID:   in.ContentID,
		ContentType: in.ContentType,
		ReporterID:  actor.UserID,
		Reason:      in.Reason,
		Status:      models.ReportPending,
		CreatedAt:   g.now().UTC(),
	}
	if in.Comment != "" {
		report.Comment = &in.Comment
	}

	var activities []*models.Activity
	freeze := t.job != nil
	if freeze {
		activities = append(activities, g.notifier.Prepare(notify.Notification{
			UserID:        t.ownerID,
			Type:          models.ActivityJobReported,
			Message:       notify.JobReported(t.job.Title),
			ReferenceID:   t.job.ID,
			ReferenceType: models.ReferenceJob,
			Status:        models.ActivityStatusWarning,
			Meta:          models.Meta{"reportId": report.ID, "reason": string(report.Reason)},
		}))
	}

	if err := g.store.CreateReport(ctx, report, freeze, activities); err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			return nil, apperrors.Conflict(apperrors.CodeDuplicateReport, "you have already reported this content")
		}
		return nil, apperrors.Internal("create report", err)
	}

	metrics.ReportsFiled.WithLabelValues(string(report.ContentType)).Inc()
	g.notifier.Published(ctx, activities...)

	g.logger.Info("content reported",
		zap.String("report_id", report.ID),
		zap.String("content_type", string(report.ContentType)),
		zap.String("content_id", report.ContentID),
		zap.Bool("frozen", freeze),
	)
	return report, nil
}

// Unfreeze clears moderation on a job. A job frozen while published goes
// back to published.
func (g *Gate) Unfreeze(ctx context.Context, actor models.Actor, jobID string) (*models.Job, error) {
	job, err := g.store.GetJob(ctx, jobID)
	if err != nil {
		return nil, apperrors.Internal("load job", err)
	}
	if job == nil {
		return nil, apperrors.NotFound("job")
	}
	if !actor.IsAdmin() {
		return nil, apperrors.Forbidden("only an admin can unfreeze a job")
	}
	if !job.IsFrozen {
		return nil, apperrors.Conflict(apperrors.CodeInvalidTransition, "job is not frozen")
	}

	activity := g.notifier.Prepare(notify.Notification{
		UserID:        job.OwnerID,
		Type:          models.ActivityJobUnfrozen,
		Message:       notify.JobUnfrozen(job.Title),
		ReferenceID:   job.ID,
		ReferenceType: models.ReferenceJob,
		Status:        models.ActivityStatusSuccess,
	})

	if err := g.store.UnfreezeJob(ctx, job, []*models.Activity{activity}); err != nil {
		if errors.Is(err, storage.ErrStaleVersion) {
			return nil, apperrors.Conflict(apperrors.CodeConcurrentUpdate, "job changed concurrently, reload and retry")
		}
		return nil, apperrors.Internal("unfreeze job", err)
	}

	metrics.TransitionsTotal.WithLabelValues("job", string(job.Status)).Inc()
	g.notifier.Published(ctx, activity)

	g.logger.Info("job unfrozen",
		zap.String("job_id", job.ID),
		zap.String("actor", actor.UserID),
	)
	return job, nil
}
