package engagement

import (
	"context"
	"fmt"
	"strings"
	"time"

	"engagement-engine/internal/apperrors"
	"engagement-engine/internal/deadline"
	"engagement-engine/internal/metrics"
	"engagement-engine/internal/models"
	"engagement-engine/internal/notify"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// JobView is a job plus the fields derived at read time.
type JobView struct {
	*models.Job
	IsActive      bool       `json:"isActive"`
	EndDate       *time.Time `json:"endDate,omitempty"`
	TimeRemaining *string    `json:"timeRemaining,omitempty"`
	URL           string     `json:"url"`
}

// View derives the read-time fields of a job.
func View(job *models.Job, now time.Time, baseURL string) JobView {
	view := JobView{
		Job:      job,
		IsActive: job.Status == models.JobStatusPublished && !job.IsFrozen,
		EndDate:  deadline.EffectiveEndDate(job.Schedule()),
		URL:      JobURL(baseURL, job.ID),
	}
	if label, ok := deadline.RemainingLabel(job.Schedule(), now); ok {
		view.TimeRemaining = &label
	}
	return view
}

func JobURL(baseURL, jobID string) string {
	return fmt.Sprintf("%s/jobs/%s", strings.TrimRight(baseURL, "/"), jobID)
}

func (s *Service) CreateJob(ctx context.Context, actor models.Actor, in JobInput) (*models.Job, error) {
	if actor.Role != models.RoleClient && !actor.IsAdmin() {
		return nil, apperrors.Forbidden("only clients can post jobs")
	}

	now := s.now().UTC()
	if err := prepareJob(&in, now); err != nil {
		return nil, err
	}

	job := &models.Job{
		ID:            uuid.NewString(),
		OwnerID:       actor.UserID,
		Title:         in.Title,
		Description:   in.Description,
		Category:      in.Category,
		Type:          in.Type,
		BudgetMin:     in.BudgetMin,
		BudgetMax:     in.BudgetMax,
		Currency:      in.Currency,
		LocationKind:  in.LocationKind,
		LocationCity:  in.LocationCity,
		Experience:    in.Experience,
		Tags:          in.Tags,
		Status:        models.JobStatusPending,
		Deadline:      in.Deadline,
		StartDate:     in.StartDate,
		DurationValue: in.DurationValue,
		DurationUnit:  in.DurationUnit,
		Version:       1,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.store.CreateJob(ctx, job); err != nil {
		return nil, apperrors.Internal("create job", err)
	}

	s.logger.Info("job created",
		zap.String("job_id", job.ID),
		zap.String("owner_id", job.OwnerID),
	)
	return job, nil
}

// GetJob returns the job view and counts the view. Jobs awaiting approval or
// under moderation are only visible to their owner and admins.
func (s *Service) GetJob(ctx context.Context, actor models.Actor, jobID string) (JobView, error) {
	job, err := s.loadJob(ctx, jobID)
	if err != nil {
		return JobView{}, err
	}

	hidden := job.Status == models.JobStatusPending || job.IsFrozen
	if hidden && !canManage(actor, job) {
		return JobView{}, apperrors.NotFound("job")
	}

	if !job.IsOwnedBy(actor.UserID) {
		if err := s.store.IncrementJobViews(ctx, job.ID); err != nil {
			s.logger.Warn("failed to count job view", zap.String("job_id", job.ID), zap.Error(err))
		} else {
			job.ViewCount++
		}
	}

	return View(job, s.now(), s.baseURL), nil
}

// UpdateJobStatus moves a job along its lifecycle. Publishing a pending job
// is an admin approval.
func (s *Service) UpdateJobStatus(ctx context.Context, actor models.Actor, jobID, rawStatus string) (*models.Job, error) {
	status, ok := models.ParseJobStatus(rawStatus)
	if !ok {
		return nil, rejected("job", apperrors.Validation("unknown job status %q", rawStatus))
	}

	job, err := s.managedJob(ctx, actor, jobID)
	if err != nil {
		return nil, rejected("job", err)
	}

	from := job.Status
	if !CanMoveJob(from, status) {
		return nil, rejected("job", apperrors.Conflict(apperrors.CodeInvalidTransition,
			"cannot move job from %s to %s", from, status))
	}
	if from == models.JobStatusPending && status == models.JobStatusPublished && !actor.IsAdmin() {
		return nil, rejected("job", apperrors.Forbidden("only an admin can approve a pending job"))
	}

	var activities []*models.Activity
	if notifiesOwner(from, status) {
		activityStatus := models.ActivityStatusInfo
		if status == models.JobStatusFilled || status == models.JobStatusPublished {
			activityStatus = models.ActivityStatusSuccess
		}
		activities = append(activities, s.notifier.Prepare(notify.Notification{
			UserID:        job.OwnerID,
			Type:          models.ActivityJobStatus,
			Message:       notify.JobStatus(job.Title, status),
			ReferenceID:   job.ID,
			ReferenceType: models.ReferenceJob,
			Status:        activityStatus,
			Meta:          models.Meta{"from": string(from), "to": string(status)},
		}))
	}

	if err := s.store.UpdateJobStatus(ctx, job, status, activities); err != nil {
		return nil, rejected("job", storeError("update job status", err))
	}

	metrics.TransitionsTotal.WithLabelValues("job", string(status)).Inc()
	s.notifier.Published(ctx, activities...)

	s.logger.Info("job status changed",
		zap.String("job_id", job.ID),
		zap.String("from", string(from)),
		zap.String("to", string(status)),
		zap.String("actor", actor.UserID),
	)
	return job, nil
}

func (s *Service) DeleteJob(ctx context.Context, actor models.Actor, jobID string) error {
	job, err := s.loadJob(ctx, jobID)
	if err != nil {
		return err
	}
	if !canManage(actor, job) {
		return apperrors.Forbidden("only the job owner or an admin can delete a job")
	}

	if err := s.store.DeleteJob(ctx, job.ID); err != nil {
		return apperrors.Internal("delete job", err)
	}

	s.logger.Info("job deleted", zap.String("job_id", job.ID), zap.String("actor", actor.UserID))
	return nil
}

// CloneJob copies a job into a new pending posting. Counters, moderation state
// and an elapsed deadline are not carried over.
func (s *Service) CloneJob(ctx context.Context, actor models.Actor, jobID string) (*models.Job, error) {
	src, err := s.loadJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if !canManage(actor, src) {
		return nil, apperrors.Forbidden("only the job owner or an admin can clone a job")
	}

	now := s.now().UTC()
	clone := *src
	clone.ID = uuid.NewString()
	clone.Title = "Copy of " + src.Title
	if len([]rune(clone.Title)) > maxTitleLength {
		clone.Title = string([]rune(clone.Title)[:maxTitleLength])
	}
	clone.Tags = append([]string(nil), src.Tags...)
	clone.Status = models.JobStatusPending
	clone.IsFrozen = false
	clone.ApplicationCount = 0
	clone.ViewCount = 0
	sourceID := src.ID
	clone.ClonedFromID = &sourceID
	clone.Version = 1
	clone.CreatedAt = now
	clone.UpdatedAt = now
	if clone.Deadline != nil && !clone.Deadline.After(now) {
		clone.Deadline = nil
	}

	if err := s.store.CreateJob(ctx, &clone); err != nil {
		return nil, apperrors.Internal("clone job", err)
	}

	s.logger.Info("job cloned",
		zap.String("job_id", clone.ID),
		zap.String("source_id", src.ID),
	)
	return &clone, nil
}
