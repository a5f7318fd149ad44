package engagement

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"engagement-engine/internal/apperrors"
	"engagement-engine/internal/metrics"
	"engagement-engine/internal/models"
	"engagement-engine/internal/notify"
	"engagement-engine/internal/realtime"
	"engagement-engine/internal/storage"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"go.uber.org/zap"
)

const (
	minCoverLetterLength = 20
	maxCoverLetterLength = 5000
	MaxAttachments       = 5
	maxAttachmentLength  = 512
	maxWithdrawalReason  = 500
)

type ApplyInput struct {
	CoverLetter string
	// Attachments are references to stored files.
	Attachments []string
}

func validateApply(in *ApplyInput) error {
	in.CoverLetter = strings.TrimSpace(in.CoverLetter)
	if n := utf8.RuneCountInString(in.CoverLetter); n < minCoverLetterLength || n > maxCoverLetterLength {
		return apperrors.Validation("cover letter must be between %d and %d characters", minCoverLetterLength, maxCoverLetterLength)
	}
	if len(in.Attachments) > MaxAttachments {
		return apperrors.Validation("at most %d attachments are allowed", MaxAttachments)
	}
	for _, ref := range in.Attachments {
		if ref == "" || len(ref) > maxAttachmentLength {
			return apperrors.Validation("invalid attachment reference")
		}
	}
	return nil
}

// Apply submits a candidate's application to a published job.
func (s *Service) Apply(ctx context.Context, actor models.Actor, jobID string, in ApplyInput) (*models.Application, error) {
	if actor.Role != models.RoleCandidate {
		return nil, rejected("application", apperrors.Forbidden("only candidates can apply to jobs"))
	}
	if err := validateApply(&in); err != nil {
		return nil, rejected("application", err)
	}

	job, err := s.loadJob(ctx, jobID)
	if err != nil {
		return nil, rejected("application", err)
	}
	if job.IsFrozen {
		return nil, rejected("application", frozen())
	}
	if !job.AcceptsApplications() {
		return nil, rejected("application", apperrors.Conflict(apperrors.CodeInvalidTransition,
			"job is %s and does not accept applications", job.Status))
	}

	attachments := pq.StringArray{}
	attachments = append(attachments, in.Attachments...)

	now := s.now().UTC()
	app := &models.Application{
		ID:          uuid.NewString(),
		JobID:       job.ID,
		CandidateID: actor.UserID,
		CoverLetter: in.CoverLetter,
		Attachments: attachments,
		Status:      models.ApplicationPending,
		Version:     1,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	app.Record(models.HistoryCreated, actor.UserID, "", now)

	activity := s.notifier.Prepare(notify.Notification{
		UserID:        job.OwnerID,
		Type:          models.ActivityNewApplication,
		Message:       notify.NewApplication(job.Title),
		ReferenceID:   app.ID,
		ReferenceType: models.ReferenceApplication,
		Meta:          models.Meta{"jobId": job.ID, "candidateId": actor.UserID},
	})

	if err := s.store.CreateApplication(ctx, app, []*models.Activity{activity}); err != nil {
		switch {
		case errors.Is(err, storage.ErrDuplicate):
			return nil, rejected("application", apperrors.Conflict(apperrors.CodeDuplicateApplication,
				"you have already applied to this job"))
		case errors.Is(err, storage.ErrPrecondition):
			return nil, rejected("application", apperrors.Conflict(apperrors.CodeInvalidTransition,
				"job no longer accepts applications"))
		}
		return nil, apperrors.Internal("create application", err)
	}

	metrics.TransitionsTotal.WithLabelValues("application", string(app.Status)).Inc()
	s.notifier.Published(ctx, activity)
	s.notifier.Emit(ctx, job.OwnerID, realtime.EventNewApplication, app)

	s.logger.Info("application submitted",
		zap.String("application_id", app.ID),
		zap.String("job_id", job.ID),
		zap.String("candidate_id", actor.UserID),
	)
	return app, nil
}

var applicationActivity = map[models.ApplicationStatus]struct {
	kind   string
	status string
}{
	models.ApplicationAccepted: {models.ActivityApplicationAccepted, models.ActivityStatusSuccess},
	models.ApplicationRejected: {models.ActivityApplicationRejected, models.ActivityStatusError},
	models.ApplicationReviewed: {models.ActivityApplicationReviewed, models.ActivityStatusInfo},
}

// UpdateApplicationStatus is the job owner's review decision.
func (s *Service) UpdateApplicationStatus(ctx context.Context, actor models.Actor, applicationID, rawStatus string) (*models.Application, error) {
	status, ok := models.ParseApplicationStatus(strings.ToLower(strings.TrimSpace(rawStatus)))
	if !ok {
		return nil, rejected("application", apperrors.Validation("unknown application status %q", rawStatus))
	}

	app, err := s.loadApplication(ctx, applicationID)
	if err != nil {
		return nil, rejected("application", err)
	}
	job, err := s.managedJob(ctx, actor, app.JobID)
	if err != nil {
		return nil, rejected("application", err)
	}

	from := app.Status
	if !CanMoveApplication(from, status) {
		return nil, rejected("application", apperrors.Conflict(apperrors.CodeInvalidTransition,
			"cannot move application from %s to %s", from, status))
	}

	now := s.now().UTC()
	app.Status = status
	app.Record(models.HistoryStatusChanged, actor.UserID, fmt.Sprintf("%s -> %s", from, status), now)

	var activities []*models.Activity
	if kind, ok := applicationActivity[status]; ok {
		activities = append(activities, s.notifier.Prepare(notify.Notification{
			UserID:        app.CandidateID,
			Type:          kind.kind,
			Message:       notify.ApplicationStatus(job.Title, status),
			ReferenceID:   app.ID,
			ReferenceType: models.ReferenceApplication,
			Status:        kind.status,
			Meta:          models.Meta{"jobId": job.ID},
		}))
	}

	if err := s.store.UpdateApplication(ctx, app, activities); err != nil {
		return nil, rejected("application", storeError("update application", err))
	}

	metrics.TransitionsTotal.WithLabelValues("application", string(status)).Inc()
	s.notifier.Published(ctx, activities...)
	s.notifier.Emit(ctx, app.CandidateID, realtime.EventApplicationUpdated, app)

	s.logger.Info("application status changed",
		zap.String("application_id", app.ID),
		zap.String("from", string(from)),
		zap.String("to", string(status)),
		zap.String("actor", actor.UserID),
	)
	return app, nil
}

// Withdraw lets the candidate retract an application that is still open.
func (s *Service) Withdraw(ctx context.Context, actor models.Actor, applicationID, reason string) (*models.Application, error) {
	reason = strings.TrimSpace(reason)
	if utf8.RuneCountInString(reason) > maxWithdrawalReason {
		return nil, rejected("application", apperrors.Validation("reason must be at most %d characters", maxWithdrawalReason))
	}

	app, err := s.loadApplication(ctx, applicationID)
	if err != nil {
		return nil, rejected("application", err)
	}
	if app.CandidateID != actor.UserID {
		return nil, rejected("application", apperrors.Forbidden("only the applicant can withdraw an application"))
	}
	job, err := s.loadJob(ctx, app.JobID)
	if err != nil {
		return nil, rejected("application", err)
	}
	if job.IsFrozen {
		return nil, rejected("application", frozen())
	}
	if !CanWithdraw(app.Status) {
		return nil, rejected("application", apperrors.Conflict(apperrors.CodeInvalidTransition,
			"cannot withdraw an application that is %s", app.Status))
	}

	now := s.now().UTC()
	app.Status = models.ApplicationWithdrawn
	if reason != "" {
		app.WithdrawalReason = &reason
	}
	app.Record(models.HistoryWithdrawn, actor.UserID, reason, now)

	activity := s.notifier.Prepare(notify.Notification{
		UserID:        job.OwnerID,
		Type:          models.ActivityApplicationWithdrawn,
		Message:       notify.ApplicationWithdrawn(job.Title, reason),
		ReferenceID:   app.ID,
		ReferenceType: models.ReferenceApplication,
		Status:        models.ActivityStatusWarning,
		Meta:          models.Meta{"jobId": job.ID, "candidateId": app.CandidateID},
	})

	if err := s.store.UpdateApplication(ctx, app, []*models.Activity{activity}); err != nil {
		return nil, rejected("application", storeError("withdraw application", err))
	}

	metrics.TransitionsTotal.WithLabelValues("application", string(app.Status)).Inc()
	s.notifier.Published(ctx, activity)
	s.notifier.Emit(ctx, job.OwnerID, realtime.EventApplicationWithdrawn, app)

	s.logger.Info("application withdrawn",
		zap.String("application_id", app.ID),
		zap.String("candidate_id", actor.UserID),
	)
	return app, nil
}
