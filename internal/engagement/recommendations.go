package engagement

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"engagement-engine/internal/apperrors"
	"engagement-engine/internal/badge"
	"engagement-engine/internal/metrics"
	"engagement-engine/internal/models"
	"engagement-engine/internal/notify"
	"engagement-engine/internal/realtime"
	"engagement-engine/internal/storage"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const maxRecommendationMessage = 1000

type RecommendInput struct {
	CandidateID string `json:"employeeId"`
	Message     string `json:"message"`
}

type RecommendationResult struct {
	Recommendation *models.Recommendation `json:"recommendation"`
	Count          int                    `json:"count"`
	Badge          models.BadgeTier       `json:"badge"`
}

// Recommend endorses a candidate whose application to the job was accepted
// and refreshes the candidate's badge from the new endorsement count.
func (s *Service) Recommend(ctx context.Context, actor models.Actor, jobID string, in RecommendInput) (*RecommendationResult, error) {
	in.CandidateID = strings.TrimSpace(in.CandidateID)
	in.Message = strings.TrimSpace(in.Message)
	if in.CandidateID == "" {
		return nil, rejected("recommendation", apperrors.Validation("employeeId is required"))
	}
	if utf8.RuneCountInString(in.Message) > maxRecommendationMessage {
		return nil, rejected("recommendation", apperrors.Validation("message must be at most %d characters", maxRecommendationMessage))
	}

	job, err := s.managedJob(ctx, actor, jobID)
	if err != nil {
		return nil, rejected("recommendation", err)
	}

	accepted, err := s.store.HasAcceptedApplication(ctx, job.ID, in.CandidateID)
	if err != nil {
		return nil, apperrors.Internal("check accepted application", err)
	}
	if !accepted {
		return nil, rejected("recommendation", notAccepted())
	}

	rec := &models.Recommendation{
		ID:          uuid.NewString(),
		JobID:       job.ID,
		ClientID:    actor.UserID,
		CandidateID: in.CandidateID,
		Message:     in.Message,
		CreatedAt:   s.now().UTC(),
	}

	var activity *models.Activity
	notifications := func(r *models.Recommendation, count int) []*models.Activity {
		activity = s.notifier.Prepare(notify.Notification{
			UserID:        r.CandidateID,
			Type:          models.ActivityRecommendation,
			Message:       notify.RecommendationReceived(job.Title, r.Badge, count),
			ReferenceID:   job.ID,
			ReferenceType: models.ReferenceJob,
			Status:        models.ActivityStatusSuccess,
			Meta: models.Meta{
				"badge":            string(r.Badge),
				"count":            count,
				"recommendationId": r.ID,
			},
		})
		return []*models.Activity{activity}
	}

	count, err := s.store.CreateRecommendation(ctx, rec, badge.TierFor, notifications)
	if err != nil {
		if errors.Is(err, storage.ErrPrecondition) {
			return nil, rejected("recommendation", notAccepted())
		}
		return nil, apperrors.Internal("create recommendation", err)
	}

	result := &RecommendationResult{Recommendation: rec, Count: count, Badge: rec.Badge}

	metrics.TransitionsTotal.WithLabelValues("recommendation", "created").Inc()
	if activity != nil {
		s.notifier.Published(ctx, activity)
	}
	s.notifier.Emit(ctx, rec.CandidateID, realtime.EventRecommendationReceived, result)

	s.logger.Info("candidate recommended",
		zap.String("recommendation_id", rec.ID),
		zap.String("candidate_id", rec.CandidateID),
		zap.Int("count", count),
		zap.String("badge", string(rec.Badge)),
	)
	return result, nil
}

func notAccepted() error {
	return apperrors.Conflict(apperrors.CodeNotAccepted, "candidate has no accepted application for this job")
}
