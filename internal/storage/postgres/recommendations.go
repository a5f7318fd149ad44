package postgres

import (
	"context"
	"fmt"

	"engagement-engine/internal/models"
	"engagement-engine/internal/storage"

	"github.com/gocraft/dbr/v2"
	"go.uber.org/zap"
)

func (s *Store) CreateRecommendation(ctx context.Context, rec *models.Recommendation, tierFor func(int) models.BadgeTier, notifications func(*models.Recommendation, int) []*models.Activity) (int, error) {
	var count int

	err := s.inTx(ctx, func(tx *dbr.Tx) error {
		var accepted int
		err := tx.
			Select("COUNT(*)").
			From("applications").
			Where("job_id = ? AND candidate_id = ? AND status = ?", rec.JobID, rec.CandidateID, models.ApplicationAccepted).
			LoadOneContext(ctx, &accepted)
		if err != nil {
			return fmt.Errorf("check accepted application: %w", err)
		}
		if accepted == 0 {
			return storage.ErrPrecondition
		}

		_, err = tx.
			InsertInto("recommendations").
			Columns("id", "job_id", "client_id", "candidate_id", "message", "badge", "created_at").
			Values(rec.ID, rec.JobID, rec.ClientID, rec.CandidateID, rec.Message, rec.Badge, rec.CreatedAt).
			ExecContext(ctx)
		if err != nil {
			return fmt.Errorf("insert recommendation: %w", err)
		}

		// recount instead of keeping a cached counter
		err = tx.
			Select("COUNT(*)").
			From("recommendations").
			Where("candidate_id = ?", rec.CandidateID).
			LoadOneContext(ctx, &count)
		if err != nil {
			return fmt.Errorf("count recommendations: %w", err)
		}

		tier := tierFor(count)
		rec.Badge = tier

		_, err = tx.
			Update("recommendations").
			Set("badge", tier).
			Where("id = ?", rec.ID).
			ExecContext(ctx)
		if err != nil {
			return fmt.Errorf("snapshot badge: %w", err)
		}

		_, err = tx.
			Update("users").
			Set("badge", tier).
			Where("id = ?", rec.CandidateID).
			ExecContext(ctx)
		if err != nil {
			return fmt.Errorf("update badge: %w", err)
		}

		if notifications == nil {
			return nil
		}
		return insertActivities(ctx, tx, notifications(rec, count))
	})

	if err != nil {
		s.logger.Error("failed to create recommendation",
			zap.String("job_id", rec.JobID),
			zap.String("candidate_id", rec.CandidateID),
			zap.Error(err),
		)
		return 0, err
	}

	s.logger.Info("recommendation created",
		zap.String("recommendation_id", rec.ID),
		zap.String("candidate_id", rec.CandidateID),
		zap.Int("count", count),
		zap.String("badge", string(rec.Badge)),
	)

	return count, nil
}
