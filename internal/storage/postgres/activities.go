package postgres

import (
	"context"
	"errors"
	"fmt"

	"engagement-engine/internal/models"
	"engagement-engine/internal/storage"

	"github.com/gocraft/dbr/v2"
	"go.uber.org/zap"
)

func (s *Store) CreateActivity(ctx context.Context, activity *models.Activity) error {
	err := insertActivities(ctx, s.sess, []*models.Activity{activity})
	if errors.Is(err, storage.ErrDuplicate) {
		return err
	}

	if err != nil {
		s.logger.Error("failed to create activity",
			zap.String("user_id", activity.UserID),
			zap.String("type", activity.Type),
			zap.Error(err),
		)
		return fmt.Errorf("create activity: %w", err)
	}

	return nil
}

func (s *Store) GetActivity(ctx context.Context, activityID string) (*models.Activity, error) {
	var activity models.Activity

	err := s.sess.
		Select("*").
		From("activities").
		Where("id = ?", activityID).
		LoadOneContext(ctx, &activity)

	if err == dbr.ErrNotFound {
		return nil, nil
	}

	if err != nil {
		s.logger.Error("failed to get activity",
			zap.String("activity_id", activityID),
			zap.Error(err),
		)
		return nil, fmt.Errorf("get activity: %w", err)
	}

	return &activity, nil
}

func (s *Store) ActivityExists(ctx context.Context, userID, activityType, referenceID string) (bool, error) {
	var count int

	err := s.sess.
		Select("COUNT(*)").
		From("activities").
		Where("user_id = ? AND type = ? AND reference_id = ?", userID, activityType, referenceID).
		LoadOneContext(ctx, &count)

	if err != nil {
		s.logger.Error("failed to check activity existence",
			zap.String("user_id", userID),
			zap.String("type", activityType),
			zap.String("reference_id", referenceID),
			zap.Error(err),
		)
		return false, fmt.Errorf("activity exists: %w", err)
	}

	return count > 0, nil
}

func (s *Store) ListRecentActivities(ctx context.Context, userID string, limit int) ([]models.Activity, error) {
	var activities []models.Activity

	_, err := s.sess.
		Select("*").
		From("activities").
		Where("user_id = ?", userID).
		OrderDesc("created_at").
		Limit(uint64(limit)).
		LoadContext(ctx, &activities)

	if err != nil {
		s.logger.Error("failed to list recent activities",
			zap.String("user_id", userID),
			zap.Error(err),
		)
		return nil, fmt.Errorf("list recent activities: %w", err)
	}

	return activities, nil
}

func (s *Store) MarkActivityRead(ctx context.Context, activityID string) error {
	_, err := s.sess.
		Update("activities").
		Set("read", true).
		Where("id = ?", activityID).
		ExecContext(ctx)

	if err != nil {
		s.logger.Error("failed to mark activity read",
			zap.String("activity_id", activityID),
			zap.Error(err),
		)
		return fmt.Errorf("mark activity read: %w", err)
	}

	return nil
}

func (s *Store) DeleteActivity(ctx context.Context, activityID string) error {
	_, err := s.sess.
		DeleteFrom("activities").
		Where("id = ?", activityID).
		ExecContext(ctx)

	if err != nil {
		s.logger.Error("failed to delete activity",
			zap.String("activity_id", activityID),
			zap.Error(err),
		)
		return fmt.Errorf("delete activity: %w", err)
	}

	return nil
}
