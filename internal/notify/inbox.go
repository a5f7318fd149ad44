package notify

import (
	"context"

	"engagement-engine/internal/apperrors"
	"engagement-engine/internal/models"
	"engagement-engine/internal/realtime"

	"go.uber.org/zap"
)

const (
	DefaultRecentLimit = 20
	MaxRecentLimit     = 100
)

// Recent lists the caller's newest activities.
func (d *Dispatcher) Recent(ctx context.Context, actor models.Actor, limit int) ([]models.Activity, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	if limit > MaxRecentLimit {
		limit = MaxRecentLimit
	}

	activities, err := d.store.ListRecentActivities(ctx, actor.UserID, limit)
	if err != nil {
		return nil, apperrors.Internal("list activities", err)
	}
	if activities == nil {
		activities = []models.Activity{}
	}
	return activities, nil
}

func (d *Dispatcher) owned(ctx context.Context, actor models.Actor, activityID string) (*models.Activity, error) {
	activity, err := d.store.GetActivity(ctx, activityID)
	if err != nil {
		return nil, apperrors.Internal("load activity", err)
	}
	if activity == nil {
		return nil, apperrors.NotFound("activity")
	}
	if activity.UserID != actor.UserID {
		return nil, apperrors.Forbidden("activities can only be changed by their recipient")
	}
	return activity, nil
}

func (d *Dispatcher) MarkRead(ctx context.Context, actor models.Actor, activityID string) (*models.Activity, error) {
	activity, err := d.owned(ctx, actor, activityID)
	if err != nil {
		return nil, err
	}
	if activity.Read {
		return activity, nil
	}

	if err := d.store.MarkActivityRead(ctx, activity.ID); err != nil {
		return nil, apperrors.Internal("mark activity read", err)
	}
	activity.Read = true

	d.Emit(ctx, actor.UserID, realtime.EventActivityUpdated, activity)
	return activity, nil
}

func (d *Dispatcher) Remove(ctx context.Context, actor models.Actor, activityID string) error {
	activity, err := d.owned(ctx, actor, activityID)
	if err != nil {
		return err
	}

	if err := d.store.DeleteActivity(ctx, activity.ID); err != nil {
		return apperrors.Internal("delete activity", err)
	}

	d.logger.Debug("activity removed", zap.String("activity_id", activity.ID))
	d.Emit(ctx, actor.UserID, realtime.EventActivityRemoved, map[string]string{"id": activity.ID})
	return nil
}
