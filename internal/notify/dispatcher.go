// Package notify persists user notifications and projects them onto the
// realtime channel.
package notify

import (
	"context"
	"fmt"
	"time"

	"engagement-engine/internal/metrics"
	"engagement-engine/internal/models"
	"engagement-engine/internal/realtime"
	"engagement-engine/internal/storage"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Notification describes one activity to create. Empty reference fields
// leave the activity without a reference.
type Notification struct {
	UserID        string
	Type          string
	Message       string
	ReferenceID   string
	ReferenceType string
	Status        string
	Meta          models.Meta
}

type Dispatcher struct {
	store     storage.ActivityStore
	publisher realtime.Publisher
	logger    *zap.Logger
	now       func() time.Time
}

func NewDispatcher(store storage.ActivityStore, publisher realtime.Publisher, logger *zap.Logger) *Dispatcher {
	if publisher == nil {
		publisher = realtime.Discard{}
	}
	return &Dispatcher{
		store:     store,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
	}
}

// Prepare builds the activity record without persisting it, so callers can
// write it in the same transaction as the change it reports.
func (d *Dispatcher) Prepare(n Notification) *models.Activity {
	status := n.Status
	if status == "" {
		status = models.ActivityStatusInfo
	}

	activity := &models.Activity{
		ID:        uuid.NewString(),
		UserID:    n.UserID,
		Type:      n.Type,
		Message:   n.Message,
		Status:    status,
		Meta:      n.Meta,
		CreatedAt: d.now().UTC(),
	}
	if n.ReferenceID != "" {
		ref := n.ReferenceID
		activity.ReferenceID = &ref
	}
	if n.ReferenceType != "" {
		refType := n.ReferenceType
		activity.ReferenceType = &refType
	}

	return activity
}

// Notify persists the activity and then pushes it. Only persistence
// failures are returned.
func (d *Dispatcher) Notify(ctx context.Context, n Notification) (*models.Activity, error) {
	activity := d.Prepare(n)

	if err := d.store.CreateActivity(ctx, activity); err != nil {
		return nil, fmt.Errorf("persist activity: %w", err)
	}

	d.Published(ctx, activity)
	return activity, nil
}

// Published pushes activities that are already persisted.
func (d *Dispatcher) Published(ctx context.Context, activities ...*models.Activity) {
	for _, activity := range activities {
		metrics.NotificationsPersisted.WithLabelValues(activity.Type).Inc()
		d.Emit(ctx, activity.UserID, realtime.EventActivity, activity)
	}
}

// Emit pushes a domain event to the user's channel. Failures are logged and
// swallowed: the triggering change has already been committed.
func (d *Dispatcher) Emit(ctx context.Context, userID, event string, data interface{}) {
	if err := d.publisher.Publish(ctx, userID, event, data); err != nil {
		metrics.NotificationsDelivered.WithLabelValues("failed").Inc()
		d.logger.Warn("realtime delivery failed",
			zap.String("user_id", userID),
			zap.String("event", event),
			zap.Error(err),
		)
		return
	}
	metrics.NotificationsDelivered.WithLabelValues("sent").Inc()
}
