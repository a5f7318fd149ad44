package notify

import (
	"context"
	"testing"

	"engagement-engine/internal/apperrors"
	"engagement-engine/internal/models"
	"engagement-engine/internal/realtime"
	"engagement-engine/internal/storage/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestInbox(t *testing.T) {
	ctx := context.Background()
	rec := &recorder{}
	d := NewDispatcher(memory.New(), rec, zaptest.NewLogger(t))

	owner := models.Actor{UserID: "user-1", Role: models.RoleCandidate}
	intruder := models.Actor{UserID: "user-2", Role: models.RoleCandidate}

	activity, err := d.Notify(ctx, Notification{UserID: owner.UserID, Type: models.ActivityJobStatus, Message: "hello"})
	require.NoError(t, err)

	list, err := d.Recent(ctx, owner, 0)
	require.NoError(t, err)
	require.Len(t, list, 1)

	empty, err := d.Recent(ctx, intruder, 500)
	require.NoError(t, err)
	assert.Empty(t, empty)
	assert.NotNil(t, empty)

	_, err = d.MarkRead(ctx, intruder, activity.ID)
	assert.Equal(t, apperrors.KindForbidden, apperrors.KindOf(err))

	_, err = d.MarkRead(ctx, owner, "missing")
	assert.Equal(t, apperrors.KindNotFound, apperrors.KindOf(err))

	read, err := d.MarkRead(ctx, owner, activity.ID)
	require.NoError(t, err)
	assert.True(t, read.Read)

	assert.Equal(t, apperrors.KindForbidden, apperrors.KindOf(d.Remove(ctx, intruder, activity.ID)))
	require.NoError(t, d.Remove(ctx, owner, activity.ID))
	assert.Equal(t, apperrors.KindNotFound, apperrors.KindOf(d.Remove(ctx, owner, activity.ID)))

	var names []string
	for _, e := range rec.events {
		names = append(names, e.event)
	}
	assert.Equal(t, []string{realtime.EventActivity, realtime.EventActivityUpdated, realtime.EventActivityRemoved}, names)
}
