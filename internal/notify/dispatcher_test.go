package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"engagement-engine/internal/models"
	"engagement-engine/internal/realtime"
	"engagement-engine/internal/storage"
	"engagement-engine/internal/storage/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type recordedEvent struct {
	userID string
	event  string
	data   interface{}
}

type recorder struct {
	mu     sync.Mutex
	events []recordedEvent
	err    error
}

func (r *recorder) Publish(_ context.Context, userID, event string, data interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, recordedEvent{userID: userID, event: event, data: data})
	return r.err
}

func TestDispatcher_Prepare(t *testing.T) {
	d := NewDispatcher(memory.New(), nil, zaptest.NewLogger(t))
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	d.now = func() time.Time { return fixed }

	a := d.Prepare(Notification{UserID: "u1", Type: models.ActivityJobStatus, Message: "m"})
	assert.NotEmpty(t, a.ID)
	assert.Equal(t, models.ActivityStatusInfo, a.Status)
	assert.Nil(t, a.ReferenceID)
	assert.Nil(t, a.ReferenceType)
	assert.Equal(t, fixed, a.CreatedAt)

	a = d.Prepare(Notification{UserID: "u1", ReferenceID: "job-1", ReferenceType: models.ReferenceJob, Status: models.ActivityStatusWarning})
	require.NotNil(t, a.ReferenceID)
	assert.Equal(t, "job-1", *a.ReferenceID)
	assert.Equal(t, models.ReferenceJob, *a.ReferenceType)
	assert.Equal(t, models.ActivityStatusWarning, a.Status)
}

func TestDispatcher_NotifyPersistsThenPublishes(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	rec := &recorder{}
	d := NewDispatcher(store, rec, zaptest.NewLogger(t))

	activity, err := d.Notify(ctx, Notification{UserID: "u1", Type: models.ActivityApplicationAccepted, Message: "yes"})
	require.NoError(t, err)

	stored, err := store.GetActivity(ctx, activity.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)

	require.Len(t, rec.events, 1)
	assert.Equal(t, "u1", rec.events[0].userID)
	assert.Equal(t, realtime.EventActivity, rec.events[0].event)
	assert.Same(t, activity, rec.events[0].data)
}

func TestDispatcher_DeliveryFailureIsSwallowed(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	d := NewDispatcher(store, &recorder{err: errors.New("socket closed")}, zaptest.NewLogger(t))

	activity, err := d.Notify(ctx, Notification{UserID: "u1", Type: models.ActivityJobStatus, Message: "m"})
	require.NoError(t, err)

	recent, err := store.ListRecentActivities(ctx, "u1", 10)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, activity.ID, recent[0].ID)
}

func TestDispatcher_PersistFailureSkipsDelivery(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	rec := &recorder{}
	d := NewDispatcher(store, rec, zaptest.NewLogger(t))

	n := Notification{UserID: "u1", Type: models.ActivityDeadlineWarning, ReferenceID: "job-1", ReferenceType: models.ReferenceJob}
	_, err := d.Notify(ctx, n)
	require.NoError(t, err)

	_, err = d.Notify(ctx, n)
	require.ErrorIs(t, err, storage.ErrDuplicate)
	assert.Len(t, rec.events, 1)
}

func TestMessages(t *testing.T) {
	end := time.Date(2026, 10, 20, 9, 0, 0, 0, time.UTC)
	assert.Equal(t, `Heads up: the mission "Go API" ends in 2 days (on 2026-10-20 09:00 UTC).`,
		DeadlineWarning("Go API", "2 days", end))
	assert.Equal(t, `Heads up: the mission "Go API" is expiring soon (on 2026-10-20 09:00 UTC).`,
		DeadlineWarning("Go API", "expiring soon", end))
	assert.Contains(t, ApplicationStatus("Go API", models.ApplicationAccepted), "accepted")
	assert.Contains(t, RecommendationReceived("Go API", models.BadgeSilver, 5), "Silver")
	assert.Contains(t, ApplicationWithdrawn("Go API", "found another gig"), "found another gig")
}
