package engagement

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"engagement-engine/internal/apperrors"
	"engagement-engine/internal/models"
	"engagement-engine/internal/notify"
	"engagement-engine/internal/storage"
	"engagement-engine/internal/storage/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

var (
	admin     = models.Actor{UserID: "admin-1", Role: models.RoleAdmin}
	client    = models.Actor{UserID: "client-1", Role: models.RoleClient}
	stranger  = models.Actor{UserID: "client-2", Role: models.RoleClient}
	candidate = models.Actor{UserID: "cand-1", Role: models.RoleCandidate}
	other     = models.Actor{UserID: "cand-2", Role: models.RoleCandidate}
)

var fixedNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

type event struct {
	userID string
	name   string
}

type recorder struct {
	mu     sync.Mutex
	events []event
}

func (r *recorder) Publish(_ context.Context, userID, name string, _ interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event{userID: userID, name: name})
	return nil
}

func (r *recorder) has(userID, name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.events {
		if e.userID == userID && e.name == name {
			return true
		}
	}
	return false
}

type fixture struct {
	svc    *Service
	store  *memory.Store
	events *recorder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.New()
	events := &recorder{}
	logger := zaptest.NewLogger(t)
	svc := NewService(store, notify.NewDispatcher(store, events, logger), "https://jobs.example.com/", logger)
	svc.now = func() time.Time { return fixedNow }
	return &fixture{svc: svc, store: store, events: events}
}

func validInput() JobInput {
	return JobInput{
		Title:        "Build a Go API",
		Description:  "We need a REST backend for our freelance marketplace.",
		Category:     "Software Development",
		Type:         models.JobTypeFreelance,
		BudgetMin:    500,
		BudgetMax:    1500,
		Currency:     "eur",
		LocationKind: models.LocationRemote,
		Experience:   models.ExperienceSenior,
		Tags:         []string{"Go", " go ", "Postgres"},
	}
}

// publishedJob creates a job as client and has it approved by an admin.
func (f *fixture) publishedJob(t *testing.T) *models.Job {
	t.Helper()
	ctx := context.Background()
	job, err := f.svc.CreateJob(ctx, client, validInput())
	require.NoError(t, err)
	job, err = f.svc.UpdateJobStatus(ctx, admin, job.ID, "published")
	require.NoError(t, err)
	return job
}

func (f *fixture) apply(t *testing.T, job *models.Job, actor models.Actor) *models.Application {
	t.Helper()
	app, err := f.svc.Apply(context.Background(), actor, job.ID, ApplyInput{
		CoverLetter: "I have shipped several Go services to production.",
	})
	require.NoError(t, err)
	return app
}

func (f *fixture) activities(t *testing.T, userID string) []models.Activity {
	t.Helper()
	list, err := f.store.ListRecentActivities(context.Background(), userID, 50)
	require.NoError(t, err)
	return list
}

func (f *fixture) freeze(t *testing.T, job *models.Job) {
	t.Helper()
	require.NoError(t, f.store.CreateReport(context.Background(), &models.Report{
		ID:          "report-" + job.ID,
		ContentID:   job.ID,
		ContentType: models.ContentJob,
		ReporterID:  "reporter",
		Reason:      models.ReasonSpam,
		Status:      models.ReportPending,
	}, true, nil))
}

func assertCode(t *testing.T, err error, want apperrors.Code) {
	t.Helper()
	require.Error(t, err)
	code, _ := apperrors.Public(err)
	assert.Equal(t, want, code, err.Error())
}

func TestStoreError(t *testing.T) {
	assertCode(t, storeError("op", storage.ErrStaleVersion), apperrors.CodeConcurrentUpdate)
	assertCode(t, storeError("op", storage.ErrPrecondition), apperrors.CodeInvalidTransition)
	assert.Equal(t, apperrors.KindInternal, apperrors.KindOf(storeError("op", assert.AnError)))
}

func TestTransitionTables(t *testing.T) {
	assert.True(t, CanMoveJob(models.JobStatusPublished, models.JobStatusPaused))
	assert.False(t, CanMoveJob(models.JobStatusClosed, models.JobStatusPublished))
	assert.False(t, CanMoveJob(models.JobStatusPublished, models.JobStatusReported))
	assert.False(t, CanMoveJob(models.JobStatusReported, models.JobStatusPublished))

	assert.True(t, CanMoveApplication(models.ApplicationPending, models.ApplicationAccepted))
	assert.True(t, CanMoveApplication(models.ApplicationReviewed, models.ApplicationReviewed))
	assert.False(t, CanMoveApplication(models.ApplicationPending, models.ApplicationPending))
	assert.False(t, CanMoveApplication(models.ApplicationAccepted, models.ApplicationRejected))
	assert.False(t, CanMoveApplication(models.ApplicationPending, models.ApplicationWithdrawn))

	assert.True(t, CanWithdraw(models.ApplicationAccepted))
	assert.False(t, CanWithdraw(models.ApplicationRejected))
	assert.False(t, CanWithdraw(models.ApplicationWithdrawn))
}

func TestEndToEnd_ApplyAcceptRecommend(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.store.EnsureUser(ctx, &models.User{ID: candidate.UserID, Role: models.RoleCandidate, Badge: models.BadgeBronze}))

	job := f.publishedJob(t)
	app := f.apply(t, job, candidate)

	_, err := f.svc.UpdateApplicationStatus(ctx, client, app.ID, "accepted")
	require.NoError(t, err)

	var result *RecommendationResult
	for i := 1; i <= 5; i++ {
		result, err = f.svc.Recommend(ctx, client, job.ID, RecommendInput{CandidateID: candidate.UserID, Message: "great work"})
		require.NoError(t, err)
		assert.Equal(t, i, result.Count)
		if i < 5 {
			assert.Equal(t, models.BadgeBronze, result.Badge)
		}
	}
	assert.Equal(t, models.BadgeSilver, result.Badge)

	user, err := f.store.GetUser(ctx, candidate.UserID)
	require.NoError(t, err)
	assert.Equal(t, models.BadgeSilver, user.Badge)

	var recommendations int
	for _, a := range f.activities(t, candidate.UserID) {
		if a.Type == models.ActivityRecommendation {
			recommendations++
		}
	}
	assert.Equal(t, 5, recommendations)
	assert.True(t, f.events.has(candidate.UserID, "recommendation-received"))
	assert.True(t, f.events.has(candidate.UserID, "application-updated"))
	assert.True(t, f.events.has(client.UserID, "new-application"))
}

func TestJobURL(t *testing.T) {
	assert.Equal(t, "https://jobs.example.com/jobs/abc", JobURL("https://jobs.example.com/", "abc"))
	assert.True(t, strings.HasSuffix(JobURL("", "abc"), "/jobs/abc"))
}
