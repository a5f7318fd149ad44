package engagement

import (
	"context"
	"testing"
	"time"

	"engagement-engine/internal/apperrors"
	"engagement-engine/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateJob_Pipeline(t *testing.T) {
	f := newFixture(t)
	in := validInput()
	in.Title = "  Build a Go API  "
	unit := "Semaines"
	value := 3
	start := fixedNow.Add(24 * time.Hour)
	in.StartDate = &start
	in.DurationValue = &value
	in.DurationUnit = &unit

	job, err := f.svc.CreateJob(context.Background(), client, in)
	require.NoError(t, err)

	assert.Equal(t, "Build a Go API", job.Title)
	assert.Equal(t, "EUR", job.Currency)
	assert.Equal(t, models.JobStatusPending, job.Status)
	assert.Equal(t, client.UserID, job.OwnerID)
	assert.Equal(t, 1, job.Version)
	assert.Equal(t, "weeks", *job.DurationUnit)
	assert.Equal(t, []string{"go", "postgres", "software-development", "freelance", "remote"}, []string(job.Tags))
}

func TestCreateJob_Rejects(t *testing.T) {
	past := fixedNow.Add(-time.Hour)
	zero := 0
	unit := "fortnights"
	one := 1
	tooManyHours := 3_000_000
	hours := "heures"

	tests := []struct {
		name   string
		actor  models.Actor
		mutate func(*JobInput)
		kind   apperrors.Kind
	}{
		{"candidate cannot post", candidate, func(*JobInput) {}, apperrors.KindForbidden},
		{"short title", client, func(in *JobInput) { in.Title = "Go" }, apperrors.KindValidation},
		{"short description", client, func(in *JobInput) { in.Description = "too short" }, apperrors.KindValidation},
		{"inverted budget", client, func(in *JobInput) { in.BudgetMin, in.BudgetMax = 900, 100 }, apperrors.KindValidation},
		{"negative budget", client, func(in *JobInput) { in.BudgetMin = -1 }, apperrors.KindValidation},
		{"unknown type", client, func(in *JobInput) { in.Type = "gig" }, apperrors.KindValidation},
		{"onsite without city", client, func(in *JobInput) { in.LocationKind = models.LocationOnsite }, apperrors.KindValidation},
		{"bad currency", client, func(in *JobInput) { in.Currency = "EURO" }, apperrors.KindValidation},
		{"past deadline", client, func(in *JobInput) { in.Deadline = &past }, apperrors.KindValidation},
		{"zero duration", client, func(in *JobInput) { in.DurationValue, in.DurationUnit = &zero, &unit }, apperrors.KindValidation},
		{"unknown unit", client, func(in *JobInput) { in.DurationValue, in.DurationUnit = &one, &unit }, apperrors.KindValidation},
		{"value without unit", client, func(in *JobInput) { in.DurationValue = &one }, apperrors.KindValidation},
		{"duration too long", client, func(in *JobInput) { in.DurationValue, in.DurationUnit = &tooManyHours, &hours }, apperrors.KindValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			in := validInput()
			tt.mutate(&in)
			_, err := f.svc.CreateJob(context.Background(), tt.actor, in)
			require.Error(t, err)
			assert.Equal(t, tt.kind, apperrors.KindOf(err))
		})
	}
}

func TestUpdateJobStatus_ApprovalIsAdminOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	job, err := f.svc.CreateJob(ctx, client, validInput())
	require.NoError(t, err)

	_, err = f.svc.UpdateJobStatus(ctx, client, job.ID, "published")
	assert.Equal(t, apperrors.KindForbidden, apperrors.KindOf(err))

	updated, err := f.svc.UpdateJobStatus(ctx, admin, job.ID, "published")
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusPublished, updated.Status)
	assert.Equal(t, 2, updated.Version)

	activities := f.activities(t, client.UserID)
	require.Len(t, activities, 1)
	assert.Equal(t, models.ActivityJobStatus, activities[0].Type)
	assert.Equal(t, models.ActivityStatusSuccess, activities[0].Status)
}

func TestUpdateJobStatus_Errors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	job := f.publishedJob(t)

	_, err := f.svc.UpdateJobStatus(ctx, client, "missing", "closed")
	assert.Equal(t, apperrors.KindNotFound, apperrors.KindOf(err))

	_, err = f.svc.UpdateJobStatus(ctx, client, job.ID, "archived")
	assert.Equal(t, apperrors.KindValidation, apperrors.KindOf(err))

	_, err = f.svc.UpdateJobStatus(ctx, stranger, job.ID, "closed")
	assert.Equal(t, apperrors.KindForbidden, apperrors.KindOf(err))

	_, err = f.svc.UpdateJobStatus(ctx, client, job.ID, "pending")
	assertCode(t, err, apperrors.CodeInvalidTransition)

	_, err = f.svc.UpdateJobStatus(ctx, client, job.ID, "reported")
	assertCode(t, err, apperrors.CodeInvalidTransition)
}

func TestUpdateJobStatus_AliasAndTerminalNotification(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	job := f.publishedJob(t)

	updated, err := f.svc.UpdateJobStatus(ctx, client, job.ID, "Completed")
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusFilled, updated.Status)

	_, err = f.svc.UpdateJobStatus(ctx, client, job.ID, "published")
	assertCode(t, err, apperrors.CodeInvalidTransition)

	var statuses int
	for _, a := range f.activities(t, client.UserID) {
		if a.Type == models.ActivityJobStatus {
			statuses++
		}
	}
	assert.Equal(t, 2, statuses)
}

func TestUpdateJobStatus_FrozenJobRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	job := f.publishedJob(t)
	f.freeze(t, job)

	_, err := f.svc.UpdateJobStatus(ctx, client, job.ID, "closed")
	assertCode(t, err, apperrors.CodeFrozen)

	_, err = f.svc.UpdateJobStatus(ctx, admin, job.ID, "published")
	assertCode(t, err, apperrors.CodeFrozen)
}

func TestGetJob_VisibilityAndView(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	in := validInput()
	deadline := fixedNow.Add(72*time.Hour + time.Minute)
	in.Deadline = &deadline
	job, err := f.svc.CreateJob(ctx, client, in)
	require.NoError(t, err)

	_, err = f.svc.GetJob(ctx, candidate, job.ID)
	assert.Equal(t, apperrors.KindNotFound, apperrors.KindOf(err), "pending jobs are hidden")

	view, err := f.svc.GetJob(ctx, client, job.ID)
	require.NoError(t, err)
	assert.False(t, view.IsActive)
	assert.Equal(t, 0, view.ViewCount)

	_, err = f.svc.UpdateJobStatus(ctx, admin, job.ID, "published")
	require.NoError(t, err)

	view, err = f.svc.GetJob(ctx, candidate, job.ID)
	require.NoError(t, err)
	assert.True(t, view.IsActive)
	assert.Equal(t, 1, view.ViewCount)
	require.NotNil(t, view.EndDate)
	assert.True(t, view.EndDate.Equal(deadline))
	require.NotNil(t, view.TimeRemaining)
	assert.Equal(t, "3 days", *view.TimeRemaining)
	assert.Equal(t, "https://jobs.example.com/jobs/"+job.ID, view.URL)
}

func TestCloneJob(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	job := f.publishedJob(t)
	f.apply(t, job, candidate)

	_, err := f.svc.CloneJob(ctx, stranger, job.ID)
	assert.Equal(t, apperrors.KindForbidden, apperrors.KindOf(err))

	clone, err := f.svc.CloneJob(ctx, client, job.ID)
	require.NoError(t, err)
	assert.NotEqual(t, job.ID, clone.ID)
	assert.Equal(t, models.JobStatusPending, clone.Status)
	assert.Equal(t, 0, clone.ApplicationCount)
	require.NotNil(t, clone.ClonedFromID)
	assert.Equal(t, job.ID, *clone.ClonedFromID)
	assert.Equal(t, "Copy of "+job.Title, clone.Title)
}

func TestDeleteJob(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	job := f.publishedJob(t)
	app := f.apply(t, job, candidate)

	assert.Equal(t, apperrors.KindForbidden, apperrors.KindOf(f.svc.DeleteJob(ctx, stranger, job.ID)))
	require.NoError(t, f.svc.DeleteJob(ctx, admin, job.ID))
	assert.Equal(t, apperrors.KindNotFound, apperrors.KindOf(f.svc.DeleteJob(ctx, admin, job.ID)))

	got, err := f.store.GetApplication(ctx, app.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
}
