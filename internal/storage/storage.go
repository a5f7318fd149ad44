// Package storage holds the persistence contracts shared by the postgres and
// in-memory stores. Getters return (nil, nil) when a record does not exist.
package storage

import (
	"context"
	"errors"

	"engagement-engine/internal/models"
)

var (
	// ErrDuplicate is returned when a unique constraint rejects an insert.
	ErrDuplicate = errors.New("duplicate record")
	// ErrStaleVersion is returned when a guarded update lost a race.
	ErrStaleVersion = errors.New("stale version")
	// ErrPrecondition is returned when a transactional precondition no longer holds.
	ErrPrecondition = errors.New("precondition failed")
)

type UserStore interface {
	EnsureUser(ctx context.Context, user *models.User) error
	GetUser(ctx context.Context, userID string) (*models.User, error)
	// SetTelegramChat links or, with a nil chat id, unlinks Telegram delivery.
	SetTelegramChat(ctx context.Context, userID string, chatID *int64) error
	UnlinkTelegramChat(ctx context.Context, chatID int64) error
}

type JobStore interface {
	CreateJob(ctx context.Context, job *models.Job) error
	GetJob(ctx context.Context, jobID string) (*models.Job, error)
	IncrementJobViews(ctx context.Context, jobID string) error
	// UpdateJobStatus writes only the status column, guarded by version, and
	// persists the given activities in the same transaction.
	UpdateJobStatus(ctx context.Context, job *models.Job, status models.JobStatus, activities []*models.Activity) error
	UnfreezeJob(ctx context.Context, job *models.Job, activities []*models.Activity) error
	DeleteJob(ctx context.Context, jobID string) error
}

type ApplicationStore interface {
	// CreateApplication inserts the application and bumps the job's
	// application counter atomically.
	CreateApplication(ctx context.Context, app *models.Application, activities []*models.Activity) error
	GetApplication(ctx context.Context, applicationID string) (*models.Application, error)
	// UpdateApplication persists status, history and withdrawal reason in
	// one write guarded by the version the caller read.
	UpdateApplication(ctx context.Context, app *models.Application, activities []*models.Activity) error
	HasAcceptedApplication(ctx context.Context, jobID, candidateID string) (bool, error)
	ListAcceptedEngagements(ctx context.Context) ([]models.Engagement, error)
}

type RecommendationStore interface {
	// CreateRecommendation inserts the endorsement, recounts the candidate's
	// endorsements, stores tierFor(count) on the profile and returns the count.
	// notifications, when set, is called once rec.Badge is known and its
	// activities are written in the same transaction.
	CreateRecommendation(ctx context.Context, rec *models.Recommendation, tierFor func(int) models.BadgeTier, notifications func(*models.Recommendation, int) []*models.Activity) (int, error)
}

type ReportStore interface {
	// CreateReport inserts the report and, when freeze is set, freezes the
	// reported job in the same transaction.
	CreateReport(ctx context.Context, report *models.Report, freeze bool, activities []*models.Activity) error
}

type ActivityStore interface {
	CreateActivity(ctx context.Context, activity *models.Activity) error
	GetActivity(ctx context.Context, activityID string) (*models.Activity, error)
	ActivityExists(ctx context.Context, userID, activityType, referenceID string) (bool, error)
	ListRecentActivities(ctx context.Context, userID string, limit int) ([]models.Activity, error)
	MarkActivityRead(ctx context.Context, activityID string) error
	DeleteActivity(ctx context.Context, activityID string) error
}

type Store interface {
	UserStore
	JobStore
	ApplicationStore
	RecommendationStore
	ReportStore
	ActivityStore
	Ping(ctx context.Context) error
	Close() error
}
