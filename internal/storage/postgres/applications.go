package postgres

import (
	"context"
	"fmt"
	"time"

	"engagement-engine/internal/models"
	"engagement-engine/internal/storage"

	"github.com/gocraft/dbr/v2"
	"github.com/lib/pq"
	"go.uber.org/zap"
)

func (s *Store) CreateApplication(ctx context.Context, app *models.Application, activities []*models.Activity) error {
	// a nil array is written as NULL
	if app.Attachments == nil {
		app.Attachments = pq.StringArray{}
	}

	err := s.inTx(ctx, func(tx *dbr.Tx) error {
		_, err := tx.
			InsertInto("applications").
			Columns(
				"id", "job_id", "candidate_id", "cover_letter", "attachments",
				"status", "history", "withdrawal_reason", "version", "created_at", "updated_at",
			).
			Values(
				app.ID, app.JobID, app.CandidateID, app.CoverLetter, app.Attachments,
				app.Status, app.History, app.WithdrawalReason, app.Version, app.CreatedAt, app.UpdatedAt,
			).
			ExecContext(ctx)
		if err != nil {
			if isUniqueViolation(err) {
				return storage.ErrDuplicate
			}
			return fmt.Errorf("insert application: %w", err)
		}

		// the job may have been frozen or closed since it was read
		result, err := tx.
			Update("jobs").
			Set("application_count", dbr.Expr("application_count + 1")).
			Where("id = ? AND is_frozen = ? AND status = ?", app.JobID, false, models.JobStatusPublished).
			ExecContext(ctx)
		if err != nil {
			return fmt.Errorf("increment application count: %w", err)
		}
		if affected(result) == 0 {
			return storage.ErrPrecondition
		}

		return insertActivities(ctx, tx, activities)
	})

	if err != nil {
		s.logger.Error("failed to create application",
			zap.String("job_id", app.JobID),
			zap.String("candidate_id", app.CandidateID),
			zap.Error(err),
		)
		return err
	}

	s.logger.Info("application created",
		zap.String("application_id", app.ID),
		zap.String("job_id", app.JobID),
		zap.String("candidate_id", app.CandidateID),
	)

	return nil
}

func (s *Store) GetApplication(ctx context.Context, applicationID string) (*models.Application, error) {
	var app models.Application

	err := s.sess.
		Select("*").
		From("applications").
		Where("id = ?", applicationID).
		LoadOneContext(ctx, &app)

	if err == dbr.ErrNotFound {
		return nil, nil
	}

	if err != nil {
		s.logger.Error("failed to get application",
			zap.String("application_id", applicationID),
			zap.Error(err),
		)
		return nil, fmt.Errorf("get application: %w", err)
	}

	return &app, nil
}

func (s *Store) UpdateApplication(ctx context.Context, app *models.Application, activities []*models.Activity) error {
	now := time.Now().UTC()

	err := s.inTx(ctx, func(tx *dbr.Tx) error {
		result, err := tx.
			Update("applications").
			Set("status", app.Status).
			Set("history", app.History).
			Set("withdrawal_reason", app.WithdrawalReason).
			Set("version", app.Version+1).
			Set("updated_at", now).
			Where("id = ? AND version = ?", app.ID, app.Version).
			Where("NOT EXISTS (SELECT 1 FROM jobs WHERE jobs.id = applications.job_id AND jobs.is_frozen)").
			ExecContext(ctx)
		if err != nil {
			return fmt.Errorf("update application: %w", err)
		}
		if affected(result) == 0 {
			return storage.ErrStaleVersion
		}

		return insertActivities(ctx, tx, activities)
	})

	if err != nil {
		s.logger.Error("failed to update application",
			zap.String("application_id", app.ID),
			zap.String("status", string(app.Status)),
			zap.Error(err),
		)
		return err
	}

	app.Version++
	app.UpdatedAt = now

	s.logger.Info("application updated",
		zap.String("application_id", app.ID),
		zap.String("status", string(app.Status)),
	)

	return nil
}

func (s *Store) HasAcceptedApplication(ctx context.Context, jobID, candidateID string) (bool, error) {
	var count int

	err := s.sess.
		Select("COUNT(*)").
		From("applications").
		Where("job_id = ? AND candidate_id = ? AND status = ?", jobID, candidateID, models.ApplicationAccepted).
		LoadOneContext(ctx, &count)

	if err != nil {
		s.logger.Error("failed to check accepted application",
			zap.String("job_id", jobID),
			zap.String("candidate_id", candidateID),
			zap.Error(err),
		)
		return false, fmt.Errorf("has accepted application: %w", err)
	}

	return count > 0, nil
}

func (s *Store) ListAcceptedEngagements(ctx context.Context) ([]models.Engagement, error) {
	var engagements []models.Engagement

	_, err := s.sess.
		Select(
			"a.id AS application_id",
			"a.candidate_id",
			"j.id AS job_id",
			"j.title AS job_title",
			"j.deadline",
			"j.start_date",
			"j.duration_value",
			"j.duration_unit",
		).
		From(dbr.I("applications").As("a")).
		Join(dbr.I("jobs").As("j"), "j.id = a.job_id").
		Where("a.status = ?", models.ApplicationAccepted).
		LoadContext(ctx, &engagements)

	if err != nil {
		s.logger.Error("failed to list accepted engagements", zap.Error(err))
		return nil, fmt.Errorf("list accepted engagements: %w", err)
	}

	s.logger.Debug("accepted engagements",
		zap.Int("count", len(engagements)),
	)

	return engagements, nil
}
