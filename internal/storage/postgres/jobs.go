package postgres

import (
	"context"
	"fmt"
	"time"

	"engagement-engine/internal/models"
	"engagement-engine/internal/storage"

	"github.com/gocraft/dbr/v2"
	"go.uber.org/zap"
)

func (s *Store) CreateJob(ctx context.Context, job *models.Job) error {
	_, err := s.sess.
		InsertInto("jobs").
		Columns(
			"id", "owner_id", "title", "description", "category", "job_type",
			"budget_min", "budget_max", "currency", "location_kind", "location_city",
			"experience_level", "tags", "status", "is_frozen", "application_count",
			"view_count", "deadline", "start_date", "duration_value", "duration_unit",
			"cloned_from_id", "version", "created_at", "updated_at",
		).
		Values(
			job.ID, job.OwnerID, job.Title, job.Description, job.Category, job.Type,
			job.BudgetMin, job.BudgetMax, job.Currency, job.LocationKind, job.LocationCity,
			job.Experience, job.Tags, job.Status, job.IsFrozen, job.ApplicationCount,
			job.ViewCount, job.Deadline, job.StartDate, job.DurationValue, job.DurationUnit,
			job.ClonedFromID, job.Version, job.CreatedAt, job.UpdatedAt,
		).
		ExecContext(ctx)

	if err != nil {
		s.logger.Error("failed to create job",
			zap.String("job_id", job.ID),
			zap.String("owner_id", job.OwnerID),
			zap.Error(err),
		)
		return fmt.Errorf("create job: %w", err)
	}

	s.logger.Info("job created",
		zap.String("job_id", job.ID),
		zap.String("owner_id", job.OwnerID),
	)

	return nil
}

func (s *Store) GetJob(ctx context.Context, jobID string) (*models.Job, error) {
	var job models.Job

	err := s.sess.
		Select("*").
		From("jobs").
		Where("id = ?", jobID).
		LoadOneContext(ctx, &job)

	if err == dbr.ErrNotFound {
		return nil, nil
	}

	if err != nil {
		s.logger.Error("failed to get job",
			zap.String("job_id", jobID),
			zap.Error(err),
		)
		return nil, fmt.Errorf("get job: %w", err)
	}

	return &job, nil
}

func (s *Store) IncrementJobViews(ctx context.Context, jobID string) error {
	_, err := s.sess.
		Update("jobs").
		Set("view_count", dbr.Expr("view_count + 1")).
		Where("id = ?", jobID).
		ExecContext(ctx)

	if err != nil {
		s.logger.Error("failed to increment job views",
			zap.String("job_id", jobID),
			zap.Error(err),
		)
		return fmt.Errorf("increment job views: %w", err)
	}

	return nil
}

func (s *Store) UpdateJobStatus(ctx context.Context, job *models.Job, status models.JobStatus, activities []*models.Activity) error {
	now := time.Now().UTC()

	err := s.inTx(ctx, func(tx *dbr.Tx) error {
		result, err := tx.
			Update("jobs").
			Set("status", status).
			Set("version", job.Version+1).
			Set("updated_at", now).
			Where("id = ? AND version = ? AND is_frozen = ?", job.ID, job.Version, false).
			ExecContext(ctx)
		if err != nil {
			return fmt.Errorf("update job status: %w", err)
		}
		if affected(result) == 0 {
			return storage.ErrStaleVersion
		}

		return insertActivities(ctx, tx, activities)
	})

	if err != nil {
		s.logger.Error("failed to update job status",
			zap.String("job_id", job.ID),
			zap.String("status", string(status)),
			zap.Error(err),
		)
		return err
	}

	job.Status = status
	job.Version++
	job.UpdatedAt = now

	s.logger.Info("job status updated",
		zap.String("job_id", job.ID),
		zap.String("status", string(status)),
	)

	return nil
}

func (s *Store) UnfreezeJob(ctx context.Context, job *models.Job, activities []*models.Activity) error {
	now := time.Now().UTC()
	status := job.Status
	if status == models.JobStatusReported {
		status = models.JobStatusPublished
	}

	err := s.inTx(ctx, func(tx *dbr.Tx) error {
		result, err := tx.
			Update("jobs").
			Set("is_frozen", false).
			Set("status", status).
			Set("version", job.Version+1).
			Set("updated_at", now).
			Where("id = ? AND version = ?", job.ID, job.Version).
			ExecContext(ctx)
		if err != nil {
			return fmt.Errorf("unfreeze job: %w", err)
		}
		if affected(result) == 0 {
			return storage.ErrStaleVersion
		}

		return insertActivities(ctx, tx, activities)
	})

	if err != nil {
		s.logger.Error("failed to unfreeze job",
			zap.String("job_id", job.ID),
			zap.Error(err),
		)
		return err
	}

	job.IsFrozen = false
	job.Status = status
	job.Version++
	job.UpdatedAt = now

	s.logger.Info("job unfrozen", zap.String("job_id", job.ID))
	return nil
}

// DeleteJob relies on ON DELETE CASCADE for applications and recommendations.
func (s *Store) DeleteJob(ctx context.Context, jobID string) error {
	_, err := s.sess.
		DeleteFrom("jobs").
		Where("id = ?", jobID).
		ExecContext(ctx)

	if err != nil {
		s.logger.Error("failed to delete job",
			zap.String("job_id", jobID),
			zap.Error(err),
		)
		return fmt.Errorf("delete job: %w", err)
	}

	s.logger.Info("job deleted", zap.String("job_id", jobID))
	return nil
}
