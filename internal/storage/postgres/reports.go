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

func (s *Store) CreateReport(ctx context.Context, report *models.Report, freeze bool, activities []*models.Activity) error {
	err := s.inTx(ctx, func(tx *dbr.Tx) error {
		_, err := tx.
			InsertInto("reports").
			Columns("id", "content_id", "content_type", "reporter_id", "reason", "comment", "status", "created_at").
			Values(report.ID, report.ContentID, report.ContentType, report.ReporterID,
				report.Reason, report.Comment, report.Status, report.CreatedAt).
			ExecContext(ctx)
		if err != nil {
			if isUniqueViolation(err) {
				return storage.ErrDuplicate
			}
			return fmt.Errorf("insert report: %w", err)
		}

		if freeze {
			_, err = tx.
				Update("jobs").
				Set("is_frozen", true).
				Set("status", models.JobStatusReported).
				Set("version", dbr.Expr("version + 1")).
				Set("updated_at", time.Now().UTC()).
				Where("id = ?", report.ContentID).
				ExecContext(ctx)
			if err != nil {
				return fmt.Errorf("freeze job: %w", err)
			}
		}

		return insertActivities(ctx, tx, activities)
	})

	if err != nil {
		s.logger.Error("failed to create report",
			zap.String("reporter_id", report.ReporterID),
			zap.String("content_id", report.ContentID),
			zap.String("content_type", string(report.ContentType)),
			zap.Error(err),
		)
		return err
	}

	s.logger.Info("report created",
		zap.String("report_id", report.ID),
		zap.String("content_id", report.ContentID),
		zap.String("content_type", string(report.ContentType)),
		zap.Bool("frozen", freeze),
	)

	return nil
}
