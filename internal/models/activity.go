package models

import "time"

// Activity types.
const (
	ActivityNewApplication       = "new-application"
	ActivityApplicationAccepted  = "application-accepted"
	ActivityApplicationRejected  = "application-rejected"
	ActivityApplicationReviewed  = "application-reviewed"
	ActivityApplicationWithdrawn = "application-withdrawn"
	ActivityRecommendation       = "recommendation-received"
	ActivityJobStatus            = "job-status"
	ActivityJobReported          = "job-reported"
	ActivityJobUnfrozen          = "job-unfrozen"
	ActivityDeadlineWarning      = "deadline-warning"
)

const (
	ReferenceJob         = "job"
	ReferenceApplication = "application"
	ReferenceReport      = "report"
)

const (
	ActivityStatusInfo    = "info"
	ActivityStatusSuccess = "success"
	ActivityStatusWarning = "warning"
	ActivityStatusError   = "error"
)

type Activity struct {
	ID            string    `db:"id" json:"id"`
	UserID        string    `db:"user_id" json:"userId"`
	Type          string    `db:"type" json:"type"`
	Message       string    `db:"message" json:"message"`
	ReferenceID   *string   `db:"reference_id" json:"referenceId,omitempty"`
	ReferenceType *string   `db:"reference_type" json:"referenceType,omitempty"`
	Status        string    `db:"status" json:"status"`
	Read          bool      `db:"read" json:"read"`
	Meta          Meta      `db:"meta" json:"meta,omitempty"`
	CreatedAt     time.Time `db:"created_at" json:"createdAt"`
}
