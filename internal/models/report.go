package models

import "time"

type ContentType string

const (
	ContentJob  ContentType = "job"
	ContentUser ContentType = "user"
)

type ReportReason string

const (
	ReasonSpam          ReportReason = "spam"
	ReasonFraud         ReportReason = "fraud"
	ReasonInappropriate ReportReason = "inappropriate"
	ReasonHarassment    ReportReason = "harassment"
	ReasonMisleading    ReportReason = "misleading"
	ReasonOther         ReportReason = "other"
)

var ReportReasons = map[ReportReason]bool{
	ReasonSpam:          true,
	ReasonFraud:         true,
	ReasonInappropriate: true,
	ReasonHarassment:    true,
	ReasonMisleading:    true,
	ReasonOther:         true,
}

type ReportStatus string

const (
	ReportPending   ReportStatus = "pending"
	ReportReviewed  ReportStatus = "reviewed"
	ReportResolved  ReportStatus = "resolved"
	ReportDismissed ReportStatus = "dismissed"
)

type Report struct {
	ID          string       `db:"id" json:"id"`
	ContentID   string       `db:"content_id" json:"contentId"`
	ContentType ContentType  `db:"content_type" json:"contentType"`
	ReporterID  string       `db:"reporter_id" json:"reporterId"`
	Reason      ReportReason `db:"reason" json:"reason"`
	Comment     *string      `db:"comment" json:"comment,omitempty"`
	Status      ReportStatus `db:"status" json:"status"`
	CreatedAt   time.Time    `db:"created_at" json:"createdAt"`
}
