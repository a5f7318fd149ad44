package models

import (
	"time"

	"github.com/lib/pq"
)

type ApplicationStatus string

const (
	ApplicationPending   ApplicationStatus = "pending"
	ApplicationReviewed  ApplicationStatus = "reviewed"
	ApplicationAccepted  ApplicationStatus = "accepted"
	ApplicationRejected  ApplicationStatus = "rejected"
	ApplicationWithdrawn ApplicationStatus = "withdrawn"
)

func ParseApplicationStatus(raw string) (ApplicationStatus, bool) {
	switch s := ApplicationStatus(raw); s {
	case ApplicationPending, ApplicationReviewed, ApplicationAccepted, ApplicationRejected, ApplicationWithdrawn:
		return s, true
	}
	return "", false
}

const (
	HistoryCreated       = "created"
	HistoryStatusChanged = "status_changed"
	HistoryWithdrawn     = "withdrawn"
)

type HistoryEntry struct {
	Event     string    `json:"event"`
	Actor     string    `json:"actor"`
	Details   string    `json:"details,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

type Application struct {
	ID               string            `db:"id" json:"id"`
	JobID            string            `db:"job_id" json:"jobId"`
	CandidateID      string            `db:"candidate_id" json:"candidateId"`
	CoverLetter      string            `db:"cover_letter" json:"coverLetter"`
	Attachments      pq.StringArray    `db:"attachments" json:"attachments"`
	Status           ApplicationStatus `db:"status" json:"status"`
	History          History           `db:"history" json:"history"`
	WithdrawalReason *string           `db:"withdrawal_reason" json:"withdrawalReason,omitempty"`
	Version          int               `db:"version" json:"version"`
	CreatedAt        time.Time         `db:"created_at" json:"createdAt"`
	UpdatedAt        time.Time         `db:"updated_at" json:"updatedAt"`
}

// Record appends one history entry. History is never rewritten.
func (a *Application) Record(event, actor, details string, at time.Time) {
	a.History = append(a.History, HistoryEntry{
		Event:     event,
		Actor:     actor,
		Details:   details,
		Timestamp: at,
	})
}
