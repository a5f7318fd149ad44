package models

import "time"

type Recommendation struct {
	ID          string    `db:"id" json:"id"`
	JobID       string    `db:"job_id" json:"jobId"`
	ClientID    string    `db:"client_id" json:"clientId"`
	CandidateID string    `db:"candidate_id" json:"employeeId"`
	Message     string    `db:"message" json:"message"`
	Badge       BadgeTier `db:"badge" json:"badge"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
}
