package models

import (
	"strings"
	"time"

	"github.com/lib/pq"
)

type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusPublished  JobStatus = "published"
	JobStatusPaused     JobStatus = "paused"
	JobStatusClosed     JobStatus = "closed"
	JobStatusFilled     JobStatus = "filled"
	JobStatusInterview  JobStatus = "interview"
	JobStatusInProgress JobStatus = "in_progress"
	JobStatusReported   JobStatus = "reported"
)

var jobStatusAliases = map[string]JobStatus{
	"completed": JobStatusFilled,
	"done":      JobStatusFilled,
	"finished":  JobStatusFilled,
}

// ParseJobStatus resolves a requested status, including the
// completed/done/finished aliases for filled.
func ParseJobStatus(raw string) (JobStatus, bool) {
	s := strings.ToLower(strings.TrimSpace(raw))
	if alias, ok := jobStatusAliases[s]; ok {
		return alias, true
	}
	switch JobStatus(s) {
	case JobStatusPending, JobStatusPublished, JobStatusPaused, JobStatusClosed,
		JobStatusFilled, JobStatusInterview, JobStatusInProgress, JobStatusReported:
		return JobStatus(s), true
	}
	return "", false
}

type JobType string

const (
	JobTypeFullTime   JobType = "full_time"
	JobTypePartTime   JobType = "part_time"
	JobTypeFreelance  JobType = "freelance"
	JobTypeContract   JobType = "contract"
	JobTypeInternship JobType = "internship"
)

var JobTypes = map[JobType]bool{
	JobTypeFullTime:   true,
	JobTypePartTime:   true,
	JobTypeFreelance:  true,
	JobTypeContract:   true,
	JobTypeInternship: true,
}

type ExperienceLevel string

const (
	ExperienceEntry  ExperienceLevel = "entry"
	ExperienceMid    ExperienceLevel = "intermediate"
	ExperienceSenior ExperienceLevel = "senior"
	ExperienceExpert ExperienceLevel = "expert"
)

var ExperienceLevels = map[ExperienceLevel]bool{
	ExperienceEntry:  true,
	ExperienceMid:    true,
	ExperienceSenior: true,
	ExperienceExpert: true,
}

type LocationKind string

const (
	LocationRemote LocationKind = "remote"
	LocationOnsite LocationKind = "onsite"
	LocationHybrid LocationKind = "hybrid"
)

var LocationKinds = map[LocationKind]bool{
	LocationRemote: true,
	LocationOnsite: true,
	LocationHybrid: true,
}

type Job struct {
	ID               string          `db:"id" json:"id"`
	OwnerID          string          `db:"owner_id" json:"ownerId"`
	Title            string          `db:"title" json:"title"`
	Description      string          `db:"description" json:"description"`
	Category         string          `db:"category" json:"category"`
	Type             JobType         `db:"job_type" json:"type"`
	BudgetMin        float64         `db:"budget_min" json:"budgetMin"`
	BudgetMax        float64         `db:"budget_max" json:"budgetMax"`
	Currency         string          `db:"currency" json:"currency"`
	LocationKind     LocationKind    `db:"location_kind" json:"locationKind"`
	LocationCity     *string         `db:"location_city" json:"locationCity,omitempty"`
	Experience       ExperienceLevel `db:"experience_level" json:"experienceLevel"`
	Tags             pq.StringArray  `db:"tags" json:"tags"`
	Status           JobStatus       `db:"status" json:"status"`
	IsFrozen         bool            `db:"is_frozen" json:"isFrozen"`
	ApplicationCount int             `db:"application_count" json:"applicationCount"`
	ViewCount        int             `db:"view_count" json:"viewCount"`
	Deadline         *time.Time      `db:"deadline" json:"deadline,omitempty"`
	StartDate        *time.Time      `db:"start_date" json:"startDate,omitempty"`
	DurationValue    *int            `db:"duration_value" json:"durationValue,omitempty"`
	DurationUnit     *string         `db:"duration_unit" json:"durationUnit,omitempty"`
	ClonedFromID     *string         `db:"cloned_from_id" json:"clonedFromId,omitempty"`
	Version          int             `db:"version" json:"version"`
	CreatedAt        time.Time       `db:"created_at" json:"createdAt"`
	UpdatedAt        time.Time       `db:"updated_at" json:"updatedAt"`
}

// Schedule is the snapshot of time fields the deadline resolver works on.
type Schedule struct {
	Deadline      *time.Time
	StartDate     *time.Time
	DurationValue *int
	DurationUnit  *string
}

func (j *Job) Schedule() Schedule {
	return Schedule{
		Deadline:      j.Deadline,
		StartDate:     j.StartDate,
		DurationValue: j.DurationValue,
		DurationUnit:  j.DurationUnit,
	}
}

func (j *Job) IsOwnedBy(userID string) bool {
	return j.OwnerID == userID
}

// AcceptsApplications reports whether candidates may apply right now.
func (j *Job) AcceptsApplications() bool {
	return !j.IsFrozen && j.Status == JobStatusPublished
}

// Engagement is an accepted application joined with its job's time fields.
type Engagement struct {
	ApplicationID string     `db:"application_id"`
	CandidateID   string     `db:"candidate_id"`
	JobID         string     `db:"job_id"`
	JobTitle      string     `db:"job_title"`
	Deadline      *time.Time `db:"deadline"`
	StartDate     *time.Time `db:"start_date"`
	DurationValue *int       `db:"duration_value"`
	DurationUnit  *string    `db:"duration_unit"`
}

func (e *Engagement) Schedule() Schedule {
	return Schedule{
		Deadline:      e.Deadline,
		StartDate:     e.StartDate,
		DurationValue: e.DurationValue,
		DurationUnit:  e.DurationUnit,
	}
}
