// Package memory provides an in-process implementation of storage.Store.
// It mirrors the postgres constraints (unique keys, version guards, cascades)
// so the service layer behaves the same against either backend.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"engagement-engine/internal/models"
	"engagement-engine/internal/storage"
)

type Store struct {
	mu sync.RWMutex

	users           map[string]models.User
	jobs            map[string]models.Job
	applications    map[string]models.Application
	activities      map[string]storedActivity
	reports         map[string]models.Report
	recommendations map[string]models.Recommendation

	applicationKeys map[string]string
	reportKeys      map[string]string
	warningKeys     map[string]string

	seq int64
}

type storedActivity struct {
	activity models.Activity
	seq      int64
}

var _ storage.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		users:           make(map[string]models.User),
		jobs:            make(map[string]models.Job),
		applications:    make(map[string]models.Application),
		activities:      make(map[string]storedActivity),
		reports:         make(map[string]models.Report),
		recommendations: make(map[string]models.Recommendation),
		applicationKeys: make(map[string]string),
		reportKeys:      make(map[string]string),
		warningKeys:     make(map[string]string),
	}
}

func (m *Store) Ping(context.Context) error { return nil }

func (m *Store) Close() error { return nil }

func applicationKey(jobID, candidateID string) string {
	return jobID + "\x00" + candidateID
}

func reportKey(reporterID, contentID string, contentType models.ContentType) string {
	return reporterID + "\x00" + contentID + "\x00" + string(contentType)
}

// warningKey returns the unique key for deadline warnings, or "" for types
// that carry no uniqueness constraint.
func warningKey(a *models.Activity) string {
	if a.Type != models.ActivityDeadlineWarning || a.ReferenceID == nil {
		return ""
	}
	return a.UserID + "\x00" + a.Type + "\x00" + *a.ReferenceID
}

// checkActivities must run before any write so a rejected batch leaves no trace.
func (m *Store) checkActivities(activities []*models.Activity) error {
	seen := make(map[string]bool)
	for _, a := range activities {
		key := warningKey(a)
		if key == "" {
			continue
		}
		if _, ok := m.warningKeys[key]; ok || seen[key] {
			return storage.ErrDuplicate
		}
		seen[key] = true
	}
	return nil
}

func (m *Store) putActivities(activities []*models.Activity) {
	for _, a := range activities {
		m.seq++
		stored := *a
		stored.Meta = cloneMeta(a.Meta)
		m.activities[a.ID] = storedActivity{activity: stored, seq: m.seq}
		if key := warningKey(a); key != "" {
			m.warningKeys[key] = a.ID
		}
	}
}

func cloneJob(j models.Job) *models.Job {
	if j.Tags != nil {
		j.Tags = append(j.Tags[:0:0], j.Tags...)
	}
	return &j
}

func cloneApplication(a models.Application) *models.Application {
	if a.Attachments != nil {
		a.Attachments = append(a.Attachments[:0:0], a.Attachments...)
	}
	if a.History != nil {
		a.History = append(a.History[:0:0], a.History...)
	}
	return &a
}

func cloneMeta(meta models.Meta) models.Meta {
	if meta == nil {
		return nil
	}
	out := make(models.Meta, len(meta))
	for k, v := range meta {
		out[k] = v
	}
	return out
}

// users

func (m *Store) EnsureUser(_ context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[user.ID]; !ok {
		m.users[user.ID] = *user
	}
	return nil
}

func (m *Store) GetUser(_ context.Context, userID string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	user, ok := m.users[userID]
	if !ok {
		return nil, nil
	}
	return &user, nil
}

func (m *Store) SetTelegramChat(_ context.Context, userID string, chatID *int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if user, ok := m.users[userID]; ok {
		user.TelegramChatID = chatID
		m.users[userID] = user
	}
	return nil
}

func (m *Store) UnlinkTelegramChat(_ context.Context, chatID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, user := range m.users {
		if user.TelegramChatID != nil && *user.TelegramChatID == chatID {
			user.TelegramChatID = nil
			m.users[id] = user
		}
	}
	return nil
}

// jobs

func (m *Store) CreateJob(_ context.Context, job *models.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.jobs[job.ID]; ok {
		return storage.ErrDuplicate
	}
	m.jobs[job.ID] = *cloneJob(*job)
	return nil
}

func (m *Store) GetJob(_ context.Context, jobID string) (*models.Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	job, ok := m.jobs[jobID]
	if !ok {
		return nil, nil
	}
	return cloneJob(job), nil
}

func (m *Store) IncrementJobViews(_ context.Context, jobID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if job, ok := m.jobs[jobID]; ok {
		job.ViewCount++
		m.jobs[jobID] = job
	}
	return nil
}

func (m *Store) UpdateJobStatus(_ context.Context, job *models.Job, status models.JobStatus, activities []*models.Activity) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.jobs[job.ID]
	if !ok || stored.Version != job.Version || stored.IsFrozen {
		return storage.ErrStaleVersion
	}
	if err := m.checkActivities(activities); err != nil {
		return err
	}

	now := time.Now().UTC()
	stored.Status = status
	stored.Version++
	stored.UpdatedAt = now
	m.jobs[job.ID] = stored
	m.putActivities(activities)

	job.Status = status
	job.Version = stored.Version
	job.UpdatedAt = now
	return nil
}

func (m *Store) UnfreezeJob(_ context.Context, job *models.Job, activities []*models.Activity) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.jobs[job.ID]
	if !ok || stored.Version != job.Version {
		return storage.ErrStaleVersion
	}
	if err := m.checkActivities(activities); err != nil {
		return err
	}

	now := time.Now().UTC()
	stored.IsFrozen = false
	if stored.Status == models.JobStatusReported {
		stored.Status = models.JobStatusPublished
	}
	stored.Version++
	stored.UpdatedAt = now
	m.jobs[job.ID] = stored
	m.putActivities(activities)

	job.IsFrozen = false
	job.Status = stored.Status
	job.Version = stored.Version
	job.UpdatedAt = now
	return nil
}

// DeleteJob cascades to the job's applications and recommendations.
func (m *Store) DeleteJob(_ context.Context, jobID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.jobs, jobID)
	for id, app := range m.applications {
		if app.JobID == jobID {
			delete(m.applicationKeys, applicationKey(app.JobID, app.CandidateID))
			delete(m.applications, id)
		}
	}
	for id, rec := range m.recommendations {
		if rec.JobID == jobID {
			delete(m.recommendations, id)
		}
	}
	for id, job := range m.jobs {
		if job.ClonedFromID != nil && *job.ClonedFromID == jobID {
			job.ClonedFromID = nil
			m.jobs[id] = job
		}
	}
	return nil
}

// applications

func (m *Store) CreateApplication(_ context.Context, app *models.Application, activities []*models.Activity) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := applicationKey(app.JobID, app.CandidateID)
	if _, ok := m.applicationKeys[key]; ok {
		return storage.ErrDuplicate
	}
	job, ok := m.jobs[app.JobID]
	if !ok || !job.AcceptsApplications() {
		return storage.ErrPrecondition
	}
	if err := m.checkActivities(activities); err != nil {
		return err
	}

	job.ApplicationCount++
	m.jobs[app.JobID] = job
	m.applications[app.ID] = *cloneApplication(*app)
	m.applicationKeys[key] = app.ID
	m.putActivities(activities)
	return nil
}

func (m *Store) GetApplication(_ context.Context, applicationID string) (*models.Application, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	app, ok := m.applications[applicationID]
	if !ok {
		return nil, nil
	}
	return cloneApplication(app), nil
}

func (m *Store) UpdateApplication(_ context.Context, app *models.Application, activities []*models.Activity) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.applications[app.ID]
	if !ok || stored.Version != app.Version {
		return storage.ErrStaleVersion
	}
	if job, ok := m.jobs[stored.JobID]; ok && job.IsFrozen {
		return storage.ErrStaleVersion
	}
	if err := m.checkActivities(activities); err != nil {
		return err
	}

	now := time.Now().UTC()
	app.Version++
	app.UpdatedAt = now
	m.applications[app.ID] = *cloneApplication(*app)
	m.putActivities(activities)
	return nil
}

func (m *Store) HasAcceptedApplication(_ context.Context, jobID, candidateID string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.hasAccepted(jobID, candidateID), nil
}

func (m *Store) hasAccepted(jobID, candidateID string) bool {
	id, ok := m.applicationKeys[applicationKey(jobID, candidateID)]
	if !ok {
		return false
	}
	return m.applications[id].Status == models.ApplicationAccepted
}

func (m *Store) ListAcceptedEngagements(_ context.Context) ([]models.Engagement, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var engagements []models.Engagement
	for _, app := range m.applications {
		if app.Status != models.ApplicationAccepted {
			continue
		}
		job, ok := m.jobs[app.JobID]
		if !ok {
			continue
		}
		engagements = append(engagements, models.Engagement{
			ApplicationID: app.ID,
			CandidateID:   app.CandidateID,
			JobID:         job.ID,
			JobTitle:      job.Title,
			Deadline:      job.Deadline,
			StartDate:     job.StartDate,
			DurationValue: job.DurationValue,
			DurationUnit:  job.DurationUnit,
		})
	}
	sort.Slice(engagements, func(i, k int) bool {
		return engagements[i].ApplicationID < engagements[k].ApplicationID
	})
	return engagements, nil
}

// recommendations

func (m *Store) CreateRecommendation(_ context.Context, rec *models.Recommendation, tierFor func(int) models.BadgeTier, notifications func(*models.Recommendation, int) []*models.Activity) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.hasAccepted(rec.JobID, rec.CandidateID) {
		return 0, storage.ErrPrecondition
	}

	count := 1
	for _, existing := range m.recommendations {
		if existing.CandidateID == rec.CandidateID {
			count++
		}
	}

	previous := rec.Badge
	rec.Badge = tierFor(count)

	var activities []*models.Activity
	if notifications != nil {
		activities = notifications(rec, count)
	}
	if err := m.checkActivities(activities); err != nil {
		rec.Badge = previous
		return 0, err
	}

	m.recommendations[rec.ID] = *rec
	if user, ok := m.users[rec.CandidateID]; ok {
		user.Badge = rec.Badge
		m.users[rec.CandidateID] = user
	}
	m.putActivities(activities)
	return count, nil
}

// reports

func (m *Store) CreateReport(_ context.Context, report *models.Report, freeze bool, activities []*models.Activity) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := reportKey(report.ReporterID, report.ContentID, report.ContentType)
	if _, ok := m.reportKeys[key]; ok {
		return storage.ErrDuplicate
	}
	if err := m.checkActivities(activities); err != nil {
		return err
	}

	if freeze {
		if job, ok := m.jobs[report.ContentID]; ok {
			job.IsFrozen = true
			job.Status = models.JobStatusReported
			job.Version++
			job.UpdatedAt = time.Now().UTC()
			m.jobs[job.ID] = job
		}
	}

	m.reports[report.ID] = *report
	m.reportKeys[key] = report.ID
	m.putActivities(activities)
	return nil
}

// activities

func (m *Store) CreateActivity(_ context.Context, activity *models.Activity) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	batch := []*models.Activity{activity}
	if err := m.checkActivities(batch); err != nil {
		return err
	}
	m.putActivities(batch)
	return nil
}

func (m *Store) GetActivity(_ context.Context, activityID string) (*models.Activity, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	stored, ok := m.activities[activityID]
	if !ok {
		return nil, nil
	}
	activity := stored.activity
	activity.Meta = cloneMeta(activity.Meta)
	return &activity, nil
}

func (m *Store) ActivityExists(_ context.Context, userID, activityType, referenceID string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, stored := range m.activities {
		a := stored.activity
		if a.UserID == userID && a.Type == activityType && a.ReferenceID != nil && *a.ReferenceID == referenceID {
			return true, nil
		}
	}
	return false, nil
}

func (m *Store) ListRecentActivities(_ context.Context, userID string, limit int) ([]models.Activity, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var owned []storedActivity
	for _, stored := range m.activities {
		if stored.activity.UserID == userID {
			owned = append(owned, stored)
		}
	}
	sort.Slice(owned, func(i, k int) bool {
		a, b := owned[i], owned[k]
		if !a.activity.CreatedAt.Equal(b.activity.CreatedAt) {
			return a.activity.CreatedAt.After(b.activity.CreatedAt)
		}
		return a.seq > b.seq
	})
	if limit > 0 && len(owned) > limit {
		owned = owned[:limit]
	}

	activities := make([]models.Activity, 0, len(owned))
	for _, stored := range owned {
		activity := stored.activity
		activity.Meta = cloneMeta(activity.Meta)
		activities = append(activities, activity)
	}
	return activities, nil
}

func (m *Store) MarkActivityRead(_ context.Context, activityID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if stored, ok := m.activities[activityID]; ok {
		stored.activity.Read = true
		m.activities[activityID] = stored
	}
	return nil
}

func (m *Store) DeleteActivity(_ context.Context, activityID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.activities[activityID]
	if !ok {
		return nil
	}
	if key := warningKey(&stored.activity); key != "" {
		delete(m.warningKeys, key)
	}
	delete(m.activities, activityID)
	return nil
}
