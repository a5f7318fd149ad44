package engagement

import (
	"strings"
	"time"
	"unicode/utf8"

	"engagement-engine/internal/apperrors"
	"engagement-engine/internal/deadline"
	"engagement-engine/internal/models"
)

const (
	minTitleLength       = 5
	maxTitleLength       = 120
	minDescriptionLength = 20
	maxDescriptionLength = 5000
	maxCategoryLength    = 60
	maxTags              = 10
	maxTagLength         = 30
	maxDerivedTags       = 15
)

// JobInput is the client-supplied part of a job posting.
type JobInput struct {
	Title         string                 `json:"title"`
	Description   string                 `json:"description"`
	Category      string                 `json:"category"`
	Type          models.JobType         `json:"type"`
	BudgetMin     float64                `json:"budgetMin"`
	BudgetMax     float64                `json:"budgetMax"`
	Currency      string                 `json:"currency"`
	LocationKind  models.LocationKind    `json:"locationKind"`
	LocationCity  *string                `json:"locationCity,omitempty"`
	Experience    models.ExperienceLevel `json:"experienceLevel"`
	Tags          []string               `json:"tags"`
	Deadline      *time.Time             `json:"deadline,omitempty"`
	StartDate     *time.Time             `json:"startDate,omitempty"`
	DurationValue *int                   `json:"durationValue,omitempty"`
	DurationUnit  *string                `json:"durationUnit,omitempty"`
}

// jobStep is one stage of the pre-save pipeline.
type jobStep func(in *JobInput, now time.Time) error

var jobPipeline = []jobStep{
	normalizeJob,
	validateJob,
	validateSchedule,
	deriveTags,
}

func prepareJob(in *JobInput, now time.Time) error {
	for _, step := range jobPipeline {
		if err := step(in, now); err != nil {
			return err
		}
	}
	return nil
}

func normalizeJob(in *JobInput, _ time.Time) error {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.Category = strings.TrimSpace(in.Category)
	in.Currency = strings.ToUpper(strings.TrimSpace(in.Currency))
	if in.Currency == "" {
		in.Currency = "USD"
	}
	if in.LocationKind == "" {
		in.LocationKind = models.LocationRemote
	}
	if in.LocationCity != nil {
		city := strings.TrimSpace(*in.LocationCity)
		if city == "" {
			in.LocationCity = nil
		} else {
			in.LocationCity = &city
		}
	}
	if in.Deadline != nil {
		d := in.Deadline.UTC()
		in.Deadline = &d
	}
	if in.StartDate != nil {
		d := in.StartDate.UTC()
		in.StartDate = &d
	}
	return nil
}

func validateJob(in *JobInput, _ time.Time) error {
	if n := utf8.RuneCountInString(in.Title); n < minTitleLength || n > maxTitleLength {
		return apperrors.Validation("title must be between %d and %d characters", minTitleLength, maxTitleLength)
	}
	if n := utf8.RuneCountInString(in.Description); n < minDescriptionLength || n > maxDescriptionLength {
		return apperrors.Validation("description must be between %d and %d characters", minDescriptionLength, maxDescriptionLength)
	}
	if in.Category == "" || utf8.RuneCountInString(in.Category) > maxCategoryLength {
		return apperrors.Validation("category is required and must be at most %d characters", maxCategoryLength)
	}
	if !models.JobTypes[in.Type] {
		return apperrors.Validation("unknown job type %q", in.Type)
	}
	if !models.ExperienceLevels[in.Experience] {
		return apperrors.Validation("unknown experience level %q", in.Experience)
	}
	if !models.LocationKinds[in.LocationKind] {
		return apperrors.Validation("unknown location kind %q", in.LocationKind)
	}
	if in.LocationKind != models.LocationRemote && in.LocationCity == nil {
		return apperrors.Validation("locationCity is required for %s jobs", in.LocationKind)
	}
	if len(in.Currency) != 3 {
		return apperrors.Validation("currency must be a three-letter code")
	}
	if in.BudgetMin < 0 || in.BudgetMax < 0 {
		return apperrors.Validation("budget cannot be negative")
	}
	if in.BudgetMax < in.BudgetMin {
		return apperrors.Validation("budgetMax must not be lower than budgetMin")
	}
	if len(in.Tags) > maxTags {
		return apperrors.Validation("at most %d tags are allowed", maxTags)
	}
	for _, tag := range in.Tags {
		if utf8.RuneCountInString(strings.TrimSpace(tag)) > maxTagLength {
			return apperrors.Validation("tags must be at most %d characters", maxTagLength)
		}
	}
	return nil
}

func validateSchedule(in *JobInput, now time.Time) error {
	if in.Deadline != nil && !in.Deadline.After(now) {
		return apperrors.Validation("deadline must be in the future")
	}
	if (in.DurationValue == nil) != (in.DurationUnit == nil) {
		return apperrors.Validation("durationValue and durationUnit must be given together")
	}
	if in.DurationValue == nil {
		return nil
	}
	if *in.DurationValue <= 0 {
		return apperrors.Validation("durationValue must be positive")
	}
	unit, ok := deadline.ParseUnit(*in.DurationUnit)
	if !ok {
		return apperrors.Validation("unknown duration unit %q", *in.DurationUnit)
	}
	if limit := deadline.MaxValue(unit); limit > 0 && *in.DurationValue > limit {
		return apperrors.Validation("durationValue must be at most %d %s", limit, unit)
	}
	canonical := string(unit)
	in.DurationUnit = &canonical
	return nil
}

// deriveTags lowercases and dedupes the given tags and appends tags derived
// from the category, type and location.
func deriveTags(in *JobInput, _ time.Time) error {
	seen := make(map[string]bool)
	var tags []string
	add := func(raw string) {
		tag := strings.Join(strings.Fields(strings.ToLower(raw)), "-")
		if tag == "" || seen[tag] || len(tags) >= maxDerivedTags {
			return
		}
		seen[tag] = true
		tags = append(tags, tag)
	}

	for _, tag := range in.Tags {
		add(tag)
	}
	add(in.Category)
	add(string(in.Type))
	add(string(in.LocationKind))

	in.Tags = tags
	return nil
}
