package utils

import (
	"testing"

	"engagement-engine/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestEscapeMarkdown(t *testing.T) {
	assert.Equal(t, `Go \(remote\) \- 100\.5\!`, EscapeMarkdown("Go (remote) - 100.5!"))
	assert.Equal(t, "plain", EscapeMarkdown("plain"))
}

func TestFormatActivity(t *testing.T) {
	activity := &models.Activity{
		Type:    models.ActivityDeadlineWarning,
		Status:  models.ActivityStatusWarning,
		Message: "Mission ends in 2 days.",
		Meta:    models.Meta{"endDate": "2026-10-20"},
	}

	msg := FormatActivity(activity)
	assert.Contains(t, msg, "⏰ *Deadline Warning*")
	assert.Contains(t, msg, `Mission ends in 2 days\.`)
	assert.Contains(t, msg, `2026\-10\-20`)
}

func TestReferenceURL(t *testing.T) {
	jobID, ref := "job-1", models.ReferenceJob
	activity := &models.Activity{ReferenceID: &jobID, ReferenceType: &ref}

	assert.Equal(t, "https://example.com/jobs/job-1", ReferenceURL("https://example.com/", activity))
	assert.Empty(t, ReferenceURL("", activity))
	assert.Empty(t, ReferenceURL("https://example.com", &models.Activity{}))
}
