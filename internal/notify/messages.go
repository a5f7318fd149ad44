package notify

import (
	"fmt"
	"time"

	"engagement-engine/internal/deadline"
	"engagement-engine/internal/models"
)

func quote(title string) string {
	return fmt.Sprintf("%q", title)
}

func NewApplication(jobTitle string) string {
	return fmt.Sprintf("New application received for %s.", quote(jobTitle))
}

func ApplicationStatus(jobTitle string, status models.ApplicationStatus) string {
	switch status {
	case models.ApplicationAccepted:
		return fmt.Sprintf("Congratulations! Your application for %s was accepted.", quote(jobTitle))
	case models.ApplicationRejected:
		return fmt.Sprintf("Your application for %s was not selected.", quote(jobTitle))
	case models.ApplicationReviewed:
		return fmt.Sprintf("Your application for %s is being reviewed.", quote(jobTitle))
	}
	return fmt.Sprintf("Your application for %s is now %s.", quote(jobTitle), status)
}

func ApplicationWithdrawn(jobTitle, reason string) string {
	if reason == "" {
		return fmt.Sprintf("A candidate withdrew their application for %s.", quote(jobTitle))
	}
	return fmt.Sprintf("A candidate withdrew their application for %s: %s", quote(jobTitle), reason)
}

func RecommendationReceived(jobTitle string, badge models.BadgeTier, count int) string {
	return fmt.Sprintf("You were recommended for your work on %s. You now have %d recommendation(s) and a %s badge.",
		quote(jobTitle), count, badge)
}

func JobStatus(jobTitle string, status models.JobStatus) string {
	switch status {
	case models.JobStatusPublished:
		return fmt.Sprintf("Your job %s is now published.", quote(jobTitle))
	case models.JobStatusFilled:
		return fmt.Sprintf("Your job %s has been filled.", quote(jobTitle))
	case models.JobStatusClosed:
		return fmt.Sprintf("Your job %s has been closed.", quote(jobTitle))
	}
	return fmt.Sprintf("Your job %s is now %s.", quote(jobTitle), status)
}

func JobReported(jobTitle string) string {
	return fmt.Sprintf("Your job %s was reported and is frozen pending moderation review.", quote(jobTitle))
}

func JobUnfrozen(jobTitle string) string {
	return fmt.Sprintf("Your job %s passed moderation review and is active again.", quote(jobTitle))
}

func DeadlineWarning(jobTitle, remaining string, end time.Time) string {
	date := end.UTC().Format("2006-01-02 15:04 MST")
	if remaining == deadline.ExpiringSoon {
		return fmt.Sprintf("Heads up: the mission %s is expiring soon (on %s).", quote(jobTitle), date)
	}
	return fmt.Sprintf("Heads up: the mission %s ends in %s (on %s).", quote(jobTitle), remaining, date)
}
