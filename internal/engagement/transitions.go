package engagement

import "engagement-engine/internal/models"

// jobTransitions lists the moves an owner or admin may request. reported is
// absent: it is entered by moderation and left only through unfreeze.
var jobTransitions = map[models.JobStatus]map[models.JobStatus]bool{
	models.JobStatusPending: {
		models.JobStatusPublished: true,
		models.JobStatusClosed:    true,
	},
	models.JobStatusPublished: {
		models.JobStatusPaused:     true,
		models.JobStatusClosed:     true,
		models.JobStatusFilled:     true,
		models.JobStatusInterview:  true,
		models.JobStatusInProgress: true,
	},
	models.JobStatusPaused: {
		models.JobStatusPublished: true,
		models.JobStatusClosed:    true,
		models.JobStatusFilled:    true,
	},
	models.JobStatusInterview: {
		models.JobStatusPublished:  true,
		models.JobStatusInProgress: true,
		models.JobStatusClosed:     true,
		models.JobStatusFilled:     true,
	},
	models.JobStatusInProgress: {
		models.JobStatusClosed: true,
		models.JobStatusFilled: true,
	},
}

// ownerApplicationTransitions are the moves available to the job owner.
var ownerApplicationTransitions = map[models.ApplicationStatus]map[models.ApplicationStatus]bool{
	models.ApplicationPending: {
		models.ApplicationReviewed: true,
		models.ApplicationAccepted: true,
		models.ApplicationRejected: true,
	},
	models.ApplicationReviewed: {
		models.ApplicationReviewed: true,
		models.ApplicationAccepted: true,
		models.ApplicationRejected: true,
	},
}

var withdrawable = map[models.ApplicationStatus]bool{
	models.ApplicationPending:  true,
	models.ApplicationReviewed: true,
	models.ApplicationAccepted: true,
}

func CanMoveJob(from, to models.JobStatus) bool {
	return jobTransitions[from][to]
}

func CanMoveApplication(from, to models.ApplicationStatus) bool {
	return ownerApplicationTransitions[from][to]
}

func CanWithdraw(from models.ApplicationStatus) bool {
	return withdrawable[from]
}

// notifiesOwner reports whether reaching status produces an owner notification.
func notifiesOwner(from, to models.JobStatus) bool {
	switch to {
	case models.JobStatusClosed, models.JobStatusFilled:
		return true
	case models.JobStatusPublished:
		return from == models.JobStatusPending
	}
	return false
}
