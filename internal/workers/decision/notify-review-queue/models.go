// internal/workers/decision/notify-review-queue/models.go
package notifyreviewqueue

import (
	"decision-workers/internal/engine/advisor"
)

const (
	StatusSent     = "SENT"
	StatusSkipped  = "SKIPPED"
	StatusDisabled = "DISABLED"
)

// Input carries the finalized decision. Only manual-review decisions produce
// a notification; other bands complete with StatusSkipped.
type Input struct {
	Decision *advisor.Decision `json:"decision"`
}

type Output struct {
	NotificationID string `json:"notificationId"`
	ApplicationID  string `json:"applicationId"`
	Status         string `json:"status"`
	EmailSent      bool   `json:"emailSent"`
	QueuePublished bool   `json:"queuePublished"`
	SentAt         string `json:"sentAt"`
}
