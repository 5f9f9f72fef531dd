// internal/workers/decision/record-decision/models.go
package recorddecision

import (
	"decision-workers/internal/engine/advisor"
)

// Input carries the finalized decision to persist.
type Input struct {
	Decision *advisor.Decision `json:"decision"`
}

// Output reports the stored record. Duplicate submissions for the same
// application complete idempotently with the already-stored record id.
type Output struct {
	RecordID      string `json:"recordId"`
	ApplicationID string `json:"applicationId"`
	Duplicate     bool   `json:"duplicate"`
}
