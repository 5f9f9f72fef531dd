// internal/workers/decision/evaluate-application/models.go
package evaluateapplication

import (
	"decision-workers/internal/engine/advisor"
	"decision-workers/internal/engine/features"
)

// Input carries the resolved feature vector for one application. A zero seed
// means "derive from the application id" so re-runs of the same job explain
// identically.
type Input struct {
	ApplicationID string                       `json:"applicationId"`
	Features      features.ApplicationFeatures `json:"features"`
	Seed          int64                        `json:"seed,omitempty"`
}

// Output is the full decision plus a cache indicator for observability.
type Output struct {
	Decision  *advisor.Decision `json:"decision"`
	FromCache bool              `json:"fromCache"`
}
