// internal/workers/decision/explain-decision/models.go
package explaindecision

import (
	"decision-workers/internal/engine/explain"
	"decision-workers/internal/engine/features"
)

// Input requests an on-demand explanation for any application, whatever band
// its decision fell into.
type Input struct {
	ApplicationID string                       `json:"applicationId"`
	Features      features.ApplicationFeatures `json:"features"`
	Seed          int64                        `json:"seed,omitempty"`
}

type Output struct {
	ApplicationID string                `json:"applicationId"`
	Attributions  []explain.Attribution `json:"attributions"`
	Degraded      bool                  `json:"degraded"`
	Seed          int64                 `json:"seed"`
}
