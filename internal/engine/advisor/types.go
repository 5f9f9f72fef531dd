package advisor

import (
	"time"

	"decision-workers/internal/engine/explain"
	"decision-workers/internal/engine/fraud"
)

// Question is one interview question with its template id for deduplication.
type Question struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// DocumentRequest asks the applicant for one document type. FeatureID names
// the attributed feature whose rule triggered it.
type DocumentRequest struct {
	Type      string `json:"type"`
	FeatureID string `json:"featureId"`
}

// Action is one recommended improvement step. EstimatedPDDelta is the rule
// author's standalone estimate; DiscountedPDDelta is the figure actually
// credited after stacking decay.
type Action struct {
	FeatureID         string  `json:"featureId"`
	Action            string  `json:"action"`
	Direction         string  `json:"direction"`
	Horizon           string  `json:"horizon"`
	EstimatedPDDelta  float64 `json:"estimatedPdDelta"`
	DiscountedPDDelta float64 `json:"discountedPdDelta"`
}

// Projection is the improvement estimate if the applicant follows every
// recommended action. ProjectedPD never exceeds CurrentPD and never falls
// below the configured floor.
type Projection struct {
	CurrentPD            float64 `json:"currentPd"`
	ProjectedPD          float64 `json:"projectedPd"`
	EstimatedImprovement float64 `json:"estimatedImprovement"`
}

// Recommendation is the full advisory bundle for a manual-review decision.
type Recommendation struct {
	Explanations []string          `json:"explanations"`
	Questions    []Question        `json:"questions"`
	Documents    []DocumentRequest `json:"documents"`
	Actions      []Action          `json:"actions"`
	Projection   Projection        `json:"projection"`
}

// Decision is the complete evaluation result for one application.
type Decision struct {
	ApplicationID   string                `json:"applicationId"`
	PD              float64               `json:"pd"`
	Band            Band                  `json:"band"`
	State           State                 `json:"state"`
	FraudScreen     fraud.Screen          `json:"fraudScreen"`
	Attributions    []explain.Attribution `json:"attributions,omitempty"`
	Recommendation  *Recommendation       `json:"recommendation,omitempty"`
	Degraded        bool                  `json:"degraded"`
	DegradedReasons []string              `json:"degradedReasons,omitempty"`
	ModelID         string                `json:"modelId"`
	ModelVersion    string                `json:"modelVersion"`
	Seed            int64                 `json:"seed"`
	EvaluatedAt     time.Time             `json:"evaluatedAt"`
}
