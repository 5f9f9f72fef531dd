// Package models holds the wire-level DTOs shared by the decision workers.
package models

import (
	"time"

	"decision-workers/internal/engine/advisor"
)

// DecisionRecord is the persisted form of one finalized decision.
type DecisionRecord struct {
	RecordID      string    `json:"recordId"`
	ApplicationID string    `json:"applicationId"`
	PD            float64   `json:"pd"`
	Band          string    `json:"band"`
	ModelID       string    `json:"modelId"`
	ModelVersion  string    `json:"modelVersion"`
	Degraded      bool      `json:"degraded"`
	EvaluatedAt   time.Time `json:"evaluatedAt"`
	RecordedAt    time.Time `json:"recordedAt"`
}

// ReviewNotification is the message pushed to the manual review channel for
// borderline decisions.
type ReviewNotification struct {
	ApplicationID string  `json:"applicationId"`
	PD            float64 `json:"pd"`
	Band          string  `json:"band"`
	QuestionCount int     `json:"questionCount"`
	DocumentCount int     `json:"documentCount"`
	ActionCount   int     `json:"actionCount"`
	FraudScore    float64 `json:"fraudScore"`
	Summary       string  `json:"summary"`
}

// NewReviewNotification flattens a decision into its notification form.
func NewReviewNotification(d *advisor.Decision, summary string) ReviewNotification {
	n := ReviewNotification{
		ApplicationID: d.ApplicationID,
		PD:            d.PD,
		Band:          string(d.Band),
		FraudScore:    d.FraudScreen.Score,
		Summary:       summary,
	}
	if d.Recommendation != nil {
		n.QuestionCount = len(d.Recommendation.Questions)
		n.DocumentCount = len(d.Recommendation.Documents)
		n.ActionCount = len(d.Recommendation.Actions)
	}
	return n
}
