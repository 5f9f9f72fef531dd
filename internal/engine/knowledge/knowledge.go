// Package knowledge holds the static advisory rule table keyed by feature id.
// Each rule bundles an explanation template, interview question templates,
// document triggers and improvement actions for one feature. Rules are data,
// not behavior: the advisor decides which rules fire and how their estimates
// combine.
package knowledge

import (
	"encoding/json"
	"fmt"
	"os"

	"decision-workers/internal/common/logger"
)

// Improvement horizons, ordered by how quickly an applicant can act on them.
const (
	HorizonImmediate = "immediate"
	HorizonShortTerm = "short_term"
	HorizonLongTerm  = "long_term"
)

// Document trigger conditions against the feature's current value.
const (
	WhenAlways = "always"
	WhenAbove  = "above"
	WhenBelow  = "below"
)

// Direction of an action's effect on estimated default risk. Every action
// defaults to decreasing risk; override files may state it explicitly.
const (
	DirectionDecreasesRisk = "decreases_risk"
	DirectionIncreasesRisk = "increases_risk"
)

// QuestionTemplate is one interview question. Text may carry {value} and
// {band} placeholders filled at assembly time. ID dedupes across rules.
type QuestionTemplate struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// DocumentTrigger requests a document when the feature value satisfies the
// condition. Threshold is ignored for WhenAlways.
type DocumentTrigger struct {
	Type      string  `json:"type"`
	When      string  `json:"when"`
	Threshold float64 `json:"threshold,omitempty"`
}

// ImprovementAction is one concrete step the applicant can take, with the
// rule author's estimate of its standalone PD reduction.
type ImprovementAction struct {
	Action           string  `json:"action"`
	Direction        string  `json:"direction"`
	Horizon          string  `json:"horizon"`
	EstimatedPDDelta float64 `json:"estimated_pd_delta"`
}

// Rule is the full advisory entry for one feature.
type Rule struct {
	FeatureID           string              `json:"feature_id"`
	ExplanationTemplate string              `json:"explanation_template"`
	Questions           []QuestionTemplate  `json:"questions"`
	Documents           []DocumentTrigger   `json:"documents"`
	Actions             []ImprovementAction `json:"actions"`
}

// Base is an immutable rule lookup. A miss is an expected outcome, not an
// error; callers degrade gracefully.
type Base struct {
	rules  map[string]Rule
	logger logger.Logger
}

// NewDefault returns the built-in rule table.
func NewDefault(log logger.Logger) *Base {
	rules := make(map[string]Rule, len(defaultRules))
	for _, r := range defaultRules {
		rules[r.FeatureID] = normalizeRule(r)
	}
	return &Base{rules: rules, logger: log}
}

// normalizeRule fills defaulted action fields so consumers never see an
// empty direction.
func normalizeRule(r Rule) Rule {
	actions := make([]ImprovementAction, len(r.Actions))
	copy(actions, r.Actions)
	for i := range actions {
		if actions[i].Direction == "" {
			actions[i].Direction = DirectionDecreasesRisk
		}
	}
	r.Actions = actions
	return r
}

// LoadFile layers rules from a JSON file over the defaults. File rules
// replace default rules for the same feature id wholesale.
func LoadFile(path string, log logger.Logger) (*Base, error) {
	base := NewDefault(log)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read knowledge base: %w", err)
	}

	var overrides []Rule
	if err := json.Unmarshal(data, &overrides); err != nil {
		return nil, fmt.Errorf("decode knowledge base: %w", err)
	}

	for _, r := range overrides {
		if r.FeatureID == "" {
			return nil, fmt.Errorf("knowledge base entry missing feature_id")
		}
		base.rules[r.FeatureID] = normalizeRule(r)
	}

	log.Info("knowledge base loaded", map[string]interface{}{
		"path":      path,
		"overrides": len(overrides),
		"total":     len(base.rules),
	})
	return base, nil
}

// Lookup returns the rule for a feature id. The second return reports
// whether a rule exists; absence never errors.
func (b *Base) Lookup(featureID string) (Rule, bool) {
	r, ok := b.rules[featureID]
	if !ok {
		b.logger.Debug("no knowledge rule for feature", map[string]interface{}{
			"featureId": featureID,
		})
	}
	return r, ok
}

// Size reports how many features have rules.
func (b *Base) Size() int {
	return len(b.rules)
}
