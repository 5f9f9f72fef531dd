// Package classifier adapts a calibrated probability-of-default model behind
// a small, deterministic prediction interface. The model artifact is a JSON
// document carrying standardization parameters and logistic coefficients;
// loading validates it against an embedded JSON schema before use.
package classifier

import (
	"encoding/json"
	"fmt"
	"math"
	"os"

	"decision-workers/internal/engine/features"

	"github.com/xeipuuv/gojsonschema"
)

// artifactSchema is the contract every model artifact must satisfy. Loading
// an artifact that violates it fails fast rather than producing silent
// garbage probabilities.
const artifactSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["model_id", "version", "intercept", "coefficients"],
  "properties": {
    "model_id": {"type": "string", "minLength": 1},
    "version": {"type": "string", "minLength": 1},
    "intercept": {"type": "number"},
    "coefficients": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "required": ["feature_id", "mean", "std", "coefficient"],
        "properties": {
          "feature_id": {"type": "string", "minLength": 1},
          "mean": {"type": "number"},
          "std": {"type": "number", "exclusiveMinimum": 0},
          "coefficient": {"type": "number"}
        }
      }
    }
  }
}`

// Coefficient is one feature's standardization parameters and weight.
type Coefficient struct {
	FeatureID   string  `json:"feature_id"`
	Mean        float64 `json:"mean"`
	Std         float64 `json:"std"`
	Coefficient float64 `json:"coefficient"`
}

// ModelArtifact is the full calibrated model description.
type ModelArtifact struct {
	ModelID      string        `json:"model_id"`
	Version      string        `json:"version"`
	Intercept    float64       `json:"intercept"`
	Coefficients []Coefficient `json:"coefficients"`
}

// LoadArtifact reads and validates a model artifact from disk.
func LoadArtifact(path string) (*ModelArtifact, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model artifact: %w", err)
	}
	return ParseArtifact(data)
}

// ParseArtifact validates raw artifact JSON against the embedded schema and
// cross-checks every coefficient against the feature registry.
func ParseArtifact(data []byte) (*ModelArtifact, error) {
	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(artifactSchema),
		gojsonschema.NewBytesLoader(data),
	)
	if err != nil {
		return nil, fmt.Errorf("artifact schema validation: %w", err)
	}
	if !result.Valid() {
		return nil, fmt.Errorf("artifact schema violation: %v", result.Errors())
	}

	var artifact ModelArtifact
	if err := json.Unmarshal(data, &artifact); err != nil {
		return nil, fmt.Errorf("decode model artifact: %w", err)
	}

	seen := make(map[string]bool, len(artifact.Coefficients))
	for _, c := range artifact.Coefficients {
		if _, ok := features.Spec(c.FeatureID); !ok {
			return nil, fmt.Errorf("artifact references unknown feature %q", c.FeatureID)
		}
		if seen[c.FeatureID] {
			return nil, fmt.Errorf("artifact has duplicate coefficient for %q", c.FeatureID)
		}
		seen[c.FeatureID] = true
	}

	return &artifact, nil
}

// DefaultArtifact returns the built-in calibrated model. At its feature
// means the model yields exactly the base default rate of 0.30.
func DefaultArtifact() *ModelArtifact {
	return &ModelArtifact{
		ModelID:   "pd-logistic-baseline",
		Version:   "2.3.0",
		Intercept: math.Log(0.3 / 0.7),
		Coefficients: []Coefficient{
			{FeatureID: "credit_score", Mean: 680, Std: 80, Coefficient: -0.9},
			{FeatureID: "monthly_income", Mean: 3500, Std: 1500, Coefficient: -0.5},
			{FeatureID: "debt_to_income_ratio", Mean: 0.35, Std: 0.15, Coefficient: 0.6},
			{FeatureID: "savings_balance", Mean: 5000, Std: 4000, Coefficient: -0.3},
			{FeatureID: "employment_years", Mean: 4, Std: 3, Coefficient: -0.25},
			{FeatureID: "fixed_monthly_expenses", Mean: 1500, Std: 700, Coefficient: 0.3},
			{FeatureID: "utility_bill_on_time_ratio", Mean: 0.9, Std: 0.1, Coefficient: -0.2},
			{FeatureID: "late_payments_12m", Mean: 1, Std: 1.5, Coefficient: 0.25},
			{FeatureID: "missed_payments_12m", Mean: 0.5, Std: 1, Coefficient: 0.3},
			{FeatureID: "age", Mean: 35, Std: 10, Coefficient: -0.1},
			{FeatureID: "loan_amount", Mean: 20000, Std: 15000, Coefficient: 0.4},
			{FeatureID: "loan_duration_months", Mean: 36, Std: 18, Coefficient: 0.1},
			{FeatureID: "income_inflation_ratio", Mean: 1.0, Std: 0.3, Coefficient: 0.3},
			{FeatureID: "application_velocity", Mean: 0.5, Std: 1, Coefficient: 0.2},
			{FeatureID: "employment_type", Mean: 1, Std: 1, Coefficient: 0.2},
		},
	}
}
