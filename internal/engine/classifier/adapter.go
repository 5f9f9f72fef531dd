package classifier

import (
	"math"

	"decision-workers/internal/common/logger"
	"decision-workers/internal/engine/features"
)

// PredictFunc scores one sanitized feature vector. Implementations must be
// pure: the same vector always yields the same probability.
type PredictFunc func(features.ApplicationFeatures) float64

// Adapter validates incoming feature vectors and scores them against a
// loaded model artifact.
type Adapter struct {
	artifact *ModelArtifact
	logger   logger.Logger
}

// NewAdapter wires an artifact to the prediction interface.
func NewAdapter(artifact *ModelArtifact, log logger.Logger) *Adapter {
	return &Adapter{artifact: artifact, logger: log}
}

// Artifact exposes the loaded model description for audit payloads.
func (a *Adapter) Artifact() *ModelArtifact {
	return a.artifact
}

// Evaluate sanitizes the vector per field policy and returns the probability
// of default together with the sanitized vector actually scored. Validation
// failures are the only error path.
func (a *Adapter) Evaluate(f features.ApplicationFeatures) (float64, features.ApplicationFeatures, error) {
	clean, err := features.Sanitize(f)
	if err != nil {
		a.logger.Warn("feature vector rejected", map[string]interface{}{
			"error": err.Error(),
		})
		return 0, f, err
	}

	p := a.Predict(clean)
	a.logger.Debug("probability of default computed", map[string]interface{}{
		"modelId": a.artifact.ModelID,
		"pd":      p,
	})
	return p, clean, nil
}

// Predict scores an already-sanitized vector. It applies the artifact's
// standardization and logistic link; fields without a coefficient do not
// contribute.
func (a *Adapter) Predict(f features.ApplicationFeatures) float64 {
	z := a.artifact.Intercept
	for _, c := range a.artifact.Coefficients {
		v := f.Value(c.FeatureID)
		if math.IsNaN(v) {
			continue
		}
		z += c.Coefficient * (v - c.Mean) / c.Std
	}
	return sigmoid(z)
}

func sigmoid(z float64) float64 {
	return 1.0 / (1.0 + math.Exp(-z))
}
