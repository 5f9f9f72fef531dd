// Package explain produces local, model-agnostic feature attributions for a
// single scored application. It perturbs the instance in its neighborhood,
// scores the neighbors through the classifier's prediction function, and fits
// a distance-weighted linear surrogate whose standardized slopes become the
// attribution weights.
//
// Everything is driven by a caller-supplied seed: the same vector, predictor
// and seed always yield byte-identical attributions.
package explain

import (
	"math"
	"math/rand"
	"sort"

	"decision-workers/internal/common/logger"
	"decision-workers/internal/engine/features"
)

// categorySwitchProbability is how often a perturbed neighbor redraws a
// categorical field instead of keeping the instance's category.
const categorySwitchProbability = 0.3

// Direction labels for attribution weights.
const (
	DirectionIncreasesRisk = "increases_risk"
	DirectionDecreasesRisk = "decreases_risk"
)

// Attribution is one feature's signed contribution to the local surrogate.
// Positive weights push the probability of default up; Direction restates
// the sign for consumers that never look at the raw weight. Ranks are
// contiguous from 1, ordered by descending absolute weight.
type Attribution struct {
	FeatureID string  `json:"feature_id"`
	Weight    float64 `json:"weight"`
	Direction string  `json:"direction"`
	Rank      int     `json:"rank"`
}

// PredictFunc scores a feature vector. Must be pure.
type PredictFunc func(features.ApplicationFeatures) float64

// Explainer holds the neighborhood sampling configuration.
type Explainer struct {
	sampleCount int
	logger      logger.Logger
}

// New builds an explainer drawing sampleCount perturbed neighbors per call.
func New(sampleCount int, log logger.Logger) *Explainer {
	return &Explainer{sampleCount: sampleCount, logger: log}
}

// Explain returns attributions for every registry field, ranked by absolute
// weight. A field whose perturbations never moved (zero variance in the
// neighborhood) gets weight zero. The caller filters by significance and
// truncates to its top-k.
func (e *Explainer) Explain(instance features.ApplicationFeatures, predict PredictFunc, seed int64) []Attribution {
	rng := rand.New(rand.NewSource(seed))
	specs := features.Registry()

	// Sample the neighborhood. The instance itself is the first row so the
	// surrogate is anchored at the point being explained.
	n := e.sampleCount + 1
	cols := make([][]float64, len(specs))
	for i := range cols {
		cols[i] = make([]float64, n)
	}
	preds := make([]float64, n)
	weights := make([]float64, n)

	for i, fs := range specs {
		cols[i][0] = instance.Value(fs.ID)
	}
	preds[0] = predict(instance)
	weights[0] = 1

	for s := 1; s < n; s++ {
		neighbor := instance
		d2 := 0.0
		// Iterate the ordered registry, never a map: the draw sequence is
		// part of the deterministic contract.
		for i, fs := range specs {
			v := perturbField(rng, fs, instance.Value(fs.ID))
			neighbor = neighbor.WithValue(fs.ID, v)
			delta := (v - cols[i][0]) / fs.Scale
			d2 += delta * delta
			cols[i][s] = v
		}
		preds[s] = predict(neighbor)
		weights[s] = proximityKernel(d2, len(specs))
	}

	attrs := make([]Attribution, len(specs))
	for i, fs := range specs {
		w := standardizedSlope(cols[i], preds, weights)
		attrs[i] = Attribution{
			FeatureID: fs.ID,
			Weight:    w,
			Direction: direction(w),
		}
	}

	sort.SliceStable(attrs, func(a, b int) bool {
		wa, wb := math.Abs(attrs[a].Weight), math.Abs(attrs[b].Weight)
		if wa != wb {
			return wa > wb
		}
		return attrs[a].FeatureID < attrs[b].FeatureID
	})
	for i := range attrs {
		attrs[i].Rank = i + 1
	}

	e.logger.Debug("local explanation computed", map[string]interface{}{
		"samples":    e.sampleCount,
		"seed":       seed,
		"topFeature": attrs[0].FeatureID,
	})
	return attrs
}

func direction(weight float64) string {
	if weight > 0 {
		return DirectionIncreasesRisk
	}
	return DirectionDecreasesRisk
}

// perturbField draws one neighbor value for a field. Numerics get gaussian
// jitter at the field's scale, clamped into range; categoricals keep the
// instance category or redraw uniformly.
func perturbField(rng *rand.Rand, fs features.FieldSpec, v float64) float64 {
	if fs.Kind == features.Categorical {
		// Two draws regardless of outcome, so the stream position does not
		// depend on earlier draws' values.
		u := rng.Float64()
		pick := rng.Intn(len(fs.Categories))
		if u < categorySwitchProbability {
			return float64(pick)
		}
		return v
	}

	jittered := v + rng.NormFloat64()*fs.Scale
	return math.Min(math.Max(jittered, fs.Min), fs.Max)
}

// proximityKernel converts a scale-normalized squared distance into a sample
// weight. Width grows with dimensionality so distant-but-typical neighbors
// still contribute.
func proximityKernel(d2 float64, dims int) float64 {
	sigma2 := float64(dims)
	return math.Exp(-d2 / sigma2)
}

// standardizedSlope fits a univariate weighted least-squares line of the
// predictions against one feature column and scales the slope by the
// column's weighted standard deviation. The result reads as "change in PD
// per typical local variation of this feature".
func standardizedSlope(xs, ys, ws []float64) float64 {
	var wSum, xMean, yMean float64
	for i := range xs {
		wSum += ws[i]
		xMean += ws[i] * xs[i]
		yMean += ws[i] * ys[i]
	}
	if wSum == 0 {
		return 0
	}
	xMean /= wSum
	yMean /= wSum

	var sxx, sxy float64
	for i := range xs {
		dx := xs[i] - xMean
		sxx += ws[i] * dx * dx
		sxy += ws[i] * dx * (ys[i] - yMean)
	}
	if sxx == 0 {
		return 0
	}

	slope := sxy / sxx
	return slope * math.Sqrt(sxx/wSum)
}
