// Package advisor orchestrates the full evaluation of one application:
// fraud screen, PD classification, band assignment, and for borderline
// cases the assembly of a reviewer-facing recommendation bundle.
package advisor

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"decision-workers/internal/common/config"
	"decision-workers/internal/common/logger"
	"decision-workers/internal/common/metrics"
	"decision-workers/internal/engine/classifier"
	"decision-workers/internal/engine/explain"
	"decision-workers/internal/engine/features"
	"decision-workers/internal/engine/fraud"
	"decision-workers/internal/engine/knowledge"
)

// horizonOrder walks improvement actions quickest-first: immediate actions
// claim undiscounted credit, slower ones stack behind them.
var horizonOrder = map[string]int{
	knowledge.HorizonImmediate: 0,
	knowledge.HorizonShortTerm: 1,
	knowledge.HorizonLongTerm:  2,
}

// genericBorderlineExplanation is the fallback when no attributed feature
// yields a usable explanation line.
const genericBorderlineExplanation = "This application is borderline and requires manual review."

// fraudVerificationID tags the bundle entries injected by a soft fraud
// screen result.
const fraudVerificationID = "fraud_verification"

// Advisor ties the engine components together behind one evaluation entry
// point.
type Advisor struct {
	adapter   *classifier.Adapter
	explainer *explain.Explainer
	kb        *knowledge.Base
	detector  *fraud.Detector
	cfg       config.EngineConfig
	logger    logger.Logger
}

func New(
	adapter *classifier.Adapter,
	explainer *explain.Explainer,
	kb *knowledge.Base,
	detector *fraud.Detector,
	cfg config.EngineConfig,
	log logger.Logger,
) *Advisor {
	return &Advisor{
		adapter:   adapter,
		explainer: explainer,
		kb:        kb,
		detector:  detector,
		cfg:       cfg,
		logger:    log,
	}
}

func (a *Advisor) thresholds() Thresholds {
	return Thresholds{
		ApproveBelow:    a.cfg.ApproveBelow,
		RejectAtOrAbove: a.cfg.RejectAtOrAbove,
	}
}

// Evaluate runs the full pipeline for one application. The only error path
// is feature validation; every downstream gap degrades into the decision
// itself. The same vector and seed always produce the same decision apart
// from the evaluation timestamp.
func (a *Advisor) Evaluate(applicationID string, f features.ApplicationFeatures, seed int64) (*Decision, error) {
	log := a.logger.WithFields(map[string]interface{}{"applicationId": applicationID})

	clean, err := features.Sanitize(f)
	if err != nil {
		log.Warn("evaluation rejected on validation", map[string]interface{}{"error": err.Error()})
		return nil, err
	}

	decision := &Decision{
		ApplicationID: applicationID,
		State:         StateInitial,
		ModelID:       a.adapter.Artifact().ModelID,
		ModelVersion:  a.adapter.Artifact().Version,
		Seed:          seed,
		EvaluatedAt:   time.Now().UTC(),
	}

	// Fraud screen before any scoring.
	decision.FraudScreen = a.detector.Screen(clean)
	for _, fl := range decision.FraudScreen.Flags {
		metrics.FraudFlagsRaised.WithLabelValues(fl.Code, fl.Severity).Inc()
	}
	if decision.State, err = advance(decision.State, StateScreened); err != nil {
		return nil, err
	}

	decision.PD = a.adapter.Predict(clean)

	if decision.FraudScreen.Blocked {
		decision.Band = BandReject
		if decision.State, err = advance(decision.State, StateDone); err != nil {
			return nil, err
		}
		metrics.EvaluationsTotal.WithLabelValues(string(decision.Band)).Inc()
		log.Warn("application blocked by fraud screen", map[string]interface{}{
			"hardFlags": len(decision.FraudScreen.HardFlags()),
		})
		return decision, nil
	}

	decision.Band = a.thresholds().Classify(decision.PD)
	if decision.State, err = advance(decision.State, StateClassified); err != nil {
		return nil, err
	}

	if decision.Band != BandManualReview {
		if decision.State, err = advance(decision.State, StateDone); err != nil {
			return nil, err
		}
		metrics.EvaluationsTotal.WithLabelValues(string(decision.Band)).Inc()
		log.Info("decision finalized", map[string]interface{}{
			"band": string(decision.Band),
			"pd":   decision.PD,
		})
		return decision, nil
	}

	// Borderline: explain, then recommend.
	decision.Attributions = a.significantTopK(a.explainer.Explain(clean, a.adapter.Predict, seed))
	if decision.State, err = advance(decision.State, StateExplained); err != nil {
		return nil, err
	}

	rec, reasons := a.buildRecommendation(clean, decision.PD, decision.Band, decision.FraudScreen, decision.Attributions)
	decision.Recommendation = rec
	decision.DegradedReasons = reasons
	if len(decision.Attributions) == 0 {
		decision.Degraded = true
		metrics.ExplanationsDegraded.Inc()
	}
	if decision.State, err = advance(decision.State, StateRecommended); err != nil {
		return nil, err
	}
	if decision.State, err = advance(decision.State, StateDone); err != nil {
		return nil, err
	}

	metrics.EvaluationsTotal.WithLabelValues(string(decision.Band)).Inc()
	log.Info("decision finalized with recommendation", map[string]interface{}{
		"band":      string(decision.Band),
		"pd":        decision.PD,
		"questions": len(rec.Questions),
		"actions":   len(rec.Actions),
		"degraded":  decision.Degraded,
	})
	return decision, nil
}

// ExplainDecision computes ranked attributions for any vector on demand,
// regardless of band. Validation is the only error path.
func (a *Advisor) ExplainDecision(f features.ApplicationFeatures, seed int64) ([]explain.Attribution, error) {
	clean, err := features.Sanitize(f)
	if err != nil {
		return nil, err
	}
	return a.significantTopK(a.explainer.Explain(clean, a.adapter.Predict, seed)), nil
}

// significantTopK filters attributions by the significance threshold, keeps
// the configured top-k and renumbers ranks contiguously.
func (a *Advisor) significantTopK(attrs []explain.Attribution) []explain.Attribution {
	var kept []explain.Attribution
	for _, at := range attrs {
		if math.Abs(at.Weight) >= a.cfg.SignificanceThreshold {
			kept = append(kept, at)
		}
		if len(kept) == a.cfg.TopK {
			break
		}
	}
	for i := range kept {
		kept[i].Rank = i + 1
	}
	return kept
}

// buildRecommendation assembles the advisory bundle from the attributed
// features' knowledge rules. Soft fraud flags lead the bundle with a
// verification question and document request. A feature with no rule is
// skipped and noted; when nothing produces an explanation line the bundle
// falls back to a generic one.
func (a *Advisor) buildRecommendation(
	f features.ApplicationFeatures,
	pd float64,
	band Band,
	screen fraud.Screen,
	attrs []explain.Attribution,
) (*Recommendation, []string) {
	rec := &Recommendation{
		Explanations: []string{},
		Questions:    []Question{},
		Documents:    []DocumentRequest{},
		Actions:      []Action{},
		Projection:   Projection{CurrentPD: pd, ProjectedPD: pd},
	}
	var reasons []string

	seenQuestions := map[string]bool{}
	seenDocuments := map[string]bool{}
	var actions []Action

	if soft := screen.SoftFlags(); len(soft) > 0 && !screen.Blocked {
		details := make([]string, len(soft))
		for i, fl := range soft {
			details[i] = fl.Detail
		}
		rec.Explanations = append(rec.Explanations,
			"This application requires verification due to document inconsistencies and credit risk factors.")
		rec.Questions = append(rec.Questions, Question{
			ID: fraudVerificationID,
			Text: fmt.Sprintf("We noticed some inconsistencies in your application: %s. Please provide original or certified documents for verification.",
				strings.Join(details, "; ")),
		})
		seenQuestions[fraudVerificationID] = true
		rec.Documents = append(rec.Documents, DocumentRequest{
			Type:      "certified_original_documents",
			FeatureID: fraudVerificationID,
		})
		seenDocuments["certified_original_documents"] = true
	}

	if len(attrs) == 0 {
		if len(rec.Explanations) == 0 {
			rec.Explanations = append(rec.Explanations, genericBorderlineExplanation)
		}
		reasons = append(reasons, "no significant feature attributions")
		return rec, reasons
	}

	for _, at := range attrs {
		rule, ok := a.kb.Lookup(at.FeatureID)
		if !ok {
			metrics.KnowledgeRuleMisses.WithLabelValues(at.FeatureID).Inc()
			reasons = append(reasons, fmt.Sprintf("no knowledge rule for %s", at.FeatureID))
			continue
		}

		value := f.Value(at.FeatureID)
		rec.Explanations = append(rec.Explanations, fillTemplate(rule.ExplanationTemplate, f, at.FeatureID, band))

		for _, q := range rule.Questions {
			if seenQuestions[q.ID] || len(rec.Questions) >= a.cfg.MaxQuestions {
				continue
			}
			seenQuestions[q.ID] = true
			rec.Questions = append(rec.Questions, Question{
				ID:   q.ID,
				Text: fillTemplate(q.Text, f, at.FeatureID, band),
			})
		}

		for _, d := range rule.Documents {
			if !documentTriggered(d, value) || seenDocuments[d.Type] || len(rec.Documents) >= a.cfg.MaxDocuments {
				continue
			}
			seenDocuments[d.Type] = true
			rec.Documents = append(rec.Documents, DocumentRequest{Type: d.Type, FeatureID: at.FeatureID})
		}

		for _, act := range rule.Actions {
			actions = append(actions, Action{
				FeatureID:        at.FeatureID,
				Action:           act.Action,
				Direction:        act.Direction,
				Horizon:          act.Horizon,
				EstimatedPDDelta: act.EstimatedPDDelta,
			})
		}
	}

	if len(rec.Explanations) == 0 {
		rec.Explanations = append(rec.Explanations, genericBorderlineExplanation)
	}

	rec.Actions = a.discountActions(actions)

	var improvement float64
	for _, act := range rec.Actions {
		improvement += act.DiscountedPDDelta
	}
	projected := pd - improvement
	floor := math.Max(a.cfg.ProjectionFloor, 0)
	if projected < floor {
		projected = floor
	}
	if projected > pd {
		projected = pd
	}
	rec.Projection = Projection{
		CurrentPD:            pd,
		ProjectedPD:          projected,
		EstimatedImprovement: pd - projected,
	}

	return rec, reasons
}

// discountActions walks candidate actions horizon by horizon (quickest
// first), best standalone estimate first within each horizon, caps the
// list, and applies geometric decay along that walk: the i-th action
// credited is worth decay^i of its estimate.
func (a *Advisor) discountActions(actions []Action) []Action {
	sort.SliceStable(actions, func(i, j int) bool {
		if horizonOrder[actions[i].Horizon] != horizonOrder[actions[j].Horizon] {
			return horizonOrder[actions[i].Horizon] < horizonOrder[actions[j].Horizon]
		}
		if actions[i].EstimatedPDDelta != actions[j].EstimatedPDDelta {
			return actions[i].EstimatedPDDelta > actions[j].EstimatedPDDelta
		}
		if actions[i].FeatureID != actions[j].FeatureID {
			return actions[i].FeatureID < actions[j].FeatureID
		}
		return actions[i].Action < actions[j].Action
	})

	if len(actions) > a.cfg.MaxActions {
		actions = actions[:a.cfg.MaxActions]
	}
	for i := range actions {
		actions[i].DiscountedPDDelta = actions[i].EstimatedPDDelta * math.Pow(a.cfg.DecayFactor, float64(i))
	}

	if actions == nil {
		actions = []Action{}
	}
	return actions
}

// documentTriggered evaluates one trigger condition against the feature's
// current value.
func documentTriggered(d knowledge.DocumentTrigger, value float64) bool {
	switch d.When {
	case knowledge.WhenAlways:
		return true
	case knowledge.WhenAbove:
		return value > d.Threshold
	case knowledge.WhenBelow:
		return value < d.Threshold
	default:
		return false
	}
}

// fillTemplate substitutes {value} and {band} placeholders.
func fillTemplate(tpl string, f features.ApplicationFeatures, featureID string, band Band) string {
	out := strings.ReplaceAll(tpl, "{value}", formatValue(f, featureID))
	return strings.ReplaceAll(out, "{band}", string(band))
}

// formatValue renders a feature value for human-facing text: categorical
// fields show their category, whole numbers drop the fraction.
func formatValue(f features.ApplicationFeatures, featureID string) string {
	if fs, ok := features.Spec(featureID); ok && fs.Kind == features.Categorical {
		return f.EmploymentType
	}
	v := f.Value(featureID)
	if v == math.Trunc(v) {
		return strconv.FormatFloat(v, 'f', 0, 64)
	}
	return strconv.FormatFloat(v, 'f', 2, 64)
}
