package advisor

import (
	"testing"
	"time"

	"decision-workers/internal/common/config"
	"decision-workers/internal/common/logger"
	"decision-workers/internal/engine/classifier"
	"decision-workers/internal/engine/explain"
	"decision-workers/internal/engine/features"
	"decision-workers/internal/engine/fraud"
	"decision-workers/internal/engine/knowledge"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testEngineConfig() config.EngineConfig {
	return config.EngineConfig{
		ApproveBelow:          0.15,
		RejectAtOrAbove:       0.40,
		TopK:                  5,
		SampleCount:           200,
		SignificanceThreshold: 0.005,
		MaxQuestions:          7,
		MaxDocuments:          6,
		MaxActions:            6,
		DecayFactor:           0.7,
	}
}

func newTestAdvisor(t *testing.T, cfg config.EngineConfig) *Advisor {
	t.Helper()
	log := logger.NewTestLogger(t)
	adapter := classifier.NewAdapter(classifier.DefaultArtifact(), log)
	return New(
		adapter,
		explain.New(cfg.SampleCount, log),
		knowledge.NewDefault(log),
		fraud.NewDetector(log),
		cfg,
		log,
	)
}

// borderlineApplicant sits near the portfolio average: PD lands in the
// manual-review band.
func borderlineApplicant() features.ApplicationFeatures {
	return features.ApplicationFeatures{
		Age:                    35,
		CreditScore:            680,
		MonthlyIncome:          3500,
		SavingsBalance:         5000,
		FixedMonthlyExpenses:   1500,
		EmploymentYears:        4,
		EmploymentType:         "self_employed",
		UtilityBillOnTimeRatio: 0.9,
		IncomeInflationRatio:   1.0,
		DebtToIncomeRatio:      0.35,
		LoanAmount:             20000,
		LoanDurationMonths:     36,
		LatePayments12M:        1,
		MissedPayments12M:      0.5,
		ApplicationVelocity:    0.5,
		MetadataAnomalyScore:   0,
		DocumentMismatchFlag:   0,
		GeoLocationMismatch:    0,
	}
}

func TestEvaluateScenarios(t *testing.T) {
	a := newTestAdvisor(t, testEngineConfig())

	t.Run("borderline applicant lands in manual review", func(t *testing.T) {
		d, err := a.Evaluate("app-1", borderlineApplicant(), 42)
		require.NoError(t, err)

		assert.Equal(t, BandManualReview, d.Band)
		assert.InDelta(t, 0.30, d.PD, 0.02)
		assert.Equal(t, StateDone, d.State)
		require.NotNil(t, d.Recommendation)
		assert.NotEmpty(t, d.Attributions)
		assert.NotEmpty(t, d.Recommendation.Explanations)
		assert.NotEmpty(t, d.Recommendation.Questions)

		require.NotEmpty(t, d.Recommendation.Actions)
		var creditAction bool
		for _, act := range d.Recommendation.Actions {
			if act.FeatureID == "credit_score" {
				creditAction = true
			}
		}
		assert.True(t, creditAction, "bundle must include a credit_score improvement action")
	})

	t.Run("weaker credit score strictly raises pd and rejects", func(t *testing.T) {
		base, err := a.Evaluate("app-1", borderlineApplicant(), 42)
		require.NoError(t, err)

		weaker := borderlineApplicant()
		weaker.CreditScore = 600
		d, err := a.Evaluate("app-2", weaker, 42)
		require.NoError(t, err)

		assert.Greater(t, d.PD, base.PD)
		assert.Equal(t, BandReject, d.Band)
		assert.Nil(t, d.Recommendation)
		assert.Equal(t, StateDone, d.State)
	})

	t.Run("stronger profile strictly lowers pd and approves", func(t *testing.T) {
		base, err := a.Evaluate("app-1", borderlineApplicant(), 42)
		require.NoError(t, err)

		stronger := borderlineApplicant()
		stronger.CreditScore = 750
		stronger.MonthlyIncome = 5000
		d, err := a.Evaluate("app-3", stronger, 42)
		require.NoError(t, err)

		assert.Less(t, d.PD, base.PD)
		assert.Equal(t, BandApprove, d.Band)
		assert.Nil(t, d.Recommendation)
	})
}

func TestEvaluateDeterminism(t *testing.T) {
	a := newTestAdvisor(t, testEngineConfig())

	first, err := a.Evaluate("app-1", borderlineApplicant(), 99)
	require.NoError(t, err)
	second, err := a.Evaluate("app-1", borderlineApplicant(), 99)
	require.NoError(t, err)

	first.EvaluatedAt = time.Time{}
	second.EvaluatedAt = time.Time{}
	assert.Equal(t, first, second)
}

func TestEvaluateValidationFailure(t *testing.T) {
	a := newTestAdvisor(t, testEngineConfig())

	bad := borderlineApplicant()
	bad.CreditScore = 900

	_, err := a.Evaluate("app-1", bad, 42)
	var verr *features.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "credit_score", verr.Fields[0].Field)
}

func TestEvaluateFraudShortCircuit(t *testing.T) {
	a := newTestAdvisor(t, testEngineConfig())

	// A profile that would otherwise approve still rejects on a hard flag.
	f := borderlineApplicant()
	f.CreditScore = 780
	f.MonthlyIncome = 6000
	f.DocumentMismatchFlag = 1

	d, err := a.Evaluate("app-1", f, 42)
	require.NoError(t, err)

	assert.Equal(t, BandReject, d.Band)
	assert.True(t, d.FraudScreen.Blocked)
	assert.Nil(t, d.Recommendation)
	assert.Equal(t, StateDone, d.State)
}

func TestRecommendationBundleInvariants(t *testing.T) {
	cfg := testEngineConfig()
	a := newTestAdvisor(t, cfg)

	d, err := a.Evaluate("app-1", borderlineApplicant(), 42)
	require.NoError(t, err)
	require.NotNil(t, d.Recommendation)
	rec := d.Recommendation

	t.Run("caps respected", func(t *testing.T) {
		assert.LessOrEqual(t, len(rec.Questions), cfg.MaxQuestions)
		assert.LessOrEqual(t, len(rec.Documents), cfg.MaxDocuments)
		assert.LessOrEqual(t, len(rec.Actions), cfg.MaxActions)
	})

	t.Run("no duplicate questions or documents", func(t *testing.T) {
		qids := map[string]bool{}
		for _, q := range rec.Questions {
			assert.False(t, qids[q.ID], "duplicate question %s", q.ID)
			qids[q.ID] = true
			assert.NotContains(t, q.Text, "{value}")
			assert.NotContains(t, q.Text, "{band}")
		}
		dtypes := map[string]bool{}
		for _, doc := range rec.Documents {
			assert.False(t, dtypes[doc.Type], "duplicate document %s", doc.Type)
			dtypes[doc.Type] = true
		}
	})

	t.Run("placeholders filled in explanations", func(t *testing.T) {
		for _, e := range rec.Explanations {
			assert.NotContains(t, e, "{value}")
			assert.NotContains(t, e, "{band}")
		}
	})

	t.Run("projection bounded", func(t *testing.T) {
		p := rec.Projection
		assert.Equal(t, d.PD, p.CurrentPD)
		assert.LessOrEqual(t, p.ProjectedPD, p.CurrentPD)
		assert.GreaterOrEqual(t, p.ProjectedPD, 0.0)
		assert.InDelta(t, p.CurrentPD-p.ProjectedPD, p.EstimatedImprovement, 1e-12)
	})

	t.Run("actions carry a direction", func(t *testing.T) {
		for _, act := range rec.Actions {
			assert.Equal(t, knowledge.DirectionDecreasesRisk, act.Direction, "action %q", act.Action)
		}
	})

	t.Run("attributions carry a direction matching the weight sign", func(t *testing.T) {
		for _, at := range d.Attributions {
			if at.Weight > 0 {
				assert.Equal(t, explain.DirectionIncreasesRisk, at.Direction, at.FeatureID)
			} else {
				assert.Equal(t, explain.DirectionDecreasesRisk, at.Direction, at.FeatureID)
			}
		}
	})

	t.Run("decay discounting diminishes stacked credit", func(t *testing.T) {
		require.NotEmpty(t, rec.Actions)
		var total, naive float64
		for _, act := range rec.Actions {
			assert.LessOrEqual(t, act.DiscountedPDDelta, act.EstimatedPDDelta)
			assert.Positive(t, act.DiscountedPDDelta)
			total += act.DiscountedPDDelta
			naive += act.EstimatedPDDelta
		}
		if len(rec.Actions) > 1 {
			assert.Less(t, total, naive, "stacking must discount")
		}
		assert.InDelta(t, total, rec.Projection.EstimatedImprovement, 1e-12)
	})

	t.Run("actions grouped by horizon", func(t *testing.T) {
		last := -1
		for _, act := range rec.Actions {
			cur := horizonOrder[act.Horizon]
			assert.GreaterOrEqual(t, cur, last)
			last = cur
		}
	})
}

func TestDegradedExplanation(t *testing.T) {
	cfg := testEngineConfig()
	cfg.SignificanceThreshold = 10 // nothing can clear this bar
	a := newTestAdvisor(t, cfg)

	d, err := a.Evaluate("app-1", borderlineApplicant(), 42)
	require.NoError(t, err)

	assert.True(t, d.Degraded)
	assert.Empty(t, d.Attributions)
	require.NotNil(t, d.Recommendation)
	assert.Empty(t, d.Recommendation.Questions)
	assert.Empty(t, d.Recommendation.Actions)
	assert.Equal(t,
		[]string{"This application is borderline and requires manual review."},
		d.Recommendation.Explanations,
		"degraded bundle still carries a generic explanation")
	assert.Equal(t, d.PD, d.Recommendation.Projection.CurrentPD)
	assert.Equal(t, d.PD, d.Recommendation.Projection.ProjectedPD)
	assert.Zero(t, d.Recommendation.Projection.EstimatedImprovement)
	assert.Contains(t, d.DegradedReasons, "no significant feature attributions")
}

func TestSoftFraudFlagsLeadBundle(t *testing.T) {
	cfg := testEngineConfig()
	a := newTestAdvisor(t, cfg)

	f := borderlineApplicant()
	f.GeoLocationMismatch = 1

	d, err := a.Evaluate("app-1", f, 42)
	require.NoError(t, err)

	assert.Equal(t, BandManualReview, d.Band)
	assert.False(t, d.FraudScreen.Blocked)
	require.NotEmpty(t, d.FraudScreen.SoftFlags())
	require.NotNil(t, d.Recommendation)
	rec := d.Recommendation

	require.NotEmpty(t, rec.Questions)
	assert.Equal(t, "fraud_verification", rec.Questions[0].ID)
	assert.Contains(t, rec.Questions[0].Text, "certified documents")

	require.NotEmpty(t, rec.Documents)
	assert.Equal(t, "certified_original_documents", rec.Documents[0].Type)
	assert.Equal(t, "fraud_verification", rec.Documents[0].FeatureID)

	require.NotEmpty(t, rec.Explanations)
	assert.Contains(t, rec.Explanations[0], "requires verification")

	// The verification entries count toward the caps.
	assert.LessOrEqual(t, len(rec.Questions), cfg.MaxQuestions)
	assert.LessOrEqual(t, len(rec.Documents), cfg.MaxDocuments)
}

func TestDiscountActionsHorizonWalk(t *testing.T) {
	a := newTestAdvisor(t, testEngineConfig())

	out := a.discountActions([]Action{
		{FeatureID: "savings_balance", Action: "build buffer", Horizon: knowledge.HorizonLongTerm, EstimatedPDDelta: 0.05},
		{FeatureID: "monthly_income", Action: "declare income", Horizon: knowledge.HorizonImmediate, EstimatedPDDelta: 0.01},
		{FeatureID: "debt_to_income_ratio", Action: "pay down balance", Horizon: knowledge.HorizonImmediate, EstimatedPDDelta: 0.03},
		{FeatureID: "credit_score", Action: "clear collections", Horizon: knowledge.HorizonShortTerm, EstimatedPDDelta: 0.04},
	})

	// Immediate actions first regardless of a larger delta later in the walk.
	require.Len(t, out, 4)
	assert.Equal(t, "debt_to_income_ratio", out[0].FeatureID)
	assert.Equal(t, "monthly_income", out[1].FeatureID)
	assert.Equal(t, "credit_score", out[2].FeatureID)
	assert.Equal(t, "savings_balance", out[3].FeatureID)

	// Decay applies along the horizon walk, not by global delta order.
	decay := testEngineConfig().DecayFactor
	assert.InDelta(t, 0.03, out[0].DiscountedPDDelta, 1e-12)
	assert.InDelta(t, 0.01*decay, out[1].DiscountedPDDelta, 1e-12)
	assert.InDelta(t, 0.04*decay*decay, out[2].DiscountedPDDelta, 1e-12)
	assert.InDelta(t, 0.05*decay*decay*decay, out[3].DiscountedPDDelta, 1e-12)
}

func TestQuestionCapHonored(t *testing.T) {
	cfg := testEngineConfig()
	cfg.MaxQuestions = 2
	a := newTestAdvisor(t, cfg)

	d, err := a.Evaluate("app-1", borderlineApplicant(), 42)
	require.NoError(t, err)
	require.NotNil(t, d.Recommendation)
	assert.LessOrEqual(t, len(d.Recommendation.Questions), 2)
}

func TestExplainDecisionAnyBand(t *testing.T) {
	a := newTestAdvisor(t, testEngineConfig())

	strong := borderlineApplicant()
	strong.CreditScore = 750
	strong.MonthlyIncome = 5000

	attrs, err := a.ExplainDecision(strong, 42)
	require.NoError(t, err)
	assert.NotEmpty(t, attrs)
	assert.LessOrEqual(t, len(attrs), testEngineConfig().TopK)
	for i, at := range attrs {
		assert.Equal(t, i+1, at.Rank)
	}

	again, err := a.ExplainDecision(strong, 42)
	require.NoError(t, err)
	assert.Equal(t, attrs, again)
}

func TestThresholdsClassify(t *testing.T) {
	th := Thresholds{ApproveBelow: 0.15, RejectAtOrAbove: 0.40}

	cases := []struct {
		pd   float64
		want Band
	}{
		{0.0, BandApprove},
		{0.1499, BandApprove},
		{0.15, BandManualReview},
		{0.30, BandManualReview},
		{0.3999, BandManualReview},
		{0.40, BandReject},
		{0.95, BandReject},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, th.Classify(tc.pd), "pd=%v", tc.pd)
	}
}

func TestStateTransitions(t *testing.T) {
	t.Run("legal path for review band", func(t *testing.T) {
		s := StateInitial
		var err error
		for _, next := range []State{StateScreened, StateClassified, StateExplained, StateRecommended, StateDone} {
			s, err = advance(s, next)
			require.NoError(t, err)
		}
		assert.Equal(t, StateDone, s)
	})

	t.Run("illegal jump fails", func(t *testing.T) {
		_, err := advance(StateInitial, StateDone)
		require.Error(t, err)
	})

	t.Run("done is terminal", func(t *testing.T) {
		_, err := advance(StateDone, StateScreened)
		require.Error(t, err)
	})
}
