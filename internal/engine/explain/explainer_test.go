package explain

import (
	"sync"
	"testing"

	"decision-workers/internal/common/logger"
	"decision-workers/internal/engine/classifier"
	"decision-workers/internal/engine/features"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testInstance() features.ApplicationFeatures {
	return features.ApplicationFeatures{
		Age:                    35,
		CreditScore:            620,
		MonthlyIncome:          2800,
		SavingsBalance:         1200,
		FixedMonthlyExpenses:   1800,
		EmploymentYears:        2,
		EmploymentType:         "contract",
		UtilityBillOnTimeRatio: 0.7,
		IncomeInflationRatio:   1.1,
		DebtToIncomeRatio:      0.5,
		LoanAmount:             25000,
		LoanDurationMonths:     48,
		LatePayments12M:        3,
		MissedPayments12M:      1,
		ApplicationVelocity:    1,
		MetadataAnomalyScore:   0.1,
		DocumentMismatchFlag:   0,
		GeoLocationMismatch:    0,
	}
}

func testPredictor(t *testing.T) PredictFunc {
	t.Helper()
	adapter := classifier.NewAdapter(classifier.DefaultArtifact(), logger.NewTestLogger(t))
	return adapter.Predict
}

func TestExplainDeterminism(t *testing.T) {
	e := New(200, logger.NewTestLogger(t))
	predict := testPredictor(t)

	first := e.Explain(testInstance(), predict, 42)
	second := e.Explain(testInstance(), predict, 42)
	require.Equal(t, first, second, "same seed must yield identical attributions")

	other := e.Explain(testInstance(), predict, 43)
	assert.NotEqual(t, first, other, "different seeds should sample different neighborhoods")
}

func TestExplainDeterminismUnderConcurrency(t *testing.T) {
	e := New(200, logger.NewNoOpLogger())
	predict := testPredictor(t)
	reference := e.Explain(testInstance(), predict, 7)

	var wg sync.WaitGroup
	results := make([][]Attribution, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = e.Explain(testInstance(), predict, 7)
		}(i)
	}
	wg.Wait()

	for i, got := range results {
		assert.Equal(t, reference, got, "goroutine %d diverged", i)
	}
}

func TestExplainRankingContract(t *testing.T) {
	e := New(200, logger.NewTestLogger(t))
	attrs := e.Explain(testInstance(), testPredictor(t), 42)

	require.Len(t, attrs, len(features.Registry()))

	for i, a := range attrs {
		assert.Equal(t, i+1, a.Rank, "ranks must be contiguous from 1")
		if i > 0 {
			prev, cur := abs(attrs[i-1].Weight), abs(a.Weight)
			if prev == cur {
				assert.Less(t, attrs[i-1].FeatureID, a.FeatureID, "ties break by feature id")
			} else {
				assert.Greater(t, prev, cur, "ordered by descending absolute weight")
			}
		}
	}
}

func TestExplainDirections(t *testing.T) {
	// With the baseline logistic model the surrogate slopes must carry the
	// model's signs: credit score protects, debt ratio hurts.
	e := New(400, logger.NewTestLogger(t))
	attrs := e.Explain(testInstance(), testPredictor(t), 42)

	byID := make(map[string]Attribution, len(attrs))
	for _, a := range attrs {
		byID[a.FeatureID] = a
	}

	assert.Negative(t, byID["credit_score"].Weight)
	assert.Positive(t, byID["debt_to_income_ratio"].Weight)
	assert.Negative(t, byID["monthly_income"].Weight)

	assert.Equal(t, DirectionDecreasesRisk, byID["credit_score"].Direction)
	assert.Equal(t, DirectionIncreasesRisk, byID["debt_to_income_ratio"].Direction)
}

func TestDirectionMatchesWeightSign(t *testing.T) {
	e := New(200, logger.NewTestLogger(t))
	attrs := e.Explain(testInstance(), testPredictor(t), 42)

	for _, a := range attrs {
		if a.Weight > 0 {
			assert.Equal(t, DirectionIncreasesRisk, a.Direction, a.FeatureID)
		} else {
			assert.Equal(t, DirectionDecreasesRisk, a.Direction, a.FeatureID)
		}
	}
}

func TestExplainZeroVarianceFeature(t *testing.T) {
	e := New(100, logger.NewTestLogger(t))

	// A constant predictor gives every feature zero covariance with the
	// output, so all weights collapse to zero and ordering falls back to
	// feature id.
	constant := func(features.ApplicationFeatures) float64 { return 0.5 }
	attrs := e.Explain(testInstance(), constant, 1)

	for _, a := range attrs {
		assert.Zero(t, a.Weight)
	}
	assert.Equal(t, "age", attrs[0].FeatureID)
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
