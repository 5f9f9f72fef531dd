package evaluateapplication

import (
	"context"
	"testing"
	"time"

	"decision-workers/internal/common/config"
	"decision-workers/internal/common/logger"
	"decision-workers/internal/engine/advisor"
	"decision-workers/internal/engine/classifier"
	"decision-workers/internal/engine/explain"
	"decision-workers/internal/engine/features"
	"decision-workers/internal/engine/fraud"
	"decision-workers/internal/engine/knowledge"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

func createTestConfig() *Config {
	return &Config{
		Timeout:  10 * time.Second,
		CacheTTL: time.Minute,
	}
}

func createTestAdvisor(t *testing.T) *advisor.Advisor {
	t.Helper()
	log := logger.NewTestLogger(t)
	engineCfg := config.EngineConfig{
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
	return advisor.New(
		classifier.NewAdapter(classifier.DefaultArtifact(), log),
		explain.New(engineCfg.SampleCount, log),
		knowledge.NewDefault(log),
		fraud.NewDetector(log),
		engineCfg,
		log,
	)
}

func createTestHandler(t *testing.T, redisClient *redis.Client) *Handler {
	t.Helper()
	return NewHandler(createTestConfig(), createTestAdvisor(t), redisClient, logger.NewTestLogger(t))
}

func createTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	return redis.NewClient(&redis.Options{Addr: mr.Addr()})
}

func createFeatures() features.ApplicationFeatures {
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
	}
}

// ==========================
// Core Functionality Tests
// ==========================

func TestHandler_Execute_Success(t *testing.T) {
	h := createTestHandler(t, createTestRedis(t))

	output, err := h.Execute(context.Background(), &Input{
		ApplicationID: "app-123",
		Features:      createFeatures(),
		Seed:          42,
	})
	require.NoError(t, err)
	require.NotNil(t, output.Decision)

	assert.Equal(t, "app-123", output.Decision.ApplicationID)
	assert.Equal(t, advisor.BandManualReview, output.Decision.Band)
	assert.False(t, output.FromCache)
	assert.NotNil(t, output.Decision.Recommendation)
}

func TestHandler_Execute_CacheRoundTrip(t *testing.T) {
	h := createTestHandler(t, createTestRedis(t))
	input := &Input{ApplicationID: "app-123", Features: createFeatures(), Seed: 42}

	first, err := h.Execute(context.Background(), input)
	require.NoError(t, err)
	assert.False(t, first.FromCache)

	second, err := h.Execute(context.Background(), input)
	require.NoError(t, err)
	assert.True(t, second.FromCache)
	assert.Equal(t, first.Decision.PD, second.Decision.PD)
	assert.Equal(t, first.Decision.Band, second.Decision.Band)
}

func TestHandler_Execute_SeedDerivedFromApplicationID(t *testing.T) {
	h := createTestHandler(t, nil)

	a, err := h.Execute(context.Background(), &Input{ApplicationID: "app-xyz", Features: createFeatures()})
	require.NoError(t, err)
	b, err := h.Execute(context.Background(), &Input{ApplicationID: "app-xyz", Features: createFeatures()})
	require.NoError(t, err)

	assert.Equal(t, a.Decision.Seed, b.Decision.Seed)
	assert.Equal(t, a.Decision.Attributions, b.Decision.Attributions)
	assert.NotZero(t, a.Decision.Seed)
}

func TestHandler_Execute_WithoutRedis(t *testing.T) {
	h := createTestHandler(t, nil)

	output, err := h.Execute(context.Background(), &Input{
		ApplicationID: "app-123",
		Features:      createFeatures(),
		Seed:          42,
	})
	require.NoError(t, err)
	assert.False(t, output.FromCache)
}

// ==========================
// Error Handling Tests
// ==========================

func TestHandler_Execute_ValidationFailure(t *testing.T) {
	h := createTestHandler(t, createTestRedis(t))

	bad := createFeatures()
	bad.CreditScore = 900

	_, err := h.Execute(context.Background(), &Input{
		ApplicationID: "app-123",
		Features:      bad,
		Seed:          42,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrValidationFailed)
	assert.Contains(t, err.Error(), "credit_score")
}

func TestHandler_Execute_MissingFieldsFailValidation(t *testing.T) {
	h := createTestHandler(t, createTestRedis(t))

	_, err := h.Execute(context.Background(), &Input{
		ApplicationID: "app-123",
		Features:      features.Empty(),
		Seed:          42,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrValidationFailed)
}

func TestHandler_Execute_RedisDownDegradesToDirectEvaluation(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	h := createTestHandler(t, client)
	mr.Close() // cache unreachable, evaluation must still work

	output, err := h.Execute(context.Background(), &Input{
		ApplicationID: "app-123",
		Features:      createFeatures(),
		Seed:          42,
	})
	require.NoError(t, err)
	assert.False(t, output.FromCache)
	assert.NotNil(t, output.Decision)
}
