package knowledge

import (
	"os"
	"path/filepath"
	"testing"

	"decision-workers/internal/common/logger"
	"decision-workers/internal/engine/features"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefault(t *testing.T) {
	b := NewDefault(logger.NewTestLogger(t))

	t.Run("core credit features have rules", func(t *testing.T) {
		for _, id := range []string{
			"credit_score",
			"monthly_income",
			"debt_to_income_ratio",
			"savings_balance",
			"late_payments_12m",
		} {
			rule, ok := b.Lookup(id)
			require.True(t, ok, "expected rule for %s", id)
			assert.Equal(t, id, rule.FeatureID)
			assert.NotEmpty(t, rule.ExplanationTemplate)
			assert.NotEmpty(t, rule.Questions)
		}
	})

	t.Run("miss returns false without error", func(t *testing.T) {
		_, ok := b.Lookup("metadata_anomaly_score")
		assert.False(t, ok)
	})

	t.Run("every rule maps to a registry field", func(t *testing.T) {
		for _, r := range defaultRules {
			_, ok := features.Spec(r.FeatureID)
			assert.True(t, ok, "rule %s names an unknown feature", r.FeatureID)
		}
	})

	t.Run("question ids are unique per rule", func(t *testing.T) {
		for _, r := range defaultRules {
			seen := map[string]bool{}
			for _, q := range r.Questions {
				require.NotEmpty(t, q.ID)
				assert.False(t, seen[q.ID], "duplicate question id %s in %s", q.ID, r.FeatureID)
				seen[q.ID] = true
			}
		}
	})

	t.Run("action deltas are positive improvements", func(t *testing.T) {
		for _, r := range defaultRules {
			for _, a := range r.Actions {
				assert.Positive(t, a.EstimatedPDDelta, "rule %s", r.FeatureID)
				assert.Contains(t,
					[]string{HorizonImmediate, HorizonShortTerm, HorizonLongTerm},
					a.Horizon, "rule %s", r.FeatureID)
			}
		}
	})

	t.Run("loaded actions carry a direction", func(t *testing.T) {
		for _, id := range []string{"credit_score", "monthly_income", "debt_to_income_ratio"} {
			rule, ok := b.Lookup(id)
			require.True(t, ok)
			for _, a := range rule.Actions {
				assert.Equal(t, DirectionDecreasesRisk, a.Direction, "rule %s", id)
			}
		}
	})

	t.Run("document triggers use known conditions", func(t *testing.T) {
		for _, r := range defaultRules {
			for _, d := range r.Documents {
				assert.Contains(t, []string{WhenAlways, WhenAbove, WhenBelow}, d.When)
				assert.NotEmpty(t, d.Type)
			}
		}
	})
}

func TestLoadFile(t *testing.T) {
	writeKB := func(t *testing.T, content string) string {
		t.Helper()
		path := filepath.Join(t.TempDir(), "kb.json")
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
		return path
	}

	t.Run("override replaces default rule", func(t *testing.T) {
		path := writeKB(t, `[
			{
				"feature_id": "credit_score",
				"explanation_template": "override template {value}",
				"questions": [{"id": "q1", "text": "custom question"}]
			}
		]`)

		b, err := LoadFile(path, logger.NewTestLogger(t))
		require.NoError(t, err)

		rule, ok := b.Lookup("credit_score")
		require.True(t, ok)
		assert.Equal(t, "override template {value}", rule.ExplanationTemplate)
		require.Len(t, rule.Questions, 1)

		// Untouched defaults survive.
		_, ok = b.Lookup("monthly_income")
		assert.True(t, ok)
	})

	t.Run("new feature rule is added", func(t *testing.T) {
		path := writeKB(t, `[
			{"feature_id": "metadata_anomaly_score", "explanation_template": "anomaly {value}"}
		]`)

		b, err := LoadFile(path, logger.NewTestLogger(t))
		require.NoError(t, err)

		_, ok := b.Lookup("metadata_anomaly_score")
		assert.True(t, ok)
		assert.Equal(t, NewDefault(logger.NewNoOpLogger()).Size()+1, b.Size())
	})

	t.Run("override actions default their direction", func(t *testing.T) {
		path := writeKB(t, `[
			{
				"feature_id": "credit_score",
				"explanation_template": "override {value}",
				"actions": [{"action": "settle dues", "horizon": "immediate", "estimated_pd_delta": 0.01}]
			}
		]`)

		b, err := LoadFile(path, logger.NewTestLogger(t))
		require.NoError(t, err)

		rule, ok := b.Lookup("credit_score")
		require.True(t, ok)
		require.Len(t, rule.Actions, 1)
		assert.Equal(t, DirectionDecreasesRisk, rule.Actions[0].Direction)
	})

	t.Run("missing feature_id rejected", func(t *testing.T) {
		path := writeKB(t, `[{"explanation_template": "orphan"}]`)
		_, err := LoadFile(path, logger.NewTestLogger(t))
		require.Error(t, err)
	})

	t.Run("malformed json rejected", func(t *testing.T) {
		path := writeKB(t, `{not json`)
		_, err := LoadFile(path, logger.NewTestLogger(t))
		require.Error(t, err)
	})

	t.Run("missing file rejected", func(t *testing.T) {
		_, err := LoadFile(filepath.Join(t.TempDir(), "absent.json"), logger.NewTestLogger(t))
		require.Error(t, err)
	})
}
