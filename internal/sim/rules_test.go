package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ziv044/PM1/internal/kpi"
)

func testKPIStore(t *testing.T) *kpi.Store {
	t.Helper()
	store := kpi.NewStore()
	require.NoError(t, store.LoadEntity("Hamas", []byte(`{
		"dynamic_metrics": {"fighters_remaining": 30000, "casualties": 0, "tunnel_network_operational_km": 500}
	}`)))
	require.NoError(t, store.LoadEntity("Israel", []byte(`{
		"dynamic_metrics": {"ammunition_precision_pct": 100, "international_standing": 60, "casualties_military": 0, "morale_military": 70, "morale_civilian": 55}
	}`)))
	return store
}

func TestFindMatchingRuleFirstMatchWins(t *testing.T) {
	// "airstrike" precedes "tunnel" in the military table; a summary
	// containing both must resolve to the airstrike rule.
	rule := FindMatchingRule("military", "IDF launches airstrike on Gaza tunnel network")
	assert.Equal(t, 0.85, rule.SuccessRate)
	require.NotEmpty(t, rule.OnSuccess)
	assert.Equal(t, "Hamas.dynamic_metrics.fighters_remaining", rule.OnSuccess[0].Path)
}

func TestFindMatchingRuleOrPatterns(t *testing.T) {
	rule := FindMatchingRule("military", "Forces secure the southern border fence")
	assert.Equal(t, 0.90, rule.SuccessRate)

	rule = FindMatchingRule("diplomatic", "Issues formal statement condemning the attack")
	assert.Equal(t, 0.95, rule.SuccessRate)
}

func TestFindMatchingRuleFallbacks(t *testing.T) {
	// internal has an explicit default rule.
	rule := FindMatchingRule("internal", "Convenes a situational assessment")
	assert.Equal(t, 0.95, rule.SuccessRate)

	// No match anywhere falls back to the generic 0.80 rule.
	rule = FindMatchingRule("military", "An unclassifiable maneuver")
	assert.Equal(t, 0.80, rule.SuccessRate)
	assert.Empty(t, rule.OnSuccess)
}

func TestApplySuccessfulAirstrikeMovesKPIs(t *testing.T) {
	store := testKPIStore(t)
	// Seed 1 yields a first Float64 below 0.85, so the strike succeeds.
	engine := NewRuleEngine(1)

	out := engine.Apply("military", "IDF launches airstrike on Gaza tunnel network", store)
	require.True(t, out.Success)
	assert.True(t, out.RuleMatched)
	require.Len(t, out.Changes, 3)

	fighters, err := store.MetricValue("Hamas", "dynamic_metrics.fighters_remaining")
	require.NoError(t, err)
	delta := fighters.(float64) - 30000
	assert.GreaterOrEqual(t, delta, -30.0)
	assert.LessOrEqual(t, delta, -10.0)

	casualties, err := store.MetricValue("Hamas", "dynamic_metrics.casualties")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, casualties.(float64), 10.0)
	assert.LessOrEqual(t, casualties.(float64), 30.0)
}

func TestApplySkipsUnknownMetricPaths(t *testing.T) {
	store := kpi.NewStore()
	require.NoError(t, store.LoadEntity("Hamas", []byte(`{"dynamic_metrics": {"casualties": 0}}`)))
	engine := NewRuleEngine(1)

	// Israel is absent and most Hamas metrics are missing; the engine
	// must apply what it can and skip the rest.
	out := engine.Apply("military", "IDF launches airstrike on Jabalia", store)
	require.True(t, out.Success)
	require.Len(t, out.Changes, 1)
	assert.Equal(t, "dynamic_metrics.casualties", out.Changes[0].Metric)
}

func TestRollToleratesReversedBounds(t *testing.T) {
	engine := NewRuleEngine(7)
	for i := 0; i < 50; i++ {
		v := engine.roll(5, -5)
		assert.GreaterOrEqual(t, v, -5)
		assert.LessOrEqual(t, v, 5)
	}
}

func TestClassifyPending(t *testing.T) {
	pending, kind, minutes := ClassifyPending("intelligence", "Begin surveillance of the Rafah corridor")
	assert.True(t, pending)
	assert.Equal(t, "intelligence", kind)
	assert.Equal(t, 120, minutes)

	pending, _, minutes = ClassifyPending("diplomatic", "Propose indirect talks via Cairo")
	assert.True(t, pending)
	assert.Equal(t, 60, minutes)

	pending, _, _ = ClassifyPending("military", "Airstrike on tunnel complex")
	assert.False(t, pending, "strikes resolve immediately")

	pending, _, _ = ClassifyPending("economic", "Negotiate a loan")
	assert.False(t, pending, "economic actions have no pending class")
}

func TestCheckApprovalRequired(t *testing.T) {
	match := CheckApprovalRequired("military", "Orders ground invasion of northern Gaza")
	require.NotNil(t, match)
	assert.Equal(t, "military_major", match.RequestType)
	assert.Equal(t, "immediate", match.Urgency)

	match = CheckApprovalRequired("diplomatic", "Proposes a ceasefire framework via Egypt")
	require.NotNil(t, match)
	assert.Equal(t, "diplomatic", match.RequestType)
	assert.Equal(t, "high", match.Urgency)

	match = CheckApprovalRequired("economic", "Requests 2 billion emergency budget")
	require.NotNil(t, match)
	assert.Equal(t, "budget", match.RequestType)

	// Action type gates the pattern: a ceasefire keyword inside a
	// military action is not the diplomatic pattern.
	assert.Nil(t, CheckApprovalRequired("internal", "Discusses ceasefire options privately"))

	assert.Nil(t, CheckApprovalRequired("military", "Routine patrol along the fence"))
}

func TestApprovalAcronymsMatchWholeWordsOnly(t *testing.T) {
	match := CheckApprovalRequired("diplomatic", "Requests UN observers at the crossing")
	require.NotNil(t, match)
	assert.Equal(t, "international", match.RequestType)

	assert.Nil(t, CheckApprovalRequired("diplomatic", "Announces an unprecedented outreach effort"),
		"the un acronym must not fire inside longer words")
}
