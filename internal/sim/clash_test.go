package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ziv044/PM1/internal/geo"
	"github.com/ziv044/PM1/internal/platform/logger"
)

func TestResolveClashIgnoresEmptyZoneAndSoftActions(t *testing.T) {
	engine := NewRuleEngine(1)
	store := testKPIStore(t)
	mapState := geo.NewMapState(logger.NewLogger())

	result := engine.ResolveClash(mapState, store, "Israel", "military", "", "strike", startTime())
	assert.Equal(t, 1.0, result.Modifier)
	assert.Empty(t, result.Effects)

	result = engine.ResolveClash(mapState, store, "Israel", "diplomatic", "Khan Younis", "talks", startTime())
	assert.Equal(t, 1.0, result.Modifier)
	assert.Empty(t, result.Effects)
}

func TestResolveClashContestedZoneLowersSuccess(t *testing.T) {
	engine := NewRuleEngine(1)
	store := testKPIStore(t)
	mapState := geo.NewMapState(logger.NewLogger())

	// Khan Younis seeds a hostage group and an HVT; only the hostage
	// presence modifies a military action.
	result := engine.ResolveClash(mapState, store, "Israel", "military", "Khan Younis", "airstrike on compound", startTime())
	assert.InDelta(t, hostagePresenceModifier, result.Modifier, 1e-9)
	assert.Len(t, result.Effects, 2)
}

func TestResolveClashSkipsOwnAssets(t *testing.T) {
	engine := NewRuleEngine(1)
	store := testKPIStore(t)
	mapState := geo.NewMapState(logger.NewLogger())

	// Sderot holds only the Israeli 36th division; Israel acting there
	// clashes with nothing.
	result := engine.ResolveClash(mapState, store, "Israel", "military", "Sderot", "perimeter sweep", startTime())
	assert.Equal(t, 1.0, result.Modifier)
	assert.Empty(t, result.Effects)

	// Hamas acting into Sderot does clash with the hostile unit.
	result = engine.ResolveClash(mapState, store, "Hamas", "military", "Sderot", "raid on staging area", startTime())
	assert.InDelta(t, hostileUnitPresenceModifier, result.Modifier, 1e-9)
	require.Len(t, result.Effects, 1)
	assert.Equal(t, geo.CatMilitaryUnit, result.Effects[0].Category)
}

func TestResolveClashDetectionShrinksUncertainty(t *testing.T) {
	store := testKPIStore(t)
	mapState := geo.NewMapState(logger.NewLogger())

	before, err := mapState.TrackedEntity("hostage-group-1")
	require.NoError(t, err)

	// Run intelligence sweeps until a detection lands; the 36 percent
	// shrink is deterministic once it does.
	detected := false
	engine := NewRuleEngine(42)
	for i := 0; i < 40 && !detected; i++ {
		result := engine.ResolveClash(mapState, store, "Israel", "intelligence", "Khan Younis", "surveillance of the district", startTime())
		for _, e := range result.Effects {
			if e.EntityID == "hostage-group-1" && e.Detected {
				detected = true
			}
		}
	}
	require.True(t, detected, "no detection in 40 sweeps despite 0.8 difficulty and 0.7 capability")

	after, err := mapState.TrackedEntity("hostage-group-1")
	require.NoError(t, err)
	assert.Less(t, after.CurrentLocation.UncertaintyKm, before.CurrentLocation.UncertaintyKm)
}

func TestResolveClashHostagePenaltyHitsActorStanding(t *testing.T) {
	store := testKPIStore(t)
	mapState := geo.NewMapState(logger.NewLogger())
	engine := NewRuleEngine(3)

	baseline, err := store.MetricValue("Israel", "dynamic_metrics.international_standing")
	require.NoError(t, err)

	for i := 0; i < 40; i++ {
		engine.ResolveClash(mapState, store, "Israel", "military", "Khan Younis", "airstrike on compound", startTime())
	}

	after, err := store.MetricValue("Israel", "dynamic_metrics.international_standing")
	require.NoError(t, err)
	assert.Less(t, after.(float64), baseline.(float64),
		"repeated strikes near hostages must eventually cost standing")
}
