package sim

import (
	"fmt"
	"time"

	"github.com/ziv044/PM1/internal/geo"
	"github.com/ziv044/PM1/internal/kpi"
)

// Searcher capability per action type: intelligence assets find things,
// strike packages mostly stumble on them.
const (
	clashCapabilityIntelligence = 0.7
	clashCapabilityMilitary     = 0.5
)

// Success modifiers for acting into a contested zone.
const (
	hostagePresenceModifier      = 0.90
	hostileUnitPresenceModifier  = 0.85
	minLocationUncertaintyKm     = 0.3
	uncertaintyShrinkOnDetection = 0.6
)

// ClashEffect records what one tracked entity contributed to a clash.
type ClashEffect struct {
	EntityID string       `json:"entity_id"`
	Category string       `json:"category"`
	Detected bool         `json:"detected"`
	Changes  []kpi.Change `json:"changes,omitempty"`
}

// ClashResult is the spatial verdict for one event: a success-rate
// modifier plus the side effects of detections in the target zone.
type ClashResult struct {
	Modifier float64
	Effects  []ClashEffect
}

// clashRelevant reports whether an action type interacts with the map.
func clashRelevant(actionType, targetZone string) bool {
	if targetZone == "" {
		return false
	}
	return actionType == "military" || actionType == "intelligence"
}

// ClashSuccessModifier is the read-only half of a clash: the presence of
// hostile entities in the target zone makes the action harder. No state
// is mutated and no dice are rolled, so the resolver can compute this
// before committing to any outcome.
func ClashSuccessModifier(mapState *geo.MapState, actorEntity, actionType, targetZone string) float64 {
	modifier := 1.0
	if !clashRelevant(actionType, targetZone) || actionType != "military" {
		return modifier
	}
	for _, entity := range mapState.SpatialClash(targetZone, nil) {
		if entity.OwnerEntity == actorEntity {
			continue
		}
		switch entity.Category {
		case geo.CatHostageGroup:
			modifier *= hostagePresenceModifier
		case geo.CatMilitaryUnit:
			modifier *= hostileUnitPresenceModifier
		}
	}
	return modifier
}

// ApplyClashEffects is the mutating half: detection draws against every
// hostile entity in the zone, location refinement on detection, and the
// category-specific KPI fallout.
func (re *RuleEngine) ApplyClashEffects(mapState *geo.MapState, store *kpi.Store, actorEntity, actionType, targetZone, summary string, gameTime time.Time) []ClashEffect {
	if !clashRelevant(actionType, targetZone) {
		return nil
	}

	capability := clashCapabilityMilitary
	if actionType == "intelligence" {
		capability = clashCapabilityIntelligence
	}

	var effects []ClashEffect
	for _, entity := range mapState.SpatialClash(targetZone, nil) {
		if entity.OwnerEntity == actorEntity {
			continue
		}

		effect := ClashEffect{EntityID: entity.ID, Category: entity.Category}

		chance := geo.DetectionChance(entity, capability)
		re.mu.Lock()
		detected := re.rng.Float64() < chance
		re.mu.Unlock()
		if !detected {
			effects = append(effects, effect)
			continue
		}
		effect.Detected = true

		// Detection is intel gain: the fix on the target tightens.
		newUncertainty := entity.CurrentLocation.UncertaintyKm * uncertaintyShrinkOnDetection
		if newUncertainty < minLocationUncertaintyKm {
			newUncertainty = minLocationUncertaintyKm
		}
		if err := mapState.RefineLocation(entity.ID, newUncertainty, gameTime); err == nil {
			effect.Changes = append(effect.Changes, kpi.Change{
				Entity: entity.OwnerEntity,
				Metric: "location_uncertainty_km:" + entity.ID,
				Reason: fmt.Sprintf("detected during %s", summary),
			})
		}

		effect.Changes = append(effect.Changes, re.clashKPIEffects(store, entity, actorEntity, actionType, summary)...)
		effects = append(effects, effect)
	}
	return effects
}

// ResolveClash combines both halves for callers that do not need the
// gate-then-mutate split.
func (re *RuleEngine) ResolveClash(mapState *geo.MapState, store *kpi.Store, actorEntity, actionType, targetZone, summary string, gameTime time.Time) ClashResult {
	return ClashResult{
		Modifier: ClashSuccessModifier(mapState, actorEntity, actionType, targetZone),
		Effects:  re.ApplyClashEffects(mapState, store, actorEntity, actionType, targetZone, summary, gameTime),
	}
}

// clashKPIEffects applies the category-specific KPI deltas of a
// detection.
func (re *RuleEngine) clashKPIEffects(store *kpi.Store, entity geo.TrackedEntity, actorEntity, actionType, summary string) []kpi.Change {
	var changes []kpi.Change

	apply := func(kpiEntity, metric string, min, max int, reason string) {
		change, err := store.ApplyDelta(kpiEntity, metric, float64(re.roll(min, max)), reason)
		if err != nil {
			return
		}
		changes = append(changes, change)
	}

	switch entity.Category {
	case geo.CatHostageGroup:
		if actionType == "military" {
			// Strikes near held hostages cost the attacker abroad.
			apply(actorEntity, "dynamic_metrics.international_standing", -3, -1,
				fmt.Sprintf("hostages endangered by %s", summary))
		}
	case geo.CatMilitaryUnit:
		if actionType == "military" {
			apply(entity.OwnerEntity, "dynamic_metrics.casualties", 5, 15,
				fmt.Sprintf("unit caught in %s", summary))
		}
	}
	return changes
}
