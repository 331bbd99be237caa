package kpi

// SeedDefaults loads the scenario's opening metrics for every entity
// the impact rules can touch. Values are the October 7th 06:29 state,
// before the first resolution cycle runs.
func SeedDefaults(s *Store) {
	s.SetEntity("Israel", map[string]interface{}{
		"entity_type": "state",
		"dynamic_metrics": map[string]interface{}{
			"morale_civilian":           55.0,
			"morale_military":           70.0,
			"international_standing":    60.0,
			"casualties_civilian":       0.0,
			"casualties_military":       0.0,
			"hostages_held_by_enemy":    240.0,
			"ammunition_precision_pct":  100.0,
			"ammunition_artillery_pct":  100.0,
			"reserves_mobilized":        0.0,
			"air_defense_readiness_pct": 95.0,
		},
		"static_profile": map[string]interface{}{
			"population_millions": 9.8,
			"gdp_billions_usd":    520.0,
		},
	})
	s.SetEntity("Hamas", map[string]interface{}{
		"entity_type": "militant_organization",
		"dynamic_metrics": map[string]interface{}{
			"fighters_remaining":            30000.0,
			"casualties":                    0.0,
			"tunnel_network_operational_km": 500.0,
			"rockets_remaining":             12000.0,
			"hostages_held":                 240.0,
			"popular_support_gaza":          45.0,
		},
	})
	s.SetEntity("Gaza", map[string]interface{}{
		"entity_type": "territory",
		"dynamic_metrics": map[string]interface{}{
			"casualties_civilian":      0.0,
			"displaced_population":     0.0,
			"electricity_hours_daily":  8.0,
			"hospital_capacity_pct":    85.0,
			"food_supply_days":         30.0,
		},
	})
	s.SetEntity("USA", map[string]interface{}{
		"entity_type": "state",
		"dynamic_metrics": map[string]interface{}{
			"support_for_israel":    85.0,
			"regional_force_level":  40.0,
			"domestic_approval":     42.0,
		},
	})
	s.SetEntity("Iran", map[string]interface{}{
		"entity_type": "state",
		"dynamic_metrics": map[string]interface{}{
			"proxy_activity_level":  35.0,
			"escalation_appetite":   30.0,
		},
	})
	s.SetEntity("Egypt", map[string]interface{}{
		"entity_type": "state",
		"dynamic_metrics": map[string]interface{}{
			"rafah_crossing_open_pct": 20.0,
			"mediation_credibility":   70.0,
		},
	})
}
