package geo

// seedStaticLocations are the fixed installations a fresh game starts with.
func seedStaticLocations() []StaticLocation {
	return []StaticLocation{
		// Israeli military bases
		{ID: "base-israel-kirya", Name: "Kirya (IDF HQ)", Type: LocMilitaryBase, OwnerEntity: "Israel",
			Coordinates: Coordinates{Lat: 32.0700, Lon: 34.7900}, IsActive: true,
			Description: "IDF General Staff headquarters in Tel Aviv"},
		{ID: "base-israel-nevatim", Name: "Nevatim Airbase", Type: LocMilitaryBase, OwnerEntity: "Israel",
			Coordinates: Coordinates{Lat: 31.2083, Lon: 35.0125}, IsActive: true,
			Description: "Primary F-35 base in southern Israel"},
		{ID: "base-israel-ramat-david", Name: "Ramat David Airbase", Type: LocMilitaryBase, OwnerEntity: "Israel",
			Coordinates: Coordinates{Lat: 32.6653, Lon: 35.1794}, IsActive: true,
			Description: "Major IAF base in northern Israel"},
		{ID: "base-israel-palmachim", Name: "Palmachim Airbase", Type: LocMilitaryBase, OwnerEntity: "Israel",
			Coordinates: Coordinates{Lat: 31.8975, Lon: 34.6906}, IsActive: true,
			Description: "Space and missile testing facility"},

		// Nuclear facilities
		{ID: "nuke-israel-dimona", Name: "Dimona Nuclear Research Center", Type: LocNuclearPlant, OwnerEntity: "Israel",
			Coordinates: Coordinates{Lat: 31.0025, Lon: 35.1447}, IsActive: true,
			Description: "Nuclear facility (officially research)"},
		{ID: "nuke-iran-natanz", Name: "Natanz Enrichment Facility", Type: LocNuclearPlant, OwnerEntity: "Iran",
			Coordinates: Coordinates{Lat: 33.7244, Lon: 51.7275}, IsActive: true,
			Description: "Primary uranium enrichment facility"},
		{ID: "nuke-iran-fordow", Name: "Fordow Fuel Enrichment Plant", Type: LocNuclearPlant, OwnerEntity: "Iran",
			Coordinates: Coordinates{Lat: 34.8833, Lon: 50.9833}, IsActive: true,
			Description: "Underground enrichment facility near Qom"},

		// Border crossings
		{ID: "border-rafah", Name: "Rafah Border Crossing", Type: LocBorderCrossing, OwnerEntity: "Egypt",
			Coordinates: Coordinates{Lat: 31.2486, Lon: 34.2537}, IsActive: true,
			Description: "Gaza-Egypt border crossing"},
		{ID: "border-erez", Name: "Erez Crossing", Type: LocBorderCrossing, OwnerEntity: "Israel",
			Coordinates: Coordinates{Lat: 31.5503, Lon: 34.5574}, IsActive: true,
			Description: "Gaza-Israel pedestrian crossing"},
		{ID: "border-kerem-shalom", Name: "Kerem Shalom Crossing", Type: LocBorderCrossing, OwnerEntity: "Israel",
			Coordinates: Coordinates{Lat: 31.2275, Lon: 34.2656}, IsActive: true,
			Description: "Main goods crossing into Gaza"},

		// Hamas infrastructure, estimated positions
		{ID: "tunnel-jabalia-1", Name: "Jabalia Tunnel Complex", Type: LocTunnelEntrance, OwnerEntity: "Hamas",
			Coordinates: Coordinates{Lat: 31.5377, Lon: 34.4895, UncertaintyKm: 0.5}, IsActive: true,
			Description: "Major tunnel network hub in northern Gaza"},
		{ID: "tunnel-khan-younis-1", Name: "Khan Younis Tunnel Network", Type: LocTunnelEntrance, OwnerEntity: "Hamas",
			Coordinates: Coordinates{Lat: 31.3462, Lon: 34.3058, UncertaintyKm: 1.0}, IsActive: true,
			Description: "Tunnel complex in central Gaza"},
		{ID: "tunnel-rafah-1", Name: "Rafah Cross-Border Tunnels", Type: LocTunnelEntrance, OwnerEntity: "Hamas",
			Coordinates: Coordinates{Lat: 31.2834, Lon: 34.2600, UncertaintyKm: 0.8}, IsActive: true,
			Description: "Smuggling tunnels to Egypt"},

		// Government HQs
		{ID: "gov-israel-knesset", Name: "Knesset", Type: LocGovernmentHQ, OwnerEntity: "Israel",
			Coordinates: Coordinates{Lat: 31.7767, Lon: 35.2053}, IsActive: true,
			Description: "Israeli Parliament in Jerusalem"},
		{ID: "gov-iran-tehran", Name: "Iranian Government Complex", Type: LocGovernmentHQ, OwnerEntity: "Iran",
			Coordinates: Coordinates{Lat: 35.6997, Lon: 51.4039}, IsActive: true,
			Description: "Central government buildings in Tehran"},
	}
}

// seedTrackedEntities are the movable assets a fresh game starts with.
func seedTrackedEntities() []TrackedEntity {
	return []TrackedEntity{
		// Hostage groups
		{ID: "hostage-group-1", Name: "Hostage Group Alpha", Category: CatHostageGroup, OwnerEntity: "Hamas",
			CurrentLocation: Coordinates{Lat: 31.3462, Lon: 34.3058, UncertaintyKm: 2.0}, CurrentZone: "Khan Younis",
			DetectionDifficulty: 0.8,
			Metadata:            map[string]interface{}{"hostage_count": 45, "includes_foreign_nationals": true, "condition": "unknown"}},
		{ID: "hostage-group-2", Name: "Hostage Group Beta", Category: CatHostageGroup, OwnerEntity: "Hamas",
			CurrentLocation: Coordinates{Lat: 31.2834, Lon: 34.2525, UncertaintyKm: 3.0}, CurrentZone: "Rafah",
			DetectionDifficulty: 0.9,
			Metadata:            map[string]interface{}{"hostage_count": 80, "includes_soldiers": true, "condition": "unknown"}},
		{ID: "hostage-group-3", Name: "Hostage Group Gamma", Category: CatHostageGroup, OwnerEntity: "Hamas",
			CurrentLocation: Coordinates{Lat: 31.5017, Lon: 34.4668, UncertaintyKm: 2.5}, CurrentZone: "Gaza City",
			DetectionDifficulty: 0.85,
			Metadata:            map[string]interface{}{"hostage_count": 35, "includes_elderly": true, "condition": "critical"}},

		// High value targets
		{ID: "hvt-sinwar", Name: "Yahya Sinwar", Category: CatHighValueTarget, OwnerEntity: "Hamas",
			CurrentLocation: Coordinates{Lat: 31.3500, Lon: 34.3100, UncertaintyKm: 5.0}, CurrentZone: "Khan Younis",
			DetectionDifficulty: 0.95,
			Metadata:            map[string]interface{}{"role": "Hamas Leader in Gaza", "priority": "highest"}},
		{ID: "hvt-deif", Name: "Mohammed Deif", Category: CatHighValueTarget, OwnerEntity: "Hamas",
			CurrentLocation: Coordinates{Lat: 31.5017, Lon: 34.4668, UncertaintyKm: 10.0}, CurrentZone: "Gaza City",
			DetectionDifficulty: 0.98,
			Metadata:            map[string]interface{}{"role": "Qassam Brigades Commander", "priority": "highest"}},
		{ID: "hvt-haniyeh", Name: "Ismail Haniyeh", Category: CatHighValueTarget, OwnerEntity: "Hamas",
			CurrentLocation: Coordinates{Lat: 25.2867, Lon: 51.5333, UncertaintyKm: 1.0}, CurrentZone: "Qatar",
			DetectionDifficulty: 0.3, // public figure abroad, easy to track
			Metadata:            map[string]interface{}{"role": "Hamas Political Leader", "priority": "high", "location_type": "abroad"}},

		// Military units
		{ID: "unit-idf-36div", Name: "IDF 36th Division", Category: CatMilitaryUnit, OwnerEntity: "Israel",
			CurrentLocation: Coordinates{Lat: 31.5250, Lon: 34.5964, UncertaintyKm: 0.5}, CurrentZone: "Sderot",
			DetectionDifficulty: 0.1, // not hiding
			Metadata:            map[string]interface{}{"unit_type": "armored", "strength": "division", "status": "deployed"}},
		{ID: "unit-hamas-qassam-north", Name: "Qassam Northern Brigade", Category: CatMilitaryUnit, OwnerEntity: "Hamas",
			CurrentLocation: Coordinates{Lat: 31.5377, Lon: 34.4895, UncertaintyKm: 3.0}, CurrentZone: "Jabalia",
			DetectionDifficulty: 0.7,
			Metadata:            map[string]interface{}{"unit_type": "infantry", "strength": "brigade", "status": "active"}},
	}
}
