package geo

import "strings"

// zoneRegistry maps named zones to coordinates. Zone names are the
// vocabulary the decision oracle is allowed to reference.
var zoneRegistry = map[string]Coordinates{
	// Gaza Strip
	"Gaza City":     {Lat: 31.5017, Lon: 34.4668},
	"Khan Younis":   {Lat: 31.3462, Lon: 34.3058},
	"Rafah":         {Lat: 31.2834, Lon: 34.2525},
	"Jabalia":       {Lat: 31.5377, Lon: 34.4895},
	"Deir al-Balah": {Lat: 31.4181, Lon: 34.3510},
	"Beit Hanoun":   {Lat: 31.5453, Lon: 34.5335},
	"Shati Camp":    {Lat: 31.5290, Lon: 34.4430},
	"Nuseirat":      {Lat: 31.4500, Lon: 34.3900},

	// Israel, major cities
	"Tel Aviv":   {Lat: 32.0853, Lon: 34.7818},
	"Jerusalem":  {Lat: 31.7683, Lon: 35.2137},
	"Haifa":      {Lat: 32.7940, Lon: 34.9896},
	"Beer Sheva": {Lat: 31.2529, Lon: 34.7915},
	"Eilat":      {Lat: 29.5577, Lon: 34.9519},

	// Israel, southern border towns
	"Sderot":   {Lat: 31.5250, Lon: 34.5964},
	"Ashkelon": {Lat: 31.6688, Lon: 34.5743},
	"Ashdod":   {Lat: 31.8044, Lon: 34.6553},
	"Netivot":  {Lat: 31.4167, Lon: 34.5833},
	"Ofakim":   {Lat: 31.3167, Lon: 34.6167},

	// Israel, strategic sites
	"Dimona":  {Lat: 31.0700, Lon: 35.0300},
	"Nevatim": {Lat: 31.2083, Lon: 35.0125},

	// West Bank
	"Ramallah":  {Lat: 31.9038, Lon: 35.2034},
	"Hebron":    {Lat: 31.5326, Lon: 35.0998},
	"Nablus":    {Lat: 32.2211, Lon: 35.2544},
	"Jenin":     {Lat: 32.4605, Lon: 35.2949},
	"Bethlehem": {Lat: 31.7054, Lon: 35.2024},

	// Lebanon
	"Beirut":        {Lat: 33.8938, Lon: 35.5018},
	"South Lebanon": {Lat: 33.2721, Lon: 35.2033},
	"Tyre":          {Lat: 33.2705, Lon: 35.2038},

	// Egypt
	"Cairo":    {Lat: 30.0444, Lon: 31.2357},
	"Sinai":    {Lat: 29.5000, Lon: 34.0000},
	"El-Arish": {Lat: 31.1318, Lon: 33.8019},

	// Iran
	"Tehran":  {Lat: 35.6892, Lon: 51.3890},
	"Natanz":  {Lat: 33.7244, Lon: 51.7275},
	"Isfahan": {Lat: 32.6546, Lon: 51.6680},
	"Qom":     {Lat: 34.6401, Lon: 50.8764},

	// Syria
	"Damascus": {Lat: 33.5138, Lon: 36.2765},

	// Jordan
	"Amman": {Lat: 31.9454, Lon: 35.9284},

	// Qatar
	"Qatar": {Lat: 25.2867, Lon: 51.5333},
	"Doha":  {Lat: 25.2867, Lon: 51.5333},

	// International waters
	"Eastern Mediterranean": {Lat: 33.5000, Lon: 34.0000},
	"Red Sea":               {Lat: 27.0000, Lon: 35.0000},
}

// ZoneCoordinates resolves a zone name to coordinates. Exact match wins;
// otherwise the lookup is case-insensitive and tolerates partial names.
func ZoneCoordinates(zoneName string) (Coordinates, bool) {
	if coords, ok := zoneRegistry[zoneName]; ok {
		return coords, true
	}
	lower := strings.ToLower(zoneName)
	for name, coords := range zoneRegistry {
		nameLower := strings.ToLower(name)
		if lower == nameLower {
			return coords, true
		}
	}
	for name, coords := range zoneRegistry {
		nameLower := strings.ToLower(name)
		if strings.Contains(nameLower, lower) || strings.Contains(lower, nameLower) {
			return coords, true
		}
	}
	return Coordinates{}, false
}

// ValidZone reports whether a zone name resolves.
func ValidZone(zoneName string) bool {
	if zoneName == "" {
		return false
	}
	_, ok := ZoneCoordinates(zoneName)
	return ok
}

// AllZones lists the valid zone vocabulary.
func AllZones() []string {
	out := make([]string, 0, len(zoneRegistry))
	for name := range zoneRegistry {
		out = append(out, name)
	}
	return out
}
