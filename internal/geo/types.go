// Package geo models the spatial layer of the simulation: named zones,
// fixed installations, movable tracked entities and short-lived geo events
// used for map animation and spatial clash detection.
package geo

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Location types of static installations.
const (
	LocMilitaryBase   = "military_base"
	LocNuclearPlant   = "nuclear_plant"
	LocBorderCrossing = "border_crossing"
	LocGovernmentHQ   = "government_hq"
	LocTunnelEntrance = "tunnel_entrance"
)

// Categories of tracked entities.
const (
	CatHostageGroup    = "hostage_group"
	CatHighValueTarget = "high_value_target"
	CatLeader          = "leader"
	CatMilitaryUnit    = "military_unit"
	CatIntelAsset      = "intelligence_asset"
)

// Geo event animation types.
const (
	GeoMissileLaunch  = "missile_launch"
	GeoAirStrike      = "air_strike"
	GeoForceMovement  = "force_movement"
	GeoBattleZone     = "battle_zone"
	GeoIntelOperation = "intel_operation"
	GeoRocketBarrage  = "rocket_barrage"
)

// Geo event statuses.
const (
	GeoActive      = "active"
	GeoCompleted   = "completed"
	GeoIntercepted = "intercepted"
	GeoFailed      = "failed"
)

// Coordinates is a point with an optional uncertainty radius.
// Zero uncertainty means the position is exact.
type Coordinates struct {
	Lat           float64 `json:"lat"`
	Lon           float64 `json:"lon"`
	UncertaintyKm float64 `json:"uncertainty_km"`
}

// StaticLocation is a fixed installation on the map.
type StaticLocation struct {
	ID          string      `json:"location_id"`
	Name        string      `json:"name"`
	Type        string      `json:"location_type"`
	OwnerEntity string      `json:"owner_entity"`
	Coordinates Coordinates `json:"coordinates"`
	IsActive    bool        `json:"is_active"`
	Description string      `json:"description,omitempty"`
}

// TrackedEntity is a movable asset whose position is tracked.
// An entity is never simultaneously arrived and in transit: movement
// completion is the only transition out of is_moving.
type TrackedEntity struct {
	ID                  string                 `json:"entity_id"`
	Name                string                 `json:"name"`
	Category            string                 `json:"category"`
	OwnerEntity         string                 `json:"owner_entity"`
	CurrentLocation     Coordinates            `json:"current_location"`
	CurrentZone         string                 `json:"current_zone"`
	IsMoving            bool                   `json:"is_moving"`
	Destination         *Coordinates           `json:"destination,omitempty"`
	DestinationZone     string                 `json:"destination_zone,omitempty"`
	MovementStarted     *time.Time             `json:"movement_started,omitempty"`
	MovementETA         *time.Time             `json:"movement_eta,omitempty"`
	DetectionDifficulty float64                `json:"detection_difficulty"`
	LastKnownUpdate     *time.Time             `json:"last_known_update,omitempty"`
	Metadata            map[string]interface{} `json:"metadata,omitempty"`
}

// GeoEvent is an ephemeral animation record linked to a simulation event.
type GeoEvent struct {
	ID               string       `json:"geo_event_id"`
	EventType        string       `json:"event_type"`
	SourceEventID    string       `json:"source_event_id"`
	Timestamp        time.Time    `json:"timestamp"`
	Origin           *Coordinates `json:"origin,omitempty"`
	OriginZone       string       `json:"origin_zone,omitempty"`
	Destination      *Coordinates `json:"destination,omitempty"`
	DestinationZone  string       `json:"destination_zone,omitempty"`
	Center           *Coordinates `json:"center,omitempty"`
	RadiusKm         float64      `json:"radius_km"`
	DurationSeconds  int          `json:"duration_seconds"`
	Status           string       `json:"status"`
	Description      string       `json:"description,omitempty"`
	ActorEntity      string       `json:"actor_entity,omitempty"`
	AffectedEntities []string     `json:"affected_entities"`
}

// Snapshot is the serialized map state.
type Snapshot struct {
	LastUpdated       time.Time        `json:"last_updated"`
	StaticLocations   []StaticLocation `json:"static_locations"`
	TrackedEntities   []TrackedEntity  `json:"tracked_entities"`
	ActiveGeoEvents   []GeoEvent       `json:"active_geo_events"`
	ArchivedGeoEvents []GeoEvent       `json:"archived_geo_events"`
}

// NewGeoEventID mints a geo event id.
func NewGeoEventID() string {
	return "geo_" + strings.ReplaceAll(uuid.New().String(), "-", "")[:8]
}

func (e *TrackedEntity) normalize() {
	if e.Metadata == nil {
		e.Metadata = map[string]interface{}{}
	}
}

func (g *GeoEvent) normalize() {
	if g.Status == "" {
		g.Status = GeoActive
	}
	if g.DurationSeconds == 0 {
		g.DurationSeconds = 10
	}
	if g.AffectedEntities == nil {
		g.AffectedEntities = []string{}
	}
}
