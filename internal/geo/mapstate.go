package geo

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ziv044/PM1/internal/platform/logger"
)

// Geo event archival bounds.
const (
	geoEventMaxAgeSeconds = 60
	geoArchiveKeep        = 200
)

var (
	// ErrUnknownZone is returned for zone names outside the registry.
	ErrUnknownZone = errors.New("geo: unknown zone")
	// ErrUnknownEntity is returned for tracked entity ids that do not exist.
	ErrUnknownEntity = errors.New("geo: unknown tracked entity")
)

// MapState is the thread-safe owner of the spatial layer.
type MapState struct {
	mu sync.Mutex

	lastUpdated     time.Time
	staticLocations []StaticLocation
	trackedEntities []TrackedEntity
	activeGeoEvents []GeoEvent
	archivedEvents  []GeoEvent

	logger *logger.Logger
}

// NewMapState creates a map seeded with the scenario's initial layout.
func NewMapState(log *logger.Logger) *MapState {
	m := &MapState{
		staticLocations: seedStaticLocations(),
		trackedEntities: seedTrackedEntities(),
		logger:          log,
	}
	for i := range m.trackedEntities {
		m.trackedEntities[i].normalize()
	}
	return m
}

// === Static locations ===

// StaticLocations returns locations filtered by owner and/or type.
// Empty filter values match everything.
func (m *MapState) StaticLocations(ownerEntity, locationType string) []StaticLocation {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []StaticLocation
	for _, loc := range m.staticLocations {
		if ownerEntity != "" && loc.OwnerEntity != ownerEntity {
			continue
		}
		if locationType != "" && loc.Type != locationType {
			continue
		}
		out = append(out, loc)
	}
	return out
}

// === Tracked entities ===

// TrackedEntity returns a copy of one tracked entity.
func (m *MapState) TrackedEntity(id string) (TrackedEntity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.trackedEntities {
		if m.trackedEntities[i].ID == id {
			return m.trackedEntities[i], nil
		}
	}
	return TrackedEntity{}, ErrUnknownEntity
}

// EntitiesInZone returns tracked entities currently in a zone.
func (m *MapState) EntitiesInZone(zone string) []TrackedEntity {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []TrackedEntity
	for i := range m.trackedEntities {
		if strings.EqualFold(m.trackedEntities[i].CurrentZone, zone) {
			out = append(out, m.trackedEntities[i])
		}
	}
	return out
}

// EntitiesOwnedBy returns a faction's tracked entities, optionally
// filtered by category.
func (m *MapState) EntitiesOwnedBy(ownerEntity, category string) []TrackedEntity {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []TrackedEntity
	for i := range m.trackedEntities {
		e := &m.trackedEntities[i]
		if !strings.EqualFold(e.OwnerEntity, ownerEntity) {
			continue
		}
		if category != "" && e.Category != category {
			continue
		}
		out = append(out, *e)
	}
	return out
}

// MovingEntities returns entities in transit, which are the ones most
// vulnerable to detection.
func (m *MapState) MovingEntities() []TrackedEntity {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []TrackedEntity
	for i := range m.trackedEntities {
		if m.trackedEntities[i].IsMoving {
			out = append(out, m.trackedEntities[i])
		}
	}
	return out
}

// UpdateEntityZone relocates an entity instantly, clearing any movement.
func (m *MapState) UpdateEntityZone(id, newZone string, uncertaintyKm float64, gameTime time.Time) error {
	coords, ok := ZoneCoordinates(newZone)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownZone, newZone)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.trackedEntities {
		e := &m.trackedEntities[i]
		if e.ID != id {
			continue
		}
		e.CurrentLocation = Coordinates{Lat: coords.Lat, Lon: coords.Lon, UncertaintyKm: uncertaintyKm}
		e.CurrentZone = newZone
		e.IsMoving = false
		e.Destination = nil
		e.DestinationZone = ""
		e.MovementStarted = nil
		e.MovementETA = nil
		t := gameTime
		e.LastKnownUpdate = &t
		m.lastUpdated = gameTime
		m.logger.Info("Entity %s moved to %s", id, newZone)
		return nil
	}
	return fmt.Errorf("%w: %q", ErrUnknownEntity, id)
}

// StartMovement puts an entity in transit toward a destination zone with an
// ETA computed from the travel time in virtual minutes.
func (m *MapState) StartMovement(id, destinationZone string, travelMinutes int, gameTime time.Time) error {
	dest, ok := ZoneCoordinates(destinationZone)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownZone, destinationZone)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.trackedEntities {
		e := &m.trackedEntities[i]
		if e.ID != id {
			continue
		}
		e.IsMoving = true
		e.Destination = &Coordinates{Lat: dest.Lat, Lon: dest.Lon, UncertaintyKm: dest.UncertaintyKm}
		e.DestinationZone = destinationZone
		started := gameTime
		eta := gameTime.Add(time.Duration(travelMinutes) * time.Minute)
		e.MovementStarted = &started
		e.MovementETA = &eta
		e.LastKnownUpdate = &started
		m.lastUpdated = gameTime
		m.logger.Info("Entity %s moving from %s to %s, ETA %d game minutes", id, e.CurrentZone, destinationZone, travelMinutes)
		return nil
	}
	return fmt.Errorf("%w: %q", ErrUnknownEntity, id)
}

// CompleteMovements transitions entities whose ETA has passed out of
// transit. Arrival is the only exit from the in-transit state.
func (m *MapState) CompleteMovements(gameTime time.Time) []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	var completed []string
	for i := range m.trackedEntities {
		e := &m.trackedEntities[i]
		if !e.IsMoving || e.MovementETA == nil {
			continue
		}
		if gameTime.Before(*e.MovementETA) {
			continue
		}
		if e.Destination != nil {
			e.CurrentLocation = *e.Destination
		}
		e.CurrentZone = e.DestinationZone
		e.IsMoving = false
		e.Destination = nil
		e.DestinationZone = ""
		e.MovementStarted = nil
		e.MovementETA = nil
		t := gameTime
		e.LastKnownUpdate = &t
		completed = append(completed, e.ID)
		m.logger.Info("Entity %s arrived at %s", e.ID, e.CurrentZone)
	}
	if len(completed) > 0 {
		m.lastUpdated = gameTime
	}
	return completed
}

// RefineLocation shrinks an entity's uncertainty radius after an intel gain.
func (m *MapState) RefineLocation(id string, newUncertaintyKm float64, gameTime time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.trackedEntities {
		e := &m.trackedEntities[i]
		if e.ID != id {
			continue
		}
		old := e.CurrentLocation.UncertaintyKm
		e.CurrentLocation.UncertaintyKm = newUncertaintyKm
		t := gameTime
		e.LastKnownUpdate = &t
		m.lastUpdated = gameTime
		m.logger.Info("Refined location for %s: uncertainty %.1f -> %.1f km", id, old, newUncertaintyKm)
		return nil
	}
	return fmt.Errorf("%w: %q", ErrUnknownEntity, id)
}

// === Geo events ===

// GeoEventSpec describes a geo event to create.
type GeoEventSpec struct {
	EventType        string
	SourceEventID    string
	OriginZone       string
	DestinationZone  string
	CenterZone       string
	RadiusKm         float64
	DurationSeconds  int
	Description      string
	ActorEntity      string
	AffectedEntities []string
}

// CreateGeoEvent registers a new animation record.
func (m *MapState) CreateGeoEvent(spec GeoEventSpec, gameTime time.Time) GeoEvent {
	ge := GeoEvent{
		ID:               NewGeoEventID(),
		EventType:        spec.EventType,
		SourceEventID:    spec.SourceEventID,
		Timestamp:        gameTime,
		OriginZone:       spec.OriginZone,
		DestinationZone:  spec.DestinationZone,
		RadiusKm:         spec.RadiusKm,
		DurationSeconds:  spec.DurationSeconds,
		Status:           GeoActive,
		Description:      spec.Description,
		ActorEntity:      spec.ActorEntity,
		AffectedEntities: spec.AffectedEntities,
	}
	if coords, ok := ZoneCoordinates(spec.OriginZone); ok && spec.OriginZone != "" {
		ge.Origin = &coords
	}
	if coords, ok := ZoneCoordinates(spec.DestinationZone); ok && spec.DestinationZone != "" {
		ge.Destination = &coords
	}
	if coords, ok := ZoneCoordinates(spec.CenterZone); ok && spec.CenterZone != "" {
		ge.Center = &coords
	}
	ge.normalize()

	m.mu.Lock()
	m.activeGeoEvents = append(m.activeGeoEvents, ge)
	m.lastUpdated = gameTime
	m.mu.Unlock()

	m.logger.Info("Created geo event %s: %s from %s to %s", ge.ID, ge.EventType, spec.OriginZone, spec.DestinationZone)
	return ge
}

// UpdateGeoEventStatus flips an active event to intercepted/completed/failed.
func (m *MapState) UpdateGeoEventStatus(id, status string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.activeGeoEvents {
		if m.activeGeoEvents[i].ID == id {
			m.activeGeoEvents[i].Status = status
			return true
		}
	}
	return false
}

// ActiveGeoEvents returns the live animation feed.
func (m *MapState) ActiveGeoEvents() []GeoEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]GeoEvent, len(m.activeGeoEvents))
	copy(out, m.activeGeoEvents)
	return out
}

// ArchiveExpiredGeoEvents moves events past their animation window (or in a
// terminal status) to the bounded archive.
func (m *MapState) ArchiveExpiredGeoEvents(gameTime time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	archived := 0
	stillActive := m.activeGeoEvents[:0]
	for _, ge := range m.activeGeoEvents {
		age := gameTime.Sub(ge.Timestamp).Seconds()
		terminal := ge.Status == GeoCompleted || ge.Status == GeoIntercepted || ge.Status == GeoFailed
		if age > geoEventMaxAgeSeconds || terminal {
			if ge.Status == GeoActive {
				ge.Status = GeoCompleted
			}
			m.archivedEvents = append(m.archivedEvents, ge)
			archived++
		} else {
			stillActive = append(stillActive, ge)
		}
	}
	m.activeGeoEvents = stillActive
	if archived > 0 {
		if len(m.archivedEvents) > geoArchiveKeep {
			m.archivedEvents = m.archivedEvents[len(m.archivedEvents)-geoArchiveKeep:]
		}
		m.lastUpdated = gameTime
	}
	return archived
}

// === Spatial clash detection ===

// SpatialClash finds tracked entities in a zone matching the given
// categories. Empty categories match everything in the zone.
func (m *MapState) SpatialClash(actionZone string, categories []string) []TrackedEntity {
	inZone := m.EntitiesInZone(actionZone)
	if len(categories) == 0 {
		return inZone
	}
	var out []TrackedEntity
	for _, e := range inZone {
		for _, cat := range categories {
			if e.Category == cat {
				out = append(out, e)
				break
			}
		}
	}
	return out
}

// DetectionChance computes the probability of finding an entity.
// Moving entities are easier to detect; searcher capability scales the
// result between half and full base chance.
func DetectionChance(entity TrackedEntity, searcherCapability float64) float64 {
	base := 1.0 - entity.DetectionDifficulty
	if entity.IsMoving {
		base += 0.2
	}
	chance := base * (0.5 + 0.5*searcherCapability)
	if chance < 0 {
		return 0
	}
	if chance > 1 {
		return 1
	}
	return chance
}

// === Snapshot ===

// Export captures the map state for persistence.
func (m *MapState) Export() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Snapshot{
		LastUpdated:       m.lastUpdated,
		StaticLocations:   append([]StaticLocation(nil), m.staticLocations...),
		TrackedEntities:   append([]TrackedEntity(nil), m.trackedEntities...),
		ActiveGeoEvents:   append([]GeoEvent(nil), m.activeGeoEvents...),
		ArchivedGeoEvents: append([]GeoEvent(nil), m.archivedEvents...),
	}
}

// Restore replaces the map contents from a snapshot.
func (m *MapState) Restore(snap Snapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastUpdated = snap.LastUpdated
	m.staticLocations = append([]StaticLocation(nil), snap.StaticLocations...)
	m.trackedEntities = append([]TrackedEntity(nil), snap.TrackedEntities...)
	m.activeGeoEvents = append([]GeoEvent(nil), snap.ActiveGeoEvents...)
	m.archivedEvents = append([]GeoEvent(nil), snap.ArchivedGeoEvents...)
	for i := range m.trackedEntities {
		m.trackedEntities[i].normalize()
	}
	for i := range m.activeGeoEvents {
		m.activeGeoEvents[i].normalize()
	}
}

// MarshalSnapshot serializes a map snapshot.
func MarshalSnapshot(snap Snapshot) ([]byte, error) {
	return json.MarshalIndent(snap, "", "  ")
}

// UnmarshalSnapshot parses a map snapshot with defaulting.
func UnmarshalSnapshot(data []byte) (Snapshot, error) {
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}

