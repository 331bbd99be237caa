package storage

import (
	"time"

	"github.com/ziv044/PM1/internal/agents"
	"github.com/ziv044/PM1/internal/clock"
	"github.com/ziv044/PM1/internal/geo"
	"github.com/ziv044/PM1/internal/kpi"
	"github.com/ziv044/PM1/internal/meetings"
	"github.com/ziv044/PM1/internal/world"
)

// GameSaver snapshots every live store of one game to disk. It is
// handed to the coordinator as its persister.
type GameSaver struct {
	store    *SnapshotStore
	games    *GameManager
	gameID   string
	state    *world.State
	kpis     *kpi.Store
	mapState *geo.MapState
	registry *agents.Registry
	meetings *meetings.Orchestrator
	clock    *clock.GameClock
}

func NewGameSaver(store *SnapshotStore, games *GameManager, gameID string,
	state *world.State, kpis *kpi.Store, mapState *geo.MapState,
	registry *agents.Registry, orchestrator *meetings.Orchestrator, gameClock *clock.GameClock) *GameSaver {
	return &GameSaver{
		store:    store,
		games:    games,
		gameID:   gameID,
		state:    state,
		kpis:     kpis,
		mapState: mapState,
		registry: registry,
		meetings: orchestrator,
		clock:    gameClock,
	}
}

// Save writes every document. The first failure aborts the pass; the
// per-document temp-and-rename keeps the documents already written
// consistent.
func (s *GameSaver) Save() error {
	if err := s.store.SaveSimulation(s.state.Export(s.clock.Running(), s.clock.Speed(), s.clock.Now())); err != nil {
		return err
	}
	if err := s.store.SaveMap(s.mapState.Export()); err != nil {
		return err
	}
	if err := s.store.SaveAgents(s.registry.Export()); err != nil {
		return err
	}
	if err := s.store.SaveKPIs(s.kpis); err != nil {
		return err
	}
	if s.meetings != nil {
		if err := s.store.SaveMeetings(s.meetings.Export()); err != nil {
			return err
		}
	}
	return s.games.Touch(s.gameID, time.Now().UTC())
}

// Load restores every document into the live stores. The clock is
// restored last so its speed and position match the saved game.
func (s *GameSaver) Load() error {
	snap, err := s.store.LoadSimulation()
	if err != nil {
		return err
	}
	s.state.Restore(snap)
	s.clock.SetTime(snap.GameClock)
	if snap.ClockSpeed > 0 {
		if err := s.clock.SetSpeed(snap.ClockSpeed); err != nil {
			return err
		}
	}

	mapSnap, err := s.store.LoadMap()
	if err != nil {
		return err
	}
	s.mapState.Restore(mapSnap)

	agentSnap, err := s.store.LoadAgents()
	if err != nil {
		return err
	}
	s.registry.Restore(agentSnap)

	if err := s.store.LoadKPIs(s.kpis); err != nil {
		return err
	}

	if s.meetings != nil {
		meetingSnap, err := s.store.LoadMeetings()
		if err != nil {
			return err
		}
		s.meetings.Restore(meetingSnap)
	}
	return nil
}
