package storage

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ziv044/PM1/internal/agents"
	"github.com/ziv044/PM1/internal/clock"
	"github.com/ziv044/PM1/internal/geo"
	"github.com/ziv044/PM1/internal/kpi"
	"github.com/ziv044/PM1/internal/platform/logger"
	"github.com/ziv044/PM1/internal/world"
)

func testDB(t *testing.T) (db *GameManager, archiveDB *EventArchive, root string, gameID string) {
	t.Helper()
	root = t.TempDir()
	sqlDB, err := InitSQLite(filepath.Join(root, "pm1.db"))
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	mgr := NewGameManager(sqlDB, root)
	rec, err := mgr.Create("October 7th")
	require.NoError(t, err)
	return mgr, NewEventArchive(sqlDB, rec.ID), root, rec.ID
}

func sampleEvent(id, agentID, summary string, at time.Time) world.Event {
	return world.Event{
		ID:               id,
		Timestamp:        at,
		AgentID:          agentID,
		ActionType:       "military",
		Summary:          summary,
		IsPublic:         true,
		ResolutionStatus: world.StatusResolved,
	}
}

func TestArchiveRoundTripAndIdempotence(t *testing.T) {
	_, archive, _, _ := testDB(t)
	base := time.Date(2023, 10, 7, 6, 29, 0, 0, time.UTC)

	events := []world.Event{
		sampleEvent("evt_aaaa0001", "IDF-Commander", "Airstrike on tunnel shafts", base),
		sampleEvent("evt_aaaa0002", "Hamas-Leader", "Rocket barrage on the south", base.Add(time.Hour)),
	}
	require.NoError(t, archive.ArchiveEvents(events))

	n, err := archive.Count()
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	// Re-archiving the same ids is a no-op.
	require.NoError(t, archive.ArchiveEvents(events))
	n, err = archive.Count()
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	recent, err := archive.Recent(10)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "evt_aaaa0002", recent[0].ID, "newest first")
	assert.Equal(t, "Rocket barrage on the south", recent[0].Summary)
	assert.Equal(t, world.StatusResolved, recent[0].ResolutionStatus)

	byAgent, err := archive.ByAgent("IDF-Commander")
	require.NoError(t, err)
	require.Len(t, byAgent, 1)
	assert.Equal(t, "evt_aaaa0001", byAgent[0].ID)

	require.NoError(t, archive.ArchiveEvents(nil), "empty batch is a no-op")
}

func TestGameManagerLifecycle(t *testing.T) {
	mgr, _, _, gameID := testDB(t)

	second, err := mgr.Create("Sandbox")
	require.NoError(t, err)

	games, err := mgr.List()
	require.NoError(t, err)
	assert.Len(t, games, 2)

	_, active, err := mgr.Active()
	require.NoError(t, err)
	assert.False(t, active, "no game starts active")

	require.NoError(t, mgr.SetActive(gameID))
	rec, active, err := mgr.Active()
	require.NoError(t, err)
	require.True(t, active)
	assert.Equal(t, gameID, rec.ID)

	// Activating another game deactivates the first.
	require.NoError(t, mgr.SetActive(second.ID))
	rec, _, err = mgr.Active()
	require.NoError(t, err)
	assert.Equal(t, second.ID, rec.ID)
	first, err := mgr.Get(gameID)
	require.NoError(t, err)
	assert.False(t, first.IsActive)

	now := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, mgr.Touch(gameID, now))
	first, err = mgr.Get(gameID)
	require.NoError(t, err)
	require.NotNil(t, first.LastSaved)
	assert.WithinDuration(t, now, *first.LastSaved, time.Second)

	require.NoError(t, mgr.Delete(second.ID))
	_, err = mgr.Get(second.ID)
	assert.ErrorIs(t, err, ErrGameNotFound)
	assert.ErrorIs(t, mgr.SetActive(second.ID), ErrGameNotFound)
	assert.ErrorIs(t, mgr.Touch("game_missing1", now), ErrGameNotFound)
}

func TestSnapshotStoreRoundTrip(t *testing.T) {
	root := t.TempDir()
	store := NewSnapshotStore(root, "game_test0001")
	assert.False(t, store.Exists())

	state := world.NewState()
	state.AddEvent(sampleEvent("evt_bbbb0001", "IDF-Commander", "Secures the perimeter", time.Now().UTC()))
	gameTime := time.Date(2023, 10, 8, 12, 0, 0, 0, time.UTC)
	require.NoError(t, store.SaveSimulation(state.Export(true, 4.0, gameTime)))
	assert.True(t, store.Exists())

	snap, err := store.LoadSimulation()
	require.NoError(t, err)
	assert.True(t, snap.IsRunning)
	assert.InDelta(t, 4.0, snap.ClockSpeed, 0.001)
	require.Len(t, snap.Events, 1)
	assert.Equal(t, "evt_bbbb0001", snap.Events[0].ID)

	kpis := kpi.NewStore()
	kpis.SetEntity("Israel", map[string]interface{}{
		"dynamic_metrics": map[string]interface{}{"morale_civilian": 55.0},
	})
	kpis.SetEntity("Hamas", map[string]interface{}{
		"dynamic_metrics": map[string]interface{}{"fighters_remaining": 30000.0},
	})
	require.NoError(t, store.SaveKPIs(kpis))

	loaded := kpi.NewStore()
	require.NoError(t, store.LoadKPIs(loaded))
	v, err := loaded.MetricValue("Hamas", "dynamic_metrics.fighters_remaining")
	require.NoError(t, err)
	assert.InDelta(t, 30000.0, v.(float64), 0.001)
	assert.ElementsMatch(t, []string{"Israel", "Hamas"}, loaded.Entities())

	require.NoError(t, store.Delete())
	assert.False(t, store.Exists())
}

func TestGameSaverSaveAndLoad(t *testing.T) {
	mgr, _, root, gameID := testDB(t)

	gameTime := time.Date(2023, 10, 7, 6, 29, 0, 0, time.UTC)
	state := world.NewState()
	state.AddEvent(sampleEvent("evt_cccc0001", "Hamas-Leader", "Opens the assault", gameTime))
	registry := agents.NewRegistry()
	registry.Register(agents.Profile{ID: "IDF-Commander", EntityName: "Israel", EntityType: "Entity", Enabled: true})
	registry.AddMemory("IDF-Commander", gameTime, "[2023-10-07 06:29] Sirens across the south")
	kpis := kpi.NewStore()
	kpis.SetEntity("Israel", map[string]interface{}{
		"dynamic_metrics": map[string]interface{}{"morale_civilian": 55.0},
	})
	mapState := geo.NewMapState(logger.NewLogger())
	gameClock := clock.New(gameTime, 4.0)

	store := NewSnapshotStore(root, gameID)
	saver := NewGameSaver(store, mgr, gameID, state, kpis, mapState, registry, nil, gameClock)
	require.NoError(t, saver.Save())

	rec, err := mgr.Get(gameID)
	require.NoError(t, err)
	assert.NotNil(t, rec.LastSaved, "save touches the game index")

	// A fresh set of stores picks up the saved game.
	state2 := world.NewState()
	registry2 := agents.NewRegistry()
	kpis2 := kpi.NewStore()
	mapState2 := geo.NewMapState(logger.NewLogger())
	clock2 := clock.New(time.Now(), clock.DefaultSpeed)

	loader := NewGameSaver(store, mgr, gameID, state2, kpis2, mapState2, registry2, nil, clock2)
	require.NoError(t, loader.Load())

	assert.Equal(t, 1, state2.EventCount())
	assert.InDelta(t, 4.0, clock2.Speed(), 0.001)
	assert.WithinDuration(t, gameTime, clock2.Now(), time.Second)

	profile, err := registry2.Get("IDF-Commander")
	require.NoError(t, err)
	assert.True(t, profile.Enabled)
	tail := registry2.MemoryTail("IDF-Commander", 5)
	require.Len(t, tail, 1)
	assert.Contains(t, tail[0].Text, "Sirens")

	v, err := kpis2.MetricValue("Israel", "dynamic_metrics.morale_civilian")
	require.NoError(t, err)
	assert.InDelta(t, 55.0, v.(float64), 0.001)
}
