package sim

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ziv044/PM1/internal/agents"
	"github.com/ziv044/PM1/internal/clock"
	"github.com/ziv044/PM1/internal/platform/logger"
	"github.com/ziv044/PM1/internal/world"
)

// recordingArchive captures evicted events.
type recordingArchive struct {
	events []world.Event
	err    error
}

func (a *recordingArchive) ArchiveEvents(events []world.Event) error {
	if a.err != nil {
		return a.err
	}
	a.events = append(a.events, events...)
	return nil
}

type resolverFixture struct {
	*gatewayFixture
	clock    *clock.GameClock
	engine   *RuleEngine
	archive  *recordingArchive
	resolver *Resolver
}

func newResolverFixture(t *testing.T) *resolverFixture {
	t.Helper()
	gw := newGatewayFixture("")
	gw.registry.Register(agents.Profile{
		ID: "IDF-Commander", EntityName: "Israel", EntityType: "Entity",
		Enabled: true, IsReportingGovernment: true,
	})

	f := &resolverFixture{
		gatewayFixture: gw,
		clock:          clock.New(startTime(), clock.DefaultSpeed),
		engine:         NewRuleEngine(1),
		archive:        &recordingArchive{},
	}
	store := testKPIStore(t)
	f.resolver = NewResolver(gw.state, store, gw.mapState, gw.registry, f.engine,
		gw.oracle, gw.gateway, f.clock, f.archive, 60, logger.NewLogger())
	return f
}

func (f *resolverFixture) addEvent(agentID, actionType, summary string, at time.Time) world.Event {
	e := world.Event{
		ID:               world.NewEventID(),
		Timestamp:        at,
		AgentID:          agentID,
		ActionType:       actionType,
		Summary:          summary,
		IsPublic:         true,
		ResolutionStatus: world.StatusImmediate,
	}
	f.state.AddEvent(e)
	return e
}

func TestCycleResolvesWithOracleNarrative(t *testing.T) {
	f := newResolverFixture(t)
	e := f.addEvent("Hamas-Leader", "internal", "Convenes the political bureau", f.clock.Now())
	f.oracle.reply = fmt.Sprintf(
		`[{"event_id": %q, "narrative": "The bureau aligned behind the leadership.", "requires_approval": false}]`, e.ID)

	f.resolver.Cycle(context.Background())

	resolved, err := f.state.GetEvent(e.ID)
	require.NoError(t, err)
	assert.Equal(t, world.StatusResolved, resolved.ResolutionStatus)
	require.NotEmpty(t, resolved.ResolutionEventID)

	resolution, err := f.state.GetEvent(resolved.ResolutionEventID)
	require.NoError(t, err)
	assert.Equal(t, "The bureau aligned behind the leadership.", resolution.Summary)
	assert.Equal(t, e.ID, resolution.ParentEventID)
	assert.Equal(t, world.StatusResolved, resolution.ResolutionStatus)

	// The actor gets a result memory.
	tail := f.registry.MemoryTail("Hamas-Leader", 5)
	require.NotEmpty(t, tail)
	assert.Contains(t, tail[len(tail)-1].Text, "[RESULT]")
}

func TestCycleIsIdempotentAcrossRuns(t *testing.T) {
	f := newResolverFixture(t)
	f.oracle.reply = "not json"
	f.addEvent("Hamas-Leader", "internal", "Issues guidance to commanders", f.clock.Now())

	f.resolver.Cycle(context.Background())
	countAfterFirst := f.state.EventCount()
	require.Equal(t, 2, countAfterFirst, "original plus one resolution event")

	// Nothing left to resolve: a second cycle adds nothing.
	f.resolver.Cycle(context.Background())
	assert.Equal(t, countAfterFirst, f.state.EventCount())
}

func TestCycleFallbackNarrativeOnOracleFailure(t *testing.T) {
	f := newResolverFixture(t)
	f.oracle.err = fmt.Errorf("oracle down")
	e := f.addEvent("Hamas-Leader", "internal", "Records a broadcast message", f.clock.Now())

	f.resolver.Cycle(context.Background())

	resolved, err := f.state.GetEvent(e.ID)
	require.NoError(t, err)
	require.NotEmpty(t, resolved.ResolutionEventID)

	resolution, err := f.state.GetEvent(resolved.ResolutionEventID)
	require.NoError(t, err)
	assert.Equal(t, fallbackNarrative, resolution.Summary)
}

func TestCycleGatesGovernmentActionsForApproval(t *testing.T) {
	f := newResolverFixture(t)
	f.oracle.reply = "not json"
	e := f.addEvent("IDF-Commander", "military", "Orders ground invasion of northern Gaza", f.clock.Now())

	f.resolver.Cycle(context.Background())

	gated, err := f.state.GetEvent(e.ID)
	require.NoError(t, err)
	assert.Equal(t, world.StatusAwaitingPM, gated.ResolutionStatus)
	assert.Empty(t, gated.ResolutionEventID, "gated events get no resolution")

	approvals := f.state.PendingApprovals()
	require.Len(t, approvals, 1)
	assert.Equal(t, e.ID, approvals[0].EventID)
	assert.Equal(t, "military_major", approvals[0].RequestType)
	assert.Equal(t, "immediate", approvals[0].Urgency)

	// Gated events never reappear in the selection.
	f.resolver.Cycle(context.Background())
	assert.Len(t, f.state.PendingApprovals(), 1)
}

func TestCycleDoesNotGateNonGovernmentActors(t *testing.T) {
	f := newResolverFixture(t)
	f.oracle.reply = "not json"
	e := f.addEvent("Hamas-Leader", "military", "Orders ground assault on the crossing", f.clock.Now())

	f.resolver.Cycle(context.Background())

	resolved, err := f.state.GetEvent(e.ID)
	require.NoError(t, err)
	assert.NotEqual(t, world.StatusAwaitingPM, resolved.ResolutionStatus)
	assert.Empty(t, f.state.PendingApprovals())
}

func TestCycleTriggersDueScheduledEvents(t *testing.T) {
	f := newResolverFixture(t)
	f.oracle.reply = "not json"

	f.state.AddScheduledEvent(world.ScheduledEvent{
		ID:         world.NewScheduledEventID(),
		DueTime:    f.clock.Now().Add(-time.Minute),
		AgentID:    "Hamas-Leader",
		ActionType: "military",
		Summary:    "Launch the prepared rocket barrage",
		Status:     world.ScheduledPending,
	})
	f.state.AddScheduledEvent(world.ScheduledEvent{
		ID:         world.NewScheduledEventID(),
		DueTime:    f.clock.Now().Add(48 * time.Hour),
		AgentID:    "Hamas-Leader",
		ActionType: "military",
		Summary:    "Not yet due",
		Status:     world.ScheduledPending,
	})

	f.resolver.Cycle(context.Background())

	// The due payload became an event and was resolved in the same
	// cycle; the future one stayed queued.
	events := f.state.RecentEvents(10, false)
	var sawTriggered bool
	for _, e := range events {
		if e.Summary == "Launch the prepared rocket barrage" {
			sawTriggered = true
		}
		assert.NotEqual(t, "Not yet due", e.Summary)
	}
	assert.True(t, sawTriggered)

	var pendingLeft int
	for _, se := range f.state.ScheduledEvents() {
		if se.Status == world.ScheduledPending {
			pendingLeft++
		}
	}
	assert.Equal(t, 1, pendingLeft)
}

func TestCycleArchivesExpiredTerminalEvents(t *testing.T) {
	f := newResolverFixture(t)
	f.oracle.reply = "not json"
	old := f.addEvent("Hamas-Leader", "internal", "An action from hours ago", f.clock.Now().Add(-3*time.Hour))

	// The cycle resolves the stale event first, then the archival pass
	// evicts it: terminal status plus an hours-old timestamp.
	f.resolver.Cycle(context.Background())

	require.Len(t, f.archive.events, 1)
	assert.Equal(t, old.ID, f.archive.events[0].ID)

	_, err := f.state.GetEvent(old.ID)
	assert.ErrorIs(t, err, world.ErrNotFound)

	// The resolution event is timestamped now and stays live.
	assert.Equal(t, 1, f.state.EventCount())
}

func TestGroupByActionTypePreservesOrder(t *testing.T) {
	events := []world.Event{
		{ID: "a", ActionType: "military"},
		{ID: "b", ActionType: "diplomatic"},
		{ID: "c", ActionType: "military"},
		{ID: "d", ActionType: "internal"},
	}
	groups := groupByActionType(events)
	require.Len(t, groups, 3)
	assert.Equal(t, "a", groups[0][0].ID)
	assert.Equal(t, "c", groups[0][1].ID)
	assert.Equal(t, "b", groups[1][0].ID)
	assert.Equal(t, "d", groups[2][0].ID)
}

func TestChunkEvents(t *testing.T) {
	var events []world.Event
	for i := 0; i < 12; i++ {
		events = append(events, world.Event{ID: fmt.Sprintf("e%d", i)})
	}
	chunks := chunkEvents(events, 5)
	require.Len(t, chunks, 3)
	assert.Len(t, chunks[0], 5)
	assert.Len(t, chunks[1], 5)
	assert.Len(t, chunks[2], 2)

	assert.Empty(t, chunkEvents(nil, 5))
}
