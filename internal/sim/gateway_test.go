package sim

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ziv044/PM1/internal/agents"
	"github.com/ziv044/PM1/internal/geo"
	"github.com/ziv044/PM1/internal/platform/logger"
	"github.com/ziv044/PM1/internal/world"
)

// stubOracle returns a canned reply, or an error when set.
type stubOracle struct {
	reply string
	err   error
	calls int
}

func (s *stubOracle) Complete(ctx context.Context, system, user string) (string, error) {
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	return s.reply, nil
}

type gatewayFixture struct {
	registry *agents.Registry
	state    *world.State
	mapState *geo.MapState
	oracle   *stubOracle
	gateway  *DecisionGateway
}

func newGatewayFixture(reply string) *gatewayFixture {
	f := &gatewayFixture{
		registry: agents.NewRegistry(),
		state:    world.NewState(),
		mapState: geo.NewMapState(logger.NewLogger()),
		oracle:   &stubOracle{reply: reply},
	}
	f.registry.Register(agents.Profile{ID: "IDF-Commander", EntityName: "Israel", EntityType: "Entity", Enabled: true})
	f.registry.Register(agents.Profile{ID: "Defense-Minister", EntityName: "Israel", EntityType: "Entity", Enabled: true})
	f.registry.Register(agents.Profile{ID: "Hamas-Leader", EntityName: "Hamas", EntityType: "Entity", Enabled: true})
	f.registry.Register(agents.Profile{ID: "Egypt-President", EntityName: "Egypt", EntityType: "Entity", Enabled: true})
	f.gateway = NewDecisionGateway(f.registry, f.state, f.mapState, f.oracle, logger.NewLogger())
	return f
}

func startTime() time.Time {
	return time.Date(2023, 10, 7, 6, 29, 0, 0, time.UTC)
}

func TestActCreatesImmediateEventAndFansOutMemory(t *testing.T) {
	f := newGatewayFixture(`{"action_type": "military", "summary": "Airstrike on launch sites", "is_public": true, "affected_agents": ["Hamas"], "target_zone": "Jabalia"}`)
	profile, _ := f.registry.Get("IDF-Commander")

	event, err := f.gateway.Act(context.Background(), profile, startTime())
	require.NoError(t, err)
	require.NotNil(t, event)
	assert.Equal(t, world.StatusImmediate, event.ResolutionStatus)
	assert.Equal(t, "Jabalia", event.TargetZone)
	assert.Equal(t, 1, f.state.EventCount())

	// Actor remembers in the first person.
	own := f.registry.MemoryTail("IDF-Commander", 5)
	require.Len(t, own, 1)
	assert.Contains(t, own[0].Text, "YOU: Airstrike on launch sites")

	// Colleague and affected entity's agents get the third-person entry.
	assert.Len(t, f.registry.MemoryTail("Defense-Minister", 5), 1)
	assert.Len(t, f.registry.MemoryTail("Hamas-Leader", 5), 1)

	// An uninvolved head of state hears nothing.
	assert.Empty(t, f.registry.MemoryTail("Egypt-President", 5))
}

func TestActPrivateEventReachesOnlyTheActor(t *testing.T) {
	f := newGatewayFixture(`{"action_type": "intelligence", "summary": "Quietly review agent networks", "is_public": false}`)
	profile, _ := f.registry.Get("IDF-Commander")

	_, err := f.gateway.Act(context.Background(), profile, startTime())
	require.NoError(t, err)

	assert.Len(t, f.registry.MemoryTail("IDF-Commander", 5), 1)
	assert.Empty(t, f.registry.MemoryTail("Defense-Minister", 5))
}

func TestActClassifiesPendingActions(t *testing.T) {
	f := newGatewayFixture(`{"action_type": "diplomatic", "summary": "Propose indirect talks through Cairo", "is_public": true}`)
	profile, _ := f.registry.Get("Egypt-President")

	event, err := f.gateway.Act(context.Background(), profile, startTime())
	require.NoError(t, err)
	require.NotNil(t, event)
	assert.Equal(t, world.StatusPending, event.ResolutionStatus)
	require.NotNil(t, event.Pending)
	assert.Equal(t, "diplomatic", event.Pending.PendingType)
	assert.Equal(t, 60, event.Pending.ExpectedMinutes)
}

func TestActDropsUnknownZoneButKeepsEvent(t *testing.T) {
	f := newGatewayFixture(`{"action_type": "military", "summary": "Airstrike somewhere", "target_zone": "Narnia"}`)
	profile, _ := f.registry.Get("IDF-Commander")

	event, err := f.gateway.Act(context.Background(), profile, startTime())
	require.NoError(t, err)
	require.NotNil(t, event)
	assert.Empty(t, event.TargetZone)
	assert.Equal(t, 1, f.state.EventCount())
}

func TestActRelocationMovesOwnedUnits(t *testing.T) {
	f := newGatewayFixture(`{"action_type": "military", "summary": "Reposition forces south", "relocate_to": "Beer Sheva"}`)
	profile, _ := f.registry.Get("IDF-Commander")

	event, err := f.gateway.Act(context.Background(), profile, startTime())
	require.NoError(t, err)
	require.NotNil(t, event)
	assert.Equal(t, "Beer Sheva", event.RelocateTo)

	unit, err := f.mapState.TrackedEntity("unit-idf-36div")
	require.NoError(t, err)
	assert.True(t, unit.IsMoving)
	assert.Equal(t, "Beer Sheva", unit.DestinationZone)
	assert.NotEmpty(t, f.mapState.ActiveGeoEvents())
}

func TestActRelocationToUnknownZoneIsNoOp(t *testing.T) {
	f := newGatewayFixture(`{"action_type": "military", "summary": "Reposition forces", "relocate_to": "Atlantis"}`)
	profile, _ := f.registry.Get("IDF-Commander")

	event, err := f.gateway.Act(context.Background(), profile, startTime())
	require.NoError(t, err)
	require.NotNil(t, event)
	assert.Empty(t, event.RelocateTo)

	unit, err := f.mapState.TrackedEntity("unit-idf-36div")
	require.NoError(t, err)
	assert.False(t, unit.IsMoving)
}

func TestActMalformedReplyIsSilentNoOp(t *testing.T) {
	f := newGatewayFixture("I will not answer in JSON today.")
	profile, _ := f.registry.Get("Hamas-Leader")

	event, err := f.gateway.Act(context.Background(), profile, startTime())
	assert.NoError(t, err)
	assert.Nil(t, event)
	assert.Zero(t, f.state.EventCount())
}

func TestActOracleFailurePropagates(t *testing.T) {
	f := newGatewayFixture("")
	f.oracle.err = errors.New("upstream 500")
	profile, _ := f.registry.Get("Hamas-Leader")

	event, err := f.gateway.Act(context.Background(), profile, startTime())
	assert.Error(t, err)
	assert.Nil(t, event)
	assert.Zero(t, f.state.EventCount())
}

func TestActNoneWithoutSummaryProducesNoEvent(t *testing.T) {
	f := newGatewayFixture(`{"action_type": "none", "summary": ""}`)
	profile, _ := f.registry.Get("Hamas-Leader")

	event, err := f.gateway.Act(context.Background(), profile, startTime())
	require.NoError(t, err)
	assert.Nil(t, event)
	assert.Zero(t, f.state.EventCount())
}
