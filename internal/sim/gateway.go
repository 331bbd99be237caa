package sim

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ziv044/PM1/internal/agents"
	"github.com/ziv044/PM1/internal/geo"
	"github.com/ziv044/PM1/internal/infra/oracle"
	"github.com/ziv044/PM1/internal/platform/logger"
	"github.com/ziv044/PM1/internal/platform/metrics"
	"github.com/ziv044/PM1/internal/world"
)

// memoryTailSize is how many memory entries an agent sees when deciding.
const memoryTailSize = 20

// relocateTravelMinutes is the default travel time for a relocation
// order, in game minutes.
const relocateTravelMinutes = 60

// Completer is the slice of the oracle service the gateway needs.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// DecisionGateway turns one agent's context into a decision request,
// parses the reply into an Event and fans the result out to the relevant
// agents' memories.
type DecisionGateway struct {
	registry *agents.Registry
	state    *world.State
	mapState *geo.MapState
	oracle   Completer
	log      *logger.Logger
}

// NewDecisionGateway wires the gateway.
func NewDecisionGateway(registry *agents.Registry, state *world.State, mapState *geo.MapState, completer Completer, log *logger.Logger) *DecisionGateway {
	return &DecisionGateway{
		registry: registry,
		state:    state,
		mapState: mapState,
		oracle:   completer,
		log:      log,
	}
}

// Act runs one decision cycle for one agent. A nil event with a nil
// error means the cycle was a deliberate no-op (oracle declined, reply
// malformed, or the agent chose to do nothing).
func (g *DecisionGateway) Act(ctx context.Context, profile agents.Profile, gameTime time.Time) (*world.Event, error) {
	prompt := g.buildPrompt(profile, gameTime)

	raw, err := g.oracle.Complete(ctx, oracle.DecisionSystemPrompt, prompt)
	if err != nil {
		return nil, fmt.Errorf("decision cycle for %s: %w", profile.ID, err)
	}

	decision, err := oracle.ParseDecision(raw)
	if err != nil {
		// Malformed replies degrade to a no-op, not a failure.
		g.log.Warn("unparsable decision from %s, skipping cycle: %v", profile.ID, err)
		return nil, nil
	}

	if decision.ActionType == world.ActionNone && decision.Summary == "" {
		return nil, nil
	}
	if !validActionType(decision.ActionType) {
		g.log.Warn("agent %s returned unknown action type %q, treating as none", profile.ID, decision.ActionType)
		decision.ActionType = world.ActionNone
	}

	event := g.buildEvent(profile, decision, gameTime)
	g.applySpatial(profile, decision, &event, gameTime)
	g.state.AddEvent(event)
	metrics.Get().RecordEventCreated()
	g.log.Event("agent_action", profile.ID, event.Summary)

	g.BroadcastToMemories(event)
	return &event, nil
}

func (g *DecisionGateway) buildPrompt(profile agents.Profile, gameTime time.Time) string {
	var memories []string
	for _, m := range g.registry.MemoryTail(profile.ID, memoryTailSize) {
		memories = append(memories, fmt.Sprintf("[%s] %s", m.Timestamp.Format("2006-01-02 15:04"), m.Text))
	}

	var publicEvents []string
	for _, e := range g.state.RecentEvents(10, true) {
		publicEvents = append(publicEvents, fmt.Sprintf("[%s] %s: %s",
			e.Timestamp.Format("2006-01-02 15:04"), e.AgentID, e.Summary))
	}

	return oracle.BuildDecisionPrompt(oracle.DecisionContext{
		AgentID:      profile.ID,
		EntityName:   profile.EntityName,
		Description:  profile.Description,
		Capabilities: profile.Capabilities,
		GameTime:     gameTime.Format("2006-01-02 15:04"),
		Memories:     memories,
		PublicEvents: publicEvents,
		ValidZones:   geo.AllZones(),
	})
}

func (g *DecisionGateway) buildEvent(profile agents.Profile, decision *oracle.Decision, gameTime time.Time) world.Event {
	event := world.Event{
		ID:               world.NewEventID(),
		Timestamp:        gameTime,
		AgentID:          profile.ID,
		ActionType:       decision.ActionType,
		Summary:          decision.Summary,
		IsPublic:         decision.Public(),
		AffectedAgents:   decision.AffectedAgents,
		Reasoning:        decision.Reasoning,
		ResolutionStatus: world.StatusImmediate,
	}

	if pending, kind, minutes := ClassifyPending(decision.ActionType, decision.Summary); pending {
		event.ResolutionStatus = world.StatusPending
		event.Pending = &world.PendingData{PendingType: kind, ExpectedMinutes: minutes}
		g.log.Info("event %s marked pending (%s, %d min)", event.ID, kind, minutes)
	}
	return event
}

// applySpatial validates zone references and executes relocations.
// Invalid zones are dropped with a warning; the event itself survives.
func (g *DecisionGateway) applySpatial(profile agents.Profile, decision *oracle.Decision, event *world.Event, gameTime time.Time) {
	if decision.TargetZone != "" {
		if geo.ValidZone(decision.TargetZone) {
			event.TargetZone = decision.TargetZone
		} else {
			g.log.Warn("agent %s targeted unknown zone %q, dropping spatial payload", profile.ID, decision.TargetZone)
		}
	}

	if decision.RelocateTo == "" {
		return
	}
	if !geo.ValidZone(decision.RelocateTo) {
		// A relocation without a valid destination degenerates to a no-op.
		g.log.Warn("agent %s requested relocation to unknown zone %q, ignoring", profile.ID, decision.RelocateTo)
		return
	}
	event.RelocateTo = decision.RelocateTo
	g.relocateOwnedUnits(profile, decision.RelocateTo, event, gameTime)
}

// relocateOwnedUnits moves the actor entity's military units toward the
// destination and emits a movement animation per unit.
func (g *DecisionGateway) relocateOwnedUnits(profile agents.Profile, destZone string, event *world.Event, gameTime time.Time) {
	for _, unit := range g.mapState.EntitiesOwnedBy(profile.EntityName, geo.CatMilitaryUnit) {
		if strings.EqualFold(unit.CurrentZone, destZone) || unit.IsMoving {
			continue
		}
		if err := g.mapState.StartMovement(unit.ID, destZone, relocateTravelMinutes, gameTime); err != nil {
			g.log.Warn("relocation of %s failed: %v", unit.ID, err)
			continue
		}
		g.mapState.CreateGeoEvent(geo.GeoEventSpec{
			EventType:       geo.GeoForceMovement,
			SourceEventID:   event.ID,
			OriginZone:      unit.CurrentZone,
			DestinationZone: destZone,
			ActorEntity:     profile.EntityName,
			Description:     fmt.Sprintf("%s relocating to %s", unit.Name, destZone),
		}, gameTime)
	}
}

// BroadcastToMemories writes the actor's first-person memory and, for
// public events, a third-person entry for every relevant agent. System
// actors neither remember nor receive broadcasts.
func (g *DecisionGateway) BroadcastToMemories(event world.Event) {
	if strings.HasPrefix(event.AgentID, "System-") {
		return
	}

	stamp := event.Timestamp.Format("2006-01-02 15:04")
	g.registry.AddMemory(event.AgentID, event.Timestamp, fmt.Sprintf("[%s] YOU: %s", stamp, event.Summary))

	if !event.IsPublic {
		return
	}
	entry := fmt.Sprintf("[%s] %s: %s", stamp, event.AgentID, event.Summary)
	for id := range agents.RelevantAgents(event.AgentID, event.AffectedAgents) {
		if _, err := g.registry.Get(id); err != nil {
			continue
		}
		g.registry.AddMemory(id, event.Timestamp, entry)
	}
}

func validActionType(actionType string) bool {
	switch actionType {
	case world.ActionDiplomatic, world.ActionMilitary, world.ActionEconomic,
		world.ActionIntelligence, world.ActionInternal, world.ActionNone:
		return true
	}
	return false
}
