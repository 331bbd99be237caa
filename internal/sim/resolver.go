package sim

import (
	"context"
	"fmt"
	"time"

	"github.com/ziv044/PM1/internal/agents"
	"github.com/ziv044/PM1/internal/clock"
	"github.com/ziv044/PM1/internal/geo"
	"github.com/ziv044/PM1/internal/infra/oracle"
	"github.com/ziv044/PM1/internal/kpi"
	"github.com/ziv044/PM1/internal/platform/logger"
	"github.com/ziv044/PM1/internal/platform/metrics"
	"github.com/ziv044/PM1/internal/world"
)

const (
	// resolverBatchLimit bounds one cycle to the most recent unresolved
	// events, capping prompt size.
	resolverBatchLimit = 20
	// resolverSubBatchSize is how many same-type events share one
	// narrative oracle call.
	resolverSubBatchSize = 5
	// fallbackNarrative covers events the oracle skipped or garbled.
	fallbackNarrative = "The action ran its course without notable complications."
)

// systemResolverID is the synthetic actor resolution events carry.
const systemResolverID = "System-Resolver"

// ArchiveSink receives terminal events evicted from the live log.
type ArchiveSink interface {
	ArchiveEvents(events []world.Event) error
}

// Resolver drives the periodic resolution cycle: scheduled-event
// injection, batched narrative calls, rule outcomes, spatial clashes,
// approval gating and archival.
type Resolver struct {
	state    *world.State
	kpis     *kpi.Store
	mapState *geo.MapState
	registry *agents.Registry
	engine   *RuleEngine
	oracle   Completer
	gateway  *DecisionGateway
	clock    *clock.GameClock
	archive  ArchiveSink
	log      *logger.Logger

	archiveAfterMinutes float64
}

// NewResolver wires the resolver. archive may be nil, in which case
// evicted events are dropped after leaving the live set.
func NewResolver(state *world.State, kpis *kpi.Store, mapState *geo.MapState, registry *agents.Registry, engine *RuleEngine, completer Completer, gateway *DecisionGateway, gameClock *clock.GameClock, archive ArchiveSink, archiveAfterMinutes float64, log *logger.Logger) *Resolver {
	if archiveAfterMinutes <= 0 {
		archiveAfterMinutes = 60
	}
	return &Resolver{
		state:               state,
		kpis:                kpis,
		mapState:            mapState,
		registry:            registry,
		engine:              engine,
		oracle:              completer,
		gateway:             gateway,
		clock:               gameClock,
		archive:             archive,
		log:                 log,
		archiveAfterMinutes: archiveAfterMinutes,
	}
}

// Cycle runs one full resolution pass. It never returns an error: every
// failure is absorbed locally so the loop stays alive.
func (r *Resolver) Cycle(ctx context.Context) {
	start := time.Now()
	now := r.clock.Now()

	r.triggerDueScheduledEvents(now)
	r.state.AdvanceSituations(now)

	batch := r.state.UnresolvedBatch(resolverBatchLimit)
	for _, group := range groupByActionType(batch) {
		for _, subBatch := range chunkEvents(group, resolverSubBatchSize) {
			if ctx.Err() != nil {
				return
			}
			r.resolveSubBatch(ctx, subBatch, now)
		}
	}

	r.archiveTerminalEvents(now)
	r.mapState.CompleteMovements(now)
	r.mapState.ArchiveExpiredGeoEvents(now)

	metrics.Get().RecordResolverCycle(time.Since(start))
}

// triggerDueScheduledEvents converts due scheduled events into new
// immediate events re-entering the normal pipeline.
func (r *Resolver) triggerDueScheduledEvents(now time.Time) {
	for _, se := range r.state.DueScheduledEvents(now) {
		event := world.Event{
			ID:               world.NewEventID(),
			Timestamp:        now,
			AgentID:          se.AgentID,
			ActionType:       se.ActionType,
			Summary:          se.Summary,
			IsPublic:         true,
			ResolutionStatus: world.StatusImmediate,
			ParentEventID:    se.SourceID,
		}
		r.state.AddEvent(event)
		metrics.Get().RecordEventCreated()
		metrics.Get().RecordScheduledTrigger()
		r.log.Event("scheduled_trigger", se.AgentID, se.Summary)
		r.gateway.BroadcastToMemories(event)
	}
}

func (r *Resolver) resolveSubBatch(ctx context.Context, batch []world.Event, now time.Time) {
	// Pattern-gated events transition to awaiting_pm before any KPI or
	// narrative work happens on them.
	remaining := batch[:0:0]
	for _, event := range batch {
		if r.routeToApproval(event, now, "") {
			continue
		}
		remaining = append(remaining, event)
	}
	if len(remaining) == 0 {
		return
	}

	// Verdicts are drawn up front (no KPI applied yet) so the narrative
	// call can describe the outcome it is narrating.
	verdicts := make(map[string]bool, len(remaining))
	inputs := make([]oracle.ResolutionInput, 0, len(remaining))
	for _, event := range remaining {
		modifier := ClashSuccessModifier(r.mapState, r.actorEntity(event.AgentID), event.ActionType, event.TargetZone)
		verdicts[event.ID] = r.engine.Draw(event.ActionType, event.Summary, modifier)
		inputs = append(inputs, oracle.ResolutionInput{
			EventID:    event.ID,
			AgentID:    event.AgentID,
			ActionType: event.ActionType,
			Summary:    event.Summary,
		})
	}

	outcomes := r.narrate(ctx, inputs, verdicts, now)

	for _, event := range remaining {
		outcome, ok := outcomes[event.ID]
		if ok && outcome.RequiresApproval && r.routeToApproval(event, now, outcome.Narrative) {
			continue
		}

		narrative := fallbackNarrative
		if ok && outcome.Narrative != "" {
			narrative = outcome.Narrative
		}
		r.commitResolution(event, verdicts[event.ID], narrative, now)
	}
}

// narrate runs the batched narrative oracle call. Oracle failure is a
// transient error: the cycle continues with fallback narratives.
func (r *Resolver) narrate(ctx context.Context, inputs []oracle.ResolutionInput, verdicts map[string]bool, now time.Time) map[string]oracle.ResolutionOutcome {
	var situations []string
	for _, sit := range r.state.ActiveSituations() {
		situations = append(situations, fmt.Sprintf("%s (%s, phase %s): %s",
			sit.ID, sit.Type, sit.CurrentPhase, sit.Description))
	}

	prompt := oracle.BuildResolutionPrompt(now.Format("2006-01-02 15:04"), situations, inputs, verdicts)
	raw, err := r.oracle.Complete(ctx, oracle.ResolutionSystemPrompt, prompt)
	if err != nil {
		r.log.Warn("narrative oracle unavailable, using fallback outcomes: %v", err)
		return nil
	}

	outcomes, err := oracle.ParseResolutionOutcomes(raw)
	if err != nil {
		r.log.Warn("narrative reply unusable, using fallback outcomes: %v", err)
		return nil
	}
	return outcomes
}

// routeToApproval screens one event against the approval patterns (and
// an optional oracle flag already decided by the caller). It returns
// true when the event left the pipeline for the approval queue.
func (r *Resolver) routeToApproval(event world.Event, now time.Time, narrative string) bool {
	profile, err := r.registry.Get(event.AgentID)
	if err != nil || !profile.IsReportingGovernment {
		return false
	}

	match := CheckApprovalRequired(event.ActionType, event.Summary)
	if match == nil && narrative == "" {
		return false
	}

	requestType := "oracle_flagged"
	urgency := "high"
	if match != nil {
		requestType = match.RequestType
		urgency = match.Urgency
	}

	if err := r.state.MarkAwaitingPM(event.ID); err != nil {
		r.log.Warn("could not gate event %s for approval: %v", event.ID, err)
		return false
	}

	approval := world.ApprovalRequest{
		ID:              world.NewApprovalID(),
		EventID:         event.ID,
		RequestType:     requestType,
		Summary:         event.Summary,
		RequestingAgent: event.AgentID,
		Timestamp:       now,
		Urgency:         urgency,
		Options:         defaultApprovalOptions(),
		Context:         narrative,
		Recommendation:  event.Reasoning,
		Status:          world.ApprovalPending,
	}
	r.state.AddApproval(approval)

	r.registry.AddMemory(event.AgentID, now, fmt.Sprintf(
		"[%s] Your action awaits the Prime Minister's decision: %s",
		now.Format("2006-01-02 15:04"), event.Summary))
	r.log.Event("approval_requested", event.AgentID, event.Summary)
	return true
}

// commitResolution applies the KPI outcome, the spatial clash effects
// and the linked resolution event, then fans out the result memory.
func (r *Resolver) commitResolution(event world.Event, success bool, narrative string, now time.Time) {
	actorEntity := r.actorEntity(event.AgentID)

	ruleOutcome := r.engine.ApplyVerdict(event.ActionType, event.Summary, r.kpis, success)
	clashEffects := r.engine.ApplyClashEffects(r.mapState, r.kpis, actorEntity, event.ActionType, event.TargetZone, event.Summary, now)

	resolution := world.Event{
		ID:               world.NewResolutionEventID(),
		Timestamp:        now,
		AgentID:          systemResolverID,
		ActionType:       event.ActionType,
		Summary:          narrative,
		IsPublic:         event.IsPublic,
		AffectedAgents:   event.AffectedAgents,
		ResolutionStatus: world.StatusResolved,
		ParentEventID:    event.ID,
	}
	if err := r.state.LinkResolution(event.ID, resolution, success); err != nil {
		r.log.Warn("resolution of %s not linked: %v", event.ID, err)
		return
	}
	metrics.Get().RecordEventResolved(success)
	r.emitGeoEvent(event, actorEntity, success, now)

	verdict := "FAILED"
	if success {
		verdict = "SUCCESS"
	}
	result := fmt.Sprintf("[%s] [RESULT] %s: %s (%s)",
		now.Format("2006-01-02 15:04"), event.Summary, narrative, verdict)
	r.registry.AddMemory(event.AgentID, now, result)
	for id := range agents.RelevantAgents(event.AgentID, event.AffectedAgents) {
		if _, err := r.registry.Get(id); err != nil {
			continue
		}
		r.registry.AddMemory(id, now, result)
	}

	if len(ruleOutcome.Changes) > 0 || len(clashEffects) > 0 {
		r.log.Info("event %s resolved (%s): %d KPI changes, %d clash effects",
			event.ID, verdict, len(ruleOutcome.Changes), len(clashEffects))
	}
}

// emitGeoEvent animates military resolutions that carry a target zone.
func (r *Resolver) emitGeoEvent(event world.Event, actorEntity string, success bool, now time.Time) {
	if event.ActionType != world.ActionMilitary || event.TargetZone == "" {
		return
	}
	spec := geo.GeoEventSpec{
		EventType:       geo.GeoAirStrike,
		SourceEventID:   event.ID,
		DestinationZone: event.TargetZone,
		ActorEntity:     actorEntity,
		Description:     event.Summary,
	}
	r.mapState.CreateGeoEvent(spec, now)
	if !success {
		// Failed strikes still animate, marked so the feed can render them.
		for _, ge := range r.mapState.ActiveGeoEvents() {
			if ge.SourceEventID == event.ID {
				r.mapState.UpdateGeoEventStatus(ge.ID, geo.GeoFailed)
			}
		}
	}
}

func (r *Resolver) archiveTerminalEvents(now time.Time) {
	removed := r.state.ArchiveExpired(now, r.archiveAfterMinutes)
	if len(removed) == 0 {
		return
	}
	metrics.Get().RecordEventsArchived(int64(len(removed)))
	if r.archive == nil {
		return
	}
	if err := r.archive.ArchiveEvents(removed); err != nil {
		// Best-effort durability: the live state stays authoritative.
		r.log.Error("archive write failed for %d events: %v", len(removed), err)
	}
}

func defaultApprovalOptions() []world.ApprovalOption {
	return []world.ApprovalOption{
		{ID: "approve", Label: "Approve"},
		{ID: "modify", Label: "Modify", Description: "Approve with adjusted scope"},
		{ID: "reject", Label: "Reject"},
	}
}

func (r *Resolver) actorEntity(agentID string) string {
	if profile, err := r.registry.Get(agentID); err == nil {
		return profile.EntityName
	}
	if entity, ok := agents.EntityForAgent(agentID); ok {
		return entity
	}
	return ""
}

// groupByActionType partitions events by action type, preserving both
// group discovery order and in-group event order.
func groupByActionType(events []world.Event) [][]world.Event {
	var order []string
	byType := make(map[string][]world.Event)
	for _, e := range events {
		if _, seen := byType[e.ActionType]; !seen {
			order = append(order, e.ActionType)
		}
		byType[e.ActionType] = append(byType[e.ActionType], e)
	}
	out := make([][]world.Event, 0, len(order))
	for _, t := range order {
		out = append(out, byType[t])
	}
	return out
}

// chunkEvents slices a group into fixed-size sub-batches.
func chunkEvents(events []world.Event, size int) [][]world.Event {
	var out [][]world.Event
	for len(events) > size {
		out = append(out, events[:size])
		events = events[size:]
	}
	if len(events) > 0 {
		out = append(out, events)
	}
	return out
}
