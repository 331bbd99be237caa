package meetings

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ziv044/PM1/internal/agents"
	"github.com/ziv044/PM1/internal/infra/oracle"
	"github.com/ziv044/PM1/internal/platform/logger"
	"github.com/ziv044/PM1/internal/platform/metrics"
	"github.com/ziv044/PM1/internal/world"
)

// PlayerChairID is the seat the human player occupies.
const PlayerChairID = "PM"

// abortedOutcomeSummary is the canned record an aborted meeting leaves.
const abortedOutcomeSummary = "Meeting was aborted by the player without reaching any conclusions."

// requestTTL is how much game time a pending request stays actionable.
const requestTTL = 2 * time.Hour

// Completer is the oracle dependency; satisfied by oracle.Service.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// GameClock yields the current simulated time.
type GameClock interface {
	Now() time.Time
}

// Orchestrator owns every meeting and request of one game.
type Orchestrator struct {
	state    *world.State
	registry *agents.Registry
	oracle   Completer
	clock    GameClock
	log      *logger.Logger

	mu       sync.Mutex
	sessions []*Session
	requests []*Request
	activeID string
}

// NewOrchestrator wires a meeting orchestrator over the shared state.
func NewOrchestrator(state *world.State, registry *agents.Registry, completer Completer, clock GameClock, log *logger.Logger) *Orchestrator {
	return &Orchestrator{
		state:    state,
		registry: registry,
		oracle:   completer,
		clock:    clock,
		log:      log,
	}
}

// Create registers a new meeting in scheduled status. An empty seat
// list falls back to the type's default table; the player chair is
// always seated when the type requires the PM.
func (o *Orchestrator) Create(meetingType, title, description string, seats []Participant, agendaItems []string, scheduledGameTime *time.Time) (*Session, error) {
	cfg, ok := meetingTypeConfigs[meetingType]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, meetingType)
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	s := &Session{
		ID:                NewMeetingID(),
		Type:              meetingType,
		Title:             title,
		Description:       description,
		Status:            StatusScheduled,
		CreatedAt:         o.clock.Now(),
		ScheduledGameTime: scheduledGameTime,
		MaxRounds:         cfg.maxRounds,
	}

	if len(seats) == 0 {
		for _, seat := range cfg.defaultSeats {
			seats = append(seats, Participant{AgentID: seat.agentID, Role: seat.role})
		}
	}
	for _, seat := range seats {
		o.seatParticipant(s, seat)
	}
	if cfg.requiresPM && s.ParticipantByID(PlayerChairID) == nil {
		o.seatParticipant(s, Participant{AgentID: PlayerChairID, Role: RoleChair, Entity: "Israel", IsPlayer: true})
	}
	if cfg.chairAgentID != "" {
		s.ChairAgentID = cfg.chairAgentID
	} else if len(s.Participants) > 0 {
		s.ChairAgentID = s.Participants[0].AgentID
	}

	if len(agendaItems) > 0 {
		s.Agenda = &Agenda{Items: agendaItems, ItemStatuses: make([]string, len(agendaItems))}
		for i := range s.Agenda.ItemStatuses {
			s.Agenda.ItemStatuses[i] = "pending"
		}
	}

	o.sessions = append(o.sessions, s)
	o.log.Event("meeting_created", s.ID, fmt.Sprintf("%s: %s", meetingType, title))
	return s, nil
}

func (o *Orchestrator) seatParticipant(s *Session, seat Participant) {
	if seat.AgentID == "" || s.ParticipantByID(seat.AgentID) != nil {
		return
	}
	if seat.Role == "" {
		seat.Role = RolePrincipal
	}
	if profile, err := o.registry.Get(seat.AgentID); err == nil {
		if seat.Entity == "" {
			seat.Entity = profile.EntityName
		}
		if seat.InitialPosition == "" {
			seat.InitialPosition = profile.Description
		}
	}
	if seat.CurrentPosition == "" {
		seat.CurrentPosition = seat.InitialPosition
	}
	s.Participants = append(s.Participants, seat)
}

// Start activates a scheduled or pending meeting and pauses the
// simulation for its duration. Only one meeting may run at a time.
func (o *Orchestrator) Start(id string) (*Session, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	s := o.findLocked(id)
	if s == nil {
		return nil, fmt.Errorf("%w: %s", ErrMeetingNotFound, id)
	}
	if o.activeID != "" && o.activeID != id {
		return nil, fmt.Errorf("%w: %s", ErrAnotherActive, o.activeID)
	}
	if s.Status != StatusScheduled && s.Status != StatusPending {
		return nil, fmt.Errorf("%w: %s is %s", ErrNotStartable, id, s.Status)
	}

	now := o.clock.Now()
	s.Status = StatusActive
	s.StartedAt = &now
	o.activeID = id
	o.state.SetPausedForMeeting(id)
	metrics.Get().RecordMeetingStarted()
	o.log.Event("meeting_started", id, s.Title)
	return s, nil
}

// Pause suspends an active meeting without ending it. The simulation
// stays paused until the meeting concludes or aborts.
func (o *Orchestrator) Pause(id string) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	s := o.findLocked(id)
	if s == nil {
		return fmt.Errorf("%w: %s", ErrMeetingNotFound, id)
	}
	if s.Status != StatusActive {
		return fmt.Errorf("%w: %s is %s", ErrMeetingNotActive, id, s.Status)
	}
	s.Status = StatusPaused
	return nil
}

// Resume reactivates a paused meeting.
func (o *Orchestrator) Resume(id string) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	s := o.findLocked(id)
	if s == nil {
		return fmt.Errorf("%w: %s", ErrMeetingNotFound, id)
	}
	if s.Status != StatusPaused {
		return fmt.Errorf("%w: %s is %s", ErrMeetingNotActive, id, s.Status)
	}
	s.Status = StatusActive
	return nil
}

// AdvanceRound runs one speaking round: every eligible seat gets one
// oracle-driven turn, in the order the meeting type prescribes. The
// round counter is bounded by the type's max rounds.
func (o *Orchestrator) AdvanceRound(ctx context.Context, id string) ([]Turn, error) {
	o.mu.Lock()
	s := o.findLocked(id)
	if s == nil {
		o.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrMeetingNotFound, id)
	}
	if s.Status != StatusActive {
		o.mu.Unlock()
		return nil, fmt.Errorf("%w: %s is %s", ErrMeetingNotActive, id, s.Status)
	}
	if s.CurrentRound >= s.MaxRounds {
		o.mu.Unlock()
		return nil, fmt.Errorf("%w: %d rounds played", ErrRoundLimit, s.CurrentRound)
	}
	s.CurrentRound++
	s.resetRoundFlags()
	order := speakingOrder(s)
	o.mu.Unlock()

	var round []Turn
	for _, agentID := range order {
		turn, err := o.speakTurn(ctx, s, agentID)
		if err != nil {
			o.log.Warn("meeting %s: turn for %s skipped: %v", id, agentID, err)
			continue
		}
		round = append(round, turn)
	}
	return round, nil
}

// speakingOrder lists the non-player seats in the order they talk.
// War cabinets hear advisors before principals; negotiations let the
// mediators frame the round before the principals respond.
func speakingOrder(s *Session) []string {
	var first, second []string
	for _, p := range s.Participants {
		if p.IsPlayer || p.Role == RoleObserver {
			continue
		}
		switch s.Type {
		case TypeCabinetWarRoom:
			if p.Role == RoleAdvisor {
				first = append(first, p.AgentID)
			} else {
				second = append(second, p.AgentID)
			}
		case TypeNegotiation:
			if p.Role == RoleMediator {
				first = append(first, p.AgentID)
			} else {
				second = append(second, p.AgentID)
			}
		default:
			first = append(first, p.AgentID)
		}
	}
	return append(first, second...)
}

func (o *Orchestrator) speakTurn(ctx context.Context, s *Session, agentID string) (Turn, error) {
	o.mu.Lock()
	seat := s.ParticipantByID(agentID)
	if seat == nil {
		o.mu.Unlock()
		return Turn{}, fmt.Errorf("no seat for %s", agentID)
	}
	roster := make([]string, 0, len(s.Participants))
	for _, p := range s.Participants {
		roster = append(roster, fmt.Sprintf("%s (%s, %s)", p.AgentID, p.Role, p.Entity))
	}
	tc := oracle.MeetingTurnContext{
		Speaker:         agentID,
		Role:            seat.Role,
		RoleRule:        RoleRule(seat.Role),
		MeetingType:     s.Type,
		Title:           s.Title,
		GameTime:        o.clock.Now().Format("2006-01-02 15:04"),
		Round:           s.CurrentRound,
		MaxRounds:       s.MaxRounds,
		Participants:    roster,
		AgendaItem:      s.Agenda.CurrentItem(),
		InitialPosition: seat.InitialPosition,
		CurrentPosition: seat.CurrentPosition,
		Transcript:      s.Transcript(),
	}
	for _, m := range o.registry.MemoryTail(agentID, 5) {
		tc.Memories = append(tc.Memories, m.Text)
	}
	o.mu.Unlock()

	start := time.Now()
	raw, err := o.oracle.Complete(ctx, oracle.MeetingTurnSystemPrompt, oracle.BuildMeetingTurnPrompt(tc))
	if err != nil {
		return Turn{}, err
	}
	reply, err := oracle.ParseMeetingTurn(raw)
	if err != nil {
		return Turn{}, err
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	turn := Turn{
		ID:               NewTurnID(),
		Number:           len(s.Turns) + 1,
		SpeakerAgentID:   agentID,
		SpeakerRole:      seat.Role,
		Content:          reply.Content,
		ActionType:       reply.ActionType,
		Timestamp:        o.clock.Now(),
		AddressedTo:      reply.AddressedTo,
		PrivateReasoning: reply.PrivateReasoning,
		EmotionalTone:    reply.EmotionalTone,
		PositionUpdate:   reply.PositionUpdate,
	}
	s.Turns = append(s.Turns, turn)
	seat.HasSpokenThisRound = true
	seat.TurnCount++
	if reply.PositionUpdate != "" {
		seat.CurrentPosition = reply.PositionUpdate
	}
	metrics.Get().RecordMeetingTurn()
	o.log.Info("meeting %s round %d: %s spoke (%s, %s)", s.ID, s.CurrentRound, agentID, turn.ActionType, time.Since(start).Round(time.Millisecond))
	return turn, nil
}

// PlayerInterject appends the player's own words to the transcript.
// No oracle call is made for player input.
func (o *Orchestrator) PlayerInterject(id, content string, addressedTo []string) (Turn, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	s := o.findLocked(id)
	if s == nil {
		return Turn{}, fmt.Errorf("%w: %s", ErrMeetingNotFound, id)
	}
	if s.Status != StatusActive {
		return Turn{}, fmt.Errorf("%w: %s is %s", ErrMeetingNotActive, id, s.Status)
	}

	role := RoleChair
	if seat := s.ParticipantByID(PlayerChairID); seat != nil {
		role = seat.Role
		seat.HasSpokenThisRound = true
		seat.TurnCount++
	}
	turn := Turn{
		ID:             NewTurnID(),
		Number:         len(s.Turns) + 1,
		SpeakerAgentID: PlayerChairID,
		SpeakerRole:    role,
		Content:        content,
		ActionType:     TurnStatement,
		Timestamp:      o.clock.Now(),
		IsPlayerInput:  true,
		AddressedTo:    addressedTo,
		EmotionalTone:  "neutral",
	}
	s.Turns = append(s.Turns, turn)
	metrics.Get().RecordMeetingTurn()
	return turn, nil
}

// Conclude ends a meeting, distills the transcript into exactly one
// outcome, turns its decisions into events, and resumes the clock.
// Force allows concluding a paused meeting.
func (o *Orchestrator) Conclude(ctx context.Context, id string, force bool) (*Outcome, error) {
	o.mu.Lock()
	s := o.findLocked(id)
	if s == nil {
		o.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrMeetingNotFound, id)
	}
	if s.Status != StatusActive && !(force && s.Status == StatusPaused) {
		o.mu.Unlock()
		return nil, fmt.Errorf("%w: %s is %s", ErrMeetingNotActive, id, s.Status)
	}
	agenda := s.describeAgenda()
	transcript := s.Transcript()
	meetingType := s.Type
	o.mu.Unlock()

	reply := o.extractOutcome(ctx, meetingType, agenda, transcript)

	o.mu.Lock()
	defer o.mu.Unlock()

	now := o.clock.Now()
	outcome := &Outcome{
		ID:          NewOutcomeID(),
		MeetingID:   s.ID,
		OutcomeType: "concluded",
		Summary:     reply.Summary,
	}
	for _, d := range reply.Decisions {
		if d.Summary == "" {
			continue
		}
		responsible := d.ResponsibleAgent
		if responsible == "" {
			responsible = s.ChairAgentID
		}
		e := world.Event{
			ID:               world.NewEventID(),
			Timestamp:        now,
			AgentID:          responsible,
			ActionType:       normalizeActionType(d.ActionType),
			Summary:          d.Summary,
			IsPublic:         true,
			AffectedAgents:   d.AffectedAgents,
			Reasoning:        fmt.Sprintf("Decided in meeting %q", s.Title),
			ResolutionStatus: world.StatusImmediate,
		}
		o.state.AddEvent(e)
		metrics.Get().RecordEventCreated()
		outcome.EventsGenerated = append(outcome.EventsGenerated, e.ID)
		outcome.Commitments = append(outcome.Commitments, fmt.Sprintf("%s: %s", responsible, d.Summary))
	}

	s.Outcome = outcome
	s.Status = StatusConcluded
	s.EndedAt = &now
	o.finishLocked(s, now)
	metrics.Get().RecordMeetingResolved()
	o.log.Event("meeting_concluded", s.ID, fmt.Sprintf("%d decisions", len(outcome.EventsGenerated)))
	return outcome, nil
}

// extractOutcome asks the oracle to distill the transcript. A failed
// or malformed call degrades to a summary-only outcome.
func (o *Orchestrator) extractOutcome(ctx context.Context, meetingType, agenda string, transcript []string) *oracle.MeetingOutcomeReply {
	fallback := &oracle.MeetingOutcomeReply{Summary: "The meeting adjourned without a recorded resolution."}
	if len(transcript) == 0 {
		return fallback
	}
	raw, err := o.oracle.Complete(ctx, oracle.MeetingOutcomeSystemPrompt, oracle.BuildMeetingOutcomePrompt(meetingType, agenda, transcript))
	if err != nil {
		o.log.Warn("meeting outcome extraction failed: %v", err)
		return fallback
	}
	reply, err := oracle.ParseMeetingOutcome(raw)
	if err != nil {
		o.log.Warn("meeting outcome reply unusable: %v", err)
		return fallback
	}
	if reply.Summary == "" {
		reply.Summary = fallback.Summary
	}
	return reply
}

// Abort ends a meeting on the player's order. It leaves a canned
// outcome and generates nothing.
func (o *Orchestrator) Abort(id string) (*Outcome, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	s := o.findLocked(id)
	if s == nil {
		return nil, fmt.Errorf("%w: %s", ErrMeetingNotFound, id)
	}
	if s.Status != StatusActive && s.Status != StatusPaused {
		return nil, fmt.Errorf("%w: %s is %s", ErrMeetingNotActive, id, s.Status)
	}

	now := o.clock.Now()
	outcome := &Outcome{
		ID:          NewOutcomeID(),
		MeetingID:   s.ID,
		OutcomeType: "aborted",
		Summary:     abortedOutcomeSummary,
	}
	s.Outcome = outcome
	s.Status = StatusAborted
	s.EndedAt = &now
	o.finishLocked(s, now)
	metrics.Get().RecordMeetingResolved()
	o.log.Event("meeting_aborted", s.ID, s.Title)
	return outcome, nil
}

// finishLocked clears the active slot and the global pause flag, and
// tells every non-player seat how it ended.
func (o *Orchestrator) finishLocked(s *Session, now time.Time) {
	if o.activeID == s.ID {
		o.activeID = ""
		o.state.ClearPausedForMeeting()
	}
	if s.Outcome == nil {
		return
	}
	note := fmt.Sprintf("[%s] [MEETING] %q ended: %s", now.Format("2006-01-02 15:04"), s.Title, s.Outcome.Summary)
	for _, p := range s.Participants {
		if p.IsPlayer {
			continue
		}
		o.registry.AddMemory(p.AgentID, now, note)
	}
}

// CheckAutoTriggers inspects one world event against the standing
// trigger rules and files at most one meeting request. A pending
// request of the same meeting type suppresses new ones.
func (o *Orchestrator) CheckAutoTriggers(e world.Event) *Request {
	o.mu.Lock()
	defer o.mu.Unlock()

	for _, rule := range autoTriggerRules {
		if !rule.matches(e.ActionType, e.Summary) {
			continue
		}
		if o.hasPendingRequestLocked(rule.meetingType) {
			return nil
		}
		now := o.clock.Now()
		expires := now.Add(requestTTL)
		req := &Request{
			ID:                    NewRequestID(),
			MeetingType:           rule.meetingType,
			RequestedBy:           e.AgentID,
			Reason:                rule.reason,
			Title:                 fmt.Sprintf("%s: %s", rule.reason, truncate(e.Summary, 80)),
			SuggestedParticipants: suggestedParticipants(rule.meetingType, e.AgentID),
			SuggestedAgenda:       []string{e.Summary},
			Urgency:               rule.urgency,
			TriggerEventID:        e.ID,
			Status:                RequestPending,
			CreatedAt:             now,
			ExpiresAt:             &expires,
		}
		o.requests = append(o.requests, req)
		o.log.Event("meeting_requested", req.ID, fmt.Sprintf("%s (%s)", rule.name, rule.urgency))
		return req
	}
	return nil
}

func (o *Orchestrator) hasPendingRequestLocked(meetingType string) bool {
	for _, r := range o.requests {
		if r.Status == RequestPending && r.MeetingType == meetingType {
			return true
		}
	}
	return false
}

func suggestedParticipants(meetingType, requester string) []string {
	seen := map[string]bool{}
	var out []string
	for _, seat := range meetingTypeConfigs[meetingType].defaultSeats {
		seen[seat.agentID] = true
		out = append(out, seat.agentID)
	}
	if requester != "" && !seen[requester] && !strings.HasPrefix(requester, "System-") {
		out = append(out, requester)
	}
	return out
}

// ApproveRequest converts a pending request into a scheduled meeting.
func (o *Orchestrator) ApproveRequest(id string) (*Session, error) {
	o.mu.Lock()
	req := o.findRequestLocked(id)
	if req == nil {
		o.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrRequestNotFound, id)
	}
	if req.Status != RequestPending {
		o.mu.Unlock()
		return nil, fmt.Errorf("meetings: request %s is %s", id, req.Status)
	}
	req.Status = RequestApproved
	var seats []Participant
	for _, agentID := range req.SuggestedParticipants {
		seats = append(seats, Participant{AgentID: agentID})
	}
	meetingType, title, reason, agenda := req.MeetingType, req.Title, req.Reason, req.SuggestedAgenda
	o.mu.Unlock()

	return o.Create(meetingType, title, reason, seats, agenda, nil)
}

// RejectRequest declines a pending request.
func (o *Orchestrator) RejectRequest(id string) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	req := o.findRequestLocked(id)
	if req == nil {
		return fmt.Errorf("%w: %s", ErrRequestNotFound, id)
	}
	if req.Status != RequestPending {
		return fmt.Errorf("meetings: request %s is %s", id, req.Status)
	}
	req.Status = RequestRejected
	return nil
}

// ExpireRequests lapses pending requests past their deadline.
func (o *Orchestrator) ExpireRequests(now time.Time) int {
	o.mu.Lock()
	defer o.mu.Unlock()

	var n int
	for _, r := range o.requests {
		if r.Status == RequestPending && r.ExpiresAt != nil && now.After(*r.ExpiresAt) {
			r.Status = RequestExpired
			n++
		}
	}
	return n
}

// Get returns one meeting by id.
func (o *Orchestrator) Get(id string) (*Session, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if s := o.findLocked(id); s != nil {
		return s, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrMeetingNotFound, id)
}

// Sessions returns every meeting, oldest first.
func (o *Orchestrator) Sessions() []*Session {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]*Session, len(o.sessions))
	copy(out, o.sessions)
	return out
}

// PendingRequests returns requests still awaiting the player.
func (o *Orchestrator) PendingRequests() []*Request {
	o.mu.Lock()
	defer o.mu.Unlock()
	var out []*Request
	for _, r := range o.requests {
		if r.Status == RequestPending {
			out = append(out, r)
		}
	}
	return out
}

// ActiveMeetingID returns the running meeting's id, or "".
func (o *Orchestrator) ActiveMeetingID() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.activeID
}

// Snapshot is the persisted shape of the orchestrator.
type Snapshot struct {
	Meetings        []*Session `json:"meetings"`
	Requests        []*Request `json:"requests"`
	ActiveMeetingID string     `json:"active_meeting_id"`
}

// Export captures the full meeting state for persistence.
func (o *Orchestrator) Export() Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()
	snap := Snapshot{
		Meetings:        make([]*Session, len(o.sessions)),
		Requests:        make([]*Request, len(o.requests)),
		ActiveMeetingID: o.activeID,
	}
	copy(snap.Meetings, o.sessions)
	copy(snap.Requests, o.requests)
	return snap
}

// Restore replaces the orchestrator's state from a snapshot. An
// active meeting re-arms the global pause flag.
func (o *Orchestrator) Restore(snap Snapshot) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.sessions = snap.Meetings
	o.requests = snap.Requests
	o.activeID = snap.ActiveMeetingID
	if o.activeID != "" {
		o.state.SetPausedForMeeting(o.activeID)
	}
}

func (o *Orchestrator) findLocked(id string) *Session {
	for _, s := range o.sessions {
		if s.ID == id {
			return s
		}
	}
	return nil
}

func (o *Orchestrator) findRequestLocked(id string) *Request {
	for _, r := range o.requests {
		if r.ID == id {
			return r
		}
	}
	return nil
}

func (s *Session) describeAgenda() string {
	if s.Agenda == nil || len(s.Agenda.Items) == 0 {
		return s.Description
	}
	return strings.Join(s.Agenda.Items, "; ")
}

func normalizeActionType(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case world.ActionDiplomatic, world.ActionMilitary, world.ActionEconomic, world.ActionIntelligence, world.ActionInternal:
		return strings.ToLower(strings.TrimSpace(raw))
	default:
		return world.ActionInternal
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
