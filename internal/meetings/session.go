// Package meetings runs structured multi-party sessions: war cabinets,
// negotiations, leader talks and one-on-one briefings. A meeting pauses
// the simulation clock for its duration and can emit follow-up events
// when it concludes.
package meetings

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Meeting types.
const (
	TypeNegotiation    = "negotiation"
	TypeCabinetWarRoom = "cabinet_war_room"
	TypeLeaderTalk     = "leader_talk"
	TypeAgentTalk      = "agent_talk"
)

// Meeting lifecycle statuses.
const (
	StatusScheduled = "scheduled"
	StatusPending   = "pending"
	StatusActive    = "active"
	StatusPaused    = "paused"
	StatusConcluded = "concluded"
	StatusFailed    = "failed"
	StatusAborted   = "aborted"
)

// Participant roles.
const (
	RoleChair     = "chair"
	RolePrincipal = "principal"
	RoleAdvisor   = "advisor"
	RoleObserver  = "observer"
	RoleMediator  = "mediator"
)

// Turn action types a speaker can take.
const (
	TurnStatement      = "statement"
	TurnProposal       = "proposal"
	TurnCounteroffer   = "counteroffer"
	TurnDemand         = "demand"
	TurnAcceptance     = "acceptance"
	TurnRejection      = "rejection"
	TurnQuestion       = "question"
	TurnBriefing       = "briefing"
	TurnRecommendation = "recommendation"
	TurnDissent        = "dissent"
	TurnSilence        = "silence"
)

// Meeting request statuses.
const (
	RequestPending  = "pending"
	RequestApproved = "approved"
	RequestRejected = "rejected"
	RequestExpired  = "expired"
)

var (
	ErrMeetingNotFound  = errors.New("meetings: meeting not found")
	ErrMeetingNotActive = errors.New("meetings: meeting is not active")
	ErrAnotherActive    = errors.New("meetings: another meeting is already active")
	ErrNotStartable     = errors.New("meetings: meeting is not in a startable status")
	ErrRoundLimit       = errors.New("meetings: round limit reached")
	ErrUnknownType      = errors.New("meetings: unknown meeting type")
	ErrRequestNotFound  = errors.New("meetings: request not found")
)

// Participant is one seat at the table.
type Participant struct {
	AgentID            string `json:"agent_id"`
	Role               string `json:"role"`
	Entity             string `json:"entity"`
	InitialPosition    string `json:"initial_position"`
	CurrentPosition    string `json:"current_position"`
	HasSpokenThisRound bool   `json:"has_spoken_this_round"`
	TurnCount          int    `json:"turn_count"`
	IsPlayer           bool   `json:"is_player"`
}

// Turn is one utterance in the transcript.
type Turn struct {
	ID               string    `json:"turn_id"`
	Number           int       `json:"turn_number"`
	SpeakerAgentID   string    `json:"speaker_agent_id"`
	SpeakerRole      string    `json:"speaker_role"`
	Content          string    `json:"content"`
	ActionType       string    `json:"action_type"`
	Timestamp        time.Time `json:"timestamp"`
	IsPlayerInput    bool      `json:"is_player_input"`
	AddressedTo      []string  `json:"addressed_to"`
	PrivateReasoning string    `json:"private_reasoning"`
	EmotionalTone    string    `json:"emotional_tone"`
	PositionUpdate   string    `json:"position_update"`
}

// Agenda tracks the ordered discussion items.
type Agenda struct {
	Items            []string `json:"items"`
	CurrentItemIndex int      `json:"current_item_index"`
	ItemStatuses     []string `json:"item_statuses"`
}

// CurrentItem returns the item under discussion, or "" when exhausted.
func (a *Agenda) CurrentItem() string {
	if a == nil || a.CurrentItemIndex < 0 || a.CurrentItemIndex >= len(a.Items) {
		return ""
	}
	return a.Items[a.CurrentItemIndex]
}

// Outcome is the single record a concluded or aborted meeting leaves.
type Outcome struct {
	ID                  string   `json:"outcome_id"`
	MeetingID           string   `json:"meeting_id"`
	OutcomeType         string   `json:"outcome_type"`
	Summary             string   `json:"summary"`
	Agreements          []string `json:"agreements"`
	Commitments         []string `json:"commitments"`
	UnresolvedItems     []string `json:"unresolved_items"`
	FollowUpRequired    bool     `json:"follow_up_required"`
	FollowUpDetails     string   `json:"follow_up_details"`
	EventsGenerated     []string `json:"events_generated"`
	PMApprovalsRequired []string `json:"pm_approvals_required"`
}

// Session is a full meeting: seats, transcript and eventual outcome.
type Session struct {
	ID                  string        `json:"meeting_id"`
	Type                string        `json:"meeting_type"`
	Title               string        `json:"title"`
	Description         string        `json:"description"`
	Status              string        `json:"status"`
	CreatedAt           time.Time     `json:"created_at"`
	ScheduledGameTime   *time.Time    `json:"scheduled_game_time,omitempty"`
	StartedAt           *time.Time    `json:"started_at,omitempty"`
	EndedAt             *time.Time    `json:"ended_at,omitempty"`
	Participants        []Participant `json:"participants"`
	ChairAgentID        string        `json:"chair_agent_id"`
	Agenda              *Agenda       `json:"agenda,omitempty"`
	Turns               []Turn        `json:"turns"`
	CurrentRound        int           `json:"current_round"`
	MaxRounds           int           `json:"max_rounds"`
	MeetingContext      string        `json:"meeting_context"`
	CurrentStateSummary string        `json:"current_state_summary"`
	Stakes              string        `json:"stakes"`
	Outcome             *Outcome      `json:"outcome,omitempty"`
}

// ParticipantByID returns a pointer into the session's seat list.
func (s *Session) ParticipantByID(agentID string) *Participant {
	for i := range s.Participants {
		if s.Participants[i].AgentID == agentID {
			return &s.Participants[i]
		}
	}
	return nil
}

func (s *Session) resetRoundFlags() {
	for i := range s.Participants {
		s.Participants[i].HasSpokenThisRound = false
	}
}

// Transcript renders the turns as "Speaker (role): content" lines.
func (s *Session) Transcript() []string {
	lines := make([]string, 0, len(s.Turns))
	for _, t := range s.Turns {
		lines = append(lines, t.SpeakerAgentID+" ("+t.SpeakerRole+"): "+t.Content)
	}
	return lines
}

// Request is a proposal to hold a meeting, awaiting the PM's nod.
type Request struct {
	ID                    string     `json:"request_id"`
	MeetingType           string     `json:"meeting_type"`
	RequestedBy           string     `json:"requested_by"`
	Reason                string     `json:"reason"`
	Title                 string     `json:"title"`
	SuggestedParticipants []string   `json:"suggested_participants"`
	SuggestedAgenda       []string   `json:"suggested_agenda"`
	Urgency               string     `json:"urgency"`
	TriggerEventID        string     `json:"trigger_event_id"`
	Status                string     `json:"status"`
	CreatedAt             time.Time  `json:"created_at"`
	ExpiresAt             *time.Time `json:"expires_at,omitempty"`
}

// defaultSeat is a pre-assigned participant for a meeting type.
type defaultSeat struct {
	agentID string
	role    string
}

// typeConfig holds the per-type table rules.
type typeConfig struct {
	maxRounds    int
	chairAgentID string
	defaultSeats []defaultSeat
	requiresPM   bool
}

var meetingTypeConfigs = map[string]typeConfig{
	TypeCabinetWarRoom: {
		maxRounds:    8,
		chairAgentID: "PM",
		defaultSeats: []defaultSeat{
			{"Defense-Minister", RolePrincipal},
			{"Head-Of-Mossad", RoleAdvisor},
			{"Head-Of-Shabak", RoleAdvisor},
			{"IDF-Commander", RoleAdvisor},
			{"Treasury-Minister", RolePrincipal},
		},
		requiresPM: true,
	},
	TypeNegotiation: {
		maxRounds: 12,
	},
	TypeLeaderTalk: {
		maxRounds:  6,
		requiresPM: true,
	},
	TypeAgentTalk: {
		maxRounds:    5,
		chairAgentID: "PM",
		requiresPM:   true,
	},
}

// roleRules is what each seat is told about how to behave.
var roleRules = map[string]string{
	RoleChair:     "You chair this meeting. Keep discussion on the agenda, give others the floor, and drive toward decisions.",
	RolePrincipal: "You are a principal with decision authority. State positions clearly and commit your organization when you agree.",
	RoleAdvisor:   "You advise the principals. Brief them with facts and professional recommendations; you do not decide.",
	RoleObserver:  "You observe. Speak only if directly addressed.",
	RoleMediator:  "You mediate between the sides. Stay neutral, reframe demands, and look for common ground.",
}

// RoleRule returns the behavior text for a role.
func RoleRule(role string) string {
	return roleRules[role]
}

// autoTriggerRule converts a matching event into a meeting request.
type autoTriggerRule struct {
	name        string
	keywords    []string
	actionTypes []string
	meetingType string
	urgency     string
	reason      string
}

var autoTriggerRules = []autoTriggerRule{
	{
		name:        "hostage_escalation",
		keywords:    []string{"hostage", "captive", "kidnapped"},
		actionTypes: []string{"military", "intelligence"},
		meetingType: TypeNegotiation,
		urgency:     "high",
		reason:      "Hostage situation requires coordinated response",
	},
	{
		name:        "ceasefire_proposal",
		keywords:    []string{"ceasefire", "truce", "pause", "humanitarian"},
		actionTypes: []string{"diplomatic"},
		meetingType: TypeNegotiation,
		urgency:     "high",
		reason:      "Ceasefire proposal on the table",
	},
	{
		name:        "major_military_decision",
		keywords:    []string{"invasion", "ground operation", "major offensive", "airstrike campaign"},
		actionTypes: []string{"military"},
		meetingType: TypeCabinetWarRoom,
		urgency:     "immediate",
		reason:      "Major military decision needs cabinet deliberation",
	},
	{
		name:        "foreign_leader_request",
		keywords:    []string{"requests meeting", "proposes talks", "seeks dialogue"},
		actionTypes: []string{"diplomatic"},
		meetingType: TypeLeaderTalk,
		urgency:     "normal",
		reason:      "Foreign leader seeks direct talks",
	},
	{
		name:        "critical_intel",
		keywords:    []string{"critical intelligence", "urgent intel", "breakthrough discovery"},
		actionTypes: []string{"intelligence"},
		meetingType: TypeAgentTalk,
		urgency:     "high",
		reason:      "Critical intelligence requires immediate briefing",
	},
}

func (r autoTriggerRule) matches(actionType, summary string) bool {
	typed := false
	for _, at := range r.actionTypes {
		if at == actionType {
			typed = true
			break
		}
	}
	if !typed {
		return false
	}
	lower := strings.ToLower(summary)
	for _, kw := range r.keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

func shortID() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")[:8]
}

func NewMeetingID() string { return "mtg_" + shortID() }
func NewOutcomeID() string { return "out_" + shortID() }
func NewTurnID() string    { return "turn_" + shortID() }
func NewRequestID() string { return "req_" + shortID() }
