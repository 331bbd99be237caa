// Package world owns the simulation event log, ongoing situations, the PM
// approval queue and time-scheduled events. All mutation goes through
// WorldState, which guards the whole read-modify-write with one mutex.
package world

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Resolution lifecycle of an Event.
const (
	StatusImmediate  = "immediate"
	StatusPending    = "pending"
	StatusResolved   = "resolved"
	StatusFailed     = "failed"
	StatusAwaitingPM = "awaiting_pm"
)

// Action types produced by the decision oracle.
const (
	ActionDiplomatic   = "diplomatic"
	ActionMilitary     = "military"
	ActionEconomic     = "economic"
	ActionIntelligence = "intelligence"
	ActionInternal     = "internal"
	ActionNone         = "none"
)

// PendingData annotates an event that resolves after a delay.
type PendingData struct {
	PendingType     string `json:"pending_type"`
	ExpectedMinutes int    `json:"expected_minutes"`
}

// Event is one timestamped action in the simulation.
// Once ResolutionEventID is set the event is immutable: the resolver's
// selection filter never returns it again.
type Event struct {
	ID                string       `json:"event_id"`
	Timestamp         time.Time    `json:"timestamp"`
	AgentID           string       `json:"agent_id"`
	ActionType        string       `json:"action_type"`
	Summary           string       `json:"summary"`
	IsPublic          bool         `json:"is_public"`
	AffectedAgents    []string     `json:"affected_agents"`
	Reasoning         string       `json:"reasoning,omitempty"`
	ResolutionStatus  string       `json:"resolution_status"`
	ParentEventID     string       `json:"parent_event_id,omitempty"`
	ResolutionEventID string       `json:"resolution_event_id,omitempty"`
	Pending           *PendingData `json:"pending_data,omitempty"`
	TargetZone        string       `json:"target_zone,omitempty"`
	RelocateTo        string       `json:"relocate_to,omitempty"`
}

// OngoingSituation spans time: a siege, negotiation, intel op or blockade.
type OngoingSituation struct {
	ID                    string                   `json:"situation_id"`
	Type                  string                   `json:"situation_type"`
	CreatedAt             time.Time                `json:"created_at"`
	ExpectedDurationMin   int                      `json:"expected_duration_minutes"`
	CurrentPhase          string                   `json:"current_phase"`
	InitiatingAgent       string                   `json:"initiating_agent"`
	ParticipatingEntities []string                 `json:"participating_entities"`
	Description           string                   `json:"description"`
	CumulativeEffects     []map[string]interface{} `json:"cumulative_effects"`
	ParentEventID         string                   `json:"parent_event_id"`
	LastUpdated           time.Time                `json:"last_updated"`
}

// Situation phases, monotonically advancing with virtual time.
const (
	PhaseInitiated = "initiated"
	PhaseActive    = "active"
	PhaseResolving = "resolving"
	PhaseCompleted = "completed"
	PhaseFailed    = "failed"
)

// ApprovalOption is one of the choices presented to the PM.
type ApprovalOption struct {
	ID          string `json:"id"`
	Label       string `json:"label"`
	Description string `json:"description,omitempty"`
}

// ApprovalRequest is a human-in-the-loop gate on a high-impact event.
type ApprovalRequest struct {
	ID              string           `json:"approval_id"`
	EventID         string           `json:"event_id"`
	RequestType     string           `json:"request_type"`
	Summary         string           `json:"summary"`
	RequestingAgent string           `json:"requesting_agent"`
	Timestamp       time.Time        `json:"timestamp"`
	Urgency         string           `json:"urgency"`
	Options         []ApprovalOption `json:"options"`
	Context         string           `json:"context,omitempty"`
	Recommendation  string           `json:"recommendation,omitempty"`
	Status          string           `json:"status"`
	PMDecision      string           `json:"pm_decision,omitempty"`
	PMDecisionTime  *time.Time       `json:"pm_decision_time,omitempty"`
}

// Approval statuses.
const (
	ApprovalPending  = "pending"
	ApprovalApproved = "approved"
	ApprovalRejected = "rejected"
)

// ScheduledEvent is a deferred action injected by the resolver once due.
type ScheduledEvent struct {
	ID         string    `json:"scheduled_event_id"`
	DueTime    time.Time `json:"due_time"`
	AgentID    string    `json:"agent_id"`
	ActionType string    `json:"action_type"`
	Summary    string    `json:"summary"`
	SourceID   string    `json:"source_approval_id,omitempty"`
	Status     string    `json:"status"`
}

// Scheduled event statuses.
const (
	ScheduledPending   = "pending"
	ScheduledTriggered = "triggered"
	ScheduledCancelled = "cancelled"
)

// NewEventID mints an event id in the evt_xxxxxxxx shape.
func NewEventID() string {
	return "evt_" + shortID()
}

// NewResolutionEventID mints a resolution event id.
func NewResolutionEventID() string {
	return "res_" + shortID()
}

// NewApprovalID mints an approval request id.
func NewApprovalID() string {
	return "apr_" + shortID()
}

// NewScheduledEventID mints a scheduled event id.
func NewScheduledEventID() string {
	return "sch_" + shortID()
}

// NewSituationID mints an ongoing situation id.
func NewSituationID() string {
	return "sit_" + shortID()
}

func shortID() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")[:8]
}

// normalize applies forward-compatible defaults after deserialization.
func (e *Event) normalize() {
	if e.ResolutionStatus == "" {
		e.ResolutionStatus = StatusImmediate
	}
	if e.AffectedAgents == nil {
		e.AffectedAgents = []string{}
	}
}

func (s *OngoingSituation) normalize() {
	if s.CurrentPhase == "" {
		s.CurrentPhase = PhaseInitiated
	}
	if s.ParticipatingEntities == nil {
		s.ParticipatingEntities = []string{}
	}
	if s.CumulativeEffects == nil {
		s.CumulativeEffects = []map[string]interface{}{}
	}
}

func (a *ApprovalRequest) normalize() {
	if a.Status == "" {
		a.Status = ApprovalPending
	}
	if a.Options == nil {
		a.Options = []ApprovalOption{}
	}
}

func (s *ScheduledEvent) normalize() {
	if s.Status == "" {
		s.Status = ScheduledPending
	}
}
