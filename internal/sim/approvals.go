package sim

import (
	"fmt"
	"time"

	"github.com/ziv044/PM1/internal/agents"
	"github.com/ziv044/PM1/internal/platform/logger"
	"github.com/ziv044/PM1/internal/world"
)

// PMAgentID is the synthetic actor for decisions made by the player.
// It never reports to itself, so follow-up events are not re-gated.
const PMAgentID = "PM-Player"

// ApprovalDecision is the result of deciding one request.
type ApprovalDecision struct {
	Request        world.ApprovalRequest `json:"request"`
	FollowUpEvent  world.Event           `json:"follow_up_event"`
	ScheduledEvent *world.ScheduledEvent `json:"scheduled_event,omitempty"`
}

// DecideApproval applies the PM's one-shot verdict on a pending request.
// It always produces exactly one follow-up event; approving with a
// future due time additionally produces exactly one scheduled event
// carrying the deferred execution.
func DecideApproval(state *world.State, registry *agents.Registry, id string, approve bool, dueTime *time.Time, now time.Time, log *logger.Logger) (ApprovalDecision, error) {
	req, err := state.DecideApproval(id, approve, now)
	if err != nil {
		return ApprovalDecision{}, fmt.Errorf("deciding approval %s: %w", id, err)
	}

	original, originalErr := state.GetEvent(req.EventID)
	actionType := world.ActionInternal
	if originalErr == nil {
		actionType = original.ActionType
	}

	terminal := world.StatusFailed
	if approve {
		terminal = world.StatusResolved
	}
	if err := state.ReleaseFromPM(req.EventID, terminal); err != nil {
		// The gated event may already be archived; the decision stands.
		log.Warn("approval %s: gated event %s not released: %v", id, req.EventID, err)
	}

	decision := ApprovalDecision{Request: req}
	deferred := approve && dueTime != nil && dueTime.After(now)

	followUp := world.Event{
		ID:             world.NewEventID(),
		Timestamp:      now,
		AgentID:        PMAgentID,
		ActionType:     actionType,
		IsPublic:       true,
		AffectedAgents: []string{req.RequestingAgent},
		ParentEventID:  req.EventID,
	}
	switch {
	case !approve:
		// Rejections are a record, not an action: nothing to resolve.
		followUp.Summary = fmt.Sprintf("The Prime Minister rejected: %s", req.Summary)
		followUp.ResolutionStatus = world.StatusResolved
	case deferred:
		followUp.Summary = fmt.Sprintf("The Prime Minister approved for later execution: %s", req.Summary)
		followUp.ResolutionStatus = world.StatusResolved
	default:
		// Immediate approvals re-enter the resolution pipeline.
		followUp.Summary = fmt.Sprintf("The Prime Minister approved: %s", req.Summary)
		followUp.ResolutionStatus = world.StatusImmediate
	}
	state.AddEvent(followUp)
	decision.FollowUpEvent = followUp

	if deferred {
		se := world.ScheduledEvent{
			ID:         world.NewScheduledEventID(),
			DueTime:    *dueTime,
			AgentID:    req.RequestingAgent,
			ActionType: actionType,
			Summary:    req.Summary,
			SourceID:   req.ID,
			Status:     world.ScheduledPending,
		}
		state.AddScheduledEvent(se)
		decision.ScheduledEvent = &se
	}

	verdict := "rejected"
	if approve {
		verdict = "approved"
	}
	registry.AddMemory(req.RequestingAgent, now, fmt.Sprintf(
		"[%s] [PM DECISION] The Prime Minister %s: %s",
		now.Format("2006-01-02 15:04"), verdict, req.Summary))
	log.Event("pm_decision", req.RequestingAgent, fmt.Sprintf("%s: %s", verdict, req.Summary))

	return decision, nil
}
