package world

import (
	"errors"
	"sync"
	"time"
)

// Sentinel errors returned to the orchestration layer.
var (
	ErrNotFound        = errors.New("world: not found")
	ErrAlreadyResolved = errors.New("world: event already has a resolution")
	ErrAlreadyDecided  = errors.New("world: approval already decided")
	ErrNotPending      = errors.New("world: scheduled event is not pending")
)

// State owns events, situations, approvals and scheduled events.
// A single mutex covers every read-modify-write sequence.
type State struct {
	mu sync.Mutex

	events          []Event
	agentLastAction map[string]time.Time
	situations      []OngoingSituation
	approvals       []ApprovalRequest
	scheduled       []ScheduledEvent

	pausedForMeeting bool
	activeMeetingID  string
}

// NewState creates an empty world state.
func NewState() *State {
	return &State{
		agentLastAction: make(map[string]time.Time),
	}
}

// AddEvent appends an event in creation order.
func (s *State) AddEvent(e Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e.normalize()
	s.events = append(s.events, e)
	s.agentLastAction[e.AgentID] = e.Timestamp
}

// GetEvent returns a copy of the event with the given id.
func (s *State) GetEvent(id string) (Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.events {
		if s.events[i].ID == id {
			return s.events[i], nil
		}
	}
	return Event{}, ErrNotFound
}

// RecentEvents returns up to limit most recent events, optionally public only.
func (s *State) RecentEvents(limit int, publicOnly bool) []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Event, 0, limit)
	for i := range s.events {
		if publicOnly && !s.events[i].IsPublic {
			continue
		}
		out = append(out, s.events[i])
	}
	if len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out
}

// EventCount returns the number of live events.
func (s *State) EventCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

// UnresolvedBatch selects events awaiting resolution, bounded to the most
// recent limit entries. The filter structurally prevents double resolution:
// anything with a resolution event linked, a terminal status, or the "none"
// action never comes back.
func (s *State) UnresolvedBatch(limit int) []Event {
	s.mu.Lock()
	defer s.mu.Unlock()

	var batch []Event
	for i := range s.events {
		e := &s.events[i]
		if e.ActionType == ActionNone {
			continue
		}
		if e.ResolutionStatus != StatusImmediate && e.ResolutionStatus != StatusPending {
			continue
		}
		if e.ResolutionEventID != "" {
			continue
		}
		batch = append(batch, *e)
	}
	if len(batch) > limit {
		batch = batch[len(batch)-limit:]
	}
	return batch
}

// LinkResolution writes the resolution event and marks the original
// resolved or failed. The link is set exactly once; a second attempt is an
// error and mutates nothing.
func (s *State) LinkResolution(originalID string, resolution Event, success bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.events {
		if s.events[i].ID != originalID {
			continue
		}
		if s.events[i].ResolutionEventID != "" {
			return ErrAlreadyResolved
		}
		s.events[i].ResolutionEventID = resolution.ID
		if success {
			s.events[i].ResolutionStatus = StatusResolved
		} else {
			s.events[i].ResolutionStatus = StatusFailed
		}
		resolution.normalize()
		resolution.ParentEventID = originalID
		s.events = append(s.events, resolution)
		s.agentLastAction[resolution.AgentID] = resolution.Timestamp
		return nil
	}
	return ErrNotFound
}

// MarkAwaitingPM parks an event behind the approval gate.
func (s *State) MarkAwaitingPM(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.events {
		if s.events[i].ID == id {
			if s.events[i].ResolutionEventID != "" {
				return ErrAlreadyResolved
			}
			s.events[i].ResolutionStatus = StatusAwaitingPM
			return nil
		}
	}
	return ErrNotFound
}

// ReleaseFromPM returns an awaiting_pm event to the given status so the
// resolver can pick it up again (used after a PM decision).
func (s *State) ReleaseFromPM(id string, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.events {
		if s.events[i].ID == id {
			if s.events[i].ResolutionStatus != StatusAwaitingPM {
				return ErrNotFound
			}
			s.events[i].ResolutionStatus = status
			return nil
		}
	}
	return ErrNotFound
}

// ArchiveExpired removes terminal events older than afterMinutes of virtual
// time and returns them for the archive store.
func (s *State) ArchiveExpired(now time.Time, afterMinutes float64) []Event {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := now.Add(-time.Duration(afterMinutes * float64(time.Minute)))
	var archived []Event
	kept := s.events[:0]
	for _, e := range s.events {
		terminal := e.ResolutionStatus == StatusResolved || e.ResolutionStatus == StatusFailed
		if terminal && e.Timestamp.Before(cutoff) {
			archived = append(archived, e)
		} else {
			kept = append(kept, e)
		}
	}
	s.events = kept
	return archived
}

// === Ongoing situations ===

// AddSituation registers a new ongoing situation.
func (s *State) AddSituation(sit OngoingSituation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sit.normalize()
	s.situations = append(s.situations, sit)
}

// ActiveSituations returns situations that have not reached a terminal phase.
func (s *State) ActiveSituations() []OngoingSituation {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []OngoingSituation
	for i := range s.situations {
		p := s.situations[i].CurrentPhase
		if p != PhaseCompleted && p != PhaseFailed {
			out = append(out, s.situations[i])
		}
	}
	return out
}

// AdvanceSituations moves situation phases forward with virtual time.
// Phases only ever advance, never regress.
func (s *State) AdvanceSituations(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.situations {
		sit := &s.situations[i]
		if sit.CurrentPhase == PhaseCompleted || sit.CurrentPhase == PhaseFailed {
			continue
		}
		elapsed := now.Sub(sit.CreatedAt).Minutes()
		total := float64(sit.ExpectedDurationMin)
		if total <= 0 {
			total = 1
		}
		next := phaseForProgress(elapsed / total)
		if phaseRank(next) > phaseRank(sit.CurrentPhase) {
			sit.CurrentPhase = next
			sit.LastUpdated = now
		}
	}
}

func phaseForProgress(fraction float64) string {
	switch {
	case fraction >= 1.0:
		return PhaseCompleted
	case fraction >= 0.75:
		return PhaseResolving
	case fraction >= 0.25:
		return PhaseActive
	default:
		return PhaseInitiated
	}
}

func phaseRank(phase string) int {
	switch phase {
	case PhaseInitiated:
		return 0
	case PhaseActive:
		return 1
	case PhaseResolving:
		return 2
	case PhaseCompleted, PhaseFailed:
		return 3
	}
	return -1
}

// === PM approval queue ===

// AddApproval queues a request for the PM.
func (s *State) AddApproval(req ApprovalRequest) {
	s.mu.Lock()
	defer s.mu.Unlock()
	req.normalize()
	s.approvals = append(s.approvals, req)
}

// PendingApprovals returns the undecided queue.
func (s *State) PendingApprovals() []ApprovalRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []ApprovalRequest
	for i := range s.approvals {
		if s.approvals[i].Status == ApprovalPending {
			out = append(out, s.approvals[i])
		}
	}
	return out
}

// DecideApproval performs the one-shot pending -> approved|rejected
// transition and returns the decided request.
func (s *State) DecideApproval(id string, approve bool, now time.Time) (ApprovalRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.approvals {
		if s.approvals[i].ID != id {
			continue
		}
		if s.approvals[i].Status != ApprovalPending {
			return ApprovalRequest{}, ErrAlreadyDecided
		}
		if approve {
			s.approvals[i].Status = ApprovalApproved
			s.approvals[i].PMDecision = "approve"
		} else {
			s.approvals[i].Status = ApprovalRejected
			s.approvals[i].PMDecision = "reject"
		}
		t := now
		s.approvals[i].PMDecisionTime = &t
		return s.approvals[i], nil
	}
	return ApprovalRequest{}, ErrNotFound
}

// === Scheduled events ===

// AddScheduledEvent queues a deferred action.
func (s *State) AddScheduledEvent(se ScheduledEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	se.normalize()
	s.scheduled = append(s.scheduled, se)
}

// DueScheduledEvents marks every pending entry whose due time has passed as
// triggered and returns them. Each entry triggers at most once.
func (s *State) DueScheduledEvents(now time.Time) []ScheduledEvent {
	s.mu.Lock()
	defer s.mu.Unlock()

	var due []ScheduledEvent
	for i := range s.scheduled {
		se := &s.scheduled[i]
		if se.Status != ScheduledPending {
			continue
		}
		if se.DueTime.After(now) {
			continue
		}
		se.Status = ScheduledTriggered
		due = append(due, *se)
	}
	return due
}

// CancelScheduledEvent cancels a pending entry.
func (s *State) CancelScheduledEvent(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.scheduled {
		if s.scheduled[i].ID != id {
			continue
		}
		if s.scheduled[i].Status != ScheduledPending {
			return ErrNotPending
		}
		s.scheduled[i].Status = ScheduledCancelled
		return nil
	}
	return ErrNotFound
}

// ScheduledEvents returns a copy of the schedule queue.
func (s *State) ScheduledEvents() []ScheduledEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ScheduledEvent, len(s.scheduled))
	copy(out, s.scheduled)
	return out
}

// === Meeting pause flag ===

// SetPausedForMeeting suspends the scheduler and resolver.
func (s *State) SetPausedForMeeting(meetingID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pausedForMeeting = true
	s.activeMeetingID = meetingID
}

// ClearPausedForMeeting resumes normal scheduling.
func (s *State) ClearPausedForMeeting() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pausedForMeeting = false
	s.activeMeetingID = ""
}

// PausedForMeeting reports whether a meeting holds the world paused.
func (s *State) PausedForMeeting() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pausedForMeeting
}

// ActiveMeetingID returns the id of the pausing meeting, if any.
func (s *State) ActiveMeetingID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeMeetingID
}
