package world

import (
	"encoding/json"
	"time"
)

// Snapshot is the full serialized form of the world plus clock metadata.
// Unknown fields are ignored on load and missing optional fields default,
// so older saves keep loading as the schema grows.
type Snapshot struct {
	IsRunning         bool               `json:"is_running"`
	ClockSpeed        float64            `json:"clock_speed"`
	GameClock         time.Time          `json:"game_clock"`
	Events            []Event            `json:"events"`
	AgentLastAction   map[string]string  `json:"agent_last_action"`
	OngoingSituations []OngoingSituation `json:"ongoing_situations"`
	PMApprovalQueue   []ApprovalRequest  `json:"pm_approval_queue"`
	ScheduledEvents   []ScheduledEvent   `json:"scheduled_events"`
	PausedForMeeting  bool               `json:"paused_for_meeting"`
	ActiveMeetingID   string             `json:"active_meeting_id,omitempty"`
}

// Export captures the current world under the lock. Clock metadata is
// supplied by the coordinator, which owns the clock.
func (s *State) Export(isRunning bool, speed float64, gameTime time.Time) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		IsRunning:         isRunning,
		ClockSpeed:        speed,
		GameClock:         gameTime,
		Events:            append([]Event(nil), s.events...),
		AgentLastAction:   make(map[string]string, len(s.agentLastAction)),
		OngoingSituations: append([]OngoingSituation(nil), s.situations...),
		PMApprovalQueue:   append([]ApprovalRequest(nil), s.approvals...),
		ScheduledEvents:   append([]ScheduledEvent(nil), s.scheduled...),
		PausedForMeeting:  s.pausedForMeeting,
		ActiveMeetingID:   s.activeMeetingID,
	}
	for agent, ts := range s.agentLastAction {
		snap.AgentLastAction[agent] = ts.Format(time.RFC3339Nano)
	}
	return snap
}

// Restore replaces the world contents from a snapshot.
func (s *State) Restore(snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.events = make([]Event, len(snap.Events))
	copy(s.events, snap.Events)
	for i := range s.events {
		s.events[i].normalize()
	}

	s.agentLastAction = make(map[string]time.Time, len(snap.AgentLastAction))
	for agent, ts := range snap.AgentLastAction {
		if parsed, err := time.Parse(time.RFC3339Nano, ts); err == nil {
			s.agentLastAction[agent] = parsed
		}
	}

	s.situations = make([]OngoingSituation, len(snap.OngoingSituations))
	copy(s.situations, snap.OngoingSituations)
	for i := range s.situations {
		s.situations[i].normalize()
	}

	s.approvals = make([]ApprovalRequest, len(snap.PMApprovalQueue))
	copy(s.approvals, snap.PMApprovalQueue)
	for i := range s.approvals {
		s.approvals[i].normalize()
	}

	s.scheduled = make([]ScheduledEvent, len(snap.ScheduledEvents))
	copy(s.scheduled, snap.ScheduledEvents)
	for i := range s.scheduled {
		s.scheduled[i].normalize()
	}

	s.pausedForMeeting = snap.PausedForMeeting
	s.activeMeetingID = snap.ActiveMeetingID
}

// MarshalSnapshot serializes a snapshot with stable formatting.
func MarshalSnapshot(snap Snapshot) ([]byte, error) {
	return json.MarshalIndent(snap, "", "  ")
}

// UnmarshalSnapshot parses a snapshot, defaulting missing optional fields.
func UnmarshalSnapshot(data []byte) (Snapshot, error) {
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, err
	}
	if snap.ClockSpeed <= 0 {
		snap.ClockSpeed = 2.0
	}
	if snap.GameClock.IsZero() {
		snap.GameClock = time.Date(2023, 10, 7, 6, 29, 0, 0, time.UTC)
	}
	if snap.AgentLastAction == nil {
		snap.AgentLastAction = map[string]string{}
	}
	return snap, nil
}
