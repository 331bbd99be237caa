package meetings

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ziv044/PM1/internal/agents"
	"github.com/ziv044/PM1/internal/clock"
	"github.com/ziv044/PM1/internal/infra/oracle"
	"github.com/ziv044/PM1/internal/platform/logger"
	"github.com/ziv044/PM1/internal/world"
)

// stubCompleter answers turn and outcome prompts from canned replies.
type stubCompleter struct {
	turnReply    string
	outcomeReply string
	err          error
	calls        int
}

func (s *stubCompleter) Complete(_ context.Context, system, _ string) (string, error) {
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	if system == oracle.MeetingTurnSystemPrompt {
		return s.turnReply, nil
	}
	return s.outcomeReply, nil
}

func validTurnReply() string {
	return `{"action_type": "recommendation", "content": "We should strike the tunnel network tonight.", "emotional_tone": "firm"}`
}

type meetingsFixture struct {
	state    *world.State
	registry *agents.Registry
	oracle   *stubCompleter
	clock    *clock.GameClock
	orch     *Orchestrator
}

func newMeetingsFixture(t *testing.T) *meetingsFixture {
	t.Helper()
	f := &meetingsFixture{
		state:    world.NewState(),
		registry: agents.NewRegistry(),
		oracle:   &stubCompleter{turnReply: validTurnReply()},
		clock:    clock.New(time.Date(2023, 10, 7, 6, 29, 0, 0, time.UTC), clock.DefaultSpeed),
	}
	for _, id := range []string{"Defense-Minister", "Head-Of-Mossad", "Head-Of-Shabak", "IDF-Commander", "Treasury-Minister"} {
		f.registry.Register(agents.Profile{
			ID: id, EntityName: "Israel", EntityType: "Entity", Enabled: true,
			Description: "Holds the line on security policy",
		})
	}
	f.orch = NewOrchestrator(f.state, f.registry, f.oracle, f.clock, logger.NewLogger())
	return f
}

func (f *meetingsFixture) startedCabinet(t *testing.T) *Session {
	t.Helper()
	s, err := f.orch.Create(TypeCabinetWarRoom, "Emergency war cabinet", "Response to the incursion", nil,
		[]string{"Military options", "Hostage recovery"}, nil)
	require.NoError(t, err)
	_, err = f.orch.Start(s.ID)
	require.NoError(t, err)
	return s
}

func TestCreateCabinetSeatsDefaultsAndChair(t *testing.T) {
	f := newMeetingsFixture(t)
	s, err := f.orch.Create(TypeCabinetWarRoom, "War cabinet", "", nil, nil, nil)
	require.NoError(t, err)

	assert.Equal(t, StatusScheduled, s.Status)
	assert.Equal(t, 8, s.MaxRounds)
	assert.Equal(t, PlayerChairID, s.ChairAgentID)
	require.Len(t, s.Participants, 6, "five default seats plus the player chair")

	pm := s.ParticipantByID(PlayerChairID)
	require.NotNil(t, pm)
	assert.True(t, pm.IsPlayer)
	assert.Equal(t, RoleChair, pm.Role)

	mossad := s.ParticipantByID("Head-Of-Mossad")
	require.NotNil(t, mossad)
	assert.Equal(t, RoleAdvisor, mossad.Role)
	assert.Equal(t, "Israel", mossad.Entity)
	assert.Equal(t, "Holds the line on security policy", mossad.InitialPosition)

	_, err = f.orch.Create("standup", "No such type", "", nil, nil, nil)
	assert.ErrorIs(t, err, ErrUnknownType)
}

func TestStartPausesSimulationAndIsExclusive(t *testing.T) {
	f := newMeetingsFixture(t)
	s := f.startedCabinet(t)

	assert.True(t, f.state.PausedForMeeting())
	assert.Equal(t, s.ID, f.state.ActiveMeetingID())
	assert.Equal(t, s.ID, f.orch.ActiveMeetingID())
	assert.Equal(t, StatusActive, s.Status)
	require.NotNil(t, s.StartedAt)

	other, err := f.orch.Create(TypeLeaderTalk, "Call with Washington", "", []Participant{{AgentID: "Defense-Minister"}}, nil, nil)
	require.NoError(t, err)
	_, err = f.orch.Start(other.ID)
	assert.ErrorIs(t, err, ErrAnotherActive)

	// A started meeting cannot be started twice.
	_, err = f.orch.Start(s.ID)
	assert.ErrorIs(t, err, ErrNotStartable)
}

func TestAdvanceRoundRequiresActiveStatus(t *testing.T) {
	f := newMeetingsFixture(t)
	s, err := f.orch.Create(TypeCabinetWarRoom, "War cabinet", "", nil, nil, nil)
	require.NoError(t, err)

	_, err = f.orch.AdvanceRound(context.Background(), s.ID)
	assert.ErrorIs(t, err, ErrMeetingNotActive, "scheduled meetings cannot advance")

	_, err = f.orch.Start(s.ID)
	require.NoError(t, err)
	require.NoError(t, f.orch.Pause(s.ID))

	_, err = f.orch.AdvanceRound(context.Background(), s.ID)
	assert.ErrorIs(t, err, ErrMeetingNotActive, "paused meetings cannot advance")

	_, err = f.orch.AdvanceRound(context.Background(), "mtg_missing1")
	assert.ErrorIs(t, err, ErrMeetingNotFound)
}

func TestRoundCounterNeverExceedsMaxRounds(t *testing.T) {
	f := newMeetingsFixture(t)
	s, err := f.orch.Create(TypeAgentTalk, "Intel briefing", "",
		[]Participant{{AgentID: "Head-Of-Mossad", Role: RoleAdvisor}}, nil, nil)
	require.NoError(t, err)
	require.Equal(t, 5, s.MaxRounds)
	_, err = f.orch.Start(s.ID)
	require.NoError(t, err)

	for i := 0; i < s.MaxRounds; i++ {
		turns, err := f.orch.AdvanceRound(context.Background(), s.ID)
		require.NoError(t, err)
		assert.Len(t, turns, 1)
	}
	assert.Equal(t, s.MaxRounds, s.CurrentRound)

	_, err = f.orch.AdvanceRound(context.Background(), s.ID)
	assert.ErrorIs(t, err, ErrRoundLimit)
	assert.Equal(t, s.MaxRounds, s.CurrentRound)
}

func TestCabinetSpeakingOrderAdvisorsFirst(t *testing.T) {
	f := newMeetingsFixture(t)
	s := f.startedCabinet(t)

	turns, err := f.orch.AdvanceRound(context.Background(), s.ID)
	require.NoError(t, err)
	require.Len(t, turns, 5, "player chair does not auto-speak")

	speakers := make([]string, len(turns))
	for i, turn := range turns {
		speakers[i] = turn.SpeakerAgentID
	}
	assert.Equal(t, []string{
		"Head-Of-Mossad", "Head-Of-Shabak", "IDF-Commander",
		"Defense-Minister", "Treasury-Minister",
	}, speakers)

	for _, turn := range turns {
		assert.Equal(t, "recommendation", turn.ActionType)
		assert.False(t, turn.IsPlayerInput)
	}
	seat := s.ParticipantByID("Head-Of-Mossad")
	assert.Equal(t, 1, seat.TurnCount)
}

func TestTurnPositionUpdateSticks(t *testing.T) {
	f := newMeetingsFixture(t)
	s := f.startedCabinet(t)
	f.oracle.turnReply = `{"action_type": "dissent", "content": "I oppose this.", "position_update": "Against any ground operation before hostage recovery"}`

	_, err := f.orch.AdvanceRound(context.Background(), s.ID)
	require.NoError(t, err)

	seat := s.ParticipantByID("IDF-Commander")
	assert.Equal(t, "Against any ground operation before hostage recovery", seat.CurrentPosition)
	assert.Equal(t, "Holds the line on security policy", seat.InitialPosition, "initial position is immutable")
}

func TestPlayerInterjectSkipsOracle(t *testing.T) {
	f := newMeetingsFixture(t)
	s := f.startedCabinet(t)

	turn, err := f.orch.PlayerInterject(s.ID, "Bring me three options by tonight.", []string{"IDF-Commander"})
	require.NoError(t, err)

	assert.Zero(t, f.oracle.calls)
	assert.True(t, turn.IsPlayerInput)
	assert.Equal(t, PlayerChairID, turn.SpeakerAgentID)
	assert.Equal(t, RoleChair, turn.SpeakerRole)
	require.Len(t, s.Turns, 1)
}

func TestConcludeProducesOneOutcomeAndClearsPause(t *testing.T) {
	f := newMeetingsFixture(t)
	s := f.startedCabinet(t)
	_, err := f.orch.AdvanceRound(context.Background(), s.ID)
	require.NoError(t, err)
	f.oracle.outcomeReply = `{"summary": "The cabinet authorized a limited strike.", "decisions": [
		{"action_type": "military", "summary": "Execute precision strike on tunnel shafts", "responsible_agent": "IDF-Commander", "affected_agents": ["Hamas"]}]}`

	before := f.state.EventCount()
	outcome, err := f.orch.Conclude(context.Background(), s.ID, false)
	require.NoError(t, err)

	assert.Equal(t, StatusConcluded, s.Status)
	assert.False(t, f.state.PausedForMeeting(), "concluding always resumes the simulation")
	assert.Empty(t, f.orch.ActiveMeetingID())
	require.NotNil(t, s.EndedAt)
	assert.Same(t, outcome, s.Outcome, "exactly one outcome, attached to the session")
	assert.Equal(t, "The cabinet authorized a limited strike.", outcome.Summary)

	// The decision became a live event ready for resolution.
	require.Len(t, outcome.EventsGenerated, 1)
	assert.Equal(t, before+1, f.state.EventCount())
	e, err := f.state.GetEvent(outcome.EventsGenerated[0])
	require.NoError(t, err)
	assert.Equal(t, "IDF-Commander", e.AgentID)
	assert.Equal(t, world.ActionMilitary, e.ActionType)
	assert.Equal(t, world.StatusImmediate, e.ResolutionStatus)

	// Participants remember how it ended.
	tail := f.registry.MemoryTail("Defense-Minister", 3)
	require.NotEmpty(t, tail)
	assert.Contains(t, tail[len(tail)-1].Text, "[MEETING]")

	_, err = f.orch.Conclude(context.Background(), s.ID, false)
	assert.ErrorIs(t, err, ErrMeetingNotActive, "a concluded meeting stays concluded")
}

func TestConcludeDegradesWhenOracleFails(t *testing.T) {
	f := newMeetingsFixture(t)
	s := f.startedCabinet(t)
	_, err := f.orch.AdvanceRound(context.Background(), s.ID)
	require.NoError(t, err)
	f.oracle.err = fmt.Errorf("oracle down")

	outcome, err := f.orch.Conclude(context.Background(), s.ID, false)
	require.NoError(t, err)
	assert.Equal(t, "The meeting adjourned without a recorded resolution.", outcome.Summary)
	assert.Empty(t, outcome.EventsGenerated)
	assert.False(t, f.state.PausedForMeeting())
}

func TestConcludeForcedFromPaused(t *testing.T) {
	f := newMeetingsFixture(t)
	s := f.startedCabinet(t)
	require.NoError(t, f.orch.Pause(s.ID))

	_, err := f.orch.Conclude(context.Background(), s.ID, false)
	assert.ErrorIs(t, err, ErrMeetingNotActive)

	_, err = f.orch.Conclude(context.Background(), s.ID, true)
	require.NoError(t, err)
	assert.Equal(t, StatusConcluded, s.Status)
	assert.False(t, f.state.PausedForMeeting())
}

func TestAbortLeavesCannedOutcome(t *testing.T) {
	f := newMeetingsFixture(t)
	s := f.startedCabinet(t)

	before := f.state.EventCount()
	outcome, err := f.orch.Abort(s.ID)
	require.NoError(t, err)

	assert.Equal(t, StatusAborted, s.Status)
	assert.Equal(t, abortedOutcomeSummary, outcome.Summary)
	assert.Equal(t, "aborted", outcome.OutcomeType)
	assert.Empty(t, outcome.EventsGenerated)
	assert.Equal(t, before, f.state.EventCount(), "aborting generates nothing")
	assert.False(t, f.state.PausedForMeeting())
}

func TestAutoTriggersFileAndDeduplicateRequests(t *testing.T) {
	f := newMeetingsFixture(t)

	req := f.orch.CheckAutoTriggers(world.Event{
		ID: world.NewEventID(), AgentID: "Head-Of-Shabak",
		ActionType: "intelligence", Summary: "Surveillance confirms hostage locations in Khan Younis",
	})
	require.NotNil(t, req)
	assert.Equal(t, TypeNegotiation, req.MeetingType)
	assert.Equal(t, "high", req.Urgency)
	assert.Equal(t, "Head-Of-Shabak", req.RequestedBy)
	assert.Contains(t, req.SuggestedParticipants, "Head-Of-Shabak")

	// A pending request of the same meeting type suppresses new ones.
	dup := f.orch.CheckAutoTriggers(world.Event{
		ID: world.NewEventID(), AgentID: "Defense-Minister",
		ActionType: "diplomatic", Summary: "Egypt floats a ceasefire proposal",
	})
	assert.Nil(t, dup)

	// Other types still trigger.
	cabinet := f.orch.CheckAutoTriggers(world.Event{
		ID: world.NewEventID(), AgentID: "IDF-Commander",
		ActionType: "military", Summary: "Staff recommends full invasion of the northern strip",
	})
	require.NotNil(t, cabinet)
	assert.Equal(t, TypeCabinetWarRoom, cabinet.MeetingType)
	assert.Equal(t, "immediate", cabinet.Urgency)

	// Action type gating: hostage wording on a diplomatic event is not
	// a hostage escalation.
	none := f.orch.CheckAutoTriggers(world.Event{
		ID: world.NewEventID(), AgentID: "Foreign-Minister",
		ActionType: "internal", Summary: "Briefs the press on hostage families",
	})
	assert.Nil(t, none)

	require.Len(t, f.orch.PendingRequests(), 2)
}

func TestApproveRequestCreatesMeeting(t *testing.T) {
	f := newMeetingsFixture(t)
	req := f.orch.CheckAutoTriggers(world.Event{
		ID: world.NewEventID(), AgentID: "IDF-Commander",
		ActionType: "military", Summary: "Staff recommends major offensive in Gaza City",
	})
	require.NotNil(t, req)

	s, err := f.orch.ApproveRequest(req.ID)
	require.NoError(t, err)
	assert.Equal(t, TypeCabinetWarRoom, s.Type)
	assert.Equal(t, StatusScheduled, s.Status)
	assert.NotNil(t, s.ParticipantByID("IDF-Commander"))
	assert.NotNil(t, s.ParticipantByID(PlayerChairID))
	assert.Empty(t, f.orch.PendingRequests())

	_, err = f.orch.ApproveRequest(req.ID)
	assert.Error(t, err, "requests are one-shot")
}

func TestRejectAndExpireRequests(t *testing.T) {
	f := newMeetingsFixture(t)
	req := f.orch.CheckAutoTriggers(world.Event{
		ID: world.NewEventID(), AgentID: "Foreign-Minister",
		ActionType: "diplomatic", Summary: "Qatar proposes truce talks in Doha",
	})
	require.NotNil(t, req)
	require.NoError(t, f.orch.RejectRequest(req.ID))
	assert.Equal(t, RequestRejected, req.Status)

	second := f.orch.CheckAutoTriggers(world.Event{
		ID: world.NewEventID(), AgentID: "Foreign-Minister",
		ActionType: "diplomatic", Summary: "Egypt proposes humanitarian pause",
	})
	require.NotNil(t, second, "rejected requests do not suppress new ones")

	expired := f.orch.ExpireRequests(f.clock.Now().Add(3 * time.Hour))
	assert.Equal(t, 1, expired)
	assert.Equal(t, RequestExpired, second.Status)
}

func TestSnapshotRoundTrip(t *testing.T) {
	f := newMeetingsFixture(t)
	s := f.startedCabinet(t)
	_, err := f.orch.AdvanceRound(context.Background(), s.ID)
	require.NoError(t, err)
	f.orch.CheckAutoTriggers(world.Event{
		ID: world.NewEventID(), AgentID: "Head-Of-Mossad",
		ActionType: "intelligence", Summary: "Urgent intel on the leadership bunker",
	})

	raw, err := json.Marshal(f.orch.Export())
	require.NoError(t, err)

	var snap Snapshot
	require.NoError(t, json.Unmarshal(raw, &snap))

	restored := newMeetingsFixture(t)
	restored.orch.Restore(snap)

	got, err := restored.orch.Get(s.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusActive, got.Status)
	assert.Equal(t, s.CurrentRound, got.CurrentRound)
	assert.Len(t, got.Turns, len(s.Turns))
	assert.Equal(t, s.Turns[0].Content, got.Turns[0].Content)
	assert.Len(t, got.Participants, len(s.Participants))
	assert.Equal(t, s.ID, restored.orch.ActiveMeetingID())
	assert.True(t, restored.state.PausedForMeeting(), "restoring an active meeting re-arms the pause")
	assert.Len(t, restored.orch.PendingRequests(), 1)
}
