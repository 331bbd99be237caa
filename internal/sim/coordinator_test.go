package sim

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ziv044/PM1/internal/meetings"
	"github.com/ziv044/PM1/internal/platform/logger"
	"github.com/ziv044/PM1/internal/world"
)

type countingPersister struct {
	saves atomic.Int64
}

func (p *countingPersister) Save() error {
	p.saves.Add(1)
	return nil
}

type coordinatorFixture struct {
	*resolverFixture
	persister   *countingPersister
	orch        *meetings.Orchestrator
	coordinator *Coordinator
}

func newCoordinatorFixture(t *testing.T) *coordinatorFixture {
	t.Helper()
	rf := newResolverFixture(t)
	// Keep the per-agent decision loops idle so tests control event flow.
	for _, p := range rf.registry.AllProfiles() {
		_ = rf.registry.SetEnabled(p.ID, false)
	}

	f := &coordinatorFixture{
		resolverFixture: rf,
		persister:       &countingPersister{},
		orch:            meetings.NewOrchestrator(rf.state, rf.registry, rf.oracle, rf.clock, logger.NewLogger()),
	}
	scheduler := NewEntityScheduler(rf.registry, rf.gateway, rf.state, rf.clock,
		time.Millisecond, 5*time.Millisecond, logger.NewLogger())
	f.coordinator = NewCoordinator(rf.state, testKPIStore(t), rf.mapState, rf.registry,
		rf.clock, scheduler, rf.resolver, f.orch, f.persister, CoordinatorConfig{
			ResolveInterval:     20 * time.Millisecond,
			ResolveInitialDelay: time.Millisecond,
			SaveInterval:        15 * time.Millisecond,
		}, logger.NewLogger())
	return f
}

func TestCoordinatorStartStopLifecycle(t *testing.T) {
	f := newCoordinatorFixture(t)
	f.oracle.reply = "not json"

	require.NoError(t, f.coordinator.Start(context.Background()))
	assert.True(t, f.coordinator.Running())
	assert.True(t, f.clock.Running())
	assert.ErrorIs(t, f.coordinator.Start(context.Background()), ErrCoordinatorRunning)

	f.addEvent("Hamas-Leader", "internal", "Issues a statement", f.clock.Now())
	require.Eventually(t, func() bool {
		e := f.state.UnresolvedBatch(5)
		return len(e) == 0
	}, time.Second, 10*time.Millisecond, "the resolve loop drains pending events")

	require.Eventually(t, func() bool {
		return f.persister.saves.Load() > 0
	}, time.Second, 10*time.Millisecond, "the save loop runs")

	f.coordinator.Stop()
	assert.False(t, f.coordinator.Running())
	assert.False(t, f.clock.Running())

	// Stop takes a final snapshot and is idempotent.
	final := f.persister.saves.Load()
	assert.Greater(t, final, int64(0))
	f.coordinator.Stop()
	assert.Equal(t, final, f.persister.saves.Load())
}

func TestCoordinatorPausesResolutionDuringMeetings(t *testing.T) {
	f := newCoordinatorFixture(t)
	f.oracle.reply = "not json"

	s, err := f.orch.Create(meetings.TypeLeaderTalk, "Call with Cairo", "",
		[]meetings.Participant{{AgentID: "Egypt-President"}}, nil, nil)
	require.NoError(t, err)
	_, err = f.orch.Start(s.ID)
	require.NoError(t, err)

	require.NoError(t, f.coordinator.Start(context.Background()))
	defer f.coordinator.Stop()

	e := f.addEvent("Hamas-Leader", "internal", "Issues guidance", f.clock.Now())
	time.Sleep(80 * time.Millisecond)
	frozen, err := f.state.GetEvent(e.ID)
	require.NoError(t, err)
	assert.Equal(t, world.StatusImmediate, frozen.ResolutionStatus, "no resolution while a meeting runs")

	_, err = f.orch.Abort(s.ID)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		resolved, err := f.state.GetEvent(e.ID)
		return err == nil && resolved.ResolutionStatus == world.StatusResolved
	}, time.Second, 10*time.Millisecond, "resolution resumes after the meeting ends")
}

func TestForceResolveFeedsAutoTriggers(t *testing.T) {
	f := newCoordinatorFixture(t)
	f.oracle.reply = "not json"
	f.addEvent("Hamas-Leader", "diplomatic", "Signals openness to a ceasefire through Qatar", f.clock.Now())

	f.coordinator.ForceResolve(context.Background())

	reqs := f.orch.PendingRequests()
	require.Len(t, reqs, 1)
	assert.Equal(t, meetings.TypeNegotiation, reqs[0].MeetingType)

	// A second pass does not re-offer the same event.
	f.coordinator.ForceResolve(context.Background())
	assert.Len(t, f.orch.PendingRequests(), 1)
}

func TestCoordinatorStatusAndControls(t *testing.T) {
	f := newCoordinatorFixture(t)

	status := f.coordinator.Status()
	assert.Equal(t, false, status["is_running"])
	assert.Equal(t, 0, status["event_count"])
	assert.Equal(t, false, status["paused_for_meeting"])

	require.NoError(t, f.coordinator.SetSpeed(4.0))
	assert.InDelta(t, 4.0, f.clock.Speed(), 0.001)
	assert.Error(t, f.coordinator.SetSpeed(-1))

	jump := f.clock.Now().Add(6 * time.Hour)
	f.coordinator.SetTime(jump)
	assert.WithinDuration(t, jump, f.clock.Now(), time.Second)
}

func TestCoordinatorApprovalPassthrough(t *testing.T) {
	f := newCoordinatorFixture(t)
	f.oracle.reply = "not json"
	f.addEvent("IDF-Commander", "military", "Orders ground invasion of northern Gaza", f.clock.Now())
	f.coordinator.ForceResolve(context.Background())

	approvals := f.state.PendingApprovals()
	require.Len(t, approvals, 1)

	due := f.clock.Now().Add(2 * time.Hour)
	decision, err := f.coordinator.Approve(approvals[0].ID, &due)
	require.NoError(t, err)
	require.NotNil(t, decision.ScheduledEvent)

	require.NoError(t, f.coordinator.CancelScheduled(decision.ScheduledEvent.ID))
	assert.Error(t, f.coordinator.CancelScheduled(decision.ScheduledEvent.ID), "cancel is one-shot")

	_, err = f.coordinator.Reject(approvals[0].ID)
	assert.ErrorIs(t, err, world.ErrAlreadyDecided)
}
