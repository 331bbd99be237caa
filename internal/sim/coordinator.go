package sim

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ziv044/PM1/internal/agents"
	"github.com/ziv044/PM1/internal/clock"
	"github.com/ziv044/PM1/internal/geo"
	"github.com/ziv044/PM1/internal/kpi"
	"github.com/ziv044/PM1/internal/meetings"
	"github.com/ziv044/PM1/internal/platform/logger"
	"github.com/ziv044/PM1/internal/platform/metrics"
	"github.com/ziv044/PM1/internal/world"
)

// ErrCoordinatorRunning is returned on a second Start.
var ErrCoordinatorRunning = errors.New("sim: coordinator already running")

const (
	defaultResolveInterval = 30 * time.Second
	defaultResolveDelay    = 15 * time.Second
	defaultSaveInterval    = 30 * time.Second

	// autoTriggerScanDepth bounds how far back each sweep looks for
	// events that should spawn meeting requests.
	autoTriggerScanDepth = 20
)

// Persister writes the full game state to durable storage.
type Persister interface {
	Save() error
}

// CoordinatorConfig tunes the background cadences. Zero values take
// the defaults.
type CoordinatorConfig struct {
	ResolveInterval     time.Duration
	ResolveInitialDelay time.Duration
	SaveInterval        time.Duration
}

// Coordinator owns one running game: the clock, the per-agent
// scheduler, the resolution loop, the meeting layer and periodic
// persistence. It is the single entry point the transport layer
// talks to.
type Coordinator struct {
	state     *world.State
	kpis      *kpi.Store
	mapState  *geo.MapState
	registry  *agents.Registry
	clock     *clock.GameClock
	scheduler *EntityScheduler
	resolver  *Resolver
	meetings  *meetings.Orchestrator
	persister Persister
	log       *logger.Logger

	resolveEvery time.Duration
	resolveDelay time.Duration
	saveEvery    time.Duration

	mu        sync.Mutex
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	running   bool
	triggered map[string]struct{}
}

// NewCoordinator assembles a coordinator over already-wired parts.
// The persister may be nil; persistence is then skipped.
func NewCoordinator(state *world.State, kpis *kpi.Store, mapState *geo.MapState, registry *agents.Registry,
	gameClock *clock.GameClock, scheduler *EntityScheduler, resolver *Resolver,
	orchestrator *meetings.Orchestrator, persister Persister, cfg CoordinatorConfig, log *logger.Logger) *Coordinator {
	if cfg.ResolveInterval <= 0 {
		cfg.ResolveInterval = defaultResolveInterval
	}
	if cfg.ResolveInitialDelay <= 0 {
		cfg.ResolveInitialDelay = defaultResolveDelay
	}
	if cfg.SaveInterval <= 0 {
		cfg.SaveInterval = defaultSaveInterval
	}
	return &Coordinator{
		state:        state,
		kpis:         kpis,
		mapState:     mapState,
		registry:     registry,
		clock:        gameClock,
		scheduler:    scheduler,
		resolver:     resolver,
		meetings:     orchestrator,
		persister:    persister,
		log:          log,
		resolveEvery: cfg.ResolveInterval,
		resolveDelay: cfg.ResolveInitialDelay,
		saveEvery:    cfg.SaveInterval,
		triggered:    make(map[string]struct{}),
	}
}

// Start launches the clock, the agent scheduler and the background
// loops. It returns immediately.
func (c *Coordinator) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return ErrCoordinatorRunning
	}
	ctx, c.cancel = context.WithCancel(ctx)
	c.running = true
	c.mu.Unlock()

	c.clock.Start()
	if err := c.scheduler.Start(ctx); err != nil {
		c.log.Warn("coordinator: scheduler start: %v", err)
	}

	c.wg.Add(1)
	go c.resolveLoop(ctx)
	if c.persister != nil {
		c.wg.Add(1)
		go c.saveLoop(ctx)
	}

	c.log.Info("simulation started at %s (speed %.1f)", c.clock.Now().Format(time.RFC3339), c.clock.Speed())
	return nil
}

// Stop halts the loops, the scheduler and the clock, then takes a
// final snapshot. Safe to call when not running.
func (c *Coordinator) Stop() {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return
	}
	c.running = false
	cancel := c.cancel
	c.mu.Unlock()

	cancel()
	c.scheduler.Stop()
	c.wg.Wait()
	c.clock.Stop()

	if c.persister != nil {
		if err := c.persister.Save(); err != nil {
			c.log.Error("final save failed: %v", err)
		}
	}
	c.log.Info("simulation stopped at %s", c.clock.Now().Format(time.RFC3339))
}

// Running reports whether the coordinator has been started.
func (c *Coordinator) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

func (c *Coordinator) resolveLoop(ctx context.Context) {
	defer c.wg.Done()

	select {
	case <-ctx.Done():
		return
	case <-time.After(c.resolveDelay):
	}

	ticker := time.NewTicker(c.resolveEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.tick(ctx)
		}
	}
}

// tick is one housekeeping pass. Meetings freeze resolution but not
// request expiry.
func (c *Coordinator) tick(ctx context.Context) {
	if !c.state.PausedForMeeting() {
		c.resolver.Cycle(ctx)
		c.sweepAutoTriggers()
	}
	if c.meetings != nil {
		c.meetings.ExpireRequests(c.clock.Now())
	}
}

// sweepAutoTriggers offers recent events to the meeting layer once
// each.
func (c *Coordinator) sweepAutoTriggers() {
	if c.meetings == nil {
		return
	}
	for _, e := range c.state.RecentEvents(autoTriggerScanDepth, false) {
		c.mu.Lock()
		_, seen := c.triggered[e.ID]
		if !seen {
			c.triggered[e.ID] = struct{}{}
		}
		c.mu.Unlock()
		if seen {
			continue
		}
		if req := c.meetings.CheckAutoTriggers(e); req != nil {
			c.log.Info("event %s auto-triggered meeting request %s (%s)", e.ID, req.ID, req.MeetingType)
		}
	}
}

func (c *Coordinator) saveLoop(ctx context.Context) {
	defer c.wg.Done()

	ticker := time.NewTicker(c.saveEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			err := c.persister.Save()
			metrics.Get().RecordSnapshotWrite(err)
			if err != nil {
				c.log.Warn("periodic save failed: %v", err)
			}
		}
	}
}

// ForceResolve runs one resolution cycle immediately, meeting pause
// included. Meant for the control API and tests.
func (c *Coordinator) ForceResolve(ctx context.Context) {
	c.resolver.Cycle(ctx)
	c.sweepAutoTriggers()
}

// Status is the control-surface summary of the running game.
func (c *Coordinator) Status() map[string]interface{} {
	budgetSpent, budgetLimit := 0, 0
	if svc, ok := c.resolver.oracle.(interface{ BudgetStatus() (int, int, int) }); ok {
		budgetSpent, budgetLimit, _ = svc.BudgetStatus()
	}
	return map[string]interface{}{
		"is_running":         c.Running(),
		"game_time":          c.clock.Now().Format(time.RFC3339),
		"clock_speed":        c.clock.Speed(),
		"entity_count":       len(c.registry.SchedulableAgents()),
		"event_count":        c.state.EventCount(),
		"pending_approvals":  len(c.state.PendingApprovals()),
		"paused_for_meeting": c.state.PausedForMeeting(),
		"active_meeting_id":  c.state.ActiveMeetingID(),
		"oracle_spent":       budgetSpent,
		"oracle_budget":      budgetLimit,
	}
}

// SetSpeed changes the game clock multiplier.
func (c *Coordinator) SetSpeed(speed float64) error {
	if err := c.clock.SetSpeed(speed); err != nil {
		return fmt.Errorf("setting clock speed: %w", err)
	}
	c.log.Info("clock speed set to %.1f", speed)
	return nil
}

// SetTime jumps the game clock. Scheduled events due before the new
// time fire on the next resolution cycle.
func (c *Coordinator) SetTime(t time.Time) {
	c.clock.SetTime(t)
	c.log.Info("clock set to %s", t.Format(time.RFC3339))
}

// Approve decides a pending approval request in the affirmative. A
// future due time defers execution.
func (c *Coordinator) Approve(id string, due *time.Time) (ApprovalDecision, error) {
	return DecideApproval(c.state, c.registry, id, true, due, c.clock.Now(), c.log)
}

// Reject declines a pending approval request.
func (c *Coordinator) Reject(id string) (ApprovalDecision, error) {
	return DecideApproval(c.state, c.registry, id, false, nil, c.clock.Now(), c.log)
}

// CancelScheduled withdraws a queued deferred execution.
func (c *Coordinator) CancelScheduled(id string) error {
	if err := c.state.CancelScheduledEvent(id); err != nil {
		return fmt.Errorf("cancelling scheduled event %s: %w", id, err)
	}
	c.log.Info("scheduled event %s cancelled", id)
	return nil
}

// Meetings exposes the meeting layer to the transport.
func (c *Coordinator) Meetings() *meetings.Orchestrator {
	return c.meetings
}

// Clock exposes the game clock.
func (c *Coordinator) Clock() *clock.GameClock {
	return c.clock
}
