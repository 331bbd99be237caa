package sim

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ziv044/PM1/internal/agents"
	"github.com/ziv044/PM1/internal/clock"
	"github.com/ziv044/PM1/internal/platform/logger"
	"github.com/ziv044/PM1/internal/platform/metrics"
	"github.com/ziv044/PM1/internal/world"
)

// ErrSchedulerRunning means Start was called on a live scheduler.
var ErrSchedulerRunning = errors.New("sim: scheduler already running")

const (
	// defaultStagger spaces first runs apart so oracle calls do not
	// arrive as one burst at startup.
	defaultStagger = 5 * time.Second
	// defaultPausePoll is the cadence of the idle poll while a meeting
	// holds the world paused or while an agent is disabled.
	defaultPausePoll = 2 * time.Second
)

// ActInterval converts an agent's action frequency (game minutes) into
// a real sleep duration at the given clock speed (real seconds per game
// minute).
func ActInterval(frequencyMinutes int, speed float64) time.Duration {
	return time.Duration(float64(frequencyMinutes) * speed * float64(time.Second))
}

// EntityScheduler runs one periodic decision loop per schedulable agent.
type EntityScheduler struct {
	registry *agents.Registry
	gateway  *DecisionGateway
	state    *world.State
	clock    *clock.GameClock
	log      *logger.Logger

	stagger   time.Duration
	pausePoll time.Duration

	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
}

// NewEntityScheduler wires the scheduler. Zero stagger and pausePoll
// select the defaults.
func NewEntityScheduler(registry *agents.Registry, gateway *DecisionGateway, state *world.State, gameClock *clock.GameClock, stagger, pausePoll time.Duration, log *logger.Logger) *EntityScheduler {
	if stagger <= 0 {
		stagger = defaultStagger
	}
	if pausePoll <= 0 {
		pausePoll = defaultPausePoll
	}
	return &EntityScheduler{
		registry:  registry,
		gateway:   gateway,
		state:     state,
		clock:     gameClock,
		log:       log,
		stagger:   stagger,
		pausePoll: pausePoll,
	}
}

// Start launches one worker per schedulable agent.
func (s *EntityScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return ErrSchedulerRunning
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.running = true

	profiles := s.registry.SchedulableAgents()
	for i, profile := range profiles {
		s.wg.Add(1)
		go s.runAgent(runCtx, profile.ID, time.Duration(i)*s.stagger)
	}
	metrics.Get().RecordSchedulerCount(int64(len(profiles)))
	s.log.Info("scheduler started with %d agent tasks", len(profiles))
	return nil
}

// Stop cancels every worker and waits for full teardown before
// returning, so a following Start never races leftover writes.
func (s *EntityScheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	cancel := s.cancel
	s.running = false
	s.mu.Unlock()

	cancel()
	s.wg.Wait()
	metrics.Get().RecordSchedulerCount(0)
	s.log.Info("scheduler stopped, all agent tasks joined")
}

// Running reports whether workers are live.
func (s *EntityScheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *EntityScheduler) runAgent(ctx context.Context, agentID string, initialDelay time.Duration) {
	defer s.wg.Done()

	if !sleepCtx(ctx, initialDelay) {
		return
	}

	for {
		if ctx.Err() != nil {
			return
		}

		// Disabled agents and meeting pauses idle at the poll cadence;
		// both conditions are rechecked every cycle so re-enabling or
		// resuming takes effect within one poll.
		if !s.registry.Enabled(agentID) || s.state.PausedForMeeting() {
			if !sleepCtx(ctx, s.pausePoll) {
				return
			}
			continue
		}

		profile, err := s.registry.Get(agentID)
		if err != nil {
			s.log.Warn("agent %s vanished from registry, stopping its task", agentID)
			return
		}

		start := time.Now()
		if _, err := s.gateway.Act(ctx, profile, s.clock.Now()); err != nil {
			// Oracle failures skip the cycle; the loop must survive.
			s.log.Warn("agent %s cycle skipped: %v", agentID, err)
		}
		metrics.Get().RecordAgentCycle(time.Since(start))

		// Interval is recomputed every cycle so speed and frequency
		// changes apply without restarting the task.
		interval := ActInterval(profile.EventFrequencyMinutes, s.clock.Speed())
		if interval <= 0 {
			interval = s.pausePoll
		}
		if !sleepCtx(ctx, interval) {
			return
		}
	}
}

// sleepCtx sleeps for d unless the context is cancelled first. It
// returns false on cancellation.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
