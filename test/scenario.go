// Package test holds the offline scenario harness. It drives the
// simulation engine end to end without a server or a live model,
// checking that the opening hours of the campaign behave as designed:
// major force is gated on the player, impact rules move the metrics,
// and crisis events summon the player to the table.
package test

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ziv044/PM1/internal/agents"
	"github.com/ziv044/PM1/internal/clock"
	"github.com/ziv044/PM1/internal/geo"
	"github.com/ziv044/PM1/internal/kpi"
	"github.com/ziv044/PM1/internal/meetings"
	"github.com/ziv044/PM1/internal/platform/logger"
	"github.com/ziv044/PM1/internal/sim"
	"github.com/ziv044/PM1/internal/world"
)

// scriptedOracle stands in for the model: resolutions come back as
// non-JSON so the resolver falls through to its rule-only path.
type scriptedOracle struct{}

func (scriptedOracle) Complete(context.Context, string, string) (string, error) {
	return "offline", nil
}

// ScenarioResult captures the outcome of one check.
type ScenarioResult struct {
	Name     string
	Expected string
	Actual   string
	Passed   bool
}

// OpeningDayScenario drives the first resolution cycles of October 7th.
type OpeningDayScenario struct {
	state        *world.State
	kpis         *kpi.Store
	mapState     *geo.MapState
	registry     *agents.Registry
	engine       *sim.RuleEngine
	resolver     *sim.Resolver
	orchestrator *meetings.Orchestrator
	gameClock    *clock.GameClock
	logger       *logger.Logger
	results      []ScenarioResult
}

// NewOpeningDayScenario builds the full engine stack offline.
func NewOpeningDayScenario() *OpeningDayScenario {
	log := logger.NewLogger()
	s := &OpeningDayScenario{
		state:     world.NewState(),
		kpis:      kpi.NewStore(),
		mapState:  geo.NewMapState(log),
		registry:  agents.NewRegistry(),
		engine:    sim.NewRuleEngine(7),
		gameClock: clock.New(time.Date(2023, 10, 7, 6, 29, 0, 0, time.UTC), clock.DefaultSpeed),
		logger:    log,
	}
	agents.SeedDefaults(s.registry)
	kpi.SeedDefaults(s.kpis)

	oracle := scriptedOracle{}
	gateway := sim.NewDecisionGateway(s.registry, s.state, s.mapState, oracle, log)
	s.resolver = sim.NewResolver(s.state, s.kpis, s.mapState, s.registry, s.engine,
		oracle, gateway, s.gameClock, nil, 60, log)
	s.orchestrator = meetings.NewOrchestrator(s.state, s.registry, oracle, s.gameClock, log)
	return s
}

// Run executes every check in order.
func (s *OpeningDayScenario) Run(ctx context.Context) {
	fmt.Println(strings.Repeat("=", 60))
	fmt.Println("SCENARIO: OPENING DAY")
	fmt.Println(strings.Repeat("=", 60))

	s.checkApprovalGate(ctx)
	s.checkImpactRules()
	s.checkHostageTrigger()
}

// checkApprovalGate verifies a ground invasion ordered by a reporting
// agent stops at the player instead of resolving on its own.
func (s *OpeningDayScenario) checkApprovalGate(ctx context.Context) {
	s.state.AddEvent(world.Event{
		ID: world.NewEventID(), Timestamp: s.gameClock.Now(),
		AgentID: "IDF-Commander", ActionType: "military",
		Summary:          "Orders ground invasion of northern Gaza with three divisions",
		IsPublic:         true,
		ResolutionStatus: world.StatusImmediate,
	})

	s.resolver.Cycle(ctx)

	approvals := s.state.PendingApprovals()
	result := ScenarioResult{
		Name:     "Approval gate",
		Expected: "1 pending approval, event held",
		Actual:   fmt.Sprintf("%d pending approvals", len(approvals)),
		Passed:   len(approvals) == 1,
	}
	if result.Passed {
		evt, err := s.state.GetEvent(approvals[0].EventID)
		if err != nil || evt.ResolutionStatus != world.StatusAwaitingPM {
			result.Passed = false
			result.Actual = "event not held for the player"
		}
	}
	s.record(result)
}

// checkImpactRules verifies a successful strike moves the metric sheet
// in the directions the rule table promises.
func (s *OpeningDayScenario) checkImpactRules() {
	before := s.fighters()
	outcome := s.engine.ApplyVerdict("military",
		"Airstrike on rocket launch sites in Gaza City", s.kpis, true)
	after := s.fighters()

	s.record(ScenarioResult{
		Name:     "Impact rules",
		Expected: "fighters_remaining drops on a successful airstrike",
		Actual:   fmt.Sprintf("%.0f -> %.0f (%d changes)", before, after, len(outcome.Changes)),
		Passed:   outcome.RuleMatched && after < before,
	})
}

func (s *OpeningDayScenario) fighters() float64 {
	v, err := s.kpis.MetricValue("Hamas", "dynamic_metrics.fighters_remaining")
	if err != nil {
		return 0
	}
	f, _ := v.(float64)
	return f
}

// checkHostageTrigger verifies a hostage escalation files a
// negotiation request.
func (s *OpeningDayScenario) checkHostageTrigger() {
	req := s.orchestrator.CheckAutoTriggers(world.Event{
		ID: world.NewEventID(), Timestamp: s.gameClock.Now(),
		AgentID: "Hamas-Gaza", ActionType: "military",
		Summary:          "Moves hostage groups into the tunnel network and threatens executions",
		IsPublic:         true,
		ResolutionStatus: world.StatusResolved,
	})

	result := ScenarioResult{
		Name:     "Hostage trigger",
		Expected: "hostage escalation files a negotiation request",
	}
	if req == nil {
		result.Actual = "no request filed"
	} else {
		result.Actual = fmt.Sprintf("request %s (%s)", req.ID, req.MeetingType)
		result.Passed = req.MeetingType == meetings.TypeNegotiation
	}
	s.record(result)
}

func (s *OpeningDayScenario) record(r ScenarioResult) {
	status := "FAIL"
	if r.Passed {
		status = "PASS"
	}
	fmt.Printf("[%s] %s\n", status, r.Name)
	fmt.Printf("       expected: %s\n", r.Expected)
	fmt.Printf("       actual:   %s\n", r.Actual)
	s.results = append(s.results, r)
}

// Results returns every recorded check.
func (s *OpeningDayScenario) Results() []ScenarioResult {
	return s.results
}
