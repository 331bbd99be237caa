// Package sim contains the simulation engine: the deterministic rule
// engine, the decision gateway, the per-agent scheduler, the resolver
// and the coordinator that owns them all.
package sim

import (
	"math/rand"
	"strings"
	"sync"

	"github.com/ziv044/PM1/internal/kpi"
)

// Impact is one KPI delta drawn when a rule fires. Path is
// "Entity.category.metric"; the drawn value lies in [Min, Max].
type Impact struct {
	Path string
	Min  int
	Max  int
}

// Rule couples a keyword pattern with a success probability and the KPI
// impacts of either outcome. Patterns use "|" as OR.
type Rule struct {
	Pattern     string
	SuccessRate float64
	OnSuccess   []Impact
	OnFailure   []Impact
}

// defaultRule applies when no pattern of the action type matches.
var defaultRule = Rule{SuccessRate: 0.80}

// impactRules are ordered per action type; the first matching pattern
// wins, so specific keywords must precede broader ones.
var impactRules = map[string][]Rule{
	"military": {
		{
			Pattern:     "airstrike",
			SuccessRate: 0.85,
			OnSuccess: []Impact{
				{Path: "Hamas.dynamic_metrics.fighters_remaining", Min: -30, Max: -10},
				{Path: "Hamas.dynamic_metrics.casualties", Min: 10, Max: 30},
				{Path: "Israel.dynamic_metrics.ammunition_precision_pct", Min: -2, Max: -1},
			},
			OnFailure: []Impact{
				{Path: "Israel.dynamic_metrics.international_standing", Min: -5, Max: -2},
			},
		},
		{
			Pattern:     "ground",
			SuccessRate: 0.70,
			OnSuccess: []Impact{
				{Path: "Israel.dynamic_metrics.casualties_military", Min: 5, Max: 20},
				{Path: "Hamas.dynamic_metrics.fighters_remaining", Min: -80, Max: -30},
				{Path: "Hamas.dynamic_metrics.casualties", Min: 30, Max: 80},
				{Path: "Israel.dynamic_metrics.ammunition_artillery_pct", Min: -3, Max: -1},
			},
			OnFailure: []Impact{
				{Path: "Israel.dynamic_metrics.casualties_military", Min: 15, Max: 40},
				{Path: "Israel.dynamic_metrics.morale_military", Min: -10, Max: -5},
			},
		},
		{
			Pattern:     "tunnel",
			SuccessRate: 0.60,
			OnSuccess: []Impact{
				{Path: "Hamas.dynamic_metrics.tunnel_network_operational_km", Min: -20, Max: -5},
				{Path: "Israel.dynamic_metrics.casualties_military", Min: 2, Max: 8},
			},
			OnFailure: []Impact{
				{Path: "Israel.dynamic_metrics.casualties_military", Min: 5, Max: 15},
			},
		},
		{
			Pattern:     "humanitarian",
			SuccessRate: 0.95,
			OnSuccess: []Impact{
				{Path: "Israel.dynamic_metrics.international_standing", Min: 2, Max: 5},
			},
		},
		{
			Pattern:     "perimeter|border|secure",
			SuccessRate: 0.90,
			OnSuccess: []Impact{
				{Path: "Israel.dynamic_metrics.morale_civilian", Min: 1, Max: 3},
			},
		},
		{Pattern: "reserve|mobiliz", SuccessRate: 0.95},
	},
	"intelligence": {
		{Pattern: "surveillance|monitor", SuccessRate: 0.70},
		{Pattern: "hostage|locate", SuccessRate: 0.40},
		{Pattern: "infiltrat|asset|channel", SuccessRate: 0.50},
		{Pattern: "counter-intelligence|collaborator", SuccessRate: 0.60},
	},
	"diplomatic": {
		{Pattern: "statement|affirm|condemn|support", SuccessRate: 0.95},
		{Pattern: "negotiat|mediat|hostage", SuccessRate: 0.30},
		{
			Pattern:     "carrier|deploy|military aid",
			SuccessRate: 0.95,
			OnSuccess: []Impact{
				{Path: "Israel.dynamic_metrics.morale_military", Min: 2, Max: 5},
			},
		},
	},
	"economic": {
		{Pattern: "budget|fund|emergency", SuccessRate: 0.90},
		{Pattern: "aid|package", SuccessRate: 0.80},
	},
	"internal": {
		{Pattern: "default", SuccessRate: 0.95},
	},
}

// FindMatchingRule returns the first rule of the action type whose
// pattern appears in the summary, or the 0.80 fallback.
func FindMatchingRule(actionType, summary string) Rule {
	summaryLower := strings.ToLower(summary)
	var fallback *Rule
	for i := range impactRules[actionType] {
		rule := &impactRules[actionType][i]
		if rule.Pattern == "default" {
			fallback = rule
			continue
		}
		for _, keyword := range strings.Split(rule.Pattern, "|") {
			if strings.Contains(summaryLower, keyword) {
				return *rule
			}
		}
	}
	if fallback != nil {
		return *fallback
	}
	return defaultRule
}

// RuleOutcome is the result of one rule application.
type RuleOutcome struct {
	Success     bool
	Changes     []kpi.Change
	RuleMatched bool
}

// RuleEngine owns the dice. A seeded source makes tests deterministic.
type RuleEngine struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRuleEngine creates an engine with the given random seed.
func NewRuleEngine(seed int64) *RuleEngine {
	return &RuleEngine{rng: rand.New(rand.NewSource(seed))}
}

// Apply draws the success verdict for an event and writes the matching
// KPI deltas. Unknown entities or metric paths are skipped, not errors;
// the world document decides what exists.
func (re *RuleEngine) Apply(actionType, summary string, store *kpi.Store) RuleOutcome {
	return re.ApplyWithModifier(actionType, summary, store, 1.0)
}

// ApplyWithModifier scales the matched rule's success rate, which is how
// spatial clashes make contested zones harder to act in.
func (re *RuleEngine) ApplyWithModifier(actionType, summary string, store *kpi.Store, successModifier float64) RuleOutcome {
	success := re.Draw(actionType, summary, successModifier)
	return re.ApplyVerdict(actionType, summary, store, success)
}

// Draw rolls the success verdict without touching any KPI, so callers
// can gate on approval checks before committing the outcome.
func (re *RuleEngine) Draw(actionType, summary string, successModifier float64) bool {
	rule := FindMatchingRule(actionType, summary)
	re.mu.Lock()
	defer re.mu.Unlock()
	return re.rng.Float64() < rule.SuccessRate*successModifier
}

// ApplyVerdict writes the KPI deltas for an already-decided verdict.
func (re *RuleEngine) ApplyVerdict(actionType, summary string, store *kpi.Store, success bool) RuleOutcome {
	rule := FindMatchingRule(actionType, summary)

	impacts := rule.OnSuccess
	verdict := "success"
	if !success {
		impacts = rule.OnFailure
		verdict = "failed"
	}

	out := RuleOutcome{Success: success, RuleMatched: len(impacts) > 0}
	for _, impact := range impacts {
		entity, metric, ok := splitImpactPath(impact.Path)
		if !ok {
			continue
		}
		change, err := store.ApplyDelta(entity, metric, float64(re.roll(impact.Min, impact.Max)),
			summary+" ("+verdict+")")
		if err != nil {
			continue
		}
		out.Changes = append(out.Changes, change)
	}
	return out
}

// roll draws an integer in [min, max], tolerating reversed bounds.
func (re *RuleEngine) roll(min, max int) int {
	if min > max {
		min, max = max, min
	}
	re.mu.Lock()
	defer re.mu.Unlock()
	return min + re.rng.Intn(max-min+1)
}

// splitImpactPath splits "Entity.category.metric" into entity and
// "category.metric".
func splitImpactPath(path string) (entity, metric string, ok bool) {
	parts := strings.SplitN(path, ".", 2)
	if len(parts) != 2 || !strings.Contains(parts[1], ".") {
		return "", "", false
	}
	return parts[0], parts[1], true
}

// pendingConfig marks action types whose summaries can defer resolution.
type pendingConfig struct {
	keywords       []string
	defaultMinutes int
}

var pendingKeywords = map[string]pendingConfig{
	"intelligence": {
		keywords:       []string{"operation", "surveillance", "monitor", "infiltrate", "gather intel", "locate", "track"},
		defaultMinutes: 120,
	},
	"diplomatic": {
		keywords:       []string{"negotiate", "talks", "propose", "request", "contact", "discuss"},
		defaultMinutes: 60,
	},
	"military": {
		keywords:       []string{"prepare assault", "position forces", "siege", "mobilize", "deploy reserve"},
		defaultMinutes: 30,
	},
}

// ClassifyPending reports whether an action resolves later rather than
// immediately, and the expected delay in game minutes.
func ClassifyPending(actionType, summary string) (pending bool, pendingType string, expectedMinutes int) {
	config, ok := pendingKeywords[actionType]
	if !ok {
		return false, "", 0
	}
	summaryLower := strings.ToLower(summary)
	for _, keyword := range config.keywords {
		if strings.Contains(summaryLower, keyword) {
			return true, actionType, config.defaultMinutes
		}
	}
	return false, "", 0
}

// approvalPattern describes one class of actions the head of government
// must sign off on.
type approvalPattern struct {
	requestType string
	actionTypes []string
	keywords    []string
	urgency     string
}

// approvalPatterns are checked in order; only actions by agents that
// report to the government are screened at all.
var approvalPatterns = []approvalPattern{
	{
		requestType: "military_major",
		actionTypes: []string{"military"},
		keywords: []string{"ground invasion", "ground assault", "large-scale", "full-scale",
			"assassination", "targeted killing", "deploy troops",
			"air strike on", "bomb", "special forces raid"},
		urgency: "immediate",
	},
	{
		requestType: "diplomatic",
		actionTypes: []string{"diplomatic"},
		keywords: []string{"ceasefire", "hostage deal", "prisoner exchange", "peace agreement",
			"formal alliance", "treaty", "surrender terms", "ultimatum"},
		urgency: "high",
	},
	{
		requestType: "budget",
		actionTypes: []string{"economic", "military"},
		keywords: []string{"billion", "emergency fund", "war bonds", "reserve mobilization",
			"emergency budget", "military procurement"},
		urgency: "normal",
	},
	{
		requestType: "international",
		actionTypes: []string{"diplomatic", "military"},
		keywords: []string{"foreign troops", "international force", "un", "nato",
			"coalition", "joint operation with"},
		urgency: "high",
	},
}

// ApprovalMatch describes why an action was routed to the player.
type ApprovalMatch struct {
	RequestType    string
	Urgency        string
	MatchedKeyword string
}

// CheckApprovalRequired screens one action against the approval
// patterns. The caller is responsible for only screening agents that
// report to the government.
func CheckApprovalRequired(actionType, summary string) *ApprovalMatch {
	summaryLower := strings.ToLower(summary)
	for _, pattern := range approvalPatterns {
		if !containsString(pattern.actionTypes, actionType) {
			continue
		}
		for _, keyword := range pattern.keywords {
			if matchKeyword(summaryLower, keyword) {
				return &ApprovalMatch{
					RequestType:    pattern.requestType,
					Urgency:        pattern.urgency,
					MatchedKeyword: keyword,
				}
			}
		}
	}
	return nil
}

// wholeWordKeywords are acronyms that must match complete words; plain
// substring matching would fire "un" on words such as "under".
var wholeWordKeywords = map[string]bool{"un": true, "nato": true}

// matchKeyword uses substring matching for phrases and whole-word
// matching for the acronym keywords.
func matchKeyword(summaryLower, keyword string) bool {
	if !wholeWordKeywords[keyword] {
		return strings.Contains(summaryLower, keyword)
	}
	for _, word := range strings.FieldsFunc(summaryLower, func(r rune) bool {
		return !('a' <= r && r <= 'z') && !('0' <= r && r <= '9')
	}) {
		if word == keyword {
			return true
		}
	}
	return false
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
