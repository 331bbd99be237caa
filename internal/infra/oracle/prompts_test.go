package oracle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDecisionHandlesCodeFences(t *testing.T) {
	raw := "Here is my action:\n```json\n{\"action_type\": \"Military\", \"summary\": \"Strike tunnel network\", \"is_public\": true, \"affected_agents\": [\"Hamas\"], \"target_zone\": \"Jabalia\"}\n```"

	d, err := ParseDecision(raw)
	require.NoError(t, err)
	assert.Equal(t, "military", d.ActionType)
	assert.Equal(t, "Strike tunnel network", d.Summary)
	assert.True(t, d.Public())
	assert.Equal(t, []string{"Hamas"}, d.AffectedAgents)
	assert.Equal(t, "Jabalia", d.TargetZone)
}

func TestParseDecisionDefaults(t *testing.T) {
	d, err := ParseDecision(`{"summary": "wait and observe"}`)
	require.NoError(t, err)
	assert.Equal(t, "none", d.ActionType)
	assert.True(t, d.Public(), "missing is_public defaults to public")

	d, err = ParseDecision(`{"action_type": "internal", "is_public": false}`)
	require.NoError(t, err)
	assert.False(t, d.Public())
}

func TestParseDecisionRejectsNonJSON(t *testing.T) {
	_, err := ParseDecision("I refuse to answer in JSON.")
	assert.Error(t, err)

	_, err = ParseDecision("{broken")
	assert.Error(t, err)
}

func TestParseResolutionOutcomesIndexesByEventID(t *testing.T) {
	raw := `Narratives below.
[
  {"event_id": "evt_aaaa1111", "narrative": "The strike destroyed the shaft.", "requires_approval": false},
  {"event_id": "evt_bbbb2222", "narrative": "Talks stalled.", "requires_approval": true},
  {"event_id": "", "narrative": "orphan entry"}
]`

	outcomes, err := ParseResolutionOutcomes(raw)
	require.NoError(t, err)
	require.Len(t, outcomes, 2)
	assert.False(t, outcomes["evt_aaaa1111"].RequiresApproval)
	assert.True(t, outcomes["evt_bbbb2222"].RequiresApproval)
}

func TestBuildResolutionPromptMarksVerdicts(t *testing.T) {
	batch := []ResolutionInput{
		{EventID: "evt_a", AgentID: "IDF-Commander", ActionType: "military", Summary: "airstrike on tunnel"},
		{EventID: "evt_b", AgentID: "Hamas-Leader", ActionType: "military", Summary: "rocket barrage"},
	}
	prompt := BuildResolutionPrompt("2023-10-07 08:00", nil, batch, map[string]bool{"evt_a": true})

	assert.Contains(t, prompt, "[evt_a] military by IDF-Commander (SUCCEEDED)")
	assert.Contains(t, prompt, "[evt_b] military by Hamas-Leader (FAILED)")
}

func TestParseMeetingOutcome(t *testing.T) {
	raw := `{"summary": "The cabinet approved a limited incursion.", "decisions": [{"action_type": "military", "summary": "Begin staged ground entry into northern Gaza", "responsible_agent": "IDF-Commander", "affected_agents": ["Hamas", "Gaza"]}]}`

	out, err := ParseMeetingOutcome(raw)
	require.NoError(t, err)
	assert.NotEmpty(t, out.Summary)
	require.Len(t, out.Decisions, 1)
	assert.Equal(t, "IDF-Commander", out.Decisions[0].ResponsibleAgent)
}

func TestBudgetGate(t *testing.T) {
	bg := NewBudgetGate(100)
	assert.True(t, bg.Allow())
	bg.Record(60)
	assert.True(t, bg.Allow())
	bg.Record(60)
	assert.False(t, bg.Allow(), "spend beyond the limit closes the gate")

	spent, limit, denied := bg.Status()
	assert.Equal(t, 120, spent)
	assert.Equal(t, 100, limit)
	assert.Equal(t, 1, denied)

	unlimited := NewBudgetGate(0)
	unlimited.Record(1 << 20)
	assert.True(t, unlimited.Allow(), "zero limit disables the gate")
}
