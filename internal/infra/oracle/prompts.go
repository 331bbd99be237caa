package oracle

import (
	"encoding/json"
	"fmt"
	"strings"
)

// DecisionSystemPrompt frames every autonomous agent call. The reply
// contract is strict JSON so the gateway can parse it without heuristics.
const DecisionSystemPrompt = `You are roleplaying a named actor inside a real-time geopolitical simulation of the Israel-Hamas war starting October 7, 2023.

Stay strictly in character. Act according to your actor's interests, capabilities and current knowledge. Time in the simulation is accelerated; your action should be plausible for the current simulation clock.

Respond with EXACTLY one JSON object and nothing else:

{
  "action_type": "diplomatic|military|economic|intelligence|internal|none",
  "summary": "one sentence describing the concrete action taken",
  "is_public": true,
  "affected_agents": ["entity or agent names"],
  "reasoning": "short private rationale, never shown to other actors",
  "target_zone": "optional zone name the action is aimed at",
  "relocate_to": "optional zone name to move your own assets to"
}

Use "none" when the actor would realistically do nothing right now. Zone names must come from the provided zone list; leave zone fields empty otherwise.`

// DecisionContext carries everything the model needs to act as one agent.
type DecisionContext struct {
	AgentID      string
	EntityName   string
	Description  string
	Capabilities []string
	GameTime     string
	Memories     []string
	PublicEvents []string
	ValidZones   []string
}

// BuildDecisionPrompt renders the per-agent user prompt.
func BuildDecisionPrompt(dc DecisionContext) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "## YOUR ACTOR\n\nID: %s\nEntity: %s\n", dc.AgentID, dc.EntityName)
	if dc.Description != "" {
		fmt.Fprintf(&sb, "Profile: %s\n", dc.Description)
	}
	if len(dc.Capabilities) > 0 {
		fmt.Fprintf(&sb, "Capabilities: %s\n", strings.Join(dc.Capabilities, ", "))
	}

	fmt.Fprintf(&sb, "\n## SIMULATION CLOCK\n\n%s\n", dc.GameTime)

	sb.WriteString("\n## YOUR RECENT MEMORY\n\n")
	if len(dc.Memories) == 0 {
		sb.WriteString("(no memories yet, the war has just begun)\n")
	}
	for _, m := range dc.Memories {
		fmt.Fprintf(&sb, "- %s\n", m)
	}

	sb.WriteString("\n## RECENT PUBLIC EVENTS\n\n")
	if len(dc.PublicEvents) == 0 {
		sb.WriteString("(none)\n")
	}
	for _, e := range dc.PublicEvents {
		fmt.Fprintf(&sb, "- %s\n", e)
	}

	fmt.Fprintf(&sb, "\n## VALID ZONES\n\n%s\n", strings.Join(dc.ValidZones, ", "))
	sb.WriteString("\n## TASK\n\nDecide your actor's next action and answer with the JSON object only.\n")

	return sb.String()
}

// Decision is the parsed reply of a decision call.
type Decision struct {
	ActionType     string   `json:"action_type"`
	Summary        string   `json:"summary"`
	IsPublic       *bool    `json:"is_public"`
	AffectedAgents []string `json:"affected_agents"`
	Reasoning      string   `json:"reasoning"`
	TargetZone     string   `json:"target_zone"`
	RelocateTo     string   `json:"relocate_to"`
}

// Public resolves the is_public flag; missing defaults to true.
func (d *Decision) Public() bool {
	return d.IsPublic == nil || *d.IsPublic
}

// ParseDecision extracts the JSON object from a model reply. Models wrap
// JSON in code fences or prose often enough that we cut from the first
// brace to the last.
func ParseDecision(raw string) (*Decision, error) {
	payload, err := extractJSONObject(raw)
	if err != nil {
		return nil, err
	}
	var d Decision
	if err := json.Unmarshal([]byte(payload), &d); err != nil {
		return nil, fmt.Errorf("oracle: decision reply is not valid JSON: %w", err)
	}
	d.ActionType = strings.ToLower(strings.TrimSpace(d.ActionType))
	if d.ActionType == "" {
		d.ActionType = "none"
	}
	return &d, nil
}

// ResolutionInput describes one event in a resolver batch.
type ResolutionInput struct {
	EventID    string `json:"event_id"`
	AgentID    string `json:"agent_id"`
	ActionType string `json:"action_type"`
	Summary    string `json:"summary"`
}

// ResolutionSystemPrompt frames the batched narrative call. The numeric
// outcome is decided elsewhere; the model only narrates.
const ResolutionSystemPrompt = `You are the narrative engine of a geopolitical war simulation. For each submitted action you write the outcome narrative.

You do NOT decide success or failure; a field "succeeded" is given per action. Write a one-to-three sentence outcome consistent with that verdict.

Respond with EXACTLY one JSON array, one object per input action:

[
  {"event_id": "evt_xxxxxxxx", "narrative": "what actually happened", "requires_approval": false}
]

Set "requires_approval" true only when the consequences clearly demand a head-of-government decision.`

// BuildResolutionPrompt renders the user prompt for one sub-batch.
func BuildResolutionPrompt(gameTime string, situations []string, batch []ResolutionInput, verdicts map[string]bool) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "## SIMULATION CLOCK\n\n%s\n", gameTime)

	sb.WriteString("\n## ONGOING SITUATIONS\n\n")
	if len(situations) == 0 {
		sb.WriteString("(none)\n")
	}
	for _, s := range situations {
		fmt.Fprintf(&sb, "- %s\n", s)
	}

	sb.WriteString("\n## ACTIONS TO RESOLVE\n\n")
	for i, in := range batch {
		verdict := "FAILED"
		if verdicts[in.EventID] {
			verdict = "SUCCEEDED"
		}
		fmt.Fprintf(&sb, "%d. [%s] %s by %s (%s): %s\n",
			i+1, in.EventID, in.ActionType, in.AgentID, verdict, in.Summary)
	}

	sb.WriteString("\nAnswer with the JSON array only.\n")
	return sb.String()
}

// ResolutionOutcome is one parsed narrative entry.
type ResolutionOutcome struct {
	EventID          string `json:"event_id"`
	Narrative        string `json:"narrative"`
	RequiresApproval bool   `json:"requires_approval"`
}

// ParseResolutionOutcomes extracts the JSON array from a narrative reply
// and indexes it by event id.
func ParseResolutionOutcomes(raw string) (map[string]ResolutionOutcome, error) {
	start := strings.Index(raw, "[")
	end := strings.LastIndex(raw, "]")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("oracle: no JSON array in narrative reply")
	}
	var list []ResolutionOutcome
	if err := json.Unmarshal([]byte(raw[start:end+1]), &list); err != nil {
		return nil, fmt.Errorf("oracle: narrative reply is not valid JSON: %w", err)
	}
	out := make(map[string]ResolutionOutcome, len(list))
	for _, o := range list {
		if o.EventID != "" {
			out[o.EventID] = o
		}
	}
	return out, nil
}

// MeetingTurnSystemPrompt frames one participant's spoken turn.
const MeetingTurnSystemPrompt = `You are roleplaying one participant in a high-level meeting during the Israel-Hamas war. Stay in character for your role and entity; proposals must be specific and actionable.

Respond with EXACTLY one JSON object:

{
  "action_type": "statement|proposal|counteroffer|demand|acceptance|rejection|question|briefing|recommendation|dissent",
  "content": "what you say, two to four sentences of direct speech",
  "addressed_to": ["agent ids, may be empty"],
  "emotional_tone": "calm|firm|aggressive|conciliatory|urgent",
  "position_update": "your updated position if it changed, otherwise empty",
  "private_reasoning": "internal strategy, never shown to the room"
}`

// MeetingTurnContext carries everything one speaker needs for a turn.
type MeetingTurnContext struct {
	Speaker         string
	Role            string
	RoleRule        string
	MeetingType     string
	Title           string
	GameTime        string
	Round           int
	MaxRounds       int
	Participants    []string
	AgendaItem      string
	InitialPosition string
	CurrentPosition string
	Transcript      []string
	Memories        []string
}

// BuildMeetingTurnPrompt renders the user prompt for one meeting turn.
func BuildMeetingTurnPrompt(tc MeetingTurnContext) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "## MEETING\n\nTitle: %s\nType: %s\nClock: %s\nRound: %d of %d\n",
		tc.Title, tc.MeetingType, tc.GameTime, tc.Round, tc.MaxRounds)
	fmt.Fprintf(&sb, "\n## PARTICIPANTS\n\n%s\n", strings.Join(tc.Participants, "\n"))
	if tc.AgendaItem != "" {
		fmt.Fprintf(&sb, "\n## CURRENT AGENDA ITEM\n\n%s\n", tc.AgendaItem)
	}

	fmt.Fprintf(&sb, "\n## YOU\n\n%s, attending as %s.\n%s\n", tc.Speaker, tc.Role, tc.RoleRule)
	if tc.InitialPosition != "" {
		fmt.Fprintf(&sb, "Initial position: %s\n", tc.InitialPosition)
	}
	if tc.CurrentPosition != "" {
		fmt.Fprintf(&sb, "Current position: %s\n", tc.CurrentPosition)
	}

	if len(tc.Memories) > 0 {
		sb.WriteString("\n## YOUR RECENT MEMORY\n\n")
		for _, m := range tc.Memories {
			fmt.Fprintf(&sb, "- %s\n", m)
		}
	}

	sb.WriteString("\n## TRANSCRIPT SO FAR\n\n")
	if len(tc.Transcript) == 0 {
		sb.WriteString("(the meeting has just been opened)\n")
	}
	for _, line := range tc.Transcript {
		fmt.Fprintf(&sb, "%s\n", line)
	}

	sb.WriteString("\nIt is your turn to speak. Answer with the JSON object only.\n")
	return sb.String()
}

// MeetingTurnReply is the parsed reply of one turn call.
type MeetingTurnReply struct {
	ActionType       string   `json:"action_type"`
	Content          string   `json:"content"`
	AddressedTo      []string `json:"addressed_to"`
	EmotionalTone    string   `json:"emotional_tone"`
	PositionUpdate   string   `json:"position_update"`
	PrivateReasoning string   `json:"private_reasoning"`
}

// ParseMeetingTurn extracts the JSON object from a turn reply and
// defaults the optional fields.
func ParseMeetingTurn(raw string) (*MeetingTurnReply, error) {
	payload, err := extractJSONObject(raw)
	if err != nil {
		return nil, err
	}
	var turn MeetingTurnReply
	if err := json.Unmarshal([]byte(payload), &turn); err != nil {
		return nil, fmt.Errorf("oracle: meeting turn reply is not valid JSON: %w", err)
	}
	if turn.ActionType == "" {
		turn.ActionType = "statement"
	}
	if turn.EmotionalTone == "" {
		turn.EmotionalTone = "neutral"
	}
	return &turn, nil
}

// MeetingOutcomeSystemPrompt frames the conclusion call.
const MeetingOutcomeSystemPrompt = `You summarize a concluded meeting from a war simulation. From the transcript, extract the concrete decisions made.

Respond with EXACTLY one JSON object:

{
  "summary": "two or three sentences summarizing the meeting",
  "decisions": [
    {"action_type": "diplomatic|military|economic|intelligence|internal", "summary": "one concrete decided action", "responsible_agent": "agent id", "affected_agents": ["..."]}
  ]
}

If the meeting reached no decisions, return an empty decisions array.`

// BuildMeetingOutcomePrompt renders the conclusion user prompt.
func BuildMeetingOutcomePrompt(meetingType, agenda string, transcript []string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "## MEETING\n\nType: %s\nAgenda: %s\n\n## FULL TRANSCRIPT\n\n", meetingType, agenda)
	for _, line := range transcript {
		fmt.Fprintf(&sb, "%s\n", line)
	}
	sb.WriteString("\nAnswer with the JSON object only.\n")
	return sb.String()
}

// MeetingOutcomeReply is the parsed conclusion of a meeting.
type MeetingOutcomeReply struct {
	Summary   string `json:"summary"`
	Decisions []struct {
		ActionType       string   `json:"action_type"`
		Summary          string   `json:"summary"`
		ResponsibleAgent string   `json:"responsible_agent"`
		AffectedAgents   []string `json:"affected_agents"`
	} `json:"decisions"`
}

// ParseMeetingOutcome extracts the JSON object from a conclusion reply.
func ParseMeetingOutcome(raw string) (*MeetingOutcomeReply, error) {
	payload, err := extractJSONObject(raw)
	if err != nil {
		return nil, err
	}
	var out MeetingOutcomeReply
	if err := json.Unmarshal([]byte(payload), &out); err != nil {
		return nil, fmt.Errorf("oracle: meeting outcome reply is not valid JSON: %w", err)
	}
	return &out, nil
}

func extractJSONObject(raw string) (string, error) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return "", fmt.Errorf("oracle: no JSON object in reply")
	}
	return raw[start : end+1], nil
}
