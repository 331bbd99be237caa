package agents

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testProfile(id, entity string) Profile {
	return Profile{
		ID:         id,
		EntityName: entity,
		EntityType: "Entity",
		Enabled:    true,
	}
}

func TestRegisterDefaultsEventFrequency(t *testing.T) {
	r := NewRegistry()
	r.Register(testProfile("Hamas-Leader", "Hamas"))

	p, err := r.Get("Hamas-Leader")
	require.NoError(t, err)
	assert.Equal(t, 60, p.EventFrequencyMinutes)
}

func TestSchedulableAgentsFiltersTypeAndEnabled(t *testing.T) {
	r := NewRegistry()
	r.Register(testProfile("Hamas-Leader", "Hamas"))
	r.Register(Profile{ID: "PM-Player", EntityName: "Israel", EntityType: "Player", Enabled: true})
	r.Register(Profile{ID: "Iran-President", EntityName: "Iran", EntityType: "Entity", Enabled: false})

	schedulable := r.SchedulableAgents()
	require.Len(t, schedulable, 1)
	assert.Equal(t, "Hamas-Leader", schedulable[0].ID)

	require.NoError(t, r.SetEnabled("Iran-President", true))
	assert.Len(t, r.SchedulableAgents(), 2)
}

func TestSetEnabledUnknownAgent(t *testing.T) {
	r := NewRegistry()
	assert.ErrorIs(t, r.SetEnabled("nobody", true), ErrUnknownAgent)
}

func TestMemoryTailReturnsNewestEntries(t *testing.T) {
	r := NewRegistry()
	base := time.Date(2023, 10, 7, 6, 29, 0, 0, time.UTC)
	for i := 0; i < 25; i++ {
		r.AddMemory("IDF-Commander", base.Add(time.Duration(i)*time.Minute), "entry")
	}

	tail := r.MemoryTail("IDF-Commander", 20)
	require.Len(t, tail, 20)
	assert.Equal(t, base.Add(5*time.Minute), tail[0].Timestamp)
	assert.Equal(t, base.Add(24*time.Minute), tail[19].Timestamp)

	assert.Empty(t, r.MemoryTail("nobody", 20))
}

func TestRelevantAgentsCombinesColleaguesAndAffected(t *testing.T) {
	relevant := RelevantAgents("IDF-Commander", []string{"Hamas", "USA-President"})

	// Same-entity colleagues, minus the actor.
	assert.Contains(t, relevant, "Defense-Minister")
	assert.Contains(t, relevant, "Head-Of-Mossad")
	assert.NotContains(t, relevant, "IDF-Commander")

	// Affected entity fans out to all of its agents.
	assert.Contains(t, relevant, "Hamas-Leader")
	assert.Contains(t, relevant, "Hamas-Gaza")

	// Directly named agents come through as-is.
	assert.Contains(t, relevant, "USA-President")
}

func TestRelevantAgentsExcludesSystemActors(t *testing.T) {
	relevant := RelevantAgents("Hamas-Leader", []string{"System-Resolver", "Israel"})
	assert.NotContains(t, relevant, "System-Resolver")
	assert.Contains(t, relevant, "IDF-Commander")
}

func TestEntityLookupHelpers(t *testing.T) {
	entity, ok := EntityForAgent("UN-Secretary-General")
	require.True(t, ok)
	assert.Equal(t, "UN", entity)

	_, ok = EntityForAgent("nobody")
	assert.False(t, ok)

	assert.Len(t, AgentsForEntity("Israel"), 9)
	assert.Empty(t, AgentsForEntity("Gaza"))
}
