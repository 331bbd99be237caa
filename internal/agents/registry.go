// Package agents owns the agent profiles, their memory logs and the
// entity-to-agent mapping used for relevance-based memory fan-out.
//
// The registry is an explicit, lock-guarded store injected into every
// consumer; nothing here is ambient module state.
package agents

import (
	"errors"
	"sort"
	"strings"
	"sync"
	"time"
)

// ErrUnknownAgent is returned for agent ids not in the registry.
var ErrUnknownAgent = errors.New("agents: unknown agent")

// entityAgentMap groups agents by the entity they represent.
var entityAgentMap = map[string][]string{
	"Israel": {
		"Head-Of-Shabak", "Head-Of-Mossad", "IDF-Commander", "Defense-Minister",
		"Treasury-Minister", "Foreign-Minister", "Bank-of-Israel",
		"Media-Channel-12", "Media-Channel-14",
	},
	"USA":         {"USA-President", "USA-Secretary-of-State"},
	"UK":          {"UK-Prime-Minister"},
	"Russia":      {"Russia-President"},
	"Iran":        {"Iran-Ayatollah", "Iran-President"},
	"Egypt":       {"Egypt-President"},
	"Hamas":       {"Hamas-Leader", "Hamas-Gaza"},
	"PLO":         {"PLO-Prime-Minister", "PLO-President"},
	"North-Korea": {"North-Korea-Supreme-Leader"},
	"UN":          {"UN-Secretary-General"},
	"Gaza":        {}, // region, not an actor with agents
	"IDF":         {}, // subsumed under Israel agents
}

// agentEntityMap is the reverse index, built once at init.
var agentEntityMap = func() map[string]string {
	out := make(map[string]string)
	for entity, ids := range entityAgentMap {
		for _, id := range ids {
			out[id] = entity
		}
	}
	return out
}()

// EntityForAgent returns the entity an agent belongs to.
func EntityForAgent(agentID string) (string, bool) {
	entity, ok := agentEntityMap[agentID]
	return entity, ok
}

// AgentsForEntity returns all agents that belong to an entity.
func AgentsForEntity(entity string) []string {
	return append([]string(nil), entityAgentMap[entity]...)
}

// Profile describes one autonomous agent.
type Profile struct {
	ID                    string   `json:"agent_id"`
	EntityName            string   `json:"entity_name"`
	EntityType            string   `json:"entity_type"` // "Entity" agents are schedulable
	Description           string   `json:"description,omitempty"`
	EventFrequencyMinutes int      `json:"event_frequency"` // game minutes between actions
	Model                 string   `json:"model,omitempty"`
	IsReportingGovernment bool     `json:"is_reporting_government"`
	Enabled               bool     `json:"enabled"`
	Capabilities          []string `json:"capabilities,omitempty"`
	SearcherCapability    float64  `json:"searcher_capability,omitempty"`
}

// MemoryEntry is one line in an agent's memory log.
type MemoryEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Text      string    `json:"text"`
}

// Registry is the lock-guarded agent store.
type Registry struct {
	mu       sync.Mutex
	profiles map[string]*Profile
	memory   map[string][]MemoryEntry
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		profiles: make(map[string]*Profile),
		memory:   make(map[string][]MemoryEntry),
	}
}

// Register installs or replaces an agent profile.
func (r *Registry) Register(p Profile) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p.EventFrequencyMinutes <= 0 {
		p.EventFrequencyMinutes = 60
	}
	copied := p
	r.profiles[p.ID] = &copied
}

// Get returns a copy of one profile.
func (r *Registry) Get(id string) (Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.profiles[id]
	if !ok {
		return Profile{}, ErrUnknownAgent
	}
	return *p, nil
}

// SetEnabled toggles an agent; the scheduler observes the change within one
// poll cycle.
func (r *Registry) SetEnabled(id string, enabled bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.profiles[id]
	if !ok {
		return ErrUnknownAgent
	}
	p.Enabled = enabled
	return nil
}

// Enabled reports whether an agent is currently enabled.
func (r *Registry) Enabled(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.profiles[id]
	return ok && p.Enabled
}

// SchedulableAgents returns enabled agents of entity type "Entity".
func (r *Registry) SchedulableAgents() []Profile {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Profile
	for _, p := range r.profiles {
		if p.EntityType == "Entity" && p.Enabled {
			out = append(out, *p)
		}
	}
	return out
}

// AllProfiles returns a copy of every profile.
func (r *Registry) AllProfiles() []Profile {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Profile, 0, len(r.profiles))
	for _, p := range r.profiles {
		out = append(out, *p)
	}
	return out
}

// AddMemory appends one entry to an agent's memory log.
func (r *Registry) AddMemory(agentID string, at time.Time, text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.memory[agentID] = append(r.memory[agentID], MemoryEntry{Timestamp: at, Text: text})
}

// MemoryTail returns the newest n entries of an agent's memory.
func (r *Registry) MemoryTail(agentID string, n int) []MemoryEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	log := r.memory[agentID]
	if len(log) > n {
		log = log[len(log)-n:]
	}
	out := make([]MemoryEntry, len(log))
	copy(out, log)
	return out
}

// Snapshot is the persisted form of the registry: every profile plus
// the full memory logs.
type Snapshot struct {
	Profiles []Profile                `json:"profiles"`
	Memory   map[string][]MemoryEntry `json:"memory"`
}

// Export captures profiles and memory for persistence.
func (r *Registry) Export() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	snap := Snapshot{Memory: make(map[string][]MemoryEntry, len(r.memory))}
	for _, p := range r.profiles {
		snap.Profiles = append(snap.Profiles, *p)
	}
	sort.Slice(snap.Profiles, func(i, j int) bool { return snap.Profiles[i].ID < snap.Profiles[j].ID })
	for id, log := range r.memory {
		copied := make([]MemoryEntry, len(log))
		copy(copied, log)
		snap.Memory[id] = copied
	}
	return snap
}

// Restore replaces the registry contents from a snapshot.
func (r *Registry) Restore(snap Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.profiles = make(map[string]*Profile, len(snap.Profiles))
	for _, p := range snap.Profiles {
		if p.EventFrequencyMinutes <= 0 {
			p.EventFrequencyMinutes = 60
		}
		copied := p
		r.profiles[p.ID] = &copied
	}
	r.memory = make(map[string][]MemoryEntry, len(snap.Memory))
	for id, log := range snap.Memory {
		copied := make([]MemoryEntry, len(log))
		copy(copied, log)
		r.memory[id] = copied
	}
}

// RelevantAgents determines which agents should receive memory of a public
// event: the actor's colleagues (same entity), directly affected agents,
// and every agent of an affected entity. The actor and internal System-*
// actors are always excluded.
func RelevantAgents(actorID string, affected []string) map[string]struct{} {
	relevant := make(map[string]struct{})

	if entity, ok := EntityForAgent(actorID); ok {
		for _, id := range entityAgentMap[entity] {
			relevant[id] = struct{}{}
		}
	}

	for _, name := range affected {
		if _, isAgent := agentEntityMap[name]; isAgent {
			relevant[name] = struct{}{}
			continue
		}
		if members, isEntity := entityAgentMap[name]; isEntity {
			for _, id := range members {
				relevant[id] = struct{}{}
			}
		}
	}

	delete(relevant, actorID)
	for id := range relevant {
		if strings.HasPrefix(id, "System-") {
			delete(relevant, id)
		}
	}
	return relevant
}
