package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ziv044/PM1/internal/agents"
	"github.com/ziv044/PM1/internal/geo"
	"github.com/ziv044/PM1/internal/kpi"
	"github.com/ziv044/PM1/internal/meetings"
	"github.com/ziv044/PM1/internal/world"
)

const (
	simulationFile = "simulation_state.json"
	mapFile        = "map_state.json"
	meetingsFile   = "meetings.json"
	agentsFile     = "agents.json"
	kpiDir         = "kpis"
)

// SnapshotStore reads and writes one game's JSON state documents
// under <root>/<gameID>/. Writes go through a temp file and a rename
// so a crash mid-save never leaves a torn document.
type SnapshotStore struct {
	root   string
	gameID string
}

func NewSnapshotStore(root, gameID string) *SnapshotStore {
	return &SnapshotStore{root: root, gameID: gameID}
}

func (s *SnapshotStore) gameDir() string {
	return filepath.Join(s.root, s.gameID)
}

func (s *SnapshotStore) writeDoc(relPath string, data []byte) error {
	path := filepath.Join(s.gameDir(), relPath)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create snapshot directory: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", relPath, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to commit %s: %w", relPath, err)
	}
	return nil
}

func (s *SnapshotStore) readDoc(relPath string) ([]byte, error) {
	return os.ReadFile(filepath.Join(s.gameDir(), relPath))
}

// Exists reports whether this game has a simulation document on disk.
func (s *SnapshotStore) Exists() bool {
	_, err := os.Stat(filepath.Join(s.gameDir(), simulationFile))
	return err == nil
}

func (s *SnapshotStore) SaveSimulation(snap world.Snapshot) error {
	data, err := world.MarshalSnapshot(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal simulation state: %w", err)
	}
	return s.writeDoc(simulationFile, data)
}

func (s *SnapshotStore) LoadSimulation() (world.Snapshot, error) {
	data, err := s.readDoc(simulationFile)
	if err != nil {
		return world.Snapshot{}, fmt.Errorf("failed to read simulation state: %w", err)
	}
	return world.UnmarshalSnapshot(data)
}

func (s *SnapshotStore) SaveMap(snap geo.Snapshot) error {
	data, err := geo.MarshalSnapshot(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal map state: %w", err)
	}
	return s.writeDoc(mapFile, data)
}

func (s *SnapshotStore) LoadMap() (geo.Snapshot, error) {
	data, err := s.readDoc(mapFile)
	if err != nil {
		return geo.Snapshot{}, fmt.Errorf("failed to read map state: %w", err)
	}
	return geo.UnmarshalSnapshot(data)
}

func (s *SnapshotStore) SaveMeetings(snap meetings.Snapshot) error {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal meetings: %w", err)
	}
	return s.writeDoc(meetingsFile, data)
}

func (s *SnapshotStore) LoadMeetings() (meetings.Snapshot, error) {
	var snap meetings.Snapshot
	data, err := s.readDoc(meetingsFile)
	if err != nil {
		return snap, fmt.Errorf("failed to read meetings: %w", err)
	}
	if err := json.Unmarshal(data, &snap); err != nil {
		return snap, fmt.Errorf("failed to unmarshal meetings: %w", err)
	}
	return snap, nil
}

func (s *SnapshotStore) SaveAgents(snap agents.Snapshot) error {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal agents: %w", err)
	}
	return s.writeDoc(agentsFile, data)
}

func (s *SnapshotStore) LoadAgents() (agents.Snapshot, error) {
	var snap agents.Snapshot
	data, err := s.readDoc(agentsFile)
	if err != nil {
		return snap, fmt.Errorf("failed to read agents: %w", err)
	}
	if err := json.Unmarshal(data, &snap); err != nil {
		return snap, fmt.Errorf("failed to unmarshal agents: %w", err)
	}
	return snap, nil
}

// SaveKPIs writes one document per entity under kpis/.
func (s *SnapshotStore) SaveKPIs(store *kpi.Store) error {
	for _, entity := range store.Entities() {
		data, err := store.ExportEntity(entity)
		if err != nil {
			return fmt.Errorf("failed to export KPIs for %s: %w", entity, err)
		}
		if err := s.writeDoc(filepath.Join(kpiDir, entityFileName(entity)), data); err != nil {
			return err
		}
	}
	return nil
}

// LoadKPIs reads every entity document under kpis/ into the store.
func (s *SnapshotStore) LoadKPIs(store *kpi.Store) error {
	dir := filepath.Join(s.gameDir(), kpiDir)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("failed to read KPI directory: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", entry.Name(), err)
		}
		entity := strings.TrimSuffix(entry.Name(), ".json")
		if err := store.LoadEntity(entity, data); err != nil {
			return fmt.Errorf("failed to load KPIs for %s: %w", entity, err)
		}
	}
	return nil
}

// Delete removes every document of this game.
func (s *SnapshotStore) Delete() error {
	return os.RemoveAll(s.gameDir())
}

func entityFileName(entity string) string {
	return strings.ReplaceAll(entity, string(os.PathSeparator), "_") + ".json"
}
