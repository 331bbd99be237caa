// Package kpi owns per-entity metric documents.
//
// Documents are nested maps (category -> metric -> value) loaded from one
// JSON file per entity. Mutation happens only through deltas: numeric values
// are adjusted additively, non-numeric values are replaced. The document
// structure itself is never altered by a delta.
package kpi

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
)

var (
	// ErrUnknownEntity is returned when no document exists for an entity.
	ErrUnknownEntity = errors.New("kpi: unknown entity")
	// ErrUnknownMetric is returned when a delta names a path that does not
	// exist; deltas never create structure.
	ErrUnknownMetric = errors.New("kpi: unknown metric path")
)

// Change records one applied delta for audit trails.
type Change struct {
	Entity   string      `json:"entity"`
	Metric   string      `json:"metric"`
	OldValue interface{} `json:"old_value"`
	NewValue interface{} `json:"new_value"`
	Reason   string      `json:"reason,omitempty"`
}

// Store caches every entity document behind one mutex.
type Store struct {
	mu   sync.Mutex
	docs map[string]map[string]interface{}
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{docs: make(map[string]map[string]interface{})}
}

// LoadEntity installs (or replaces) an entity document from raw JSON.
func (s *Store) LoadEntity(entity string, data []byte) error {
	var doc map[string]interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("kpi: parse document for %s: %w", entity, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[entity] = doc
	return nil
}

// SetEntity installs a document directly (used for seeding and tests).
func (s *Store) SetEntity(entity string, doc map[string]interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[entity] = doc
}

// Entities lists entities with loaded documents.
func (s *Store) Entities() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.docs))
	for entity := range s.docs {
		out = append(out, entity)
	}
	return out
}

// Get returns a deep copy of an entity document.
func (s *Store) Get(entity string) (map[string]interface{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[entity]
	if !ok {
		return nil, ErrUnknownEntity
	}
	return deepCopy(doc), nil
}

// All returns a deep copy of every document, keyed by entity.
func (s *Store) All() map[string]map[string]interface{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]map[string]interface{}, len(s.docs))
	for entity, doc := range s.docs {
		out[entity] = deepCopy(doc)
	}
	return out
}

// ApplyDelta mutates one metric. The path is "category.metric" (nested
// further with dots). Numeric targets are incremented by a numeric change;
// everything else is replaced. The increment is atomic end-to-end under the
// store lock.
func (s *Store) ApplyDelta(entity, metricPath string, change interface{}, reason string) (Change, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.docs[entity]
	if !ok {
		return Change{}, ErrUnknownEntity
	}

	parts := strings.Split(metricPath, ".")
	if len(parts) < 2 {
		return Change{}, fmt.Errorf("%w: %q", ErrUnknownMetric, metricPath)
	}

	// Walk to the parent container without creating structure.
	container := doc
	for _, part := range parts[:len(parts)-1] {
		next, ok := container[part].(map[string]interface{})
		if !ok {
			return Change{}, fmt.Errorf("%w: %s.%s", ErrUnknownMetric, entity, metricPath)
		}
		container = next
	}

	leaf := parts[len(parts)-1]
	old, ok := container[leaf]
	if !ok {
		return Change{}, fmt.Errorf("%w: %s.%s", ErrUnknownMetric, entity, metricPath)
	}

	oldNum, oldIsNum := asFloat(old)
	deltaNum, deltaIsNum := asFloat(change)

	var updated interface{}
	if oldIsNum && deltaIsNum {
		updated = oldNum + deltaNum
	} else {
		updated = change
	}
	container[leaf] = updated

	return Change{
		Entity:   entity,
		Metric:   metricPath,
		OldValue: old,
		NewValue: updated,
		Reason:   reason,
	}, nil
}

// MetricValue reads one metric without copying the whole document.
func (s *Store) MetricValue(entity, metricPath string) (interface{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.docs[entity]
	if !ok {
		return nil, ErrUnknownEntity
	}
	parts := strings.Split(metricPath, ".")
	container := doc
	for _, part := range parts[:len(parts)-1] {
		next, ok := container[part].(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("%w: %s.%s", ErrUnknownMetric, entity, metricPath)
		}
		container = next
	}
	value, ok := container[parts[len(parts)-1]]
	if !ok {
		return nil, fmt.Errorf("%w: %s.%s", ErrUnknownMetric, entity, metricPath)
	}
	return value, nil
}

// ExportEntity serializes one entity document.
func (s *Store) ExportEntity(entity string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[entity]
	if !ok {
		return nil, ErrUnknownEntity
	}
	return json.MarshalIndent(doc, "", "  ")
}

func asFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

func deepCopy(doc map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(doc))
	for k, v := range doc {
		if nested, ok := v.(map[string]interface{}); ok {
			out[k] = deepCopy(nested)
		} else {
			out[k] = v
		}
	}
	return out
}
