package kpi

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func hamasDoc() map[string]interface{} {
	return map[string]interface{}{
		"dynamic_metrics": map[string]interface{}{
			"fighters_remaining": float64(30000),
			"casualties":         float64(0),
			"posture":            "entrenched",
		},
	}
}

func TestApplyDeltaAdditiveForNumbers(t *testing.T) {
	s := NewStore()
	s.SetEntity("Hamas", hamasDoc())

	change, err := s.ApplyDelta("Hamas", "dynamic_metrics.fighters_remaining", -25, "airstrike")
	require.NoError(t, err)
	assert.Equal(t, float64(30000), change.OldValue)
	assert.Equal(t, float64(29975), change.NewValue)

	value, err := s.MetricValue("Hamas", "dynamic_metrics.fighters_remaining")
	require.NoError(t, err)
	assert.Equal(t, float64(29975), value)
}

func TestApplyDeltaReplacesNonNumeric(t *testing.T) {
	s := NewStore()
	s.SetEntity("Hamas", hamasDoc())

	change, err := s.ApplyDelta("Hamas", "dynamic_metrics.posture", "retreating", "ground op")
	require.NoError(t, err)
	assert.Equal(t, "entrenched", change.OldValue)
	assert.Equal(t, "retreating", change.NewValue)
}

func TestApplyDeltaNeverCreatesStructure(t *testing.T) {
	s := NewStore()
	s.SetEntity("Hamas", hamasDoc())

	_, err := s.ApplyDelta("Hamas", "dynamic_metrics.nonexistent", 5, "")
	assert.ErrorIs(t, err, ErrUnknownMetric)

	_, err = s.ApplyDelta("Hamas", "missing_category.metric", 5, "")
	assert.ErrorIs(t, err, ErrUnknownMetric)

	_, err = s.ApplyDelta("Atlantis", "dynamic_metrics.casualties", 5, "")
	assert.ErrorIs(t, err, ErrUnknownEntity)

	// The failed deltas left the document untouched.
	doc, err := s.Get("Hamas")
	require.NoError(t, err)
	assert.Equal(t, hamasDoc(), doc)
}

func TestGetReturnsCopy(t *testing.T) {
	s := NewStore()
	s.SetEntity("Hamas", hamasDoc())

	doc, err := s.Get("Hamas")
	require.NoError(t, err)
	doc["dynamic_metrics"].(map[string]interface{})["casualties"] = float64(999)

	value, err := s.MetricValue("Hamas", "dynamic_metrics.casualties")
	require.NoError(t, err)
	assert.Equal(t, float64(0), value)
}

func TestLoadExportRoundTrip(t *testing.T) {
	s := NewStore()
	s.SetEntity("Hamas", hamasDoc())

	data, err := s.ExportEntity("Hamas")
	require.NoError(t, err)

	reloaded := NewStore()
	require.NoError(t, reloaded.LoadEntity("Hamas", data))

	original, _ := s.Get("Hamas")
	copied, _ := reloaded.Get("Hamas")
	assert.Equal(t, original, copied)
}
