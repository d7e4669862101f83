package telemetry

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunStateDecode(t *testing.T) {
	var s RunState
	require.NoError(t, json.Unmarshal([]byte(`{"restart":false,"counter":"4","runtime":4.5,"vin":"ABC","context":{"fn":"x"}}`), &s))
	assert.False(t, s.Restart)
	assert.Equal(t, 4, s.Counter)
	assert.Equal(t, 4.5, s.Runtime)
	v, ok := s.Override("vin")
	assert.True(t, ok)
	assert.Equal(t, "ABC", v)
	_, ok = s.Override("context")
	assert.False(t, ok)
}

func TestRunStateMissingCounterRestarts(t *testing.T) {
	var s RunState
	require.NoError(t, json.Unmarshal([]byte(`{"restart":false}`), &s))
	assert.True(t, s.Restart)

	require.NoError(t, json.Unmarshal([]byte(`{"counter":null}`), &s))
	assert.True(t, s.Restart)
}

func TestRunStateEncodeFlat(t *testing.T) {
	s := RunState{Counter: 2, Runtime: 2, Overrides: map[string]any{"vin": "ABC"}}
	data, err := json.Marshal(s)
	require.NoError(t, err)
	assert.JSONEq(t, `{"restart":false,"counter":2,"runtime":2,"vin":"ABC"}`, string(data))
}

func TestRunStateCloneIsolated(t *testing.T) {
	s := RunState{Overrides: map[string]any{"a": 1.0}}
	c := s.Clone()
	c.SetOverride("b", 2.0)
	_, ok := s.Override("b")
	assert.False(t, ok)
}

func TestRunStateComplete(t *testing.T) {
	assert.False(t, RunState{Runtime: 4}.Complete(5))
	assert.True(t, RunState{Runtime: 5}.Complete(5))
	assert.True(t, RunState{Runtime: 6}.Complete(5))
}
