package telemetry

import (
	"encoding/json"
	"fmt"
	"maps"
)

const (
	keyRestart = "restart"
	keyCounter = "counter"
	keyRuntime = "runtime"
	// keyContext carries the caller's execution context; it is never
	// serialized back.
	keyContext = "context"
)

// RunState is the per-device progress threaded between ticks by the
// scheduler. On the wire it is the flat "options" bag: restart, counter and
// runtime plus any static override keyed by field name.
type RunState struct {
	Restart   bool
	Counter   int
	Runtime   float64
	Overrides map[string]any
}

// Complete reports whether the run has reached its target duration.
func (s RunState) Complete(duration float64) bool {
	return s.Runtime >= duration
}

// Clone returns a copy whose Overrides map can be mutated independently.
func (s RunState) Clone() RunState {
	out := s
	if s.Overrides != nil {
		out.Overrides = maps.Clone(s.Overrides)
	}
	return out
}

// Override returns the value stored for a field name, if any.
func (s RunState) Override(name string) (any, bool) {
	v, ok := s.Overrides[name]
	return v, ok
}

// SetOverride remembers a value for a field name.
func (s *RunState) SetOverride(name string, v any) {
	if s.Overrides == nil {
		s.Overrides = make(map[string]any)
	}
	s.Overrides[name] = v
}

// MarshalJSON flattens the state into the options bag.
func (s RunState) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(s.Overrides)+3)
	for k, v := range s.Overrides {
		if k == keyContext {
			continue
		}
		out[k] = v
	}
	out[keyRestart] = s.Restart
	out[keyCounter] = s.Counter
	out[keyRuntime] = s.Runtime
	return json.Marshal(out)
}

// UnmarshalJSON reads an options bag. A bag without a counter starts a new
// run, so Restart is forced on.
func (s *RunState) UnmarshalJSON(data []byte) error {
	var bag map[string]json.RawMessage
	if err := json.Unmarshal(data, &bag); err != nil {
		return err
	}
	*s = RunState{}
	for k, raw := range bag {
		if string(raw) == "null" {
			delete(bag, k)
			continue
		}
		switch k {
		case keyRestart:
			var b flexBool
			if err := json.Unmarshal(raw, &b); err != nil {
				return fmt.Errorf("options.restart: %w", err)
			}
			s.Restart = bool(b)
		case keyCounter:
			var n flexFloat
			if err := json.Unmarshal(raw, &n); err != nil {
				return fmt.Errorf("options.counter: %w", err)
			}
			s.Counter = int(n)
		case keyRuntime:
			var n flexFloat
			if err := json.Unmarshal(raw, &n); err != nil {
				return fmt.Errorf("options.runtime: %w", err)
			}
			s.Runtime = float64(n)
		case keyContext:
		default:
			var v any
			if err := json.Unmarshal(raw, &v); err != nil {
				return fmt.Errorf("options.%s: %w", k, err)
			}
			s.SetOverride(k, v)
		}
	}
	if _, ok := bag[keyCounter]; !ok {
		s.Restart = true
	}
	return nil
}
