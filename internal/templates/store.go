// Package templates stores the field schemas devices are simulated from.
package templates

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"

	"vehicle-sim/internal/telemetry"
)

// ErrTemplateNotFound is returned when no template has the requested id.
var ErrTemplateNotFound = errors.New("template not found")

// DeviceTemplate is a named schema for one kind of device.
type DeviceTemplate struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
	// Topic optionally overrides the configured topic prefix.
	Topic   string                  `json:"topic,omitempty"`
	Payload []telemetry.FieldSchema `json:"payload"`
}

// Validate checks the id and the schema tree.
func (t DeviceTemplate) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("%w: template without id", telemetry.ErrInvalidSchema)
	}
	if len(t.Payload) == 0 {
		return fmt.Errorf("%w: template %q has no fields", telemetry.ErrInvalidSchema, t.ID)
	}
	if err := telemetry.ValidateFields(t.Payload); err != nil {
		return fmt.Errorf("template %q: %w", t.ID, err)
	}
	return nil
}

// Store reads and writes device templates.
type Store interface {
	Get(ctx context.Context, id string) (DeviceTemplate, error)
	Put(ctx context.Context, t DeviceTemplate) error
	List(ctx context.Context) ([]DeviceTemplate, error)
}

// decodeTemplate accepts either a full template object or a bare field array,
// in which case id becomes the template id.
func decodeTemplate(id string, doc any) (DeviceTemplate, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return DeviceTemplate{}, fmt.Errorf("template %q: %w", id, err)
	}
	var t DeviceTemplate
	if _, isList := doc.([]any); isList {
		fields, err := telemetry.ParseFields(data)
		if err != nil {
			return DeviceTemplate{}, fmt.Errorf("template %q: %w", id, err)
		}
		t = DeviceTemplate{ID: id, Name: id, Payload: fields}
	} else if err := json.Unmarshal(data, &t); err != nil {
		return DeviceTemplate{}, fmt.Errorf("template %q: %w", id, err)
	}
	if t.ID == "" {
		t.ID = id
	}
	if err := t.Validate(); err != nil {
		return DeviceTemplate{}, err
	}
	return t, nil
}

// MemoryStore keeps templates in memory.
type MemoryStore struct {
	mu    sync.RWMutex
	items map[string]DeviceTemplate
}

// NewMemoryStore returns a store holding ts.
func NewMemoryStore(ts ...DeviceTemplate) *MemoryStore {
	s := &MemoryStore{items: make(map[string]DeviceTemplate, len(ts))}
	for _, t := range ts {
		s.items[t.ID] = t
	}
	return s
}

func (s *MemoryStore) Get(_ context.Context, id string) (DeviceTemplate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.items[id]
	if !ok {
		return DeviceTemplate{}, fmt.Errorf("%w: %s", ErrTemplateNotFound, id)
	}
	return t, nil
}

func (s *MemoryStore) Put(_ context.Context, t DeviceTemplate) error {
	if err := t.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[t.ID] = t
	return nil
}

func (s *MemoryStore) List(_ context.Context) ([]DeviceTemplate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]DeviceTemplate, 0, len(s.items))
	for _, t := range s.items {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
