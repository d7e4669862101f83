// Package handler adapts the tick orchestrator to the event shape sent by the
// external state machine that schedules device ticks.
package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aws/aws-lambda-go/events"

	"vehicle-sim/internal/dynamomapper"
	"vehicle-sim/internal/logging"
	"vehicle-sim/internal/sim"
	"vehicle-sim/internal/telemetry"
)

// ErrInvalidEvent is returned for events missing required parts.
var ErrInvalidEvent = errors.New("invalid tick event")

// Event is one tick invocation.
type Event struct {
	Simulation SimulationInfo      `json:"simulation"`
	Options    *telemetry.RunState `json:"options,omitempty"`
	Info       DeviceInfo          `json:"info"`
	Index      int                 `json:"index"`
}

type SimulationInfo struct {
	Interval any    `json:"interval"`
	Duration any    `json:"duration"`
	SimID    string `json:"sim_id"`
}

// DeviceInfo describes the simulated device. Payload is the field list,
// either DynamoDB typed ({"L":[{"M":...}]}) or plain JSON.
type DeviceInfo struct {
	Name    string          `json:"name"`
	Payload json.RawMessage `json:"payload"`
	Topic   string          `json:"topic"`
}

// Ticker is the orchestrator behaviour the handler needs.
type Ticker interface {
	Tick(ctx context.Context, req sim.TickRequest) (sim.TickResult, error)
}

type TickHandler struct {
	Orchestrator Ticker
}

// Handle runs one tick and returns the options bag for the next invocation.
func (h *TickHandler) Handle(ctx context.Context, ev Event) (telemetry.RunState, error) {
	if ev.Info.Name == "" {
		return telemetry.RunState{}, fmt.Errorf("%w: info.name is required", ErrInvalidEvent)
	}
	fields, err := DecodePayload(ev.Info.Payload)
	if err != nil {
		return telemetry.RunState{}, fmt.Errorf("device %s: %w", ev.Info.Name, err)
	}

	res, err := h.Orchestrator.Tick(ctx, sim.TickRequest{
		SimID:       ev.Simulation.SimID,
		DeviceName:  ev.Info.Name,
		Index:       ev.Index,
		TopicPrefix: ev.Info.Topic,
		Fields:      fields,
		Interval:    ev.Simulation.Interval,
		Duration:    ev.Simulation.Duration,
		State:       ev.Options,
	})
	if err != nil {
		return telemetry.RunState{}, err
	}
	logging.FromContext(ctx).Info("tick published",
		"topic", res.Topic, "counter", res.State.Counter, "runtime", res.State.Runtime, "complete", res.Complete)
	return res.State, nil
}

// DecodePayload parses a device payload into field schemas.
func DecodePayload(raw json.RawMessage) ([]telemetry.FieldSchema, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, fmt.Errorf("%w: info.payload is required", ErrInvalidEvent)
	}
	if raw[0] == '{' {
		var av events.DynamoDBAttributeValue
		if err := json.Unmarshal(raw, &av); err == nil {
			plain, err := json.Marshal(dynamomapper.SimplifyEventValue(av))
			if err != nil {
				return nil, err
			}
			raw = plain
		}
	}
	fields, err := telemetry.ParseFields(raw)
	if err != nil {
		return nil, fmt.Errorf("payload: %w", err)
	}
	return fields, nil
}
