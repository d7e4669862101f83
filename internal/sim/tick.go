package sim

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"strconv"
	"strings"
	"time"

	"vehicle-sim/internal/logging"
	"vehicle-sim/internal/telemetry"
)

// ErrBadSeconds is returned when an interval or duration is not a number.
var ErrBadSeconds = errors.New("not a number of seconds")

// TickRequest carries everything a single device tick needs. Interval and
// Duration are kept loosely typed because external schedulers send numbers
// and numeric strings interchangeably.
type TickRequest struct {
	SimID       string
	DeviceName  string
	Index       int
	TopicPrefix string
	Fields      []telemetry.FieldSchema
	Interval    any
	Duration    any
	State       *telemetry.RunState
	// Rand overrides the orchestrator's random source for this tick.
	Rand *rand.Rand
}

// TickResult is the outcome of one tick.
type TickResult struct {
	State    telemetry.RunState
	Record   telemetry.Record
	Topic    string
	Complete bool
}

// Orchestrator runs single device ticks: it advances run state, resolves
// every field and publishes the resulting record.
type Orchestrator struct {
	publisher   Publisher
	topicPrefix string
	newRand     func() *rand.Rand
	now         func() time.Time
}

// OrchestratorOption customises an Orchestrator.
type OrchestratorOption func(*Orchestrator)

// WithTopicPrefix sets the prefix used when a request carries none.
func WithTopicPrefix(prefix string) OrchestratorOption {
	return func(o *Orchestrator) { o.topicPrefix = prefix }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) OrchestratorOption {
	return func(o *Orchestrator) { o.now = now }
}

// WithRandFactory sets how a random source is created for requests without one.
func WithRandFactory(fn func() *rand.Rand) OrchestratorOption {
	return func(o *Orchestrator) { o.newRand = fn }
}

// NewOrchestrator creates an orchestrator publishing through pub.
func NewOrchestrator(pub Publisher, opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		publisher: pub,
		now:       time.Now,
		newRand: func() *rand.Rand {
			return rand.New(rand.NewSource(time.Now().UnixNano()))
		},
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.publisher == nil {
		o.publisher = Discard
	}
	return o
}

// Tick executes one step of a device run.
func (o *Orchestrator) Tick(ctx context.Context, req TickRequest) (TickResult, error) {
	log := logging.FromContext(ctx).With("device", req.DeviceName, "index", req.Index)

	duration, err := ParseSeconds(req.Duration)
	if err != nil {
		return TickResult{}, fmt.Errorf("simulation duration: %w", err)
	}

	var state telemetry.RunState
	if req.State != nil {
		state = req.State.Clone()
	}
	if req.State == nil || state.Restart {
		state.Restart = false
		state.Counter = 0
		state.Runtime = 0
	} else {
		state.Counter++
		interval, err := ParseSeconds(req.Interval)
		if err != nil {
			log.Warn("unparseable interval, completing run", "interval", req.Interval, "err", err)
			state.Runtime = duration
		} else {
			state.Runtime += interval
		}
	}

	r := req.Rand
	if r == nil {
		r = o.newRand()
	}
	gen := telemetry.NewGenerator(r, o.now)

	rec := make(telemetry.Record, len(req.Fields))
	for _, f := range req.Fields {
		v, err := resolveField(gen, f, &state)
		if err != nil {
			return TickResult{}, fmt.Errorf("field %q: %w", f.Name, err)
		}
		rec[f.Name] = v
	}

	prefix := req.TopicPrefix
	if prefix == "" {
		prefix = o.topicPrefix
	}
	topic := Topic(prefix, req.DeviceName, req.Index)
	msg := Message{
		Topic:     topic,
		SimID:     req.SimID,
		Device:    req.DeviceName,
		Index:     req.Index,
		Counter:   state.Counter,
		Payload:   rec,
		Timestamp: o.now().UTC(),
	}
	if err := o.publisher.Publish(ctx, msg); err != nil {
		return TickResult{}, fmt.Errorf("publish %s: %w", topic, err)
	}

	res := TickResult{State: state, Record: rec, Topic: topic, Complete: state.Complete(duration)}
	log.Debug("tick", "topic", topic, "counter", state.Counter, "runtime", state.Runtime, "complete", res.Complete)
	return res, nil
}

// resolveField applies the static precedence: declared default, then a value
// remembered in the run state, then a freshly generated value that is stored
// for later ticks.
func resolveField(gen *telemetry.Generator, f telemetry.FieldSchema, state *telemetry.RunState) (any, error) {
	if !f.Static {
		return gen.Generate(f, state.Counter)
	}
	if f.Default != nil {
		return f.Default, nil
	}
	if v, ok := state.Override(f.Name); ok {
		return v, nil
	}
	v, err := gen.Generate(f, state.Counter)
	if err != nil {
		return nil, err
	}
	state.SetOverride(f.Name, v)
	return v, nil
}

// Topic builds the publish topic "{prefix}/{device}-{index}".
func Topic(prefix, device string, index int) string {
	name := device + "-" + strconv.Itoa(index)
	prefix = strings.TrimRight(prefix, "/")
	if prefix == "" {
		return name
	}
	return prefix + "/" + name
}

// ParseSeconds reads a number of seconds from a JSON-ish value.
func ParseSeconds(v any) (float64, error) {
	var f float64
	switch x := v.(type) {
	case float64:
		f = x
	case float32:
		f = float64(x)
	case int:
		f = float64(x)
	case int64:
		f = float64(x)
	case json.Number:
		n, err := x.Float64()
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrBadSeconds, x)
		}
		f = n
	case string:
		n, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrBadSeconds, x)
		}
		f = n
	default:
		return 0, fmt.Errorf("%w: %v (%T)", ErrBadSeconds, v, v)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%w: %v", ErrBadSeconds, f)
	}
	return f, nil
}
