// Simulator scheduling device ticks locally
package sim

import (
	"context"
	"fmt"
	"hash/fnv"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"vehicle-sim/internal/config"
	"vehicle-sim/internal/logging"
	"vehicle-sim/internal/telemetry"
	"vehicle-sim/internal/templates"
)

const defaultConcurrency = 16

// DeviceStatus is a point-in-time view of one simulated device.
type DeviceStatus struct {
	Topic      string           `json:"topic"`
	Device     string           `json:"device"`
	Index      int              `json:"index"`
	Template   string           `json:"template"`
	Counter    int              `json:"counter"`
	Runtime    float64          `json:"runtime"`
	Complete   bool             `json:"complete"`
	Error      string           `json:"error,omitempty"`
	LastRecord telemetry.Record `json:"last_record,omitempty"`
	UpdatedAt  time.Time        `json:"updated_at,omitempty"`
}

// deviceRun is the private state of one device instance. Only the goroutine
// ticking it writes state; readers go through Simulator.mu.
type deviceRun struct {
	name     string
	index    int
	template string
	prefix   string
	fields   []telemetry.FieldSchema
	rand     *rand.Rand

	state     *telemetry.RunState
	complete  bool
	err       error
	last      telemetry.Record
	updatedAt time.Time
}

// Simulator plays the external scheduler locally: it ticks every device once
// per interval until each has run for the configured duration.
type Simulator struct {
	simID       string
	interval    time.Duration
	duration    float64
	concurrency int
	publisher   Publisher
	orch        *Orchestrator
	devices     []*deviceRun
	now         func() time.Time

	mu      sync.Mutex
	pending []Message
}

// NewSimulator expands the configured devices and loads their templates.
func NewSimulator(ctx context.Context, cfg *config.SimulationConfig, store templates.Store, pub Publisher) (*Simulator, error) {
	simID := cfg.Simulation.SimID
	if simID == "" {
		simID = uuid.NewString()
	}
	conc := cfg.Simulation.Concurrency
	if conc <= 0 {
		conc = defaultConcurrency
	}
	if time.Duration(cfg.Simulation.Interval*float64(time.Second)) < config.MinInterval {
		return nil, fmt.Errorf("simulation interval %vs is below %v", cfg.Simulation.Interval, config.MinInterval)
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	s := &Simulator{
		simID:       simID,
		interval:    time.Duration(cfg.Simulation.Interval * float64(time.Second)),
		duration:    cfg.Simulation.Duration,
		concurrency: conc,
		publisher:   pub,
		now:         time.Now,
	}
	// Ticks publish into a buffer that is flushed once per interval so batch
	// capable sinks receive a whole tick in one write.
	s.orch = NewOrchestrator(PublisherFunc(s.enqueue),
		WithTopicPrefix(cfg.TopicPrefix),
		WithClock(func() time.Time { return s.now() }))

	loaded := make(map[string]templates.DeviceTemplate)
	for _, d := range cfg.Devices {
		tpl, ok := loaded[d.Template]
		if !ok {
			var err error
			tpl, err = store.Get(ctx, d.Template)
			if err != nil {
				return nil, fmt.Errorf("device %q: %w", d.Name, err)
			}
			loaded[d.Template] = tpl
		}
		prefix := tpl.Topic
		if prefix == "" {
			prefix = cfg.TopicPrefix
		}
		for i := 0; i < d.Count; i++ {
			run := &deviceRun{
				name:     d.Name,
				index:    i,
				template: tpl.ID,
				prefix:   prefix,
				fields:   tpl.Payload,
				rand:     rand.New(rand.NewSource(deviceSeed(seed, Topic(prefix, d.Name, i)))),
			}
			if len(d.Options) > 0 {
				st := telemetry.RunState{Restart: true}
				for k, v := range d.Options {
					st.SetOverride(k, v)
				}
				run.state = &st
			}
			s.devices = append(s.devices, run)
		}
	}
	return s, nil
}

// deviceSeed derives an independent stream per device so runs are
// reproducible regardless of scheduling order.
func deviceSeed(seed int64, topic string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(topic))
	return seed ^ int64(h.Sum64())
}

// SimID identifies this run.
func (s *Simulator) SimID() string { return s.simID }

// Run ticks immediately and then once per interval. It returns when every
// device is complete or ctx is done.
func (s *Simulator) Run(ctx context.Context) error {
	log := logging.FromContext(ctx)
	log.Info("starting simulator", "sim_id", s.simID, "devices", len(s.devices), "interval", s.interval, "duration_s", s.duration)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		if err := s.tick(ctx); err != nil {
			log.Error("publish failed", "err", err)
		}
		if s.Done() {
			log.Info("simulation complete", "sim_id", s.simID)
			return nil
		}
		select {
		case <-ticker.C:
		case <-ctx.Done():
			log.Info("stopping simulator")
			return nil
		}
	}
}

// tick advances every incomplete device in parallel and flushes the
// published messages.
func (s *Simulator) tick(ctx context.Context) error {
	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for _, d := range s.devices {
		s.mu.Lock()
		skip := d.complete
		s.mu.Unlock()
		if skip {
			continue
		}
		g.Go(func() error {
			s.tickDevice(ctx, d)
			return nil
		})
	}
	_ = g.Wait()

	s.mu.Lock()
	batch := s.pending
	s.pending = nil
	s.mu.Unlock()
	return PublishAll(ctx, s.publisher, batch)
}

func (s *Simulator) tickDevice(ctx context.Context, d *deviceRun) {
	res, err := s.orch.Tick(ctx, TickRequest{
		SimID:       s.simID,
		DeviceName:  d.name,
		Index:       d.index,
		TopicPrefix: d.prefix,
		Fields:      d.fields,
		Interval:    s.interval.Seconds(),
		Duration:    s.duration,
		State:       d.state,
		Rand:        d.rand,
	})

	s.mu.Lock()
	defer s.mu.Unlock()
	d.updatedAt = s.now().UTC()
	if err != nil {
		logging.FromContext(ctx).Error("tick failed, stopping device", "device", d.name, "index", d.index, "err", err)
		d.err = err
		d.complete = true
		return
	}
	st := res.State
	d.state = &st
	d.last = res.Record
	d.complete = res.Complete
}

func (s *Simulator) enqueue(_ context.Context, msg Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = append(s.pending, msg)
	return nil
}

// Done reports whether every device has finished.
func (s *Simulator) Done() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range s.devices {
		if !d.complete {
			return false
		}
	}
	return true
}

// Snapshot returns the status of every device ordered by topic.
func (s *Simulator) Snapshot() []DeviceStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]DeviceStatus, 0, len(s.devices))
	for _, d := range s.devices {
		st := DeviceStatus{
			Topic:      Topic(d.prefix, d.name, d.index),
			Device:     d.name,
			Index:      d.index,
			Template:   d.template,
			Complete:   d.complete,
			LastRecord: d.last,
			UpdatedAt:  d.updatedAt,
		}
		if d.state != nil {
			st.Counter = d.state.Counter
			st.Runtime = d.state.Runtime
		}
		if d.err != nil {
			st.Error = d.err.Error()
		}
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Topic < out[j].Topic })
	return out
}
