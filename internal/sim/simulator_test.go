package sim

import (
	"context"
	"testing"
	"time"

	"vehicle-sim/internal/config"
	"vehicle-sim/internal/telemetry"
	"vehicle-sim/internal/templates"
)

func testStore() *templates.MemoryStore {
	return templates.NewMemoryStore(templates.DeviceTemplate{
		ID: "sedan",
		Payload: []telemetry.FieldSchema{
			{Name: "vin", Type: telemetry.TypeString, Static: true},
			{Name: "speed", Type: telemetry.TypeInt, Limits: telemetry.IntLimits{Min: 0, Max: 200}},
			{Name: "fuel", Type: telemetry.TypeDecay, Limits: telemetry.DecayLimits{Min: 0, Max: 100}},
		},
	})
}

func testConfig() *config.SimulationConfig {
	return &config.SimulationConfig{
		TopicPrefix: "vt",
		Seed:        99,
		Simulation:  config.Simulation{Interval: 0.001, Duration: 0.003, SimID: "run-1"},
		Devices: []config.Device{
			{Name: "sedan", Count: 3, Template: "sedan", Options: map[string]any{"vin": "OPT"}},
		},
	}
}

func TestSimulator_TickGeneratesTelemetry(t *testing.T) {
	pub := &MockPublisher{}
	sim, err := NewSimulator(context.Background(), testConfig(), testStore(), pub)
	if err != nil {
		t.Fatalf("NewSimulator: %v", err)
	}

	// Run one tick manually
	if err := sim.tick(context.Background()); err != nil {
		t.Fatalf("tick: %v", err)
	}

	msgs := pub.messages()
	if len(msgs) != 3 {
		t.Fatalf("Expected telemetry for 3 devices, got %d", len(msgs))
	}
	for _, m := range msgs {
		if m.SimID != "run-1" || m.Topic == "" {
			t.Errorf("Message has missing ids: %+v", m)
		}
		if m.Payload["vin"] != "OPT" {
			t.Errorf("override not applied: %+v", m.Payload)
		}
	}
	snap := sim.Snapshot()
	if len(snap) != 3 || snap[0].Topic != "vt/sedan-0" || snap[2].Topic != "vt/sedan-2" {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
}

func TestSimulator_RunCompletes(t *testing.T) {
	pub := &MockPublisher{}
	sim, err := NewSimulator(context.Background(), testConfig(), testStore(), pub)
	if err != nil {
		t.Fatalf("NewSimulator: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := sim.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !sim.Done() {
		t.Fatalf("simulation not done")
	}
	for _, st := range sim.Snapshot() {
		if !st.Complete || st.Error != "" {
			t.Fatalf("device not cleanly complete: %+v", st)
		}
		if st.Runtime < 0.003-1e-9 {
			t.Fatalf("runtime %v below duration", st.Runtime)
		}
	}
}

func TestSimulator_DeterministicPerSeed(t *testing.T) {
	run := func() []Message {
		pub := &MockPublisher{}
		sim, err := NewSimulator(context.Background(), testConfig(), testStore(), pub)
		if err != nil {
			t.Fatalf("NewSimulator: %v", err)
		}
		if err := sim.tick(context.Background()); err != nil {
			t.Fatalf("tick: %v", err)
		}
		return pub.messages()
	}
	a, b := run(), run()
	speeds := func(msgs []Message) map[string]any {
		out := map[string]any{}
		for _, m := range msgs {
			out[m.Topic] = m.Payload["speed"]
		}
		return out
	}
	sa, sb := speeds(a), speeds(b)
	for topic, v := range sa {
		if sb[topic] != v {
			t.Fatalf("topic %s: %v != %v", topic, v, sb[topic])
		}
	}
}

func TestSimulator_MissingTemplate(t *testing.T) {
	cfg := testConfig()
	cfg.Devices[0].Template = "spaceship"
	if _, err := NewSimulator(context.Background(), cfg, testStore(), &MockPublisher{}); err == nil {
		t.Fatalf("expected error for missing template")
	}
}

func TestSimulator_RejectsSubMillisecondInterval(t *testing.T) {
	cfg := testConfig()
	cfg.Simulation.Interval = 1e-10
	if _, err := NewSimulator(context.Background(), cfg, testStore(), &MockPublisher{}); err == nil {
		t.Fatalf("expected error for interval that truncates to zero")
	}
}
