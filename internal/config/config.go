// YAML config loader with CUE validation integration
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// MinInterval is the shortest tick interval a local run accepts.
const MinInterval = time.Millisecond

// Simulation sets the run timing shared by every device.
type Simulation struct {
	// Interval and Duration are in seconds.
	Interval    float64 `yaml:"interval" json:"interval"`
	Duration    float64 `yaml:"duration" json:"duration"`
	SimID       string  `yaml:"sim_id" json:"sim_id,omitempty"`
	Concurrency int     `yaml:"concurrency" json:"concurrency,omitempty"`
}

// Device declares Count instances simulated from one template.
type Device struct {
	Name     string `yaml:"name" json:"name"`
	Count    int    `yaml:"count" json:"count"`
	Template string `yaml:"template" json:"template"`
	// Options seeds each instance's run state, typically static overrides.
	Options map[string]any `yaml:"options" json:"options,omitempty"`
}

// Templates selects where device templates are read from.
type Templates struct {
	Dir           string `yaml:"dir" json:"dir,omitempty"`
	DynamoDBTable string `yaml:"dynamodb_table" json:"dynamodb_table,omitempty"`
}

// Sinks configures optional outputs besides STDOUT.
type Sinks struct {
	GreptimeEndpoint string `yaml:"greptimedb_endpoint" json:"greptimedb_endpoint,omitempty"`
	GreptimeDatabase string `yaml:"greptimedb_database" json:"greptimedb_database,omitempty"`
	GreptimeTable    string `yaml:"greptimedb_table" json:"greptimedb_table,omitempty"`
	IoTEndpoint      string `yaml:"iot_endpoint" json:"iot_endpoint,omitempty"`
	// Retries bounds publish retries for remote sinks.
	Retries int `yaml:"retries" json:"retries,omitempty"`
}

// SimulationConfig is the root configuration of a local simulation run.
type SimulationConfig struct {
	TopicPrefix string     `yaml:"topic_prefix" json:"topic_prefix"`
	Seed        int64      `yaml:"seed" json:"seed,omitempty"`
	Simulation  Simulation `yaml:"simulation" json:"simulation"`
	Devices     []Device   `yaml:"devices" json:"devices"`
	Templates   Templates  `yaml:"templates" json:"templates"`
	Sinks       Sinks      `yaml:"sinks" json:"sinks"`
}

// Load loads YAML config, validates it against a CUE schema, applies
// environment overrides and checks the result.
func Load(configPath, cueSchemaPath string) (*SimulationConfig, error) {
	if err := ValidateWithCue(configPath, cueSchemaPath); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnv(os.LookupEnv)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse decodes YAML without schema validation.
func Parse(data []byte) (*SimulationConfig, error) {
	var cfg SimulationConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("cannot unmarshal YAML config: %w", err)
	}
	return &cfg, nil
}

// ApplyEnv overrides settings from environment variables.
func (c *SimulationConfig) ApplyEnv(lookup func(string) (string, bool)) {
	set := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	set("TOPIC_PREFIX", &c.TopicPrefix)
	set("TEMPLATES_TABLE", &c.Templates.DynamoDBTable)
	set("GREPTIMEDB_ENDPOINT", &c.Sinks.GreptimeEndpoint)
	set("GREPTIMEDB_DATABASE", &c.Sinks.GreptimeDatabase)
	set("GREPTIMEDB_TABLE", &c.Sinks.GreptimeTable)
	set("IOT_ENDPOINT", &c.Sinks.IoTEndpoint)
}

// Validate performs the semantic checks the schema cannot express.
func (c *SimulationConfig) Validate() error {
	if c.Simulation.Interval <= 0 {
		return fmt.Errorf("simulation.interval must be > 0, got %v", c.Simulation.Interval)
	}
	if time.Duration(c.Simulation.Interval*float64(time.Second)) < MinInterval {
		return fmt.Errorf("simulation.interval must be at least %v, got %vs", MinInterval, c.Simulation.Interval)
	}
	if c.Simulation.Duration <= 0 {
		return fmt.Errorf("simulation.duration must be > 0, got %v", c.Simulation.Duration)
	}
	if len(c.Devices) == 0 {
		return fmt.Errorf("no devices configured")
	}
	if c.Templates.Dir == "" && c.Templates.DynamoDBTable == "" {
		return fmt.Errorf("templates.dir or templates.dynamodb_table is required")
	}
	seen := make(map[string]bool, len(c.Devices))
	for i, d := range c.Devices {
		name := strings.TrimSpace(d.Name)
		if name == "" {
			return fmt.Errorf("devices[%d]: name is required", i)
		}
		if seen[name] {
			return fmt.Errorf("devices[%d]: duplicate name %q", i, name)
		}
		seen[name] = true
		if d.Count <= 0 {
			return fmt.Errorf("device %q: count must be > 0", name)
		}
		if d.Template == "" {
			return fmt.Errorf("device %q: template is required", name)
		}
	}
	return nil
}

// Instances returns the total number of simulated devices.
func (c *SimulationConfig) Instances() int {
	n := 0
	for _, d := range c.Devices {
		n += d.Count
	}
	return n
}
