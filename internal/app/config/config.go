package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ghalamif/PowerProbe/internal/adapters/serial"
	"github.com/ghalamif/PowerProbe/internal/app/analysis"
	"github.com/ghalamif/PowerProbe/internal/ports"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Capture   CaptureConfig   `yaml:"capture"`
	Serial    serial.Config   `yaml:"serial"`
	Policy    ports.Policy    `yaml:"policy"`
	Timescale TimescaleConfig `yaml:"timescale"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	WAL       WALConfig       `yaml:"wal"`
	Analysis  analysis.Config `yaml:"analysis"`
}

// TimescaleConfig enables the database sink when ConnString is set.
type TimescaleConfig struct {
	ConnString string `yaml:"conn_string"`
	Table      string `yaml:"table"`
}

func (t TimescaleConfig) Enabled() bool { return t.ConnString != "" }

type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

type WALConfig struct {
	Dir string `yaml:"dir"`
}

func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// keys absent from the file keep these values; explicit zeros survive
	cfg := Config{Analysis: analysis.DefaultConfig()}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Default returns a config with every default applied, for callers that do
// not use a file.
func Default() *Config {
	cfg := Config{Analysis: analysis.DefaultConfig()}
	cfg.ApplyDefaults()
	return &cfg
}

func (c *Config) ApplyDefaults() {
	if c.Capture.Topology == "" {
		c.Capture.Topology = GatewayOnly
	}
	if c.Capture.Scenario == "" {
		c.Capture.Scenario = ScenarioA
	}
	if tp, err := ParseTopology(string(c.Capture.Topology)); err == nil {
		c.Capture.Topology = tp
	}
	if sc, err := ParseScenario(string(c.Capture.Scenario)); err == nil {
		c.Capture.Scenario = sc
	}
	if c.Capture.DataDir == "" {
		c.Capture.DataDir = "./data"
	}
	if c.Policy.MaxWALSizeBytes == 0 {
		c.Policy.MaxWALSizeBytes = 1 << 30
	}
	if c.Policy.MaxQueueLen == 0 {
		c.Policy.MaxQueueLen = 100_000
	}
	if c.Policy.MaxBatchSize == 0 {
		c.Policy.MaxBatchSize = 500
	}
	if c.Policy.IdleSleep == 0 {
		c.Policy.IdleSleep = 5 * time.Millisecond
	}
	if c.Policy.OnQueueFull == "" {
		c.Policy.OnQueueFull = "block"
	}
	if c.Policy.OnWALFull == "" {
		c.Policy.OnWALFull = "block"
	}
	if c.Metrics.Addr == "" {
		c.Metrics.Addr = ":9100"
	}
	if c.Timescale.Table == "" {
		c.Timescale.Table = "power_samples"
	}
	if c.WAL.Dir == "" {
		c.WAL.Dir = filepath.Join(c.Capture.DataDir, "wal")
	}

	c.Serial.ApplyDefaults()
	c.Analysis.ApplyDefaults()
}

// Validate checks everything both runtimes need. The serial port is only
// required for a capture, see ValidateCapture.
func (c *Config) Validate() error {
	if _, err := ParseTopology(string(c.Capture.Topology)); err != nil {
		return fmt.Errorf("capture config: %w", err)
	}
	if _, err := ParseScenario(string(c.Capture.Scenario)); err != nil {
		return fmt.Errorf("capture config: %w", err)
	}
	switch c.Policy.OnWALFull {
	case "block", "drop":
	default:
		return fmt.Errorf("policy.on_wal_full must be block or drop, got %q", c.Policy.OnWALFull)
	}
	switch c.Policy.OnQueueFull {
	case "block", "drop", "reject":
	default:
		return fmt.Errorf("policy.on_queue_full must be block, drop or reject, got %q", c.Policy.OnQueueFull)
	}
	if c.Metrics.Addr == "" {
		return errors.New("metrics.addr is required")
	}
	if c.WAL.Dir == "" {
		return errors.New("wal.dir is required")
	}
	if err := c.Analysis.Validate(); err != nil {
		return fmt.Errorf("analysis config: %w", err)
	}
	return nil
}

// ValidateCapture additionally requires a serial port.
func (c *Config) ValidateCapture() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if err := c.Serial.Validate(); err != nil {
		return fmt.Errorf("serial config: %w", err)
	}
	return nil
}
