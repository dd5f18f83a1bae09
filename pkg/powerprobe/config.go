package powerprobe

import (
	"github.com/ghalamif/PowerProbe/internal/adapters/serial"
	"github.com/ghalamif/PowerProbe/internal/app/analysis"
	"github.com/ghalamif/PowerProbe/internal/app/config"
	"github.com/ghalamif/PowerProbe/internal/ports"
)

// Config re-exports the root configuration struct so downstream projects can
// construct or modify it programmatically.
type Config = config.Config

type (
	// Policy controls WAL/queue thresholds.
	Policy = ports.Policy
	// CaptureConfig names the capture and where its files go.
	CaptureConfig = config.CaptureConfig
	// SerialConfig holds the serial port settings.
	SerialConfig = serial.Config
	// TimescaleConfig configures the optional database sink.
	TimescaleConfig = config.TimescaleConfig
	// MetricsConfig configures the metrics HTTP server.
	MetricsConfig = config.MetricsConfig
	// WALConfig configures on-disk durability.
	WALConfig = config.WALConfig
	// AnalysisConfig holds the thresholds of the offline analysis.
	AnalysisConfig = analysis.Config
	// Topology identifies the gateway build under test.
	Topology = config.Topology
	// Scenario identifies the traffic pattern of a capture.
	Scenario = config.Scenario
)

const (
	GatewayOnly  = config.GatewayOnly
	GatewayNoise = config.GatewayNoise
	GatewayAir   = config.GatewayAir
	GatewayFull  = config.GatewayFull

	ScenarioA = config.ScenarioA
	ScenarioB = config.ScenarioB
	ScenarioC = config.ScenarioC
)

// LoadConfig loads YAML from disk using the internal config reader.
func LoadConfig(path string) (*Config, error) {
	return config.Load(path)
}

// DefaultConfig returns a config with every default applied.
func DefaultConfig() *Config {
	return config.Default()
}

// ParseTopology accepts a topology name (case-insensitive) or its number 1-4.
func ParseTopology(s string) (Topology, error) {
	return config.ParseTopology(s)
}

// ParseScenario accepts a scenario code.
func ParseScenario(s string) (Scenario, error) {
	return config.ParseScenario(s)
}

// DefaultAnalysisConfig returns the default analysis thresholds. A zero
// AnalysisConfig means discard and burst thresholds of 0 mA.
func DefaultAnalysisConfig() AnalysisConfig {
	return analysis.DefaultConfig()
}
