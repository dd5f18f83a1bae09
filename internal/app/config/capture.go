package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// Topology identifies the gateway build under test.
type Topology string

const (
	GatewayOnly  Topology = "GATEWAY_ONLY"
	GatewayNoise Topology = "GATEWAY_NOISE"
	GatewayAir   Topology = "GATEWAY_AIR"
	GatewayFull  Topology = "GATEWAY_FULL"
)

var topologies = []struct {
	t    Topology
	code int
	desc string
}{
	{GatewayOnly, 1, "Gateway only"},
	{GatewayNoise, 2, "Gateway + noise sensor"},
	{GatewayAir, 3, "Gateway + air quality sensor"},
	{GatewayFull, 4, "Gateway + noise + air quality sensors"},
}

// ParseTopology accepts the enum name (case-insensitive) or its number.
func ParseTopology(s string) (Topology, error) {
	s = strings.TrimSpace(s)
	for _, e := range topologies {
		if strings.EqualFold(s, string(e.t)) || s == fmt.Sprint(e.code) {
			return e.t, nil
		}
	}
	return "", fmt.Errorf("unknown topology %q", s)
}

func (t Topology) Description() string {
	for _, e := range topologies {
		if e.t == t {
			return e.desc
		}
	}
	return ""
}

// Topologies lists the known topologies in declaration order.
func Topologies() []Topology {
	out := make([]Topology, len(topologies))
	for i, e := range topologies {
		out[i] = e.t
	}
	return out
}

// Scenario is the traffic pattern the gateway was running during a capture.
type Scenario string

const (
	ScenarioA Scenario = "A"
	ScenarioB Scenario = "B"
	ScenarioC Scenario = "C"
)

var scenarioDescriptions = map[Scenario]string{
	ScenarioA: "Heartbeats only (5m)",
	ScenarioB: "Heartbeats (5m) + Mock Alerts (12m)",
	ScenarioC: "Heartbeats (5m) + Mock Alerts (5m)",
}

func ParseScenario(s string) (Scenario, error) {
	sc := Scenario(strings.ToUpper(strings.TrimSpace(s)))
	if _, ok := scenarioDescriptions[sc]; !ok {
		return "", fmt.Errorf("unknown scenario %q", s)
	}
	return sc, nil
}

func (s Scenario) Description() string { return scenarioDescriptions[s] }

// CaptureConfig names the capture and where its artifacts land.
type CaptureConfig struct {
	Topology      Topology `yaml:"topology"`
	Scenario      Scenario `yaml:"scenario"`
	DataDir       string   `yaml:"data_dir"`
	Plots         bool     `yaml:"plots"`
	AnalyzeOnStop bool     `yaml:"analyze_on_stop"`
}

const fileTimeLayout = "2006-01-02_15-04-05"

// FileName returns the capture CSV path for a capture started at now.
func (c CaptureConfig) FileName(now time.Time) string {
	name := fmt.Sprintf("%s_%s_%s_current.csv", c.Topology, c.Scenario, now.Format(fileTimeLayout))
	return filepath.Join(c.DataDir, name)
}

// PlotDir is where rendered plots are written.
func (c CaptureConfig) PlotDir() string {
	return filepath.Join(c.DataDir, "plots")
}
