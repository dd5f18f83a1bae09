package powerprobe

import (
	"io"

	base "github.com/ghalamif/PowerProbe/pkg/powerprobe"
)

// Re-exported errors for convenience.
var (
	ErrQueueFull         = base.ErrQueueFull
	ErrWALFull           = base.ErrWALFull
	ErrChannelSinkClosed = base.ErrChannelSinkClosed
	ErrEmptySeries       = base.ErrEmptySeries
	ErrSourceTerminated  = base.ErrSourceTerminated
)

// Type aliases so consumers can import github.com/ghalamif/PowerProbe directly.
type (
	Config          = base.Config
	Policy          = base.Policy
	CaptureConfig   = base.CaptureConfig
	SerialConfig    = base.SerialConfig
	TimescaleConfig = base.TimescaleConfig
	MetricsConfig   = base.MetricsConfig
	WALConfig       = base.WALConfig
	AnalysisConfig  = base.AnalysisConfig
	Topology        = base.Topology
	Scenario        = base.Scenario
	Flow            = base.Flow
	FlowOption      = base.FlowOption
	StreamInOption  = base.StreamInOption
	StreamOutOption = base.StreamOutOption
	CaptureRuntime  = base.CaptureRuntime
	CaptureOption   = base.CaptureOption
	Status          = base.Status
	Sample          = base.Sample
	SampleBatchSink = base.SampleBatchSink
	LineSource      = base.LineSource
	Sink            = base.Sink
	ReportSink      = base.ReportSink
	SampleQueue     = base.SampleQueue
	WAL             = base.WAL
	Observability   = base.Observability
	QueuedSample    = base.QueuedSample
	WALEntryID      = base.WALEntryID
	WALStats        = base.WALStats
	Report          = base.Report
	AnalysisRow     = base.AnalysisRow
	Stat            = base.Stat
)

const (
	GatewayOnly  = base.GatewayOnly
	GatewayNoise = base.GatewayNoise
	GatewayAir   = base.GatewayAir
	GatewayFull  = base.GatewayFull

	ScenarioA = base.ScenarioA
	ScenarioB = base.ScenarioB
	ScenarioC = base.ScenarioC
)

// Config helpers.
func LoadConfig(path string) (*Config, error) {
	return base.LoadConfig(path)
}

func DefaultConfig() *Config {
	return base.DefaultConfig()
}

func ParseTopology(s string) (Topology, error) {
	return base.ParseTopology(s)
}

func ParseScenario(s string) (Scenario, error) {
	return base.ParseScenario(s)
}

// Flow builder helpers.
func Conf(path string, opts ...FlowOption) (*Flow, error) {
	return base.Conf(path, opts...)
}

func ConfFromConfig(cfg *Config, opts ...FlowOption) (*Flow, error) {
	return base.ConfFromConfig(cfg, opts...)
}

func WithFlowOptions(opts ...CaptureOption) FlowOption {
	return base.WithFlowOptions(opts...)
}

func StreamInSource(src LineSource) StreamInOption {
	return base.StreamInSource(src)
}

func StreamInReader(r io.Reader) StreamInOption {
	return base.StreamInReader(r)
}

func StreamInQueue(q SampleQueue) StreamInOption {
	return base.StreamInQueue(q)
}

func StreamInWAL(w WAL) StreamInOption {
	return base.StreamInWAL(w)
}

func StreamInObservability(obs Observability) StreamInOption {
	return base.StreamInObservability(obs)
}

func StreamOutSink(s Sink) StreamOutOption {
	return base.StreamOutSink(s)
}

func StreamOutTee(s Sink) StreamOutOption {
	return base.StreamOutTee(s)
}

func StreamOutAnalysis(plots bool) StreamOutOption {
	return base.StreamOutAnalysis(plots)
}

func WithSetup(topo Topology, sc Scenario) FlowOption {
	return base.WithSetup(topo, sc)
}

func StreamOutCallback(name string, fn SampleBatchSink) StreamOutOption {
	return base.StreamOutCallback(name, fn)
}

// Capture runtime and options.
func NewCaptureRuntime(cfg *Config, opts ...CaptureOption) (*CaptureRuntime, error) {
	return base.NewCaptureRuntime(cfg, opts...)
}

func WithLineSource(src LineSource) CaptureOption {
	return base.WithLineSource(src)
}

func WithSink(s Sink) CaptureOption {
	return base.WithSink(s)
}

func WithTeeSink(s Sink) CaptureOption {
	return base.WithTeeSink(s)
}

func WithWAL(w WAL) CaptureOption {
	return base.WithWAL(w)
}

func WithSampleQueue(q SampleQueue) CaptureOption {
	return base.WithSampleQueue(q)
}

func WithObservability(obs Observability) CaptureOption {
	return base.WithObservability(obs)
}

func WithSessionID(id string) CaptureOption {
	return base.WithSessionID(id)
}

// Sink adapters.
func NewCallbackSink(name string, fn SampleBatchSink) Sink {
	return base.NewCallbackSink(name, fn)
}

func NewChannelSink(name string, buffer int) (Sink, <-chan []Sample, func()) {
	return base.NewChannelSink(name, buffer)
}

// Analysis.
func DefaultAnalysisConfig() AnalysisConfig {
	return base.DefaultAnalysisConfig()
}

func AnalyzeFile(path string, cfg AnalysisConfig, sinks ...ReportSink) (*Report, error) {
	return base.AnalyzeFile(path, cfg, sinks...)
}

func AnalyzeSamples(samples []Sample, cfg AnalysisConfig, source string, sinks ...ReportSink) (*Report, error) {
	return base.AnalyzeSamples(samples, cfg, source, sinks...)
}

func DefaultReportSinks(dir, plotDir string) []ReportSink {
	return base.DefaultReportSinks(dir, plotDir)
}

func WriteTextReport(w io.Writer, rep *Report) error {
	return base.WriteTextReport(w, rep)
}
