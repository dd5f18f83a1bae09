package powerprobe

import (
	"context"
	"errors"
	"io"

	"github.com/ghalamif/PowerProbe/internal/adapters/serial"
)

// Flow reads a capture setup as Conf → StreamIN → StreamOUT: what is being
// measured, where the device lines come from, and where samples and reports go.
type Flow struct {
	cfg  *Config
	opts []CaptureOption
}

type (
	// FlowOption adjusts the capture setup right after the config is loaded.
	FlowOption func(*Flow)
	// StreamInOption picks the line source and the durability path.
	StreamInOption func(*Flow)
	// StreamOutOption picks the sample sinks and what happens on stop.
	StreamOutOption func(*Flow)
)

// Conf loads the YAML config at path.
func Conf(path string, opts ...FlowOption) (*Flow, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}
	return ConfFromConfig(cfg, opts...)
}

func ConfFromConfig(cfg *Config, opts ...FlowOption) (*Flow, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	f := &Flow{cfg: cfg}
	for _, opt := range opts {
		if opt != nil {
			opt(f)
		}
	}
	return f, nil
}

func (f *Flow) StreamIN(opts ...StreamInOption) *Flow {
	for _, opt := range opts {
		if opt != nil {
			opt(f)
		}
	}
	return f
}

// StreamOUT builds the capture runtime; nothing is opened before this call.
func (f *Flow) StreamOUT(opts ...StreamOutOption) (*CaptureRuntime, error) {
	for _, opt := range opts {
		if opt != nil {
			opt(f)
		}
	}
	return NewCaptureRuntime(f.cfg, f.opts...)
}

// Run builds the runtime and captures until ctx ends or the source runs dry.
func (f *Flow) Run(ctx context.Context, opts ...StreamOutOption) error {
	rt, err := f.StreamOUT(opts...)
	if err != nil {
		return err
	}
	return rt.Run(ctx)
}

func (f *Flow) with(opt CaptureOption) { f.opts = append(f.opts, opt) }

// WithSetup labels the capture with a measurement topology and scenario.
// Both end up in the capture file name.
func WithSetup(topo Topology, sc Scenario) FlowOption {
	return func(f *Flow) {
		f.cfg.Capture.Topology = topo
		f.cfg.Capture.Scenario = sc
	}
}

// WithFlowOptions passes raw CaptureOption values through.
func WithFlowOptions(opts ...CaptureOption) FlowOption {
	return func(f *Flow) {
		for _, opt := range opts {
			if opt != nil {
				f.with(opt)
			}
		}
	}
}

// StreamInSource reads from src instead of the serial port.
func StreamInSource(src LineSource) StreamInOption {
	return func(f *Flow) { f.with(WithLineSource(src)) }
}

// StreamInReader reads newline-separated device output from r, e.g. a
// recorded serial log.
func StreamInReader(r io.Reader) StreamInOption {
	return func(f *Flow) {
		if r != nil {
			f.with(WithLineSource(serial.NewReaderSource(r)))
		}
	}
}

func StreamInQueue(q SampleQueue) StreamInOption {
	return func(f *Flow) { f.with(WithSampleQueue(q)) }
}

func StreamInWAL(w WAL) StreamInOption {
	return func(f *Flow) { f.with(WithWAL(w)) }
}

// StreamInObservability replaces the Prometheus/slog backend for the whole
// capture, sinks included.
func StreamInObservability(obs Observability) StreamInOption {
	return func(f *Flow) { f.with(WithObservability(obs)) }
}

// StreamOutSink replaces the capture CSV (and Timescale) with s.
func StreamOutSink(s Sink) StreamOutOption {
	return func(f *Flow) { f.with(WithSink(s)) }
}

// StreamOutTee adds s next to the capture CSV.
func StreamOutTee(s Sink) StreamOutOption {
	return func(f *Flow) { f.with(WithTeeSink(s)) }
}

// StreamOutCallback tees every committed batch to fn.
func StreamOutCallback(name string, fn SampleBatchSink) StreamOutOption {
	return func(f *Flow) { f.with(WithTeeSink(NewCallbackSink(name, fn))) }
}

// StreamOutAnalysis analyzes the capture file once Run stops, writing the
// text and JSON reports next to it and, with plots set, the PNG charts.
func StreamOutAnalysis(plots bool) StreamOutOption {
	return func(f *Flow) {
		f.cfg.Capture.AnalyzeOnStop = true
		f.cfg.Capture.Plots = plots
	}
}
