package powerprobe

import (
	"context"
	"testing"
)

func TestConfFromConfigAndStreamBuilder(t *testing.T) {
	cfg := testConfig(t)

	flow, err := ConfFromConfig(cfg)
	if err != nil {
		t.Fatalf("ConfFromConfig returned error: %v", err)
	}

	src := &stubSource{}
	q := &stubQueue{}

	rt, err := flow.
		StreamIN(
			StreamInSource(src),
			StreamInQueue(q),
			StreamInWAL(&stubWAL{}),
			StreamInObservability(&stubObservability{}),
		).
		StreamOUT(StreamOutSink(&stubSink{}))
	if err != nil {
		t.Fatalf("StreamOUT returned error: %v", err)
	}
	if rt.source != src {
		t.Fatalf("expected custom line source to be wired")
	}
	if rt.queue != q {
		t.Fatalf("expected custom queue to be wired")
	}
	if rt.sink.Name() != "multi(stub)" {
		t.Fatalf("expected custom sink to be wired, got %s", rt.sink.Name())
	}
}

func TestFlowTeeKeepsDefaultSinks(t *testing.T) {
	cfg := testConfig(t)

	flow, err := ConfFromConfig(cfg)
	if err != nil {
		t.Fatalf("ConfFromConfig returned error: %v", err)
	}
	rt, err := flow.
		StreamIN(StreamInSource(&stubSource{}), StreamInObservability(&stubObservability{})).
		StreamOUT(StreamOutTee(&stubSink{}))
	if err != nil {
		t.Fatalf("StreamOUT returned error: %v", err)
	}
	defer rt.shutdown(context.Background())

	if rt.sink.Name() != "multi(csv,stub)" {
		t.Fatalf("expected csv plus tee sink, got %s", rt.sink.Name())
	}
	if rt.CapturePath() == "" {
		t.Fatalf("expected a capture file")
	}
}

func TestFlowRunUsesStreamOutOptions(t *testing.T) {
	cfg := testConfig(t)

	flow, err := ConfFromConfig(cfg)
	if err != nil {
		t.Fatalf("ConfFromConfig returned error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := flow.StreamIN(
		StreamInSource(&stubSource{block: true}),
		StreamInObservability(&stubObservability{}),
	).Run(ctx, StreamOutSink(&stubSink{})); err != nil {
		t.Fatalf("Run returned unexpected error: %v", err)
	}
}

func TestFlowSetupAndAnalysisOptions(t *testing.T) {
	cfg := testConfig(t)

	flow, err := ConfFromConfig(cfg, WithSetup(GatewayAir, ScenarioC))
	if err != nil {
		t.Fatalf("ConfFromConfig returned error: %v", err)
	}
	rt, err := flow.
		StreamIN(StreamInSource(&stubSource{}), StreamInWAL(&stubWAL{})).
		StreamOUT(StreamOutSink(&stubSink{}), StreamOutAnalysis(true))
	if err != nil {
		t.Fatalf("StreamOUT returned error: %v", err)
	}
	if got := rt.Status(); got.Topology != GatewayAir || got.Scenario != ScenarioC {
		t.Fatalf("unexpected setup %s/%s", got.Topology, got.Scenario)
	}
	if !cfg.Capture.AnalyzeOnStop || !cfg.Capture.Plots {
		t.Fatalf("expected analysis with plots to be enabled, got %+v", cfg.Capture)
	}
}
