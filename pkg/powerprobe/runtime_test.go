package powerprobe

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ghalamif/PowerProbe/internal/adapters/wal"
	"github.com/ghalamif/PowerProbe/internal/domain"
)

const deviceLog = `Current: 50.00 mA
Shunt Voltage: 10.00 mV
Bus Voltage: 5.00 V
Load Voltage: 4.80 V
Power: 240.00 mW
Current: 60.00 mA
Shunt Voltage: 12.00 mV
Bus Voltage: 5.00 V
Load Voltage: 4.78 V
Power: 287.00 mW
Current: 70.00 mA
`

func testConfig(t *testing.T) *Config {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Capture.DataDir = t.TempDir()
	cfg.WAL.Dir = filepath.Join(cfg.Capture.DataDir, "wal")
	cfg.Metrics.Addr = "127.0.0.1:0"
	cfg.Policy.IdleSleep = time.Millisecond
	return cfg
}

// stepClock advances one second per call.
func stepClock() func() time.Time {
	var mu sync.Mutex
	now := time.Date(2026, 2, 19, 16, 41, 31, 0, time.UTC)
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now = now.Add(time.Second)
		return now
	}
}

func TestNewCaptureRuntimeWithCustomAdapters(t *testing.T) {
	cfg := testConfig(t)

	queueStub := &stubQueue{}
	sourceStub := &stubSource{}
	sinkStub := &stubSink{}
	walStub := &stubWAL{}
	obsStub := &stubObservability{}

	rt, err := NewCaptureRuntime(
		cfg,
		WithLineSource(sourceStub),
		WithSink(sinkStub),
		WithWAL(walStub),
		WithSampleQueue(queueStub),
		WithObservability(obsStub),
		WithSessionID("session-1"),
	)
	if err != nil {
		t.Fatalf("NewCaptureRuntime returned error: %v", err)
	}

	if rt.source != sourceStub {
		t.Fatalf("expected custom line source to be used")
	}
	if rt.sink.Name() != "multi(stub)" {
		t.Fatalf("expected custom sink to be used, got %s", rt.sink.Name())
	}
	if rt.wal != walStub {
		t.Fatalf("expected custom WAL to be used")
	}
	if rt.queue != queueStub {
		t.Fatalf("expected custom queue to be used")
	}
	if rt.obs != obsStub {
		t.Fatalf("expected custom observability to be used")
	}
	if rt.db != nil || rt.CapturePath() != "" {
		t.Fatalf("expected no default sinks when a custom sink is provided")
	}
	if rt.SessionID() != "session-1" {
		t.Fatalf("unexpected session id %s", rt.SessionID())
	}
}

func TestNewCaptureRuntimeRequiresSerialPort(t *testing.T) {
	cfg := testConfig(t)
	if _, err := NewCaptureRuntime(cfg, WithObservability(&stubObservability{})); err == nil {
		t.Fatalf("expected missing serial port error")
	}
}

func TestCaptureRuntimeWritesCSVAndAnalyzesOnStop(t *testing.T) {
	cfg := testConfig(t)
	cfg.Capture.Topology = GatewayNoise
	cfg.Capture.Scenario = ScenarioB
	cfg.Capture.AnalyzeOnStop = true
	cfg.Capture.Plots = true

	var (
		mu       sync.Mutex
		streamed []Sample
	)
	flow, err := ConfFromConfig(cfg, WithFlowOptions(WithClock(stepClock()), WithSessionID("bench-1")))
	if err != nil {
		t.Fatalf("ConfFromConfig: %v", err)
	}
	rt, err := flow.
		StreamIN(
			StreamInReader(strings.NewReader(deviceLog)),
			StreamInObservability(&stubObservability{}),
		).
		StreamOUT(StreamOutCallback("tap", func(batch []Sample) error {
			mu.Lock()
			streamed = append(streamed, batch...)
			mu.Unlock()
			return nil
		}))
	if err != nil {
		t.Fatalf("StreamOUT: %v", err)
	}

	if err := rt.Run(context.Background()); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	path := rt.CapturePath()
	if filepath.Base(path) != "GATEWAY_NOISE_B_2026-02-19_16-41-32_current.csv" {
		t.Fatalf("unexpected capture file %s", path)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read capture: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header + 2 samples, got %d lines:\n%s", len(lines), raw)
	}
	if !strings.HasSuffix(lines[1], ",50,10,5,4.8,240") {
		t.Fatalf("unexpected first row %q", lines[1])
	}

	mu.Lock()
	defer mu.Unlock()
	if len(streamed) != 2 || streamed[1].Seq != 2 || streamed[0].SessionID != "bench-1" {
		t.Fatalf("unexpected streamed samples: %+v", streamed)
	}

	stats := filepath.Join(cfg.Capture.DataDir, "GATEWAY_NOISE_B_2026-02-19_16-41-32_current_stats.txt")
	report, err := os.ReadFile(stats)
	if err != nil {
		t.Fatalf("stats report not written: %v", err)
	}
	if !strings.Contains(string(report), "mean_current_simple_mA: 55") {
		t.Fatalf("unexpected report:\n%s", report)
	}
	plots, _ := filepath.Glob(filepath.Join(cfg.Capture.PlotDir(), "*.png"))
	if len(plots) == 0 {
		t.Fatalf("expected plots in %s", cfg.Capture.PlotDir())
	}
}

func TestCaptureRuntimeReplaysUncommittedWAL(t *testing.T) {
	cfg := testConfig(t)

	w, err := wal.NewFileWAL(cfg.WAL.Dir)
	if err != nil {
		t.Fatalf("open wal: %v", err)
	}
	left := &domain.Sample{SessionID: "crashed", Seq: 9, Timestamp: time.Unix(100, 0), CurrentMA: domain.Float(42)}
	if _, err := w.Append(left); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	sink, ch, closeFn := NewChannelSink("replay", 4)
	defer closeFn()
	rt, err := NewCaptureRuntime(cfg,
		WithLineSource(&stubSource{}),
		WithSink(sink),
		WithObservability(&stubObservability{}),
	)
	if err != nil {
		t.Fatalf("NewCaptureRuntime: %v", err)
	}
	if err := rt.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	select {
	case batch := <-ch:
		if len(batch) != 1 || batch[0].SessionID != "crashed" || *batch[0].CurrentMA != 42 {
			t.Fatalf("unexpected replayed batch %+v", batch)
		}
	default:
		t.Fatalf("expected replayed sample to reach the sink")
	}

	w, err = wal.NewFileWAL(cfg.WAL.Dir)
	if err != nil {
		t.Fatalf("reopen wal: %v", err)
	}
	defer w.Close()
	if st := w.Stats(); st.OldestUncommitted <= st.LatestAppended {
		t.Fatalf("expected replayed sample to be committed, stats=%+v", st)
	}
}

func TestCaptureRuntimeStopsOnCancel(t *testing.T) {
	cfg := testConfig(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rt, err := NewCaptureRuntime(cfg,
		WithLineSource(&stubSource{block: true}),
		WithSink(&stubSink{}),
		WithObservability(&stubObservability{}),
	)
	if err != nil {
		t.Fatalf("NewCaptureRuntime: %v", err)
	}
	if err := rt.Run(ctx); err != nil {
		t.Fatalf("cancellation should stop cleanly, got %v", err)
	}
}

type stubSource struct {
	block bool
}

func (s *stubSource) ReadLine(ctx context.Context) (string, error) {
	if s.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return "", ErrSourceTerminated
}
func (s *stubSource) Close() error { return nil }

type stubSink struct{}

func (s *stubSink) WriteBatch(samples []*PipelineSample) error { return nil }
func (s *stubSink) Name() string                               { return "stub" }

type stubQueue struct{}

func (s *stubQueue) Enqueue(id WALEntryID, sample *PipelineSample) bool { return true }
func (s *stubQueue) DequeueBatch(max int) []QueuedSample                { return nil }
func (s *stubQueue) Len() int                                           { return 0 }

type stubWAL struct{}

func (s *stubWAL) Append(sample *PipelineSample) (WALEntryID, error) { return 0, nil }
func (s *stubWAL) Iterate(from WALEntryID, fn func(id WALEntryID, sample *PipelineSample) error) error {
	return nil
}
func (s *stubWAL) Commit(upto WALEntryID) error { return nil }
func (s *stubWAL) TruncateCommitted() error     { return nil }
func (s *stubWAL) Stats() WALStats              { return WALStats{} }
func (s *stubWAL) Close() error                 { return nil }

type stubObservability struct{}

func (s *stubObservability) LogInfo(string, ...Field)            {}
func (s *stubObservability) LogWarn(string, error, ...Field)     {}
func (s *stubObservability) LogError(string, error, ...Field)    {}
func (s *stubObservability) LogCritical(string, error, ...Field) {}
func (s *stubObservability) IncCounter(string, float64)          {}
func (s *stubObservability) ObserveLatency(string, float64)      {}
func (s *stubObservability) SetGauge(string, float64)            {}
func (s *stubObservability) RecordSample(*PipelineSample)        {}
