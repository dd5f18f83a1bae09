package report

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ghalamif/PowerProbe/internal/app/analysis"
	"github.com/ghalamif/PowerProbe/internal/domain"
)

var epoch = time.Date(2026, 2, 19, 16, 41, 31, 0, time.UTC)

const source = "data/GATEWAY_ONLY_A_2026-02-19_16-41-31_current.csv"

func burstySamples() []domain.Sample {
	currents := []float64{0.5, 100, 100, 300, 300, 300, 100, 100, 300, 300}
	out := make([]domain.Sample, len(currents))
	for i, c := range currents {
		out[i] = domain.Sample{
			Seq:            uint64(i + 1),
			Timestamp:      epoch.Add(time.Duration(i) * time.Second),
			CurrentMA:      domain.Float(c),
			ShuntVoltageMV: domain.Float(c / 10),
			BusVoltageV:    domain.Float(5),
			LoadVoltageV:   domain.Float(4.8),
			PowerMW:        domain.Float(c * 5),
		}
	}
	return out
}

func runReport(t *testing.T, samples []domain.Sample) (*domain.Report, *analysis.Table) {
	t.Helper()
	cfg := analysis.Config{DiscardThresholdMA: 1, SmoothingWindow: 1, BurstThresholdMA: 200, DutyCycleThresholds: []float64{150, 250}}
	r, tbl, err := analysis.Run(samples, cfg, source, epoch)
	if err != nil {
		t.Fatalf("analysis: %v", err)
	}
	return r, tbl
}

func TestWriteTextSections(t *testing.T) {
	r, _ := runReport(t, burstySamples())

	var buf bytes.Buffer
	if err := WriteText(&buf, r); err != nil {
		t.Fatalf("write text: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		"=== Basic Current Stats ===\ntotal_time_s: 8\n",
		"=== Duty Cycle Estimation ===",
		"--- Raw Current ---\nThreshold: threshold_150_mA\n  active_time_s: 5\n  duty_cycle_percent: 62.5\n",
		"--- Filtered Current ---",
		"=== TX Burst Detection ===\nnum_bursts: 1\navg_burst_duration_s: 3\n",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("report missing %q:\n%s", want, out)
		}
	}
}

func TestWriteTextUndefinedStats(t *testing.T) {
	r, _ := runReport(t, burstySamples()[:2])

	var buf bytes.Buffer
	if err := WriteText(&buf, r); err != nil {
		t.Fatalf("write text: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "mean_current_integrated_mA: undefined") {
		t.Fatalf("expected undefined integrated mean:\n%s", out)
	}
	if !strings.Contains(out, "num_bursts: 0\n") || strings.Contains(out, "avg_burst_duration_s") {
		t.Fatalf("zero bursts must omit durations:\n%s", out)
	}
}

func TestJSONSinkWritesNullForUndefined(t *testing.T) {
	dir := t.TempDir()
	r, _ := runReport(t, burstySamples()[:2])

	s := NewJSONSink(dir)
	if err := s.WriteReport(r, nil); err != nil {
		t.Fatalf("write json: %v", err)
	}
	raw, err := os.ReadFile(filepath.Join(dir, "GATEWAY_ONLY_A_2026-02-19_16-41-31_current_stats.json"))
	if err != nil {
		t.Fatalf("read json: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("decode: %v", err)
	}
	basic := decoded["basic"].(map[string]any)
	if v, ok := basic["mean_current_integrated_mA"]; !ok || v != nil {
		t.Fatalf("expected null integrated mean, got %v", v)
	}
	duty := decoded["duty_cycle_raw"].(map[string]any)
	if _, ok := duty["threshold_150_mA"]; !ok {
		t.Fatalf("expected threshold key, got %v", duty)
	}
}

func TestTextSinkPath(t *testing.T) {
	dir := t.TempDir()
	r, _ := runReport(t, burstySamples())

	s := NewTextSink(dir)
	if err := s.WriteReport(r, nil); err != nil {
		t.Fatalf("write text: %v", err)
	}
	want := filepath.Join(dir, "GATEWAY_ONLY_A_2026-02-19_16-41-31_current_stats.txt")
	if s.Path(source) != want {
		t.Fatalf("unexpected path %s", s.Path(source))
	}
	if _, err := os.Stat(want); err != nil {
		t.Fatalf("report not written: %v", err)
	}
}

func TestPlotSinkRendersPNGs(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "plots")
	r, tbl := runReport(t, burstySamples())

	s := NewPlotSink(dir)
	if err := s.WriteReport(r, tbl.Rows); err != nil {
		t.Fatalf("plots: %v", err)
	}
	if len(s.Written()) != domain.NumFields+1 {
		t.Fatalf("expected %d plots, got %v", domain.NumFields+1, s.Written())
	}
	for _, path := range s.Written() {
		raw, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("read %s: %v", path, err)
		}
		if !bytes.HasPrefix(raw, []byte("\x89PNG")) {
			t.Fatalf("%s is not a PNG", path)
		}
	}
}

func TestPlotSinkSkipsDegenerateSeries(t *testing.T) {
	dir := t.TempDir()
	r, tbl := runReport(t, burstySamples()[:2])

	s := NewPlotSink(dir)
	if err := s.WriteReport(r, tbl.Rows); err != nil {
		t.Fatalf("plots: %v", err)
	}
	if len(s.Written()) != 0 {
		t.Fatalf("single row must not be plotted, got %v", s.Written())
	}
}
