package powerprobe

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestAnalyzeSamplesWritesReports(t *testing.T) {
	dir := t.TempDir()
	start := time.Date(2026, 2, 19, 16, 0, 0, 0, time.UTC)

	var samples []Sample
	for i, c := range []float64{0.5, 100, 250, 250, 100, 100} {
		c := c
		samples = append(samples, Sample{
			Seq:       uint64(i + 1),
			Timestamp: start.Add(time.Duration(i) * time.Second),
			CurrentMA: &c,
		})
	}

	cfg := DefaultAnalysisConfig()
	cfg.SmoothingWindow = 1
	rep, err := AnalyzeSamples(samples, cfg, "capture.csv", DefaultReportSinks(dir, "")...)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if rep.Basic.Samples != 5 || rep.Bursts.Count != 1 {
		t.Fatalf("unexpected report: %+v", rep)
	}
	if rep.Bursts.AvgDurationS.Value != 2 {
		t.Fatalf("expected a 2s burst, got %+v", rep.Bursts.AvgDurationS)
	}
	for _, name := range []string{"capture_stats.txt", "capture_stats.json"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Fatalf("%s not written: %v", name, err)
		}
	}
}

func TestAnalyzeSamplesEmptySeries(t *testing.T) {
	rep, err := AnalyzeSamples(nil, AnalysisConfig{}, "empty.csv")
	if !errors.Is(err, ErrEmptySeries) {
		t.Fatalf("expected ErrEmptySeries, got %v", err)
	}
	if rep == nil || rep.Basic.MeanCurrentIntegratedMA.Valid {
		t.Fatalf("expected a report with undefined ratios, got %+v", rep)
	}
}

func TestAnalyzeFileMissing(t *testing.T) {
	if _, err := AnalyzeFile(filepath.Join(t.TempDir(), "nope.csv"), AnalysisConfig{}); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
