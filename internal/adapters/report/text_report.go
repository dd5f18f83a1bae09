// Package report renders analysis results as text, JSON and PNG plots.
package report

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ghalamif/PowerProbe/internal/domain"
	"github.com/ghalamif/PowerProbe/internal/ports"
)

// BaseName strips directory and extension from a capture path, so
// "data/GATEWAY_ONLY_A_..._current.csv" becomes "GATEWAY_ONLY_A_..._current".
func BaseName(capturePath string) string {
	base := filepath.Base(capturePath)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// TextSink writes the "<base>_stats.txt" report next to dir.
type TextSink struct {
	dir string
}

func NewTextSink(dir string) *TextSink {
	return &TextSink{dir: dir}
}

func (s *TextSink) Name() string { return "text" }

// Path returns where the report for source is written.
func (s *TextSink) Path(source string) string {
	return filepath.Join(s.dir, BaseName(source)+"_stats.txt")
}

func (s *TextSink) WriteReport(r *domain.Report, _ []domain.AnalysisRow) error {
	path := s.Path(r.Source)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := WriteText(f, r); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// WriteText renders r in the sectioned key/value layout of the stats report.
func WriteText(w io.Writer, r *domain.Report) error {
	bw := bufio.NewWriter(w)

	b := r.Basic
	fmt.Fprintln(bw, "=== Basic Current Stats ===")
	fmt.Fprintf(bw, "total_time_s: %s\n", formatFloat(b.TotalTimeS))
	fmt.Fprintf(bw, "mean_current_simple_mA: %s\n", formatStat(b.MeanCurrentSimpleMA))
	fmt.Fprintf(bw, "mean_current_integrated_mA: %s\n", formatStat(b.MeanCurrentIntegratedMA))
	fmt.Fprintf(bw, "mean_power_mW: %s\n", formatStat(b.MeanPowerMW))
	fmt.Fprintf(bw, "min_current_mA: %s\n", formatStat(b.MinCurrentMA))
	fmt.Fprintf(bw, "max_current_mA: %s\n", formatStat(b.MaxCurrentMA))
	fmt.Fprintf(bw, "std_current_mA: %s\n", formatStat(b.StdCurrentMA))

	fmt.Fprintln(bw, "\n=== Duty Cycle Estimation ===")
	fmt.Fprintln(bw, "\n--- Raw Current ---")
	writeDuty(bw, r.DutyRaw)
	fmt.Fprintln(bw, "\n--- Filtered Current ---")
	writeDuty(bw, r.DutyFiltered)

	fmt.Fprintln(bw, "\n=== TX Burst Detection ===")
	fmt.Fprintf(bw, "num_bursts: %d\n", r.Bursts.Count)
	if r.Bursts.Count > 0 {
		fmt.Fprintf(bw, "avg_burst_duration_s: %s\n", formatStat(r.Bursts.AvgDurationS))
		fmt.Fprintf(bw, "max_burst_duration_s: %s\n", formatStat(r.Bursts.MaxDurationS))
		fmt.Fprintf(bw, "min_burst_duration_s: %s\n", formatStat(r.Bursts.MinDurationS))
	}

	return bw.Flush()
}

func writeDuty(w io.Writer, results []domain.DutyCycleResult) {
	for _, d := range results {
		fmt.Fprintf(w, "Threshold: %s\n", ThresholdKey(d.ThresholdMA))
		fmt.Fprintf(w, "  active_time_s: %s\n", formatFloat(d.ActiveTimeS))
		fmt.Fprintf(w, "  duty_cycle_percent: %s\n", formatStat(d.DutyCyclePct))
	}
}

// ThresholdKey names a threshold the way reports key it, e.g. "threshold_150_mA".
func ThresholdKey(th float64) string {
	return "threshold_" + formatFloat(th) + "_mA"
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatStat(s domain.Stat) string {
	if !s.Valid {
		return "undefined"
	}
	return formatFloat(s.Value)
}

var _ ports.ReportSink = (*TextSink)(nil)
