package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/ghalamif/PowerProbe/internal/domain"
	"github.com/ghalamif/PowerProbe/internal/ports"
)

// Undefined statistics are encoded as null.
type jsonReport struct {
	Source       string              `json:"source"`
	GeneratedAt  time.Time           `json:"generated_at"`
	Basic        jsonBasic           `json:"basic"`
	DutyRaw      map[string]jsonDuty `json:"duty_cycle_raw"`
	DutyFiltered map[string]jsonDuty `json:"duty_cycle_filtered"`
	Bursts       jsonBursts          `json:"tx_bursts"`
}

type jsonBasic struct {
	Samples                 int      `json:"samples"`
	TotalTimeS              float64  `json:"total_time_s"`
	MeanCurrentSimpleMA     *float64 `json:"mean_current_simple_mA"`
	MeanCurrentIntegratedMA *float64 `json:"mean_current_integrated_mA"`
	MeanPowerMW             *float64 `json:"mean_power_mW"`
	MinCurrentMA            *float64 `json:"min_current_mA"`
	MaxCurrentMA            *float64 `json:"max_current_mA"`
	StdCurrentMA            *float64 `json:"std_current_mA"`
}

type jsonDuty struct {
	ActiveTimeS      float64  `json:"active_time_s"`
	DutyCyclePercent *float64 `json:"duty_cycle_percent"`
}

type jsonBursts struct {
	ThresholdMA       float64  `json:"threshold_mA"`
	NumBursts         int      `json:"num_bursts"`
	AvgBurstDurationS *float64 `json:"avg_burst_duration_s,omitempty"`
	MaxBurstDurationS *float64 `json:"max_burst_duration_s,omitempty"`
	MinBurstDurationS *float64 `json:"min_burst_duration_s,omitempty"`
}

func nullable(s domain.Stat) *float64 {
	if !s.Valid {
		return nil
	}
	v := s.Value
	return &v
}

func dutyMap(results []domain.DutyCycleResult) map[string]jsonDuty {
	out := make(map[string]jsonDuty, len(results))
	for _, d := range results {
		out[ThresholdKey(d.ThresholdMA)] = jsonDuty{
			ActiveTimeS:      d.ActiveTimeS,
			DutyCyclePercent: nullable(d.DutyCyclePct),
		}
	}
	return out
}

// WriteJSON encodes r as indented JSON.
func WriteJSON(w io.Writer, r *domain.Report) error {
	b := r.Basic
	out := jsonReport{
		Source:      r.Source,
		GeneratedAt: r.GeneratedAt,
		Basic: jsonBasic{
			Samples:                 b.Samples,
			TotalTimeS:              b.TotalTimeS,
			MeanCurrentSimpleMA:     nullable(b.MeanCurrentSimpleMA),
			MeanCurrentIntegratedMA: nullable(b.MeanCurrentIntegratedMA),
			MeanPowerMW:             nullable(b.MeanPowerMW),
			MinCurrentMA:            nullable(b.MinCurrentMA),
			MaxCurrentMA:            nullable(b.MaxCurrentMA),
			StdCurrentMA:            nullable(b.StdCurrentMA),
		},
		DutyRaw:      dutyMap(r.DutyRaw),
		DutyFiltered: dutyMap(r.DutyFiltered),
		Bursts: jsonBursts{
			ThresholdMA:       r.Bursts.ThresholdMA,
			NumBursts:         r.Bursts.Count,
			AvgBurstDurationS: nullable(r.Bursts.AvgDurationS),
			MaxBurstDurationS: nullable(r.Bursts.MaxDurationS),
			MinBurstDurationS: nullable(r.Bursts.MinDurationS),
		},
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// JSONSink writes "<base>_stats.json" into dir.
type JSONSink struct {
	dir string
}

func NewJSONSink(dir string) *JSONSink {
	return &JSONSink{dir: dir}
}

func (s *JSONSink) Name() string { return "json" }

func (s *JSONSink) Path(source string) string {
	return filepath.Join(s.dir, BaseName(source)+"_stats.json")
}

func (s *JSONSink) WriteReport(r *domain.Report, _ []domain.AnalysisRow) error {
	path := s.Path(r.Source)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := WriteJSON(f, r); err != nil {
		f.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return f.Close()
}

var _ ports.ReportSink = (*JSONSink)(nil)
