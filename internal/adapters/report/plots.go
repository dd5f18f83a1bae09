package report

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ghalamif/PowerProbe/internal/domain"
	"github.com/ghalamif/PowerProbe/internal/ports"
	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

const (
	plotWidth  = 1500
	plotHeight = 900
)

// PlotSink renders one PNG per measurement column against relative time, plus
// a raw versus filtered current overlay carrying the burst threshold.
type PlotSink struct {
	dir     string
	written []string
}

func NewPlotSink(dir string) *PlotSink {
	return &PlotSink{dir: dir}
}

func (s *PlotSink) Name() string { return "plots" }

// Written lists the files produced by the last WriteReport.
func (s *PlotSink) Written() []string { return s.written }

func (s *PlotSink) WriteReport(r *domain.Report, rows []domain.AnalysisRow) error {
	s.written = s.written[:0]
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("plots dir: %w", err)
	}
	base := BaseName(r.Source)

	for _, f := range domain.Fields {
		xs, ys := fieldSeries(rows, f)
		if !plottable(xs) {
			continue
		}
		ch := chart.Chart{
			Title: f.Label() + " vs Time",
			XAxis: chart.XAxis{Name: "Time (seconds)"},
			YAxis: chart.YAxis{Name: f.Label(), Range: padFlat(ys)},
			Series: []chart.Series{
				chart.ContinuousSeries{
					Name:    f.Column(),
					XValues: xs,
					YValues: ys,
					Style:   chart.Style{StrokeColor: drawing.ColorBlue, StrokeWidth: 1.5},
				},
			},
		}
		if err := s.render(&ch, base+"_"+f.Column()+".png"); err != nil {
			return err
		}
	}

	xs := make([]float64, len(rows))
	raw := make([]float64, len(rows))
	filtered := make([]float64, len(rows))
	for i, row := range rows {
		xs[i] = row.TimeS
		raw[i] = row.CurrentMA
		filtered[i] = row.CurrentFiltered
	}
	if !plottable(xs) {
		return nil
	}
	th := r.Bursts.ThresholdMA
	ch := chart.Chart{
		Title: "Current: raw vs filtered",
		XAxis: chart.XAxis{Name: "Time (seconds)"},
		YAxis: chart.YAxis{Name: "Current (mA)", Range: padFlat(append(raw[:len(raw):len(raw)], th))},
		Series: []chart.Series{
			chart.ContinuousSeries{
				Name: "raw", XValues: xs, YValues: raw,
				Style: chart.Style{StrokeColor: drawing.ColorFromHex("9e9e9e"), StrokeWidth: 1},
			},
			chart.ContinuousSeries{
				Name: "filtered", XValues: xs, YValues: filtered,
				Style: chart.Style{StrokeColor: drawing.ColorBlue, StrokeWidth: 2},
			},
			chart.ContinuousSeries{
				Name:    fmt.Sprintf("burst threshold %s mA", formatFloat(th)),
				XValues: []float64{xs[0], xs[len(xs)-1]},
				YValues: []float64{th, th},
				Style:   chart.Style{StrokeColor: drawing.ColorRed, StrokeWidth: 1, StrokeDashArray: []float64{6, 4}},
			},
		},
	}
	ch.Elements = []chart.Renderable{chart.Legend(&ch)}
	return s.render(&ch, base+"_current_filtered.png")
}

func (s *PlotSink) render(ch *chart.Chart, name string) error {
	ch.Width = plotWidth
	ch.Height = plotHeight
	ch.Background = chart.Style{Padding: chart.Box{Top: 20, Left: 20, Right: 20, Bottom: 20}}

	var buf bytes.Buffer
	if err := ch.Render(chart.PNG, &buf); err != nil {
		return fmt.Errorf("render %s: %w", name, err)
	}
	path := filepath.Join(s.dir, name)
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	s.written = append(s.written, path)
	return nil
}

// plottable reports whether xs spans a non-empty range; go-chart refuses to
// render a zero-width axis.
func plottable(xs []float64) bool {
	return len(xs) >= 2 && xs[len(xs)-1] > xs[0]
}

// padFlat widens a constant series so the y axis is not zero-height. A nil
// range lets go-chart autoscale.
func padFlat(ys []float64) chart.Range {
	lo, hi := ys[0], ys[0]
	for _, y := range ys {
		lo = min(lo, y)
		hi = max(hi, y)
	}
	if hi > lo {
		return nil
	}
	return &chart.ContinuousRange{Min: lo - 1, Max: hi + 1}
}

// fieldSeries skips rows where the measurement was never observed.
func fieldSeries(rows []domain.AnalysisRow, f domain.Field) (xs, ys []float64) {
	for _, row := range rows {
		v, ok := row.Sample.Value(f)
		if !ok {
			continue
		}
		xs = append(xs, row.TimeS)
		ys = append(ys, v)
	}
	return xs, ys
}

var _ ports.ReportSink = (*PlotSink)(nil)
