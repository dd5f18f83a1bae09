package powerprobe

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/ghalamif/PowerProbe/internal/adapters/report"
	"github.com/ghalamif/PowerProbe/internal/adapters/sink"
	"github.com/ghalamif/PowerProbe/internal/app/analysis"
	"github.com/ghalamif/PowerProbe/internal/domain"
)

// ErrEmptySeries means fewer than two samples survived preprocessing, so the
// time-weighted statistics of the report are undefined.
var ErrEmptySeries = analysis.ErrEmptySeries

// DefaultReportSinks writes the text and JSON reports into dir and, when
// plotDir is not empty, one PNG per measurement into plotDir.
func DefaultReportSinks(dir, plotDir string) []ReportSink {
	sinks := []ReportSink{report.NewTextSink(dir), report.NewJSONSink(dir)}
	if plotDir != "" {
		sinks = append(sinks, report.NewPlotSink(plotDir))
	}
	return sinks
}

// AnalyzeFile loads a capture CSV and analyzes it. See AnalyzeSamples.
func AnalyzeFile(path string, cfg AnalysisConfig, sinks ...ReportSink) (*Report, error) {
	samples, err := sink.LoadCSV(path)
	if err != nil {
		return nil, err
	}
	return analyze(samples, cfg, path, sinks)
}

// AnalyzeSamples analyzes samples and hands the report to every sink. When
// the series is too short the report is still produced and written, with its
// ratios undefined, and the returned error wraps ErrEmptySeries.
func AnalyzeSamples(samples []Sample, cfg AnalysisConfig, source string, sinks ...ReportSink) (*Report, error) {
	dom := make([]domain.Sample, len(samples))
	for i, s := range samples {
		dom[i] = *s.toDomain()
	}
	return analyze(dom, cfg, source, sinks)
}

func analyze(samples []domain.Sample, cfg AnalysisConfig, source string, sinks []ReportSink) (*Report, error) {
	cfg.ApplyDefaults()
	rep, tbl, err := analysis.Run(samples, cfg, source, time.Now())
	if err != nil {
		return nil, err
	}

	var errs []error
	for _, s := range sinks {
		if err := s.WriteReport(rep, tbl.Rows); err != nil {
			errs = append(errs, fmt.Errorf("%s report: %w", s.Name(), err))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return rep, err
	}
	if err := tbl.Err(); err != nil {
		return rep, fmt.Errorf("%s: %w", source, err)
	}
	return rep, nil
}

// WriteTextReport renders rep in the layout of the "_stats.txt" report.
func WriteTextReport(w io.Writer, rep *Report) error {
	return report.WriteText(w, rep)
}
