package analysis

import (
	"time"

	"github.com/ghalamif/PowerProbe/internal/domain"
)

// Run normalizes samples and computes every report section. The table is
// returned alongside so callers can plot the series. An empty series is not
// an error: its ratios are reported as undefined.
func Run(samples []domain.Sample, cfg Config, source string, now time.Time) (*domain.Report, *Table, error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	t, err := Normalize(samples, cfg.DiscardThresholdMA, cfg.SmoothingWindow)
	if err != nil {
		return nil, nil, err
	}

	return &domain.Report{
		Source:       source,
		GeneratedAt:  now,
		Basic:        BasicCurrentStats(t),
		DutyRaw:      EstimateDutyCycle(t, cfg.DutyCycleThresholds, domain.SeriesRaw),
		DutyFiltered: EstimateDutyCycle(t, cfg.DutyCycleThresholds, domain.SeriesFiltered),
		Bursts:       DetectBursts(t, cfg.BurstThresholdMA),
	}, t, nil
}
