// Package analysis derives duty-cycle, burst and consumption statistics from a
// captured sample series.
package analysis

import (
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/ghalamif/PowerProbe/internal/domain"
)

// ErrEmptySeries means too few samples survived preprocessing for any
// time-weighted statistic to be defined.
var ErrEmptySeries = errors.New("analysis: empty series")

// Config holds the analysis tunables.
type Config struct {
	DiscardThresholdMA  float64   `yaml:"discard_threshold"`
	SmoothingWindow     int       `yaml:"smoothing_window"`
	DutyCycleThresholds []float64 `yaml:"duty_cycle_thresholds"`
	BurstThresholdMA    float64   `yaml:"burst_threshold"`
}

// DefaultConfig returns the thresholds used for the gateway captures.
func DefaultConfig() Config {
	return Config{
		DiscardThresholdMA:  1,
		SmoothingWindow:     10,
		DutyCycleThresholds: []float64{150, 180, 200, 250},
		BurstThresholdMA:    180,
	}
}

// ApplyDefaults fills the window and threshold list when unset. The discard
// and burst thresholds are kept as given since 0 mA is a valid threshold;
// start from DefaultConfig to get their defaults.
func (c *Config) ApplyDefaults() {
	d := DefaultConfig()
	if c.SmoothingWindow == 0 {
		c.SmoothingWindow = d.SmoothingWindow
	}
	if len(c.DutyCycleThresholds) == 0 {
		c.DutyCycleThresholds = d.DutyCycleThresholds
	}
}

func (c *Config) Validate() error {
	if c.SmoothingWindow < 1 {
		return fmt.Errorf("smoothing_window must be >= 1, got %d", c.SmoothingWindow)
	}
	if len(c.DutyCycleThresholds) == 0 {
		return errors.New("at least one duty cycle threshold is required")
	}
	seen := make(map[float64]bool, len(c.DutyCycleThresholds))
	for _, th := range c.DutyCycleThresholds {
		if !finite(th) {
			return fmt.Errorf("duty cycle threshold %v is not finite", th)
		}
		if seen[th] {
			return fmt.Errorf("duplicate duty cycle threshold %v", th)
		}
		seen[th] = true
	}
	if !finite(c.DiscardThresholdMA) || !finite(c.BurstThresholdMA) {
		return errors.New("discard and burst thresholds must be finite")
	}
	return nil
}

// Table is the normalized, time-ordered series the analyzers work on.
type Table struct {
	Rows       []domain.AnalysisRow
	TotalTimeS float64
	Discarded  int
}

// Normalize orders samples by timestamp, drops the startup transient (rows
// with current at or below discardThresholdMA, or no finite current), and
// derives relative time, per-row delta and the smoothed current.
//
// Time is measured from the first retained row so that normalizing
// Table.Samples() again yields the same table.
func Normalize(samples []domain.Sample, discardThresholdMA float64, window int) (*Table, error) {
	if window < 1 {
		return nil, fmt.Errorf("smoothing window must be >= 1, got %d", window)
	}

	ordered := slices.Clone(samples)
	slices.SortStableFunc(ordered, func(a, b domain.Sample) int {
		return a.Timestamp.Compare(b.Timestamp)
	})

	t := &Table{Rows: make([]domain.AnalysisRow, 0, len(ordered))}
	for _, s := range ordered {
		current, ok := s.Value(domain.FieldCurrent)
		if !ok || !finite(current) || current <= discardThresholdMA {
			t.Discarded++
			continue
		}
		t.Rows = append(t.Rows, domain.AnalysisRow{
			Timestamp: s.Timestamp,
			CurrentMA: current,
			PowerMW:   s.PowerMW,
			Sample:    s,
		})
	}
	if len(t.Rows) == 0 {
		return t, nil
	}

	origin := t.Rows[0].Timestamp
	ma := newMovingAverage(window)
	for i := range t.Rows {
		row := &t.Rows[i]
		row.TimeS = row.Timestamp.Sub(origin).Seconds()
		if i > 0 {
			row.DT = row.TimeS - t.Rows[i-1].TimeS
		}
		row.CurrentFiltered = ma.Add(row.CurrentMA)
		t.TotalTimeS += row.DT
	}
	return t, nil
}

// Samples returns the retained samples in table order.
func (t *Table) Samples() []domain.Sample {
	out := make([]domain.Sample, len(t.Rows))
	for i, row := range t.Rows {
		out[i] = row.Sample
	}
	return out
}

// Err reports ErrEmptySeries when no observed time remains.
func (t *Table) Err() error {
	if t == nil || len(t.Rows) < 2 || t.TotalTimeS <= 0 {
		return ErrEmptySeries
	}
	return nil
}

// ratio divides by the table's total time, or reports undefined.
func (t *Table) ratio(num float64) domain.Stat {
	if t.Err() != nil {
		return domain.Stat{}
	}
	return domain.Defined(num / t.TotalTimeS)
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }
