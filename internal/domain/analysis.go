package domain

import "time"

// AnalysisRow is one retained sample after preprocessing.
type AnalysisRow struct {
	Timestamp       time.Time
	TimeS           float64
	DT              float64
	CurrentMA       float64
	CurrentFiltered float64
	PowerMW         *float64
	Sample          Sample
}

// Series selects which current column an analysis reads.
type Series uint8

const (
	SeriesRaw Series = iota
	SeriesFiltered
)

func (s Series) String() string {
	if s == SeriesFiltered {
		return "filtered"
	}
	return "raw"
}

// Value returns the selected current value of r.
func (r AnalysisRow) Value(s Series) float64 {
	if s == SeriesFiltered {
		return r.CurrentFiltered
	}
	return r.CurrentMA
}

// Stat is a statistic that may be undefined, e.g. a ratio over zero observed time.
type Stat struct {
	Value float64
	Valid bool
}

// Defined wraps v as a valid statistic.
func Defined(v float64) Stat { return Stat{Value: v, Valid: true} }

// BasicStats summarizes the retained current/power series.
type BasicStats struct {
	Samples                 int
	TotalTimeS              float64
	MeanCurrentSimpleMA     Stat
	MeanCurrentIntegratedMA Stat
	MeanPowerMW             Stat
	MinCurrentMA            Stat
	MaxCurrentMA            Stat
	StdCurrentMA            Stat
}

// DutyCycleResult is the activity above one threshold.
type DutyCycleResult struct {
	ThresholdMA  float64
	ActiveTimeS  float64
	DutyCyclePct Stat
}

// Burst is a closed interval during which the filtered current stayed above
// the burst threshold.
type Burst struct {
	StartS float64
	EndS   float64
}

// Duration returns the burst length in seconds.
func (b Burst) Duration() float64 { return b.EndS - b.StartS }

// BurstSummary aggregates detected bursts. Durations are only valid when
// Count > 0.
type BurstSummary struct {
	ThresholdMA  float64
	Count        int
	Bursts       []Burst
	AvgDurationS Stat
	MinDurationS Stat
	MaxDurationS Stat
}

// Report is the full result of analyzing one capture.
type Report struct {
	Source       string
	GeneratedAt  time.Time
	Basic        BasicStats
	DutyRaw      []DutyCycleResult
	DutyFiltered []DutyCycleResult
	Bursts       BurstSummary
}
