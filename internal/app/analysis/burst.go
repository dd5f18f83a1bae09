package analysis

import "github.com/ghalamif/PowerProbe/internal/domain"

type burstState uint8

const (
	outsideBurst burstState = iota
	insideBurst
)

// DetectBursts walks the filtered current in time order and reports every
// closed interval above thresholdMA. A burst still open on the last row is
// dropped.
func DetectBursts(t *Table, thresholdMA float64) domain.BurstSummary {
	sum := domain.BurstSummary{ThresholdMA: thresholdMA}

	state := outsideBurst
	var start float64
	for _, row := range t.Rows {
		active := row.CurrentFiltered > thresholdMA
		switch {
		case state == outsideBurst && active:
			state = insideBurst
			start = row.TimeS
		case state == insideBurst && !active:
			state = outsideBurst
			sum.Bursts = append(sum.Bursts, domain.Burst{StartS: start, EndS: row.TimeS})
		}
	}

	sum.Count = len(sum.Bursts)
	if sum.Count == 0 {
		return sum
	}

	total := 0.0
	lo, hi := sum.Bursts[0].Duration(), sum.Bursts[0].Duration()
	for _, b := range sum.Bursts {
		d := b.Duration()
		total += d
		lo = min(lo, d)
		hi = max(hi, d)
	}
	sum.AvgDurationS = domain.Defined(total / float64(sum.Count))
	sum.MinDurationS = domain.Defined(lo)
	sum.MaxDurationS = domain.Defined(hi)
	return sum
}
