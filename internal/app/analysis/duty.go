package analysis

import "github.com/ghalamif/PowerProbe/internal/domain"

// EstimateDutyCycle sums dt over rows whose selected current strictly exceeds
// each threshold. Thresholds are independent, so a row above the highest
// threshold counts for every lower one too. Results follow threshold order.
func EstimateDutyCycle(t *Table, thresholds []float64, series domain.Series) []domain.DutyCycleResult {
	out := make([]domain.DutyCycleResult, 0, len(thresholds))
	for _, th := range thresholds {
		var active float64
		for _, row := range t.Rows {
			if row.Value(series) > th {
				active += row.DT
			}
		}
		res := domain.DutyCycleResult{ThresholdMA: th, ActiveTimeS: active}
		if pct := t.ratio(active); pct.Valid {
			res.DutyCyclePct = domain.Defined(pct.Value * 100)
		}
		out = append(out, res)
	}
	return out
}
