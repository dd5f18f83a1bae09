package analysis

import (
	"github.com/GaryBoone/GoStats/stats"

	"github.com/ghalamif/PowerProbe/internal/domain"
)

// BasicCurrentStats summarizes consumption over the retained rows. Integrated
// means weight each row by its dt; rows without a finite power reading add
// nothing to the power integral.
func BasicCurrentStats(t *Table) domain.BasicStats {
	b := domain.BasicStats{Samples: len(t.Rows), TotalTimeS: t.TotalTimeS}
	if len(t.Rows) == 0 {
		return b
	}

	currents := make([]float64, len(t.Rows))
	var currentIntegral, powerIntegral float64
	for i, row := range t.Rows {
		currents[i] = row.CurrentMA
		currentIntegral += row.CurrentFiltered * row.DT
		if row.PowerMW != nil && finite(*row.PowerMW) {
			powerIntegral += *row.PowerMW * row.DT
		}
	}

	b.MeanCurrentSimpleMA = domain.Defined(stats.StatsMean(currents))
	b.MinCurrentMA = domain.Defined(stats.StatsMin(currents))
	b.MaxCurrentMA = domain.Defined(stats.StatsMax(currents))
	if len(currents) > 1 {
		b.StdCurrentMA = domain.Defined(stats.StatsSampleStandardDeviation(currents))
	}
	b.MeanCurrentIntegratedMA = t.ratio(currentIntegral)
	b.MeanPowerMW = t.ratio(powerIntegral)
	return b
}
