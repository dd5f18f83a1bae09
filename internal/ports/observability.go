package ports

import "github.com/ghalamif/PowerProbe/internal/domain"

// Diagnostics receives warnings for recoverable input problems. It never
// reports back into the caller.
type Diagnostics interface {
	LogWarn(msg string, err error, fields ...Field)
	IncCounter(name string, v float64)
}

type Observability interface {
	Diagnostics

	LogInfo(msg string, fields ...Field)
	LogError(msg string, err error, fields ...Field)
	LogCritical(msg string, err error, fields ...Field)

	ObserveLatency(name string, seconds float64)
	SetGauge(name string, v float64)

	RecordSample(s *domain.Sample)
}

type Field struct {
	Key   string
	Value any
}
