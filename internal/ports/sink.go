package ports

import "github.com/ghalamif/PowerProbe/internal/domain"

type Sink interface {
	WriteBatch(samples []*domain.Sample) error
	Name() string
}

// ReportSink renders the result of an analysis run.
type ReportSink interface {
	WriteReport(r *domain.Report, rows []domain.AnalysisRow) error
	Name() string
}
