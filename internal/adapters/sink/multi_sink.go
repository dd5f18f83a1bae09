package sink

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ghalamif/PowerProbe/internal/domain"
	"github.com/ghalamif/PowerProbe/internal/ports"
)

// MultiSink writes each batch to every child sink in order. The batch counts
// as written only when all children accepted it.
type MultiSink struct {
	sinks []ports.Sink
}

func NewMultiSink(sinks ...ports.Sink) *MultiSink {
	m := &MultiSink{}
	for _, s := range sinks {
		if s != nil {
			m.sinks = append(m.sinks, s)
		}
	}
	return m
}

func (m *MultiSink) Name() string {
	names := make([]string, len(m.sinks))
	for i, s := range m.sinks {
		names[i] = s.Name()
	}
	return "multi(" + strings.Join(names, ",") + ")"
}

func (m *MultiSink) WriteBatch(samples []*domain.Sample) error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.WriteBatch(samples); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// Close closes every child that holds resources.
func (m *MultiSink) Close() error {
	var errs []error
	for _, s := range m.sinks {
		if c, ok := s.(interface{ Close() error }); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
			}
		}
	}
	return errors.Join(errs...)
}

var _ ports.Sink = (*MultiSink)(nil)
