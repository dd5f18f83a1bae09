package observability

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ghalamif/PowerProbe/internal/domain"
	"github.com/ghalamif/PowerProbe/internal/ports"
)

type PromObs struct {
	logger   *slog.Logger
	counters map[string]prometheus.Counter
	gauges   map[string]prometheus.Gauge
	histos   map[string]prometheus.Observer
}

// Option customizes PromObs.
type Option func(*promOptions)

type promOptions struct {
	logger     *slog.Logger
	registerer prometheus.Registerer
}

// WithLogger routes log records to l instead of a stderr text handler.
func WithLogger(l *slog.Logger) Option {
	return func(o *promOptions) { o.logger = l }
}

// WithRegisterer registers collectors on r instead of the default registry.
func WithRegisterer(r prometheus.Registerer) Option {
	return func(o *promOptions) { o.registerer = r }
}

func NewPromObs(opts ...Option) *PromObs {
	o := promOptions{registerer: prometheus.DefaultRegisterer}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	if o.logger == nil {
		o.logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
	}

	lines := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "powerprobe_lines_read_total",
		Help: "Raw lines read from the line source.",
	})
	frames := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "powerprobe_frames_emitted_total",
		Help: "Complete frames assembled into samples.",
	})
	parseFailures := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "powerprobe_field_parse_failures_total",
		Help: "Tagged lines whose value could not be parsed.",
	})
	incomplete := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "powerprobe_incomplete_frames_total",
		Help: "Frames discarded because a measurement was missing at the terminal field.",
	})
	ingested := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "powerprobe_samples_ingested_total",
		Help: "Total samples successfully written to every sink.",
	})
	queueDrops := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "powerprobe_queue_dropped_total",
		Help: "Samples lost due to queue backpressure policies.",
	})
	walGauge := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "powerprobe_wal_size_bytes",
		Help: "Size of WAL on disk.",
	})
	queueGauge := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "powerprobe_queue_length",
		Help: "Current number of samples buffered in the in-memory queue.",
	})
	lastCurrent := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "powerprobe_last_current_ma",
		Help: "Current of the most recently assembled sample in mA.",
	})
	lastPower := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "powerprobe_last_power_mw",
		Help: "Power of the most recently assembled sample in mW.",
	})
	latency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "powerprobe_sink_latency_seconds",
		Help:    "Time spent writing one dequeued batch to the sinks.",
		Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
	})

	o.registerer.MustRegister(lines, frames, parseFailures, incomplete, ingested,
		queueDrops, walGauge, queueGauge, lastCurrent, lastPower, latency)

	return &PromObs{
		logger: o.logger,
		counters: map[string]prometheus.Counter{
			"powerprobe_lines_read_total":           lines,
			"powerprobe_frames_emitted_total":       frames,
			"powerprobe_field_parse_failures_total": parseFailures,
			"powerprobe_incomplete_frames_total":    incomplete,
			"powerprobe_samples_ingested_total":     ingested,
			"powerprobe_queue_dropped_total":        queueDrops,
		},
		gauges: map[string]prometheus.Gauge{
			"powerprobe_wal_size_bytes":  walGauge,
			"powerprobe_queue_length":    queueGauge,
			"powerprobe_last_current_ma": lastCurrent,
			"powerprobe_last_power_mw":   lastPower,
		},
		histos: map[string]prometheus.Observer{
			"powerprobe_sink_latency_seconds": latency,
		},
	}
}

func (p *PromObs) LogInfo(msg string, fields ...ports.Field) {
	p.logger.Info(msg, attrs(nil, fields)...)
}

func (p *PromObs) LogWarn(msg string, err error, fields ...ports.Field) {
	p.logger.Warn(msg, attrs(err, fields)...)
}

func (p *PromObs) LogError(msg string, err error, fields ...ports.Field) {
	if err != nil {
		p.logger.Error(msg, attrs(err, fields)...)
	}
}

func (p *PromObs) LogCritical(msg string, err error, fields ...ports.Field) {
	if err != nil {
		p.logger.Error(msg, attrs(err, append(fields, ports.Field{Key: "critical", Value: true}))...)
	}
}

func (p *PromObs) IncCounter(name string, v float64) {
	if c, ok := p.counters[name]; ok {
		c.Add(v)
	}
}

func (p *PromObs) ObserveLatency(name string, seconds float64) {
	if h, ok := p.histos[name]; ok {
		h.Observe(seconds)
	}
}

func (p *PromObs) SetGauge(name string, v float64) {
	if g, ok := p.gauges[name]; ok {
		g.Set(v)
	}
}

// RecordSample echoes a freshly assembled sample and tracks its readings.
func (p *PromObs) RecordSample(s *domain.Sample) {
	if s == nil {
		return
	}
	current, _ := s.Value(domain.FieldCurrent)
	power, _ := s.Value(domain.FieldPower)
	p.SetGauge("powerprobe_last_current_ma", current)
	p.SetGauge("powerprobe_last_power_mw", power)
	p.logger.Info("sample",
		slog.Time("ts", s.Timestamp),
		slog.Uint64("seq", s.Seq),
		slog.String("current", fmt.Sprintf("%.2f mA", current)),
		slog.String("power", fmt.Sprintf("%.2f mW", power)))
}

func attrs(err error, fields []ports.Field) []any {
	out := make([]any, 0, len(fields)+1)
	if err != nil {
		out = append(out, slog.Any("err", err))
	}
	for _, f := range fields {
		out = append(out, slog.Any(f.Key, f.Value))
	}
	return out
}

var _ ports.Observability = (*PromObs)(nil)

// RetryLogger is the logger handed to retry policies. Their per-attempt
// records are demoted to debug so a healthy sink does not flood the log.
func (p *PromObs) RetryLogger() *slog.Logger {
	return slog.New(debugHandler{p.logger.Handler()})
}

type debugHandler struct{ slog.Handler }

func (h debugHandler) Enabled(ctx context.Context, _ slog.Level) bool {
	return h.Handler.Enabled(ctx, slog.LevelDebug)
}

func (h debugHandler) Handle(ctx context.Context, r slog.Record) error {
	r.Level = slog.LevelDebug
	return h.Handler.Handle(ctx, r)
}

func (h debugHandler) WithAttrs(as []slog.Attr) slog.Handler {
	return debugHandler{h.Handler.WithAttrs(as)}
}

func (h debugHandler) WithGroup(name string) slog.Handler {
	return debugHandler{h.Handler.WithGroup(name)}
}
