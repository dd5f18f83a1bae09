package powerprobe

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"github.com/ghalamif/PowerProbe/internal/adapters/observability"
	"github.com/ghalamif/PowerProbe/internal/adapters/queue"
	"github.com/ghalamif/PowerProbe/internal/adapters/serial"
	"github.com/ghalamif/PowerProbe/internal/adapters/sink"
	"github.com/ghalamif/PowerProbe/internal/adapters/wal"
	"github.com/ghalamif/PowerProbe/internal/app/frame"
	"github.com/ghalamif/PowerProbe/internal/app/pipeline"
	"github.com/ghalamif/PowerProbe/internal/domain"
	"github.com/ghalamif/PowerProbe/internal/ports"
)

// ErrQueueFull indicates the in-memory queue rejected a sample according to policy.
var ErrQueueFull = ports.ErrQueueFull

// ErrWALFull indicates the WAL is at capacity and OnWALFull != "block".
var ErrWALFull = ports.ErrWALFull

// CaptureOption customizes the dependencies used by CaptureRuntime.
type CaptureOption func(*runtimeOverrides)

type runtimeOverrides struct {
	source        LineSource
	sinks         []Sink
	teeSinks      []Sink
	wal           WAL
	queue         SampleQueue
	observability Observability
	sessionID     string
	clock         func() time.Time
}

// WithLineSource reads lines from src instead of the configured serial port,
// e.g. a recorded log or a network stream.
func WithLineSource(src LineSource) CaptureOption {
	return func(o *runtimeOverrides) {
		o.source = src
	}
}

// WithSink replaces the default CSV/Timescale sinks. Repeat it to fan out to
// several sinks.
func WithSink(s Sink) CaptureOption {
	return func(o *runtimeOverrides) {
		if s != nil {
			o.sinks = append(o.sinks, s)
		}
	}
}

// WithTeeSink adds s next to the default sinks.
func WithTeeSink(s Sink) CaptureOption {
	return func(o *runtimeOverrides) {
		if s != nil {
			o.teeSinks = append(o.teeSinks, s)
		}
	}
}

// WithWAL lets callers bring their own WAL implementation or reuse an existing instance.
func WithWAL(w WAL) CaptureOption {
	return func(o *runtimeOverrides) {
		o.wal = w
	}
}

// WithSampleQueue injects a custom queue implementation.
func WithSampleQueue(q SampleQueue) CaptureOption {
	return func(o *runtimeOverrides) {
		o.queue = q
	}
}

// WithObservability plugs in a custom observability backend.
func WithObservability(obs Observability) CaptureOption {
	return func(o *runtimeOverrides) {
		o.observability = obs
	}
}

// WithSessionID stamps samples with id instead of a random UUID.
func WithSessionID(id string) CaptureOption {
	return func(o *runtimeOverrides) {
		o.sessionID = id
	}
}

// WithClock overrides the time source used for sample timestamps and the
// capture file name.
func WithClock(now func() time.Time) CaptureOption {
	return func(o *runtimeOverrides) {
		o.clock = now
	}
}

// CaptureRuntime wires up the line source → assembler → WAL → queue → sink
// pipeline, serves metrics while capturing and optionally analyzes the capture
// file once the operator stops it.
type CaptureRuntime struct {
	cfg         *Config
	policy      ports.Policy
	obs         ports.Observability
	wal         ports.WAL
	queue       ports.SampleQueue
	source      ports.LineSource
	assembler   *frame.Assembler
	sink        *sink.MultiSink
	csv         *sink.CSVSink
	db          *sql.DB
	sessionID   string
	now         func() time.Time
	metrics     *metricsServer
	gaugeStopCh chan struct{}
}

// NewCaptureRuntime bootstraps the default adapters (serial line source, file
// WAL, in-memory queue, CSV capture file, optional Timescale table, Prometheus
// observability).
func NewCaptureRuntime(cfg *Config, opts ...CaptureOption) (rt *CaptureRuntime, err error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	var overrides runtimeOverrides
	for _, opt := range opts {
		if opt != nil {
			opt(&overrides)
		}
	}

	// resources opened so far, released if a later step fails
	var opened []io.Closer
	defer func() {
		if err != nil {
			for i := len(opened) - 1; i >= 0; i-- {
				_ = opened[i].Close()
			}
		}
	}()

	now := overrides.clock
	if now == nil {
		now = time.Now
	}
	sessionID := overrides.sessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	obs := overrides.observability
	if obs == nil {
		obs = observability.NewPromObs()
	}

	walAdapter := overrides.wal
	if walAdapter == nil {
		fw, err := wal.NewFileWAL(cfg.WAL.Dir)
		if err != nil {
			return nil, fmt.Errorf("open wal: %w", err)
		}
		opened = append(opened, fw)
		walAdapter = fw
	}

	q := overrides.queue
	if q == nil {
		q = queue.NewMemQueue(cfg.Policy.MaxQueueLen)
	}

	src := overrides.source
	if src == nil {
		if err := cfg.ValidateCapture(); err != nil {
			return nil, err
		}
		sp, err := serial.Open(cfg.Serial)
		if err != nil {
			return nil, err
		}
		opened = append(opened, sp)
		src = sp
	}

	rt = &CaptureRuntime{
		cfg:       cfg,
		policy:    cfg.Policy,
		obs:       obs,
		wal:       walAdapter,
		queue:     q,
		source:    src,
		sessionID: sessionID,
		now:       now,
	}

	sinks := overrides.sinks
	if len(sinks) == 0 {
		if sinks, err = rt.defaultSinks(&opened); err != nil {
			return nil, err
		}
	}
	rt.sink = sink.NewMultiSink(append(sinks, overrides.teeSinks...)...)
	rt.assembler = frame.NewAssembler(obs, frame.WithSessionID(sessionID), frame.WithClock(now))
	return rt, nil
}

func (r *CaptureRuntime) defaultSinks(opened *[]io.Closer) ([]Sink, error) {
	if err := os.MkdirAll(r.cfg.Capture.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("data dir: %w", err)
	}
	csvSink, err := sink.NewCSVSink(r.cfg.Capture.FileName(r.now()))
	if err != nil {
		return nil, err
	}
	*opened = append(*opened, csvSink)
	r.csv = csvSink
	sinks := []Sink{csvSink}

	if r.cfg.Timescale.Enabled() {
		db, err := sql.Open("postgres", r.cfg.Timescale.ConnString)
		if err != nil {
			return nil, err
		}
		*opened = append(*opened, db)
		ts := sink.NewTimescaleSink(db, r.cfg.Timescale.Table)
		if err := ts.CreateTable(); err != nil {
			return nil, fmt.Errorf("timescale: %w", err)
		}
		r.db = db
		sinks = append(sinks, ts)
	}
	return sinks, nil
}

// SessionID identifies the samples of this capture.
func (r *CaptureRuntime) SessionID() string { return r.sessionID }

// CapturePath is the CSV file being written, or "" when the default sinks
// were replaced.
func (r *CaptureRuntime) CapturePath() string {
	if r.csv == nil {
		return ""
	}
	return r.csv.Path()
}

// Run captures until ctx is cancelled or the line source ends. Samples left
// uncommitted in the WAL by a previous run are queued again before the first
// line is read. Every sample
// emitted before that point reaches the sinks before Run returns; a partial
// frame is discarded. With capture.analyze_on_stop set, the finished capture
// file is analyzed afterwards.
func (r *CaptureRuntime) Run(ctx context.Context) error {
	if r == nil {
		return fmt.Errorf("capture runtime is nil")
	}

	stop := make(chan struct{})
	ingestDone := make(chan struct{})
	go func() {
		pipeline.RunIngestPipeline(stop, r.wal, r.queue, r.sink, r.policy, r.obs)
		close(ingestDone)
	}()
	r.startMetrics()

	r.obs.LogInfo("capture_started",
		ports.Field{Key: "session", Value: r.sessionID},
		ports.Field{Key: "file", Value: r.CapturePath()},
		ports.Field{Key: "topology", Value: r.cfg.Capture.Topology},
		ports.Field{Key: "scenario", Value: r.cfg.Capture.Scenario},
		ports.Field{Key: "sink", Value: r.sink.Name()})

	// ingest is already draining, so a replay larger than the queue cannot stall
	captureErr := replayWALIntoQueue(ctx, r.wal, r.queue, r.policy, r.obs)
	if captureErr == nil {
		captureErr = pipeline.RunCapturePipeline(ctx, r.source, r.assembler, r.wal, r.queue, r.policy, r.obs)
	}

	close(stop)
	<-ingestDone

	stats := r.assembler.Stats()
	r.obs.LogInfo("capture_stopped",
		ports.Field{Key: "lines", Value: stats.Lines},
		ports.Field{Key: "samples", Value: stats.Emitted},
		ports.Field{Key: "incomplete_frames", Value: stats.IncompleteFrames},
		ports.Field{Key: "parse_failures", Value: stats.ParseFailures})

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := errors.Join(captureErr, r.shutdown(shutdownCtx))

	if captureErr == nil && r.cfg.Capture.AnalyzeOnStop && r.csv != nil {
		if _, aerr := r.analyzeCapture(); aerr != nil {
			err = errors.Join(err, aerr)
		}
	}
	return err
}

// shutdown stops the metrics server, closes source and sinks, and compacts
// the WAL behind what the sinks acknowledged.
func (r *CaptureRuntime) shutdown(ctx context.Context) error {
	var errs []error

	if r.gaugeStopCh != nil {
		close(r.gaugeStopCh)
		r.gaugeStopCh = nil
	}

	if r.metrics != nil {
		if err := r.metrics.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}

	if err := r.source.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close source: %w", err))
	}

	if err := r.sink.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close sinks: %w", err))
	}

	if err := r.wal.TruncateCommitted(); err != nil {
		errs = append(errs, fmt.Errorf("truncate wal: %w", err))
	}
	if err := r.wal.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close wal: %w", err))
	}

	if r.db != nil {
		if err := r.db.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

func (r *CaptureRuntime) analyzeCapture() (*Report, error) {
	path := r.csv.Path()
	plotDir := ""
	if r.cfg.Capture.Plots {
		plotDir = r.cfg.Capture.PlotDir()
	}
	rep, err := AnalyzeFile(path, r.cfg.Analysis, DefaultReportSinks(r.cfg.Capture.DataDir, plotDir)...)
	if errors.Is(err, ErrEmptySeries) {
		r.obs.LogWarn("analysis_undefined", err, ports.Field{Key: "file", Value: path})
		return rep, nil
	}
	if err != nil {
		return nil, fmt.Errorf("analyze %s: %w", path, err)
	}
	r.obs.LogInfo("analysis_written",
		ports.Field{Key: "file", Value: path},
		ports.Field{Key: "bursts", Value: rep.Bursts.Count})
	return rep, nil
}

func (r *CaptureRuntime) recordResourceGauges(stop <-chan struct{}, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			stats := r.wal.Stats()
			r.obs.SetGauge("powerprobe_wal_size_bytes", float64(stats.SizeBytes))
			r.obs.SetGauge("powerprobe_queue_length", float64(r.queue.Len()))
		}
	}
}

// errReplayStopped ends a replay cut short by cancellation; the rest stays in
// the WAL for the next start.
var errReplayStopped = errors.New("wal replay stopped")

func replayWALIntoQueue(ctx context.Context, walAdapter ports.WAL, q ports.SampleQueue, pol ports.Policy, obs ports.Observability) error {
	stats := walAdapter.Stats()
	if stats.LatestAppended == 0 {
		return nil
	}
	start := stats.OldestUncommitted
	if start == 0 || start > stats.LatestAppended {
		return nil
	}

	sleep := pol.IdleSleep
	if sleep <= 0 {
		sleep = 5 * time.Millisecond
	}

	var replayed int
	err := walAdapter.Iterate(start, func(id ports.WALEntryID, sample *domain.Sample) error {
		for {
			if q.Enqueue(id, sample) {
				replayed++
				return nil
			}
			switch pol.OnQueueFull {
			case "drop", "reject":
				return fmt.Errorf("wal replay at id %d: %w", id, ErrQueueFull)
			default:
				select {
				case <-ctx.Done():
					return errReplayStopped
				case <-time.After(sleep):
				}
			}
		}
	})
	if err != nil && !errors.Is(err, errReplayStopped) {
		return err
	}
	if replayed > 0 {
		obs.LogInfo("wal_replay_complete",
			ports.Field{Key: "samples", Value: replayed},
			ports.Field{Key: "from_id", Value: start})
	}
	return nil
}
