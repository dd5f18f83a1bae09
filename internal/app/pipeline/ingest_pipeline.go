package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/Azure/iot-operations-sdks/go/mqtt/retry"

	"github.com/ghalamif/PowerProbe/internal/domain"
	"github.com/ghalamif/PowerProbe/internal/ports"
)

// sinkAttempts bounds retries of one batch before the WAL watermark is frozen.
const sinkAttempts = 3

// RunIngestPipeline moves queued samples into sink and commits the WAL behind
// them. After stop is closed it drains whatever is still queued and returns;
// the producer must have stopped enqueueing before stop is closed. Once stop
// is closed a failing batch gets a single attempt.
func RunIngestPipeline(stop <-chan struct{}, wal ports.WAL, q ports.SampleQueue, sink ports.Sink, pol ports.Policy, obs ports.Observability) {
	idle := idleSleep(pol)
	stalled := false

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-stop:
			cancel()
		case <-ctx.Done():
		}
	}()
	backoff := sinkBackoff(idle, obs)

	for {
		batch := q.DequeueBatch(pol.MaxBatchSize)
		if len(batch) == 0 {
			select {
			case <-stop:
				return
			case <-time.After(idle):
			}
			continue
		}

		var (
			out   = make([]*domain.Sample, 0, len(batch))
			maxID ports.WALEntryID
		)
		for _, item := range batch {
			out = append(out, item.Sample)
			if item.ID > maxID {
				maxID = item.ID
			}
		}

		start := time.Now()
		if err := writeWithRetry(ctx, backoff, sink, out); err != nil {
			// Later commits would cover this batch, so stop committing and
			// let the next start replay from here.
			if !stalled {
				obs.LogCritical("sink_write_failed", err,
					ports.Field{Key: "sink", Value: sink.Name()},
					ports.Field{Key: "samples", Value: len(out)})
			}
			stalled = true
			continue
		}
		obs.ObserveLatency("powerprobe_sink_latency_seconds", time.Since(start).Seconds())
		obs.IncCounter("powerprobe_samples_ingested_total", float64(len(out)))

		if stalled {
			continue
		}
		if err := wal.Commit(maxID); err != nil {
			obs.LogError("wal_commit_failed", err)
		}
	}
}

// retryLogger is implemented by observability backends built on slog.
type retryLogger interface {
	RetryLogger() *slog.Logger
}

func sinkBackoff(idle time.Duration, obs ports.Observability) retry.Policy {
	b := &retry.ExponentialBackoff{
		MaxAttempts: sinkAttempts,
		MinInterval: idle,
		MaxInterval: max(time.Second, idle),
		NoJitter:    true,
	}
	if rl, ok := obs.(retryLogger); ok {
		b.Logger = rl.RetryLogger()
	}
	return b
}

// writeWithRetry returns the sink's own error when attempts run out or ctx
// ends between attempts.
func writeWithRetry(ctx context.Context, backoff retry.Policy, sink ports.Sink, samples []*domain.Sample) error {
	var last error
	err := backoff.Start(ctx, "sink_write_"+sink.Name(), func(context.Context) (bool, error) {
		last = sink.WriteBatch(samples)
		return true, last
	})
	if err != nil && last != nil {
		return last
	}
	return err
}
