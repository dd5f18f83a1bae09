package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ghalamif/PowerProbe/internal/app/frame"
	"github.com/ghalamif/PowerProbe/internal/domain"
	"github.com/ghalamif/PowerProbe/internal/ports"
)

// RunCapturePipeline pulls lines from src, assembles them into samples and
// makes every emitted sample durable in the WAL before queueing it for the
// sinks. It returns nil when the source ends or ctx is cancelled; a partial
// frame still in the assembler is never emitted.
func RunCapturePipeline(ctx context.Context, src ports.LineSource, asm *frame.Assembler, wal ports.WAL, q ports.SampleQueue, pol ports.Policy, obs ports.Observability) error {
	for {
		line, err := src.ReadLine(ctx)
		if err != nil {
			switch {
			case errors.Is(err, ports.ErrSourceTerminated):
				obs.LogInfo("line_source_terminated", ports.Field{Key: "pending_fields", Value: asm.Pending()})
				return nil
			case ctx.Err() != nil:
				obs.LogInfo("capture_cancelled", ports.Field{Key: "pending_fields", Value: asm.Pending()})
				return nil
			default:
				return fmt.Errorf("read line: %w", err)
			}
		}
		obs.IncCounter("powerprobe_lines_read_total", 1)

		s, ok := asm.Feed(line)
		if !ok {
			continue
		}
		obs.RecordSample(s)

		if !waitForWALCapacity(ctx, wal, pol, obs) {
			continue
		}

		id, err := wal.Append(s)
		if err != nil {
			obs.LogCritical("wal_append_failed", err, ports.Field{Key: "seq", Value: s.Seq})
			continue
		}

		if !enqueueWithPolicy(ctx, q, id, s, pol, obs) {
			obs.IncCounter("powerprobe_queue_dropped_total", 1)
		}
	}
}

// waitForWALCapacity applies OnWALFull. Once ctx is done it stops waiting and
// lets the append through, since the sample has already been emitted.
func waitForWALCapacity(ctx context.Context, wal ports.WAL, pol ports.Policy, obs ports.Observability) bool {
	if pol.MaxWALSizeBytes <= 0 {
		return true
	}
	sleep := idleSleep(pol)

	for {
		stats := wal.Stats()
		if stats.SizeBytes < pol.MaxWALSizeBytes {
			return true
		}

		switch pol.OnWALFull {
		case "block":
			if !sleepCtx(ctx, sleep) {
				return true
			}
		case "drop":
			obs.LogError("wal_full_drop", fmt.Errorf("%w: size=%d limit=%d", ports.ErrWALFull, stats.SizeBytes, pol.MaxWALSizeBytes))
			return false
		default:
			obs.LogError("wal_policy_invalid", fmt.Errorf("policy=%s", pol.OnWALFull))
			return false
		}
	}
}

// enqueueWithPolicy applies OnQueueFull. A sample that cannot be queued stays
// in the WAL and is replayed on the next start.
func enqueueWithPolicy(ctx context.Context, q ports.SampleQueue, id ports.WALEntryID, s *domain.Sample, pol ports.Policy, obs ports.Observability) bool {
	sleep := idleSleep(pol)

	for {
		if ok := q.Enqueue(id, s); ok {
			return true
		}

		switch pol.OnQueueFull {
		case "block":
			if !sleepCtx(ctx, sleep) {
				obs.LogError("queue_full_on_shutdown", fmt.Errorf("sample %d left in wal", id))
				return false
			}
		case "drop", "reject":
			obs.LogError("queue_full_drop", fmt.Errorf("%w: capacity %d", ports.ErrQueueFull, pol.MaxQueueLen))
			return false
		default:
			obs.LogError("queue_policy_invalid", fmt.Errorf("policy=%s", pol.OnQueueFull))
			return false
		}
	}
}

func idleSleep(pol ports.Policy) time.Duration {
	if pol.IdleSleep <= 0 {
		return 5 * time.Millisecond
	}
	return pol.IdleSleep
}

// sleepCtx waits d and reports false if ctx ended first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
