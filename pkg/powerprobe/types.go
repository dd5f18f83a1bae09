package powerprobe

import (
	"github.com/ghalamif/PowerProbe/internal/domain"
	"github.com/ghalamif/PowerProbe/internal/ports"
)

// PipelineSample is the data structure that flows through the WAL→queue→sink
// pipeline. Custom sinks, WALs and queues are written against it.
type PipelineSample = domain.Sample

// QueuedSample represents an item buffered inside the bounded queue.
type QueuedSample = ports.QueuedSample

// LineSource produces the raw text lines of the power monitor.
type LineSource = ports.LineSource

// SampleQueue is the bounded, in-memory queue that decouples capture and sinks.
type SampleQueue = ports.SampleQueue

// Sink consumes batches of samples and persists them to any downstream system.
type Sink = ports.Sink

// ReportSink renders an analysis report.
type ReportSink = ports.ReportSink

// Observability emits metrics and structured logs about the capture.
type Observability = ports.Observability

// Field is a structured log/metric field used by Observability implementations.
type Field = ports.Field

// WAL abstracts the write-ahead log used for durability and crash recovery.
type WAL = ports.WAL

// WALStats exposes WAL metadata for observability.
type WALStats = ports.WALStats

// WALEntryID uniquely identifies a WAL entry.
type WALEntryID = ports.WALEntryID

type (
	// Report is the result of analyzing one capture.
	Report = domain.Report
	// AnalysisRow is one retained, normalized sample.
	AnalysisRow = domain.AnalysisRow
	// Stat is a statistic that may be undefined.
	Stat = domain.Stat
)

// ErrSourceTerminated is returned by a LineSource whose stream has ended.
var ErrSourceTerminated = ports.ErrSourceTerminated
