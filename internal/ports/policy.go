package ports

import (
	"errors"
	"time"
)

var (
	// ErrWALFull is reported when a sample is dropped because the WAL is at
	// MaxWALSizeBytes and OnWALFull is "drop".
	ErrWALFull = errors.New("wal full")
	// ErrQueueFull is reported when the queue rejects a sample under the
	// "drop" or "reject" policies.
	ErrQueueFull = errors.New("queue full")
)

type Policy struct {
	MaxWALSizeBytes int64         `yaml:"max_wal_size_bytes"`
	MaxQueueLen     int           `yaml:"max_queue_len"`
	MaxBatchSize    int           `yaml:"max_batch_size"`
	IdleSleep       time.Duration `yaml:"idle_sleep"`

	OnWALFull   string `yaml:"on_wal_full"`   // "block", "drop"
	OnQueueFull string `yaml:"on_queue_full"` // "block", "drop", "reject"
}
