package ports

import (
	"context"
	"errors"
)

// ErrSourceTerminated is returned by a LineSource once its stream has ended.
// Cancellation is reported as the context error instead, so callers can tell
// the two apart.
var ErrSourceTerminated = errors.New("line source terminated")

// LineSource yields raw text lines, one per call, blocking until a line is
// available.
type LineSource interface {
	ReadLine(ctx context.Context) (string, error)
	Close() error
}
