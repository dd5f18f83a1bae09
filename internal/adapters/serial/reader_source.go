package serial

import (
	"bufio"
	"context"
	"errors"
	"io"
	"os"
	"sync"

	"github.com/ghalamif/PowerProbe/internal/ports"
)

type lineResult struct {
	line string
	err  error
}

// ReaderSource turns any io.Reader into a LineSource. A background goroutine
// owns the blocking reads so ReadLine can honour context cancellation.
type ReaderSource struct {
	closer    io.Closer
	lines     chan lineResult
	done      chan struct{}
	closeOnce sync.Once
	closeErr  error
}

// NewReaderSource starts reading r. If r is an io.Closer it is closed by
// Close.
func NewReaderSource(r io.Reader) *ReaderSource {
	s := &ReaderSource{
		lines: make(chan lineResult),
		done:  make(chan struct{}),
	}
	if c, ok := r.(io.Closer); ok {
		s.closer = c
	}
	go s.scan(r)
	return s
}

// OpenFile replays a recorded serial log.
func OpenFile(path string) (*ReaderSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	return NewReaderSource(f), nil
}

// maxLineLen caps a delivered line. Longer lines are cut to this length and
// the rest is skipped, so one runaway line cannot end the capture.
const maxLineLen = 64 << 10

func (s *ReaderSource) scan(r io.Reader) {
	defer close(s.lines)

	br := bufio.NewReader(r)
	for {
		line, err := readLine(br)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return
			}
			select {
			case s.lines <- lineResult{err: err}:
			case <-s.done:
			}
			return
		}
		select {
		case s.lines <- lineResult{line: line}:
		case <-s.done:
			return
		}
	}
}

// readLine returns the next line without its CR/LF ending, truncated to
// maxLineLen.
func readLine(br *bufio.Reader) (string, error) {
	var buf []byte
	for {
		frag, isPrefix, err := br.ReadLine()
		if err != nil {
			if errors.Is(err, io.EOF) && buf != nil {
				return string(buf), nil
			}
			return "", err
		}
		if room := maxLineLen - len(buf); room > 0 {
			buf = append(buf, frag[:min(len(frag), room)]...)
		} else if buf == nil {
			buf = []byte{}
		}
		if !isPrefix {
			return string(buf), nil
		}
	}
}

// ReadLine blocks until a line is available. It returns ctx.Err() on
// cancellation and ports.ErrSourceTerminated once the reader is exhausted or
// the source was closed.
func (s *ReaderSource) ReadLine(ctx context.Context) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case <-s.done:
		return "", ports.ErrSourceTerminated
	case res, ok := <-s.lines:
		if !ok {
			return "", ports.ErrSourceTerminated
		}
		return res.line, res.err
	}
}

func (s *ReaderSource) Close() error {
	s.closeOnce.Do(func() {
		close(s.done)
		if s.closer != nil {
			s.closeErr = s.closer.Close()
		}
	})
	return s.closeErr
}

var _ ports.LineSource = (*ReaderSource)(nil)
