package serial

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ghalamif/PowerProbe/internal/ports"
)

func TestReaderSourceReadsLinesThenTerminates(t *testing.T) {
	src := NewReaderSource(strings.NewReader("Current:50.00 mA\r\nPower:240.00 mW\n"))
	defer src.Close()
	ctx := context.Background()

	for _, want := range []string{"Current:50.00 mA", "Power:240.00 mW"} {
		got, err := src.ReadLine(ctx)
		if err != nil {
			t.Fatalf("read line: %v", err)
		}
		if got != want {
			t.Fatalf("expected %q, got %q", want, got)
		}
	}
	if _, err := src.ReadLine(ctx); !errors.Is(err, ports.ErrSourceTerminated) {
		t.Fatalf("expected ErrSourceTerminated, got %v", err)
	}
}

func TestReaderSourceTruncatesOverlongLines(t *testing.T) {
	long := "Current:" + strings.Repeat("9", 3*maxLineLen)
	src := NewReaderSource(strings.NewReader(long + "\nPower:240.00 mW\n"))
	defer src.Close()
	ctx := context.Background()

	got, err := src.ReadLine(ctx)
	if err != nil {
		t.Fatalf("an overlong line must not end the source: %v", err)
	}
	if len(got) != maxLineLen || !strings.HasPrefix(got, "Current:") {
		t.Fatalf("expected a %d byte prefix, got %d bytes", maxLineLen, len(got))
	}
	if got, err := src.ReadLine(ctx); err != nil || got != "Power:240.00 mW" {
		t.Fatalf("expected the next line intact, got %q (%v)", got, err)
	}
	if _, err := src.ReadLine(ctx); !errors.Is(err, ports.ErrSourceTerminated) {
		t.Fatalf("expected ErrSourceTerminated, got %v", err)
	}
}

func TestReaderSourceCancellationIsDistinct(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()
	src := NewReaderSource(pr)
	defer src.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := src.ReadLine(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected context error while stream is open, got %v", err)
	}
	if errors.Is(err, ports.ErrSourceTerminated) {
		t.Fatalf("cancellation must not look like end of stream")
	}
}

func TestReaderSourceCloseUnblocksReaders(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()
	src := NewReaderSource(pr)

	errCh := make(chan error, 1)
	go func() {
		_, err := src.ReadLine(context.Background())
		errCh <- err
	}()

	time.Sleep(10 * time.Millisecond)
	if err := src.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	select {
	case err := <-errCh:
		if !errors.Is(err, ports.ErrSourceTerminated) {
			t.Fatalf("expected ErrSourceTerminated after close, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("ReadLine did not return after Close")
	}
}

func TestOpenFileReplaysLog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "serial.log")
	if err := os.WriteFile(path, []byte("Bus Voltage:5.00 V\n"), 0o600); err != nil {
		t.Fatalf("write log: %v", err)
	}
	src, err := OpenFile(path)
	if err != nil {
		t.Fatalf("open file: %v", err)
	}
	defer src.Close()

	line, err := src.ReadLine(context.Background())
	if err != nil || line != "Bus Voltage:5.00 V" {
		t.Fatalf("unexpected line %q err=%v", line, err)
	}
	if _, err := OpenFile(filepath.Join(t.TempDir(), "missing.log")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestConfigDefaultsAndValidation(t *testing.T) {
	var cfg Config
	cfg.ApplyDefaults()
	if cfg.Baud != 115200 || cfg.ReadTimeout != 500*time.Millisecond {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected missing port error")
	}
	if _, err := Open(Config{}); err == nil {
		t.Fatalf("Open should reject missing port")
	}
}
