package sink

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/ghalamif/PowerProbe/internal/domain"
	"github.com/ghalamif/PowerProbe/internal/ports"
)

// CSVHeader is the column layout of a capture file.
var CSVHeader = []string{
	"timestamp",
	"current_mA",
	"shunt_voltage_mV",
	"bus_voltage_V",
	"load_voltage_V",
	"power_mW",
}

// CSVSink appends samples to a capture file and flushes after every batch so
// an interrupted capture keeps everything that was acknowledged.
type CSVSink struct {
	mu   sync.Mutex
	path string
	file *os.File
	buf  *bufio.Writer
	csv  *csv.Writer
	rows uint64
}

// NewCSVSink creates path and writes the header row.
func NewCSVSink(path string) (*CSVSink, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("csv create %s: %w", path, err)
	}

	bw := bufio.NewWriterSize(f, 64<<10)
	cw := csv.NewWriter(bw)
	if err := cw.Write(CSVHeader); err != nil {
		f.Close()
		return nil, fmt.Errorf("csv write header: %w", err)
	}

	return &CSVSink{path: path, file: f, buf: bw, csv: cw}, nil
}

func (c *CSVSink) Name() string { return "csv" }

// Path returns the capture file location.
func (c *CSVSink) Path() string { return c.path }

func (c *CSVSink) WriteBatch(samples []*domain.Sample) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.file == nil {
		return fmt.Errorf("csv sink %s: closed", c.path)
	}
	for _, s := range samples {
		if err := c.csv.Write(sampleRecord(s)); err != nil {
			return err
		}
		c.rows++
	}
	return c.flushLocked()
}

// Rows returns the number of data rows written.
func (c *CSVSink) Rows() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rows
}

// Close flushes remaining data and closes the file.
func (c *CSVSink) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.file == nil {
		return nil
	}
	err := c.flushLocked()
	if cerr := c.file.Close(); err == nil {
		err = cerr
	}
	c.file = nil
	return err
}

func (c *CSVSink) flushLocked() error {
	c.csv.Flush()
	if err := c.csv.Error(); err != nil {
		return err
	}
	return c.buf.Flush()
}

func sampleRecord(s *domain.Sample) []string {
	rec := make([]string, 0, len(CSVHeader))
	rec = append(rec, s.Timestamp.Format(time.RFC3339Nano))
	for _, f := range domain.Fields {
		v, ok := s.Value(f)
		if !ok {
			rec = append(rec, "")
			continue
		}
		rec = append(rec, strconv.FormatFloat(v, 'f', -1, 64))
	}
	return rec
}

var _ ports.Sink = (*CSVSink)(nil)
