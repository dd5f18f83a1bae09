package sink

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ghalamif/PowerProbe/internal/domain"
)

// timestamp layouts accepted when reading captures back; the second matches
// files written by the original Python logger (isoformat without zone).
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

// LoadCSV reads a capture file. Columns are located by header name; empty,
// unparsable or non-finite measurements are loaded as missing. Rows are returned in file
// order and numbered by Seq.
func LoadCSV(path string) ([]domain.Sample, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadCSV(f)
}

func ReadCSV(r io.Reader) ([]domain.Sample, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("csv: missing header")
		}
		return nil, fmt.Errorf("csv header: %w", err)
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.TrimSpace(name)] = i
	}
	tsCol, ok := index["timestamp"]
	if !ok {
		return nil, fmt.Errorf("csv: no timestamp column")
	}
	fieldCols := make([]int, len(domain.Fields))
	for i, f := range domain.Fields {
		col, ok := index[f.Column()]
		if !ok {
			col = -1
		}
		fieldCols[i] = col
	}

	var out []domain.Sample
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, fmt.Errorf("csv line %d: %w", line, err)
		}
		if tsCol >= len(rec) {
			return nil, fmt.Errorf("csv line %d: missing timestamp", line)
		}
		ts, err := parseTimestamp(rec[tsCol])
		if err != nil {
			return nil, fmt.Errorf("csv line %d: %w", line, err)
		}

		s := domain.Sample{Seq: uint64(len(out) + 1), Timestamp: ts}
		for i, f := range domain.Fields {
			col := fieldCols[i]
			if col < 0 || col >= len(rec) {
				continue
			}
			v, err := strconv.ParseFloat(strings.TrimSpace(rec[col]), 64)
			if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
				continue
			}
			s.Set(f, v)
		}
		out = append(out, s)
	}
}

func parseTimestamp(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range timestampLayouts {
		if ts, err := time.ParseInLocation(layout, raw, time.Local); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparsable timestamp %q", raw)
}
