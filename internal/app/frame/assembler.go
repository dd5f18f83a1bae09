// Package frame rebuilds complete power samples from the tagged text lines a
// power monitor prints, one measurement per line.
package frame

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/ghalamif/PowerProbe/internal/domain"
	"github.com/ghalamif/PowerProbe/internal/ports"
)

// ErrFieldParse wraps every rejected measurement value.
var ErrFieldParse = errors.New("field parse failed")

// terminalField is always transmitted last; its arrival closes a frame.
const terminalField = domain.FieldPower

type fieldDef struct {
	field  domain.Field
	prefix string
	unit   string
}

// fieldTable maps line tags to measurements. Prefixes are matched
// case-sensitively and must not be prefixes of one another.
var fieldTable = [domain.NumFields]fieldDef{
	{field: domain.FieldCurrent, prefix: "Current:", unit: "mA"},
	{field: domain.FieldShuntVoltage, prefix: "Shunt Voltage:", unit: "mV"},
	{field: domain.FieldBusVoltage, prefix: "Bus Voltage:", unit: "V"},
	{field: domain.FieldLoadVoltage, prefix: "Load Voltage:", unit: "V"},
	{field: domain.FieldPower, prefix: "Power:", unit: "mW"},
}

func lookup(line string) (fieldDef, bool) {
	for _, def := range fieldTable {
		if strings.HasPrefix(line, def.prefix) {
			return def, true
		}
	}
	return fieldDef{}, false
}

func (s fieldDef) parse(line string) (float64, error) {
	raw := strings.TrimSpace(strings.TrimPrefix(line, s.prefix))
	raw = strings.TrimSpace(strings.TrimSuffix(raw, s.unit))
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s %q: %v", ErrFieldParse, s.field, raw, err)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: %s %q: not a finite number", ErrFieldParse, s.field, raw)
	}
	return v, nil
}

// buffer holds the single in-flight frame.
type buffer struct {
	values  [domain.NumFields]float64
	present [domain.NumFields]bool
	count   int
}

func (b *buffer) set(f domain.Field, v float64) {
	if !b.present[f] {
		b.present[f] = true
		b.count++
	}
	b.values[f] = v
}

func (b *buffer) complete() bool { return b.count == domain.NumFields }

func (b *buffer) reset() { *b = buffer{} }

// Stats counts what the assembler has seen since construction.
type Stats struct {
	Lines            uint64
	Ignored          uint64
	ParseFailures    uint64
	Emitted          uint64
	IncompleteFrames uint64
}

// Assembler turns lines into Samples. It is not safe for concurrent use; one
// assembler owns one stream.
type Assembler struct {
	diag    ports.Diagnostics
	now     func() time.Time
	session string
	seq     uint64
	buf     buffer
	stats   Stats
}

// Option customizes an Assembler.
type Option func(*Assembler)

// WithClock replaces time.Now as the source of sample timestamps.
func WithClock(now func() time.Time) Option {
	return func(a *Assembler) {
		if now != nil {
			a.now = now
		}
	}
}

// WithSessionID stamps every emitted sample with id.
func WithSessionID(id string) Option {
	return func(a *Assembler) { a.session = id }
}

func NewAssembler(diag ports.Diagnostics, opts ...Option) *Assembler {
	if diag == nil {
		diag = nopDiagnostics{}
	}
	a := &Assembler{diag: diag, now: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(a)
		}
	}
	return a
}

// Feed consumes one line and returns a Sample when the line completed a frame.
//
// Unknown lines are ignored. A value that fails to parse is reported to the
// diagnostics sink and leaves the frame untouched, including a bad terminal
// value. A valid terminal value always ends the frame: it is emitted when all
// five measurements are present and dropped otherwise.
func (a *Assembler) Feed(line string) (*domain.Sample, bool) {
	a.stats.Lines++

	line = strings.TrimSpace(line)
	def, ok := lookup(line)
	if !ok {
		a.stats.Ignored++
		return nil, false
	}

	v, err := def.parse(line)
	if err != nil {
		a.stats.ParseFailures++
		a.diag.IncCounter("powerprobe_field_parse_failures_total", 1)
		a.diag.LogWarn("field_parse_failed", err,
			ports.Field{Key: "field", Value: def.field.Column()},
			ports.Field{Key: "line", Value: line})
		return nil, false
	}

	a.buf.set(def.field, v)
	if def.field != terminalField {
		return nil, false
	}
	defer a.buf.reset()

	if !a.buf.complete() {
		a.stats.IncompleteFrames++
		a.diag.IncCounter("powerprobe_incomplete_frames_total", 1)
		return nil, false
	}

	a.seq++
	s := &domain.Sample{
		SessionID: a.session,
		Seq:       a.seq,
		Timestamp: a.now(),
	}
	for _, f := range domain.Fields {
		s.Set(f, a.buf.values[f])
	}
	a.stats.Emitted++
	a.diag.IncCounter("powerprobe_frames_emitted_total", 1)
	return s, true
}

// Pending returns how many measurements the in-flight frame holds.
func (a *Assembler) Pending() int { return a.buf.count }

func (a *Assembler) Stats() Stats { return a.stats }

type nopDiagnostics struct{}

func (nopDiagnostics) LogWarn(string, error, ...ports.Field) {}
func (nopDiagnostics) IncCounter(string, float64)            {}
