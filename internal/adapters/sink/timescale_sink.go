package sink

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/ghalamif/PowerProbe/internal/domain"
	"github.com/ghalamif/PowerProbe/internal/ports"
)

const sampleColumns = 8

// TimescaleSink inserts samples into a hypertable keyed by (session_id, seq).
type TimescaleSink struct {
	db        *sql.DB
	tableName string
}

func NewTimescaleSink(db *sql.DB, table string) *TimescaleSink {
	return &TimescaleSink{db: db, tableName: table}
}

func (t *TimescaleSink) Name() string { return "timescaledb" }

// CreateTable creates the target table when it does not exist yet.
func (t *TimescaleSink) CreateTable() error {
	_, err := t.db.Exec("CREATE TABLE IF NOT EXISTS " + t.tableName + ` (
	session_id TEXT NOT NULL,
	seq BIGINT NOT NULL,
	ts TIMESTAMPTZ NOT NULL,
	current_ma DOUBLE PRECISION,
	shunt_voltage_mv DOUBLE PRECISION,
	bus_voltage_v DOUBLE PRECISION,
	load_voltage_v DOUBLE PRECISION,
	power_mw DOUBLE PRECISION,
	PRIMARY KEY (session_id, seq)
)`)
	return err
}

func (t *TimescaleSink) WriteBatch(samples []*domain.Sample) error {
	if len(samples) == 0 {
		return nil
	}

	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(t.tableName)
	b.WriteString(" (session_id, seq, ts, current_ma, shunt_voltage_mv, bus_voltage_v, load_voltage_v, power_mw) VALUES ")

	args := make([]any, 0, len(samples)*sampleColumns)
	for i, s := range samples {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString("(")
		for c := 1; c <= sampleColumns; c++ {
			if c > 1 {
				b.WriteString(",")
			}
			fmt.Fprintf(&b, "$%d", len(args)+c)
		}
		b.WriteString(")")

		// nil measurements become SQL NULL
		args = append(args,
			s.SessionID,
			int64(s.Seq),
			s.Timestamp,
			s.CurrentMA,
			s.ShuntVoltageMV,
			s.BusVoltageV,
			s.LoadVoltageV,
			s.PowerMW,
		)
	}

	b.WriteString(" ON CONFLICT (session_id, seq) DO NOTHING")

	_, err := t.db.Exec(b.String(), args...)
	return err
}

var _ ports.Sink = (*TimescaleSink)(nil)
