package sink

import (
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/ghalamif/PowerProbe/internal/domain"
)

func TestTimescaleSinkWriteBatch(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	sink := NewTimescaleSink(db, "power_samples")
	ts := time.Now()

	samples := []*domain.Sample{
		{
			SessionID:      "session-1",
			Seq:            1,
			Timestamp:      ts,
			CurrentMA:      domain.Float(50),
			ShuntVoltageMV: domain.Float(10),
			BusVoltageV:    domain.Float(5),
			LoadVoltageV:   domain.Float(4.8),
			PowerMW:        domain.Float(240),
		},
		{
			SessionID: "session-1",
			Seq:       2,
			Timestamp: ts,
			CurrentMA: domain.Float(60),
		},
	}

	expectedQuery := regexp.QuoteMeta("INSERT INTO power_samples (session_id, seq, ts, current_ma, shunt_voltage_mv, bus_voltage_v, load_voltage_v, power_mw) VALUES ($1,$2,$3,$4,$5,$6,$7,$8),($9,$10,$11,$12,$13,$14,$15,$16) ON CONFLICT (session_id, seq) DO NOTHING")
	mock.ExpectExec(expectedQuery).
		WithArgs(
			"session-1", int64(1), ts, 50.0, 10.0, 5.0, 4.8, 240.0,
			"session-1", int64(2), ts, 60.0, nil, nil, nil, nil,
		).
		WillReturnResult(sqlmock.NewResult(2, 2))

	if err := sink.WriteBatch(samples); err != nil {
		t.Fatalf("write batch: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestTimescaleSinkWriteBatchNoSamples(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	sink := NewTimescaleSink(db, "power_samples")
	if err := sink.WriteBatch(nil); err != nil {
		t.Fatalf("expected nil error for empty batch, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestTimescaleSinkCreateTable(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS power_samples")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := NewTimescaleSink(db, "power_samples").CreateTable(); err != nil {
		t.Fatalf("create table: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestTimescaleSinkName(t *testing.T) {
	db, _, _ := sqlmock.New()
	defer db.Close()

	sink := NewTimescaleSink(db, "power_samples")
	if sink.Name() != "timescaledb" {
		t.Fatalf("expected sink name timescaledb, got %s", sink.Name())
	}
}
