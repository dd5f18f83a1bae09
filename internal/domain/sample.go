package domain

import "time"

// Field identifies one of the five measurements a power-monitor frame carries.
type Field uint8

const (
	FieldCurrent Field = iota
	FieldShuntVoltage
	FieldBusVoltage
	FieldLoadVoltage
	FieldPower
)

// NumFields is the number of measurements in a complete frame.
const NumFields = 5

// Fields lists every measurement in device transmission order.
var Fields = [NumFields]Field{
	FieldCurrent,
	FieldShuntVoltage,
	FieldBusVoltage,
	FieldLoadVoltage,
	FieldPower,
}

var fieldColumns = [NumFields]string{
	"current_mA",
	"shunt_voltage_mV",
	"bus_voltage_V",
	"load_voltage_V",
	"power_mW",
}

var fieldLabels = [NumFields]string{
	"Current (mA)",
	"Shunt Voltage (mV)",
	"Bus Voltage (V)",
	"Load Voltage (V)",
	"Power (mW)",
}

// Column returns the CSV/SQL column name of the field.
func (f Field) Column() string {
	if int(f) < NumFields {
		return fieldColumns[f]
	}
	return "unknown"
}

// Label returns a human readable axis label.
func (f Field) Label() string {
	if int(f) < NumFields {
		return fieldLabels[f]
	}
	return "Unknown"
}

func (f Field) String() string { return f.Column() }

// Sample is one reconstructed power-monitor reading. A nil measurement means
// the value was never observed; it is never replaced by zero.
type Sample struct {
	SessionID      string    `json:"session_id,omitempty"`
	Seq            uint64    `json:"seq"`
	Timestamp      time.Time `json:"ts"`
	CurrentMA      *float64  `json:"current_mA,omitempty"`
	ShuntVoltageMV *float64  `json:"shunt_voltage_mV,omitempty"`
	BusVoltageV    *float64  `json:"bus_voltage_V,omitempty"`
	LoadVoltageV   *float64  `json:"load_voltage_V,omitempty"`
	PowerMW        *float64  `json:"power_mW,omitempty"`
}

// Value returns the measurement for f and whether it is present.
func (s *Sample) Value(f Field) (float64, bool) {
	p := s.ref(f)
	if p == nil || *p == nil {
		return 0, false
	}
	return **p, true
}

// Set stores v for f.
func (s *Sample) Set(f Field, v float64) {
	if p := s.ref(f); p != nil {
		*p = Float(v)
	}
}

// Complete reports whether all five measurements are present.
func (s *Sample) Complete() bool {
	for _, f := range Fields {
		if _, ok := s.Value(f); !ok {
			return false
		}
	}
	return true
}

func (s *Sample) ref(f Field) **float64 {
	switch f {
	case FieldCurrent:
		return &s.CurrentMA
	case FieldShuntVoltage:
		return &s.ShuntVoltageMV
	case FieldBusVoltage:
		return &s.BusVoltageV
	case FieldLoadVoltage:
		return &s.LoadVoltageV
	case FieldPower:
		return &s.PowerMW
	}
	return nil
}

// Float returns a pointer to a copy of v.
func Float(v float64) *float64 { return &v }
