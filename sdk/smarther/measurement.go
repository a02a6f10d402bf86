package smarther

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

// MeasurementUnit is the unit tag carried by measurements.
type MeasurementUnit string

const (
	UnitCelsius    MeasurementUnit = "C"
	UnitFahrenheit MeasurementUnit = "F"
	UnitPercent    MeasurementUnit = "%"
)

// Measurement is a unit-tagged value as the device API reports it, for
// example {"unit":"C","value":25.0}. The API occasionally string-encodes the
// value ("25.0"); decoding accepts both forms and encoding always emits a
// number.
type Measurement struct {
	Unit  MeasurementUnit
	Value float64
}

// Celsius builds a Celsius measurement.
func Celsius(value float64) Measurement {
	return Measurement{Unit: UnitCelsius, Value: value}
}

// Fahrenheit builds a Fahrenheit measurement.
func Fahrenheit(value float64) Measurement {
	return Measurement{Unit: UnitFahrenheit, Value: value}
}

// Percent builds a relative humidity measurement.
func Percent(value float64) Measurement {
	return Measurement{Unit: UnitPercent, Value: value}
}

type measurementJSON struct {
	Unit  MeasurementUnit `json:"unit"`
	Value float64         `json:"value"`
}

// MarshalJSON encodes the measurement with a numeric value.
func (m Measurement) MarshalJSON() ([]byte, error) {
	return json.Marshal(measurementJSON{Unit: m.Unit, Value: m.Value})
}

// UnmarshalJSON decodes a measurement, accepting string-encoded values.
func (m *Measurement) UnmarshalJSON(data []byte) error {
	root := gjson.ParseBytes(data)
	unit, err := parseUnit(root.Get("unit"))
	if err != nil {
		return err
	}
	value, err := parseValue(root.Get("value"))
	if err != nil {
		return err
	}
	m.Unit = unit
	m.Value = value
	return nil
}

// TimedMeasurement is a measurement with the sampling timestamp flattened
// into the same object: {"unit":"C","value":25.0,"timeStamp":"..."}.
type TimedMeasurement struct {
	TimeStamp time.Time
	Measurement
}

type timedMeasurementJSON struct {
	Unit      MeasurementUnit `json:"unit"`
	Value     float64         `json:"value"`
	TimeStamp time.Time       `json:"timeStamp"`
}

// MarshalJSON flattens the measurement fields next to the timestamp.
func (t TimedMeasurement) MarshalJSON() ([]byte, error) {
	return json.Marshal(timedMeasurementJSON{Unit: t.Unit, Value: t.Value, TimeStamp: t.TimeStamp})
}

// UnmarshalJSON decodes the flattened form, accepting string-encoded values.
func (t *TimedMeasurement) UnmarshalJSON(data []byte) error {
	root := gjson.ParseBytes(data)
	unit, err := parseUnit(root.Get("unit"))
	if err != nil {
		return err
	}
	value, err := parseValue(root.Get("value"))
	if err != nil {
		return err
	}
	stamp, err := time.Parse(time.RFC3339, root.Get("timeStamp").String())
	if err != nil {
		return fmt.Errorf("parse measurement timestamp: %w", err)
	}
	t.Unit = unit
	t.Value = value
	t.TimeStamp = stamp
	return nil
}

func parseUnit(result gjson.Result) (MeasurementUnit, error) {
	switch MeasurementUnit(result.String()) {
	case UnitCelsius:
		return UnitCelsius, nil
	case UnitFahrenheit:
		return UnitFahrenheit, nil
	case UnitPercent:
		return UnitPercent, nil
	default:
		return "", fmt.Errorf("unrecognized measurement unit %q", result.String())
	}
}

func parseValue(result gjson.Result) (float64, error) {
	switch result.Type {
	case gjson.Number:
		return result.Float(), nil
	case gjson.String:
		value, err := strconv.ParseFloat(strings.TrimSpace(result.String()), 64)
		if err != nil {
			return 0, fmt.Errorf("parse measurement value %q: %w", result.String(), err)
		}
		return value, nil
	default:
		return 0, fmt.Errorf("measurement value missing or not numeric")
	}
}

// ProgramIdentifier selects a stored schedule by number. The API reports the
// number both as JSON number and as a string.
type ProgramIdentifier struct {
	Number int
}

type programIdentifierJSON struct {
	Number int `json:"number"`
}

// MarshalJSON encodes the program number as a JSON number.
func (p ProgramIdentifier) MarshalJSON() ([]byte, error) {
	return json.Marshal(programIdentifierJSON{Number: p.Number})
}

// UnmarshalJSON decodes the program number from either encoding.
func (p *ProgramIdentifier) UnmarshalJSON(data []byte) error {
	result := gjson.GetBytes(data, "number")
	switch result.Type {
	case gjson.Number:
		p.Number = int(result.Int())
		return nil
	case gjson.String:
		number, err := strconv.Atoi(strings.TrimSpace(result.String()))
		if err != nil {
			return fmt.Errorf("parse program number %q: %w", result.String(), err)
		}
		p.Number = number
		return nil
	default:
		return fmt.Errorf("program number missing")
	}
}
