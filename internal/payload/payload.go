// Package payload maps arbitrary nested key/value documents, delivered
// out-of-band by a message transport, into the flat reading shape that
// hardware plugins produce. Field names follow the <group>_<field>
// convention; unknown groups and fields are ignored, malformed values
// degrade to the fallback sentinel for that field only.
package payload

import (
	"encoding/json"

	"github.com/sensordeck/sensordeck/internal/reading"
)

// Field maps one payload key inside a group to an output field name.
type Field struct {
	Key    string // key inside the group object, e.g. "Gas Resistance"
	Name   string // flattened field name, e.g. "bme68x_gas_resistance"
	String bool   // value is kept as a string instead of parsed as a number
}

// Group maps one top-level payload key to a set of fields.
type Group struct {
	Key    string // top-level document key, e.g. "BME68x"
	Fields []Field
}

// Schema describes every group/field pair an adapter understands.
type Schema []Group

// FieldNames lists every output field name the schema can produce.
func (s Schema) FieldNames() []string {
	var names []string
	for _, g := range s {
		for _, f := range g.Fields {
			names = append(names, f.Name)
		}
	}
	return names
}

// Flatten maps a nested document into reading fields. A missing group
// yields the fallback sentinel for all of its fields; a malformed or
// non-numeric value yields the fallback for that field without
// aborting the rest of the document.
func (s Schema) Flatten(doc map[string]any) reading.Fields {
	out := make(reading.Fields)
	for _, g := range s {
		group, _ := doc[g.Key].(map[string]any)
		for _, f := range g.Fields {
			out[f.Name] = reading.Fallback
			if group == nil {
				continue
			}
			raw, ok := group[f.Key]
			if !ok {
				continue
			}
			if f.String {
				if str, ok := raw.(string); ok {
					out[f.Name] = str
				}
				continue
			}
			if num, ok := asFloat(raw); ok {
				out[f.Name] = num
			}
		}
	}
	return out
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

// DefaultSchema covers the sensor groups carried by the standard feed.
func DefaultSchema() Schema {
	return Schema{
		{Key: "BME68x", Fields: []Field{
			{Key: "TemperatureC", Name: "bme68x_temperature"},
			{Key: "Humidity", Name: "bme68x_humidity"},
			{Key: "Pressure", Name: "bme68x_pressure"},
			{Key: "Gas Resistance", Name: "bme68x_gas_resistance"},
		}},
		{Key: "VEML7700", Fields: []Field{
			{Key: "Lux", Name: "veml7700_lux"},
		}},
		{Key: "TMP117", Fields: []Field{
			{Key: "Temperature (C)", Name: "tmp117_temperature"},
		}},
		{Key: "MAX17048", Fields: []Field{
			{Key: "Voltage (V)", Name: "max17048_voltage"},
			{Key: "State Of Charge (%)", Name: "max17048_soc"},
		}},
		{Key: "System Info", Fields: []Field{
			{Key: "SSID", Name: "system_ssid", String: true},
			{Key: "RSSI", Name: "system_rssi"},
		}},
		{Key: "STHS34PF80", Fields: []Field{
			{Key: "Presence (cm^-1)", Name: "sths34pf80_presence"},
			{Key: "Motion (LSB)", Name: "sths34pf80_motion"},
			{Key: "Temperature (C)", Name: "sths34pf80_temperature"},
		}},
		{Key: "MMC5983", Fields: []Field{
			{Key: "X Field (Gauss)", Name: "mmc5983_x"},
			{Key: "Y Field (Gauss)", Name: "mmc5983_y"},
			{Key: "Z Field (Gauss)", Name: "mmc5983_z"},
			{Key: "Temperature (C)", Name: "mmc5983_temperature"},
		}},
	}
}
