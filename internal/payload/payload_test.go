package payload

import (
	"encoding/json"
	"testing"

	"github.com/sensordeck/sensordeck/internal/reading"
)

func decode(t *testing.T, raw string) map[string]any {
	t.Helper()
	var doc map[string]any
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		t.Fatalf("bad test payload: %v", err)
	}
	return doc
}

func TestFlattenWellFormedDocument(t *testing.T) {
	doc := decode(t, `{
		"BME68x": {"TemperatureC": 21.5, "Humidity": 45.2, "Pressure": 1013.2, "Gas Resistance": 120000},
		"VEML7700": {"Lux": 320.5},
		"System Info": {"SSID": "workshop", "RSSI": -61}
	}`)
	fields := DefaultSchema().Flatten(doc)

	want := map[string]float64{
		"bme68x_temperature":    21.5,
		"bme68x_humidity":       45.2,
		"bme68x_pressure":       1013.2,
		"bme68x_gas_resistance": 120000,
		"veml7700_lux":          320.5,
		"system_rssi":           -61,
	}
	for name, v := range want {
		if got, ok := fields.Float(name); !ok || got != v {
			t.Errorf("%s = %v, want %v", name, fields[name], v)
		}
	}
	if fields["system_ssid"] != "workshop" {
		t.Errorf("system_ssid = %v, want workshop", fields["system_ssid"])
	}
}

func TestMalformedValueSkipsOnlyThatField(t *testing.T) {
	doc := decode(t, `{
		"BME68x": {"Humidity": "not-a-number", "TemperatureC": 20.0},
		"VEML7700": {"Lux": 100}
	}`)
	fields := DefaultSchema().Flatten(doc)

	if !reading.IsFallback(fields["bme68x_humidity"]) {
		t.Errorf("bme68x_humidity = %v, want fallback", fields["bme68x_humidity"])
	}
	if v, _ := fields.Float("bme68x_temperature"); v != 20.0 {
		t.Errorf("bme68x_temperature = %v, want 20", fields["bme68x_temperature"])
	}
	if v, _ := fields.Float("veml7700_lux"); v != 100 {
		t.Errorf("veml7700_lux = %v, want 100", fields["veml7700_lux"])
	}
}

func TestMissingGroupYieldsFallbacks(t *testing.T) {
	fields := DefaultSchema().Flatten(decode(t, `{"VEML7700": {"Lux": 5}}`))
	for _, name := range []string{"bme68x_temperature", "mmc5983_x", "max17048_voltage"} {
		if !reading.IsFallback(fields[name]) {
			t.Errorf("%s = %v, want fallback for a missing group", name, fields[name])
		}
	}
}

func TestUnknownGroupsAndFieldsIgnored(t *testing.T) {
	fields := DefaultSchema().Flatten(decode(t, `{
		"Mystery": {"Value": 1},
		"VEML7700": {"Lux": 5, "Extra": 9}
	}`))
	if _, ok := fields["mystery_value"]; ok {
		t.Error("unknown group leaked into the output")
	}
	if _, ok := fields["veml7700_extra"]; ok {
		t.Error("unknown field leaked into the output")
	}
	if v, _ := fields.Float("veml7700_lux"); v != 5 {
		t.Errorf("veml7700_lux = %v, want 5", fields["veml7700_lux"])
	}
}

func TestGroupThatIsNotAnObject(t *testing.T) {
	fields := DefaultSchema().Flatten(decode(t, `{"BME68x": 42}`))
	if !reading.IsFallback(fields["bme68x_temperature"]) {
		t.Errorf("bme68x_temperature = %v, want fallback", fields["bme68x_temperature"])
	}
}

func TestStringFieldRejectsNumbers(t *testing.T) {
	fields := DefaultSchema().Flatten(decode(t, `{"System Info": {"SSID": 7}}`))
	if !reading.IsFallback(fields["system_ssid"]) {
		t.Errorf("system_ssid = %v, want fallback for a non-string SSID", fields["system_ssid"])
	}
}

func TestFieldNamesCoverSchema(t *testing.T) {
	s := DefaultSchema()
	names := s.FieldNames()
	total := 0
	for _, g := range s {
		total += len(g.Fields)
	}
	if len(names) != total {
		t.Errorf("FieldNames returned %d names, want %d", len(names), total)
	}
}
