package sensors

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/sensordeck/sensordeck/internal/airquality"
	"github.com/sensordeck/sensordeck/internal/reading"
)

type fakeBME680 struct {
	sample  BME680Sample
	openErr error
	readErr error
	opened  bool
	closed  bool
}

func (f *fakeBME680) Open() error { f.opened = true; return f.openErr }
func (f *fakeBME680) Close() error {
	f.closed = true
	return nil
}
func (f *fakeBME680) Sample() (BME680Sample, error) {
	return f.sample, f.readErr
}

func TestBME680InitFailurePropagates(t *testing.T) {
	dev := &fakeBME680{openErr: errors.New("no ack")}
	b := NewBME680(dev, airquality.Config{}, nil)
	if err := b.Init(); err == nil {
		t.Fatal("Init succeeded with a failing device")
	}
}

func TestBME680ReadDuringBurnIn(t *testing.T) {
	dev := &fakeBME680{sample: BME680Sample{
		Temperature: 21.0, Humidity: 50.0, Pressure: 1008.0,
		GasResistance: 95000, HeatStable: true,
	}}
	b := NewBME680(dev, airquality.Config{}, nil)
	if err := b.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	fields, err := b.Read()
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got, _ := fields.Float("gas_resistance"); got != 95000 {
		t.Errorf("gas_resistance = %v, want 95000", fields["gas_resistance"])
	}
	if !reading.IsFallback(fields["air_quality"]) {
		t.Errorf("air_quality = %v, want fallback during burn-in", fields["air_quality"])
	}
	if rem, ok := fields["burn_in_remaining"].(int); !ok || rem <= 0 {
		t.Errorf("burn_in_remaining = %v, want positive seconds", fields["burn_in_remaining"])
	}
}

func TestBME680HeaterNotStableSkipsScoring(t *testing.T) {
	dev := &fakeBME680{sample: BME680Sample{GasResistance: 95000, Humidity: 50, HeatStable: false}}
	b := NewBME680(dev, airquality.Config{BurnIn: time.Nanosecond, MinSamples: 1}, nil)
	if err := b.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	fields, err := b.Read()
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if !reading.IsFallback(fields["air_quality"]) {
		t.Errorf("air_quality = %v, want fallback while the heater settles", fields["air_quality"])
	}
	if _, ok := fields["burn_in_remaining"]; ok {
		t.Error("burn_in_remaining reported for an unstable-heater sample")
	}
}

func TestBME680ScoresAndPersistsAfterBurnIn(t *testing.T) {
	path := filepath.Join(t.TempDir(), "baseline.json")
	cache := airquality.NewCache(path, time.Hour, 1, false)
	dev := &fakeBME680{sample: BME680Sample{
		Humidity: 40.0, GasResistance: 1000, HeatStable: true,
	}}
	b := NewBME680(dev, airquality.Config{BurnIn: time.Nanosecond, MinSamples: 2}, cache)
	if err := b.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	b.Read()
	time.Sleep(time.Millisecond)
	fields, err := b.Read()
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	score, ok := fields.Float("air_quality")
	if !ok {
		t.Fatalf("air_quality = %v, want a score after burn-in", fields["air_quality"])
	}
	if score != 100 {
		t.Errorf("air_quality = %v, want 100", score)
	}
	if _, ok := cache.Load(); !ok {
		t.Error("baseline was not persisted on burn-in completion")
	}
}

func TestBME680ResumesFromCache(t *testing.T) {
	path := filepath.Join(t.TempDir(), "baseline.json")
	cache := airquality.NewCache(path, time.Hour, 1, false)

	first := &fakeBME680{sample: BME680Sample{Humidity: 40.0, GasResistance: 1000, HeatStable: true}}
	b := NewBME680(first, airquality.Config{BurnIn: time.Nanosecond, MinSamples: 2}, cache)
	if err := b.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	b.Read()
	time.Sleep(time.Millisecond)
	b.Read()

	// A restarted sensor adopts the persisted baseline and scores on
	// its very first sample.
	second := &fakeBME680{sample: BME680Sample{Humidity: 40.0, GasResistance: 1000, HeatStable: true}}
	b2 := NewBME680(second, airquality.Config{}, cache)
	if err := b2.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	fields, err := b2.Read()
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if _, ok := fields.Float("air_quality"); !ok {
		t.Errorf("air_quality = %v, want an immediate score after resume", fields["air_quality"])
	}
}

func TestBME680ReadErrorWrapped(t *testing.T) {
	dev := &fakeBME680{readErr: errors.New("bus timeout")}
	b := NewBME680(dev, airquality.Config{}, nil)
	if err := b.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if _, err := b.Read(); err == nil {
		t.Fatal("Read succeeded with a failing device")
	}
	if err := b.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !dev.closed {
		t.Error("Close did not reach the device")
	}
}
