package sensors

import (
	"fmt"
	"log"

	"github.com/sensordeck/sensordeck/internal/airquality"
	"github.com/sensordeck/sensordeck/internal/reading"
)

// BME680Sample is one measurement from the gas/humidity sensor.
type BME680Sample struct {
	Temperature   float64 // degC
	Humidity      float64 // %RH
	Pressure      float64 // hPa
	GasResistance float64 // Ohm
	HeatStable    bool
}

// BME680Device is the opaque accessor over the vendor bus driver for
// the BME680. The compensation math lives in the vendor driver; this
// package only consumes finished physical values.
type BME680Device interface {
	Open() error
	Sample() (BME680Sample, error)
	Close() error
}

// BME680 layers the burn-in calibrator and air quality scorer over the
// raw gas/humidity readings. Burn-in continuity is why this sensor
// requires continuous sampling.
type BME680 struct {
	dev   BME680Device
	aq    *airquality.Calibrator
	cache *airquality.Cache
}

// NewBME680 wraps dev. cache may be nil to disable persistence.
func NewBME680(dev BME680Device, cfg airquality.Config, cache *airquality.Cache) *BME680 {
	return &BME680{
		dev:   dev,
		aq:    airquality.NewCalibrator(cfg),
		cache: cache,
	}
}

func (b *BME680) Name() string { return "BME680" }

func (b *BME680) Fields() []string {
	return []string{"temperature", "humidity", "pressure", "gas_resistance", "air_quality"}
}

func (b *BME680) ContinuousSampling() bool { return true }

func (b *BME680) Init() error {
	if err := b.dev.Open(); err != nil {
		return err
	}
	if b.cache != nil {
		if baseline, ok := b.cache.Load(); ok {
			b.aq.Adopt(baseline)
			log.Printf("BME680: resumed baseline %.0f from cache, skipping burn-in", baseline.Center)
		}
	}
	b.aq.Start()
	return nil
}

func (b *BME680) Read() (reading.Fields, error) {
	sample, err := b.dev.Sample()
	if err != nil {
		return nil, fmt.Errorf("bme680 sample: %w", err)
	}

	fields := reading.Fields{
		"temperature":    sample.Temperature,
		"humidity":       sample.Humidity,
		"pressure":       sample.Pressure,
		"gas_resistance": sample.GasResistance,
		"air_quality":    reading.Fallback,
	}
	if !sample.HeatStable {
		return fields, nil
	}

	res := b.aq.Process(sample.GasResistance, sample.Humidity)
	if !res.Scored {
		fields["burn_in_remaining"] = int(res.BurnInRemaining.Seconds())
		return fields, nil
	}
	fields["air_quality"] = res.Score
	if res.CompletedNow && b.cache != nil {
		if err := b.cache.Save(b.aq.Baseline()); err != nil {
			log.Printf("BME680: baseline cache save failed: %v", err)
		}
	}
	return fields, nil
}

func (b *BME680) Close() error {
	return b.dev.Close()
}
