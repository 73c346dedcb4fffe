package sensors

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"

	"github.com/sensordeck/sensordeck/internal/airquality"
	"github.com/sensordeck/sensordeck/internal/magnet"
	"github.com/sensordeck/sensordeck/internal/payload"
	"github.com/sensordeck/sensordeck/internal/reading"
)

// Virtual is the network-delivered sensor. An external transport hands
// it raw documents via Submit; it flattens them with the payload schema
// and layers the same air quality and magnet anomaly processing that
// the hardware plugins apply, so downstream consumers cannot tell the
// difference. Payload arrival is asynchronous, so this sensor always
// requires background updates.
type Virtual struct {
	schema payload.Schema
	aq     *airquality.Calibrator
	cache  *airquality.Cache
	det    *magnet.Detector

	mu     sync.Mutex
	groups map[string]any
}

// NewVirtual builds the virtual sensor. cache may be nil to disable
// baseline persistence.
func NewVirtual(schema payload.Schema, aqCfg airquality.Config, cache *airquality.Cache, magCfg magnet.Config) (*Virtual, error) {
	det, err := magnet.NewDetector(magCfg)
	if err != nil {
		return nil, err
	}
	if schema == nil {
		schema = payload.DefaultSchema()
	}
	return &Virtual{
		schema: schema,
		aq:     airquality.NewCalibrator(aqCfg),
		cache:  cache,
		det:    det,
		groups: make(map[string]any),
	}, nil
}

func (v *Virtual) Name() string { return "Virtual" }

func (v *Virtual) Fields() []string {
	return append(v.schema.FieldNames(),
		"air_quality",
		"person_detected",
		"mag_magnitude", "magnet_detected", "mag_baseline", "mag_zscore",
	)
}

func (v *Virtual) ContinuousSampling() bool { return true }

func (v *Virtual) Init() error {
	if v.cache != nil {
		if baseline, ok := v.cache.Load(); ok {
			v.aq.Adopt(baseline)
			log.Printf("Virtual: resumed baseline %.0f from cache, skipping burn-in", baseline.Center)
		}
	}
	v.aq.Start()
	return nil
}

// Submit is the delivery callback handed to the transport. Groups
// present in doc replace the previously kept ones; absent groups keep
// their prior values so partial documents leave earlier data served
// stale rather than dropped. The swap is atomic with respect to Read.
func (v *Virtual) Submit(doc map[string]any) {
	if doc == nil {
		return
	}
	v.mu.Lock()
	for k, g := range doc {
		v.groups[k] = g
	}
	v.mu.Unlock()
}

// SubmitJSON decodes a raw payload and submits it. A document that is
// not valid JSON is dropped whole; malformed fields inside a valid
// document are handled per field during flattening.
func (v *Virtual) SubmitJSON(raw []byte) error {
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("virtual payload: %w", err)
	}
	v.Submit(doc)
	return nil
}

func (v *Virtual) Read() (reading.Fields, error) {
	v.mu.Lock()
	doc := make(map[string]any, len(v.groups))
	for k, g := range v.groups {
		doc[k] = g
	}
	v.mu.Unlock()

	fields := v.schema.Flatten(doc)
	v.scoreAirQuality(fields)
	v.detectPerson(fields)
	v.detectMagnet(fields)
	return fields, nil
}

func (v *Virtual) scoreAirQuality(fields reading.Fields) {
	fields["air_quality"] = reading.Fallback
	gas, gok := fields.Float("bme68x_gas_resistance")
	hum, hok := fields.Float("bme68x_humidity")
	if !gok || !hok {
		return
	}
	res := v.aq.Process(gas, hum)
	if !res.Scored {
		fields["burn_in_remaining"] = int(res.BurnInRemaining.Seconds())
		return
	}
	fields["air_quality"] = res.Score
	if res.CompletedNow && v.cache != nil {
		if err := v.cache.Save(v.aq.Baseline()); err != nil {
			log.Printf("Virtual: baseline cache save failed: %v", err)
		}
	}
}

func (v *Virtual) detectPerson(fields reading.Fields) {
	fields["person_detected"] = reading.Fallback
	presence, pok := fields.Float("sths34pf80_presence")
	motion, mok := fields.Float("sths34pf80_motion")
	switch {
	case pok && mok:
		fields["person_detected"] = presence >= DefaultPresenceThreshold || motion > 0
	case pok:
		fields["person_detected"] = presence >= DefaultPresenceThreshold
	case mok:
		fields["person_detected"] = motion > 0
	}
}

func (v *Virtual) detectMagnet(fields reading.Fields) {
	fields["mag_magnitude"] = reading.Fallback
	fields["magnet_detected"] = reading.Fallback
	fields["mag_baseline"] = reading.Fallback
	fields["mag_zscore"] = reading.Fallback

	x, xok := fields.Float("mmc5983_x")
	y, yok := fields.Float("mmc5983_y")
	z, zok := fields.Float("mmc5983_z")
	if !xok || !yok || !zok {
		return
	}
	magnitude := magnet.Magnitude(x, y, z)
	res := v.det.Process(magnitude)
	fields["mag_magnitude"] = magnitude
	fields["mag_baseline"] = res.Baseline
	if res.Ready {
		fields["magnet_detected"] = res.Triggered
		fields["mag_zscore"] = res.ZScore
	}
}

func (v *Virtual) Close() error { return nil }
