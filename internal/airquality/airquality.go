// Package airquality converts raw gas-resistance and humidity readings
// into a bounded 0-100 score, calibrated against a baseline learned
// during a warm-up (burn-in) window and persisted to a small cache so
// restarts can resume scoring immediately.
package airquality

import (
	"time"

	"github.com/sensordeck/sensordeck/internal/stats"
)

// Defaults for the burn-in calibration.
const (
	DefaultBurnIn     = 300 * time.Second
	DefaultWindowSize = 50
	DefaultMinSamples = 2
)

// Scoring constants. 40% relative humidity is treated as ideal; the
// coefficients are preserved for compatibility with the reference
// calibration, not derived from first principles.
const (
	humIdeal  = 40.0
	humSlope  = 2.5
	gasWeight = 75.0
	humWeight = 25.0
)

// Config tunes the calibrator. Zero values take the package defaults.
type Config struct {
	BurnIn     time.Duration
	WindowSize int
	MinSamples int
}

func (c Config) withDefaults() Config {
	if c.BurnIn <= 0 {
		c.BurnIn = DefaultBurnIn
	}
	if c.WindowSize <= 0 {
		c.WindowSize = DefaultWindowSize
	}
	if c.MinSamples <= 0 {
		c.MinSamples = DefaultMinSamples
	}
	return c
}

// Result is the outcome of processing one gas/humidity sample.
type Result struct {
	// Scored is false while burn-in is still in progress.
	Scored bool
	// Score is the 0-100 air quality score, valid when Scored.
	Score float64
	// Baseline is the current gas-resistance baseline, valid when Scored.
	Baseline float64
	// BurnInRemaining is the time left in the warm-up window, valid
	// when not Scored. Never negative.
	BurnInRemaining time.Duration
	// CompletedNow is true exactly once, on the sample that finished
	// burn-in. The caller persists the baseline on that transition.
	CompletedNow bool
}

// Calibrator learns a gas-resistance baseline over the burn-in window
// and keeps it sliding over the latest samples afterwards. It is owned
// by a single plugin and is not safe for concurrent use.
type Calibrator struct {
	cfg      Config
	window   *stats.Window
	started  time.Time
	complete bool
	adopted  float64 // baseline loaded from cache, used until the window refills
	now      func() time.Time
}

// NewCalibrator creates a calibrator; burn-in starts at the first call
// to Start.
func NewCalibrator(cfg Config) *Calibrator {
	cfg = cfg.withDefaults()
	return &Calibrator{
		cfg:    cfg,
		window: stats.NewWindow(cfg.WindowSize),
		now:    time.Now,
	}
}

// Start begins (or restarts) the burn-in clock. Called when the sensor
// hardware is (re)initialized. A calibrator that already adopted a
// cached baseline stays complete.
func (c *Calibrator) Start() {
	c.started = c.now()
	if !c.complete {
		c.window.Reset()
	}
}

// Complete reports whether burn-in has finished.
func (c *Calibrator) Complete() bool { return c.complete }

// Baseline snapshots the current baseline for persistence.
func (c *Calibrator) Baseline() stats.Baseline {
	vals := c.window.Values()
	center := c.center()
	return stats.Baseline{
		Center:      center,
		Dispersion:  stats.MAD(vals, stats.Median(vals)) * stats.MADScale,
		SampleCount: c.window.Len(),
	}
}

// Adopt installs a cached baseline, skipping burn-in entirely. Scoring
// resumes immediately; the baseline starts sliding again once enough
// fresh samples accumulate.
func (c *Calibrator) Adopt(b stats.Baseline) {
	c.adopted = b.Center
	c.complete = true
}

func (c *Calibrator) center() float64 {
	if c.window.Len() >= c.cfg.MinSamples {
		return c.window.Mean()
	}
	return c.adopted
}

// Process feeds one gas-resistance/humidity sample through the
// calibrator and, once burn-in is complete, through the scorer.
func (c *Calibrator) Process(gasResistance, humidity float64) Result {
	c.window.Push(gasResistance)

	if !c.complete {
		elapsed := c.now().Sub(c.started)
		if elapsed < c.cfg.BurnIn || c.window.Len() < c.cfg.MinSamples {
			remaining := c.cfg.BurnIn - elapsed
			if remaining < 0 {
				remaining = 0
			}
			return Result{BurnInRemaining: remaining}
		}
		c.complete = true
		return c.scored(gasResistance, humidity, true)
	}
	return c.scored(gasResistance, humidity, false)
}

func (c *Calibrator) scored(gas, humidity float64, completedNow bool) Result {
	center := c.center()
	return Result{
		Scored:       true,
		Score:        Score(gas, humidity, center),
		Baseline:     center,
		CompletedNow: completedNow,
	}
}

// Score computes the 0-100 air quality score for the given gas
// resistance and relative humidity against a baseline gas resistance.
// Higher is better.
func Score(gasResistance, humidity, baseline float64) float64 {
	gasScore := 0.0
	if baseline > 0 {
		gasScore = clamp(gasResistance/baseline, 0, 1) * gasWeight
	}
	humOffset := humidity - humIdeal
	if humOffset < 0 {
		humOffset = -humOffset
	}
	humScore := clamp((100-humOffset*humSlope)/100, 0, 1) * humWeight
	return clamp(gasScore+humScore, 0, 100)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
