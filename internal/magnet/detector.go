// Package magnet implements a robust magnetic-anomaly detector. It
// keeps a median/MAD baseline of the 3-D field magnitude, flags
// deviations with an asymmetric Schmitt trigger, and only feeds clean
// (non-anomalous) samples back into the baseline so an anomaly can
// never bias its own reference.
package magnet

import (
	"fmt"
	"math"
	"time"

	"github.com/sensordeck/sensordeck/internal/stats"
)

// Defaults, chosen so the detector works whether the baseline was
// established near a magnet or far from one.
const (
	DefaultWindowSize   = 50
	DefaultMinSamples   = 5
	DefaultTriggerSigma = 5.0
	DefaultReleaseSigma = 3.0

	// minSigma floors the MAD-derived sigma so near-constant readings
	// do not divide by zero.
	minSigma = 0.005
)

// Config tunes the detector. Zero values take the package defaults.
type Config struct {
	WindowSize   int
	MinSamples   int
	TriggerSigma float64
	ReleaseSigma float64
}

func (c Config) withDefaults() Config {
	if c.WindowSize <= 0 {
		c.WindowSize = DefaultWindowSize
	}
	if c.MinSamples <= 0 {
		c.MinSamples = DefaultMinSamples
	}
	if c.TriggerSigma == 0 {
		c.TriggerSigma = DefaultTriggerSigma
	}
	if c.ReleaseSigma == 0 {
		c.ReleaseSigma = DefaultReleaseSigma
	}
	return c
}

// State is a snapshot of the detector after the latest sample.
type State struct {
	Baseline       stats.Baseline
	LastMagnitude  float64
	LastZScore     float64
	Triggered      bool
	TransitionedAt time.Time
}

// Result is the outcome of processing one magnitude sample.
type Result struct {
	// Ready is false until the baseline holds the minimum sample count.
	Ready bool
	// Triggered reports whether an anomaly is currently flagged.
	Triggered bool
	// Baseline is the median of the clean history.
	Baseline float64
	// ZScore is the robust z-score of this sample.
	ZScore float64
}

// Detector holds the clean-sample baseline and the hysteresis state.
// It is owned by a single plugin and is not safe for concurrent use.
type Detector struct {
	cfg    Config
	window *stats.Window
	state  State
	now    func() time.Time
}

// NewDetector validates cfg and creates a detector. The release
// threshold must sit strictly below the trigger threshold; anything
// else is a programmer error and fails construction.
func NewDetector(cfg Config) (*Detector, error) {
	cfg = cfg.withDefaults()
	if cfg.ReleaseSigma >= cfg.TriggerSigma {
		return nil, fmt.Errorf("magnet: release sigma %.2f must be below trigger sigma %.2f",
			cfg.ReleaseSigma, cfg.TriggerSigma)
	}
	if cfg.TriggerSigma <= 0 || cfg.ReleaseSigma <= 0 {
		return nil, fmt.Errorf("magnet: sigma thresholds must be positive")
	}
	return &Detector{
		cfg:    cfg,
		window: stats.NewWindow(cfg.WindowSize),
		now:    time.Now,
	}, nil
}

// Magnitude returns the length of the 3-D field vector.
func Magnitude(x, y, z float64) float64 {
	return math.Sqrt(x*x + y*y + z*z)
}

// Process feeds one magnitude sample through the detector.
//
// Detection is bidirectional: the test is on absolute deviation, so
// both a magnet approaching and a magnet being removed register.
// Samples captured while triggered never enter the baseline window.
func (d *Detector) Process(magnitude float64) Result {
	d.state.LastMagnitude = magnitude

	// Calibration phase: accept everything, flag nothing.
	if d.window.Len() < d.cfg.MinSamples {
		d.window.Push(magnitude)
		d.state.Baseline = d.snapshot()
		d.state.LastZScore = 0
		return Result{Baseline: d.state.Baseline.Center}
	}

	vals := d.window.Values()
	center := stats.Median(vals)
	sigma := stats.MAD(vals, center) * stats.MADScale
	if sigma < minSigma {
		sigma = minSigma
	}
	z := math.Abs(magnitude-center) / sigma
	d.state.LastZScore = z

	if d.state.Triggered {
		if z < d.cfg.ReleaseSigma {
			d.state.Triggered = false
			d.state.TransitionedAt = d.now()
			d.window.Push(magnitude)
		}
	} else {
		if z > d.cfg.TriggerSigma {
			d.state.Triggered = true
			d.state.TransitionedAt = d.now()
		} else {
			d.window.Push(magnitude)
		}
	}

	d.state.Baseline = stats.Baseline{
		Center:      center,
		Dispersion:  sigma,
		SampleCount: d.window.Len(),
	}
	return Result{
		Ready:     true,
		Triggered: d.state.Triggered,
		Baseline:  center,
		ZScore:    z,
	}
}

func (d *Detector) snapshot() stats.Baseline {
	vals := d.window.Values()
	center := stats.Median(vals)
	return stats.Baseline{
		Center:      center,
		Dispersion:  stats.MAD(vals, center) * stats.MADScale,
		SampleCount: d.window.Len(),
	}
}

// State returns the detector snapshot after the latest sample.
func (d *Detector) State() State { return d.state }

// Reset clears all state and begins a fresh calibration phase.
func (d *Detector) Reset() {
	d.window.Reset()
	d.state = State{}
}
