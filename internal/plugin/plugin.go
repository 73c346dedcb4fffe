package plugin

import (
	"log"
	"sync"
	"time"

	"github.com/sensordeck/sensordeck/internal/reading"
)

// Defaults for plugin scheduling.
const (
	DefaultCheckInterval  = 5 * time.Second
	DefaultSampleInterval = time.Second
	DefaultMaxStale       = 30 * time.Second
)

// Options tunes a plugin's scheduling behavior. Zero values take the
// package defaults.
type Options struct {
	// CheckInterval bounds how often hardware presence is re-probed.
	CheckInterval time.Duration
	// SampleInterval is the cadence of background sampling.
	SampleInterval time.Duration
	// MaxStale bounds how long a cached reading is served after the
	// last successful sample before fields degrade to fallback.
	MaxStale time.Duration
}

func (o Options) withDefaults() Options {
	if o.CheckInterval <= 0 {
		o.CheckInterval = DefaultCheckInterval
	}
	if o.SampleInterval <= 0 {
		o.SampleInterval = DefaultSampleInterval
	}
	if o.MaxStale <= 0 {
		o.MaxStale = DefaultMaxStale
	}
	return o
}

// Plugin wraps a Driver with the availability state machine and the
// shared reading slot. The background task is the sole writer of the
// slot; Read can be called from any goroutine and never blocks on I/O.
type Plugin struct {
	drv  Driver
	opts Options
	now  func() time.Time

	mu        sync.Mutex
	state     State
	lastCheck time.Time
	cached    reading.Reading
	hasCached bool
}

// New wraps drv as a runtime-managed plugin.
func New(drv Driver, opts Options) *Plugin {
	return &Plugin{
		drv:  drv,
		opts: opts.withDefaults(),
		now:  time.Now,
	}
}

// Name returns the driver's display name.
func (p *Plugin) Name() string { return p.drv.Name() }

// State returns the current lifecycle state.
func (p *Plugin) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// SampleInterval returns the configured background sampling cadence.
func (p *Plugin) SampleInterval() time.Duration { return p.opts.SampleInterval }

// RequiresBackgroundUpdates reports whether the sensor must keep being
// sampled even while the consuming display is idle.
func (p *Plugin) RequiresBackgroundUpdates() bool { return p.drv.ContinuousSampling() }

// CheckAvailability re-probes hardware presence, rate-limited by the
// check interval. Moving out of Unavailable re-runs driver Init.
func (p *Plugin) CheckAvailability() bool {
	p.mu.Lock()
	now := p.now()
	switch {
	case p.state == StateStopped:
		p.mu.Unlock()
		return false
	case p.state == StateAvailable:
		// Hardware failure while available is detected on the read
		// path, not by re-probing.
		p.mu.Unlock()
		return true
	case p.state != StateUninitialized && now.Sub(p.lastCheck) < p.opts.CheckInterval:
		p.mu.Unlock()
		return false
	}
	p.lastCheck = now
	p.state = StateInitializing
	p.mu.Unlock()

	err := p.drv.Init()

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state == StateStopped {
		return false
	}
	if err != nil {
		p.state = StateUnavailable
		return false
	}
	p.state = StateAvailable
	log.Printf("%s: hardware available", p.drv.Name())
	return true
}

// Sample performs one background probe: a raw read on success replaces
// the cached reading; a failure leaves the previous reading in place
// and flips the plugin to Unavailable immediately (fail-fast) without
// re-probing faster than the check interval.
func (p *Plugin) Sample() {
	if !p.CheckAvailability() {
		return
	}

	fields, err := p.drv.Read()
	now := p.now()

	if err != nil {
		log.Printf("%s: read failed: %v", p.drv.Name(), err)
		p.mu.Lock()
		if p.state == StateAvailable {
			p.state = StateUnavailable
		}
		p.mu.Unlock()
		p.drv.Close()
		return
	}

	p.mu.Lock()
	if p.state != StateStopped {
		p.cached = reading.Reading{CapturedAt: now, Fields: fields}
		p.hasCached = true
	}
	p.mu.Unlock()
}

// Read returns the most recent successfully cached reading. While the
// sensor is unavailable the previous reading keeps being served until
// it exceeds the staleness bound, at which point every field degrades
// to the fallback sentinel. Read never blocks on hardware I/O.
func (p *Plugin) Read() reading.Reading {
	p.mu.Lock()
	defer p.mu.Unlock()
	now := p.now()
	if p.hasCached && now.Sub(p.cached.CapturedAt) <= p.opts.MaxStale {
		return p.cached.Clone()
	}
	return reading.Unavailable(now, p.drv.Fields()...)
}

// Stop moves the plugin to its terminal state and releases the device.
func (p *Plugin) Stop() {
	p.mu.Lock()
	already := p.state == StateStopped
	p.state = StateStopped
	p.mu.Unlock()
	if !already {
		p.drv.Close()
	}
}
