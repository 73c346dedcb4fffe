package plugin

import (
	"log"
	"sync"
	"time"

	"github.com/sensordeck/sensordeck/internal/reading"
)

// Runtime drives one independent background sampling task per plugin.
// Tasks run in parallel with each other and with any consumer's read
// loop; there is no shared scheduler.
type Runtime struct {
	plugins []*Plugin

	mu   sync.Mutex
	idle bool

	stop chan struct{}
	once sync.Once
	wg   sync.WaitGroup
}

// NewRuntime creates a runtime for the given plugins.
func NewRuntime(plugins ...*Plugin) *Runtime {
	return &Runtime{
		plugins: plugins,
		stop:    make(chan struct{}),
	}
}

// Plugins returns the managed plugins.
func (rt *Runtime) Plugins() []*Plugin { return rt.plugins }

// Start launches the per-plugin sampling goroutines.
func (rt *Runtime) Start() {
	for _, p := range rt.plugins {
		rt.wg.Add(1)
		go rt.run(p)
	}
	log.Printf("runtime: sampling %d plugins", len(rt.plugins))
}

func (rt *Runtime) run(p *Plugin) {
	defer rt.wg.Done()

	// Prime the cache before the first tick.
	if !rt.paused(p) {
		p.Sample()
	}

	ticker := time.NewTicker(p.SampleInterval())
	defer ticker.Stop()

	for {
		select {
		case <-rt.stop:
			return
		case <-ticker.C:
			if rt.paused(p) {
				continue
			}
			p.Sample()
		}
	}
}

func (rt *Runtime) paused(p *Plugin) bool {
	rt.mu.Lock()
	idle := rt.idle
	rt.mu.Unlock()
	return idle && !p.RequiresBackgroundUpdates()
}

// SetIdle marks the consuming display as blanked. While idle, only
// plugins that require background updates keep sampling.
func (rt *Runtime) SetIdle(idle bool) {
	rt.mu.Lock()
	rt.idle = idle
	rt.mu.Unlock()
}

// Snapshot returns the latest cached reading of every plugin, keyed by
// plugin name. It never blocks on hardware I/O.
func (rt *Runtime) Snapshot() map[string]reading.Reading {
	out := make(map[string]reading.Reading, len(rt.plugins))
	for _, p := range rt.plugins {
		out[p.Name()] = p.Read()
	}
	return out
}

// Stop terminates all sampling tasks and stops every plugin.
func (rt *Runtime) Stop() {
	rt.once.Do(func() { close(rt.stop) })
	rt.wg.Wait()
	for _, p := range rt.plugins {
		p.Stop()
	}
}
