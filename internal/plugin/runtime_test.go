package plugin

import (
	"sync"
	"testing"
	"time"

	"github.com/sensordeck/sensordeck/internal/reading"
)

type countingDriver struct {
	mu         sync.Mutex
	reads      int
	continuous bool
}

func (d *countingDriver) Name() string             { return "Counting" }
func (d *countingDriver) Fields() []string         { return []string{"n"} }
func (d *countingDriver) ContinuousSampling() bool { return d.continuous }
func (d *countingDriver) Init() error              { return nil }
func (d *countingDriver) Close() error             { return nil }

func (d *countingDriver) Read() (reading.Fields, error) {
	d.mu.Lock()
	d.reads++
	n := d.reads
	d.mu.Unlock()
	return reading.Fields{"n": float64(n)}, nil
}

func (d *countingDriver) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.reads
}

func TestRuntimeSamplesInBackground(t *testing.T) {
	drv := &countingDriver{}
	rt := NewRuntime(New(drv, Options{SampleInterval: 10 * time.Millisecond}))
	rt.Start()
	defer rt.Stop()

	time.Sleep(60 * time.Millisecond)
	if drv.count() < 2 {
		t.Errorf("reads = %d, want at least 2", drv.count())
	}

	snap := rt.Snapshot()
	if _, ok := snap["Counting"]; !ok {
		t.Error("snapshot missing plugin reading")
	}
}

func TestRuntimeIdlePausesNonContinuousPlugins(t *testing.T) {
	plain := &countingDriver{}
	continuous := &countingDriver{continuous: true}
	opts := Options{SampleInterval: 10 * time.Millisecond}
	rt := NewRuntime(New(plain, opts), New(continuous, opts))
	rt.SetIdle(true)
	rt.Start()
	defer rt.Stop()

	time.Sleep(60 * time.Millisecond)
	if plain.count() != 0 {
		t.Errorf("idle plain driver sampled %d times, want 0", plain.count())
	}
	if continuous.count() < 2 {
		t.Errorf("continuous driver sampled %d times while idle, want at least 2", continuous.count())
	}

	// Waking the consumer resumes plain sampling.
	rt.SetIdle(false)
	time.Sleep(60 * time.Millisecond)
	if plain.count() == 0 {
		t.Error("plain driver did not resume after idle ended")
	}
}

func TestRuntimeStopStopsPlugins(t *testing.T) {
	drv := &countingDriver{}
	p := New(drv, Options{SampleInterval: 10 * time.Millisecond})
	rt := NewRuntime(p)
	rt.Start()
	rt.Stop()

	if got := p.State(); got != StateStopped {
		t.Errorf("state after runtime stop = %v, want stopped", got)
	}
}
