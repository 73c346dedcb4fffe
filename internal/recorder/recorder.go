// Package recorder sinks cached sensor readings into InfluxDB.
package recorder

import (
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"

	"github.com/sensordeck/sensordeck/internal/plugin"
	"github.com/sensordeck/sensordeck/internal/reading"
)

// Recorder periodically writes one point per plugin to InfluxDB.
// Fallback fields are skipped; a reading with no live fields writes
// nothing.
type Recorder struct {
	client   influxdb2.Client
	writeAPI api.WriteAPI
	rt       *plugin.Runtime

	interval time.Duration
	stop     chan struct{}
	done     chan struct{}
}

// New connects the recorder to an InfluxDB instance.
func New(url, token, org, bucket string, rt *plugin.Runtime, interval time.Duration) *Recorder {
	client := influxdb2.NewClient(url, token)
	return &Recorder{
		client:   client,
		writeAPI: client.WriteAPI(org, bucket),
		rt:       rt,
		interval: interval,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start launches the recording loop.
func (r *Recorder) Start() {
	go r.run()
}

func (r *Recorder) run() {
	defer close(r.done)
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-r.stop:
			return
		case <-ticker.C:
			for name, rd := range r.rt.Snapshot() {
				r.write(name, rd)
			}
		}
	}
}

func (r *Recorder) write(sensor string, rd reading.Reading) {
	p := influxdb2.NewPointWithMeasurement("sensor_data").
		AddTag("sensor", sensor).
		SetTime(rd.CapturedAt)

	live := 0
	for name, value := range rd.Fields {
		if reading.IsFallback(value) {
			continue
		}
		p.AddField(name, value)
		live++
	}
	if live == 0 {
		return
	}
	r.writeAPI.WritePoint(p)
}

// Stop flushes pending writes and closes the client.
func (r *Recorder) Stop() {
	close(r.stop)
	<-r.done
	r.writeAPI.Flush()
	r.client.Close()
}
