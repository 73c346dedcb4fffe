package sensors

import (
	"fmt"
	"sync"

	"github.com/MichaelS11/go-dht"

	"github.com/sensordeck/sensordeck/internal/plugin"
	"github.com/sensordeck/sensordeck/internal/reading"
)

var dhtHostOnce sync.Once

// DHT22 reads the DHT22 temperature/humidity sensor on a GPIO pin.
type DHT22 struct {
	Pin string

	dev *dht.DHT
}

func NewDHT22(pin string) *DHT22 {
	return &DHT22{Pin: pin}
}

func (d *DHT22) Name() string { return "DHT22" }

func (d *DHT22) Fields() []string { return []string{"temperature", "humidity"} }

func (d *DHT22) ContinuousSampling() bool { return false }

func (d *DHT22) Init() error {
	var hostErr error
	dhtHostOnce.Do(func() { hostErr = dht.HostInit() })
	if hostErr != nil {
		return fmt.Errorf("%w: dht host init: %v", plugin.ErrHardwareUnavailable, hostErr)
	}
	dev, err := dht.NewDHT(d.Pin, dht.Celsius, "")
	if err != nil {
		return fmt.Errorf("%w: dht22 on pin %s: %v", plugin.ErrHardwareUnavailable, d.Pin, err)
	}
	d.dev = dev
	return nil
}

func (d *DHT22) Read() (reading.Fields, error) {
	humidity, temperature, err := d.dev.ReadRetry(11)
	if err != nil {
		return nil, fmt.Errorf("dht22 read: %w", err)
	}
	return reading.Fields{
		"temperature": temperature,
		"humidity":    humidity,
	}, nil
}

func (d *DHT22) Close() error {
	d.dev = nil
	return nil
}
