package sensors

import (
	"encoding/binary"
	"fmt"

	"periph.io/x/conn/v3/i2c"

	"github.com/sensordeck/sensordeck/internal/plugin"
	"github.com/sensordeck/sensordeck/internal/reading"
)

const (
	veml7700Addr    = 0x10
	veml7700RegConf = 0x00
	veml7700RegALS  = 0x04

	// Lux per count at 1x gain, 100 ms integration.
	veml7700Resolution = 0.0576
)

// VEML7700 reads the ambient light sensor over I2C.
type VEML7700 struct {
	Bus  string
	Addr uint16

	dev *i2c.Dev
	bc  i2c.BusCloser
}

func NewVEML7700(bus string) *VEML7700 {
	return &VEML7700{Bus: bus, Addr: veml7700Addr}
}

func (v *VEML7700) Name() string { return "VEML7700" }

func (v *VEML7700) Fields() []string { return []string{"light"} }

func (v *VEML7700) ContinuousSampling() bool { return false }

func (v *VEML7700) Init() error {
	dev, bc, err := openI2C(v.Bus, v.Addr)
	if err != nil {
		return err
	}
	// Power on with default gain and integration time.
	if err := dev.Tx([]byte{veml7700RegConf, 0x00, 0x00}, nil); err != nil {
		bc.Close()
		return fmt.Errorf("%w: veml7700 configure: %v", plugin.ErrHardwareUnavailable, err)
	}
	v.dev, v.bc = dev, bc
	return nil
}

func (v *VEML7700) Read() (reading.Fields, error) {
	var buf [2]byte
	if err := v.dev.Tx([]byte{veml7700RegALS}, buf[:]); err != nil {
		return nil, fmt.Errorf("veml7700 read: %w", err)
	}
	raw := binary.LittleEndian.Uint16(buf[:])
	return reading.Fields{"light": float64(raw) * veml7700Resolution}, nil
}

func (v *VEML7700) Close() error {
	if v.bc == nil {
		return nil
	}
	err := v.bc.Close()
	v.dev, v.bc = nil, nil
	return err
}
