package sensors

import (
	"encoding/binary"
	"fmt"

	"periph.io/x/conn/v3/i2c"

	"github.com/sensordeck/sensordeck/internal/plugin"
	"github.com/sensordeck/sensordeck/internal/reading"
)

const (
	tmp117Addr     = 0x48
	tmp117RegTemp  = 0x00
	tmp117RegID    = 0x0F
	tmp117DeviceID = 0x0117
	tmp117LSB      = 0.0078125 // degrees C per count
)

// TMP117 reads the high-accuracy temperature sensor over I2C.
type TMP117 struct {
	Bus  string
	Addr uint16

	dev *i2c.Dev
	bc  i2c.BusCloser
}

func NewTMP117(bus string) *TMP117 {
	return &TMP117{Bus: bus, Addr: tmp117Addr}
}

func (t *TMP117) Name() string { return "TMP117" }

func (t *TMP117) Fields() []string { return []string{"temp_c"} }

func (t *TMP117) ContinuousSampling() bool { return false }

func (t *TMP117) Init() error {
	dev, bc, err := openI2C(t.Bus, t.Addr)
	if err != nil {
		return err
	}
	var id [2]byte
	if err := dev.Tx([]byte{tmp117RegID}, id[:]); err != nil {
		bc.Close()
		return fmt.Errorf("%w: tmp117 probe: %v", plugin.ErrHardwareUnavailable, err)
	}
	if binary.BigEndian.Uint16(id[:]) != tmp117DeviceID {
		bc.Close()
		return fmt.Errorf("%w: tmp117 not found at 0x%02x", plugin.ErrHardwareUnavailable, t.Addr)
	}
	t.dev, t.bc = dev, bc
	return nil
}

func (t *TMP117) Read() (reading.Fields, error) {
	var buf [2]byte
	if err := t.dev.Tx([]byte{tmp117RegTemp}, buf[:]); err != nil {
		return nil, fmt.Errorf("tmp117 read: %w", err)
	}
	raw := int16(binary.BigEndian.Uint16(buf[:]))
	return reading.Fields{"temp_c": float64(raw) * tmp117LSB}, nil
}

func (t *TMP117) Close() error {
	if t.bc == nil {
		return nil
	}
	err := t.bc.Close()
	t.dev, t.bc = nil, nil
	return err
}
