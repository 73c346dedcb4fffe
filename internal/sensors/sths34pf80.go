package sensors

import (
	"encoding/binary"
	"fmt"

	"periph.io/x/conn/v3/i2c"

	"github.com/sensordeck/sensordeck/internal/plugin"
	"github.com/sensordeck/sensordeck/internal/reading"
)

const (
	sths34Addr        = 0x5A
	sths34RegWhoAmI   = 0x0F
	sths34RegCtrl1    = 0x20
	sths34RegPresence = 0x3A // TPRESENCE_L, int16 LE
	sths34RegMotion   = 0x3C // TMOTION_L, int16 LE
	sths34RegAmbient  = 0x28 // TAMBIENT_L, int16 LE, 1/100 degC

	sths34WhoAmI = 0xD3
	sths34ODR1Hz = 0x01
)

// DefaultPresenceThreshold is the presence reading above which a
// person is considered present.
const DefaultPresenceThreshold = 1000

// STHS34PF80 reads the IR presence/motion sensor over I2C and derives
// a person-present flag from the raw presence and motion counters.
type STHS34PF80 struct {
	Bus               string
	Addr              uint16
	PresenceThreshold float64

	dev *i2c.Dev
	bc  i2c.BusCloser
}

func NewSTHS34PF80(bus string) *STHS34PF80 {
	return &STHS34PF80{Bus: bus, Addr: sths34Addr, PresenceThreshold: DefaultPresenceThreshold}
}

func (s *STHS34PF80) Name() string { return "STHS34PF80" }

func (s *STHS34PF80) Fields() []string {
	return []string{"presence_value", "motion_value", "temperature", "person_present"}
}

func (s *STHS34PF80) ContinuousSampling() bool { return false }

func (s *STHS34PF80) Init() error {
	dev, bc, err := openI2C(s.Bus, s.Addr)
	if err != nil {
		return err
	}
	var id [1]byte
	if err := dev.Tx([]byte{sths34RegWhoAmI}, id[:]); err != nil {
		bc.Close()
		return fmt.Errorf("%w: sths34pf80 probe: %v", plugin.ErrHardwareUnavailable, err)
	}
	if id[0] != sths34WhoAmI {
		bc.Close()
		return fmt.Errorf("%w: sths34pf80 not found at 0x%02x", plugin.ErrHardwareUnavailable, s.Addr)
	}
	if err := dev.Tx([]byte{sths34RegCtrl1, sths34ODR1Hz}, nil); err != nil {
		bc.Close()
		return fmt.Errorf("%w: sths34pf80 configure: %v", plugin.ErrHardwareUnavailable, err)
	}
	s.dev, s.bc = dev, bc
	return nil
}

func (s *STHS34PF80) Read() (reading.Fields, error) {
	presence, err := s.readInt16(sths34RegPresence)
	if err != nil {
		return nil, fmt.Errorf("sths34pf80 presence: %w", err)
	}
	motion, err := s.readInt16(sths34RegMotion)
	if err != nil {
		return nil, fmt.Errorf("sths34pf80 motion: %w", err)
	}
	ambient, err := s.readInt16(sths34RegAmbient)
	if err != nil {
		return nil, fmt.Errorf("sths34pf80 ambient: %w", err)
	}

	p := float64(presence)
	m := float64(motion)
	return reading.Fields{
		"presence_value": p,
		"motion_value":   m,
		"temperature":    float64(ambient) / 100.0,
		"person_present": p >= s.PresenceThreshold || m > 0,
	}, nil
}

func (s *STHS34PF80) readInt16(reg byte) (int16, error) {
	var buf [2]byte
	if err := s.dev.Tx([]byte{reg}, buf[:]); err != nil {
		return 0, err
	}
	return int16(binary.LittleEndian.Uint16(buf[:])), nil
}

func (s *STHS34PF80) Close() error {
	if s.bc == nil {
		return nil
	}
	err := s.bc.Close()
	s.dev, s.bc = nil, nil
	return err
}
