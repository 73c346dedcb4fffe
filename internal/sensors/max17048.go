package sensors

import (
	"encoding/binary"
	"fmt"

	"periph.io/x/conn/v3/i2c"

	"github.com/sensordeck/sensordeck/internal/plugin"
	"github.com/sensordeck/sensordeck/internal/reading"
)

const (
	max17048Addr       = 0x36
	max17048RegVCell   = 0x02 // 78.125 uV per count
	max17048RegSOC     = 0x04 // 1/256 % per count
	max17048RegVersion = 0x08
)

// MAX17048 reads the battery fuel gauge over I2C.
type MAX17048 struct {
	Bus  string
	Addr uint16

	dev *i2c.Dev
	bc  i2c.BusCloser
}

func NewMAX17048(bus string) *MAX17048 {
	return &MAX17048{Bus: bus, Addr: max17048Addr}
}

func (g *MAX17048) Name() string { return "MAX17048" }

func (g *MAX17048) Fields() []string { return []string{"voltage", "soc"} }

func (g *MAX17048) ContinuousSampling() bool { return false }

func (g *MAX17048) Init() error {
	dev, bc, err := openI2C(g.Bus, g.Addr)
	if err != nil {
		return err
	}
	var ver [2]byte
	if err := dev.Tx([]byte{max17048RegVersion}, ver[:]); err != nil {
		bc.Close()
		return fmt.Errorf("%w: max17048 probe: %v", plugin.ErrHardwareUnavailable, err)
	}
	g.dev, g.bc = dev, bc
	return nil
}

func (g *MAX17048) Read() (reading.Fields, error) {
	var vc, soc [2]byte
	if err := g.dev.Tx([]byte{max17048RegVCell}, vc[:]); err != nil {
		return nil, fmt.Errorf("max17048 vcell: %w", err)
	}
	if err := g.dev.Tx([]byte{max17048RegSOC}, soc[:]); err != nil {
		return nil, fmt.Errorf("max17048 soc: %w", err)
	}
	return reading.Fields{
		"voltage": float64(binary.BigEndian.Uint16(vc[:])) * 78.125e-6,
		"soc":     float64(binary.BigEndian.Uint16(soc[:])) / 256.0,
	}, nil
}

func (g *MAX17048) Close() error {
	if g.bc == nil {
		return nil
	}
	err := g.bc.Close()
	g.dev, g.bc = nil, nil
	return err
}
