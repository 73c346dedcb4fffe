package sensors

import (
	"fmt"

	"periph.io/x/conn/v3/i2c"

	"github.com/sensordeck/sensordeck/internal/magnet"
	"github.com/sensordeck/sensordeck/internal/plugin"
	"github.com/sensordeck/sensordeck/internal/reading"
)

const (
	mmc5983Addr       = 0x30
	mmc5983RegOut     = 0x00 // Xout0..XYZout2, 7 bytes
	mmc5983RegTemp    = 0x07
	mmc5983RegStatus  = 0x08
	mmc5983RegCtrl0   = 0x09
	mmc5983RegProduct = 0x2F

	mmc5983ProductID = 0x30
	mmc5983CmdTM     = 0x01 // take magnetic measurement
	mmc5983CmdTMT    = 0x02 // take temperature measurement

	// 18-bit output: counts per Gauss and zero-field offset.
	mmc5983CountsPerGauss = 16384.0
	mmc5983Offset         = 131072.0
)

// MMC5983 reads the magnetometer over I2C and layers the magnetic
// anomaly detector on top of the raw field magnitude. The baseline it
// maintains is why this sensor requires continuous sampling.
type MMC5983 struct {
	Bus  string
	Addr uint16

	det *magnet.Detector
	dev *i2c.Dev
	bc  i2c.BusCloser
}

func NewMMC5983(bus string, cfg magnet.Config) (*MMC5983, error) {
	det, err := magnet.NewDetector(cfg)
	if err != nil {
		return nil, err
	}
	return &MMC5983{Bus: bus, Addr: mmc5983Addr, det: det}, nil
}

func (m *MMC5983) Name() string { return "MMC5983" }

func (m *MMC5983) Fields() []string {
	return []string{
		"mag_x", "mag_y", "mag_z",
		"magnitude", "temperature",
		"magnet_detected", "baseline", "z_score",
	}
}

func (m *MMC5983) ContinuousSampling() bool { return true }

// Detector exposes the anomaly detector state for inspection.
func (m *MMC5983) Detector() *magnet.Detector { return m.det }

func (m *MMC5983) Init() error {
	dev, bc, err := openI2C(m.Bus, m.Addr)
	if err != nil {
		return err
	}
	var id [1]byte
	if err := dev.Tx([]byte{mmc5983RegProduct}, id[:]); err != nil {
		bc.Close()
		return fmt.Errorf("%w: mmc5983 probe: %v", plugin.ErrHardwareUnavailable, err)
	}
	if id[0] != mmc5983ProductID {
		bc.Close()
		return fmt.Errorf("%w: mmc5983 not found at 0x%02x", plugin.ErrHardwareUnavailable, m.Addr)
	}
	m.dev, m.bc = dev, bc
	m.det.Reset()
	return nil
}

func (m *MMC5983) Read() (reading.Fields, error) {
	x, y, z, err := m.readField()
	if err != nil {
		return nil, err
	}
	temp, err := m.readTemp()
	if err != nil {
		return nil, err
	}

	magnitude := magnet.Magnitude(x, y, z)
	res := m.det.Process(magnitude)

	fields := reading.Fields{
		"mag_x":       x,
		"mag_y":       y,
		"mag_z":       z,
		"magnitude":   magnitude,
		"temperature": temp,
		"baseline":    res.Baseline,
	}
	if res.Ready {
		fields["magnet_detected"] = res.Triggered
		fields["z_score"] = res.ZScore
	} else {
		fields["magnet_detected"] = reading.Fallback
		fields["z_score"] = reading.Fallback
	}
	return fields, nil
}

func (m *MMC5983) readField() (x, y, z float64, err error) {
	if err = m.dev.Tx([]byte{mmc5983RegCtrl0, mmc5983CmdTM}, nil); err != nil {
		return 0, 0, 0, fmt.Errorf("mmc5983 trigger: %w", err)
	}
	var out [7]byte
	if err = m.dev.Tx([]byte{mmc5983RegOut}, out[:]); err != nil {
		return 0, 0, 0, fmt.Errorf("mmc5983 read: %w", err)
	}
	x = mmc5983Counts(out[0], out[1], out[6]>>6&0x3)
	y = mmc5983Counts(out[2], out[3], out[6]>>4&0x3)
	z = mmc5983Counts(out[4], out[5], out[6]>>2&0x3)
	return x, y, z, nil
}

// mmc5983Counts assembles an 18-bit axis value and converts to Gauss.
func mmc5983Counts(hi, lo, extra byte) float64 {
	raw := uint32(hi)<<10 | uint32(lo)<<2 | uint32(extra)
	return (float64(raw) - mmc5983Offset) / mmc5983CountsPerGauss
}

func (m *MMC5983) readTemp() (float64, error) {
	if err := m.dev.Tx([]byte{mmc5983RegCtrl0, mmc5983CmdTMT}, nil); err != nil {
		return 0, fmt.Errorf("mmc5983 temp trigger: %w", err)
	}
	var t [1]byte
	if err := m.dev.Tx([]byte{mmc5983RegTemp}, t[:]); err != nil {
		return 0, fmt.Errorf("mmc5983 temp read: %w", err)
	}
	return -75.0 + float64(t[0])*0.8, nil
}

func (m *MMC5983) Close() error {
	if m.bc == nil {
		return nil
	}
	err := m.bc.Close()
	m.dev, m.bc = nil, nil
	return err
}
