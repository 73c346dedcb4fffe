// Package sensors contains the concrete sensor drivers, hardware and
// virtual, that plug into the runtime.
package sensors

import (
	"fmt"
	"sync"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"

	"github.com/sensordeck/sensordeck/internal/plugin"
)

var (
	hostOnce sync.Once
	hostErr  error
)

// openI2C opens the named I2C bus ("" for the first available) and
// returns a device handle at addr. Absence of the bus or device is an
// expected condition and maps to ErrHardwareUnavailable.
func openI2C(busName string, addr uint16) (*i2c.Dev, i2c.BusCloser, error) {
	hostOnce.Do(func() { _, hostErr = host.Init() })
	if hostErr != nil {
		return nil, nil, fmt.Errorf("%w: host init: %v", plugin.ErrHardwareUnavailable, hostErr)
	}
	bus, err := i2creg.Open(busName)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: open i2c bus %q: %v", plugin.ErrHardwareUnavailable, busName, err)
	}
	return &i2c.Dev{Bus: bus, Addr: addr}, bus, nil
}
