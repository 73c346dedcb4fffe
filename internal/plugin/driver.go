// Package plugin implements the polymorphic sensor plugin runtime:
// the driver contract every sensor source implements, the hot-plug
// availability state machine, and the background sampler that keeps
// a cached reading fresh without ever blocking a consumer.
package plugin

import (
	"errors"

	"github.com/sensordeck/sensordeck/internal/reading"
)

// ErrHardwareUnavailable indicates the underlying device or bus could
// not be opened. Drivers return it (or wrap it) from Init for expected
// absence; it is never surfaced to consumers as anything but fallback
// fields.
var ErrHardwareUnavailable = errors.New("hardware unavailable")

// Driver is implemented by each sensor source, hardware or virtual.
// A Driver is only ever called from a single plugin goroutine; it does
// not need to be safe for concurrent use.
type Driver interface {
	// Name returns the display name of the sensor, e.g. "TMP117".
	Name() string

	// Init acquires the underlying device or resource. It returns
	// ErrHardwareUnavailable (possibly wrapped) when the bus or device
	// cannot be opened.
	Init() error

	// Read performs a single synchronous probe of the device (or, for
	// a virtual sensor, of the most recent payload). It may block on
	// bus or network I/O.
	Read() (reading.Fields, error)

	// Fields lists every field name this driver can produce, used to
	// build all-fallback readings while the sensor is unavailable.
	Fields() []string

	// ContinuousSampling reports whether the sensor's computation needs
	// continuity (burn-in, baseline tracking) and must keep being
	// sampled even while no consumer is reading.
	ContinuousSampling() bool

	// Close releases the device. Called on read failure and shutdown.
	Close() error
}
