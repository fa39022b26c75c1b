package ivcam

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/kevmo314/go-ivcam/pkg/calibration"
)

type config struct {
	monitorInterface uint8
	endpointOut      uint8
	endpointIn       uint8
	lockTimeout      time.Duration
	transferTimeout  time.Duration
	fetchCapacity    int
	log              zerolog.Logger
	telemetry        TemperatureSource
	thermalInit      func(calibration.ThermalInit)
}

func defaultConfig() config {
	return config{
		monitorInterface: MonitorInterface,
		endpointOut:      MonitorEndpointOut,
		endpointIn:       MonitorEndpointIn,
		lockTimeout:      defaultLockTimeout,
		transferTimeout:  defaultTransferTimeout,
		fetchCapacity:    defaultFetchCapacity,
		log:              zerolog.Nop(),
		telemetry:        NoTelemetry{},
	}
}

// Option configures a Session or HardwareIO.
type Option func(*config)

// WithLogger attaches a structured logger. The default discards everything.
func WithLogger(log zerolog.Logger) Option {
	return func(c *config) { c.log = log }
}

// WithMonitorInterface overrides the interface number claimed for the
// maintenance channel.
func WithMonitorInterface(iface uint8) Option {
	return func(c *config) { c.monitorInterface = iface }
}

// WithEndpoints overrides the bulk endpoint addresses.
func WithEndpoints(out, in uint8) Option {
	return func(c *config) {
		c.endpointOut = out
		c.endpointIn = in
	}
}

// WithLockTimeout bounds how long a call waits for the exchange lock before
// failing with ErrTransportBusy.
func WithLockTimeout(d time.Duration) Option {
	return func(c *config) { c.lockTimeout = d }
}

// WithTransferTimeout bounds each individual bulk transfer.
func WithTransferTimeout(d time.Duration) Option {
	return func(c *config) { c.transferTimeout = d }
}

// WithTemperatureSource installs a telemetry capability. The default source
// reports ErrNotImplemented rather than fabricating zero readings.
func WithTemperatureSource(src TemperatureSource) Option {
	return func(c *config) { c.telemetry = src }
}

// WithThermalInitializer registers the consumer of the thermal-loop
// initialization data carried by versioned calibration tables. It is invoked
// at most once, during construction.
func WithThermalInitializer(fn func(calibration.ThermalInit)) Option {
	return func(c *config) { c.thermalInit = fn }
}
