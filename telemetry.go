package ivcam

import "github.com/kevmo314/go-ivcam/pkg/calibration"

// TemperatureSource reads the device's temperature sensors. The firmware's
// IR and MEMS temperature commands are not usable on current firmware, so
// absence of data must be distinguishable from a zero reading.
type TemperatureSource interface {
	ReadTemperatures() (calibration.TemperatureData, error)
}

// NoTelemetry is the null temperature source. Every read fails with
// ErrNotImplemented.
type NoTelemetry struct{}

func (NoTelemetry) ReadTemperatures() (calibration.TemperatureData, error) {
	return calibration.TemperatureData{}, ErrNotImplemented
}
