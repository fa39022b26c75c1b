package ivcam

import (
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/kevmo314/go-ivcam/pkg/calibration"
	"github.com/kevmo314/go-ivcam/pkg/commands"
)

// HardwareIO owns one maintenance session with the device: it claims the
// monitor interface, fetches and decodes the calibration table during
// construction, and exposes the monitor commands. A HardwareIO never reaches
// a usable state with partial calibration data; construction fails instead.
type HardwareIO struct {
	transport Transport
	session   *Session
	cfg       config
	params    calibration.Parameters
	version   int
	telemetry TemperatureSource
	log       zerolog.Logger
	closed    atomic.Bool

	// set when the facade opened the transport itself and must close it
	ownsTransport bool
}

// Open wraps an already opened usbfs file descriptor, see Wrap.
func Open(fd uintptr, opts ...Option) (*HardwareIO, error) {
	transport, err := Wrap(fd)
	if err != nil {
		return nil, err
	}
	return newOwned(transport, opts)
}

// OpenDevice scans the bus for vid:pid using the go-usb backend.
func OpenDevice(vid, pid uint16, opts ...Option) (*HardwareIO, error) {
	transport, err := FindTransport(vid, pid)
	if err != nil {
		return nil, err
	}
	return newOwned(transport, opts)
}

func newOwned(transport Transport, opts []Option) (*HardwareIO, error) {
	h, err := New(transport, opts...)
	if err != nil {
		transport.Close()
		return nil, err
	}
	h.ownsTransport = true
	return h, nil
}

// New claims the monitor interface on transport and fetches and decodes the
// calibration table. Any failure releases the interface and aborts
// construction. The caller keeps ownership of transport; use Open,
// OpenDevice or OpenGousb to have the facade manage the handle too.
func New(transport Transport, opts ...Option) (*HardwareIO, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	log := cfg.log.With().Str("session", uuid.NewString()).Logger()
	cfg.log = log

	if err := transport.ClaimInterface(cfg.monitorInterface); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInterfaceClaimFailed, err)
	}

	h := &HardwareIO{
		transport: transport,
		session:   newSession(transport, cfg),
		cfg:       cfg,
		telemetry: cfg.telemetry,
		log:       log,
	}

	blob, err := h.fetchCalibration()
	if err != nil {
		transport.ReleaseInterface(cfg.monitorInterface)
		return nil, err
	}
	h.params = blob.Params
	h.version = blob.Version

	if ti, ok := blob.ThermalInit(); ok {
		if cfg.thermalInit != nil {
			cfg.thermalInit(*ti)
		}
		log.Debug().
			Float32("transition_temp", ti.ThermalLoop.TransitionTemp).
			Float32("loop_enable", ti.ThermalLoop.IRThermalLoopEnable).
			Msg("thermal loop data initialized")
	}
	log.Info().Int("table_version", blob.Version).Msg("calibration table decoded")
	return h, nil
}

func (h *HardwareIO) fetchCalibration() (*calibration.Blob, error) {
	raw, err := h.session.Command(commands.OpcodeGetCalibrationTable, [4]uint32{}, nil, h.cfg.fetchCapacity)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCalibrationFetchFailed, err)
	}
	return calibration.DecodeBlob(raw)
}

// Parameters returns the decoded calibration parameters. The returned struct
// is immutable for the lifetime of the HardwareIO and safe to read from any
// goroutine.
func (h *HardwareIO) Parameters() *calibration.Parameters {
	return &h.params
}

// TableVersion reports the decoded calibration table format version.
func (h *HardwareIO) TableVersion() int {
	return h.version
}

// Session exposes the underlying exchange session for raw monitor commands.
func (h *HardwareIO) Session() *Session {
	return h.session
}

// VersionDescriptor fetches the raw GVD block describing firmware and ASIC
// versions.
func (h *HardwareIO) VersionDescriptor() ([]byte, error) {
	if h.closed.Load() {
		return nil, ErrClosed
	}
	raw, err := h.session.Command(commands.OpcodeGVD, [4]uint32{}, nil, commands.MaxBufferSize)
	if err != nil {
		return nil, err
	}
	resp, err := commands.ParseResponse(raw)
	if err != nil {
		return nil, err
	}
	return resp.Payload, nil
}

// LastFirmwareError reads the firmware's last recorded error code.
func (h *HardwareIO) LastFirmwareError() (uint32, error) {
	if h.closed.Load() {
		return 0, ErrClosed
	}
	raw, err := h.session.Command(commands.OpcodeGetFWLastError, [4]uint32{}, nil, commands.MaxBufferSize)
	if err != nil {
		return 0, err
	}
	resp, err := commands.ParseResponse(raw)
	if err != nil {
		return 0, err
	}
	if len(resp.Payload) < 4 {
		return 0, fmt.Errorf("%w: firmware error payload", ErrTransportShortRead)
	}
	return uint32(resp.Payload[0]) | uint32(resp.Payload[1])<<8 |
		uint32(resp.Payload[2])<<16 | uint32(resp.Payload[3])<<24, nil
}

// HardwareReset requests a device reset. The device does not answer; the
// handle should be reopened afterwards.
func (h *HardwareIO) HardwareReset() error {
	if h.closed.Load() {
		return ErrClosed
	}
	_, err := h.session.Command(commands.OpcodeHWReset, [4]uint32{}, nil, 0)
	return err
}

// Temperatures reads the current sensor temperatures through the configured
// telemetry capability. The default capability fails with ErrNotImplemented.
func (h *HardwareIO) Temperatures() (calibration.TemperatureData, error) {
	if h.closed.Load() {
		return calibration.TemperatureData{}, ErrClosed
	}
	return h.telemetry.ReadTemperatures()
}

// StartTemperatureCompensation would spin the periodic compensation loop.
// The firmware temperature reads it depends on are not usable yet, so this
// fails explicitly instead of pretending to run.
func (h *HardwareIO) StartTemperatureCompensation() error {
	if h.closed.Load() {
		return ErrClosed
	}
	return ErrNotImplemented
}

// StopTemperatureCompensation is the counterpart of
// StartTemperatureCompensation and fails the same way.
func (h *HardwareIO) StopTemperatureCompensation() error {
	if h.closed.Load() {
		return ErrClosed
	}
	return ErrNotImplemented
}

// Close releases the monitor interface, and the transport handle when the
// facade opened it. Safe to call more than once.
func (h *HardwareIO) Close() error {
	if h.closed.Swap(true) {
		return nil
	}
	err := h.transport.ReleaseInterface(h.cfg.monitorInterface)
	if h.ownsTransport {
		if cerr := h.transport.Close(); err == nil {
			err = cerr
		}
	}
	h.log.Info().Msg("monitor interface released")
	return err
}
