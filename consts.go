package ivcam

import "time"

// USB identity of the depth camera and its maintenance channel. The monitor
// interface is a vendor-specific interface distinct from the video
// streaming interfaces.
const (
	VendorID  uint16 = 0x8086
	ProductID uint16 = 0x0A66

	MonitorInterface   uint8 = 0x4
	MonitorEndpointOut uint8 = 0x01
	MonitorEndpointIn  uint8 = 0x81
)

const (
	// defaultLockTimeout bounds the wait for the session's exchange lock.
	defaultLockTimeout = 3000 * time.Millisecond

	// defaultTransferTimeout bounds each individual bulk transfer.
	defaultTransferTimeout = 1000 * time.Millisecond

	// defaultFetchCapacity is the receive capacity used when fetching the
	// calibration table.
	defaultFetchCapacity = 1000
)
