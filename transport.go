// Package ivcam drives the maintenance/monitor side channel of the IVCAM
// depth camera: vendor command framing, a serialized request/response
// session over a bulk USB transport, and decoding of the device's versioned
// calibration table.
package ivcam

import "time"

// Transport is the physical bulk channel to the device. Endpoint direction
// follows USB addressing: bit 0x80 set means device-to-host. Implementations
// are provided for go-usb handles (Wrap, OpenDevice) and gousb devices
// (OpenGousb); anything exposing the same surface works, including test
// fakes.
type Transport interface {
	ClaimInterface(iface uint8) error
	ReleaseInterface(iface uint8) error
	BulkTransfer(endpoint uint8, data []byte, timeout time.Duration) (int, error)
	Close() error
}
