package ivcam

import (
	"fmt"

	usb "github.com/kevmo314/go-usb"
)

// Wrap adopts an already opened usbfs file descriptor, typically obtained by
// opening a /dev/bus/usb node.
func Wrap(fd uintptr) (Transport, error) {
	handle, err := usb.WrapSysDevice(int(fd))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransportOpenFailed, err)
	}
	return handle, nil
}

// FindTransport scans the bus for the first device matching vid:pid and
// opens it.
func FindTransport(vid, pid uint16) (Transport, error) {
	devices, err := usb.DeviceList()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransportOpenFailed, err)
	}
	for _, dev := range devices {
		if dev.Descriptor.VendorID != vid || dev.Descriptor.ProductID != pid {
			continue
		}
		handle, err := dev.Open()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrTransportOpenFailed, err)
		}
		return handle, nil
	}
	return nil, fmt.Errorf("%w: no device %04x:%04x", ErrTransportOpenFailed, vid, pid)
}
