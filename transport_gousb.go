//go:build cgo

package ivcam

import (
	"context"
	"fmt"
	"time"

	"github.com/google/gousb"
)

// gousbTransport adapts a gousb device to the Transport interface. Endpoints
// are resolved lazily on first transfer and cached for the lifetime of the
// claimed interface.
type gousbTransport struct {
	ctx  *gousb.Context
	dev  *gousb.Device
	cfg  *gousb.Config
	intf *gousb.Interface
	in   map[uint8]*gousb.InEndpoint
	out  map[uint8]*gousb.OutEndpoint
}

// OpenGousb opens the first device matching vid:pid through libusb. The
// kernel driver, if any, is detached automatically while interfaces are
// claimed.
func OpenGousb(vid, pid uint16) (Transport, error) {
	ctx := gousb.NewContext()
	dev, err := ctx.OpenDeviceWithVIDPID(gousb.ID(vid), gousb.ID(pid))
	if err != nil {
		ctx.Close()
		return nil, fmt.Errorf("%w: %v", ErrTransportOpenFailed, err)
	}
	if dev == nil {
		ctx.Close()
		return nil, fmt.Errorf("%w: no device %04x:%04x", ErrTransportOpenFailed, vid, pid)
	}
	if err := dev.SetAutoDetach(true); err != nil {
		dev.Close()
		ctx.Close()
		return nil, fmt.Errorf("%w: %v", ErrTransportOpenFailed, err)
	}
	return &gousbTransport{
		ctx: ctx,
		dev: dev,
		in:  make(map[uint8]*gousb.InEndpoint),
		out: make(map[uint8]*gousb.OutEndpoint),
	}, nil
}

func (t *gousbTransport) ClaimInterface(iface uint8) error {
	cfg, err := t.dev.Config(1)
	if err != nil {
		return err
	}
	intf, err := cfg.Interface(int(iface), 0)
	if err != nil {
		cfg.Close()
		return err
	}
	t.cfg = cfg
	t.intf = intf
	return nil
}

func (t *gousbTransport) ReleaseInterface(iface uint8) error {
	if t.intf == nil {
		return nil
	}
	t.intf.Close()
	t.intf = nil
	clear(t.in)
	clear(t.out)
	if t.cfg != nil {
		err := t.cfg.Close()
		t.cfg = nil
		return err
	}
	return nil
}

func (t *gousbTransport) BulkTransfer(endpoint uint8, data []byte, timeout time.Duration) (int, error) {
	if t.intf == nil {
		return 0, ErrInterfaceNotClaimed
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if endpoint&0x80 != 0 {
		ep, ok := t.in[endpoint]
		if !ok {
			var err error
			if ep, err = t.intf.InEndpoint(int(endpoint &^ 0x80)); err != nil {
				return 0, err
			}
			t.in[endpoint] = ep
		}
		return ep.ReadContext(ctx, data)
	}
	ep, ok := t.out[endpoint]
	if !ok {
		var err error
		if ep, err = t.intf.OutEndpoint(int(endpoint)); err != nil {
			return 0, err
		}
		t.out[endpoint] = ep
	}
	return ep.WriteContext(ctx, data)
}

func (t *gousbTransport) Close() error {
	t.ReleaseInterface(0)
	if err := t.dev.Close(); err != nil {
		t.ctx.Close()
		return err
	}
	return t.ctx.Close()
}
