//go:build cgo

// Sends the hardware-reset monitor command. Uses the gousb backend so it
// works without a pre-opened usbfs descriptor.
package main

import (
	"flag"
	"log"

	"github.com/kevmo314/go-ivcam"
	"github.com/kevmo314/go-ivcam/pkg/commands"
)

func main() {
	vid := flag.Uint("vid", uint(ivcam.VendorID), "vendor id")
	pid := flag.Uint("pid", uint(ivcam.ProductID), "product id")
	flag.Parse()

	transport, err := ivcam.OpenGousb(uint16(*vid), uint16(*pid))
	if err != nil {
		log.Fatalf("open device: %v", err)
	}
	defer transport.Close()

	if err := transport.ClaimInterface(ivcam.MonitorInterface); err != nil {
		log.Fatalf("claim monitor interface: %v", err)
	}
	defer transport.ReleaseInterface(ivcam.MonitorInterface)

	sess := ivcam.NewSession(transport)
	if _, err := sess.Command(commands.OpcodeHWReset, [4]uint32{}, nil, 0); err != nil {
		log.Fatalf("hardware reset: %v", err)
	}
	log.Printf("hardware reset sent to %04x:%04x", *vid, *pid)
}
