package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sys/unix"

	"github.com/kevmo314/go-ivcam"
)

func main() {
	configPath := flag.String("config", "", "optional TOML device config")
	device := flag.String("device", "", "usbfs node, e.g. /dev/bus/usb/001/004 (default: scan by VID:PID)")
	verbose := flag.Bool("v", false, "debug logging")
	flag.Parse()

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().Timestamp().Str("app", "dump_calibration").Logger()
	if !*verbose {
		logger = logger.Level(zerolog.InfoLevel)
	}

	cfg, err := loadDeviceConfig(*configPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("config")
	}
	if *device != "" {
		cfg.Device = *device
	}

	var transport ivcam.Transport
	if cfg.Device != "" {
		fd, err := unix.Open(cfg.Device, unix.O_RDWR, 0)
		if err != nil {
			logger.Fatal().Err(err).Str("device", cfg.Device).Msg("open device node")
		}
		if transport, err = ivcam.Wrap(uintptr(fd)); err != nil {
			logger.Fatal().Err(err).Msg("wrap device")
		}
	} else {
		if transport, err = ivcam.FindTransport(cfg.VendorID, cfg.ProductID); err != nil {
			logger.Fatal().Err(err).Msg("find device")
		}
	}
	defer transport.Close()

	hw, err := ivcam.New(transport,
		ivcam.WithLogger(logger),
		ivcam.WithMonitorInterface(cfg.MonitorInterface),
		ivcam.WithEndpoints(cfg.EndpointOut, cfg.EndpointIn),
		ivcam.WithLockTimeout(cfg.LockTimeout),
		ivcam.WithTransferTimeout(cfg.TransferTimeout),
	)
	if err != nil {
		logger.Fatal().Err(err).Msg("open hardware io")
	}
	defer hw.Close()

	p := hw.Parameters()
	fmt.Printf("calibration table version: %d\n\n", hw.TableVersion())
	fmt.Printf("Rmax: %g\n", p.Rmax)
	fmt.Printf("Kc (IR intrinsics):\n")
	for _, row := range p.Kc {
		fmt.Printf("  %12.6f %12.6f %12.6f\n", row[0], row[1], row[2])
	}
	fmt.Printf("Distc (IR distortion): %v\n", p.Distc)
	fmt.Printf("Kt (RGB intrinsics):\n")
	for _, row := range p.Kt {
		fmt.Printf("  %12.6f %12.6f %12.6f\n", row[0], row[1], row[2])
	}
	fmt.Printf("Tt (IR to RGB translation): %v\n", p.Tt)
	fmt.Printf("QV: %v\n", p.QV)

	if gvd, err := hw.VersionDescriptor(); err == nil {
		fmt.Printf("\nGVD (%d bytes): % x\n", len(gvd), gvd)
	} else {
		logger.Warn().Err(err).Msg("version descriptor unavailable")
	}
}
