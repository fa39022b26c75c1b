package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/kevmo314/go-ivcam"
)

// deviceConfig selects the device and transport tunables. Defaults match the
// IVCAM monitor interface; a TOML file can override any of them.
type deviceConfig struct {
	Device           string
	VendorID         uint16
	ProductID        uint16
	MonitorInterface uint8
	EndpointOut      uint8
	EndpointIn       uint8
	LockTimeout      time.Duration
	TransferTimeout  time.Duration
}

type fileConfig struct {
	Device            string `toml:"device"`
	VendorID          uint16 `toml:"vendor_id"`
	ProductID         uint16 `toml:"product_id"`
	MonitorInterface  uint8  `toml:"monitor_interface"`
	EndpointOut       uint8  `toml:"endpoint_out"`
	EndpointIn        uint8  `toml:"endpoint_in"`
	LockTimeoutMS     int64  `toml:"lock_timeout_ms"`
	TransferTimeoutMS int64  `toml:"transfer_timeout_ms"`
}

func defaultDeviceConfig() deviceConfig {
	return deviceConfig{
		VendorID:         ivcam.VendorID,
		ProductID:        ivcam.ProductID,
		MonitorInterface: ivcam.MonitorInterface,
		EndpointOut:      ivcam.MonitorEndpointOut,
		EndpointIn:       ivcam.MonitorEndpointIn,
		LockTimeout:      3 * time.Second,
		TransferTimeout:  time.Second,
	}
}

func loadDeviceConfig(path string) (deviceConfig, error) {
	cfg := defaultDeviceConfig()
	if path == "" {
		return cfg, nil
	}

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return deviceConfig{}, fmt.Errorf("load device config: %w", err)
	}

	if meta.IsDefined("device") {
		cfg.Device = strings.TrimSpace(raw.Device)
	}
	if meta.IsDefined("vendor_id") {
		cfg.VendorID = raw.VendorID
	}
	if meta.IsDefined("product_id") {
		cfg.ProductID = raw.ProductID
	}
	if meta.IsDefined("monitor_interface") {
		cfg.MonitorInterface = raw.MonitorInterface
	}
	if meta.IsDefined("endpoint_out") {
		cfg.EndpointOut = raw.EndpointOut
	}
	if meta.IsDefined("endpoint_in") {
		cfg.EndpointIn = raw.EndpointIn
	}
	if meta.IsDefined("lock_timeout_ms") {
		cfg.LockTimeout = time.Duration(raw.LockTimeoutMS) * time.Millisecond
	}
	if meta.IsDefined("transfer_timeout_ms") {
		cfg.TransferTimeout = time.Duration(raw.TransferTimeoutMS) * time.Millisecond
	}
	return cfg, nil
}
