package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/kevmo314/go-ivcam"
)

func TestLoadDeviceConfig_Defaults(t *testing.T) {
	cfg, err := loadDeviceConfig("")
	if err != nil {
		t.Fatalf("loadDeviceConfig failed: %v", err)
	}
	if cfg.VendorID != ivcam.VendorID || cfg.ProductID != ivcam.ProductID {
		t.Errorf("ids = %04x:%04x, want %04x:%04x", cfg.VendorID, cfg.ProductID, ivcam.VendorID, ivcam.ProductID)
	}
	if cfg.MonitorInterface != ivcam.MonitorInterface {
		t.Errorf("MonitorInterface = %d, want %d", cfg.MonitorInterface, ivcam.MonitorInterface)
	}
	if cfg.LockTimeout != 3*time.Second {
		t.Errorf("LockTimeout = %v, want 3s", cfg.LockTimeout)
	}
}

func TestLoadDeviceConfig_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "device.toml")
	doc := `
device = "/dev/bus/usb/001/004"
monitor_interface = 2
lock_timeout_ms = 500
`
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := loadDeviceConfig(path)
	if err != nil {
		t.Fatalf("loadDeviceConfig failed: %v", err)
	}
	if cfg.Device != "/dev/bus/usb/001/004" {
		t.Errorf("Device = %q", cfg.Device)
	}
	if cfg.MonitorInterface != 2 {
		t.Errorf("MonitorInterface = %d, want 2", cfg.MonitorInterface)
	}
	if cfg.LockTimeout != 500*time.Millisecond {
		t.Errorf("LockTimeout = %v, want 500ms", cfg.LockTimeout)
	}
	// untouched keys keep their defaults
	if cfg.ProductID != ivcam.ProductID {
		t.Errorf("ProductID = %04x, want default %04x", cfg.ProductID, ivcam.ProductID)
	}
}

func TestLoadDeviceConfig_MissingFile(t *testing.T) {
	if _, err := loadDeviceConfig(filepath.Join(t.TempDir(), "absent.toml")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}
