package ivcam

import (
	"encoding/binary"
	"errors"
	"math"
	"testing"

	"github.com/kevmo314/go-ivcam/pkg/calibration"
	"github.com/kevmo314/go-ivcam/pkg/commands"
)

func putFloat32(buf []byte, v float32) {
	binary.LittleEndian.PutUint32(buf, math.Float32bits(v))
}

// legacyCalibResponse builds a version-13 calibration table response:
// opcode echo, table header, then a dense float payload.
func legacyCalibResponse() []byte {
	raw := make([]byte, 404)
	binary.LittleEndian.PutUint32(raw[0:4], uint32(commands.OpcodeGetCalibrationTable))
	body := raw[4:]
	body[0], body[1] = 0x14, 0x0A
	body[2], body[3] = 0x01, 0x03
	for i := 0; i < 99; i++ {
		putFloat32(body[4+4*i:], float32(i+1))
	}
	return raw
}

// versionedCalibResponse builds a version-14 table with a populated tester
// region at the fixed offset past the parameter block.
func versionedCalibResponse(t *testing.T) []byte {
	t.Helper()
	raw := make([]byte, 4+4+calibration.ParamBlockSize+100)
	binary.LittleEndian.PutUint32(raw[0:4], uint32(commands.OpcodeGetCalibrationTable))
	body := raw[4:]
	body[0], body[1] = 0x14, 0x0A
	body[2], body[3] = 0x01, 0x04

	params := calibration.Parameters{Rmax: 2.5}
	params.Kc[0][0] = 585.0
	if err := params.MarshalInto(body[4:]); err != nil {
		t.Fatalf("MarshalInto failed: %v", err)
	}

	off := calibration.ParamBlockSize + calibration.HeaderSize
	putFloat32(body[off:], 41.5)    // LiguriaTemp
	putFloat32(body[off+4:], 39.25) // IRTemp
	putFloat32(body[off+8:], 23.0)  // AmbientTemp
	putFloat32(body[off+12:], 1.0)  // IRThermalLoopEnable
	putFloat32(body[off+28:], 35.5) // TransitionTemp
	return raw
}

// calibMock answers GetCalibrationTable with the given blob and echoes any
// other command with an empty payload.
func calibMock(blob []byte) *mockTransport {
	m := &mockTransport{}
	m.respond = func(req []byte) []byte {
		var r commands.Request
		if err := r.UnmarshalBinary(req); err != nil {
			return nil
		}
		if r.Opcode == commands.OpcodeGetCalibrationTable {
			return blob
		}
		echo := make([]byte, 4)
		binary.LittleEndian.PutUint32(echo, uint32(r.Opcode))
		return echo
	}
	return m
}

func TestNew_LegacyBlob(t *testing.T) {
	m := calibMock(legacyCalibResponse())

	thermalCalls := 0
	hw, err := New(m, WithThermalInitializer(func(calibration.ThermalInit) { thermalCalls++ }))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer hw.Close()

	if len(m.claimed) != 1 || m.claimed[0] != MonitorInterface {
		t.Errorf("claimed = %v, want [%d]", m.claimed, MonitorInterface)
	}
	if hw.TableVersion() != 13 {
		t.Errorf("TableVersion = %d, want 13", hw.TableVersion())
	}
	p := hw.Parameters()
	if p.Rmax != 1 || p.Kc[0][0] != 2 {
		t.Errorf("Parameters = Rmax %g, Kc[0][0] %g; want 1, 2", p.Rmax, p.Kc[0][0])
	}
	if thermalCalls != 0 {
		t.Errorf("thermal initializer called %d times for a legacy blob, want 0", thermalCalls)
	}
}

func TestNew_VersionedBlobInitializesThermalLoop(t *testing.T) {
	m := calibMock(versionedCalibResponse(t))

	thermalCalls := 0
	var got calibration.ThermalInit
	hw, err := New(m, WithThermalInitializer(func(ti calibration.ThermalInit) {
		thermalCalls++
		got = ti
	}))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer hw.Close()

	if hw.TableVersion() != 14 {
		t.Errorf("TableVersion = %d, want 14", hw.TableVersion())
	}
	if hw.Parameters().Rmax != 2.5 {
		t.Errorf("Rmax = %g, want 2.5", hw.Parameters().Rmax)
	}
	if thermalCalls != 1 {
		t.Fatalf("thermal initializer called %d times, want exactly 1", thermalCalls)
	}
	if got.Temperature.IRTemp != 39.25 || got.ThermalLoop.TransitionTemp != 35.5 {
		t.Errorf("ThermalInit = %+v, want IRTemp 39.25 and TransitionTemp 35.5", got)
	}
}

func TestNew_WriteFailureAbortsConstruction(t *testing.T) {
	m := &mockTransport{writeErr: errors.New("pipe stalled")}

	if _, err := New(m); !errors.Is(err, ErrCalibrationFetchFailed) {
		t.Fatalf("err = %v, want ErrCalibrationFetchFailed", err)
	}
	// the claimed interface must be released when construction fails
	if len(m.released) != 1 || m.released[0] != MonitorInterface {
		t.Errorf("released = %v, want [%d]", m.released, MonitorInterface)
	}
}

func TestNew_ClaimFailureAbortsConstruction(t *testing.T) {
	m := &mockTransport{claimErr: errors.New("device busy")}

	if _, err := New(m); !errors.Is(err, ErrInterfaceClaimFailed) {
		t.Fatalf("err = %v, want ErrInterfaceClaimFailed", err)
	}
}

func TestNew_UnsupportedBlobAbortsConstruction(t *testing.T) {
	blob := legacyCalibResponse()
	blob[4+3] = 0x02 // version 12
	m := calibMock(blob)

	if _, err := New(m); !errors.Is(err, calibration.ErrUnsupportedVersion) {
		t.Fatalf("err = %v, want ErrUnsupportedVersion", err)
	}
	if len(m.released) != 1 {
		t.Errorf("released = %v, want one release", m.released)
	}
}

func TestClose_Idempotent(t *testing.T) {
	m := calibMock(legacyCalibResponse())
	hw, err := New(m)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	if err := hw.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := hw.Close(); err != nil {
		t.Fatalf("second Close failed: %v", err)
	}
	if len(m.released) != 1 {
		t.Errorf("released %d times, want exactly once", len(m.released))
	}
	// the caller opened the transport, so the facade must not close it
	if m.closed {
		t.Error("facade closed a caller-owned transport")
	}

	if err := hw.HardwareReset(); !errors.Is(err, ErrClosed) {
		t.Errorf("HardwareReset after Close = %v, want ErrClosed", err)
	}
}

func TestTemperatureCompensation_NotImplemented(t *testing.T) {
	m := calibMock(legacyCalibResponse())
	hw, err := New(m)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer hw.Close()

	if err := hw.StartTemperatureCompensation(); !errors.Is(err, ErrNotImplemented) {
		t.Errorf("StartTemperatureCompensation = %v, want ErrNotImplemented", err)
	}
	if err := hw.StopTemperatureCompensation(); !errors.Is(err, ErrNotImplemented) {
		t.Errorf("StopTemperatureCompensation = %v, want ErrNotImplemented", err)
	}
	if _, err := hw.Temperatures(); !errors.Is(err, ErrNotImplemented) {
		t.Errorf("Temperatures = %v, want ErrNotImplemented", err)
	}
}

func TestHardwareReset_FireAndForget(t *testing.T) {
	m := calibMock(legacyCalibResponse())
	hw, err := New(m)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer hw.Close()

	opsBefore := len(m.ops)
	if err := hw.HardwareReset(); err != nil {
		t.Fatalf("HardwareReset failed: %v", err)
	}
	if got := m.ops[opsBefore:]; len(got) != 1 || got[0] != "write" {
		t.Errorf("ops = %v, want a single write", got)
	}

	var req commands.Request
	if err := req.UnmarshalBinary(m.lastReq); err != nil {
		t.Fatalf("request did not round-trip: %v", err)
	}
	if req.Opcode != commands.OpcodeHWReset {
		t.Errorf("sent opcode = %v, want HWReset", req.Opcode)
	}
}

func TestVersionDescriptor(t *testing.T) {
	m := calibMock(legacyCalibResponse())
	base := m.respond
	m.respond = func(req []byte) []byte {
		var r commands.Request
		if err := r.UnmarshalBinary(req); err != nil {
			return nil
		}
		if r.Opcode == commands.OpcodeGVD {
			return []byte{0x3B, 0x00, 0x00, 0x00, 0xDE, 0xAD, 0xBE, 0xEF}
		}
		return base(req)
	}

	hw, err := New(m)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer hw.Close()

	gvd, err := hw.VersionDescriptor()
	if err != nil {
		t.Fatalf("VersionDescriptor failed: %v", err)
	}
	if len(gvd) != 4 || gvd[0] != 0xDE {
		t.Errorf("GVD payload = %x, want deadbeef", gvd)
	}
}
