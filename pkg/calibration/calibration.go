// Package calibration decodes the raw calibration table returned by the
// IVCAM monitor interface. The blob is self-describing: a BCD version tag
// embedded in its header selects between the legacy dense-float layout and
// the versioned layout that appends per-unit tester data.
package calibration

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

const (
	// MinSupportedVersion is the oldest calibration table format the host
	// can interpret.
	MinSupportedVersion = 13

	// HeaderSize covers the validation bytes and the BCD version tag.
	HeaderSize = 4

	// ParamBlockSize is the space the versioned layout reserves for the
	// calibration parameter block before the tester data begins.
	ParamBlockSize = 512

	// fetchPrefixSize is the opcode echo prepended by the transport layer;
	// it is not part of the calibration table.
	fetchPrefixSize = 4

	parametersByteSize  = 448 // 112 floats
	temperatureByteSize = 12  // 3 floats
	thermalLoopByteSize = 88  // 22 floats
)

// validationSentinel marks a well-formed calibration header.
var validationSentinel = [2]byte{0x14, 0x0A}

var (
	ErrBlobTooShort       = errors.New("calibration: blob shorter than header")
	ErrUnsupportedVersion = errors.New("calibration: unsupported table version")
	ErrShortParameters    = errors.New("calibration: short parameter block")
)

// Parameters holds the factory intrinsics and extrinsics of the depth
// camera. It is immutable after a successful decode and safe to share
// across goroutines.
type Parameters struct {
	Rmax     float32
	Kc       [3][3]float32 // IR camera intrinsic matrix
	Distc    [5]float32    // IR camera forward distortion
	Invdistc [5]float32    // IR camera inverse distortion
	Pp       [3][4]float32 // projection matrix
	Kp       [3][3]float32 // projector intrinsic matrix
	Rp       [3][3]float32 // projector extrinsic rotation
	Tp       [3]float32    // projector translation
	Distp    [5]float32    // projector forward distortion
	Invdistp [5]float32    // projector inverse distortion
	Pt       [3][4]float32 // IR to RGB transformation matrix
	Kt       [3][3]float32
	Rt       [3][3]float32
	Tt       [3]float32
	Distt    [5]float32 // RGB camera forward distortion
	Invdistt [5]float32 // RGB camera inverse distortion
	QV       [6]float32
}

// TemperatureData is one sample of the device's temperature sensors.
type TemperatureData struct {
	LiguriaTemp float32
	IRTemp      float32
	AmbientTemp float32
}

// ThermalLoopParams tunes the firmware's thermal compensation loop.
type ThermalLoopParams struct {
	IRThermalLoopEnable float32
	TimeOutA            float32
	TimeOutB            float32
	TimeOutC            float32
	TransitionTemp      float32
	TempThreshold       float32
	HFOVsensitivity     float32
	FcxSlopeA           float32
	FcxSlopeB           float32
	FcxSlopeC           float32
	FcxOffset           float32
	UxSlopeA            float32
	UxSlopeB            float32
	UxSlopeC            float32
	UxOffset            float32
	LiguriaTempWeight   float32
	AmbientTempWeight   float32
	Param1              float32
	Param2              float32
	Param3              float32
	Param4              float32
	Param5              float32
}

// TesterData is the per-unit factory metadata appended to versioned
// calibration tables. Legacy tables carry only the header bytes; the
// thermal fields stay zero.
type TesterData struct {
	TableValidation [2]byte
	TableVersion    [2]byte
	Temperature     TemperatureData
	ThermalLoop     ThermalLoopParams
}

// ThermalInit is the payload handed to the thermal-loop initializer.
type ThermalInit struct {
	Temperature TemperatureData
	ThermalLoop ThermalLoopParams
}

// Blob is one decoded calibration table.
type Blob struct {
	Version int
	Params  Parameters
	Tester  TesterData
}

// ThermalInit returns the thermal-loop initialization data. It reports
// false for legacy tables, which carry no tester region.
func (b *Blob) ThermalInit() (*ThermalInit, bool) {
	if b.Version <= MinSupportedVersion {
		return nil, false
	}
	return &ThermalInit{Temperature: b.Tester.Temperature, ThermalLoop: b.Tester.ThermalLoop}, true
}

// bcdToInt decodes BCD bytes, one decimal digit per byte, most significant
// first.
func bcdToInt(buf []byte) int {
	r := 0
	for _, b := range buf {
		r = r*10 + int(b)
	}
	return r
}

// versionOf returns the table version, or 0 when the validation bytes do
// not match the sentinel.
func versionOf(validation, version []byte) int {
	if !bytes.Equal(validation, validationSentinel[:]) {
		return 0
	}
	return bcdToInt(version)
}

// DecodeBlob interprets a raw calibration table as returned by the
// GetCalibrationTable command, opcode echo prefix included. The version tag
// embedded in the table header selects the layout; tables older than
// MinSupportedVersion or with a bad validation sentinel are rejected.
func DecodeBlob(raw []byte) (*Blob, error) {
	if len(raw) < fetchPrefixSize+HeaderSize {
		return nil, ErrBlobTooShort
	}
	body := raw[fetchPrefixSize:]
	ver := versionOf(body[0:2], body[2:4])
	switch {
	case ver == MinSupportedVersion:
		return decodeLegacy(ver, body)
	case ver > MinSupportedVersion:
		return decodeVersioned(ver, body)
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, ver)
	}
}

// decodeLegacy reads the table as a dense float array. The parameter block
// starts one float in, after the validation and version bytes; there is no
// tester region beyond the header.
func decodeLegacy(ver int, body []byte) (*Blob, error) {
	b := &Blob{Version: ver}
	if err := decodeTruncated(&b.Params, body[HeaderSize:]); err != nil {
		return nil, err
	}
	copy(b.Tester.TableValidation[:], body[0:2])
	copy(b.Tester.TableVersion[:], body[2:4])
	return b, nil
}

// decodeVersioned reads the table as a version-prefixed struct. Short
// buffers zero-fill the tail of the parameter block rather than failing;
// this mirrors the firmware's own truncating copy for partial payloads.
func decodeVersioned(ver int, body []byte) (*Blob, error) {
	b := &Blob{Version: ver}
	size := HeaderSize + parametersByteSize
	if len(body) < size {
		size = len(body)
	}
	if err := decodeTruncated(&b.Params, body[HeaderSize:size]); err != nil {
		return nil, err
	}
	copy(b.Tester.TableValidation[:], body[0:2])
	copy(b.Tester.TableVersion[:], body[2:4])

	// Tester data sits at a fixed offset past the reserved parameter block.
	scratch := make([]byte, temperatureByteSize+thermalLoopByteSize)
	if off := ParamBlockSize + HeaderSize; off < len(body) {
		copy(scratch, body[off:])
	}
	b.Tester.Temperature.unmarshal(scratch[0:temperatureByteSize])
	b.Tester.ThermalLoop.unmarshal(scratch[temperatureByteSize:])
	return b, nil
}

// decodeTruncated unmarshals a possibly short parameter block, zero-filling
// whatever the buffer does not cover.
func decodeTruncated(p *Parameters, buf []byte) error {
	scratch := make([]byte, parametersByteSize)
	copy(scratch, buf)
	return p.UnmarshalBinary(scratch)
}

type floatDecoder struct {
	buf []byte
	off int
}

func (d *floatDecoder) f32() float32 {
	v := math.Float32frombits(binary.LittleEndian.Uint32(d.buf[d.off:]))
	d.off += 4
	return v
}

func (d *floatDecoder) floats(dst []float32) {
	for i := range dst {
		dst[i] = d.f32()
	}
}

type floatEncoder struct {
	buf []byte
	off int
}

func (e *floatEncoder) f32(v float32) {
	binary.LittleEndian.PutUint32(e.buf[e.off:], math.Float32bits(v))
	e.off += 4
}

func (e *floatEncoder) floats(src []float32) {
	for _, v := range src {
		e.f32(v)
	}
}

func (p *Parameters) UnmarshalBinary(buf []byte) error {
	if len(buf) < parametersByteSize {
		return ErrShortParameters
	}
	d := floatDecoder{buf: buf}
	p.Rmax = d.f32()
	for i := range p.Kc {
		d.floats(p.Kc[i][:])
	}
	d.floats(p.Distc[:])
	d.floats(p.Invdistc[:])
	for i := range p.Pp {
		d.floats(p.Pp[i][:])
	}
	for i := range p.Kp {
		d.floats(p.Kp[i][:])
	}
	for i := range p.Rp {
		d.floats(p.Rp[i][:])
	}
	d.floats(p.Tp[:])
	d.floats(p.Distp[:])
	d.floats(p.Invdistp[:])
	for i := range p.Pt {
		d.floats(p.Pt[i][:])
	}
	for i := range p.Kt {
		d.floats(p.Kt[i][:])
	}
	for i := range p.Rt {
		d.floats(p.Rt[i][:])
	}
	d.floats(p.Tt[:])
	d.floats(p.Distt[:])
	d.floats(p.Invdistt[:])
	d.floats(p.QV[:])
	return nil
}

func (p *Parameters) MarshalInto(buf []byte) error {
	if len(buf) < parametersByteSize {
		return ErrShortParameters
	}
	e := floatEncoder{buf: buf}
	e.f32(p.Rmax)
	for i := range p.Kc {
		e.floats(p.Kc[i][:])
	}
	e.floats(p.Distc[:])
	e.floats(p.Invdistc[:])
	for i := range p.Pp {
		e.floats(p.Pp[i][:])
	}
	for i := range p.Kp {
		e.floats(p.Kp[i][:])
	}
	for i := range p.Rp {
		e.floats(p.Rp[i][:])
	}
	e.floats(p.Tp[:])
	e.floats(p.Distp[:])
	e.floats(p.Invdistp[:])
	for i := range p.Pt {
		e.floats(p.Pt[i][:])
	}
	for i := range p.Kt {
		e.floats(p.Kt[i][:])
	}
	for i := range p.Rt {
		e.floats(p.Rt[i][:])
	}
	e.floats(p.Tt[:])
	e.floats(p.Distt[:])
	e.floats(p.Invdistt[:])
	e.floats(p.QV[:])
	return nil
}

func (p *Parameters) MarshalBinary() ([]byte, error) {
	buf := make([]byte, parametersByteSize)
	return buf, p.MarshalInto(buf)
}

func (t *TemperatureData) unmarshal(buf []byte) {
	d := floatDecoder{buf: buf}
	t.LiguriaTemp = d.f32()
	t.IRTemp = d.f32()
	t.AmbientTemp = d.f32()
}

func (t *TemperatureData) marshalInto(buf []byte) {
	e := floatEncoder{buf: buf}
	e.f32(t.LiguriaTemp)
	e.f32(t.IRTemp)
	e.f32(t.AmbientTemp)
}

func (l *ThermalLoopParams) unmarshal(buf []byte) {
	d := floatDecoder{buf: buf}
	l.IRThermalLoopEnable = d.f32()
	l.TimeOutA = d.f32()
	l.TimeOutB = d.f32()
	l.TimeOutC = d.f32()
	l.TransitionTemp = d.f32()
	l.TempThreshold = d.f32()
	l.HFOVsensitivity = d.f32()
	l.FcxSlopeA = d.f32()
	l.FcxSlopeB = d.f32()
	l.FcxSlopeC = d.f32()
	l.FcxOffset = d.f32()
	l.UxSlopeA = d.f32()
	l.UxSlopeB = d.f32()
	l.UxSlopeC = d.f32()
	l.UxOffset = d.f32()
	l.LiguriaTempWeight = d.f32()
	l.AmbientTempWeight = d.f32()
	l.Param1 = d.f32()
	l.Param2 = d.f32()
	l.Param3 = d.f32()
	l.Param4 = d.f32()
	l.Param5 = d.f32()
}

func (l *ThermalLoopParams) marshalInto(buf []byte) {
	e := floatEncoder{buf: buf}
	e.f32(l.IRThermalLoopEnable)
	e.f32(l.TimeOutA)
	e.f32(l.TimeOutB)
	e.f32(l.TimeOutC)
	e.f32(l.TransitionTemp)
	e.f32(l.TempThreshold)
	e.f32(l.HFOVsensitivity)
	e.f32(l.FcxSlopeA)
	e.f32(l.FcxSlopeB)
	e.f32(l.FcxSlopeC)
	e.f32(l.FcxOffset)
	e.f32(l.UxSlopeA)
	e.f32(l.UxSlopeB)
	e.f32(l.UxSlopeC)
	e.f32(l.UxOffset)
	e.f32(l.LiguriaTempWeight)
	e.f32(l.AmbientTempWeight)
	e.f32(l.Param1)
	e.f32(l.Param2)
	e.f32(l.Param3)
	e.f32(l.Param4)
	e.f32(l.Param5)
}
