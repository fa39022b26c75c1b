// Package commands implements the request framing and response parsing for
// the IVCAM monitor interface. Commands are exchanged as length-prefixed
// little-endian frames over the device's vendor-specific bulk endpoints.
package commands

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Opcode identifies a monitor command.
type Opcode uint32

const (
	OpcodeUpdateCalib         Opcode = 0xBC
	OpcodeGetIRTemp           Opcode = 0x52
	OpcodeGetMEMSTemp         Opcode = 0x0A
	OpcodeHWReset             Opcode = 0x28
	OpcodeGVD                 Opcode = 0x3B
	OpcodeBIST                Opcode = 0xFF
	OpcodeGoToDFU             Opcode = 0x80
	OpcodeGetCalibrationTable Opcode = 0x3D
	OpcodeDebugFormat         Opcode = 0x0B
	OpcodeTimestampEnable     Opcode = 0x0C
	OpcodeGetPowerGearState   Opcode = 0xFF
	OpcodeSetDefaultControls  Opcode = 0xA6
	OpcodeGetDefaultControls  Opcode = 0xA7
	OpcodeGetFWLastError      Opcode = 0x0E
	OpcodeCheckI2CConnect     Opcode = 0x4A
	OpcodeCheckRGBConnect     Opcode = 0x4B
	OpcodeCheckDPTConnect     Opcode = 0x4C
)

func (op Opcode) String() string {
	switch op {
	case OpcodeUpdateCalib:
		return "UpdateCalib"
	case OpcodeGetIRTemp:
		return "GetIRTemp"
	case OpcodeGetMEMSTemp:
		return "GetMEMSTemp"
	case OpcodeHWReset:
		return "HWReset"
	case OpcodeGVD:
		return "GVD"
	case OpcodeBIST:
		return "BIST"
	case OpcodeGoToDFU:
		return "GoToDFU"
	case OpcodeGetCalibrationTable:
		return "GetCalibrationTable"
	case OpcodeDebugFormat:
		return "DebugFormat"
	case OpcodeTimestampEnable:
		return "TimestampEnable"
	case OpcodeSetDefaultControls:
		return "SetDefaultControls"
	case OpcodeGetDefaultControls:
		return "GetDefaultControls"
	case OpcodeGetFWLastError:
		return "GetFWLastError"
	case OpcodeCheckI2CConnect:
		return "CheckI2CConnect"
	case OpcodeCheckRGBConnect:
		return "CheckRGBConnect"
	case OpcodeCheckDPTConnect:
		return "CheckDPTConnect"
	default:
		return fmt.Sprintf("Opcode(0x%02X)", uint32(op))
	}
}

const (
	// Magic is the sentinel written after the length prefix of every request.
	Magic uint16 = 0xCDAB

	// HeaderSize is the fixed request header: length+magic, opcode and four
	// 32-bit parameters.
	HeaderSize = 24

	// MaxBufferSize bounds a single request or response transfer.
	MaxBufferSize = 1024
)

var (
	ErrBufferTooSmall   = errors.New("commands: destination buffer too small")
	ErrPayloadTooLarge  = errors.New("commands: payload exceeds max transfer size")
	ErrRequestTooShort  = errors.New("commands: request shorter than fixed header")
	ErrBadMagic         = errors.New("commands: bad magic sentinel")
	ErrLengthMismatch   = errors.New("commands: length field does not match buffer")
	ErrResponseTooShort = errors.New("commands: response shorter than opcode echo")
)

// Request is one monitor command frame. The zero value of Params is valid;
// most commands carry no payload.
type Request struct {
	Opcode  Opcode
	Params  [4]uint32
	Payload []byte
}

// EncodedSize returns the total wire size of the request.
func (r *Request) EncodedSize() int {
	return HeaderSize + len(r.Payload)
}

// MarshalInto encodes the request into buf. It fails without writing
// anything if buf cannot hold the fixed header and payload.
func (r *Request) MarshalInto(buf []byte) error {
	total := r.EncodedSize()
	if total > MaxBufferSize {
		return ErrPayloadTooLarge
	}
	if len(buf) < HeaderSize || len(buf) < total {
		return ErrBufferTooSmall
	}
	// The length field excludes the leading 4-byte length+magic word.
	binary.LittleEndian.PutUint16(buf[0:2], uint16(total-4))
	binary.LittleEndian.PutUint16(buf[2:4], Magic)
	binary.LittleEndian.PutUint32(buf[4:8], uint32(r.Opcode))
	binary.LittleEndian.PutUint32(buf[8:12], r.Params[0])
	binary.LittleEndian.PutUint32(buf[12:16], r.Params[1])
	binary.LittleEndian.PutUint32(buf[16:20], r.Params[2])
	binary.LittleEndian.PutUint32(buf[20:24], r.Params[3])
	copy(buf[HeaderSize:total], r.Payload)
	return nil
}

func (r *Request) MarshalBinary() ([]byte, error) {
	buf := make([]byte, r.EncodedSize())
	return buf, r.MarshalInto(buf)
}

// UnmarshalBinary decodes an encoded request, validating the magic sentinel
// and the length prefix against the buffer size.
func (r *Request) UnmarshalBinary(buf []byte) error {
	if len(buf) < HeaderSize {
		return ErrRequestTooShort
	}
	if binary.LittleEndian.Uint16(buf[2:4]) != Magic {
		return ErrBadMagic
	}
	if int(binary.LittleEndian.Uint16(buf[0:2])) != len(buf)-4 {
		return ErrLengthMismatch
	}
	r.Opcode = Opcode(binary.LittleEndian.Uint32(buf[4:8]))
	r.Params[0] = binary.LittleEndian.Uint32(buf[8:12])
	r.Params[1] = binary.LittleEndian.Uint32(buf[12:16])
	r.Params[2] = binary.LittleEndian.Uint32(buf[16:20])
	r.Params[3] = binary.LittleEndian.Uint32(buf[20:24])
	r.Payload = append(r.Payload[:0], buf[HeaderSize:]...)
	return nil
}

// Response is the device's reply to a monitor command: the echoed opcode
// followed by an opaque payload.
type Response struct {
	Opcode  uint32
	Payload []byte
}

// ParseResponse interprets raw transport bytes as a response frame.
func ParseResponse(buf []byte) (Response, error) {
	if len(buf) < 4 {
		return Response{}, ErrResponseTooShort
	}
	return Response{
		Opcode:  binary.LittleEndian.Uint32(buf[0:4]),
		Payload: buf[4:],
	}, nil
}
