package ivcam

import "errors"

var (
	ErrTransportOpenFailed    = errors.New("ivcam: transport open failed")
	ErrInterfaceClaimFailed   = errors.New("ivcam: monitor interface claim failed")
	ErrInterfaceNotClaimed    = errors.New("ivcam: monitor interface not claimed")
	ErrTransportBusy          = errors.New("ivcam: transport busy")
	ErrTransportWriteFailed   = errors.New("ivcam: bulk write failed")
	ErrTransportReadFailed    = errors.New("ivcam: bulk read failed")
	ErrTransportShortRead     = errors.New("ivcam: short read")
	ErrResponseBufferTooSmall = errors.New("ivcam: response exceeds receive capacity")
	ErrCalibrationFetchFailed = errors.New("ivcam: calibration table fetch failed")
	ErrNotImplemented         = errors.New("ivcam: not implemented")
	ErrClosed                 = errors.New("ivcam: device closed")
)
