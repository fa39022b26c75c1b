package ivcam

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/kevmo314/go-ivcam/pkg/commands"
)

// Session serializes access to the monitor interface. At most one
// request/response pair is in flight at a time: the exchange lock is held
// from the write until the response is fully consumed, so concurrent callers
// can never interleave their transfers.
type Session struct {
	transport   Transport
	endpointOut uint8
	endpointIn  uint8
	lockTimeout time.Duration
	ioTimeout   time.Duration
	sem         chan struct{}
	log         zerolog.Logger
}

// NewSession wraps a transport whose monitor interface has already been
// claimed.
func NewSession(transport Transport, opts ...Option) *Session {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return newSession(transport, cfg)
}

func newSession(transport Transport, cfg config) *Session {
	return &Session{
		transport:   transport,
		endpointOut: cfg.endpointOut,
		endpointIn:  cfg.endpointIn,
		lockTimeout: cfg.lockTimeout,
		ioTimeout:   cfg.transferTimeout,
		sem:         make(chan struct{}, 1),
		log:         cfg.log,
	}
}

// Execute performs one blocking request/response exchange. A nil recv means
// no response is expected. On success the response bytes, opcode echo
// included, are copied into recv and their count returned; a response larger
// than recv fails with ErrResponseBufferTooSmall and copies nothing. The
// exchange lock is released on every path.
func (s *Session) Execute(request, recv []byte) (int, error) {
	select {
	case s.sem <- struct{}{}:
	case <-time.After(s.lockTimeout):
		return 0, ErrTransportBusy
	}
	defer func() { <-s.sem }()

	n, err := s.transport.BulkTransfer(s.endpointOut, request, s.ioTimeout)
	if err != nil {
		s.log.Warn().Err(err).Msg("monitor bulk write failed")
		return 0, fmt.Errorf("%w: %v", ErrTransportWriteFailed, err)
	}
	if n < len(request) {
		return 0, fmt.Errorf("%w: wrote %d of %d bytes", ErrTransportWriteFailed, n, len(request))
	}
	if recv == nil {
		return 0, nil
	}

	buf := make([]byte, commands.MaxBufferSize)
	n, err = s.transport.BulkTransfer(s.endpointIn, buf, s.ioTimeout)
	if err != nil {
		s.log.Warn().Err(err).Msg("monitor bulk read failed")
		return 0, fmt.Errorf("%w: %v", ErrTransportReadFailed, err)
	}
	if n < 4 {
		return 0, fmt.Errorf("%w: %d bytes", ErrTransportShortRead, n)
	}
	if n > len(recv) {
		return 0, fmt.Errorf("%w: %d bytes for capacity %d", ErrResponseBufferTooSmall, n, len(recv))
	}
	copy(recv, buf[:n])
	return n, nil
}

// Command frames op with the given parameters and payload and executes it.
// A capacity of zero marks a fire-and-forget command; otherwise the raw
// response, opcode echo included, is returned. No retries are attempted at
// this layer.
func (s *Session) Command(op commands.Opcode, params [4]uint32, payload []byte, capacity int) ([]byte, error) {
	req := commands.Request{Opcode: op, Params: params, Payload: payload}
	buf, err := req.MarshalBinary()
	if err != nil {
		return nil, err
	}
	s.log.Debug().Stringer("opcode", op).Int("len", len(buf)).Msg("monitor command")
	if capacity <= 0 {
		_, err := s.Execute(buf, nil)
		return nil, err
	}
	recv := make([]byte, capacity)
	n, err := s.Execute(buf, recv)
	if err != nil {
		return nil, err
	}
	return recv[:n], nil
}
