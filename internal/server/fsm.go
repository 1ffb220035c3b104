package server

import (
	"github.com/marmos91/recorddb/internal/logger"
	"github.com/marmos91/recorddb/internal/protocol"
	"github.com/marmos91/recorddb/pkg/store"

	"golang.org/x/sys/unix"
)

// machine drives the per-connection protocol state machine: it pulls
// newly available bytes into the session buffer, reassembles frames
// across arbitrary chunk boundaries, and dispatches complete messages.
// All invocations happen on the reactor goroutine.
type machine struct {
	table    *store.Table
	sessions *sessionTable
}

func newMachine(table *store.Table, sessions *sessionTable) *machine {
	return &machine{table: table, sessions: sessions}
}

// onReadable handles one readiness report for s: a single read into the
// session buffer, then as many complete frames as the buffer now holds.
// A zero-byte read or socket error tears down this session only.
func (m *machine) onReadable(s *session) {
	if len(s.buf.writable()) > 0 {
		n, err := readRetry(s.fd, s.buf.writable())
		if err == unix.EAGAIN {
			return
		}
		if err != nil {
			logger.Debug("Read fd=%d: %v", s.fd, err)
			m.sessions.release(s)
			return
		}
		if n == 0 {
			logger.Debug("Client fd=%d disconnected", s.fd)
			m.sessions.release(s)
			return
		}
		s.buf.advance(n)
	}

	m.processBuffered(s)
}

// readRetry reads once, retrying only on EINTR.
func readRetry(fd int, buf []byte) (int, error) {
	for {
		n, err := unix.Read(fd, buf)
		if err != unix.EINTR {
			return n, err
		}
	}
}

// processBuffered consumes complete frames from the session buffer until
// it holds at most a partial frame. Waiting for more bytes is the normal
// case, not an error.
func (m *machine) processBuffered(s *session) {
	for s.buf.hasHeader() && s.state != stateDisconnected {
		if s.buf.expected == 0 {
			_, payloadLen, err := protocol.DecodeHeader(s.buf.buffered())
			if err != nil {
				logger.Warn("Client fd=%d: %v", s.fd, err)
				m.replyError(s)
				return
			}
			s.buf.expected = protocol.HeaderSize + int(payloadLen)
		}

		if !s.buf.frameComplete() {
			return
		}

		frame := s.buf.buffered()[:s.buf.expected]
		typ, _, _ := protocol.DecodeHeader(frame)
		payload := frame[protocol.HeaderSize:]

		logger.Debug("Client fd=%d (%s) received %s, %d byte payload",
			s.fd, s.state, typ, len(payload))

		m.dispatch(s, typ, payload)
		if s.state == stateDisconnected {
			return
		}
		s.buf.consumeFrame()
	}
}

// dispatch routes one complete frame through the state/type table.
func (m *machine) dispatch(s *session, typ protocol.MsgType, payload []byte) {
	switch s.state {
	case stateConnected:
		if typ != protocol.MsgHelloReq {
			logger.Warn("Client fd=%d: %s before handshake", s.fd, typ)
			m.replyError(s)
			return
		}
		m.handleHello(s, payload)

	case stateReady:
		switch typ {
		case protocol.MsgEmployeeAddReq:
			m.handleAdd(s, payload)
		case protocol.MsgEmployeeListReq:
			m.handleList(s, payload)
		case protocol.MsgEmployeeDelReq:
			m.handleRemove(s, payload)
		default:
			logger.Warn("Client fd=%d: unexpected %s in %s", s.fd, typ, s.state)
			m.replyError(s)
		}

	default:
		logger.Error("Client fd=%d in unexpected state %s", s.fd, s.state)
		m.replyError(s)
	}
}

// handleHello validates the handshake version, replies with the server's
// version, and promotes the session to READY_FOR_MSG.
func (m *machine) handleHello(s *session, payload []byte) {
	version, err := protocol.DecodeHelloPayload(payload)
	if err != nil {
		logger.Warn("Client fd=%d: %v", s.fd, err)
		m.replyError(s)
		return
	}
	if version != protocol.Version {
		logger.Warn("Client fd=%d: %v: got %d, want %d",
			s.fd, protocol.ErrVersionMismatch, version, protocol.Version)
		m.replyError(s)
		return
	}

	if err := SendFull(s.fd, protocol.EncodeHello(protocol.MsgHelloResp, protocol.Version)); err != nil {
		logger.Debug("Client fd=%d: hello reply: %v", s.fd, err)
		m.sessions.release(s)
		return
	}

	s.state = stateReady
	logger.Debug("Client fd=%d upgraded to %s", s.fd, s.state)
}

// replyError sends the error frame best-effort and releases the session.
// Protocol errors always cost the offending connection, never others.
func (m *machine) replyError(s *session) {
	if err := SendFull(s.fd, protocol.EncodeErrorFrame()); err != nil {
		logger.Debug("Client fd=%d: error reply: %v", s.fd, err)
	}
	m.sessions.release(s)
}
