package server

import (
	"errors"

	"golang.org/x/sys/unix"

	"github.com/marmos91/recorddb/internal/logger"
)

// sessionState is the per-connection protocol state.
type sessionState int

const (
	// stateConnected: accepted, handshake not yet done. Only HelloReq is
	// legal here.
	stateConnected sessionState = iota

	// stateReady: handshake complete, business messages accepted.
	stateReady

	// stateDisconnected: slot released.
	stateDisconnected
)

func (s sessionState) String() string {
	switch s {
	case stateConnected:
		return "CONNECTED"
	case stateReady:
		return "READY_FOR_MSG"
	case stateDisconnected:
		return "DISCONNECTED"
	default:
		return "UNKNOWN"
	}
}

// session holds one accepted client: its socket, protocol state, and the
// receive buffer with framing progress. Owned exclusively by the session
// table.
type session struct {
	fd    int
	state sessionState
	buf   recvBuffer
}

// errNoFreeSlot reports that the session table is at capacity. The new
// connection is accepted and immediately closed; existing sessions are
// untouched.
var errNoFreeSlot = errors.New("session table full")

// sessionTable tracks live sessions keyed by socket fd, bounded by a
// fixed capacity.
type sessionTable struct {
	capacity int
	sessions map[int]*session
}

func newSessionTable(capacity int) *sessionTable {
	return &sessionTable{
		capacity: capacity,
		sessions: make(map[int]*session, capacity),
	}
}

// add registers a freshly accepted socket in CONNECTED state.
func (t *sessionTable) add(fd int) (*session, error) {
	if len(t.sessions) >= t.capacity {
		return nil, errNoFreeSlot
	}
	s := &session{fd: fd, state: stateConnected}
	t.sessions[fd] = s
	return s, nil
}

// byFD returns the session for fd, or nil.
func (t *sessionTable) byFD(fd int) *session {
	return t.sessions[fd]
}

// release closes the session's socket, marks it disconnected, zeroes its
// framing markers, and frees the slot.
func (t *sessionTable) release(s *session) {
	if s.state == stateDisconnected {
		return
	}
	logger.Debug("Closing connection fd=%d", s.fd)
	if err := unix.Close(s.fd); err != nil {
		logger.Warn("Close fd=%d: %v", s.fd, err)
	}
	delete(t.sessions, s.fd)
	s.state = stateDisconnected
	s.buf.reset()
	s.fd = -1
}

// releaseAll tears down every live session.
func (t *sessionTable) releaseAll() {
	for _, s := range t.sessions {
		t.release(s)
	}
}

// len returns the number of live sessions.
func (t *sessionTable) len() int {
	return len(t.sessions)
}

// fds returns the live socket fds, for building the poll set.
func (t *sessionTable) fds() []int {
	out := make([]int, 0, len(t.sessions))
	for fd := range t.sessions {
		out = append(out, fd)
	}
	return out
}
