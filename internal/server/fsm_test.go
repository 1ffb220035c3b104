package server

import (
	"encoding/binary"
	"io"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"github.com/marmos91/recorddb/internal/protocol"
	"github.com/marmos91/recorddb/pkg/store"
)

// harness wires a machine to a session table over socketpairs, so the
// state machine runs exactly as it does under the reactor but without
// real sockets or polling.
type harness struct {
	table    *store.Table
	sessions *sessionTable
	machine  *machine
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	table := store.NewTable()
	sessions := newSessionTable(8)
	return &harness{
		table:    table,
		sessions: sessions,
		machine:  newMachine(table, sessions),
	}
}

// connect creates a session over a socketpair. The server-side fd is
// nonblocking so draining calls to onReadable return instead of hanging.
func (h *harness) connect(t *testing.T) (*session, *os.File) {
	t.Helper()
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	require.NoError(t, err)
	require.NoError(t, unix.SetNonblock(fds[0], true))

	s, err := h.sessions.add(fds[0])
	require.NoError(t, err)

	client := os.NewFile(uintptr(fds[1]), "client")
	t.Cleanup(func() {
		client.Close()
		if s.state != stateDisconnected {
			h.sessions.release(s)
		}
	})
	return s, client
}

// deliver writes bytes from the client side and lets the machine drain
// them.
func (h *harness) deliver(t *testing.T, s *session, client *os.File, b []byte) {
	t.Helper()
	_, err := client.Write(b)
	require.NoError(t, err)
	h.drain(s)
}

// drain invokes onReadable a few times; surplus calls hit EAGAIN on the
// nonblocking fd and return without effect.
func (h *harness) drain(s *session) {
	for i := 0; i < 4 && s.state != stateDisconnected; i++ {
		h.machine.onReadable(s)
	}
}

func readFrame(t *testing.T, client *os.File) (protocol.MsgType, []byte) {
	t.Helper()
	hdr := make([]byte, protocol.HeaderSize)
	_, err := io.ReadFull(client, hdr)
	require.NoError(t, err)

	typ, length, err := protocol.DecodeHeader(hdr)
	require.NoError(t, err)

	payload := make([]byte, length)
	_, err = io.ReadFull(client, payload)
	require.NoError(t, err)
	return typ, payload
}

func handshake(t *testing.T, h *harness, s *session, client *os.File) {
	t.Helper()
	h.deliver(t, s, client, protocol.EncodeHello(protocol.MsgHelloReq, protocol.Version))

	typ, payload := readFrame(t, client)
	require.Equal(t, protocol.MsgHelloResp, typ)

	version, err := protocol.DecodeHelloPayload(payload)
	require.NoError(t, err)
	require.Equal(t, protocol.Version, version)
	require.Equal(t, stateReady, s.state)
}

func TestScenarioHelloAddList(t *testing.T) {
	h := newHarness(t)
	s, client := h.connect(t)

	handshake(t, h, s, client)

	addFrame, err := protocol.EncodeAddReq("Alice-123 Main St-40")
	require.NoError(t, err)
	h.deliver(t, s, client, addFrame)

	typ, payload := readFrame(t, client)
	require.Equal(t, protocol.MsgEmployeeAddResp, typ)
	status, err := protocol.DecodeStatusPayload(payload)
	require.NoError(t, err)
	assert.Equal(t, protocol.StatusSuccess, status)

	h.deliver(t, s, client, protocol.EncodeHeader(protocol.MsgEmployeeListReq, 0))

	typ, payload = readFrame(t, client)
	require.Equal(t, protocol.MsgEmployeeListResp, typ)
	count, err := protocol.DecodeListCountPayload(payload)
	require.NoError(t, err)
	require.Equal(t, uint16(1), count)

	recBuf := make([]byte, protocol.RecordSize)
	_, err = io.ReadFull(client, recBuf)
	require.NoError(t, err)

	rec, err := protocol.DecodeRecord(recBuf)
	require.NoError(t, err)
	assert.Equal(t, protocol.Record{Name: "Alice", Address: "123 Main St", Hours: 40}, rec)
}

// TestChunkingInvariance delivers the same message sequence split at
// every chunk size and expects byte-identical replies each time.
func TestChunkingInvariance(t *testing.T) {
	addFrame, err := protocol.EncodeAddReq("Bob-9 Side Rd-20")
	require.NoError(t, err)

	var stream []byte
	stream = append(stream, protocol.EncodeHello(protocol.MsgHelloReq, protocol.Version)...)
	stream = append(stream, addFrame...)
	stream = append(stream, protocol.EncodeHeader(protocol.MsgEmployeeListReq, 0)...)

	replyLen := (protocol.HeaderSize + protocol.HelloPayloadSize) +
		(protocol.HeaderSize + protocol.StatusPayloadSize) +
		(protocol.HeaderSize + protocol.ListCountPayloadSize) + protocol.RecordSize

	run := func(t *testing.T, chunkSize int) []byte {
		h := newHarness(t)
		s, client := h.connect(t)

		for off := 0; off < len(stream); off += chunkSize {
			end := off + chunkSize
			if end > len(stream) {
				end = len(stream)
			}
			h.deliver(t, s, client, stream[off:end])
		}
		require.Equal(t, stateReady, s.state)

		reply := make([]byte, replyLen)
		_, err := io.ReadFull(client, reply)
		require.NoError(t, err)
		return reply
	}

	want := run(t, len(stream))
	for _, chunkSize := range []int{1, 2, 3, 5, 7, 16, 64, 515, 1023} {
		got := run(t, chunkSize)
		assert.Equal(t, want, got, "chunk size %d", chunkSize)
	}
}

func TestStateGatingDisconnectsWithoutHandshake(t *testing.T) {
	h := newHarness(t)

	// A second, well-behaved session must survive the first one's abuse.
	bystander, bystanderClient := h.connect(t)
	offender, offenderClient := h.connect(t)

	h.deliver(t, offender, offenderClient, protocol.EncodeHeader(protocol.MsgEmployeeListReq, 0))

	typ, _ := readFrame(t, offenderClient)
	assert.Equal(t, protocol.MsgError, typ)
	assert.Equal(t, stateDisconnected, offender.state)

	// Server closed its end: the client sees EOF next.
	one := make([]byte, 1)
	_, err := offenderClient.Read(one)
	assert.ErrorIs(t, err, io.EOF)

	handshake(t, h, bystander, bystanderClient)
}

func TestOversizedPayloadRejected(t *testing.T) {
	h := newHarness(t)
	s, client := h.connect(t)
	handshake(t, h, s, client)

	hdr := make([]byte, protocol.HeaderSize)
	binary.BigEndian.PutUint32(hdr[0:4], uint32(protocol.MsgEmployeeAddReq))
	binary.BigEndian.PutUint16(hdr[4:6], protocol.BufferSize)
	h.deliver(t, s, client, hdr)

	typ, _ := readFrame(t, client)
	assert.Equal(t, protocol.MsgError, typ)
	assert.Equal(t, stateDisconnected, s.state)
}

func TestUnknownTypeRejected(t *testing.T) {
	h := newHarness(t)
	s, client := h.connect(t)
	handshake(t, h, s, client)

	hdr := make([]byte, protocol.HeaderSize)
	binary.BigEndian.PutUint32(hdr[0:4], 0xff)
	h.deliver(t, s, client, hdr)

	typ, _ := readFrame(t, client)
	assert.Equal(t, protocol.MsgError, typ)
	assert.Equal(t, stateDisconnected, s.state)
}

func TestHelloVersionMismatch(t *testing.T) {
	h := newHarness(t)
	s, client := h.connect(t)

	h.deliver(t, s, client, protocol.EncodeHello(protocol.MsgHelloReq, protocol.Version+1))

	typ, _ := readFrame(t, client)
	assert.Equal(t, protocol.MsgError, typ)
	assert.Equal(t, stateDisconnected, s.state)
}

func TestBadAddStringKeepsConnection(t *testing.T) {
	h := newHarness(t)
	s, client := h.connect(t)
	handshake(t, h, s, client)

	addFrame, err := protocol.EncodeAddReq("not a valid add string")
	require.NoError(t, err)
	h.deliver(t, s, client, addFrame)

	typ, payload := readFrame(t, client)
	require.Equal(t, protocol.MsgEmployeeAddResp, typ)
	status, err := protocol.DecodeStatusPayload(payload)
	require.NoError(t, err)
	assert.Equal(t, protocol.StatusError, status)
	assert.Equal(t, uint16(0), h.table.Count())

	// The session survived a business error and still works.
	require.Equal(t, stateReady, s.state)
	addFrame, err = protocol.EncodeAddReq("Carol-1 Loop-10")
	require.NoError(t, err)
	h.deliver(t, s, client, addFrame)

	typ, payload = readFrame(t, client)
	require.Equal(t, protocol.MsgEmployeeAddResp, typ)
	status, err = protocol.DecodeStatusPayload(payload)
	require.NoError(t, err)
	assert.Equal(t, protocol.StatusSuccess, status)
	assert.Equal(t, uint16(1), h.table.Count())
}

func TestRemoveOnEmptyTable(t *testing.T) {
	h := newHarness(t)
	s, client := h.connect(t)
	handshake(t, h, s, client)

	h.deliver(t, s, client, protocol.EncodeHeader(protocol.MsgEmployeeDelReq, 0))

	typ, payload := readFrame(t, client)
	require.Equal(t, protocol.MsgEmployeeDelResp, typ)
	status, err := protocol.DecodeStatusPayload(payload)
	require.NoError(t, err)
	assert.Equal(t, protocol.StatusError, status)
	assert.Equal(t, uint16(0), h.table.Count())
	assert.Equal(t, stateReady, s.state)
}

func TestListRequestWithPayloadRejected(t *testing.T) {
	h := newHarness(t)
	s, client := h.connect(t)
	handshake(t, h, s, client)

	frame := protocol.EncodeHeader(protocol.MsgEmployeeListReq, 4)
	frame = append(frame, 1, 2, 3, 4)
	h.deliver(t, s, client, frame)

	typ, _ := readFrame(t, client)
	assert.Equal(t, protocol.MsgError, typ)
	assert.Equal(t, stateDisconnected, s.state)
}
