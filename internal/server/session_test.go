package server

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"golang.org/x/sys/unix"
)

func testSocketpair(t *testing.T) (int, int) {
	t.Helper()
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	require.NoError(t, err)
	return fds[0], fds[1]
}

func TestSessionTableAddRelease(t *testing.T) {
	table := newSessionTable(4)
	serverFD, clientFD := testSocketpair(t)
	defer unix.Close(clientFD)

	s, err := table.add(serverFD)
	require.NoError(t, err)
	assert.Equal(t, stateConnected, s.state)
	assert.Same(t, s, table.byFD(serverFD))
	assert.Equal(t, 1, table.len())

	table.release(s)
	assert.Equal(t, stateDisconnected, s.state)
	assert.Equal(t, -1, s.fd)
	assert.Nil(t, table.byFD(serverFD))
	assert.Equal(t, 0, table.len())
}

func TestSessionTableCapacity(t *testing.T) {
	table := newSessionTable(2)

	var clientFDs []int
	for i := 0; i < 2; i++ {
		serverFD, clientFD := testSocketpair(t)
		clientFDs = append(clientFDs, clientFD)
		_, err := table.add(serverFD)
		require.NoError(t, err)
	}
	defer func() {
		table.releaseAll()
		for _, fd := range clientFDs {
			unix.Close(fd)
		}
	}()

	serverFD, clientFD := testSocketpair(t)
	defer unix.Close(serverFD)
	defer unix.Close(clientFD)

	_, err := table.add(serverFD)
	require.ErrorIs(t, err, errNoFreeSlot)
	assert.Equal(t, 2, table.len())
}

func TestSessionTableReleaseIdempotent(t *testing.T) {
	table := newSessionTable(4)
	serverFD, clientFD := testSocketpair(t)
	defer unix.Close(clientFD)

	s, err := table.add(serverFD)
	require.NoError(t, err)

	table.release(s)
	table.release(s)
	assert.Equal(t, 0, table.len())
}

func TestSessionTableReleaseResetsBuffer(t *testing.T) {
	table := newSessionTable(4)
	serverFD, clientFD := testSocketpair(t)
	defer unix.Close(clientFD)

	s, err := table.add(serverFD)
	require.NoError(t, err)

	s.buf.advance(10)
	s.buf.expected = 20

	table.release(s)
	assert.Equal(t, 0, s.buf.used)
	assert.Equal(t, 0, s.buf.expected)
}
