package server

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"golang.org/x/sys/unix"
)

func TestSendRecvFullRoundTrip(t *testing.T) {
	serverFD, clientFD := testSocketpair(t)
	defer unix.Close(serverFD)
	defer unix.Close(clientFD)

	payload := make([]byte, 10*1024)
	for i := range payload {
		payload[i] = byte(i)
	}

	done := make(chan error, 1)
	go func() {
		done <- SendFull(serverFD, payload)
	}()

	got := make([]byte, len(payload))
	require.NoError(t, RecvFull(clientFD, got))
	require.NoError(t, <-done)
	assert.Equal(t, payload, got)
}

func TestRecvFullPeerClosed(t *testing.T) {
	serverFD, clientFD := testSocketpair(t)
	defer unix.Close(clientFD)

	require.NoError(t, unix.Close(serverFD))

	buf := make([]byte, 4)
	err := RecvFull(clientFD, buf)
	assert.ErrorIs(t, err, ErrPeerClosed)
}
