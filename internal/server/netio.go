package server

import (
	"errors"
	"fmt"

	"golang.org/x/sys/unix"
)

// ErrPeerClosed reports a zero-byte transfer: the peer closed the
// connection. Transfer errors tear the session down silently; no error
// frame is possible once the transport has failed.
var ErrPeerClosed = errors.New("peer closed connection")

// SendFull writes all of buf to fd, retrying on short writes and EINTR.
// It is blocking and must only be used where the caller knows the peer is
// ready; the reactor's streaming read path never goes through it.
func SendFull(fd int, buf []byte) error {
	sent := 0
	for sent < len(buf) {
		n, err := unix.Write(fd, buf[sent:])
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return fmt.Errorf("send: %w", err)
		}
		if n == 0 {
			return fmt.Errorf("send: %w", ErrPeerClosed)
		}
		sent += n
	}
	return nil
}

// RecvFull reads exactly len(buf) bytes from fd, retrying on short reads
// and EINTR. Same blocking contract as SendFull.
func RecvFull(fd int, buf []byte) error {
	received := 0
	for received < len(buf) {
		n, err := unix.Read(fd, buf[received:])
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return fmt.Errorf("recv: %w", err)
		}
		if n == 0 {
			return fmt.Errorf("recv: %w", ErrPeerClosed)
		}
		received += n
	}
	return nil
}
