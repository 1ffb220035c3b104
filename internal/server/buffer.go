package server

import "github.com/marmos91/recorddb/internal/protocol"

// recvBuffer is the per-session sliding window over the incoming byte
// stream. It tracks how many buffered bytes are valid and, once a header
// has been decoded, the total length of the frame being assembled
// (0 means only a header is being waited for). Consume/compact logic is
// centralized here so the state machine never touches raw offsets.
type recvBuffer struct {
	data     [protocol.BufferSize]byte
	used     int
	expected int
}

// writable returns the unused tail of the buffer for the next read.
func (b *recvBuffer) writable() []byte {
	return b.data[b.used:]
}

// advance marks n freshly read bytes as valid.
func (b *recvBuffer) advance(n int) {
	b.used += n
}

// buffered returns the valid prefix.
func (b *recvBuffer) buffered() []byte {
	return b.data[:b.used]
}

// hasHeader reports whether a full frame header is buffered.
func (b *recvBuffer) hasHeader() bool {
	return b.used >= protocol.HeaderSize
}

// frameComplete reports whether the frame whose expected length has been
// recorded is fully buffered.
func (b *recvBuffer) frameComplete() bool {
	return b.expected > 0 && b.used >= b.expected
}

// consumeFrame removes the current frame, shifts any leftover bytes to
// the front, and resets the expected-length marker for the next header.
func (b *recvBuffer) consumeFrame() {
	remaining := b.used - b.expected
	if remaining > 0 {
		copy(b.data[:], b.data[b.expected:b.used])
	}
	b.used = remaining
	b.expected = 0
}

// reset empties the buffer and clears the framing markers.
func (b *recvBuffer) reset() {
	b.used = 0
	b.expected = 0
}
