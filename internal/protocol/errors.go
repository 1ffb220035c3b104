package protocol

import "errors"

// Protocol errors terminate the offending connection (after a best-effort
// MsgError frame); they never affect other sessions.
var (
	// ErrUnknownType reports a frame header whose type is outside the
	// known enumeration.
	ErrUnknownType = errors.New("unknown message type")

	// ErrOversizedPayload reports a header declaring header+payload
	// larger than the receive buffer capacity.
	ErrOversizedPayload = errors.New("payload exceeds buffer capacity")

	// ErrPayloadSize reports a payload whose length does not match the
	// fixed shape of its message type.
	ErrPayloadSize = errors.New("payload size mismatch")

	// ErrVersionMismatch reports a Hello carrying a protocol version
	// other than Version.
	ErrVersionMismatch = errors.New("protocol version mismatch")

	// ErrFieldTooLong reports a record field that does not fit its
	// fixed width (one byte is reserved for NUL termination).
	ErrFieldTooLong = errors.New("field exceeds fixed width")
)
