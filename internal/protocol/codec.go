package protocol

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// EncodeHeader returns the 6-byte wire encoding of a frame header.
func EncodeHeader(t MsgType, payloadLen uint16) []byte {
	buf := make([]byte, HeaderSize)
	binary.BigEndian.PutUint32(buf[0:4], uint32(t))
	binary.BigEndian.PutUint16(buf[4:6], payloadLen)
	return buf
}

// DecodeHeader parses a frame header from the start of b and validates it
// structurally: the type must be known and header+payload must fit the
// receive buffer. b must hold at least HeaderSize bytes.
func DecodeHeader(b []byte) (MsgType, uint16, error) {
	if len(b) < HeaderSize {
		return 0, 0, fmt.Errorf("decode header: need %d bytes, have %d", HeaderSize, len(b))
	}

	t := MsgType(binary.BigEndian.Uint32(b[0:4]))
	length := binary.BigEndian.Uint16(b[4:6])

	if !t.Valid() {
		return 0, 0, fmt.Errorf("decode header: type %d: %w", uint32(t), ErrUnknownType)
	}
	if HeaderSize+int(length) > BufferSize {
		return 0, 0, fmt.Errorf("decode header: %d byte payload: %w", length, ErrOversizedPayload)
	}

	return t, length, nil
}

// EncodeHello returns a complete Hello frame (request or response).
func EncodeHello(t MsgType, version uint16) []byte {
	buf := EncodeHeader(t, HelloPayloadSize)
	payload := make([]byte, HelloPayloadSize)
	binary.BigEndian.PutUint16(payload, version)
	return append(buf, payload...)
}

// DecodeHelloPayload extracts the protocol version from a Hello payload.
func DecodeHelloPayload(b []byte) (uint16, error) {
	if len(b) != HelloPayloadSize {
		return 0, fmt.Errorf("hello payload: %d bytes: %w", len(b), ErrPayloadSize)
	}
	return binary.BigEndian.Uint16(b), nil
}

// EncodeStatusResp returns a complete add/del response frame carrying a
// status code.
func EncodeStatusResp(t MsgType, status int32) []byte {
	buf := EncodeHeader(t, StatusPayloadSize)
	payload := make([]byte, StatusPayloadSize)
	binary.BigEndian.PutUint32(payload, uint32(status))
	return append(buf, payload...)
}

// DecodeStatusPayload extracts the status code from an add/del response
// payload.
func DecodeStatusPayload(b []byte) (int32, error) {
	if len(b) != StatusPayloadSize {
		return 0, fmt.Errorf("status payload: %d bytes: %w", len(b), ErrPayloadSize)
	}
	return int32(binary.BigEndian.Uint32(b)), nil
}

// EncodeListResp returns the leading frame of a list response, carrying
// the record count. The records themselves follow as RecordSize-byte
// units outside any frame header.
func EncodeListResp(count uint16) []byte {
	buf := EncodeHeader(MsgEmployeeListResp, ListCountPayloadSize)
	payload := make([]byte, ListCountPayloadSize)
	binary.BigEndian.PutUint16(payload, count)
	return append(buf, payload...)
}

// DecodeListCountPayload extracts the record count from a list response
// payload.
func DecodeListCountPayload(b []byte) (uint16, error) {
	if len(b) != ListCountPayloadSize {
		return 0, fmt.Errorf("list payload: %d bytes: %w", len(b), ErrPayloadSize)
	}
	return binary.BigEndian.Uint16(b), nil
}

// EncodeAddReq returns a complete add request frame. The add string is
// NUL-padded to AddStringSize; it must leave room for the terminator.
func EncodeAddReq(addstring string) ([]byte, error) {
	if len(addstring) >= AddStringSize {
		return nil, fmt.Errorf("add string %d bytes: %w", len(addstring), ErrFieldTooLong)
	}
	buf := EncodeHeader(MsgEmployeeAddReq, AddStringSize)
	payload := make([]byte, AddStringSize)
	copy(payload, addstring)
	return append(buf, payload...), nil
}

// DecodeAddPayload extracts the add string from an add request payload,
// trimming the NUL padding.
func DecodeAddPayload(b []byte) (string, error) {
	if len(b) != AddStringSize {
		return "", fmt.Errorf("add payload: %d bytes: %w", len(b), ErrPayloadSize)
	}
	return string(bytes.TrimRight(b, "\x00")), nil
}

// EncodeRecord returns the RecordSize-byte encoding of r. Both string
// fields are NUL-padded to their fixed widths.
func EncodeRecord(r Record) ([]byte, error) {
	if len(r.Name) >= NameSize {
		return nil, fmt.Errorf("record name %d bytes: %w", len(r.Name), ErrFieldTooLong)
	}
	if len(r.Address) >= AddressSize {
		return nil, fmt.Errorf("record address %d bytes: %w", len(r.Address), ErrFieldTooLong)
	}

	buf := make([]byte, RecordSize)
	copy(buf[0:NameSize], r.Name)
	copy(buf[NameSize:NameSize+AddressSize], r.Address)
	binary.BigEndian.PutUint32(buf[NameSize+AddressSize:], r.Hours)
	return buf, nil
}

// DecodeRecord parses a RecordSize-byte record encoding.
func DecodeRecord(b []byte) (Record, error) {
	if len(b) != RecordSize {
		return Record{}, fmt.Errorf("record: %d bytes: %w", len(b), ErrPayloadSize)
	}

	return Record{
		Name:    string(bytes.TrimRight(b[0:NameSize], "\x00")),
		Address: string(bytes.TrimRight(b[NameSize:NameSize+AddressSize], "\x00")),
		Hours:   binary.BigEndian.Uint32(b[NameSize+AddressSize:]),
	}, nil
}

// EncodeErrorFrame returns the empty-payload error frame sent best-effort
// before a protocol-error disconnect.
func EncodeErrorFrame() []byte {
	return EncodeHeader(MsgError, 0)
}
