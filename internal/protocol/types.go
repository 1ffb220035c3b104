// Package protocol implements the wire format shared by the server and the
// CLI client: a 6-byte frame header (type:uint32, len:uint16) followed by a
// fixed-shape payload, all fields big-endian. Byte-order conversions and
// structural bounds checks live here and nowhere else.
package protocol

// Version is the protocol version exchanged during the Hello handshake.
// The store file format reuses the same constant (see pkg/store).
const Version uint16 = 100

// MsgType discriminates frame payloads. Encoded as a big-endian uint32.
type MsgType uint32

const (
	MsgHelloReq MsgType = iota
	MsgHelloResp
	MsgEmployeeListReq
	MsgEmployeeListResp
	MsgEmployeeAddReq
	MsgEmployeeAddResp
	MsgEmployeeDelReq
	MsgEmployeeDelResp
	MsgError

	msgMax
)

func (t MsgType) String() string {
	switch t {
	case MsgHelloReq:
		return "HELLO_REQ"
	case MsgHelloResp:
		return "HELLO_RESP"
	case MsgEmployeeListReq:
		return "EMPLOYEE_LIST_REQ"
	case MsgEmployeeListResp:
		return "EMPLOYEE_LIST_RESP"
	case MsgEmployeeAddReq:
		return "EMPLOYEE_ADD_REQ"
	case MsgEmployeeAddResp:
		return "EMPLOYEE_ADD_RESP"
	case MsgEmployeeDelReq:
		return "EMPLOYEE_DEL_REQ"
	case MsgEmployeeDelResp:
		return "EMPLOYEE_DEL_RESP"
	case MsgError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Valid reports whether t is one of the known message types.
func (t MsgType) Valid() bool {
	return t < msgMax
}

const (
	// HeaderSize is the encoded size of a frame header.
	HeaderSize = 6

	// BufferSize is the per-connection receive buffer capacity. A header
	// declaring header+payload beyond this bound is a protocol error.
	BufferSize = 4096

	// AddStringSize is the fixed payload size of an EmployeeAddReq: a
	// NUL-padded "Name-Address-Hours" string.
	AddStringSize = 1024

	// NameSize and AddressSize are the fixed widths of record string
	// fields, NUL-padded on the wire and on disk.
	NameSize    = 256
	AddressSize = 256

	// RecordSize is the encoded size of one record.
	RecordSize = NameSize + AddressSize + 4

	// HelloPayloadSize is the payload size of HelloReq and HelloResp.
	HelloPayloadSize = 2

	// StatusPayloadSize is the payload size of add/del responses.
	StatusPayloadSize = 4

	// ListCountPayloadSize is the payload size of EmployeeListResp.
	ListCountPayloadSize = 2
)

// Status codes carried by add/del responses.
const (
	StatusSuccess int32 = 0
	StatusError   int32 = -1
)

// Record is one employee entry as it appears on the wire and on disk:
// name and address as fixed-width NUL-padded byte fields, hours as a
// big-endian uint32.
type Record struct {
	Name    string
	Address string
	Hours   uint32
}
