package store

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/marmos91/recorddb/internal/protocol"
)

// addStringSep separates the three fields of an add string.
const addStringSep = "-"

// ErrBadAddString reports an add string that does not split into exactly
// three non-empty "Name-Address-Hours" fields with in-range hours.
// Business error: the connection stays open.
var ErrBadAddString = errors.New("malformed add string")

// ParseAddString splits "Name-Address-Hours" into a record. Hours must be
// a non-negative integer fitting uint32; both string fields must fit
// their fixed wire widths.
func ParseAddString(s string) (protocol.Record, error) {
	parts := strings.Split(s, addStringSep)
	if len(parts) != 3 {
		return protocol.Record{}, fmt.Errorf("%w: expected 3 fields, got %d", ErrBadAddString, len(parts))
	}

	name, address, hoursStr := parts[0], parts[1], parts[2]
	if name == "" || address == "" || hoursStr == "" {
		return protocol.Record{}, fmt.Errorf("%w: empty field", ErrBadAddString)
	}
	if len(name) >= protocol.NameSize {
		return protocol.Record{}, fmt.Errorf("%w: name too long", ErrBadAddString)
	}
	if len(address) >= protocol.AddressSize {
		return protocol.Record{}, fmt.Errorf("%w: address too long", ErrBadAddString)
	}

	hours, err := strconv.ParseUint(hoursStr, 10, 32)
	if err != nil {
		return protocol.Record{}, fmt.Errorf("%w: hours %q", ErrBadAddString, hoursStr)
	}

	return protocol.Record{
		Name:    name,
		Address: address,
		Hours:   uint32(hours),
	}, nil
}
