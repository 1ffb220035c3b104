// Package store holds the in-memory record table and the persistence
// backend contract. The table is mutated exclusively by the reactor
// goroutine, so it carries no locking; introducing a second mutator
// without synchronization breaks that invariant.
package store

import (
	"context"
	"errors"
	"math"

	"github.com/marmos91/recorddb/internal/protocol"
)

const (
	// Magic identifies a record store file ("DALL" little-endian view of
	// the original constant; kept verbatim for file compatibility).
	Magic uint32 = 0x4c4c4144

	// FormatVersion is the store schema version. The original ties it to
	// the protocol version, and files written by it validate against
	// exactly this value.
	FormatVersion = protocol.Version

	// MaxRecords is the largest table the on-disk and on-wire count
	// field (uint16) can describe.
	MaxRecords = math.MaxUint16
)

var (
	// ErrEmptyTable reports RemoveLast on a table with no records.
	// Business error: reported to clients as a failure status.
	ErrEmptyTable = errors.New("no records to remove")

	// ErrTableFull reports Append past MaxRecords.
	ErrTableFull = errors.New("record table full")
)

// Table is the ordered in-memory record sequence. Count is derived from
// the slice length, so the persisted header count can never drift from
// the actual contents.
type Table struct {
	records []protocol.Record
}

// NewTable returns an empty table.
func NewTable() *Table {
	return &Table{}
}

// NewTableFromRecords wraps an already-loaded record slice. The table
// takes ownership of the slice.
func NewTableFromRecords(records []protocol.Record) *Table {
	return &Table{records: records}
}

// Count returns the number of records.
func (t *Table) Count() uint16 {
	return uint16(len(t.records))
}

// Records returns the table contents in order. The slice is shared, not
// copied; callers must not mutate it.
func (t *Table) Records() []protocol.Record {
	return t.records
}

// Append adds a record at the end of the table.
func (t *Table) Append(r protocol.Record) error {
	if len(t.records) >= MaxRecords {
		return ErrTableFull
	}
	t.records = append(t.records, r)
	return nil
}

// RemoveLast drops the most recently appended record.
func (t *Table) RemoveLast() error {
	if len(t.records) == 0 {
		return ErrEmptyTable
	}
	t.records = t.records[:len(t.records)-1]
	return nil
}

// Backend persists a table as one unit. Mutations to the in-memory table
// have no persistence effect until Save is called; the server saves once
// at shutdown.
type Backend interface {
	// Load reads the persisted table. A freshly created store yields an
	// empty table.
	Load(ctx context.Context) (*Table, error)

	// Save rewrites the entire persisted table, removing any stale
	// trailing state from a previous, larger table.
	Save(ctx context.Context, t *Table) error

	// Close releases the underlying storage handle.
	Close() error
}
