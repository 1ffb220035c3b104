// Package badger implements a store backend on BadgerDB for deployments
// that prefer an embedded key-value store over the flat-file format. The
// table is still persisted as one unit: Save rewrites every record and
// removes stale entries from a previously larger table.
package badger

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/marmos91/recorddb/internal/logger"
	"github.com/marmos91/recorddb/internal/protocol"
	"github.com/marmos91/recorddb/pkg/store"
)

var (
	countKey     = []byte("meta/count")
	recordPrefix = []byte("record/")
)

// Config holds Badger-specific backend configuration, decoded from the
// store.badger section of the config file.
type Config struct {
	// Path is the Badger database directory.
	Path string `mapstructure:"path"`

	// InMemory runs Badger without touching disk. Used by tests.
	InMemory bool `mapstructure:"in_memory"`
}

// Backend persists the record table in a BadgerDB database.
type Backend struct {
	db *badger.DB
}

// New opens (or creates) the Badger database at cfg.Path.
func New(ctx context.Context, cfg Config) (*Backend, error) {
	if cfg.Path == "" && !cfg.InMemory {
		return nil, fmt.Errorf("badger store: path is required")
	}

	opts := badger.DefaultOptions(cfg.Path).
		WithInMemory(cfg.InMemory).
		WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger store: %w", err)
	}

	logger.Debug("Badger store opened at %q", cfg.Path)
	return &Backend{db: db}, nil
}

func recordKey(i uint16) []byte {
	key := make([]byte, len(recordPrefix)+2)
	copy(key, recordPrefix)
	binary.BigEndian.PutUint16(key[len(recordPrefix):], i)
	return key
}

// Load reads the persisted table. A database without a count entry is a
// fresh store and yields an empty table.
func (b *Backend) Load(ctx context.Context) (*store.Table, error) {
	var records []protocol.Record

	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(countKey)
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read count: %w", err)
		}

		var count uint16
		if err := item.Value(func(val []byte) error {
			if len(val) != 2 {
				return fmt.Errorf("count entry has %d bytes", len(val))
			}
			count = binary.BigEndian.Uint16(val)
			return nil
		}); err != nil {
			return err
		}

		if count > 0 {
			records = make([]protocol.Record, 0, count)
		}
		for i := uint16(0); i < count; i++ {
			item, err := txn.Get(recordKey(i))
			if err != nil {
				return fmt.Errorf("read record %d: %w", i, err)
			}
			if err := item.Value(func(val []byte) error {
				rec, err := protocol.DecodeRecord(val)
				if err != nil {
					return fmt.Errorf("decode record %d: %w", i, err)
				}
				records = append(records, rec)
				return nil
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return store.NewTableFromRecords(records), nil
}

// Save rewrites the whole table: count entry, every record, and deletes
// record keys left over from a larger previous table. A write batch keeps
// large tables below Badger's single-transaction limit.
func (b *Backend) Save(ctx context.Context, t *store.Table) error {
	// Collect stale record keys before writing.
	var stale [][]byte
	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = recordPrefix

		it := txn.NewIterator(opts)
		defer it.Close()

		limit := recordKey(t.Count())
		for it.Rewind(); it.Valid(); it.Next() {
			key := it.Item().KeyCopy(nil)
			if bytes.Compare(key, limit) >= 0 {
				stale = append(stale, key)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("scan stale records: %w", err)
	}

	wb := b.db.NewWriteBatch()
	defer wb.Cancel()

	countVal := make([]byte, 2)
	binary.BigEndian.PutUint16(countVal, t.Count())
	if err := wb.Set(countKey, countVal); err != nil {
		return fmt.Errorf("write count: %w", err)
	}

	for i, rec := range t.Records() {
		buf, err := protocol.EncodeRecord(rec)
		if err != nil {
			return fmt.Errorf("encode record %d: %w", i, err)
		}
		if err := wb.Set(recordKey(uint16(i)), buf); err != nil {
			return fmt.Errorf("write record %d: %w", i, err)
		}
	}

	for _, key := range stale {
		if err := wb.Delete(key); err != nil {
			return fmt.Errorf("delete stale record: %w", err)
		}
	}

	if err := wb.Flush(); err != nil {
		return fmt.Errorf("flush store batch: %w", err)
	}
	return nil
}

// Close closes the database.
func (b *Backend) Close() error {
	return b.db.Close()
}
