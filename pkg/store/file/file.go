// Package file implements the flat-file store backend: a 12-byte header
// (magic:uint32, version:uint16, count:uint16, filesize:uint32, all
// big-endian) followed by count packed records.
package file

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/marmos91/recorddb/internal/protocol"
	"github.com/marmos91/recorddb/pkg/store"
)

// HeaderSize is the encoded size of the store file header.
const HeaderSize = 12

var (
	// ErrBadMagic reports a file whose magic does not match store.Magic.
	ErrBadMagic = errors.New("bad store file magic")

	// ErrBadVersion reports a file written with a different format version.
	ErrBadVersion = errors.New("unsupported store file version")

	// ErrCorrupted reports a file whose declared size disagrees with its
	// actual size or its record count.
	ErrCorrupted = errors.New("corrupted store file")
)

// Backend persists the record table to a single flat file. It holds the
// file handle open for the server's lifetime; the caller owns the final
// Save before Close.
type Backend struct {
	f    *os.File
	path string
}

// Create makes a new store file containing an empty valid header. It
// fails if the file already exists.
func Create(path string) (*Backend, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return nil, fmt.Errorf("create store file: %w", err)
	}

	b := &Backend{f: f, path: path}
	if err := b.Save(context.Background(), store.NewTable()); err != nil {
		f.Close()
		os.Remove(path)
		return nil, err
	}
	return b, nil
}

// Open opens an existing store file.
func Open(path string) (*Backend, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0644)
	if err != nil {
		return nil, fmt.Errorf("open store file: %w", err)
	}
	return &Backend{f: f, path: path}, nil
}

// Load reads and validates the header, then reads exactly count records.
// Any short read or size mismatch is fatal.
func (b *Backend) Load(ctx context.Context) (*store.Table, error) {
	if _, err := b.f.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("seek store file: %w", err)
	}

	hdr := make([]byte, HeaderSize)
	if _, err := io.ReadFull(b.f, hdr); err != nil {
		return nil, fmt.Errorf("read store header: %w", err)
	}

	magic := binary.BigEndian.Uint32(hdr[0:4])
	version := binary.BigEndian.Uint16(hdr[4:6])
	count := binary.BigEndian.Uint16(hdr[6:8])
	filesize := binary.BigEndian.Uint32(hdr[8:12])

	if magic != store.Magic {
		return nil, fmt.Errorf("%w: 0x%08x", ErrBadMagic, magic)
	}
	if version != store.FormatVersion {
		return nil, fmt.Errorf("%w: %d", ErrBadVersion, version)
	}

	info, err := b.f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat store file: %w", err)
	}
	if int64(filesize) != info.Size() {
		return nil, fmt.Errorf("%w: header declares %d bytes, file has %d",
			ErrCorrupted, filesize, info.Size())
	}
	if uint32(HeaderSize)+uint32(count)*protocol.RecordSize != filesize {
		return nil, fmt.Errorf("%w: %d records do not fit declared size %d",
			ErrCorrupted, count, filesize)
	}

	// Stays nil for an empty store, matching a freshly built table.
	var records []protocol.Record
	if count > 0 {
		records = make([]protocol.Record, 0, count)
	}
	buf := make([]byte, protocol.RecordSize)
	for i := 0; i < int(count); i++ {
		if _, err := io.ReadFull(b.f, buf); err != nil {
			return nil, fmt.Errorf("read record %d: %w", i, err)
		}
		rec, err := protocol.DecodeRecord(buf)
		if err != nil {
			return nil, fmt.Errorf("decode record %d: %w", i, err)
		}
		records = append(records, rec)
	}

	return store.NewTableFromRecords(records), nil
}

// Save rewrites the header with a freshly computed file size, then every
// record in order, then truncates away any stale trailing bytes.
func (b *Backend) Save(ctx context.Context, t *store.Table) error {
	count := t.Count()
	filesize := uint32(HeaderSize) + uint32(count)*protocol.RecordSize

	hdr := make([]byte, HeaderSize)
	binary.BigEndian.PutUint32(hdr[0:4], store.Magic)
	binary.BigEndian.PutUint16(hdr[4:6], store.FormatVersion)
	binary.BigEndian.PutUint16(hdr[6:8], count)
	binary.BigEndian.PutUint32(hdr[8:12], filesize)

	if _, err := b.f.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("seek store file: %w", err)
	}
	if _, err := b.f.Write(hdr); err != nil {
		return fmt.Errorf("write store header: %w", err)
	}

	for i, rec := range t.Records() {
		buf, err := protocol.EncodeRecord(rec)
		if err != nil {
			return fmt.Errorf("encode record %d: %w", i, err)
		}
		if _, err := b.f.Write(buf); err != nil {
			return fmt.Errorf("write record %d: %w", i, err)
		}
	}

	if err := b.f.Truncate(int64(filesize)); err != nil {
		return fmt.Errorf("truncate store file: %w", err)
	}
	if err := b.f.Sync(); err != nil {
		return fmt.Errorf("sync store file: %w", err)
	}
	return nil
}

// Close closes the underlying file.
func (b *Backend) Close() error {
	return b.f.Close()
}
