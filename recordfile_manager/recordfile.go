// Package recordfile owns one file of fixed-size records behind a small header.
/*
Record File
────────────────────────────────────────────────────
| Header (64) | Record 0 | Record 1 | Record 2 | ... |
────────────────────────────────────────────────────

Header:
──────────────────────────────────────────────────────────────────
| Magic (4) | Version (2) | RecordSize (4) | Fingerprint (8) | pad |
──────────────────────────────────────────────────────────────────

A record's address is its byte offset in the file. Offsets never move once
reserved, so callers may persist them in other records.
*/
package recordfile

import (
	"bytes"
	"encoding/binary"
	"io"
	"os"
	"sync"

	"github.com/cockroachdb/errors"
)

const HeaderSize = 64

var (
	ErrClosed         = errors.New("recordfile: file is closed")
	ErrBadOffset      = errors.New("recordfile: offset is not a record boundary")
	ErrHeaderMismatch = errors.New("recordfile: header does not match")
	ErrTruncated      = errors.New("recordfile: trailing partial record")
)

type Header struct {
	Magic       [4]byte
	Version     uint16
	RecordSize  uint32
	Fingerprint uint64
}

func (h Header) encode() []byte {
	buf := make([]byte, HeaderSize)
	copy(buf[0:4], h.Magic[:])
	binary.LittleEndian.PutUint16(buf[4:], h.Version)
	binary.LittleEndian.PutUint32(buf[6:], h.RecordSize)
	binary.LittleEndian.PutUint64(buf[10:], h.Fingerprint)
	return buf
}

func decodeHeader(buf []byte) Header {
	var h Header
	copy(h.Magic[:], buf[0:4])
	h.Version = binary.LittleEndian.Uint16(buf[4:])
	h.RecordSize = binary.LittleEndian.Uint32(buf[6:])
	h.Fingerprint = binary.LittleEndian.Uint64(buf[10:])
	return h
}

// File is a record file. All methods are safe for concurrent use.
type File struct {
	file       *os.File
	path       string
	header     Header
	recordSize int64
	end        int64
	mu         sync.RWMutex
}

// Open opens or creates the record file at path. A new file gets hdr written;
// an existing one must carry exactly hdr. created reports which happened.
func Open(path string, hdr Header) (f *File, created bool, err error) {
	if hdr.RecordSize == 0 {
		return nil, false, errors.Newf("recordfile: zero record size for %s", path)
	}
	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, false, errors.Wrapf(err, "open record file %s", path)
	}

	stat, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, false, errors.Wrapf(err, "stat record file %s", path)
	}

	f = &File{
		file:       file,
		path:       path,
		header:     hdr,
		recordSize: int64(hdr.RecordSize),
	}

	if stat.Size() == 0 {
		if _, err := file.WriteAt(hdr.encode(), 0); err != nil {
			file.Close()
			return nil, false, errors.Wrapf(err, "write header of %s", path)
		}
		f.end = HeaderSize
		return f, true, nil
	}

	buf := make([]byte, HeaderSize)
	if _, err := file.ReadAt(buf, 0); err != nil {
		file.Close()
		return nil, false, errors.Wrapf(err, "read header of %s", path)
	}
	got := decodeHeader(buf)
	if !bytes.Equal(got.Magic[:], hdr.Magic[:]) || got.Version != hdr.Version ||
		got.RecordSize != hdr.RecordSize || got.Fingerprint != hdr.Fingerprint {
		file.Close()
		return nil, false, errors.Wrapf(ErrHeaderMismatch,
			"%s: have magic=%q version=%d record=%d fp=%x, want magic=%q version=%d record=%d fp=%x",
			path, got.Magic[:], got.Version, got.RecordSize, got.Fingerprint,
			hdr.Magic[:], hdr.Version, hdr.RecordSize, hdr.Fingerprint)
	}
	if (stat.Size()-HeaderSize)%f.recordSize != 0 {
		file.Close()
		return nil, false, errors.Wrapf(ErrTruncated, "%s: size %d", path, stat.Size())
	}
	f.end = stat.Size()
	return f, false, nil
}

// Reserve appends a zeroed record and returns its offset.
func (f *File) Reserve() (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.file == nil {
		return 0, ErrClosed
	}
	off := f.end
	if _, err := f.file.WriteAt(make([]byte, f.recordSize), off); err != nil {
		return 0, errors.Wrapf(err, "reserve record at %d in %s", off, f.path)
	}
	f.end += f.recordSize
	return off, nil
}

// ReadRecord reads the record at off.
func (f *File) ReadRecord(off int64) ([]byte, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.file == nil {
		return nil, ErrClosed
	}
	if err := f.checkOffset(off); err != nil {
		return nil, err
	}
	buf := make([]byte, f.recordSize)
	if _, err := f.file.ReadAt(buf, off); err != nil && !errors.Is(err, io.EOF) {
		return nil, errors.Wrapf(err, "read record at %d in %s", off, f.path)
	}
	return buf, nil
}

// WriteRecord overwrites the record at off. data must be exactly one record.
func (f *File) WriteRecord(off int64, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.file == nil {
		return ErrClosed
	}
	if int64(len(data)) != f.recordSize {
		return errors.Newf("recordfile: data size %d does not match record size %d", len(data), f.recordSize)
	}
	if err := f.checkOffset(off); err != nil {
		return err
	}
	if _, err := f.file.WriteAt(data, off); err != nil {
		return errors.Wrapf(err, "write record at %d in %s", off, f.path)
	}
	return nil
}

func (f *File) checkOffset(off int64) error {
	if off < HeaderSize || off+f.recordSize > f.end || (off-HeaderSize)%f.recordSize != 0 {
		return errors.Wrapf(ErrBadOffset, "%s: offset %d (end %d)", f.path, off, f.end)
	}
	return nil
}

// FirstRecord is the offset of record 0.
func (f *File) FirstRecord() int64 { return HeaderSize }

func (f *File) RecordSize() int { return int(f.recordSize) }

// Records returns the number of reserved records.
func (f *File) Records() int64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return (f.end - HeaderSize) / f.recordSize
}

// Size returns the file size in bytes.
func (f *File) Size() int64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.end
}

func (f *File) Path() string { return f.path }

// Sync flushes all pending writes to disk
func (f *File) Sync() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.file == nil {
		return ErrClosed
	}
	return errors.Wrapf(f.file.Sync(), "sync %s", f.path)
}

// Close syncs and closes the file. Closing twice is a no-op.
func (f *File) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.file == nil {
		return nil
	}
	err := f.file.Sync()
	if cerr := f.file.Close(); err == nil {
		err = cerr
	}
	f.file = nil
	return errors.Wrapf(err, "close %s", f.path)
}
