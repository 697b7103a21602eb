package capture

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/Sam36502/disekt/internal/disk"
)

// Binary store layout. All integers are little endian.
//
//	header: magic[4] dataOffset[4] logOffset[4] reserved[4]
//	record: status track sector diskError checksum[2] parseError reserved data[256]
//
// Record i lives at dataOffset + i*RecordSize.
const (
	storeMagic = "D64R"

	HeaderSize = 16
	RecordSize = 8 + disk.BlockSize

	statusNeverWritten = 0x00
	statusCaptured     = 0x01
	statusParseError   = 0x10
)

// File is the storage of a Store.
type File interface {
	io.ReaderAt
	io.WriterAt
	io.Closer
	Stat() (os.FileInfo, error)
}

// Store is a random-access capture store with one fixed-size record per
// linear sector index.
type Store struct {
	f          File
	hasHeader  bool
	dataOffset int64
	logOffset  int64
}

// OpenStore opens the store at path, creating an empty one if needed.
func OpenStore(path string) (*Store, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, err
	}

	s, err := NewStore(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	return s, nil
}

// NewStore reads the header of f, if any. An empty file is a valid store
// holding no records.
func NewStore(f File) (*Store, error) {
	s := &Store{f: f, dataOffset: HeaderSize}

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	if info.Size() == 0 {
		return s, nil
	}

	var hdr [HeaderSize]byte
	if _, err := f.ReadAt(hdr[:], 0); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: truncated header", ErrBadMagic)
		}
		return nil, err
	}

	if string(hdr[:4]) != storeMagic {
		return nil, fmt.Errorf("%w: magic %q", ErrBadMagic, hdr[:4])
	}

	s.dataOffset = int64(binary.LittleEndian.Uint32(hdr[4:]))
	if s.dataOffset < HeaderSize {
		return nil, fmt.Errorf("%w: data offset %d", ErrBadMagic, s.dataOffset)
	}
	s.logOffset = int64(binary.LittleEndian.Uint32(hdr[8:]))
	s.hasHeader = true
	return s, nil
}

func (s *Store) Close() error {
	return s.f.Close()
}

// LogOffset returns the offset the text log should be resumed from.
func (s *Store) LogOffset() int64 {
	return s.logOffset
}

// SetLogOffset persists the resume offset of the text log.
func (s *Store) SetLogOffset(off int64) error {
	if off < 0 || off > math.MaxUint32 {
		return fmt.Errorf("log offset %d out of range", off)
	}
	s.logOffset = off
	return s.writeHeader()
}

func (s *Store) writeHeader() error {
	var hdr [HeaderSize]byte
	copy(hdr[:], storeMagic)
	binary.LittleEndian.PutUint32(hdr[4:], uint32(s.dataOffset))
	binary.LittleEndian.PutUint32(hdr[8:], uint32(s.logOffset))

	if _, err := s.f.WriteAt(hdr[:], 0); err != nil {
		return fmt.Errorf("write store header: %w", err)
	}
	s.hasHeader = true
	return nil
}

func (s *Store) recordOffset(index int) (int64, error) {
	if index < 0 || index >= disk.TotalSectors {
		return 0, fmt.Errorf("%w: index %d", ErrRecordOutOfRange, index)
	}
	return s.dataOffset + int64(index)*RecordSize, nil
}

// ReadRecord reads the record with the given linear index. It fails with
// ErrRecordOutOfRange if the index is not a sector or lies beyond the end
// of the file. A record that was never written is returned with Present
// unset.
func (s *Store) ReadRecord(index int) (Record, error) {
	off, err := s.recordOffset(index)
	if err != nil {
		return Record{}, err
	}
	if !s.hasHeader {
		return Record{}, fmt.Errorf("%w: index %d (empty store)", ErrRecordOutOfRange, index)
	}

	var buf [RecordSize]byte
	if _, err := s.f.ReadAt(buf[:], off); err != nil {
		if errors.Is(err, io.EOF) {
			return Record{}, fmt.Errorf("%w: index %d beyond end of store", ErrRecordOutOfRange, index)
		}
		return Record{}, fmt.Errorf("read record %d: %w", index, err)
	}
	return decodeRecord(buf[:]), nil
}

// Lookup implements Source. Missing records are not an error.
func (s *Store) Lookup(index int) (Record, bool, error) {
	rec, err := s.ReadRecord(index)
	if err != nil {
		if index >= 0 && index < disk.TotalSectors && errors.Is(err, ErrRecordOutOfRange) {
			return Record{}, false, nil
		}
		return Record{}, false, err
	}
	return rec, rec.Present, nil
}

// Put writes rec at the index of its position, materializing the header on
// first write. A clean record already in the store is kept when rec is not
// clean. It reports whether rec was written.
func (s *Store) Put(rec Record) (bool, error) {
	index, ok := rec.Position.Index()
	if !ok {
		return false, fmt.Errorf("%w: position %s", ErrInvalidRecord, rec.Position)
	}

	prev, found, err := s.Lookup(index)
	if err != nil {
		return false, err
	}
	if found && keep(&prev, &rec) {
		return false, nil
	}

	if !s.hasHeader {
		if err := s.writeHeader(); err != nil {
			return false, err
		}
	}

	off, _ := s.recordOffset(index)
	if _, err := s.f.WriteAt(encodeRecord(&rec), off); err != nil {
		return false, fmt.Errorf("write record %d: %w", index, err)
	}
	return true, nil
}

// Count returns the number of records written to the store.
func (s *Store) Count() (int, error) {
	n := 0
	for index := 0; index < disk.TotalSectors; index++ {
		_, found, err := s.Lookup(index)
		if err != nil {
			return n, err
		}
		if found {
			n++
		}
	}
	return n, nil
}

func encodeRecord(rec *Record) []byte {
	buf := make([]byte, RecordSize)

	buf[0] = statusCaptured
	if rec.ParseError != ParseOK {
		buf[0] = statusParseError
	}
	buf[1] = rec.Position.Track
	buf[2] = rec.Position.Sector
	buf[3] = rec.DiskError
	binary.LittleEndian.PutUint16(buf[4:], rec.Checksum)
	buf[6] = byte(rec.ParseError)
	copy(buf[8:], rec.Data[:])
	return buf
}

func decodeRecord(buf []byte) Record {
	if buf[0] == statusNeverWritten {
		return Record{}
	}

	rec := Record{
		Present:    true,
		Position:   disk.Position{Track: buf[1], Sector: buf[2]},
		DiskError:  buf[3],
		Checksum:   binary.LittleEndian.Uint16(buf[4:]),
		ParseError: ParseError(buf[6]),
	}
	if buf[0] == statusParseError && rec.ParseError == ParseOK {
		rec.ParseError = ParseBadMarker
	}
	copy(rec.Data[:], buf[8:])
	return rec
}
