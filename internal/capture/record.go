// Package capture holds sector captures taken through the transfer hardware,
// either parsed from its text log or read back from a binary store.
package capture

import (
	"errors"

	"github.com/Sam36502/disekt/internal/disk"
)

var (
	ErrRecordOutOfRange = errors.New("record out of range")
	ErrBadMagic         = errors.New("not a capture store")
	ErrNotLog           = errors.New("not a capture log")
	ErrInvalidRecord    = errors.New("invalid capture record")
)

// NotCaptured is the disk error code of a sector the drive never reported on.
const NotCaptured uint8 = 0xFF

// ParseError describes a problem found while reading a block from the log.
type ParseError uint8

const (
	ParseOK ParseError = iota
	ParseShortBlock
	ParseBadHex
	ParseOffsetOverflow
	ParseUnterminated
	ParseBadMarker
)

func (e ParseError) String() string {
	switch e {
	case ParseOK:
		return "none"
	case ParseShortBlock:
		return "short block"
	case ParseBadHex:
		return "bad hex byte"
	case ParseOffsetOverflow:
		return "offset overflow"
	case ParseUnterminated:
		return "unterminated block"
	case ParseBadMarker:
		return "bad marker field"
	}
	return "unknown"
}

// Record is the capture of a single sector.
type Record struct {
	Position   disk.Position
	Checksum   uint16 // as reported by the transfer hardware
	DiskError  uint8
	ParseError ParseError
	Data       [disk.BlockSize]byte
	Present    bool
}

// ChecksumMatch reports whether the reported checksum agrees with the data.
func (r *Record) ChecksumMatch() bool {
	return r.Checksum == disk.Checksum(r.Data[:])
}

// DiskErrorOK reports whether the drive read the sector without error.
// Codes 0 and 1 both mean "OK" on CBM DOS.
func (r *Record) DiskErrorOK() bool {
	return r.DiskError <= 1
}

// Clean reports whether the capture shows no transfer-layer problem.
func (r *Record) Clean() bool {
	return r.ParseError == ParseOK && r.DiskErrorOK() && r.ChecksumMatch()
}

// DiskErrorName returns the CBM DOS message for a drive error code.
func DiskErrorName(code uint8) string {
	switch code {
	case 0, 1:
		return "OK"
	case 20:
		return "READ ERROR (header not found)"
	case 21:
		return "READ ERROR (no sync)"
	case 22:
		return "READ ERROR (data block not present)"
	case 23:
		return "READ ERROR (data checksum)"
	case 24:
		return "READ ERROR (byte decoding)"
	case 25:
		return "WRITE ERROR (verify)"
	case 26:
		return "WRITE PROTECT ON"
	case 27:
		return "READ ERROR (header checksum)"
	case 28:
		return "WRITE ERROR (long data block)"
	case 29:
		return "DISK ID MISMATCH"
	case NotCaptured:
		return "NOT CAPTURED"
	}
	return "UNKNOWN ERROR"
}

// Source looks up the capture of a sector by linear index. A sector without
// a capture yields false and a nil error.
type Source interface {
	Lookup(index int) (Record, bool, error)
}

// keep reports whether an existing capture must survive a new one of the
// same sector: a clean capture is never replaced by a dirty one.
func keep(prev, next *Record) bool {
	return prev.Present && prev.Clean() && !next.Clean()
}

// Chain queries several sources in order. The first capture of a sector
// wins unless a later source holds a clean one where it is dirty.
type Chain []Source

func (c Chain) Lookup(index int) (Record, bool, error) {
	var (
		best  Record
		found bool
	)
	for _, src := range c {
		rec, ok, err := src.Lookup(index)
		if err != nil {
			return Record{}, false, err
		}
		if !ok {
			continue
		}
		if !found || (!best.Clean() && rec.Clean()) {
			best, found = rec, true
		}
		if best.Clean() {
			break
		}
	}
	return best, found, nil
}
