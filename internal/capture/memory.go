package capture

import (
	"fmt"
	"io"

	"github.com/Sam36502/disekt/internal/disk"
)

// Log keeps the captures parsed from a text log in memory.
type Log struct {
	records [disk.TotalSectors]Record
	n       int
}

func NewLog() *Log {
	return &Log{}
}

// Add stores rec, unless a clean capture of the same sector already exists
// and rec is not clean. It reports whether rec was stored.
func (l *Log) Add(rec Record) (bool, error) {
	index, ok := rec.Position.Index()
	if !ok {
		return false, fmt.Errorf("%w: position %s", ErrInvalidRecord, rec.Position)
	}

	prev := &l.records[index]
	if keep(prev, &rec) {
		return false, nil
	}
	if !prev.Present {
		l.n++
	}

	rec.Present = true
	*prev = rec
	return true, nil
}

func (l *Log) Lookup(index int) (Record, bool, error) {
	if index < 0 || index >= disk.TotalSectors {
		return Record{}, false, fmt.Errorf("%w: index %d", disk.ErrInvalidPosition, index)
	}
	rec := l.records[index]
	return rec, rec.Present, nil
}

// Len returns the number of captured sectors.
func (l *Log) Len() int {
	return l.n
}

// LoadLog parses r from offset into a new Log. Blocks with an invalid
// position are skipped and counted. It returns the offset to resume from.
func LoadLog(r io.ReadSeeker, offset int64) (*Log, int64, int, error) {
	lr, err := NewLogReader(r, offset)
	if err != nil {
		return nil, offset, 0, err
	}

	log := NewLog()
	skipped := 0
	for rec := range lr.Blocks() {
		if _, err := log.Add(rec); err != nil {
			skipped++
		}
	}
	return log, lr.Offset(), skipped, lr.Err()
}
