package capture

import (
	"errors"
	"fmt"
	"io"
	"iter"
	"strconv"
	"strings"

	"github.com/Sam36502/disekt/internal/disk"
	"github.com/Sam36502/disekt/pkg/reader"
)

const (
	markerOpen  = ">>>"
	markerClose = "<<<"

	blockStartKeyword = "BLOCK-START"
	blockEndKeyword   = "BLOCK-END"

	bytesPerLine = 16

	readBufferSize = 64 * 1024
)

type parseState int

const (
	stateNoBlock    parseState = iota
	stateStartBlock            // header seen, no data yet
	stateInBlock               // receiving data lines
	stateEndBlock              // all 256 bytes received, waiting for the end marker
)

// LogReader parses the text log written by the transfer hardware.
//
// A block looks like:
//
//	>>> BLOCK-START: T=18; S=1 <<<
//	[0x00] 00 FF 82 11 00 ...
//	...
//	[0xF0] ...
//	>>> BLOCK-END; C=0x8000; E=1 <<<
//
// Parsing can be resumed: Offset returns the position of the first byte that
// has not been consumed as part of a complete block.
type LogReader struct {
	r *reader.BufferedReadSeeker

	state      parseState
	cur        Record
	filled     int
	blockStart int64
	resume     int64

	err error
}

// NewLogReader returns a reader positioned at offset. A binary capture store
// passed in place of a log is rejected with ErrNotLog.
func NewLogReader(r io.ReadSeeker, offset int64) (*LogReader, error) {
	br := reader.NewBufferedReadSeeker(r, readBufferSize)
	if _, err := br.Seek(offset, io.SeekStart); err != nil {
		return nil, fmt.Errorf("seek capture log: %w", err)
	}

	if offset == 0 {
		head, err := br.Peek(len(storeMagic))
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("read capture log: %w", err)
		}
		if string(head) == storeMagic {
			return nil, fmt.Errorf("%w: found a binary capture store", ErrNotLog)
		}
	}
	return &LogReader{r: br, resume: offset}, nil
}

// Offset returns the offset parsing should resume from.
func (lr *LogReader) Offset() int64 {
	return lr.resume
}

// Err returns the first I/O error encountered by Blocks.
func (lr *LogReader) Err() error {
	return lr.err
}

// Blocks iterates over the blocks of the log. Malformed blocks are yielded
// with a ParseError set. A block still open at the end of the log is not
// yielded.
func (lr *LogReader) Blocks() iter.Seq[Record] {
	return func(yield func(Record) bool) {
		for {
			start := lr.r.Offset()

			line, err := lr.r.ReadLine()
			if err == io.EOF {
				return
			}
			if err != nil {
				lr.err = fmt.Errorf("read capture log: %w", err)
				return
			}

			rec, ok := lr.feed(strings.TrimSpace(string(line)), start)
			if lr.state == stateNoBlock {
				lr.resume = lr.r.Offset()
			} else {
				lr.resume = lr.blockStart
			}

			if ok && !yield(rec) {
				return
			}
		}
	}
}

// feed advances the state machine by one line. It returns a record when the
// line completes a block.
func (lr *LogReader) feed(line string, lineStart int64) (Record, bool) {
	if line == "" {
		return Record{}, false
	}

	if kind, fields, ok := parseMarker(line); ok {
		switch kind {
		case blockStartKeyword:
			var (
				prev     Record
				finished bool
			)
			if lr.state != stateNoBlock {
				lr.setError(ParseUnterminated)
				prev, finished = lr.finish(), true
			}
			lr.begin(fields, lineStart)
			return prev, finished

		case blockEndKeyword:
			if lr.state == stateNoBlock {
				return Record{}, false
			}
			lr.end(fields)
			return lr.finish(), true
		}
		return Record{}, false
	}

	if lr.state == stateNoBlock || line[0] != '[' {
		return Record{}, false
	}

	if lr.state == stateEndBlock {
		lr.setError(ParseOffsetOverflow)
		return Record{}, false
	}
	lr.state = stateInBlock
	lr.data(line)

	if lr.filled >= disk.BlockSize {
		lr.state = stateEndBlock
	}
	return Record{}, false
}

func (lr *LogReader) begin(fields map[string]string, lineStart int64) {
	lr.state = stateStartBlock
	lr.cur = Record{Present: true}
	lr.filled = 0
	lr.blockStart = lineStart

	track, terr := strconv.ParseUint(fields["T"], 10, 8)
	sector, serr := strconv.ParseUint(fields["S"], 10, 8)
	if terr != nil || serr != nil {
		lr.setError(ParseBadMarker)
	}
	lr.cur.Position = disk.Position{Track: uint8(track), Sector: uint8(sector)}
}

func (lr *LogReader) end(fields map[string]string) {
	if lr.filled < disk.BlockSize {
		lr.setError(ParseShortBlock)
	}

	sum, err := strconv.ParseUint(trimHexPrefix(fields["C"]), 16, 16)
	if err != nil {
		lr.setError(ParseBadMarker)
	}
	lr.cur.Checksum = uint16(sum)

	code, err := strconv.ParseUint(fields["E"], 10, 8)
	if err != nil {
		lr.setError(ParseBadMarker)
		code = uint64(NotCaptured)
	}
	lr.cur.DiskError = uint8(code)
}

func (lr *LogReader) finish() Record {
	rec := lr.cur
	lr.state = stateNoBlock
	lr.cur = Record{}
	lr.filled = 0
	return rec
}

// data stores the bytes of a "[0xNN] b0 b1 ... b15" line.
func (lr *LogReader) data(line string) {
	end := strings.IndexByte(line, ']')
	if end < 0 {
		lr.setError(ParseBadHex)
		return
	}

	off, err := strconv.ParseUint(trimHexPrefix(line[1:end]), 16, 16)
	if err != nil {
		lr.setError(ParseBadHex)
		return
	}

	for i, field := range strings.Fields(line[end+1:]) {
		if i >= bytesPerLine {
			break
		}

		pos := int(off) + i
		if pos >= disk.BlockSize {
			lr.setError(ParseOffsetOverflow)
			return
		}

		b, err := strconv.ParseUint(field, 16, 8)
		if err != nil {
			lr.setError(ParseBadHex)
			continue
		}
		lr.cur.Data[pos] = byte(b)
		lr.filled++
	}
}

// setError records the first parse error of the current block.
func (lr *LogReader) setError(e ParseError) {
	if lr.cur.ParseError == ParseOK {
		lr.cur.ParseError = e
	}
}

// parseMarker splits a ">>> KEYWORD: K=V; K=V <<<" line.
func parseMarker(line string) (string, map[string]string, bool) {
	if !strings.HasPrefix(line, markerOpen) {
		return "", nil, false
	}
	body := strings.TrimSpace(strings.TrimSuffix(strings.TrimPrefix(line, markerOpen), markerClose))

	kind := body
	rest := ""
	if i := strings.IndexAny(body, ":; "); i >= 0 {
		kind, rest = body[:i], body[i+1:]
	}

	fields := make(map[string]string)
	for _, part := range strings.Split(rest, ";") {
		part = strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(part), ":"))
		key, value, ok := strings.Cut(part, "=")
		if !ok {
			continue
		}
		fields[strings.ToUpper(strings.TrimSpace(key))] = strings.TrimSpace(value)
	}
	return kind, fields, true
}

func trimHexPrefix(s string) string {
	if len(s) > 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		return s[2:]
	}
	return s
}
