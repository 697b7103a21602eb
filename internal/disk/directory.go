// Copyright (c) 2025 Stefano Scafiti
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.
package disk

import (
	"encoding/binary"
	"fmt"
	"strings"
)

// Layout of the BAM sector (track 18, sector 0).
const (
	bamLinkOffset   = 0x00
	bamFormatOffset = 0x02
	bamMapOffset    = 0x04
	HeaderOffset    = 0x90
	HeaderSize      = BlockSize - HeaderOffset // 112 bytes of header text

	// FormatMarker is the DOS format byte of a 1541 disk ('A').
	FormatMarker = 0x41

	// Shifted space, used by CBM DOS to pad names.
	shiftedSpace = 0xA0

	NameLen     = 16
	DiskNameLen = 17
)

// Layout of a directory record, relative to the record's type byte.
// Records start after the two byte chain link of a directory sector.
const (
	EntriesPerSector = 8
	entryStride      = 32
	entryBaseOffset  = 2

	entryTypeOffset       = 0
	entryHeadOffset       = 1
	entryNameOffset       = 3
	entrySideSectorOffset = 19
	entryRecordLenOffset  = 21
	entryBlocksOffset     = 28
	entrySize             = 30
)

// FileType is the file type stored in the low bits of a directory type byte.
type FileType uint8

const (
	FileTypeDEL FileType = iota
	FileTypeSEQ
	FileTypePRG
	FileTypeUSR
	FileTypeREL
)

func (t FileType) String() string {
	switch t {
	case FileTypeDEL:
		return "DEL"
	case FileTypeSEQ:
		return "SEQ"
	case FileTypePRG:
		return "PRG"
	case FileTypeUSR:
		return "USR"
	case FileTypeREL:
		return "REL"
	}
	return "???"
}

// DirEntry is a single file record of the directory.
type DirEntry struct {
	RawType      byte
	Type         FileType
	Closed       bool // bit 7: file was closed properly
	Locked       bool // bit 6: file is write protected
	Head         Position
	Name         string
	SideSector   Position // REL files only
	RecordLength uint8    // REL files only
	Blocks       uint16
}

// Directory is the parsed BAM sector plus the file records of the
// directory chain, in on-disk order.
type Directory struct {
	Link    Position // first directory sector
	Format  [2]byte
	BAM     BAM
	Header  [HeaderSize]byte
	Entries []DirEntry

	// Sectors lists the directory chain sectors that were read.
	Sectors []Position
}

// Len returns the number of directory entries.
func (d *Directory) Len() int {
	return len(d.Entries)
}

// Description returns the cleaned header text of the disk.
func (d *Directory) Description() string {
	return CleanText(d.Header[:])
}

// Name returns the disk name: the first 17 characters of the description.
func (d *Directory) Name() string {
	desc := d.Description()
	if len(desc) > DiskNameLen {
		desc = desc[:DiskNameLen]
	}
	return strings.TrimRight(desc, " ")
}

// ParseDirectory reads the BAM sector and follows the directory chain.
//
// The returned directory is never nil: on error it holds everything parsed
// before the failure. A missing format marker or an invalid first link
// yields an error wrapping ErrBAMUnreadable. A cyclic or dangling link, or
// a sector that cannot be read, stops the traversal.
func ParseDirectory(img *Image) (*Directory, error) {
	dir := &Directory{}

	data, err := img.SectorAt(BAMPosition)
	if err != nil {
		return dir, fmt.Errorf("%w: %w: %w", ErrMalformedDirectory, ErrBAMUnreadable, err)
	}

	dir.Link = Position{Track: data[bamLinkOffset], Sector: data[bamLinkOffset+1]}
	copy(dir.Format[:], data[bamFormatOffset:bamFormatOffset+2])
	for i := range dir.BAM {
		dir.BAM[i] = binary.LittleEndian.Uint32(data[bamMapOffset+4*i:])
	}
	copy(dir.Header[:], data[HeaderOffset:])

	if dir.Format[0] != FormatMarker {
		return dir, fmt.Errorf("%w: %w: format marker is 0x%02X", ErrMalformedDirectory, ErrBAMUnreadable, dir.Format[0])
	}
	if !dir.Link.IsValid() {
		return dir, fmt.Errorf("%w: %w: invalid directory link %s", ErrMalformedDirectory, ErrBAMUnreadable, dir.Link)
	}

	// The BAM sector never holds directory records.
	var visited [TotalSectors]bool
	bamIndex, _ := BAMPosition.Index()
	visited[bamIndex] = true

	pos := dir.Link
	for {
		index, ok := pos.Index()
		if !ok {
			if pos.Track != 0 {
				return dir, fmt.Errorf("%w: dangling link to %s", ErrMalformedDirectory, pos)
			}
			return dir, nil
		}

		if visited[index] {
			return dir, fmt.Errorf("%w: cyclic link to %s", ErrMalformedDirectory, pos)
		}
		visited[index] = true

		sector, err := img.Sector(index)
		if err != nil {
			return dir, fmt.Errorf("directory sector %s: %w", pos, err)
		}

		dir.Sectors = append(dir.Sectors, pos)
		dir.Entries = appendEntries(dir.Entries, sector)

		pos = Position{Track: sector[0], Sector: sector[1]}
	}
}

// appendEntries parses the records of one directory sector. A zero type
// byte ends the scan: the remaining slots are padding.
func appendEntries(entries []DirEntry, sector []byte) []DirEntry {
	for i := 0; i < EntriesPerSector; i++ {
		off := entryBaseOffset + i*entryStride
		rec := sector[off : off+entrySize]

		if rec[entryTypeOffset] == 0x00 {
			break
		}
		entries = append(entries, ParseEntry(rec))
	}
	return entries
}

// ParseEntry decodes a directory record starting at its type byte.
func ParseEntry(rec []byte) DirEntry {
	typ := rec[entryTypeOffset]
	return DirEntry{
		RawType: typ,
		Type:    FileType(typ & 0x07),
		Closed:  typ&0x80 != 0,
		Locked:  typ&0x40 != 0,
		Head: Position{
			Track:  rec[entryHeadOffset],
			Sector: rec[entryHeadOffset+1],
		},
		Name: CleanText(rec[entryNameOffset : entryNameOffset+NameLen]),
		SideSector: Position{
			Track:  rec[entrySideSectorOffset],
			Sector: rec[entrySideSectorOffset+1],
		},
		RecordLength: rec[entryRecordLenOffset],
		Blocks:       binary.LittleEndian.Uint16(rec[entryBlocksOffset:]),
	}
}

// CleanText converts PETSCII text to a printable string. A NUL byte ends the
// text, shifted spaces become spaces, control bytes are dropped and leading
// and trailing spaces are trimmed.
func CleanText(b []byte) string {
	var sb strings.Builder
	for _, c := range b {
		switch {
		case c == 0x00:
			return strings.Trim(sb.String(), " ")
		case c == shiftedSpace:
			sb.WriteByte(' ')
		case c >= 0x20 && c <= 0x7E:
			sb.WriteByte(c)
		case c >= 0xC1 && c <= 0xDA:
			// shifted letters
			sb.WriteByte('A' + (c - 0xC1))
		case c < 0x20 || (c >= 0x80 && c < 0xA0):
			// control codes
		default:
			sb.WriteByte('?')
		}
	}
	return strings.Trim(sb.String(), " ")
}
