// Package analysis classifies every sector of a 1541 image by combining the
// allocation map, the directory and an optional transfer capture.
package analysis

import (
	"errors"
	"fmt"

	"github.com/Sam36502/disekt/internal/capture"
	"github.com/Sam36502/disekt/internal/disk"
)

var ErrNotFound = errors.New("sector not found")

// Status is the classification of a sector. The order of the constants
// follows increasing confidence.
type Status uint8

const (
	StatusUnknown Status = iota
	StatusEmpty
	StatusUnexpected
	StatusMissing
	StatusPresent
	StatusBad
	StatusGood
	StatusCorrupted
	StatusConfirmed
	StatusInvalid
)

func (s Status) String() string {
	switch s {
	case StatusUnknown:
		return "Unknown"
	case StatusEmpty:
		return "Empty"
	case StatusUnexpected:
		return "Has unexpected data"
	case StatusMissing:
		return "Missing"
	case StatusPresent:
		return "Has data"
	case StatusBad:
		return "Bad"
	case StatusGood:
		return "Good"
	case StatusCorrupted:
		return "Corrupted"
	case StatusConfirmed:
		return "Confirmed"
	case StatusInvalid:
		return "Invalid"
	}
	return fmt.Sprintf("Status(%d)", uint8(s))
}

// Healthy reports whether the status counts towards the healthy sectors.
func (s Status) Healthy() bool {
	switch s {
	case StatusGood, StatusPresent, StatusConfirmed, StatusEmpty:
		return true
	}
	return false
}

// SectorType tells what a sector is used for. File block types share their
// values with disk.FileType.
type SectorType uint8

const (
	TypeDEL       SectorType = SectorType(disk.FileTypeDEL)
	TypeSEQ       SectorType = SectorType(disk.FileTypeSEQ)
	TypePRG       SectorType = SectorType(disk.FileTypePRG)
	TypeUSR       SectorType = SectorType(disk.FileTypeUSR)
	TypeREL       SectorType = SectorType(disk.FileTypeREL)
	TypeEmpty     SectorType = 0x40
	TypeBAM       SectorType = 0x41
	TypeDirectory SectorType = 0x42
	TypeUnknown   SectorType = 0x43
	TypeInvalid   SectorType = 0x4F
)

func (t SectorType) String() string {
	switch t {
	case TypeDEL:
		return "Deleted File Block"
	case TypeSEQ:
		return "Sequential File Block"
	case TypePRG:
		return "Program Block"
	case TypeUSR:
		return "User File Block"
	case TypeREL:
		return "Relative File Block"
	case TypeEmpty:
		return "Empty"
	case TypeBAM:
		return "Block Availability Map"
	case TypeDirectory:
		return "Directory Table"
	case TypeUnknown:
		return "Unknown"
	case TypeInvalid:
		return "Invalid"
	}
	return fmt.Sprintf("SectorType(0x%02X)", uint8(t))
}

// IsFile reports whether t is the type of a file block.
func (t SectorType) IsFile() bool {
	return t <= TypeREL
}

// SectorInfo is everything known about one sector.
type SectorInfo struct {
	Position disk.Position
	Index    int
	Type     SectorType
	Status   Status
	Data     [disk.BlockSize]byte

	IsFree           bool // marked free in the BAM
	HasData          bool // holds non-zero bytes
	HasTransferInfo  bool // a capture exists
	HasDirectoryInfo bool // belongs to a directory entry
	ChecksumMatch    bool // the captured checksum agrees with the captured data
	IsBlank          bool // matches the filler pattern of the disk

	// Directory linkage, set for file blocks.
	Entry     *disk.DirEntry
	FileIndex int // block number within the file, -1 if none
	DirIndex  int // entry number, or first entry number of a directory sector; -1 if none

	// Transfer info.
	Checksum   uint16
	DiskError  uint8
	ParseError capture.ParseError

	// Chain links by linear index, -1 if none.
	Prev int
	Next int
}

// DiskAnalysis is the result of classifying a whole disk.
type DiskAnalysis struct {
	Directory *disk.Directory
	Sectors   [disk.TotalSectors]SectorInfo

	CountFree    int
	CountInUse   int
	CountHealthy int
	CountBad     int
}

// Get returns the analysis of the sector at pos.
func (a *DiskAnalysis) Get(pos disk.Position) (SectorInfo, error) {
	index, ok := pos.Index()
	if !ok {
		return SectorInfo{}, fmt.Errorf("%w: %s", ErrNotFound, pos)
	}
	return a.Sectors[index], nil
}

// FileBlocks returns the sectors resolved for directory entry i, in chain
// order.
func (a *DiskAnalysis) FileBlocks(i int) []*SectorInfo {
	if a.Directory == nil || i < 0 || i >= len(a.Directory.Entries) {
		return nil
	}

	index, ok := a.Directory.Entries[i].Head.Index()
	if !ok {
		return nil
	}

	var blocks []*SectorInfo
	for index >= 0 && len(blocks) < disk.TotalSectors {
		s := &a.Sectors[index]
		if s.DirIndex != i || s.FileIndex != len(blocks) {
			break
		}
		blocks = append(blocks, s)
		index = s.Next
	}
	return blocks
}

// DirectoryBlocks returns the sectors of the directory chain, in order.
func (a *DiskAnalysis) DirectoryBlocks() []*SectorInfo {
	var blocks []*SectorInfo
	for i := range a.Sectors {
		s := &a.Sectors[i]
		if s.Type == TypeDirectory && s.Prev < 0 {
			for s != nil && len(blocks) < disk.TotalSectors {
				blocks = append(blocks, s)
				if s.Next < 0 {
					break
				}
				s = &a.Sectors[s.Next]
			}
			break
		}
	}
	return blocks
}
