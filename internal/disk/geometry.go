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

import "fmt"

const (
	MinTrack     = 1
	MaxTrack     = 35
	BlockSize    = 256 // Bytes per sector
	TotalSectors = 683 // Sectors on a 35 track 1541 disk
	ImageSize    = TotalSectors * BlockSize

	DirectoryTrack = 18
)

// BAMPosition is the sector holding the allocation map and the disk header.
var BAMPosition = Position{Track: DirectoryTrack, Sector: 0}

// zone describes a contiguous range of tracks sharing the same sector count.
type zone struct {
	firstTrack, lastTrack int
	sectors               int
	firstIndex            int // linear index of sector 0 of firstTrack
}

var zones = [...]zone{
	{1, 17, 21, 0},
	{18, 24, 19, 357},
	{25, 30, 18, 490},
	{31, 35, 17, 598},
}

// Position addresses a sector by track (1-based) and sector (0-based).
type Position struct {
	Track  uint8
	Sector uint8
}

func (p Position) String() string {
	return fmt.Sprintf("%02d/%02d", p.Track, p.Sector)
}

// SectorCount returns the number of sectors on the given track,
// or 0 if the track does not exist.
func SectorCount(track int) int {
	for _, z := range zones {
		if track >= z.firstTrack && track <= z.lastTrack {
			return z.sectors
		}
	}
	return 0
}

// IsValid reports whether p addresses an existing sector.
func (p Position) IsValid() bool {
	return int(p.Sector) < SectorCount(int(p.Track))
}

// Index maps p onto the dense range [0, TotalSectors).
// The second return value is false if p is not a valid position.
func (p Position) Index() (int, bool) {
	if !p.IsValid() {
		return -1, false
	}

	index := 0
	for track := MinTrack; track < int(p.Track); track++ {
		index += SectorCount(track)
	}
	return index + int(p.Sector), true
}

// Offset returns the byte offset of p inside a raw image.
func (p Position) Offset() (int64, bool) {
	index, ok := p.Index()
	if !ok {
		return 0, false
	}
	return int64(index) * BlockSize, true
}

// PositionAt is the inverse of Position.Index.
func PositionAt(index int) (Position, bool) {
	if index < 0 || index >= TotalSectors {
		return Position{}, false
	}

	for i := len(zones) - 1; i >= 0; i-- {
		z := zones[i]
		if index >= z.firstIndex {
			rel := index - z.firstIndex
			return Position{
				Track:  uint8(z.firstTrack + rel/z.sectors),
				Sector: uint8(rel % z.sectors),
			}, true
		}
	}
	return Position{}, false
}

// Positions iterates over every valid position in linear index order.
func Positions() func(yield func(int, Position) bool) {
	return func(yield func(int, Position) bool) {
		index := 0
		for track := MinTrack; track <= MaxTrack; track++ {
			for sector := 0; sector < SectorCount(track); sector++ {
				if !yield(index, Position{Track: uint8(track), Sector: uint8(sector)}) {
					return
				}
				index++
			}
		}
	}
}
