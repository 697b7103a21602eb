// Package disktest builds synthetic 1541 images for tests.
package disktest

import (
	"encoding/binary"
	"fmt"

	"github.com/Sam36502/disekt/internal/disk"
)

// FirstDirSector is where New places the first directory sector.
var FirstDirSector = disk.Position{Track: disk.DirectoryTrack, Sector: 1}

// Builder assembles a raw image in memory.
type Builder struct {
	data []byte
}

// New returns a formatted, empty disk: every sector is zero and free except
// the BAM sector and one directory sector, both allocated.
func New(name string) *Builder {
	b := &Builder{data: make([]byte, disk.ImageSize)}

	bam := b.Sector(disk.BAMPosition)
	bam[0], bam[1] = FirstDirSector.Track, FirstDirSector.Sector
	bam[2] = disk.FormatMarker

	for track := disk.MinTrack; track <= disk.MaxTrack; track++ {
		for sector := 0; sector < disk.SectorCount(track); sector++ {
			b.Free(disk.Position{Track: uint8(track), Sector: uint8(sector)})
		}
	}

	header := bam[disk.HeaderOffset:]
	for i := range header {
		header[i] = 0xA0
	}
	copy(header, name)
	copy(header[18:], "ID")
	copy(header[21:], "2A")

	b.Allocate(disk.BAMPosition)
	b.Allocate(FirstDirSector)

	dir := b.Sector(FirstDirSector)
	dir[0], dir[1] = 0x00, 0xFF
	return b
}

// Bytes returns the raw image.
func (b *Builder) Bytes() []byte {
	return b.data
}

// Image wraps a copy of the raw image.
func (b *Builder) Image() *disk.Image {
	data := make([]byte, len(b.data))
	copy(data, b.data)
	return disk.NewImage(data)
}

// Sector returns the writable bytes of the sector at pos.
func (b *Builder) Sector(pos disk.Position) []byte {
	off, ok := pos.Offset()
	if !ok {
		panic(fmt.Sprintf("disktest: invalid position %s", pos))
	}
	return b.data[off : off+disk.BlockSize]
}

// SetLink writes the chain link of the sector at pos.
func (b *Builder) SetLink(pos disk.Position, next disk.Position) {
	s := b.Sector(pos)
	s[0], s[1] = next.Track, next.Sector
}

// Fill sets every byte of the sector at pos to v.
func (b *Builder) Fill(pos disk.Position, v byte) {
	s := b.Sector(pos)
	for i := range s {
		s[i] = v
	}
}

func (b *Builder) bamWord(track uint8) []byte {
	bam := b.Sector(disk.BAMPosition)
	off := 4 + 4*(int(track)-1)
	return bam[off : off+4]
}

// Allocate marks pos as used in the BAM.
func (b *Builder) Allocate(pos disk.Position) {
	w := b.bamWord(pos.Track)
	v := binary.LittleEndian.Uint32(w)
	bit := uint32(1) << (8 + uint32(pos.Sector))
	if v&bit != 0 {
		v &^= bit
		v--
	}
	binary.LittleEndian.PutUint32(w, v)
}

// Free marks pos as free in the BAM.
func (b *Builder) Free(pos disk.Position) {
	w := b.bamWord(pos.Track)
	v := binary.LittleEndian.Uint32(w)
	bit := uint32(1) << (8 + uint32(pos.Sector))
	if v&bit == 0 {
		v |= bit
		v++
	}
	binary.LittleEndian.PutUint32(w, v)
}

// AddEntry writes a directory record into the first free slot of the first
// directory sector.
func (b *Builder) AddEntry(typ byte, name string, head disk.Position, blocks uint16) {
	dir := b.Sector(FirstDirSector)
	for i := 0; i < disk.EntriesPerSector; i++ {
		rec := dir[2+32*i : 2+32*i+30]
		if rec[0] != 0x00 {
			continue
		}

		rec[0] = typ
		rec[1], rec[2] = head.Track, head.Sector
		for j := 0; j < disk.NameLen; j++ {
			rec[3+j] = 0xA0
		}
		copy(rec[3:3+disk.NameLen], name)
		binary.LittleEndian.PutUint16(rec[28:], blocks)
		return
	}
	panic("disktest: directory sector is full")
}

// AddFile writes a closed PRG file occupying blocks, in order. Each block is
// filled with fill after its link; the last block links to track 0.
func (b *Builder) AddFile(name string, fill byte, blocks ...disk.Position) {
	for i, pos := range blocks {
		s := b.Sector(pos)
		for j := 2; j < len(s); j++ {
			s[j] = fill
		}

		if i+1 < len(blocks) {
			b.SetLink(pos, blocks[i+1])
		} else {
			s[0], s[1] = 0x00, 0xFF
		}
		b.Allocate(pos)
	}
	b.AddEntry(0x82, name, blocks[0], uint16(len(blocks)))
}
