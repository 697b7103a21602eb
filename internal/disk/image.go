package disk

import (
	"fmt"

	"github.com/Sam36502/disekt/internal/mmap"
)

// Image is a raw disk image held in memory. Sectors are addressed by
// linear index, so chain traversal never touches the file again.
type Image struct {
	data []byte
	m    *mmap.MmapFile
}

// NewImage wraps an in-memory image. Images shorter than ImageSize are
// accepted: the missing sectors fail to read with ErrIO.
func NewImage(data []byte) *Image {
	return &Image{data: data}
}

// LoadImage maps the image file at path into memory.
func LoadImage(path string) (*Image, error) {
	m, err := mmap.NewMmapFile(path)
	if err != nil {
		return nil, err
	}
	return &Image{data: m.Data, m: m}, nil
}

func (img *Image) Close() error {
	if img.m == nil {
		return nil
	}
	err := img.m.Close()
	img.m = nil
	img.data = nil
	return err
}

// Size returns the size of the image in bytes.
func (img *Image) Size() int64 {
	return int64(len(img.data))
}

// Sector returns the 256 bytes of the sector with the given linear index.
// The returned slice aliases the image and must not be modified.
func (img *Image) Sector(index int) ([]byte, error) {
	if index < 0 || index >= TotalSectors {
		return nil, fmt.Errorf("%w: index %d", ErrInvalidPosition, index)
	}

	off := index * BlockSize
	if off+BlockSize > len(img.data) {
		return nil, fmt.Errorf("%w: sector %d beyond image end (%d bytes)", ErrIO, index, len(img.data))
	}
	return img.data[off : off+BlockSize], nil
}

// SectorAt is like Sector but addresses the sector by position.
func (img *Image) SectorAt(pos Position) ([]byte, error) {
	index, ok := pos.Index()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrInvalidPosition, pos)
	}
	return img.Sector(index)
}

// Link reads the two byte track/sector link stored at the start of a sector.
func (img *Image) Link(index int) (Position, error) {
	data, err := img.Sector(index)
	if err != nil {
		return Position{}, err
	}
	return Position{Track: data[0], Sector: data[1]}, nil
}

