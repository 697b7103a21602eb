package fuse

import "fmt"

// Sector is a sector exposed as /sectors/<track>/<sector>.bin.
type Sector struct {
	Track  uint8
	Sector uint8
	Data   []byte
}

// Chain is the block chain of a directory entry, exposed as a directory
// under /chains holding one raw sector per block, in chain order.
type Chain struct {
	Name   string
	Blocks []Sector
}

func trackDirName(track uint8) string {
	return fmt.Sprintf("%02d", track)
}

func sectorFileName(sector uint8) string {
	return fmt.Sprintf("%02d.bin", sector)
}

// blockFileName names the n-th block of a chain after its position so that
// a listing shows the chain order and where each block lives.
func blockFileName(n int, s Sector) string {
	return fmt.Sprintf("%03d_%02d_%02d.bin", n, s.Track, s.Sector)
}
