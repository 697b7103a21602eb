package disk

import "math/bits"

// BAM is the block availability map: one word per track. The low byte holds
// the number of free sectors, bit 8+s is set when sector s is free.
type BAM [MaxTrack]uint32

// DefaultBAM returns a synthetic map with every track free except the
// directory track, which is marked fully allocated. It allows a degraded
// analysis of a disk whose real BAM cannot be read.
func DefaultBAM() BAM {
	var bam BAM
	for track := MinTrack; track <= MaxTrack; track++ {
		if track == DirectoryTrack {
			continue
		}

		n := SectorCount(track)
		bam[track-1] = uint32(n) | ((1<<n)-1)<<8
	}
	return bam
}

// IsFree reports whether pos is marked free. Invalid positions are never free.
func (b *BAM) IsFree(pos Position) bool {
	if !pos.IsValid() {
		return false
	}
	return (b[pos.Track-1]>>(8+uint32(pos.Sector)))&1 == 1
}

// FreeCount returns the free sector count stored for the track.
func (b *BAM) FreeCount(track int) int {
	if track < MinTrack || track > MaxTrack {
		return 0
	}
	return int(b[track-1] & 0xFF)
}

// FreeSectors counts the free bits of the track that address existing sectors.
func (b *BAM) FreeSectors(track int) int {
	n := SectorCount(track)
	if n == 0 {
		return 0
	}

	mask := uint32((1<<n)-1) << 8
	return bits.OnesCount32(b[track-1] & mask)
}

// TotalFree returns the sum of the free counts, skipping the directory track
// the way the drive reports "BLOCKS FREE".
func (b *BAM) TotalFree() int {
	total := 0
	for track := MinTrack; track <= MaxTrack; track++ {
		if track == DirectoryTrack {
			continue
		}
		total += b.FreeCount(track)
	}
	return total
}
